package config

import (
	"os"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/stevedao0/newcm-sub000/pkg/helper"
)

// LoadConfig loads configuration from a YAML file with environment variable support
func LoadConfig(filename string) (*DataServiceConfig, string, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	cfgPath := helper.GetCfgPath(filename)
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return nil, cfgPath, err
	}

	// Resolve environment variables
	data = resolveEnv(data)
	var cfg DataServiceConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, cfgPath, err
	}

	setDefaults(&cfg)
	return &cfg, cfgPath, nil
}

func setDefaults(cfg *DataServiceConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5173
	}
	if cfg.Storage.ProbeTimeout <= 0 {
		cfg.Storage.ProbeTimeout = 3 * time.Second
	}
	if cfg.Storage.Local.Path == "" {
		cfg.Storage.Local.Path = "data"
	}
	if cfg.Notifier.Type == "" {
		cfg.Notifier.Type = "memory"
	}
	if cfg.Notifier.Role == "" {
		cfg.Notifier.Role = string(RoleBoth)
	}
	if cfg.Notifier.Redis.StreamName == "" {
		cfg.Notifier.Redis.StreamName = "newcm:data:updates"
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "newcm"
	}
}

// resolveEnv replaces environment variable placeholders in YAML content
func resolveEnv(content []byte) []byte {
	regex := regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

	return regex.ReplaceAllFunc(content, func(match []byte) []byte {
		matches := regex.FindSubmatch(match)
		envKey := string(matches[1])
		var defaultValue string

		if len(matches) > 2 {
			defaultValue = string(matches[2])
		}

		if value, exists := os.LookupEnv(envKey); exists {
			return []byte(value)
		}
		return []byte(defaultValue)
	})
}
