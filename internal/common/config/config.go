package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type (
	// DataServiceConfig is the root configuration for the data service.
	DataServiceConfig struct {
		Server   ServerConfig   `yaml:"server"`
		Logger   LoggerConfig   `yaml:"logger"`
		Storage  StorageConfig  `yaml:"storage"`
		Notifier NotifierConfig `yaml:"notifier"`
		Metrics  MetricsConfig  `yaml:"metrics"`
	}

	// ServerConfig configures the HTTP API surface.
	ServerConfig struct {
		Port int `yaml:"port"`
	}

	// MetricsConfig controls the Prometheus exposition endpoint.
	MetricsConfig struct {
		Enabled   bool      `yaml:"enabled"`
		Namespace string    `yaml:"namespace"`
		Buckets   []float64 `yaml:"buckets"` // http duration histogram buckets
	}

	// LoggerConfig represents the logger configuration
	LoggerConfig struct {
		Level      string `yaml:"level"`       // debug, info, warn, error
		Format     string `yaml:"format"`      // json, console
		Output     string `yaml:"output"`      // stdout, file
		FilePath   string `yaml:"file_path"`   // path to log file when output is file
		MaxSize    int    `yaml:"max_size"`    // max size of log file in MB
		MaxBackups int    `yaml:"max_backups"` // max number of backup files
		MaxAge     int    `yaml:"max_age"`     // max age of backup files in days
		Compress   bool   `yaml:"compress"`    // whether to compress backup files
		Color      bool   `yaml:"color"`       // whether to use color in console output
		Stacktrace bool   `yaml:"stacktrace"`  // whether to include stacktrace in error logs
	}

	// StorageConfig holds the remote database and the local fallback settings.
	StorageConfig struct {
		Database     DatabaseConfig     `yaml:"database"`      // remote backend
		Local        LocalStorageConfig `yaml:"local"`         // local fallback backend
		ProbeTimeout time.Duration      `yaml:"probe_timeout"` // startup connectivity probe bound
	}

	// DatabaseConfig configures the remote relational backend.
	DatabaseConfig struct {
		Type     string `yaml:"type"`     // mysql, postgres, sqlite
		Host     string `yaml:"host"`     // localhost
		Port     int    `yaml:"port"`     // 3306 (for mysql), 5432 (for postgres)
		User     string `yaml:"user"`     // root (for mysql), postgres (for postgres)
		Password string `yaml:"password"` // password
		DBName   string `yaml:"dbname"`   // database name, or file path for sqlite
		SSLMode  string `yaml:"sslmode"`  // disable (for postgres)
	}

	// LocalStorageConfig configures the on-disk fallback store.
	LocalStorageConfig struct {
		Path string `yaml:"path"` // directory holding one JSON file per collection
	}
)

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	switch c.Type {
	case "postgres":
		return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			c.User, c.Password, c.Host, c.Port, c.DBName)
	case "sqlite":
		// For SQLite, DBName is the file path; the directory must exist
		// before gorm opens it.
		if err := os.MkdirAll(filepath.Dir(c.DBName), 0755); err != nil {
			panic(fmt.Errorf("failed to create directory for sqlite database: %w", err))
		}
		return c.DBName
	default:
		return ""
	}
}
