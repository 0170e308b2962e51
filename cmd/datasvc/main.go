package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stevedao0/newcm-sub000/internal/apiserver"
	"github.com/stevedao0/newcm-sub000/internal/common/config"
	"github.com/stevedao0/newcm-sub000/internal/storage"
	"github.com/stevedao0/newcm-sub000/internal/storage/notifier"
	"github.com/stevedao0/newcm-sub000/pkg/logger"
	"github.com/stevedao0/newcm-sub000/pkg/metrics"
	"github.com/stevedao0/newcm-sub000/pkg/version"
)

var (
	configPath string

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of datasvc",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("datasvc version %s\n", version.Get())
		},
	}

	rootCmd = &cobra.Command{
		Use:   "datasvc",
		Short: "Contract management data service",
		Long:  `datasvc serves the contract management collections over HTTP, backed by a relational database with a local JSON fallback and change notification`,
		Run: func(cmd *cobra.Command, args []string) {
			run()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "conf", "configs/datasvc.yaml", "path to configuration file")
	rootCmd.AddCommand(versionCmd)
}

func run() {
	cfg, cfgPath, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}

	zapLogger, err := logger.NewLogger(&cfg.Logger)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()
	zapLogger.Info("starting datasvc",
		zap.String("version", version.Get()),
		zap.String("config", cfgPath))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ntf, err := notifier.NewNotifier(ctx, zapLogger, &cfg.Notifier)
	if err != nil {
		zapLogger.Fatal("failed to initialize notifier", zap.Error(err))
	}

	// A remote open failure is not fatal: the service starts in local mode
	// and keeps serving from disk.
	var remote storage.RemoteStore
	if cfg.Storage.Database.Type != "" {
		rb, err := storage.NewRemoteBackend(zapLogger,
			storage.DatabaseType(cfg.Storage.Database.Type),
			cfg.Storage.Database.GetDSN(), ntf)
		if err != nil {
			zapLogger.Warn("remote backend unavailable, running local-only", zap.Error(err))
		} else {
			remote = rb
			defer rb.Close()
		}
	}

	local, err := storage.NewLocalBackend(zapLogger, cfg.Storage.Local.Path)
	if err != nil {
		zapLogger.Fatal("failed to initialize local storage",
			zap.String("path", cfg.Storage.Local.Path),
			zap.Error(err))
	}

	svc := storage.NewDataService(ctx, zapLogger, remote, local,
		storage.WithProbeTimeout(cfg.Storage.ProbeTimeout))

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.Metrics)
	}

	router := apiserver.NewRouter(svc, m, zapLogger)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		zapLogger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("http server shutdown failed", zap.Error(err))
	}
	cancel()
	if closer, ok := ntf.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			zapLogger.Warn("notifier close failed", zap.Error(err))
		}
	}
	zapLogger.Info("datasvc stopped")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
