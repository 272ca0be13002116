package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"stealthcompany.com/medadmin/internal/admin"
	"stealthcompany.com/medadmin/internal/api"
	"stealthcompany.com/medadmin/internal/backend"
	"stealthcompany.com/medadmin/internal/config"
	"stealthcompany.com/medadmin/internal/dal"
	"stealthcompany.com/medadmin/internal/metrics"
	"stealthcompany.com/medadmin/internal/notify"
	"stealthcompany.com/medadmin/internal/seed"
	"stealthcompany.com/medadmin/pkg/zerolog_config"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "admin-api",
		Short:        "Admin back-office for doctors, patients and appointments",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(indexesCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the admin HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func indexesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "indexes",
		Short: "Create the store indexes used by the admin queries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := bootstrap()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			store, err := backend.Open(ctx, cfg)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer closeStore(store.Close)

			if err := store.EnsureIndexes(ctx); err != nil {
				return fmt.Errorf("failed to create indexes: %w", err)
			}
			log.Info().Str("driver", cfg.StoreDriver).Msg("Indexes ready")
			return nil
		},
	}
}

// bootstrap loads configuration and installs the global logger
func bootstrap() (*config.Config, error) {
	config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	zerolog_config.SetAppPrefix("medadmin-api")
	if err := zerolog_config.StartupWithEnv(cfg.ElasticsearchURL, "logs", cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

func closeStore(closeFn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := closeFn(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to close store")
	}
}

func seedInProcess(ctx context.Context, store dal.Backend) error {
	fixtures, err := seed.DefaultFixtures()
	if err != nil {
		return err
	}
	if _, err := seed.NewSeeder(store, seed.Options{}).Run(ctx, fixtures); err != nil {
		return fmt.Errorf("failed to seed store: %w", err)
	}
	return nil
}

func runServer() error {
	cfg, err := bootstrap()
	if err != nil {
		return err
	}

	log.Info().
		Str("driver", cfg.StoreDriver).
		Bool("strict", cfg.StrictMode).
		Bool("auth", cfg.AuthEnabled()).
		Msg("Starting medadmin-api service")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := backend.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer closeStore(store.Close)

	if err := store.EnsureIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to ensure indexes, queries may be slow")
	}

	// a memory store lives in this process, so a separate seed run cannot reach it
	if cfg.SeedOnStart && cfg.StoreDriver == config.DriverMemory {
		if err := seedInProcess(ctx, store); err != nil {
			return err
		}
	}

	metrics.StartSystemMetrics(ctx, 15*time.Second, store.Ping)

	var notifier admin.Notifier = notify.LogNotifier{}
	if cfg.SMTPEnabled() {
		notifier = notify.NewMailer(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	}

	svc := admin.NewService(store, admin.Options{
		Strict:           cfg.StrictMode,
		RecentWindowDays: cfg.RecentWindowDays,
		Notifier:         notifier,
	})

	handler, err := api.NewHandler(svc, store)
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}
	router := api.SetupRoutes(handler, api.RouterOptions{JWTSecret: []byte(cfg.JWTSecret)})

	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.APIPort).Msg("API Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("API server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Dur("timeout", cfg.ShutdownTimeout).Msg("Shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("API server shutdown failed: %w", err)
	}
	if err := svc.WaitNotifications(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Shutdown before all doctor notifications were sent")
	}
	log.Info().Msg("API server stopped")
	return nil
}
