package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"stealthcompany.com/medadmin/internal/backend"
	"stealthcompany.com/medadmin/internal/config"
	"stealthcompany.com/medadmin/internal/dal"
	"stealthcompany.com/medadmin/internal/seed"
	"stealthcompany.com/medadmin/pkg/zerolog_config"
)

func main() {
	var lockTTL time.Duration

	rootCmd := &cobra.Command{
		Use:          "seed",
		Short:        "Load demo doctors, patients and appointments into an empty store",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), lockTTL)
		},
	}
	rootCmd.Flags().DurationVar(&lockTTL, "lock-ttl", 10*time.Minute, "How long the seed lock is held before it expires")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func runSeed(ctx context.Context, lockTTL time.Duration) error {
	config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	zerolog_config.SetAppPrefix("medadmin-seed")
	if err := zerolog_config.StartupWithEnv(cfg.ElasticsearchURL, "logs", cfg.LogLevel); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	log.Info().Str("driver", cfg.StoreDriver).Msg("Starting medadmin-seed service")

	store, err := backend.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			log.Error().Err(err).Msg("Failed to close store")
		}
	}()

	if err := store.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	fixtures, err := seed.DefaultFixtures()
	if err != nil {
		return err
	}

	result, err := seed.NewSeeder(store, seed.Options{LockTTL: lockTTL}).Run(ctx, fixtures)
	if errors.Is(err, dal.ErrLocked) {
		log.Warn().Msg("Another seeder holds the lock, nothing to do")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to seed store: %w", err)
	}

	log.Info().
		Bool("skipped", result.Skipped).
		Int("doctors", result.Doctors).
		Int("patients", result.Patients).
		Int("appointments", result.Appointments).
		Int("failed", result.Failed).
		Msg("Seeding completed")
	return nil
}
