package main

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog/log"
	"stealthcompany.com/medadmin/internal/config"
	"stealthcompany.com/medadmin/internal/orchestrator"
	"stealthcompany.com/medadmin/pkg/zerolog_config"
)

func main() {
	config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	zerolog_config.SetAppPrefix("medadmin-orch")
	if err := zerolog_config.StartupWithEnv(cfg.ElasticsearchURL, "logs", cfg.LogLevel); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize logger")
	}

	log.Info().Bool("seedOnStart", cfg.SeedOnStart).Msg("Starting medadmin-orch service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	orchestrator.NewSignalHandler().HandleSignals(ctx, cancel)

	binExt := ""
	if runtime.GOOS == "windows" {
		binExt = ".exe"
	}
	sm := orchestrator.NewServiceManager(".", binExt, cfg.ShutdownTimeout+5*time.Second)

	// the memory driver seeds inside the API process
	if cfg.SeedOnStart && cfg.StoreDriver != config.DriverMemory {
		if err := sm.RunSeed(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to seed store")
		}
	}

	if err := sm.StartAPIService(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start API service")
	}

	if err := sm.WaitForServices(ctx); err != nil {
		os.Exit(1)
	}
	log.Info().Msg("medadmin-orch stopped")
}
