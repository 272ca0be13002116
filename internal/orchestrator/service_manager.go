package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

// ServiceManager runs the seed job and the API service as child processes
type ServiceManager struct {
	binDir      string
	binExt      string
	gracePeriod time.Duration
	apiCmd      *exec.Cmd
	apiDone     chan error
}

// NewServiceManager creates a service manager for binaries in binDir
func NewServiceManager(binDir, binExt string, gracePeriod time.Duration) *ServiceManager {
	return &ServiceManager{
		binDir:      binDir,
		binExt:      binExt,
		gracePeriod: gracePeriod,
	}
}

func (sm *ServiceManager) command(ctx context.Context, name string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, filepath.Join(sm.binDir, name+sm.binExt))
	cmd.Stdout = log.Logger
	cmd.Stderr = log.Logger
	return cmd
}

// RunSeed runs the seed job to completion
func (sm *ServiceManager) RunSeed(ctx context.Context) error {
	log.Info().Msg("Starting seed job...")

	if err := sm.command(ctx, "seed").Run(); err != nil {
		return fmt.Errorf("seed job failed: %w", err)
	}

	log.Info().Msg("Seed job completed successfully")
	return nil
}

// StartAPIService starts the API service
func (sm *ServiceManager) StartAPIService(ctx context.Context) error {
	log.Info().Msg("Starting API service...")

	// not bound to ctx: shutdown sends SIGTERM first and kills only after the grace period
	sm.apiCmd = sm.command(context.WithoutCancel(ctx), "api")
	if err := sm.apiCmd.Start(); err != nil {
		return err
	}

	sm.apiDone = make(chan error, 1)
	go func() {
		sm.apiDone <- sm.apiCmd.Wait()
	}()
	return nil
}

// WaitForServices blocks until the API exits or ctx is cancelled
func (sm *ServiceManager) WaitForServices(ctx context.Context) error {
	if sm.apiCmd == nil {
		return errors.New("API service not started")
	}
	log.Info().Msg("API service started, waiting for completion...")

	select {
	case err := <-sm.apiDone:
		if err != nil {
			log.Error().Err(err).Msg("API service exited with error")
			return err
		}
		log.Info().Msg("API service exited")
		return nil
	case <-ctx.Done():
		log.Info().Msg("Shutting down services...")
		sm.shutdownAPI()
		return nil
	}
}

// shutdownAPI sends SIGTERM and kills the API if it outlives the grace period
func (sm *ServiceManager) shutdownAPI() {
	if sm.apiCmd.Process == nil {
		return
	}
	if err := sm.apiCmd.Process.Signal(syscall.SIGTERM); err != nil {
		log.Warn().Err(err).Msg("Failed to signal API service")
	}

	select {
	case <-sm.apiDone:
		log.Info().Msg("API service stopped")
	case <-time.After(sm.gracePeriod):
		log.Warn().Dur("grace", sm.gracePeriod).Msg("API service did not stop in time, killing")
		if err := sm.apiCmd.Process.Kill(); err != nil {
			log.Error().Err(err).Msg("Failed to kill API service")
		}
		<-sm.apiDone
	}
}
