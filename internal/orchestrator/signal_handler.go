package orchestrator

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
)

// SignalHandler cancels the orchestrator context on SIGINT or SIGTERM
type SignalHandler struct {
	sigChan chan os.Signal
}

// NewSignalHandler registers for interrupt and terminate signals
func NewSignalHandler() *SignalHandler {
	sh := &SignalHandler{
		sigChan: make(chan os.Signal, 1),
	}
	signal.Notify(sh.sigChan, syscall.SIGINT, syscall.SIGTERM)
	return sh
}

// HandleSignals cancels on the first signal. It stops listening once ctx
// is done so a later signal falls back to the default behaviour.
func (sh *SignalHandler) HandleSignals(ctx context.Context, cancel context.CancelFunc) {
	go func() {
		defer signal.Stop(sh.sigChan)
		select {
		case sig := <-sh.sigChan:
			log.Info().Str("signal", sig.String()).Msg("Received shutdown signal, stopping services")
			cancel()
		case <-ctx.Done():
		}
	}()
}
