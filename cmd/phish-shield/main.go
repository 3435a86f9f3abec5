package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikey/phish-shield/internal/core"
	"github.com/mikey/phish-shield/internal/di"
	"github.com/mikey/phish-shield/internal/ports"
	"go.uber.org/zap"
)

func main() {
	configFile := flag.String("config", "", "Path to config file")
	flag.Parse()

	container, err := di.BuildContainer(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(run); err != nil {
		fmt.Fprintf(os.Stderr, "Application error: %v\n", err)
		os.Exit(1)
	}
}

// run gets all dependencies injected and blocks until a shutdown signal
func run(
	logger *zap.Logger,
	listeners []ports.Listener,
	analyzer core.Analyzer,
	repo core.HistoryRepository,
) error {
	defer logger.Sync()

	started := make([]ports.Listener, 0, len(listeners))
	for _, l := range listeners {
		if err := l.Start(); err != nil {
			logger.Error("Failed to start listener", zap.Error(err))
			stopAll(logger, started)
			return err
		}
		started = append(started, l)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("Shutting down...", zap.String("signal", sig.String()))

	stopAll(logger, started)

	if closer, ok := analyzer.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close analyzer", zap.Error(err))
		}
	}
	if err := repo.Close(); err != nil {
		logger.Error("Failed to close history repository", zap.Error(err))
	}

	logger.Info("Shutdown complete")
	return nil
}

// stopAll stops listeners in reverse start order
func stopAll(logger *zap.Logger, listeners []ports.Listener) {
	for i := len(listeners) - 1; i >= 0; i-- {
		if err := listeners[i].Stop(); err != nil {
			logger.Error("Failed to stop listener", zap.Error(err))
		}
	}
}
