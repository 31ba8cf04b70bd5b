package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/magodo/slog2hclog"

	"github.com/scimbridge/scimbridge/internal/destination"
	"github.com/scimbridge/scimbridge/internal/intent"
	"github.com/scimbridge/scimbridge/internal/provision"
	"github.com/scimbridge/scimbridge/internal/server"
	"github.com/scimbridge/scimbridge/pkg/config"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var configPath string

	flag.StringVar(&configPath, "config", "config.yaml", "Path to the YAML configuration file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger, configPath); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logLevel := new(slog.LevelVar)
	logLevel.Set(slog.LevelInfo)
	hclogger := slog2hclog.New(logger, logLevel)

	registry, err := destination.NewRegistry(cfg.Destinations, hclogger)
	if err != nil {
		return err
	}

	extractor, err := intent.NewGeminiExtractor(cfg.Gemini, logger)
	if err != nil {
		return err
	}

	orchestrator := provision.NewOrchestrator(registry, cfg.DestinationName, logger)
	provisioner := provision.NewProvisioner(registry, cfg.DestinationName, logger)

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           server.New(orchestrator, provisioner, extractor, logger).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		logger.Info("serving", "address", cfg.Server.Address, "destination", cfg.DestinationName)

		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return srv.Shutdown(ctx)
}
