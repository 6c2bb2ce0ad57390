// Command tabeqd runs the per-source equalizer daemon: an audio host with
// synthetic loopback capture and the HTTP control plane over it.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/gin-gonic/gin"

	"github.com/cwbudde/tabeq/api"
	"github.com/cwbudde/tabeq/dsp/core"
	"github.com/cwbudde/tabeq/engine/analyzer"
	"github.com/cwbudde/tabeq/engine/capture"
	"github.com/cwbudde/tabeq/engine/host"
	"github.com/cwbudde/tabeq/engine/session"
	"github.com/cwbudde/tabeq/internal/config"
)

var version = "0.1.0"

// CLI defines the command-line interface.
type CLI struct {
	Version  bool   `short:"v" help:"Show version information"`
	Config   string `short:"c" type:"path" help:"Path to YAML config file (optional)"`
	Listen   string `short:"l" help:"Listen address, overrides config"`
	LogLevel string `help:"Log level: debug, info, warn, error; overrides config"`
}

func main() {
	cliArgs := &CLI{}
	kong.Parse(cliArgs,
		kong.Name("tabeqd"),
		kong.Description("Per-source real-time equalizer daemon"),
		kong.UsageOnError(),
	)

	if cliArgs.Version {
		fmt.Printf("tabeqd %s\n", version)
		os.Exit(0)
	}

	if err := run(cliArgs); err != nil {
		fmt.Fprintln(os.Stderr, "tabeqd:", err)
		os.Exit(1)
	}
}

func run(cliArgs *CLI) error {
	cfg, err := config.Load(cliArgs.Config)
	if err != nil {
		return err
	}

	if cliArgs.Listen != "" {
		cfg.ListenAddr = cliArgs.Listen
	}
	if cliArgs.LogLevel != "" {
		cfg.LogLevel = cliArgs.LogLevel
	}

	log := newLogger(cfg.LogLevel)
	slog.SetDefault(log)

	coreOpts := []core.ProcessorOption{
		core.WithSampleRate(cfg.SampleRate),
		core.WithBlockSize(cfg.BlockSize),
	}

	// Loopback capture: synthetic per-source tones paced at wall clock,
	// standing in for the host environment's tab capture.
	grantor := capture.NewSynthGrantor(coreOpts, capture.WithRealtime())

	factory := func() (session.AudioHost, error) {
		return host.New(grantor, coreOpts,
			host.WithLogger(log),
			host.WithAnalyzerOptions(
				analyzer.WithFFTSize(cfg.FFTSize),
				analyzer.WithSmoothing(cfg.Smoothing),
			),
		), nil
	}

	mgr := session.NewManager(factory, grantor,
		session.WithLogger(log),
		session.WithReconcilePolicy(session.ReconcilePolicy{
			MaxAttempts: cfg.ReconcileMaxAttempts,
		}),
	)
	defer mgr.Close()

	// The registry is volatile; pick up whatever a previous incarnation
	// left running in the host.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := mgr.Rehydrate(ctx); err != nil {
		return fmt.Errorf("rehydrate: %w", err)
	}

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.NewRouter(mgr),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("control plane listening", "addr", cfg.ListenAddr, "version", version)

		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level

	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
