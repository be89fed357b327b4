package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danmuck/microrpc/internal/config"
	"github.com/danmuck/microrpc/internal/frame"
	"github.com/danmuck/microrpc/internal/logging"
	"github.com/danmuck/microrpc/internal/observability"
	"github.com/danmuck/microrpc/internal/pipeline"
	"github.com/danmuck/microrpc/internal/services"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "rpcctl: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "runtime config path (defaults apply when empty)")
	manifestPath := flag.String("manifest", "", "service manifest path (overrides config)")
	inputPath := flag.String("input", "", "message input file, - for stdin (overrides config)")
	format := flag.String("format", "", "input format: lines|frames (overrides config)")
	metricsAddr := flag.String("metrics-addr", "", "serve /metrics on this address (overrides config)")
	flag.Parse()

	cfg := config.DefaultRuntimeConfig()
	if *configPath != "" {
		loaded, err := loadRuntimeConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if err := config.ApplyEnv(&cfg); err != nil {
		return err
	}
	if *manifestPath != "" {
		cfg.Manifest = *manifestPath
	}
	if *inputPath != "" {
		cfg.Input = *inputPath
	}
	if *format != "" {
		cfg.Format = *format
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	config.NormalizeRuntimeConfig(&cfg)
	if err := config.ValidateRuntimeConfig(cfg); err != nil {
		return err
	}

	logger := newLogger(cfg)

	manifest, err := config.LoadManifest(cfg.Manifest)
	if err != nil {
		return err
	}
	mgr, err := config.Build(manifest, services.Builtins(), logger)
	if err != nil {
		return err
	}
	runner, err := pipeline.NewRunner(mgr, manifest.ResponseSize, logger)
	if err != nil {
		return err
	}
	logger.Info().
		Str("manifest", cfg.Manifest).
		Int("services", mgr.Registry().Len()).
		Bool("legacy_slots", manifest.LegacySlots).
		Str("format", cfg.Format).
		Msg("rpcctl ready")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		srv := startMetrics(cfg.MetricsAddr, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	in, closeIn, err := openInput(cfg.Input)
	if err != nil {
		return err
	}
	defer closeIn()

	var stats pipeline.Stats
	if cfg.Format == config.FormatFrames {
		stats, err = runner.RunFrames(ctx, in, os.Stdout, frame.DefaultLimits())
	} else {
		stats, err = runner.Run(ctx, in, os.Stdout)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if stats.Failed > 0 {
		logger.Warn().Int("failed", stats.Failed).Int("messages", stats.Messages).Msg("rpcctl finished with failures")
	}
	return nil
}

func newLogger(cfg config.RuntimeConfig) zerolog.Logger {
	lc := logging.DefaultConfig(logging.ProfileRuntime)
	if lvl, ok := logging.ParseLevel(cfg.LogLevel); ok {
		lc.Level = lvl
	}
	lc.File = cfg.LogFile
	lc.App = "rpcctl"
	logging.ApplyEnvOverrides(&lc)
	return logging.New(lc, os.Stderr)
}

func startMetrics(addr string, logger zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("addr", addr).Msg("metrics server stopped")
		}
	}()
	logger.Info().Str("addr", addr).Msg("serving /metrics")
	return srv
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
