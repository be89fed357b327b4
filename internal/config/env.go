package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

type runtimeEnv struct {
	Manifest    string `env:"MICRORPC_MANIFEST"`
	Input       string `env:"MICRORPC_INPUT"`
	Format      string `env:"MICRORPC_FORMAT"`
	MetricsAddr string `env:"MICRORPC_METRICS_ADDR"`
}

// ApplyEnv overlays MICRORPC_* variables onto cfg. Unset or blank
// variables leave cfg unchanged. Log settings are read by the logging
// package.
func ApplyEnv(cfg *RuntimeConfig) error {
	var e runtimeEnv
	if err := env.Parse(&e); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if v := strings.TrimSpace(e.Manifest); v != "" {
		cfg.Manifest = v
	}
	if v := strings.TrimSpace(e.Input); v != "" {
		cfg.Input = v
	}
	if v := strings.TrimSpace(e.Format); v != "" {
		cfg.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(e.MetricsAddr); v != "" {
		cfg.MetricsAddr = v
	}
	return nil
}
