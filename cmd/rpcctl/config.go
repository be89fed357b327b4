package main

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/microrpc/internal/config"
)

type fileConfig struct {
	Manifest    string `toml:"manifest"`
	Input       string `toml:"input"`
	Format      string `toml:"format"`
	MetricsAddr string `toml:"metrics_addr"`
	LogLevel    string `toml:"log_level"`
	LogFile     string `toml:"log_file"`
}

func loadRuntimeConfig(path string) (config.RuntimeConfig, error) {
	cfg := config.DefaultRuntimeConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return config.RuntimeConfig{}, fmt.Errorf("load rpcctl config: %w", err)
	}

	if meta.IsDefined("manifest") {
		cfg.Manifest = raw.Manifest
	}
	if meta.IsDefined("input") {
		cfg.Input = raw.Input
	}
	if meta.IsDefined("format") {
		cfg.Format = raw.Format
	}
	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = raw.MetricsAddr
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = raw.LogLevel
	}
	if meta.IsDefined("log_file") {
		cfg.LogFile = raw.LogFile
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return config.RuntimeConfig{}, fmt.Errorf("load rpcctl config: %w: unknown key %q", config.ErrInvalidConfig, undecoded[0].String())
	}
	config.NormalizeRuntimeConfig(&cfg)
	if err := config.ValidateRuntimeConfig(cfg); err != nil {
		return config.RuntimeConfig{}, err
	}
	return cfg, nil
}
