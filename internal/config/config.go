package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/danmuck/microrpc/internal/logging"
	"github.com/danmuck/microrpc/internal/rpc"
	"github.com/danmuck/microrpc/internal/services"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
)

var ErrInvalidConfig = errors.New("config: invalid")

const (
	DefaultResponseSize = 255
	DefaultManifestPath = "cmd/rpcctl/manifest.toml"
	DefaultRuntimePath  = "cmd/rpcctl/config.toml"

	FormatLines  = "lines"
	FormatFrames = "frames"
)

// Manifest declares the registry sizing, framing and services of one
// dispatch manager.
type Manifest struct {
	Capacity     int             `toml:"capacity"`
	IDLen        int             `toml:"id_len"`
	Separator    string          `toml:"separator"`
	AnySeparator bool            `toml:"any_separator"`
	LegacySlots  bool            `toml:"legacy_slots"`
	ResponseSize int             `toml:"response_size"`
	Services     []ServiceConfig `toml:"service"`
}

type ServiceConfig struct {
	Name          string      `toml:"name"`
	Handler       string      `toml:"handler"`
	Delimiter     string      `toml:"delimiter"`
	MaxArgs       int         `toml:"max_args"`
	MaxMessageLen int         `toml:"max_message_len"`
	Args          []ArgConfig `toml:"arg"`
}

type ArgConfig struct {
	ID      string `toml:"id"`
	MaxSize int    `toml:"max_size"`
}

// RuntimeConfig is the rpcctl process configuration.
type RuntimeConfig struct {
	Manifest    string `toml:"manifest"`
	Input       string `toml:"input"`
	Format      string `toml:"format"`
	MetricsAddr string `toml:"metrics_addr"`
	LogLevel    string `toml:"log_level"`
	LogFile     string `toml:"log_file"`
}

func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		Manifest: DefaultManifestPath,
		Input:    "-",
		Format:   FormatLines,
		LogLevel: "info",
	}
}

func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return Manifest{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return m, nil
}

// ParseManifest decodes, defaults and validates a manifest.
func ParseManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return Manifest{}, err
	}
	applyManifestDefaults(&m)
	if err := ValidateManifest(m); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

func applyManifestDefaults(m *Manifest) {
	if m.Capacity == 0 {
		m.Capacity = rpc.DefaultCapacity
	}
	if m.IDLen == 0 {
		m.IDLen = rpc.DefaultIDLen
	}
	if m.Separator == "" {
		m.Separator = string(rpc.DefaultSeparator)
	}
	if m.ResponseSize == 0 {
		m.ResponseSize = DefaultResponseSize
	}
	for i := range m.Services {
		svc := &m.Services[i]
		svc.Name = strings.TrimSpace(svc.Name)
		svc.Handler = strings.TrimSpace(svc.Handler)
		if svc.Delimiter == "" {
			svc.Delimiter = ","
		}
		if svc.MaxArgs == 0 {
			svc.MaxArgs = len(svc.Args)
		}
		if svc.MaxMessageLen == 0 && svc.MaxArgs > 0 && svc.MaxArgs <= len(svc.Args) {
			svc.MaxMessageLen = defaultMessageLen(svc.Args[:svc.MaxArgs])
		}
	}
}

// defaultMessageLen fits every argument at its maximum plus delimiters.
func defaultMessageLen(args []ArgConfig) int {
	if len(args) == 0 {
		return 0
	}
	n := len(args) - 1
	for _, a := range args {
		n += a.MaxSize
	}
	return n
}

func ValidateManifest(m Manifest) error {
	if m.Capacity <= 0 {
		return fmt.Errorf("%w: capacity must be positive", ErrInvalidConfig)
	}
	if m.IDLen <= 0 {
		return fmt.Errorf("%w: id_len must be positive", ErrInvalidConfig)
	}
	if len(m.Separator) != 1 {
		return fmt.Errorf("%w: separator must be one byte, got %q", ErrInvalidConfig, m.Separator)
	}
	if m.ResponseSize <= 0 {
		return fmt.Errorf("%w: response_size must be positive", ErrInvalidConfig)
	}
	if len(m.Services) > m.Capacity {
		return fmt.Errorf("%w: %d services exceed capacity %d", ErrInvalidConfig, len(m.Services), m.Capacity)
	}
	seen := make(map[string]struct{}, len(m.Services))
	for i, svc := range m.Services {
		if err := ValidateServiceEntry(svc, m.IDLen); err != nil {
			return fmt.Errorf("service[%d] invalid: %w", i, err)
		}
		if _, ok := seen[svc.Name]; ok {
			return fmt.Errorf("service[%d] invalid: %w: duplicate name %q", i, ErrInvalidConfig, svc.Name)
		}
		seen[svc.Name] = struct{}{}
	}
	return nil
}

func ValidateServiceEntry(svc ServiceConfig, idLen int) error {
	if len(svc.Name) != idLen {
		return fmt.Errorf("%w: name %q must be %d bytes", ErrInvalidConfig, svc.Name, idLen)
	}
	if svc.Handler == "" {
		return fmt.Errorf("%w: handler is required", ErrInvalidConfig)
	}
	if len(svc.Delimiter) != 1 {
		return fmt.Errorf("%w: delimiter must be one byte, got %q", ErrInvalidConfig, svc.Delimiter)
	}
	if len(svc.Args) == 0 {
		return fmt.Errorf("%w: at least one arg is required", ErrInvalidConfig)
	}
	if len(svc.Args) > rpc.MaxArgs {
		return fmt.Errorf("%w: %d args exceed limit %d", ErrInvalidConfig, len(svc.Args), rpc.MaxArgs)
	}
	if svc.MaxArgs < 1 || svc.MaxArgs > len(svc.Args) {
		return fmt.Errorf("%w: max_args %d outside 1..%d", ErrInvalidConfig, svc.MaxArgs, len(svc.Args))
	}
	if svc.MaxMessageLen < 0 {
		return fmt.Errorf("%w: max_message_len is negative", ErrInvalidConfig)
	}
	for j, a := range svc.Args {
		if strings.TrimSpace(a.ID) == "" {
			return fmt.Errorf("%w: arg[%d] id is required", ErrInvalidConfig, j)
		}
		if a.MaxSize < 0 {
			return fmt.Errorf("%w: arg[%d] max_size is negative", ErrInvalidConfig, j)
		}
	}
	return nil
}

// Build creates a manager from a validated manifest, resolving handler
// names through catalog.
func Build(m Manifest, catalog *services.Catalog, logger zerolog.Logger) (*rpc.Manager, error) {
	opts := []rpc.Option{
		rpc.WithCapacity(m.Capacity),
		rpc.WithIDLen(m.IDLen),
		rpc.WithSeparator(m.Separator[0]),
		rpc.WithLogger(logger),
	}
	if m.AnySeparator {
		opts = append(opts, rpc.WithAnySeparator())
	}
	if m.LegacySlots {
		opts = append(opts, rpc.WithLegacySlots())
	}
	mgr, err := rpc.NewManager(opts...)
	if err != nil {
		return nil, err
	}

	for _, svc := range m.Services {
		specs := make([]rpc.ArgSpec, len(svc.Args))
		for i, a := range svc.Args {
			specs[i] = rpc.ArgSpec{ID: a.ID, MaxSize: a.MaxSize}
		}
		schema, err := rpc.NewSchema(svc.Delimiter[0], svc.MaxMessageLen, svc.MaxArgs, specs...)
		if err != nil {
			return nil, fmt.Errorf("service %q schema: %w", svc.Name, err)
		}
		h, err := catalog.New(svc.Handler)
		if err != nil {
			return nil, fmt.Errorf("service %q: %w", svc.Name, err)
		}
		if err := mgr.Register(svc.Name, schema, h); err != nil {
			return nil, fmt.Errorf("service %q: %w", svc.Name, err)
		}
	}
	return mgr, nil
}

// LoadRuntimeConfig reads a runtime file over DefaultRuntimeConfig.
// Unknown keys are rejected.
func LoadRuntimeConfig(path string) (RuntimeConfig, error) {
	cfg := DefaultRuntimeConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return RuntimeConfig{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) && len(strict.Errors) > 0 {
			return RuntimeConfig{}, fmt.Errorf("%w: unknown key %q", ErrInvalidConfig, strings.Join(strict.Errors[0].Key(), "."))
		}
		return RuntimeConfig{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	NormalizeRuntimeConfig(&cfg)
	if err := ValidateRuntimeConfig(cfg); err != nil {
		return RuntimeConfig{}, err
	}
	return cfg, nil
}

// NormalizeRuntimeConfig trims every field and lowercases format and
// log level. A blank manifest, input or format falls back to its default.
func NormalizeRuntimeConfig(cfg *RuntimeConfig) {
	def := DefaultRuntimeConfig()
	cfg.Manifest = strings.TrimSpace(cfg.Manifest)
	if cfg.Manifest == "" {
		cfg.Manifest = def.Manifest
	}
	cfg.Input = strings.TrimSpace(cfg.Input)
	if cfg.Input == "" {
		cfg.Input = def.Input
	}
	cfg.Format = strings.ToLower(strings.TrimSpace(cfg.Format))
	if cfg.Format == "" {
		cfg.Format = def.Format
	}
	cfg.MetricsAddr = strings.TrimSpace(cfg.MetricsAddr)
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.LogFile = strings.TrimSpace(cfg.LogFile)
}

func ValidateRuntimeConfig(cfg RuntimeConfig) error {
	if strings.TrimSpace(cfg.Manifest) == "" {
		return fmt.Errorf("%w: runtime config missing manifest", ErrInvalidConfig)
	}
	if strings.TrimSpace(cfg.Input) == "" {
		return fmt.Errorf("%w: runtime config missing input", ErrInvalidConfig)
	}
	switch cfg.Format {
	case FormatLines, FormatFrames:
	default:
		return fmt.Errorf("%w: unknown format %q", ErrInvalidConfig, cfg.Format)
	}
	if cfg.LogLevel != "" {
		if _, ok := logging.ParseLevel(cfg.LogLevel); !ok {
			return fmt.Errorf("%w: unknown log_level %q", ErrInvalidConfig, cfg.LogLevel)
		}
	}
	return nil
}
