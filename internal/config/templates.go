package config

import (
	"fmt"
	"os"
	"strings"
)

const (
	KindManifest = "manifest"
	KindRuntime  = "runtime"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindManifest:
		return manifestTemplate, nil
	case KindRuntime:
		return runtimeTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

// DefaultPath returns the conventional location of a config kind.
func DefaultPath(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindManifest:
		return DefaultManifestPath, nil
	case KindRuntime:
		return DefaultRuntimePath, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

// Validate loads the file at path as the given kind.
func Validate(path, kind string) error {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindManifest:
		_, err := LoadManifest(path)
		return err
	case KindRuntime:
		_, err := LoadRuntimeConfig(path)
		return err
	default:
		return fmt.Errorf("unknown config kind: %s", kind)
	}
}

const manifestTemplate = `capacity = 5
id_len = 2
separator = ","
any_separator = false
legacy_slots = false
response_size = 255

[[service]]
name = "S1"
handler = "ack"
delimiter = ","
max_args = 2
max_message_len = 22

  [[service.arg]]
  id = "ND"
  max_size = 5

  [[service.arg]]
  id = "DA"
  max_size = 10

[[service]]
name = "EC"
handler = "echo"
delimiter = ","

  [[service.arg]]
  id = "A1"
  max_size = 10

  [[service.arg]]
  id = "A2"
  max_size = 10

  [[service.arg]]
  id = "A3"
  max_size = 10

[[service]]
name = "SM"
handler = "sum"
delimiter = "+"

  [[service.arg]]
  id = "X1"
  max_size = 10

  [[service.arg]]
  id = "X2"
  max_size = 10

  [[service.arg]]
  id = "X3"
  max_size = 10

  [[service.arg]]
  id = "X4"
  max_size = 10

[[service]]
name = "KV"
handler = "kv"
delimiter = ","

  [[service.arg]]
  id = "OP"
  max_size = 6

  [[service.arg]]
  id = "KY"
  max_size = 32

  [[service.arg]]
  id = "VL"
  max_size = 64
`

const runtimeTemplate = `manifest = "cmd/rpcctl/manifest.toml"
input = "-"
format = "lines"
metrics_addr = ""
log_level = "info"
log_file = ""
`
