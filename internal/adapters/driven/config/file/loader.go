// Package file loads connector configuration documents from disk.
package file

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/vinhhap/airbyte-custom-connectors/internal/logger"
)

// DefaultEnvFile is read when no env file is named and it exists.
const DefaultEnvFile = ".env"

// EnvFallbacks maps configuration keys to the environment variables that
// fill them when the config file leaves them empty.
var EnvFallbacks = map[string]string{
	"tenant_id":     "EXCEL_ONLINE_TENANT_ID",
	"client_id":     "EXCEL_ONLINE_CLIENT_ID",
	"client_secret": "EXCEL_ONLINE_CLIENT_SECRET",
}

// ErrUnsupportedFormat is returned for config files with an unknown extension.
var ErrUnsupportedFormat = errors.New("unsupported config format")

// Loader reads a config document and overlays credentials from the environment.
type Loader struct {
	envFile  string
	lookupFn func(string) (string, bool)
}

// NewLoader creates a loader. An empty envFile reads DefaultEnvFile if present.
func NewLoader(envFile string) *Loader {
	return &Loader{envFile: envFile, lookupFn: os.LookupEnv}
}

// WithLookup replaces the process environment lookup, e.g. in tests.
func (l *Loader) WithLookup(fn func(string) (string, bool)) *Loader {
	l.lookupFn = fn
	return l
}

// Load reads the config file at path and fills missing credentials.
// Process environment variables take precedence over the env file.
func (l *Loader) Load(path string) (map[string]any, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("config path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	raw, err := Decode(filepath.Ext(path), data)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	dotenv, err := l.readEnvFile()
	if err != nil {
		return nil, err
	}

	for key, env := range EnvFallbacks {
		if s, ok := raw[key].(string); ok && strings.TrimSpace(s) != "" {
			continue
		}
		if v, ok := l.lookupFn(env); ok && v != "" {
			raw[key] = v
			continue
		}
		if v := dotenv[env]; v != "" {
			raw[key] = v
		}
	}
	return raw, nil
}

func (l *Loader) readEnvFile() (map[string]string, error) {
	name := l.envFile
	if name == "" {
		name = DefaultEnvFile
		if _, err := os.Stat(name); errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
	}

	values, err := godotenv.Read(name)
	if err != nil {
		return nil, fmt.Errorf("read env file %s: %w", name, err)
	}
	logger.Debug("config: loaded %d variables from %s", len(values), name)
	return values, nil
}

// Decode parses a config document; ext selects the format (".json", ".toml",
// ".yaml" or ".yml"). JSON numbers are kept as json.Number.
func Decode(ext string, data []byte) (map[string]any, error) {
	raw := map[string]any{}

	switch strings.ToLower(ext) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
	case ".toml":
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}
