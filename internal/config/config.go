// Package config loads prlens settings from defaults, an optional TOML file
// and PRLENS_ environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

const envPrefix = "PRLENS_"

// DefaultMarker identifies reports published by prlens.
const DefaultMarker = "<!-- prlens: v1 -->"

// Config is the full application configuration.
type Config struct {
	Log      Log      `koanf:"log"`
	Server   Server   `koanf:"server"`
	Pipeline Pipeline `koanf:"pipeline"`
	Publish  Publish  `koanf:"publish"`
	Jobs     Jobs     `koanf:"jobs"`
}

type Log struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type Server struct {
	Addr string `koanf:"addr"`
	Port int    `koanf:"port"`
}

// Address returns host:port.
func (s Server) Address() string {
	return fmt.Sprintf("%s:%d", s.Addr, s.Port)
}

// Pipeline holds the analysis limits.
type Pipeline struct {
	MaxSuggestions  int    `koanf:"max_suggestions"`
	MaxContentBytes int    `koanf:"max_content_bytes"`
	MaxPatchBytes   int    `koanf:"max_patch_bytes"`
	Marker          string `koanf:"marker"`
}

type Publish struct {
	Dir string `koanf:"dir"`
}

type Jobs struct {
	Workers     int `koanf:"workers"`
	QueueSize   int `koanf:"queue_size"`
	MaxFinished int `koanf:"max_finished"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"log.level":                  "info",
		"log.format":                 "console",
		"server.addr":                "127.0.0.1",
		"server.port":                6142,
		"pipeline.max_suggestions":   20,
		"pipeline.max_content_bytes": 1000000,
		"pipeline.max_patch_bytes":   400000,
		"pipeline.marker":            DefaultMarker,
		"publish.dir":                ".prlens/reports",
		"jobs.workers":               2,
		"jobs.queue_size":            64,
		"jobs.max_finished":          256,
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	k := koanf.New(".")
	_ = k.Load(confmap.Provider(defaults(), "."), nil)
	var cfg Config
	_ = k.Unmarshal("", &cfg)
	return &cfg
}

// Load reads the configuration. With an empty path, ./prlens.toml and then
// $HOME/.prlens.toml are tried; a missing default file is not an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config %s: %w", path, err)
		}
	} else {
		for _, p := range []string{"./prlens.toml", "$HOME/.prlens.toml"} {
			p = os.ExpandEnv(p)
			if _, err := os.Stat(p); err != nil {
				continue
			}
			if err := k.Load(file.Provider(p), toml.Parser()); err != nil {
				return nil, fmt.Errorf("loading config %s: %w", p, err)
			}
			break
		}
	}

	// PRLENS_PIPELINE_MAX_SUGGESTIONS -> pipeline.max_suggestions
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", ".", 1)
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks limits and required values.
func (c *Config) Validate() error {
	switch {
	case c.Pipeline.MaxSuggestions <= 0:
		return fmt.Errorf("%w: pipeline.max_suggestions must be positive", ErrInvalid)
	case c.Pipeline.MaxContentBytes <= 0:
		return fmt.Errorf("%w: pipeline.max_content_bytes must be positive", ErrInvalid)
	case c.Pipeline.MaxPatchBytes <= 0:
		return fmt.Errorf("%w: pipeline.max_patch_bytes must be positive", ErrInvalid)
	case strings.TrimSpace(c.Pipeline.Marker) == "":
		return fmt.Errorf("%w: pipeline.marker is required", ErrInvalid)
	case c.Server.Port <= 0 || c.Server.Port > 65535:
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalid, c.Server.Port)
	case c.Jobs.Workers <= 0:
		return fmt.Errorf("%w: jobs.workers must be positive", ErrInvalid)
	case c.Jobs.QueueSize < 1:
		return fmt.Errorf("%w: jobs.queue_size must be at least 1", ErrInvalid)
	case c.Jobs.MaxFinished < 1:
		return fmt.Errorf("%w: jobs.max_finished must be at least 1", ErrInvalid)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: log.format %q (want console or json)", ErrInvalid, c.Log.Format)
	}
	return nil
}

const sample = `# prlens configuration

[log]
level = "info"
format = "console"

[server]
addr = "127.0.0.1"
port = 6142

[pipeline]
max_suggestions = 20
max_content_bytes = 1000000
max_patch_bytes = 400000
marker = "<!-- prlens: v1 -->"

[publish]
dir = ".prlens/reports"

[jobs]
workers = 2
queue_size = 64
max_finished = 256
`

// Init writes a sample configuration file. It refuses to overwrite.
func Init(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file already exists at %s", path)
	}
	return os.WriteFile(path, []byte(sample), 0o644)
}
