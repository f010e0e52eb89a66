// Package config loads sparky configuration from a TOML file, environment
// variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Environment variables that override values from the configuration file.
const (
	EnvGeminiAPIKey = "GEMINI_API_KEY"
	EnvGeminiModel  = "GEMINI_MODEL"
	EnvDatabaseURL  = "SPARKY_DATABASE_URL"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the complete sparky configuration.
type Config struct {
	Server       ServerConfig       `toml:"server"`
	Gemini       GeminiConfig       `toml:"gemini"`
	Knowledge    KnowledgeConfig    `toml:"knowledge"`
	Store        StoreConfig        `toml:"store"`
	Orchestrator OrchestratorConfig `toml:"orchestrator"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	// Address to listen on (e.g., ":8080")
	ListenAddr string `toml:"listen"`

	// JSONLogs switches the logger to JSON output.
	JSONLogs bool `toml:"json_logs"`
}

// GeminiConfig configures the model backend.
type GeminiConfig struct {
	APIKey  string   `toml:"api_key"`
	Model   string   `toml:"model"`
	BaseURL string   `toml:"base_url"`
	Timeout Duration `toml:"timeout"`

	Temperature     float32 `toml:"temperature"`
	TopP            float32 `toml:"top_p"`
	MaxOutputTokens int32   `toml:"max_output_tokens"`
}

// KnowledgeConfig configures the knowledge document cache.
type KnowledgeConfig struct {
	// Dirs are searched in order; the first existing directory is used.
	Dirs     []string `toml:"dirs"`
	TTL      Duration `toml:"ttl"`
	MaxChars int      `toml:"max_chars"`

	// Watch invalidates the cache when the directory changes.
	Watch bool `toml:"watch"`
}

// StoreConfig selects the data collaborator backing the tools.
type StoreConfig struct {
	Driver string `toml:"driver"`

	// DSN is a file path for sqlite or a connection URL for postgres.
	DSN string `toml:"dsn"`
}

// OrchestratorConfig configures the function-calling loop.
type OrchestratorConfig struct {
	MaxIterations int `toml:"max_iterations"`
}

// Duration is a time.Duration decoded from a string such as "5m".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: ":8080",
		},
		Gemini: GeminiConfig{
			Model:           "gemini-2.0-flash",
			Timeout:         Duration{60 * time.Second},
			Temperature:     0.7,
			TopP:            0.95,
			MaxOutputTokens: 2048,
		},
		Knowledge: KnowledgeConfig{
			Dirs:     []string{"knowledge", "/app/knowledge"},
			TTL:      Duration{5 * time.Minute},
			MaxChars: 10000,
		},
		Store: StoreConfig{
			Driver: DriverMemory,
		},
		Orchestrator: OrchestratorConfig{
			MaxIterations: 5,
		},
	}
}

// Load reads the TOML file at path on top of the defaults and applies
// environment overrides. An empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		md, err := toml.DecodeFile(path, cfg)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// defaults only
		case err != nil:
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		default:
			if undecoded := md.Undecoded(); len(undecoded) > 0 {
				keys := make([]string, len(undecoded))
				for i, k := range undecoded {
					keys[i] = k.String()
				}
				return nil, fmt.Errorf("unknown config keys in %s: %s", path, strings.Join(keys, ", "))
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvGeminiAPIKey); v != "" {
		c.Gemini.APIKey = v
	}
	if v := os.Getenv(EnvGeminiModel); v != "" {
		c.Gemini.Model = v
	}
	if v := os.Getenv(EnvDatabaseURL); v != "" {
		c.Store.DSN = v
	}
}

// Validate checks the configuration for values the components cannot run with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory:
	case DriverSQLite, DriverPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("store driver %s requires a dsn", c.Store.Driver)
		}
	default:
		return fmt.Errorf("unsupported store driver: %s", c.Store.Driver)
	}

	if c.Orchestrator.MaxIterations < 1 {
		return fmt.Errorf("orchestrator.max_iterations must be at least 1, got %d", c.Orchestrator.MaxIterations)
	}
	if c.Knowledge.MaxChars < 1 {
		return fmt.Errorf("knowledge.max_chars must be positive, got %d", c.Knowledge.MaxChars)
	}
	if c.Gemini.Model == "" {
		return errors.New("gemini.model must not be empty")
	}
	return nil
}
