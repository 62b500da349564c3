package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/marsvis/internal/ingest"
	"github.com/san-kum/marsvis/internal/pacing"
	"github.com/san-kum/marsvis/internal/state"
)

const (
	DefaultAddress    = ingest.DefaultAddress
	DefaultBackoff    = ingest.DefaultBackoff
	DefaultLogLevel   = "info"
	DefaultTUILogFile = "marsvis.log"
)

var ErrInvalidConfig = errors.New("config: invalid")

type Config struct {
	Address          string    `yaml:"address"`
	ReconnectBackoff Duration  `yaml:"reconnect_backoff"`
	RenderRate       int       `yaml:"render_rate"`
	PacingMs         int       `yaml:"pacing_ms"`
	MaxGeometries    int       `yaml:"max_geometries"`
	Headless         bool      `yaml:"headless"`
	Log              LogConfig `yaml:"log"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Duration reads and writes Go duration strings such as "2s" or "500ms".
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(v)
	return nil
}

func DefaultConfig() *Config {
	return &Config{
		Address:          DefaultAddress,
		ReconnectBackoff: Duration(DefaultBackoff),
		RenderRate:       pacing.DefaultRenderRate,
		PacingMs:         pacing.DefaultIngestPacing,
		MaxGeometries:    state.DefaultMaxGeometries,
		Log:              LogConfig{Level: DefaultLogLevel},
	}
}

// Load reads a YAML file on top of DefaultConfig, so keys missing from the
// file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if err := ingest.ValidateAddress(c.Address); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.ReconnectBackoff <= 0 {
		return fmt.Errorf("%w: reconnect_backoff must be positive", ErrInvalidConfig)
	}
	if c.RenderRate < pacing.MinRenderRate || c.RenderRate > pacing.MaxRenderRate {
		return fmt.Errorf("%w: render_rate %d outside [%d, %d]", ErrInvalidConfig,
			c.RenderRate, pacing.MinRenderRate, pacing.MaxRenderRate)
	}
	if c.PacingMs < pacing.MinIngestPacing {
		return fmt.Errorf("%w: pacing_ms %d below %d", ErrInvalidConfig, c.PacingMs, pacing.MinIngestPacing)
	}
	if c.MaxGeometries < 0 {
		return fmt.Errorf("%w: max_geometries must not be negative", ErrInvalidConfig)
	}
	return nil
}

// LogFile is where logs go. The TUI owns the terminal, so it logs to a
// file unless one was configured.
func (c *Config) LogFile() string {
	if c.Log.File != "" || c.Headless {
		return c.Log.File
	}
	return DefaultTUILogFile
}
