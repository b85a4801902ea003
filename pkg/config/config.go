// Package config loads the TOML settings shared by the CLI and the App.
//
// A file only needs the keys it changes; everything else keeps the value
// from Default. Unknown keys are rejected.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/alexanderameye/surface-id-mapper/pkg/channel"
	"github.com/alexanderameye/surface-id-mapper/pkg/distfield"
	"github.com/alexanderameye/surface-id-mapper/pkg/island"
	"github.com/alexanderameye/surface-id-mapper/pkg/logging"
	"github.com/alexanderameye/surface-id-mapper/pkg/marker"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Config is the complete settings file.
type Config struct {
	Islands IslandsConfig `toml:"islands"`
	Marker  MarkerConfig  `toml:"marker"`
	SDF     SDFConfig     `toml:"sdf"`
	Scene   SceneConfig   `toml:"scene"`
	Log     LogConfig     `toml:"log"`
}

// IslandsConfig selects the adjacency policy and fill behaviour.
type IslandsConfig struct {
	Policy string `toml:"policy"` // "index" or "position"
	Fill   string `toml:"fill"`   // "greedy" or "single"
}

// MarkerConfig controls section ID assignment.
type MarkerConfig struct {
	Channel string `toml:"channel"` // "r", "g" or "b"
	Mode    string `toml:"mode"`    // "sequential" or "random"
	Seed    int64  `toml:"seed"`    // random source seed
}

// SDFConfig controls distance texture bakes.
type SDFConfig struct {
	Scale      float32 `toml:"scale"`
	Offset     float32 `toml:"offset"`
	Clamp      float32 `toml:"clamp"`
	Steps      int     `toml:"steps"`
	Signed     bool    `toml:"signed"`
	Workers    int     `toml:"workers"`
	OutputSize int     `toml:"output_size"`
}

// SceneConfig controls script evaluation and meshing.
type SceneConfig struct {
	Cells   int    `toml:"cells"`   // marching cubes resolution
	Timeout string `toml:"timeout"` // Go duration, e.g. "5s"
}

// LogConfig sets the log level.
type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the built-in settings.
func Default() *Config {
	opts := distfield.DefaultOptions()
	return &Config{
		Islands: IslandsConfig{Policy: "index", Fill: "greedy"},
		Marker:  MarkerConfig{Channel: "r", Mode: "sequential", Seed: 1},
		SDF: SDFConfig{
			Scale:      opts.Scale,
			Offset:     opts.Offset,
			Clamp:      opts.Clamp,
			OutputSize: 128,
		},
		Scene: SceneConfig{Cells: 64, Timeout: "5s"},
		Log:   LogConfig{Level: "info"},
	}
}

// Parse decodes data over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads and parses the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logging.Logger().Debug("config loaded", "path", path)
	return cfg, nil
}

// Marshal encodes c as TOML.
func (c *Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}

// Validate checks every enumerated and numeric field.
func (c *Config) Validate() error {
	var errs []error
	if _, err := island.ParsePolicy(c.Islands.Policy); err != nil {
		errs = append(errs, err)
	}
	if _, err := island.ParseFillMode(c.Islands.Fill); err != nil {
		errs = append(errs, err)
	}
	if _, err := channel.Parse(c.Marker.Channel); err != nil {
		errs = append(errs, err)
	}
	if _, err := marker.ParseMode(c.Marker.Mode); err != nil {
		errs = append(errs, err)
	}
	if c.SDF.Clamp < 0 {
		errs = append(errs, fmt.Errorf("sdf.clamp %v is negative", c.SDF.Clamp))
	}
	if c.SDF.Steps < 0 {
		errs = append(errs, fmt.Errorf("sdf.steps %d is negative", c.SDF.Steps))
	}
	if c.SDF.OutputSize < 0 {
		errs = append(errs, fmt.Errorf("sdf.output_size %d is negative", c.SDF.OutputSize))
	}
	if c.Scene.Cells < 0 {
		errs = append(errs, fmt.Errorf("scene.cells %d is negative", c.Scene.Cells))
	}
	if d, err := time.ParseDuration(c.Scene.Timeout); err != nil {
		errs = append(errs, fmt.Errorf("scene.timeout: %w", err))
	} else if d <= 0 {
		errs = append(errs, fmt.Errorf("scene.timeout %s is not positive", d))
	}
	if _, ok := logging.ParseLevel(c.Log.Level); !ok {
		errs = append(errs, fmt.Errorf("log.level %q is unknown", c.Log.Level))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// Policy returns the island adjacency policy.
func (c *Config) Policy() island.Policy {
	p, _ := island.ParsePolicy(c.Islands.Policy)
	return p
}

// FillMode returns the island fill mode.
func (c *Config) FillMode() island.FillMode {
	f, _ := island.ParseFillMode(c.Islands.Fill)
	return f
}

// Channel returns the marker channel.
func (c *Config) Channel() channel.Channel {
	ch, _ := channel.Parse(c.Marker.Channel)
	return ch
}

// MarkMode returns the section ID mode.
func (c *Config) MarkMode() marker.Mode {
	m, _ := marker.ParseMode(c.Marker.Mode)
	return m
}

// LogLevel returns the configured slog level.
func (c *Config) LogLevel() slog.Level {
	l, _ := logging.ParseLevel(c.Log.Level)
	return l
}

// EvalTimeout returns the scene script time limit.
func (c *Config) EvalTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Scene.Timeout)
	return d
}

// BakeOptions returns distance bake options for channel ch.
func (c *Config) BakeOptions(ch channel.Channel) distfield.Options {
	return distfield.Options{
		Channel: ch,
		Steps:   c.SDF.Steps,
		Scale:   c.SDF.Scale,
		Offset:  c.SDF.Offset,
		Clamp:   c.SDF.Clamp,
		Signed:  c.SDF.Signed,
	}
}
