// Package engine assembles the engine services from a configuration file and runs the frame loop.
package engine

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/plus3/rtx/script"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type LogConfig struct {
	Level       string   `json:"level" yaml:"level"`
	Encoding    string   `json:"encoding" yaml:"encoding"`
	Development bool     `json:"development" yaml:"development"`
	OutputPaths []string `json:"output_paths,omitempty" yaml:"output_paths,omitempty"`
}

type AssetsConfig struct {
	// Root is the directory every resource path is relative to.
	Root string `json:"root" yaml:"root"`
}

type GameConfig struct {
	StartLevel string `json:"start_level" yaml:"start_level"`
	FrameRate  int    `json:"frame_rate" yaml:"frame_rate"`
}

type ScriptConfig struct {
	// PanicPolicy is "disable" or "abort".
	PanicPolicy string `json:"panic_policy" yaml:"panic_policy"`
}

type DevtoolsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
}

type WindowConfig struct {
	Title  string `json:"title" yaml:"title"`
	Width  int    `json:"width" yaml:"width"`
	Height int    `json:"height" yaml:"height"`
}

// Config is the engine configuration file.
type Config struct {
	Log      LogConfig      `json:"log" yaml:"log"`
	Assets   AssetsConfig   `json:"assets" yaml:"assets"`
	Game     GameConfig     `json:"game" yaml:"game"`
	Script   ScriptConfig   `json:"script" yaml:"script"`
	Devtools DevtoolsConfig `json:"devtools" yaml:"devtools"`
	Window   WindowConfig   `json:"window" yaml:"window"`
}

func DefaultConfig() *Config {
	return &Config{
		Log:      LogConfig{Level: "info", Encoding: "console"},
		Assets:   AssetsConfig{Root: "."},
		Game:     GameConfig{FrameRate: 60},
		Script:   ScriptConfig{PanicPolicy: string(script.PanicDisable)},
		Devtools: DevtoolsConfig{Addr: "127.0.0.1:7777"},
		Window:   WindowConfig{Title: "rtx", Width: 1280, Height: 720},
	}
}

// LoadConfig reads YAML from r over the defaults and validates the result.
func LoadConfig(r io.Reader) (*Config, error) {
	c := DefaultConfig()
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func LoadConfigFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadConfig(f)
}

// Validate checks every field and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Log.Encoding != "json" && c.Log.Encoding != "console" {
		errs = append(errs, fmt.Errorf("log.encoding: %q is not json or console", c.Log.Encoding))
	}
	if c.Game.FrameRate <= 0 {
		errs = append(errs, fmt.Errorf("game.frame_rate: must be positive, got %d", c.Game.FrameRate))
	}
	if _, err := script.ParsePanicPolicy(c.Script.PanicPolicy); err != nil {
		errs = append(errs, fmt.Errorf("script.panic_policy: %w", err))
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window: invalid size %dx%d", c.Window.Width, c.Window.Height))
	}
	return errors.Join(errs...)
}

// FrameInterval is the time between two frames at the configured rate.
func (c *Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.Game.FrameRate)
}
