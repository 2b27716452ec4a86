// Package config loads the settings of the frameticker command.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sarchlab/frameticker/frame"
	"github.com/sarchlab/frameticker/idgen"
	"github.com/sarchlab/frameticker/listener"
)

// Config holds every setting of a frameticker run. Load fills it from a
// file, and ApplyEnv and command-line flags override it afterwards.
type Config struct {
	Ticker    TickerConfig    `toml:"ticker" yaml:"ticker"`
	Frame     FrameConfig     `toml:"frame" yaml:"frame"`
	Monitor   MonitorConfig   `toml:"monitor" yaml:"monitor"`
	Recording RecordingConfig `toml:"recording" yaml:"recording"`
	Script    ScriptConfig    `toml:"script" yaml:"script"`
	Logging   LoggingConfig   `toml:"logging" yaml:"logging"`
}

// TickerConfig sets up the phase list and listener registry of the ticker.
type TickerConfig struct {
	Phases   []string `toml:"phases" yaml:"phases"`
	Dedupe   string   `toml:"dedupe" yaml:"dedupe"` // append, replace, ignore, throw
	IDs      string   `toml:"ids" yaml:"ids"`       // sequential or parallel
	Paused   bool     `toml:"paused" yaml:"paused"`
	OnDemand bool     `toml:"on_demand" yaml:"on_demand"`
}

// FrameConfig controls how frames are produced.
type FrameConfig struct {
	FPS      float64 `toml:"fps" yaml:"fps"`
	Frames   int     `toml:"frames" yaml:"frames"` // 0 runs until interrupted
	Headless bool    `toml:"headless" yaml:"headless"`
}

// MonitorConfig enables the HTTP monitor.
type MonitorConfig struct {
	Enabled     bool `toml:"enabled" yaml:"enabled"`
	Port        int  `toml:"port" yaml:"port"`
	OpenBrowser bool `toml:"open_browser" yaml:"open_browser"`
}

// RecordingConfig enables recording ticks into SQLite.
type RecordingConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	Path    string `toml:"path" yaml:"path"` // without the .sqlite3 suffix
}

// ScriptConfig names a Lua script that registers listeners.
type ScriptConfig struct {
	Path string `toml:"path" yaml:"path"`
}

// LoggingConfig selects the zap logger.
type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"` // "json" or "console"
}

// Load reads a TOML or YAML file, chosen by extension, over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Defaults()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("config %s: unsupported format", path)
	}

	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}

// Defaults returns the configuration used when no file is given.
func Defaults() *Config {
	return &Config{
		Ticker: TickerConfig{
			Phases: []string{"input", "update", "render"},
			Dedupe: listener.DedupeAppend.String(),
			IDs:    "sequential",
		},
		Frame: FrameConfig{
			FPS: float64(frame.DefaultFallbackFreq),
		},
		Recording: RecordingConfig{
			Path: "frameticker_recording",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate checks values that the file format cannot.
func (c *Config) Validate() error {
	if _, err := listener.ParseDedupeMode(c.Ticker.Dedupe); err != nil {
		return err
	}

	if _, err := c.IDGenerator(); err != nil {
		return err
	}

	if !frame.Freq(c.Frame.FPS).Valid() {
		return fmt.Errorf("config: fps must be finite and positive, got %v",
			c.Frame.FPS)
	}

	if c.Frame.Frames < 0 {
		return fmt.Errorf("config: frames must not be negative, got %d",
			c.Frame.Frames)
	}

	for _, phase := range c.Ticker.Phases {
		if strings.TrimSpace(phase) == "" {
			return fmt.Errorf("config: empty phase name")
		}
	}

	if _, err := zap.ParseAtomicLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Logging.Format)
	}

	return nil
}

// DedupeMode returns the configured dedupe mode.
func (c *Config) DedupeMode() listener.DedupeMode {
	mode, _ := listener.ParseDedupeMode(c.Ticker.Dedupe)
	return mode
}

// Freq returns the configured frame rate.
func (c *Config) Freq() frame.Freq {
	return frame.Freq(c.Frame.FPS)
}

// IDGenerator returns a new generator of the configured kind.
func (c *Config) IDGenerator() (idgen.Generator, error) {
	switch strings.ToLower(c.Ticker.IDs) {
	case "", "sequential":
		return idgen.NewSequential(), nil
	case "parallel":
		return idgen.NewParallel(), nil
	default:
		return nil, fmt.Errorf("config: unknown id generator %q", c.Ticker.IDs)
	}
}
