package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/sarchlab/frameticker/frame"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "FRAMETICKER_"

// ApplyEnv loads the given .env files, or ./.env when none is given and it
// exists, and then overrides the configuration from FRAMETICKER_*
// variables. Variables already set in the environment win over the files.
func (c *Config) ApplyEnv(files ...string) error {
	if err := loadDotEnv(files); err != nil {
		return err
	}

	overrides := []struct {
		name  string
		apply func(string) error
	}{
		{"PHASES", func(v string) error {
			c.Ticker.Phases = splitList(v)
			return nil
		}},
		{"DEDUPE", setString(&c.Ticker.Dedupe)},
		{"IDS", setString(&c.Ticker.IDs)},
		{"PAUSED", setBool(&c.Ticker.Paused)},
		{"ON_DEMAND", setBool(&c.Ticker.OnDemand)},
		{"FPS", func(v string) error {
			freq, err := frame.ParseFreq(v)
			if err != nil {
				return err
			}

			c.Frame.FPS = float64(freq)

			return nil
		}},
		{"FRAMES", setInt(&c.Frame.Frames)},
		{"HEADLESS", setBool(&c.Frame.Headless)},
		{"MONITOR", setBool(&c.Monitor.Enabled)},
		{"MONITOR_PORT", setInt(&c.Monitor.Port)},
		{"RECORD", setBool(&c.Recording.Enabled)},
		{"RECORD_PATH", setString(&c.Recording.Path)},
		{"SCRIPT", setString(&c.Script.Path)},
		{"LOG_LEVEL", setString(&c.Logging.Level)},
		{"LOG_FORMAT", setString(&c.Logging.Format)},
	}

	for _, o := range overrides {
		value, ok := os.LookupEnv(EnvPrefix + o.name)
		if !ok {
			continue
		}

		if err := o.apply(value); err != nil {
			return fmt.Errorf("config: %s%s: %w", EnvPrefix, o.name, err)
		}
	}

	return nil
}

func loadDotEnv(files []string) error {
	if len(files) > 0 {
		return godotenv.Load(files...)
	}

	if _, err := os.Stat(".env"); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return godotenv.Load()
}

func splitList(v string) []string {
	var out []string

	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}

	return out
}

func setString(dst *string) func(string) error {
	return func(v string) error {
		*dst = v
		return nil
	}
}

func setBool(dst *bool) func(string) error {
	return func(v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}

		*dst = b

		return nil
	}
}

func setInt(dst *int) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}

		*dst = n

		return nil
	}
}
