// Package cmd provides the command-line interface of frameticker.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/frameticker/config"
	"github.com/sarchlab/frameticker/frame"
)

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "frameticker",
		Short: "frameticker drives phase listeners frame by frame.",
		Long: `frameticker runs Lua phase listeners on an auto-driving ` +
			`ticker. Frames come from a fixed-rate timer, or are fired ` +
			`back to back in headless mode.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("config", "",
		"Configuration file (.toml, .yaml or .yml)")
	rootCmd.PersistentFlags().StringSlice("env", nil,
		".env files to load before reading FRAMETICKER_* variables")
	rootCmd.PersistentFlags().String("script", "", "Lua script to load")

	rootCmd.AddCommand(newRunCmd(), newCheckCmd())

	return rootCmd
}

// Execute runs the command line and exits the process.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

// loadConfig reads the configuration file, the environment, and then the
// flags that were set explicitly, in increasing priority.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Defaults()

	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}

		cfg = loaded
	}

	envFiles, _ := cmd.Flags().GetStringSlice("env")
	if err := cfg.ApplyEnv(envFiles...); err != nil {
		return nil, err
	}

	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed("script") {
		cfg.Script.Path, _ = flags.GetString("script")
	}

	if flags.Lookup("fps") != nil && flags.Changed("fps") {
		value, _ := flags.GetString("fps")

		freq, err := frame.ParseFreq(value)
		if err != nil {
			return err
		}

		cfg.Frame.FPS = float64(freq)
	}

	ints := map[string]*int{
		"frames": &cfg.Frame.Frames,
		"port":   &cfg.Monitor.Port,
	}
	for name, dst := range ints {
		if flags.Lookup(name) != nil && flags.Changed(name) {
			*dst, _ = flags.GetInt(name)
		}
	}

	bools := map[string]*bool{
		"headless":     &cfg.Frame.Headless,
		"on-demand":    &cfg.Ticker.OnDemand,
		"paused":       &cfg.Ticker.Paused,
		"monitor":      &cfg.Monitor.Enabled,
		"open-browser": &cfg.Monitor.OpenBrowser,
		"record":       &cfg.Recording.Enabled,
	}
	for name, dst := range bools {
		if flags.Lookup(name) != nil && flags.Changed(name) {
			*dst, _ = flags.GetBool(name)
		}
	}

	if flags.Lookup("record-path") != nil && flags.Changed("record-path") {
		cfg.Recording.Path, _ = flags.GetString("record-path")
	}

	return nil
}
