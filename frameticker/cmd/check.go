package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sarchlab/frameticker/scripting"
	"github.com/sarchlab/frameticker/ticking"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Load the configuration and script and list the listeners.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			gen, err := cfg.IDGenerator()
			if err != nil {
				return err
			}

			ticker := ticking.MakeBuilder[string, time.Duration]().
				WithPhases(cfg.Ticker.Phases...).
				WithDedupeMode(cfg.DedupeMode()).
				WithIDGenerator(gen).
				Build()

			if cfg.Script.Path != "" {
				engine := scripting.NewEngine(ticker, zap.NewNop())
				defer engine.Close()

				if err := engine.LoadFile(cfg.Script.Path); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			for _, phase := range ticker.Phases() {
				fmt.Fprintf(out, "%-12s %d\n", phase, ticker.Count(phase))
			}
			fmt.Fprintf(out, "%-12s %d\n", "total", ticker.TotalCount())

			return nil
		},
	}
}
