package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sarchlab/frameticker/clock"
	"github.com/sarchlab/frameticker/config"
	"github.com/sarchlab/frameticker/frame"
	"github.com/sarchlab/frameticker/monitoring"
	"github.com/sarchlab/frameticker/recording"
	"github.com/sarchlab/frameticker/scripting"
	"github.com/sarchlab/frameticker/ticking"
)

const frameCounterID = "frameticker.frames"

func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the ticker until the frame limit or an interrupt.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			log, err := newLogger(cfg.Logging)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			summary, err := run(ctx, cfg, log)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"ticked %d frames, %.3fs of frame time\n",
				summary.Ticks, summary.Elapsed.Seconds())

			return nil
		},
	}

	flags := runCmd.Flags()
	flags.String("fps", "", "Frame rate of the timer, such as 60 or 120Hz")
	flags.Int("frames", 0, "Stop after this many ticks; 0 runs until interrupted")
	flags.Bool("headless", false, "Fire frames back to back instead of on a timer")
	flags.Bool("on-demand", false, "Only request frames while there is work")
	flags.Bool("paused", false, "Start paused; resume from the monitor")
	flags.Bool("monitor", false, "Serve the monitor")
	flags.Int("port", 0, "Port of the monitor; 0 picks a random port")
	flags.Bool("open-browser", false, "Open the monitor in a browser")
	flags.Bool("record", false, "Record ticks into a SQLite database")
	flags.String("record-path", "", "Recording file name without extension")

	return runCmd
}

type runSummary struct {
	Ticks   uint64
	Elapsed time.Duration
}

type session struct {
	cfg    *config.Config
	log    *zap.Logger
	loop   *frame.Loop
	ticker *ticking.AutoTicker[string, time.Duration]
	manual *frame.ManualSource[time.Duration]
	clock  *clock.Clock
	fired  int

	closers []func() error
}

func run(
	ctx context.Context,
	cfg *config.Config,
	log *zap.Logger,
) (runSummary, error) {
	s := &session{
		cfg:   cfg,
		log:   log,
		loop:  frame.NewLoop(),
		clock: clock.New(),
	}
	defer s.close()

	if err := s.build(); err != nil {
		return runSummary{}, err
	}

	if cfg.Frame.Headless {
		if err := s.loop.Post(s.step); err != nil {
			return runSummary{}, err
		}
	}

	err := s.loop.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return runSummary{}, err
	}

	return runSummary{
		Ticks:   s.ticker.Ticks(),
		Elapsed: s.clock.ElapsedTime(),
	}, nil
}

func (s *session) build() error {
	gen, err := s.cfg.IDGenerator()
	if err != nil {
		return err
	}

	b := ticking.MakeBuilder[string, time.Duration]().
		WithPhases(s.cfg.Ticker.Phases...).
		WithDedupeMode(s.cfg.DedupeMode()).
		WithIDGenerator(gen).
		WithPaused(s.cfg.Ticker.Paused).
		WithOnDemand(s.cfg.Ticker.OnDemand).
		WithLogger(s.log)

	if s.cfg.Frame.Headless {
		s.manual = frame.NewManualSource[time.Duration]()
		b = b.WithSource(s.manual)
	} else {
		b = b.WithDispatcher(s.loop).WithFallbackFreq(s.cfg.Freq())
	}

	s.ticker, err = b.BuildAuto()
	if err != nil {
		return err
	}
	s.closers = append(s.closers, s.ticker.Close)

	if s.log.Core().Enabled(zap.DebugLevel) {
		s.ticker.AcceptHook(ticking.NewTickLogger(s.log))
	}

	if err := s.attachRecorder(); err != nil {
		return err
	}

	if err := s.registerListeners(); err != nil {
		return err
	}

	if err := s.loadScript(); err != nil {
		return err
	}

	return s.startMonitor()
}

func (s *session) registerListeners() error {
	phases := s.cfg.Ticker.Phases
	if len(phases) == 0 {
		return nil
	}

	if _, err := s.ticker.OnWithID(phases[0], "frameticker.clock",
		s.clock.Tick); err != nil {
		return err
	}

	if s.cfg.Frame.Frames == 0 {
		return nil
	}

	limit := uint64(s.cfg.Frame.Frames)
	_, err := s.ticker.OnWithID(phases[len(phases)-1], frameCounterID,
		func(time.Duration) {
			if s.ticker.Ticks() < limit {
				return
			}

			if err := s.ticker.SetPaused(true); err != nil {
				s.log.Warn("failed to pause ticker", zap.Error(err))
			}

			s.loop.Close()
		})

	return err
}

func (s *session) attachRecorder() error {
	if !s.cfg.Recording.Enabled {
		return nil
	}

	rec, err := recording.New(s.cfg.Recording.Path, s.log)
	if err != nil {
		return err
	}
	s.closers = append(s.closers, rec.Close)

	hook, err := recording.NewTickRecorder(rec, s.log)
	if err != nil {
		return err
	}

	s.ticker.AcceptHook(hook)

	return nil
}

func (s *session) loadScript() error {
	if s.cfg.Script.Path == "" {
		return nil
	}

	engine := scripting.NewEngine(s.ticker, s.log)
	s.closers = append(s.closers, func() error {
		engine.Close()
		return nil
	})

	return engine.LoadFile(s.cfg.Script.Path)
}

func (s *session) startMonitor() error {
	if !s.cfg.Monitor.Enabled {
		return nil
	}

	m := monitoring.NewMonitor().
		WithLogger(s.log).
		WithPortNumber(s.cfg.Monitor.Port).
		WithExecutor(s.loop)
	m.RegisterTicker(s.ticker)

	url, err := m.StartServer()
	if err != nil {
		return err
	}

	s.closers = append(s.closers, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		return m.Shutdown(ctx)
	})

	if s.cfg.Frame.Frames > 0 {
		bar := m.CreateProgressBar("frames", uint64(s.cfg.Frame.Frames))
		s.ticker.AcceptHook(progressHook{bar: bar})
	}

	if s.cfg.Monitor.OpenBrowser {
		if err := browser.OpenURL(url); err != nil {
			s.log.Warn("failed to open browser", zap.Error(err))
		}
	}

	return nil
}

// step fires one headless frame and schedules the next one. It stops the
// loop once the ticker no longer asks for frames.
func (s *session) step() error {
	if !s.manual.Pending() {
		s.log.Info("ticker went idle, stopping")
		s.loop.Close()

		return nil
	}

	t := s.cfg.Freq().NFramesLater(s.fired, 0)
	s.fired++

	if err := s.manual.Fire(t); err != nil {
		return err
	}

	if err := s.loop.Post(s.step); err != nil &&
		!errors.Is(err, frame.ErrLoopClosed) {
		return err
	}

	return nil
}

func (s *session) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.log.Warn("cleanup failed", zap.Error(err))
		}
	}
}
