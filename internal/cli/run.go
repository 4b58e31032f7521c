package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/luki/iotsim/internal/config"
	"github.com/luki/iotsim/internal/monitor"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the live sensor dashboard",
		Long: `Start the sensor dashboard. On a terminal this opens the interactive
dashboard; otherwise, or with --headless, the dashboard starts immediately and
streams its event log to stdout until interrupted.

Keyboard shortcuts:
  s           Start sampling
  t           Stop sampling
  c           Clear the activity log
  x           Export CSV and PNG charts
  up/k        Scroll log up
  down/j      Scroll log down
  ?           Show help
  q / Ctrl+C  Quit

Examples:
  iotsim run
  iotsim run --pick
  iotsim run --sensors temperature --redraw 500ms
  iotsim run --headless --duration 1m --mqtt tcp://localhost:1883`,
		RunE: func(cmd *cobra.Command, args []string) error {
			headless, _ := cmd.Flags().GetBool("headless")
			pick, _ := cmd.Flags().GetBool("pick")
			duration, _ := cmd.Flags().GetDuration("duration")
			return runCommand(cmd, headless, pick, duration)
		},
	}

	addSessionFlags(cmd)
	cmd.Flags().Duration("redraw", 0, "redraw interval (default 200ms)")
	cmd.Flags().String("export-dir", "", "directory for exports made with the x key")
	cmd.Flags().Bool("headless", false, "stream the event log instead of opening the dashboard")
	cmd.Flags().Bool("pick", false, "choose sensors interactively before starting")
	cmd.Flags().Duration("duration", 0, "stop after this long in headless mode (0 = until interrupted)")
	return cmd
}

func runCommand(cmd *cobra.Command, headless, pick bool, duration time.Duration) error {
	cfg, err := loadSettings(cmd)
	if pick {
		if cfg == nil {
			return err
		}
		ids, pickErr := pickSensors(cfg.Enabled())
		if pickErr != nil {
			return pickErr
		}
		if err := cfg.Select(ids); err != nil {
			return err
		}
		err = config.Validate(cfg)
	}
	if err != nil {
		return err
	}

	headless = headless || !stdoutIsTerminal()

	var fallback io.Writer = io.Discard
	if headless {
		fallback = cmd.ErrOrStderr()
	}
	logger, closeLog, err := newLogger(cfg.Log, fallback)
	if err != nil {
		return err
	}
	defer closeLog()

	s, err := newSession(cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	if headless {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runHeadless(ctx, s, cmd.OutOrStdout(), cfg.Dashboard.RedrawInterval.Duration, duration)
	}
	return runTUI(s, cfg)
}

// runHeadless starts the dashboard and streams its log until ctx ends, the
// duration elapses, or every sensor has failed.
func runHeadless(ctx context.Context, s *session, out io.Writer, interval, duration time.Duration) error {
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	stream := &logStream{w: out}
	s.ctrl.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.ctrl.Redraw(gctx, interval, func() { stream.flush(s.ctrl) })
		return nil
	})
	g.Go(func() error {
		return watchFailures(gctx, s.ctrl, interval)
	})
	err := g.Wait()

	s.ctrl.Stop()
	stream.flush(s.ctrl)
	return err
}

func runTUI(s *session, cfg *config.Config) error {
	model := monitor.New(s.ctrl, monitor.Options{
		RedrawInterval: cfg.Dashboard.RedrawInterval.Duration,
		ExportDir:      cfg.Export.Dir,
		ExportWidth:    cfg.Export.Width,
		ExportHeight:   cfg.Export.Height,
	})
	_, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}

func stdoutIsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
