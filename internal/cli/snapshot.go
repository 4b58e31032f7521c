package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Simulate for a while, then export CSV and PNG charts",
		Long: `Run the dashboard headless for a fixed duration, stop it, and export the
buffered history: one CSV file with every sample and one PNG chart per sensor.

Examples:
  iotsim snapshot
  iotsim snapshot --duration 1m --export-dir ./exports
  iotsim snapshot --sensors motion --width 800 --height 500`,
		RunE: func(cmd *cobra.Command, args []string) error {
			duration, _ := cmd.Flags().GetDuration("duration")
			quiet, _ := cmd.Flags().GetBool("quiet")
			return snapshotCommand(cmd, duration, quiet)
		},
	}

	addSessionFlags(cmd)
	cmd.Flags().Duration("duration", 10*time.Second, "how long to simulate before exporting")
	cmd.Flags().String("export-dir", "", "output directory (default from config, \".\")")
	cmd.Flags().Int("width", 0, "PNG width in pixels (default 640)")
	cmd.Flags().Int("height", 0, "PNG height in pixels (default 420)")
	cmd.Flags().BoolP("quiet", "q", false, "do not stream the event log")
	return cmd
}

func snapshotCommand(cmd *cobra.Command, duration time.Duration, quiet bool) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if w, _ := cmd.Flags().GetInt("width"); w > 0 {
		cfg.Export.Width = w
	}
	if h, _ := cmd.Flags().GetInt("height"); h > 0 {
		cfg.Export.Height = h
	}

	logger, closeLog, err := newLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeLog()

	s, err := newSession(cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	out := cmd.OutOrStdout()
	logOut := out
	if quiet {
		logOut = io.Discard
	}
	stream := &logStream{w: logOut}

	s.ctrl.Start()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.ctrl.Redraw(gctx, cfg.Dashboard.RedrawInterval.Duration, func() { stream.flush(s.ctrl) })
		return nil
	})
	g.Go(func() error {
		return watchFailures(gctx, s.ctrl, cfg.Dashboard.RedrawInterval.Duration)
	})
	if err := g.Wait(); err != nil {
		s.ctrl.Stop()
		return err
	}
	s.ctrl.Stop()

	paths, err := s.ctrl.Export(cfg.Export.Dir, cfg.Export.Width, cfg.Export.Height)
	stream.flush(s.ctrl)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Fprintln(out, p)
	}
	return nil
}
