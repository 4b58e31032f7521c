package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/luki/iotsim/internal/chart"
	"github.com/luki/iotsim/internal/errors"
	"github.com/luki/iotsim/internal/history"
	"github.com/luki/iotsim/internal/sensor"
	"github.com/luki/iotsim/internal/store"
)

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view [FILE|DIR]",
		Short: "Chart an exported CSV file in the terminal",
		Long: `Load a CSV export and paint one chart per sensor. Given a directory, the
newest export in it is shown; without an argument the configured export
directory is used.

Examples:
  iotsim view
  iotsim view ./exports
  iotsim view ./exports/iotsim-20260221-143000.csv`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			target := cfg.Export.Dir
			if len(args) == 1 {
				target = args[0]
			}
			cols, rows := terminalSize()
			return viewCommand(cmd.OutOrStdout(), target, cols, rows)
		},
	}
	cmd.Flags().String("export-dir", "", "directory to look for exports in")
	return cmd
}

func viewCommand(out io.Writer, target string, cols, rows int) error {
	path, err := resolveExport(target)
	if err != nil {
		return err
	}

	records, err := store.LoadFile(path)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrExport,
			fmt.Sprintf("Can't read export %s", path), "")
	}
	series := store.Group(records)
	if len(series) == 0 {
		return errors.New(errors.ErrExport,
			fmt.Sprintf("%s contains no samples", path), "")
	}

	title := lipgloss.NewStyle().Bold(true)
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	chartRows := max((rows-2)/len(series)-4, 4)

	fmt.Fprintln(out, dim.Render(path))
	for _, s := range series {
		spec, ok := sensor.Describe(s.Sensor)
		if !ok {
			fmt.Fprintln(out, dim.Render(fmt.Sprintf("skipping unknown sensor %q", s.Sensor)))
			continue
		}
		renderer, err := chart.For(spec)
		if err != nil {
			return err
		}

		painter := chart.Terminal{Cols: cols, Rows: chartRows}
		frame := renderer.Render(s.Samples, painter.Region())
		st := history.Summarize(s.Samples)

		fmt.Fprintln(out)
		fmt.Fprintln(out, title.Render(fmt.Sprintf("%s · %s · %d samples", spec.Label, s.Device, st.Count)))
		fmt.Fprintln(out, painter.Paint(frame))
		if spec.Signal == sensor.Continuous {
			fmt.Fprintln(out, dim.Render(fmt.Sprintf("min %.2f  avg %.2f  peak %.2f", st.Min, st.Avg, st.Peak)))
		}
	}
	return nil
}

// resolveExport returns target itself for a file, or the newest export in
// target for a directory.
func resolveExport(target string) (string, error) {
	info, err := os.Stat(target)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrExport,
			fmt.Sprintf("Can't open %s", target), "")
	}
	if !info.IsDir() {
		return target, nil
	}
	files, err := store.ListExports(target)
	if err != nil || len(files) == 0 {
		return "", errors.WrapWithCode(err, errors.ErrExport,
			fmt.Sprintf("No exports found in %s", target),
			"Create one with `iotsim snapshot` or the x key in the dashboard")
	}
	return files[0], nil
}

func terminalSize() (cols, rows int) {
	w, h, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 || h <= 0 {
		return 80, 24
	}
	return w, h
}
