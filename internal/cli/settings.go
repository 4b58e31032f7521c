package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/luki/iotsim/internal/config"
	"github.com/luki/iotsim/internal/errors"
)

const envPrefix = "IOTSIM"

// addSessionFlags registers the flags shared by commands that build a
// dashboard session.
func addSessionFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("sensors", nil, "sensors to enable (temperature, motion)")
	cmd.Flags().Int("history", 0, "samples kept per sensor (default 90)")
	cmd.Flags().Bool("clear-on-stop", false, "clear sample history when the dashboard stops")
	cmd.Flags().Bool("no-seed", false, "start with empty buffers instead of one seed sample")
	cmd.Flags().Uint64("random-seed", 0, "seed for deterministic readings (0 = random)")
	cmd.Flags().String("mqtt", "", "mirror samples to this MQTT broker, e.g. tcp://localhost:1883")
}

// newViper binds cmd's flags and IOTSIM_* environment variables.
func newViper(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("binding flags: %w", err)
	}
	return v, nil
}

// loadSettings resolves the config file, then applies flags and environment
// variables on top. Only values that were explicitly set override the file.
func loadSettings(cmd *cobra.Command) (*config.Config, error) {
	v, err := newViper(cmd)
	if err != nil {
		return nil, err
	}

	// A file that fails validation may still be fixed by the overrides
	// below, so only unreadable files end here.
	cfg, err := config.Load(v.GetString("config"))
	if cfg == nil {
		return nil, err
	}

	if v.IsSet("sensors") {
		if err := cfg.Select(splitList(v.GetStringSlice("sensors"))); err != nil {
			return nil, err
		}
	}
	if v.IsSet("history") {
		cfg.Dashboard.HistorySize = v.GetInt("history")
	}
	if v.IsSet("clear-on-stop") {
		cfg.Dashboard.ClearOnStop = v.GetBool("clear-on-stop")
	}
	if v.IsSet("no-seed") && v.GetBool("no-seed") {
		cfg.Dashboard.Seed = false
	}
	if v.IsSet("random-seed") {
		cfg.Dashboard.RandomSeed = v.GetUint64("random-seed")
	}
	if v.IsSet("redraw") {
		cfg.Dashboard.RedrawInterval = config.Duration{Duration: v.GetDuration("redraw")}
	}
	if v.IsSet("mqtt") {
		cfg.MQTT.Broker = v.GetString("mqtt")
	}
	if v.IsSet("export-dir") {
		cfg.Export.Dir = v.GetString("export-dir")
	}
	if v.IsSet("verbose") && v.GetBool("verbose") {
		cfg.Log.Level = "debug"
	}
	if v.IsSet("log-file") {
		cfg.Log.File = v.GetString("log-file")
	}

	return cfg, config.Validate(cfg)
}

// splitList flattens comma-separated entries, as environment variables
// arrive as a single string.
func splitList(items []string) []string {
	var out []string
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// newLogger builds the diagnostics logger. Without a log file, records go
// to fallback.
func newLogger(cfg config.LogConfig, fallback io.Writer) (*slog.Logger, func(), error) {
	level, err := config.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	w, closeFn := fallback, func() {}
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return nil, nil, errors.WrapWithCode(err, errors.ErrConfig,
				fmt.Sprintf("Can't create log directory for %s", cfg.File), "")
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, nil, errors.WrapWithCode(err, errors.ErrConfig,
				fmt.Sprintf("Can't open log file %s", cfg.File), "")
		}
		w, closeFn = f, func() { f.Close() }
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	return logger, closeFn, nil
}
