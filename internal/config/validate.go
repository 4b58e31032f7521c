package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/luki/iotsim/internal/errors"
	"github.com/luki/iotsim/internal/sensor"
)

// Validate checks the config and returns a CONFIG error describing the
// first problem found.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.Config("No configuration", "")
	}

	if len(cfg.Enabled()) == 0 {
		return errors.Config("No sensors enabled",
			"Enable at least one of: "+strings.Join(sensor.Known(), ", "))
	}

	d := cfg.Dashboard
	if d.RedrawInterval.Duration <= 0 {
		return errors.Config("dashboard.redraw_interval must be positive", "Try \"200ms\"")
	}
	if d.HistorySize < 0 {
		return errors.Config(fmt.Sprintf("dashboard.history_size is negative (%d)", d.HistorySize),
			"Use 0 for the default of 90 samples")
	}
	if d.LogLines < 0 {
		return errors.Config(fmt.Sprintf("dashboard.log_lines is negative (%d)", d.LogLines), "")
	}

	t := cfg.Sensors.Temperature
	if t.Enabled {
		if t.Period.Duration <= 0 {
			return errors.Config("sensors.temperature.period must be positive", "Try \"2s\"")
		}
		if t.Min >= t.Max {
			return errors.Config(
				fmt.Sprintf("sensors.temperature range is empty (min %.2f, max %.2f)", t.Min, t.Max),
				"Set min below max")
		}
	}

	m := cfg.Sensors.Motion
	if m.Enabled {
		if m.Period.Duration <= 0 {
			return errors.Config("sensors.motion.period must be positive", "Try \"1500ms\"")
		}
		if m.Probability < 0 || m.Probability > 1 {
			return errors.Config(
				fmt.Sprintf("sensors.motion.probability %.2f is outside [0, 1]", m.Probability), "")
		}
	}

	if cfg.MQTT.Broker != "" {
		if cfg.MQTT.QueueSize <= 0 {
			return errors.Config("mqtt.queue_size must be positive", "Try 256")
		}
		if cfg.MQTT.TopicPrefix == "" {
			return errors.Config("mqtt.topic_prefix is empty", "Try \"iotsim/sensors\"")
		}
	}

	if cfg.Export.Width <= 0 || cfg.Export.Height <= 0 {
		return errors.Config(
			fmt.Sprintf("export size %dx%d is invalid", cfg.Export.Width, cfg.Export.Height),
			"Try width = 640 and height = 420")
	}

	if _, err := ParseLevel(cfg.Log.Level); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a log level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, errors.Config(fmt.Sprintf("Unknown log level %q", name),
			"Use one of: debug, info, warn, error")
	}
}
