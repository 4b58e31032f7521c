// Package config provides TOML/YAML configuration for the simulator.
package config

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/luki/iotsim/internal/errors"
	"github.com/luki/iotsim/internal/sensor"
)

// Config is the complete simulator configuration.
type Config struct {
	Dashboard DashboardConfig `toml:"dashboard" yaml:"dashboard"`
	Sensors   SensorsConfig   `toml:"sensors" yaml:"sensors"`
	MQTT      MQTTConfig      `toml:"mqtt" yaml:"mqtt"`
	Export    ExportConfig    `toml:"export" yaml:"export"`
	Log       LogConfig       `toml:"log" yaml:"log"`
}

// DashboardConfig controls the controller and redraw cadence.
type DashboardConfig struct {
	RedrawInterval Duration `toml:"redraw_interval" yaml:"redraw_interval"`
	HistorySize    int      `toml:"history_size" yaml:"history_size"`
	// ClearOnStop empties every buffer when the dashboard stops.
	ClearOnStop bool `toml:"clear_on_stop" yaml:"clear_on_stop"`
	// Seed places one sample in each buffer when the dashboard is built.
	Seed     bool `toml:"seed" yaml:"seed"`
	LogLines int  `toml:"log_lines" yaml:"log_lines"`
	// RandomSeed makes generators deterministic; 0 means random.
	RandomSeed uint64 `toml:"random_seed" yaml:"random_seed"`
}

// SensorsConfig holds per-sensor settings.
type SensorsConfig struct {
	Temperature TemperatureConfig `toml:"temperature" yaml:"temperature"`
	Motion      MotionConfig      `toml:"motion" yaml:"motion"`
}

type TemperatureConfig struct {
	Enabled bool     `toml:"enabled" yaml:"enabled"`
	Period  Duration `toml:"period" yaml:"period"`
	Min     float64  `toml:"min" yaml:"min"`
	Max     float64  `toml:"max" yaml:"max"`
}

type MotionConfig struct {
	Enabled     bool     `toml:"enabled" yaml:"enabled"`
	Period      Duration `toml:"period" yaml:"period"`
	Probability float64  `toml:"probability" yaml:"probability"`
}

// MQTTConfig configures the optional sample mirror. An empty broker
// disables it.
type MQTTConfig struct {
	Broker         string   `toml:"broker" yaml:"broker"`
	ClientID       string   `toml:"client_id" yaml:"client_id"`
	TopicPrefix    string   `toml:"topic_prefix" yaml:"topic_prefix"`
	QueueSize      int      `toml:"queue_size" yaml:"queue_size"`
	ConnectTimeout Duration `toml:"connect_timeout" yaml:"connect_timeout"`
}

type ExportConfig struct {
	Dir    string `toml:"dir" yaml:"dir"`
	Width  int    `toml:"width" yaml:"width"`
	Height int    `toml:"height" yaml:"height"`
}

type LogConfig struct {
	Level string `toml:"level" yaml:"level"`
	File  string `toml:"file" yaml:"file"`
}

// Default returns the default configuration: both sensors enabled, a
// 200ms redraw and history preserved across stop/start.
func Default() *Config {
	return &Config{
		Dashboard: DashboardConfig{
			RedrawInterval: Duration{200 * time.Millisecond},
			HistorySize:    90,
			Seed:           true,
			LogLines:       500,
		},
		Sensors: SensorsConfig{
			Temperature: TemperatureConfig{
				Enabled: true,
				Period:  Duration{2 * time.Second},
				Min:     20,
				Max:     30,
			},
			Motion: MotionConfig{
				Enabled:     true,
				Period:      Duration{1500 * time.Millisecond},
				Probability: 0.4,
			},
		},
		MQTT: MQTTConfig{
			ClientID:       "iotsim",
			TopicPrefix:    "iotsim/sensors",
			QueueSize:      256,
			ConnectTimeout: Duration{5 * time.Second},
		},
		Export: ExportConfig{
			Dir:    ".",
			Width:  640,
			Height: 420,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Enabled returns the enabled sensor ids in display order.
func (c *Config) Enabled() []string {
	var ids []string
	if c.Sensors.Temperature.Enabled {
		ids = append(ids, sensor.Temperature)
	}
	if c.Sensors.Motion.Enabled {
		ids = append(ids, sensor.Motion)
	}
	return ids
}

// Select enables exactly the given sensors. Ids are case-insensitive.
func (c *Config) Select(ids []string) error {
	var temp, motion bool
	for _, id := range ids {
		switch strings.ToLower(strings.TrimSpace(id)) {
		case sensor.Temperature:
			temp = true
		case sensor.Motion:
			motion = true
		case "":
		default:
			return errors.Config(
				fmt.Sprintf("Unknown sensor %q", id),
				"Supported sensors: "+strings.Join(sensor.Known(), ", "))
		}
	}
	c.Sensors.Temperature.Enabled = temp
	c.Sensors.Motion.Enabled = motion
	return nil
}

// Specs builds the immutable sensor specs for every enabled sensor. A
// non-zero random seed makes each sensor's generator deterministic.
func (c *Config) Specs() ([]sensor.Spec, error) {
	var specs []sensor.Spec
	for i, id := range c.Enabled() {
		rng := c.rng(uint64(i))
		var (
			spec sensor.Spec
			err  error
		)
		switch id {
		case sensor.Temperature:
			t := c.Sensors.Temperature
			spec, err = sensor.NewSpec(id, t.Period.Duration, sensor.NewUniform(t.Min, t.Max, rng))
		case sensor.Motion:
			m := c.Sensors.Motion
			spec, err = sensor.NewSpec(id, m.Period.Duration, sensor.NewBernoulli(m.Probability, rng))
		}
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func (c *Config) rng(stream uint64) *rand.Rand {
	if c.Dashboard.RandomSeed == 0 {
		return nil
	}
	return sensor.NewRand(c.Dashboard.RandomSeed + stream)
}
