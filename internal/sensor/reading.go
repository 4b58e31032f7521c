// Package sensor defines the virtual sensor kinds, their value generators
// and the periodic sources that feed sample buffers.
package sensor

import (
	"fmt"
	"strings"
	"time"

	"github.com/luki/iotsim/internal/errors"
)

// Supported sensor ids.
const (
	Temperature = "temperature"
	Motion      = "motion"
)

// Signal tells renderers how a sensor's values should be drawn.
type Signal int

const (
	// Continuous values are drawn as a line with a filled area.
	Continuous Signal = iota
	// Binary values are drawn as a two-level step function.
	Binary
)

func (s Signal) String() string {
	switch s {
	case Continuous:
		return "continuous"
	case Binary:
		return "binary"
	default:
		return fmt.Sprintf("signal(%d)", int(s))
	}
}

// Spec is the immutable per-session description of one enabled sensor.
type Spec struct {
	ID        string // e.g. "temperature"
	Device    string // e.g. "TempSensor-1"
	Label     string // e.g. "Temperature"
	Unit      string // e.g. "°C", empty for binary signals
	Signal    Signal
	Period    time.Duration
	Generator Generator
}

// NewSpec builds the spec for a known sensor id.
func NewSpec(id string, period time.Duration, gen Generator) (Spec, error) {
	entry, ok := lookup(id)
	if !ok {
		return Spec{}, errors.Config(
			fmt.Sprintf("Unknown sensor %q", id),
			"Supported sensors: "+strings.Join(Known(), ", "))
	}
	if period <= 0 {
		return Spec{}, errors.Config(
			fmt.Sprintf("Sensor %q has a non-positive sampling period", id),
			"Set a period such as \"2s\" or \"1500ms\"")
	}
	if gen == nil {
		return Spec{}, errors.Config(
			fmt.Sprintf("Sensor %q has no value generator", id), "")
	}
	return Spec{
		ID:        entry.id,
		Device:    entry.device,
		Label:     entry.label,
		Unit:      entry.unit,
		Signal:    entry.signal,
		Period:    period,
		Generator: gen,
	}, nil
}

// Format renders a value for the log stream and the summary cards.
func (s Spec) Format(v float64) string {
	if s.Signal == Binary {
		if v >= 0.5 {
			return "DETECTED"
		}
		return "NONE"
	}
	if s.Unit == "" {
		return fmt.Sprintf("%.2f", v)
	}
	return fmt.Sprintf("%.2f %s", v, s.Unit)
}
