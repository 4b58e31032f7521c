// Package dashboard owns one simulator session: the sample buffers, one
// source and renderer per enabled sensor, the device registry and the event
// log, behind a Stopped/Running state machine.
package dashboard

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"path/filepath"
	"sync"
	"time"

	"github.com/luki/iotsim/internal/chart"
	"github.com/luki/iotsim/internal/config"
	"github.com/luki/iotsim/internal/eventlog"
	"github.com/luki/iotsim/internal/history"
	"github.com/luki/iotsim/internal/sensor"
	"github.com/luki/iotsim/internal/store"
)

// State is the controller lifecycle state.
type State int

const (
	Stopped State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "stopped"
}

// Option configures a Controller.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	clock      sensor.Clock
	now        func() time.Time
	observers  []sensor.Observer
	generators map[string]sensor.Generator
}

// WithLogger sets the diagnostics logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithClock replaces the monotonic sample clock.
func WithClock(clock sensor.Clock) Option {
	return func(o *options) { o.clock = clock }
}

// WithWallClock sets the clock used for log timestamps and the epoch.
func WithWallClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithObserver adds an observer notified after every appended sample.
func WithObserver(obs sensor.Observer) Option {
	return func(o *options) { o.observers = append(o.observers, obs) }
}

// WithGenerator replaces the generator of one sensor.
func WithGenerator(id string, gen sensor.Generator) Option {
	return func(o *options) {
		if o.generators == nil {
			o.generators = make(map[string]sensor.Generator)
		}
		o.generators[id] = gen
	}
}

type pipeline struct {
	spec     sensor.Spec
	buf      *history.Buffer
	source   *sensor.Source
	renderer chart.Renderer
}

// Controller is one dashboard session. Build it with New.
type Controller struct {
	pipelines   []*pipeline
	store       *history.Store
	registry    Registry
	log         *eventlog.Log
	logger      *slog.Logger
	epoch       time.Time
	now         func() time.Time
	clearOnStop bool

	mu    sync.Mutex // serialises Start/Stop
	state State
}

// New validates cfg and builds every pipeline component. A configuration
// without an enabled sensor yields a CONFIG error and nothing is built.
func New(cfg *config.Config, opts ...Option) (*Controller, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	specs, err := cfg.Specs()
	if err != nil {
		return nil, err
	}

	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	epoch := o.now()
	if o.clock == nil {
		o.clock = sensor.MonotonicClock(epoch)
	}

	c := &Controller{
		store:       history.NewStore(cfg.Dashboard.HistorySize),
		log:         eventlog.New(cfg.Dashboard.LogLines, eventlog.WithClock(o.now), eventlog.WithMirror(o.logger)),
		logger:      o.logger,
		epoch:       epoch,
		now:         o.now,
		clearOnStop: cfg.Dashboard.ClearOnStop,
	}

	seedRng := seedRand(cfg.Dashboard.RandomSeed)
	for _, spec := range specs {
		if gen, ok := o.generators[spec.ID]; ok {
			spec.Generator = gen
		}
		renderer, err := chart.For(spec)
		if err != nil {
			return nil, err
		}

		srcOpts := []sensor.SourceOption{sensor.WithEvents(c.log), sensor.WithLogger(o.logger)}
		for _, obs := range o.observers {
			srcOpts = append(srcOpts, sensor.WithObserver(obs))
		}

		buf := c.store.Ensure(spec.ID)
		if cfg.Dashboard.Seed {
			v := sensor.SeedGenerator(spec.ID, seedRng).Next(0)
			buf.Append(history.Sample{Timestamp: o.clock(), Value: v})
		}

		c.pipelines = append(c.pipelines, &pipeline{
			spec:     spec,
			buf:      buf,
			source:   sensor.NewSource(spec, buf, o.clock, srcOpts...),
			renderer: renderer,
		})
	}

	c.log.Printf("Dashboard ready. Press START to begin.")
	c.logger.Info("dashboard built", "sensors", cfg.Enabled(), "seed", cfg.Dashboard.Seed)
	return c, nil
}

// Start registers every enabled sensor's device and starts its source. It
// returns false, doing nothing, when already running.
func (c *Controller) Start() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Running {
		return false
	}

	for _, p := range c.pipelines {
		c.registry.Add(p.spec.Device)
		c.store.Ensure(p.spec.ID)
		p.source.Start()
	}
	c.state = Running
	c.log.Printf("Server started.")
	return true
}

// Stop halts every source, waiting for in-flight ticks, and clears the
// device registry. Buffers keep their history unless clear_on_stop is set.
// It returns false, doing nothing, when already stopped.
func (c *Controller) Stop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Stopped {
		return false
	}

	for _, p := range c.pipelines {
		p.source.Stop()
	}
	c.registry.Clear()
	if c.clearOnStop {
		c.store.ClearAll()
	}
	c.state = Stopped
	c.log.Printf("Server stopped.")
	return true
}

// Status returns the lifecycle state.
func (c *Controller) Status() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Close stops the controller if it is running.
func (c *Controller) Close() {
	c.Stop()
}

// Devices returns the connected device names in registration order.
func (c *Controller) Devices() []string { return c.registry.Names() }

// DeviceCount returns the number of connected devices.
func (c *Controller) DeviceCount() int { return c.registry.Len() }

// Sensors returns the enabled sensor specs in display order.
func (c *Controller) Sensors() []sensor.Spec {
	specs := make([]sensor.Spec, len(c.pipelines))
	for i, p := range c.pipelines {
		specs[i] = p.spec
	}
	return specs
}

func (c *Controller) pipeline(id string) *pipeline {
	for _, p := range c.pipelines {
		if p.spec.ID == id {
			return p
		}
	}
	return nil
}

// Latest returns the most recent sample of a sensor.
func (c *Controller) Latest(id string) (history.Sample, bool) {
	p := c.pipeline(id)
	if p == nil {
		return history.Sample{}, false
	}
	return p.buf.Latest()
}

// Snapshot returns a copy of a sensor's buffered samples.
func (c *Controller) Snapshot(id string) []history.Sample {
	p := c.pipeline(id)
	if p == nil {
		return nil
	}
	return p.buf.Snapshot()
}

// Stats summarises a sensor's buffered samples.
func (c *Controller) Stats(id string) history.Stats {
	return history.Summarize(c.Snapshot(id))
}

// Frame renders a fresh snapshot of a sensor into region.
func (c *Controller) Frame(id string, region chart.Region) (chart.Frame, bool) {
	p := c.pipeline(id)
	if p == nil {
		return chart.Frame{}, false
	}
	return p.renderer.Render(p.buf.Snapshot(), region), true
}

// Err returns the failure that ended a sensor's pipeline, if any.
func (c *Controller) Err(id string) error {
	p := c.pipeline(id)
	if p == nil {
		return nil
	}
	return p.source.Err()
}

// Log returns the event log.
func (c *Controller) Log() *eventlog.Log { return c.log }

// ClearLog empties the event log.
func (c *Controller) ClearLog() { c.log.Clear() }

// Epoch returns the wall-clock time sample timestamps are relative to.
func (c *Controller) Epoch() time.Time { return c.epoch }

// Redraw calls fn immediately and then every interval, regardless of
// state, until ctx is done.
func (c *Controller) Redraw(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	fn()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

// Series returns the buffered history of every sensor for export.
func (c *Controller) Series() []store.Series {
	out := make([]store.Series, 0, len(c.pipelines))
	for _, p := range c.pipelines {
		out = append(out, store.Series{Sensor: p.spec.ID, Device: p.spec.Device, Samples: p.buf.Snapshot()})
	}
	return out
}

// Export writes the buffered history to a CSV file and one PNG chart of
// width x height per sensor into dir. It returns the written paths.
func (c *Controller) Export(dir string, width, height int) ([]string, error) {
	now := c.now()
	csvPath, err := store.Export(dir, c.epoch, now, c.Series())
	if err != nil {
		return nil, err
	}
	paths := []string{csvPath}

	for _, p := range c.pipelines {
		region := chart.ImageRegion(p.spec.Signal, width, height)
		f := p.renderer.Render(p.buf.Snapshot(), region)
		path := filepath.Join(dir, fmt.Sprintf("iotsim-%s-%s.png", p.spec.ID, now.Format("20060102-150405")))
		if err := chart.SavePNG(f, path); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	c.log.Printf("Exported %d files to %s", len(paths), dir)
	return paths, nil
}

func seedRand(seed uint64) *rand.Rand {
	if seed == 0 {
		return nil
	}
	return sensor.NewRand(seed ^ 0x5eed)
}
