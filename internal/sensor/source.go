package sensor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/luki/iotsim/internal/errors"
	"github.com/luki/iotsim/internal/eventlog"
	"github.com/luki/iotsim/internal/history"
)

// Clock returns monotonic milliseconds.
type Clock func() int64

// MonotonicClock returns a Clock counting milliseconds since epoch using the
// monotonic reading carried by epoch.
func MonotonicClock(epoch time.Time) Clock {
	return func() int64 { return time.Since(epoch).Milliseconds() }
}

// Observer is notified after every appended sample. Observers run on the
// source's goroutine and must not block.
type Observer func(spec Spec, s history.Sample)

// Source samples one sensor at a fixed period into its buffer.
type Source struct {
	spec      Spec
	buf       *history.Buffer
	clock     Clock
	events    eventlog.Sink
	logger    *slog.Logger
	observers []Observer

	mu     sync.Mutex // guards cancel/done; held across Stop's wait
	cancel context.CancelFunc
	done   chan struct{}
	prev   float64

	errMu sync.Mutex
	err   error
}

// SourceOption configures a Source.
type SourceOption func(*Source)

// WithEvents sets the sink receiving one line per reading.
func WithEvents(sink eventlog.Sink) SourceOption {
	return func(s *Source) { s.events = sink }
}

// WithLogger sets the diagnostics logger.
func WithLogger(logger *slog.Logger) SourceOption {
	return func(s *Source) { s.logger = logger }
}

// WithObserver adds an observer called after each append.
func WithObserver(o Observer) SourceOption {
	return func(s *Source) { s.observers = append(s.observers, o) }
}

type discardSink struct{}

func (discardSink) Printf(string, ...any) {}

// NewSource binds spec to buf. Timestamps are taken from clock.
func NewSource(spec Spec, buf *history.Buffer, clock Clock, opts ...SourceOption) *Source {
	s := &Source{
		spec:   spec,
		buf:    buf,
		clock:  clock,
		events: discardSink{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Spec returns the sensor this source samples.
func (s *Source) Spec() Spec { return s.spec }

// Start schedules the recurring tick, the first one immediately. It returns
// false if the source was already started.
func (s *Source) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return false
	}

	if last, ok := s.buf.Latest(); ok {
		s.prev = last.Value
	}
	s.setErr(nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	go s.run(ctx, done)

	s.logger.Debug("source started", "sensor", s.spec.ID, "period", s.spec.Period)
	return true
}

// Stop cancels the recurring tick and waits for an in-flight tick to finish.
// No append happens after Stop returns. It returns false if the source was
// not started.
func (s *Source) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return false
	}

	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil

	s.logger.Debug("source stopped", "sensor", s.spec.ID)
	return true
}

// Running reports whether the tick goroutine is alive.
func (s *Source) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// Err returns the failure that ended the source's pipeline, if any.
func (s *Source) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *Source) setErr(err error) {
	s.errMu.Lock()
	s.err = err
	s.errMu.Unlock()
}

func (s *Source) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.spec.Period)
	defer ticker.Stop()

	if !s.tick() {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Both channels may be ready at once; cancellation wins.
			if ctx.Err() != nil {
				return
			}
			if !s.tick() {
				return
			}
		}
	}
}

// tick produces and appends one sample. A panic ends this sensor's
// pipeline and is reported through Err.
func (s *Source) tick() (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			err := errors.WrapWithCode(fmt.Errorf("panic: %v", rec), errors.ErrSchedule,
				fmt.Sprintf("%s stopped sampling", s.spec.Device),
				"Stop and start the dashboard to resume this sensor")
			s.setErr(err)
			s.logger.Error("sensor tick failed", "sensor", s.spec.ID, "err", rec)
			s.events.Printf("%s → sampling failed: %v", s.spec.Device, rec)
			ok = false
		}
	}()

	v := s.spec.Generator.Next(s.prev)
	s.prev = v

	sample := history.Sample{Timestamp: s.clock(), Value: v}
	s.buf.Append(sample)
	s.events.Printf("%s → %s", s.spec.Device, s.spec.Format(v))

	for _, o := range s.observers {
		o(s.spec, sample)
	}
	return true
}
