package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/luki/iotsim/internal/config"
	"github.com/luki/iotsim/internal/dashboard"
	"github.com/luki/iotsim/internal/errors"
	"github.com/luki/iotsim/internal/publish"
)

// session is a built controller plus the optional MQTT mirror feeding off it.
type session struct {
	ctrl      *dashboard.Controller
	publisher *publish.Publisher
	logger    *slog.Logger
}

func newSession(cfg *config.Config, logger *slog.Logger) (*session, error) {
	s := &session{logger: logger}
	opts := []dashboard.Option{dashboard.WithLogger(logger)}

	if cfg.MQTT.Broker != "" {
		pub, err := publish.Connect(cfg.MQTT, logger)
		if err != nil {
			return nil, err
		}
		s.publisher = pub
		opts = append(opts, dashboard.WithObserver(pub.Observe))
	}

	ctrl, err := dashboard.New(cfg, opts...)
	if err != nil {
		s.closePublisher()
		return nil, err
	}
	s.ctrl = ctrl
	return s, nil
}

// Close stops the controller, then drains the publisher.
func (s *session) Close() {
	s.ctrl.Close()
	s.closePublisher()
}

func (s *session) closePublisher() {
	if s.publisher == nil {
		return
	}
	s.publisher.Close()
	published, dropped, failed := s.publisher.Stats()
	s.logger.Info("mqtt mirror closed", "published", published, "dropped", dropped, "failed", failed)
}

// logStream prints new event log entries to w. It is safe for use by one
// goroutine at a time.
type logStream struct {
	mu  sync.Mutex
	seq uint64
	w   io.Writer
}

func (l *logStream) flush(ctrl *dashboard.Controller) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range ctrl.Log().Since(l.seq) {
		fmt.Fprintln(l.w, e.String())
		l.seq = e.Seq
	}
}

// watchFailures returns a SCHEDULE error once every sensor pipeline has
// failed, or nil when ctx ends first.
func watchFailures(ctx context.Context, ctrl *dashboard.Controller, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		var last error
		failed := 0
		for _, spec := range ctrl.Sensors() {
			if err := ctrl.Err(spec.ID); err != nil {
				failed++
				last = err
			}
		}
		if failed > 0 && failed == len(ctrl.Sensors()) {
			return errors.WrapWithCode(last, errors.ErrSchedule,
				"Every sensor pipeline has stopped", "Check the log for the failing sensor")
		}
	}
}
