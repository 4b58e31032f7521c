// Package eventlog keeps the human-readable activity stream shown to the
// operator: sensor readings and lifecycle transitions, each stamped with the
// wall-clock time it was recorded.
package eventlog

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultLimit is the number of entries kept before the oldest are dropped.
const DefaultLimit = 500

// Entry is one recorded event.
type Entry struct {
	Seq     uint64
	Time    time.Time
	Message string
}

// String formats the entry as "[HH:MM:SS] message".
func (e Entry) String() string {
	return fmt.Sprintf("[%s] %s", e.Time.Format("15:04:05"), e.Message)
}

// Sink receives formatted events.
type Sink interface {
	Printf(format string, args ...any)
}

// Log is a bounded, concurrency-safe event stream.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	limit   int
	seq     uint64
	now     func() time.Time
	mirror  *slog.Logger
}

// Option configures a Log.
type Option func(*Log)

// WithClock overrides the wall clock used to stamp entries.
func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// WithMirror copies every entry to a structured logger at debug level.
func WithMirror(logger *slog.Logger) Option {
	return func(l *Log) { l.mirror = logger }
}

// New creates a log keeping at most limit entries.
func New(limit int, opts ...Option) *Log {
	if limit <= 0 {
		limit = DefaultLimit
	}
	l := &Log{
		limit: limit,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Printf records a formatted event.
func (l *Log) Printf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)

	l.mu.Lock()
	l.seq++
	e := Entry{Seq: l.seq, Time: l.now(), Message: msg}
	if len(l.entries) >= l.limit {
		copy(l.entries, l.entries[1:])
		l.entries[len(l.entries)-1] = e
	} else {
		l.entries = append(l.entries, e)
	}
	l.mu.Unlock()

	if l.mirror != nil {
		l.mirror.Debug("event", "msg", msg)
	}
}

// Entries returns a copy of the retained entries, oldest first.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Since returns the retained entries with a sequence number above seq.
func (l *Log) Since(seq uint64) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Entry
	for _, e := range l.entries {
		if e.Seq > seq {
			out = append(out, e)
		}
	}
	return out
}

// Lines returns the retained entries formatted with String.
func (l *Log) Lines() []string {
	entries := l.Entries()
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.String()
	}
	return lines
}

// Clear drops all entries. Sequence numbers keep increasing.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = l.entries[:0]
}

// Len returns the number of retained entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
