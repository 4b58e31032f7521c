// Package history provides bounded, thread-safe sample buffers with
// per-sensor min/peak/avg statistics.
package history

import (
	"math"
	"sort"
	"sync"
)

// DefaultCapacity is the number of samples retained per sensor.
const DefaultCapacity = 90

// Sample is a single telemetry reading. Timestamp is in monotonic
// milliseconds since the owning dashboard's epoch.
type Sample struct {
	Timestamp int64
	Value     float64
}

// Buffer stores the most recent samples for one sensor. Appends evict the
// oldest sample once the buffer is full.
type Buffer struct {
	mu       sync.Mutex
	id       string
	samples  []Sample
	capacity int
}

// NewBuffer creates a new history buffer with the given capacity.
func NewBuffer(id string, capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		id:       id,
		samples:  make([]Sample, 0, capacity),
		capacity: capacity,
	}
}

// ID returns the sensor id this buffer belongs to.
func (b *Buffer) ID() string { return b.id }

// Capacity returns the maximum number of retained samples.
func (b *Buffer) Capacity() int { return b.capacity }

// Append adds a sample, evicting the oldest one if the buffer is full.
func (b *Buffer) Append(s Sample) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.samples) >= b.capacity {
		copy(b.samples, b.samples[1:])
		b.samples[len(b.samples)-1] = s
		return
	}
	b.samples = append(b.samples, s)
}

// Snapshot returns an independent copy of the buffered samples, oldest first.
func (b *Buffer) Snapshot() []Sample {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Sample, len(b.samples))
	copy(out, b.samples)
	return out
}

// Clear drops every buffered sample.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.samples = b.samples[:0]
}

// Len returns the number of buffered samples.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.samples)
}

// Latest returns the most recent sample, if any.
func (b *Buffer) Latest() (Sample, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.samples) == 0 {
		return Sample{}, false
	}
	return b.samples[len(b.samples)-1], true
}

// Stats summarises a snapshot.
type Stats struct {
	Count int
	Min   float64
	Peak  float64
	Avg   float64
	Last  float64
}

// Summarize computes min/peak/avg over samples. An empty slice yields a
// zero Stats.
func Summarize(samples []Sample) Stats {
	if len(samples) == 0 {
		return Stats{}
	}
	st := Stats{
		Count: len(samples),
		Min:   math.MaxFloat64,
		Peak:  -math.MaxFloat64,
		Last:  samples[len(samples)-1].Value,
	}
	sum := 0.0
	for _, s := range samples {
		if s.Value < st.Min {
			st.Min = s.Value
		}
		if s.Value > st.Peak {
			st.Peak = s.Value
		}
		sum += s.Value
	}
	st.Avg = sum / float64(len(samples))
	return st
}

// Store manages one buffer per sensor.
type Store struct {
	mu       sync.RWMutex
	data     map[string]*Buffer
	capacity int
}

// NewStore creates a new store with the given per-sensor capacity.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		data:     make(map[string]*Buffer),
		capacity: capacity,
	}
}

// Ensure returns the buffer for id, creating it if needed.
func (s *Store) Ensure(id string) *Buffer {
	s.mu.RLock()
	b, ok := s.data[id]
	s.mu.RUnlock()
	if ok {
		return b
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.data[id]; ok {
		return b
	}
	b = NewBuffer(id, s.capacity)
	s.data[id] = b
	return b
}

// Get returns the buffer for a sensor id, or nil.
func (s *Store) Get(id string) *Buffer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data[id]
}

// IDs returns the known sensor ids, sorted.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ClearAll empties every buffer. Buffers themselves are kept.
func (s *Store) ClearAll() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.data {
		b.Clear()
	}
}
