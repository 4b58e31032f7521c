package history

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferEvictsOldest(t *testing.T) {
	b := NewBuffer("temperature", DefaultCapacity)

	for i := 0; i < 200; i++ {
		b.Append(Sample{Timestamp: int64(i), Value: float64(i)})
		assert.LessOrEqual(t, b.Len(), DefaultCapacity)
	}

	snap := b.Snapshot()
	require.Len(t, snap, DefaultCapacity)
	for i, s := range snap {
		want := int64(200 - DefaultCapacity + i)
		assert.Equal(t, want, s.Timestamp, "index %d", i)
		assert.Equal(t, float64(want), s.Value)
	}
}

func TestBufferSnapshotIsIndependent(t *testing.T) {
	b := NewBuffer("motion", 5)
	b.Append(Sample{Timestamp: 1, Value: 1})
	b.Append(Sample{Timestamp: 2, Value: 0})

	first := b.Snapshot()
	second := b.Snapshot()
	assert.Equal(t, first, second)

	first[0].Value = 42
	assert.Equal(t, 1.0, b.Snapshot()[0].Value)

	b.Append(Sample{Timestamp: 3, Value: 1})
	assert.Len(t, second, 2)
}

func TestBufferClear(t *testing.T) {
	b := NewBuffer("temperature", 3)
	b.Append(Sample{Timestamp: 1, Value: 21})
	b.Clear()

	assert.Equal(t, 0, b.Len())
	assert.Empty(t, b.Snapshot())
	_, ok := b.Latest()
	assert.False(t, ok)

	b.Append(Sample{Timestamp: 2, Value: 22})
	last, ok := b.Latest()
	require.True(t, ok)
	assert.Equal(t, 22.0, last.Value)
}

func TestBufferDefaultCapacity(t *testing.T) {
	assert.Equal(t, DefaultCapacity, NewBuffer("x", 0).Capacity())
	assert.Equal(t, DefaultCapacity, NewBuffer("x", -3).Capacity())
}

func TestBufferConcurrentAccess(t *testing.T) {
	b := NewBuffer("temperature", DefaultCapacity)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			b.Append(Sample{Timestamp: int64(i), Value: float64(i)})
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				snap := b.Snapshot()
				assert.LessOrEqual(t, len(snap), DefaultCapacity)
				for j := 1; j < len(snap); j++ {
					assert.LessOrEqual(t, snap[j-1].Timestamp, snap[j].Timestamp)
				}
			}
		}()
	}
	wg.Wait()
}

func TestSummarize(t *testing.T) {
	st := Summarize([]Sample{{1, 30}, {2, 36}, {3, 33}})
	assert.Equal(t, 3, st.Count)
	assert.Equal(t, 30.0, st.Min)
	assert.Equal(t, 36.0, st.Peak)
	assert.Equal(t, 33.0, st.Avg)
	assert.Equal(t, 33.0, st.Last)

	assert.Equal(t, Stats{}, Summarize(nil))
}

func TestStore(t *testing.T) {
	s := NewStore(4)
	assert.Nil(t, s.Get("motion"))

	b := s.Ensure("motion")
	assert.Same(t, b, s.Ensure("motion"))
	assert.Equal(t, 4, b.Capacity())

	s.Ensure("temperature").Append(Sample{Timestamp: 1, Value: 25})
	b.Append(Sample{Timestamp: 1, Value: 1})
	assert.Equal(t, []string{"motion", "temperature"}, s.IDs())

	s.ClearAll()
	assert.Equal(t, 0, s.Get("temperature").Len())
	assert.Equal(t, 0, s.Get("motion").Len())
	assert.Same(t, b, s.Get("motion"))
}
