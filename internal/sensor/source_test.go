package sensor

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/luki/iotsim/internal/errors"
	"github.com/luki/iotsim/internal/eventlog"
	"github.com/luki/iotsim/internal/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterClock() Clock {
	var n atomic.Int64
	return func() int64 { return n.Add(1) }
}

func newTestSource(t *testing.T, period time.Duration, gen Generator, opts ...SourceOption) (*Source, *history.Buffer) {
	t.Helper()
	spec, err := NewSpec(Temperature, period, gen)
	require.NoError(t, err)
	buf := history.NewBuffer(Temperature, history.DefaultCapacity)
	src := NewSource(spec, buf, counterClock(), opts...)
	t.Cleanup(func() { src.Stop() })
	return src, buf
}

func TestSourceFirstTickIsImmediate(t *testing.T) {
	src, buf := newTestSource(t, time.Hour, NewUniform(20, 30, NewRand(1)))

	require.True(t, src.Start())
	assert.Eventually(t, func() bool { return buf.Len() == 1 }, time.Second, time.Millisecond)
}

func TestSourceStopPreventsFurtherAppends(t *testing.T) {
	src, buf := newTestSource(t, 2*time.Millisecond, NewUniform(20, 30, NewRand(1)))

	require.True(t, src.Start())
	assert.Eventually(t, func() bool { return buf.Len() >= 3 }, time.Second, time.Millisecond)

	require.True(t, src.Stop())
	n := buf.Len()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, n, buf.Len())
	assert.False(t, src.Running())
}

func TestSourceStopWithoutStart(t *testing.T) {
	src, _ := newTestSource(t, time.Millisecond, NewUniform(20, 30, nil))
	assert.False(t, src.Stop())
	assert.False(t, src.Running())
}

func TestSourceStartTwiceKeepsSingleProducer(t *testing.T) {
	var inflight, overlaps atomic.Int32
	gen := GeneratorFunc(func(float64) float64 {
		if inflight.Add(1) > 1 {
			overlaps.Add(1)
		}
		time.Sleep(100 * time.Microsecond)
		inflight.Add(-1)
		return 25
	})
	src, buf := newTestSource(t, time.Millisecond, gen)

	assert.True(t, src.Start())
	assert.False(t, src.Start())
	assert.Eventually(t, func() bool { return buf.Len() >= 10 }, time.Second, time.Millisecond)
	src.Stop()

	assert.Zero(t, overlaps.Load())
	snap := buf.Snapshot()
	for i := 1; i < len(snap); i++ {
		assert.Less(t, snap[i-1].Timestamp, snap[i].Timestamp)
	}
}

func TestSourceRestartAfterStop(t *testing.T) {
	src, buf := newTestSource(t, time.Hour, NewUniform(20, 30, nil))

	require.True(t, src.Start())
	assert.Eventually(t, func() bool { return buf.Len() == 1 }, time.Second, time.Millisecond)
	require.True(t, src.Stop())
	require.True(t, src.Start())
	assert.Eventually(t, func() bool { return buf.Len() == 2 }, time.Second, time.Millisecond)
}

func TestSourceLogsAndNotifies(t *testing.T) {
	log := eventlog.New(10)
	var mu sync.Mutex
	var seen []history.Sample
	obs := func(spec Spec, s history.Sample) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, Temperature, spec.ID)
		seen = append(seen, s)
	}
	src, _ := newTestSource(t, time.Hour, GeneratorFunc(func(float64) float64 { return 23.5 }),
		WithEvents(log), WithObserver(obs))

	src.Start()
	assert.Eventually(t, func() bool { return log.Len() == 1 }, time.Second, time.Millisecond)
	src.Stop()

	assert.Equal(t, "TempSensor-1 → 23.50 °C", log.Entries()[0].Message)
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 1)
	assert.Equal(t, 23.5, seen[0].Value)
}

func TestSourcePassesPreviousValue(t *testing.T) {
	var prevs []float64
	gen := GeneratorFunc(func(prev float64) float64 {
		prevs = append(prevs, prev)
		return prev + 1
	})
	src, buf := newTestSource(t, time.Millisecond, gen)
	buf.Append(history.Sample{Timestamp: 0, Value: 10})

	src.Start()
	assert.Eventually(t, func() bool { return buf.Len() >= 4 }, time.Second, time.Millisecond)
	src.Stop()

	require.GreaterOrEqual(t, len(prevs), 3)
	assert.Equal(t, []float64{10, 11, 12}, prevs[:3])
}

func TestSourcePanicEndsPipeline(t *testing.T) {
	log := eventlog.New(10)
	src, buf := newTestSource(t, time.Millisecond, GeneratorFunc(func(float64) float64 {
		panic("generator exhausted")
	}), WithEvents(log))

	src.Start()
	assert.Eventually(t, func() bool { return !src.Running() }, time.Second, time.Millisecond)

	err := src.Err()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrSchedule))
	assert.Equal(t, 0, buf.Len())
	assert.Contains(t, log.Entries()[0].Message, "sampling failed")
	assert.True(t, src.Stop())
}
