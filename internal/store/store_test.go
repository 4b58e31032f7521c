package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luki/iotsim/internal/errors"
	"github.com/luki/iotsim/internal/history"
)

func testSeries() []Series {
	return []Series{
		{Sensor: "temperature", Device: "TempSensor-1", Samples: []history.Sample{{Timestamp: 0, Value: 23.5}, {Timestamp: 2000, Value: 24.125}}},
		{Sensor: "motion", Device: "MotionSensor-1", Samples: []history.Sample{{Timestamp: 10, Value: 1}}},
	}
}

func TestExportRoundTrip(t *testing.T) {
	dir := t.TempDir()
	epoch := time.Date(2026, 2, 21, 14, 30, 0, 0, time.Local)
	now := epoch.Add(time.Minute)

	path, err := Export(dir, epoch, now, testSeries())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "iotsim-20260221-143100.csv"), path)

	rows, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.True(t, rows[1].Time.Equal(epoch.Add(2*time.Second)))
	assert.Equal(t, "TempSensor-1", rows[1].Device)
	assert.Equal(t, int64(2000), rows[1].Timestamp)
	assert.Equal(t, 24.125, rows[1].Value)

	assert.Equal(t, testSeries(), Group(rows))
}

func TestWriteHeader(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, Write(&sb, time.Now(), nil))
	assert.Equal(t, "time,sensor,device,timestamp_ms,value\n", sb.String())
}

func TestLoadFileSkipsMalformedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "iotsim-x.csv")
	content := "time,sensor,device,timestamp_ms,value\n" +
		"2026-02-21T14:30:00.000,temperature,TempSensor-1,0,22\n" +
		"garbage,temperature,TempSensor-1,1,22\n" +
		"2026-02-21T14:30:01.000,temperature,TempSensor-1,1000,hot\n" +
		"2026-02-21T14:30:02.000,motion\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	rows, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 22.0, rows[0].Value)
}

func TestGroupSortsByTimestamp(t *testing.T) {
	series := Group([]Row{
		{Sensor: "motion", Timestamp: 30, Value: 1},
		{Sensor: "motion", Timestamp: 10, Value: 0},
	})
	require.Len(t, series, 1)
	assert.Equal(t, []history.Sample{{Timestamp: 10, Value: 0}, {Timestamp: 30, Value: 1}}, series[0].Samples)
}

func TestListExports(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"iotsim-20260101-000000.csv", "iotsim-20260102-000000.csv", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	files, err := ListExports(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "iotsim-20260102-000000.csv"),
		filepath.Join(dir, "iotsim-20260101-000000.csv"),
	}, files)
}

func TestExportFailure(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	_, err := Export(filepath.Join(file, "sub"), time.Now(), time.Now(), testSeries())
	assert.True(t, errors.IsCode(err, errors.ErrExport))
}
