package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luki/iotsim/internal/errors"
	"github.com/luki/iotsim/internal/history"
	"github.com/luki/iotsim/internal/store"
)

// isolate keeps the user's config file and IOTSIM_* variables out of tests.
func isolate(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	for _, kv := range os.Environ() {
		if name, _, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(name, envPrefix+"_") {
			t.Setenv(name, "")
			os.Unsetenv(name)
		}
	}
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestVersion(t *testing.T) {
	SetVersionInfo("1.2.3", "abc123", "2026-01-01")
	t.Cleanup(func() { SetVersionInfo("dev", "none", "unknown") })

	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "iotsim v1.2.3")
	assert.Contains(t, out, "commit: abc123")

	out, _, err = execute(t, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, "1.2.3\n", out)
}

func TestFormatVersion(t *testing.T) {
	assert.Equal(t, "dev", formatVersion("dev"))
	assert.Equal(t, "v0.3.0", formatVersion("0.3.0"))
	assert.Equal(t, "v0.3.0", formatVersion("v0.3.0"))
}

func TestRunHeadless(t *testing.T) {
	isolate(t)

	out, _, err := execute(t, "run", "--headless", "--duration", "300ms",
		"--sensors", "motion", "--random-seed", "1")
	require.NoError(t, err)

	assert.Contains(t, out, "Dashboard ready. Press START to begin.")
	assert.Contains(t, out, "Server started.")
	assert.Contains(t, out, "MotionSensor-1 → ")
	assert.NotContains(t, out, "TempSensor-1")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "Server stopped."))
}

func TestRunRejectsUnknownSensor(t *testing.T) {
	isolate(t)

	_, _, err := execute(t, "run", "--headless", "--sensors", "humidity")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestRunRejectsBadHistory(t *testing.T) {
	isolate(t)

	_, _, err := execute(t, "run", "--headless", "--history=-1")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestSensorsFromEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("IOTSIM_SENSORS", "temperature")

	out, _, err := execute(t, "run", "--headless", "--duration", "100ms", "--random-seed", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "TempSensor-1 → ")
	assert.NotContains(t, out, "MotionSensor-1")
}

func TestSnapshotThenView(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	out, _, err := execute(t, "snapshot", "--duration", "200ms", "--export-dir", dir,
		"--random-seed", "7", "--quiet", "--width", "320", "--height", "240")
	require.NoError(t, err)

	paths := strings.Fields(out)
	require.Len(t, paths, 3)
	assert.True(t, strings.HasSuffix(paths[0], ".csv"))
	for _, p := range paths {
		_, err := os.Stat(p)
		assert.NoError(t, err, p)
	}

	out, _, err = execute(t, "view", dir)
	require.NoError(t, err)
	assert.Contains(t, out, paths[0])
	assert.Contains(t, out, "Temperature · TempSensor-1")
	assert.Contains(t, out, "Motion · MotionSensor-1")
	assert.Contains(t, out, "Latest:")
}

func TestViewCommand(t *testing.T) {
	dir := t.TempDir()
	epoch := time.Date(2026, 2, 21, 14, 30, 0, 0, time.Local)
	series := []store.Series{{
		Sensor: "temperature",
		Device: "TempSensor-1",
		Samples: []history.Sample{
			{Timestamp: 0, Value: 21.5},
			{Timestamp: 2000, Value: 27.25},
		},
	}}
	path, err := store.Export(dir, epoch, epoch.Add(time.Minute), series)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, viewCommand(&out, path, 80, 24))
	assert.Contains(t, out.String(), "Latest: 27.25 °C")
	assert.Contains(t, out.String(), "min 21.50  avg 24.38  peak 27.25")
}

func TestViewWithoutExports(t *testing.T) {
	var out bytes.Buffer
	err := viewCommand(&out, t.TempDir(), 80, 24)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrExport))

	err = viewCommand(&out, filepath.Join(t.TempDir(), "missing.csv"), 80, 24)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrExport))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"temperature", "motion"}, splitList([]string{"temperature, motion"}))
	assert.Equal(t, []string{"a", "b", "c"}, splitList([]string{"a", " b,,c "}))
	assert.Nil(t, splitList(nil))
}

func TestValidateSelection(t *testing.T) {
	assert.Error(t, validateSelection(nil))
	assert.NoError(t, validateSelection([]string{"motion"}))
}

func TestSensorOptions(t *testing.T) {
	opts := sensorOptions([]string{"motion"})
	require.Len(t, opts, 2)
	assert.Equal(t, "temperature", opts[0].Value)
	assert.Equal(t, "Motion (MotionSensor-1)", opts[1].Key)
}
