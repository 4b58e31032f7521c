// Package store writes sample history to CSV export files and reads them
// back for offline viewing.
package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/luki/iotsim/internal/errors"
	"github.com/luki/iotsim/internal/history"
)

const (
	filePrefix = "iotsim-"
	timeLayout = "2006-01-02T15:04:05.000"
	fileLayout = "20060102-150405"
)

var header = []string{"time", "sensor", "device", "timestamp_ms", "value"}

// Series is the exported history of one sensor.
type Series struct {
	Sensor  string
	Device  string
	Samples []history.Sample
}

// Row is a single line from an export file.
type Row struct {
	Time      time.Time
	Sensor    string
	Device    string
	Timestamp int64
	Value     float64
}

// Write encodes series as CSV with the format:
//
//	time,sensor,device,timestamp_ms,value
//
// Wall-clock times are derived from epoch plus each sample's offset.
func Write(w io.Writer, epoch time.Time, series []Series) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, s := range series {
		for _, smp := range s.Samples {
			cw.Write([]string{
				epoch.Add(time.Duration(smp.Timestamp) * time.Millisecond).Format(timeLayout),
				s.Sensor,
				s.Device,
				strconv.FormatInt(smp.Timestamp, 10),
				strconv.FormatFloat(smp.Value, 'f', -1, 64),
			})
		}
	}
	cw.Flush()
	return cw.Error()
}

// Export writes series to a new timestamped file in dir, creating dir if
// needed, and returns the file path.
func Export(dir string, epoch, now time.Time, series []Series) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.WrapWithCode(err, errors.ErrExport,
			fmt.Sprintf("Can't create export directory %s", dir), "")
	}
	path := filepath.Join(dir, filePrefix+now.Format(fileLayout)+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrExport,
			fmt.Sprintf("Can't create %s", path), "Check that the export directory is writable")
	}
	defer f.Close()

	if err := Write(f, epoch, series); err != nil {
		return "", errors.WrapWithCode(err, errors.ErrExport,
			fmt.Sprintf("Failed writing %s", path), "")
	}
	return path, f.Close()
}

// ListExports returns the export files in dir, newest first.
func ListExports(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for i := len(entries) - 1; i >= 0; i-- {
		name := entries[i].Name()
		if strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, ".csv") {
			files = append(files, filepath.Join(dir, name))
		}
	}
	return files, nil
}

// LoadFile reads all rows from an export file. Malformed rows are skipped.
func LoadFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	var rows []Row
	for i, rec := range records {
		if i == 0 && len(rec) > 0 && rec[0] == "time" {
			continue
		}
		if len(rec) < len(header) {
			continue
		}

		t, err := time.ParseInLocation(timeLayout, rec[0], time.Local)
		if err != nil {
			continue
		}
		ts, err := strconv.ParseInt(rec[3], 10, 64)
		if err != nil {
			continue
		}
		v, err := strconv.ParseFloat(rec[4], 64)
		if err != nil {
			continue
		}

		rows = append(rows, Row{
			Time:      t,
			Sensor:    rec[1],
			Device:    rec[2],
			Timestamp: ts,
			Value:     v,
		})
	}
	return rows, nil
}

// Group collects rows into one series per sensor, in order of first
// appearance, with samples sorted by timestamp.
func Group(rows []Row) []Series {
	index := make(map[string]int)
	var out []Series
	for _, r := range rows {
		i, ok := index[r.Sensor]
		if !ok {
			i = len(out)
			index[r.Sensor] = i
			out = append(out, Series{Sensor: r.Sensor, Device: r.Device})
		}
		out[i].Samples = append(out[i].Samples, history.Sample{Timestamp: r.Timestamp, Value: r.Value})
	}
	for i := range out {
		sort.SliceStable(out[i].Samples, func(a, b int) bool {
			return out[i].Samples[a].Timestamp < out[i].Samples[b].Timestamp
		})
	}
	return out
}
