package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/eobench/eobench/pkg/probe"
	"github.com/eobench/eobench/pkg/stats"
)

// ErrNoRecords is returned when an aggregation finds nothing parseable at
// all. Individual bad records are skipped with a warning instead.
var ErrNoRecords = errors.New("no parseable records")

var (
	probeHeader = []string{"endpoint", "url", "timestamp", "http_status", "latency_ms", "error"}
	runHeader   = []string{"backend", "scenario", "job_id", "status", "submit_ms", "queue_ms", "run_ms", "total_ms", "error"}
	statsHeader = []string{"group", "count", "success_count", "mean_ms", "median_ms", "p90_ms", "min_ms", "max_ms"}
)

// ResolvePaths expands a list of locations into a flat ordered file list:
// a file stands for itself, a directory for its matching entries in name
// order. The polymorphism is resolved once here so nothing downstream
// branches on path type.
func ResolvePaths(locations []string, exts ...string) ([]string, error) {
	var paths []string
	for _, location := range locations {
		info, err := os.Stat(location)
		if err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", location, err)
		}
		if !info.IsDir() {
			paths = append(paths, location)
			continue
		}

		entries, err := os.ReadDir(location)
		if err != nil {
			return nil, fmt.Errorf("cannot list %s: %w", location, err)
		}
		var names []string
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if len(exts) > 0 && !hasExt(entry.Name(), exts) {
				continue
			}
			names = append(names, entry.Name())
		}
		sort.Strings(names)
		for _, name := range names {
			paths = append(paths, filepath.Join(location, name))
		}
	}
	return paths, nil
}

func hasExt(name string, exts []string) bool {
	for _, ext := range exts {
		if strings.EqualFold(filepath.Ext(name), ext) {
			return true
		}
	}
	return false
}

// DatedFilename builds the default date-stamped output path for a table
func DatedFilename(dir, prefix string) string {
	return filepath.Join(dir, fmt.Sprintf("%s-%s.csv", prefix, time.Now().Format("2006-01-02")))
}

// WriteProbeTable writes probe results as a CSV table. The write is atomic:
// the table appears complete or not at all.
func WriteProbeTable(path string, results []probe.Result) error {
	records := [][]string{probeHeader}
	for _, r := range results {
		status := ""
		if r.HTTPStatus != nil {
			status = strconv.Itoa(*r.HTTPStatus)
		}
		latency := ""
		if r.LatencyMs != nil {
			latency = strconv.FormatFloat(*r.LatencyMs, 'f', 3, 64)
		}
		records = append(records, []string{
			r.Endpoint,
			r.URL,
			r.Timestamp.Format(time.RFC3339),
			status,
			latency,
			r.Error,
		})
	}
	return writeCSV(path, records)
}

// WriteStatsTable writes statistics summaries as a CSV table. NaN latency
// fields (groups with zero successful rows) render as empty cells.
func WriteStatsTable(path string, summaries []stats.Summary) error {
	records := [][]string{statsHeader}
	for _, s := range summaries {
		records = append(records, []string{
			s.Group,
			strconv.Itoa(s.Count),
			strconv.Itoa(s.SuccessCount),
			formatMs(s.MeanMs),
			formatMs(s.MedianMs),
			formatMs(s.P90Ms),
			formatMs(s.MinMs),
			formatMs(s.MaxMs),
		})
	}
	return writeCSV(path, records)
}

func formatMs(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// writeCSV writes records to path via a temp file and rename
func writeCSV(path string, records [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tempPath := path + ".tmp"
	f, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create table file: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		f.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write table: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close table file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename table file: %w", err)
	}
	return nil
}
