package report

import (
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eobench/eobench/pkg/probe"
	"github.com/eobench/eobench/pkg/scenario"
	"github.com/eobench/eobench/pkg/stats"
)

func quietLog() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func terminalExecution(backend, name string, status scenario.Status) *scenario.JobExecution {
	exec := &scenario.JobExecution{
		RunID:       "0123456789abcdef",
		BackendName: backend,
		BackendURL:  "https://" + backend,
		Scenario:    name,
		JobID:       "j-1",
		Status:      status,
		StartedAt:   time.Now().Add(-time.Minute),
		FinishedAt:  time.Now(),
		PhaseMs: map[string]int64{
			scenario.PhaseSubmit:  120,
			scenario.PhaseQueue:   3400,
			scenario.PhaseRunning: 56000,
			scenario.PhaseTotal:   59520,
		},
	}
	if status == scenario.StatusCompleted {
		exec.ResultLocation = "https://" + backend + "/results/j-1"
	} else {
		exec.Error = "backend reported job failure"
	}
	return exec
}

func TestResolvePaths(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "records")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"b.json", "a.json", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(sub, name), []byte("{}"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	single := filepath.Join(dir, "one.json")
	if err := os.WriteFile(single, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	paths, err := ResolvePaths([]string{single, sub}, ".json")
	if err != nil {
		t.Fatalf("ResolvePaths failed: %v", err)
	}

	want := []string{single, filepath.Join(sub, "a.json"), filepath.Join(sub, "b.json")}
	if len(paths) != len(want) {
		t.Fatalf("len(paths) = %d, want %d: %v", len(paths), len(want), paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("paths[%d] = %s, want %s", i, paths[i], want[i])
		}
	}
}

func TestResolvePaths_Missing(t *testing.T) {
	if _, err := ResolvePaths([]string{filepath.Join(t.TempDir(), "nope")}); err == nil {
		t.Error("ResolvePaths should fail for a missing location")
	}
}

func TestProbeTable_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "probes.csv")

	ok, fail := 200, 503
	okLatency, slowLatency := 123.456, 2345.0
	results := []probe.Result{
		{Endpoint: "vito", URL: "https://a", Timestamp: time.Now(), HTTPStatus: &ok, LatencyMs: &okLatency},
		{Endpoint: "vito", URL: "https://a", Timestamp: time.Now(), HTTPStatus: &fail, LatencyMs: &slowLatency},
		{Endpoint: "eodc", URL: "https://b", Timestamp: time.Now(), Error: "dial tcp: connection refused"},
	}

	if err := WriteProbeTable(path, results); err != nil {
		t.Fatalf("WriteProbeTable failed: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file should not remain after an atomic write")
	}

	rows, err := ReadTimingRows([]string{path}, quietLog())
	if err != nil {
		t.Fatalf("ReadTimingRows failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d, want 3", len(rows))
	}

	if rows[0].Group != "vito" || !rows[0].Success || rows[0].ValueMs != 123.456 {
		t.Errorf("rows[0] = %+v", rows[0])
	}
	// HTTP 503 is still a successful probe; the status code is data
	if !rows[1].Success {
		t.Error("an HTTP error response should still count as a successful probe")
	}
	if rows[2].Success {
		t.Error("a transport failure should not count as success")
	}
}

func TestAggregateRuns_SkipsCorruptRecords(t *testing.T) {
	dir := t.TempDir()

	for i, backend := range []string{"a.example.org", "b.example.org"} {
		exec := terminalExecution(backend, "ndvi", scenario.StatusCompleted)
		path := filepath.Join(dir, string(rune('a'+i))+".json")
		if _, err := exec.Save(path, ""); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "corrupt.json"), []byte("{half a rec"), 0644); err != nil {
		t.Fatal(err)
	}

	rows, err := AggregateRuns([]string{dir}, quietLog())
	if err != nil {
		t.Fatalf("AggregateRuns should succeed with one corrupt record: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	if rows[0].Backend != "a.example.org" || rows[1].Backend != "b.example.org" {
		t.Errorf("rows out of order: %+v", rows)
	}
}

func TestAggregateRuns_AllCorrupt(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("nope"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := AggregateRuns([]string{dir}, quietLog())
	if !errors.Is(err, ErrNoRecords) {
		t.Errorf("err = %v, want ErrNoRecords", err)
	}
}

func TestAggregateRuns_RoundTripTimings(t *testing.T) {
	dir := t.TempDir()
	exec := terminalExecution("vito.be", "composite", scenario.StatusFailed)
	if _, err := exec.Save("", dir); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	rows, err := AggregateRuns([]string{dir}, quietLog())
	if err != nil {
		t.Fatalf("AggregateRuns failed: %v", err)
	}

	row := rows[0]
	if row.SubmitMs != 120 || row.QueueMs != 3400 || row.RunMs != 56000 || row.TotalMs != 59520 {
		t.Errorf("phase timings did not round-trip exactly: %+v", row)
	}
	if row.Status != scenario.StatusFailed {
		t.Errorf("Status = %s, want failed", row.Status)
	}
	if row.Error == "" {
		t.Error("failed runs should carry their error through aggregation")
	}
}

func TestRunTable_FeedsStatistics(t *testing.T) {
	dir := t.TempDir()
	tablePath := filepath.Join(dir, "runs.csv")

	rows := []RunRow{
		{Backend: "a", Scenario: "s", Status: scenario.StatusCompleted, TotalMs: 1000},
		{Backend: "a", Scenario: "s", Status: scenario.StatusCompleted, TotalMs: 3000},
		{Backend: "a", Scenario: "s", Status: scenario.StatusTimeout, TotalMs: 60000, Error: "polling budget exceeded"},
	}
	if err := WriteRunTable(tablePath, rows); err != nil {
		t.Fatalf("WriteRunTable failed: %v", err)
	}

	timingRows, err := ReadTimingRows([]string{tablePath}, quietLog())
	if err != nil {
		t.Fatalf("ReadTimingRows failed: %v", err)
	}

	summaries := stats.Compute(timingRows)
	if len(summaries) != 1 {
		t.Fatalf("len(summaries) = %d, want 1", len(summaries))
	}
	s := summaries[0]
	if s.Count != 3 || s.SuccessCount != 2 {
		t.Errorf("Count = %d, SuccessCount = %d, want 3 and 2", s.Count, s.SuccessCount)
	}
	if s.MeanMs != 2000 {
		t.Errorf("MeanMs = %v, want 2000 over completed runs only", s.MeanMs)
	}
}

func TestReadTimingRows_EmptyDirectory(t *testing.T) {
	_, err := ReadTimingRows([]string{t.TempDir()}, quietLog())
	if !errors.Is(err, ErrNoRecords) {
		t.Errorf("err = %v, want ErrNoRecords for an empty directory", err)
	}
}

func TestReadTimingRows_UnknownHeaderSkipped(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "alien.csv"), []byte("x,y\n1,2\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := ReadTimingRows([]string{dir}, quietLog())
	if !errors.Is(err, ErrNoRecords) {
		t.Errorf("err = %v, want ErrNoRecords when only unrecognized tables exist", err)
	}
}

func TestWriteStatsTable_NaNAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.csv")
	summaries := []stats.Summary{
		{Group: "down", Count: 2, SuccessCount: 0,
			MeanMs: math.NaN(), MedianMs: math.NaN(), P90Ms: math.NaN(),
			MinMs: math.NaN(), MaxMs: math.NaN()},
	}

	if err := WriteStatsTable(path, summaries); err != nil {
		t.Fatalf("WriteStatsTable failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("len(lines) = %d, want 2", len(lines))
	}
	if lines[1] != "down,2,0,,,,," {
		t.Errorf("data line = %q, want empty latency cells", lines[1])
	}
}

func TestRenderStats(t *testing.T) {
	var buf strings.Builder
	RenderStats(&buf, []stats.Summary{
		{Group: "vito", Count: 3, SuccessCount: 2, MeanMs: 150, MedianMs: 150, P90Ms: 190, MinMs: 100, MaxMs: 200},
		{Group: "down", Count: 1, SuccessCount: 0, MeanMs: math.NaN(), MedianMs: math.NaN(), P90Ms: math.NaN(), MinMs: math.NaN(), MaxMs: math.NaN()},
	})

	out := buf.String()
	if !strings.Contains(out, "vito") || !strings.Contains(out, "150.00ms") {
		t.Errorf("rendered output missing expected values:\n%s", out)
	}
	if !strings.Contains(out, "-") {
		t.Errorf("NaN fields should render as '-':\n%s", out)
	}
}

func TestRenderProbeResult(t *testing.T) {
	status, latency := 200, 42.5
	var buf strings.Builder
	RenderProbeResult(&buf, probe.Result{
		Endpoint: "vito", URL: "https://a", HTTPStatus: &status, LatencyMs: &latency,
	})
	if !strings.Contains(buf.String(), "42.500ms") {
		t.Errorf("output = %q", buf.String())
	}

	buf.Reset()
	RenderProbeResult(&buf, probe.Result{Endpoint: "dead", URL: "https://b", Error: "no route to host"})
	if !strings.Contains(buf.String(), "no route to host") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestDatedFilename(t *testing.T) {
	got := DatedFilename("/out", "probes")
	want := filepath.Join("/out", "probes-"+time.Now().Format("2006-01-02")+".csv")
	if got != want {
		t.Errorf("DatedFilename = %s, want %s", got, want)
	}
}
