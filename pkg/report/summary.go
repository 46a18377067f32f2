package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/eobench/eobench/pkg/scenario"
	"github.com/eobench/eobench/pkg/stats"
)

// RunRow is one line of the comparative run summary table, extracted from a
// persisted JobExecution record.
type RunRow struct {
	Backend  string
	Scenario string
	JobID    string
	Status   scenario.Status
	SubmitMs int64
	QueueMs  int64
	RunMs    int64
	TotalMs  int64
	Error    string
}

// AggregateRuns walks the given record locations (files or directories of
// records) and extracts one row per parseable record, in input order then
// directory name order. Unparseable records are skipped with a warning;
// the aggregation fails only when nothing parses at all.
func AggregateRuns(locations []string, log logrus.FieldLogger) ([]RunRow, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	paths, err := ResolvePaths(locations, ".json")
	if err != nil {
		return nil, err
	}

	var rows []RunRow
	for _, path := range paths {
		exec, err := scenario.LoadExecution(path)
		if err != nil {
			log.WithError(err).WithField("record", path).Warn("skipping unparseable record")
			continue
		}
		rows = append(rows, RunRow{
			Backend:  exec.BackendName,
			Scenario: exec.Scenario,
			JobID:    exec.JobID,
			Status:   exec.Status,
			SubmitMs: exec.PhaseMs[scenario.PhaseSubmit],
			QueueMs:  exec.PhaseMs[scenario.PhaseQueue],
			RunMs:    exec.PhaseMs[scenario.PhaseRunning],
			TotalMs:  exec.PhaseMs[scenario.PhaseTotal],
			Error:    exec.Error,
		})
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w in %v", ErrNoRecords, locations)
	}
	return rows, nil
}

// WriteRunTable writes run rows as a CSV table, atomically
func WriteRunTable(path string, rows []RunRow) error {
	records := [][]string{runHeader}
	for _, row := range rows {
		records = append(records, []string{
			row.Backend,
			row.Scenario,
			row.JobID,
			string(row.Status),
			strconv.FormatInt(row.SubmitMs, 10),
			strconv.FormatInt(row.QueueMs, 10),
			strconv.FormatInt(row.RunMs, 10),
			strconv.FormatInt(row.TotalMs, 10),
			row.Error,
		})
	}
	return writeCSV(path, records)
}

// ReadTimingRows reads one or more timing tables (probe tables or run
// summary tables, auto-detected by header) and converts every data row into
// a stats.TimingRow. Probe rows group by endpoint over latency; run rows
// group by backend over total wall-clock, counting only completed runs as
// successes. Rows that fail to parse are skipped with a warning. Fails with
// ErrNoRecords when no table yields any rows.
func ReadTimingRows(locations []string, log logrus.FieldLogger) ([]stats.TimingRow, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	paths, err := ResolvePaths(locations, ".csv")
	if err != nil {
		return nil, err
	}

	var rows []stats.TimingRow
	for _, path := range paths {
		fileRows, err := readTimingTable(path)
		if err != nil {
			log.WithError(err).WithField("table", path).Warn("skipping unparseable table")
			continue
		}
		rows = append(rows, fileRows...)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w in %v", ErrNoRecords, locations)
	}
	return rows, nil
}

func readTimingTable(path string) ([]stats.TimingRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty table")
	}

	header := strings.Join(records[0], ",")
	switch header {
	case strings.Join(probeHeader, ","):
		return probeTimingRows(records[1:]), nil
	case strings.Join(runHeader, ","):
		return runTimingRows(records[1:]), nil
	default:
		return nil, fmt.Errorf("unrecognized table header: %s", header)
	}
}

func probeTimingRows(records [][]string) []stats.TimingRow {
	var rows []stats.TimingRow
	for _, record := range records {
		if len(record) != len(probeHeader) {
			continue
		}
		latency, err := strconv.ParseFloat(record[4], 64)
		success := record[5] == "" && err == nil
		if err != nil {
			latency = 0
		}
		rows = append(rows, stats.TimingRow{
			Group:   record[0],
			Metric:  "latency",
			ValueMs: latency,
			Success: success,
		})
	}
	return rows
}

func runTimingRows(records [][]string) []stats.TimingRow {
	var rows []stats.TimingRow
	for _, record := range records {
		if len(record) != len(runHeader) {
			continue
		}
		total, err := strconv.ParseFloat(record[7], 64)
		if err != nil {
			continue
		}
		rows = append(rows, stats.TimingRow{
			Group:   record[0],
			Metric:  "total",
			ValueMs: total,
			Success: record[3] == string(scenario.StatusCompleted),
		})
	}
	return rows
}
