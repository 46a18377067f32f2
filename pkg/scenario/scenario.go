package scenario

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Status is the closed set of job lifecycle states tracked by the runner.
// Backend-reported status strings are mapped into this set; TIMEOUT is
// synthesized locally when the polling budget runs out and is deliberately
// kept distinct from a backend-reported failure.
type Status string

const (
	StatusSubmitting Status = "submitting"
	StatusQueued     Status = "queued"
	StatusRunning    Status = "running"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusTimeout    Status = "timeout"
)

// Terminal reports whether the status is final
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusTimeout
}

// Phase names used in JobExecution.PhaseMs
const (
	PhaseSubmit  = "submit"
	PhaseQueue   = "queue"
	PhaseRunning = "running"
	PhaseTotal   = "total"
)

// Scenario describes a computation to submit to a backend: an API URL plus
// an opaque process-graph document. Read-only once loaded.
type Scenario struct {
	Name         string
	APIURL       string
	ProcessGraph json.RawMessage
}

// Load reads a scenario from a JSON file. The file may be a bare process
// graph, or a document with a "process_graph" field (and optionally a
// "name"). The name defaults to the file stem.
func Load(path, apiURL string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var doc struct {
		Name         string          `json:"name"`
		ProcessGraph json.RawMessage `json:"process_graph"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario file: %w", err)
	}

	graph := doc.ProcessGraph
	if len(graph) == 0 {
		// No process_graph wrapper, the whole document is the graph
		graph = json.RawMessage(data)
	}

	name := doc.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	return &Scenario{
		Name:         name,
		APIURL:       apiURL,
		ProcessGraph: graph,
	}, nil
}

// BackendName returns the host component of the scenario's API URL
func (s *Scenario) BackendName() string {
	if u, err := url.Parse(s.APIURL); err == nil && u.Host != "" {
		return u.Host
	}
	return s.APIURL
}

// JobExecution is the full record of one scenario run against one backend.
// It is mutated only by the runner's polling loop and becomes immutable once
// Status is terminal, at which point it is persisted to disk.
type JobExecution struct {
	RunID          string           `json:"run_id"`
	BackendName    string           `json:"backend_name"`
	BackendURL     string           `json:"backend_url"`
	Scenario       string           `json:"scenario"`
	JobID          string           `json:"job_id,omitempty"`
	Status         Status           `json:"status"`
	StartedAt      time.Time        `json:"started_at"`
	FinishedAt     time.Time        `json:"finished_at,omitempty"`
	PhaseMs        map[string]int64 `json:"phase_ms"`
	ResultLocation string           `json:"result_location,omitempty"`
	Error          string           `json:"error,omitempty"`
}
