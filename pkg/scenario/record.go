package scenario

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Save persists the execution record as JSON. When path is non-empty it is
// used verbatim; otherwise a timestamped filename is generated under dir.
// The write is atomic (temp file plus rename) so the aggregator never sees
// a half-written record. Returns the path written.
func (exec *JobExecution) Save(path, dir string) (string, error) {
	if !exec.Status.Terminal() {
		return "", fmt.Errorf("refusing to persist non-terminal execution (status %s)", exec.Status)
	}

	if path == "" {
		if dir == "" {
			return "", fmt.Errorf("no record path or directory given")
		}
		short := exec.RunID
		if len(short) > 8 {
			short = short[:8]
		}
		name := fmt.Sprintf("run-%s-%s.json", exec.FinishedAt.Format("20060102-150405"), short)
		path = filepath.Join(dir, name)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create record directory: %w", err)
	}

	data, err := json.MarshalIndent(exec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal execution record: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write execution record: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return "", fmt.Errorf("failed to rename execution record: %w", err)
	}
	return path, nil
}

// LoadExecution parses a persisted execution record. Records must be
// self-contained: nothing from the original scenario file is needed to
// read them back.
func LoadExecution(path string) (*JobExecution, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read execution record: %w", err)
	}

	var exec JobExecution
	if err := json.Unmarshal(data, &exec); err != nil {
		return nil, fmt.Errorf("failed to parse execution record %s: %w", filepath.Base(path), err)
	}

	if !exec.Status.Terminal() {
		return nil, fmt.Errorf("record %s has non-terminal status %q", filepath.Base(path), exec.Status)
	}
	if exec.PhaseMs == nil {
		return nil, fmt.Errorf("record %s has no phase timings", filepath.Base(path))
	}

	return &exec, nil
}
