package timing

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Stopwatch measures a sequence of named phases with millisecond precision.
// Each call to Record closes the current phase and starts the next one, so
// phases are contiguous and their sum never exceeds the total elapsed time.
type Stopwatch struct {
	start      time.Time
	phaseStart time.Time
	phases     map[string]int64
}

// NewStopwatch creates a started stopwatch
func NewStopwatch() *Stopwatch {
	now := time.Now()
	return &Stopwatch{
		start:      now,
		phaseStart: now,
		phases:     make(map[string]int64),
	}
}

// Record closes the current phase under the given name and returns its
// duration in milliseconds. Recording the same name again accumulates.
func (s *Stopwatch) Record(name string) int64 {
	now := time.Now()
	elapsed := now.Sub(s.phaseStart).Milliseconds()
	s.phases[name] += elapsed
	s.phaseStart = now
	return elapsed
}

// Phase returns the recorded duration for a phase in milliseconds
func (s *Stopwatch) Phase(name string) int64 {
	return s.phases[name]
}

// Phases returns a copy of all recorded phase durations in milliseconds
func (s *Stopwatch) Phases() map[string]int64 {
	out := make(map[string]int64, len(s.phases))
	for name, ms := range s.phases {
		out[name] = ms
	}
	return out
}

// Elapsed returns the wall-clock time since the stopwatch started
func (s *Stopwatch) Elapsed() time.Duration {
	return time.Since(s.start)
}

// TotalMs returns the wall-clock time since the stopwatch started in milliseconds
func (s *Stopwatch) TotalMs() int64 {
	return s.Elapsed().Milliseconds()
}

// String returns a human-readable summary of the recorded phases
func (s *Stopwatch) String() string {
	names := make([]string, 0, len(s.phases))
	for name := range s.phases {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%dms", name, s.phases[name]))
	}
	return strings.Join(parts, " ")
}
