package stats

import (
	"math"
	"sort"
)

// TimingRow is one timed observation attributed to a group (a backend or
// endpoint identifier). Rows are derived from persisted probe tables or run
// summaries and are never mutated.
type TimingRow struct {
	Group   string
	Metric  string
	ValueMs float64
	Success bool
}

// Summary holds the descriptive statistics for one group. Latency fields
// are NaN when the group has no successful rows; Count and SuccessCount are
// always valid.
type Summary struct {
	Group        string
	Count        int
	SuccessCount int
	MeanMs       float64
	MedianMs     float64
	P90Ms        float64
	MinMs        float64
	MaxMs        float64
}

// Compute folds timing rows into one summary per group. Groups appear in
// first-appearance order so output is deterministic for a given input.
// Latency statistics cover successful rows only.
func Compute(rows []TimingRow) []Summary {
	byGroup := make(map[string]*Summary)
	var order []string
	durations := make(map[string][]float64)

	for _, row := range rows {
		s, ok := byGroup[row.Group]
		if !ok {
			s = &Summary{Group: row.Group}
			byGroup[row.Group] = s
			order = append(order, row.Group)
		}
		s.Count++
		if row.Success {
			s.SuccessCount++
			durations[row.Group] = append(durations[row.Group], row.ValueMs)
		}
	}

	summaries := make([]Summary, 0, len(order))
	for _, group := range order {
		s := byGroup[group]
		values := durations[group]
		sort.Float64s(values)

		if len(values) == 0 {
			s.MeanMs = math.NaN()
			s.MedianMs = math.NaN()
			s.P90Ms = math.NaN()
			s.MinMs = math.NaN()
			s.MaxMs = math.NaN()
		} else {
			var sum float64
			for _, v := range values {
				sum += v
			}
			s.MeanMs = sum / float64(len(values))
			s.MedianMs = Percentile(values, 50)
			s.P90Ms = Percentile(values, 90)
			s.MinMs = values[0]
			s.MaxMs = values[len(values)-1]
		}
		summaries = append(summaries, *s)
	}
	return summaries
}

// Percentile returns the p-th percentile of sorted data using linear
// interpolation between closest ranks (rank = p/100*(n-1)+1). The rule is
// fixed so reports are reproducible across runs. A single sample is its own
// percentile for any p; no samples yields NaN.
func Percentile(sorted []float64, p float64) float64 {
	if p < 0 || p > 100 {
		return math.NaN()
	}

	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}

	rank := (p/100)*float64(n-1) + 1
	ri := float64(int64(rank))
	rf := rank - ri
	i := int(ri) - 1

	if i+1 >= n {
		return sorted[n-1]
	}
	return sorted[i] + rf*(sorted[i+1]-sorted[i])
}
