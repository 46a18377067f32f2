package report

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	"github.com/eobench/eobench/pkg/probe"
	"github.com/eobench/eobench/pkg/stats"
)

// RenderStats writes statistics summaries as a human-readable table
func RenderStats(w io.Writer, summaries []stats.Summary) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Group\tCount\tOK\tMean\tMedian\tP90\tMin\tMax")
	fmt.Fprintln(tw, "-----\t-----\t--\t----\t------\t---\t---\t---")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\t%s\t%s\t%s\n",
			s.Group,
			s.Count,
			s.SuccessCount,
			renderMs(s.MeanMs),
			renderMs(s.MedianMs),
			renderMs(s.P90Ms),
			renderMs(s.MinMs),
			renderMs(s.MaxMs),
		)
	}
	tw.Flush()
}

// RenderRuns writes run rows as a human-readable table
func RenderRuns(w io.Writer, rows []RunRow) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Backend\tScenario\tJob\tStatus\tSubmit\tQueue\tRun\tTotal")
	fmt.Fprintln(tw, "-------\t--------\t---\t------\t------\t-----\t---\t-----")
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%dms\t%dms\t%dms\t%dms\n",
			row.Backend,
			row.Scenario,
			row.JobID,
			row.Status,
			row.SubmitMs,
			row.QueueMs,
			row.RunMs,
			row.TotalMs,
		)
	}
	tw.Flush()
}

// RenderProbeResult writes a single probe result human-readably
func RenderProbeResult(w io.Writer, r probe.Result) {
	fmt.Fprintf(w, "Endpoint:  %s\n", r.Endpoint)
	fmt.Fprintf(w, "URL:       %s\n", r.URL)
	if r.Success() {
		fmt.Fprintf(w, "Status:    %d\n", *r.HTTPStatus)
		fmt.Fprintf(w, "Latency:   %.3fms\n", *r.LatencyMs)
	} else {
		fmt.Fprintf(w, "Error:     %s\n", r.Error)
	}
}

func renderMs(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.2fms", v)
}
