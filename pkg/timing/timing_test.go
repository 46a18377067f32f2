package timing

import (
	"strings"
	"testing"
	"time"
)

func TestStopwatch_RecordsContiguousPhases(t *testing.T) {
	sw := NewStopwatch()

	time.Sleep(20 * time.Millisecond)
	submitMs := sw.Record("submit")

	time.Sleep(30 * time.Millisecond)
	queueMs := sw.Record("queue")

	if submitMs < 20 {
		t.Errorf("submit = %dms, want >= 20", submitMs)
	}
	if queueMs < 30 {
		t.Errorf("queue = %dms, want >= 30", queueMs)
	}

	total := sw.TotalMs()
	if total < submitMs+queueMs {
		t.Errorf("total %dms < sum of phases %dms", total, submitMs+queueMs)
	}
}

func TestStopwatch_RepeatedRecordAccumulates(t *testing.T) {
	sw := NewStopwatch()

	time.Sleep(10 * time.Millisecond)
	first := sw.Record("poll")
	time.Sleep(10 * time.Millisecond)
	second := sw.Record("poll")

	if got := sw.Phase("poll"); got != first+second {
		t.Errorf("Phase(poll) = %d, want %d", got, first+second)
	}
}

func TestStopwatch_UnrecordedPhaseIsZero(t *testing.T) {
	sw := NewStopwatch()
	if got := sw.Phase("never"); got != 0 {
		t.Errorf("Phase(never) = %d, want 0", got)
	}
}

func TestStopwatch_PhasesReturnsCopy(t *testing.T) {
	sw := NewStopwatch()
	sw.Record("submit")

	phases := sw.Phases()
	phases["submit"] = 9999

	if sw.Phase("submit") == 9999 {
		t.Error("mutating the Phases() result should not affect the stopwatch")
	}
}

func TestStopwatch_String(t *testing.T) {
	sw := NewStopwatch()
	sw.Record("submit")
	sw.Record("queue")

	s := sw.String()
	if !strings.Contains(s, "submit=") || !strings.Contains(s, "queue=") {
		t.Errorf("String() = %q, want submit= and queue= entries", s)
	}
}
