package scenario

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/eobench/eobench/pkg/timing"
)

// RunnerOptions bounds the polling loop. Every knob has a safe default so a
// zero value still terminates.
type RunnerOptions struct {
	PollInterval    time.Duration // initial sleep between polls
	PollMaxInterval time.Duration // backoff ceiling
	PollBudget      time.Duration // total wall-clock budget before TIMEOUT
	PollRetries     int           // consecutive transient poll failures tolerated
	RecordPath      string        // exact record file to write, optional
	RecordDir       string        // directory for a generated record filename, optional
}

func (o RunnerOptions) withDefaults() RunnerOptions {
	if o.PollInterval <= 0 {
		o.PollInterval = 2 * time.Second
	}
	if o.PollMaxInterval <= 0 {
		o.PollMaxInterval = 30 * time.Second
	}
	if o.PollBudget <= 0 {
		o.PollBudget = 30 * time.Minute
	}
	if o.PollRetries <= 0 {
		o.PollRetries = 3
	}
	return o
}

// Runner submits one scenario to one backend and drives the resulting job
// through its lifecycle: SUBMITTING -> QUEUED -> RUNNING -> COMPLETED,
// FAILED or TIMEOUT. The runner owns its JobExecution exclusively and
// persists it on every terminal path, so partial timings from failed runs
// are kept too.
type Runner struct {
	client *Client
	sc     *Scenario
	opts   RunnerOptions
	log    logrus.FieldLogger
}

// NewRunner creates a runner for one scenario execution
func NewRunner(client *Client, sc *Scenario, opts RunnerOptions, log logrus.FieldLogger) *Runner {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Runner{
		client: client,
		sc:     sc,
		opts:   opts.withDefaults(),
		log:    log,
	}
}

// Run executes the scenario to a terminal state. It always returns a
// terminal JobExecution; errors along the way are recorded in it rather
// than returned.
func (r *Runner) Run(ctx context.Context) *JobExecution {
	exec := &JobExecution{
		RunID:       uuid.NewString(),
		BackendName: r.sc.BackendName(),
		BackendURL:  r.sc.APIURL,
		Scenario:    r.sc.Name,
		Status:      StatusSubmitting,
		StartedAt:   time.Now(),
	}
	sw := timing.NewStopwatch()

	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, r.opts.PollBudget)
	defer cancel()

	// Submission is attempted exactly once
	jobID, err := r.client.SubmitJob(ctx, r.sc)
	sw.Record(PhaseSubmit)
	if err != nil {
		return r.finish(exec, sw, StatusFailed, fmt.Sprintf("job submission failed: %v", err))
	}
	exec.JobID = jobID
	exec.Status = StatusQueued
	r.log.WithFields(logrus.Fields{
		"backend":  exec.BackendName,
		"scenario": exec.Scenario,
		"job_id":   jobID,
	}).Info("job submitted")

	interval := r.opts.PollInterval
	transientErrs := 0
	for {
		status, message, err := r.client.JobStatus(ctx, exec.JobID)
		switch {
		case err != nil && ctx.Err() != nil:
			r.recordCurrentPhase(exec, sw)
			status, reason := interruption(parent)
			return r.finish(exec, sw, status, reason)
		case err != nil && IsTransient(err) && transientErrs < r.opts.PollRetries:
			transientErrs++
			r.log.WithError(err).WithField("attempt", transientErrs).Warn("job status poll failed, retrying")
		case err != nil:
			r.recordCurrentPhase(exec, sw)
			return r.finish(exec, sw, StatusFailed, fmt.Sprintf("job status poll failed: %v", err))
		default:
			transientErrs = 0
			r.log.WithFields(logrus.Fields{"job_id": exec.JobID, "status": status}).Debug("job polled")

			switch status {
			case StatusRunning:
				if exec.Status == StatusQueued {
					sw.Record(PhaseQueue)
					exec.Status = StatusRunning
					r.log.WithField("job_id", exec.JobID).Info("job started running")
				}
			case StatusCompleted:
				r.recordCurrentPhase(exec, sw)
				location, err := r.fetchResults(ctx, exec.JobID)
				if err != nil {
					// Without a result reference the run cannot count as completed
					return r.finish(exec, sw, StatusFailed, fmt.Sprintf("job finished but results fetch failed: %v", err))
				}
				exec.ResultLocation = location
				return r.finish(exec, sw, StatusCompleted, "")
			case StatusFailed:
				r.recordCurrentPhase(exec, sw)
				if message == "" {
					message = "backend reported job failure"
				}
				return r.finish(exec, sw, StatusFailed, message)
			}
		}

		if err := sleepCtx(ctx, interval); err != nil {
			r.recordCurrentPhase(exec, sw)
			status, reason := interruption(parent)
			return r.finish(exec, sw, status, reason)
		}
		interval *= 2
		if interval > r.opts.PollMaxInterval {
			interval = r.opts.PollMaxInterval
		}
	}
}

// interruption tells budget exhaustion apart from the caller canceling the
// run. Only the former is a TIMEOUT; a canceled run is a failed run.
func interruption(parent context.Context) (Status, string) {
	if parent.Err() != nil {
		return StatusFailed, fmt.Sprintf("run canceled: %v", parent.Err())
	}
	return StatusTimeout, "polling budget exceeded"
}

// recordCurrentPhase closes whichever lifecycle phase the execution is in
func (r *Runner) recordCurrentPhase(exec *JobExecution, sw *timing.Stopwatch) {
	switch exec.Status {
	case StatusQueued:
		sw.Record(PhaseQueue)
	case StatusRunning:
		sw.Record(PhaseRunning)
	}
}

// fetchResults retrieves the artifact reference, retrying transient failures
func (r *Runner) fetchResults(ctx context.Context, jobID string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= r.opts.PollRetries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, r.opts.PollInterval); err != nil {
				return "", err
			}
		}
		location, err := r.client.JobResults(ctx, jobID)
		if err == nil {
			return location, nil
		}
		lastErr = err
		if !IsTransient(err) {
			break
		}
	}
	return "", lastErr
}

func (r *Runner) finish(exec *JobExecution, sw *timing.Stopwatch, status Status, errMsg string) *JobExecution {
	exec.Status = status
	exec.Error = errMsg
	exec.FinishedAt = time.Now()

	phases := sw.Phases()
	for _, name := range []string{PhaseSubmit, PhaseQueue, PhaseRunning} {
		if _, ok := phases[name]; !ok {
			phases[name] = 0
		}
	}
	phases[PhaseTotal] = sw.TotalMs()
	exec.PhaseMs = phases

	entry := r.log.WithFields(logrus.Fields{
		"backend":  exec.BackendName,
		"scenario": exec.Scenario,
		"status":   exec.Status,
		"phases":   sw.String(),
	})
	if status == StatusCompleted {
		entry.Info("scenario run completed")
	} else {
		entry.WithField("error", errMsg).Warn("scenario run did not complete")
	}

	if r.opts.RecordPath != "" || r.opts.RecordDir != "" {
		path, err := exec.Save(r.opts.RecordPath, r.opts.RecordDir)
		if err != nil {
			r.log.WithError(err).Error("failed to persist job execution record")
		} else {
			r.log.WithField("record", path).Debug("job execution record written")
		}
	}
	return exec
}

// sleepCtx sleeps for d or until the context is done
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
