package scheduler

import (
	"context"
	"fmt"
	"time"

	"akiya-radar/internal/contextkeys"
	"akiya-radar/internal/core/domain"
	"akiya-radar/internal/core/port"
)

// Watchdog fails running jobs whose heartbeat has gone quiet, so a
// crashed or killed worker cannot leave a job running forever.
type Watchdog struct {
	jobs     port.JobStoragePort
	timeout  time.Duration
	interval time.Duration
}

func NewWatchdog(jobs port.JobStoragePort, timeout time.Duration) (*Watchdog, error) {
	if jobs == nil {
		return nil, fmt.Errorf("watchdog: job storage cannot be nil")
	}
	if timeout <= 0 {
		timeout = 2 * time.Hour
	}
	return &Watchdog{
		jobs:     jobs,
		timeout:  timeout,
		interval: timeout / 4,
	}, nil
}

// Run sweeps periodically until the context ends.
func (w *Watchdog) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *Watchdog) sweep(ctx context.Context) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "Watchdog",
	})

	cutoff := time.Now().UTC().Add(-w.timeout)
	stale, err := w.jobs.FindStaleRunning(ctx, cutoff)
	if err != nil {
		logger.Error("Failed to list stale jobs", err, nil)
		return
	}

	for i := range stale {
		job := &stale[i]
		summary := append(job.ErrorSummary,
			fmt.Sprintf("reaped by watchdog: no heartbeat since %s", cutoff.Format(time.RFC3339)))
		if err := w.jobs.UpdateJobStatus(ctx, job.ID, domain.JobStatusFailed, nil, summary); err != nil {
			logger.Error("Failed to fail stale job", err, port.Fields{"job_id": job.ID.String()})
			continue
		}
		logger.Warn("Stale job failed by watchdog", port.Fields{
			"job_id": job.ID.String(),
			"source": job.Source,
		})
	}
}
