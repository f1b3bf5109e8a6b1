package scheduler

import (
	"context"
	"fmt"
	"time"

	"akiya-radar/internal/contextkeys"
	"akiya-radar/internal/core/domain"
	"akiya-radar/internal/core/port"
)

// SourceScheduler periodically walks the configured sources and enqueues
// a job for each one that is enabled, idle, and past its minimum
// interval since the last completed run.
type SourceScheduler struct {
	jobs     port.JobStoragePort
	manager  *Manager
	interval time.Duration
}

func NewSourceScheduler(jobs port.JobStoragePort, manager *Manager, interval time.Duration) (*SourceScheduler, error) {
	if jobs == nil {
		return nil, fmt.Errorf("source scheduler: job storage cannot be nil")
	}
	if manager == nil {
		return nil, fmt.Errorf("source scheduler: manager cannot be nil")
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &SourceScheduler{jobs: jobs, manager: manager, interval: interval}, nil
}

// Run ticks until the context ends. The first pass happens immediately.
func (s *SourceScheduler) Run(ctx context.Context) {
	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *SourceScheduler) tick(ctx context.Context) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "SourceScheduler",
	})

	sources, err := s.jobs.ListSources(ctx)
	if err != nil {
		logger.Error("Failed to list sources", err, nil)
		return
	}

	now := time.Now().UTC()
	for i := range sources {
		source := &sources[i]
		if !sourceDue(source, now) {
			continue
		}

		if _, err := s.manager.Enqueue(ctx, JobRequest{Source: source.Name}); err != nil {
			// An already-active source is expected here, not a fault.
			logger.Debug("Skipping source", port.Fields{
				"source": source.Name,
				"reason": err.Error(),
			})
		}
	}
}

// sourceDue reports whether a source should get a new job now.
func sourceDue(source *domain.ScrapeSource, now time.Time) bool {
	if !source.Enabled {
		return false
	}
	if source.LastCompletedAt == nil {
		return true
	}
	minInterval := time.Duration(source.MinIntervalMinutes) * time.Minute
	return now.Sub(*source.LastCompletedAt) >= minInterval
}
