package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus is the scrape job lifecycle state.
type JobStatus string

// pending -> running -> {completed, failed}. Terminal states are final;
// a retry requires a new job.
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// ScrapeJob tracks one orchestrator run over a single source.
type ScrapeJob struct {
	ID     uuid.UUID
	Source string
	Status JobStatus

	PrefectureCode   string
	MunicipalityCode string
	PriceMax         *int64

	ListingsFound   int
	ListingsNew     int
	ListingsUpdated int

	// ErrorSummary holds the first few per-item errors plus the fatal
	// error message for failed jobs.
	ErrorSummary []string

	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	// HeartbeatAt is bumped while the job makes progress; the watchdog
	// uses it to reap jobs abandoned by a crashed process.
	HeartbeatAt *time.Time
}

// JobCounters is the per-run counter set persisted on status updates.
type JobCounters struct {
	Found   int
	New     int
	Updated int
}

// CanTransitionTo reports whether the status change is legal.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	switch s {
	case JobStatusPending:
		return next == JobStatusRunning || next == JobStatusFailed
	case JobStatusRunning:
		return next == JobStatusCompleted || next == JobStatusFailed
	default:
		return false
	}
}

// ScrapeSource is a configured listing source with its scheduling policy.
type ScrapeSource struct {
	ID                 uuid.UUID
	Name               string
	Enabled            bool
	MinIntervalMinutes int
	LastCompletedAt    *time.Time
}
