// Package scheduler owns scrape-job orchestration: a bounded worker pool
// executing jobs, a watchdog reaping abandoned runs, and a periodic
// scheduler that enqueues due sources.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"akiya-radar/internal/contextkeys"
	"akiya-radar/internal/core/domain"
	"akiya-radar/internal/core/port"

	"github.com/google/uuid"
)

// ErrSourceBusy is returned by Enqueue when the source already has a
// pending or running job.
var ErrSourceBusy = errors.New("source already has an active job")

// JobRunner executes one persisted job. *usecase.RunJobUseCase satisfies it.
type JobRunner interface {
	Execute(ctx context.Context, jobID uuid.UUID) error
}

// JobRequest is the scope of one enqueued scrape.
type JobRequest struct {
	Source           string
	PrefectureCode   string
	MunicipalityCode string
	PriceMax         *int64
}

// Manager creates jobs and feeds them to a fixed pool of workers. When a
// dispatcher is configured the job also goes to the queue so another
// process can pick it up; otherwise execution stays in-process.
type Manager struct {
	jobs       port.JobStoragePort
	runner     JobRunner
	dispatcher port.JobDispatchPort
	workers    int

	pending chan uuid.UUID

	mu     sync.Mutex
	active map[uuid.UUID]domain.JobStatus

	wg sync.WaitGroup
}

func NewManager(jobs port.JobStoragePort, runner JobRunner, dispatcher port.JobDispatchPort, workers int) (*Manager, error) {
	if jobs == nil {
		return nil, fmt.Errorf("scheduler: job storage cannot be nil")
	}
	if runner == nil {
		return nil, fmt.Errorf("scheduler: job runner cannot be nil")
	}
	if workers <= 0 {
		workers = 1
	}
	return &Manager{
		jobs:       jobs,
		runner:     runner,
		dispatcher: dispatcher,
		workers:    workers,
		pending:    make(chan uuid.UUID, 64),
		active:     make(map[uuid.UUID]domain.JobStatus),
	}, nil
}

// Enqueue persists a pending job and hands it to the pool. A source with
// a pending or running job is rejected.
func (m *Manager) Enqueue(ctx context.Context, req JobRequest) (*domain.ScrapeJob, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "SchedulerManager",
		"source":    req.Source,
	})

	busy, err := m.jobs.HasActiveJob(ctx, req.Source)
	if err != nil {
		return nil, fmt.Errorf("scheduler: checking active jobs: %w", err)
	}
	if busy {
		return nil, fmt.Errorf("scheduler: source %s: %w", req.Source, ErrSourceBusy)
	}

	job := &domain.ScrapeJob{
		ID:               uuid.New(),
		Source:           req.Source,
		Status:           domain.JobStatusPending,
		PrefectureCode:   req.PrefectureCode,
		MunicipalityCode: req.MunicipalityCode,
		PriceMax:         req.PriceMax,
		CreatedAt:        time.Now().UTC(),
	}
	if err := m.jobs.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("scheduler: creating job: %w", err)
	}

	m.mu.Lock()
	m.active[job.ID] = domain.JobStatusPending
	m.mu.Unlock()

	if m.dispatcher != nil {
		if err := m.dispatcher.Dispatch(ctx, job.ID, job.Source); err != nil {
			// The job row exists; the watchdog will not see it running,
			// so fail it explicitly rather than leaving it stuck pending.
			_ = m.jobs.UpdateJobStatus(ctx, job.ID, domain.JobStatusFailed, nil, []string{"dispatch failed: " + err.Error()})
			m.forget(job.ID)
			return nil, fmt.Errorf("scheduler: dispatching job: %w", err)
		}
		logger.Info("Job dispatched to queue", port.Fields{"job_id": job.ID.String()})
		return job, nil
	}

	select {
	case m.pending <- job.ID:
		logger.Info("Job queued in-process", port.Fields{"job_id": job.ID.String()})
	default:
		_ = m.jobs.UpdateJobStatus(ctx, job.ID, domain.JobStatusFailed, nil, []string{"worker queue full"})
		m.forget(job.ID)
		return nil, fmt.Errorf("scheduler: worker queue full")
	}
	return job, nil
}

// Start launches the worker pool. Workers drain until the context ends.
func (m *Manager) Start(ctx context.Context) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "SchedulerManager",
	})
	logger.Info("Starting job workers", port.Fields{"workers": m.workers})

	for i := 0; i < m.workers; i++ {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case jobID := <-m.pending:
					m.runJob(ctx, jobID)
				}
			}
		}()
	}
}

// Wait blocks until all workers have exited.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// RunJob executes a job immediately on the calling goroutine. The queue
// consumer uses this entry point for dispatched jobs.
func (m *Manager) RunJob(ctx context.Context, jobID uuid.UUID) error {
	m.mu.Lock()
	m.active[jobID] = domain.JobStatusRunning
	m.mu.Unlock()
	defer m.forget(jobID)

	return m.runner.Execute(ctx, jobID)
}

func (m *Manager) runJob(ctx context.Context, jobID uuid.UUID) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "SchedulerManager",
		"job_id":    jobID.String(),
	})

	m.mu.Lock()
	m.active[jobID] = domain.JobStatusRunning
	m.mu.Unlock()
	defer m.forget(jobID)

	if err := m.runner.Execute(ctx, jobID); err != nil {
		logger.Error("Job run failed", err, nil)
	}
}

func (m *Manager) forget(jobID uuid.UUID) {
	m.mu.Lock()
	delete(m.active, jobID)
	m.mu.Unlock()
}

// ActiveJobs returns a snapshot of the jobs this process is tracking.
func (m *Manager) ActiveJobs() map[uuid.UUID]domain.JobStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := make(map[uuid.UUID]domain.JobStatus, len(m.active))
	for id, status := range m.active {
		snapshot[id] = status
	}
	return snapshot
}
