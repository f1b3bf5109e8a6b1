package usecase

import (
	"context"
	"fmt"
	"time"

	"akiya-radar/internal/contextkeys"
	"akiya-radar/internal/core/domain"
	"akiya-radar/internal/core/port"

	"github.com/google/uuid"
)

const (
	// Persisted error summary keeps only the first few per-item errors.
	maxPersistedErrors = 5
	// Heartbeat cadence, in processed listings.
	heartbeatEvery = 25
)

// RunJobUseCase executes one scrape job end to end: orchestrated scrape,
// then per-listing upsert with isolated failures.
type RunJobUseCase struct {
	jobs     port.JobStoragePort
	upsert   *UpsertPropertyUseCase
	scrapers map[string]port.ScraperPort
}

// NewRunJobUseCase wires the static scraper set. The registry is fixed at
// startup; job payloads naming an unknown source fail the job.
func NewRunJobUseCase(jobs port.JobStoragePort, upsert *UpsertPropertyUseCase, scrapers map[string]port.ScraperPort) *RunJobUseCase {
	return &RunJobUseCase{jobs: jobs, upsert: upsert, scrapers: scrapers}
}

// Execute runs the job identified by jobID. Partial success (some
// listings upserted, some failed) completes the job with a non-empty
// error summary; only a failure of the whole run marks it failed.
func (uc *RunJobUseCase) Execute(ctx context.Context, jobID uuid.UUID) error {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case": "RunJob",
		"job_id":   jobID.String(),
	})
	ctx = contextkeys.ContextWithLogger(ctx, logger)

	job, err := uc.jobs.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("loading job: %w", err)
	}
	if job == nil {
		return fmt.Errorf("job %s not found", jobID)
	}

	scraper, ok := uc.scrapers[job.Source]
	if !ok {
		msg := fmt.Sprintf("unknown source: %s", job.Source)
		_ = uc.jobs.UpdateJobStatus(ctx, jobID, domain.JobStatusFailed, nil, []string{msg})
		return fmt.Errorf("job %s: %s", jobID, msg)
	}

	if err := uc.jobs.UpdateJobStatus(ctx, jobID, domain.JobStatusRunning, nil, nil); err != nil {
		return fmt.Errorf("marking job running: %w", err)
	}

	params := domain.SearchParams{
		PrefectureCode:   job.PrefectureCode,
		MunicipalityCode: job.MunicipalityCode,
		PriceMax:         job.PriceMax,
		MaxPages:         10,
	}

	listings, summary, err := NewRunScrapeUseCase(scraper).Execute(ctx, params)
	if err != nil {
		msg := truncateError(err)
		counters := domain.JobCounters{Found: summary.ListingsFound}
		_ = uc.jobs.UpdateJobStatus(ctx, jobID, domain.JobStatusFailed, &counters, append(capErrors(summary.Errors), msg))
		return fmt.Errorf("scrape run for job %s: %w", jobID, err)
	}

	// Upsert phase: per-item isolation, counters, periodic heartbeat.
	newCount := 0
	updatedCount := 0
	itemErrors := summary.Errors

	for i := range listings {
		if ctx.Err() != nil {
			break
		}

		isNew, err := uc.upsert.Execute(ctx, listings[i])
		if err != nil {
			logger.Error("Upsert failed, continuing job", err, port.Fields{
				"source":    listings[i].Source,
				"source_id": listings[i].SourceID,
			})
			itemErrors = append(itemErrors, fmt.Sprintf("upsert %s/%s: %v", listings[i].Source, listings[i].SourceID, err))
			continue
		}
		if isNew {
			newCount++
		} else {
			updatedCount++
		}

		if (i+1)%heartbeatEvery == 0 {
			_ = uc.jobs.Heartbeat(ctx, jobID, time.Now().UTC())
		}
	}

	counters := domain.JobCounters{
		Found:   summary.ListingsFound,
		New:     newCount,
		Updated: updatedCount,
	}

	if err := uc.jobs.UpdateJobStatus(ctx, jobID, domain.JobStatusCompleted, &counters, capErrors(itemErrors)); err != nil {
		return fmt.Errorf("marking job completed: %w", err)
	}
	_ = uc.jobs.TouchSourceCompleted(ctx, job.Source, time.Now().UTC())

	logger.Info("Job completed", port.Fields{
		"found":   summary.ListingsFound,
		"new":     newCount,
		"updated": updatedCount,
		"errors":  len(itemErrors),
	})
	return nil
}

func capErrors(errs []string) []string {
	if len(errs) > maxPersistedErrors {
		return errs[:maxPersistedErrors]
	}
	return errs
}

func truncateError(err error) string {
	msg := err.Error()
	if len(msg) > 500 {
		msg = msg[:500]
	}
	return msg
}
