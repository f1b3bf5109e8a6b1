package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"akiya-radar/internal/contextkeys"
	"akiya-radar/internal/core/domain"
	"akiya-radar/internal/core/port"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// JobRepository implements JobStoragePort for PostgreSQL.
type JobRepository struct {
	pool *pgxpool.Pool
}

func NewJobRepository(pool *pgxpool.Pool) (*JobRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgxpool.Pool cannot be nil")
	}
	return &JobRepository{pool: pool}, nil
}

func (r *JobRepository) CreateJob(ctx context.Context, job *domain.ScrapeJob) error {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "JobRepository",
		"job_id":    job.ID.String(),
		"source":    job.Source,
	})

	query := `
		INSERT INTO scrape_jobs (
			id, source, status, prefecture_code, municipality_code, price_max,
			listings_found, listings_new, listings_updated, error_summary,
			created_at, started_at, completed_at, heartbeat_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := dbFrom(ctx, r.pool).Exec(ctx, query,
		job.ID, job.Source, job.Status, job.PrefectureCode, job.MunicipalityCode,
		job.PriceMax, job.ListingsFound, job.ListingsNew, job.ListingsUpdated,
		job.ErrorSummary, job.CreatedAt, job.StartedAt, job.CompletedAt, job.HeartbeatAt,
	)
	if err != nil {
		logger.Error("Failed to create job", err, nil)
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

const jobColumns = `
	id, source, status, prefecture_code, municipality_code, price_max,
	listings_found, listings_new, listings_updated, error_summary,
	created_at, started_at, completed_at, heartbeat_at`

func scanJob(row pgx.Row) (*domain.ScrapeJob, error) {
	var j domain.ScrapeJob
	err := row.Scan(
		&j.ID, &j.Source, &j.Status, &j.PrefectureCode, &j.MunicipalityCode,
		&j.PriceMax, &j.ListingsFound, &j.ListingsNew, &j.ListingsUpdated,
		&j.ErrorSummary, &j.CreatedAt, &j.StartedAt, &j.CompletedAt, &j.HeartbeatAt,
	)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *JobRepository) GetJob(ctx context.Context, id uuid.UUID) (*domain.ScrapeJob, error) {
	query := `SELECT ` + jobColumns + ` FROM scrape_jobs WHERE id = $1`

	j, err := scanJob(dbFrom(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job %s: %w", id, err)
	}
	return j, nil
}

// UpdateJobStatus moves the job through its lifecycle. started_at and
// completed_at are stamped on the matching transitions; counters and the
// error summary are only written when provided.
func (r *JobRepository) UpdateJobStatus(ctx context.Context, id uuid.UUID, status domain.JobStatus, counters *domain.JobCounters, errorSummary []string) error {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "JobRepository",
		"job_id":    id.String(),
		"status":    string(status),
	})

	now := time.Now().UTC()
	var startedAt, completedAt *time.Time
	switch status {
	case domain.JobStatusRunning:
		startedAt = &now
	case domain.JobStatusCompleted, domain.JobStatusFailed:
		completedAt = &now
	}

	query := `
		UPDATE scrape_jobs SET
			status = $2,
			started_at = COALESCE($3, started_at),
			completed_at = COALESCE($4, completed_at),
			listings_found = COALESCE($5, listings_found),
			listings_new = COALESCE($6, listings_new),
			listings_updated = COALESCE($7, listings_updated),
			error_summary = COALESCE($8, error_summary),
			heartbeat_at = $9
		WHERE id = $1`

	var found, newCount, updated *int
	if counters != nil {
		found, newCount, updated = &counters.Found, &counters.New, &counters.Updated
	}
	var summary []string
	if errorSummary != nil {
		summary = errorSummary
	}

	cmdTag, err := dbFrom(ctx, r.pool).Exec(ctx, query,
		id, status, startedAt, completedAt, found, newCount, updated, summary, now,
	)
	if err != nil {
		logger.Error("Failed to update job status", err, nil)
		return fmt.Errorf("failed to update job status: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("job %s not found for status update", id)
	}
	return nil
}

func (r *JobRepository) Heartbeat(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE scrape_jobs SET heartbeat_at = $2 WHERE id = $1`

	if _, err := dbFrom(ctx, r.pool).Exec(ctx, query, id, at); err != nil {
		return fmt.Errorf("failed to heartbeat job %s: %w", id, err)
	}
	return nil
}

func (r *JobRepository) HasActiveJob(ctx context.Context, source string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM scrape_jobs
			WHERE source = $1 AND status IN ($2, $3)
		)`

	var exists bool
	err := dbFrom(ctx, r.pool).QueryRow(ctx, query, source,
		domain.JobStatusPending, domain.JobStatusRunning,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check active jobs for %s: %w", source, err)
	}
	return exists, nil
}

func (r *JobRepository) FindStaleRunning(ctx context.Context, cutoff time.Time) ([]domain.ScrapeJob, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM scrape_jobs
		WHERE status = $1
		  AND COALESCE(heartbeat_at, started_at, created_at) < $2
		ORDER BY created_at`

	rows, err := dbFrom(ctx, r.pool).Query(ctx, query, domain.JobStatusRunning, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.ScrapeJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, *j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during job iteration: %w", err)
	}
	return jobs, nil
}

func (r *JobRepository) ListSources(ctx context.Context) ([]domain.ScrapeSource, error) {
	query := `
		SELECT id, name, enabled, min_interval_minutes, last_completed_at
		FROM scrape_sources
		ORDER BY name`

	rows, err := dbFrom(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	defer rows.Close()

	var sources []domain.ScrapeSource
	for rows.Next() {
		var s domain.ScrapeSource
		if err := rows.Scan(&s.ID, &s.Name, &s.Enabled, &s.MinIntervalMinutes, &s.LastCompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		sources = append(sources, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during source iteration: %w", err)
	}
	return sources, nil
}

func (r *JobRepository) TouchSourceCompleted(ctx context.Context, name string, at time.Time) error {
	query := `UPDATE scrape_sources SET last_completed_at = $2 WHERE name = $1`

	if _, err := dbFrom(ctx, r.pool).Exec(ctx, query, name, at); err != nil {
		return fmt.Errorf("failed to touch source %s: %w", name, err)
	}
	return nil
}

var _ port.JobStoragePort = (*JobRepository)(nil)
