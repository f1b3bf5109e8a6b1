package port

import (
	"context"
	"time"

	"akiya-radar/internal/core/domain"

	"github.com/google/uuid"
)

// PropertyStoragePort is the persistence contract for canonical properties
// and their listings. Implementations must make UpsertListing safe against
// concurrent upserts of the same physical property (two sources landing the
// same address at once must not create duplicate Properties).
type PropertyStoragePort interface {
	GetProperty(ctx context.Context, id uuid.UUID) (*domain.Property, error)

	// FindByNormalizedAddress returns the property with exactly this
	// normalized address, or nil.
	FindByNormalizedAddress(ctx context.Context, normalized string) (*domain.Property, error)

	// FindByMunicipalitySubstring returns up to limit candidates whose
	// display address contains the municipality text, in stable order.
	FindByMunicipalitySubstring(ctx context.Context, municipality string, limit int) ([]domain.Property, error)

	// FindByBoundingBox returns properties with coordinates inside the box.
	FindByBoundingBox(ctx context.Context, latMin, latMax, lngMin, lngMax float64) ([]domain.Property, error)

	CreateProperty(ctx context.Context, p *domain.Property) error
	UpdateProperty(ctx context.Context, p *domain.Property) error

	FindListing(ctx context.Context, source, sourceID string) (*domain.Listing, error)
	SaveListing(ctx context.Context, l *domain.Listing) error
	ReplaceImages(ctx context.Context, listingID uuid.UUID, urls []string) error

	// WithPropertyLock runs fn inside a transaction holding an exclusive
	// lock keyed by the normalized address, serializing concurrent upserts
	// that target the same physical property.
	WithPropertyLock(ctx context.Context, normalizedAddress string, fn func(ctx context.Context) error) error

	// FindUnassessed returns properties that have coordinates but no
	// hazard assessment yet.
	FindUnassessed(ctx context.Context, limit int) ([]domain.Property, error)

	// FindUnscored returns active properties lacking a score at the
	// given scoring version.
	FindUnscored(ctx context.Context, version string, limit int) ([]domain.Property, error)
}

// HazardStoragePort persists hazard assessments.
type HazardStoragePort interface {
	GetAssessment(ctx context.Context, propertyID uuid.UUID) (*domain.HazardAssessment, error)
	UpsertAssessment(ctx context.Context, a *domain.HazardAssessment) error
}

// ScoreStoragePort persists versioned property scores.
type ScoreStoragePort interface {
	GetScore(ctx context.Context, propertyID uuid.UUID, version string) (*domain.PropertyScore, error)
	UpsertScore(ctx context.Context, s *domain.PropertyScore) error
}

// JobStoragePort persists scrape jobs and the source schedule.
type JobStoragePort interface {
	CreateJob(ctx context.Context, job *domain.ScrapeJob) error
	GetJob(ctx context.Context, id uuid.UUID) (*domain.ScrapeJob, error)
	UpdateJobStatus(ctx context.Context, id uuid.UUID, status domain.JobStatus, counters *domain.JobCounters, errorSummary []string) error
	Heartbeat(ctx context.Context, id uuid.UUID, at time.Time) error

	// HasActiveJob reports whether a pending or running job exists for
	// the source.
	HasActiveJob(ctx context.Context, source string) (bool, error)

	// FindStaleRunning returns running jobs whose heartbeat is older
	// than the cutoff.
	FindStaleRunning(ctx context.Context, cutoff time.Time) ([]domain.ScrapeJob, error)

	ListSources(ctx context.Context) ([]domain.ScrapeSource, error)
	TouchSourceCompleted(ctx context.Context, name string, at time.Time) error
}
