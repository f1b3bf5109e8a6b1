package domain

import (
	"time"

	"github.com/google/uuid"
)

// PropertyScore is one versioned scoring result. (PropertyID, ScoringVersion)
// is unique; re-scoring at the same version updates the row in place, while
// a version bump creates a parallel historical row.
type PropertyScore struct {
	ID             uuid.UUID
	PropertyID     uuid.UUID
	ScoringVersion string

	RebuildScore        float64
	HazardScore         float64
	InfrastructureScore float64
	DemographicScore    float64
	ValueScore          float64
	ConditionScore      float64

	CompositeScore float64

	// Weights as used for this row, persisted for reproducibility.
	Weights map[string]float64

	ScoredAt time.Time
}
