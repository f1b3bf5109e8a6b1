package domain

import (
	"time"

	"github.com/google/uuid"
)

// HazardAssessment aggregates hazard data for one property. Exactly one
// assessment exists per property; re-running the aggregator mutates it.
// Fields are independently nullable because providers fail independently.
type HazardAssessment struct {
	ID         uuid.UUID
	PropertyID uuid.UUID

	// SeismicIntensityProb maps JMA intensity labels (I45..I65) to the
	// 30-year exceedance probability.
	SeismicIntensityProb map[string]float64

	PGA475yr         *float64
	LiquefactionRisk *string

	FloodDepthMaxM *float64
	FloodZone      *string

	TsunamiRisk      *string
	TsunamiDepthMaxM *float64

	LandslideRisk           *string
	SteepSlopeZone          bool
	LandslidePreventionZone bool

	MeshCode   string
	AssessedAt time.Time

	// DataSources records which provider populated which field group.
	DataSources map[string]string
}
