package domain

import (
	"time"

	"github.com/google/uuid"
)

// Property lifecycle statuses.
const (
	PropertyStatusActive   = "active"
	PropertyStatusInactive = "inactive"
)

// Property is the canonical record for one physical property, merged from
// one or more listings across sources. At most one Property should exist
// per physical structure; the deduplication cascade enforces this
// heuristically, not with a hard key.
type Property struct {
	ID                uuid.UUID
	AddressJa         *string
	AddressNormalized *string
	Prefecture        *string
	Municipality      *string
	Latitude          *float64
	Longitude         *float64

	PriceYen        *int64
	LandAreaSqm     *float64
	BuildingAreaSqm *float64
	FloorPlan       *string
	YearBuilt       *int
	Structure       *string
	FloorCount      *int

	RoadWidthM       *float64
	RoadFrontageM    *float64
	RebuildPossible  *bool
	ZoningUse        *string
	BuildingCoverage *float64
	FloorAreaRatio   *float64

	CompositeScore *float64
	Status         string

	FirstSeenAt time.Time
	LastSeenAt  time.Time
}

// Listing is one source's occurrence of a Property.
type Listing struct {
	ID         uuid.UUID
	PropertyID uuid.UUID
	Source     string
	SourceID   string
	URL        string
	Title      *string
	PriceYen   *int64
	Status     string

	// RawData keeps the original scraped key/value pairs.
	RawData map[string]string

	FirstScrapedAt time.Time
	LastScrapedAt  time.Time
}

// PropertyImage is one ordered image URL attached to a listing.
type PropertyImage struct {
	ID        uuid.UUID
	ListingID uuid.UUID
	URL       string
	Position  int
}
