package rest

import "time"

type CreateJobRequest struct {
	Source           string `json:"source"`
	PrefectureCode   string `json:"prefecture_code"`
	MunicipalityCode string `json:"municipality_code"`
	PriceMax         *int64 `json:"price_max"`
}

type JobResponse struct {
	ID               string `json:"id"`
	Source           string `json:"source"`
	Status           string `json:"status"`
	PrefectureCode   string `json:"prefecture_code,omitempty"`
	MunicipalityCode string `json:"municipality_code,omitempty"`
	PriceMax         *int64 `json:"price_max,omitempty"`

	ListingsFound   int      `json:"listings_found"`
	ListingsNew     int      `json:"listings_new"`
	ListingsUpdated int      `json:"listings_updated"`
	ErrorSummary    []string `json:"error_summary,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	HeartbeatAt *time.Time `json:"heartbeat_at,omitempty"`
}

type SourceResponse struct {
	Name               string     `json:"name"`
	Enabled            bool       `json:"enabled"`
	MinIntervalMinutes int        `json:"min_interval_minutes"`
	LastCompletedAt    *time.Time `json:"last_completed_at,omitempty"`
}

// PropertyCardResponse is the list-view shape: enough to render a result
// row without a second round trip.
type PropertyCardResponse struct {
	ID             string   `json:"id"`
	AddressJa      *string  `json:"address_ja"`
	Prefecture     *string  `json:"prefecture"`
	Municipality   *string  `json:"municipality"`
	PriceYen       *int64   `json:"price_yen"`
	LandAreaSqm    *float64 `json:"land_area_sqm"`
	FloorPlan      *string  `json:"floor_plan"`
	YearBuilt      *int     `json:"year_built"`
	CompositeScore *float64 `json:"composite_score"`
	Status         string   `json:"status"`
}

type PropertyListResponse struct {
	Data  []PropertyCardResponse `json:"properties"`
	Total int                    `json:"total"`
}

type PropertyDetailsResponse struct {
	ID                string   `json:"id"`
	AddressJa         *string  `json:"address_ja"`
	AddressNormalized *string  `json:"address_normalized"`
	Prefecture        *string  `json:"prefecture"`
	Municipality      *string  `json:"municipality"`
	Latitude          *float64 `json:"latitude"`
	Longitude         *float64 `json:"longitude"`

	PriceYen        *int64   `json:"price_yen"`
	LandAreaSqm     *float64 `json:"land_area_sqm"`
	BuildingAreaSqm *float64 `json:"building_area_sqm"`
	FloorPlan       *string  `json:"floor_plan"`
	YearBuilt       *int     `json:"year_built"`
	Structure       *string  `json:"structure"`
	FloorCount      *int     `json:"floor_count"`

	RoadWidthM       *float64 `json:"road_width_m"`
	RoadFrontageM    *float64 `json:"road_frontage_m"`
	RebuildPossible  *bool    `json:"rebuild_possible"`
	ZoningUse        *string  `json:"zoning_use"`
	BuildingCoverage *float64 `json:"building_coverage"`
	FloorAreaRatio   *float64 `json:"floor_area_ratio"`

	CompositeScore *float64 `json:"composite_score"`
	Status         string   `json:"status"`

	FirstSeenAt time.Time `json:"first_seen_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
}

type HazardResponse struct {
	PropertyID string `json:"property_id"`

	SeismicIntensityProb map[string]float64 `json:"seismic_intensity_prob,omitempty"`
	PGA475yr             *float64           `json:"pga_475yr"`
	LiquefactionRisk     *string            `json:"liquefaction_risk"`

	FloodDepthMaxM *float64 `json:"flood_depth_max_m"`
	FloodZone      *string  `json:"flood_zone"`

	TsunamiRisk      *string  `json:"tsunami_risk"`
	TsunamiDepthMaxM *float64 `json:"tsunami_depth_max_m"`

	LandslideRisk           *string `json:"landslide_risk"`
	SteepSlopeZone          bool    `json:"steep_slope_zone"`
	LandslidePreventionZone bool    `json:"landslide_prevention_zone"`

	MeshCode   string            `json:"mesh_code,omitempty"`
	AssessedAt time.Time         `json:"assessed_at"`
	Sources    map[string]string `json:"data_sources,omitempty"`
}

type ScoreResponse struct {
	PropertyID     string `json:"property_id"`
	ScoringVersion string `json:"scoring_version"`

	RebuildScore        float64 `json:"rebuild_score"`
	HazardScore         float64 `json:"hazard_score"`
	InfrastructureScore float64 `json:"infrastructure_score"`
	DemographicScore    float64 `json:"demographic_score"`
	ValueScore          float64 `json:"value_score"`
	ConditionScore      float64 `json:"condition_score"`

	CompositeScore float64            `json:"composite_score"`
	Weights        map[string]float64 `json:"weights,omitempty"`
	ScoredAt       time.Time          `json:"scored_at"`
}
