package domain

// SearchParams describes the scope of a single extractor search run.
type SearchParams struct {
	PrefectureCode   string
	MunicipalityCode string
	PriceMin         *int64
	PriceMax         *int64
	PropertyType     string
	MaxPages         int
}

// RawListing is the ephemeral record produced by a source extractor.
// (Source, SourceID) uniquely identifies a listing occurrence on its site.
// All optional fields are nil when the source page did not carry them.
type RawListing struct {
	Source   string
	SourceID string
	URL      string

	Title        *string
	PriceYen     *int64
	Address      *string
	Prefecture   *string
	Municipality *string

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

	Latitude  *float64
	Longitude *float64

	ImageURLs []string

	// RawData keeps the scraped key/value pairs for provenance.
	RawData map[string]string
}

// ScrapeSummary is the orchestrator's per-run report.
type ScrapeSummary struct {
	ListingsFound  int
	DetailsScraped int
	DetailsFailed  int
	Errors         []string
}
