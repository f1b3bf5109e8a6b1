package port

import "context"

// GeoFeature is one feature of a provider's GeoJSON response.
type GeoFeature struct {
	Properties map[string]interface{} `json:"properties"`
}

// GeoFeatureCollection is the subset of GeoJSON the hazard providers return
// that the aggregator actually reads.
type GeoFeatureCollection struct {
	Features []GeoFeature `json:"features"`
}

// SeismicHazardPort is the J-SHIS position API contract.
type SeismicHazardPort interface {
	// GetSeismicHazard returns the 30-year exceedance probability mesh
	// features for the position.
	GetSeismicHazard(ctx context.Context, lat, lng float64) (*GeoFeatureCollection, error)

	// GetLandslideRisk returns landslide features within radiusKm.
	GetLandslideRisk(ctx context.Context, lat, lng float64, radiusKm int) (*GeoFeatureCollection, error)

	// GetAverageHazard returns the averaged hazard record (PGA, Vs30).
	GetAverageHazard(ctx context.Context, lat, lng float64) (*GeoFeatureCollection, error)
}

// RasterTilePort fetches hazard-map raster tiles. A nil result with nil
// error means the tile is outside coverage (normal, not a failure).
type RasterTilePort interface {
	GetTile(ctx context.Context, layer string, z, x, y int) ([]byte, error)
}

// VectorOverlayPort fetches government vector-tile overlays. Nil bytes
// with nil error means no overlay at this tile.
type VectorOverlayPort interface {
	GetDisasterZoneTile(ctx context.Context, z, x, y int) ([]byte, error)
	GetLandslidePreventionTile(ctx context.Context, z, x, y int) ([]byte, error)
	GetSteepSlopeTile(ctx context.Context, z, x, y int) ([]byte, error)
}
