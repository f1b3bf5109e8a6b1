package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"akiya-radar/internal/contextkeys"
	"akiya-radar/internal/core/domain"
	"akiya-radar/internal/core/port"
	"akiya-radar/internal/geo"

	"github.com/google/uuid"
)

// Zoom level used for hazard tile lookups (~1km mesh equivalent).
const hazardTileZoom = 15

// Delay between sequential property assessments in batch mode, so the
// aggregate request rate across all providers stays polite.
const batchInterPropertyDelay = 3 * time.Second

// JMA intensity labels carried in the 30-year exceedance probability maps.
var jmaIntensityLevels = []string{"I45", "I50", "I55", "I60", "I65"}

// AssessHazardUseCase fans out to the external hazard providers for one
// property and folds the responses into a single assessment. Providers
// fail independently; a failure leaves its fields nil and the assessment
// proceeds with partial data.
type AssessHazardUseCase struct {
	properties port.PropertyStoragePort
	hazards    port.HazardStoragePort
	seismic    port.SeismicHazardPort
	tiles      port.RasterTilePort
	overlays   port.VectorOverlayPort
}

func NewAssessHazardUseCase(
	properties port.PropertyStoragePort,
	hazards port.HazardStoragePort,
	seismic port.SeismicHazardPort,
	tiles port.RasterTilePort,
	overlays port.VectorOverlayPort,
) *AssessHazardUseCase {
	return &AssessHazardUseCase{
		properties: properties,
		hazards:    hazards,
		seismic:    seismic,
		tiles:      tiles,
		overlays:   overlays,
	}
}

// providerResults collects the fan-out responses. Errors are kept per
// provider so one failing API never hides the others.
type providerResults struct {
	seismic    *port.GeoFeatureCollection
	seismicErr error

	landslide    *port.GeoFeatureCollection
	landslideErr error

	avgHazard    *port.GeoFeatureCollection
	avgHazardErr error

	floodTile    []byte
	floodTileErr error

	tsunamiTile    []byte
	tsunamiTileErr error

	disasterOverlay    []byte
	disasterOverlayErr error

	landslideOverlay    []byte
	landslideOverlayErr error

	steepOverlay    []byte
	steepOverlayErr error
}

// Execute builds or refreshes the hazard assessment for one property.
// Returns nil (no error) when the property is missing or has no
// coordinates; hazard assessment is opportunistic.
func (uc *AssessHazardUseCase) Execute(ctx context.Context, propertyID uuid.UUID) (*domain.HazardAssessment, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case":    "AssessHazard",
		"property_id": propertyID.String(),
	})

	prop, err := uc.properties.GetProperty(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("loading property for hazard assessment: %w", err)
	}
	if prop == nil {
		logger.Warn("Property not found for hazard assessment", nil)
		return nil, nil
	}
	if prop.Latitude == nil || prop.Longitude == nil {
		logger.Info("Property has no coordinates, skipping hazard assessment", nil)
		return nil, nil
	}

	lat, lng := *prop.Latitude, *prop.Longitude
	meshCode := geo.LatLngToMesh(lat, lng, 3)

	logger.Info("Starting hazard assessment", port.Fields{
		"lat":       lat,
		"lng":       lng,
		"mesh_code": meshCode,
	})

	results := uc.fanOut(ctx, lat, lng)

	assessment := uc.foldResults(logger, propertyID, lat, lng, meshCode, results)

	if existing, err := uc.hazards.GetAssessment(ctx, propertyID); err != nil {
		return nil, fmt.Errorf("looking up existing assessment: %w", err)
	} else if existing != nil {
		assessment.ID = existing.ID
	}

	if err := uc.hazards.UpsertAssessment(ctx, assessment); err != nil {
		return nil, fmt.Errorf("persisting hazard assessment: %w", err)
	}

	sources := make([]string, 0, len(assessment.DataSources))
	for k := range assessment.DataSources {
		sources = append(sources, k)
	}
	logger.Info("Hazard assessment complete", port.Fields{"sources": sources})
	return assessment, nil
}

// fanOut issues all provider calls in parallel and joins before returning.
func (uc *AssessHazardUseCase) fanOut(ctx context.Context, lat, lng float64) *providerResults {
	tileX, tileY := geo.LatLngToTile(lat, lng, hazardTileZoom)

	results := &providerResults{}
	var wg sync.WaitGroup

	wg.Add(8)
	go func() {
		defer wg.Done()
		results.seismic, results.seismicErr = uc.seismic.GetSeismicHazard(ctx, lat, lng)
	}()
	go func() {
		defer wg.Done()
		results.landslide, results.landslideErr = uc.seismic.GetLandslideRisk(ctx, lat, lng, 1)
	}()
	go func() {
		defer wg.Done()
		results.avgHazard, results.avgHazardErr = uc.seismic.GetAverageHazard(ctx, lat, lng)
	}()
	go func() {
		defer wg.Done()
		results.floodTile, results.floodTileErr = uc.tiles.GetTile(ctx, "flood", hazardTileZoom, tileX, tileY)
	}()
	go func() {
		defer wg.Done()
		results.tsunamiTile, results.tsunamiTileErr = uc.tiles.GetTile(ctx, "tsunami", hazardTileZoom, tileX, tileY)
	}()
	go func() {
		defer wg.Done()
		results.disasterOverlay, results.disasterOverlayErr = uc.overlays.GetDisasterZoneTile(ctx, hazardTileZoom, tileX, tileY)
	}()
	go func() {
		defer wg.Done()
		results.landslideOverlay, results.landslideOverlayErr = uc.overlays.GetLandslidePreventionTile(ctx, hazardTileZoom, tileX, tileY)
	}()
	go func() {
		defer wg.Done()
		results.steepOverlay, results.steepOverlayErr = uc.overlays.GetSteepSlopeTile(ctx, hazardTileZoom, tileX, tileY)
	}()

	wg.Wait()
	return results
}

func (uc *AssessHazardUseCase) foldResults(
	logger port.LoggerPort,
	propertyID uuid.UUID,
	lat, lng float64,
	meshCode string,
	results *providerResults,
) *domain.HazardAssessment {
	assessment := &domain.HazardAssessment{
		ID:          uuid.New(),
		PropertyID:  propertyID,
		MeshCode:    meshCode,
		AssessedAt:  time.Now().UTC(),
		DataSources: map[string]string{},
	}

	// Seismic exceedance probabilities
	if results.seismicErr == nil && results.seismic != nil {
		assessment.SeismicIntensityProb = parseSeismicResponse(results.seismic)
		assessment.DataSources["seismic"] = "J-SHIS pshm"
	} else if results.seismicErr != nil {
		logger.Warn("Seismic hazard API failed", port.Fields{"error": results.seismicErr.Error()})
	}

	// PGA and liquefaction proxy from the average hazard record
	if results.avgHazardErr == nil && results.avgHazard != nil {
		assessment.PGA475yr = extractPGA(results.avgHazard)
		assessment.LiquefactionRisk = estimateLiquefaction(results.avgHazard)
		assessment.DataSources["avg_hazard"] = "J-SHIS avghazard"
	} else if results.avgHazardErr != nil {
		logger.Warn("Average hazard API failed", port.Fields{"error": results.avgHazardErr.Error()})
	}

	// Landslide features
	if results.landslideErr == nil && results.landslide != nil {
		risk, steep, prevention := parseLandslideResponse(results.landslide)
		assessment.LandslideRisk = &risk
		assessment.SteepSlopeZone = steep
		assessment.LandslidePreventionZone = prevention
		assessment.DataSources["landslide"] = "J-SHIS landslide"
	} else if results.landslideErr != nil {
		logger.Warn("Landslide API failed", port.Fields{"error": results.landslideErr.Error()})
	}

	// Government overlay refinements
	if results.landslideOverlayErr == nil && len(results.landslideOverlay) > 0 {
		assessment.LandslidePreventionZone = true
		assessment.DataSources["landslide_prevention_overlay"] = "reinfolib XKT021"
	}
	if results.steepOverlayErr == nil && len(results.steepOverlay) > 0 {
		assessment.SteepSlopeZone = true
		assessment.DataSources["steep_slope_overlay"] = "reinfolib XKT022"
	}

	// Flood tile: decode the legend pixel; fall back to the conservative
	// presence default when the pixel cannot be read.
	if results.floodTileErr == nil && len(results.floodTile) > 0 {
		depth, source := decodeDepth(results.floodTile, lat, lng, 0.5)
		zone := "flood_risk_area"
		assessment.FloodZone = &zone
		assessment.FloodDepthMaxM = depth
		assessment.DataSources["flood"] = source
	} else if results.floodTileErr != nil {
		logger.Warn("Flood tile fetch failed", port.Fields{"error": results.floodTileErr.Error()})
	}

	if results.disasterOverlayErr == nil && len(results.disasterOverlay) > 0 {
		if assessment.FloodZone == nil {
			zone := "disaster_risk_zone"
			assessment.FloodZone = &zone
		}
		assessment.DataSources["disaster_zone_overlay"] = "reinfolib XKT016"
	}

	// Tsunami tile, same decode-then-fallback discipline.
	if results.tsunamiTileErr == nil && len(results.tsunamiTile) > 0 {
		depth, source := decodeDepth(results.tsunamiTile, lat, lng, 1.0)
		risk := "medium"
		assessment.TsunamiRisk = &risk
		assessment.TsunamiDepthMaxM = depth
		assessment.DataSources["tsunami"] = source
	} else if results.tsunamiTileErr != nil {
		logger.Warn("Tsunami tile fetch failed", port.Fields{"error": results.tsunamiTileErr.Error()})
	}

	return assessment
}

// decodeDepth reads the inundation depth from the legend-coloured pixel at
// the property position. An unreadable or unmatched pixel falls back to
// the conservative presence default.
func decodeDepth(tile []byte, lat, lng float64, fallback float64) (*float64, string) {
	_, _, px, py := geo.LatLngToTilePixel(lat, lng, hazardTileZoom)
	depth, ok, err := geo.FloodDepthAt(tile, px, py)
	if err == nil && ok {
		return &depth, "GSI disaportal legend"
	}
	return &fallback, "GSI disaportal presence"
}

// ExecuteBatch assesses properties with coordinates that lack an
// assessment, strictly sequentially with a delay between properties.
func (uc *AssessHazardUseCase) ExecuteBatch(ctx context.Context, limit int) (int, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case": "AssessHazardBatch",
	})

	props, err := uc.properties.FindUnassessed(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("selecting unassessed properties: %w", err)
	}
	if len(props) == 0 {
		logger.Info("No unassessed properties with coordinates found", nil)
		return 0, nil
	}

	logger.Info("Starting batch hazard assessment", port.Fields{"count": len(props)})

	assessed := 0
	for i := range props {
		if ctx.Err() != nil {
			return assessed, ctx.Err()
		}

		assessment, err := uc.Execute(ctx, props[i].ID)
		if err != nil {
			logger.Error("Failed to assess property, continuing batch", err, port.Fields{
				"property_id": props[i].ID.String(),
			})
		} else if assessment != nil {
			assessed++
		}

		if i < len(props)-1 {
			select {
			case <-ctx.Done():
				return assessed, ctx.Err()
			case <-time.After(batchInterPropertyDelay):
			}
		}
	}

	logger.Info("Batch hazard assessment complete", port.Fields{
		"total":    len(props),
		"assessed": assessed,
	})
	return assessed, nil
}

// ----------------------------------------------------------------------
// Response parsers
// ----------------------------------------------------------------------

// parseSeismicResponse extracts the 30-year exceedance probabilities from
// the nearest mesh feature, keyed by JMA intensity label.
func parseSeismicResponse(fc *port.GeoFeatureCollection) map[string]float64 {
	probs := map[string]float64{}
	if len(fc.Features) == 0 {
		return probs
	}

	props := fc.Features[0].Properties
	for _, level := range jmaIntensityLevels {
		if v, ok := toFloat(props["T30_"+level+"_P"]); ok {
			probs[level] = v
			continue
		}
		// Some dataset versions use a different key layout.
		if v, ok := toFloat(props["P_"+level+"_T30"]); ok {
			probs[level] = v
		}
	}
	return probs
}

// parseLandslideResponse classifies the landslide feature set into a risk
// label plus steep-slope / prevention-zone flags.
func parseLandslideResponse(fc *port.GeoFeatureCollection) (string, bool, bool) {
	if len(fc.Features) == 0 {
		return "low", false, false
	}

	steepSlope := false
	prevention := false
	maxRisk := 0

	for _, feature := range fc.Features {
		props := feature.Properties

		featureType := strings.ToLower(asString(props["type"]))
		name := asString(props["name"])

		if strings.Contains(featureType, "steep") || strings.Contains(name, "急傾斜") {
			steepSlope = true
		}
		if strings.Contains(featureType, "landslide") || strings.Contains(name, "地すべり") {
			prevention = true
		}

		riskVal := props["risk"]
		if riskVal == nil {
			riskVal = props["rank"]
		}
		if riskVal == nil {
			riskVal = props["R"]
		}
		if v, ok := toFloat(riskVal); ok && int(v) > maxRisk {
			maxRisk = int(v)
		}

		// Any feature within the search radius is a non-trivial signal.
		if maxRisk == 0 {
			maxRisk = 1
		}
	}

	var risk string
	switch {
	case maxRisk >= 4:
		risk = "very_high"
	case maxRisk >= 3:
		risk = "high"
	case maxRisk >= 2:
		risk = "medium"
	default:
		risk = "low"
	}
	return risk, steepSlope, prevention
}

// extractPGA reads the peak ground acceleration from the average hazard
// record, trying the key variants the dataset is known to use.
func extractPGA(fc *port.GeoFeatureCollection) *float64 {
	if len(fc.Features) == 0 {
		return nil
	}
	props := fc.Features[0].Properties
	for _, key := range []string{"PGA_475", "PGA", "AVS", "ARV"} {
		if v, ok := toFloat(props[key]); ok {
			rounded := round2(v)
			return &rounded
		}
	}
	return nil
}

// estimateLiquefaction proxies liquefaction susceptibility from Vs30:
// low shear-wave velocity means soft, liquefaction-prone soil.
func estimateLiquefaction(fc *port.GeoFeatureCollection) *string {
	if len(fc.Features) == 0 {
		return nil
	}
	props := fc.Features[0].Properties

	var vs30 float64
	found := false
	for _, key := range []string{"AVS", "VS30", "J_AVS"} {
		if v, ok := toFloat(props[key]); ok {
			vs30 = v
			found = true
			break
		}
	}
	if !found {
		return nil
	}

	var risk string
	switch {
	case vs30 < 150:
		risk = "high"
	case vs30 < 250:
		risk = "medium"
	case vs30 < 400:
		risk = "low"
	default:
		risk = "very_low"
	}
	return &risk
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		var f float64
		if _, err := fmt.Sscanf(n, "%g", &f); err == nil {
			return f, true
		}
	}
	return 0, false
}

func asString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
