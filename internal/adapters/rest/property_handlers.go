package rest

import (
	"net/http"
	"net/url"
	"strconv"

	"akiya-radar/internal/contextkeys"
	"akiya-radar/internal/core/domain"
	"akiya-radar/internal/core/port"
	"akiya-radar/internal/core/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type PropertyHandler struct {
	properties port.PropertyStoragePort
	hazards    port.HazardStoragePort
	scores     port.ScoreStoragePort
}

func NewPropertyHandler(properties port.PropertyStoragePort,
	hazards port.HazardStoragePort,
	scores port.ScoreStoragePort) *PropertyHandler {
	return &PropertyHandler{
		properties: properties,
		hazards:    hazards,
		scores:     scores,
	}
}

// FindProperties handles GET /api/v1/properties. Either a municipality
// substring or a full lat/lng bounding box selects the result set.
func (h *PropertyHandler) FindProperties(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context())
	query := r.URL.Query()

	limit, err := GetLimitOrDefault(r)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, "Invalid limit")
		return
	}

	var results []domain.Property
	if box, ok, err := parseBoundingBox(query); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "Invalid bounding box")
		return
	} else if ok {
		handlerLogger := logger.WithFields(port.Fields{
			"handler": "FindProperties",
			"mode":    "bounding_box",
		})
		results, err = h.properties.FindByBoundingBox(r.Context(), box.latMin, box.latMax, box.lngMin, box.lngMax)
		if err != nil {
			handlerLogger.Error("Bounding box query failed", err, nil)
			WriteJSONError(w, http.StatusInternalServerError, "Failed to find properties")
			return
		}
		if len(results) > limit {
			results = results[:limit]
		}
	} else {
		municipality := query.Get("municipality")
		if municipality == "" {
			WriteJSONError(w, http.StatusBadRequest, "municipality or a full lat_min/lat_max/lng_min/lng_max box is required")
			return
		}
		handlerLogger := logger.WithFields(port.Fields{
			"handler":      "FindProperties",
			"mode":         "municipality",
			"municipality": municipality,
		})
		results, err = h.properties.FindByMunicipalitySubstring(r.Context(), municipality, limit)
		if err != nil {
			handlerLogger.Error("Municipality query failed", err, nil)
			WriteJSONError(w, http.StatusInternalServerError, "Failed to find properties")
			return
		}
	}

	response := PropertyListResponse{
		Data:  make([]PropertyCardResponse, len(results)),
		Total: len(results),
	}
	for i, p := range results {
		response.Data[i] = PropertyCardResponse{
			ID:             p.ID.String(),
			AddressJa:      p.AddressJa,
			Prefecture:     p.Prefecture,
			Municipality:   p.Municipality,
			PriceYen:       p.PriceYen,
			LandAreaSqm:    p.LandAreaSqm,
			FloorPlan:      p.FloorPlan,
			YearBuilt:      p.YearBuilt,
			CompositeScore: p.CompositeScore,
			Status:         p.Status,
		}
	}
	RespondWithJSON(w, http.StatusOK, response)
}

// GetProperty handles GET /api/v1/properties/{propertyID}
func (h *PropertyHandler) GetProperty(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context())

	propertyID, ok := parsePropertyID(w, r, logger)
	if !ok {
		return
	}

	property, err := h.properties.GetProperty(r.Context(), propertyID)
	if err != nil {
		logger.Error("Failed to load property", err, port.Fields{"property_id": propertyID.String()})
		WriteJSONError(w, http.StatusInternalServerError, "Failed to load property")
		return
	}
	if property == nil {
		WriteJSONError(w, http.StatusNotFound, "Property not found")
		return
	}

	RespondWithJSON(w, http.StatusOK, PropertyDetailsResponse{
		ID:                property.ID.String(),
		AddressJa:         property.AddressJa,
		AddressNormalized: property.AddressNormalized,
		Prefecture:        property.Prefecture,
		Municipality:      property.Municipality,
		Latitude:          property.Latitude,
		Longitude:         property.Longitude,
		PriceYen:          property.PriceYen,
		LandAreaSqm:       property.LandAreaSqm,
		BuildingAreaSqm:   property.BuildingAreaSqm,
		FloorPlan:         property.FloorPlan,
		YearBuilt:         property.YearBuilt,
		Structure:         property.Structure,
		FloorCount:        property.FloorCount,
		RoadWidthM:        property.RoadWidthM,
		RoadFrontageM:     property.RoadFrontageM,
		RebuildPossible:   property.RebuildPossible,
		ZoningUse:         property.ZoningUse,
		BuildingCoverage:  property.BuildingCoverage,
		FloorAreaRatio:    property.FloorAreaRatio,
		CompositeScore:    property.CompositeScore,
		Status:            property.Status,
		FirstSeenAt:       property.FirstSeenAt,
		LastSeenAt:        property.LastSeenAt,
	})
}

// GetHazard handles GET /api/v1/properties/{propertyID}/hazard
func (h *PropertyHandler) GetHazard(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context())

	propertyID, ok := parsePropertyID(w, r, logger)
	if !ok {
		return
	}

	assessment, err := h.hazards.GetAssessment(r.Context(), propertyID)
	if err != nil {
		logger.Error("Failed to load hazard assessment", err, port.Fields{"property_id": propertyID.String()})
		WriteJSONError(w, http.StatusInternalServerError, "Failed to load hazard assessment")
		return
	}
	if assessment == nil {
		WriteJSONError(w, http.StatusNotFound, "Hazard assessment not found")
		return
	}

	RespondWithJSON(w, http.StatusOK, HazardResponse{
		PropertyID:              assessment.PropertyID.String(),
		SeismicIntensityProb:    assessment.SeismicIntensityProb,
		PGA475yr:                assessment.PGA475yr,
		LiquefactionRisk:        assessment.LiquefactionRisk,
		FloodDepthMaxM:          assessment.FloodDepthMaxM,
		FloodZone:               assessment.FloodZone,
		TsunamiRisk:             assessment.TsunamiRisk,
		TsunamiDepthMaxM:        assessment.TsunamiDepthMaxM,
		LandslideRisk:           assessment.LandslideRisk,
		SteepSlopeZone:          assessment.SteepSlopeZone,
		LandslidePreventionZone: assessment.LandslidePreventionZone,
		MeshCode:                assessment.MeshCode,
		AssessedAt:              assessment.AssessedAt,
		Sources:                 assessment.DataSources,
	})
}

// GetScore handles GET /api/v1/properties/{propertyID}/score. The version
// query parameter selects a historical scoring version; it defaults to the
// current one.
func (h *PropertyHandler) GetScore(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context())

	propertyID, ok := parsePropertyID(w, r, logger)
	if !ok {
		return
	}

	version := r.URL.Query().Get("version")
	if version == "" {
		version = usecase.ScoringVersion
	}

	score, err := h.scores.GetScore(r.Context(), propertyID, version)
	if err != nil {
		logger.Error("Failed to load score", err, port.Fields{"property_id": propertyID.String(), "version": version})
		WriteJSONError(w, http.StatusInternalServerError, "Failed to load score")
		return
	}
	if score == nil {
		WriteJSONError(w, http.StatusNotFound, "Score not found")
		return
	}

	RespondWithJSON(w, http.StatusOK, ScoreResponse{
		PropertyID:          score.PropertyID.String(),
		ScoringVersion:      score.ScoringVersion,
		RebuildScore:        score.RebuildScore,
		HazardScore:         score.HazardScore,
		InfrastructureScore: score.InfrastructureScore,
		DemographicScore:    score.DemographicScore,
		ValueScore:          score.ValueScore,
		ConditionScore:      score.ConditionScore,
		CompositeScore:      score.CompositeScore,
		Weights:             score.Weights,
		ScoredAt:            score.ScoredAt,
	})
}

func parsePropertyID(w http.ResponseWriter, r *http.Request, logger port.LoggerPort) (uuid.UUID, bool) {
	propertyIDStr := chi.URLParam(r, "propertyID")
	propertyID, err := uuid.Parse(propertyIDStr)
	if err != nil {
		logger.Warn("Invalid property ID format", port.Fields{"error": err.Error()})
		WriteJSONError(w, http.StatusBadRequest, "Invalid property ID format")
		return uuid.Nil, false
	}
	return propertyID, true
}

type boundingBox struct {
	latMin, latMax, lngMin, lngMax float64
}

// parseBoundingBox returns (box, true, nil) only when all four parameters
// are present and parse; no parameters at all is (zero, false, nil).
func parseBoundingBox(query url.Values) (boundingBox, bool, error) {
	keys := []string{"lat_min", "lat_max", "lng_min", "lng_max"}
	present := 0
	values := make([]float64, len(keys))
	for i, key := range keys {
		raw := query.Get(key)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return boundingBox{}, false, err
		}
		values[i] = v
		present++
	}
	if present == 0 {
		return boundingBox{}, false, nil
	}
	if present < len(keys) {
		return boundingBox{}, false, strconv.ErrSyntax
	}
	return boundingBox{latMin: values[0], latMax: values[1], lngMin: values[2], lngMax: values[3]}, true, nil
}
