package usecase

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"akiya-radar/internal/contextkeys"
	"akiya-radar/internal/core/domain"
	"akiya-radar/internal/core/port"

	"github.com/google/uuid"
)

// ScoringVersion identifies the current weight set and dimension logic.
// Bumping it creates parallel historical score rows per property.
const ScoringVersion = "1.0"

// Dimension weights, summing to 1.0.
var defaultWeights = map[string]float64{
	"rebuild":        0.25,
	"hazard":         0.20,
	"infrastructure": 0.15,
	"demographic":    0.15,
	"value":          0.15,
	"condition":      0.10,
}

// Japanese residential use-zone designations.
var residentialZones = map[string]struct{}{
	"第一種低層住居専用地域":  {},
	"第二種低層住居専用地域":  {},
	"第一種中高層住居専用地域": {},
	"第二種中高層住居専用地域": {},
	"第一種住居地域":      {},
	"第二種住居地域":      {},
	"準住居地域":        {},
	"田園住居地域":       {},
}

var commercialZones = map[string]struct{}{
	"近隣商業地域": {},
	"商業地域":   {},
}

// Floor-plan pattern: "3LDK", "4SLDK", "2DK".
var floorPlanRe = regexp.MustCompile(`(?i)(\d+)\s*[SLDK]+`)

// ScorePropertyUseCase computes the six-dimension investment score.
type ScorePropertyUseCase struct {
	properties port.PropertyStoragePort
	hazards    port.HazardStoragePort
	scores     port.ScoreStoragePort
	weights    map[string]float64
}

func NewScorePropertyUseCase(
	properties port.PropertyStoragePort,
	hazards port.HazardStoragePort,
	scores port.ScoreStoragePort,
) *ScorePropertyUseCase {
	return &ScorePropertyUseCase{
		properties: properties,
		hazards:    hazards,
		scores:     scores,
		weights:    defaultWeights,
	}
}

// Execute scores one property and persists the result, updating the
// existing row when one exists for the current version. Returns nil
// (without error) when the property does not exist.
func (uc *ScorePropertyUseCase) Execute(ctx context.Context, propertyID uuid.UUID) (*domain.PropertyScore, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case":    "ScoreProperty",
		"property_id": propertyID.String(),
	})

	prop, err := uc.properties.GetProperty(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("loading property for scoring: %w", err)
	}
	if prop == nil {
		logger.Warn("Property not found for scoring", nil)
		return nil, nil
	}

	hazard, err := uc.hazards.GetAssessment(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("loading hazard assessment: %w", err)
	}

	rebuild := scoreRebuild(prop)
	hazardScore := scoreHazard(hazard)
	infrastructure := scoreInfrastructure(prop)
	demographic := scoreDemographic()
	value := scoreValue(prop)
	condition := scoreCondition(prop, time.Now().UTC().Year())

	composite := rebuild*uc.weights["rebuild"] +
		hazardScore*uc.weights["hazard"] +
		infrastructure*uc.weights["infrastructure"] +
		demographic*uc.weights["demographic"] +
		value*uc.weights["value"] +
		condition*uc.weights["condition"]
	composite = round2(clampScore(composite))

	score := &domain.PropertyScore{
		ID:                  uuid.New(),
		PropertyID:          propertyID,
		ScoringVersion:      ScoringVersion,
		RebuildScore:        round2(rebuild),
		HazardScore:         round2(hazardScore),
		InfrastructureScore: round2(infrastructure),
		DemographicScore:    round2(demographic),
		ValueScore:          round2(value),
		ConditionScore:      round2(condition),
		CompositeScore:      composite,
		Weights:             uc.weights,
		ScoredAt:            time.Now().UTC(),
	}

	if existing, err := uc.scores.GetScore(ctx, propertyID, ScoringVersion); err != nil {
		return nil, fmt.Errorf("looking up existing score: %w", err)
	} else if existing != nil {
		score.ID = existing.ID
	}

	if err := uc.scores.UpsertScore(ctx, score); err != nil {
		return nil, fmt.Errorf("persisting score: %w", err)
	}

	// Denormalized composite on the property itself
	prop.CompositeScore = &composite
	if err := uc.properties.UpdateProperty(ctx, prop); err != nil {
		return nil, fmt.Errorf("updating property composite: %w", err)
	}

	logger.Info("Property scored", port.Fields{
		"composite":      composite,
		"rebuild":        score.RebuildScore,
		"hazard":         score.HazardScore,
		"infrastructure": score.InfrastructureScore,
		"value":          score.ValueScore,
		"condition":      score.ConditionScore,
	})
	return score, nil
}

// ExecuteBatch scores active properties that have no score at the current
// version. Individual failures are logged and skipped.
func (uc *ScorePropertyUseCase) ExecuteBatch(ctx context.Context, limit int) (int, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case": "ScorePropertyBatch",
		"version":  ScoringVersion,
	})

	props, err := uc.properties.FindUnscored(ctx, ScoringVersion, limit)
	if err != nil {
		return 0, fmt.Errorf("selecting unscored properties: %w", err)
	}

	scored := 0
	for i := range props {
		score, err := uc.Execute(ctx, props[i].ID)
		if err != nil {
			logger.Error("Failed to score property, continuing batch", err, port.Fields{
				"property_id": props[i].ID.String(),
			})
			continue
		}
		if score != nil {
			scored++
		}
	}

	logger.Info("Scoring batch complete", port.Fields{
		"requested": len(props),
		"scored":    scored,
	})
	return scored, nil
}

// ----------------------------------------------------------------------
// Dimension scoring (each returns 0-100)
// ----------------------------------------------------------------------

// scoreRebuild is the deal-killer dimension: an explicitly un-rebuildable
// property scores 0 no matter what the road/zoning attributes say.
func scoreRebuild(prop *domain.Property) float64 {
	if prop.RebuildPossible != nil && !*prop.RebuildPossible {
		return 0.0
	}

	score := 50.0
	if prop.RebuildPossible != nil && *prop.RebuildPossible {
		score = 80.0
	}

	// Road width, max +20
	if prop.RoadWidthM != nil {
		switch {
		case *prop.RoadWidthM >= 4.0:
			score += 20.0 // Building Standards Act requirement met
		case *prop.RoadWidthM >= 3.0:
			score += 10.0 // setback likely required
		}
	} else {
		score -= 10.0
	}

	// Road frontage, max +20
	if prop.RoadFrontageM != nil {
		if *prop.RoadFrontageM >= 2.0 {
			score += 20.0
		}
	} else {
		score -= 10.0
	}

	if prop.ZoningUse != nil {
		if _, ok := residentialZones[*prop.ZoningUse]; ok {
			score += 5.0
		} else if _, ok := commercialZones[*prop.ZoningUse]; ok {
			score += 3.0
		}
	}

	return clampScore(score)
}

// scoreHazard inverts natural-disaster risk: four sub-dimensions of up to
// 25 points each. Missing sub-data earns neutral half credit, and a
// missing assessment altogether is a flat neutral 50.
func scoreHazard(hazard *domain.HazardAssessment) float64 {
	if hazard == nil {
		return 50.0
	}

	score := 0.0

	score += depthSubScore(hazard.FloodDepthMaxM)

	if hazard.PGA475yr != nil {
		switch pga := *hazard.PGA475yr; {
		case pga < 1.5:
			score += 25.0
		case pga < 2.0:
			score += 20.0
		case pga < 2.5:
			score += 15.0
		default:
			score += 5.0
		}
	} else {
		score += 12.5
	}

	if hazard.LandslideRisk != nil {
		switch strings.ToLower(*hazard.LandslideRisk) {
		case "low", "none":
			score += 25.0
		case "medium":
			score += 15.0
		case "high":
			score += 5.0
		case "very_high":
			// +0
		default:
			score += 12.5
		}
	} else {
		score += 12.5
	}

	score += depthSubScore(hazard.TsunamiDepthMaxM)

	return clampScore(score)
}

func depthSubScore(depth *float64) float64 {
	if depth == nil {
		return 12.5
	}
	switch d := *depth; {
	case d <= 0.0:
		return 25.0
	case d < 0.5:
		return 20.0
	case d < 1.0:
		return 15.0
	case d < 3.0:
		return 5.0
	default:
		return 0.0
	}
}

func scoreInfrastructure(prop *domain.Property) float64 {
	if prop.Latitude == nil || prop.Longitude == nil {
		return 50.0
	}

	score := 50.0

	if prop.ZoningUse != nil {
		if _, ok := commercialZones[*prop.ZoningUse]; ok {
			score += 20.0
		} else if _, ok := residentialZones[*prop.ZoningUse]; ok {
			score += 10.0
		}
	}

	if prop.FloorPlan != nil && *prop.FloorPlan != "" {
		if m := floorPlanRe.FindStringSubmatch(*prop.FloorPlan); m != nil {
			rooms, _ := strconv.Atoi(m[1])
			switch {
			case rooms >= 4:
				score += 15.0
			case rooms >= 3:
				score += 10.0
			case rooms >= 2:
				score += 5.0
			}
		}
		if strings.Contains(strings.ToLower(*prop.FloorPlan), "ldk") {
			score += 5.0
		}
	}

	return clampScore(score)
}

// scoreDemographic is a neutral placeholder until population mesh data
// is loaded and queryable.
func scoreDemographic() float64 {
	return 50.0
}

func scoreValue(prop *domain.Property) float64 {
	if prop.PriceYen == nil || prop.LandAreaSqm == nil || *prop.LandAreaSqm <= 0 {
		return 50.0
	}

	pricePerSqm := float64(*prop.PriceYen) / *prop.LandAreaSqm
	switch {
	case pricePerSqm < 10_000:
		return 90.0
	case pricePerSqm < 20_000:
		return 80.0
	case pricePerSqm < 50_000:
		return 70.0
	case pricePerSqm < 100_000:
		return 50.0
	default:
		return 30.0
	}
}

func scoreCondition(prop *domain.Property, currentYear int) float64 {
	if prop.YearBuilt == nil {
		return 40.0
	}

	age := currentYear - *prop.YearBuilt
	if age < 0 {
		// Future year built is a data-quality anomaly, treat as new.
		age = 0
	}

	life := structureUsefulLife(prop.Structure)
	remaining := math.Max(0, float64(life-age)/float64(life))

	// 70 pts from remaining useful life + 30 pts land-value floor.
	return clampScore(remaining*70.0 + 30.0)
}

// structureUsefulLife returns the statutory useful life in years for the
// building structure, per Japanese tax depreciation schedules. Unknown
// structures default to wood (22 years).
func structureUsefulLife(structure *string) int {
	if structure == nil || *structure == "" {
		return 22
	}
	s := strings.ToLower(*structure)

	for _, kw := range []string{"鉄筋コンクリート", "rc", "src", "鉄骨鉄筋"} {
		if strings.Contains(s, kw) {
			return 47
		}
	}
	for _, kw := range []string{"軽量鉄骨", "light steel", "light-steel"} {
		if strings.Contains(s, kw) {
			return 27
		}
	}
	for _, kw := range []string{"重量鉄骨", "鉄骨造", "steel"} {
		if strings.Contains(s, kw) {
			return 34
		}
	}
	return 22
}

func clampScore(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
