package usecase

import (
	"context"
	"fmt"

	"akiya-radar/internal/contextkeys"
	"akiya-radar/internal/core/domain"
	"akiya-radar/internal/core/port"
	"akiya-radar/internal/geo"
	"akiya-radar/internal/jptext"
)

const (
	addressSimilarityThreshold = 0.85
	spatialMatchDistanceM      = 50.0
	// ±0.0005 degrees is roughly 50m at Japanese latitudes.
	spatialBoundingBoxDelta = 0.0005
	fuzzyCandidateLimit     = 100
)

// FindMatchingPropertyUseCase matches an incoming raw listing against
// existing canonical properties.
type FindMatchingPropertyUseCase struct {
	storage port.PropertyStoragePort
}

func NewFindMatchingPropertyUseCase(storage port.PropertyStoragePort) *FindMatchingPropertyUseCase {
	return &FindMatchingPropertyUseCase{storage: storage}
}

// Execute runs the three-tier cascade and returns the first match:
// exact normalized address, then fuzzy address within the municipality,
// then spatial proximity. Returns nil when all tiers miss.
func (uc *FindMatchingPropertyUseCase) Execute(ctx context.Context, raw domain.RawListing) (*domain.Property, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case":  "FindMatchingProperty",
		"source":    raw.Source,
		"source_id": raw.SourceID,
	})

	var normalized string
	if raw.Address != nil {
		normalized = jptext.NormalizeAddress(*raw.Address)
	}

	// Tier 1: exact normalized address
	if normalized != "" {
		prop, err := uc.storage.FindByNormalizedAddress(ctx, normalized)
		if err != nil {
			return nil, fmt.Errorf("exact address lookup: %w", err)
		}
		if prop != nil {
			logger.Debug("Matched by exact normalized address", port.Fields{"property_id": prop.ID})
			return prop, nil
		}
	}

	// Tier 2: fuzzy address within municipality
	if normalized != "" && raw.Municipality != nil && *raw.Municipality != "" {
		prop, err := uc.fuzzyAddressMatch(ctx, normalized, *raw.Municipality)
		if err != nil {
			return nil, err
		}
		if prop != nil {
			logger.Debug("Matched by fuzzy address", port.Fields{"property_id": prop.ID})
			return prop, nil
		}
	}

	// Tier 3: spatial proximity
	if raw.Latitude != nil && raw.Longitude != nil {
		prop, err := uc.spatialMatch(ctx, *raw.Latitude, *raw.Longitude)
		if err != nil {
			return nil, err
		}
		if prop != nil {
			logger.Debug("Matched by spatial proximity", port.Fields{"property_id": prop.ID})
			return prop, nil
		}
	}

	return nil, nil
}

func (uc *FindMatchingPropertyUseCase) fuzzyAddressMatch(ctx context.Context, normalized, municipality string) (*domain.Property, error) {
	candidates, err := uc.storage.FindByMunicipalitySubstring(ctx, municipality, fuzzyCandidateLimit)
	if err != nil {
		return nil, fmt.Errorf("fuzzy candidate lookup: %w", err)
	}

	var best *domain.Property
	bestScore := 0.0

	for i := range candidates {
		candidate := &candidates[i]
		if candidate.AddressNormalized == nil || *candidate.AddressNormalized == "" {
			continue
		}
		score := BigramSimilarity(normalized, *candidate.AddressNormalized)
		// Strictly greater keeps the first-encountered candidate on ties.
		if score > bestScore && score >= addressSimilarityThreshold {
			bestScore = score
			best = candidate
		}
	}

	return best, nil
}

func (uc *FindMatchingPropertyUseCase) spatialMatch(ctx context.Context, lat, lng float64) (*domain.Property, error) {
	candidates, err := uc.storage.FindByBoundingBox(ctx,
		lat-spatialBoundingBoxDelta, lat+spatialBoundingBoxDelta,
		lng-spatialBoundingBoxDelta, lng+spatialBoundingBoxDelta,
	)
	if err != nil {
		return nil, fmt.Errorf("bounding box lookup: %w", err)
	}

	for i := range candidates {
		candidate := &candidates[i]
		if candidate.Latitude == nil || candidate.Longitude == nil {
			continue
		}
		dist := geo.DistanceM(lat, lng, *candidate.Latitude, *candidate.Longitude)
		if dist <= spatialMatchDistanceM {
			return candidate, nil
		}
	}

	return nil, nil
}

// BigramSimilarity is the Jaccard similarity of the character-bigram sets
// of two strings. Strings shorter than two runes contribute themselves as
// a single-element set. Two empty sets score 0.0, not NaN.
func BigramSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}

	bgA := bigrams(a)
	bgB := bigrams(b)

	intersection := 0
	for bg := range bgA {
		if _, ok := bgB[bg]; ok {
			intersection++
		}
	}
	union := len(bgA) + len(bgB) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}

func bigrams(s string) map[string]struct{} {
	runes := []rune(s)
	set := make(map[string]struct{})
	if len(runes) < 2 {
		set[s] = struct{}{}
		return set
	}
	for i := 0; i+1 < len(runes); i++ {
		set[string(runes[i:i+2])] = struct{}{}
	}
	return set
}
