package usecase

import (
	"context"
	"fmt"
	"time"

	"akiya-radar/internal/contextkeys"
	"akiya-radar/internal/core/domain"
	"akiya-radar/internal/core/port"
	"akiya-radar/internal/jptext"

	"github.com/google/uuid"
)

// UpsertPropertyUseCase merges a raw listing into the canonical
// Property/Listing record set, creating a new Property when the
// deduplication cascade finds no match.
type UpsertPropertyUseCase struct {
	storage port.PropertyStoragePort
	dedup   *FindMatchingPropertyUseCase
}

func NewUpsertPropertyUseCase(storage port.PropertyStoragePort, dedup *FindMatchingPropertyUseCase) *UpsertPropertyUseCase {
	return &UpsertPropertyUseCase{storage: storage, dedup: dedup}
}

// Execute upserts one raw listing and reports whether a new canonical
// Property was created. The whole operation runs under a lock keyed by
// the normalized address, so two jobs landing the same physical property
// at once serialize instead of racing the dedup queries.
func (uc *UpsertPropertyUseCase) Execute(ctx context.Context, raw domain.RawListing) (isNew bool, err error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case":  "UpsertProperty",
		"source":    raw.Source,
		"source_id": raw.SourceID,
	})

	var normalized string
	if raw.Address != nil {
		normalized = jptext.NormalizeAddress(*raw.Address)
	}

	err = uc.storage.WithPropertyLock(ctx, normalized, func(ctx context.Context) error {
		var innerErr error
		isNew, innerErr = uc.upsertLocked(ctx, logger, raw, normalized)
		return innerErr
	})
	if err != nil {
		return false, fmt.Errorf("upserting listing %s/%s: %w", raw.Source, raw.SourceID, err)
	}
	return isNew, nil
}

func (uc *UpsertPropertyUseCase) upsertLocked(ctx context.Context, logger port.LoggerPort, raw domain.RawListing, normalized string) (bool, error) {
	now := time.Now().UTC()

	// Re-scrape of a listing we already track?
	existing, err := uc.storage.FindListing(ctx, raw.Source, raw.SourceID)
	if err != nil {
		return false, fmt.Errorf("listing lookup: %w", err)
	}

	if existing != nil {
		existing.PriceYen = raw.PriceYen
		existing.Title = raw.Title
		existing.RawData = raw.RawData
		existing.LastScrapedAt = now
		existing.Status = domain.PropertyStatusActive
		if err := uc.storage.SaveListing(ctx, existing); err != nil {
			return false, fmt.Errorf("updating listing: %w", err)
		}

		prop, err := uc.storage.GetProperty(ctx, existing.PropertyID)
		if err != nil {
			return false, fmt.Errorf("loading parent property: %w", err)
		}
		if prop != nil {
			mergeRawIntoProperty(prop, raw)
			prop.LastSeenAt = now
			if err := uc.storage.UpdateProperty(ctx, prop); err != nil {
				return false, fmt.Errorf("updating parent property: %w", err)
			}
		}

		logger.Debug("Re-scrape of known listing, updated in place", nil)
		return false, nil
	}

	prop, err := uc.dedup.Execute(ctx, raw)
	if err != nil {
		return false, fmt.Errorf("deduplication: %w", err)
	}

	isNew := false
	if prop == nil {
		address := "Unknown"
		if raw.Address != nil && *raw.Address != "" {
			address = *raw.Address
		}
		prop = &domain.Property{
			ID:                uuid.New(),
			AddressJa:         &address,
			AddressNormalized: &normalized,
			Status:            domain.PropertyStatusActive,
			FirstSeenAt:       now,
			LastSeenAt:        now,
		}
		mergeRawIntoProperty(prop, raw)
		if err := uc.storage.CreateProperty(ctx, prop); err != nil {
			return false, fmt.Errorf("creating property: %w", err)
		}
		isNew = true
		logger.Info("Created new canonical property", port.Fields{"property_id": prop.ID})
	} else {
		mergeRawIntoProperty(prop, raw)
		prop.LastSeenAt = now
		if err := uc.storage.UpdateProperty(ctx, prop); err != nil {
			return false, fmt.Errorf("merging into matched property: %w", err)
		}
		logger.Debug("Merged listing into existing property", port.Fields{"property_id": prop.ID})
	}

	listing := &domain.Listing{
		ID:             uuid.New(),
		PropertyID:     prop.ID,
		Source:         raw.Source,
		SourceID:       raw.SourceID,
		URL:            raw.URL,
		Title:          raw.Title,
		PriceYen:       raw.PriceYen,
		Status:         domain.PropertyStatusActive,
		RawData:        raw.RawData,
		FirstScrapedAt: now,
		LastScrapedAt:  now,
	}
	if err := uc.storage.SaveListing(ctx, listing); err != nil {
		return false, fmt.Errorf("creating listing: %w", err)
	}

	if len(raw.ImageURLs) > 0 {
		if err := uc.storage.ReplaceImages(ctx, listing.ID, raw.ImageURLs); err != nil {
			return false, fmt.Errorf("saving images: %w", err)
		}
	}

	return isNew, nil
}

// mergeRawIntoProperty applies the field-level merge rule: a property
// attribute is overwritten only when the incoming raw value is present,
// never nulled out.
func mergeRawIntoProperty(prop *domain.Property, raw domain.RawListing) {
	if raw.PriceYen != nil {
		prop.PriceYen = raw.PriceYen
	}
	if raw.LandAreaSqm != nil {
		prop.LandAreaSqm = raw.LandAreaSqm
	}
	if raw.BuildingAreaSqm != nil {
		prop.BuildingAreaSqm = raw.BuildingAreaSqm
	}
	if raw.FloorPlan != nil && *raw.FloorPlan != "" {
		prop.FloorPlan = raw.FloorPlan
	}
	if raw.YearBuilt != nil {
		prop.YearBuilt = raw.YearBuilt
	}
	if raw.Structure != nil && *raw.Structure != "" {
		prop.Structure = raw.Structure
	}
	if raw.FloorCount != nil {
		prop.FloorCount = raw.FloorCount
	}
	if raw.RoadWidthM != nil {
		prop.RoadWidthM = raw.RoadWidthM
	}
	if raw.RoadFrontageM != nil {
		prop.RoadFrontageM = raw.RoadFrontageM
	}
	if raw.RebuildPossible != nil {
		prop.RebuildPossible = raw.RebuildPossible
	}
	if raw.ZoningUse != nil && *raw.ZoningUse != "" {
		prop.ZoningUse = raw.ZoningUse
	}
	if raw.BuildingCoverage != nil {
		prop.BuildingCoverage = raw.BuildingCoverage
	}
	if raw.FloorAreaRatio != nil {
		prop.FloorAreaRatio = raw.FloorAreaRatio
	}
	if raw.Latitude != nil && raw.Longitude != nil {
		prop.Latitude = raw.Latitude
		prop.Longitude = raw.Longitude
	}
	if raw.Prefecture != nil && *raw.Prefecture != "" {
		prop.Prefecture = raw.Prefecture
	}
	if raw.Municipality != nil && *raw.Municipality != "" {
		prop.Municipality = raw.Municipality
	}
	if raw.Address != nil && *raw.Address != "" {
		prop.AddressJa = raw.Address
		normalized := jptext.NormalizeAddress(*raw.Address)
		prop.AddressNormalized = &normalized
	}
}
