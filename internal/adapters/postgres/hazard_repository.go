package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"akiya-radar/internal/core/domain"
	"akiya-radar/internal/core/port"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// HazardRepository implements HazardStoragePort for PostgreSQL.
type HazardRepository struct {
	pool *pgxpool.Pool
}

func NewHazardRepository(pool *pgxpool.Pool) (*HazardRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgxpool.Pool cannot be nil")
	}
	return &HazardRepository{pool: pool}, nil
}

func (r *HazardRepository) GetAssessment(ctx context.Context, propertyID uuid.UUID) (*domain.HazardAssessment, error) {
	query := `
		SELECT id, property_id, seismic_intensity_prob, pga_475yr,
		       liquefaction_risk, flood_depth_max_m, flood_zone,
		       tsunami_risk, tsunami_depth_max_m, landslide_risk,
		       steep_slope_zone, landslide_prevention_zone, mesh_code,
		       assessed_at, data_sources
		FROM hazard_assessments
		WHERE property_id = $1`

	var a domain.HazardAssessment
	var intensityJSON, sourcesJSON []byte
	err := dbFrom(ctx, r.pool).QueryRow(ctx, query, propertyID).Scan(
		&a.ID, &a.PropertyID, &intensityJSON, &a.PGA475yr,
		&a.LiquefactionRisk, &a.FloodDepthMaxM, &a.FloodZone,
		&a.TsunamiRisk, &a.TsunamiDepthMaxM, &a.LandslideRisk,
		&a.SteepSlopeZone, &a.LandslidePreventionZone, &a.MeshCode,
		&a.AssessedAt, &sourcesJSON,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get assessment for property %s: %w", propertyID, err)
	}

	if len(intensityJSON) > 0 {
		if err := json.Unmarshal(intensityJSON, &a.SeismicIntensityProb); err != nil {
			return nil, fmt.Errorf("failed to unmarshal seismic intensity: %w", err)
		}
	}
	if len(sourcesJSON) > 0 {
		if err := json.Unmarshal(sourcesJSON, &a.DataSources); err != nil {
			return nil, fmt.Errorf("failed to unmarshal data sources: %w", err)
		}
	}
	return &a, nil
}

func (r *HazardRepository) UpsertAssessment(ctx context.Context, a *domain.HazardAssessment) error {
	intensityJSON, err := json.Marshal(a.SeismicIntensityProb)
	if err != nil {
		return fmt.Errorf("failed to marshal seismic intensity: %w", err)
	}
	sourcesJSON, err := json.Marshal(a.DataSources)
	if err != nil {
		return fmt.Errorf("failed to marshal data sources: %w", err)
	}

	query := `
		INSERT INTO hazard_assessments (
			id, property_id, seismic_intensity_prob, pga_475yr,
			liquefaction_risk, flood_depth_max_m, flood_zone, tsunami_risk,
			tsunami_depth_max_m, landslide_risk, steep_slope_zone,
			landslide_prevention_zone, mesh_code, assessed_at, data_sources
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (property_id) DO UPDATE SET
			seismic_intensity_prob = EXCLUDED.seismic_intensity_prob,
			pga_475yr = EXCLUDED.pga_475yr,
			liquefaction_risk = EXCLUDED.liquefaction_risk,
			flood_depth_max_m = EXCLUDED.flood_depth_max_m,
			flood_zone = EXCLUDED.flood_zone,
			tsunami_risk = EXCLUDED.tsunami_risk,
			tsunami_depth_max_m = EXCLUDED.tsunami_depth_max_m,
			landslide_risk = EXCLUDED.landslide_risk,
			steep_slope_zone = EXCLUDED.steep_slope_zone,
			landslide_prevention_zone = EXCLUDED.landslide_prevention_zone,
			mesh_code = EXCLUDED.mesh_code,
			assessed_at = EXCLUDED.assessed_at,
			data_sources = EXCLUDED.data_sources
		RETURNING id`

	err = dbFrom(ctx, r.pool).QueryRow(ctx, query,
		a.ID, a.PropertyID, intensityJSON, a.PGA475yr,
		a.LiquefactionRisk, a.FloodDepthMaxM, a.FloodZone, a.TsunamiRisk,
		a.TsunamiDepthMaxM, a.LandslideRisk, a.SteepSlopeZone,
		a.LandslidePreventionZone, a.MeshCode, a.AssessedAt, sourcesJSON,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert hazard assessment: %w", err)
	}
	return nil
}

var _ port.HazardStoragePort = (*HazardRepository)(nil)
