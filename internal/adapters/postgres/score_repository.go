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

// ScoreRepository implements ScoreStoragePort for PostgreSQL.
type ScoreRepository struct {
	pool *pgxpool.Pool
}

func NewScoreRepository(pool *pgxpool.Pool) (*ScoreRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgxpool.Pool cannot be nil")
	}
	return &ScoreRepository{pool: pool}, nil
}

func (r *ScoreRepository) GetScore(ctx context.Context, propertyID uuid.UUID, version string) (*domain.PropertyScore, error) {
	query := `
		SELECT id, property_id, scoring_version, rebuild_score, hazard_score,
		       infrastructure_score, demographic_score, value_score,
		       condition_score, composite_score, weights, scored_at
		FROM property_scores
		WHERE property_id = $1 AND scoring_version = $2`

	var s domain.PropertyScore
	var weightsJSON []byte
	err := dbFrom(ctx, r.pool).QueryRow(ctx, query, propertyID, version).Scan(
		&s.ID, &s.PropertyID, &s.ScoringVersion, &s.RebuildScore, &s.HazardScore,
		&s.InfrastructureScore, &s.DemographicScore, &s.ValueScore,
		&s.ConditionScore, &s.CompositeScore, &weightsJSON, &s.ScoredAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get score for property %s: %w", propertyID, err)
	}

	if len(weightsJSON) > 0 {
		if err := json.Unmarshal(weightsJSON, &s.Weights); err != nil {
			return nil, fmt.Errorf("failed to unmarshal score weights: %w", err)
		}
	}
	return &s, nil
}

func (r *ScoreRepository) UpsertScore(ctx context.Context, s *domain.PropertyScore) error {
	weightsJSON, err := json.Marshal(s.Weights)
	if err != nil {
		return fmt.Errorf("failed to marshal score weights: %w", err)
	}

	query := `
		INSERT INTO property_scores (
			id, property_id, scoring_version, rebuild_score, hazard_score,
			infrastructure_score, demographic_score, value_score,
			condition_score, composite_score, weights, scored_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (property_id, scoring_version) DO UPDATE SET
			rebuild_score = EXCLUDED.rebuild_score,
			hazard_score = EXCLUDED.hazard_score,
			infrastructure_score = EXCLUDED.infrastructure_score,
			demographic_score = EXCLUDED.demographic_score,
			value_score = EXCLUDED.value_score,
			condition_score = EXCLUDED.condition_score,
			composite_score = EXCLUDED.composite_score,
			weights = EXCLUDED.weights,
			scored_at = EXCLUDED.scored_at
		RETURNING id`

	err = dbFrom(ctx, r.pool).QueryRow(ctx, query,
		s.ID, s.PropertyID, s.ScoringVersion, s.RebuildScore, s.HazardScore,
		s.InfrastructureScore, s.DemographicScore, s.ValueScore,
		s.ConditionScore, s.CompositeScore, weightsJSON, s.ScoredAt,
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert property score: %w", err)
	}
	return nil
}

var _ port.ScoreStoragePort = (*ScoreRepository)(nil)
