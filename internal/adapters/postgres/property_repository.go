package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"akiya-radar/internal/contextkeys"
	"akiya-radar/internal/core/domain"
	"akiya-radar/internal/core/port"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mmcloughlin/geohash"
)

// geohashPrecision 5 gives ~4.9 km cells, wide enough that the spatial
// dedup box never spans more than a cell and its neighbors.
const geohashPrecision = 5

// PropertyRepository implements PropertyStoragePort for PostgreSQL.
type PropertyRepository struct {
	pool *pgxpool.Pool
}

func NewPropertyRepository(pool *pgxpool.Pool) (*PropertyRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgxpool.Pool cannot be nil")
	}
	return &PropertyRepository{pool: pool}, nil
}

const propertyColumns = `
	id, address_ja, address_normalized, prefecture, municipality,
	latitude, longitude, price_yen, land_area_sqm, building_area_sqm,
	floor_plan, year_built, structure, floor_count, road_width_m,
	road_frontage_m, rebuild_possible, zoning_use, building_coverage,
	floor_area_ratio, composite_score, status, first_seen_at, last_seen_at`

func scanProperty(row pgx.Row) (*domain.Property, error) {
	var p domain.Property
	err := row.Scan(
		&p.ID, &p.AddressJa, &p.AddressNormalized, &p.Prefecture, &p.Municipality,
		&p.Latitude, &p.Longitude, &p.PriceYen, &p.LandAreaSqm, &p.BuildingAreaSqm,
		&p.FloorPlan, &p.YearBuilt, &p.Structure, &p.FloorCount, &p.RoadWidthM,
		&p.RoadFrontageM, &p.RebuildPossible, &p.ZoningUse, &p.BuildingCoverage,
		&p.FloorAreaRatio, &p.CompositeScore, &p.Status, &p.FirstSeenAt, &p.LastSeenAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PropertyRepository) GetProperty(ctx context.Context, id uuid.UUID) (*domain.Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties WHERE id = $1`

	p, err := scanProperty(dbFrom(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get property %s: %w", id, err)
	}
	return p, nil
}

func (r *PropertyRepository) FindByNormalizedAddress(ctx context.Context, normalized string) (*domain.Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties WHERE address_normalized = $1`

	p, err := scanProperty(dbFrom(ctx, r.pool).QueryRow(ctx, query, normalized))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find property by normalized address: %w", err)
	}
	return p, nil
}

func (r *PropertyRepository) FindByMunicipalitySubstring(ctx context.Context, municipality string, limit int) ([]domain.Property, error) {
	query := `
		SELECT ` + propertyColumns + `
		FROM properties
		WHERE address_ja LIKE '%' || $1 || '%'
		ORDER BY first_seen_at, id
		LIMIT $2`

	rows, err := dbFrom(ctx, r.pool).Query(ctx, query, municipality, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query properties by municipality: %w", err)
	}
	return collectProperties(rows)
}

// FindByBoundingBox prunes candidates to the geohash cell of the box
// center and its eight neighbors, then filters to the exact box.
func (r *PropertyRepository) FindByBoundingBox(ctx context.Context, latMin, latMax, lngMin, lngMax float64) ([]domain.Property, error) {
	center := geohash.EncodeWithPrecision((latMin+latMax)/2, (lngMin+lngMax)/2, geohashPrecision)
	cells := append(geohash.Neighbors(center), center)

	query := `
		SELECT ` + propertyColumns + `
		FROM properties
		WHERE geohash = ANY($1)
		  AND latitude BETWEEN $2 AND $3
		  AND longitude BETWEEN $4 AND $5
		ORDER BY first_seen_at, id`

	rows, err := dbFrom(ctx, r.pool).Query(ctx, query, cells, latMin, latMax, lngMin, lngMax)
	if err != nil {
		return nil, fmt.Errorf("failed to query properties by bounding box: %w", err)
	}
	return collectProperties(rows)
}

func collectProperties(rows pgx.Rows) ([]domain.Property, error) {
	defer rows.Close()

	var props []domain.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan property: %w", err)
		}
		props = append(props, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during property iteration: %w", err)
	}
	return props, nil
}

func propertyGeohash(p *domain.Property) *string {
	if p.Latitude == nil || p.Longitude == nil {
		return nil
	}
	gh := geohash.EncodeWithPrecision(*p.Latitude, *p.Longitude, geohashPrecision)
	return &gh
}

func (r *PropertyRepository) CreateProperty(ctx context.Context, p *domain.Property) error {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component":   "PropertyRepository",
		"property_id": p.ID.String(),
	})

	query := `
		INSERT INTO properties (
			id, address_ja, address_normalized, prefecture, municipality,
			latitude, longitude, geohash, price_yen, land_area_sqm,
			building_area_sqm, floor_plan, year_built, structure, floor_count,
			road_width_m, road_frontage_m, rebuild_possible, zoning_use,
			building_coverage, floor_area_ratio, composite_score, status,
			first_seen_at, last_seen_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24, $25
		)`

	_, err := dbFrom(ctx, r.pool).Exec(ctx, query,
		p.ID, p.AddressJa, p.AddressNormalized, p.Prefecture, p.Municipality,
		p.Latitude, p.Longitude, propertyGeohash(p), p.PriceYen, p.LandAreaSqm,
		p.BuildingAreaSqm, p.FloorPlan, p.YearBuilt, p.Structure, p.FloorCount,
		p.RoadWidthM, p.RoadFrontageM, p.RebuildPossible, p.ZoningUse,
		p.BuildingCoverage, p.FloorAreaRatio, p.CompositeScore, p.Status,
		p.FirstSeenAt, p.LastSeenAt,
	)
	if err != nil {
		logger.Error("Failed to create property", err, nil)
		return fmt.Errorf("failed to create property: %w", err)
	}
	return nil
}

func (r *PropertyRepository) UpdateProperty(ctx context.Context, p *domain.Property) error {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component":   "PropertyRepository",
		"property_id": p.ID.String(),
	})

	query := `
		UPDATE properties SET
			address_ja = $2, address_normalized = $3, prefecture = $4,
			municipality = $5, latitude = $6, longitude = $7, geohash = $8,
			price_yen = $9, land_area_sqm = $10, building_area_sqm = $11,
			floor_plan = $12, year_built = $13, structure = $14,
			floor_count = $15, road_width_m = $16, road_frontage_m = $17,
			rebuild_possible = $18, zoning_use = $19, building_coverage = $20,
			floor_area_ratio = $21, composite_score = $22, status = $23,
			last_seen_at = $24
		WHERE id = $1`

	cmdTag, err := dbFrom(ctx, r.pool).Exec(ctx, query,
		p.ID, p.AddressJa, p.AddressNormalized, p.Prefecture, p.Municipality,
		p.Latitude, p.Longitude, propertyGeohash(p), p.PriceYen, p.LandAreaSqm,
		p.BuildingAreaSqm, p.FloorPlan, p.YearBuilt, p.Structure, p.FloorCount,
		p.RoadWidthM, p.RoadFrontageM, p.RebuildPossible, p.ZoningUse,
		p.BuildingCoverage, p.FloorAreaRatio, p.CompositeScore, p.Status,
		p.LastSeenAt,
	)
	if err != nil {
		logger.Error("Failed to update property", err, nil)
		return fmt.Errorf("failed to update property: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("property %s not found for update", p.ID)
	}
	return nil
}

func (r *PropertyRepository) FindListing(ctx context.Context, source, sourceID string) (*domain.Listing, error) {
	query := `
		SELECT id, property_id, source, source_id, url, title, price_yen,
		       status, raw_data, first_scraped_at, last_scraped_at
		FROM listings
		WHERE source = $1 AND source_id = $2`

	var l domain.Listing
	var rawJSON []byte
	err := dbFrom(ctx, r.pool).QueryRow(ctx, query, source, sourceID).Scan(
		&l.ID, &l.PropertyID, &l.Source, &l.SourceID, &l.URL, &l.Title,
		&l.PriceYen, &l.Status, &rawJSON, &l.FirstScrapedAt, &l.LastScrapedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find listing %s/%s: %w", source, sourceID, err)
	}

	if len(rawJSON) > 0 {
		if err := json.Unmarshal(rawJSON, &l.RawData); err != nil {
			return nil, fmt.Errorf("failed to unmarshal listing raw data: %w", err)
		}
	}
	return &l, nil
}

func (r *PropertyRepository) SaveListing(ctx context.Context, l *domain.Listing) error {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "PropertyRepository",
		"source":    l.Source,
		"source_id": l.SourceID,
	})

	rawJSON, err := json.Marshal(l.RawData)
	if err != nil {
		return fmt.Errorf("failed to marshal listing raw data: %w", err)
	}

	query := `
		INSERT INTO listings (
			id, property_id, source, source_id, url, title, price_yen,
			status, raw_data, first_scraped_at, last_scraped_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (source, source_id) DO UPDATE SET
			property_id = EXCLUDED.property_id,
			url = EXCLUDED.url,
			title = EXCLUDED.title,
			price_yen = EXCLUDED.price_yen,
			status = EXCLUDED.status,
			raw_data = EXCLUDED.raw_data,
			last_scraped_at = EXCLUDED.last_scraped_at
		RETURNING id`

	err = dbFrom(ctx, r.pool).QueryRow(ctx, query,
		l.ID, l.PropertyID, l.Source, l.SourceID, l.URL, l.Title, l.PriceYen,
		l.Status, rawJSON, l.FirstScrapedAt, l.LastScrapedAt,
	).Scan(&l.ID)
	if err != nil {
		logger.Error("Failed to save listing", err, nil)
		return fmt.Errorf("failed to save listing: %w", err)
	}
	return nil
}

func (r *PropertyRepository) ReplaceImages(ctx context.Context, listingID uuid.UUID, urls []string) error {
	db := dbFrom(ctx, r.pool)

	if _, err := db.Exec(ctx, `DELETE FROM property_images WHERE listing_id = $1`, listingID); err != nil {
		return fmt.Errorf("failed to delete old images: %w", err)
	}

	query := `INSERT INTO property_images (id, listing_id, url, position) VALUES ($1, $2, $3, $4)`
	for i, url := range urls {
		if _, err := db.Exec(ctx, query, uuid.New(), listingID, url, i); err != nil {
			return fmt.Errorf("failed to insert image %d: %w", i, err)
		}
	}
	return nil
}

// WithPropertyLock runs fn inside a transaction holding the advisory lock
// for the normalized address. The lock is transaction-scoped, so it is
// released automatically on commit or rollback.
func (r *PropertyRepository) WithPropertyLock(ctx context.Context, normalizedAddress string, fn func(ctx context.Context) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, addressLockKey(normalizedAddress)); err != nil {
		return fmt.Errorf("failed to take property lock: %w", err)
	}

	if err := fn(contextWithTx(ctx, tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit property transaction: %w", err)
	}
	return nil
}

func (r *PropertyRepository) FindUnassessed(ctx context.Context, limit int) ([]domain.Property, error) {
	query := `
		SELECT ` + propertyColumns + `
		FROM properties p
		WHERE p.latitude IS NOT NULL
		  AND p.longitude IS NOT NULL
		  AND NOT EXISTS (
			SELECT 1 FROM hazard_assessments h WHERE h.property_id = p.id
		  )
		ORDER BY p.first_seen_at, p.id
		LIMIT $1`

	rows, err := dbFrom(ctx, r.pool).Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query unassessed properties: %w", err)
	}
	return collectProperties(rows)
}

func (r *PropertyRepository) FindUnscored(ctx context.Context, version string, limit int) ([]domain.Property, error) {
	query := `
		SELECT ` + propertyColumns + `
		FROM properties p
		WHERE p.status = $1
		  AND NOT EXISTS (
			SELECT 1 FROM property_scores s
			WHERE s.property_id = p.id AND s.scoring_version = $2
		  )
		ORDER BY p.first_seen_at, p.id
		LIMIT $3`

	rows, err := dbFrom(ctx, r.pool).Query(ctx, query, domain.PropertyStatusActive, version, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query unscored properties: %w", err)
	}
	return collectProperties(rows)
}

var _ port.PropertyStoragePort = (*PropertyRepository)(nil)
