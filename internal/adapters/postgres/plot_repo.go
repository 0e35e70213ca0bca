package postgres

import (
	"context"
	"fmt"

	"github.com/basobaas/plotline/internal/core/domain"
)

// PlotRepo implements ports.PlotRepository with pgx. Boundaries are stored
// twice: the raw ring as JSONB (the authoritative, loss-free record of what
// the user drew) and the centroid as a PostGIS geography point for spatial
// queries.
type PlotRepo struct {
	db *DB
}

// NewPlotRepo creates a new PlotRepo.
func NewPlotRepo(db *DB) *PlotRepo {
	return &PlotRepo{db: db}
}

// Insert stores a submitted plot. Plots are append-only.
func (r *PlotRepo) Insert(ctx context.Context, p *domain.Plot) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO plots (
			id, boundary, centroid,
			area_sq_meters, area_sq_feet,
			coverage_percent, floors,
			buildable_area_sq_ft, total_built_up_sq_ft,
			city, state, postal_code, location_resolved, created_at
		)
		VALUES ($1, $2, ST_SetSRID(ST_MakePoint($3, $4), 4326)::geography,
		        $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, p.ID, p.Boundary, p.Centroid.Lon, p.Centroid.Lat,
		p.AreaSqMeters, p.AreaSqFeet,
		p.CoveragePercent, p.Floors,
		p.BuildableAreaSqFt, p.TotalBuiltUpSqFt,
		p.City, p.State, p.PostalCode, p.LocationResolved, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert plot: %w", err)
	}
	return nil
}

const plotColumns = `
	id, boundary,
	ST_Y(centroid::geometry) as lat,
	ST_X(centroid::geometry) as lon,
	area_sq_meters, area_sq_feet,
	coverage_percent, floors,
	buildable_area_sq_ft, total_built_up_sq_ft,
	COALESCE(city, ''), COALESCE(state, ''), COALESCE(postal_code, ''),
	location_resolved, created_at`

// GetByID returns a plot by UUID.
func (r *PlotRepo) GetByID(ctx context.Context, id string) (*domain.Plot, error) {
	var p domain.Plot
	err := r.db.Pool.QueryRow(ctx, `
		SELECT `+plotColumns+`
		FROM plots WHERE id = $1
	`, id).Scan(
		&p.ID, &p.Boundary,
		&p.Centroid.Lat, &p.Centroid.Lon,
		&p.AreaSqMeters, &p.AreaSqFeet,
		&p.CoveragePercent, &p.Floors,
		&p.BuildableAreaSqFt, &p.TotalBuiltUpSqFt,
		&p.City, &p.State, &p.PostalCode,
		&p.LocationResolved, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns plots newest-first plus the total row count.
func (r *PlotRepo) List(ctx context.Context, offset, limit int) ([]domain.Plot, int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM plots`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+plotColumns+`
		FROM plots
		ORDER BY created_at DESC
		OFFSET $1 LIMIT $2
	`, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	plots, err := scanPlots(rows)
	if err != nil {
		return nil, 0, err
	}
	return plots, total, nil
}

// FindNearby returns plots whose centroid lies within radiusMeters, nearest
// first, using PostGIS ST_DWithin.
func (r *PlotRepo) FindNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Plot, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+plotColumns+`,
		       ST_Distance(centroid, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography) as distance
		FROM plots
		WHERE ST_DWithin(centroid, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)
		ORDER BY distance
		LIMIT $4
	`, lon, lat, radiusMeters, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plots []domain.Plot
	for rows.Next() {
		var p domain.Plot
		var dist float64
		if err := rows.Scan(
			&p.ID, &p.Boundary,
			&p.Centroid.Lat, &p.Centroid.Lon,
			&p.AreaSqMeters, &p.AreaSqFeet,
			&p.CoveragePercent, &p.Floors,
			&p.BuildableAreaSqFt, &p.TotalBuiltUpSqFt,
			&p.City, &p.State, &p.PostalCode,
			&p.LocationResolved, &p.CreatedAt,
			&dist,
		); err != nil {
			return nil, err
		}
		p.Distance = &dist
		plots = append(plots, p)
	}
	return plots, rows.Err()
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanPlots(rows rowScanner) ([]domain.Plot, error) {
	var plots []domain.Plot
	for rows.Next() {
		var p domain.Plot
		if err := rows.Scan(
			&p.ID, &p.Boundary,
			&p.Centroid.Lat, &p.Centroid.Lon,
			&p.AreaSqMeters, &p.AreaSqFeet,
			&p.CoveragePercent, &p.Floors,
			&p.BuildableAreaSqFt, &p.TotalBuiltUpSqFt,
			&p.City, &p.State, &p.PostalCode,
			&p.LocationResolved, &p.CreatedAt,
		); err != nil {
			return nil, err
		}
		plots = append(plots, p)
	}
	return plots, rows.Err()
}
