package postgres

import (
	"context"
	"fmt"

	"github.com/basobaas/plotline/internal/core/domain"
)

// ContractorRepo implements ports.ContractorRepository with pgx.
type ContractorRepo struct {
	db *DB
}

// NewContractorRepo creates a new ContractorRepo.
func NewContractorRepo(db *DB) *ContractorRepo {
	return &ContractorRepo{db: db}
}

// FindNearby returns active contractors within radiusMeters of the point,
// nearest first.
func (r *ContractorRepo) FindNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Contractor, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, name, category,
		       ST_Y(location::geometry), ST_X(location::geometry),
		       active, created_at
		FROM contractors
		WHERE active
		  AND ST_DWithin(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)
		ORDER BY location <-> ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography
		LIMIT $4
	`, lon, lat, radiusMeters, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Contractor
	for rows.Next() {
		var c domain.Contractor
		if err := rows.Scan(&c.ID, &c.Name, &c.Category,
			&c.Location.Lat, &c.Location.Lon,
			&c.Active, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetByID returns a contractor by UUID.
func (r *ContractorRepo) GetByID(ctx context.Context, id string) (*domain.Contractor, error) {
	var c domain.Contractor
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, name, category,
		       ST_Y(location::geometry), ST_X(location::geometry),
		       active, created_at
		FROM contractors WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Category,
		&c.Location.Lat, &c.Location.Lon,
		&c.Active, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// RecordNotification writes a notification ledger row. The unique constraint
// on (contractor_id, plot_id) makes retries idempotent.
func (r *ContractorRepo) RecordNotification(ctx context.Context, contractorID, plotID string) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO contractor_notifications (contractor_id, plot_id)
		VALUES ($1, $2)
		ON CONFLICT (contractor_id, plot_id) DO NOTHING
	`, contractorID, plotID)
	if err != nil {
		return fmt.Errorf("record notification: %w", err)
	}
	return nil
}

// DeleteNotification removes a ledger row. Used as the compensation step when
// the push delivery fails after the record was written.
func (r *ContractorRepo) DeleteNotification(ctx context.Context, contractorID, plotID string) error {
	_, err := r.db.Pool.Exec(ctx, `
		DELETE FROM contractor_notifications
		WHERE contractor_id = $1 AND plot_id = $2
	`, contractorID, plotID)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	return nil
}
