package ports

import (
	"context"

	"github.com/basobaas/plotline/internal/core/domain"
)

// PlotRepository persists submitted plots.
type PlotRepository interface {
	Insert(ctx context.Context, plot *domain.Plot) error
	GetByID(ctx context.Context, id string) (*domain.Plot, error)
	List(ctx context.Context, offset, limit int) ([]domain.Plot, int, error)
	FindNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Plot, error)
}

// ContractorRepository persists contractors and their plot notifications.
type ContractorRepository interface {
	FindNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Contractor, error)
	GetByID(ctx context.Context, id string) (*domain.Contractor, error)
	RecordNotification(ctx context.Context, contractorID, plotID string) error
	DeleteNotification(ctx context.Context, contractorID, plotID string) error
}
