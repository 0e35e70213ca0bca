package usecases

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/basobaas/plotline/internal/core/domain"
	"github.com/basobaas/plotline/internal/core/ports"
	"github.com/basobaas/plotline/internal/pkg/metrics"
)

// PlotService reads saved plots for downstream screens.
type PlotService struct {
	plots ports.PlotRepository
	cache ports.CacheService
}

// NewPlotService creates a new PlotService. cache may be nil.
func NewPlotService(plots ports.PlotRepository, cache ports.CacheService) *PlotService {
	return &PlotService{plots: plots, cache: cache}
}

// GetByID returns a single saved plot.
func (s *PlotService) GetByID(ctx context.Context, id string) (*domain.Plot, error) {
	cacheKey := "plots:id:" + id
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var plot domain.Plot
			if err := json.Unmarshal(data, &plot); err == nil {
				metrics.CacheHits.WithLabelValues("plot_get").Inc()
				return &plot, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("plot_get").Inc()
	}

	plot, err := s.plots.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Plots are immutable once stored, so a long TTL is safe.
	if s.cache != nil {
		if data, err := json.Marshal(plot); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 3600)
		}
	}

	return plot, nil
}

// List returns saved plots newest-first with the total count.
func (s *PlotService) List(ctx context.Context, offset, limit int) ([]domain.Plot, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.plots.List(ctx, offset, limit)
}

// FindNearby returns plots whose centroid is within radiusMeters.
func (s *PlotService) FindNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Plot, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	cacheKey := fmt.Sprintf("plots:nearby:%.4f:%.4f:%.0f:%d", lat, lon, radiusMeters, limit)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var plots []domain.Plot
			if err := json.Unmarshal(data, &plots); err == nil {
				metrics.CacheHits.WithLabelValues("plot_nearby").Inc()
				return plots, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("plot_nearby").Inc()
	}

	plots, err := s.plots.FindNearby(ctx, lat, lon, radiusMeters, limit)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(plots); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 300)
		}
	}

	return plots, nil
}
