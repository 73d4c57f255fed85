package ports

import (
	"context"
	"field-route-service/internal/domain"
)

// Contract for the external route optimizer.
type RouteOptimizer interface {
	// Return one optimized route per accepted worker, keyed by worker id.
	// Fails with *domain.OptimizationError or *domain.ValidationError.
	Optimize(ctx context.Context, jobs []domain.JobRef, workers []domain.WorkerRef) (*domain.OptimizationResult, error)
}

// Contract for resolving addresses to coordinates.
type Geocoder interface {
	// Return one coordinate per address, in input order. Addresses the service
	// could not resolve yield domain.NoCoordinate(). Fails with *domain.GeocodeError.
	Geocode(ctx context.Context, addresses []string) ([]domain.Coordinate, error)
}

// Persistent address -> coordinate cache. Keys are normalized by the caller.
type GeocodeCache interface {
	GetMany(ctx context.Context, addresses []string) (map[string]domain.Coordinate, error)
	PutMany(ctx context.Context, results map[string]domain.Coordinate) error
}
