package services

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/bozor-market/api/internal/domain"
	"github.com/bozor-market/api/internal/upstream"
)

var errCatalogSourceRequired = errors.New("catalog service: source is required")

// ErrProductNotFound indicates the catalog has no such product.
var ErrProductNotFound = errors.New("catalog service: product not found")

// ErrCatalogUnavailable indicates the catalog cannot be reached.
var ErrCatalogUnavailable = errors.New("catalog service: unavailable")

// CatalogServiceDeps wires the upstream product source.
type CatalogServiceDeps struct {
	Source ProductFinder
	Logger func(context.Context, string, map[string]any)
}

type catalogService struct {
	source ProductFinder
	logger func(context.Context, string, map[string]any)
}

// NewCatalogService constructs a CatalogService over an upstream product
// source, translating transport errors into service-level categories.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Source == nil {
		return nil, errCatalogSourceRequired
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &catalogService{source: deps.Source, logger: logger}, nil
}

func (s *catalogService) FindProduct(ctx context.Context, productID int64) (domain.ProductSnapshot, error) {
	if productID <= 0 {
		return domain.ProductSnapshot{}, fmt.Errorf("%w: invalid product id", ErrProductNotFound)
	}

	snapshot, err := s.source.FindProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, upstream.ErrNotFound) {
			return domain.ProductSnapshot{}, ErrProductNotFound
		}
		s.logger(ctx, "catalog.lookup_failed", map[string]any{
			"productID": productID,
			"error":     err.Error(),
		})
		return domain.ProductSnapshot{}, ErrCatalogUnavailable
	}
	return snapshot, nil
}
