package services

import (
	"context"
	"errors"
	"testing"

	domain "github.com/bozor-market/api/internal/domain"
	"github.com/bozor-market/api/internal/upstream"
)

func TestCatalogServiceFindProductTranslatesNotFound(t *testing.T) {
	source := &stubProductFinder{
		findFunc: func(ctx context.Context, productID int64) (domain.ProductSnapshot, error) {
			return domain.ProductSnapshot{}, upstream.ErrNotFound
		},
	}
	service, err := NewCatalogService(CatalogServiceDeps{Source: source})
	if err != nil {
		t.Fatalf("unexpected error constructing catalog service: %v", err)
	}

	_, err = service.FindProduct(context.Background(), 42)
	if !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestCatalogServiceFindProductTranslatesUnavailable(t *testing.T) {
	source := &stubProductFinder{
		findFunc: func(ctx context.Context, productID int64) (domain.ProductSnapshot, error) {
			return domain.ProductSnapshot{}, upstream.ErrUnavailable
		},
	}
	service, err := NewCatalogService(CatalogServiceDeps{Source: source})
	if err != nil {
		t.Fatalf("unexpected error constructing catalog service: %v", err)
	}

	_, err = service.FindProduct(context.Background(), 42)
	if !errors.Is(err, ErrCatalogUnavailable) {
		t.Fatalf("expected ErrCatalogUnavailable, got %v", err)
	}
}

func TestCatalogServiceFindProductRejectsInvalidID(t *testing.T) {
	service, err := NewCatalogService(CatalogServiceDeps{Source: &stubProductFinder{}})
	if err != nil {
		t.Fatalf("unexpected error constructing catalog service: %v", err)
	}

	_, err = service.FindProduct(context.Background(), 0)
	if !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}
