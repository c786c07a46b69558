package di

import (
	"context"
	"fmt"
	"time"

	"github.com/bozor-market/api/internal/platform/config"
	"github.com/bozor-market/api/internal/repositories/bolt"
	"github.com/bozor-market/api/internal/services"
	"github.com/bozor-market/api/internal/upstream"
)

// Services bundles the service-layer contracts that handlers rely upon.
// Concrete implementations are assembled via dependency injection in
// NewContainer.
type Services struct {
	Cart     services.CartStore
	Wishlist services.WishlistService
	Catalog  services.CatalogService
}

// Container wires storage, the upstream client, and services for runtime use.
type Container struct {
	Config   config.Config
	Store    *bolt.Store
	Upstream *upstream.Client
	Guest    *bolt.CartRepository
	Services Services
}

// ContainerDeps carries ambient dependencies shared across services.
type ContainerDeps struct {
	Clock  func() time.Time
	Logger func(context.Context, string, map[string]any)
}

// NewContainer opens the embedded store and assembles the service graph.
func NewContainer(ctx context.Context, cfg config.Config, deps ContainerDeps) (*Container, error) {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}

	store, err := bolt.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	client, err := upstream.NewClient(cfg.Upstream)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("build upstream client: %w", err)
	}

	guestRepo, err := bolt.NewCartRepository(store)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("build guest cart repository: %w", err)
	}
	wishlistRepo, err := bolt.NewWishlistRepository(store)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("build wishlist repository: %w", err)
	}

	catalog, err := services.NewCatalogService(services.CatalogServiceDeps{
		Source: client,
		Logger: deps.Logger,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("build catalog service: %w", err)
	}

	cart, err := services.NewCartStore(services.CartStoreDeps{
		Guest:   guestRepo,
		Remote:  client,
		Catalog: catalog,
		Clock:   deps.Clock,
		Logger:  deps.Logger,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("build cart store: %w", err)
	}

	svc := Services{Cart: cart, Catalog: catalog}

	if cfg.Features.EnableWishlist {
		wishlist, err := services.NewWishlistService(services.WishlistServiceDeps{
			Repository: wishlistRepo,
			Clock:      deps.Clock,
			Limit:      cfg.Guest.WishlistLimit,
			Logger:     deps.Logger,
		})
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("build wishlist service: %w", err)
		}
		svc.Wishlist = wishlist
	}

	return &Container{
		Config:   cfg,
		Store:    store,
		Upstream: client,
		Guest:    guestRepo,
		Services: svc,
	}, nil
}

// Close releases the embedded store.
func (c *Container) Close() error {
	if c == nil || c.Store == nil {
		return nil
	}
	return c.Store.Close()
}
