package repositories

import (
	"context"
	"time"

	domain "github.com/bozor-market/api/internal/domain"
)

// RepositoryError wraps low-level persistence failures with categorisation
// used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// GuestCartRepository owns device-scoped cart persistence in the local store.
// The guest cart is written after every mutation and read on demand.
type GuestCartRepository interface {
	// Get loads the guest cart for the device. Returns a RepositoryError with
	// IsNotFound when no cart has been persisted yet.
	Get(ctx context.Context, deviceID string) (domain.Cart, error)
	// Save replaces the persisted cart for the device.
	Save(ctx context.Context, deviceID string, cart domain.Cart) (domain.Cart, error)
	// Delete removes the persisted cart. Deleting an absent cart is a no-op.
	Delete(ctx context.Context, deviceID string) error
	// DeleteStale removes guest carts whose last update predates the cutoff
	// and reports how many were removed.
	DeleteStale(ctx context.Context, cutoff time.Time) (int, error)
}

// WishlistRepository stores saved product references per device.
type WishlistRepository interface {
	List(ctx context.Context, deviceID string) ([]domain.WishlistEntry, error)
	// Put records the product, returning false when it was already present.
	// When limit is positive the wishlist is bounded to that many entries.
	Put(ctx context.Context, deviceID string, productID int64, addedAt time.Time, limit int) (bool, error)
	// Delete removes the product from the wishlist. Absent entries are a no-op.
	Delete(ctx context.Context, deviceID string, productID int64) error
}
