package services

import (
	"context"
	"strings"

	domain "github.com/bozor-market/api/internal/domain"
)

// Scope identifies the cart owner for a single operation. DeviceID keys the
// device-local guest state; UserToken carries the verified bearer credential
// when the caller is authenticated. The store never manages login or logout
// itself, it only consults the scope.
type Scope struct {
	DeviceID  string
	UserID    string
	UserToken string
}

// Authenticated reports whether the scope carries a bearer credential.
func (s Scope) Authenticated() bool {
	return strings.TrimSpace(s.UserToken) != ""
}

// CartStore is the single point of mutation for the shopping cart, hiding
// whether the backing store is local persistence or the remote account cart.
type CartStore interface {
	// Get returns the cart for the scope: the device-local guest cart, or a
	// freshly fetched copy of the account cart when authenticated.
	Get(ctx context.Context, scope Scope) (domain.Cart, error)
	// AddItem appends a line snapshotting the current catalog price/name, or
	// increments the quantity when the product is already present.
	AddItem(ctx context.Context, scope Scope, productID int64, quantity int) (domain.Cart, error)
	// UpdateQuantity sets the exact quantity of an existing line. A quantity
	// of zero or less removes the line. Unknown products are a no-op.
	UpdateQuantity(ctx context.Context, scope Scope, productID int64, quantity int) (domain.Cart, error)
	// RemoveItem deletes the line when present; repeated calls are no-ops.
	RemoveItem(ctx context.Context, scope Scope, productID int64) (domain.Cart, error)
	// Clear empties the cart in a single operation.
	Clear(ctx context.Context, scope Scope) error
	// Summary returns the derived item count and subtotal for badge refresh.
	Summary(ctx context.Context, scope Scope) (domain.CartSummary, error)
	// MergePreview exposes both carts around the login transition so the
	// client can ask the user to choose when both are non-empty.
	MergePreview(ctx context.Context, scope Scope) (MergePreview, error)
	// Merge reconciles the guest cart into the account cart using the given
	// strategy and clears the guest cart on success. When both carts are
	// non-empty and no strategy is supplied the merge is refused rather than
	// silently dropping either side.
	Merge(ctx context.Context, scope Scope, strategy domain.MergeStrategy) (domain.Cart, error)
}

// MergePreview reports cart state on both sides of the login transition.
type MergePreview struct {
	Guest          domain.Cart
	Server         domain.Cart
	RequiresChoice bool
}

// RemoteCart is the dependency over the upstream cart API consumed by the
// cart store when the scope is authenticated.
type RemoteCart interface {
	FetchCart(ctx context.Context, token string) (domain.Cart, error)
	AddItem(ctx context.Context, token string, productID int64, quantity int) (domain.CartLine, error)
	UpdateLine(ctx context.Context, token string, lineID string, quantity int) (domain.CartLine, error)
	RemoveLine(ctx context.Context, token string, lineID string) error
	Clear(ctx context.Context, token string) error
}

// ProductFinder supplies catalog snapshots at the moment of add-to-cart.
type ProductFinder interface {
	FindProduct(ctx context.Context, productID int64) (domain.ProductSnapshot, error)
}

// CatalogService exposes catalog lookups to handlers with service-level
// error categories.
type CatalogService interface {
	ProductFinder
}

// WishlistService maintains the device-scoped wishlist.
type WishlistService interface {
	List(ctx context.Context, deviceID string) ([]domain.WishlistEntry, error)
	// Add saves the product, returning false when it was already present.
	Add(ctx context.Context, deviceID string, productID int64) (bool, error)
	Remove(ctx context.Context, deviceID string, productID int64) error
}
