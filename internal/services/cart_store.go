package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/bozor-market/api/internal/domain"
	"github.com/bozor-market/api/internal/repositories"
	"github.com/bozor-market/api/internal/upstream"
)

var (
	errCartGuestRepoRequired = errors.New("cart store: guest repository is required")
	errCartRemoteRequired    = errors.New("cart store: remote cart is required")
	errCartCatalogRequired   = errors.New("cart store: catalog is required")
	errCartClockRequired     = errors.New("cart store: clock is required")
)

// ErrCartInvalidInput indicates the caller supplied invalid input.
var ErrCartInvalidInput = errors.New("cart store: invalid input")

// ErrCartUnavailable indicates the backing store cannot fulfil the request.
var ErrCartUnavailable = errors.New("cart store: unavailable")

// ErrCartAuthExpired indicates the bearer credential was rejected upstream.
var ErrCartAuthExpired = errors.New("cart store: authentication expired")

// ErrCartMergeChoiceRequired indicates both carts are non-empty and the
// caller must pick a merge strategy explicitly.
var ErrCartMergeChoiceRequired = errors.New("cart store: merge strategy required")

// CartStoreDeps wires the persistence, upstream, and catalog dependencies for
// cart operations.
type CartStoreDeps struct {
	Guest       repositories.GuestCartRepository
	Remote      RemoteCart
	Catalog     ProductFinder
	Clock       func() time.Time
	Logger      func(context.Context, string, map[string]any)
	IDGenerator func() string
}

type cartStore struct {
	guest   repositories.GuestCartRepository
	remote  RemoteCart
	catalog ProductFinder
	now     func() time.Time
	logger  func(context.Context, string, map[string]any)
	newID   func() string
}

// NewCartStore constructs a CartStore enforcing dependency validation.
func NewCartStore(deps CartStoreDeps) (CartStore, error) {
	if deps.Guest == nil {
		return nil, errCartGuestRepoRequired
	}
	if deps.Remote == nil {
		return nil, errCartRemoteRequired
	}
	if deps.Catalog == nil {
		return nil, errCartCatalogRequired
	}
	if deps.Clock == nil {
		return nil, errCartClockRequired
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}

	return &cartStore{
		guest:   deps.Guest,
		remote:  deps.Remote,
		catalog: deps.Catalog,
		now:     func() time.Time { return deps.Clock().UTC() },
		logger:  logger,
		newID:   idGen,
	}, nil
}

func (s *cartStore) Get(ctx context.Context, scope Scope) (domain.Cart, error) {
	scope, err := s.normaliseScope(scope)
	if err != nil {
		return domain.Cart{}, err
	}

	if scope.Authenticated() {
		cart, err := s.remote.FetchCart(ctx, scope.UserToken)
		if err != nil {
			return domain.Cart{}, s.translateRemoteError(ctx, "cart.remote_fetch_failed", scope, err)
		}
		cart.Origin = domain.CartOriginServer
		return cart, nil
	}

	return s.guestCart(ctx, scope.DeviceID)
}

func (s *cartStore) AddItem(ctx context.Context, scope Scope, productID int64, quantity int) (domain.Cart, error) {
	scope, err := s.normaliseScope(scope)
	if err != nil {
		return domain.Cart{}, err
	}
	if productID <= 0 {
		return domain.Cart{}, fmt.Errorf("%w: product id is required", ErrCartInvalidInput)
	}
	if quantity <= 0 {
		return domain.Cart{}, fmt.Errorf("%w: quantity must be greater than zero", ErrCartInvalidInput)
	}

	snapshot, err := s.catalog.FindProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return domain.Cart{}, fmt.Errorf("%w: product not found", ErrCartInvalidInput)
		}
		s.logger(ctx, "cart.catalog_lookup_failed", map[string]any{
			"productID": productID,
			"error":     err.Error(),
		})
		return domain.Cart{}, ErrCartUnavailable
	}

	if scope.Authenticated() {
		if _, err := s.remote.AddItem(ctx, scope.UserToken, productID, quantity); err != nil {
			return domain.Cart{}, s.translateRemoteError(ctx, "cart.remote_add_failed", scope, err)
		}
		return s.Get(ctx, scope)
	}

	cart, err := s.guestCart(ctx, scope.DeviceID)
	if err != nil {
		return domain.Cart{}, err
	}

	now := s.now()
	lines := cart.CloneLines()
	idx := cart.FindLine(productID)
	newQuantity := quantity
	if idx >= 0 {
		newQuantity = lines[idx].Quantity + quantity
	}
	if snapshot.Stock >= 0 && newQuantity > snapshot.Stock {
		return domain.Cart{}, fmt.Errorf("%w: insufficient stock for product %d", ErrCartInvalidInput, productID)
	}

	if idx >= 0 {
		lines[idx].Quantity = newQuantity
		lines[idx].UpdatedAt = now
	} else {
		lines = append(lines, domain.CartLine{
			LineID:    s.newID(),
			ProductID: snapshot.ProductID,
			Name:      snapshot.Name,
			UnitPrice: snapshot.UnitPrice,
			Quantity:  quantity,
			ImageRef:  snapshot.ImageRef,
			AddedAt:   now,
			UpdatedAt: now,
		})
	}

	cart.Lines = lines
	cart.UpdatedAt = now
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}

	return s.saveGuestCart(ctx, scope.DeviceID, cart)
}

func (s *cartStore) UpdateQuantity(ctx context.Context, scope Scope, productID int64, quantity int) (domain.Cart, error) {
	// Zero and negative quantities are normalised to a removal, never
	// rejected as an error.
	if quantity <= 0 {
		return s.RemoveItem(ctx, scope, productID)
	}

	scope, err := s.normaliseScope(scope)
	if err != nil {
		return domain.Cart{}, err
	}
	if productID <= 0 {
		return domain.Cart{}, fmt.Errorf("%w: product id is required", ErrCartInvalidInput)
	}

	if scope.Authenticated() {
		cart, err := s.remote.FetchCart(ctx, scope.UserToken)
		if err != nil {
			return domain.Cart{}, s.translateRemoteError(ctx, "cart.remote_fetch_failed", scope, err)
		}
		idx := cart.FindLine(productID)
		if idx < 0 {
			// Quantity changes originate from rendered lines; a vanished
			// line is a stale view, not an error.
			cart.Origin = domain.CartOriginServer
			return cart, nil
		}
		if _, err := s.remote.UpdateLine(ctx, scope.UserToken, cart.Lines[idx].LineID, quantity); err != nil {
			if errors.Is(err, upstream.ErrNotFound) {
				return s.Get(ctx, scope)
			}
			return domain.Cart{}, s.translateRemoteError(ctx, "cart.remote_update_failed", scope, err)
		}
		return s.Get(ctx, scope)
	}

	cart, err := s.guestCart(ctx, scope.DeviceID)
	if err != nil {
		return domain.Cart{}, err
	}
	idx := cart.FindLine(productID)
	if idx < 0 {
		return cart, nil
	}

	now := s.now()
	lines := cart.CloneLines()
	lines[idx].Quantity = quantity
	lines[idx].UpdatedAt = now
	cart.Lines = lines
	cart.UpdatedAt = now

	return s.saveGuestCart(ctx, scope.DeviceID, cart)
}

func (s *cartStore) RemoveItem(ctx context.Context, scope Scope, productID int64) (domain.Cart, error) {
	scope, err := s.normaliseScope(scope)
	if err != nil {
		return domain.Cart{}, err
	}
	if productID <= 0 {
		return domain.Cart{}, fmt.Errorf("%w: product id is required", ErrCartInvalidInput)
	}

	if scope.Authenticated() {
		cart, err := s.remote.FetchCart(ctx, scope.UserToken)
		if err != nil {
			return domain.Cart{}, s.translateRemoteError(ctx, "cart.remote_fetch_failed", scope, err)
		}
		idx := cart.FindLine(productID)
		if idx < 0 {
			cart.Origin = domain.CartOriginServer
			return cart, nil
		}
		if err := s.remote.RemoveLine(ctx, scope.UserToken, cart.Lines[idx].LineID); err != nil && !errors.Is(err, upstream.ErrNotFound) {
			return domain.Cart{}, s.translateRemoteError(ctx, "cart.remote_remove_failed", scope, err)
		}
		return s.Get(ctx, scope)
	}

	cart, err := s.guestCart(ctx, scope.DeviceID)
	if err != nil {
		return domain.Cart{}, err
	}
	idx := cart.FindLine(productID)
	if idx < 0 {
		return cart, nil
	}

	lines := cart.CloneLines()
	lines = append(lines[:idx], lines[idx+1:]...)
	cart.Lines = lines
	cart.UpdatedAt = s.now()

	return s.saveGuestCart(ctx, scope.DeviceID, cart)
}

func (s *cartStore) Clear(ctx context.Context, scope Scope) error {
	scope, err := s.normaliseScope(scope)
	if err != nil {
		return err
	}

	if scope.Authenticated() {
		if err := s.remote.Clear(ctx, scope.UserToken); err != nil {
			return s.translateRemoteError(ctx, "cart.remote_clear_failed", scope, err)
		}
		return nil
	}

	if err := s.guest.Delete(ctx, scope.DeviceID); err != nil {
		return s.translateRepoError(err)
	}
	return nil
}

func (s *cartStore) Summary(ctx context.Context, scope Scope) (domain.CartSummary, error) {
	cart, err := s.Get(ctx, scope)
	if err != nil {
		return domain.CartSummary{}, err
	}
	return cart.Summary(), nil
}

func (s *cartStore) MergePreview(ctx context.Context, scope Scope) (MergePreview, error) {
	scope, err := s.normaliseScope(scope)
	if err != nil {
		return MergePreview{}, err
	}
	if !scope.Authenticated() {
		return MergePreview{}, fmt.Errorf("%w: merge preview requires authentication", ErrCartInvalidInput)
	}
	if scope.DeviceID == "" {
		return MergePreview{}, fmt.Errorf("%w: device id is required", ErrCartInvalidInput)
	}

	guest, err := s.guestCart(ctx, scope.DeviceID)
	if err != nil {
		return MergePreview{}, err
	}
	server, err := s.remote.FetchCart(ctx, scope.UserToken)
	if err != nil {
		return MergePreview{}, s.translateRemoteError(ctx, "cart.remote_fetch_failed", scope, err)
	}
	server.Origin = domain.CartOriginServer

	return MergePreview{
		Guest:          guest,
		Server:         server,
		RequiresChoice: !guest.IsEmpty() && !server.IsEmpty(),
	}, nil
}

func (s *cartStore) Merge(ctx context.Context, scope Scope, strategy domain.MergeStrategy) (domain.Cart, error) {
	scope, err := s.normaliseScope(scope)
	if err != nil {
		return domain.Cart{}, err
	}
	if !scope.Authenticated() {
		return domain.Cart{}, fmt.Errorf("%w: merge requires authentication", ErrCartInvalidInput)
	}
	if scope.DeviceID == "" {
		return domain.Cart{}, fmt.Errorf("%w: device id is required", ErrCartInvalidInput)
	}

	guest, err := s.guestCart(ctx, scope.DeviceID)
	if err != nil {
		return domain.Cart{}, err
	}
	if guest.IsEmpty() {
		return s.Get(ctx, scope)
	}

	server, err := s.remote.FetchCart(ctx, scope.UserToken)
	if err != nil {
		return domain.Cart{}, s.translateRemoteError(ctx, "cart.remote_fetch_failed", scope, err)
	}

	if strategy == "" {
		if server.IsEmpty() {
			strategy = domain.MergeLocalWins
		} else {
			return domain.Cart{}, ErrCartMergeChoiceRequired
		}
	}

	switch strategy {
	case domain.MergeServerWins:
		// Account cart stands as-is.
	case domain.MergeLocalWins:
		if !server.IsEmpty() {
			if err := s.remote.Clear(ctx, scope.UserToken); err != nil {
				return domain.Cart{}, s.translateRemoteError(ctx, "cart.remote_clear_failed", scope, err)
			}
		}
		for _, line := range guest.Lines {
			if _, err := s.remote.AddItem(ctx, scope.UserToken, line.ProductID, line.Quantity); err != nil {
				return domain.Cart{}, s.translateRemoteError(ctx, "cart.merge_push_failed", scope, err)
			}
		}
	case domain.MergeSum:
		for _, line := range guest.Lines {
			target := line.Quantity
			idx := server.FindLine(line.ProductID)
			if idx >= 0 {
				target += server.Lines[idx].Quantity
			}
			target = s.capAtStock(ctx, line.ProductID, target)
			if idx >= 0 {
				if target == server.Lines[idx].Quantity {
					continue
				}
				if _, err := s.remote.UpdateLine(ctx, scope.UserToken, server.Lines[idx].LineID, target); err != nil {
					return domain.Cart{}, s.translateRemoteError(ctx, "cart.merge_push_failed", scope, err)
				}
			} else {
				if _, err := s.remote.AddItem(ctx, scope.UserToken, line.ProductID, target); err != nil {
					return domain.Cart{}, s.translateRemoteError(ctx, "cart.merge_push_failed", scope, err)
				}
			}
		}
	default:
		return domain.Cart{}, fmt.Errorf("%w: unknown merge strategy %q", ErrCartInvalidInput, strategy)
	}

	// Every push landed; only now is the guest copy released. A failed
	// delete leaves a duplicate, never a loss.
	if err := s.guest.Delete(ctx, scope.DeviceID); err != nil {
		s.logger(ctx, "cart.guest_clear_failed", map[string]any{
			"deviceID": scope.DeviceID,
			"error":    err.Error(),
		})
	}

	return s.Get(ctx, scope)
}

// capAtStock bounds a merged quantity by catalog availability. Lookup
// failures leave the quantity uncapped; the backend revalidates at checkout.
func (s *cartStore) capAtStock(ctx context.Context, productID int64, quantity int) int {
	snapshot, err := s.catalog.FindProduct(ctx, productID)
	if err != nil {
		s.logger(ctx, "cart.merge_stock_lookup_failed", map[string]any{
			"productID": productID,
			"error":     err.Error(),
		})
		return quantity
	}
	if snapshot.Stock >= 0 && quantity > snapshot.Stock {
		return snapshot.Stock
	}
	return quantity
}

func (s *cartStore) guestCart(ctx context.Context, deviceID string) (domain.Cart, error) {
	cart, err := s.guest.Get(ctx, deviceID)
	if err != nil {
		if isRepoNotFound(err) {
			return domain.Cart{Origin: domain.CartOriginGuest, Lines: []domain.CartLine{}}, nil
		}
		return domain.Cart{}, s.translateRepoError(err)
	}
	cart.Origin = domain.CartOriginGuest
	if cart.Lines == nil {
		cart.Lines = []domain.CartLine{}
	}
	return cart, nil
}

func (s *cartStore) saveGuestCart(ctx context.Context, deviceID string, cart domain.Cart) (domain.Cart, error) {
	saved, err := s.guest.Save(ctx, deviceID, cart)
	if err != nil {
		return domain.Cart{}, s.translateRepoError(err)
	}
	saved.Origin = domain.CartOriginGuest
	return saved, nil
}

func (s *cartStore) normaliseScope(scope Scope) (Scope, error) {
	scope.DeviceID = strings.TrimSpace(scope.DeviceID)
	scope.UserID = strings.TrimSpace(scope.UserID)
	scope.UserToken = strings.TrimSpace(scope.UserToken)
	if !scope.Authenticated() && scope.DeviceID == "" {
		return Scope{}, fmt.Errorf("%w: device id is required for guest carts", ErrCartInvalidInput)
	}
	return scope, nil
}

func (s *cartStore) translateRemoteError(ctx context.Context, event string, scope Scope, err error) error {
	if err == nil {
		return nil
	}
	s.logger(ctx, event, map[string]any{
		"userID": scope.UserID,
		"error":  err.Error(),
	})
	switch {
	case errors.Is(err, upstream.ErrAuthExpired):
		return ErrCartAuthExpired
	case errors.Is(err, upstream.ErrRejected):
		return fmt.Errorf("%w: %v", ErrCartInvalidInput, err)
	default:
		return ErrCartUnavailable
	}
}

func (s *cartStore) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsNotFound() {
		return ErrCartInvalidInput
	}
	return ErrCartUnavailable
}

func isRepoNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}
