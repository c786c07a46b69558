package services

import (
	"context"
	"time"

	domain "github.com/bozor-market/api/internal/domain"
)

type repositoryErrorStub struct {
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e *repositoryErrorStub) Error() string       { return "repository error" }
func (e *repositoryErrorStub) IsNotFound() bool    { return e.notFound }
func (e *repositoryErrorStub) IsConflict() bool    { return e.conflict }
func (e *repositoryErrorStub) IsUnavailable() bool { return e.unavailable }

type stubGuestCartRepository struct {
	getFunc         func(ctx context.Context, deviceID string) (domain.Cart, error)
	saveFunc        func(ctx context.Context, deviceID string, cart domain.Cart) (domain.Cart, error)
	deleteFunc      func(ctx context.Context, deviceID string) error
	deleteStaleFunc func(ctx context.Context, cutoff time.Time) (int, error)
}

func (s *stubGuestCartRepository) Get(ctx context.Context, deviceID string) (domain.Cart, error) {
	if s.getFunc != nil {
		return s.getFunc(ctx, deviceID)
	}
	return domain.Cart{}, &repositoryErrorStub{notFound: true}
}

func (s *stubGuestCartRepository) Save(ctx context.Context, deviceID string, cart domain.Cart) (domain.Cart, error) {
	if s.saveFunc != nil {
		return s.saveFunc(ctx, deviceID, cart)
	}
	return cart, nil
}

func (s *stubGuestCartRepository) Delete(ctx context.Context, deviceID string) error {
	if s.deleteFunc != nil {
		return s.deleteFunc(ctx, deviceID)
	}
	return nil
}

func (s *stubGuestCartRepository) DeleteStale(ctx context.Context, cutoff time.Time) (int, error) {
	if s.deleteStaleFunc != nil {
		return s.deleteStaleFunc(ctx, cutoff)
	}
	return 0, nil
}

type stubRemoteCart struct {
	fetchFunc      func(ctx context.Context, token string) (domain.Cart, error)
	addFunc        func(ctx context.Context, token string, productID int64, quantity int) (domain.CartLine, error)
	updateFunc     func(ctx context.Context, token string, lineID string, quantity int) (domain.CartLine, error)
	removeFunc     func(ctx context.Context, token string, lineID string) error
	clearCartsFunc func(ctx context.Context, token string) error
}

func (s *stubRemoteCart) FetchCart(ctx context.Context, token string) (domain.Cart, error) {
	if s.fetchFunc != nil {
		return s.fetchFunc(ctx, token)
	}
	return domain.Cart{Origin: domain.CartOriginServer, Lines: []domain.CartLine{}}, nil
}

func (s *stubRemoteCart) AddItem(ctx context.Context, token string, productID int64, quantity int) (domain.CartLine, error) {
	if s.addFunc != nil {
		return s.addFunc(ctx, token, productID, quantity)
	}
	return domain.CartLine{}, nil
}

func (s *stubRemoteCart) UpdateLine(ctx context.Context, token string, lineID string, quantity int) (domain.CartLine, error) {
	if s.updateFunc != nil {
		return s.updateFunc(ctx, token, lineID, quantity)
	}
	return domain.CartLine{}, nil
}

func (s *stubRemoteCart) RemoveLine(ctx context.Context, token string, lineID string) error {
	if s.removeFunc != nil {
		return s.removeFunc(ctx, token, lineID)
	}
	return nil
}

func (s *stubRemoteCart) Clear(ctx context.Context, token string) error {
	if s.clearCartsFunc != nil {
		return s.clearCartsFunc(ctx, token)
	}
	return nil
}

type stubProductFinder struct {
	findFunc func(ctx context.Context, productID int64) (domain.ProductSnapshot, error)
}

func (s *stubProductFinder) FindProduct(ctx context.Context, productID int64) (domain.ProductSnapshot, error) {
	if s.findFunc != nil {
		return s.findFunc(ctx, productID)
	}
	return domain.ProductSnapshot{}, ErrProductNotFound
}

type stubWishlistRepository struct {
	listFunc   func(ctx context.Context, deviceID string) ([]domain.WishlistEntry, error)
	putFunc    func(ctx context.Context, deviceID string, productID int64, addedAt time.Time, limit int) (bool, error)
	deleteFunc func(ctx context.Context, deviceID string, productID int64) error
}

func (s *stubWishlistRepository) List(ctx context.Context, deviceID string) ([]domain.WishlistEntry, error) {
	if s.listFunc != nil {
		return s.listFunc(ctx, deviceID)
	}
	return nil, nil
}

func (s *stubWishlistRepository) Put(ctx context.Context, deviceID string, productID int64, addedAt time.Time, limit int) (bool, error) {
	if s.putFunc != nil {
		return s.putFunc(ctx, deviceID, productID, addedAt, limit)
	}
	return true, nil
}

func (s *stubWishlistRepository) Delete(ctx context.Context, deviceID string, productID int64) error {
	if s.deleteFunc != nil {
		return s.deleteFunc(ctx, deviceID, productID)
	}
	return nil
}
