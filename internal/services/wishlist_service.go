package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/bozor-market/api/internal/domain"
	"github.com/bozor-market/api/internal/repositories"
)

var (
	errWishlistRepoRequired  = errors.New("wishlist service: repository is required")
	errWishlistClockRequired = errors.New("wishlist service: clock is required")
)

// ErrWishlistInvalidInput indicates the caller supplied invalid input.
var ErrWishlistInvalidInput = errors.New("wishlist service: invalid input")

// ErrWishlistLimitReached indicates the device wishlist is full.
var ErrWishlistLimitReached = errors.New("wishlist service: limit reached")

// ErrWishlistUnavailable indicates the backing store cannot fulfil the
// request.
var ErrWishlistUnavailable = errors.New("wishlist service: unavailable")

// WishlistServiceDeps wires persistence and limits for wishlist operations.
type WishlistServiceDeps struct {
	Repository repositories.WishlistRepository
	Clock      func() time.Time
	Limit      int
	Logger     func(context.Context, string, map[string]any)
}

type wishlistService struct {
	repo   repositories.WishlistRepository
	now    func() time.Time
	limit  int
	logger func(context.Context, string, map[string]any)
}

// NewWishlistService constructs a WishlistService enforcing dependency
// validation.
func NewWishlistService(deps WishlistServiceDeps) (WishlistService, error) {
	if deps.Repository == nil {
		return nil, errWishlistRepoRequired
	}
	if deps.Clock == nil {
		return nil, errWishlistClockRequired
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &wishlistService{
		repo:   deps.Repository,
		now:    func() time.Time { return deps.Clock().UTC() },
		limit:  deps.Limit,
		logger: logger,
	}, nil
}

func (s *wishlistService) List(ctx context.Context, deviceID string) ([]domain.WishlistEntry, error) {
	deviceID, err := normaliseDeviceID(deviceID)
	if err != nil {
		return nil, err
	}

	entries, err := s.repo.List(ctx, deviceID)
	if err != nil {
		if isRepoNotFound(err) {
			return []domain.WishlistEntry{}, nil
		}
		return nil, s.translate(ctx, "wishlist.list_failed", deviceID, err)
	}
	if entries == nil {
		entries = []domain.WishlistEntry{}
	}
	return entries, nil
}

func (s *wishlistService) Add(ctx context.Context, deviceID string, productID int64) (bool, error) {
	deviceID, err := normaliseDeviceID(deviceID)
	if err != nil {
		return false, err
	}
	if productID <= 0 {
		return false, fmt.Errorf("%w: product id is required", ErrWishlistInvalidInput)
	}

	added, err := s.repo.Put(ctx, deviceID, productID, s.now(), s.limit)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsConflict() {
			return false, ErrWishlistLimitReached
		}
		return false, s.translate(ctx, "wishlist.add_failed", deviceID, err)
	}
	return added, nil
}

func (s *wishlistService) Remove(ctx context.Context, deviceID string, productID int64) error {
	deviceID, err := normaliseDeviceID(deviceID)
	if err != nil {
		return err
	}
	if productID <= 0 {
		return fmt.Errorf("%w: product id is required", ErrWishlistInvalidInput)
	}

	if err := s.repo.Delete(ctx, deviceID, productID); err != nil && !isRepoNotFound(err) {
		return s.translate(ctx, "wishlist.remove_failed", deviceID, err)
	}
	return nil
}

func (s *wishlistService) translate(ctx context.Context, event, deviceID string, err error) error {
	s.logger(ctx, event, map[string]any{
		"deviceID": deviceID,
		"error":    err.Error(),
	})
	return ErrWishlistUnavailable
}

func normaliseDeviceID(deviceID string) (string, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return "", fmt.Errorf("%w: device id is required", ErrWishlistInvalidInput)
	}
	return deviceID, nil
}
