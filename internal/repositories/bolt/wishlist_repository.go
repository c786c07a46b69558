package bolt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	bbolt "go.etcd.io/bbolt"

	domain "github.com/bozor-market/api/internal/domain"
	"github.com/bozor-market/api/internal/repositories"
)

// WishlistRepository persists device-scoped wishlists as JSON documents.
type WishlistRepository struct {
	store *Store
}

// NewWishlistRepository constructs a bbolt-backed wishlist repository.
func NewWishlistRepository(store *Store) (*WishlistRepository, error) {
	if store == nil || store.db == nil {
		return nil, errors.New("wishlist repository requires an open bolt store")
	}
	return &WishlistRepository{store: store}, nil
}

// List returns the saved entries in insertion order. A device without a
// wishlist yields an empty list, not an error.
func (r *WishlistRepository) List(ctx context.Context, deviceID string) ([]domain.WishlistEntry, error) {
	if r == nil || r.store == nil {
		return nil, unavailableError("wishlist repository not initialised", nil)
	}
	key := strings.TrimSpace(deviceID)
	if key == "" {
		return nil, errors.New("wishlist repository: device id is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, unavailableError("wishlist repository: context done", err)
	}

	var doc wishlistDocument
	err := r.store.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket([]byte(wishlistBucket)).Get([]byte(key))
		if raw == nil {
			return nil
		}
		return json.Unmarshal(raw, &doc)
	})
	if err != nil {
		return nil, unavailableError("wishlist repository: read failed", err)
	}

	entries := make([]domain.WishlistEntry, 0, len(doc.Entries))
	for _, entry := range doc.Entries {
		entries = append(entries, domain.WishlistEntry{ProductID: entry.ProductID, AddedAt: entry.AddedAt})
	}
	return entries, nil
}

// Put records the product, returning false when it was already saved.
func (r *WishlistRepository) Put(ctx context.Context, deviceID string, productID int64, addedAt time.Time, limit int) (bool, error) {
	if r == nil || r.store == nil {
		return false, unavailableError("wishlist repository not initialised", nil)
	}
	key := strings.TrimSpace(deviceID)
	if key == "" {
		return false, errors.New("wishlist repository: device id is required")
	}
	if err := ctx.Err(); err != nil {
		return false, unavailableError("wishlist repository: context done", err)
	}

	added := false
	err := r.store.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(wishlistBucket))

		var doc wishlistDocument
		if raw := bucket.Get([]byte(key)); raw != nil {
			if err := json.Unmarshal(raw, &doc); err != nil {
				doc = wishlistDocument{}
			}
		}

		for _, entry := range doc.Entries {
			if entry.ProductID == productID {
				return nil
			}
		}

		if limit > 0 && len(doc.Entries) >= limit {
			return &storeError{kind: errKindConflict, msg: "wishlist repository: entry limit reached"}
		}

		doc.Entries = append(doc.Entries, wishlistEntryDocument{ProductID: productID, AddedAt: addedAt.UTC()})
		raw, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		if err := bucket.Put([]byte(key), raw); err != nil {
			return err
		}
		added = true
		return nil
	})
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) {
			return false, err
		}
		return false, unavailableError("wishlist repository: write failed", err)
	}
	return added, nil
}

// Delete removes the product from the wishlist; absent entries are a no-op.
func (r *WishlistRepository) Delete(ctx context.Context, deviceID string, productID int64) error {
	if r == nil || r.store == nil {
		return unavailableError("wishlist repository not initialised", nil)
	}
	key := strings.TrimSpace(deviceID)
	if key == "" {
		return errors.New("wishlist repository: device id is required")
	}
	if err := ctx.Err(); err != nil {
		return unavailableError("wishlist repository: context done", err)
	}

	err := r.store.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(wishlistBucket))
		raw := bucket.Get([]byte(key))
		if raw == nil {
			return nil
		}

		var doc wishlistDocument
		if err := json.Unmarshal(raw, &doc); err != nil {
			return bucket.Delete([]byte(key))
		}

		filtered := doc.Entries[:0]
		for _, entry := range doc.Entries {
			if entry.ProductID != productID {
				filtered = append(filtered, entry)
			}
		}
		if len(filtered) == len(doc.Entries) {
			return nil
		}
		doc.Entries = filtered

		if len(doc.Entries) == 0 {
			return bucket.Delete([]byte(key))
		}
		updated, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(key), updated)
	})
	if err != nil {
		return unavailableError("wishlist repository: delete failed", err)
	}
	return nil
}

type wishlistDocument struct {
	Entries []wishlistEntryDocument `json:"entries"`
}

type wishlistEntryDocument struct {
	ProductID int64     `json:"productId"`
	AddedAt   time.Time `json:"addedAt"`
}

var _ repositories.WishlistRepository = (*WishlistRepository)(nil)
