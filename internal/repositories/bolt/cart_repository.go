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

// CartRepository persists guest carts as JSON documents keyed by device ID.
type CartRepository struct {
	store *Store
}

// NewCartRepository constructs a bbolt-backed guest cart repository.
func NewCartRepository(store *Store) (*CartRepository, error) {
	if store == nil || store.db == nil {
		return nil, errors.New("cart repository requires an open bolt store")
	}
	return &CartRepository{store: store}, nil
}

// Get loads the guest cart for the device.
func (r *CartRepository) Get(ctx context.Context, deviceID string) (domain.Cart, error) {
	if r == nil || r.store == nil {
		return domain.Cart{}, unavailableError("cart repository not initialised", nil)
	}
	key := strings.TrimSpace(deviceID)
	if key == "" {
		return domain.Cart{}, errors.New("cart repository: device id is required")
	}
	if err := ctx.Err(); err != nil {
		return domain.Cart{}, unavailableError("cart repository: context done", err)
	}

	var doc cartDocument
	found := false
	err := r.store.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket([]byte(cartBucket)).Get([]byte(key))
		if raw == nil {
			return nil
		}
		found = true
		return json.Unmarshal(raw, &doc)
	})
	if err != nil {
		return domain.Cart{}, unavailableError("cart repository: read failed", err)
	}
	if !found {
		return domain.Cart{}, notFoundError("cart repository: guest cart not found")
	}

	return doc.toDomain(), nil
}

// Save replaces the persisted cart for the device.
func (r *CartRepository) Save(ctx context.Context, deviceID string, cart domain.Cart) (domain.Cart, error) {
	if r == nil || r.store == nil {
		return domain.Cart{}, unavailableError("cart repository not initialised", nil)
	}
	key := strings.TrimSpace(deviceID)
	if key == "" {
		return domain.Cart{}, errors.New("cart repository: device id is required")
	}
	if err := ctx.Err(); err != nil {
		return domain.Cart{}, unavailableError("cart repository: context done", err)
	}

	doc := documentFromCart(cart)
	raw, err := json.Marshal(doc)
	if err != nil {
		return domain.Cart{}, unavailableError("cart repository: encode failed", err)
	}

	err = r.store.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(cartBucket)).Put([]byte(key), raw)
	})
	if err != nil {
		return domain.Cart{}, unavailableError("cart repository: write failed", err)
	}

	return doc.toDomain(), nil
}

// Delete removes the persisted cart; absent carts are a no-op.
func (r *CartRepository) Delete(ctx context.Context, deviceID string) error {
	if r == nil || r.store == nil {
		return unavailableError("cart repository not initialised", nil)
	}
	key := strings.TrimSpace(deviceID)
	if key == "" {
		return errors.New("cart repository: device id is required")
	}
	if err := ctx.Err(); err != nil {
		return unavailableError("cart repository: context done", err)
	}

	err := r.store.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(cartBucket)).Delete([]byte(key))
	})
	if err != nil {
		return unavailableError("cart repository: delete failed", err)
	}
	return nil
}

// DeleteStale prunes guest carts whose last update predates the cutoff.
func (r *CartRepository) DeleteStale(ctx context.Context, cutoff time.Time) (int, error) {
	if r == nil || r.store == nil {
		return 0, unavailableError("cart repository not initialised", nil)
	}
	if err := ctx.Err(); err != nil {
		return 0, unavailableError("cart repository: context done", err)
	}

	removed := 0
	err := r.store.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(cartBucket))
		cursor := bucket.Cursor()

		var stale [][]byte
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			var doc cartDocument
			if err := json.Unmarshal(v, &doc); err != nil {
				// Corrupt entries are treated as stale.
				stale = append(stale, append([]byte(nil), k...))
				continue
			}
			if doc.UpdatedAt.Before(cutoff) {
				stale = append(stale, append([]byte(nil), k...))
			}
		}

		for _, k := range stale {
			if err := bucket.Delete(k); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return removed, unavailableError("cart repository: sweep failed", err)
	}
	return removed, nil
}

type cartDocument struct {
	Lines     []cartLineDocument `json:"lines"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

type cartLineDocument struct {
	LineID    string    `json:"lineId"`
	ProductID int64     `json:"productId"`
	NameUz    string    `json:"nameUz,omitempty"`
	NameRu    string    `json:"nameRu,omitempty"`
	UnitPrice int64     `json:"unitPrice"`
	Quantity  int       `json:"quantity"`
	ImageRef  string    `json:"imageRef,omitempty"`
	AddedAt   time.Time `json:"addedAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func documentFromCart(cart domain.Cart) cartDocument {
	doc := cartDocument{
		Lines:     make([]cartLineDocument, 0, len(cart.Lines)),
		CreatedAt: cart.CreatedAt.UTC(),
		UpdatedAt: cart.UpdatedAt.UTC(),
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = time.Now().UTC()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = doc.UpdatedAt
	}
	for _, line := range cart.Lines {
		doc.Lines = append(doc.Lines, cartLineDocument{
			LineID:    strings.TrimSpace(line.LineID),
			ProductID: line.ProductID,
			NameUz:    line.Name.Uz,
			NameRu:    line.Name.Ru,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
			ImageRef:  strings.TrimSpace(line.ImageRef),
			AddedAt:   line.AddedAt.UTC(),
			UpdatedAt: line.UpdatedAt.UTC(),
		})
	}
	return doc
}

func (d cartDocument) toDomain() domain.Cart {
	cart := domain.Cart{
		Origin:    domain.CartOriginGuest,
		Lines:     make([]domain.CartLine, 0, len(d.Lines)),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	for _, line := range d.Lines {
		cart.Lines = append(cart.Lines, domain.CartLine{
			LineID:    line.LineID,
			ProductID: line.ProductID,
			Name:      domain.LocalizedText{Uz: line.NameUz, Ru: line.NameRu},
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
			ImageRef:  line.ImageRef,
			AddedAt:   line.AddedAt,
			UpdatedAt: line.UpdatedAt,
		})
	}
	return cart
}

var _ repositories.GuestCartRepository = (*CartRepository)(nil)
