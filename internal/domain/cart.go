package domain

import (
	"strings"
	"time"
)

// CartOrigin identifies which store currently owns the cart state.
type CartOrigin string

const (
	// CartOriginGuest marks a cart persisted in the device-local store.
	CartOriginGuest CartOrigin = "guest"
	// CartOriginServer marks a cart owned by the upstream account cart.
	CartOriginServer CartOrigin = "server"
)

// LocalizedText carries the Uzbek and Russian labels for a catalog string.
// Label selection happens at the presentation boundary, never inside the model.
type LocalizedText struct {
	Uz string
	Ru string
}

// IsEmpty reports whether neither locale carries a label.
func (t LocalizedText) IsEmpty() bool {
	return strings.TrimSpace(t.Uz) == "" && strings.TrimSpace(t.Ru) == ""
}

// CartLine is one product entry in a cart, uniquely keyed by ProductID.
// Name and UnitPrice are snapshots taken when the line was added, insulating
// the cart from later catalog changes.
type CartLine struct {
	LineID    string
	ProductID int64
	Name      LocalizedText
	UnitPrice int64
	Quantity  int
	ImageRef  string
	AddedAt   time.Time
	UpdatedAt time.Time
}

// Cart is the ordered aggregate of line items. Insertion order is preserved
// for stable display.
type Cart struct {
	Origin    CartOrigin
	Lines     []CartLine
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ItemCount returns the sum of line quantities.
func (c Cart) ItemCount() int {
	total := 0
	for _, line := range c.Lines {
		if line.Quantity > 0 {
			total += line.Quantity
		}
	}
	return total
}

// Subtotal returns the sum of unit price times quantity over all lines,
// recomputed from current state on every call.
func (c Cart) Subtotal() int64 {
	var total int64
	for _, line := range c.Lines {
		if line.Quantity <= 0 || line.UnitPrice <= 0 {
			continue
		}
		total += line.UnitPrice * int64(line.Quantity)
	}
	return total
}

// IsEmpty reports whether the cart holds no lines.
func (c Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// FindLine returns the index of the line holding the given product, or -1.
func (c Cart) FindLine(productID int64) int {
	for i, line := range c.Lines {
		if line.ProductID == productID {
			return i
		}
	}
	return -1
}

// CloneLines returns a defensive copy of the line slice.
func (c Cart) CloneLines() []CartLine {
	if len(c.Lines) == 0 {
		return []CartLine{}
	}
	dup := make([]CartLine, len(c.Lines))
	copy(dup, c.Lines)
	return dup
}

// CartSummary carries the derived aggregates used for badge refresh.
type CartSummary struct {
	ItemCount int
	Subtotal  int64
}

// Summary returns the derived aggregates for the cart.
func (c Cart) Summary() CartSummary {
	return CartSummary{
		ItemCount: c.ItemCount(),
		Subtotal:  c.Subtotal(),
	}
}

// ProductSnapshot captures the catalog fields copied onto a cart line at add
// time. Stock is advisory; a negative value means the catalog did not report
// availability.
type ProductSnapshot struct {
	ProductID int64
	Name      LocalizedText
	UnitPrice int64
	ImageRef  string
	Stock     int
}

// WishlistEntry is a saved product reference scoped to a device.
type WishlistEntry struct {
	ProductID int64
	AddedAt   time.Time
}
