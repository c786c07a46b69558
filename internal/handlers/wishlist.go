package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bozor-market/api/internal/platform/httpx"
	"github.com/bozor-market/api/internal/services"
)

// WishlistHandlers exposes the device-scoped wishlist endpoints.
type WishlistHandlers struct {
	wishlists services.WishlistService
}

const maxWishlistBodySize = 4 * 1024

// NewWishlistHandlers constructs handlers over the wishlist service.
func NewWishlistHandlers(wishlists services.WishlistService) *WishlistHandlers {
	return &WishlistHandlers{wishlists: wishlists}
}

// Routes wires the /wishlist endpoints onto the provided router.
func (h *WishlistHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listWishlist)
	r.Post("/", h.addToWishlist)
	r.Delete("/{productID}", h.removeFromWishlist)
}

func (h *WishlistHandlers) listWishlist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	device, ok := h.requireDevice(ctx, w, r)
	if !ok {
		return
	}

	entries, err := h.wishlists.List(ctx, device)
	if err != nil {
		h.writeWishlistError(ctx, w, err)
		return
	}

	items := make([]wishlistEntryPayload, 0, len(entries))
	for _, entry := range entries {
		items = append(items, wishlistEntryPayload{
			ProductID: entry.ProductID,
			AddedAt:   formatTime(entry.AddedAt),
		})
	}
	httpx.WriteData(w, http.StatusOK, "wishlist", wishlistPayload{Items: items, Count: len(items)})
}

func (h *WishlistHandlers) addToWishlist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	device, ok := h.requireDevice(ctx, w, r)
	if !ok {
		return
	}

	body, err := readLimitedBody(r, maxWishlistBodySize)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	raw, err := decodeJSONObject(body)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	productID, err := parseProductID(raw)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	added, err := h.wishlists.Add(ctx, device, productID)
	if err != nil {
		h.writeWishlistError(ctx, w, err)
		return
	}

	message := "added to wishlist"
	status := http.StatusCreated
	if !added {
		message = "already in wishlist"
		status = http.StatusOK
	}
	httpx.WriteData(w, status, message, map[string]any{"product_id": productID, "added": added})
}

func (h *WishlistHandlers) removeFromWishlist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	device, ok := h.requireDevice(ctx, w, r)
	if !ok {
		return
	}

	productID, err := pathProductID(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	if err := h.wishlists.Remove(ctx, device, productID); err != nil {
		h.writeWishlistError(ctx, w, err)
		return
	}

	httpx.WriteData(w, http.StatusOK, "removed from wishlist", map[string]any{"product_id": productID})
}

func (h *WishlistHandlers) requireDevice(ctx context.Context, w http.ResponseWriter, r *http.Request) (string, bool) {
	device := deviceID(r)
	if device == "" {
		httpx.WriteError(ctx, w, httpx.NewError("device_id_required", "X-Device-ID header is required", http.StatusBadRequest))
		return "", false
	}
	return device, true
}

func (h *WishlistHandlers) writeWishlistError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrWishlistInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrWishlistLimitReached):
		httpx.WriteError(ctx, w, httpx.NewError("wishlist_limit_reached", "wishlist is full", http.StatusConflict))
	case errors.Is(err, services.ErrWishlistUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("wishlist_unavailable", "wishlist service is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("wishlist_error", "wishlist operation failed", http.StatusInternalServerError))
	}
}

type wishlistPayload struct {
	Items []wishlistEntryPayload `json:"items"`
	Count int                    `json:"count"`
}

type wishlistEntryPayload struct {
	ProductID int64  `json:"product_id"`
	AddedAt   string `json:"added_at,omitempty"`
}
