package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cast"

	domain "github.com/bozor-market/api/internal/domain"
	"github.com/bozor-market/api/internal/platform/auth"
	"github.com/bozor-market/api/internal/platform/httpx"
	"github.com/bozor-market/api/internal/platform/locale"
	"github.com/bozor-market/api/internal/services"
)

// CartHandlers exposes the cart endpoints for both guest and authenticated
// callers. Guests are keyed by the X-Device-ID header; authenticated callers
// act on the account cart through the forwarded bearer token.
type CartHandlers struct {
	carts        services.CartStore
	mergeEnabled bool
}

const maxCartBodySize = 16 * 1024

// CartOption customises cart handler construction.
type CartOption func(*CartHandlers)

// WithMergeEnabled toggles the merge endpoints.
func WithMergeEnabled(enabled bool) CartOption {
	return func(h *CartHandlers) {
		h.mergeEnabled = enabled
	}
}

// NewCartHandlers constructs handlers over the cart store.
func NewCartHandlers(carts services.CartStore, opts ...CartOption) *CartHandlers {
	h := &CartHandlers{carts: carts, mergeEnabled: true}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes wires the /cart endpoints onto the provided router.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.getCart)
	r.Get("/summary", h.getSummary)
	r.Post("/add", h.addItem)
	r.Put("/update/{productID}", h.updateQuantity)
	r.Delete("/remove/{productID}", h.removeItem)
	r.Post("/clear", h.clearCart)
	if h.mergeEnabled {
		r.Get("/merge", h.previewMerge)
		r.Post("/merge", h.mergeCart)
	}
}

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scope, ok := h.requestScope(ctx, w, r)
	if !ok {
		return
	}

	cart, err := h.carts.Get(ctx, scope)
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}

	httpx.WriteData(w, http.StatusOK, "cart", buildCartPayload(cart, requestLocale(r)))
}

func (h *CartHandlers) getSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scope, ok := h.requestScope(ctx, w, r)
	if !ok {
		return
	}

	summary, err := h.carts.Summary(ctx, scope)
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}

	httpx.WriteData(w, http.StatusOK, "cart summary", cartSummaryPayload{
		ItemCount: summary.ItemCount,
		Subtotal:  summary.Subtotal,
	})
}

func (h *CartHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scope, ok := h.requestScope(ctx, w, r)
	if !ok {
		return
	}

	raw, ok := h.readBody(ctx, w, r)
	if !ok {
		return
	}

	productID, err := parseProductID(raw)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	quantity := 1
	if value, present := fieldValue(raw, "quantity"); present {
		quantity, err = cast.ToIntE(value)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "quantity must be a number", http.StatusBadRequest))
			return
		}
	}

	cart, err := h.carts.AddItem(ctx, scope, productID, quantity)
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}

	httpx.WriteData(w, http.StatusOK, "item added", buildCartPayload(cart, requestLocale(r)))
}

func (h *CartHandlers) updateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scope, ok := h.requestScope(ctx, w, r)
	if !ok {
		return
	}

	productID, err := pathProductID(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	raw, ok := h.readBody(ctx, w, r)
	if !ok {
		return
	}
	value, present := fieldValue(raw, "quantity")
	if !present {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "quantity is required", http.StatusBadRequest))
		return
	}
	quantity, err := cast.ToIntE(value)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "quantity must be a number", http.StatusBadRequest))
		return
	}

	cart, err := h.carts.UpdateQuantity(ctx, scope, productID, quantity)
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}

	httpx.WriteData(w, http.StatusOK, "quantity updated", buildCartPayload(cart, requestLocale(r)))
}

func (h *CartHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scope, ok := h.requestScope(ctx, w, r)
	if !ok {
		return
	}

	productID, err := pathProductID(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	cart, err := h.carts.RemoveItem(ctx, scope, productID)
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}

	httpx.WriteData(w, http.StatusOK, "item removed", buildCartPayload(cart, requestLocale(r)))
}

func (h *CartHandlers) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scope, ok := h.requestScope(ctx, w, r)
	if !ok {
		return
	}

	if err := h.carts.Clear(ctx, scope); err != nil {
		h.writeCartError(ctx, w, err)
		return
	}

	httpx.WriteData(w, http.StatusOK, "cart cleared", buildCartPayload(domain.Cart{
		Origin: cartOrigin(scope),
		Lines:  []domain.CartLine{},
	}, requestLocale(r)))
}

func (h *CartHandlers) previewMerge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scope, ok := h.mergeScope(ctx, w, r)
	if !ok {
		return
	}

	preview, err := h.carts.MergePreview(ctx, scope)
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}

	loc := requestLocale(r)
	httpx.WriteData(w, http.StatusOK, "merge preview", mergePreviewPayload{
		Guest:          buildCartPayload(preview.Guest, loc),
		Server:         buildCartPayload(preview.Server, loc),
		RequiresChoice: preview.RequiresChoice,
	})
}

func (h *CartHandlers) mergeCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scope, ok := h.mergeScope(ctx, w, r)
	if !ok {
		return
	}

	raw, ok := h.readBody(ctx, w, r)
	if !ok {
		return
	}

	var strategy domain.MergeStrategy
	if value, present := fieldValue(raw, "strategy"); present {
		parsed, err := domain.ParseMergeStrategy(cast.ToString(value))
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
			return
		}
		strategy = parsed
	}

	cart, err := h.carts.Merge(ctx, scope, strategy)
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}

	httpx.WriteData(w, http.StatusOK, "carts merged", buildCartPayload(cart, requestLocale(r)))
}

// requestScope derives the cart scope from the verified identity and the
// device header. Guests without a device id cannot be keyed and are refused.
func (h *CartHandlers) requestScope(ctx context.Context, w http.ResponseWriter, r *http.Request) (services.Scope, bool) {
	scope := services.Scope{DeviceID: deviceID(r)}
	if identity, ok := auth.IdentityFromContext(ctx); ok && identity.Authenticated() {
		scope.UserID = identity.UserID
		scope.UserToken = identity.RawToken
	}
	if !scope.Authenticated() && scope.DeviceID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("device_id_required", "X-Device-ID header is required for guest carts", http.StatusBadRequest))
		return services.Scope{}, false
	}
	return scope, true
}

// mergeScope requires both sides: a verified identity and the device id of
// the guest cart being reconciled.
func (h *CartHandlers) mergeScope(ctx context.Context, w http.ResponseWriter, r *http.Request) (services.Scope, bool) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || !identity.Authenticated() {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return services.Scope{}, false
	}
	device := deviceID(r)
	if device == "" {
		httpx.WriteError(ctx, w, httpx.NewError("device_id_required", "X-Device-ID header is required to merge the guest cart", http.StatusBadRequest))
		return services.Scope{}, false
	}
	return services.Scope{
		DeviceID:  device,
		UserID:    identity.UserID,
		UserToken: identity.RawToken,
	}, true
}

func (h *CartHandlers) readBody(ctx context.Context, w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	body, err := readLimitedBody(r, maxCartBodySize)
	if err != nil {
		switch {
		case errors.Is(err, errBodyTooLarge):
			httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		}
		return nil, false
	}
	raw, err := decodeJSONObject(body)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return nil, false
	}
	return raw, true
}

func (h *CartHandlers) writeCartError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrCartInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCartAuthExpired):
		httpx.WriteError(ctx, w, httpx.NewError("token_expired", "session expired; sign in again", http.StatusUnauthorized))
	case errors.Is(err, services.ErrCartMergeChoiceRequired):
		httpx.WriteError(ctx, w, httpx.NewError("merge_choice_required", "both carts have items; choose a merge strategy", http.StatusConflict))
	case errors.Is(err, services.ErrCartUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("cart_error", "cart operation failed", http.StatusInternalServerError))
	}
}

func requestLocale(r *http.Request) locale.Locale {
	return locale.Match(r.Header.Get("Accept-Language"))
}

func cartOrigin(scope services.Scope) domain.CartOrigin {
	if scope.Authenticated() {
		return domain.CartOriginServer
	}
	return domain.CartOriginGuest
}

func parseProductID(raw map[string]any) (int64, error) {
	value, present := fieldValue(raw, "productId", "product_id")
	if !present {
		return 0, errors.New("productId is required")
	}
	id, err := cast.ToInt64E(value)
	if err != nil || id <= 0 {
		return 0, errors.New("productId must be a positive number")
	}
	return id, nil
}

func pathProductID(r *http.Request) (int64, error) {
	param := strings.TrimSpace(chi.URLParam(r, "productID"))
	id, err := cast.ToInt64E(param)
	if err != nil || id <= 0 {
		return 0, errors.New("productID must be a positive number")
	}
	return id, nil
}

func buildCartPayload(cart domain.Cart, loc locale.Locale) cartPayload {
	summary := cart.Summary()
	payload := cartPayload{
		Origin:    string(cart.Origin),
		ItemCount: summary.ItemCount,
		Subtotal:  summary.Subtotal,
		Items:     buildCartItems(cart.Lines, loc),
	}
	if !cart.UpdatedAt.IsZero() {
		payload.UpdatedAt = formatTime(cart.UpdatedAt)
	}
	return payload
}

func buildCartItems(lines []domain.CartLine, loc locale.Locale) []cartItemPayload {
	if len(lines) == 0 {
		return []cartItemPayload{}
	}

	payload := make([]cartItemPayload, 0, len(lines))
	for _, line := range lines {
		entry := cartItemPayload{
			ProductID: line.ProductID,
			Name:      locale.Pick(line.Name, loc),
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
			LineTotal: line.UnitPrice * int64(line.Quantity),
			Image:     strings.TrimSpace(line.ImageRef),
		}
		if !line.AddedAt.IsZero() {
			entry.AddedAt = formatTime(line.AddedAt)
		}
		if !line.UpdatedAt.IsZero() {
			entry.UpdatedAt = formatTime(line.UpdatedAt)
		}
		payload = append(payload, entry)
	}
	return payload
}

type cartPayload struct {
	Origin    string            `json:"origin"`
	ItemCount int               `json:"items_count"`
	Subtotal  int64             `json:"subtotal"`
	Items     []cartItemPayload `json:"items"`
	UpdatedAt string            `json:"updated_at,omitempty"`
}

type cartItemPayload struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	LineTotal int64  `json:"line_total"`
	Image     string `json:"image,omitempty"`
	AddedAt   string `json:"added_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

type cartSummaryPayload struct {
	ItemCount int   `json:"items_count"`
	Subtotal  int64 `json:"subtotal"`
}

type mergePreviewPayload struct {
	Guest          cartPayload `json:"guest"`
	Server         cartPayload `json:"server"`
	RequiresChoice bool        `json:"requires_choice"`
}
