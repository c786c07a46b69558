package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	domain "github.com/bozor-market/api/internal/domain"
	"github.com/bozor-market/api/internal/platform/auth"
	"github.com/bozor-market/api/internal/services"
)

type stubCartStore struct {
	getFunc     func(ctx context.Context, scope services.Scope) (domain.Cart, error)
	addFunc     func(ctx context.Context, scope services.Scope, productID int64, quantity int) (domain.Cart, error)
	updateFunc  func(ctx context.Context, scope services.Scope, productID int64, quantity int) (domain.Cart, error)
	removeFunc  func(ctx context.Context, scope services.Scope, productID int64) (domain.Cart, error)
	clearFunc   func(ctx context.Context, scope services.Scope) error
	summaryFunc func(ctx context.Context, scope services.Scope) (domain.CartSummary, error)
	previewFunc func(ctx context.Context, scope services.Scope) (services.MergePreview, error)
	mergeFunc   func(ctx context.Context, scope services.Scope, strategy domain.MergeStrategy) (domain.Cart, error)
}

func (s *stubCartStore) Get(ctx context.Context, scope services.Scope) (domain.Cart, error) {
	if s.getFunc != nil {
		return s.getFunc(ctx, scope)
	}
	return domain.Cart{Origin: domain.CartOriginGuest, Lines: []domain.CartLine{}}, nil
}

func (s *stubCartStore) AddItem(ctx context.Context, scope services.Scope, productID int64, quantity int) (domain.Cart, error) {
	if s.addFunc != nil {
		return s.addFunc(ctx, scope, productID, quantity)
	}
	return domain.Cart{}, nil
}

func (s *stubCartStore) UpdateQuantity(ctx context.Context, scope services.Scope, productID int64, quantity int) (domain.Cart, error) {
	if s.updateFunc != nil {
		return s.updateFunc(ctx, scope, productID, quantity)
	}
	return domain.Cart{}, nil
}

func (s *stubCartStore) RemoveItem(ctx context.Context, scope services.Scope, productID int64) (domain.Cart, error) {
	if s.removeFunc != nil {
		return s.removeFunc(ctx, scope, productID)
	}
	return domain.Cart{}, nil
}

func (s *stubCartStore) Clear(ctx context.Context, scope services.Scope) error {
	if s.clearFunc != nil {
		return s.clearFunc(ctx, scope)
	}
	return nil
}

func (s *stubCartStore) Summary(ctx context.Context, scope services.Scope) (domain.CartSummary, error) {
	if s.summaryFunc != nil {
		return s.summaryFunc(ctx, scope)
	}
	return domain.CartSummary{}, nil
}

func (s *stubCartStore) MergePreview(ctx context.Context, scope services.Scope) (services.MergePreview, error) {
	if s.previewFunc != nil {
		return s.previewFunc(ctx, scope)
	}
	return services.MergePreview{}, nil
}

func (s *stubCartStore) Merge(ctx context.Context, scope services.Scope, strategy domain.MergeStrategy) (domain.Cart, error) {
	if s.mergeFunc != nil {
		return s.mergeFunc(ctx, scope, strategy)
	}
	return domain.Cart{}, nil
}

func newCartRouter(store services.CartStore) http.Handler {
	return NewRouter(WithCartRoutes(NewCartHandlers(store).Routes))
}

func decodeEnvelope(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return payload
}

func TestCartHandlersGetRequiresDeviceIDForGuests(t *testing.T) {
	router := newCartRouter(&stubCartStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart/", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	payload := decodeEnvelope(t, rr.Body.Bytes())
	if payload["success"] != false {
		t.Fatalf("expected failed envelope")
	}
	if payload["code"] != "device_id_required" {
		t.Fatalf("expected device_id_required code, got %v", payload["code"])
	}
}

func TestCartHandlersGetLocalisesLabels(t *testing.T) {
	store := &stubCartStore{
		getFunc: func(ctx context.Context, scope services.Scope) (domain.Cart, error) {
			if scope.DeviceID != "device-1" {
				t.Fatalf("unexpected device id %q", scope.DeviceID)
			}
			return domain.Cart{
				Origin: domain.CartOriginGuest,
				Lines: []domain.CartLine{
					{ProductID: 42, Name: domain.LocalizedText{Uz: "Smartfon", Ru: "Смартфон"}, UnitPrice: 8_999_000, Quantity: 2},
				},
			}, nil
		},
	}
	router := newCartRouter(store)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart/", nil)
	req.Header.Set("X-Device-ID", "device-1")
	req.Header.Set("Accept-Language", "ru-RU,ru;q=0.9")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	payload := decodeEnvelope(t, rr.Body.Bytes())
	data := payload["data"].(map[string]any)
	items := data["items"].([]any)
	first := items[0].(map[string]any)
	if first["name"] != "Смартфон" {
		t.Fatalf("expected russian label, got %v", first["name"])
	}
	if data["subtotal"] != float64(17_998_000) {
		t.Fatalf("expected subtotal 17998000, got %v", data["subtotal"])
	}
}

func TestCartHandlersAddItemParsesLenientBody(t *testing.T) {
	var gotProduct int64
	var gotQuantity int
	store := &stubCartStore{
		addFunc: func(ctx context.Context, scope services.Scope, productID int64, quantity int) (domain.Cart, error) {
			gotProduct = productID
			gotQuantity = quantity
			return domain.Cart{Origin: domain.CartOriginGuest, Lines: []domain.CartLine{}}, nil
		},
	}
	router := newCartRouter(store)

	// Quantity arrives as a string from older clients.
	body := strings.NewReader(`{"product_id": "42", "quantity": "2"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/add", body)
	req.Header.Set("X-Device-ID", "device-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if gotProduct != 42 || gotQuantity != 2 {
		t.Fatalf("unexpected parsed args %d %d", gotProduct, gotQuantity)
	}
}

func TestCartHandlersAddItemDefaultsQuantity(t *testing.T) {
	var gotQuantity int
	store := &stubCartStore{
		addFunc: func(ctx context.Context, scope services.Scope, productID int64, quantity int) (domain.Cart, error) {
			gotQuantity = quantity
			return domain.Cart{Lines: []domain.CartLine{}}, nil
		},
	}
	router := newCartRouter(store)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/add", strings.NewReader(`{"productId": 42}`))
	req.Header.Set("X-Device-ID", "device-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if gotQuantity != 1 {
		t.Fatalf("expected default quantity 1, got %d", gotQuantity)
	}
}

func TestCartHandlersUpdateQuantityTranslatesInvalidInput(t *testing.T) {
	store := &stubCartStore{
		updateFunc: func(ctx context.Context, scope services.Scope, productID int64, quantity int) (domain.Cart, error) {
			return domain.Cart{}, services.ErrCartInvalidInput
		},
	}
	router := newCartRouter(store)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/cart/update/42", strings.NewReader(`{"quantity": 3}`))
	req.Header.Set("X-Device-ID", "device-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestCartHandlersRemoveItemBadPathParam(t *testing.T) {
	router := newCartRouter(&stubCartStore{})

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/cart/remove/abc", nil)
	req.Header.Set("X-Device-ID", "device-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestCartHandlersMergeRequiresAuthentication(t *testing.T) {
	router := newCartRouter(&stubCartStore{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/merge", strings.NewReader(`{}`))
	req.Header.Set("X-Device-ID", "device-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
}

func TestCartHandlersMergeChoiceRequired(t *testing.T) {
	store := &stubCartStore{
		mergeFunc: func(ctx context.Context, scope services.Scope, strategy domain.MergeStrategy) (domain.Cart, error) {
			if strategy != "" {
				t.Fatalf("expected empty strategy, got %q", strategy)
			}
			return domain.Cart{}, services.ErrCartMergeChoiceRequired
		},
	}
	router := newCartRouter(store)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/merge", strings.NewReader(`{}`))
	req.Header.Set("X-Device-ID", "device-1")
	identity := &auth.Identity{UserID: "user-1", RawToken: "token-abc"}
	req = req.WithContext(auth.WithIdentity(req.Context(), identity))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d: %s", rr.Code, rr.Body.String())
	}
	payload := decodeEnvelope(t, rr.Body.Bytes())
	if payload["code"] != "merge_choice_required" {
		t.Fatalf("expected merge_choice_required code, got %v", payload["code"])
	}
}

func TestCartHandlersMergeForwardsStrategy(t *testing.T) {
	var gotStrategy domain.MergeStrategy
	var gotScope services.Scope
	store := &stubCartStore{
		mergeFunc: func(ctx context.Context, scope services.Scope, strategy domain.MergeStrategy) (domain.Cart, error) {
			gotStrategy = strategy
			gotScope = scope
			return domain.Cart{Origin: domain.CartOriginServer, Lines: []domain.CartLine{}}, nil
		},
	}
	router := newCartRouter(store)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/merge", strings.NewReader(`{"strategy": "sum"}`))
	req.Header.Set("X-Device-ID", "device-1")
	identity := &auth.Identity{UserID: "user-1", RawToken: "token-abc"}
	req = req.WithContext(auth.WithIdentity(req.Context(), identity))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if gotStrategy != domain.MergeSum {
		t.Fatalf("expected sum strategy, got %q", gotStrategy)
	}
	if gotScope.DeviceID != "device-1" || gotScope.UserToken != "token-abc" {
		t.Fatalf("unexpected scope %+v", gotScope)
	}
}

func TestCartHandlersMergeDisabledByFeatureFlag(t *testing.T) {
	router := NewRouter(WithCartRoutes(NewCartHandlers(&stubCartStore{}, WithMergeEnabled(false)).Routes))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/merge", strings.NewReader(`{}`))
	req.Header.Set("X-Device-ID", "device-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code == http.StatusOK || rr.Code == http.StatusUnauthorized {
		t.Fatalf("expected merge route absent, got %d", rr.Code)
	}
}

func TestCartHandlersAuthExpired(t *testing.T) {
	store := &stubCartStore{
		getFunc: func(ctx context.Context, scope services.Scope) (domain.Cart, error) {
			return domain.Cart{}, services.ErrCartAuthExpired
		},
	}
	router := newCartRouter(store)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart/", nil)
	identity := &auth.Identity{UserID: "user-1", RawToken: "stale"}
	req = req.WithContext(auth.WithIdentity(req.Context(), identity))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
	payload := decodeEnvelope(t, rr.Body.Bytes())
	if payload["code"] != "token_expired" {
		t.Fatalf("expected token_expired code, got %v", payload["code"])
	}
}

func TestCartHandlersSummary(t *testing.T) {
	store := &stubCartStore{
		summaryFunc: func(ctx context.Context, scope services.Scope) (domain.CartSummary, error) {
			return domain.CartSummary{ItemCount: 5, Subtotal: 18_358_000}, nil
		},
	}
	router := newCartRouter(store)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart/summary", nil)
	req.Header.Set("X-Device-ID", "device-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	payload := decodeEnvelope(t, rr.Body.Bytes())
	data := payload["data"].(map[string]any)
	if data["items_count"] != float64(5) || data["subtotal"] != float64(18_358_000) {
		t.Fatalf("unexpected summary %v", data)
	}
}
