package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bozor-market/api/internal/platform/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(config.UpstreamConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("failed to construct client: %v", err)
	}
	return client
}

func writeEnvelope(t *testing.T, w http.ResponseWriter, status int, success bool, message string, data any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]any{
		"success": success,
		"message": message,
		"data":    data,
	}); err != nil {
		t.Errorf("failed to encode envelope: %v", err)
	}
}

func TestClientFetchCartDecodesLines(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/cart" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token-abc" {
			t.Fatalf("expected bearer header, got %q", got)
		}
		writeEnvelope(t, w, http.StatusOK, true, "cart", []map[string]any{
			{"id": 11, "productId": 42, "quantity": 2, "price": 8_999_000, "nameUz": "Smartfon", "nameRu": "Смартфон", "image": "products/42.jpg"},
		})
	})

	cart, err := client.FetchCart(context.Background(), "token-abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cart.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(cart.Lines))
	}
	line := cart.Lines[0]
	if line.LineID != "11" {
		t.Fatalf("expected line id 11, got %q", line.LineID)
	}
	if line.UnitPrice != 8_999_000 || line.Quantity != 2 {
		t.Fatalf("unexpected line %+v", line)
	}
	if line.Name.Uz != "Smartfon" || line.Name.Ru != "Смартфон" {
		t.Fatalf("expected both labels decoded, got %+v", line.Name)
	}
}

func TestClientFetchCartUnauthorised(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(t, w, http.StatusUnauthorized, false, "token expired", nil)
	})

	_, err := client.FetchCart(context.Background(), "stale")
	if !errors.Is(err, ErrAuthExpired) {
		t.Fatalf("expected ErrAuthExpired, got %v", err)
	}
}

func TestClientAddItemPostsPayload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/cart/add" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		if body["productId"] != float64(42) || body["quantity"] != float64(3) {
			t.Fatalf("unexpected body %v", body)
		}
		writeEnvelope(t, w, http.StatusOK, true, "added", map[string]any{
			"id": 11, "productId": 42, "quantity": 3, "price": 8_999_000, "name": "Smartfon",
		})
	})

	line, err := client.AddItem(context.Background(), "token", 42, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if line.LineID != "11" || line.Quantity != 3 {
		t.Fatalf("unexpected line %+v", line)
	}
	if line.Name.Uz != "Smartfon" || line.Name.Ru != "Smartfon" {
		t.Fatalf("expected bare name applied to both labels, got %+v", line.Name)
	}
}

func TestClientUpdateLineTargetsPath(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/cart/update/11" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		writeEnvelope(t, w, http.StatusOK, true, "updated", map[string]any{
			"id": 11, "productId": 42, "quantity": 5, "price": 8_999_000,
		})
	})

	line, err := client.UpdateLine(context.Background(), "token", "11", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if line.Quantity != 5 {
		t.Fatalf("expected quantity 5, got %d", line.Quantity)
	}
}

func TestClientRemoveLineMissing(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(t, w, http.StatusNotFound, false, "not found", nil)
	})

	err := client.RemoveLine(context.Background(), "token", "99")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClientClearRejectedEnvelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cart/clear" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		writeEnvelope(t, w, http.StatusOK, false, "cart is locked", nil)
	})

	err := client.Clear(context.Background(), "token")
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
}

func TestClientServerErrorIsUnavailable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.FetchCart(context.Background(), "token")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestClientFindProductDefaultsStock(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/products/42" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "" {
			t.Fatalf("expected no auth header for catalog lookup")
		}
		writeEnvelope(t, w, http.StatusOK, true, "product", map[string]any{
			"id": 42, "nameUz": "Smartfon", "nameRu": "Смартфон", "price": 8_999_000, "image": "products/42.jpg",
		})
	})

	snapshot, err := client.FindProduct(context.Background(), 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snapshot.Stock != -1 {
		t.Fatalf("expected unreported stock as -1, got %d", snapshot.Stock)
	}
	if snapshot.UnitPrice != 8_999_000 {
		t.Fatalf("expected price 8999000, got %d", snapshot.UnitPrice)
	}
}

func TestClientFindProductReportsStock(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(t, w, http.StatusOK, true, "product", map[string]any{
			"id": 42, "name": "Smartfon", "price": 8_999_000, "stock": 3,
		})
	})

	snapshot, err := client.FindProduct(context.Background(), 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snapshot.Stock != 3 {
		t.Fatalf("expected stock 3, got %d", snapshot.Stock)
	}
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient(config.UpstreamConfig{}); err == nil {
		t.Fatalf("expected error for missing base url")
	}
}
