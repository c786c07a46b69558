// Package upstream implements the typed client for the remote cart and
// catalog API. All responses arrive in the storefront envelope
// {success, message, data?, errors?} and are authenticated with the caller's
// bearer token.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/guonaihong/gout"

	domain "github.com/bozor-market/api/internal/domain"
	"github.com/bozor-market/api/internal/platform/config"
)

// ErrUnavailable indicates the upstream backend could not be reached or
// answered with a server error.
var ErrUnavailable = errors.New("upstream: unavailable")

// ErrAuthExpired indicates the bearer token was rejected by the backend.
var ErrAuthExpired = errors.New("upstream: authentication expired")

// ErrNotFound indicates the requested resource does not exist upstream.
var ErrNotFound = errors.New("upstream: not found")

// ErrRejected indicates the backend answered with a failed envelope.
var ErrRejected = errors.New("upstream: request rejected")

const defaultTimeout = 10 * time.Second

// Client talks to the remote cart backend.
type Client struct {
	baseURL string
	timeout time.Duration
}

// NewClient constructs a Client from upstream configuration.
func NewClient(cfg config.UpstreamConfig) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("upstream: base url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{baseURL: base, timeout: timeout}, nil
}

type envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Data    json.RawMessage     `json:"data"`
	Errors  map[string][]string `json:"errors"`
}

// serverCartLine mirrors the wire shape of a server cart line. The legacy
// backend is inconsistent about name fields (nameUz/nameRu vs name), so all
// variants are accepted and canonicalised here.
type serverCartLine struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"productId"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"`
	Name      string `json:"name"`
	NameUz    string `json:"nameUz"`
	NameRu    string `json:"nameRu"`
	Image     string `json:"image"`
}

type serverProduct struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	NameUz string `json:"nameUz"`
	NameRu string `json:"nameRu"`
	Price  int64  `json:"price"`
	Image  string `json:"image"`
	Stock  *int   `json:"stock"`
}

// FetchCart loads the account cart.
func (c *Client) FetchCart(ctx context.Context, token string) (domain.Cart, error) {
	var env envelope
	code := 0
	err := gout.GET(c.url("cart")).
		WithContext(ctx).
		SetTimeout(c.timeout).
		SetHeader(c.headers(token)).
		BindJSON(&env).
		Code(&code).
		Do()
	if err := c.check(code, env, err); err != nil {
		return domain.Cart{}, err
	}

	var lines []serverCartLine
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &lines); err != nil {
			return domain.Cart{}, fmt.Errorf("%w: malformed cart payload: %v", ErrUnavailable, err)
		}
	}

	cart := domain.Cart{
		Origin:    domain.CartOriginServer,
		Lines:     make([]domain.CartLine, 0, len(lines)),
		UpdatedAt: time.Now().UTC(),
	}
	for _, line := range lines {
		cart.Lines = append(cart.Lines, line.toDomain())
	}
	return cart, nil
}

// AddItem creates or increments a line in the account cart.
func (c *Client) AddItem(ctx context.Context, token string, productID int64, quantity int) (domain.CartLine, error) {
	var env envelope
	code := 0
	err := gout.POST(c.url("cart/add")).
		WithContext(ctx).
		SetTimeout(c.timeout).
		SetHeader(c.headers(token)).
		SetJSON(gout.H{"productId": productID, "quantity": quantity}).
		BindJSON(&env).
		Code(&code).
		Do()
	if err := c.check(code, env, err); err != nil {
		return domain.CartLine{}, err
	}
	return decodeLine(env.Data)
}

// UpdateLine sets the exact quantity on a server-owned line.
func (c *Client) UpdateLine(ctx context.Context, token string, lineID string, quantity int) (domain.CartLine, error) {
	id := strings.TrimSpace(lineID)
	if id == "" {
		return domain.CartLine{}, fmt.Errorf("%w: line id is required", ErrRejected)
	}

	var env envelope
	code := 0
	err := gout.PUT(c.url("cart/update/"+id)).
		WithContext(ctx).
		SetTimeout(c.timeout).
		SetHeader(c.headers(token)).
		SetJSON(gout.H{"quantity": quantity}).
		BindJSON(&env).
		Code(&code).
		Do()
	if err := c.check(code, env, err); err != nil {
		return domain.CartLine{}, err
	}
	return decodeLine(env.Data)
}

// RemoveLine deletes a server-owned line.
func (c *Client) RemoveLine(ctx context.Context, token string, lineID string) error {
	id := strings.TrimSpace(lineID)
	if id == "" {
		return fmt.Errorf("%w: line id is required", ErrRejected)
	}

	var env envelope
	code := 0
	err := gout.DELETE(c.url("cart/remove/"+id)).
		WithContext(ctx).
		SetTimeout(c.timeout).
		SetHeader(c.headers(token)).
		BindJSON(&env).
		Code(&code).
		Do()
	return c.check(code, env, err)
}

// Clear empties the account cart through the dedicated endpoint so the
// operation stays atomic from the client's perspective.
func (c *Client) Clear(ctx context.Context, token string) error {
	var env envelope
	code := 0
	err := gout.POST(c.url("cart/clear")).
		WithContext(ctx).
		SetTimeout(c.timeout).
		SetHeader(c.headers(token)).
		BindJSON(&env).
		Code(&code).
		Do()
	return c.check(code, env, err)
}

// FindProduct looks up the catalog fields snapshotted at add-to-cart time.
func (c *Client) FindProduct(ctx context.Context, productID int64) (domain.ProductSnapshot, error) {
	if productID <= 0 {
		return domain.ProductSnapshot{}, fmt.Errorf("%w: product id is required", ErrRejected)
	}

	var env envelope
	code := 0
	err := gout.GET(c.url("products/"+strconv.FormatInt(productID, 10))).
		WithContext(ctx).
		SetTimeout(c.timeout).
		SetHeader(c.headers("")).
		BindJSON(&env).
		Code(&code).
		Do()
	if err := c.check(code, env, err); err != nil {
		return domain.ProductSnapshot{}, err
	}

	var product serverProduct
	if err := json.Unmarshal(env.Data, &product); err != nil {
		return domain.ProductSnapshot{}, fmt.Errorf("%w: malformed product payload: %v", ErrUnavailable, err)
	}

	snapshot := domain.ProductSnapshot{
		ProductID: product.ID,
		Name: domain.LocalizedText{
			Uz: firstNonEmpty(product.NameUz, product.Name),
			Ru: firstNonEmpty(product.NameRu, product.Name),
		},
		UnitPrice: product.Price,
		ImageRef:  strings.TrimSpace(product.Image),
		Stock:     -1,
	}
	if product.Stock != nil {
		snapshot.Stock = *product.Stock
	}
	return snapshot, nil
}

func (c *Client) url(path string) string {
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

func (c *Client) headers(token string) gout.H {
	h := gout.H{"Accept": "application/json"}
	if token = strings.TrimSpace(token); token != "" {
		h["Authorization"] = "Bearer " + token
	}
	return h
}

// check translates transport failures, HTTP status codes, and failed
// envelopes into the package sentinels.
func (c *Client) check(code int, env envelope, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrAuthExpired
	case code == http.StatusNotFound:
		return ErrNotFound
	case code >= http.StatusInternalServerError:
		return fmt.Errorf("%w: status %d", ErrUnavailable, code)
	}
	if !env.Success {
		msg := strings.TrimSpace(env.Message)
		if msg == "" {
			msg = fmt.Sprintf("status %d", code)
		}
		return fmt.Errorf("%w: %s", ErrRejected, msg)
	}
	return nil
}

func decodeLine(data json.RawMessage) (domain.CartLine, error) {
	if len(data) == 0 {
		return domain.CartLine{}, fmt.Errorf("%w: empty line payload", ErrUnavailable)
	}
	var line serverCartLine
	if err := json.Unmarshal(data, &line); err != nil {
		return domain.CartLine{}, fmt.Errorf("%w: malformed line payload: %v", ErrUnavailable, err)
	}
	return line.toDomain(), nil
}

func (l serverCartLine) toDomain() domain.CartLine {
	return domain.CartLine{
		LineID:    strconv.FormatInt(l.ID, 10),
		ProductID: l.ProductID,
		Name: domain.LocalizedText{
			Uz: firstNonEmpty(l.NameUz, l.Name),
			Ru: firstNonEmpty(l.NameRu, l.Name),
		},
		UnitPrice: l.Price,
		Quantity:  l.Quantity,
		ImageRef:  strings.TrimSpace(l.Image),
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
