package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/bozor-market/api/internal/platform/httpx"
	"github.com/bozor-market/api/internal/platform/locale"
	"github.com/bozor-market/api/internal/services"
)

// ProductHandlers exposes catalog lookups used by the storefront to refresh
// price and availability snapshots.
type ProductHandlers struct {
	catalog services.CatalogService
}

// NewProductHandlers constructs handlers over the catalog service.
func NewProductHandlers(catalog services.CatalogService) *ProductHandlers {
	return &ProductHandlers{catalog: catalog}
}

// Routes wires the /products endpoints onto the provided router.
func (h *ProductHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/{productID}", h.getProduct)
}

func (h *ProductHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	productID, err := pathProductID(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	snapshot, err := h.catalog.FindProduct(ctx, productID)
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}

	payload := productPayload{
		ProductID: snapshot.ProductID,
		Name:      locale.Pick(snapshot.Name, requestLocale(r)),
		UnitPrice: snapshot.UnitPrice,
		Image:     strings.TrimSpace(snapshot.ImageRef),
	}
	if snapshot.Stock >= 0 {
		stock := snapshot.Stock
		payload.Stock = &stock
	}

	httpx.WriteData(w, http.StatusOK, "product", payload)
}

func (h *ProductHandlers) writeCatalogError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCatalogUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("catalog_error", "catalog lookup failed", http.StatusInternalServerError))
	}
}

type productPayload struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Image     string `json:"image,omitempty"`
	Stock     *int   `json:"stock,omitempty"`
}
