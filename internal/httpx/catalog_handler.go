package httpx

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-storefront-bff/internal/apperr"
	"github.com/ariefcatur/go-storefront-bff/internal/backend"
	"github.com/ariefcatur/go-storefront-bff/internal/storefront"
)

type Catalog interface {
	ListProducts(ctx context.Context, page, size int) (storefront.Page[storefront.Product], error)
	ListByCategory(ctx context.Context, category string, page, size int) (storefront.Page[storefront.Product], error)
	GetProduct(ctx context.Context, id string) (storefront.Product, error)
	ListCollections(ctx context.Context) ([]storefront.Collection, error)
}

// CatalogHandler relays public product reads.
type CatalogHandler struct {
	Catalog Catalog
}

func (h *CatalogHandler) Register(r chi.Router) {
	r.Get("/bff/products", h.list)
	r.Get("/bff/products/category/{category}", h.byCategory)
	r.Get("/bff/products/{id}", h.get)
	r.Get("/bff/products/{id}/availability", h.availability)
	r.Get("/bff/collections", h.collections)
}

func paging(r *http.Request) (page, size int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	size, _ = strconv.Atoi(r.URL.Query().Get("size"))
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = backend.DefaultPageSize
	}
	return page, size
}

func (h *CatalogHandler) list(w http.ResponseWriter, r *http.Request) {
	page, size := paging(r)
	p, err := h.Catalog.ListProducts(r.Context(), page, size)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *CatalogHandler) byCategory(w http.ResponseWriter, r *http.Request) {
	page, size := paging(r)
	p, err := h.Catalog.ListByCategory(r.Context(), chi.URLParam(r, "category"), page, size)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *CatalogHandler) get(w http.ResponseWriter, r *http.Request) {
	p, err := h.Catalog.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		apperr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *CatalogHandler) availability(w http.ResponseWriter, r *http.Request) {
	p, err := h.Catalog.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		apperr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, storefront.Availability(p))
}

func (h *CatalogHandler) collections(w http.ResponseWriter, r *http.Request) {
	cs, err := h.Catalog.ListCollections(r.Context())
	if err != nil {
		apperr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}
