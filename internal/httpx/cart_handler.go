package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-storefront-bff/internal/apperr"
	"github.com/ariefcatur/go-storefront-bff/internal/cart"
	"github.com/ariefcatur/go-storefront-bff/internal/storefront"
)

type AddItemReq struct {
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
}

type SelectReq struct {
	ProductID string `json:"productId"`
	Color     string `json:"color"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
}

type SelectResp struct {
	Selection storefront.Selection `json:"selection"`
	Cart      cart.View            `json:"cart"`
}

type QuantityReq struct {
	Quantity int `json:"quantity"`
}

type CartHandler struct {
	Auth  *Auth
	Carts *cart.Service
}

func (h *CartHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.Auth.Require)
		r.Get("/bff/cart", h.get)
		r.Post("/bff/cart/add", h.add)
		r.Post("/bff/cart/select", h.selectVariant)
		r.Put("/bff/cart/items/{id}", h.updateQuantity)
		r.Delete("/bff/cart/items/{id}", h.remove)
	})
}

func (h *CartHandler) get(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFrom(r.Context())
	v, err := h.Carts.Fetch(r.Context(), sess)
	if err != nil {
		h.Auth.Fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *CartHandler) add(w http.ResponseWriter, r *http.Request) {
	var req AddItemReq
	if err := decodeJSON(w, r, &req); err != nil {
		apperr.Write(w, apperr.BadRequest("invalid json"))
		return
	}
	if req.VariantID == "" {
		apperr.Write(w, apperr.BadRequest("variantId is required"))
		return
	}
	sess, _ := SessionFrom(r.Context())
	v, err := h.Carts.Add(r.Context(), sess, req.VariantID, req.Quantity)
	if err != nil {
		h.Auth.Fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *CartHandler) selectVariant(w http.ResponseWriter, r *http.Request) {
	var req SelectReq
	if err := decodeJSON(w, r, &req); err != nil {
		apperr.Write(w, apperr.BadRequest("invalid json"))
		return
	}
	if req.ProductID == "" || req.Size == "" {
		apperr.Write(w, apperr.BadRequest("productId and size are required"))
		return
	}
	sess, _ := SessionFrom(r.Context())
	sel, v, err := h.Carts.AddSelection(r.Context(), sess, req.ProductID, req.Color, req.Size, req.Quantity)
	if err != nil {
		h.Auth.Fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SelectResp{Selection: sel, Cart: v})
}

func (h *CartHandler) updateQuantity(w http.ResponseWriter, r *http.Request) {
	var req QuantityReq
	if err := decodeJSON(w, r, &req); err != nil {
		apperr.Write(w, apperr.BadRequest("invalid json"))
		return
	}
	sess, _ := SessionFrom(r.Context())
	v, err := h.Carts.UpdateQuantity(r.Context(), sess, chi.URLParam(r, "id"), req.Quantity)
	if err != nil {
		h.Auth.Fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *CartHandler) remove(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFrom(r.Context())
	v, err := h.Carts.Remove(r.Context(), sess, chi.URLParam(r, "id"))
	if err != nil {
		h.Auth.Fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
