// products.go — обработчики /api/v1/products endpoints.
// Инвентарь магазина: CRUD карточек товара.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/tcgvision/cardflux-web-sub000/internal/api/errors"
	"github.com/tcgvision/cardflux-web-sub000/internal/domain/model"
)

// productResponse — товар в API-ответе.
type productResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	SetCode      string `json:"set_code,omitempty"`
	Number       string `json:"number,omitempty"`
	Condition    string `json:"condition"`
	Foil         bool   `json:"foil"`
	PriceCents   int64  `json:"price_cents"`
	BuylistCents int64  `json:"buylist_cents"`
	Quantity     int    `json:"quantity"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// productListResponse — ответ GET /products.
type productListResponse struct {
	Items   []productResponse `json:"items"`
	Total   int               `json:"total"`
	Limit   int               `json:"limit"`
	Offset  int               `json:"offset"`
	HasMore bool              `json:"has_more"`
}

// productRequest — тело POST и PUT /products.
type productRequest struct {
	Name         string `json:"name"`
	SetCode      string `json:"set_code"`
	Number       string `json:"number"`
	Condition    string `json:"condition"`
	Foil         bool   `json:"foil"`
	PriceCents   int64  `json:"price_cents"`
	BuylistCents int64  `json:"buylist_cents"`
	Quantity     int    `json:"quantity"`
}

// ListProducts — GET /api/v1/products.
// Возвращает инвентарь магазина с пагинацией.
// Доступ: любой участник магазина.
func (h *APIHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	_, mctx, ok := h.resolveShop(w, r)
	if !ok {
		return
	}

	limit, offset := paginationParams(r)

	products, total, err := h.products.List(r.Context(), mctx.ShopID, limit, offset)
	if err != nil {
		h.handleServiceError(w, err, "Ошибка получения инвентаря", "shop_id", mctx.ShopID)
		return
	}

	items := make([]productResponse, len(products))
	for i, p := range products {
		items[i] = mapProduct(p)
	}

	writeJSON(w, http.StatusOK, productListResponse{
		Items:   items,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	})
}

// CreateProduct — POST /api/v1/products.
// Добавляет карточку товара в инвентарь.
// Доступ: любой участник магазина.
func (h *APIHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	_, mctx, ok := h.resolveShop(w, r)
	if !ok {
		return
	}

	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	p, err := h.products.Create(r.Context(), productFromRequest(mctx.ShopID, "", req))
	if err != nil {
		h.handleServiceError(w, err, "Ошибка создания товара", "shop_id", mctx.ShopID)
		return
	}

	writeJSON(w, http.StatusCreated, mapProduct(p))
}

// GetProduct — GET /api/v1/products/{id}.
// Доступ: любой участник магазина.
func (h *APIHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	_, mctx, ok := h.resolveShop(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")

	p, err := h.products.Get(r.Context(), mctx.ShopID, id)
	if err != nil {
		h.handleServiceError(w, err, "Ошибка получения товара", "shop_id", mctx.ShopID, "product_id", id)
		return
	}

	writeJSON(w, http.StatusOK, mapProduct(p))
}

// UpdateProduct — PUT /api/v1/products/{id}.
// Полностью заменяет карточку товара.
// Доступ: любой участник магазина.
func (h *APIHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	_, mctx, ok := h.resolveShop(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")

	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	p, err := h.products.Update(r.Context(), productFromRequest(mctx.ShopID, id, req))
	if err != nil {
		h.handleServiceError(w, err, "Ошибка обновления товара", "shop_id", mctx.ShopID, "product_id", id)
		return
	}

	writeJSON(w, http.StatusOK, mapProduct(p))
}

// DeleteProduct — DELETE /api/v1/products/{id}.
// Доступ: admin.
func (h *APIHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	_, mctx, ok := h.resolveShop(w, r)
	if !ok {
		return
	}
	if !requireAdmin(w, mctx) {
		return
	}

	id := chi.URLParam(r, "id")

	if err := h.products.Delete(r.Context(), mctx.ShopID, id); err != nil {
		h.handleServiceError(w, err, "Ошибка удаления товара", "shop_id", mctx.ShopID, "product_id", id)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Маппинг API ↔ domain ---

func productFromRequest(shopID, id string, req productRequest) *model.Product {
	return &model.Product{
		ID:           id,
		ShopID:       shopID,
		Name:         req.Name,
		SetCode:      req.SetCode,
		Number:       req.Number,
		Condition:    req.Condition,
		Foil:         req.Foil,
		PriceCents:   req.PriceCents,
		BuylistCents: req.BuylistCents,
		Quantity:     req.Quantity,
	}
}

func mapProduct(p *model.Product) productResponse {
	return productResponse{
		ID:           p.ID,
		Name:         p.Name,
		SetCode:      p.SetCode,
		Number:       p.Number,
		Condition:    p.Condition,
		Foil:         p.Foil,
		PriceCents:   p.PriceCents,
		BuylistCents: p.BuylistCents,
		Quantity:     p.Quantity,
		CreatedAt:    p.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    p.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
