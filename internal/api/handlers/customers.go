// customers.go — обработчики /api/v1/customers endpoints.
// Покупатели магазина: CRUD.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/tcgvision/cardflux-web-sub000/internal/api/errors"
	"github.com/tcgvision/cardflux-web-sub000/internal/domain/model"
)

// customerResponse — покупатель в API-ответе.
type customerResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Notes     string `json:"notes,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// customerListResponse — ответ GET /customers.
type customerListResponse struct {
	Items   []customerResponse `json:"items"`
	Total   int                `json:"total"`
	Limit   int                `json:"limit"`
	Offset  int                `json:"offset"`
	HasMore bool               `json:"has_more"`
}

// customerRequest — тело POST и PUT /customers.
type customerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Notes string `json:"notes"`
}

// ListCustomers — GET /api/v1/customers.
// Доступ: любой участник магазина.
func (h *APIHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	_, mctx, ok := h.resolveShop(w, r)
	if !ok {
		return
	}

	limit, offset := paginationParams(r)

	customers, total, err := h.customers.List(r.Context(), mctx.ShopID, limit, offset)
	if err != nil {
		h.handleServiceError(w, err, "Ошибка получения покупателей", "shop_id", mctx.ShopID)
		return
	}

	items := make([]customerResponse, len(customers))
	for i, c := range customers {
		items[i] = mapCustomer(c)
	}

	writeJSON(w, http.StatusOK, customerListResponse{
		Items:   items,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	})
}

// CreateCustomer — POST /api/v1/customers.
// Доступ: любой участник магазина.
func (h *APIHandler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	_, mctx, ok := h.resolveShop(w, r)
	if !ok {
		return
	}

	var req customerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	c, err := h.customers.Create(r.Context(), customerFromRequest(mctx.ShopID, "", req))
	if err != nil {
		h.handleServiceError(w, err, "Ошибка создания покупателя", "shop_id", mctx.ShopID)
		return
	}

	writeJSON(w, http.StatusCreated, mapCustomer(c))
}

// GetCustomer — GET /api/v1/customers/{id}.
// Доступ: любой участник магазина.
func (h *APIHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	_, mctx, ok := h.resolveShop(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")

	c, err := h.customers.Get(r.Context(), mctx.ShopID, id)
	if err != nil {
		h.handleServiceError(w, err, "Ошибка получения покупателя", "shop_id", mctx.ShopID, "customer_id", id)
		return
	}

	writeJSON(w, http.StatusOK, mapCustomer(c))
}

// UpdateCustomer — PUT /api/v1/customers/{id}.
// Доступ: любой участник магазина.
func (h *APIHandler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	_, mctx, ok := h.resolveShop(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")

	var req customerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	c, err := h.customers.Update(r.Context(), customerFromRequest(mctx.ShopID, id, req))
	if err != nil {
		h.handleServiceError(w, err, "Ошибка обновления покупателя", "shop_id", mctx.ShopID, "customer_id", id)
		return
	}

	writeJSON(w, http.StatusOK, mapCustomer(c))
}

// DeleteCustomer — DELETE /api/v1/customers/{id}.
// Транзакции покупателя сохраняются (customer_id становится NULL).
// Доступ: admin.
func (h *APIHandler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	_, mctx, ok := h.resolveShop(w, r)
	if !ok {
		return
	}
	if !requireAdmin(w, mctx) {
		return
	}

	id := chi.URLParam(r, "id")

	if err := h.customers.Delete(r.Context(), mctx.ShopID, id); err != nil {
		h.handleServiceError(w, err, "Ошибка удаления покупателя", "shop_id", mctx.ShopID, "customer_id", id)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Маппинг API ↔ domain ---

func customerFromRequest(shopID, id string, req customerRequest) *model.Customer {
	return &model.Customer{
		ID:     id,
		ShopID: shopID,
		Name:   req.Name,
		Email:  req.Email,
		Phone:  req.Phone,
		Notes:  req.Notes,
	}
}

func mapCustomer(c *model.Customer) customerResponse {
	return customerResponse{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Notes:     c.Notes,
		CreatedAt: c.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: c.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
