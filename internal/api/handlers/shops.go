// shops.go — обработчики /api/v1/shop endpoints.
// Жизненный цикл магазина: создание, просмотр, настройки.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	apierrors "github.com/tcgvision/cardflux-web-sub000/internal/api/errors"
	"github.com/tcgvision/cardflux-web-sub000/internal/domain/model"
)

// shopResponse — магазин в API-ответе.
type shopResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Currency  string `json:"currency"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// createShopRequest — тело POST /shop.
type createShopRequest struct {
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

// updateShopRequest — тело PUT /shop. Пустые поля не меняются.
type updateShopRequest struct {
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

// CreateShop — POST /api/v1/shop.
// Создаёт магазин: организацию у провайдера, локальную запись и членство
// создателя с ролью admin. Пользователь с существующим магазином получает 409.
func (h *APIHandler) CreateShop(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionFromRequest(w, r)
	if !ok {
		return
	}

	mctx, _ := h.memberships.Resolve(r.Context(), sess)
	if mctx.Loading {
		apierrors.IDPUnavailable(w, "Не удалось подтвердить членство, повторите запрос")
		return
	}
	if mctx.HasShop {
		apierrors.Conflict(w, "Пользователь уже привязан к магазину")
		return
	}

	var req createShopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	shop, err := h.shops.Create(r.Context(), sess, req.Name, req.Currency)
	if err != nil {
		h.handleServiceError(w, err, "Ошибка создания магазина", "subject", sess.Subject)
		return
	}

	writeJSON(w, http.StatusCreated, mapShop(shop))
}

// GetShop — GET /api/v1/shop.
// Возвращает магазин текущего пользователя.
// Доступ: любой участник магазина.
func (h *APIHandler) GetShop(w http.ResponseWriter, r *http.Request) {
	_, mctx, ok := h.resolveShop(w, r)
	if !ok {
		return
	}

	shop, err := h.shops.Get(r.Context(), mctx.ShopID)
	if err != nil {
		h.handleServiceError(w, err, "Ошибка получения магазина", "shop_id", mctx.ShopID)
		return
	}

	writeJSON(w, http.StatusOK, mapShop(shop))
}

// UpdateShop — PUT /api/v1/shop.
// Обновляет настройки магазина (название, валюта).
// Доступ: admin.
func (h *APIHandler) UpdateShop(w http.ResponseWriter, r *http.Request) {
	_, mctx, ok := h.resolveShop(w, r)
	if !ok {
		return
	}
	if !requireAdmin(w, mctx) {
		return
	}

	var req updateShopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	shop, err := h.shops.Update(r.Context(), mctx.ShopID, req.Name, req.Currency)
	if err != nil {
		h.handleServiceError(w, err, "Ошибка обновления магазина", "shop_id", mctx.ShopID)
		return
	}

	writeJSON(w, http.StatusOK, mapShop(shop))
}

// --- Маппинг domain → API ---

func mapShop(s *model.Shop) shopResponse {
	return shopResponse{
		ID:        s.ID,
		Name:      s.Name,
		Currency:  s.Currency,
		CreatedAt: s.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: s.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
