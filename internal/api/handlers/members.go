// members.go — обработчики /api/v1/members endpoints.
// Администрирование участников магазина: список, смена роли, удаление.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/tcgvision/cardflux-web-sub000/internal/api/errors"
	"github.com/tcgvision/cardflux-web-sub000/internal/domain/rbac"
)

// memberResponse — участник магазина в API-ответе.
type memberResponse struct {
	Subject      string `json:"subject"`
	Username     string `json:"username,omitempty"`
	Email        string `json:"email,omitempty"`
	Role         string `json:"role"`
	OnProvider   bool   `json:"on_provider"`
	ProviderRole string `json:"provider_role,omitempty"`
	CreatedAt    string `json:"created_at"`
}

// memberListResponse — ответ GET /members.
type memberListResponse struct {
	Items   []memberResponse `json:"items"`
	Total   int              `json:"total"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
	HasMore bool             `json:"has_more"`
}

// updateMemberRequest — тело PUT /members/{subject}.
type updateMemberRequest struct {
	Role string `json:"role"`
}

// ListMembers — GET /api/v1/members.
// Возвращает участников магазина с пометками провайдера.
// Доступ: любой участник магазина.
func (h *APIHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	_, mctx, ok := h.resolveShop(w, r)
	if !ok {
		return
	}

	limit, offset := paginationParams(r)

	views, total, err := h.members.List(r.Context(), mctx.ShopID, limit, offset)
	if err != nil {
		h.handleServiceError(w, err, "Ошибка получения списка участников", "shop_id", mctx.ShopID)
		return
	}

	items := make([]memberResponse, len(views))
	for i, v := range views {
		items[i] = memberResponse{
			Subject:      v.Membership.Subject,
			Username:     v.Membership.Username,
			Email:        v.Membership.Email,
			Role:         string(v.Membership.Role),
			OnProvider:   v.OnProvider,
			ProviderRole: v.ProviderRole,
			CreatedAt:    v.Membership.CreatedAt.UTC().Format(time.RFC3339),
		}
	}

	writeJSON(w, http.StatusOK, memberListResponse{
		Items:   items,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	})
}

// UpdateMemberRole — PUT /api/v1/members/{subject}.
// Меняет роль участника: сначала у провайдера, затем в БД.
// Доступ: admin.
func (h *APIHandler) UpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	sess, mctx, ok := h.resolveShop(w, r)
	if !ok {
		return
	}
	if !requireAdmin(w, mctx) {
		return
	}

	subject := chi.URLParam(r, "subject")

	var req updateMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	if err := h.members.UpdateRole(r.Context(), mctx.ShopID, subject, rbac.Role(req.Role)); err != nil {
		h.handleServiceError(w, err, "Ошибка смены роли участника",
			"shop_id", mctx.ShopID, "subject", subject, "actor", sess.Subject)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RemoveMember — DELETE /api/v1/members/{subject}.
// Удаляет участника из магазина у провайдера и в БД.
// Доступ: admin.
func (h *APIHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	sess, mctx, ok := h.resolveShop(w, r)
	if !ok {
		return
	}
	if !requireAdmin(w, mctx) {
		return
	}

	subject := chi.URLParam(r, "subject")

	if err := h.members.Remove(r.Context(), mctx.ShopID, subject); err != nil {
		h.handleServiceError(w, err, "Ошибка удаления участника",
			"shop_id", mctx.ShopID, "subject", subject, "actor", sess.Subject)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
