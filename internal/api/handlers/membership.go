// membership.go — обработчики /api/v1/membership endpoints.
// Ответ о членстве, статус синхронизации и действия по исправлению.
package handlers

import (
	"net/http"
	"time"

	"github.com/tcgvision/cardflux-web-sub000/internal/domain/membership"
	"github.com/tcgvision/cardflux-web-sub000/internal/domain/model"
	"github.com/tcgvision/cardflux-web-sub000/internal/idp"
)

// membershipContextResponse — ответ GET /membership/context.
type membershipContextResponse struct {
	Loading     bool   `json:"loading"`
	HasShop     bool   `json:"has_shop"`
	ShopID      string `json:"shop_id,omitempty"`
	ShopName    string `json:"shop_name,omitempty"`
	Source      string `json:"source,omitempty"`
	Verified    bool   `json:"verified"`
	NeedsSync   bool   `json:"needs_sync"`
	Role        string `json:"role,omitempty"`
	DisplayRole string `json:"display_role,omitempty"`
}

// syncStatusResponse — ответ GET /membership/sync-status.
type syncStatusResponse struct {
	Case        string `json:"case"`
	NeedsSync   bool   `json:"needs_sync"`
	Reason      string `json:"reason,omitempty"`
	CanAutoSync bool   `json:"can_auto_sync"`
	Action      string `json:"action"`
}

// syncResultResponse — ответ действий по синхронизации.
type syncResultResponse struct {
	Outcome  string `json:"outcome"`
	ShopID   string `json:"shop_id,omitempty"`
	SyncedAt string `json:"synced_at"`
}

// invitationResponse — ответ POST /membership/sync/invitation.
type invitationResponse struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	Status         string `json:"status"`
	OrganizationID string `json:"organization_id"`
}

// GetMembershipContext — GET /api/v1/membership/context.
// Возвращает единый ответ о членстве. Отсутствие магазина — не ошибка:
// ответ с has_shop=false остаётся 200.
func (h *APIHandler) GetMembershipContext(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionFromRequest(w, r)
	if !ok {
		return
	}

	mctx, _ := h.memberships.Resolve(r.Context(), sess)
	writeJSON(w, http.StatusOK, mapMembershipContext(mctx))
}

// GetSyncStatus — GET /api/v1/membership/sync-status.
// Возвращает классификацию расхождения источников членства.
func (h *APIHandler) GetSyncStatus(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionFromRequest(w, r)
	if !ok {
		return
	}

	_, status := h.memberships.Resolve(r.Context(), sess)
	writeJSON(w, http.StatusOK, syncStatusResponse{
		Case:        status.Case,
		NeedsSync:   status.NeedsSync,
		Reason:      status.Reason,
		CanAutoSync: status.CanAutoSync,
		Action:      string(status.Action),
	})
}

// RefreshSync — POST /api/v1/membership/sync/refresh.
// Пересобирает сигналы и выполняет авто-ремонт, если он безопасен.
func (h *APIHandler) RefreshSync(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionFromRequest(w, r)
	if !ok {
		return
	}

	result, err := h.sync.Refresh(r.Context(), sess)
	if err != nil {
		h.handleServiceError(w, err, "Ошибка синхронизации членства", "subject", sess.Subject)
		return
	}

	writeJSON(w, http.StatusOK, mapSyncResult(result))
}

// RequestInvitation — POST /api/v1/membership/sync/invitation.
// Создаёт приглашение у провайдера для пользователя с членством
// только в БД (orphaned-database).
func (h *APIHandler) RequestInvitation(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionFromRequest(w, r)
	if !ok {
		return
	}

	inv, err := h.sync.RequestInvitation(r.Context(), sess)
	if err != nil {
		h.handleServiceError(w, err, "Ошибка создания приглашения", "subject", sess.Subject)
		return
	}

	writeJSON(w, http.StatusCreated, mapInvitation(inv))
}

// FixLinking — POST /api/v1/membership/sync/fix-linking.
// Однокнопочное исправление: авто-ремонт, а если чинить нечем —
// создание приглашения.
func (h *APIHandler) FixLinking(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionFromRequest(w, r)
	if !ok {
		return
	}

	result, err := h.sync.FixLinking(r.Context(), sess)
	if err != nil {
		h.handleServiceError(w, err, "Ошибка исправления привязки", "subject", sess.Subject)
		return
	}

	writeJSON(w, http.StatusOK, mapSyncResult(result))
}

// --- Маппинг domain → API ---

func mapMembershipContext(mctx membership.Context) membershipContextResponse {
	return membershipContextResponse{
		Loading:     mctx.Loading,
		HasShop:     mctx.HasShop,
		ShopID:      mctx.ShopID,
		ShopName:    mctx.ShopName,
		Source:      string(mctx.Source),
		Verified:    mctx.Verified,
		NeedsSync:   mctx.NeedsSync,
		Role:        string(mctx.Role),
		DisplayRole: string(mctx.DisplayRole),
	}
}

func mapSyncResult(result *model.SyncResult) syncResultResponse {
	return syncResultResponse{
		Outcome:  string(result.Outcome),
		ShopID:   result.ShopID,
		SyncedAt: result.SyncedAt.UTC().Format(time.RFC3339),
	}
}

func mapInvitation(inv *idp.Invitation) invitationResponse {
	return invitationResponse{
		ID:             inv.ID,
		Email:          inv.Email,
		Role:           inv.Role,
		Status:         inv.Status,
		OrganizationID: inv.OrganizationID,
	}
}
