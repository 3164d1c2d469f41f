// handler.go — основной обработчик API CardFlux.
// Объединяет все доменные обработчики и делегирует запросы в сервисный слой.
// Авторизация внутри магазина решается по resolved-членству (БД побеждает),
// а не по сырым claims токена.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	apierrors "github.com/tcgvision/cardflux-web-sub000/internal/api/errors"
	"github.com/tcgvision/cardflux-web-sub000/internal/api/middleware"
	"github.com/tcgvision/cardflux-web-sub000/internal/domain/membership"
	"github.com/tcgvision/cardflux-web-sub000/internal/domain/rbac"
	"github.com/tcgvision/cardflux-web-sub000/internal/service"
)

// APIHandler — основной обработчик API CardFlux.
// Делегирует запросы в сервисный слой.
type APIHandler struct {
	health       *HealthHandler
	memberships  *service.MembershipService
	sync         *service.SyncService
	members      *service.MembersService
	shops        *service.ShopService
	products     *service.ProductService
	customers    *service.CustomerService
	transactions *service.TransactionService
	logger       *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	memberships *service.MembershipService,
	sync *service.SyncService,
	members *service.MembersService,
	shops *service.ShopService,
	products *service.ProductService,
	customers *service.CustomerService,
	transactions *service.TransactionService,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:       health,
		memberships:  memberships,
		sync:         sync,
		members:      members,
		shops:        shops,
		products:     products,
		customers:    customers,
		transactions: transactions,
		logger:       logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — liveness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// paginationParams извлекает limit и offset из query-параметров.
// Возвращает нормализованные значения (limit 1..1000, offset >= 0).
func paginationParams(r *http.Request) (int, int) {
	limit := 100
	offset := 0

	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			limit = v
		}
	}
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			offset = v
		}
	}

	if limit < 1 {
		limit = 1
	}
	if limit > 1000 {
		limit = 1000
	}
	if offset < 0 {
		offset = 0
	}

	return limit, offset
}

// sessionFromRequest строит сессию из JWT claims запроса.
// Возвращает false и пишет 401, если claims отсутствуют.
func (h *APIHandler) sessionFromRequest(w http.ResponseWriter, r *http.Request) (service.Session, bool) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return service.Session{}, false
	}

	return service.Session{
		Subject:  claims.Subject,
		Username: claims.Username,
		Email:    claims.Email,
		OrgID:    claims.OrgID,
		OrgName:  claims.OrgName,
		OrgRole:  claims.OrgRole,
	}, true
}

// resolveShop разрешает членство запроса и требует привязки к магазину.
// Все shop-scoped endpoints обязаны брать идентификатор магазина отсюда:
// это и есть граница изоляции tenant'ов.
func (h *APIHandler) resolveShop(w http.ResponseWriter, r *http.Request) (service.Session, membership.Context, bool) {
	sess, ok := h.sessionFromRequest(w, r)
	if !ok {
		return service.Session{}, membership.Context{}, false
	}

	mctx, _ := h.memberships.Resolve(r.Context(), sess)
	if mctx.Loading {
		// Вердикт не окончательный: отказ здесь был бы ложным.
		apierrors.IDPUnavailable(w, "Не удалось подтвердить членство, повторите запрос")
		return sess, mctx, false
	}
	if !mctx.HasShop {
		apierrors.Forbidden(w, "Нет привязки к магазину")
		return sess, mctx, false
	}

	return sess, mctx, true
}

// requireAdmin проверяет роль admin в resolved-членстве.
func requireAdmin(w http.ResponseWriter, mctx membership.Context) bool {
	if mctx.Role != rbac.RoleAdmin {
		apierrors.Forbidden(w, "Недостаточно прав: требуется роль admin")
		return false
	}
	return true
}

// handleServiceError транслирует ошибку сервисного слоя в HTTP-ответ.
func (h *APIHandler) handleServiceError(w http.ResponseWriter, err error, logMsg string, attrs ...any) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, "Объект не найден")
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrInvalidRole):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrConflict), errors.Is(err, service.ErrLastAdmin),
		errors.Is(err, service.ErrNoMembership):
		apierrors.Conflict(w, err.Error())
	case errors.Is(err, service.ErrForbidden):
		apierrors.Forbidden(w, err.Error())
	case errors.Is(err, service.ErrIDPUnavailable):
		apierrors.IDPUnavailable(w, "Identity Provider недоступен")
	default:
		h.logger.Error(logMsg, append(attrs, "error", err)...)
		apierrors.InternalError(w, "Внутренняя ошибка")
	}
}
