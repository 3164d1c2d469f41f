// transactions.go — обработчики /api/v1/transactions endpoints.
// Кассовые операции: продажа и выкуп. Транзакции неизменяемы:
// только создание и чтение.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/tcgvision/cardflux-web-sub000/internal/api/errors"
	"github.com/tcgvision/cardflux-web-sub000/internal/domain/model"
	"github.com/tcgvision/cardflux-web-sub000/internal/service"
)

// transactionResponse — транзакция в API-ответе.
type transactionResponse struct {
	ID         string  `json:"id"`
	CustomerID *string `json:"customer_id,omitempty"`
	Kind       string  `json:"kind"`
	TotalCents int64   `json:"total_cents"`
	CreatedBy  string  `json:"created_by"`
	CreatedAt  string  `json:"created_at"`
}

// transactionListResponse — ответ GET /transactions.
type transactionListResponse struct {
	Items   []transactionResponse `json:"items"`
	Total   int                   `json:"total"`
	Limit   int                   `json:"limit"`
	Offset  int                   `json:"offset"`
	HasMore bool                  `json:"has_more"`
}

// transactionLineRequest — строка транзакции в теле запроса.
type transactionLineRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// createTransactionRequest — тело POST /transactions.
// customer_id опционален (анонимная продажа).
type createTransactionRequest struct {
	CustomerID string                   `json:"customer_id"`
	Kind       string                   `json:"kind"`
	Lines      []transactionLineRequest `json:"lines"`
}

// ListTransactions — GET /api/v1/transactions.
// Опциональный query-параметр kind фильтрует по виду операции.
// Доступ: любой участник магазина.
func (h *APIHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	_, mctx, ok := h.resolveShop(w, r)
	if !ok {
		return
	}

	limit, offset := paginationParams(r)
	kind := r.URL.Query().Get("kind")

	txs, total, err := h.transactions.List(r.Context(), mctx.ShopID, kind, limit, offset)
	if err != nil {
		h.handleServiceError(w, err, "Ошибка получения транзакций", "shop_id", mctx.ShopID)
		return
	}

	items := make([]transactionResponse, len(txs))
	for i, tx := range txs {
		items[i] = mapTransaction(tx)
	}

	writeJSON(w, http.StatusOK, transactionListResponse{
		Items:   items,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	})
}

// CreateTransaction — POST /api/v1/transactions.
// Оформляет продажу или выкуп: проверяет остатки, меняет склад
// и считает сумму на сервере в одной транзакции БД.
// Доступ: любой участник магазина.
func (h *APIHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	sess, mctx, ok := h.resolveShop(w, r)
	if !ok {
		return
	}

	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	lines := make([]service.TransactionLine, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = service.TransactionLine{ProductID: l.ProductID, Quantity: l.Quantity}
	}

	tx, err := h.transactions.Create(r.Context(), mctx.ShopID, req.CustomerID, req.Kind, sess.Subject, lines)
	if err != nil {
		h.handleServiceError(w, err, "Ошибка оформления транзакции",
			"shop_id", mctx.ShopID, "kind", req.Kind)
		return
	}

	writeJSON(w, http.StatusCreated, mapTransaction(tx))
}

// GetTransaction — GET /api/v1/transactions/{id}.
// Доступ: любой участник магазина.
func (h *APIHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	_, mctx, ok := h.resolveShop(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")

	tx, err := h.transactions.Get(r.Context(), mctx.ShopID, id)
	if err != nil {
		h.handleServiceError(w, err, "Ошибка получения транзакции", "shop_id", mctx.ShopID, "transaction_id", id)
		return
	}

	writeJSON(w, http.StatusOK, mapTransaction(tx))
}

// --- Маппинг domain → API ---

func mapTransaction(tx *model.Transaction) transactionResponse {
	return transactionResponse{
		ID:         tx.ID,
		CustomerID: tx.CustomerID,
		Kind:       tx.Kind,
		TotalCents: tx.TotalCents,
		CreatedBy:  tx.CreatedBy,
		CreatedAt:  tx.CreatedAt.UTC().Format(time.RFC3339),
	}
}
