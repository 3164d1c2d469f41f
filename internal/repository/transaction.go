package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tcgvision/cardflux-web-sub000/internal/domain/model"
)

// TransactionRepository — интерфейс для таблицы transactions.
// Транзакции неизменяемы: только создание и чтение.
type TransactionRepository interface {
	Create(ctx context.Context, t *model.Transaction) error
	GetByID(ctx context.Context, shopID, id string) (*model.Transaction, error)
	ListByShop(ctx context.Context, shopID, kind string, limit, offset int) ([]*model.Transaction, error)
	CountByShop(ctx context.Context, shopID, kind string) (int, error)
}

type transactionRepo struct {
	db DBTX
}

// NewTransactionRepository создаёт репозиторий транзакций.
func NewTransactionRepository(db DBTX) TransactionRepository {
	return &transactionRepo{db: db}
}

const transactionColumns = `id, shop_id, customer_id, kind, total_cents, created_by, created_at`

func (r *transactionRepo) Create(ctx context.Context, t *model.Transaction) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO transactions (id, shop_id, customer_id, kind, total_cents, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		t.ID, t.ShopID, t.CustomerID, t.Kind, t.TotalCents, t.CreatedBy,
	).Scan(&t.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("ошибка создания транзакции: %w", err)
	}
	return nil
}

func (r *transactionRepo) GetByID(ctx context.Context, shopID, id string) (*model.Transaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE shop_id = $1 AND id = $2`, transactionColumns)

	t, err := scanTransaction(r.db.QueryRow(ctx, query, shopID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения транзакции: %w", err)
	}
	return t, nil
}

// ListByShop возвращает транзакции магазина, новые первыми.
// Пустой kind означает «без фильтра по типу».
func (r *transactionRepo) ListByShop(ctx context.Context, shopID, kind string, limit, offset int) ([]*model.Transaction, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM transactions
		WHERE shop_id = $1 AND ($2 = '' OR kind = $2)
		ORDER BY created_at DESC, id
		LIMIT $3 OFFSET $4`, transactionColumns)

	rows, err := r.db.Query(ctx, query, shopID, kind, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка транзакций: %w", err)
	}
	defer rows.Close()

	var result []*model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования транзакции: %w", err)
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func (r *transactionRepo) CountByShop(ctx context.Context, shopID, kind string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM transactions WHERE shop_id = $1 AND ($2 = '' OR kind = $2)`,
		shopID, kind,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта транзакций: %w", err)
	}
	return count, nil
}

func scanTransaction(row pgx.Row) (*model.Transaction, error) {
	t := &model.Transaction{}
	err := row.Scan(
		&t.ID, &t.ShopID, &t.CustomerID, &t.Kind, &t.TotalCents,
		&t.CreatedBy, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}
