package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tcgvision/cardflux-web-sub000/internal/domain/model"
)

// CustomerRepository — интерфейс CRUD для таблицы customers.
type CustomerRepository interface {
	Create(ctx context.Context, c *model.Customer) error
	GetByID(ctx context.Context, shopID, id string) (*model.Customer, error)
	List(ctx context.Context, shopID string, limit, offset int) ([]*model.Customer, error)
	Count(ctx context.Context, shopID string) (int, error)
	Update(ctx context.Context, c *model.Customer) error
	Delete(ctx context.Context, shopID, id string) error
}

type customerRepo struct {
	db DBTX
}

// NewCustomerRepository создаёт репозиторий покупателей.
func NewCustomerRepository(db DBTX) CustomerRepository {
	return &customerRepo{db: db}
}

const customerColumns = `id, shop_id, name, email, phone, notes, created_at, updated_at`

func (r *customerRepo) Create(ctx context.Context, c *model.Customer) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO customers (id, shop_id, name, email, phone, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		c.ID, c.ShopID, c.Name, c.Email, c.Phone, c.Notes,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("ошибка создания покупателя: %w", err)
	}
	return nil
}

func (r *customerRepo) GetByID(ctx context.Context, shopID, id string) (*model.Customer, error) {
	query := fmt.Sprintf(`SELECT %s FROM customers WHERE shop_id = $1 AND id = $2`, customerColumns)

	c, err := scanCustomer(r.db.QueryRow(ctx, query, shopID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения покупателя: %w", err)
	}
	return c, nil
}

func (r *customerRepo) List(ctx context.Context, shopID string, limit, offset int) ([]*model.Customer, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM customers
		WHERE shop_id = $1
		ORDER BY name
		LIMIT $2 OFFSET $3`, customerColumns)

	rows, err := r.db.Query(ctx, query, shopID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка покупателей: %w", err)
	}
	defer rows.Close()

	var result []*model.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования покупателя: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (r *customerRepo) Count(ctx context.Context, shopID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM customers WHERE shop_id = $1`, shopID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта покупателей: %w", err)
	}
	return count, nil
}

func (r *customerRepo) Update(ctx context.Context, c *model.Customer) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE customers SET
			name = $1, email = $2, phone = $3, notes = $4, updated_at = now()
		WHERE shop_id = $5 AND id = $6`,
		c.Name, c.Email, c.Phone, c.Notes, c.ShopID, c.ID,
	)
	if err != nil {
		return fmt.Errorf("ошибка обновления покупателя: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *customerRepo) Delete(ctx context.Context, shopID, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM customers WHERE shop_id = $1 AND id = $2`, shopID, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления покупателя: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanCustomer(row pgx.Row) (*model.Customer, error) {
	c := &model.Customer{}
	err := row.Scan(
		&c.ID, &c.ShopID, &c.Name, &c.Email, &c.Phone, &c.Notes,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}
