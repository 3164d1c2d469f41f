package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tcgvision/cardflux-web-sub000/internal/domain/model"
)

// ProductRepository — интерфейс CRUD для таблицы products.
// Все операции ограничены магазином: межтенантный доступ невозможен.
type ProductRepository interface {
	Create(ctx context.Context, p *model.Product) error
	GetByID(ctx context.Context, shopID, id string) (*model.Product, error)
	List(ctx context.Context, shopID string, limit, offset int) ([]*model.Product, error)
	Count(ctx context.Context, shopID string) (int, error)
	Update(ctx context.Context, p *model.Product) error
	Delete(ctx context.Context, shopID, id string) error
}

type productRepo struct {
	db DBTX
}

// NewProductRepository создаёт репозиторий товаров.
func NewProductRepository(db DBTX) ProductRepository {
	return &productRepo{db: db}
}

const productColumns = `id, shop_id, name, set_code, number, condition, foil, price_cents, buylist_cents, quantity, created_at, updated_at`

func (r *productRepo) Create(ctx context.Context, p *model.Product) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO products (id, shop_id, name, set_code, number, condition, foil, price_cents, buylist_cents, quantity)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`,
		p.ID, p.ShopID, p.Name, p.SetCode, p.Number, p.Condition, p.Foil,
		p.PriceCents, p.BuylistCents, p.Quantity,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("ошибка создания товара: %w", err)
	}
	return nil
}

func (r *productRepo) GetByID(ctx context.Context, shopID, id string) (*model.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE shop_id = $1 AND id = $2`, productColumns)

	p, err := scanProduct(r.db.QueryRow(ctx, query, shopID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения товара: %w", err)
	}
	return p, nil
}

func (r *productRepo) List(ctx context.Context, shopID string, limit, offset int) ([]*model.Product, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM products
		WHERE shop_id = $1
		ORDER BY name, set_code, number
		LIMIT $2 OFFSET $3`, productColumns)

	rows, err := r.db.Query(ctx, query, shopID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка товаров: %w", err)
	}
	defer rows.Close()

	var result []*model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования товара: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (r *productRepo) Count(ctx context.Context, shopID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE shop_id = $1`, shopID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта товаров: %w", err)
	}
	return count, nil
}

func (r *productRepo) Update(ctx context.Context, p *model.Product) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE products SET
			name = $1, set_code = $2, number = $3, condition = $4, foil = $5,
			price_cents = $6, buylist_cents = $7, quantity = $8, updated_at = now()
		WHERE shop_id = $9 AND id = $10`,
		p.Name, p.SetCode, p.Number, p.Condition, p.Foil,
		p.PriceCents, p.BuylistCents, p.Quantity, p.ShopID, p.ID,
	)
	if err != nil {
		return fmt.Errorf("ошибка обновления товара: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *productRepo) Delete(ctx context.Context, shopID, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE shop_id = $1 AND id = $2`, shopID, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления товара: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// scanProduct сканирует строку в Product.
func scanProduct(row pgx.Row) (*model.Product, error) {
	p := &model.Product{}
	err := row.Scan(
		&p.ID, &p.ShopID, &p.Name, &p.SetCode, &p.Number, &p.Condition, &p.Foil,
		&p.PriceCents, &p.BuylistCents, &p.Quantity, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}
