package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tcgvision/cardflux-web-sub000/internal/domain/model"
)

// ShopRepository — интерфейс CRUD для таблицы shops.
type ShopRepository interface {
	// Create создаёт магазин. При дубликате id возвращает ErrConflict.
	Create(ctx context.Context, s *model.Shop) error
	// Upsert создаёт магазин или обновляет имя существующего.
	// Используется синхронизацией: магазин мог прийти из провайдера.
	Upsert(ctx context.Context, s *model.Shop) error
	// GetByID возвращает магазин по id.
	GetByID(ctx context.Context, id string) (*model.Shop, error)
	// Update обновляет имя и валюту магазина.
	Update(ctx context.Context, s *model.Shop) error
}

// shopRepo — реализация ShopRepository.
type shopRepo struct {
	db DBTX
}

// NewShopRepository создаёт репозиторий магазинов.
func NewShopRepository(db DBTX) ShopRepository {
	return &shopRepo{db: db}
}

const shopColumns = `id, name, currency, created_at, updated_at`

func (r *shopRepo) Create(ctx context.Context, s *model.Shop) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO shops (id, name, currency)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at`,
		s.ID, s.Name, s.Currency,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("ошибка создания магазина: %w", err)
	}
	return nil
}

func (r *shopRepo) Upsert(ctx context.Context, s *model.Shop) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO shops (id, name, currency)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			updated_at = now()
		RETURNING created_at, updated_at`,
		s.ID, s.Name, s.Currency,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ошибка upsert магазина: %w", err)
	}
	return nil
}

func (r *shopRepo) GetByID(ctx context.Context, id string) (*model.Shop, error) {
	query := fmt.Sprintf(`SELECT %s FROM shops WHERE id = $1`, shopColumns)

	s := &model.Shop{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.Name, &s.Currency, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения магазина: %w", err)
	}
	return s, nil
}

func (r *shopRepo) Update(ctx context.Context, s *model.Shop) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE shops SET name = $1, currency = $2, updated_at = now() WHERE id = $3`,
		s.Name, s.Currency, s.ID,
	)
	if err != nil {
		return fmt.Errorf("ошибка обновления магазина: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
