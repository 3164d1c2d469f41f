package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tcgvision/cardflux-web-sub000/internal/domain/model"
	"github.com/tcgvision/cardflux-web-sub000/internal/domain/rbac"
)

// ShopMembershipRepository — интерфейс CRUD для таблицы shop_memberships.
type ShopMembershipRepository interface {
	// Upsert создаёт или обновляет членство по subject.
	Upsert(ctx context.Context, m *model.ShopMembership) error
	// GetBySubject возвращает членство по subject пользователя.
	GetBySubject(ctx context.Context, subject string) (*model.ShopMembership, error)
	// ListByShop возвращает участников магазина (с пагинацией).
	ListByShop(ctx context.Context, shopID string, limit, offset int) ([]*model.ShopMembership, error)
	// CountByShop возвращает количество участников магазина.
	CountByShop(ctx context.Context, shopID string) (int, error)
	// CountAdmins возвращает количество администраторов магазина.
	CountAdmins(ctx context.Context, shopID string) (int, error)
	// UpdateRole меняет роль участника магазина.
	UpdateRole(ctx context.Context, shopID, subject string, role rbac.Role) error
	// Delete удаляет членство участника магазина.
	Delete(ctx context.Context, shopID, subject string) error
}

// shopMembershipRepo — реализация ShopMembershipRepository.
type shopMembershipRepo struct {
	db DBTX
}

// NewShopMembershipRepository создаёт репозиторий членств.
func NewShopMembershipRepository(db DBTX) ShopMembershipRepository {
	return &shopMembershipRepo{db: db}
}

const smColumns = `id, subject, username, email, shop_id, shop_name, role, created_at, updated_at`

func (r *shopMembershipRepo) Upsert(ctx context.Context, m *model.ShopMembership) error {
	// При конфликте по subject id существующей записи сохраняется;
	// RETURNING возвращает канонический id в m.ID.
	query := `
		INSERT INTO shop_memberships (id, subject, username, email, shop_id, shop_name, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (subject) DO UPDATE SET
			username = EXCLUDED.username,
			email = EXCLUDED.email,
			shop_id = EXCLUDED.shop_id,
			shop_name = EXCLUDED.shop_name,
			role = EXCLUDED.role,
			updated_at = now()
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		m.ID, m.Subject, m.Username, m.Email, m.ShopID, m.ShopName, string(m.Role),
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ошибка upsert членства: %w", err)
	}
	return nil
}

func (r *shopMembershipRepo) GetBySubject(ctx context.Context, subject string) (*model.ShopMembership, error) {
	query := fmt.Sprintf(`SELECT %s FROM shop_memberships WHERE subject = $1`, smColumns)

	m, err := scanMembership(r.db.QueryRow(ctx, query, subject))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения членства: %w", err)
	}
	return m, nil
}

func (r *shopMembershipRepo) ListByShop(ctx context.Context, shopID string, limit, offset int) ([]*model.ShopMembership, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM shop_memberships
		WHERE shop_id = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3`, smColumns)

	rows, err := r.db.Query(ctx, query, shopID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка участников: %w", err)
	}
	defer rows.Close()

	var result []*model.ShopMembership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования членства: %w", err)
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

func (r *shopMembershipRepo) CountByShop(ctx context.Context, shopID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM shop_memberships WHERE shop_id = $1`, shopID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта участников: %w", err)
	}
	return count, nil
}

func (r *shopMembershipRepo) CountAdmins(ctx context.Context, shopID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM shop_memberships WHERE shop_id = $1 AND role = 'admin'`, shopID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта администраторов: %w", err)
	}
	return count, nil
}

func (r *shopMembershipRepo) UpdateRole(ctx context.Context, shopID, subject string, role rbac.Role) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE shop_memberships SET role = $1, updated_at = now() WHERE shop_id = $2 AND subject = $3`,
		string(role), shopID, subject,
	)
	if err != nil {
		return fmt.Errorf("ошибка обновления роли: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *shopMembershipRepo) Delete(ctx context.Context, shopID, subject string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM shop_memberships WHERE shop_id = $1 AND subject = $2`, shopID, subject,
	)
	if err != nil {
		return fmt.Errorf("ошибка удаления членства: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// scanMembership сканирует строку в ShopMembership.
func scanMembership(row pgx.Row) (*model.ShopMembership, error) {
	m := &model.ShopMembership{}
	var role string
	err := row.Scan(
		&m.ID, &m.Subject, &m.Username, &m.Email, &m.ShopID, &m.ShopName,
		&role, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.Role = rbac.Role(role)
	return m, nil
}
