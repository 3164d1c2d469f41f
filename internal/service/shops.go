// shops.go — сервис жизненного цикла магазина.
//
// Создание магазина — единственная операция, где организацию у провайдера
// создаёт само приложение: сначала организация, затем локальная запись
// магазина и членство создателя (admin) в одной транзакции.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tcgvision/cardflux-web-sub000/internal/domain/model"
	"github.com/tcgvision/cardflux-web-sub000/internal/domain/rbac"
	"github.com/tcgvision/cardflux-web-sub000/internal/repository"
)

// orgCreator — возможности Identity Provider для создания организаций.
type orgCreator interface {
	CreateOrganization(ctx context.Context, name string) (string, error)
}

// ShopService — сервис жизненного цикла магазина.
type ShopService struct {
	provider orgCreator
	shops    repository.ShopRepository
	tx       *repository.TxRunner
	cache    *MembershipCache
	logger   *slog.Logger
}

// NewShopService создаёт сервис магазинов.
func NewShopService(
	provider orgCreator,
	shops repository.ShopRepository,
	tx *repository.TxRunner,
	cache *MembershipCache,
	logger *slog.Logger,
) *ShopService {
	return &ShopService{
		provider: provider,
		shops:    shops,
		tx:       tx,
		cache:    cache,
		logger:   logger.With(slog.String("component", "shop_service")),
	}
}

// Create создаёт магазин: организацию у провайдера, локальную запись
// и членство создателя с ролью admin. Запись магазина и членство
// создаются в одной транзакции.
func (s *ShopService) Create(ctx context.Context, sess Session, name, currency string) (*model.Shop, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: название магазина не задано", ErrValidation)
	}
	if currency == "" {
		currency = "USD"
	}

	orgID, err := s.provider.CreateOrganization(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("создание организации у провайдера: %w", err)
	}

	shop := &model.Shop{
		ID:       orgID,
		Name:     name,
		Currency: currency,
	}

	err = s.tx.RunInTx(ctx, func(tx pgx.Tx) error {
		if err := repository.NewShopRepository(tx).Create(ctx, shop); err != nil {
			return err
		}
		m := &model.ShopMembership{
			ID:       uuid.New().String(),
			Subject:  sess.Subject,
			Username: sess.Username,
			Email:    sess.Email,
			ShopID:   orgID,
			ShopName: name,
			Role:     rbac.RoleAdmin,
		}
		return repository.NewShopMembershipRepository(tx).Upsert(ctx, m)
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("сохранение магазина: %w", err)
	}

	s.cache.Invalidate(sess.Subject)
	s.logger.Info("Магазин создан",
		slog.String("shop_id", orgID),
		slog.String("name", name),
		slog.String("created_by", sess.Subject),
	)
	return shop, nil
}

// Get возвращает магазин по идентификатору.
func (s *ShopService) Get(ctx context.Context, shopID string) (*model.Shop, error) {
	shop, err := s.shops.GetByID(ctx, shopID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение магазина: %w", err)
	}
	return shop, nil
}

// Update обновляет название и валюту магазина.
func (s *ShopService) Update(ctx context.Context, shopID, name, currency string) (*model.Shop, error) {
	shop, err := s.Get(ctx, shopID)
	if err != nil {
		return nil, err
	}

	if name = strings.TrimSpace(name); name != "" {
		shop.Name = name
	}
	if currency != "" {
		shop.Currency = currency
	}

	if err := s.shops.Update(ctx, shop); err != nil {
		return nil, fmt.Errorf("обновление магазина: %w", err)
	}

	s.logger.Info("Магазин обновлён", slog.String("shop_id", shopID))
	return shop, nil
}
