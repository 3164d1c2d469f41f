// products.go — сервис товарных позиций магазина.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/tcgvision/cardflux-web-sub000/internal/domain/model"
	"github.com/tcgvision/cardflux-web-sub000/internal/repository"
)

// Допустимые состояния карточки (градации TCG).
var validConditions = map[string]bool{
	"NM": true, "LP": true, "MP": true, "HP": true, "DMG": true,
}

// ProductService — сервис товарных позиций.
type ProductService struct {
	products repository.ProductRepository
	logger   *slog.Logger
}

// NewProductService создаёт сервис товарных позиций.
func NewProductService(products repository.ProductRepository, logger *slog.Logger) *ProductService {
	return &ProductService{
		products: products,
		logger:   logger.With(slog.String("component", "product_service")),
	}
}

// validateProduct проверяет поля товарной позиции.
func validateProduct(p *model.Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: название товара не задано", ErrValidation)
	}
	if p.Condition != "" && !validConditions[p.Condition] {
		return fmt.Errorf("%w: недопустимое состояние %q", ErrValidation, p.Condition)
	}
	if p.PriceCents < 0 || p.BuylistCents < 0 {
		return fmt.Errorf("%w: цена не может быть отрицательной", ErrValidation)
	}
	if p.Quantity < 0 {
		return fmt.Errorf("%w: количество не может быть отрицательным", ErrValidation)
	}
	return nil
}

// Create создаёт товарную позицию.
func (s *ProductService) Create(ctx context.Context, p *model.Product) (*model.Product, error) {
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	if p.Condition == "" {
		p.Condition = "NM"
	}
	p.ID = uuid.New().String()

	if err := s.products.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("создание товара: %w", err)
	}
	s.logger.Info("Товар создан",
		slog.String("shop_id", p.ShopID),
		slog.String("product_id", p.ID),
	)
	return p, nil
}

// Get возвращает товарную позицию магазина.
func (s *ProductService) Get(ctx context.Context, shopID, id string) (*model.Product, error) {
	p, err := s.products.GetByID(ctx, shopID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение товара: %w", err)
	}
	return p, nil
}

// List возвращает страницу товаров магазина и общее количество.
func (s *ProductService) List(ctx context.Context, shopID string, limit, offset int) ([]*model.Product, int, error) {
	list, err := s.products.List(ctx, shopID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("список товаров: %w", err)
	}
	total, err := s.products.Count(ctx, shopID)
	if err != nil {
		return nil, 0, fmt.Errorf("подсчёт товаров: %w", err)
	}
	return list, total, nil
}

// Update обновляет товарную позицию.
func (s *ProductService) Update(ctx context.Context, p *model.Product) (*model.Product, error) {
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	if err := s.products.Update(ctx, p); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("обновление товара: %w", err)
	}
	return p, nil
}

// Delete удаляет товарную позицию.
func (s *ProductService) Delete(ctx context.Context, shopID, id string) error {
	if err := s.products.Delete(ctx, shopID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("удаление товара: %w", err)
	}
	s.logger.Info("Товар удалён",
		slog.String("shop_id", shopID),
		slog.String("product_id", id),
	)
	return nil
}
