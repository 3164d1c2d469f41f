// customers.go — сервис покупателей магазина.
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

// CustomerService — сервис покупателей.
type CustomerService struct {
	customers repository.CustomerRepository
	logger    *slog.Logger
}

// NewCustomerService создаёт сервис покупателей.
func NewCustomerService(customers repository.CustomerRepository, logger *slog.Logger) *CustomerService {
	return &CustomerService{
		customers: customers,
		logger:    logger.With(slog.String("component", "customer_service")),
	}
}

// Create создаёт покупателя.
func (s *CustomerService) Create(ctx context.Context, c *model.Customer) (*model.Customer, error) {
	if strings.TrimSpace(c.Name) == "" {
		return nil, fmt.Errorf("%w: имя покупателя не задано", ErrValidation)
	}
	c.ID = uuid.New().String()

	if err := s.customers.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("создание покупателя: %w", err)
	}
	return c, nil
}

// Get возвращает покупателя магазина.
func (s *CustomerService) Get(ctx context.Context, shopID, id string) (*model.Customer, error) {
	c, err := s.customers.GetByID(ctx, shopID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение покупателя: %w", err)
	}
	return c, nil
}

// List возвращает страницу покупателей магазина и общее количество.
func (s *CustomerService) List(ctx context.Context, shopID string, limit, offset int) ([]*model.Customer, int, error) {
	list, err := s.customers.List(ctx, shopID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("список покупателей: %w", err)
	}
	total, err := s.customers.Count(ctx, shopID)
	if err != nil {
		return nil, 0, fmt.Errorf("подсчёт покупателей: %w", err)
	}
	return list, total, nil
}

// Update обновляет покупателя.
func (s *CustomerService) Update(ctx context.Context, c *model.Customer) (*model.Customer, error) {
	if strings.TrimSpace(c.Name) == "" {
		return nil, fmt.Errorf("%w: имя покупателя не задано", ErrValidation)
	}
	if err := s.customers.Update(ctx, c); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("обновление покупателя: %w", err)
	}
	return c, nil
}

// Delete удаляет покупателя. Его транзакции сохраняются
// с customer_id = NULL (ON DELETE SET NULL).
func (s *CustomerService) Delete(ctx context.Context, shopID, id string) error {
	if err := s.customers.Delete(ctx, shopID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("удаление покупателя: %w", err)
	}
	return nil
}
