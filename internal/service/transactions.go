// transactions.go — сервис транзакций продажи и скупки.
//
// Транзакция неизменяема после записи: операции Update/Delete
// отсутствуют намеренно. При продаже уменьшается остаток товара,
// при скупке — увеличивается; запись транзакции и изменение остатков
// выполняются в одной транзакции БД.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tcgvision/cardflux-web-sub000/internal/domain/model"
	"github.com/tcgvision/cardflux-web-sub000/internal/repository"
)

// TransactionLine — строка транзакции: товар и количество.
type TransactionLine struct {
	// ProductID — идентификатор товара
	ProductID string
	// Quantity — количество (положительное)
	Quantity int
}

// TransactionService — сервис транзакций.
type TransactionService struct {
	transactions repository.TransactionRepository
	tx           *repository.TxRunner
	logger       *slog.Logger
}

// NewTransactionService создаёт сервис транзакций.
func NewTransactionService(
	transactions repository.TransactionRepository,
	tx *repository.TxRunner,
	logger *slog.Logger,
) *TransactionService {
	return &TransactionService{
		transactions: transactions,
		tx:           tx,
		logger:       logger.With(slog.String("component", "transaction_service")),
	}
}

// Create записывает транзакцию и корректирует остатки товаров.
// kind — sale (остаток уменьшается) или buylist (увеличивается).
func (s *TransactionService) Create(
	ctx context.Context,
	shopID, customerID, kind, createdBy string,
	lines []TransactionLine,
) (*model.Transaction, error) {
	if kind != model.TransactionSale && kind != model.TransactionBuylist {
		return nil, fmt.Errorf("%w: недопустимый тип транзакции %q", ErrValidation, kind)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: транзакция без строк", ErrValidation)
	}
	for _, l := range lines {
		if l.Quantity <= 0 {
			return nil, fmt.Errorf("%w: количество в строке должно быть положительным", ErrValidation)
		}
	}

	t := &model.Transaction{
		ID:        uuid.New().String(),
		ShopID:    shopID,
		Kind:      kind,
		CreatedBy: createdBy,
		CreatedAt: time.Now().UTC(),
	}
	if customerID != "" {
		t.CustomerID = &customerID
	}

	err := s.tx.RunInTx(ctx, func(tx pgx.Tx) error {
		products := repository.NewProductRepository(tx)

		var total int64
		for _, line := range lines {
			p, err := products.GetByID(ctx, shopID, line.ProductID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return fmt.Errorf("%w: товар %s не найден", ErrValidation, line.ProductID)
				}
				return err
			}

			switch kind {
			case model.TransactionSale:
				if p.Quantity < line.Quantity {
					return fmt.Errorf("%w: недостаточный остаток товара %s", ErrValidation, p.Name)
				}
				p.Quantity -= line.Quantity
				total += p.PriceCents * int64(line.Quantity)
			case model.TransactionBuylist:
				p.Quantity += line.Quantity
				total += p.BuylistCents * int64(line.Quantity)
			}

			if err := products.Update(ctx, p); err != nil {
				return err
			}
		}

		t.TotalCents = total
		return repository.NewTransactionRepository(tx).Create(ctx, t)
	})
	if err != nil {
		if errors.Is(err, ErrValidation) {
			return nil, err
		}
		return nil, fmt.Errorf("запись транзакции: %w", err)
	}

	s.logger.Info("Транзакция записана",
		slog.String("shop_id", shopID),
		slog.String("transaction_id", t.ID),
		slog.String("kind", kind),
		slog.Int64("total_cents", t.TotalCents),
	)
	return t, nil
}

// Get возвращает транзакцию магазина.
func (s *TransactionService) Get(ctx context.Context, shopID, id string) (*model.Transaction, error) {
	t, err := s.transactions.GetByID(ctx, shopID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение транзакции: %w", err)
	}
	return t, nil
}

// List возвращает страницу транзакций магазина и общее количество.
// kind — фильтр по типу ("" — без фильтра).
func (s *TransactionService) List(ctx context.Context, shopID, kind string, limit, offset int) ([]*model.Transaction, int, error) {
	if kind != "" && kind != model.TransactionSale && kind != model.TransactionBuylist {
		return nil, 0, fmt.Errorf("%w: недопустимый тип транзакции %q", ErrValidation, kind)
	}
	list, err := s.transactions.ListByShop(ctx, shopID, kind, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("список транзакций: %w", err)
	}
	total, err := s.transactions.CountByShop(ctx, shopID, kind)
	if err != nil {
		return nil, 0, fmt.Errorf("подсчёт транзакций: %w", err)
	}
	return list, total, nil
}
