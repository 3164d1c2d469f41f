package model

import "time"

// Виды транзакций.
const (
	// TransactionSale — продажа покупателю.
	TransactionSale = "sale"
	// TransactionBuylist — выкуп карт у покупателя.
	TransactionBuylist = "buylist"
)

// Transaction — операция на кассе (продажа или выкуп).
// Хранится в таблице transactions.
type Transaction struct {
	// ID — UUID записи
	ID string
	// ShopID — магазин-владелец
	ShopID string
	// CustomerID — покупатель (nil для анонимной продажи)
	CustomerID *string
	// Kind — вид операции (sale, buylist)
	Kind string
	// TotalCents — сумма операции в минимальных единицах валюты
	TotalCents int64
	// CreatedBy — subject кассира, оформившего операцию
	CreatedBy string
	// CreatedAt — время операции
	CreatedAt time.Time
}
