package model

import "time"

// Product — карточка товара в инвентаре магазина.
// Хранится в таблице products.
type Product struct {
	// ID — UUID записи
	ID string
	// ShopID — магазин-владелец
	ShopID string
	// Name — название карты
	Name string
	// SetCode — код выпуска (например, "MH3")
	SetCode string
	// Number — номер карты в выпуске
	Number string
	// Condition — состояние (NM, LP, MP, HP, DMG)
	Condition string
	// Foil — фольгированная ли карта
	Foil bool
	// PriceCents — цена продажи в минимальных единицах валюты
	PriceCents int64
	// BuylistCents — цена выкупа (0 — не выкупается)
	BuylistCents int64
	// Quantity — количество на складе
	Quantity int
	// CreatedAt — время создания записи
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time
}
