package model

import "time"

// Customer — покупатель магазина.
// Хранится в таблице customers.
type Customer struct {
	// ID — UUID записи
	ID string
	// ShopID — магазин-владелец
	ShopID string
	// Name — имя покупателя
	Name string
	// Email — адрес электронной почты (может быть пустым)
	Email string
	// Phone — телефон (может быть пустым)
	Phone string
	// Notes — произвольные заметки продавца
	Notes string
	// CreatedAt — время создания записи
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time
}
