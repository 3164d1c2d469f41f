// Пакет model — доменные модели CardFlux.
package model

import "time"

// Shop — магазин (tenant). Зеркалируется между организацией
// Identity Provider и локальной записью: id магазина совпадает
// с id организации у провайдера.
type Shop struct {
	// ID — идентификатор магазина (= id организации провайдера)
	ID string
	// Name — отображаемое имя магазина
	Name string
	// Currency — валюта магазина (ISO 4217, по умолчанию USD)
	Currency string
	// CreatedAt — время создания записи
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time
}
