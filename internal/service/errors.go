// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import "errors"

var (
	// ErrNotFound — ресурс не найден.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrConflict — конфликт (дублирующийся ресурс).
	ErrConflict = errors.New("конфликт — ресурс уже существует")
	// ErrInvalidRole — некорректная роль.
	ErrInvalidRole = errors.New("некорректная роль: допустимые значения — admin, member")
	// ErrIDPUnavailable — Identity Provider недоступен.
	ErrIDPUnavailable = errors.New("Identity Provider недоступен")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrNoMembership — у пользователя нет членства в магазине.
	ErrNoMembership = errors.New("членство в магазине отсутствует")
	// ErrLastAdmin — нельзя удалить или понизить последнего администратора.
	ErrLastAdmin = errors.New("нельзя удалить последнего администратора магазина")
	// ErrForbidden — операция запрещена для текущей роли.
	ErrForbidden = errors.New("операция запрещена для текущей роли")
)
