// Пакет rbac — модель ролей CardFlux.
// Закрытый словарь из двух ролей: admin > member.
// Роли приходят из двух источников в двух форматах: Identity Provider
// присылает строки с префиксом пространства имён ("org:admin"),
// локальная БД хранит строки без префикса ("admin").
// Нормализация сводит оба формата к типу Role; всё ниже по потоку
// оперирует только им.
package rbac

import "strings"

// Role — роль участника магазина.
type Role string

// Роли в порядке возрастания привилегий.
const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// ProviderRolePrefix — префикс пространства имён ролей Identity Provider.
// Единственное место в коде, знающее о формате ролей провайдера.
const ProviderRolePrefix = "org:"

// roleWeight — вес роли для сравнения.
// Чем выше вес, тем больше привилегий.
var roleWeight = map[Role]int{
	RoleMember: 1,
	RoleAdmin:  2,
}

// StripProviderPrefix убирает префикс провайдера, если он есть.
// "org:admin" → "admin", "admin" → "admin".
func StripProviderPrefix(raw string) string {
	return strings.TrimPrefix(raw, ProviderRolePrefix)
}

// Normalize приводит сырую строку роли (с префиксом провайдера или без)
// к Role. Сравнение регистрозависимое: после снятия префикса строка
// должна точно совпасть с "admin" или "member".
// Возвращает ("", false) для пустой строки и любой неизвестной роли —
// ближайшая похожая роль не угадывается.
func Normalize(raw string) (Role, bool) {
	if raw == "" {
		return "", false
	}
	role := Role(StripProviderPrefix(raw))
	if _, ok := roleWeight[role]; !ok {
		return "", false
	}
	return role, true
}

// NormalizeOrDefault — как Normalize, но вместо ("", false) возвращает
// роль по умолчанию RoleMember. Для мест, где роль обязана существовать
// (например, отображение участника в UI).
// На всех валидных входах результат совпадает с Normalize.
func NormalizeOrDefault(raw string) Role {
	role, ok := Normalize(raw)
	if !ok {
		return RoleMember
	}
	return role
}

// IsValid проверяет, входит ли роль в закрытый словарь.
func IsValid(role Role) bool {
	_, ok := roleWeight[role]
	return ok
}

// HasPermission возвращает true, если userRole имеет привилегии
// не ниже required. Пустая (неопределённая) роль не имеет никаких
// привилегий, включая member.
func HasPermission(userRole, required Role) bool {
	wu, ok := roleWeight[userRole]
	if !ok {
		return false
	}
	wr, ok := roleWeight[required]
	if !ok {
		return false
	}
	return wu >= wr
}

// EffectiveRole вычисляет роль для авторизации из двух источников.
// БД — источник истины для авторизации: если dbRole валидна, она
// побеждает. Роль провайдера используется, только когда в БД роли нет
// (свежее членство, ещё не синхронизированное локально).
func EffectiveRole(dbRole Role, providerRaw string) Role {
	if IsValid(dbRole) {
		return dbRole
	}
	role, ok := Normalize(providerRaw)
	if !ok {
		return ""
	}
	return role
}

// ProviderRoleString возвращает роль в формате провайдера ("org:admin").
// Используется при записи роли обратно в Identity Provider.
func ProviderRoleString(role Role) string {
	return ProviderRolePrefix + string(role)
}
