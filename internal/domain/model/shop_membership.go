package model

import (
	"time"

	"github.com/tcgvision/cardflux-web-sub000/internal/domain/rbac"
)

// ShopMembership — членство пользователя в магазине.
// Хранится в таблице shop_memberships; источник истины для авторизации
// внутри приложения. Создаётся при создании магазина (создатель — admin)
// или при синхронизации принятого приглашения; удаляется при удалении
// участника.
type ShopMembership struct {
	// ID — UUID записи
	ID string
	// Subject — идентификатор пользователя у Identity Provider (sub)
	Subject string
	// Username — кэшированное имя пользователя
	Username string
	// Email — кэшированный адрес электронной почты
	Email string
	// ShopID — идентификатор магазина
	ShopID string
	// ShopName — кэшированное отображаемое имя магазина
	ShopName string
	// Role — нормализованная роль (admin, member)
	Role rbac.Role
	// CreatedAt — время создания записи
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time
}

// SyncOutcome — исход действия по синхронизации членства.
type SyncOutcome string

const (
	// SyncOutcomeSynced — членство в БД приведено в соответствие провайдеру.
	SyncOutcomeSynced SyncOutcome = "synced"
	// SyncOutcomeNeedsInvitation — чинить нечем: нужно принять приглашение.
	SyncOutcomeNeedsInvitation SyncOutcome = "needs_invitation"
	// SyncOutcomeNoop — расхождения нет, ничего не менялось.
	SyncOutcomeNoop SyncOutcome = "noop"
)

// SyncResult — результат действия по синхронизации.
type SyncResult struct {
	// Outcome — исход действия
	Outcome SyncOutcome
	// ShopID — магазин, к которому привязан пользователь ("" если нет)
	ShopID string
	// SyncedAt — время выполнения действия
	SyncedAt time.Time
}
