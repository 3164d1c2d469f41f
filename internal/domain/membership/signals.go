// Пакет membership — сверка членства между Identity Provider и локальной БД.
//
// Три независимых сигнала (текущая организация провайдера, список членств
// провайдера, результат поиска членства в БД) сводятся в единый ответ:
// есть ли у пользователя магазин, из какого источника и нужна ли
// синхронизация. Resolver и Evaluator — чистые функции без I/O;
// получение сигналов — обязанность вызывающего слоя.
package membership

import "github.com/tcgvision/cardflux-web-sub000/internal/domain/rbac"

// Org — организация (магазин) на стороне Identity Provider.
type Org struct {
	// ID — идентификатор организации у провайдера.
	// Совпадает с id магазина в локальной БД.
	ID string
	// Name — отображаемое имя организации.
	Name string
}

// ProviderMembership — членство пользователя в организации провайдера.
type ProviderMembership struct {
	// Org — организация, к которой относится членство.
	Org Org
	// RawRole — роль в формате провайдера ("org:admin", "org:member").
	// Не нормализована: нормализация — забота потребителя.
	RawRole string
}

// ProviderSignal — данные Identity Provider о текущем пользователе.
// Несёт два независимых подсигнала: активная организация из токена
// сессии и список членств из admin-API провайдера.
type ProviderSignal struct {
	// CurrentOrg — активная организация сессии из токена (nil, если
	// не выбрана). Подписанное утверждение провайдера: действительно
	// само по себе, независимо от ListLoaded.
	CurrentOrg *Org
	// CurrentRawRole — роль в активной организации из токена,
	// в формате провайдера ("org:admin"); "" если токен её не несёт.
	CurrentRawRole string
	// ListLoaded — получен ли список членств.
	// false означает «ещё загружается или запрос упал» — неопределён
	// только список, а не сигнал провайдера целиком.
	ListLoaded bool
	// Memberships — все членства пользователя у провайдера.
	Memberships []ProviderMembership
}

// LookupSignal — результат поиска членства в локальной БД.
type LookupSignal struct {
	// Loaded — завершился ли поиск.
	// false — запрос ещё в полёте, окончательного ответа нет.
	Loaded bool
	// Err — ошибка поиска. Ошибочный сигнал трактуется как
	// неопределённый: это не «магазина нет».
	Err error
	// HasShop — найдено ли членство.
	HasShop bool
	// Shop — магазин из БД (nil, если HasShop == false).
	Shop *Org
	// Role — нормализованная роль из БД ("" если членства нет).
	Role rbac.Role
}

// indeterminate — сигнал БД не даёт окончательного ответа
// (ещё грузится или завершился ошибкой).
func (s LookupSignal) indeterminate() bool {
	return !s.Loaded || s.Err != nil
}

// Source — источник ответа о членстве.
type Source string

const (
	// SourceProvider — членство подтверждено Identity Provider.
	SourceProvider Source = "provider"
	// SourceDatabase — членство найдено только в локальной БД.
	SourceDatabase Source = "database"
	// SourceNone — членства нет.
	SourceNone Source = ""
)

// Context — единый ответ о членстве, пересчитывается на каждое чтение
// и нигде не хранится.
//
// Инварианты:
//   - Source == SourceProvider ⇒ Verified == true && NeedsSync == false;
//   - HasShop == false ⇒ Source == SourceNone и ShopID пуст;
//   - Loading == true ⇒ вердикт не окончательный, потребитель обязан
//     показывать «проверка доступа», а не отказ.
type Context struct {
	// Loading — хотя бы один сигнал ещё не дал окончательного ответа.
	Loading bool
	// HasShop — есть ли у пользователя магазин.
	HasShop bool
	// ShopID — идентификатор магазина ("" если HasShop == false).
	ShopID string
	// ShopName — отображаемое имя магазина.
	ShopName string
	// Source — источник ответа.
	Source Source
	// Verified — подтверждён ли ответ живыми данными провайдера.
	Verified bool
	// NeedsSync — обнаружено расхождение источников.
	NeedsSync bool
	// Role — роль для авторизации (БД побеждает, см. rbac.EffectiveRole).
	Role rbac.Role
	// DisplayRole — роль провайдера для отображения
	// (может расходиться с Role до завершения синхронизации).
	DisplayRole rbac.Role
}
