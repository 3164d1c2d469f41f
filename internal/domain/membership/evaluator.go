// evaluator.go — Sync-State Evaluator: классификация расхождения
// между провайдером и БД и выбор действия по исправлению.
//
// Явная упорядоченная таблица правил вместо каскада if: правила
// проверяются сверху вниз, побеждает первое совпавшее. Каждое правило —
// именованный чистый предикат над парой сигналов, проверяемый отдельно.
//
// Классификация одноразовая: никакой персистентной машины состояний,
// каждый вызов Evaluate считает всё заново.
package membership

// Action — рекомендуемое действие по исправлению расхождения.
type Action string

const (
	// ActionNone — исправление не требуется.
	ActionNone Action = "none"
	// ActionInvitation — пользователь должен принять приглашение
	// по почте: членство провайдера приложение создать не может.
	ActionInvitation Action = "invitation"
	// ActionRefresh — безопасный авто-ремонт повторным запуском
	// синхронизации (отстала локальная запись в БД).
	ActionRefresh Action = "refresh"
	// ActionManual — требуется ручное вмешательство.
	ActionManual Action = "manual"
)

// Status — результат классификации. Отдаётся отдельно от Context,
// т.к. UI исправления нужны причина и действие независимо от решения
// о доступе.
type Status struct {
	// Case — имя сработавшего правила (для логов и диагностики).
	Case string
	// NeedsSync — обнаружено расхождение источников.
	NeedsSync bool
	// Reason — человекочитаемая причина ("" если расхождения нет).
	Reason string
	// CanAutoSync — можно ли исправить без участия пользователя.
	CanAutoSync bool
	// Action — рекомендуемое действие.
	Action Action
}

// syncRule — одно правило классификации.
type syncRule struct {
	name    string
	matches func(provider ProviderSignal, lookup LookupSignal) bool
	status  func(provider ProviderSignal, lookup LookupSignal) Status
}

// syncRules — упорядоченная таблица правил. Порядок значим:
// побеждает первое совпавшее правило.
//
// provider-trusted стоит выше loading: активная организация из токена
// окончательна сама по себе, сбой списка членств или БД её не отменяет.
// Правило loading поглощает и ошибочный сигнал БД: на основе ошибки
// нельзя рекомендовать invitation или refresh — это увело бы
// пользователя в неверный сценарий исправления.
var syncRules = []syncRule{
	{
		name: "provider-trusted",
		matches: func(provider ProviderSignal, _ LookupSignal) bool {
			return provider.CurrentOrg != nil
		},
		status: func(_ ProviderSignal, _ LookupSignal) Status {
			return Status{Case: "provider-trusted", Action: ActionNone}
		},
	},
	{
		name: "loading",
		matches: func(provider ProviderSignal, lookup LookupSignal) bool {
			return !provider.ListLoaded || lookup.indeterminate()
		},
		status: func(_ ProviderSignal, _ LookupSignal) Status {
			return Status{Case: "loading", Action: ActionNone}
		},
	},
	{
		name: "matched-membership",
		matches: func(provider ProviderSignal, lookup LookupSignal) bool {
			return lookup.HasShop && lookup.Shop != nil &&
				matchingMembership(provider.Memberships, lookup.Shop.ID) != nil
		},
		status: func(_ ProviderSignal, _ LookupSignal) Status {
			return Status{Case: "matched-membership", Action: ActionNone}
		},
	},
	{
		name: "orphaned-database",
		matches: func(provider ProviderSignal, lookup LookupSignal) bool {
			return lookup.HasShop && len(provider.Memberships) == 0
		},
		status: func(_ ProviderSignal, _ LookupSignal) Status {
			return Status{
				Case:      "orphaned-database",
				NeedsSync: true,
				Reason:    "Членство найдено в БД, но организация в Identity Provider не обнаружена — примите приглашение из письма",
				Action:    ActionInvitation,
			}
		},
	},
	{
		name: "orphaned-provider",
		matches: func(provider ProviderSignal, lookup LookupSignal) bool {
			return !lookup.HasShop && len(provider.Memberships) > 0
		},
		status: func(_ ProviderSignal, _ LookupSignal) Status {
			return Status{
				Case:        "orphaned-provider",
				NeedsSync:   true,
				Reason:      "У Identity Provider есть членства в организациях, но членство в БД отсутствует — запустите синхронизацию",
				CanAutoSync: true,
				Action:      ActionRefresh,
			}
		},
	},
	{
		name: "no-membership",
		matches: func(provider ProviderSignal, lookup LookupSignal) bool {
			return !lookup.HasShop && len(provider.Memberships) == 0
		},
		status: func(_ ProviderSignal, _ LookupSignal) Status {
			return Status{Case: "no-membership", Action: ActionNone}
		},
	},
}

// Evaluate классифицирует пару сигналов и возвращает Status.
// Чистая функция, идемпотентна. Если ни одно правило не совпало —
// неопределённый случай без рекомендаций.
func Evaluate(provider ProviderSignal, lookup LookupSignal) Status {
	for _, rule := range syncRules {
		if rule.matches(provider, lookup) {
			return rule.status(provider, lookup)
		}
	}
	return Status{Case: "indeterminate", Action: ActionNone}
}
