package membership

import (
	"errors"
	"testing"

	"github.com/tcgvision/cardflux-web-sub000/internal/domain/rbac"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		provider ProviderSignal
		lookup   LookupSignal
		want     Status
	}{
		{
			name:     "список не загружен → loading",
			provider: ProviderSignal{},
			lookup:   emptyLookup(),
			want:     Status{Case: "loading", Action: ActionNone},
		},
		{
			name:     "поиск в БД в полёте → loading",
			provider: ProviderSignal{ListLoaded: true},
			lookup:   LookupSignal{},
			want:     Status{Case: "loading", Action: ActionNone},
		},
		{
			name: "активная организация → provider-trusted",
			provider: ProviderSignal{
				ListLoaded: true,
				CurrentOrg: &Org{ID: "org1", Name: "Shop A"},
			},
			lookup: emptyLookup(),
			want:   Status{Case: "provider-trusted", Action: ActionNone},
		},
		{
			name: "активная организация при сбое списка → provider-trusted",
			provider: ProviderSignal{
				CurrentOrg: &Org{ID: "org1", Name: "Shop A"},
			},
			lookup: emptyLookup(),
			want:   Status{Case: "provider-trusted", Action: ActionNone},
		},
		{
			name: "членство совпадает с БД → matched-membership",
			provider: ProviderSignal{
				ListLoaded: true,
				Memberships: []ProviderMembership{
					{Org: Org{ID: "org1", Name: "Shop A"}, RawRole: "org:member"},
				},
			},
			lookup: loadedLookup("org1", "Shop A", rbac.RoleMember),
			want:   Status{Case: "matched-membership", Action: ActionNone},
		},
		{
			name:     "магазин только в БД, у провайдера пусто → orphaned-database",
			provider: ProviderSignal{ListLoaded: true},
			lookup:   loadedLookup("org1", "Shop A", rbac.RoleAdmin),
			want: Status{
				Case:      "orphaned-database",
				NeedsSync: true,
				Reason:    "Членство найдено в БД, но организация в Identity Provider не обнаружена — примите приглашение из письма",
				Action:    ActionInvitation,
			},
		},
		{
			name: "членства у провайдера, в БД пусто → orphaned-provider",
			provider: ProviderSignal{
				ListLoaded: true,
				Memberships: []ProviderMembership{
					{Org: Org{ID: "org1", Name: "Shop A"}, RawRole: "org:member"},
				},
			},
			lookup: emptyLookup(),
			want: Status{
				Case:        "orphaned-provider",
				NeedsSync:   true,
				Reason:      "У Identity Provider есть членства в организациях, но членство в БД отсутствует — запустите синхронизацию",
				CanAutoSync: true,
				Action:      ActionRefresh,
			},
		},
		{
			name:     "везде пусто → no-membership",
			provider: ProviderSignal{ListLoaded: true},
			lookup:   emptyLookup(),
			want:     Status{Case: "no-membership", Action: ActionNone},
		},
		{
			name: "несовпадающие членства при магазине в БД → indeterminate",
			provider: ProviderSignal{
				ListLoaded: true,
				Memberships: []ProviderMembership{
					{Org: Org{ID: "org9", Name: "Other"}, RawRole: "org:admin"},
				},
			},
			lookup: loadedLookup("org1", "Shop A", rbac.RoleAdmin),
			want:   Status{Case: "indeterminate", Action: ActionNone},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.provider, tt.lookup)
			if got != tt.want {
				t.Errorf("Evaluate() =\n%+v\nхотели\n%+v", got, tt.want)
			}
		})
	}
}

// TestEvaluate_LookupError: на ошибке сигнала БД нельзя рекомендовать
// invitation или refresh — только неопределённость.
func TestEvaluate_LookupError(t *testing.T) {
	providers := []ProviderSignal{
		{ListLoaded: true},
		{ListLoaded: true, Memberships: []ProviderMembership{
			{Org: Org{ID: "org1", Name: "Shop A"}, RawRole: "org:member"},
		}},
		{ListLoaded: true, CurrentOrg: &Org{ID: "org1", Name: "Shop A"}},
	}

	for _, provider := range providers {
		lookup := LookupSignal{Loaded: true, Err: errors.New("сеть недоступна")}
		got := Evaluate(provider, lookup)

		if got.NeedsSync {
			t.Errorf("NeedsSync = true на ошибочном сигнале: %+v", got)
		}
		if got.Action == ActionInvitation || got.Action == ActionRefresh {
			t.Errorf("Action = %q на ошибочном сигнале — неверный сценарий исправления", got.Action)
		}
	}
}

// TestEvaluate_AutoSyncOnlyOrphanedProvider: CanAutoSync допустим
// только в случае orphaned-provider.
func TestEvaluate_AutoSyncOnlyOrphanedProvider(t *testing.T) {
	providers := []ProviderSignal{
		{},
		{ListLoaded: true},
		{ListLoaded: true, CurrentOrg: &Org{ID: "org1", Name: "Shop A"}},
		{ListLoaded: true, Memberships: []ProviderMembership{
			{Org: Org{ID: "org1", Name: "Shop A"}, RawRole: "org:member"},
		}},
	}
	lookups := []LookupSignal{
		{},
		{Loaded: true},
		{Loaded: true, Err: errors.New("boom")},
		loadedLookup("org1", "Shop A", rbac.RoleAdmin),
		loadedLookup("org2", "Shop B", rbac.RoleMember),
	}

	for _, provider := range providers {
		for _, lookup := range lookups {
			got := Evaluate(provider, lookup)
			if got.CanAutoSync && got.Case != "orphaned-provider" {
				t.Errorf("CanAutoSync = true в случае %q", got.Case)
			}
			if got.Case == "orphaned-provider" && !got.CanAutoSync {
				t.Error("orphaned-provider без CanAutoSync")
			}
		}
	}
}

// TestEvaluate_AgreesWithResolver: Resolver и Evaluator согласованы
// в сценарии «членства нет нигде».
func TestEvaluate_AgreesWithResolver(t *testing.T) {
	provider := ProviderSignal{ListLoaded: true}
	lookup := emptyLookup()

	ctx := Resolve(provider, lookup)
	status := Evaluate(provider, lookup)

	if ctx.HasShop || ctx.Source != SourceNone {
		t.Errorf("Resolver: HasShop = %v, Source = %q, хотели false/пустой", ctx.HasShop, ctx.Source)
	}
	if status.NeedsSync {
		t.Errorf("Evaluator: NeedsSync = true, сверять нечего")
	}
}
