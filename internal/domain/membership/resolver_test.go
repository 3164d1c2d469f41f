package membership

import (
	"errors"
	"testing"

	"github.com/tcgvision/cardflux-web-sub000/internal/domain/rbac"
)

// loadedLookup — определённый сигнал БД с найденным магазином.
func loadedLookup(id, name string, role rbac.Role) LookupSignal {
	return LookupSignal{
		Loaded:  true,
		HasShop: true,
		Shop:    &Org{ID: id, Name: name},
		Role:    role,
	}
}

// emptyLookup — определённый сигнал БД без членства.
func emptyLookup() LookupSignal {
	return LookupSignal{Loaded: true}
}

func TestResolve_ProviderTrustPriority(t *testing.T) {
	// Активная организация провайдера побеждает конфликтующую БД.
	provider := ProviderSignal{
		ListLoaded: true,
		CurrentOrg: &Org{ID: "org1", Name: "Shop A"},
	}
	lookup := loadedLookup("org2", "Shop B", rbac.RoleAdmin)

	ctx := Resolve(provider, lookup)

	if ctx.Source != SourceProvider {
		t.Errorf("Source = %q, хотели provider", ctx.Source)
	}
	if ctx.ShopID != "org1" || ctx.ShopName != "Shop A" {
		t.Errorf("магазин = (%q, %q), хотели (org1, Shop A)", ctx.ShopID, ctx.ShopName)
	}
	if !ctx.Verified {
		t.Error("Verified = false, доверенный ответ провайдера обязан быть проверенным")
	}
	if ctx.NeedsSync {
		t.Error("NeedsSync = true, доверенный ответ провайдера не требует синхронизации")
	}
}

func TestResolve_MatchedMembership(t *testing.T) {
	// Нет активной организации, но членство провайдера совпадает
	// с магазином из БД: доверяем, идентичность — из членства.
	provider := ProviderSignal{
		ListLoaded: true,
		Memberships: []ProviderMembership{
			{Org: Org{ID: "org1", Name: "Shop A (provider)"}, RawRole: "org:member"},
		},
	}
	lookup := loadedLookup("org1", "Shop A (db)", rbac.RoleAdmin)

	ctx := Resolve(provider, lookup)

	if ctx.Source != SourceProvider {
		t.Fatalf("Source = %q, хотели provider", ctx.Source)
	}
	if ctx.ShopName != "Shop A (provider)" {
		t.Errorf("ShopName = %q, хотели имя из членства провайдера, не из БД", ctx.ShopName)
	}
	if !ctx.Verified || ctx.NeedsSync {
		t.Errorf("Verified = %v, NeedsSync = %v, хотели true/false", ctx.Verified, ctx.NeedsSync)
	}
	// Роль: БД побеждает для авторизации, провайдер — для отображения.
	if ctx.Role != rbac.RoleAdmin {
		t.Errorf("Role = %q, хотели admin (роль из БД побеждает)", ctx.Role)
	}
	if ctx.DisplayRole != rbac.RoleMember {
		t.Errorf("DisplayRole = %q, хотели member (роль провайдера)", ctx.DisplayRole)
	}
}

func TestResolve_DatabaseOnly(t *testing.T) {
	// Список членств загружен и пуст; БД магазин знает.
	provider := ProviderSignal{ListLoaded: true}
	lookup := loadedLookup("org1", "Shop A", rbac.RoleMember)

	ctx := Resolve(provider, lookup)

	if ctx.Source != SourceDatabase {
		t.Fatalf("Source = %q, хотели database", ctx.Source)
	}
	if ctx.Verified {
		t.Error("Verified = true, ответ только из БД не может быть проверенным")
	}
	if !ctx.NeedsSync {
		t.Error("NeedsSync = false, осиротевшее членство БД требует синхронизации")
	}
	if ctx.Role != rbac.RoleMember {
		t.Errorf("Role = %q, хотели member", ctx.Role)
	}
}

func TestResolve_LoadingNonRegression(t *testing.T) {
	// Пока поиск в БД в полёте, окончательный вердикт «магазина нет»
	// запрещён при любом состоянии провайдера.
	providers := map[string]ProviderSignal{
		"провайдер пуст":      {ListLoaded: true},
		"список не загружен": {},
		"есть членства без активной организации": {
			ListLoaded: true,
			Memberships: []ProviderMembership{
				{Org: Org{ID: "org1", Name: "Shop A"}, RawRole: "org:member"},
			},
		},
	}

	for name, provider := range providers {
		t.Run(name, func(t *testing.T) {
			ctx := Resolve(provider, LookupSignal{Loaded: false})
			if !ctx.Loading {
				t.Error("Loading = false, хотели явное состояние загрузки")
			}
			if ctx.HasShop {
				t.Error("HasShop = true до окончательного ответа БД")
			}
			if ctx.Source != SourceNone {
				t.Errorf("Source = %q, хотели пустой", ctx.Source)
			}
		})
	}
}

func TestResolve_CurrentOrgBeatsLoadingLookup(t *testing.T) {
	// Активная организация провайдера доверенная даже при
	// незавершённом поиске в БД: это не ложный отказ.
	provider := ProviderSignal{
		ListLoaded: true,
		CurrentOrg: &Org{ID: "org1", Name: "Shop A"},
	}

	ctx := Resolve(provider, LookupSignal{Loaded: false})

	if !ctx.HasShop || ctx.Source != SourceProvider {
		t.Errorf("HasShop = %v, Source = %q, хотели true/provider", ctx.HasShop, ctx.Source)
	}
	if ctx.Loading {
		t.Error("Loading = true при доверенном ответе провайдера")
	}
}

func TestResolve_CurrentOrgSurvivesListFailure(t *testing.T) {
	// Сбой списка членств не отменяет активную организацию из токена:
	// она подписана провайдером и даёт доверенный ответ, а не Loading.
	provider := ProviderSignal{
		CurrentOrg:     &Org{ID: "org1", Name: "Shop A"},
		CurrentRawRole: "org:admin",
	}

	ctx := Resolve(provider, emptyLookup())

	if ctx.Loading {
		t.Fatal("Loading = true: сбой списка превратился в неопределённость")
	}
	if !ctx.HasShop || ctx.Source != SourceProvider || ctx.ShopID != "org1" {
		t.Errorf("HasShop = %v, Source = %q, ShopID = %q, хотели true/provider/org1",
			ctx.HasShop, ctx.Source, ctx.ShopID)
	}
	if ctx.Role != rbac.RoleAdmin {
		t.Errorf("Role = %q, хотели admin из роли в токене", ctx.Role)
	}
}

func TestResolve_CurrentOrgRoleFromToken(t *testing.T) {
	// Нет ни записи в БД, ни совпадения в списке членств: роль берётся
	// из токена, иначе создатель магазина остался бы без прав до
	// завершения синхронизации.
	provider := ProviderSignal{
		ListLoaded:     true,
		CurrentOrg:     &Org{ID: "org1", Name: "Shop A"},
		CurrentRawRole: "org:admin",
	}

	ctx := Resolve(provider, emptyLookup())

	if ctx.Role != rbac.RoleAdmin {
		t.Errorf("Role = %q, хотели admin", ctx.Role)
	}
	if ctx.DisplayRole != rbac.RoleAdmin {
		t.Errorf("DisplayRole = %q, хотели admin", ctx.DisplayRole)
	}
	// Совпадение в списке членств приоритетнее роли из токена.
	provider.Memberships = []ProviderMembership{
		{Org: Org{ID: "org1", Name: "Shop A"}, RawRole: "org:member"},
	}
	if ctx = Resolve(provider, emptyLookup()); ctx.DisplayRole != rbac.RoleMember {
		t.Errorf("DisplayRole = %q, хотели member из списка членств", ctx.DisplayRole)
	}
}

func TestResolve_LookupError(t *testing.T) {
	// Ошибка поиска в БД — неопределённость, а не «магазина нет».
	provider := ProviderSignal{ListLoaded: true}
	lookup := LookupSignal{Loaded: true, Err: errors.New("сеть недоступна")}

	ctx := Resolve(provider, lookup)

	if !ctx.Loading {
		t.Error("Loading = false, ошибочный сигнал обязан давать неопределённость")
	}
	if ctx.HasShop || ctx.Source != SourceNone {
		t.Errorf("HasShop = %v, Source = %q — ошибка превратилась в отказ", ctx.HasShop, ctx.Source)
	}
}

func TestResolve_NoMembership(t *testing.T) {
	// Все сигналы определённы и пусты.
	ctx := Resolve(ProviderSignal{ListLoaded: true}, emptyLookup())

	if ctx.Loading {
		t.Error("Loading = true при определённо пустых сигналах")
	}
	if ctx.HasShop {
		t.Error("HasShop = true при пустых сигналах")
	}
	if ctx.Source != SourceNone || ctx.ShopID != "" {
		t.Errorf("Source = %q, ShopID = %q, хотели пустые", ctx.Source, ctx.ShopID)
	}
	if ctx.NeedsSync {
		t.Error("NeedsSync = true, сверять нечего")
	}
}

// TestResolve_Idempotent: одинаковые входы дают одинаковый Context.
func TestResolve_Idempotent(t *testing.T) {
	provider := ProviderSignal{
		ListLoaded: true,
		CurrentOrg: &Org{ID: "org1", Name: "Shop A"},
		Memberships: []ProviderMembership{
			{Org: Org{ID: "org1", Name: "Shop A"}, RawRole: "org:admin"},
		},
	}
	lookup := loadedLookup("org1", "Shop A", rbac.RoleMember)

	first := Resolve(provider, lookup)
	second := Resolve(provider, lookup)

	if first != second {
		t.Errorf("повторный вызов дал другой результат:\n%+v\n%+v", first, second)
	}
}

// TestResolve_Invariants: перебор комбинаций сигналов,
// проверка инвариантов Context на каждом результате.
func TestResolve_Invariants(t *testing.T) {
	orgs := []*Org{nil, {ID: "org1", Name: "Shop A"}}
	memberships := [][]ProviderMembership{
		nil,
		{{Org: Org{ID: "org1", Name: "Shop A"}, RawRole: "org:member"}},
		{{Org: Org{ID: "org9", Name: "Other"}, RawRole: "org:admin"}},
	}
	lookups := []LookupSignal{
		{},
		{Loaded: true},
		{Loaded: true, Err: errors.New("boom")},
		loadedLookup("org1", "Shop A", rbac.RoleAdmin),
		loadedLookup("org2", "Shop B", rbac.RoleMember),
	}

	for _, loaded := range []bool{false, true} {
		for _, org := range orgs {
			for _, mships := range memberships {
				for _, lookup := range lookups {
					provider := ProviderSignal{ListLoaded: loaded, CurrentOrg: org, Memberships: mships}
					ctx := Resolve(provider, lookup)

					if ctx.Source == SourceProvider && (!ctx.Verified || ctx.NeedsSync) {
						t.Errorf("нарушен инвариант provider⇒verified: %+v (входы %+v, %+v)", ctx, provider, lookup)
					}
					if !ctx.HasShop && (ctx.Source != SourceNone || ctx.ShopID != "") {
						t.Errorf("нарушен инвариант no-shop⇒no-source: %+v (входы %+v, %+v)", ctx, provider, lookup)
					}
					if ctx.Loading && ctx.HasShop {
						t.Errorf("Loading вместе с HasShop: %+v", ctx)
					}
				}
			}
		}
	}
}
