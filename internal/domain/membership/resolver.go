// resolver.go — Membership Resolver: сведение трёх сигналов в Context.
//
// Приоритет (сверху вниз, первое совпавшее правило):
//  1. активная организация из токена — доверяем безусловно, в том
//     числе когда список членств не загрузился: токен подписан
//     провайдером и от admin-API не зависит;
//  2. членство провайдера, совпадающее с магазином из БД — доверяем,
//     идентичность магазина берём из членства, не из БД;
//  3. только БД — используем, но помечаем непроверенным (NeedsSync
//     по вердикту Evaluate);
//  4. сигналы не дали окончательного ответа — явное состояние Loading,
//     чтобы потребитель не показывал ложный отказ в доступе;
//  5. всё определённо пусто — членства нет.
package membership

import "github.com/tcgvision/cardflux-web-sub000/internal/domain/rbac"

// Resolve — чистая функция трёх сигналов. Не выполняет I/O,
// идемпотентна: одинаковые входы дают одинаковый Context.
// Пересчитывается вызывающим при каждом изменении любого сигнала.
func Resolve(provider ProviderSignal, lookup LookupSignal) Context {
	// 1. Активная организация из токена — высший приоритет.
	// Живое членство провайдера всегда доверенное: Verified=true,
	// NeedsSync=false, даже если БД говорит о другом магазине
	// или список членств не загрузился.
	if provider.CurrentOrg != nil {
		return trustedContext(*provider.CurrentOrg, provider, lookup)
	}

	// 2. Членство провайдера, совпадающее с магазином из БД.
	if provider.ListLoaded && !lookup.indeterminate() && lookup.HasShop && lookup.Shop != nil {
		if m := matchingMembership(provider.Memberships, lookup.Shop.ID); m != nil {
			return trustedContext(m.Org, provider, lookup)
		}
	}

	// 3. Только БД: членство есть, провайдер его не подтверждает.
	if provider.ListLoaded && !lookup.indeterminate() && lookup.HasShop && lookup.Shop != nil {
		return Context{
			HasShop:     true,
			ShopID:      lookup.Shop.ID,
			ShopName:    lookup.Shop.Name,
			Source:      SourceDatabase,
			Verified:    false,
			NeedsSync:   Evaluate(provider, lookup).NeedsSync,
			Role:        lookup.Role,
			DisplayRole: lookup.Role,
		}
	}

	// 4. Хотя бы один сигнал без окончательного ответа — Loading.
	// Окончательный вердикт «магазина нет» до этого момента запрещён.
	if !provider.ListLoaded || lookup.indeterminate() {
		return Context{Loading: true}
	}

	// 5. Все сигналы определённы и пусты.
	return Context{
		Source:   SourceNone,
		Verified: false,
	}
}

// trustedContext — доверенный ответ от провайдера (правила 1 и 2).
// Роль для авторизации считается через rbac.EffectiveRole: роль из БД
// побеждает, роль провайдера используется как fallback и для отображения.
// Роль провайдера берётся из списка членств, а при его отсутствии —
// из роли активной организации в токене.
func trustedContext(org Org, provider ProviderSignal, lookup LookupSignal) Context {
	providerRaw := ""
	if m := matchingMembership(provider.Memberships, org.ID); m != nil {
		providerRaw = m.RawRole
	} else if provider.CurrentOrg != nil && provider.CurrentOrg.ID == org.ID {
		providerRaw = provider.CurrentRawRole
	}

	var dbRole rbac.Role
	if !lookup.indeterminate() && lookup.HasShop && lookup.Shop != nil && lookup.Shop.ID == org.ID {
		dbRole = lookup.Role
	}

	displayRole, ok := rbac.Normalize(providerRaw)
	if !ok {
		displayRole = rbac.EffectiveRole(dbRole, providerRaw)
	}

	return Context{
		HasShop:     true,
		ShopID:      org.ID,
		ShopName:    org.Name,
		Source:      SourceProvider,
		Verified:    true,
		NeedsSync:   false,
		Role:        rbac.EffectiveRole(dbRole, providerRaw),
		DisplayRole: displayRole,
	}
}

// matchingMembership возвращает членство с указанным id организации
// или nil, если такого нет.
func matchingMembership(memberships []ProviderMembership, orgID string) *ProviderMembership {
	if orgID == "" {
		return nil
	}
	for i := range memberships {
		if memberships[i].Org.ID == orgID {
			return &memberships[i]
		}
	}
	return nil
}
