package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tcgvision/cardflux-web-sub000/internal/domain/membership"
	"github.com/tcgvision/cardflux-web-sub000/internal/domain/model"
	"github.com/tcgvision/cardflux-web-sub000/internal/domain/rbac"
	"github.com/tcgvision/cardflux-web-sub000/internal/idp"
)

func newTestSyncService(provider *fakeProvider, shops *fakeShopsRepo, members *fakeMembersRepo) *SyncService {
	cache := NewMembershipCache(100, time.Minute)
	memberSvc := NewMembershipService(provider, members, cache, testLogger())
	return NewSyncService(memberSvc, provider, shops, members, cache, testLogger())
}

// orphaned-provider: членство есть у провайдера, БД пуста — авто-ремонт.
func TestRefresh_OrphanedProviderAutoRepair(t *testing.T) {
	provider := &fakeProvider{
		memberships: []idp.OrganizationMembership{providerMembership("org_1", "org:admin")},
	}
	shops := newFakeShopsRepo()
	members := newFakeMembersRepo()
	svc := newTestSyncService(provider, shops, members)

	sess := Session{Subject: "user-1", Username: "alice", Email: "alice@example.com"}
	result, err := svc.Refresh(context.Background(), sess)
	if err != nil {
		t.Fatalf("Refresh() ошибка: %v", err)
	}

	if result.Outcome != model.SyncOutcomeSynced {
		t.Fatalf("Outcome = %q, ожидали synced", result.Outcome)
	}
	if result.ShopID != "org_1" {
		t.Errorf("ShopID = %q, ожидали org_1", result.ShopID)
	}

	// Магазин зеркалирован
	if _, ok := shops.byID["org_1"]; !ok {
		t.Error("Магазин не создан при авто-ремонте")
	}
	// Членство создано с нормализованной ролью
	m, ok := members.bySubject["user-1"]
	if !ok {
		t.Fatal("Членство не создано при авто-ремонте")
	}
	if m.Role != rbac.RoleAdmin {
		t.Errorf("Role = %q, ожидали admin (из org:admin)", m.Role)
	}
	if m.ShopID != "org_1" || m.Email != "alice@example.com" {
		t.Errorf("ShopID=%q Email=%q", m.ShopID, m.Email)
	}
}

// При нескольких членствах приоритет у текущей организации сессии.
func TestRefresh_PrefersCurrentOrg(t *testing.T) {
	provider := &fakeProvider{
		memberships: []idp.OrganizationMembership{
			providerMembership("org_1", "org:member"),
			providerMembership("org_2", "org:admin"),
		},
	}
	shops := newFakeShopsRepo()
	members := newFakeMembersRepo()
	svc := newTestSyncService(provider, shops, members)

	// Сессия без текущей организации: классификация orphaned-provider,
	// берётся первое членство из списка.
	result, err := svc.Refresh(context.Background(), Session{Subject: "user-1"})
	if err != nil {
		t.Fatalf("Refresh() ошибка: %v", err)
	}
	if result.ShopID != "org_1" {
		t.Errorf("ShopID = %q, без текущей организации берётся первое членство", result.ShopID)
	}

	ms := membershipSignalFrom(provider)
	if picked := pickMembership(ms, "org_2"); picked == nil || picked.Org.ID != "org_2" {
		t.Errorf("pickMembership с текущей организацией org_2 вернул %+v", picked)
	}
	if picked := pickMembership(ms, "org_absent"); picked == nil || picked.Org.ID != "org_1" {
		t.Errorf("pickMembership с несуществующей организацией вернул %+v", picked)
	}
}

// membershipSignalFrom строит ProviderSignal из членств фейкового провайдера.
func membershipSignalFrom(f *fakeProvider) membership.ProviderSignal {
	sig := membership.ProviderSignal{ListLoaded: true}
	for _, m := range f.memberships {
		sig.Memberships = append(sig.Memberships, membership.ProviderMembership{
			Org:     membership.Org{ID: m.Organization.ID, Name: m.Organization.Name},
			RawRole: m.Role,
		})
	}
	return sig
}

// orphaned-database: чинить автоматически нечем, нужен акцепт приглашения.
func TestRefresh_OrphanedDatabase(t *testing.T) {
	provider := &fakeProvider{}
	shops := newFakeShopsRepo()
	members := newFakeMembersRepo()
	members.bySubject["user-1"] = memberOf("org_1", "user-1", rbac.RoleMember)
	svc := newTestSyncService(provider, shops, members)

	result, err := svc.Refresh(context.Background(), Session{Subject: "user-1"})
	if err != nil {
		t.Fatalf("Refresh() ошибка: %v", err)
	}
	if result.Outcome != model.SyncOutcomeNeedsInvitation {
		t.Errorf("Outcome = %q, ожидали needs_invitation", result.Outcome)
	}
	if result.ShopID != "org_1" {
		t.Errorf("ShopID = %q, ожидали org_1", result.ShopID)
	}
	if len(provider.invitations) != 0 {
		t.Errorf("Refresh сам создал приглашение: %v", provider.invitations)
	}
}

// Согласованные источники — noop без побочных эффектов.
func TestRefresh_Noop(t *testing.T) {
	provider := &fakeProvider{
		memberships: []idp.OrganizationMembership{providerMembership("org_1", "org:member")},
	}
	shops := newFakeShopsRepo()
	members := newFakeMembersRepo()
	members.bySubject["user-1"] = memberOf("org_1", "user-1", rbac.RoleMember)
	svc := newTestSyncService(provider, shops, members)

	result, err := svc.Refresh(context.Background(), Session{Subject: "user-1"})
	if err != nil {
		t.Fatalf("Refresh() ошибка: %v", err)
	}
	if result.Outcome != model.SyncOutcomeNoop {
		t.Errorf("Outcome = %q, ожидали noop", result.Outcome)
	}
}

// Ошибка провайдера: классификация loading, ремонт не запускается.
func TestRefresh_ProviderErrorNoRepair(t *testing.T) {
	provider := &fakeProvider{listErr: errors.New("timeout")}
	shops := newFakeShopsRepo()
	members := newFakeMembersRepo()
	svc := newTestSyncService(provider, shops, members)

	result, err := svc.Refresh(context.Background(), Session{Subject: "user-1"})
	if err != nil {
		t.Fatalf("Refresh() ошибка: %v", err)
	}
	if result.Outcome != model.SyncOutcomeNoop {
		t.Errorf("Outcome = %q: на ошибке провайдера ремонт запрещён", result.Outcome)
	}
	if len(shops.byID) != 0 || len(members.bySubject) != 0 {
		t.Error("Ремонт выполнен несмотря на ошибку провайдера")
	}
}

// Refresh сбрасывает кэш: решение принимается по свежему ответу БД.
func TestRefresh_InvalidatesCache(t *testing.T) {
	provider := &fakeProvider{}
	shops := newFakeShopsRepo()
	members := newFakeMembersRepo()
	svc := newTestSyncService(provider, shops, members)

	sess := Session{Subject: "user-1"}
	// Прогреваем кэш отрицательным ответом
	svc.memberSvc.Resolve(context.Background(), sess)
	if members.getCalls != 1 {
		t.Fatalf("getCalls=%d после прогрева", members.getCalls)
	}

	// Членство появилось в обход кэша
	members.bySubject["user-1"] = memberOf("org_1", "user-1", rbac.RoleMember)

	result, err := svc.Refresh(context.Background(), sess)
	if err != nil {
		t.Fatalf("Refresh() ошибка: %v", err)
	}
	if members.getCalls != 2 {
		t.Errorf("getCalls=%d: Refresh обязан перечитать БД", members.getCalls)
	}
	if result.Outcome != model.SyncOutcomeNeedsInvitation {
		t.Errorf("Outcome = %q, свежая запись БД не учтена", result.Outcome)
	}
}

// RequestInvitation создаёт приглашение с ролью в формате провайдера.
func TestRequestInvitation(t *testing.T) {
	provider := &fakeProvider{}
	shops := newFakeShopsRepo()
	members := newFakeMembersRepo()
	members.bySubject["user-1"] = memberOf("org_1", "user-1", rbac.RoleAdmin)
	svc := newTestSyncService(provider, shops, members)

	inv, err := svc.RequestInvitation(context.Background(), Session{Subject: "user-1", Email: "alice@example.com"})
	if err != nil {
		t.Fatalf("RequestInvitation() ошибка: %v", err)
	}
	if inv.OrganizationID != "org_1" {
		t.Errorf("OrganizationID = %q, ожидали org_1", inv.OrganizationID)
	}
	if inv.Email != "alice@example.com" {
		t.Errorf("Email = %q", inv.Email)
	}
	if inv.Role != "org:admin" {
		t.Errorf("Role = %q, ожидали формат провайдера org:admin", inv.Role)
	}
}

// Без членства в БД приглашение создавать не для чего.
func TestRequestInvitation_NoMembership(t *testing.T) {
	svc := newTestSyncService(&fakeProvider{}, newFakeShopsRepo(), newFakeMembersRepo())

	_, err := svc.RequestInvitation(context.Background(), Session{Subject: "user-1"})
	if !errors.Is(err, ErrNoMembership) {
		t.Errorf("ошибка = %v, ожидали ErrNoMembership", err)
	}
}

// FixLinking при needs_invitation сразу создаёт приглашение.
func TestFixLinking_CreatesInvitation(t *testing.T) {
	provider := &fakeProvider{}
	shops := newFakeShopsRepo()
	members := newFakeMembersRepo()
	members.bySubject["user-1"] = memberOf("org_1", "user-1", rbac.RoleMember)
	svc := newTestSyncService(provider, shops, members)

	result, err := svc.FixLinking(context.Background(), Session{Subject: "user-1", Email: "alice@example.com"})
	if err != nil {
		t.Fatalf("FixLinking() ошибка: %v", err)
	}
	if result.Outcome != model.SyncOutcomeNeedsInvitation {
		t.Errorf("Outcome = %q", result.Outcome)
	}
	if len(provider.invitations) != 1 {
		t.Fatalf("создано %d приглашений, ожидали 1", len(provider.invitations))
	}
	if provider.invitations[0].Role != "org:member" {
		t.Errorf("Role приглашения = %q", provider.invitations[0].Role)
	}
}
