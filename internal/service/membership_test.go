package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/tcgvision/cardflux-web-sub000/internal/domain/membership"
	"github.com/tcgvision/cardflux-web-sub000/internal/domain/model"
	"github.com/tcgvision/cardflux-web-sub000/internal/domain/rbac"
	"github.com/tcgvision/cardflux-web-sub000/internal/idp"
	"github.com/tcgvision/cardflux-web-sub000/internal/repository"
)

// --- Фейки ---

// fakeProvider — фейковый Identity Provider для сервисных тестов.
type fakeProvider struct {
	memberships    []idp.OrganizationMembership
	listErr        error
	listCalls      int
	orgMembers     []idp.OrganizationMembership
	invitations    []idp.Invitation
	createInvErr   error
	createdOrgID   string
	updateRoleErr  error
	removedMembers []string
	updatedRoles   map[string]string
}

func (f *fakeProvider) ListUserMemberships(_ context.Context, _ string) ([]idp.OrganizationMembership, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.memberships, nil
}

func (f *fakeProvider) ListOrgMembers(_ context.Context, _ string) ([]idp.OrganizationMembership, error) {
	return f.orgMembers, nil
}

func (f *fakeProvider) CreateInvitation(_ context.Context, orgID, email, role string) (*idp.Invitation, error) {
	if f.createInvErr != nil {
		return nil, f.createInvErr
	}
	inv := idp.Invitation{
		ID:             "inv-1",
		Email:          email,
		Role:           role,
		Status:         "pending",
		OrganizationID: orgID,
	}
	f.invitations = append(f.invitations, inv)
	return &inv, nil
}

func (f *fakeProvider) CreateOrganization(_ context.Context, _ string) (string, error) {
	if f.createdOrgID == "" {
		f.createdOrgID = "org_new"
	}
	return f.createdOrgID, nil
}

func (f *fakeProvider) UpdateMembershipRole(_ context.Context, _, userID, role string) error {
	if f.updateRoleErr != nil {
		return f.updateRoleErr
	}
	if f.updatedRoles == nil {
		f.updatedRoles = map[string]string{}
	}
	f.updatedRoles[userID] = role
	return nil
}

func (f *fakeProvider) RemoveMember(_ context.Context, _, userID string) error {
	f.removedMembers = append(f.removedMembers, userID)
	return nil
}

// fakeMembersRepo — in-memory реализация ShopMembershipRepository.
type fakeMembersRepo struct {
	bySubject map[string]*model.ShopMembership
	getCalls  int
	getErr    error
}

func newFakeMembersRepo() *fakeMembersRepo {
	return &fakeMembersRepo{bySubject: map[string]*model.ShopMembership{}}
}

func (r *fakeMembersRepo) Upsert(_ context.Context, m *model.ShopMembership) error {
	cp := *m
	r.bySubject[m.Subject] = &cp
	return nil
}

func (r *fakeMembersRepo) GetBySubject(_ context.Context, subject string) (*model.ShopMembership, error) {
	r.getCalls++
	if r.getErr != nil {
		return nil, r.getErr
	}
	m, ok := r.bySubject[subject]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *fakeMembersRepo) ListByShop(_ context.Context, shopID string, _, _ int) ([]*model.ShopMembership, error) {
	var result []*model.ShopMembership
	for _, m := range r.bySubject {
		if m.ShopID == shopID {
			cp := *m
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (r *fakeMembersRepo) CountByShop(_ context.Context, shopID string) (int, error) {
	count := 0
	for _, m := range r.bySubject {
		if m.ShopID == shopID {
			count++
		}
	}
	return count, nil
}

func (r *fakeMembersRepo) CountAdmins(_ context.Context, shopID string) (int, error) {
	count := 0
	for _, m := range r.bySubject {
		if m.ShopID == shopID && m.Role == rbac.RoleAdmin {
			count++
		}
	}
	return count, nil
}

func (r *fakeMembersRepo) UpdateRole(_ context.Context, shopID, subject string, role rbac.Role) error {
	m, ok := r.bySubject[subject]
	if !ok || m.ShopID != shopID {
		return repository.ErrNotFound
	}
	m.Role = role
	return nil
}

func (r *fakeMembersRepo) Delete(_ context.Context, shopID, subject string) error {
	m, ok := r.bySubject[subject]
	if !ok || m.ShopID != shopID {
		return repository.ErrNotFound
	}
	delete(r.bySubject, subject)
	return nil
}

// fakeShopsRepo — in-memory реализация ShopRepository.
type fakeShopsRepo struct {
	byID map[string]*model.Shop
}

func newFakeShopsRepo() *fakeShopsRepo {
	return &fakeShopsRepo{byID: map[string]*model.Shop{}}
}

func (r *fakeShopsRepo) Create(_ context.Context, s *model.Shop) error {
	if _, ok := r.byID[s.ID]; ok {
		return repository.ErrConflict
	}
	cp := *s
	r.byID[s.ID] = &cp
	return nil
}

func (r *fakeShopsRepo) Upsert(_ context.Context, s *model.Shop) error {
	if _, ok := r.byID[s.ID]; ok {
		return nil
	}
	cp := *s
	r.byID[s.ID] = &cp
	return nil
}

func (r *fakeShopsRepo) GetByID(_ context.Context, id string) (*model.Shop, error) {
	s, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeShopsRepo) Update(_ context.Context, s *model.Shop) error {
	if _, ok := r.byID[s.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *s
	r.byID[s.ID] = &cp
	return nil
}

// --- Вспомогательные конструкторы ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestMembershipService(provider *fakeProvider, members *fakeMembersRepo) *MembershipService {
	cache := NewMembershipCache(100, time.Minute)
	return NewMembershipService(provider, members, cache, testLogger())
}

func memberOf(shopID, subject string, role rbac.Role) *model.ShopMembership {
	return &model.ShopMembership{
		ID:       "m-" + subject,
		Subject:  subject,
		Username: subject,
		Email:    subject + "@example.com",
		ShopID:   shopID,
		ShopName: "Магазин " + shopID,
		Role:     role,
	}
}

func providerMembership(orgID, rawRole string) idp.OrganizationMembership {
	return idp.OrganizationMembership{
		Organization: idp.Organization{ID: orgID, Name: "Магазин " + orgID},
		Role:         rawRole,
	}
}

// --- Тесты MembershipService ---

// Текущая организация сессии даёт подтверждённый ответ провайдера.
func TestResolve_ProviderTrusted(t *testing.T) {
	provider := &fakeProvider{
		memberships: []idp.OrganizationMembership{providerMembership("org_1", "org:admin")},
	}
	svc := newTestMembershipService(provider, newFakeMembersRepo())

	sess := Session{Subject: "user-1", OrgID: "org_1", OrgName: "Магазин org_1", OrgRole: "org:admin"}
	mctx, status := svc.Resolve(context.Background(), sess)

	if !mctx.HasShop || mctx.ShopID != "org_1" {
		t.Fatalf("HasShop=%v ShopID=%q, ожидали org_1", mctx.HasShop, mctx.ShopID)
	}
	if mctx.Source != membership.SourceProvider || !mctx.Verified {
		t.Errorf("Source=%q Verified=%v, ожидали provider/true", mctx.Source, mctx.Verified)
	}
	if status.NeedsSync {
		t.Errorf("NeedsSync=true для provider-trusted")
	}
}

// Сбой admin-API провайдера не отменяет активную организацию из токена:
// пользователь с действующей сессией сохраняет доступ к магазину.
func TestResolve_CurrentOrgSurvivesListError(t *testing.T) {
	provider := &fakeProvider{listErr: errors.New("connection refused")}
	svc := newTestMembershipService(provider, newFakeMembersRepo())

	sess := Session{Subject: "user-1", OrgID: "org_1", OrgName: "Магазин org_1", OrgRole: "org:member"}
	mctx, status := svc.Resolve(context.Background(), sess)

	if mctx.Loading {
		t.Fatal("Loading=true: сбой списка членств превратился в отказ в доступе")
	}
	if !mctx.HasShop || mctx.Source != membership.SourceProvider || mctx.ShopID != "org_1" {
		t.Errorf("HasShop=%v Source=%q ShopID=%q, ожидали true/provider/org_1",
			mctx.HasShop, mctx.Source, mctx.ShopID)
	}
	if mctx.Role != rbac.RoleMember {
		t.Errorf("Role=%q, ожидали member из роли в токене", mctx.Role)
	}
	if status.NeedsSync || status.Action != membership.ActionNone {
		t.Errorf("Status=%+v: доверенный ответ не требует исправления", status)
	}
}

// Ошибка провайдера без активной организации даёт неопределённость,
// а не отказ и не ремонт.
func TestResolve_ProviderError(t *testing.T) {
	provider := &fakeProvider{listErr: errors.New("connection refused")}
	members := newFakeMembersRepo()
	members.bySubject["user-1"] = memberOf("org_1", "user-1", rbac.RoleMember)
	svc := newTestMembershipService(provider, members)

	mctx, status := svc.Resolve(context.Background(), Session{Subject: "user-1"})

	if !mctx.Loading {
		t.Errorf("Loading=false при ошибке провайдера")
	}
	if status.NeedsSync || status.Action != membership.ActionNone {
		t.Errorf("Status=%+v: на ошибке нельзя рекомендовать исправление", status)
	}
}

// Членство только в БД — ответ database с расхождением.
func TestResolve_DatabaseOnly(t *testing.T) {
	provider := &fakeProvider{}
	members := newFakeMembersRepo()
	members.bySubject["user-1"] = memberOf("org_1", "user-1", rbac.RoleAdmin)
	svc := newTestMembershipService(provider, members)

	mctx, status := svc.Resolve(context.Background(), Session{Subject: "user-1"})

	if !mctx.HasShop || mctx.Source != membership.SourceDatabase {
		t.Fatalf("HasShop=%v Source=%q, ожидали database", mctx.HasShop, mctx.Source)
	}
	if mctx.Verified {
		t.Errorf("Verified=true для ответа из БД")
	}
	if !status.NeedsSync || status.Action != membership.ActionInvitation {
		t.Errorf("Status=%+v, ожидали needs_sync + invitation", status)
	}
}

// Ошибка поиска в БД трактуется как неопределённость и не кэшируется.
func TestResolve_LookupErrorNotCached(t *testing.T) {
	provider := &fakeProvider{}
	members := newFakeMembersRepo()
	members.getErr = errors.New("connection reset")
	svc := newTestMembershipService(provider, members)

	mctx, _ := svc.Resolve(context.Background(), Session{Subject: "user-1"})
	if !mctx.Loading {
		t.Errorf("Loading=false при ошибке БД")
	}

	svc.Resolve(context.Background(), Session{Subject: "user-1"})
	if members.getCalls != 2 {
		t.Errorf("getCalls=%d: ошибочный ответ не должен кэшироваться", members.getCalls)
	}
}

// Окончательные ответы БД кэшируются, включая отрицательный.
func TestResolve_LookupCached(t *testing.T) {
	provider := &fakeProvider{}
	members := newFakeMembersRepo()
	svc := newTestMembershipService(provider, members)

	sess := Session{Subject: "user-1"}
	svc.Resolve(context.Background(), sess)
	svc.Resolve(context.Background(), sess)

	if members.getCalls != 1 {
		t.Errorf("getCalls=%d, ожидали 1 (второй ответ из кэша)", members.getCalls)
	}
}

// Совпадение членства провайдера с записью БД: роль БД для авторизации,
// роль провайдера для отображения.
func TestResolve_MatchedMembershipRoles(t *testing.T) {
	provider := &fakeProvider{
		memberships: []idp.OrganizationMembership{providerMembership("org_1", "org:admin")},
	}
	members := newFakeMembersRepo()
	members.bySubject["user-1"] = memberOf("org_1", "user-1", rbac.RoleMember)
	svc := newTestMembershipService(provider, members)

	mctx, status := svc.Resolve(context.Background(), Session{Subject: "user-1"})

	if mctx.Source != membership.SourceProvider || !mctx.Verified {
		t.Fatalf("Source=%q Verified=%v, ожидали подтверждённый ответ", mctx.Source, mctx.Verified)
	}
	if mctx.Role != rbac.RoleMember {
		t.Errorf("Role=%q, для авторизации побеждает БД (member)", mctx.Role)
	}
	if mctx.DisplayRole != rbac.RoleAdmin {
		t.Errorf("DisplayRole=%q, ожидали роль провайдера (admin)", mctx.DisplayRole)
	}
	if status.NeedsSync {
		t.Errorf("NeedsSync=true для согласованных источников")
	}
}
