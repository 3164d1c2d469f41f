// sync.go — сервис действий по синхронизации членства.
//
// Refresh — безопасный авто-ремонт: членство есть у провайдера,
// но отстала локальная БД. RequestInvitation — обратный случай:
// членство есть только в БД, провайдерское членство приложение
// создать не может, нужен явный акцепт приглашения пользователем.
// FixLinking объединяет оба сценария в одно действие.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tcgvision/cardflux-web-sub000/internal/domain/membership"
	"github.com/tcgvision/cardflux-web-sub000/internal/domain/model"
	"github.com/tcgvision/cardflux-web-sub000/internal/domain/rbac"
	"github.com/tcgvision/cardflux-web-sub000/internal/idp"
	"github.com/tcgvision/cardflux-web-sub000/internal/repository"
)

// invitationCreator — возможности Identity Provider, нужные для приглашений.
type invitationCreator interface {
	CreateInvitation(ctx context.Context, orgID, email, role string) (*idp.Invitation, error)
}

// SyncService — сервис действий по синхронизации членства.
type SyncService struct {
	memberSvc *MembershipService
	provider  invitationCreator
	shops     repository.ShopRepository
	members   repository.ShopMembershipRepository
	cache     *MembershipCache
	logger    *slog.Logger
}

// NewSyncService создаёт сервис синхронизации.
func NewSyncService(
	memberSvc *MembershipService,
	provider invitationCreator,
	shops repository.ShopRepository,
	members repository.ShopMembershipRepository,
	cache *MembershipCache,
	logger *slog.Logger,
) *SyncService {
	return &SyncService{
		memberSvc: memberSvc,
		provider:  provider,
		shops:     shops,
		members:   members,
		cache:     cache,
		logger:    logger.With(slog.String("component", "sync_service")),
	}
}

// Refresh пересобирает сигналы по свежим данным и выполняет авто-ремонт,
// если классификация его разрешает (CanAutoSync). Для остальных случаев
// возвращает исход без побочных эффектов.
func (s *SyncService) Refresh(ctx context.Context, sess Session) (*model.SyncResult, error) {
	// Кэш сбрасывается до сборки сигналов: решение о ремонте
	// принимается только по свежему ответу БД.
	s.cache.Invalidate(sess.Subject)

	provider, lookup := s.memberSvc.signals(ctx, sess)
	status := membership.Evaluate(provider, lookup)

	result := &model.SyncResult{Outcome: model.SyncOutcomeNoop, SyncedAt: time.Now().UTC()}
	if lookup.HasShop && lookup.Shop != nil {
		result.ShopID = lookup.Shop.ID
	}

	switch {
	case status.CanAutoSync:
		target := pickMembership(provider, sess.OrgID)
		if target == nil {
			return nil, fmt.Errorf("авто-ремонт: членства провайдера не найдены")
		}
		if err := s.adoptMembership(ctx, sess, target); err != nil {
			return nil, err
		}
		result.Outcome = model.SyncOutcomeSynced
		result.ShopID = target.Org.ID

		s.logger.Info("Членство восстановлено из данных провайдера",
			slog.String("subject", sess.Subject),
			slog.String("shop_id", target.Org.ID),
		)

	case status.Action == membership.ActionInvitation:
		result.Outcome = model.SyncOutcomeNeedsInvitation
	}

	return result, nil
}

// RequestInvitation создаёт приглашение в организацию провайдера
// для случая orphaned-database: членство есть в БД, а у провайдера — нет.
func (s *SyncService) RequestInvitation(ctx context.Context, sess Session) (*idp.Invitation, error) {
	m, err := s.members.GetBySubject(ctx, sess.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoMembership
		}
		return nil, fmt.Errorf("поиск членства: %w", err)
	}

	email := sess.Email
	if email == "" {
		email = m.Email
	}
	if email == "" {
		return nil, fmt.Errorf("%w: адрес электронной почты неизвестен", ErrValidation)
	}

	inv, err := s.provider.CreateInvitation(ctx, m.ShopID, email, rbac.ProviderRoleString(m.Role))
	if err != nil {
		return nil, fmt.Errorf("создание приглашения: %w", err)
	}

	s.logger.Info("Приглашение создано",
		slog.String("subject", sess.Subject),
		slog.String("shop_id", m.ShopID),
		slog.String("invitation_id", inv.ID),
	)
	return inv, nil
}

// FixLinking — объединённый ремонт связки: сначала пробует авто-ремонт,
// при исходе needs_invitation сразу создаёт приглашение.
func (s *SyncService) FixLinking(ctx context.Context, sess Session) (*model.SyncResult, error) {
	result, err := s.Refresh(ctx, sess)
	if err != nil {
		return nil, err
	}

	if result.Outcome == model.SyncOutcomeNeedsInvitation {
		if _, err := s.RequestInvitation(ctx, sess); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// adoptMembership зеркалирует членство провайдера в локальную БД:
// магазин (без перезаписи существующего) и запись членства.
func (s *SyncService) adoptMembership(ctx context.Context, sess Session, target *membership.ProviderMembership) error {
	shop := &model.Shop{
		ID:       target.Org.ID,
		Name:     target.Org.Name,
		Currency: "USD",
	}
	if err := s.shops.Upsert(ctx, shop); err != nil {
		return fmt.Errorf("сохранение магазина: %w", err)
	}

	m := &model.ShopMembership{
		ID:       uuid.New().String(),
		Subject:  sess.Subject,
		Username: sess.Username,
		Email:    sess.Email,
		ShopID:   target.Org.ID,
		ShopName: target.Org.Name,
		Role:     rbac.NormalizeOrDefault(target.RawRole),
	}
	if err := s.members.Upsert(ctx, m); err != nil {
		return fmt.Errorf("сохранение членства: %w", err)
	}

	s.cache.Invalidate(sess.Subject)
	return nil
}

// pickMembership выбирает членство провайдера для авто-ремонта:
// приоритет у текущей организации сессии, иначе — первое в списке.
func pickMembership(provider membership.ProviderSignal, currentOrgID string) *membership.ProviderMembership {
	if len(provider.Memberships) == 0 {
		return nil
	}
	if currentOrgID != "" {
		for i := range provider.Memberships {
			if provider.Memberships[i].Org.ID == currentOrgID {
				return &provider.Memberships[i]
			}
		}
	}
	return &provider.Memberships[0]
}
