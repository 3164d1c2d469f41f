// members.go — сервис администрирования участников магазина.
//
// Порядок обновления «провайдер — первым»: роль сначала меняется
// у Identity Provider, затем зеркалируется в БД. Если упало зеркало,
// следующая синхронизация доведёт БД до состояния провайдера.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tcgvision/cardflux-web-sub000/internal/domain/model"
	"github.com/tcgvision/cardflux-web-sub000/internal/domain/rbac"
	"github.com/tcgvision/cardflux-web-sub000/internal/idp"
	"github.com/tcgvision/cardflux-web-sub000/internal/repository"
)

// memberAdminProvider — возможности Identity Provider для администрирования участников.
type memberAdminProvider interface {
	ListOrgMembers(ctx context.Context, orgID string) ([]idp.OrganizationMembership, error)
	UpdateMembershipRole(ctx context.Context, orgID, userID, role string) error
	RemoveMember(ctx context.Context, orgID, userID string) error
}

// MembersService — сервис администрирования участников магазина.
type MembersService struct {
	provider memberAdminProvider
	members  repository.ShopMembershipRepository
	cache    *MembershipCache
	logger   *slog.Logger
}

// NewMembersService создаёт сервис администрирования участников.
func NewMembersService(
	provider memberAdminProvider,
	members repository.ShopMembershipRepository,
	cache *MembershipCache,
	logger *slog.Logger,
) *MembersService {
	return &MembersService{
		provider: provider,
		members:  members,
		cache:    cache,
		logger:   logger.With(slog.String("component", "members_service")),
	}
}

// MemberView — участник магазина с данными обоих источников.
type MemberView struct {
	// Membership — запись из БД.
	Membership *model.ShopMembership
	// OnProvider — есть ли членство у Identity Provider.
	OnProvider bool
	// ProviderRole — роль у провайдера в его формате ("" если OnProvider == false).
	ProviderRole string
}

// List возвращает участников магазина из БД с общим количеством,
// помечая каждого данными провайдера. Недоступность провайдера
// список не ломает: участники возвращаются без пометок.
func (s *MembersService) List(ctx context.Context, shopID string, limit, offset int) ([]*MemberView, int, error) {
	list, err := s.members.ListByShop(ctx, shopID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("список участников: %w", err)
	}
	total, err := s.members.CountByShop(ctx, shopID)
	if err != nil {
		return nil, 0, fmt.Errorf("подсчёт участников: %w", err)
	}

	providerRoles := map[string]string{}
	provMembers, err := s.provider.ListOrgMembers(ctx, shopID)
	if err != nil {
		s.logger.Warn("Не удалось получить участников у провайдера",
			slog.String("shop_id", shopID),
			slog.String("error", err.Error()),
		)
	} else {
		for _, pm := range provMembers {
			providerRoles[pm.UserID] = pm.Role
		}
	}

	views := make([]*MemberView, 0, len(list))
	for _, m := range list {
		role, ok := providerRoles[m.Subject]
		views = append(views, &MemberView{
			Membership:   m,
			OnProvider:   ok,
			ProviderRole: role,
		})
	}
	return views, total, nil
}

// UpdateRole меняет роль участника: сначала у провайдера, затем в БД.
// Понижение последнего администратора запрещено.
func (s *MembersService) UpdateRole(ctx context.Context, shopID, subject string, role rbac.Role) error {
	if !rbac.IsValid(role) {
		return ErrInvalidRole
	}

	target, err := s.memberOfShop(ctx, shopID, subject)
	if err != nil {
		return err
	}

	if target.Role == rbac.RoleAdmin && role != rbac.RoleAdmin {
		if err := s.ensureNotLastAdmin(ctx, shopID); err != nil {
			return err
		}
	}

	if err := s.provider.UpdateMembershipRole(ctx, shopID, subject, rbac.ProviderRoleString(role)); err != nil {
		return fmt.Errorf("смена роли у провайдера: %w", err)
	}

	if err := s.members.UpdateRole(ctx, shopID, subject, role); err != nil {
		// Провайдер уже обновлён; БД догонит при следующей синхронизации.
		s.logger.Error("Роль обновлена у провайдера, но не в БД",
			slog.String("subject", subject),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("смена роли в БД: %w", err)
	}

	s.cache.Invalidate(subject)
	s.logger.Info("Роль участника изменена",
		slog.String("shop_id", shopID),
		slog.String("subject", subject),
		slog.String("role", string(role)),
	)
	return nil
}

// Remove удаляет участника: сначала у провайдера, затем из БД.
// Удаление последнего администратора запрещено.
func (s *MembersService) Remove(ctx context.Context, shopID, subject string) error {
	target, err := s.memberOfShop(ctx, shopID, subject)
	if err != nil {
		return err
	}

	if target.Role == rbac.RoleAdmin {
		if err := s.ensureNotLastAdmin(ctx, shopID); err != nil {
			return err
		}
	}

	if err := s.provider.RemoveMember(ctx, shopID, subject); err != nil && !errors.Is(err, idp.ErrNotFound) {
		return fmt.Errorf("удаление участника у провайдера: %w", err)
	}

	if err := s.members.Delete(ctx, shopID, subject); err != nil {
		return fmt.Errorf("удаление участника из БД: %w", err)
	}

	s.cache.Invalidate(subject)
	s.logger.Info("Участник удалён",
		slog.String("shop_id", shopID),
		slog.String("subject", subject),
	)
	return nil
}

// memberOfShop возвращает членство subject, проверяя принадлежность магазину.
func (s *MembersService) memberOfShop(ctx context.Context, shopID, subject string) (*model.ShopMembership, error) {
	m, err := s.members.GetBySubject(ctx, subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("поиск участника: %w", err)
	}
	if m.ShopID != shopID {
		return nil, ErrNotFound
	}
	return m, nil
}

// ensureNotLastAdmin возвращает ErrLastAdmin, если в магазине один администратор.
func (s *MembersService) ensureNotLastAdmin(ctx context.Context, shopID string) error {
	admins, err := s.members.CountAdmins(ctx, shopID)
	if err != nil {
		return fmt.Errorf("подсчёт администраторов: %w", err)
	}
	if admins <= 1 {
		return ErrLastAdmin
	}
	return nil
}
