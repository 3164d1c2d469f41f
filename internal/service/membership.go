// membership.go — сервис сверки членства.
//
// Собирает три сигнала (текущая организация из JWT, список членств
// у Identity Provider, членство в локальной БД) и сводит их через
// чистые функции membership.Resolve и membership.Evaluate.
// Ответ пересчитывается на каждый запрос и нигде не хранится;
// кэшируется только сигнал БД (MembershipCache).
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tcgvision/cardflux-web-sub000/internal/domain/membership"
	"github.com/tcgvision/cardflux-web-sub000/internal/domain/model"
	"github.com/tcgvision/cardflux-web-sub000/internal/idp"
	"github.com/tcgvision/cardflux-web-sub000/internal/repository"
)

// Session — данные аутентифицированного пользователя из JWT.
type Session struct {
	// Subject — идентификатор пользователя у провайдера (sub)
	Subject string
	// Username — имя пользователя
	Username string
	// Email — адрес электронной почты
	Email string
	// OrgID — текущая организация сессии ("" если не выбрана)
	OrgID string
	// OrgName — название текущей организации
	OrgName string
	// OrgRole — роль в текущей организации в формате провайдера ("org:admin")
	OrgRole string
}

// membershipLister — возможности Identity Provider, нужные для сверки.
type membershipLister interface {
	ListUserMemberships(ctx context.Context, userID string) ([]idp.OrganizationMembership, error)
}

// MembershipService — сервис сверки членства.
type MembershipService struct {
	provider membershipLister
	members  repository.ShopMembershipRepository
	cache    *MembershipCache
	logger   *slog.Logger
}

// NewMembershipService создаёт сервис сверки членства.
func NewMembershipService(
	provider membershipLister,
	members repository.ShopMembershipRepository,
	cache *MembershipCache,
	logger *slog.Logger,
) *MembershipService {
	return &MembershipService{
		provider: provider,
		members:  members,
		cache:    cache,
		logger:   logger.With(slog.String("component", "membership_service")),
	}
}

// Resolve собирает сигналы один раз и возвращает и ответ о членстве,
// и классификацию расхождения. Ошибок не возвращает: сбой любого
// источника выражается неопределённым сигналом, и вердикт остаётся
// за правилами Resolve/Evaluate.
func (s *MembershipService) Resolve(ctx context.Context, sess Session) (membership.Context, membership.Status) {
	provider, lookup := s.signals(ctx, sess)
	mctx := membership.Resolve(provider, lookup)
	status := membership.Evaluate(provider, lookup)

	if status.NeedsSync {
		s.logger.Info("Обнаружено расхождение членства",
			slog.String("subject", sess.Subject),
			slog.String("case", status.Case),
			slog.Bool("can_auto_sync", status.CanAutoSync),
		)
	}
	return mctx, status
}

// signals собирает пару сигналов для пользователя сессии.
func (s *MembershipService) signals(ctx context.Context, sess Session) (membership.ProviderSignal, membership.LookupSignal) {
	provider := membership.ProviderSignal{ListLoaded: true}
	if sess.OrgID != "" {
		provider.CurrentOrg = &membership.Org{ID: sess.OrgID, Name: sess.OrgName}
		provider.CurrentRawRole = sess.OrgRole
	}

	memberships, err := s.provider.ListUserMemberships(ctx, sess.Subject)
	if err != nil {
		// Неопределён только список членств: текущая организация
		// из JWT подписана провайдером и остаётся валидной.
		s.logger.Warn("Не удалось получить членства у провайдера",
			slog.String("subject", sess.Subject),
			slog.String("error", err.Error()),
		)
		provider.ListLoaded = false
	} else {
		for _, m := range memberships {
			provider.Memberships = append(provider.Memberships, membership.ProviderMembership{
				Org:     membership.Org{ID: m.Organization.ID, Name: m.Organization.Name},
				RawRole: m.Role,
			})
		}
	}

	return provider, s.lookup(ctx, sess.Subject)
}

// lookup возвращает сигнал БД, по возможности из кэша.
// Кэшируются только окончательные ответы; ошибка поиска даёт
// неопределённый сигнал и в кэш не попадает.
func (s *MembershipService) lookup(ctx context.Context, subject string) membership.LookupSignal {
	if cached, ok := s.cache.Get(subject); ok {
		return lookupFromMembership(cached.Membership)
	}

	m, err := s.members.GetBySubject(ctx, subject)
	switch {
	case err == nil:
		s.cache.Set(subject, m)
		return lookupFromMembership(m)
	case errors.Is(err, repository.ErrNotFound):
		// Отрицательный ответ тоже окончательный и тоже кэшируется.
		s.cache.Set(subject, nil)
		return membership.LookupSignal{Loaded: true}
	default:
		s.logger.Error("Ошибка поиска членства в БД",
			slog.String("subject", subject),
			slog.String("error", err.Error()),
		)
		return membership.LookupSignal{Loaded: true, Err: err}
	}
}

// lookupFromMembership преобразует запись БД в сигнал поиска.
func lookupFromMembership(m *model.ShopMembership) membership.LookupSignal {
	if m == nil {
		return membership.LookupSignal{Loaded: true}
	}
	return membership.LookupSignal{
		Loaded:  true,
		HasShop: true,
		Shop:    &membership.Org{ID: m.ShopID, Name: m.ShopName},
		Role:    m.Role,
	}
}
