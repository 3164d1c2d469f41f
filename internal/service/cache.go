// cache.go — LRU-кэш результатов поиска членства в БД с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tcgvision/cardflux-web-sub000/internal/domain/model"
)

// Prometheus-метрики кэша.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cf_membership_cache_hits_total",
		Help: "Общее количество попаданий в LRU-кэш членств.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cf_membership_cache_misses_total",
		Help: "Общее количество промахов LRU-кэша членств.",
	})
)

// cachedLookup — закэшированный результат поиска членства по subject.
// Кэшируются только окончательные ответы БД, включая отрицательный
// («членства нет»). Ошибки поиска не кэшируются.
type cachedLookup struct {
	// Membership — найденное членство (nil при отрицательном ответе).
	Membership *model.ShopMembership
}

// MembershipCache — LRU-кэш результатов поиска членства с TTL.
// Каждый экземпляр приложения имеет собственный in-memory кэш.
type MembershipCache struct {
	cache *expirable.LRU[string, cachedLookup]
}

// NewMembershipCache создаёт LRU-кэш с указанным максимальным размером и TTL.
func NewMembershipCache(maxSize int, ttl time.Duration) *MembershipCache {
	cache := expirable.NewLRU[string, cachedLookup](maxSize, nil, ttl)
	return &MembershipCache{cache: cache}
}

// Get возвращает закэшированный результат поиска по subject.
// Возвращает (результат, true) при hit или (zero, false) при miss.
// Обновляет Prometheus-метрики hit/miss.
func (c *MembershipCache) Get(subject string) (cachedLookup, bool) {
	val, ok := c.cache.Get(subject)
	if ok {
		cacheHitsTotal.Inc()
		return val, true
	}
	cacheMissesTotal.Inc()
	return cachedLookup{}, false
}

// Set добавляет или обновляет результат поиска в кэше.
func (c *MembershipCache) Set(subject string, m *model.ShopMembership) {
	c.cache.Add(subject, cachedLookup{Membership: m})
}

// Invalidate удаляет запись из кэша. Вызывается перед каждым
// действием синхронизации, чтобы решение принималось по свежим данным.
func (c *MembershipCache) Invalidate(subject string) {
	c.cache.Remove(subject)
}
