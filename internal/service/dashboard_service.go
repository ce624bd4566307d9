package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spindit/locker-service/internal/domain"
	"github.com/spindit/locker-service/internal/repository"
)

const (
	dashboardCacheKey = "dashboard:metrics"
	dashboardCacheTTL = 30 * time.Second
	recentRequestsMax = 50
)

// DashboardMetrics are the staff overview counters.
type DashboardMetrics struct {
	TotalUsers      int `json:"total_users"`
	NewUsersWeek    int `json:"new_users_this_week"`
	TotalRequests   int `json:"total_requests"`
	PendingRequests int `json:"pending_requests"`
	TotalLockers    int `json:"total_lockers"`
	FreeLockers     int `json:"free_lockers"`
	TotalZones      int `json:"total_zones"`
}

// DashboardService computes the staff overview.
type DashboardService struct {
	store  *repository.Store
	cache  *redis.Client
	logger *zap.Logger
	now    func() time.Time
}

// NewDashboardService creates the service. cache may be nil.
func NewDashboardService(store *repository.Store, cache *redis.Client, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		store:  store,
		cache:  cache,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Metrics returns the counters, served from Redis when a fresh copy exists.
func (s *DashboardService) Metrics(ctx context.Context) (DashboardMetrics, error) {
	if cached, ok := s.cached(ctx); ok {
		return cached, nil
	}
	metrics, err := s.count(ctx)
	if err != nil {
		return DashboardMetrics{}, err
	}
	s.remember(ctx, metrics)
	return metrics, nil
}

func (s *DashboardService) count(ctx context.Context) (DashboardMetrics, error) {
	var (
		m       DashboardMetrics
		one     = domain.PageRequest{Page: 1, PerPage: 1}
		weekAgo = s.now().AddDate(0, 0, -7)
		pending = domain.RequestStatusPending
		free    = domain.LockerStatusFree
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return total[domain.User](&m.TotalUsers)(s.store.Users.List(ctx, repository.UserFilter{PageRequest: one}))
	})
	g.Go(func() error {
		return total[domain.User](&m.NewUsersWeek)(s.store.Users.List(ctx, repository.UserFilter{PageRequest: one, CreatedFrom: &weekAgo}))
	})
	g.Go(func() error {
		return total[domain.Request](&m.TotalRequests)(s.store.Requests.List(ctx, repository.RequestFilter{PageRequest: one}))
	})
	g.Go(func() error {
		return total[domain.Request](&m.PendingRequests)(s.store.Requests.List(ctx, repository.RequestFilter{PageRequest: one, Status: &pending}))
	})
	g.Go(func() error {
		return total[domain.Locker](&m.TotalLockers)(s.store.Lockers.List(ctx, repository.LockerFilter{PageRequest: one}))
	})
	g.Go(func() error {
		return total[domain.Locker](&m.FreeLockers)(s.store.Lockers.List(ctx, repository.LockerFilter{PageRequest: one, Status: &free}))
	})
	g.Go(func() error {
		return total[domain.Zone](&m.TotalZones)(s.store.Zones.List(ctx, repository.ZoneFilter{PageRequest: one}))
	})
	if err := g.Wait(); err != nil {
		return DashboardMetrics{}, listError(err)
	}
	return m, nil
}

// total stores the page's item count in dst.
func total[T any](dst *int) func(domain.Page[T], error) error {
	return func(page domain.Page[T], err error) error {
		if err != nil {
			return err
		}
		*dst = page.TotalItems
		return nil
	}
}

func (s *DashboardService) cached(ctx context.Context) (DashboardMetrics, bool) {
	if s.cache == nil {
		return DashboardMetrics{}, false
	}
	raw, err := s.cache.Get(ctx, dashboardCacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		}
		return DashboardMetrics{}, false
	}
	var m DashboardMetrics
	if err := json.Unmarshal(raw, &m); err != nil {
		s.logger.Warn("dashboard cache entry is corrupt", zap.Error(err))
		return DashboardMetrics{}, false
	}
	return m, true
}

func (s *DashboardService) remember(ctx context.Context, m DashboardMetrics) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, dashboardCacheKey, raw, dashboardCacheTTL).Err(); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.Error(err))
	}
}

// RecentRequests returns the latest submitted requests.
func (s *DashboardService) RecentRequests(ctx context.Context, limit int) ([]domain.Request, error) {
	if limit <= 0 {
		limit = 5
	}
	if limit > recentRequestsMax {
		limit = recentRequestsMax
	}
	page, err := s.store.Requests.List(ctx, repository.RequestFilter{PageRequest: domain.PageRequest{Page: 1, PerPage: limit}})
	if err != nil {
		return nil, listError(err)
	}
	return page.Items, nil
}
