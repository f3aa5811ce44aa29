// Package store 实现了带本地缓存降级的订单存储：主存储（Redis）不可用时读写都落到进程内缓存，
// 后台探测恢复后把缓存中未过期的订单重新写回主存储。
package store

import (
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/logger"
	"orderflow/internal/service/order/domain"
)

// Primary 主存储的最小接口，*redis.Client 满足该接口。
type Primary interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// Options 存储参数，零值字段使用默认值。
type Options struct {
	KeyPrefix     string
	PrimaryTTL    time.Duration
	OpTimeout     time.Duration
	CacheTTL      time.Duration
	CacheMaxSize  int
	ProbeInterval time.Duration
	ProbeTimeout  time.Duration
	ProbeKey      string
	Now           func() time.Time
}

func (o *Options) applyDefaults() {
	if o.KeyPrefix == "" {
		o.KeyPrefix = "order:"
	}
	if o.PrimaryTTL <= 0 {
		o.PrimaryTTL = 7 * 24 * time.Hour
	}
	if o.OpTimeout <= 0 {
		o.OpTimeout = 5 * time.Second
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = 30 * time.Minute
	}
	if o.CacheMaxSize <= 0 {
		o.CacheMaxSize = 1000
	}
	if o.ProbeInterval <= 0 {
		o.ProbeInterval = 30 * time.Second
	}
	if o.ProbeTimeout <= 0 {
		o.ProbeTimeout = 2 * time.Second
	}
	if o.ProbeKey == "" {
		o.ProbeKey = "health-check"
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// ResilientOrderStore 实现了 domain.OrderRepository。
// 健康标志只会被显式的失败检测置为 false，被显式的成功探测置为 true。
type ResilientOrderStore struct {
	primary Primary
	opts    Options
	cache   *orderCache
	healthy atomic.Bool
	// probing 保证探测和重新同步不会并发执行
	probing atomic.Bool
}

func NewResilientOrderStore(primary Primary, opts Options) *ResilientOrderStore {
	opts.applyDefaults()
	s := &ResilientOrderStore{
		primary: primary,
		opts:    opts,
		cache:   newOrderCache(opts.CacheTTL, opts.CacheMaxSize, opts.Now),
	}
	s.healthy.Store(true)
	primaryHealthy.Set(1)
	return s
}

// Put 先无条件写缓存，健康时再限时写主存储；主存储失败只会切换到降级模式。
func (s *ResilientOrderStore) Put(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if order == nil || strings.TrimSpace(order.ID) == "" {
		return nil, errs.NewValidationError("order id must not be empty", nil)
	}
	s.cache.put(order)

	if !s.healthy.Load() {
		fallbackTotal.WithLabelValues("put").Inc()
		logger.Ctx(ctx).Debug().Str("order_id", order.ID).Msg("primary store unavailable, order kept in local cache")
		return order, nil
	}
	if err := s.writePrimary(ctx, order); err != nil {
		s.markUnhealthy(ctx, "put", err)
		fallbackTotal.WithLabelValues("put").Inc()
	}
	return order, nil
}

func (s *ResilientOrderStore) Get(ctx context.Context, id string) (*domain.Order, error) {
	order, _, err := s.GetWithSource(ctx, id)
	return order, err
}

// GetWithSource 健康时优先读主存储，未命中或失败时回退到缓存。
func (s *ResilientOrderStore) GetWithSource(ctx context.Context, id string) (*domain.Order, domain.Source, error) {
	if strings.TrimSpace(id) == "" {
		return nil, "", errs.NewValidationError("order id must not be empty", nil)
	}

	if s.healthy.Load() {
		data, err := s.readPrimary(ctx, id)
		switch {
		case err == nil:
			var order domain.Order
			if decodeErr := json.Unmarshal(data, &order); decodeErr != nil {
				logger.Ctx(ctx).Warn().Err(decodeErr).Str("order_id", id).Msg("unreadable order snapshot in primary store")
				break
			}
			if latest := s.cache.refresh(&order); latest != &order {
				// 主存储中的快照落后于缓存，说明降级期间的写入还没有同步回去
				return latest, domain.SourceCache, nil
			}
			return &order, domain.SourcePrimary, nil
		case errors.Is(err, errs.ErrNotFound):
			// 主存储未命中不代表主存储故障
		default:
			s.markUnhealthy(ctx, "get", err)
		}
	}

	fallbackTotal.WithLabelValues("get").Inc()
	if order, ok := s.cache.get(id); ok {
		return order, domain.SourceCache, nil
	}
	return nil, "", errors.Wrapf(domain.ErrOrderNotFound, "order %s", id)
}

// Probe 仅在降级模式下执行：限时读一次探测 key，成功则重新同步缓存并恢复健康。
// 同步期间仍处于降级模式，读写都走缓存；恢复健康后再补写同步期间变化过的条目。
// 正在执行的探测未结束时，新的探测直接跳过。返回探测后的健康状态。
func (s *ResilientOrderStore) Probe(ctx context.Context) bool {
	if s.healthy.Load() {
		return true
	}
	if !s.probing.CompareAndSwap(false, true) {
		return s.healthy.Load()
	}
	defer s.probing.Store(false)

	probeCtx, cancel := context.WithTimeout(ctx, s.opts.ProbeTimeout)
	_, err := s.primary.Get(probeCtx, s.opts.ProbeKey)
	cancel()
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		logger.Ctx(ctx).Debug().Err(err).Msg("primary store still unreachable")
		return false
	}

	logger.Ctx(ctx).Info().Msg("primary store reachable again, resyncing local cache")
	orders, seq := s.cache.changedSince(0)
	s.resync(ctx, orders)

	s.healthy.Store(true)
	primaryHealthy.Set(1)
	logger.Ctx(ctx).Info().Msg("✅ leaving fallback mode")

	// 恢复健康之前写入缓存的条目只存在于缓存中，之后的 Put 会直接写主存储
	if changed, _ := s.cache.changedSince(seq); len(changed) > 0 {
		s.resync(ctx, changed)
	}
	return true
}

// Resync 把所有未过期的缓存条目重新写回主存储，返回成功条数。单条失败只记录日志。
func (s *ResilientOrderStore) Resync(ctx context.Context) int {
	if !s.probing.CompareAndSwap(false, true) {
		return 0
	}
	defer s.probing.Store(false)
	return s.resync(ctx, s.cache.live())
}

func (s *ResilientOrderStore) resync(ctx context.Context, orders []*domain.Order) int {
	synced := 0
	for _, order := range orders {
		if err := s.writePrimary(ctx, order); err != nil {
			resyncTotal.WithLabelValues("failure").Inc()
			logger.Ctx(ctx).Warn().Err(err).Str("order_id", order.ID).Msg("failed to resync order to primary store")
			continue
		}
		resyncTotal.WithLabelValues("success").Inc()
		synced++
	}
	logger.Ctx(ctx).Info().Int("synced", synced).Int("total", len(orders)).Msg("local cache resynced to primary store")
	return synced
}

// Run 周期性探测主存储，阻塞直到 ctx 取消。
func (s *ResilientOrderStore) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.ProbeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if !s.healthy.Load() {
				s.Probe(ctx)
			}
		}
	}
}

// Healthy 返回主存储当前是否被认为可用。
func (s *ResilientOrderStore) Healthy() bool {
	return s.healthy.Load()
}

func (s *ResilientOrderStore) Status() domain.StoreStatus {
	healthy := s.healthy.Load()
	return domain.StoreStatus{
		RedisAvailable:  healthy,
		FallbackMode:    !healthy,
		LocalCacheSize:  s.cache.size(),
		MaxCacheSize:    s.opts.CacheMaxSize,
		CacheTTLMinutes: int64(s.opts.CacheTTL / time.Minute),
	}
}

func (s *ResilientOrderStore) markUnhealthy(ctx context.Context, op string, cause error) {
	if s.healthy.CompareAndSwap(true, false) {
		primaryHealthy.Set(0)
		logger.Ctx(ctx).Warn().Err(cause).Str("op", op).Msg("🚨 primary store failure, switching to local cache")
	}
}

func (s *ResilientOrderStore) writePrimary(ctx context.Context, order *domain.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return errors.Wrapf(err, "marshal order %s", order.ID)
	}
	opCtx, cancel := context.WithTimeout(ctx, s.opts.OpTimeout)
	defer cancel()
	return s.primary.Set(opCtx, s.opts.KeyPrefix+order.ID, data, s.opts.PrimaryTTL)
}

func (s *ResilientOrderStore) readPrimary(ctx context.Context, id string) ([]byte, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.opts.OpTimeout)
	defer cancel()
	return s.primary.Get(opCtx, s.opts.KeyPrefix+id)
}

var _ domain.OrderRepository = (*ResilientOrderStore)(nil)
