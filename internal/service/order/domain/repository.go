// internal/service/order/domain/repository.go
package domain

import "context"

// Source 标识一次读取由哪一层存储提供。
type Source string

const (
	SourcePrimary Source = "Redis"
	SourceCache   Source = "Local Cache"
)

// StoreStatus 是订单存储的健康与缓存状态快照。
type StoreStatus struct {
	RedisAvailable  bool  `json:"redisAvailable"`
	FallbackMode    bool  `json:"fallbackMode"`
	LocalCacheSize  int   `json:"localCacheSize"`
	MaxCacheSize    int   `json:"maxCacheSize"`
	CacheTTLMinutes int64 `json:"cacheTtlMinutes"`
}

// OrderRepository 定义了订单聚合的持久化接口。
// 它位于领域层，但由基础设施层实现。主存储故障不会暴露给调用方。
type OrderRepository interface {
	// Put 写入订单快照，只在 id 为空时返回错误。
	Put(ctx context.Context, order *Order) (*Order, error)

	// Get 根据 ID 查找订单，找不到时返回 ErrOrderNotFound。
	Get(ctx context.Context, id string) (*Order, error)

	// GetWithSource 与 Get 相同，同时返回数据来源。
	GetWithSource(ctx context.Context, id string) (*Order, Source, error)

	// Status 返回存储的健康状态。
	Status() StoreStatus
}
