// Package domain 包含库存可用性判断的领域模型：按品类分派的策略表与共享库存账本。
package domain

import (
	"strings"
	"sync"

	"github.com/pkg/errors"

	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/event"
)

// Strategy 判断某一品类的单个订单行能否满足。
type Strategy interface {
	IsAvailable(item event.OrderItem) bool
}

// StrategyFunc 让普通函数实现 Strategy。
type StrategyFunc func(item event.OrderItem) bool

func (f StrategyFunc) IsAvailable(item event.OrderItem) bool { return f(item) }

// ValidShape 订单行的基本形状校验：商品ID非空，数量为正。
func ValidShape(item event.OrderItem) bool {
	return strings.TrimSpace(item.ProductID) != "" && item.Quantity > 0
}

// Registry 品类到策略的映射，在启动时注册，之后只读。
type Registry struct {
	mu         sync.RWMutex
	strategies map[event.Category]Strategy
}

func NewRegistry() *Registry {
	return &Registry{strategies: make(map[event.Category]Strategy)}
}

// Register 为品类注册策略，重复注册会覆盖。
func (r *Registry) Register(category event.Category, s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[category] = s
}

// Resolve 返回品类对应的策略，未注册时返回 errs.ErrUnknownCategory。
func (r *Registry) Resolve(category event.Category) (Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strategies[category]
	if !ok {
		return nil, errors.Wrapf(errs.ErrUnknownCategory, "no strategy registered for category %q", category)
	}
	return s, nil
}

// Len 返回已注册的策略数量。
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.strategies)
}
