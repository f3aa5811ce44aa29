package domain

import (
	"sync"
	"time"

	"orderflow/internal/pkg/event"
)

// DigitalStrategy 数字商品没有库存概念，形状合法即可用。
func DigitalStrategy() Strategy {
	return StrategyFunc(ValidShape)
}

// PerishableStrategy 生鲜商品：存在已知保质期且晚于当前时间才可用。
type PerishableStrategy struct {
	mu          sync.RWMutex
	expirations map[string]time.Time
	now         func() time.Time
}

// NewPerishableStrategy now 为空时使用 time.Now。
func NewPerishableStrategy(expirations map[string]time.Time, now func() time.Time) *PerishableStrategy {
	if now == nil {
		now = time.Now
	}
	copied := make(map[string]time.Time, len(expirations))
	for k, v := range expirations {
		copied[k] = v
	}
	return &PerishableStrategy{expirations: copied, now: now}
}

func (s *PerishableStrategy) IsAvailable(item event.OrderItem) bool {
	if !ValidShape(item) {
		return false
	}
	s.mu.RLock()
	expiresAt, ok := s.expirations[item.ProductID]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	return expiresAt.After(s.now())
}

// SetExpiration 设置或更新商品的保质期。
func (s *PerishableStrategy) SetExpiration(productID string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expirations[productID] = expiresAt
}

// StandardStrategy 普通商品：按库存账本判断，可用时扣减库存。
// 扣减是副作用，重复调用会重复扣减。
type StandardStrategy struct {
	ledger *StockLedger
}

func NewStandardStrategy(ledger *StockLedger) *StandardStrategy {
	return &StandardStrategy{ledger: ledger}
}

func (s *StandardStrategy) IsAvailable(item event.OrderItem) bool {
	if !ValidShape(item) {
		return false
	}
	return s.ledger.TryReserve(item.ProductID, item.Quantity)
}

// StockLedger 进程内共享的库存表，所有 worker 通过同一个实例访问。
type StockLedger struct {
	mu    sync.Mutex
	stock map[string]int
}

func NewStockLedger(initial map[string]int) *StockLedger {
	stock := make(map[string]int, len(initial))
	for k, v := range initial {
		stock[k] = v
	}
	return &StockLedger{stock: stock}
}

// TryReserve 库存充足时扣减并返回 true；库存不足或商品未知时不做任何修改。
func (l *StockLedger) TryReserve(productID string, qty int) bool {
	if qty <= 0 {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	current, ok := l.stock[productID]
	if !ok || current < qty {
		return false
	}
	l.stock[productID] = current - qty
	return true
}

// Stock 返回当前库存。
func (l *StockLedger) Stock(productID string) (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.stock[productID]
	return v, ok
}

// Restock 增加库存，商品不存在时新建。
func (l *StockLedger) Restock(productID string, qty int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stock[productID] += qty
}

// SeedStock 初始库存数据
func SeedStock() map[string]int {
	return map[string]int{
		"P1001": 100,
		"P1002": 0,
		"P1003": 50,
		"P1004": 25,
		"P1005": 5,
		"P1006": 0,
	}
}

// SeedExpirations 以 now 为基准的生鲜保质期数据，P1002 和 P1005 已过期。
func SeedExpirations(now time.Time) map[string]time.Time {
	day := 24 * time.Hour
	return map[string]time.Time{
		"P1001": now.Add(30 * day),
		"P1002": now.Add(-1 * day),
		"P1003": now.Add(7 * day),
		"P1004": now.Add(15 * day),
		"P1005": now.Add(-5 * day),
	}
}

// NewDefaultRegistry 注册全部三种品类的策略。
func NewDefaultRegistry(ledger *StockLedger, perishable *PerishableStrategy) *Registry {
	r := NewRegistry()
	r.Register(event.CategoryDigital, DigitalStrategy())
	r.Register(event.CategoryPerishable, perishable)
	r.Register(event.CategoryStandard, NewStandardStrategy(ledger))
	return r
}
