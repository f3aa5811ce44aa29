package port

import (
	"context"

	"orderflow/internal/pkg/event"
)

// ResultPublisher 是库存检查结果的出站端口。
type ResultPublisher interface {
	// PublishResult 发布一个库存检查结果事件，key 为订单ID。
	PublishResult(ctx context.Context, result *event.InventoryCheckResultEvent) error
}

// ResultLedger 记录每个订单已经计算出的检查结果。
// 提交事件被重复投递时，直接重放记录的结果，避免重复扣减库存。
type ResultLedger interface {
	// Lookup 返回订单已记录的结果，没有记录时 found 为 false。
	Lookup(ctx context.Context, orderID string) (result *event.InventoryCheckResultEvent, found bool, err error)

	// Claim 原子地占有订单的检查权，只有返回 true 的一方可以执行检查。
	// 占有在 ttl 后失效，持有者中途退出时订单可以被重新检查。
	Claim(ctx context.Context, orderID string) (bool, error)

	// Remember 记录订单的检查结果。
	Remember(ctx context.Context, result *event.InventoryCheckResultEvent) error
}
