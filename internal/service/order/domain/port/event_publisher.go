package port

import (
	"context"

	"orderflow/internal/pkg/event"
)

// OrderEventPublisher 是订单提交事件的出站端口。
// 应用层通过此接口把订单交给库存服务检查。
type OrderEventPublisher interface {
	PublishOrderCreated(ctx context.Context, evt *event.OrderCreatedEvent) error
}
