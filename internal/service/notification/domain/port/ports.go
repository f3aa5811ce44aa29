package port

import (
	"context"

	"orderflow/internal/service/notification/domain"
)

// OrderReader 按订单ID读取订单快照，与订单服务共用同一个 KV 存储。
type OrderReader interface {
	GetOrder(ctx context.Context, orderID string) (*domain.OrderSnapshot, error)
}

// Sink 是一个通知渠道（控制台、WebSocket 推送等）。
type Sink interface {
	Deliver(ctx context.Context, n domain.Notification) error
}
