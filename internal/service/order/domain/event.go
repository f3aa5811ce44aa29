// internal/service/order/domain/event.go
package domain

import (
	"time"

	"orderflow/internal/pkg/event"
)

// ToCreatedEvent 生成订单提交事件，每个新建订单发布一次。
func (o *Order) ToCreatedEvent(eventID string, now time.Time) *event.OrderCreatedEvent {
	items := make([]event.OrderItem, len(o.Items))
	copy(items, o.Items)
	return &event.OrderCreatedEvent{
		EventID:         eventID,
		OrderID:         o.ID,
		CustomerName:    o.CustomerName,
		Items:           items,
		RequestID:       o.RequestID,
		RequestDateTime: o.RequestDateTime,
		EventDateTime:   now,
	}
}
