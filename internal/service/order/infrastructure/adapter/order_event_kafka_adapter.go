package adapter

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"orderflow/internal/pkg/constants"
	"orderflow/internal/pkg/event"
	"orderflow/internal/pkg/mq"
)

// OrderEventKafkaAdapter 实现了 port.OrderEventPublisher 接口。
// publisher 通常是 mq.DeadLetterPublisher，发送失败的事件会被转投到 order-created-dlq。
type OrderEventKafkaAdapter struct {
	publisher mq.Publisher
}

// NewOrderEventKafkaAdapter 创建一个新的订单事件生产者适配器。
func NewOrderEventKafkaAdapter(publisher mq.Publisher) *OrderEventKafkaAdapter {
	return &OrderEventKafkaAdapter{publisher: publisher}
}

// PublishOrderCreated 以订单ID作为消息 key，保证同一订单的事件有序。
func (a *OrderEventKafkaAdapter) PublishOrderCreated(ctx context.Context, evt *event.OrderCreatedEvent) error {
	eventBytes, err := json.Marshal(evt)
	if err != nil {
		return errors.Wrap(err, "failed to marshal order created event")
	}
	// 链路上下文由 mq.KafkaPublisher 自动注入
	return a.publisher.Publish(ctx, mq.Message{
		Topic: constants.TopicOrderCreated,
		Key:   evt.OrderID,
		Value: eventBytes,
	})
}
