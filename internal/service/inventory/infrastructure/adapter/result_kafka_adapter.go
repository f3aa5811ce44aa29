package adapter

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"orderflow/internal/pkg/constants"
	"orderflow/internal/pkg/event"
	"orderflow/internal/pkg/mq"
)

// ResultKafkaAdapter 实现了 port.ResultPublisher 接口。
type ResultKafkaAdapter struct {
	publisher mq.Publisher
}

// NewResultKafkaAdapter 创建一个新的结果生产者适配器。
func NewResultKafkaAdapter(publisher mq.Publisher) *ResultKafkaAdapter {
	return &ResultKafkaAdapter{publisher: publisher}
}

// PublishResult 以订单ID为 key 发布，保证同一订单的消息落在同一个分区。
func (a *ResultKafkaAdapter) PublishResult(ctx context.Context, result *event.InventoryCheckResultEvent) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return errors.Wrap(err, "failed to marshal inventory check result")
	}
	return a.publisher.Publish(ctx, mq.Message{
		Topic: constants.TopicInventoryCheckResult,
		Key:   result.OrderID,
		Value: payload,
	})
}
