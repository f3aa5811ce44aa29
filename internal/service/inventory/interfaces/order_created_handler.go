// Package interfaces 是库存服务的驱动适配器：把 Kafka 消息翻译为应用服务调用。
package interfaces

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/event"
	"orderflow/internal/service/inventory/application"
)

// OrderCreatedHandler 消费 order-created 主题。
type OrderCreatedHandler struct {
	appSvc *application.InventoryCheckService
}

func NewOrderCreatedHandler(appSvc *application.InventoryCheckService) *OrderCreatedHandler {
	return &OrderCreatedHandler{appSvc: appSvc}
}

// Handle 满足 mq.Handler 签名。无法解析的消息体作为校验错误返回，不会被重试。
func (h *OrderCreatedHandler) Handle(ctx context.Context, msg kafka.Message) error {
	var evt event.OrderCreatedEvent
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		return errs.NewValidationError("malformed order created event: "+err.Error(), nil)
	}
	return h.appSvc.HandleOrderCreated(ctx, &evt)
}
