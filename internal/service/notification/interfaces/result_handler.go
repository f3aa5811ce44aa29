// Package interfaces 是通知服务的驱动适配器：Kafka 结果消费者和 WebSocket 推送入口。
package interfaces

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/event"
	"orderflow/internal/service/notification/application"
)

// ResultHandler 消费 inventory-check-result 主题。
type ResultHandler struct {
	appSvc *application.NotificationService
}

func NewResultHandler(appSvc *application.NotificationService) *ResultHandler {
	return &ResultHandler{appSvc: appSvc}
}

func (h *ResultHandler) Handle(ctx context.Context, msg kafka.Message) error {
	var result event.InventoryCheckResultEvent
	if err := json.Unmarshal(msg.Value, &result); err != nil {
		return errs.NewValidationError("malformed inventory check result: "+err.Error(), nil)
	}
	_, err := h.appSvc.HandleResult(ctx, &result)
	return err
}
