package interfaces

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/event"
	"orderflow/internal/service/order/application"
)

// InventoryResultHandler 是一个驱动适配器，它消费库存检查结果并驱动应用服务。
type InventoryResultHandler struct {
	appSvc *application.OrderApplicationService
}

func NewInventoryResultHandler(appSvc *application.OrderApplicationService) *InventoryResultHandler {
	return &InventoryResultHandler{appSvc: appSvc}
}

// Handle 满足 mq.Handler 签名。
func (h *InventoryResultHandler) Handle(ctx context.Context, msg kafka.Message) error {
	// 解析消息体
	var result event.InventoryCheckResultEvent
	if err := json.Unmarshal(msg.Value, &result); err != nil {
		return errs.NewValidationError("malformed inventory check result: "+err.Error(), nil)
	}
	// 调用应用服务来处理业务逻辑
	_, err := h.appSvc.ApplyInventoryResult(ctx, &result)
	return err
}
