// internal/service/order/application/dto.go
package application

import (
	"time"

	"orderflow/internal/pkg/event"
	"orderflow/internal/service/order/domain"
)

// CreateOrderItem 创建订单请求中的订单行
type CreateOrderItem struct {
	ProductID string `json:"productId" validate:"notblank"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
	Category  string `json:"category" validate:"required,category"`
}

// CreateOrderRequest 是创建订单用例的输入数据
type CreateOrderRequest struct {
	CustomerName    string            `json:"customerName" validate:"notblank"`
	Items           []CreateOrderItem `json:"items" validate:"required,min=1,dive"`
	RequestID       string            `json:"requestId,omitempty"`
	RequestDateTime time.Time         `json:"requestDateTime,omitempty"`
}

// toOrderItems 在校验通过之后调用，品类已经保证合法。
func (req *CreateOrderRequest) toOrderItems() []event.OrderItem {
	items := make([]event.OrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		category, _ := event.ParseCategory(it.Category)
		items = append(items, event.OrderItem{ProductID: it.ProductID, Quantity: it.Quantity, Category: category})
	}
	return items
}

// OrderStatusResponse 是查询订单状态用例的输出数据
type OrderStatusResponse struct {
	OrderID      string        `json:"orderId"`
	Status       domain.Status `json:"status"`
	CustomerName string        `json:"customerName"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
	Source       domain.Source `json:"source"`
}
