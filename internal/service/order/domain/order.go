// internal/service/order/domain/order.go
package domain

import (
	"strings"
	"time"

	"github.com/pkg/errors"

	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/event"
)

var (
	// ErrInvalidOrder 请求结构不合法
	ErrInvalidOrder = errs.ErrValidation
	// ErrOrderNotFound 订单不存在或缓存条目已过期
	ErrOrderNotFound = errors.Wrap(errs.ErrNotFound, "order not found")
	// ErrOrderTerminal 终态订单不允许再修改状态
	ErrOrderTerminal = errors.New("order is in a terminal state")
)

// Order 是订单聚合的根实体，序列化后作为主存储中的快照。
type Order struct {
	ID              string            `json:"orderId"`
	CustomerName    string            `json:"customerName"`
	Items           []event.OrderItem `json:"items"`
	RequestID       string            `json:"requestId,omitempty"`
	RequestDateTime time.Time         `json:"requestDateTime"`
	Status          Status            `json:"status"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// 工厂函数: NewOrder 用于创建一个新的 PENDING 订单，请求结构的校验由应用层完成。
func NewOrder(id, customerName string, items []event.OrderItem, requestID string, requestTime, now time.Time) (*Order, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.Wrap(ErrInvalidOrder, "cannot create order with empty id")
	}
	if strings.TrimSpace(customerName) == "" || len(items) == 0 {
		return nil, errors.Wrap(ErrInvalidOrder, "cannot create order with empty required fields")
	}
	copied := make([]event.OrderItem, len(items))
	copy(copied, items)
	if requestTime.IsZero() {
		requestTime = now
	}
	return &Order{
		ID:              id,
		CustomerName:    customerName,
		Items:           copied,
		RequestID:       requestID,
		RequestDateTime: requestTime,
		Status:          StatusPending, // 初始状态
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// ApplyInventoryDecision 根据库存检查结果推进到终态。
// 已经是终态的订单保持不变并返回 false，重复投递的结果因此是幂等的。
func (o *Order) ApplyInventoryDecision(approved bool, now time.Time) bool {
	if o.Status.IsTerminal() {
		return false
	}
	o.Status = StatusRejected
	if approved {
		o.Status = StatusApproved
	}
	o.UpdatedAt = now
	return true
}

// UpdateStatus 人工修改状态，终态订单拒绝修改。
func (o *Order) UpdateStatus(status Status, now time.Time) error {
	if o.Status.IsTerminal() {
		return errors.Wrapf(ErrOrderTerminal, "order %s is %s", o.ID, o.Status)
	}
	o.Status = status
	o.UpdatedAt = now
	return nil
}

// Clone 返回深拷贝，缓存中保存的快照不受调用方修改影响。
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	c.Items = make([]event.OrderItem, len(o.Items))
	copy(c.Items, o.Items)
	return &c
}
