// Package event 定义服务之间通过 Kafka 传递的消息契约。
// 所有字段都以 JSON tag 序列化，新增字段不会破坏旧的消费者。
package event

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Category 商品品类，决定使用哪种库存可用性策略。
type Category string

const (
	CategoryDigital    Category = "DIGITAL"
	CategoryPerishable Category = "PERISHABLE"
	CategoryStandard   Category = "STANDARD"
)

// Categories 返回封闭的品类集合。
func Categories() []Category {
	return []Category{CategoryDigital, CategoryPerishable, CategoryStandard}
}

// ParseCategory 大小写不敏感地解析品类。
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Categories() {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("invalid category %q, valid values are: DIGITAL, PERISHABLE, STANDARD", s)
}

// UnmarshalJSON 只做大小写归一，不拒绝未知值：未知品类交给策略注册表判定为不可用。
func (c *Category) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*c = Category(strings.ToUpper(strings.TrimSpace(s)))
	return nil
}

// OrderItem 订单行
type OrderItem struct {
	ProductID string   `json:"productId"`
	Quantity  int      `json:"quantity"`
	Category  Category `json:"category"`
}

// OrderCreatedEvent 订单提交事件，每个新建订单发布一次。
type OrderCreatedEvent struct {
	EventID         string      `json:"eventId"`
	OrderID         string      `json:"orderId"`
	CustomerName    string      `json:"customerName"`
	Items           []OrderItem `json:"items"`
	RequestID       string      `json:"requestId,omitempty"`
	RequestDateTime time.Time   `json:"requestDateTime"`
	EventDateTime   time.Time   `json:"eventDateTime"`
}

// InventoryCheckResultEvent 库存检查结果，每处理一个提交事件产生一个。
type InventoryCheckResultEvent struct {
	EventID          string    `json:"eventId"`
	OrderID          string    `json:"orderId"`
	Approved         bool      `json:"approved"`
	UnavailableItems []string  `json:"unavailableItems"`
	ErrorMessage     string    `json:"errorMessage,omitempty"`
	EventDateTime    time.Time `json:"eventDateTime"`
	CustomerName     string    `json:"customerName"`
}
