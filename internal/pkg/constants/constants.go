package constants

// Kafka 主题与消费组
const (
	TopicOrderCreated         = "order-created"
	TopicInventoryCheckResult = "inventory-check-result"

	GroupInventoryService    = "inventory-service-group"
	GroupOrderService        = "order-service-group"
	GroupNotificationService = "notification-service-group"
	GroupDeadLetterMonitor   = "dead-letter-monitor-group"
)

// Redis key 前缀
const (
	OrderKeyPrefix           = "order:"
	InventoryResultKeyPrefix = "inventory:result:"
	InventoryClaimKeyPrefix  = "inventory:claim:"
)

// 服务名，同时用于 tracer 名称和日志中的 service 字段
const (
	OrderServiceName        = "order-service"
	InventoryServiceName    = "inventory-service"
	NotificationServiceName = "notification-service"
)

// OrderKey 返回订单在 KV 存储中的 key。
func OrderKey(orderID string) string {
	return OrderKeyPrefix + orderID
}
