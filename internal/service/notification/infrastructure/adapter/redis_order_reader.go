package adapter

import (
	"context"

	"orderflow/internal/pkg/constants"
	"orderflow/internal/pkg/redis"
	"orderflow/internal/service/notification/domain"
)

// RedisOrderReader 实现了 port.OrderReader，读取订单服务写入的 order:<id>。
type RedisOrderReader struct {
	client *redis.Client
}

func NewRedisOrderReader(client *redis.Client) *RedisOrderReader {
	return &RedisOrderReader{client: client}
}

func (r *RedisOrderReader) GetOrder(ctx context.Context, orderID string) (*domain.OrderSnapshot, error) {
	var order domain.OrderSnapshot
	if err := r.client.GetJSON(ctx, constants.OrderKey(orderID), &order); err != nil {
		return nil, err
	}
	return &order, nil
}
