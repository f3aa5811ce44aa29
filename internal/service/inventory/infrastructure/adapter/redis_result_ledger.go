package adapter

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"orderflow/internal/pkg/constants"
	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/event"
	"orderflow/internal/pkg/redis"
)

// RedisResultLedger 把检查结果以 inventory:result:<orderId> 存入 Redis，
// 检查权以 inventory:claim:<orderId> 通过 SETNX 占有。
type RedisResultLedger struct {
	client   *redis.Client
	ttl      time.Duration
	claimTTL time.Duration
}

func NewRedisResultLedger(client *redis.Client, ttl, claimTTL time.Duration) *RedisResultLedger {
	return &RedisResultLedger{client: client, ttl: ttl, claimTTL: claimTTL}
}

func (l *RedisResultLedger) Claim(ctx context.Context, orderID string) (bool, error) {
	return l.client.SetNX(ctx, constants.InventoryClaimKeyPrefix+orderID, []byte("1"), l.claimTTL)
}

func (l *RedisResultLedger) Lookup(ctx context.Context, orderID string) (*event.InventoryCheckResultEvent, bool, error) {
	var result event.InventoryCheckResultEvent
	err := l.client.GetJSON(ctx, constants.InventoryResultKeyPrefix+orderID, &result)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &result, true, nil
}

func (l *RedisResultLedger) Remember(ctx context.Context, result *event.InventoryCheckResultEvent) error {
	return l.client.SetJSON(ctx, constants.InventoryResultKeyPrefix+result.OrderID, result, l.ttl)
}
