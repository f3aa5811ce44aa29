package adapter

import (
	"context"
	"net/url"
	"strings"
	"time"

	"orderflow/internal/pkg/httpclient"
	"orderflow/internal/service/notification/domain"
)

// OrderServiceReader 通过订单服务的查询接口读取订单。
// 订单服务在 Redis 不可用时会用本地缓存应答，所以它适合作为 Redis 之后的第二个来源。
type OrderServiceReader struct {
	client  *httpclient.Client
	baseURL string
	timeout time.Duration
}

// NewOrderServiceReader timeout 为 0 时不额外限时。
func NewOrderServiceReader(client *httpclient.Client, baseURL string, timeout time.Duration) *OrderServiceReader {
	return &OrderServiceReader{client: client, baseURL: strings.TrimRight(baseURL, "/"), timeout: timeout}
}

func (r *OrderServiceReader) GetOrder(ctx context.Context, orderID string) (*domain.OrderSnapshot, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	var order domain.OrderSnapshot
	if err := r.client.GetJSON(ctx, r.baseURL+"/api/v1/orders/"+url.PathEscape(orderID), &order); err != nil {
		return nil, err
	}
	return &order, nil
}
