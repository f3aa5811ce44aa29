package adapter

import (
	"context"

	"github.com/pkg/errors"

	"orderflow/internal/pkg/logger"
	"orderflow/internal/service/notification/domain"
	"orderflow/internal/service/notification/domain/port"
)

// FallbackOrderReader 按顺序尝试多个来源，返回第一个成功的结果。
type FallbackOrderReader struct {
	readers []port.OrderReader
}

func NewFallbackOrderReader(readers ...port.OrderReader) *FallbackOrderReader {
	return &FallbackOrderReader{readers: readers}
}

// GetOrder 全部来源失败时返回最后一个错误。
func (r *FallbackOrderReader) GetOrder(ctx context.Context, orderID string) (*domain.OrderSnapshot, error) {
	err := errors.New("no order readers configured")
	for i, reader := range r.readers {
		var order *domain.OrderSnapshot
		order, err = reader.GetOrder(ctx, orderID)
		if err == nil {
			return order, nil
		}
		logger.Ctx(ctx).Debug().Err(err).Int("source", i).Str("order_id", orderID).Msg("order lookup failed, trying next source")
	}
	return nil, err
}
