// internal/service/order/application/service.go
package application

import (
	"context"
	"strings"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/event"
	"orderflow/internal/pkg/logger"
	"orderflow/internal/pkg/validation"
	"orderflow/internal/service/order/domain"
	"orderflow/internal/service/order/domain/port"
)

var (
	ordersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "orderflow",
		Subsystem: "order",
		Name:      "created_total",
		Help:      "Orders accepted by the order saga.",
	})
	ordersCompletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orderflow",
		Subsystem: "order",
		Name:      "completed_total",
		Help:      "Orders moved to a terminal status by an inventory result.",
	}, []string{"status"})
)

// OrderApplicationService 订单 saga 的协调者：创建订单并发布提交事件，
// 收到库存检查结果后把订单推进到终态。
type OrderApplicationService struct {
	orderRepo domain.OrderRepository
	publisher port.OrderEventPublisher
	validate  *validatorv10.Validate
	tracer    trace.Tracer
	now       func() time.Time
}

func NewOrderApplicationService(orderRepo domain.OrderRepository, publisher port.OrderEventPublisher, tracer trace.Tracer) *OrderApplicationService {
	return &OrderApplicationService{
		orderRepo: orderRepo,
		publisher: publisher,
		validate:  validation.MustNew(),
		tracer:    tracer,
		now:       time.Now,
	}
}

// SetClock 替换时间来源，测试用。
func (s *OrderApplicationService) SetClock(now func() time.Time) {
	s.now = now
}

// CreateOrder 校验请求、持久化 PENDING 订单并发布提交事件。
// 校验失败时没有任何副作用；发布失败只记录日志，订单仍然创建成功。
func (s *OrderApplicationService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.CreateOrder")
	defer span.End()

	if req == nil {
		return nil, errs.NewValidationError("order request cannot be null", nil)
	}
	// 1. 校验请求
	if err := validation.Struct(s.validate, "invalid order request", req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid order request")
		logger.Ctx(ctx).Warn().Err(err).Str("request_id", req.RequestID).Msg("order request rejected")
		return nil, err
	}

	// 2. 使用领域工厂函数创建订单实体
	now := s.now().UTC()
	order, err := domain.NewOrder(uuid.New().String(), req.CustomerName, req.toOrderItems(), req.RequestID, req.RequestDateTime, now)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create order entity")
		return nil, err
	}
	span.SetAttributes(
		attribute.String("order.id", order.ID),
		attribute.Int("order.items", len(order.Items)),
	)
	log := logger.Ctx(ctx).With().Str("order_id", order.ID).Logger()

	// 3. 持久化，主存储故障由存储自身降级处理
	if _, err := s.orderRepo.Put(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to save order")
		return nil, errors.Wrapf(err, "save order %s", order.ID)
	}
	span.AddEvent("Order saved with PENDING status.")
	ordersCreatedTotal.Inc()

	// 4. 发布提交事件
	if err := s.publisher.PublishOrderCreated(ctx, order.ToCreatedEvent(uuid.New().String(), now)); err != nil {
		span.RecordError(err, trace.WithAttributes(attribute.Bool("publish.failed", true)))
		log.Error().Err(err).Msg("failed to publish order created event, order kept as PENDING")
	} else {
		span.AddEvent("Order created event published.")
	}

	log.Info().Str("customer", order.CustomerName).Int("items", len(order.Items)).Msg("order created")
	return order, nil
}

// ApplyInventoryResult 把库存检查结果应用到订单上。
// 终态订单不会被再次修改，重复投递的结果直接返回当前订单。
func (s *OrderApplicationService) ApplyInventoryResult(ctx context.Context, result *event.InventoryCheckResultEvent) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.ApplyInventoryResult", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	if result == nil || strings.TrimSpace(result.OrderID) == "" {
		err := errs.NewValidationError("inventory result must carry an order id", nil)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid inventory result")
		return nil, err
	}
	span.SetAttributes(
		attribute.String("order.id", result.OrderID),
		attribute.Bool("inventory.approved", result.Approved),
	)
	log := logger.Ctx(ctx).With().Str("order_id", result.OrderID).Logger()

	order, err := s.orderRepo.Get(ctx, result.OrderID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Order not found")
		log.Error().Err(err).Msg("cannot apply inventory result")
		return nil, err
	}

	if !order.ApplyInventoryDecision(result.Approved, s.now().UTC()) {
		log.Info().Str("status", string(order.Status)).Msg("order already terminal, ignoring duplicate inventory result")
		span.AddEvent("Duplicate inventory result ignored.")
		return order, nil
	}

	if _, err := s.orderRepo.Put(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to save order")
		return nil, errors.Wrapf(err, "save order %s", order.ID)
	}
	ordersCompletedTotal.WithLabelValues(string(order.Status)).Inc()

	ev := log.Info().Str("status", string(order.Status))
	if len(result.UnavailableItems) > 0 {
		ev = ev.Strs("unavailable_items", result.UnavailableItems)
	}
	if result.ErrorMessage != "" {
		ev = ev.Str("inventory_error", result.ErrorMessage)
	}
	ev.Msg("order status updated from inventory result")
	span.AddEvent("Order moved to terminal status.")
	return order, nil
}

// GetOrder 查询订单。
func (s *OrderApplicationService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.GetOrder")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID))

	order, err := s.orderRepo.Get(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return order, nil
}

// GetOrderStatus 查询订单状态，同时返回数据来源。
func (s *OrderApplicationService) GetOrderStatus(ctx context.Context, orderID string) (*OrderStatusResponse, error) {
	ctx, span := s.tracer.Start(ctx, "app.GetOrderStatus")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID))

	order, source, err := s.orderRepo.GetWithSource(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return &OrderStatusResponse{
		OrderID:      order.ID,
		Status:       order.Status,
		CustomerName: order.CustomerName,
		CreatedAt:    order.CreatedAt,
		UpdatedAt:    order.UpdatedAt,
		Source:       source,
	}, nil
}

// UpdateOrderStatus 人工修改订单状态，终态订单返回 domain.ErrOrderTerminal。
func (s *OrderApplicationService) UpdateOrderStatus(ctx context.Context, orderID, status string) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.UpdateOrderStatus")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID), attribute.String("order.status", status))

	newStatus, err := domain.ParseStatus(status)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	order, err := s.orderRepo.Get(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	previous := order.Status
	if err := order.UpdateStatus(newStatus, s.now().UTC()); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if _, err := s.orderRepo.Put(ctx, order); err != nil {
		span.RecordError(err)
		return nil, errors.Wrapf(err, "save order %s", order.ID)
	}
	logger.Ctx(ctx).Info().
		Str("order_id", order.ID).
		Str("from", string(previous)).
		Str("to", string(newStatus)).
		Msg("order status updated manually")
	return order, nil
}

// CacheStatus 返回订单存储的健康状态。
func (s *OrderApplicationService) CacheStatus() domain.StoreStatus {
	return s.orderRepo.Status()
}
