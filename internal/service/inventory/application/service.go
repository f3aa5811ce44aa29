// internal/service/inventory/application/service.go
package application

import (
	"context"
	"fmt"
	"strings"
	"time"

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
	"orderflow/internal/service/inventory/domain"
	"orderflow/internal/service/inventory/domain/port"
)

const noItemsMessage = "Order has no items"

// ErrCheckInProgress 同一订单的检查已被其他消费者占有，可重试。
var ErrCheckInProgress = errors.Wrap(errs.ErrTransientStore, "inventory check in progress")

var itemChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "orderflow",
	Subsystem: "inventory",
	Name:      "item_checks_total",
	Help:      "Line item availability checks by category and outcome.",
}, []string{"category", "outcome"})

// InventoryCheckService 库存检查协调者：对提交事件中的每一行调用对应品类的策略，
// 并且对每个提交事件只发布一个汇总的结果事件。
type InventoryCheckService struct {
	registry  *domain.Registry
	publisher port.ResultPublisher
	ledger    port.ResultLedger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewInventoryCheckService ledger 可以为空，此时不做重复投递的去重。
func NewInventoryCheckService(registry *domain.Registry, publisher port.ResultPublisher, ledger port.ResultLedger, tracer trace.Tracer) *InventoryCheckService {
	return &InventoryCheckService{
		registry:  registry,
		publisher: publisher,
		ledger:    ledger,
		tracer:    tracer,
		now:       time.Now,
	}
}

// SetClock 替换时间来源，测试用。
func (s *InventoryCheckService) SetClock(now func() time.Time) {
	s.now = now
}

// HandleOrderCreated 处理一个订单提交事件。
// 缺少订单ID或客户名的事件直接返回校验错误；空订单行会发布拒绝结果，同时返回校验错误。
// 结果发布失败时返回 ErrPublishFailure，已经发生的库存扣减不回滚。
func (s *InventoryCheckService) HandleOrderCreated(ctx context.Context, evt *event.OrderCreatedEvent) error {
	ctx, span := s.tracer.Start(ctx, "app.HandleOrderCreated", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	if err := validateEvent(evt); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid order created event")
		logger.Ctx(ctx).Error().Err(err).Msg("rejecting invalid order created event")
		return err
	}
	span.SetAttributes(
		attribute.String("order.id", evt.OrderID),
		attribute.Int("order.items", len(evt.Items)),
	)
	log := logger.Ctx(ctx).With().Str("order_id", evt.OrderID).Logger()

	// 1. 重复投递：重放已记录的结果，不再调用策略
	if s.ledger != nil {
		prev, found, err := s.ledger.Lookup(ctx, evt.OrderID)
		if err != nil {
			log.Warn().Err(err).Msg("result ledger lookup failed, evaluating anyway")
		} else if found {
			log.Info().Bool("approved", prev.Approved).Msg("duplicate submission, replaying recorded result")
			span.AddEvent("Replayed recorded inventory result.")
			return s.publish(ctx, span, prev)
		} else if err := s.claim(ctx, evt.OrderID); err != nil {
			span.RecordError(err)
			return err
		}
	}

	// 2. 逐行检查
	result, structuralErr := s.Evaluate(ctx, evt)

	// 3. 先记录再发布，发布失败重试时走重放分支
	if s.ledger != nil {
		if err := s.ledger.Remember(ctx, result); err != nil {
			log.Warn().Err(err).Msg("failed to record inventory result")
		}
	}

	if err := s.publish(ctx, span, result); err != nil {
		return err
	}

	log.Info().
		Bool("approved", result.Approved).
		Strs("unavailable_items", result.UnavailableItems).
		Msg("inventory check completed")

	if structuralErr != nil {
		span.RecordError(structuralErr)
		span.SetStatus(codes.Error, result.ErrorMessage)
	}
	return structuralErr
}

// Evaluate 计算结果事件，不做发布。空订单行时同时返回校验错误。
func (s *InventoryCheckService) Evaluate(ctx context.Context, evt *event.OrderCreatedEvent) (*event.InventoryCheckResultEvent, error) {
	result := &event.InventoryCheckResultEvent{
		EventID:          uuid.New().String(),
		OrderID:          evt.OrderID,
		CustomerName:     evt.CustomerName,
		UnavailableItems: []string{},
		EventDateTime:    s.now().UTC(),
	}

	if len(evt.Items) == 0 {
		result.Approved = false
		result.ErrorMessage = noItemsMessage
		return result, errs.NewValidationError("order created event has no items", nil)
	}

	allAvailable := true
	for _, item := range evt.Items {
		available, checkErr := s.checkItem(ctx, item)
		if checkErr != nil && result.ErrorMessage == "" {
			result.ErrorMessage = "Error during inventory check: " + checkErr.Error()
		}
		if !available {
			allAvailable = false
			result.UnavailableItems = append(result.UnavailableItems, item.ProductID)
		}
	}
	result.Approved = allAvailable
	return result, nil
}

// checkItem 对单行调用策略。策略 panic 时视为不可用，并返回错误描述。
func (s *InventoryCheckService) checkItem(ctx context.Context, item event.OrderItem) (available bool, err error) {
	category := string(item.Category)
	defer func() {
		if r := recover(); r != nil {
			available = false
			err = fmt.Errorf("%v", r)
			itemChecksTotal.WithLabelValues(category, "error").Inc()
			logger.Ctx(ctx).Error().
				Str("product_id", item.ProductID).
				Str("category", category).
				Interface("panic", r).
				Msg("availability strategy panicked")
		}
	}()

	if !domain.ValidShape(item) {
		itemChecksTotal.WithLabelValues(category, "invalid").Inc()
		logger.Ctx(ctx).Warn().Str("product_id", item.ProductID).Int("quantity", item.Quantity).Msg("invalid order item")
		return false, nil
	}

	strategy, resolveErr := s.registry.Resolve(item.Category)
	if resolveErr != nil {
		itemChecksTotal.WithLabelValues(category, "unknown_category").Inc()
		logger.Ctx(ctx).Warn().Err(resolveErr).Str("product_id", item.ProductID).Msg("no strategy for item category")
		return false, nil
	}

	available = strategy.IsAvailable(item)
	outcome := "unavailable"
	if available {
		outcome = "available"
	}
	itemChecksTotal.WithLabelValues(category, outcome).Inc()
	logger.Ctx(ctx).Debug().
		Str("product_id", item.ProductID).
		Int("quantity", item.Quantity).
		Str("category", category).
		Bool("available", available).
		Msg("item checked")
	return available, nil
}

// claim 占有订单的检查权。另一个消费者正在检查同一订单时返回可重试的 ErrCheckInProgress，
// 重试时通常已经能查到对方记录的结果。账本不可用时只记录日志，继续检查。
func (s *InventoryCheckService) claim(ctx context.Context, orderID string) error {
	claimed, err := s.ledger.Claim(ctx, orderID)
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("order_id", orderID).Msg("failed to claim inventory check, evaluating anyway")
		return nil
	}
	if !claimed {
		logger.Ctx(ctx).Info().Str("order_id", orderID).Msg("inventory check already claimed by another consumer")
		return errors.Wrapf(ErrCheckInProgress, "order %s", orderID)
	}
	return nil
}

func (s *InventoryCheckService) publish(ctx context.Context, span trace.Span, result *event.InventoryCheckResultEvent) error {
	if err := s.publisher.PublishResult(ctx, result); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to publish inventory result")
		logger.Ctx(ctx).Error().Err(err).Str("order_id", result.OrderID).Msg("failed to publish inventory check result")
		return err
	}
	span.AddEvent("Inventory result published.")
	return nil
}

func validateEvent(evt *event.OrderCreatedEvent) error {
	if evt == nil {
		return errs.NewValidationError("order created event cannot be null", nil)
	}
	fields := map[string]string{}
	if strings.TrimSpace(evt.OrderID) == "" {
		fields["orderId"] = "must not be blank"
	}
	if strings.TrimSpace(evt.CustomerName) == "" {
		fields["customerName"] = "must not be blank"
	}
	if len(fields) > 0 {
		return errs.NewValidationError("invalid order created event", fields)
	}
	return nil
}
