package application

import (
	"context"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/event"
	"orderflow/internal/pkg/logger"
	"orderflow/internal/service/notification/domain"
	"orderflow/internal/service/notification/domain/port"
)

var notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "orderflow",
	Subsystem: "notification",
	Name:      "sent_total",
	Help:      "Notifications rendered, by kind.",
}, []string{"kind"})

// NotificationService 处理库存检查结果，把通知发送到所有渠道。
type NotificationService struct {
	orders port.OrderReader
	sinks  []port.Sink
	tracer trace.Tracer
	now    func() time.Time
}

func NewNotificationService(orders port.OrderReader, tracer trace.Tracer, sinks ...port.Sink) *NotificationService {
	return &NotificationService{orders: orders, sinks: sinks, tracer: tracer, now: time.Now}
}

// HandleResult 查不到订单时退化为受限通知，不会因为查询失败而丢弃通知。
func (s *NotificationService) HandleResult(ctx context.Context, result *event.InventoryCheckResultEvent) (domain.Notification, error) {
	ctx, span := s.tracer.Start(ctx, "app.HandleInventoryResult", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	if result == nil || strings.TrimSpace(result.OrderID) == "" {
		err := errs.NewValidationError("inventory result must carry an order id", nil)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid inventory result")
		logger.Ctx(ctx).Error().Err(err).Msg("dropping inventory result without order id")
		return domain.Notification{}, err
	}
	span.SetAttributes(attribute.String("order.id", result.OrderID), attribute.Bool("inventory.approved", result.Approved))
	log := logger.Ctx(ctx).With().Str("order_id", result.OrderID).Logger()

	order, err := s.orders.GetOrder(ctx, result.OrderID)
	if err != nil {
		log.Warn().Err(err).Msg("order lookup failed, sending limited notification")
		span.AddEvent("Order lookup failed.")
		order = nil
	}

	n := domain.NewNotification(result, order, s.now().UTC())
	span.SetAttributes(attribute.String("notification.kind", string(n.Kind)))
	for _, sink := range s.sinks {
		if err := sink.Deliver(ctx, n); err != nil {
			log.Error().Err(err).Msg("failed to deliver notification")
		}
	}
	notificationsTotal.WithLabelValues(string(n.Kind)).Inc()
	log.Info().Str("status", n.Status).Str("kind", string(n.Kind)).Msg("notification sent")
	return n, nil
}
