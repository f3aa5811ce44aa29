// internal/service/order/interfaces/dlt_handler.go
package interfaces

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"

	"orderflow/internal/pkg/logger"
	"orderflow/internal/pkg/mq"
)

var deadLettersReceived = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "orderflow",
	Subsystem: "dead_letter",
	Name:      "received_total",
	Help:      "Dead letter messages observed by the monitor, by original topic.",
}, []string{"original_topic"})

// DeadLetterHandler 监听死信队列并记录日志。
// 死信消息总是返回 nil，因为它们已经被“处理”了（即记录日志），offset 直接提交。
func DeadLetterHandler(ctx context.Context, msg kafka.Message) error {
	headers := mq.HeaderMap(msg.Headers)
	deadLettersReceived.WithLabelValues(headers[mq.HeaderOriginalTopic]).Inc()

	// 使用结构化日志记录，便于后续分析
	logger.Ctx(ctx).Error().
		Str("reason", "dead_letter_message_received").
		Str("topic", msg.Topic).
		Str("original_topic", headers[mq.HeaderOriginalTopic]).
		Str("original_partition", headers[mq.HeaderOriginalPartition]).
		Str("original_offset", headers[mq.HeaderOriginalOffset]).
		Str("exception_fqcn", headers[mq.HeaderExceptionFqcn]).
		Str("exception_message", headers[mq.HeaderExceptionMessage]).
		Str("key", string(msg.Key)).
		Str("value", string(msg.Value)).
		Msg("🚨 CRITICAL: Dead letter message received")
	return nil
}

var _ mq.Handler = DeadLetterHandler
