package mq

import (
	"context"
	"strconv"

	"github.com/segmentio/kafka-go"

	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/logger"
)

// FailureHandler 把重试耗尽或不可重试的消息转发到死信主题。
type FailureHandler struct {
	publisher Publisher
}

func NewFailureHandler(publisher Publisher) *FailureHandler {
	return &FailureHandler{publisher: publisher}
}

// Handle 转发失败消息，保留原始消息头并追加来源与异常信息。
func (h *FailureHandler) Handle(ctx context.Context, msg kafka.Message, cause error) error {
	if IsDeadLetterTopic(msg.Topic) {
		// 死信主题上的消息不再转发，避免循环
		logger.Ctx(ctx).Error().Err(cause).Str("topic", msg.Topic).Msg("failed to handle dead letter message")
		return nil
	}

	headers := HeaderMap(msg.Headers)
	headers[HeaderOriginalTopic] = msg.Topic
	headers[HeaderOriginalPartition] = strconv.Itoa(msg.Partition)
	headers[HeaderOriginalOffset] = strconv.FormatInt(msg.Offset, 10)
	headers[HeaderExceptionFqcn] = errs.Kind(cause)
	headers[HeaderExceptionMessage] = cause.Error()

	dead := Message{
		Topic:   DeadLetterTopic(msg.Topic),
		Key:     string(msg.Key),
		Value:   msg.Value,
		Headers: headers,
	}
	if err := h.publisher.Publish(context.WithoutCancel(ctx), dead); err != nil {
		logger.Ctx(ctx).Error().Err(err).
			Str("topic", dead.Topic).
			Str("key", dead.Key).
			Msg("🚨 CRITICAL: failed to forward message to dead letter topic")
		return err
	}
	deadLetteredTotal.WithLabelValues(msg.Topic).Inc()
	logger.Ctx(ctx).Warn().Err(cause).
		Str("topic", msg.Topic).
		Str("dead_letter_topic", dead.Topic).
		Str("key", dead.Key).
		Int64("offset", msg.Offset).
		Msg("message forwarded to dead letter topic")
	return nil
}
