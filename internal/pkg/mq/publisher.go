package mq

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/logger"
)

// Message 是发送端的消息模型，Key 通常是订单ID。
type Message struct {
	Topic   string
	Key     string
	Value   []byte
	Headers map[string]string
}

// Publisher 至少一次语义的消息发送接口。
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// KafkaPublisher 基于 kafka-go writer 的 Publisher 实现，会自动注入链路信息。
type KafkaPublisher struct {
	writer  MessageWriter
	timeout time.Duration
}

// NewKafkaPublisher timeout <= 0 表示只受调用方 ctx 控制。
func NewKafkaPublisher(writer MessageWriter, timeout time.Duration) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, timeout: timeout}
}

func (p *KafkaPublisher) Publish(ctx context.Context, msg Message) error {
	headers := make([]kafka.Header, 0, len(msg.Headers)+2)
	for k, v := range msg.Headers {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	headers = InjectTraceContext(ctx, headers)

	writeCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		writeCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	err := p.writer.WriteMessages(writeCtx, kafka.Message{
		Topic:   msg.Topic,
		Key:     []byte(msg.Key),
		Value:   msg.Value,
		Headers: headers,
		Time:    time.Now(),
	})
	if err != nil {
		publishFailedTotal.WithLabelValues(msg.Topic).Inc()
		return errors.Wrapf(errs.ErrPublishFailure, "topic %s key %s: %v", msg.Topic, msg.Key, err)
	}
	publishedTotal.WithLabelValues(msg.Topic).Inc()
	return nil
}

// DeadLetterPublisher 是 Publisher 的装饰器：发送失败时把消息转投到 <topic>-dlq，
// 然后仍把原始错误返回给调用方，由调用方决定是否只记录日志。
type DeadLetterPublisher struct {
	next Publisher
}

func NewDeadLetterPublisher(next Publisher) *DeadLetterPublisher {
	return &DeadLetterPublisher{next: next}
}

func (p *DeadLetterPublisher) Publish(ctx context.Context, msg Message) error {
	err := p.next.Publish(ctx, msg)
	if err == nil {
		return nil
	}
	logger.Ctx(ctx).Warn().Err(err).
		Str("topic", msg.Topic).
		Str("key", msg.Key).
		Msg("publish failed, redirecting to dead letter topic")

	if IsDeadLetterTopic(msg.Topic) {
		return err
	}

	headers := make(map[string]string, len(msg.Headers)+3)
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers[HeaderOriginalTopic] = msg.Topic
	headers[HeaderExceptionFqcn] = errs.Kind(err)
	headers[HeaderExceptionMessage] = err.Error()

	// 原 ctx 可能正是因为超时才失败，死信投递不受其取消影响
	dlqCtx := context.WithoutCancel(ctx)
	dead := Message{Topic: DeadLetterTopic(msg.Topic), Key: msg.Key, Value: msg.Value, Headers: headers}
	if dlqErr := p.next.Publish(dlqCtx, dead); dlqErr != nil {
		logger.Ctx(ctx).Error().Err(dlqErr).
			Str("topic", dead.Topic).
			Str("key", msg.Key).
			Msg("🚨 CRITICAL: dead letter redirect failed, message lost")
	} else {
		deadLetteredTotal.WithLabelValues(msg.Topic).Inc()
	}
	return err
}
