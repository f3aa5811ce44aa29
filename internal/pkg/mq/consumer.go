package mq

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"orderflow/internal/pkg/logger"
)

const fetchErrorBackoff = time.Second

// Consumer 是一个主题的有界 worker 池：每个 Reader 是同一消费组的一个成员，
// 各自顺序地 拉取 -> 处理 -> 失败转死信 -> 提交 offset，实现至少一次投递。
type Consumer struct {
	topic          string
	readers        []Reader
	handler        Handler
	failureHandler *FailureHandler
	tracer         trace.Tracer
}

// NewConsumer failureHandler 为空时，失败只记录日志。
func NewConsumer(topic string, readers []Reader, handler Handler, failureHandler *FailureHandler) *Consumer {
	return &Consumer{
		topic:          topic,
		readers:        readers,
		handler:        handler,
		failureHandler: failureHandler,
		tracer:         otel.Tracer("orderflow/mq"),
	}
}

// Run 阻塞直到 ctx 取消，返回前关闭所有 Reader。
func (c *Consumer) Run(ctx context.Context) error {
	logger.Ctx(ctx).Info().Str("topic", c.topic).Int("workers", len(c.readers)).Msg("✅ Kafka consumer started.")

	g, gctx := errgroup.WithContext(ctx)
	for i, r := range c.readers {
		i, r := i, r
		g.Go(func() error {
			return c.loop(gctx, i, r)
		})
	}
	err := g.Wait()

	for _, r := range c.readers {
		if closeErr := r.Close(); closeErr != nil {
			logger.Ctx(ctx).Warn().Err(closeErr).Str("topic", c.topic).Msg("failed to close reader")
		}
	}
	logger.Ctx(ctx).Info().Str("topic", c.topic).Msg("🛑 Kafka consumer stopped.")
	return err
}

func (c *Consumer) loop(ctx context.Context, worker int, r Reader) error {
	for {
		// 使用 FetchMessage 而不是 ReadMessage，处理完成后再手动提交
		msg, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			logger.Ctx(ctx).Error().Err(err).Str("topic", c.topic).Int("worker", worker).Msg("could not fetch message, retrying")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(fetchErrorBackoff):
			}
			continue
		}

		c.dispatch(ctx, msg)

		// 关停过程中被打断的消息不提交，重启后重新投递
		if ctx.Err() != nil {
			return nil
		}
		if err := r.CommitMessages(ctx, msg); err != nil {
			logger.Ctx(ctx).Error().Err(err).Str("topic", c.topic).Int64("offset", msg.Offset).Msg("failed to commit message")
		}
	}
}

func (c *Consumer) dispatch(ctx context.Context, msg kafka.Message) {
	msgCtx := ExtractTraceContext(ctx, msg.Headers)
	msgCtx, span := c.tracer.Start(msgCtx, "consume "+msg.Topic,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
			attribute.Int("messaging.kafka.partition", msg.Partition),
			attribute.Int64("messaging.kafka.message.offset", msg.Offset),
			attribute.String("messaging.kafka.message.key", string(msg.Key)),
		),
	)
	defer span.End()

	err := c.handler(msgCtx, msg)
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if ctx.Err() != nil {
		return
	}
	if c.failureHandler == nil {
		logger.Ctx(msgCtx).Error().Err(err).Str("topic", msg.Topic).Str("key", string(msg.Key)).Msg("message handling failed")
		return
	}
	// 转发失败已在 FailureHandler 中记录，这里依旧提交，避免毒消息阻塞分区
	_ = c.failureHandler.Handle(msgCtx, msg, err)
}
