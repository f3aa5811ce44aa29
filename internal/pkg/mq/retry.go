package mq

import (
	"context"
	"math"
	"time"

	"github.com/segmentio/kafka-go"

	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/logger"
)

// Handler 处理一条消息，返回错误表示处理失败。
type Handler func(ctx context.Context, msg kafka.Message) error

// RetryPolicy 指数退避的重试策略。
type RetryPolicy struct {
	// Attempts 包含第一次调用在内的总次数
	Attempts     int
	InitialDelay time.Duration
	Multiplier   float64
	// Sleep 为空时使用计时器等待，测试中可以替换
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy 3 次尝试，首次间隔 1s，每次翻倍。
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, InitialDelay: time.Second, Multiplier: 2}
}

// Delay 返回第 n 次重试 (从 1 开始) 之前的等待时间。
func (p RetryPolicy) Delay(retry int) time.Duration {
	if retry < 1 {
		return 0
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	return time.Duration(float64(p.InitialDelay) * math.Pow(mult, float64(retry-1)))
}

func (p RetryPolicy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// WithRetry 是 Handler 的装饰器：可重试的错误按策略退避重试，
// 校验错误/不存在错误立即返回，交给 FailureHandler 处理。
func WithRetry(policy RetryPolicy, next Handler) Handler {
	attempts := policy.Attempts
	if attempts < 1 {
		attempts = 1
	}
	return func(ctx context.Context, msg kafka.Message) error {
		var err error
		for attempt := 1; ; attempt++ {
			if err = next(ctx, msg); err == nil {
				return nil
			}
			if !errs.IsRetryable(err) || attempt >= attempts {
				return err
			}
			delay := policy.Delay(attempt)
			handlerRetriesTotal.WithLabelValues(msg.Topic).Inc()
			logger.Ctx(ctx).Warn().Err(err).
				Str("topic", msg.Topic).
				Str("key", string(msg.Key)).
				Int("attempt", attempt).
				Dur("backoff", delay).
				Msg("handler failed, retrying")
			if sleepErr := policy.sleep(ctx, delay); sleepErr != nil {
				return err
			}
		}
	}
}
