package bootstrap

import (
	"orderflow/internal/pkg/mq"
)

// RetryPolicy 根据配置生成消费端的重试策略，未配置的字段使用 mq 的默认值。
func (m MessagingConfig) RetryPolicy() mq.RetryPolicy {
	policy := mq.DefaultRetryPolicy()
	if m.RetryAttempts > 0 {
		policy.Attempts = m.RetryAttempts
	}
	if m.RetryInitialDelay > 0 {
		policy.InitialDelay = m.RetryInitialDelay
	}
	if m.RetryMultiplier >= 1 {
		policy.Multiplier = m.RetryMultiplier
	}
	return policy
}

// NewTopicConsumer 为一个业务主题组装消费者：
// Concurrency 个消费组成员，处理函数外包一层重试，失败消息经 publisher 转发到死信主题。
func NewTopicConsumer(cfg *Config, topic, groupID string, handler mq.Handler, publisher mq.Publisher) *mq.Consumer {
	concurrency := cfg.Messaging.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	readers := mq.NewKafkaReaders(cfg.Infra.Kafka.BrokerList(), topic, groupID, concurrency)
	return mq.NewConsumer(topic, readers, mq.WithRetry(cfg.Messaging.RetryPolicy(), handler), mq.NewFailureHandler(publisher))
}

// NewDeadLetterMonitor 订阅若干死信主题，只做记录不再转发。
func NewDeadLetterMonitor(cfg *Config, groupID string, handler mq.Handler, topics ...string) []Component {
	components := make([]Component, 0, len(topics))
	for _, topic := range topics {
		dlt := mq.DeadLetterTopic(topic)
		readers := mq.NewKafkaReaders(cfg.Infra.Kafka.BrokerList(), dlt, groupID, 1)
		components = append(components, mq.NewConsumer(dlt, readers, handler, nil))
	}
	return components
}
