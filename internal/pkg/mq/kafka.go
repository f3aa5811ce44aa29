package mq

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// MessageWriter 是 *kafka.Writer 的最小抽象，测试中可以替换。
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Reader 是 *kafka.Reader 的最小抽象。
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaWriter 创建一个不绑定主题的 writer，主题由每条消息自己携带，
// 这样同一个 writer 可以同时写业务主题和死信主题。
func NewKafkaWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr: kafka.TCP(brokers...),
		// 按 key (订单ID) 哈希分区，保证同一订单的消息有序
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            3,
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           5 * time.Second,
		AllowAutoTopicCreation: true,
	}
}

// NewKafkaReader 创建一个消费组成员。
func NewKafkaReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        500 * time.Millisecond,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: 0, // 同步提交，处理完成后才提交 offset
	})
}

// NewKafkaReaders 为同一主题创建 n 个消费组成员，组成有界的 worker 池。
// 分区在成员之间分配，同一分区内的消息仍然顺序处理。
func NewKafkaReaders(brokers []string, topic, groupID string, n int) []Reader {
	if n < 1 {
		n = 1
	}
	readers := make([]Reader, 0, n)
	for i := 0; i < n; i++ {
		readers = append(readers, NewKafkaReader(brokers, topic, groupID))
	}
	return readers
}
