// Package mqtest 提供内存版的消息总线，用于跨服务的端到端测试。
package mqtest

import (
	"context"
	"io"
	"sync"

	"github.com/segmentio/kafka-go"

	"orderflow/internal/pkg/mq"
)

// Broker 记录所有发送的消息，并可以让指定主题的发送失败。
type Broker struct {
	mu       sync.Mutex
	messages map[string][]kafka.Message
	failures map[string]error
}

func NewBroker() *Broker {
	return &Broker{
		messages: make(map[string][]kafka.Message),
		failures: make(map[string]error),
	}
}

// FailTopic 让之后发到 topic 的消息都返回 err，err 为 nil 时恢复。
func (b *Broker) FailTopic(topic string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.failures, topic)
		return
	}
	b.failures[topic] = err
}

func (b *Broker) Publish(ctx context.Context, msg mq.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err, ok := b.failures[msg.Topic]; ok {
		return err
	}
	headers := make([]kafka.Header, 0, len(msg.Headers))
	for k, v := range msg.Headers {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	headers = mq.InjectTraceContext(ctx, headers)
	value := make([]byte, len(msg.Value))
	copy(value, msg.Value)
	b.messages[msg.Topic] = append(b.messages[msg.Topic], kafka.Message{
		Topic:   msg.Topic,
		Offset:  int64(len(b.messages[msg.Topic])),
		Key:     []byte(msg.Key),
		Value:   value,
		Headers: headers,
	})
	return nil
}

// Messages 返回 topic 上已发送消息的副本。
func (b *Broker) Messages(topic string) []kafka.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]kafka.Message, len(b.messages[topic]))
	copy(out, b.messages[topic])
	return out
}

// Reader 返回一个按顺序回放给定消息的 mq.Reader，消息耗尽后阻塞直到 ctx 取消。
func Reader(msgs ...kafka.Message) *FakeReader {
	return &FakeReader{pending: msgs}
}

// FakeReader 记录提交过的消息。
type FakeReader struct {
	mu        sync.Mutex
	pending   []kafka.Message
	committed []kafka.Message
	closed    bool
}

func (r *FakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return kafka.Message{}, io.EOF
	}
	if len(r.pending) > 0 {
		msg := r.pending[0]
		r.pending = r.pending[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *FakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *FakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Committed 返回已提交的消息。
func (r *FakeReader) Committed() []kafka.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]kafka.Message, len(r.committed))
	copy(out, r.committed)
	return out
}

var _ mq.Reader = (*FakeReader)(nil)
var _ mq.Publisher = (*Broker)(nil)
