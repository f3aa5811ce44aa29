package adapter

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pkg/errors"

	"orderflow/internal/pkg/constants"
	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/event"
	"orderflow/internal/pkg/mq"
	"orderflow/internal/pkg/mq/mqtest"
)

func TestPublishOrderCreated(t *testing.T) {
	broker := mqtest.NewBroker()
	a := NewOrderEventKafkaAdapter(mq.NewDeadLetterPublisher(broker))

	evt := &event.OrderCreatedEvent{EventID: "e1", OrderID: "o-1", CustomerName: "Alice"}
	if err := a.PublishOrderCreated(context.Background(), evt); err != nil {
		t.Fatalf("PublishOrderCreated: %v", err)
	}
	msgs := broker.Messages(constants.TopicOrderCreated)
	if len(msgs) != 1 || string(msgs[0].Key) != "o-1" {
		t.Fatalf("messages = %+v", msgs)
	}
	var decoded event.OrderCreatedEvent
	if err := json.Unmarshal(msgs[0].Value, &decoded); err != nil || decoded.CustomerName != "Alice" {
		t.Fatalf("decoded = %+v, err = %v", decoded, err)
	}
}

func TestPublishOrderCreatedRedirectsToDeadLetter(t *testing.T) {
	broker := mqtest.NewBroker()
	broker.FailTopic(constants.TopicOrderCreated, errors.Wrap(errs.ErrPublishFailure, "leader not available"))
	a := NewOrderEventKafkaAdapter(mq.NewDeadLetterPublisher(broker))

	err := a.PublishOrderCreated(context.Background(), &event.OrderCreatedEvent{OrderID: "o-1", CustomerName: "Alice"})
	if !errors.Is(err, errs.ErrPublishFailure) {
		t.Fatalf("expected publish failure, got %v", err)
	}
	dlq := broker.Messages(mq.DeadLetterTopic(constants.TopicOrderCreated))
	if len(dlq) != 1 {
		t.Fatalf("dead letters = %d, want 1", len(dlq))
	}
	headers := mq.HeaderMap(dlq[0].Headers)
	if headers[mq.HeaderOriginalTopic] != constants.TopicOrderCreated {
		t.Fatalf("headers = %v", headers)
	}
	if headers[mq.HeaderExceptionFqcn] != "PublishFailure" {
		t.Fatalf("exception type = %q", headers[mq.HeaderExceptionFqcn])
	}
}
