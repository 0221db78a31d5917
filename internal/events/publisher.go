package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
)

// Result is what the bridge did with one webhook delivery.
type Result string

const (
	ResultForwarded Result = "forwarded"
	ResultSkipped   Result = "skipped"
	ResultRejected  Result = "rejected"
	ResultFailed    Result = "failed"
)

// Outcome is published once per handled webhook.
type Outcome struct {
	RequestID   string    `json:"request_id"`
	OrderNo     string    `json:"order_no,omitempty"`
	Status      string    `json:"status,omitempty"`
	Result      Result    `json:"result"`
	Reason      string    `json:"reason,omitempty"`
	Destination string    `json:"destination,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, o Outcome) error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaPublisher writes outcomes keyed by order number so one order's history
// stays on one partition.
type KafkaPublisher struct {
	Writer         messageWriter
	MaxElapsedTime time.Duration
}

func NewKafkaPublisher(w *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{Writer: w, MaxElapsedTime: 2 * time.Second}
}

func (p *KafkaPublisher) Publish(ctx context.Context, o Outcome) error {
	payload, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}
	key := o.OrderNo
	if key == "" {
		key = o.RequestID
	}
	msg := kafka.Message{Key: []byte(key), Value: payload}

	op := backoff.NewExponentialBackOff()
	op.MaxElapsedTime = p.MaxElapsedTime
	err = backoff.Retry(func() error {
		return p.Writer.WriteMessages(ctx, msg)
	}, backoff.WithContext(op, ctx))
	if err != nil {
		return fmt.Errorf("write outcome: %w", err)
	}
	return nil
}

// Nop drops every outcome. Used when no brokers are configured.
type Nop struct{}

func (Nop) Publish(context.Context, Outcome) error { return nil }
