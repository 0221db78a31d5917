package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	failures int
	calls    int
	msgs     []kafka.Message
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("broker unavailable")
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func TestKafkaPublisherPublish(t *testing.T) {
	w := &fakeWriter{failures: 1}
	p := &KafkaPublisher{Writer: w, MaxElapsedTime: 5 * time.Second}

	occurred := time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)
	err := p.Publish(context.Background(), Outcome{
		RequestID:   "req-1",
		OrderNo:     "Z100",
		Status:      "delivered",
		Result:      ResultForwarded,
		Destination: "+919876543210",
		OccurredAt:  occurred,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, w.calls)
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "Z100", string(w.msgs[0].Key))

	var got Outcome
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, ResultForwarded, got.Result)
	assert.Equal(t, "delivered", got.Status)
	assert.True(t, occurred.Equal(got.OccurredAt))
}

func TestKafkaPublisherKeysByRequestWithoutOrder(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{Writer: w, MaxElapsedTime: time.Second}

	require.NoError(t, p.Publish(context.Background(), Outcome{RequestID: "req-2", Result: ResultRejected}))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "req-2", string(w.msgs[0].Key))
}

func TestKafkaPublisherGivesUp(t *testing.T) {
	w := &fakeWriter{failures: 1 << 30}
	p := &KafkaPublisher{Writer: w, MaxElapsedTime: 50 * time.Millisecond}

	err := p.Publish(context.Background(), Outcome{RequestID: "req-3", Result: ResultFailed})
	require.Error(t, err)
	assert.GreaterOrEqual(t, w.calls, 1)
}
