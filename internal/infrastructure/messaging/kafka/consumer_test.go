package kafka

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/turtacn/AIComply/pkg/errors"
	"github.com/turtacn/AIComply/pkg/types/common"
)

// mockKafkaReader hands out queued messages, then blocks until cancelled.
type mockKafkaReader struct {
	queue     chan kafka.Message
	mu        sync.Mutex
	committed []int64
}

func newMockReader(msgs ...kafka.Message) *mockKafkaReader {
	r := &mockKafkaReader{queue: make(chan kafka.Message, len(msgs))}
	for _, m := range msgs {
		r.queue <- m
	}
	return r
}

func (m *mockKafkaReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case msg := <-m.queue:
		return msg, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (m *mockKafkaReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range msgs {
		m.committed = append(m.committed, msg.Offset)
	}
	return nil
}

func (m *mockKafkaReader) Close() error { return nil }

func (m *mockKafkaReader) commitCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.committed)
}

type capturePublisher struct {
	mu   sync.Mutex
	msgs []*common.ProducerMessage
}

func (c *capturePublisher) Publish(_ context.Context, msg *common.ProducerMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
	return nil
}

func (c *capturePublisher) published() []*common.ProducerMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*common.ProducerMessage(nil), c.msgs...)
}

func newTestConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		Brokers: []string{"localhost:9092"},
		GroupID: "test-group",
		Topics:  []string{TopicCertificateIssued},
		RetryConfig: RetryConfig{
			MaxRetries:      2,
			RetryBackoff:    time.Millisecond,
			MaxRetryBackoff: 5 * time.Millisecond,
			DeadLetterTopic: TopicDeadLetterCertificate,
		},
	}
}

func runConsumer(t *testing.T, c *Consumer, r *mockKafkaReader, wantCommits int) {
	t.Helper()
	require.NoError(t, c.Start(context.Background()))
	require.Eventually(t, func() bool { return r.commitCount() == wantCommits }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, c.Close())
}

func TestConsumer_HandlesAndCommits(t *testing.T) {
	r := newMockReader(kafka.Message{
		Topic:   TopicCertificateIssued,
		Offset:  7,
		Key:     []byte("CF-2025-ABCDEFGH"),
		Value:   []byte(`{}`),
		Headers: []kafka.Header{{Key: "event_type", Value: []byte("certificate.issued")}},
	})
	c := newConsumer(r, newTestConsumerConfig(), nil, nil)

	var got *common.Message
	c.Subscribe(TopicCertificateIssued, func(_ context.Context, msg *common.Message) error {
		got = msg
		return nil
	})
	var observed atomic.Int32
	c.Observe(func(topic string, err error, _ time.Duration) {
		if topic == TopicCertificateIssued && err == nil {
			observed.Add(1)
		}
	})

	runConsumer(t, c, r, 1)
	require.NotNil(t, got)
	assert.Equal(t, "certificate.issued", got.Headers["event_type"])
	assert.EqualValues(t, 7, got.Offset)
	assert.EqualValues(t, 1, c.Processed())
	assert.EqualValues(t, 1, observed.Load())
}

func TestConsumer_RetriesTransientErrors(t *testing.T) {
	r := newMockReader(kafka.Message{Topic: TopicCertificateIssued, Value: []byte(`{}`)})
	c := newConsumer(r, newTestConsumerConfig(), nil, nil)

	var calls atomic.Int32
	c.Subscribe(TopicCertificateIssued, func(context.Context, *common.Message) error {
		if calls.Add(1) < 3 {
			return apperrors.New(apperrors.ErrCodeServiceUnavailable, "minio down")
		}
		return nil
	})

	runConsumer(t, c, r, 1)
	assert.EqualValues(t, 3, calls.Load())
	assert.EqualValues(t, 1, c.Processed())
	assert.EqualValues(t, 0, c.DeadLettered())
}

func TestConsumer_DeadLettersAfterRetries(t *testing.T) {
	r := newMockReader(kafka.Message{Topic: TopicCertificateIssued, Key: []byte("k"), Value: []byte(`{}`)})
	dlq := &capturePublisher{}
	c := newConsumer(r, newTestConsumerConfig(), dlq, nil)

	var calls atomic.Int32
	c.Subscribe(TopicCertificateIssued, func(context.Context, *common.Message) error {
		calls.Add(1)
		return errors.New("index unavailable")
	})

	runConsumer(t, c, r, 1)
	assert.EqualValues(t, 3, calls.Load())
	require.Len(t, dlq.published(), 1)
	dl := dlq.published()[0]
	assert.Equal(t, TopicDeadLetterCertificate, dl.Topic)
	assert.Equal(t, TopicCertificateIssued, dl.Headers["original_topic"])
	assert.Equal(t, "index unavailable", dl.Headers["error_message"])
	assert.EqualValues(t, 1, c.Failed())
}

func TestConsumer_PoisonMessageSkipsRetries(t *testing.T) {
	r := newMockReader(kafka.Message{Topic: TopicCertificateIssued, Value: []byte(`not json`)})
	dlq := &capturePublisher{}
	c := newConsumer(r, newTestConsumerConfig(), dlq, nil)

	var calls atomic.Int32
	c.Subscribe(TopicCertificateIssued, func(context.Context, *common.Message) error {
		calls.Add(1)
		return apperrors.New(apperrors.ErrCodeSerialization, "bad payload")
	})

	runConsumer(t, c, r, 1)
	assert.EqualValues(t, 1, calls.Load())
	require.Len(t, dlq.published(), 1)
	assert.Equal(t, string(apperrors.ErrCodeSerialization), dlq.published()[0].Headers["error_code"])
}

func TestConsumer_UnknownTopicCommitted(t *testing.T) {
	r := newMockReader(kafka.Message{Topic: "other", Value: []byte(`{}`)})
	c := newConsumer(r, newTestConsumerConfig(), nil, nil)

	runConsumer(t, c, r, 1)
	assert.EqualValues(t, 0, c.Processed())
}

func TestConsumer_StartTwice(t *testing.T) {
	c := newConsumer(newMockReader(), newTestConsumerConfig(), nil, nil)
	require.NoError(t, c.Start(context.Background()))
	assert.ErrorIs(t, c.Start(context.Background()), ErrAlreadyRunning)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
}

func TestValidateConsumerConfig(t *testing.T) {
	assert.NoError(t, ValidateConsumerConfig(newTestConsumerConfig()))

	cfg := newTestConsumerConfig()
	cfg.Brokers = nil
	assert.Error(t, ValidateConsumerConfig(cfg))

	cfg = newTestConsumerConfig()
	cfg.GroupID = ""
	assert.Error(t, ValidateConsumerConfig(cfg))

	cfg = newTestConsumerConfig()
	cfg.Topics = nil
	assert.Error(t, ValidateConsumerConfig(cfg))

	cfg = newTestConsumerConfig()
	cfg.AutoOffsetReset = "middle"
	assert.Error(t, ValidateConsumerConfig(cfg))
}
