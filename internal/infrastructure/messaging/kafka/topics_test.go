package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/AIComply/internal/infrastructure/monitoring/logging"
)

type mockKafkaConn struct {
	createFunc func(topics ...kafka.TopicConfig) error
	readFunc   func(topics ...string) ([]kafka.Partition, error)
	created    []kafka.TopicConfig
}

func (m *mockKafkaConn) CreateTopics(topics ...kafka.TopicConfig) error {
	m.created = append(m.created, topics...)
	if m.createFunc != nil {
		return m.createFunc(topics...)
	}
	return nil
}

func (m *mockKafkaConn) ReadPartitions(topics ...string) ([]kafka.Partition, error) {
	if m.readFunc != nil {
		return m.readFunc(topics...)
	}
	return nil, nil
}

func (m *mockKafkaConn) Close() error { return nil }

func newTestTopicManager(conn ConnInterface) *TopicManager {
	return &TopicManager{conn: conn, logger: logging.NewNopLogger()}
}

func TestTopicManager_EnsureDefaultTopics(t *testing.T) {
	conn := &mockKafkaConn{}
	m := newTestTopicManager(conn)

	require.NoError(t, m.EnsureTopics(context.Background(), DefaultTopics()))
	require.Len(t, conn.created, 2)
	assert.Equal(t, "certificate.issued", conn.created[0].Topic)
	assert.Equal(t, TopicDeadLetterCertificate, conn.created[1].Topic)
	assert.Contains(t, conn.created[0].ConfigEntries, kafka.ConfigEntry{ConfigName: "retention.ms", ConfigValue: "31536000000"})
}

func TestTopicManager_CreateTopic_AlreadyExists(t *testing.T) {
	conn := &mockKafkaConn{createFunc: func(...kafka.TopicConfig) error {
		return errors.New("topic already exists")
	}}
	err := newTestTopicManager(conn).CreateTopic(context.Background(), TopicSpec{Name: "t", NumPartitions: 1, ReplicationFactor: 1})
	assert.NoError(t, err)
}

func TestTopicManager_CreateTopic_ExistsAfterError(t *testing.T) {
	conn := &mockKafkaConn{
		createFunc: func(...kafka.TopicConfig) error { return errors.New("timeout") },
		readFunc: func(...string) ([]kafka.Partition, error) {
			return []kafka.Partition{{Topic: "t"}}, nil
		},
	}
	err := newTestTopicManager(conn).CreateTopic(context.Background(), TopicSpec{Name: "t", NumPartitions: 1, ReplicationFactor: 1})
	assert.NoError(t, err)
}

func TestTopicManager_CreateTopic_Failure(t *testing.T) {
	conn := &mockKafkaConn{createFunc: func(...kafka.TopicConfig) error { return errors.New("not controller") }}
	err := newTestTopicManager(conn).CreateTopic(context.Background(), TopicSpec{Name: "t", NumPartitions: 1, ReplicationFactor: 1})
	assert.Error(t, err)
}

func TestTopicManager_CreateTopic_Invalid(t *testing.T) {
	m := newTestTopicManager(&mockKafkaConn{})
	assert.Error(t, m.CreateTopic(context.Background(), TopicSpec{}))
	assert.Error(t, m.CreateTopic(context.Background(), TopicSpec{Name: "t"}))
}

func TestNewTopicManager_NoBrokers(t *testing.T) {
	_, err := NewTopicManager(nil, nil)
	assert.Error(t, err)
}
