package kafka

import (
	"context"
	"encoding/json"

	"github.com/turtacn/AIComply/internal/domain/certificate"
	"github.com/turtacn/AIComply/pkg/errors"
	"github.com/turtacn/AIComply/pkg/types/common"
)

// MessagePublisher is the subset of Producer used by event publishers.
type MessagePublisher interface {
	Publish(ctx context.Context, msg *common.ProducerMessage) error
}

// CertificateEventPublisher emits certificate.issued events keyed by
// certificate number, so all events for one certificate share a partition.
type CertificateEventPublisher struct {
	producer MessagePublisher
	topic    string
}

// NewCertificateEventPublisher publishes to topic, or TopicCertificateIssued
// when topic is empty.
func NewCertificateEventPublisher(producer MessagePublisher, topic string) *CertificateEventPublisher {
	if topic == "" {
		topic = TopicCertificateIssued
	}
	return &CertificateEventPublisher{producer: producer, topic: topic}
}

func (p *CertificateEventPublisher) PublishCertificateIssued(ctx context.Context, evt *certificate.IssuedEvent) error {
	if evt == nil || evt.Certificate == nil {
		return errors.New(errors.ErrCodeValidation, "event without certificate")
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal certificate.issued")
	}
	return p.producer.Publish(ctx, &common.ProducerMessage{
		Topic: p.topic,
		Key:   []byte(evt.Certificate.CertificateNumber),
		Value: payload,
		Headers: map[string]string{
			"event_id":         evt.EventID,
			"event_type":       evt.EventType,
			"certificate_type": string(evt.Certificate.CertificateType),
		},
		Timestamp: evt.OccurredAt,
	})
}
