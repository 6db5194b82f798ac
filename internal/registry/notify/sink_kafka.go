package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// kafkaEvent is the wire shape produced to the topic.
type kafkaEvent struct {
	Sequence      uint64    `json:"sequence"`
	Type          string    `json:"type"`
	ID            string    `json:"id"`
	NewController string    `json:"new_controller,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// KafkaSink produces events to a kafka topic, keyed by identifier so all
// events for one DID land on one partition in order.
type KafkaSink struct {
	client *kgo.Client
	topic  string
}

// NewKafkaSink connects to the brokers. The topic is assumed provisioned.
func NewKafkaSink(brokers []string, topic string) (*KafkaSink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	return &KafkaSink{client: client, topic: topic}, nil
}

func (s *KafkaSink) Append(ctx context.Context, event Event) error {
	payload := kafkaEvent{
		Sequence:  event.Sequence,
		Type:      string(event.Type),
		ID:        event.ID.Hex(),
		Timestamp: event.Timestamp.UTC(),
	}
	if event.Type == EventControllerChanged {
		payload.NewController = event.NewController.Hex()
	}
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	record := &kgo.Record{
		Topic: s.topic,
		Key:   event.ID.Bytes(),
		Value: value,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", s.topic, err)
	}
	return nil
}

// Close flushes buffered records and releases the client.
func (s *KafkaSink) Close() {
	s.client.Close()
}
