// Package kafka publishes audit events to a Kafka topic via franz-go. The
// sink satisfies the audit.Store interface so it can replace or sit beside
// the Postgres outbox; downstream compliance consumers read the topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "veristage/pkg/platform/audit"
)

// DefaultTopic is the audit stream topic unless configured otherwise.
const DefaultTopic = "veristage.audit.events"

// Sink produces audit events to Kafka. Records are keyed by applicant ID so
// one applicant's trail stays ordered within a partition.
type Sink struct {
	client *kgo.Client
	topic  string
}

// wireEvent is the JSON shape placed on the topic. Field names are stable
// consumer contract; do not rename.
type wireEvent struct {
	Category    string    `json:"category"`
	Timestamp   time.Time `json:"timestamp"`
	ApplicantID string    `json:"applicant_id"`
	Action      string    `json:"action"`
	Stage       int       `json:"stage"`
	ActorID     string    `json:"actor_id,omitempty"`
	Detail      string    `json:"detail,omitempty"`
	RequestID   string    `json:"request_id,omitempty"`
	Device      string    `json:"device,omitempty"`
}

// New connects to the given brokers and ensures the topic exists before
// returning. Topic creation is idempotent: an already-existing topic is fine.
func New(ctx context.Context, brokers []string, topic string) (*Sink, error) {
	if topic == "" {
		topic = DefaultTopic
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	if err := ensureTopic(ctx, client, topic); err != nil {
		client.Close()
		return nil, err
	}
	return &Sink{client: client, topic: topic}, nil
}

func ensureTopic(ctx context.Context, client *kgo.Client, topic string) error {
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopic(ctx, 1, -1, nil, topic)
	if err != nil {
		return fmt.Errorf("create audit topic: %w", err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create audit topic %q: %w", topic, resp.Err)
	}
	return nil
}

// Append produces one event and waits for broker acknowledgement. Audit
// delivery is synchronous here; async buffering belongs to the ops publisher
// in front of the store, not to the sink.
func (s *Sink) Append(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	payload, err := json.Marshal(wireEvent{
		Category:    string(event.Category),
		Timestamp:   event.Timestamp,
		ApplicantID: event.ApplicantID.String(),
		Action:      string(event.Action),
		Stage:       event.Stage,
		ActorID:     event.ActorID,
		Detail:      event.Detail,
		RequestID:   event.RequestID,
		Device:      event.Device,
	})
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.ApplicantID.String()),
		Value: payload,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// Close flushes outstanding records and releases the client.
func (s *Sink) Close() {
	s.client.Close()
}
