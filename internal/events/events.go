// Package events implements the event bus collaborator: best-effort
// publish of opaque JSON records to a single Kafka topic.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/codec404/Konfig/internal/model"
)

// Emitter publishes EventRecords to the configured topic. Publish returns
// its error; the control plane and the distribution engine discard that
// error without logging it and never propagate it. Shutdown flushes
// pending sends with a bounded timeout.
type Emitter interface {
	Publish(eventType, serviceName, instanceID string, version int64, performedBy string) error
	Shutdown(ctx context.Context) error
}

// KafkaEmitter is the production Emitter, backed by franz-go.
type KafkaEmitter struct {
	client *kgo.Client
	topic  string
	nowFn  func() int64
}

// NewKafka dials the given brokers and returns an Emitter that produces to
// topic. Construction failure is returned to the caller; the distribution
// and control-plane services treat the event bus as optional and continue
// without one if dialing fails (see Initialize() order in api_service.cpp).
func NewKafka(brokers []string, topic string) (*KafkaEmitter, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, err
	}
	return &KafkaEmitter{client: client, topic: topic, nowFn: func() int64 { return time.Now().Unix() }}, nil
}

// Publish builds an EventRecord and produces it asynchronously; send
// failures are swallowed (fire-and-forget, per spec §4.3).
func (e *KafkaEmitter) Publish(eventType, serviceName, instanceID string, version int64, performedBy string) error {
	rec := model.EventRecord{
		EventType:   eventType,
		ServiceName: serviceName,
		InstanceID:  instanceID,
		Version:     version,
		PerformedBy: performedBy,
		Timestamp:   e.nowFn(),
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	e.client.Produce(context.Background(), &kgo.Record{Topic: e.topic, Value: b}, func(*kgo.Record, error) {})
	return nil
}

// Shutdown flushes pending produces with a bounded timeout, matching the
// original's 10s producer->flush(10000) at shutdown.
func (e *KafkaEmitter) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	err := e.client.Flush(ctx)
	e.client.Close()
	return err
}

// NoopEmitter discards every event; used when the event bus collaborator is
// not configured. Publish/Shutdown never fail, matching "events optional".
type NoopEmitter struct{}

func (NoopEmitter) Publish(string, string, string, int64, string) error { return nil }
func (NoopEmitter) Shutdown(context.Context) error                      { return nil }
