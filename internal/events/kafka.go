package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
)

// KafkaPublisher writes events to a topic keyed by product ID, so the
// movements of one product stay ordered within a partition.
type KafkaPublisher struct {
	w *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.ProductID),
		Value: body,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(e.Type)},
		},
	})
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

// handlerAttempts bounds how often one event is offered to the handler.
const handlerAttempts = 3

var handlerRetryWait = 500 * time.Millisecond

// deliver offers e to handle until it succeeds, handlerAttempts runs out or
// ctx is done, and returns the last error.
func deliver(ctx context.Context, e Event, handle func(context.Context, Event) error, wait time.Duration) error {
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(wait), handlerAttempts-1), ctx)
	return backoff.Retry(func() error { return handle(ctx, e) }, b)
}

// ConsumeKafka reads the topic as part of group and passes each event to
// handle until ctx is cancelled. A failing handler is retried a few times;
// after that the event is logged and committed so one bad event cannot stall
// the partition. Undecodable messages are logged and committed.
func ConsumeKafka(ctx context.Context, brokers []string, group, topic string, handle func(context.Context, Event) error) error {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  group,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer r.Close()

	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}
		e, err := Decode(m.Value)
		if err != nil {
			log.Printf("events: skipping message at offset %d: %v", m.Offset, err)
		} else if err := deliver(ctx, e, handle, handlerRetryWait); err != nil {
			if ctx.Err() != nil {
				// Uncommitted; redelivered to the group after restart.
				return nil
			}
			log.Printf("events: dropping %s after %d attempts: %v", e.ID, handlerAttempts, err)
		}
		if err := r.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			log.Printf("events: commit offset %d: %v", m.Offset, err)
		}
	}
}
