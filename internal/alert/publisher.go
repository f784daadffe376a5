package alert

import (
	"context"
	"encoding/json"
	"fmt"

	kafkaGo "github.com/segmentio/kafka-go"
)

// Publisher fans low-stock records out to interested consumers. The Postgres
// log stays the system of record; publishing is best effort and happens
// after the submission commits.
type Publisher interface {
	Publish(ctx context.Context, rec Record) error
}

type KafkaPublisher struct {
	writer *kafkaGo.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafkaGo.Writer{
			Addr:     kafkaGo.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafkaGo.LeastBytes{},
		},
	}
}

// Publish sends one record keyed by product, so alerts for the same product
// stay in one partition.
func (p *KafkaPublisher) Publish(ctx context.Context, rec Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("alert: failed to marshal record: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafkaGo.Message{
		Key:   []byte(rec.ProductID.String()),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("alert: failed to publish record for lot %s: %w", rec.LotID, err)
	}

	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
