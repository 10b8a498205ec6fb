package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/qualee/backend/internal/infrastructure/config"
	"github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafka.Writer the sender needs
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSender publishes messages as JSON records keyed by account ID, leaving
// delivery to whichever downstream consumer owns the messaging channel.
type KafkaSender struct {
	writer messageWriter
}

// NewKafkaWriter builds a writer for the notification topic
func NewKafkaWriter(cfg config.KafkaConfig) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: cfg.WriteTimeout,
		BatchTimeout: 10 * time.Millisecond,
	}
}

// NewKafkaSender creates a KafkaSender around writer
func NewKafkaSender(writer messageWriter) *KafkaSender {
	return &KafkaSender{writer: writer}
}

// Send writes one record
func (s *KafkaSender) Send(ctx context.Context, msg Message) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	record := kafka.Message{
		Key:   []byte(msg.AccountID.String()),
		Value: value,
		Time:  msg.CreatedAt,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(msg.Kind)},
			{Key: "merchant_id", Value: []byte(msg.MerchantID.String())},
		},
	}
	if err := s.writer.WriteMessages(ctx, record); err != nil {
		return fmt.Errorf("write notification record: %w", err)
	}
	return nil
}

// Close flushes and closes the writer
func (s *KafkaSender) Close() error {
	return s.writer.Close()
}
