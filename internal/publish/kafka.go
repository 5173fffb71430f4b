package publish

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/segmentio/kafka-go"

	"github.com/tejusbharadwaj/energyflow/internal/models"
)

var (
	errKafkaNoTopic   = errors.New("publish: kafka topic must not be empty")
	errKafkaNoBrokers = errors.New("publish: at least one kafka broker is required")
)

type kafkaMessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink appends FlowRecords to a Kafka topic, keyed by period.
type KafkaSink struct {
	writer kafkaMessageWriter
	topic  string
}

// NewKafkaSink creates a sink writing to topic on brokers.
func NewKafkaSink(brokers []string, topic string) (*KafkaSink, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, errKafkaNoTopic
	}
	if len(brokers) == 0 {
		return nil, errKafkaNoBrokers
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: false,
	}
	return newKafkaSinkWithWriter(writer, topic), nil
}

func newKafkaSinkWithWriter(writer kafkaMessageWriter, topic string) *KafkaSink {
	return &KafkaSink{writer: writer, topic: topic}
}

func (s *KafkaSink) Name() string { return "kafka" }

// Publish writes rec synchronously.
func (s *KafkaSink) Publish(ctx context.Context, rec models.FlowRecord) error {
	payload, err := Encode(rec)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(rec.Period.Key()),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
			{Key: "granularity", Value: []byte(rec.Period.Granularity)},
		},
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write to %s: %w", s.topic, err)
	}
	return nil
}

// Close flushes pending writes and closes the writer.
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
