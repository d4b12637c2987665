package consumer

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/segmentio/kafka-go"
)

// Message is one queued task envelope.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte

	raw kafka.Message
}

// MessageSource delivers messages one at a time. A message is
// acknowledged only through Commit.
type MessageSource interface {
	Fetch(ctx context.Context) (Message, error)
	Commit(ctx context.Context, msg Message) error
	Close() error
}

type KafkaConfig struct {
	Brokers  []string
	Topic    string
	GroupID  string
	ClientID string
}

// KafkaSource reads from a consumer group with explicit commits.
type KafkaSource struct {
	reader *kafka.Reader
}

func NewKafkaSource(cfg KafkaConfig) (*KafkaSource, error) {
	if len(cfg.Brokers) == 0 {
		return nil, eris.New("consumer: no kafka brokers configured")
	}
	if cfg.Topic == "" || cfg.GroupID == "" {
		return nil, eris.New("consumer: kafka topic and group id are required")
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:           cfg.Brokers,
		Topic:             cfg.Topic,
		GroupID:           cfg.GroupID,
		StartOffset:       kafka.FirstOffset,
		CommitInterval:    0,
		SessionTimeout:    60 * time.Second,
		HeartbeatInterval: 3 * time.Second,
		MaxWait:           time.Second,
		Dialer: &kafka.Dialer{
			ClientID:  cfg.ClientID,
			Timeout:   10 * time.Second,
			DualStack: true,
		},
	})
	return &KafkaSource{reader: reader}, nil
}

func (s *KafkaSource) Fetch(ctx context.Context) (Message, error) {
	m, err := s.reader.FetchMessage(ctx)
	if err != nil {
		return Message{}, err
	}
	return Message{
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Key:       m.Key,
		Value:     m.Value,
		raw:       m,
	}, nil
}

func (s *KafkaSource) Commit(ctx context.Context, msg Message) error {
	return s.reader.CommitMessages(ctx, msg.raw)
}

func (s *KafkaSource) Close() error {
	return s.reader.Close()
}
