// Package kafka publishes activity events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/phrazzld/guardianes/internal/events"
	"github.com/segmentio/kafka-go"
)

// Config holds the publisher settings.
type Config struct {
	Brokers []string
	Topic   string
	// WriteTimeout bounds a single publish. Zero means DefaultWriteTimeout.
	WriteTimeout time.Duration
	// BatchTimeout is how long the writer waits to fill a batch before
	// flushing. Zero means DefaultBatchTimeout.
	BatchTimeout time.Duration
}

const (
	// DefaultWriteTimeout is used when Config.WriteTimeout is zero.
	DefaultWriteTimeout = 5 * time.Second
	// DefaultBatchTimeout is used when Config.BatchTimeout is zero. Publishing
	// is synchronous, so every event waits up to this long for its flush.
	DefaultBatchTimeout = 5 * time.Millisecond
)

const headerEventType = "event_type"

var (
	errNilWriter  = errors.New("publisher requires a writer")
	errEmptyTopic = errors.New("kafka topic must not be empty")
	errNoBrokers  = errors.New("at least one kafka broker is required")
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher implements events.EventHandler. Messages are keyed by guardian
// so one guardian's events stay on one partition in emission order.
type Publisher struct {
	writer  messageWriter
	timeout time.Duration
	logger  *slog.Logger
}

var _ events.EventHandler = (*Publisher)(nil)

// NewPublisher creates a Publisher backed by a kafka.Writer.
func NewPublisher(cfg Config, logger *slog.Logger) (*Publisher, error) {
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, errEmptyTopic
	}
	if len(cfg.Brokers) == 0 {
		return nil, errNoBrokers
	}
	return newPublisherWithWriter(newWriter(cfg), cfg.WriteTimeout, logger)
}

func newWriter(cfg Config) *kafka.Writer {
	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = DefaultBatchTimeout
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		Async:                  false,
		BatchTimeout:           batchTimeout,
		AllowAutoTopicCreation: false,
	}
}

func newPublisherWithWriter(writer messageWriter, timeout time.Duration, logger *slog.Logger) (*Publisher, error) {
	if writer == nil {
		return nil, errNilWriter
	}
	if timeout <= 0 {
		timeout = DefaultWriteTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		writer:  writer,
		timeout: timeout,
		logger:  logger.With(slog.String("component", "kafka_publisher")),
	}, nil
}

// HandleEvent writes event as a JSON message.
func (p *Publisher) HandleEvent(ctx context.Context, event *events.Event) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.ID, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:     []byte(strconv.FormatInt(event.GuardianID.Int64(), 10)),
		Value:   value,
		Time:    event.CreatedAt,
		Headers: []kafka.Header{{Key: headerEventType, Value: []byte(event.Type)}},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish event %s: %w", event.ID, err)
	}

	p.logger.DebugContext(ctx, "event published",
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", event.Type))
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
