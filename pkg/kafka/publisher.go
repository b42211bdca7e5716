package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/multierr"

	"github.com/angelmondragon/foodops-backend/pkg/config"
	"github.com/angelmondragon/foodops-backend/pkg/outbox"
)

const defaultWriteTimeout = 10 * time.Second

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes outbox messages to Kafka topics. Messages are keyed by
// aggregate id so one order's events stay on one partition.
type Publisher struct {
	brokers      []string
	writeTimeout time.Duration
	newWriter    func(topic string) messageWriter

	mu      sync.Mutex
	writers map[string]messageWriter
}

// NewPublisher builds a publisher for the configured brokers.
func NewPublisher(cfg config.KafkaConfig) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	p := &Publisher{
		brokers:      cfg.Brokers,
		writeTimeout: timeout,
		writers:      make(map[string]messageWriter),
	}
	p.newWriter = func(topic string) messageWriter {
		return &kafka.Writer{
			Addr:         kafka.TCP(p.brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			WriteTimeout: p.writeTimeout,
		}
	}
	return p, nil
}

// Publish implements outbox.Publisher.
func (p *Publisher) Publish(ctx context.Context, topic string, msg outbox.Message) error {
	if topic == "" {
		return errors.New("kafka topic is required")
	}
	writer := p.writer(topic)
	return writer.WriteMessages(ctx, toKafkaMessage(msg))
}

func (p *Publisher) writer(topic string) messageWriter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if w, ok := p.writers[topic]; ok {
		return w
	}
	w := p.newWriter(topic)
	p.writers[topic] = w
	return w
}

// Ping dials the first reachable broker.
func (p *Publisher) Ping(ctx context.Context) error {
	var errs error
	for _, broker := range p.brokers {
		conn, err := kafka.DialContext(ctx, "tcp", broker)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("dial %s: %w", broker, err))
			continue
		}
		return conn.Close()
	}
	return errs
}

// Close flushes and closes every writer.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var errs error
	for topic, w := range p.writers {
		errs = multierr.Append(errs, w.Close())
		delete(p.writers, topic)
	}
	return errs
}

func toKafkaMessage(msg outbox.Message) kafka.Message {
	headers := make([]kafka.Header, 0, len(msg.Attributes))
	for k, v := range msg.Attributes {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	return kafka.Message{
		Key:     []byte(msg.Key),
		Value:   msg.Data,
		Headers: headers,
	}
}
