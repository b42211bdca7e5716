package kafka

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/angelmondragon/foodops-backend/pkg/config"
	"github.com/angelmondragon/foodops-backend/pkg/logger"
	"github.com/angelmondragon/foodops-backend/pkg/outbox"
)

const (
	defaultHandlerAttempts = 5
	defaultRetryBackoff    = 500 * time.Millisecond
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Subscriber consumes a topic as part of a consumer group. A message is only
// committed after the handler succeeds or its retries are exhausted, so a
// crash mid-handler redelivers it.
type Subscriber struct {
	reader      messageReader
	logg        *logger.Logger
	maxAttempts int
	backoff     time.Duration
}

// NewSubscriber joins groupID on the configured domain topic.
func NewSubscriber(cfg config.KafkaConfig, groupID string, logg *logger.Logger) (*Subscriber, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if groupID == "" {
		return nil, errors.New("kafka consumer group is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.DomainTopic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return newSubscriber(reader, logg), nil
}

func newSubscriber(reader messageReader, logg *logger.Logger) *Subscriber {
	return &Subscriber{
		reader:      reader,
		logg:        logg,
		maxAttempts: defaultHandlerAttempts,
		backoff:     defaultRetryBackoff,
	}
}

// Receive implements outbox.Subscriber.
func (s *Subscriber) Receive(ctx context.Context, handler outbox.Handler) error {
	for {
		msg, err := s.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("fetch kafka message: %w", err)
		}

		delivery := fromKafkaMessage(msg)
		if err := s.handleWithRetry(ctx, handler, delivery); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"delivery_id": delivery.ID,
				"event_type":  delivery.Attributes[outbox.AttrEventType],
				"event_id":    delivery.Attributes[outbox.AttrEventID],
			})
			s.logg.Error(logCtx, "kafka handler exhausted retries; skipping message", err)
		}

		if err := s.reader.CommitMessages(ctx, msg); err != nil {
			return fmt.Errorf("commit kafka message: %w", err)
		}
	}
}

func (s *Subscriber) handleWithRetry(ctx context.Context, handler outbox.Handler, delivery outbox.Delivery) error {
	var err error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err = handler(ctx, delivery); err == nil {
			return nil
		}
		if attempt == s.maxAttempts {
			break
		}
		timer := time.NewTimer(s.backoff * time.Duration(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

// Close leaves the consumer group.
func (s *Subscriber) Close() error {
	return s.reader.Close()
}

func fromKafkaMessage(msg kafka.Message) outbox.Delivery {
	attrs := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		attrs[h.Key] = string(h.Value)
	}
	return outbox.Delivery{
		ID:         msg.Topic + "/" + strconv.Itoa(msg.Partition) + "/" + strconv.FormatInt(msg.Offset, 10),
		Data:       msg.Value,
		Attributes: attrs,
	}
}
