package pubsub

import (
	"context"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/foodops-backend/pkg/outbox"
)

// OutboxPublisher adapts the client to the outbox publisher contract.
func (c *Client) OutboxPublisher() outbox.Publisher {
	return &topicPublisher{client: c}
}

type topicPublisher struct {
	client *Client
}

func (p *topicPublisher) Publish(ctx context.Context, topic string, msg outbox.Message) error {
	pub := p.client.Publisher(topic)
	if pub == nil {
		return fmt.Errorf("publisher not configured for topic %s", topic)
	}
	result := pub.Publish(ctx, toPubSubMessage(msg))
	if result == nil {
		return errors.New("publish result is nil")
	}
	_, err := result.Get(ctx)
	return err
}

func toPubSubMessage(msg outbox.Message) *pubsub.Message {
	attrs := make(map[string]string, len(msg.Attributes))
	for k, v := range msg.Attributes {
		attrs[k] = v
	}
	return &pubsub.Message{Data: msg.Data, Attributes: attrs}
}

// OutboxSubscriber wraps a subscription so consumers stay transport agnostic.
func (c *Client) OutboxSubscriber(name string) (outbox.Subscriber, error) {
	sub := c.Subscription(name)
	if sub == nil {
		return nil, fmt.Errorf("subscription %q not configured", name)
	}
	return &subscriber{sub: sub}, nil
}

type subscriber struct {
	sub *pubsub.Subscriber
}

func (s *subscriber) Receive(ctx context.Context, handler outbox.Handler) error {
	return s.sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if err := handler(ctx, fromPubSubMessage(msg)); err != nil {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func fromPubSubMessage(msg *pubsub.Message) outbox.Delivery {
	return outbox.Delivery{
		ID:         msg.ID,
		Data:       msg.Data,
		Attributes: msg.Attributes,
	}
}
