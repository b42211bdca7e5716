package outbox

import "context"

// Message attribute keys set by the publisher on every delivery.
const (
	AttrEventID       = "event_id"
	AttrEventType     = "event_type"
	AttrAggregateType = "aggregate_type"
	AttrAggregateID   = "aggregate_id"
	AttrCreatedAt     = "created_at"
)

// Message is one outbox row ready for the wire. Key orders deliveries for the
// same aggregate on transports that partition.
type Message struct {
	Key        string
	Data       []byte
	Attributes map[string]string
}

// Publisher pushes messages to a broker topic and blocks until acknowledged.
type Publisher interface {
	Publish(ctx context.Context, topic string, msg Message) error
}

// Delivery is a message handed to a consumer.
type Delivery struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes one delivery. A nil return acknowledges it; an error
// leaves it for redelivery.
type Handler func(ctx context.Context, delivery Delivery) error

// Subscriber streams deliveries to a handler until ctx is done.
type Subscriber interface {
	Receive(ctx context.Context, handler Handler) error
}
