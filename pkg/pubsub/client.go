// Package pubsub is the Google Pub/Sub transport for the outbox.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/foodops-backend/pkg/config"
	"github.com/angelmondragon/foodops-backend/pkg/logger"
)

const (
	kindTopic        = "topics"
	kindSubscription = "subscriptions"
)

var errNoProject = errors.New("pubsub: gcp project id is required")

type Client struct {
	client    *pubsub.Client
	projectID string
	subs      []string

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
}

// NewClient connects and fails fast when a configured subscription is missing,
// so a worker never starts against a half-provisioned project.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errNoProject
	}

	raw, err := pubsub.NewClient(ctx, projectID, credentialOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("pubsub: connect: %w", err)
	}
	c := &Client{
		client:     raw,
		projectID:  projectID,
		subs:       subscriptionNames(cfg),
		publishers: map[string]*pubsub.Publisher{},
	}
	if err := c.Ping(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "project", projectID), "pubsub client ready")
	}
	return c, nil
}

// credentialOptions prefers inline JSON over a key file. With neither set the
// client falls back to application default credentials.
func credentialOptions(gcp config.GCPConfig) []option.ClientOption {
	if raw := strings.TrimSpace(gcp.CredentialsJSON); raw != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(raw))}
	}
	if path := strings.TrimSpace(gcp.ApplicationCredentials); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}

func subscriptionNames(cfg config.PubSubConfig) []string {
	var names []string
	for _, name := range []string{cfg.NotificationSubscription, cfg.AuditSubscription} {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// Ping checks that every configured subscription exists.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("pubsub: client not initialized")
	}
	if len(c.subs) == 0 {
		return errors.New("pubsub: no subscriptions configured")
	}
	for _, name := range c.subs {
		_, err := c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{
			Subscription: c.resourceName(kindSubscription, name),
		})
		switch {
		case status.Code(err) == codes.NotFound:
			return fmt.Errorf("pubsub: subscription %q does not exist", name)
		case err != nil:
			return fmt.Errorf("pubsub: look up subscription %q: %w", name, err)
		}
	}
	return nil
}

// Subscription accepts a bare id or a full resource name.
func (c *Client) Subscription(name string) *pubsub.Subscriber {
	full := c.resourceName(kindSubscription, name)
	if full == "" || c.client == nil {
		return nil
	}
	return c.client.Subscriber(full)
}

// Publisher hands out one cached handle per topic so batching state is shared.
func (c *Client) Publisher(topic string) *pubsub.Publisher {
	full := c.resourceName(kindTopic, topic)
	if full == "" || c.client == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	pub, ok := c.publishers[full]
	if !ok {
		pub = c.client.Publisher(full)
		c.publishers[full] = pub
	}
	return pub
}

// Close flushes every publisher before closing the connection.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	c.mu.Lock()
	for full, pub := range c.publishers {
		pub.Stop()
		delete(c.publishers, full)
	}
	c.mu.Unlock()
	return c.client.Close()
}

// resourceName expands an id to projects/<project>/<kind>/<id>. Names that
// are already fully qualified pass through.
func (c *Client) resourceName(kind, name string) string {
	if c == nil {
		return ""
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, "projects/") && strings.Contains(name, "/"+kind+"/") {
		return name
	}
	if c.projectID == "" {
		return ""
	}
	return "projects/" + c.projectID + "/" + kind + "/" + name
}
