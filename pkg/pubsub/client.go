package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"github.com/angelmondragon/fincore/pkg/config"
	"github.com/angelmondragon/fincore/pkg/logger"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var errNotInitialized = errors.New("pubsub client not initialized")

// Client owns the Pub/Sub connection shared by publishers and subscribers.
// Topics and subscriptions are provisioned outside the services; the client
// only verifies they exist.
type Client struct {
	client    *pubsub.Client
	projectID string
	cfg       config.PubSubConfig
}

func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errors.New("gcp project id is required")
	}
	ps, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "project", projectID), "pubsub client initialized")
	}
	return &Client{client: ps, projectID: projectID, cfg: cfg}, nil
}

// Ping checks that every configured event topic exists.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotInitialized
	}
	for _, topic := range nonBlank(c.cfg.LedgerTopic, c.cfg.OrdersTopic, c.cfg.RiskTopic) {
		_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: c.resourceName("topics", topic)})
		if err := describe("topic", topic, err); err != nil {
			return err
		}
	}
	return nil
}

// AnalyticsSubscription returns the subscriber feeding the analytics worker
// after confirming the subscription exists.
func (c *Client) AnalyticsSubscription(ctx context.Context) (*pubsub.Subscriber, error) {
	if c == nil || c.client == nil {
		return nil, errNotInitialized
	}
	name := strings.TrimSpace(c.cfg.AnalyticsSubscription)
	if name == "" {
		return nil, errors.New("analytics subscription is not configured")
	}
	full := c.resourceName("subscriptions", name)
	_, err := c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: full})
	if err := describe("subscription", name, err); err != nil {
		return nil, err
	}
	return c.client.Subscriber(full), nil
}

// Publisher returns a handle for topic, given as an ID or a full resource name.
func (c *Client) Publisher(topic string) *pubsub.Publisher {
	if c == nil || c.client == nil || strings.TrimSpace(topic) == "" {
		return nil
	}
	return c.client.Publisher(c.resourceName("topics", topic))
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// resourceName expands an ID to projects/<project>/<kind>/<id>. Names that
// are already fully qualified pass through.
func (c *Client) resourceName(kind, name string) string {
	name = strings.TrimSpace(name)
	if strings.HasPrefix(name, "projects/") && strings.Contains(name, "/"+kind+"/") {
		return name
	}
	return "projects/" + c.projectID + "/" + kind + "/" + name
}

func describe(kind, name string, err error) error {
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("%s %q does not exist", kind, name)
	default:
		return fmt.Errorf("checking %s %q: %w", kind, name, err)
	}
}

func nonBlank(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
