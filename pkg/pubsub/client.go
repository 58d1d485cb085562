// Package pubsub wraps the Pub/Sub v2 client used to receive funding notifications.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vtuhub/walletledger/pkg/config"
	"github.com/vtuhub/walletledger/pkg/logger"
)

var (
	errProjectIDRequired   = errors.New("gcp project id is required")
	errSubscriptionMissing = errors.New("pubsub funding subscription is required")
	errClientClosed        = errors.New("pubsub client not initialized")
)

// Client owns the Pub/Sub connection and the funding subscription name.
type Client struct {
	client  *pubsub.Client
	funding string
	cfg     config.PubSubConfig
}

// NewClient dials Pub/Sub and, unless SkipAdminCheck is set, confirms the funding
// subscription exists. The emulator is honored through PUBSUB_EMULATOR_HOST.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	funding, err := subscriptionPath(gcp.ProjectID, cfg.FundingSubscription)
	if err != nil {
		return nil, err
	}
	psClient, err := pubsub.NewClient(ctx, strings.TrimSpace(gcp.ProjectID))
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{client: psClient, funding: funding, cfg: cfg}

	if !cfg.SkipAdminCheck {
		if err := c.checkSubscription(ctx); err != nil {
			_ = psClient.Close()
			return nil, err
		}
	}
	logg.Info(logg.WithField(ctx, "subscription", funding), "pubsub client initialized")
	return c, nil
}

func (c *Client) checkSubscription(ctx context.Context) error {
	_, err := c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{
		Subscription: c.funding,
	})
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("subscription %s does not exist", c.funding)
	default:
		return fmt.Errorf("checking subscription %s: %w", c.funding, err)
	}
}

// FundingSubscription returns a subscriber for payment-provider funding notifications,
// with flow control taken from config.
func (c *Client) FundingSubscription() *pubsub.Subscriber {
	if c == nil || c.client == nil {
		return nil
	}
	sub := c.client.Subscriber(c.funding)
	sub.ReceiveSettings = receiveSettings(c.cfg)
	return sub
}

// Ping re-checks the funding subscription. With SkipAdminCheck it only reports client presence.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errClientClosed
	}
	if c.cfg.SkipAdminCheck {
		return nil
	}
	return c.checkSubscription(ctx)
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func receiveSettings(cfg config.PubSubConfig) pubsub.ReceiveSettings {
	settings := pubsub.DefaultReceiveSettings
	if cfg.MaxOutstanding > 0 {
		settings.MaxOutstandingMessages = cfg.MaxOutstanding
	}
	if cfg.NumGoroutines > 0 {
		settings.NumGoroutines = cfg.NumGoroutines
	}
	return settings
}

// subscriptionPath accepts a bare subscription id or a full resource name.
func subscriptionPath(projectID, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errSubscriptionMissing
	}
	if strings.HasPrefix(name, "projects/") && strings.Contains(name, "/subscriptions/") {
		return name, nil
	}
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return "", errProjectIDRequired
	}
	return "projects/" + projectID + "/subscriptions/" + name, nil
}
