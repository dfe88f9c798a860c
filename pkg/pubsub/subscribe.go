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

	"github.com/angelmondragon/profilemedia-backend/pkg/config"
)

// BlobCleanupSubscription returns the subscriber the blob cleanup worker reads from.
func (c *Client) BlobCleanupSubscription() *pubsub.Subscriber {
	if c == nil || c.gcp == nil {
		return nil
	}
	name := c.qualify(subscriptionsCollection, c.cfg.BlobCleanupSubscription)
	if name == "" {
		return nil
	}
	return c.gcp.Subscriber(name)
}

func (c *Client) checkSubscriptions(ctx context.Context) error {
	names := consumedSubscriptions(c.cfg)
	if len(names) == 0 {
		return errors.New("pubsub subscription name is required")
	}
	for _, name := range names {
		_, err := c.gcp.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{
			Subscription: c.qualify(subscriptionsCollection, name),
		})
		switch {
		case status.Code(err) == codes.NotFound:
			return fmt.Errorf("subscription %q does not exist", name)
		case err != nil:
			return fmt.Errorf("checking subscription %q: %w", name, err)
		}
	}
	return nil
}

func consumedSubscriptions(cfg config.PubSubConfig) []string {
	var names []string
	if name := strings.TrimSpace(cfg.BlobCleanupSubscription); name != "" {
		names = append(names, name)
	}
	return names
}
