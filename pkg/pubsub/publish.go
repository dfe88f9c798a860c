package pubsub

import (
	"context"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
)

// ErrNoTopic is returned by Send when the topic name cannot be resolved.
var ErrNoTopic = errors.New("pubsub topic not configured")

// Send publishes msg on topic and blocks until the server assigns it an id.
func (c *Client) Send(ctx context.Context, topic string, msg *pubsub.Message) (string, error) {
	pub := c.publisher(topic)
	if pub == nil {
		return "", fmt.Errorf("%w: %q", ErrNoTopic, topic)
	}
	return pub.Publish(ctx, msg).Get(ctx)
}

func (c *Client) publisher(topic string) *pubsub.Publisher {
	if c == nil || c.gcp == nil {
		return nil
	}
	name := c.qualify(topicsCollection, topic)
	if name == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.publishers[name]; ok {
		return p
	}
	p := c.gcp.Publisher(name)
	c.publishers[name] = p
	return p
}
