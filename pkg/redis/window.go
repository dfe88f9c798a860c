package redis

import (
	"context"
	"time"
)

// Window is the state of one fixed rate window after counting a request.
type Window struct {
	Allowed    bool
	Count      int64
	RetryAfter time.Duration
}

// Allow counts one request against scope. The window starts with the first request and
// lasts for window.
func (c *Client) Allow(ctx context.Context, scope string, limit int64, window time.Duration) (Window, error) {
	if c == nil || c.cmd == nil {
		return Window{}, errNotConnected
	}
	k := key("rate", scope)
	count, err := c.cmd.Incr(ctx, k).Result()
	if err != nil {
		return Window{}, err
	}
	remaining := window
	if count == 1 {
		if err := c.cmd.Expire(ctx, k, window).Err(); err != nil {
			return Window{}, err
		}
	} else if ttl, err := c.cmd.PTTL(ctx, k).Result(); err != nil {
		return Window{}, err
	} else if ttl > 0 {
		remaining = ttl
	} else if err := c.cmd.Expire(ctx, k, window).Err(); err != nil {
		// a key left without expiry would block the scope forever
		return Window{}, err
	}
	return Window{Allowed: count <= limit, Count: count, RetryAfter: remaining}, nil
}
