package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes KEYS[1] only while it still holds ARGV[1].
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Claim stores value only if key is absent and reports whether this call won.
func (c *Client) Claim(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if c == nil || c.cmd == nil {
		return false, errNotConnected
	}
	return c.cmd.SetNX(ctx, key, value, ttl).Result()
}

// Load returns the value at key. A missing key is reported through found, not err.
func (c *Client) Load(ctx context.Context, key string) (value string, found bool, err error) {
	if c == nil || c.cmd == nil {
		return "", false, errNotConnected
	}
	value, err = c.cmd.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Store overwrites key.
func (c *Client) Store(ctx context.Context, key, value string, ttl time.Duration) error {
	if c == nil || c.cmd == nil {
		return errNotConnected
	}
	return c.cmd.Set(ctx, key, value, ttl).Err()
}

func (c *Client) Forget(ctx context.Context, keys ...string) error {
	if c == nil || c.cmd == nil {
		return errNotConnected
	}
	if len(keys) == 0 {
		return nil
	}
	return c.cmd.Del(ctx, keys...).Err()
}

// ReleaseIfHolder deletes key atomically when its value is still holder.
func (c *Client) ReleaseIfHolder(ctx context.Context, key, holder string) (bool, error) {
	if c == nil || c.cmd == nil {
		return false, errNotConnected
	}
	n, err := releaseScript.Run(ctx, c.cmd, []string{key}, holder).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
