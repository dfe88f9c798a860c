package redis

import "strings"

const namespace = "profilemedia"

// Key joins parts under the service namespace, dropping blanks.
func (c *Client) Key(parts ...string) string {
	return key(parts...)
}

func key(parts ...string) string {
	out := make([]string, 1, len(parts)+1)
	out[0] = namespace
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ":")
}
