package pubsub

import (
	"fmt"
	"strings"
)

const (
	topicsCollection        = "topics"
	subscriptionsCollection = "subscriptions"
)

func (c *Client) qualify(collection, name string) string {
	return qualify(c.project, collection, name)
}

// qualify expands a short id to projects/<project>/<collection>/<id>. Names that are already
// fully qualified pass through.
func qualify(project, collection, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, "projects/") && strings.Contains(name, "/"+collection+"/") {
		return name
	}
	project = strings.TrimSpace(project)
	if project == "" {
		return ""
	}
	return fmt.Sprintf("projects/%s/%s/%s", project, collection, name)
}
