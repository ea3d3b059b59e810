package pubsub

import (
	"testing"

	"github.com/angelmondragon/pizzeria-backend/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	c := &Client{projectID: "pizza-project"}
	if got := c.topicResourceName("orders"); got != "projects/pizza-project/topics/orders" {
		t.Fatalf("unexpected topic name %q", got)
	}
	full := "projects/other/topics/events"
	if got := c.topicResourceName(full); got != full {
		t.Fatalf("full resource names should pass through, got %q", got)
	}
	if got := c.topicResourceName("  "); got != "" {
		t.Fatalf("blank topic should resolve to empty, got %q", got)
	}
	if got := (&Client{}).topicResourceName("orders"); got != "" {
		t.Fatalf("missing project should resolve to empty, got %q", got)
	}
}

func TestTopicNamesSkipsBlank(t *testing.T) {
	names := topicNames(config.PubSubConfig{OrdersTopic: "orders", DomainTopic: " "})
	if len(names) != 1 || names[0] != "orders" {
		t.Fatalf("unexpected topics %v", names)
	}
}

func TestNilClientPublisher(t *testing.T) {
	var c *Client
	if c.Publisher("orders") != nil {
		t.Fatal("nil client should not return a publisher")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("nil close: %v", err)
	}
}
