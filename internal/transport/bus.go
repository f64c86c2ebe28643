// Package transport provides the event transport abstraction used to
// move issue and analysis events between components. The agent's core
// logic depends only on the Bus interface, never on a concrete broker.
package transport

import (
	"context"
	"errors"

	"github.com/repolens/repolens/internal/events"
)

// Well-known topics.
const (
	// TopicIssues carries inbound issue snapshots for analysis
	TopicIssues = "issues"
	// TopicTagsExtracted carries per-issue tag extraction results
	TopicTagsExtracted = "tags.extracted"
	// TopicReports carries generated summary reports
	TopicReports = "reports.generated"
)

// ErrBusClosed is returned when publishing to or subscribing on a
// closed bus.
var ErrBusClosed = errors.New("transport: bus is closed")

// Bus is a minimal at-least-once publish/subscribe transport with
// per-publisher ordering within a topic. Subscribers learn about stream
// termination by the Events channel closing.
type Bus interface {
	// Publish delivers an event to all current subscribers of the topic.
	Publish(ctx context.Context, topic string, event *events.Event) error

	// Subscribe registers a new subscriber for the topic. The returned
	// subscription receives every event published after registration.
	Subscribe(topic string) (*Subscription, error)

	// Close terminates the bus. All subscription channels are closed
	// after any already-published events have been delivered.
	Close() error
}
