// Package events mirrors relay events onto NATS subjects.
//
// Live SSE delivery is served by the in-process hub in internal/server; the
// NATS mirror exists for external consumers (e.g. `lr watch --nats`) and is
// best-effort, matching the hub's drop-if-no-subscriber semantics: nothing is
// buffered for subscribers that aren't connected when an event is published.
package events

import (
	"context"
	"strings"
)

const topicPrefix = "leads."

// LeadTopic returns the NATS subject carrying all events for one lead.
func LeadTopic(leadID string) string {
	return topicPrefix + sanitizeToken(leadID)
}

// FirehoseTopic matches every lead's events (NATS multi-segment wildcard).
func FirehoseTopic() string {
	return topicPrefix + ">"
}

// sanitizeToken makes a lead id safe to embed as a NATS subject token.
// Dots and spaces are subject syntax; lead ids are opaque strings from
// callers, so they cannot be trusted to avoid them.
func sanitizeToken(s string) string {
	r := strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_")
	return r.Replace(s)
}

// Publisher is the interface for emitting events to the mirror bus.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// Subscriber receives raw event payloads from the mirror bus.
type Subscriber interface {
	// Subscribe delivers raw event payloads on the returned channel.
	// Call the returned cancel function to unsubscribe and close the channel.
	Subscribe(topic string) (<-chan []byte, func(), error)
	Close() error
}
