// Package events wraps cskr/pubsub with compile-time-typed topics, adapted
// from the sibling agent's domain.Context{Hub *pubsub.PubSub} and its
// hand-rolled generic EventBus (domain/eventbus.go), now carrying task
// lifecycle and safety-lock transitions instead of hardware telemetry.
package events

import "github.com/cskr/pubsub"

// Hub is the process-wide event bus. A single instance is shared via the
// daemon's runtime context, same as the sibling agent's domain.Context.Hub.
type Hub struct {
	ps *pubsub.PubSub
}

// NewHub constructs a Hub with the given per-subscriber channel capacity.
func NewHub(capacity int) *Hub {
	return &Hub{ps: pubsub.New(capacity)}
}

// Topic is a typed topic identifier; the type parameter documents and
// enforces at compile time what payload is published on it.
type Topic[T any] string

// TaskEvent is published whenever a task transitions state.
type TaskEvent struct {
	TaskID string
	Status string
}

// SafetyEvent is published by the dispatcher after every safety-override
// attempt, successful or not; settings reloads do not publish one.
type SafetyEvent struct {
	Locked bool
	Reason string
}

// TaskTopic and SafetyTopic are the two topics the daemon currently
// publishes; the websocket bridge (api/server.go) subscribes to TaskTopic
// only.
const (
	TaskTopic   Topic[TaskEvent]   = "tasks"
	SafetyTopic Topic[SafetyEvent] = "safety"
)

// Publish sends a typed payload to every subscriber of topic.
func Publish[T any](h *Hub, topic Topic[T], payload T) {
	h.ps.Pub(payload, string(topic))
}

// Subscribe returns a channel of typed payloads for topic. The returned
// channel must be read until closed by Unsubscribe to avoid leaking the
// underlying pubsub subscription.
func Subscribe[T any](h *Hub, topic Topic[T]) (<-chan T, func()) {
	raw := h.ps.Sub(string(topic))
	out := make(chan T, cap(raw))
	go func() {
		defer close(out)
		for msg := range raw {
			if typed, ok := msg.(T); ok {
				out <- typed
			}
		}
	}()
	return out, func() { h.ps.Unsub(raw) }
}

// Shutdown tears down the hub, closing every subscriber channel.
func (h *Hub) Shutdown() {
	h.ps.Shutdown()
}
