// Package broadcast defines the port for pushing live alignment events to
// connected clients.
package broadcast

import "context"

// Event types sent to live clients.
const (
	EventVerifyStarted   = "alignment.started"
	EventVerifyCompleted = "alignment.completed"
	EventVerifyFailed    = "alignment.failed"
)

// VerifyStartedEvent announces a verification that passed validation.
type VerifyStartedEvent struct {
	Repository string `json:"repository"`
	Project    string `json:"project,omitempty"`
	MaxTasks   int    `json:"max_tasks"`
}

// Broadcaster sends real-time events to connected clients.
type Broadcaster interface {
	// BroadcastEvent sends a typed event to the clients following
	// repository. An empty repository reaches every client.
	BroadcastEvent(ctx context.Context, repository, eventType string, payload any)
}
