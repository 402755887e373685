package ws

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Strob0t/taskalign/internal/port/broadcast"
)

var _ broadcast.Broadcaster = (*Hub)(nil)

// BroadcastEvent marshals a typed event and broadcasts it to the clients
// following repository.
func (h *Hub) BroadcastEvent(ctx context.Context, repository, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.ErrorContext(ctx, "marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, repository, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}
