package ws

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Event type constants for WebSocket messages.
const (
	EventSessionState = "session.state"
	EventIndicator    = "bootstrap.indicator"
	EventTheme        = "theme.applied"
	EventTenant       = "tenant.resolved"
)

// IndicatorEvent is broadcast when the loading indicator changes.
type IndicatorEvent struct {
	State string `json:"state"`
}

// TenantEvent is broadcast when the tenant id becomes known or changes.
type TenantEvent struct {
	TenantID string `json:"tenant_id"`
}

func encode(eventType string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Type: eventType, Payload: data})
}

// BroadcastEvent is a convenience method that marshals a typed event and broadcasts it.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}

// Forward broadcasts every value received on ch as eventType, mapped
// through fn, until ch closes or ctx is done.
func Forward[T any](ctx context.Context, h *Hub, eventType string, ch <-chan T, fn func(T) any) {
	for {
		select {
		case <-ctx.Done():
			return
		case v, ok := <-ch:
			if !ok {
				return
			}
			h.BroadcastEvent(ctx, eventType, fn(v))
		}
	}
}
