package events

import (
	"context"
	"encoding/json"
	"time"
)

// Event is the envelope published for domain changes.
type Event struct {
	Type       string          `json:"type"`
	ID         string          `json:"id"`
	OccurredAt time.Time       `json:"occurredAt"`
	Version    int             `json:"version"`
	Payload    json.RawMessage `json:"payload"`
}

// Publisher sends domain events to a message backend.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// NewEvent wraps payload in a versioned envelope.
func NewEvent(eventType, id string, at time.Time, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: eventType, ID: id, OccurredAt: at.UTC(), Version: 1, Payload: raw}, nil
}

// Encode returns the JSON representation of an event.
func Encode(ev Event) ([]byte, error) {
	return json.Marshal(ev)
}

// Decode parses a JSON payload into an Event.
func Decode(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, err
	}
	return ev, nil
}

// Noop discards every event.
type Noop struct{}

func (Noop) Publish(context.Context, string, any) error { return nil }
