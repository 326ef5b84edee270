package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEventEnvelope(t *testing.T) {
	at := time.Date(2026, 1, 30, 22, 0, 0, 0, time.FixedZone("x", 3600))
	ev, err := NewEvent("interview.started", "evt-1", at, map[string]any{"sessionId": "s1"})
	require.NoError(t, err)

	assert.Equal(t, 1, ev.Version)
	assert.Equal(t, time.UTC, ev.OccurredAt.Location())

	data, err := Encode(ev)
	require.NoError(t, err)
	got, err := Decode(data)
	require.NoError(t, err)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(got.Payload, &payload))
	assert.Equal(t, "s1", payload["sessionId"])
	assert.Equal(t, "interview.started", got.Type)
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	require.NoError(t, r.Publish(context.Background(), "a", 1))
	require.NoError(t, r.Publish(context.Background(), "b", 2))
	assert.Equal(t, []string{"a", "b"}, r.Keys())

	r.Err = errors.New("broker down")
	assert.Error(t, r.Publish(context.Background(), "c", 3))
	assert.Len(t, r.Events(), 2)
}

func TestDialAMQPValidatesInput(t *testing.T) {
	_, err := DialAMQP("", "jobprep.events")
	assert.Error(t, err)
	_, err = DialAMQP("amqp://localhost", "amq.default")
	assert.Error(t, err)
}
