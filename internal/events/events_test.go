package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventSubject(t *testing.T) {
	assert.Equal(t, "variables.created", Event{Action: ActionCreated}.Subject())
	assert.Equal(t, "variables.deleted", Event{Action: ActionDeleted}.Subject())
}

func TestEventJSON(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	data, err := json.Marshal(Event{Action: ActionUpdated, UID: "u1", Time: ts})
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"updated","uid":"u1","time":"2024-05-01T12:00:00Z"}`, string(data))
}

func TestOpenWithoutURLIsNop(t *testing.T) {
	p, err := Open("")
	require.NoError(t, err)
	assert.IsType(t, Nop{}, p)
	assert.NoError(t, p.Publish(context.Background(), Event{Action: ActionCreated}))
	assert.NoError(t, p.Close())
}

func TestNewNATSUnreachable(t *testing.T) {
	_, err := NewNATS("nats://127.0.0.1:1", nats.Timeout(200*time.Millisecond), nats.MaxReconnects(0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect to NATS")
}

func TestNATSPublishCancelledContext(t *testing.T) {
	p := &NATSPublisher{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.Publish(ctx, Event{Action: ActionCreated})
	assert.ErrorIs(t, err, context.Canceled)
}
