// Package events publishes variable change notifications.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// SubjectPrefix is prepended to the action to form the subject.
const SubjectPrefix = "variables."

// Actions.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
	ActionReload  = "reloaded"
)

// Event describes one change to the variable collection.
type Event struct {
	Action  string    `json:"action"`
	UID     string    `json:"uid,omitempty"`
	Name    string    `json:"name,omitempty"`
	ScopeID string    `json:"scope_id,omitempty"`
	OrgID   string    `json:"org_id,omitempty"`
	UserID  string    `json:"user_id,omitempty"`
	Time    time.Time `json:"time"`
}

// Subject returns the subject the event is published on.
func (e Event) Subject() string { return SubjectPrefix + e.Action }

// Publisher sends change events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

func (Nop) Close() error { return nil }

// NATSPublisher publishes events as JSON on a NATS connection.
type NATSPublisher struct {
	mu     sync.Mutex
	nc     *nats.Conn
	closed bool
}

// NewNATS connects to the NATS server at url.
func NewNATS(url string, opts ...nats.Option) (*NATSPublisher, error) {
	opts = append([]nats.Option{
		nats.Name("varman"),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
	}, opts...)
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &NATSPublisher{nc: nc}, nil
}

// Publish sends e on its subject. NATS publishes are asynchronous, so ctx is
// only checked before sending.
func (p *NATSPublisher) Publish(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before publish: %w", err)
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nats.ErrConnectionClosed
	}
	return p.nc.Publish(e.Subject(), data)
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.nc.Drain()
}

// Open returns a NATS publisher when url is set, and Nop otherwise.
func Open(url string) (Publisher, error) {
	if url == "" {
		return Nop{}, nil
	}
	return NewNATS(url)
}
