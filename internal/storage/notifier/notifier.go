package notifier

import (
	"context"
	"time"
)

// ChangeEvent describes one committed write against a collection. It carries
// no record payload; subscribers are expected to re-fetch.
type ChangeEvent struct {
	Collection string `json:"collection"`
	Action     string `json:"action"` // create, update, delete, bulk
	Timestamp  int64  `json:"timestamp"`
}

// NewChangeEvent builds an event stamped with the current time.
func NewChangeEvent(collection, action string) *ChangeEvent {
	return &ChangeEvent{
		Collection: collection,
		Action:     action,
		Timestamp:  time.Now().Unix(),
	}
}

// Notifier defines the interface for data change notification
type Notifier interface {
	// Watch returns a channel that receives an event for every committed write
	Watch(ctx context.Context) (<-chan *ChangeEvent, error)

	// NotifyUpdate publishes a change event
	NotifyUpdate(ctx context.Context, event *ChangeEvent) error

	// CanReceive returns true if the notifier can receive updates
	CanReceive() bool

	// CanSend returns true if the notifier can send updates
	CanSend() bool
}
