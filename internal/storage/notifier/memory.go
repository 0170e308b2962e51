package notifier

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// MemoryNotifier implements Notifier with an in-process watcher registry.
// It is the notifier used when the service runs against the local backend
// only, where no other process can observe the data anyway.
type MemoryNotifier struct {
	logger   *zap.Logger
	watchers map[chan<- *ChangeEvent]struct{}
	mu       sync.RWMutex
}

var _ Notifier = (*MemoryNotifier)(nil)

// NewMemoryNotifier creates a new in-process notifier
func NewMemoryNotifier(logger *zap.Logger) *MemoryNotifier {
	return &MemoryNotifier{
		logger:   logger.Named("notifier.memory"),
		watchers: make(map[chan<- *ChangeEvent]struct{}),
	}
}

// Watch implements Notifier.Watch
func (n *MemoryNotifier) Watch(ctx context.Context) (<-chan *ChangeEvent, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	ch := make(chan *ChangeEvent, 10)
	n.watchers[ch] = struct{}{}

	go func() {
		<-ctx.Done()
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.watchers, ch)
		close(ch)
	}()

	return ch, nil
}

// NotifyUpdate implements Notifier.NotifyUpdate
func (n *MemoryNotifier) NotifyUpdate(_ context.Context, event *ChangeEvent) error {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for ch := range n.watchers {
		select {
		case ch <- event:
		default:
			n.logger.Warn("watcher channel is full, skipping notification",
				zap.String("collection", event.Collection))
		}
	}
	return nil
}

// CanReceive returns true if the notifier can receive updates
func (n *MemoryNotifier) CanReceive() bool { return true }

// CanSend returns true if the notifier can send updates
func (n *MemoryNotifier) CanSend() bool { return true }
