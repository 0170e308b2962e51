package notifier

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// CompositeNotifier fans a change event out to several notifiers and merges
// their watch channels into one.
type CompositeNotifier struct {
	logger    *zap.Logger
	notifiers []Notifier
	mu        sync.RWMutex
	watchers  map[chan<- *ChangeEvent]struct{}
}

var _ Notifier = (*CompositeNotifier)(nil)

// NewCompositeNotifier creates a new composite notifier
func NewCompositeNotifier(ctx context.Context, logger *zap.Logger, notifiers ...Notifier) *CompositeNotifier {
	n := &CompositeNotifier{
		logger:    logger.Named("notifier.composite"),
		notifiers: notifiers,
		watchers:  make(map[chan<- *ChangeEvent]struct{}),
	}

	if n.CanReceive() {
		go n.watch(ctx)
	}

	return n
}

func (n *CompositeNotifier) watch(ctx context.Context) {
	for _, underlying := range n.notifiers {
		if !underlying.CanReceive() {
			continue
		}

		ch, err := underlying.Watch(ctx)
		if err != nil {
			n.logger.Error("failed to watch underlying notifier", zap.Error(err))
			continue
		}

		go func(ch <-chan *ChangeEvent) {
			for {
				select {
				case event := <-ch:
					if event != nil {
						n.notifyWatchers(event)
					}
				case <-ctx.Done():
					return
				}
			}
		}(ch)
	}
}

func (n *CompositeNotifier) notifyWatchers(event *ChangeEvent) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for watcher := range n.watchers {
		select {
		case watcher <- event:
		default:
			n.logger.Warn("watcher channel is full, skipping notification",
				zap.String("collection", event.Collection))
		}
	}
}

// Watch implements Notifier.Watch
func (n *CompositeNotifier) Watch(ctx context.Context) (<-chan *ChangeEvent, error) {
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
func (n *CompositeNotifier) NotifyUpdate(ctx context.Context, event *ChangeEvent) error {
	var lastErr error
	for _, underlying := range n.notifiers {
		if !underlying.CanSend() {
			continue
		}
		if err := underlying.NotifyUpdate(ctx, event); err != nil {
			lastErr = err
			n.logger.Error("failed to notify update", zap.Error(err))
		}
	}
	return lastErr
}

// CanReceive returns true if any underlying notifier can receive updates
func (n *CompositeNotifier) CanReceive() bool {
	for _, underlying := range n.notifiers {
		if underlying.CanReceive() {
			return true
		}
	}
	return false
}

// CanSend returns true if any underlying notifier can send updates
func (n *CompositeNotifier) CanSend() bool {
	for _, underlying := range n.notifiers {
		if underlying.CanSend() {
			return true
		}
	}
	return false
}
