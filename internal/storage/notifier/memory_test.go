package notifier

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestMemoryNotifier_WatchAndNotify(t *testing.T) {
	n := NewMemoryNotifier(zap.NewNop())
	assert.True(t, n.CanReceive())
	assert.True(t, n.CanSend())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := n.Watch(ctx)
	assert.NoError(t, err)

	assert.NoError(t, n.NotifyUpdate(ctx, NewChangeEvent("contracts", "create")))

	select {
	case got := <-ch:
		if assert.NotNil(t, got) {
			assert.Equal(t, "contracts", got.Collection)
			assert.Equal(t, "create", got.Action)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for notification")
	}
}

func TestMemoryNotifier_CancelClosesChannel(t *testing.T) {
	n := NewMemoryNotifier(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := n.Watch(ctx)
	assert.NoError(t, err)

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("watch channel did not close in time")
	}
}

func TestMemoryNotifier_FullChannelDoesNotBlock(t *testing.T) {
	n := NewMemoryNotifier(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := n.Watch(ctx)
	assert.NoError(t, err)

	// More events than the channel buffers; NotifyUpdate must not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			_ = n.NotifyUpdate(ctx, NewChangeEvent("works", "bulk"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("NotifyUpdate blocked on a full watcher channel")
	}
}
