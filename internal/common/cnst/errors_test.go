package cnst

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorConstants(t *testing.T) {
	t.Run("storage errors", func(t *testing.T) {
		assert.Equal(t, "record not found", ErrNotFound.Error())
		assert.Equal(t, "unknown collection", ErrUnknownCollection.Error())
		assert.Equal(t, "unknown field name", ErrUnknownField.Error())
		assert.Equal(t, "unknown import flow", ErrUnknownFlow.Error())
	})

	t.Run("notifier errors", func(t *testing.T) {
		assert.Equal(t, "notifier is not a receiver", ErrNotReceiver.Error())
		assert.Equal(t, "notifier is not a sender", ErrNotSender.Error())
	})

	t.Run("sentinels survive wrapping", func(t *testing.T) {
		wrapped := fmt.Errorf("get contracts: %w", ErrNotFound)
		assert.ErrorIs(t, wrapped, ErrNotFound)
	})
}
