package cnst

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsCollection(t *testing.T) {
	for _, name := range Collections {
		assert.True(t, IsCollection(name), name)
	}
	assert.False(t, IsCollection("invoices"))
	assert.False(t, IsCollection(""))
	assert.False(t, IsCollection("Contracts"))
}

func TestMigrationOrderCoversEveryCollection(t *testing.T) {
	assert.ElementsMatch(t, Collections, MigrationOrder)
	assert.Equal(t, CollectionContracts, MigrationOrder[0])
}
