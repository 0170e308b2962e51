package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stevedao0/newcm-sub000/internal/common/cnst"
)

func newLocal(t *testing.T) *LocalBackend {
	t.Helper()
	b, err := NewLocalBackend(zap.NewNop(), t.TempDir())
	require.NoError(t, err)
	return b
}

func TestLocalBackend_MetaInitialized(t *testing.T) {
	tmp := t.TempDir()
	b, err := NewLocalBackend(zap.NewNop(), tmp)
	require.NoError(t, err)

	meta := b.Meta()
	assert.Equal(t, localSchemaVersion, meta.SchemaVersion)
	assert.NotEmpty(t, meta.DeviceID)

	// Reopening the same directory keeps the device id.
	b2, err := NewLocalBackend(zap.NewNop(), tmp)
	require.NoError(t, err)
	assert.Equal(t, meta.DeviceID, b2.Meta().DeviceID)
}

func TestLocalBackend_GetAllUninitialized(t *testing.T) {
	b := newLocal(t)
	recs, err := b.GetAll(context.Background(), cnst.CollectionContracts)
	assert.NoError(t, err)
	assert.Empty(t, recs)

	_, err = b.GetAll(context.Background(), "invoices")
	assert.ErrorIs(t, err, cnst.ErrUnknownCollection)
}

func TestLocalBackend_CreateAssignsIdentity(t *testing.T) {
	b := newLocal(t)
	ctx := context.Background()

	rec, err := b.Create(ctx, cnst.CollectionContracts, Record{"contractNo": "HD001"})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID())
	assert.NotEmpty(t, rec.String("createdAt"))
	assert.NotEmpty(t, rec.String("updatedAt"))

	all, err := b.GetAll(ctx, cnst.CollectionContracts)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "HD001", all[0].String("contractNo"))
}

func TestLocalBackend_UpdateMergesAndRejectsMissing(t *testing.T) {
	b := newLocal(t)
	ctx := context.Background()

	rec, err := b.Create(ctx, cnst.CollectionContracts, Record{"contractNo": "HD001", "status": "active"})
	require.NoError(t, err)

	merged, err := b.Update(ctx, cnst.CollectionContracts, rec.ID(), Record{"status": "expired"})
	require.NoError(t, err)
	assert.Equal(t, "expired", merged.String("status"))
	assert.Equal(t, "HD001", merged.String("contractNo"))
	assert.Equal(t, rec.ID(), merged.ID())
	assert.Equal(t, rec.String("createdAt"), merged.String("createdAt"))

	_, err = b.Update(ctx, cnst.CollectionContracts, "nonexistent-id", Record{"status": "x"})
	assert.ErrorIs(t, err, cnst.ErrNotFound)
}

func TestLocalBackend_DeleteMissingIdReturnsFalse(t *testing.T) {
	b := newLocal(t)
	ctx := context.Background()

	rec, err := b.Create(ctx, cnst.CollectionPartners, Record{"tenDonVi": "VTV"})
	require.NoError(t, err)

	ok, err := b.Delete(ctx, cnst.CollectionPartners, "nonexistent-id")
	assert.NoError(t, err)
	assert.False(t, ok)

	all, _ := b.GetAll(ctx, cnst.CollectionPartners)
	assert.Len(t, all, 1)

	ok, err = b.Delete(ctx, cnst.CollectionPartners, rec.ID())
	assert.NoError(t, err)
	assert.True(t, ok)

	all, _ = b.GetAll(ctx, cnst.CollectionPartners)
	assert.Empty(t, all)
}

func TestLocalBackend_BulkCreateAndStats(t *testing.T) {
	b := newLocal(t)
	ctx := context.Background()

	stored, err := b.BulkCreate(ctx, cnst.CollectionWorks, []Record{
		{"code": "TP01", "title": "Work 1"},
		{"code": "TP02", "title": "Work 2"},
	})
	require.NoError(t, err)
	assert.Len(t, stored, 2)
	assert.NotEqual(t, stored[0].ID(), stored[1].ID())

	stats, err := b.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats[cnst.CollectionWorks])
	assert.Equal(t, int64(0), stats[cnst.CollectionContracts])
}

func TestLocalBackend_BulkCreateEmptyBatch(t *testing.T) {
	b := newLocal(t)
	ctx := context.Background()

	stored, err := b.BulkCreate(ctx, cnst.CollectionWorks, nil)
	require.NoError(t, err)
	assert.Empty(t, stored)
	assert.NoFileExists(t, b.collectionPath(cnst.CollectionWorks))

	// The collection name is still validated on an empty batch.
	_, err = b.BulkCreate(ctx, "invoices", nil)
	assert.ErrorIs(t, err, cnst.ErrUnknownCollection)
}

func TestLocalBackend_BulkUpdateSkipsMissing(t *testing.T) {
	b := newLocal(t)
	ctx := context.Background()

	rec, err := b.Create(ctx, cnst.CollectionWorks, Record{"code": "TP01", "title": "Work 1"})
	require.NoError(t, err)

	// Batch with only a missing id: nothing written, collection unchanged.
	written, err := b.BulkUpdate(ctx, cnst.CollectionWorks, []Record{{"id": "missing", "title": "x"}})
	require.NoError(t, err)
	assert.Empty(t, written)

	all, _ := b.GetAll(ctx, cnst.CollectionWorks)
	require.Len(t, all, 1)
	assert.Equal(t, "Work 1", all[0].String("title"))

	// Mixed batch: the known id is merged, the unknown one skipped.
	written, err = b.BulkUpdate(ctx, cnst.CollectionWorks, []Record{
		{"id": rec.ID(), "title": "Renamed"},
		{"id": "missing", "title": "x"},
	})
	require.NoError(t, err)
	require.Len(t, written, 1)
	assert.Equal(t, "Renamed", written[0].String("title"))
}

func TestLocalBackend_CorruptCollectionTreatedAsEmpty(t *testing.T) {
	tmp := t.TempDir()
	b, err := NewLocalBackend(zap.NewNop(), tmp)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(tmp, "contracts.json"), []byte("{not json"), 0644))

	recs, err := b.GetAll(context.Background(), cnst.CollectionContracts)
	assert.NoError(t, err)
	assert.Empty(t, recs)

	// Writes still work after the corrupt read.
	_, err = b.Create(context.Background(), cnst.CollectionContracts, Record{"contractNo": "HD002"})
	assert.NoError(t, err)
}

// Two backends over the same directory behave like two browser tabs sharing
// storage: whole-collection writes race with last-write-wins and no conflict
// detection. This is a known gap, pinned here so a change in behavior shows up.
func TestLocalBackend_TwoWritersLastWriteWins(t *testing.T) {
	tmp := t.TempDir()
	a, err := NewLocalBackend(zap.NewNop(), tmp)
	require.NoError(t, err)
	bb, err := NewLocalBackend(zap.NewNop(), tmp)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = a.Create(ctx, cnst.CollectionChannels, Record{"channelID": "CH01", "name": "Channel 1"})
	require.NoError(t, err)

	// Writer B read the collection before A's write landed in its cache-free
	// model; its create rewrites the file from its own read of disk, so both
	// records survive here. The race shows with stale in-memory copies only.
	_, err = bb.Create(ctx, cnst.CollectionChannels, Record{"channelID": "CH02", "name": "Channel 2"})
	require.NoError(t, err)

	all, err := a.GetAll(ctx, cnst.CollectionChannels)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
