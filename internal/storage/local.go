package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stevedao0/newcm-sub000/internal/common/cnst"
)

// localSchemaVersion is recorded in the meta file alongside the collections.
const localSchemaVersion = 1

// LocalMeta is the service metadata persisted next to the collections.
type LocalMeta struct {
	SchemaVersion int    `json:"schemaVersion"`
	LastSync      string `json:"lastSync,omitempty"`
	DeviceID      string `json:"deviceId"`
}

// LocalBackend persists each collection as a JSON array in its own file
// under baseDir. All operations are synchronous; writes rewrite the whole
// collection file. Two processes sharing the same directory race with
// last-write-wins semantics, matching the original client-storage model.
type LocalBackend struct {
	logger  *zap.Logger
	baseDir string
	meta    LocalMeta
	mu      sync.RWMutex
}

var _ Backend = (*LocalBackend)(nil)

// NewLocalBackend creates a local store rooted at baseDir, initializing the
// meta file on first use.
func NewLocalBackend(logger *zap.Logger, baseDir string) (*LocalBackend, error) {
	logger = logger.Named("storage.local")

	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}

	b := &LocalBackend{
		logger:  logger,
		baseDir: baseDir,
	}
	if err := b.loadOrInitMeta(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *LocalBackend) loadOrInitMeta() error {
	path := filepath.Join(b.baseDir, "meta.json")
	data, err := os.ReadFile(path)
	if err == nil {
		if jsonErr := json.Unmarshal(data, &b.meta); jsonErr == nil && b.meta.DeviceID != "" {
			return nil
		}
		b.logger.Warn("meta file unreadable, reinitializing", zap.String("path", path))
	} else if !os.IsNotExist(err) {
		return err
	}

	b.meta = LocalMeta{
		SchemaVersion: localSchemaVersion,
		DeviceID:      uuid.NewString(),
	}
	return b.writeMeta()
}

func (b *LocalBackend) writeMeta() error {
	data, err := json.Marshal(b.meta)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(b.baseDir, "meta.json"), data, 0644)
}

// Meta returns a copy of the persisted service metadata.
func (b *LocalBackend) Meta() LocalMeta {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.meta
}

// TouchLastSync records the time of a completed migration into the remote backend.
func (b *LocalBackend) TouchLastSync(now time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.meta.LastSync = now.UTC().Format(time.RFC3339)
	return b.writeMeta()
}

func (b *LocalBackend) collectionPath(collection string) string {
	return filepath.Join(b.baseDir, collection+".json")
}

// readCollection loads a collection file. A missing file is an empty
// collection; a corrupt file is logged and treated as empty rather than
// failing the read.
func (b *LocalBackend) readCollection(collection string) ([]Record, error) {
	if !cnst.IsCollection(collection) {
		return nil, fmt.Errorf("%w: %s", cnst.ErrUnknownCollection, collection)
	}

	data, err := os.ReadFile(b.collectionPath(collection))
	if err != nil {
		if os.IsNotExist(err) {
			return []Record{}, nil
		}
		return nil, err
	}

	var recs []Record
	if err := json.Unmarshal(data, &recs); err != nil {
		b.logger.Error("collection file corrupt, treating as empty",
			zap.String("collection", collection),
			zap.Error(err))
		return []Record{}, nil
	}
	return recs, nil
}

func (b *LocalBackend) writeCollection(collection string, recs []Record) error {
	data, err := json.Marshal(recs)
	if err != nil {
		return err
	}
	return os.WriteFile(b.collectionPath(collection), data, 0644)
}

// GetAll implements Backend.GetAll
func (b *LocalBackend) GetAll(_ context.Context, collection string) ([]Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.readCollection(collection)
}

// Get implements Backend.Get
func (b *LocalBackend) Get(_ context.Context, collection, id string) (Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	recs, err := b.readCollection(collection)
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		if rec.ID() == id {
			return rec, nil
		}
	}
	return nil, fmt.Errorf("%w: %s/%s", cnst.ErrNotFound, collection, id)
}

// Create implements Backend.Create
func (b *LocalBackend) Create(_ context.Context, collection string, rec Record) (Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	recs, err := b.readCollection(collection)
	if err != nil {
		return nil, err
	}

	stored := rec.Clone()
	stored.EnsureIdentity(time.Now())
	recs = append(recs, stored)

	if err := b.writeCollection(collection, recs); err != nil {
		return nil, err
	}
	return stored, nil
}

// Update implements Backend.Update
func (b *LocalBackend) Update(_ context.Context, collection, id string, partial Record) (Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	recs, err := b.readCollection(collection)
	if err != nil {
		return nil, err
	}

	for i, rec := range recs {
		if rec.ID() != id {
			continue
		}
		merged := rec.Clone()
		merged.Merge(partial)
		merged["updatedAt"] = time.Now().UTC().Format(time.RFC3339)
		recs[i] = merged

		if err := b.writeCollection(collection, recs); err != nil {
			return nil, err
		}
		return merged, nil
	}
	return nil, fmt.Errorf("%w: %s/%s", cnst.ErrNotFound, collection, id)
}

// Delete implements Backend.Delete
func (b *LocalBackend) Delete(_ context.Context, collection, id string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	recs, err := b.readCollection(collection)
	if err != nil {
		return false, err
	}

	for i, rec := range recs {
		if rec.ID() != id {
			continue
		}
		recs = append(recs[:i], recs[i+1:]...)
		if err := b.writeCollection(collection, recs); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// BulkCreate implements Backend.BulkCreate. The batch is merged in memory and
// persisted with a single write, so a failure leaves the collection untouched.
func (b *LocalBackend) BulkCreate(_ context.Context, collection string, batch []Record) ([]Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	recs, err := b.readCollection(collection)
	if err != nil {
		return nil, err
	}
	if len(batch) == 0 {
		return []Record{}, nil
	}

	now := time.Now()
	stored := make([]Record, 0, len(batch))
	for _, rec := range batch {
		s := rec.Clone()
		s.EnsureIdentity(now)
		stored = append(stored, s)
	}

	if err := b.writeCollection(collection, append(recs, stored...)); err != nil {
		return nil, err
	}
	return stored, nil
}

// BulkUpdate implements Backend.BulkUpdate. Records whose id is not present
// are skipped, not created.
func (b *LocalBackend) BulkUpdate(_ context.Context, collection string, batch []Record) ([]Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	recs, err := b.readCollection(collection)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(recs))
	for i, rec := range recs {
		index[rec.ID()] = i
	}

	now := time.Now().UTC().Format(time.RFC3339)
	written := make([]Record, 0, len(batch))
	for _, partial := range batch {
		i, ok := index[partial.ID()]
		if !ok {
			continue
		}
		merged := recs[i].Clone()
		merged.Merge(partial)
		merged["updatedAt"] = now
		recs[i] = merged
		written = append(written, merged)
	}

	if len(written) == 0 {
		return written, nil
	}
	if err := b.writeCollection(collection, recs); err != nil {
		return nil, err
	}
	return written, nil
}

// Stats implements Backend.Stats
func (b *LocalBackend) Stats(_ context.Context) (map[string]int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[string]int64, len(cnst.Collections))
	for _, collection := range cnst.Collections {
		recs, err := b.readCollection(collection)
		if err != nil {
			return nil, err
		}
		out[collection] = int64(len(recs))
	}
	return out, nil
}

// HasData reports whether any collection holds at least one record. The
// service uses it to decide whether a migration into the remote backend
// is needed.
func (b *LocalBackend) HasData(ctx context.Context) (bool, error) {
	stats, err := b.Stats(ctx)
	if err != nil {
		return false, err
	}
	for _, n := range stats {
		if n > 0 {
			return true, nil
		}
	}
	return false, nil
}
