package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Record is one entity row in application shape: camelCase field names,
// timestamps as RFC3339 strings, id as a generated string.
type Record map[string]any

// ID returns the record's id, or "" if unset.
func (r Record) ID() string {
	s, _ := r["id"].(string)
	return s
}

// String returns the named field as a string, or "" if absent or not a string.
func (r Record) String(field string) string {
	s, _ := r[field].(string)
	return s
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Merge overwrites r's fields with partial's fields, preserving id and createdAt.
func (r Record) Merge(partial Record) {
	for k, v := range partial {
		if k == "id" || k == "createdAt" {
			continue
		}
		r[k] = v
	}
}

// EnsureIdentity fills in a generated id and creation/update timestamps where missing.
func (r Record) EnsureIdentity(now time.Time) {
	if r.ID() == "" {
		r["id"] = uuid.NewString()
	}
	stamp := now.UTC().Format(time.RFC3339)
	if r.String("createdAt") == "" {
		r["createdAt"] = stamp
	}
	r["updatedAt"] = stamp
}

// Backend is the persistence contract shared by the remote and local stores.
// Collections are addressed by name; unknown names fail with ErrUnknownCollection.
type Backend interface {
	// GetAll returns every record in the collection; an uninitialized
	// collection yields an empty slice, not an error.
	GetAll(ctx context.Context, collection string) ([]Record, error)

	// Get returns a single record by id, or ErrNotFound.
	Get(ctx context.Context, collection, id string) (Record, error)

	// Create persists a new record, assigning id and timestamps when absent,
	// and returns the stored record.
	Create(ctx context.Context, collection string, rec Record) (Record, error)

	// Update merges partial fields onto the record with the given id and
	// returns the merged record; ErrNotFound when the id is absent.
	Update(ctx context.Context, collection, id string, partial Record) (Record, error)

	// Delete removes the record with the given id. It reports whether a
	// record was removed; a missing id is not an error.
	Delete(ctx context.Context, collection, id string) (bool, error)

	// BulkCreate persists records as one atomic batch and returns them.
	BulkCreate(ctx context.Context, collection string, recs []Record) ([]Record, error)

	// BulkUpdate merges each record onto the stored record sharing its id,
	// atomically, skipping records whose id is not found. It returns only
	// the records actually written.
	BulkUpdate(ctx context.Context, collection string, recs []Record) ([]Record, error)

	// Stats returns the record count per collection.
	Stats(ctx context.Context) (map[string]int64, error)
}
