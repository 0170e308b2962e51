package storage

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/stevedao0/newcm-sub000/internal/common/cnst"
)

// Mode says which backend the service currently routes calls to.
type Mode int32

const (
	ModeLocal Mode = iota
	ModeRemote
)

func (m Mode) String() string {
	if m == ModeRemote {
		return "remote"
	}
	return "local"
}

// RemoteStore is the capability set the service needs from the remote side.
type RemoteStore interface {
	Backend
	Ping(ctx context.Context) error
	Subscribe(ctx context.Context, collection string, onChange func()) (func(), error)
}

// DataService is the single entry point for all reads and writes. It routes
// to the remote backend when one is reachable and falls back to the local
// backend per call on remote failure; the mode itself is never downgraded
// by a transient error. Committed writes notify in-process listeners.
type DataService struct {
	logger *zap.Logger
	remote RemoteStore
	local  *LocalBackend

	probeTimeout time.Duration
	notifyDelay  time.Duration

	mu        sync.Mutex
	mode      Mode
	listeners map[string]map[int]func()
	nextID    int

	migrateOnce sync.Once
}

// Option configures a DataService.
type Option func(*DataService)

// WithProbeTimeout bounds the startup connectivity probe.
func WithProbeTimeout(d time.Duration) Option {
	return func(s *DataService) { s.probeTimeout = d }
}

// WithNotifyDelay defers listener notification after local writes. Zero
// means synchronous delivery, which is the default here; the delay only
// exists for UI hosts that want renders to settle first.
func WithNotifyDelay(d time.Duration) Option {
	return func(s *DataService) { s.notifyDelay = d }
}

// NewDataService probes the remote backend once and picks the starting
// mode. When the probe succeeds and the local store already holds data, a
// one-shot migration into the remote backend starts in the background.
func NewDataService(ctx context.Context, logger *zap.Logger, remote RemoteStore, local *LocalBackend, opts ...Option) *DataService {
	s := &DataService{
		logger:       logger.Named("storage.service"),
		remote:       remote,
		local:        local,
		probeTimeout: 3 * time.Second,
		listeners:    make(map[string]map[int]func()),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mode = ModeLocal
	if remote != nil {
		probeCtx, cancel := context.WithTimeout(ctx, s.probeTimeout)
		defer cancel()
		if err := remote.Ping(probeCtx); err != nil {
			s.logger.Warn("remote backend unreachable, falling back to local storage", zap.Error(err))
		} else {
			s.mode = ModeRemote
			s.logger.Info("remote backend connected")
			s.maybeMigrate()
		}
	}
	return s
}

// Mode returns the active routing mode.
func (s *DataService) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *DataService) remoteActive() bool {
	return s.Mode() == ModeRemote && s.remote != nil
}

// maybeMigrate starts the one-shot local-to-remote migration. It is
// fire-and-forget: failures are logged and must never block the caller
// that triggered the mode switch.
func (s *DataService) maybeMigrate() {
	s.migrateOnce.Do(func() {
		go s.runMigration(context.Background())
	})
}

func (s *DataService) runMigration(ctx context.Context) {
	has, err := s.local.HasData(ctx)
	if err != nil {
		s.logger.Error("migration skipped, cannot inspect local data", zap.Error(err))
		return
	}
	if !has {
		return
	}

	s.logger.Info("migrating local data to remote backend")
	for _, collection := range cnst.MigrationOrder {
		recs, err := s.local.GetAll(ctx, collection)
		if err != nil {
			s.logger.Error("migration read failed",
				zap.String("collection", collection),
				zap.Error(err))
			continue
		}
		if len(recs) == 0 {
			continue
		}
		if _, err := s.remote.BulkCreate(ctx, collection, recs); err != nil {
			s.logger.Error("migration write failed",
				zap.String("collection", collection),
				zap.Error(err))
			continue
		}
		s.logger.Info("collection migrated",
			zap.String("collection", collection),
			zap.Int("records", len(recs)))
	}

	if err := s.local.TouchLastSync(time.Now()); err != nil {
		s.logger.Warn("failed to record migration time", zap.Error(err))
	}
}

// GetAll returns every record in the collection from the active backend,
// falling back to local on remote failure.
func (s *DataService) GetAll(ctx context.Context, collection string) ([]Record, error) {
	if s.remoteActive() {
		recs, err := s.remote.GetAll(ctx, collection)
		if err == nil {
			return recs, nil
		}
		s.fallbackWarn("getAll", collection, err)
	}
	return s.local.GetAll(ctx, collection)
}

// Get returns one record by id.
func (s *DataService) Get(ctx context.Context, collection, id string) (Record, error) {
	if s.remoteActive() {
		rec, err := s.remote.Get(ctx, collection, id)
		if err == nil {
			return rec, nil
		}
		s.fallbackWarn("get", collection, err)
	}
	return s.local.Get(ctx, collection, id)
}

// Create persists a new record and notifies listeners.
func (s *DataService) Create(ctx context.Context, collection string, rec Record) (Record, error) {
	if s.remoteActive() {
		stored, err := s.remote.Create(ctx, collection, rec)
		if err == nil {
			s.notify(collection)
			return stored, nil
		}
		s.fallbackWarn("create", collection, err)
	}
	stored, err := s.local.Create(ctx, collection, rec)
	if err != nil {
		return nil, err
	}
	s.notify(collection)
	return stored, nil
}

// Update merges partial fields onto the stored record and notifies listeners.
func (s *DataService) Update(ctx context.Context, collection, id string, partial Record) (Record, error) {
	if s.remoteActive() {
		merged, err := s.remote.Update(ctx, collection, id, partial)
		if err == nil {
			s.notify(collection)
			return merged, nil
		}
		s.fallbackWarn("update", collection, err)
	}
	merged, err := s.local.Update(ctx, collection, id, partial)
	if err != nil {
		return nil, err
	}
	s.notify(collection)
	return merged, nil
}

// Delete removes a record; a missing id reports false without error.
func (s *DataService) Delete(ctx context.Context, collection, id string) (bool, error) {
	if s.remoteActive() {
		ok, err := s.remote.Delete(ctx, collection, id)
		if err == nil {
			if ok {
				s.notify(collection)
			}
			return ok, nil
		}
		s.fallbackWarn("delete", collection, err)
	}
	ok, err := s.local.Delete(ctx, collection, id)
	if err != nil {
		return false, err
	}
	if ok {
		s.notify(collection)
	}
	return ok, nil
}

// BulkCreate persists a batch atomically and fires one notification.
func (s *DataService) BulkCreate(ctx context.Context, collection string, batch []Record) ([]Record, error) {
	if s.remoteActive() {
		stored, err := s.remote.BulkCreate(ctx, collection, batch)
		if err == nil {
			if len(stored) > 0 {
				s.notify(collection)
			}
			return stored, nil
		}
		s.fallbackWarn("bulkCreate", collection, err)
	}
	stored, err := s.local.BulkCreate(ctx, collection, batch)
	if err != nil {
		return nil, err
	}
	if len(stored) > 0 {
		s.notify(collection)
	}
	return stored, nil
}

// BulkUpdate merges a batch atomically, skipping unknown ids, and fires one
// notification when anything was written.
func (s *DataService) BulkUpdate(ctx context.Context, collection string, batch []Record) ([]Record, error) {
	if s.remoteActive() {
		written, err := s.remote.BulkUpdate(ctx, collection, batch)
		if err == nil {
			if len(written) > 0 {
				s.notify(collection)
			}
			return written, nil
		}
		s.fallbackWarn("bulkUpdate", collection, err)
	}
	written, err := s.local.BulkUpdate(ctx, collection, batch)
	if err != nil {
		return nil, err
	}
	if len(written) > 0 {
		s.notify(collection)
	}
	return written, nil
}

// Stats returns record counts per collection from the active backend.
func (s *DataService) Stats(ctx context.Context) (map[string]int64, error) {
	if s.remoteActive() {
		stats, err := s.remote.Stats(ctx)
		if err == nil {
			return stats, nil
		}
		s.fallbackWarn("stats", "*", err)
	}
	return s.local.Stats(ctx)
}

// Subscribe registers onChange for the collection. In remote mode the live
// change feed carries writes from every attached process; otherwise an
// in-process registry covers local writes. The returned unsubscribe
// function is idempotent and never panics when called twice.
func (s *DataService) Subscribe(ctx context.Context, collection string, onChange func()) func() {
	if s.remoteActive() {
		stop, err := s.remote.Subscribe(ctx, collection, onChange)
		if err == nil {
			return stop
		}
		s.fallbackWarn("subscribe", collection, err)
	}

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	if s.listeners[collection] == nil {
		s.listeners[collection] = make(map[int]func())
	}
	s.listeners[collection][id] = onChange
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.listeners[collection], id)
		})
	}
}

// notify invokes every in-process listener registered for the collection,
// each at most once per write.
func (s *DataService) notify(collection string) {
	s.mu.Lock()
	callbacks := make([]func(), 0, len(s.listeners[collection]))
	for _, cb := range s.listeners[collection] {
		callbacks = append(callbacks, cb)
	}
	s.mu.Unlock()

	deliver := func() {
		for _, cb := range callbacks {
			cb()
		}
	}
	if s.notifyDelay > 0 {
		time.AfterFunc(s.notifyDelay, deliver)
		return
	}
	deliver()
}

func (s *DataService) fallbackWarn(op, collection string, err error) {
	s.logger.Warn("remote call failed, retrying against local storage",
		zap.String("op", op),
		zap.String("collection", collection),
		zap.Error(err))
}
