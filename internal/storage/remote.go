package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/stevedao0/newcm-sub000/internal/common/cnst"
	"github.com/stevedao0/newcm-sub000/internal/storage/notifier"
)

// DatabaseType represents the supported database types
type DatabaseType string

const (
	PostgreSQL DatabaseType = "postgres"
	MySQL      DatabaseType = "mysql"
	SQLite     DatabaseType = "sqlite"
)

// ErrInvalidDatabaseType is returned when an unsupported database type is configured
var ErrInvalidDatabaseType = errors.New("invalid database type")

// RemoteBackend implements Backend against a hosted relational database.
// Every read and write passes through the naming tables, so callers only
// ever see application-shaped records. Committed writes are published on
// the notifier so any attached process can re-fetch.
type RemoteBackend struct {
	logger   *zap.Logger
	db       *gorm.DB
	notifier notifier.Notifier
}

var _ Backend = (*RemoteBackend)(nil)

// NewRemoteBackend opens the database, migrates the five collection tables
// and returns the backend. The notifier may be nil when change publishing
// is not wanted (tests, one-shot tools).
func NewRemoteBackend(logger *zap.Logger, dbType DatabaseType, dsn string, n notifier.Notifier) (*RemoteBackend, error) {
	logger = logger.Named("storage.remote")

	var dialector gorm.Dialector
	switch dbType {
	case PostgreSQL:
		dialector = postgres.Open(dsn)
	case MySQL:
		dialector = mysql.Open(dsn)
	case SQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidDatabaseType, dbType)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(migrationModels...); err != nil {
		return nil, err
	}

	return &RemoteBackend{
		logger:   logger,
		db:       db,
		notifier: n,
	}, nil
}

// Ping verifies connectivity within the bounds of ctx. The service uses it
// as the startup probe that decides between remote and local mode.
func (s *RemoteBackend) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying database connection.
func (s *RemoteBackend) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// modelFor returns the migration model for a collection, used to address
// the table in typed gorm calls.
func modelFor(collection string) (any, error) {
	switch collection {
	case cnst.CollectionContracts:
		return &ContractModel{}, nil
	case cnst.CollectionWorks:
		return &WorkModel{}, nil
	case cnst.CollectionPartners:
		return &PartnerModel{}, nil
	case cnst.CollectionChannels:
		return &ChannelModel{}, nil
	case cnst.CollectionUsers:
		return &UserModel{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", cnst.ErrUnknownCollection, collection)
	}
}

// toRow translates an application record into a storage row: camelCase
// field names become snake_case columns and RFC3339 timestamp strings
// become time values.
func toRow(collection string, rec Record) (map[string]any, error) {
	row := make(map[string]any, len(rec))
	for field, value := range rec {
		col, err := ToStorageName(collection, field)
		if err != nil {
			return nil, err
		}
		if col == "created_at" || col == "updated_at" {
			if s, ok := value.(string); ok {
				if ts, perr := time.Parse(time.RFC3339, s); perr == nil {
					value = ts
				}
			}
		}
		row[col] = value
	}
	return row, nil
}

// timestampLayouts covers the formats the supported drivers hand back for
// time columns on map scans.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// fromRow is the inverse of toRow. Drivers differ in how they hand back
// column values on map scans, so timestamps and byte slices are normalized.
func fromRow(collection string, row map[string]any) (Record, error) {
	rec := make(Record, len(row))
	for col, value := range row {
		field, err := ToAppName(collection, col)
		if err != nil {
			return nil, err
		}
		if b, ok := value.([]byte); ok {
			value = string(b)
		}
		switch v := value.(type) {
		case time.Time:
			rec[field] = v.UTC().Format(time.RFC3339)
		case string:
			if col == "created_at" || col == "updated_at" {
				for _, layout := range timestampLayouts {
					if ts, perr := time.Parse(layout, v); perr == nil {
						value = ts.UTC().Format(time.RFC3339)
						break
					}
				}
			}
			rec[field] = value
		default:
			rec[field] = value
		}
	}
	return rec, nil
}

// GetAll implements Backend.GetAll
func (s *RemoteBackend) GetAll(ctx context.Context, collection string) ([]Record, error) {
	model, err := modelFor(collection)
	if err != nil {
		return nil, err
	}

	var rows []map[string]any
	if err := s.db.WithContext(ctx).Model(model).Find(&rows).Error; err != nil {
		return nil, err
	}

	recs := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec, err := fromRow(collection, row)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// Get implements Backend.Get
func (s *RemoteBackend) Get(ctx context.Context, collection, id string) (Record, error) {
	model, err := modelFor(collection)
	if err != nil {
		return nil, err
	}

	var row map[string]any
	result := s.db.WithContext(ctx).Model(model).Where("id = ?", id).Take(&row)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s/%s", cnst.ErrNotFound, collection, id)
		}
		return nil, result.Error
	}
	return fromRow(collection, row)
}

// Create implements Backend.Create
func (s *RemoteBackend) Create(ctx context.Context, collection string, rec Record) (Record, error) {
	model, err := modelFor(collection)
	if err != nil {
		return nil, err
	}

	stored := rec.Clone()
	stored.EnsureIdentity(time.Now())

	row, err := toRow(collection, stored)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(model).Create(row).Error; err != nil {
		return nil, err
	}

	s.publish(ctx, collection, "create")
	return stored, nil
}

// Update implements Backend.Update
func (s *RemoteBackend) Update(ctx context.Context, collection, id string, partial Record) (Record, error) {
	model, err := modelFor(collection)
	if err != nil {
		return nil, err
	}

	update := partial.Clone()
	delete(update, "id")
	delete(update, "createdAt")
	update["updatedAt"] = time.Now().UTC().Format(time.RFC3339)

	row, err := toRow(collection, update)
	if err != nil {
		return nil, err
	}

	result := s.db.WithContext(ctx).Model(model).Where("id = ?", id).Updates(row)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: %s/%s", cnst.ErrNotFound, collection, id)
	}

	merged, err := s.Get(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, collection, "update")
	return merged, nil
}

// Delete implements Backend.Delete
func (s *RemoteBackend) Delete(ctx context.Context, collection, id string) (bool, error) {
	model, err := modelFor(collection)
	if err != nil {
		return false, err
	}

	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(model)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}

	s.publish(ctx, collection, "delete")
	return true, nil
}

// BulkCreate implements Backend.BulkCreate. The batch is written in one
// transaction; one notification fires for the whole batch.
func (s *RemoteBackend) BulkCreate(ctx context.Context, collection string, batch []Record) ([]Record, error) {
	model, err := modelFor(collection)
	if err != nil {
		return nil, err
	}
	if len(batch) == 0 {
		return []Record{}, nil
	}

	now := time.Now()
	stored := make([]Record, 0, len(batch))
	rows := make([]map[string]any, 0, len(batch))
	for _, rec := range batch {
		cp := rec.Clone()
		cp.EnsureIdentity(now)
		row, err := toRow(collection, cp)
		if err != nil {
			return nil, err
		}
		stored = append(stored, cp)
		rows = append(rows, row)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Model(model).Create(rows).Error
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, collection, "bulk")
	return stored, nil
}

// BulkUpdate implements Backend.BulkUpdate. Records with unknown ids are
// skipped; only the records actually written are returned.
func (s *RemoteBackend) BulkUpdate(ctx context.Context, collection string, batch []Record) ([]Record, error) {
	model, err := modelFor(collection)
	if err != nil {
		return nil, err
	}
	if len(batch) == 0 {
		return []Record{}, nil
	}

	now := time.Now().UTC().Format(time.RFC3339)
	writtenIDs := make([]string, 0, len(batch))

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, partial := range batch {
			id := partial.ID()
			if id == "" {
				continue
			}
			update := partial.Clone()
			delete(update, "id")
			delete(update, "createdAt")
			update["updatedAt"] = now

			row, err := toRow(collection, update)
			if err != nil {
				return err
			}
			result := tx.Model(model).Where("id = ?", id).Updates(row)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected > 0 {
				writtenIDs = append(writtenIDs, id)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	written := make([]Record, 0, len(writtenIDs))
	for _, id := range writtenIDs {
		rec, err := s.Get(ctx, collection, id)
		if err != nil {
			return nil, err
		}
		written = append(written, rec)
	}
	if len(written) > 0 {
		s.publish(ctx, collection, "bulk")
	}
	return written, nil
}

// Stats implements Backend.Stats
func (s *RemoteBackend) Stats(ctx context.Context) (map[string]int64, error) {
	out := make(map[string]int64, len(cnst.Collections))
	for _, collection := range cnst.Collections {
		model, err := modelFor(collection)
		if err != nil {
			return nil, err
		}
		var n int64
		if err := s.db.WithContext(ctx).Model(model).Count(&n).Error; err != nil {
			return nil, err
		}
		out[collection] = n
	}
	return out, nil
}

// Subscribe invokes onChange, with no payload, every time a change event
// for the collection arrives on the notifier. The returned stop function
// is idempotent.
func (s *RemoteBackend) Subscribe(ctx context.Context, collection string, onChange func()) (func(), error) {
	if s.notifier == nil || !s.notifier.CanReceive() {
		return nil, cnst.ErrNotReceiver
	}

	watchCtx, cancel := context.WithCancel(ctx)
	ch, err := s.notifier.Watch(watchCtx)
	if err != nil {
		cancel()
		return nil, err
	}

	go func() {
		for event := range ch {
			if event != nil && event.Collection == collection {
				onChange()
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(cancel) }, nil
}

// publish emits a change event; failures are logged, never surfaced, since
// the write itself already committed.
func (s *RemoteBackend) publish(ctx context.Context, collection, action string) {
	if s.notifier == nil || !s.notifier.CanSend() {
		return
	}
	if err := s.notifier.NotifyUpdate(ctx, notifier.NewChangeEvent(collection, action)); err != nil {
		s.logger.Warn("failed to publish change event",
			zap.String("collection", collection),
			zap.String("action", action),
			zap.Error(err))
	}
}
