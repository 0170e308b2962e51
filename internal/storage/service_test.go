package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stevedao0/newcm-sub000/internal/common/cnst"
)

var errRemoteDown = errors.New("remote unavailable")

// fakeRemote backs the RemoteStore contract with a second local store so
// tests can flip connectivity and per-call failures independently.
type fakeRemote struct {
	store   *LocalBackend
	pingErr error
	failOps bool
}

func newFakeRemote(t *testing.T) *fakeRemote {
	t.Helper()
	store, err := NewLocalBackend(zap.NewNop(), t.TempDir())
	require.NoError(t, err)
	return &fakeRemote{store: store}
}

func (f *fakeRemote) Ping(context.Context) error { return f.pingErr }

func (f *fakeRemote) Subscribe(context.Context, string, func()) (func(), error) {
	return nil, cnst.ErrNotReceiver
}

func (f *fakeRemote) GetAll(ctx context.Context, c string) ([]Record, error) {
	if f.failOps {
		return nil, errRemoteDown
	}
	return f.store.GetAll(ctx, c)
}

func (f *fakeRemote) Get(ctx context.Context, c, id string) (Record, error) {
	if f.failOps {
		return nil, errRemoteDown
	}
	return f.store.Get(ctx, c, id)
}

func (f *fakeRemote) Create(ctx context.Context, c string, r Record) (Record, error) {
	if f.failOps {
		return nil, errRemoteDown
	}
	return f.store.Create(ctx, c, r)
}

func (f *fakeRemote) Update(ctx context.Context, c, id string, p Record) (Record, error) {
	if f.failOps {
		return nil, errRemoteDown
	}
	return f.store.Update(ctx, c, id, p)
}

func (f *fakeRemote) Delete(ctx context.Context, c, id string) (bool, error) {
	if f.failOps {
		return false, errRemoteDown
	}
	return f.store.Delete(ctx, c, id)
}

func (f *fakeRemote) BulkCreate(ctx context.Context, c string, b []Record) ([]Record, error) {
	if f.failOps {
		return nil, errRemoteDown
	}
	return f.store.BulkCreate(ctx, c, b)
}

func (f *fakeRemote) BulkUpdate(ctx context.Context, c string, b []Record) ([]Record, error) {
	if f.failOps {
		return nil, errRemoteDown
	}
	return f.store.BulkUpdate(ctx, c, b)
}

func (f *fakeRemote) Stats(ctx context.Context) (map[string]int64, error) {
	if f.failOps {
		return nil, errRemoteDown
	}
	return f.store.Stats(ctx)
}

func newService(t *testing.T, remote RemoteStore) (*DataService, *LocalBackend) {
	t.Helper()
	local, err := NewLocalBackend(zap.NewNop(), t.TempDir())
	require.NoError(t, err)
	svc := NewDataService(context.Background(), zap.NewNop(), remote, local,
		WithProbeTimeout(200*time.Millisecond))
	return svc, local
}

func TestDataService_ProbeFailureFallsBackToLocal(t *testing.T) {
	remote := newFakeRemote(t)
	remote.pingErr = errRemoteDown

	svc, local := newService(t, remote)
	assert.Equal(t, ModeLocal, svc.Mode())

	rec, err := svc.Create(context.Background(), cnst.CollectionContracts, Record{"contractNo": "HD001"})
	require.NoError(t, err)

	got, err := local.Get(context.Background(), cnst.CollectionContracts, rec.ID())
	assert.NoError(t, err)
	assert.Equal(t, "HD001", got.String("contractNo"))
}

func TestDataService_NoRemoteConfigured(t *testing.T) {
	svc, _ := newService(t, nil)
	assert.Equal(t, ModeLocal, svc.Mode())
}

func TestDataService_TransientFailureFallsBackPerCall(t *testing.T) {
	remote := newFakeRemote(t)
	svc, local := newService(t, remote)
	require.Equal(t, ModeRemote, svc.Mode())

	// Remote starts failing after startup; the caller still observes success.
	remote.failOps = true
	rec, err := svc.Create(context.Background(), cnst.CollectionContracts, Record{"contractNo": "HD002"})
	require.NoError(t, err)

	// The write landed locally and a read through the service reflects it.
	all, err := svc.GetAll(context.Background(), cnst.CollectionContracts)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, rec.ID(), all[0].ID())

	inLocal, err := local.GetAll(context.Background(), cnst.CollectionContracts)
	require.NoError(t, err)
	assert.Len(t, inLocal, 1)

	// The mode is not downgraded; once the remote recovers it is used again.
	assert.Equal(t, ModeRemote, svc.Mode())
	remote.failOps = false
	_, err = svc.Create(context.Background(), cnst.CollectionUsers, Record{"username": "lan"})
	require.NoError(t, err)
	inRemote, err := remote.store.GetAll(context.Background(), cnst.CollectionUsers)
	require.NoError(t, err)
	assert.Len(t, inRemote, 1)
}

func TestDataService_MigratesLocalDataOnConnect(t *testing.T) {
	local, err := NewLocalBackend(zap.NewNop(), t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	_, err = local.BulkCreate(ctx, cnst.CollectionContracts, []Record{
		{"contractNo": "HD001", "channelID": "CH01"},
		{"contractNo": "HD002", "channelID": "CH01"},
	})
	require.NoError(t, err)
	_, err = local.Create(ctx, cnst.CollectionPartners, Record{"tenDonVi": "VTV"})
	require.NoError(t, err)

	remote := newFakeRemote(t)
	svc := NewDataService(ctx, zap.NewNop(), remote, local)
	require.Equal(t, ModeRemote, svc.Mode())

	assert.Eventually(t, func() bool {
		stats, err := remote.store.Stats(ctx)
		return err == nil &&
			stats[cnst.CollectionContracts] == 2 &&
			stats[cnst.CollectionPartners] == 1
	}, 2*time.Second, 20*time.Millisecond, "local data was not migrated")

	assert.Eventually(t, func() bool {
		return local.Meta().LastSync != ""
	}, 2*time.Second, 20*time.Millisecond, "migration time was not recorded")
}

func TestDataService_ListenersNotifiedOncePerWrite(t *testing.T) {
	svc, _ := newService(t, nil)
	ctx := context.Background()

	contractEvents := 0
	workEvents := 0
	unsub := svc.Subscribe(ctx, cnst.CollectionContracts, func() { contractEvents++ })
	svc.Subscribe(ctx, cnst.CollectionWorks, func() { workEvents++ })

	_, err := svc.Create(ctx, cnst.CollectionContracts, Record{"contractNo": "HD001"})
	require.NoError(t, err)
	assert.Equal(t, 1, contractEvents)
	assert.Equal(t, 0, workEvents)

	// delete of a missing id is not a write and must not notify
	ok, err := svc.Delete(ctx, cnst.CollectionContracts, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, contractEvents)

	// unsubscribe twice: no panic, and no further events
	unsub()
	unsub()
	_, err = svc.Create(ctx, cnst.CollectionContracts, Record{"contractNo": "HD002"})
	require.NoError(t, err)
	assert.Equal(t, 1, contractEvents)
}

func TestDataService_UnsubscribeDoesNotRemoveOthers(t *testing.T) {
	svc, _ := newService(t, nil)
	ctx := context.Background()

	first, second := 0, 0
	unsubFirst := svc.Subscribe(ctx, cnst.CollectionUsers, func() { first++ })
	svc.Subscribe(ctx, cnst.CollectionUsers, func() { second++ })

	unsubFirst()
	unsubFirst()

	_, err := svc.Create(ctx, cnst.CollectionUsers, Record{"username": "minh"})
	require.NoError(t, err)
	assert.Equal(t, 0, first)
	assert.Equal(t, 1, second)
}

func TestDataService_DeferredNotify(t *testing.T) {
	local, err := NewLocalBackend(zap.NewNop(), t.TempDir())
	require.NoError(t, err)
	svc := NewDataService(context.Background(), zap.NewNop(), nil, local,
		WithNotifyDelay(20*time.Millisecond))

	ctx := context.Background()
	events := make(chan struct{}, 1)
	svc.Subscribe(ctx, cnst.CollectionChannels, func() { events <- struct{}{} })

	_, err = svc.Create(ctx, cnst.CollectionChannels, Record{"channelID": "CH01"})
	require.NoError(t, err)

	select {
	case <-events:
	case <-time.After(time.Second):
		t.Fatal("deferred notification never arrived")
	}
}
