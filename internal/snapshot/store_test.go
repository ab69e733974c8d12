package snapshot

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/africa-covid/backend/internal/contracts"
	"github.com/wonny/africa-covid/backend/pkg/logger"
)

func newTestStore() (*Store, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClockAt(time.Date(2020, 6, 1, 12, 0, 0, 0, time.UTC))
	return New(clock, logger.Nop()), clock
}

func TestStore_NotReadyBeforePublish(t *testing.T) {
	store, _ := newTestStore()

	_, err := store.Current()
	assert.True(t, errors.Is(err, contracts.ErrNotReady))
	assert.Equal(t, StateUninitialized, store.Status().State)
}

func TestStore_Lifecycle(t *testing.T) {
	store, clock := newTestStore()

	require.NoError(t, store.BeginRefresh())
	assert.Equal(t, StateLoading, store.Status().State)

	first := store.Publish(Data{Source: "ingest"})
	assert.Equal(t, uint64(1), first.Generation)
	assert.Equal(t, clock.Now(), first.LoadedAt)
	assert.Equal(t, StateReady, store.Status().State)

	require.NoError(t, store.BeginRefresh())
	assert.Equal(t, StateRefreshing, store.Status().State)

	// readers keep seeing the old snapshot while refreshing
	cur, err := store.Current()
	require.NoError(t, err)
	assert.Same(t, first, cur)

	clock.Advance(time.Hour)
	second := store.Publish(Data{Source: "ingest"})
	assert.Equal(t, uint64(2), second.Generation)

	status := store.Status()
	assert.Equal(t, StateReady, status.State)
	assert.Equal(t, uint64(2), status.Generation)
	assert.Equal(t, clock.Now(), status.LoadedAt)
}

func TestStore_SnapshotIDUniqueAcrossStores(t *testing.T) {
	a, _ := newTestStore()
	b, _ := newTestStore()

	sa := a.Publish(Data{Source: "ingest"})
	sb := b.Publish(Data{Source: "ingest"})
	require.Equal(t, sa.Generation, sb.Generation)
	assert.NotEqual(t, sa.ID, sb.ID)

	next := a.Publish(Data{Source: "ingest"})
	assert.NotEqual(t, sa.ID, next.ID)
	assert.Equal(t, next.ID, a.Status().SnapshotID)
}

func TestStore_SingleWriter(t *testing.T) {
	store, _ := newTestStore()

	require.NoError(t, store.BeginRefresh())
	err := store.BeginRefresh()
	assert.True(t, errors.Is(err, contracts.ErrRefreshInProgress))
}

func TestStore_FailBeforeFirstPublish(t *testing.T) {
	store, _ := newTestStore()

	require.NoError(t, store.BeginRefresh())
	store.Fail(errors.New("fetch failed"))

	status := store.Status()
	assert.Equal(t, StateFailed, status.State)
	assert.Equal(t, "fetch failed", status.LastError)

	_, err := store.Current()
	assert.True(t, errors.Is(err, contracts.ErrNotReady))

	// a failed store can be retried
	require.NoError(t, store.BeginRefresh())
	assert.Equal(t, StateLoading, store.Status().State)
}

func TestStore_FailKeepsPublishedSnapshot(t *testing.T) {
	store, _ := newTestStore()

	published := store.Publish(Data{Source: "archive"})
	require.NoError(t, store.BeginRefresh())
	store.Fail(errors.New("timeout"))

	assert.Equal(t, StateReady, store.Status().State)
	cur, err := store.Current()
	require.NoError(t, err)
	assert.Same(t, published, cur)
}

func TestStore_SubscribersRunOnPublish(t *testing.T) {
	store, _ := newTestStore()

	var got []uint64
	store.Subscribe(func(s *Snapshot) { got = append(got, s.Generation) })
	store.Subscribe(func(s *Snapshot) {
		// subscribers may read the store without deadlocking
		assert.Equal(t, s.Generation, store.Status().Generation)
	})

	store.Publish(Data{})
	store.Publish(Data{})
	assert.Equal(t, []uint64{1, 2}, got)
}

func TestStore_ConcurrentReaders(t *testing.T) {
	store, _ := newTestStore()
	store.Publish(Data{Trends: contracts.CountryTrendDict{"NGA": nil}})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				snap, err := store.Current()
				if err != nil || snap.Trends == nil {
					t.Error("reader observed an incomplete snapshot")
					return
				}
			}
		}()
	}
	for i := 0; i < 10; i++ {
		store.Publish(Data{Trends: contracts.CountryTrendDict{"NGA": nil}})
	}
	wg.Wait()
}
