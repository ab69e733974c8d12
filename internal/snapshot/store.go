package snapshot

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/wonny/africa-covid/backend/internal/contracts"
	"github.com/wonny/africa-covid/backend/pkg/logger"
)

// State is the lifecycle state of the store
type State string

const (
	StateUninitialized State = "uninitialized"
	StateLoading       State = "loading"    // first ingestion running, nothing published
	StateReady         State = "ready"      // a snapshot is published
	StateRefreshing    State = "refreshing" // a snapshot is published and a new one is being built
	StateFailed        State = "failed"     // first ingestion failed, nothing published
)

// Data is the content of one ingestion run
type Data struct {
	Countries   []contracts.CountryIdentity // sorted by name
	Trends      contracts.CountryTrendDict
	Predictions contracts.PredictionDict
	Stats       map[string]contracts.CountryStats
	Source      string // "ingest" or "archive"
}

// Snapshot is an immutable published dataset. Readers must not mutate it.
type Snapshot struct {
	Data
	Generation uint64
	// ID is unique across stores and restarts ("<epoch>-g<generation>").
	// Shared caches key on it, never on Generation alone.
	ID       string
	LoadedAt time.Time
}

// Status describes the store for /health
type Status struct {
	State       State     `json:"state"`
	Generation  uint64    `json:"generation"`
	SnapshotID  string    `json:"snapshot_id,omitempty"`
	LoadedAt    time.Time `json:"loaded_at,omitempty"`
	Source      string    `json:"source,omitempty"`
	LastAttempt time.Time `json:"last_attempt,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
}

// Subscriber is called synchronously after every publish
type Subscriber func(*Snapshot)

// Store holds the current snapshot.
// Reads are lock-free; the state machine and subscribers are guarded by mu.
// ⭐ SSOT: 스냅샷 교체는 Publish 에서만
type Store struct {
	current atomic.Pointer[Snapshot]

	mu          sync.Mutex
	state       State
	epoch       string // random per store, generations restart at 1 after a restart
	generation  uint64
	lastAttempt time.Time
	lastErr     error
	subscribers []Subscriber

	clock  clockwork.Clock
	logger *logger.Logger
}

// New creates an empty store
func New(clock clockwork.Clock, log *logger.Logger) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{
		state:  StateUninitialized,
		epoch:  uuid.NewString(),
		clock:  clock,
		logger: log.Module("snapshot"),
	}
}

// Current returns the published snapshot or ErrNotReady
func (s *Store) Current() (*Snapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, contracts.ErrNotReady
	}
	return snap, nil
}

// Subscribe registers a callback run after each publish
func (s *Store) Subscribe(fn Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// BeginRefresh claims the writer side.
// It fails with ErrRefreshInProgress while another run holds it.
func (s *Store) BeginRefresh() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateLoading, StateRefreshing:
		return contracts.ErrRefreshInProgress
	case StateReady:
		s.state = StateRefreshing
	default:
		s.state = StateLoading
	}
	s.lastAttempt = s.clock.Now()
	return nil
}

// Fail releases the writer side after an unsuccessful run.
// The published snapshot, if any, stays live.
func (s *Store) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastErr = err
	if s.current.Load() != nil {
		s.state = StateReady
	} else {
		s.state = StateFailed
	}

	s.logger.WithError(err).WithField("state", string(s.state)).Warn("Refresh failed")
}

// Publish atomically swaps in a new snapshot and notifies subscribers
func (s *Store) Publish(data Data) *Snapshot {
	s.mu.Lock()
	s.generation++
	snap := &Snapshot{
		Data:       data,
		Generation: s.generation,
		ID:         fmt.Sprintf("%s-g%d", s.epoch, s.generation),
		LoadedAt:   s.clock.Now(),
	}
	s.current.Store(snap)
	s.state = StateReady
	s.lastErr = nil
	subscribers := make([]Subscriber, len(s.subscribers))
	copy(subscribers, s.subscribers)
	s.mu.Unlock()

	s.logger.WithFields(map[string]interface{}{
		"generation": snap.Generation,
		"id":         snap.ID,
		"countries":  len(data.Countries),
		"source":     data.Source,
	}).Info("Snapshot published")

	for _, fn := range subscribers {
		fn(snap)
	}
	return snap
}

// Status reports the lifecycle state
func (s *Store) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		State:       s.state,
		Generation:  s.generation,
		LastAttempt: s.lastAttempt,
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	if snap := s.current.Load(); snap != nil {
		st.SnapshotID = snap.ID
		st.LoadedAt = snap.LoadedAt
		st.Source = snap.Source
	}
	return st
}
