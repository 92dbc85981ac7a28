package storage

import (
	"sort"
	"sync"
	"time"

	"github.com/lehigh-university-libraries/tourlens/internal/models"
	"github.com/patrickmn/go-cache"
)

// Store is the process-wide owner of tour sessions.
// Callers only ever receive copies; all mutation goes through the store.
type Store interface {
	// GetOrCreate returns the session for id, creating an empty one if absent.
	GetOrCreate(sessionID string) models.Session
	// Get returns the session for id without creating it.
	Get(sessionID string) (models.Session, bool)
	// Append adds entries to the session memory in order.
	Append(sessionID string, entries ...string)
	// SetLastScene replaces the session's last scene.
	SetLastScene(sessionID string, scene models.SceneAnalysis)
	// Update runs fn with exclusive access to the session record.
	Update(sessionID string, fn func(*models.Session))
	// NextGeneration issues the next analyze generation for the session.
	// It does not count as an update: UpdatedAt is left alone.
	NextGeneration(sessionID string) uint64
	// List returns a snapshot of every live session ordered by creation time.
	List() []models.Session
	// Len returns the number of live sessions.
	Len() int
}

// record guards one session. Mutations to the same session serialize on mu;
// different sessions never contend.
type record struct {
	mu      sync.Mutex
	session models.Session
}

// SessionStore is an in-memory Store backed by go-cache.
type SessionStore struct {
	sessions *cache.Cache
	ttl      time.Duration
	now      func() time.Time
}

// Option configures a SessionStore
type Option func(*SessionStore)

// WithTTL evicts sessions that have not been touched for ttl.
// Zero keeps sessions for the lifetime of the process.
func WithTTL(ttl, cleanupInterval time.Duration) Option {
	return func(s *SessionStore) {
		if ttl <= 0 {
			return
		}
		if cleanupInterval <= 0 {
			cleanupInterval = ttl / 2
		}
		s.ttl = ttl
		s.sessions = cache.New(ttl, cleanupInterval)
	}
}

// WithClock overrides the time source used for timestamps
func WithClock(now func() time.Time) Option {
	return func(s *SessionStore) {
		s.now = now
	}
}

func New(opts ...Option) *SessionStore {
	s := &SessionStore{
		sessions: cache.New(cache.NoExpiration, 0),
		ttl:      cache.NoExpiration,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetOrCreate also restarts the idle deadline, so a session resolved at the
// start of an oracle call outlives calls shorter than the TTL.
func (s *SessionStore) GetOrCreate(sessionID string) models.Session {
	rec := s.record(sessionID)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	s.touch(sessionID, rec)
	return rec.session.Clone()
}

func (s *SessionStore) Get(sessionID string) (models.Session, bool) {
	x, found := s.sessions.Get(sessionID)
	if !found {
		return models.Session{}, false
	}
	rec := x.(*record)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.session.Clone(), true
}

func (s *SessionStore) Append(sessionID string, entries ...string) {
	s.Update(sessionID, func(session *models.Session) {
		session.Memory = append(session.Memory, entries...)
	})
}

func (s *SessionStore) SetLastScene(sessionID string, scene models.SceneAnalysis) {
	s.Update(sessionID, func(session *models.Session) {
		scene := scene.Clone()
		session.LastScene = &scene
	})
}

func (s *SessionStore) Update(sessionID string, fn func(*models.Session)) {
	rec := s.record(sessionID)
	rec.mu.Lock()
	defer rec.mu.Unlock()

	fn(&rec.session)
	rec.session.UpdatedAt = s.now()
	s.touch(sessionID, rec)
}

func (s *SessionStore) NextGeneration(sessionID string) uint64 {
	rec := s.record(sessionID)
	rec.mu.Lock()
	defer rec.mu.Unlock()

	rec.session.Generation++
	s.touch(sessionID, rec)
	return rec.session.Generation
}

// touch refreshes the idle deadline; the record pointer itself is unchanged.
// Callers hold rec.mu.
func (s *SessionStore) touch(sessionID string, rec *record) {
	if s.ttl > 0 {
		s.sessions.Set(sessionID, rec, cache.DefaultExpiration)
	}
}

func (s *SessionStore) List() []models.Session {
	items := s.sessions.Items()
	result := make([]models.Session, 0, len(items))
	for _, item := range items {
		rec := item.Object.(*record)
		rec.mu.Lock()
		result = append(result, rec.session.Clone())
		rec.mu.Unlock()
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

func (s *SessionStore) Len() int {
	return s.sessions.ItemCount()
}

// record returns the live record for id, inserting a fresh one if needed.
// cache.Add is atomic, so concurrent callers agree on a single record.
func (s *SessionStore) record(sessionID string) *record {
	for {
		if x, found := s.sessions.Get(sessionID); found {
			return x.(*record)
		}
		rec := &record{session: models.NewSession(sessionID, s.now())}
		if err := s.sessions.Add(sessionID, rec, cache.DefaultExpiration); err == nil {
			return rec
		}
	}
}
