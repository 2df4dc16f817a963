package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sabia-ai/sabia/internal/log"
)

// entry is the mutable per-session state held by the Store.
//
// Two locking layers:
//   - mu guards turns and timestamps for short read/write sections
//   - exchange is a capacity-1 semaphore serializing whole query exchanges
//     on this session; a channel (not sync.Mutex) so waiters can honor
//     context cancellation
type entry struct {
	id        uuid.UUID
	createdAt time.Time

	mu         sync.Mutex
	lastAccess time.Time
	turns      []Turn

	exchange chan struct{}
}

// touch updates the idle clock. Callers must not hold e.mu.
func (e *entry) touch(now time.Time) {
	e.mu.Lock()
	e.lastAccess = now
	e.mu.Unlock()
}

// snapshot returns a copy of the entry safe to hand to callers.
func (e *entry) snapshot() *Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	turns := make([]Turn, len(e.turns))
	copy(turns, e.turns)
	return &Session{
		ID:         e.id,
		CreatedAt:  e.createdAt,
		LastAccess: e.lastAccess,
		Turns:      turns,
	}
}

// busy reports whether an exchange currently holds the session.
func (e *entry) busy() bool {
	select {
	case e.exchange <- struct{}{}:
		<-e.exchange
		return false
	default:
		return true
	}
}

// Store manages conversation sessions in process memory.
//
// Sessions live only for the lifetime of the process. Capacity is bounded:
// when maxSessions is reached, Create evicts the least recently used idle
// session. Store is safe for concurrent use by multiple goroutines.
type Store struct {
	maxSessions int
	logger      log.Logger

	mu      sync.RWMutex
	entries map[uuid.UUID]*entry
}

// NewStore creates an empty Store holding at most maxSessions sessions.
// A maxSessions of 0 or less means unbounded. A nil logger discards logs.
func NewStore(maxSessions int, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{
		maxSessions: maxSessions,
		logger:      logger,
		entries:     make(map[uuid.UUID]*entry),
	}
}

// Create registers a new empty session and returns its snapshot.
// Create never fails: at capacity it evicts the least recently used session
// that is not in the middle of an exchange.
func (s *Store) Create() *Session {
	now := time.Now()
	e := &entry{
		id:         uuid.New(),
		createdAt:  now,
		lastAccess: now,
		exchange:   make(chan struct{}, 1),
	}

	s.mu.Lock()
	if s.maxSessions > 0 && len(s.entries) >= s.maxSessions {
		s.evictLocked()
	}
	s.entries[e.id] = e
	s.mu.Unlock()

	s.logger.Debug("session created", "session_id", e.id)
	return e.snapshot()
}

// evictLocked removes the least recently used idle session.
// Caller must hold s.mu. Sessions with an exchange in flight are skipped so
// an append never lands on a deleted session; if every session is busy the
// store temporarily exceeds capacity.
func (s *Store) evictLocked() {
	var victim *entry
	var oldest time.Time
	for _, e := range s.entries {
		if e.busy() {
			continue
		}
		e.mu.Lock()
		last := e.lastAccess
		e.mu.Unlock()
		if victim == nil || last.Before(oldest) {
			victim = e
			oldest = last
		}
	}
	if victim == nil {
		s.logger.Warn("session store over capacity, all sessions busy",
			"size", len(s.entries), "max_sessions", s.maxSessions)
		return
	}
	delete(s.entries, victim.id)
	s.logger.Info("session evicted", "session_id", victim.id, "last_access", oldest)
}

// lookup returns the live entry for id.
func (s *Store) lookup(id uuid.UUID) (*entry, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, nil
}

// Get returns a snapshot of the session, refreshing its idle clock.
func (s *Store) Get(id uuid.UUID) (*Session, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	e.touch(time.Now())
	return e.snapshot(), nil
}

// History returns a copy of the session's turns in append order.
func (s *Store) History(id uuid.UUID) ([]Turn, error) {
	sess, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return sess.Turns, nil
}

// AppendExchange appends the user turn and the assistant turn as one unit.
// Either both turns land in the history or neither does, so the history
// always holds an even number of turns in strict user/assistant alternation.
func (s *Store) AppendExchange(id uuid.UUID, userContent, assistantContent string) error {
	e, err := s.lookup(id)
	if err != nil {
		return err
	}

	now := time.Now()
	e.mu.Lock()
	e.turns = append(e.turns,
		Turn{Role: RoleUser, Content: userContent, CreatedAt: now},
		Turn{Role: RoleAssistant, Content: assistantContent, CreatedAt: now},
	)
	e.lastAccess = now
	count := len(e.turns)
	e.mu.Unlock()

	s.logger.Debug("exchange appended", "session_id", id, "turn_count", count)
	return nil
}

// AcquireExchange claims the session's exchange slot, blocking while another
// exchange on the same session is in flight. The returned release function
// must be called exactly once. Exchanges on different sessions never block
// each other.
func (s *Store) AcquireExchange(ctx context.Context, id uuid.UUID) (release func(), err error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	select {
	case e.exchange <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for session %s: %w", id, ctx.Err())
	}

	e.touch(time.Now())
	var once sync.Once
	return func() {
		once.Do(func() { <-e.exchange })
	}, nil
}

// Delete removes the session. Returns ErrNotFound if it does not exist.
func (s *Store) Delete(id uuid.UUID) error {
	s.mu.Lock()
	_, ok := s.entries[id]
	if ok {
		delete(s.entries, id)
	}
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.logger.Debug("session deleted", "session_id", id)
	return nil
}

// Sessions returns summaries of all live sessions in unspecified order.
func (s *Store) Sessions() []Info {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]Info, 0, len(s.entries))
	for _, e := range s.entries {
		e.mu.Lock()
		infos = append(infos, Info{
			ID:         e.id,
			CreatedAt:  e.createdAt,
			LastAccess: e.lastAccess,
			TurnCount:  len(e.turns),
		})
		e.mu.Unlock()
	}
	return infos
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Sweep removes sessions idle for longer than maxIdle and returns how many
// were removed. Sessions with an exchange in flight are never swept.
func (s *Store) Sweep(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.entries {
		if e.busy() {
			continue
		}
		e.mu.Lock()
		idle := e.lastAccess.Before(cutoff)
		e.mu.Unlock()
		if idle {
			delete(s.entries, id)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Info("idle sessions swept", "removed", removed, "remaining", len(s.entries))
	}
	return removed
}
