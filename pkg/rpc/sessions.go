package rpc

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/partyfowl/aoc19/pkg/intcode"
	"github.com/partyfowl/aoc19/pkg/types"
)

var (
	// ErrSessionNotFound is returned for an unknown or closed session id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionLimit is returned when the session table is full.
	ErrSessionLimit = errors.New("session limit reached")
)

// Session is one VM driven remotely through resume calls.
type Session struct {
	ID     uuid.UUID
	Digest types.Digest

	// mu serialises invocations so at most one Run is in flight.
	mu sync.Mutex
	vm *intcode.VM

	Created  time.Time
	lastUsed atomic.Int64
}

// Resume runs the session's VM on input.
func (s *Session) Resume(input []int64) intcode.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastUsed.Store(time.Now().UnixNano())
	return s.vm.Run(input)
}

// VM runs fn with exclusive access to the session's VM.
func (s *Session) VM(fn func(vm *intcode.VM)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.vm)
}

// LastUsed returns the time of the last resume, or creation.
func (s *Session) LastUsed() time.Time {
	return time.Unix(0, s.lastUsed.Load())
}

// SessionManager owns the open sessions.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	max      int
	opts     []intcode.Option

	// onChange is called with the new session count.
	onChange func(n int)
}

// NewSessionManager creates a session table holding at most max sessions.
// Zero means unlimited.
func NewSessionManager(max int, opts ...intcode.Option) *SessionManager {
	return &SessionManager{
		sessions: make(map[uuid.UUID]*Session),
		max:      max,
		opts:     opts,
	}
}

// Create starts a session running program.
func (m *SessionManager) Create(program types.Program) (*Session, error) {
	s := &Session{
		ID:      uuid.New(),
		Digest:  program.Digest(),
		vm:      intcode.New(program, m.opts...),
		Created: time.Now(),
	}
	s.lastUsed.Store(s.Created.UnixNano())

	m.mu.Lock()
	if m.max > 0 && len(m.sessions) >= m.max {
		m.mu.Unlock()
		return nil, ErrSessionLimit
	}
	m.sessions[s.ID] = s
	n := len(m.sessions)
	m.mu.Unlock()

	m.changed(n)
	return s, nil
}

// Get looks up a session by its string id.
func (m *SessionManager) Get(id string) (*Session, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrSessionNotFound
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[uid]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Close removes a session.
func (m *SessionManager) Close(id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return ErrSessionNotFound
	}

	m.mu.Lock()
	if _, ok := m.sessions[uid]; !ok {
		m.mu.Unlock()
		return ErrSessionNotFound
	}
	delete(m.sessions, uid)
	n := len(m.sessions)
	m.mu.Unlock()

	m.changed(n)
	return nil
}

// Len returns the number of open sessions.
func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep closes sessions idle for longer than maxIdle and returns how many
// were closed.
func (m *SessionManager) Sweep(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	m.mu.Lock()
	closed := 0
	for id, s := range m.sessions {
		if s.LastUsed().Before(cutoff) {
			delete(m.sessions, id)
			closed++
		}
	}
	n := len(m.sessions)
	m.mu.Unlock()

	if closed > 0 {
		m.changed(n)
	}
	return closed
}

// OnChange installs a callback receiving the session count after every
// change.
func (m *SessionManager) OnChange(fn func(n int)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}

func (m *SessionManager) changed(n int) {
	m.mu.RLock()
	fn := m.onChange
	m.mu.RUnlock()

	if fn != nil {
		fn(n)
	}
}
