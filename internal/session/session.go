package session

import (
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

// ContextKey is the gin context key the auth middleware stores the session under
const ContextKey = "session"

// Role identifies which side of the marketplace a session acts for
type Role string

const (
	RoleInvestor  Role = "investor"
	RoleInnovator Role = "innovator"
)

// Session is the authenticated identity of one login plus the navigation
// memory that outlives a single view. Identity fields are fixed at creation.
type Session struct {
	ID        string    `json:"session_id"`
	SubjectID int64     `json:"subject_id"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`

	mu        sync.Mutex
	expiresAt time.Time
	lastSeen  time.Time
	bidded    map[int64]time.Time
	handoffs  map[string]interface{}
	teardown  []hook
	nextHook  uint64
	closed    bool
}

type hook struct {
	id uint64
	fn func()
}

// ExpiresAt returns the current sliding expiry
func (s *Session) ExpiresAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiresAt
}

// MarkBidded records that the subject placed a bid on an invention
func (s *Session) MarkBidded(inventionID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bidded[inventionID] = time.Now()
}

// ForgetBidded drops the bid memory for an invention
func (s *Session) ForgetBidded(inventionID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bidded, inventionID)
}

// HasBidded reports whether the session remembers a bid on the invention
func (s *Session) HasBidded(inventionID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.bidded[inventionID]
	return ok
}

// BiddedProducts lists remembered invention ids in ascending order
func (s *Session) BiddedProducts() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.bidded))
	for id := range s.bidded {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// SetHandoff stores navigation state for the next view to pick up
func (s *Session) SetHandoff(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handoffs[key] = value
}

// Handoff returns navigation state stored with SetHandoff
func (s *Session) Handoff(key string) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.handoffs[key]
	return v, ok
}

// DetailHandoffKey is the handoff key for the innovation detail view
func DetailHandoffKey(inventionID int64) string {
	return "detail:" + strconv.FormatInt(inventionID, 10)
}

// OnTeardown registers fn to run when the session ends. If the session has
// already ended fn runs immediately. The returned cancel unregisters fn and
// is safe to call more than once.
func (s *Session) OnTeardown(fn func()) (cancel func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		fn()
		return func() {}
	}
	s.nextHook++
	id := s.nextHook
	s.teardown = append(s.teardown, hook{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, h := range s.teardown {
			if h.id == id {
				s.teardown = append(s.teardown[:i], s.teardown[i+1:]...)
				return
			}
		}
	}
}

// TeardownHooks returns the number of hooks still waiting for the session to
// end
func (s *Session) TeardownHooks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.teardown)
}

func (s *Session) end() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	hooks := s.teardown
	s.teardown = nil
	s.mu.Unlock()

	for _, h := range hooks {
		h.fn()
	}
}

func (s *Session) touch(now time.Time, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = now
	s.expiresAt = now.Add(ttl)
}

func (s *Session) expired(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !now.Before(s.expiresAt)
}

// Store owns every live session. It is created once at startup and passed to
// the components that need it.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewStore creates a store whose sessions expire after ttl of inactivity
func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// TTL returns the idle lifetime of a session
func (st *Store) TTL() time.Duration {
	return st.ttl
}

// Create starts a new session for the subject
func (st *Store) Create(subjectID int64, role Role) *Session {
	now := st.now()
	s := &Session{
		ID:        uuid.New().String(),
		SubjectID: subjectID,
		Role:      role,
		CreatedAt: now,
		expiresAt: now.Add(st.ttl),
		lastSeen:  now,
		bidded:    make(map[int64]time.Time),
		handoffs:  make(map[string]interface{}),
	}

	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()

	log.Info().
		Str("session_id", s.ID).
		Int64("subject_id", subjectID).
		Str("role", string(role)).
		Msg("session created")
	return s
}

// Get returns a live session and extends its expiry
func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	now := st.now()
	if s.expired(now) {
		st.Teardown(id)
		return nil, ErrSessionExpired
	}
	s.touch(now, st.ttl)
	return s, nil
}

// Teardown ends a session and runs its teardown hooks
func (st *Store) Teardown(id string) error {
	st.mu.Lock()
	s, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	s.end()
	log.Info().Str("session_id", id).Msg("session torn down")
	return nil
}

// SweepExpired tears down every expired session and returns how many ended
func (st *Store) SweepExpired() int {
	now := st.now()

	st.mu.RLock()
	var expired []string
	for id, s := range st.sessions {
		if s.expired(now) {
			expired = append(expired, id)
		}
	}
	st.mu.RUnlock()

	n := 0
	for _, id := range expired {
		if st.Teardown(id) == nil {
			n++
		}
	}
	return n
}

// Len returns the number of live sessions
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// FromGin returns the session the auth middleware attached to the request
func FromGin(c *gin.Context) (*Session, bool) {
	v, exists := c.Get(ContextKey)
	if !exists {
		return nil, false
	}
	s, ok := v.(*Session)
	return s, ok
}
