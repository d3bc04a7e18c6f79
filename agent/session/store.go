package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	contractx "github.com/tanpawarit/Reserva-Conversational-Booking-Agent/agent/contract"
)

var (
	ErrInvalidSession = errors.New("session id is empty")
	ErrNilCustomer    = errors.New("customer is nil")
)

const defaultSessionTTL = 24 * time.Hour

// Store is the injected key-value abstraction over session state. Get is
// read-or-create; SetCustomer overwrites (appending to the appointment list
// is the caller's responsibility); Clear is explicit teardown; Expire bounds
// the session lifetime.
type Store interface {
	Get(ctx context.Context, sessionID string) (*Session, error)
	SetCustomer(ctx context.Context, sessionID string, customer *contractx.Customer) error
	GetCustomer(ctx context.Context, sessionID string) (*contractx.Customer, error)
	Clear(ctx context.Context, sessionID string) error
	Expire(ctx context.Context, sessionID string, ttl time.Duration) error
}

/* ------------------------------ memory store ------------------------------ */

type memoryEntry struct {
	session   *Session
	expiresAt time.Time
}

// MemoryStore keeps sessions in-process with a per-entry TTL. Suitable for
// single-instance deployments; use RedisStore when state must survive the
// process or be shared.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

type MemoryOption func(*MemoryStore)

func WithMemoryTTL(ttl time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]*memoryEntry),
		ttl:     defaultSessionTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// locked; evicts the entry when its deadline passed.
func (s *MemoryStore) liveEntry(sessionID string) *memoryEntry {
	entry, ok := s.entries[sessionID]
	if !ok {
		return nil
	}
	if !entry.expiresAt.IsZero() && s.now().After(entry.expiresAt) {
		delete(s.entries, sessionID)
		return nil
	}
	return entry
}

func (s *MemoryStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalidSession
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if entry := s.liveEntry(sessionID); entry != nil {
		return cloneSession(entry.session), nil
	}

	now := s.now()
	entry := &memoryEntry{
		session:   NewSession(sessionID, now),
		expiresAt: now.Add(s.ttl),
	}
	s.entries[sessionID] = entry
	return cloneSession(entry.session), nil
}

func (s *MemoryStore) SetCustomer(ctx context.Context, sessionID string, customer *contractx.Customer) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrInvalidSession
	}
	if customer == nil {
		return ErrNilCustomer
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	entry := s.liveEntry(sessionID)
	if entry == nil {
		entry = &memoryEntry{
			session:   NewSession(sessionID, now),
			expiresAt: now.Add(s.ttl),
		}
		s.entries[sessionID] = entry
	}
	entry.session.Customer = cloneCustomer(customer)
	entry.session.Touch(now)
	return nil
}

func (s *MemoryStore) GetCustomer(ctx context.Context, sessionID string) (*contractx.Customer, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalidSession
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.liveEntry(sessionID)
	if entry == nil || entry.session.Customer == nil {
		return nil, nil
	}
	return cloneCustomer(entry.session.Customer), nil
}

func (s *MemoryStore) Clear(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrInvalidSession
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, sessionID)
	return nil
}

func (s *MemoryStore) Expire(ctx context.Context, sessionID string, ttl time.Duration) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrInvalidSession
	}
	if ttl <= 0 {
		return s.Clear(ctx, sessionID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if entry := s.liveEntry(sessionID); entry != nil {
		entry.expiresAt = s.now().Add(ttl)
	}
	return nil
}

/* --------------------------------- clones --------------------------------- */

// Stored state is cloned on the way in and out so callers cannot alias the
// store's own structures across turns.
func cloneSession(src *Session) *Session {
	if src == nil {
		return nil
	}
	dst := &Session{
		SessionID: src.SessionID,
		UpdatedAt: src.UpdatedAt,
		Customer:  cloneCustomer(src.Customer),
	}
	return dst
}

func cloneCustomer(src *contractx.Customer) *contractx.Customer {
	if src == nil {
		return nil
	}
	dst := *src
	if len(src.Appointments) > 0 {
		dst.Appointments = append([]contractx.Appointment(nil), src.Appointments...)
	}
	return &dst
}
