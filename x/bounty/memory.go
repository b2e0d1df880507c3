package bounty

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store with the same conditional-update
// semantics as the Postgres implementation. Used in tests and local runs
// without a database.
type MemoryStore struct {
	mu       sync.Mutex
	bounties map[string]*Bounty
	attempts []Attempt
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{bounties: make(map[string]*Bounty)}
}

// Put seeds or replaces a bounty record.
func (s *MemoryStore) Put(b *Bounty) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	cp := *b
	s.bounties[b.ID] = &cp
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (*Bounty, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bounties[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *MemoryStore) LatestOpen(_ context.Context) (*Bounty, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *Bounty
	for _, b := range s.bounties {
		if b.Status != StatusOpen {
			continue
		}
		if latest == nil || b.CreatedAt.After(latest.CreatedAt) {
			latest = b
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (s *MemoryStore) ClaimIfOpen(_ context.Context, id, winnerWallet string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bounties[id]
	if !ok || b.Status != StatusOpen {
		return false, nil
	}
	b.Status = StatusClaimed
	wallet := winnerWallet
	b.WinnerWallet = &wallet
	return true, nil
}

func (s *MemoryStore) ReleaseClaim(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bounties[id]
	if !ok {
		return ErrNotFound
	}
	b.Status = StatusOpen
	b.WinnerWallet = nil
	return nil
}

func (s *MemoryStore) SetTxnSignature(_ context.Context, id, signature string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bounties[id]
	if !ok {
		return ErrNotFound
	}
	sig := signature
	b.TxnSignature = &sig
	return nil
}

func (s *MemoryStore) AppendAttempt(_ context.Context, attempt Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if attempt.ID == "" {
		attempt.ID = uuid.NewString()
	}
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now().UTC()
	}
	s.attempts = append(s.attempts, attempt)
	return nil
}

// Attempts returns a copy of the audit log for assertions in tests.
func (s *MemoryStore) Attempts() []Attempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Attempt, len(s.attempts))
	copy(out, s.attempts)
	return out
}

var _ Store = (*MemoryStore)(nil)
