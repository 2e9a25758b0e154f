package tokens

import (
	"context"
	"sync"
	"time"
)

// minSweepSize is the map size below which Save never sweeps.
const minSweepSize = 64

// MemoryStore keeps tokens in process. Expired entries are dropped on read,
// and Save sweeps them whenever the map doubles since the last sweep, so the
// map stays within twice the number of live tokens.
type MemoryStore struct {
	mu        sync.Mutex
	items     map[string]Token
	now       func() time.Time
	nextSweep int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]Token), now: time.Now, nextSweep: minSweepSize}
}

func (s *MemoryStore) Save(ctx context.Context, token Token) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[token.Value] = token
	if len(s.items) >= s.nextSweep {
		s.sweep()
	}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, value string) (Token, error) {
	if err := ctx.Err(); err != nil {
		return Token{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.items[value]
	if !ok {
		return Token{}, ErrNotFound
	}
	if token.Expired(s.now()) {
		delete(s.items, value)
		return Token{}, ErrNotFound
	}
	return token, nil
}

// sweep drops expired tokens. Callers hold mu.
func (s *MemoryStore) sweep() {
	now := s.now()
	for value, token := range s.items {
		if token.Expired(now) {
			delete(s.items, value)
		}
	}
	s.nextSweep = max(2*len(s.items), minSweepSize)
}
