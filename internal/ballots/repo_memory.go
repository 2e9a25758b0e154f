package ballots

import (
	"context"
	"sync"
)

type identityKey struct {
	pollID    string
	voterHash string
}

// MemoryRepo stores votes in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu            sync.RWMutex
	byFingerprint map[string]Vote
	byIdentity    map[identityKey]Vote
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byFingerprint: make(map[string]Vote),
		byIdentity:    make(map[identityKey]Vote),
	}
}

// FindByFingerprint returns the vote recorded for a file hash.
func (r *MemoryRepo) FindByFingerprint(ctx context.Context, fingerprint string) (Vote, error) {
	if err := ctx.Err(); err != nil {
		return Vote{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	vote, ok := r.byFingerprint[fingerprint]
	if !ok {
		return Vote{}, ErrNotFound
	}
	return vote, nil
}

// FindByIdentity returns the vote an identity cast in a poll.
func (r *MemoryRepo) FindByIdentity(ctx context.Context, pollID, voterHash string) (Vote, error) {
	if err := ctx.Err(); err != nil {
		return Vote{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	vote, ok := r.byIdentity[identityKey{pollID, voterHash}]
	if !ok {
		return Vote{}, ErrNotFound
	}
	return vote, nil
}

// Record checks both indexes and writes under one lock, so a failed insert
// leaves a superseded vote in place.
func (r *MemoryRepo) Record(ctx context.Context, vote Vote, supersede bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if vote.Choice == "" {
		return ErrInvalidInput
	}
	key := identityKey{vote.PollID, vote.VoterHash}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byFingerprint[vote.FileHash]; ok {
		return ErrDuplicateFingerprint
	}
	prior, exists := r.byIdentity[key]
	if exists && !supersede {
		return ErrDuplicateIdentity
	}
	if exists {
		delete(r.byFingerprint, prior.FileHash)
	}
	r.byFingerprint[vote.FileHash] = vote
	r.byIdentity[key] = vote
	return nil
}

// Tally counts votes in a poll.
func (r *MemoryRepo) Tally(ctx context.Context, pollID string) (Tally, error) {
	if err := ctx.Err(); err != nil {
		return Tally{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	tally := Tally{PollID: pollID, Choices: make(map[string]int)}
	for key, vote := range r.byIdentity {
		if key.pollID != pollID {
			continue
		}
		tally.Total++
		tally.Choices[vote.Choice]++
	}
	return tally, nil
}

// Len returns the number of stored votes.
func (r *MemoryRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byFingerprint)
}
