package ballots

import "context"

// Store persists votes. Implementations enforce fingerprint uniqueness and
// (poll, voter hash) uniqueness, reporting violations as
// ErrDuplicateFingerprint and ErrDuplicateIdentity.
type Store interface {
	// FindByFingerprint returns ErrNotFound when no vote has that file hash.
	FindByFingerprint(ctx context.Context, fingerprint string) (Vote, error)
	// FindByIdentity returns ErrNotFound when the identity has not voted in the poll.
	FindByIdentity(ctx context.Context, pollID, voterHash string) (Vote, error)
	// Record inserts vote. With supersede, an existing vote for the same poll
	// and voter hash is deleted in the same transaction.
	Record(ctx context.Context, vote Vote, supersede bool) error
	// Tally counts votes per choice in a poll.
	Tally(ctx context.Context, pollID string) (Tally, error)
}
