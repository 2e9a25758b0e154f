package tokens

import "context"

// Store keeps issued tokens until they expire.
type Store interface {
	Save(ctx context.Context, token Token) error
	// Get returns ErrNotFound for unknown or expired tokens.
	Get(ctx context.Context, value string) (Token, error)
}
