package tokens

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	perrors "github.com/jmgilman/go/errors"

	"ballot-backend/internal/shared/telemetry"
)

// DefaultTTL applies when an Issuer is built with a non-positive TTL.
const DefaultTTL = 24 * time.Hour

// Issuer mints poll tokens and resolves them back to their poll.
type Issuer struct {
	store    Store
	ttl      time.Duration
	now      func() time.Time
	newToken func() string
}

func NewIssuer(store Store, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{store: store, ttl: ttl, now: time.Now, newToken: uuid.NewString}
}

// Issue mints a token for pollID.
func (i *Issuer) Issue(ctx context.Context, pollID string) (Token, error) {
	pollID = strings.TrimSpace(pollID)
	if pollID == "" {
		return Token{}, perrors.New(perrors.CodeInvalidInput, "poll_id is required")
	}
	now := i.now().UTC()
	token := Token{
		Value:     i.newToken(),
		PollID:    pollID,
		IssuedAt:  now,
		ExpiresAt: now.Add(i.ttl),
	}
	if err := i.store.Save(ctx, token); err != nil {
		return Token{}, perrors.Wrap(err, perrors.CodeUnavailable, "store poll token")
	}
	telemetry.Info("poll_token.issued", map[string]any{
		"poll_id":    pollID,
		"expires_at": token.ExpiresAt.Format(time.RFC3339),
	})
	return token, nil
}

// PollFor returns the poll a live token was issued for.
func (i *Issuer) PollFor(ctx context.Context, value string) (string, bool, error) {
	token, err := i.store.Get(ctx, value)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return token.PollID, true, nil
}
