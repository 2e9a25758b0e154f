package tokens

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreSweepsUnreadExpiredTokens(t *testing.T) {
	c := &clock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryStore()
	store.now = c.now
	ctx := context.Background()

	for i := 0; i < minSweepSize-1; i++ {
		require.NoError(t, store.Save(ctx, Token{
			Value:     fmt.Sprintf("old-%d", i),
			PollID:    "poll-1",
			IssuedAt:  c.t,
			ExpiresAt: c.t.Add(time.Minute),
		}))
	}
	assert.Len(t, store.items, minSweepSize-1)

	c.t = c.t.Add(time.Hour)
	live := Token{Value: "live", PollID: "poll-1", IssuedAt: c.t, ExpiresAt: c.t.Add(time.Hour)}
	require.NoError(t, store.Save(ctx, live))

	assert.Len(t, store.items, 1)
	got, err := store.Get(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, live, got)
}

func TestMemoryStoreDropsExpiredOnRead(t *testing.T) {
	c := &clock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryStore()
	store.now = c.now
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, Token{Value: "tok", PollID: "p", IssuedAt: c.t, ExpiresAt: c.t.Add(time.Minute)}))
	c.t = c.t.Add(2 * time.Minute)
	_, err := store.Get(ctx, "tok")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, store.items)
}
