package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) PingContext(ctx context.Context) error { return f(ctx) }

func TestStatusWithoutDatabase(t *testing.T) {
	s := NewService(nil)
	s.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }

	st := s.Status(context.Background())
	if !st.Healthy() || st.Version != Version || st.Database != "" {
		t.Fatalf("unexpected status %+v", st)
	}
	if st.Timestamp != "2025-01-02T03:04:05Z" {
		t.Fatalf("unexpected timestamp %q", st.Timestamp)
	}
}

func TestStatusReportsDatabase(t *testing.T) {
	ok := NewService(pingFunc(func(context.Context) error { return nil })).Status(context.Background())
	if !ok.Healthy() || ok.Database != "ok" {
		t.Fatalf("unexpected status %+v", ok)
	}

	down := NewService(pingFunc(func(context.Context) error { return errors.New("refused") })).Status(context.Background())
	if down.Healthy() || down.Database != "unavailable" {
		t.Fatalf("unexpected status %+v", down)
	}
}
