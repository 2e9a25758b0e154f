package health

import (
	"context"
	"time"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Service encapsulates health-related checks.
type Service struct {
	DB  Pinger
	now func() time.Time
}

// Status is the health payload.
type Status struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Database  string `json:"database,omitempty"`
}

// NewService constructs a new health service. db may be nil when votes are
// kept in memory.
func NewService(db Pinger) *Service {
	return &Service{DB: db, now: time.Now}
}

// Healthy reports whether st describes a serving instance.
func (st Status) Healthy() bool {
	return st.Status == "healthy"
}

// Status returns the health payload, pinging the database when one is wired.
func (s *Service) Status(ctx context.Context) Status {
	st := Status{
		Status:    "healthy",
		Timestamp: s.now().UTC().Format(time.RFC3339),
		Version:   Version,
	}
	if s.DB == nil {
		return st
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.DB.PingContext(ctx); err != nil {
		st.Status = "degraded"
		st.Database = "unavailable"
		return st
	}
	st.Database = "ok"
	return st
}
