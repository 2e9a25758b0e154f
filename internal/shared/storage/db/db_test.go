package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type nopDriver struct{}

func (d nopDriver) Open(name string) (driver.Conn, error) {
	return nopConn{}, nil
}

type nopConn struct{}

func (nopConn) Prepare(query string) (driver.Stmt, error) { return nopStmt{}, nil }
func (nopConn) Close() error                              { return nil }
func (nopConn) Begin() (driver.Tx, error)                 { return nopTx{}, nil }
func (nopConn) Ping(ctx context.Context) error            { return nil }

type nopStmt struct{}

func (nopStmt) Close() error                                   { return nil }
func (nopStmt) NumInput() int                                  { return -1 }
func (nopStmt) Exec(args []driver.Value) (driver.Result, error) { return nopResult{}, nil }
func (nopStmt) Query(args []driver.Value) (driver.Rows, error)  { return nopRows{}, nil }

type nopTx struct{}

func (nopTx) Commit() error   { return nil }
func (nopTx) Rollback() error { return nil }

type nopResult struct{}

func (nopResult) LastInsertId() (int64, error) { return 0, nil }
func (nopResult) RowsAffected() (int64, error) { return 0, nil }

type nopRows struct{}

func (nopRows) Columns() []string              { return []string{} }
func (nopRows) Close() error                   { return nil }
func (nopRows) Next(dest []driver.Value) error { return driver.ErrBadConn }

var registerTestDriverOnce sync.Once

func ensureTestDriverRegistered() {
	registerTestDriverOnce.Do(func() {
		sql.Register("dbtest", nopDriver{})
	})
}

func withTestDriver(t *testing.T) (gotDriver *string) {
	t.Helper()
	ensureTestDriverRegistered()
	prev := openDB
	var name string
	openDB = func(driverName, dsn string) (*sql.DB, error) {
		name = driverName
		return sql.Open("dbtest", dsn)
	}
	t.Cleanup(func() {
		openDB = prev
	})
	return &name
}

func TestParseURL(t *testing.T) {
	cases := []struct {
		url     string
		driver  string
		dialect Dialect
		dsn     string
	}{
		{"postgres://u:p@localhost:5432/ballots", "pgx", DialectPostgres, "postgres://u:p@localhost:5432/ballots"},
		{"postgresql://localhost/ballots", "pgx", DialectPostgres, "postgresql://localhost/ballots"},
		{"sqlite://./ballot.db", "sqlite", DialectSQLite, "./ballot.db?_pragma=busy_timeout(5000)"},
		{"sqlite:/tmp/b.db?_pragma=foreign_keys(1)", "sqlite", DialectSQLite, "/tmp/b.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"},
	}
	for _, tc := range cases {
		got, err := ParseURL(tc.url)
		if err != nil {
			t.Fatalf("ParseURL(%q): %v", tc.url, err)
		}
		if got.Driver != tc.driver || got.Dialect != tc.dialect || got.DSN != tc.dsn {
			t.Fatalf("ParseURL(%q) = %+v", tc.url, got)
		}
	}

	for _, bad := range []string{"", "   ", "mysql://localhost/x", "sqlite://"} {
		if _, err := ParseURL(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestRebind(t *testing.T) {
	q := "SELECT id FROM votes WHERE poll_id = $1 AND voter_hash = $2"
	if got := Rebind(DialectPostgres, q); got != q {
		t.Fatalf("postgres query changed: %s", got)
	}
	want := "SELECT id FROM votes WHERE poll_id = ?1 AND voter_hash = ?2"
	if got := Rebind(DialectSQLite, q); got != want {
		t.Fatalf("unexpected sqlite query: %s", got)
	}
}

func TestOptionsFromEnvAppliesOverrides(t *testing.T) {
	driverName := withTestDriver(t)

	t.Setenv("DB_MAX_OPEN_CONNS", "7")
	t.Setenv("DB_MAX_IDLE_CONNS", "3")
	t.Setenv("DB_CONN_MAX_LIFETIME", "20m")
	t.Setenv("DB_CONN_MAX_IDLE_TIME", "45s")
	t.Setenv("DB_PING_TIMEOUT", "1s")

	opts := OptionsFromEnv(DefaultServerOptions())
	db, err := Connect(context.Background(), "postgres://ignored", opts)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer db.Close()

	if *driverName != "pgx" {
		t.Fatalf("expected pgx driver, got %s", *driverName)
	}
	stats := db.Stats()
	if stats.MaxOpenConnections != 7 {
		t.Fatalf("expected MaxOpenConnections=7, got %d", stats.MaxOpenConnections)
	}
	if opts.MaxIdleConns != 3 {
		t.Fatalf("expected MaxIdleConns=3, got %d", opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime != 20*time.Minute {
		t.Fatalf("expected ConnMaxLifetime=20m, got %s", opts.ConnMaxLifetime)
	}
	if opts.ConnMaxIdleTime != 45*time.Second {
		t.Fatalf("expected ConnMaxIdleTime=45s, got %s", opts.ConnMaxIdleTime)
	}
	if opts.PingTimeout != time.Second {
		t.Fatalf("expected PingTimeout=1s, got %s", opts.PingTimeout)
	}
}

func TestConnectSQLiteUsesSingleConnection(t *testing.T) {
	driverName := withTestDriver(t)

	db, err := Connect(context.Background(), "sqlite://ignored.db", DefaultServerOptions())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer db.Close()

	if *driverName != "sqlite" {
		t.Fatalf("expected sqlite driver, got %s", *driverName)
	}
	if got := db.Stats().MaxOpenConnections; got != 1 {
		t.Fatalf("expected MaxOpenConnections=1, got %d", got)
	}
}

func TestConnectRejectsEmptyURL(t *testing.T) {
	if _, err := Connect(context.Background(), "", DefaultServerOptions()); err == nil {
		t.Fatalf("expected error for empty url")
	}
}

func TestRunMigrationsSQLite(t *testing.T) {
	url := "sqlite://" + filepath.Join(t.TempDir(), "ballot.db")
	db, err := Connect(context.Background(), url, DefaultMigrateOptions())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer db.Close()

	if err := RunMigrations(context.Background(), db, DialectSQLite); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}
	// Second run is a no-op.
	if err := RunMigrations(context.Background(), db, DialectSQLite); err != nil {
		t.Fatalf("RunMigrations again: %v", err)
	}

	insert := Rebind(DialectSQLite, `INSERT INTO votes (id, poll_id, voter_hash, file_hash, vote_choice, created_at) VALUES ($1, $2, $3, $4, $5, $6)`)
	now := time.Now().UTC()
	if _, err := db.Exec(insert, "a", "poll", "h1", "f1", "YES", now); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := db.Exec(insert, "b", "poll", "h2", "f1", "YES", now); err == nil {
		t.Fatalf("expected file_hash unique violation")
	}
	if _, err := db.Exec(insert, "c", "poll", "h1", "f2", "YES", now); err == nil {
		t.Fatalf("expected poll/voter unique violation")
	}
	if _, err := db.Exec(insert, "d", "poll", "h3", "f3", "", now); err == nil {
		t.Fatalf("expected empty choice to violate check constraint")
	}
}

func TestRunMigrationsNilDB(t *testing.T) {
	if err := RunMigrations(context.Background(), nil, DialectPostgres); err != nil {
		t.Fatalf("expected nil db to be a no-op, got %v", err)
	}
}
