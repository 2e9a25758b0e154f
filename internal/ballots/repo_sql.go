package ballots

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"ballot-backend/internal/shared/storage/db"
)

const (
	fileHashConstraint  = "votes_file_hash_key"
	pollVoterConstraint = "votes_poll_voter_key"
)

// SQLRepo stores votes in the votes table of Postgres or SQLite.
type SQLRepo struct {
	DB      *sql.DB
	Dialect db.Dialect
}

func NewSQLRepo(conn *sql.DB, dialect db.Dialect) *SQLRepo {
	return &SQLRepo{DB: conn, Dialect: dialect}
}

const voteColumns = `id, poll_id, voter_hash, file_hash, vote_choice, created_at`

func (r *SQLRepo) FindByFingerprint(ctx context.Context, fingerprint string) (Vote, error) {
	row := r.DB.QueryRowContext(ctx, r.q(`SELECT `+voteColumns+` FROM votes WHERE file_hash = $1`), fingerprint)
	return scanVote(row)
}

func (r *SQLRepo) FindByIdentity(ctx context.Context, pollID, voterHash string) (Vote, error) {
	row := r.DB.QueryRowContext(ctx, r.q(`SELECT `+voteColumns+` FROM votes WHERE poll_id = $1 AND voter_hash = $2`), pollID, voterHash)
	return scanVote(row)
}

func (r *SQLRepo) Record(ctx context.Context, vote Vote, supersede bool) (err error) {
	if vote.Choice == "" || vote.PollID == "" || vote.VoterHash == "" || vote.FileHash == "" {
		return ErrInvalidInput
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if supersede {
		if _, err = tx.ExecContext(ctx, r.q(`DELETE FROM votes WHERE poll_id = $1 AND voter_hash = $2`), vote.PollID, vote.VoterHash); err != nil {
			return err
		}
	}
	_, err = tx.ExecContext(ctx,
		r.q(`INSERT INTO votes (`+voteColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`),
		vote.ID, vote.PollID, vote.VoterHash, vote.FileHash, vote.Choice, vote.CreatedAt.UTC(),
	)
	if err != nil {
		err = mapConstraintError(err)
		return err
	}
	err = tx.Commit()
	if err != nil {
		err = mapConstraintError(err)
	}
	return err
}

func (r *SQLRepo) Tally(ctx context.Context, pollID string) (Tally, error) {
	rows, err := r.DB.QueryContext(ctx, r.q(`SELECT vote_choice, COUNT(*) FROM votes WHERE poll_id = $1 GROUP BY vote_choice`), pollID)
	if err != nil {
		return Tally{}, err
	}
	defer rows.Close()

	t := Tally{PollID: pollID, Choices: map[string]int{}}
	for rows.Next() {
		var choice string
		var n int
		if err := rows.Scan(&choice, &n); err != nil {
			return Tally{}, err
		}
		t.Choices[choice] = n
		t.Total += n
	}
	return t, rows.Err()
}

func (r *SQLRepo) q(query string) string {
	return db.Rebind(r.Dialect, query)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVote(row rowScanner) (Vote, error) {
	var v Vote
	if err := row.Scan(&v.ID, &v.PollID, &v.VoterHash, &v.FileHash, &v.Choice, &v.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Vote{}, ErrNotFound
		}
		return Vote{}, err
	}
	return v, nil
}

// mapConstraintError turns unique violations into the store's duplicate
// errors. Anything else is returned unchanged.
func mapConstraintError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch pgErr.ConstraintName {
		case fileHashConstraint:
			return ErrDuplicateFingerprint
		case pollVoterConstraint:
			return ErrDuplicateIdentity
		}
		return err
	}

	var liteErr *sqlite.Error
	// The low byte is the primary result code whether or not extended codes are on.
	if errors.As(err, &liteErr) && liteErr.Code()&0xff != sqlite3.SQLITE_CONSTRAINT {
		return err
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "votes.file_hash"):
		return ErrDuplicateFingerprint
	case strings.Contains(msg, "votes.poll_id, votes.voter_hash"):
		return ErrDuplicateIdentity
	}
	return err
}
