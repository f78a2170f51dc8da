package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/jwtpair/tracking"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
)

// DefaultTable is the table used when NewStore is given an empty name.
const DefaultTable = "renewal_tokens"

const (
	statusOutstanding = "outstanding"
	statusBlacklisted = "blacklisted"
)

// DB is the subset of *pgxpool.Pool (and pgx.Tx) the store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Store is a PostgreSQL-backed tracking store. Blacklist is a conditional
// UPDATE guarded by status = 'outstanding'; the row count decides the winner
// when several rotations race on one identifier.
type Store struct {
	db    DB
	table string

	statusSQL    string
	blacklistSQL string
	insertSQL    string
	purgeSQL     string
}

// NewStore wraps db. table is quoted as an identifier.
func NewStore(db DB, table string) *Store {
	if table == "" {
		table = DefaultTable
	}
	quoted := pgx.Identifier{table}.Sanitize()
	return &Store{
		db:    db,
		table: quoted,

		statusSQL: fmt.Sprintf(`SELECT status FROM %s WHERE jti = $1`, quoted),
		blacklistSQL: fmt.Sprintf(`
			UPDATE %s
			   SET status = '%s', used_at = $2
			 WHERE jti = $1 AND status = '%s'`, quoted, statusBlacklisted, statusOutstanding),
		insertSQL: fmt.Sprintf(`
			INSERT INTO %s (jti, subject, status, issued_at, expires_at)
			VALUES ($1, $2, '%s', $3, $4)
			ON CONFLICT (jti) DO NOTHING`, quoted, statusOutstanding),
		purgeSQL: fmt.Sprintf(`DELETE FROM %s WHERE expires_at <= $1`, quoted),
	}
}

// Schema returns the DDL for the store's table.
func (s *Store) Schema() string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	jti        TEXT PRIMARY KEY,
	subject    TEXT NOT NULL,
	status     TEXT NOT NULL CHECK (status IN ('%s', '%s')),
	issued_at  TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	used_at    TIMESTAMPTZ
)`, s.table, statusOutstanding, statusBlacklisted)
}

// EnsureSchema creates the table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, s.Schema()); err != nil {
		return fmt.Errorf("%w: %v", tracking.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) Status(ctx context.Context, jti string) (tracking.Status, error) {
	var status string
	if err := s.db.QueryRow(ctx, s.statusSQL, jti).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return tracking.StatusNotFound, nil
		}
		return tracking.StatusNotFound, fmt.Errorf("%w: %v", tracking.ErrUnavailable, err)
	}
	return parseStatus(status)
}

// Blacklist consumes jti. When the conditional UPDATE touches no row, a
// follow-up read distinguishes a missing record from one already consumed.
// A record never returns to outstanding, so the read cannot misclassify.
func (s *Store) Blacklist(ctx context.Context, jti string) error {
	tag, err := s.db.Exec(ctx, s.blacklistSQL, jti, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("%w: %v", tracking.ErrUnavailable, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	status, err := s.Status(ctx, jti)
	if err != nil {
		return err
	}
	switch status {
	case tracking.StatusNotFound:
		return tracking.ErrNotFound
	case tracking.StatusBlacklisted:
		return tracking.ErrAlreadyBlacklisted
	default:
		return fmt.Errorf("%w: conditional update missed outstanding row %q", tracking.ErrUnavailable, jti)
	}
}

func (s *Store) InsertOutstanding(ctx context.Context, rec tracking.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx, s.insertSQL, rec.JTI, rec.Subject, rec.IssuedAt.UTC(), rec.ExpiresAt.UTC())
	if err != nil {
		return fmt.Errorf("%w: %v", tracking.ErrUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return tracking.ErrDuplicate
	}
	return nil
}

// PurgeExpired deletes rows whose renewal token expired at or before now.
func (s *Store) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, s.purgeSQL, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", tracking.ErrUnavailable, err)
	}
	return tag.RowsAffected(), nil
}

func parseStatus(value string) (tracking.Status, error) {
	switch value {
	case statusOutstanding:
		return tracking.StatusOutstanding, nil
	case statusBlacklisted:
		return tracking.StatusBlacklisted, nil
	default:
		return tracking.StatusNotFound, fmt.Errorf("%w: corrupt status %q", tracking.ErrUnavailable, value)
	}
}
