// Package bunstore persists the client session in an embedded sqlite
// database through bun. It backs hosts that keep a durable profile on disk
// (kiosk builds, the desktop shell) where a flat JSON file is too easy to
// corrupt.
package bunstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	auth "github.com/schoolmed/go-authclient"
)

type sessionRow struct {
	bun.BaseModel `bun:"table:auth_sessions,alias:s"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Token     string    `bun:"token,notnull"`
	Principal []byte    `bun:"principal"`
	IssuedAt  time.Time `bun:"session_issued_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// Store is a bun/sqlite-backed auth.TokenStore. At most one session row
// exists at a time.
type Store struct {
	db *bun.DB
}

var _ auth.TokenStore = (*Store)(nil)

// Open connects to the sqlite database at dsn (":memory:" works for tests)
// and ensures the session table exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())
	store := &Store{db: db}

	if _, err := db.NewCreateTable().
		Model((*sessionRow)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Load(ctx context.Context) (*auth.StoredSession, error) {
	row := &sessionRow{}
	err := s.db.NewSelect().
		Model(row).
		Order("id DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	session := &auth.StoredSession{
		Token:    row.Token,
		IssuedAt: row.IssuedAt,
	}
	if len(row.Principal) > 0 {
		if err := json.Unmarshal(row.Principal, &session.Principal); err != nil {
			return nil, err
		}
	}
	return session, nil
}

func (s *Store) Save(ctx context.Context, session *auth.StoredSession) error {
	if session == nil {
		return s.Clear(ctx)
	}

	principal, err := json.Marshal(session.Principal)
	if err != nil {
		return err
	}

	row := &sessionRow{
		Token:     session.Token,
		Principal: principal,
		IssuedAt:  session.IssuedAt,
		UpdatedAt: time.Now(),
	}

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*sessionRow)(nil)).
			Where("1 = 1").
			Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewInsert().Model(row).Exec(ctx)
		return err
	})
}

func (s *Store) Clear(ctx context.Context) error {
	_, err := s.db.NewDelete().
		Model((*sessionRow)(nil)).
		Where("1 = 1").
		Exec(ctx)
	return err
}
