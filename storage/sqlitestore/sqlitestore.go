// Package sqlitestore persists session state in a sqlite database, for
// clients that already carry one for offline book data. Entries live in a
// single key/value table and are upserted whole.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/shelfmark/client-go/account"
	"github.com/shelfmark/client-go/credentials"
	"github.com/shelfmark/client-go/storage"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS session_cache (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at INTEGER NOT NULL
);`

var _ storage.Adapter = (*Store)(nil)

// Store is a sqlite-backed storage.Adapter.
type Store struct {
	sqlDB   *sql.DB
	nowTime func() time.Time
}

// New opens (or creates) the database at path and ensures the cache table
// exists.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("[sqlitestore.New] path is required")
	}
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(storage.ErrUnavailable, err.Error())
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, errors.Wrap(storage.ErrUnavailable, err.Error())
	}
	return &Store{sqlDB: sqlDB, nowTime: time.Now}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.sqlDB.Close()
}

func (s *Store) GetCredential(ctx context.Context) (*credentials.Credential, error) {
	var cred credentials.Credential
	found, err := s.read(ctx, storage.CredentialKey, &cred)
	if err != nil || !found {
		return nil, err
	}
	return &cred, nil
}

func (s *Store) SetCredential(ctx context.Context, cred credentials.Credential) error {
	if err := cred.Validate(); err != nil {
		return errors.Wrap(err, "[Store.SetCredential]")
	}
	return s.write(ctx, storage.CredentialKey, cred)
}

func (s *Store) ClearCredential(ctx context.Context) error {
	return s.remove(ctx, storage.CredentialKey)
}

func (s *Store) GetProfile(ctx context.Context) (*account.UserProfile, error) {
	var profile account.UserProfile
	found, err := s.read(ctx, storage.ProfileKey, &profile)
	if err != nil || !found {
		return nil, err
	}
	return &profile, nil
}

func (s *Store) SetProfile(ctx context.Context, profile account.UserProfile) error {
	return s.write(ctx, storage.ProfileKey, profile)
}

func (s *Store) ClearProfile(ctx context.Context) error {
	return s.remove(ctx, storage.ProfileKey)
}

func (s *Store) ClearAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM session_cache`); err != nil {
		return errors.Wrap(storage.ErrUnavailable, err.Error())
	}
	return nil
}

func (s *Store) read(ctx context.Context, key string, out any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var value []byte
	err := s.sqlDB.QueryRowContext(ctx, `SELECT value FROM session_cache WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(storage.ErrUnavailable, err.Error())
	}
	if err := json.Unmarshal(value, out); err != nil {
		return false, errors.Wrap(storage.ErrUnavailable, err.Error())
	}
	return true, nil
}

func (s *Store) write(ctx context.Context, key string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "[Store.write] marshal")
	}
	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO session_cache (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
	value = excluded.value,
	updated_at = excluded.updated_at
`, key, data, s.nowTime().UnixMilli())
	if err != nil {
		return errors.Wrap(storage.ErrUnavailable, err.Error())
	}
	return nil
}

func (s *Store) remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM session_cache WHERE key = ?`, key); err != nil {
		return errors.Wrap(storage.ErrUnavailable, err.Error())
	}
	return nil
}
