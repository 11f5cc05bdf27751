// Package filestore persists session state as plain JSON files under a data
// folder. It is the desktop/web analog of browser-local persistent storage:
// durable, unencrypted, owned by the current OS user.
package filestore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/shelfmark/client-go/account"
	"github.com/shelfmark/client-go/credentials"
	"github.com/shelfmark/client-go/storage"
)

var _ storage.Adapter = (*Store)(nil)

// Store is a file-backed storage.Adapter. Each logical entry lives in its
// own file so the profile cache survives credential rotation.
type Store struct {
	folder string
}

// New creates a Store rooted at folder, creating the folder if needed.
func New(folder string) (*Store, error) {
	if folder == "" {
		return nil, errors.New("[filestore.New] folder is required")
	}
	if err := os.MkdirAll(folder, 0o700); err != nil {
		return nil, errors.Wrap(storage.ErrUnavailable, err.Error())
	}
	return &Store{folder: folder}, nil
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
	return s.remove(storage.CredentialKey)
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
	return s.remove(storage.ProfileKey)
}

func (s *Store) ClearAll(ctx context.Context) error {
	if err := s.remove(storage.CredentialKey); err != nil {
		return err
	}
	return s.remove(storage.ProfileKey)
}

func (s *Store) path(key string) string {
	return filepath.Join(s.folder, key+".json")
}

func (s *Store) read(ctx context.Context, key string, out any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	data, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(storage.ErrUnavailable, err.Error())
	}
	if err := json.Unmarshal(data, out); err != nil {
		// A corrupt entry is indistinguishable from a lost one.
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
	// Write-then-rename so a crash mid-write never leaves a torn entry.
	tmp := s.path(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.Wrap(storage.ErrUnavailable, err.Error())
	}
	if err := os.Rename(tmp, s.path(key)); err != nil {
		return errors.Wrap(storage.ErrUnavailable, err.Error())
	}
	return nil
}

func (s *Store) remove(key string) error {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(storage.ErrUnavailable, err.Error())
	}
	return nil
}
