// Package securestore persists session state encrypted at rest. It is the
// analog of mobile secure storage: entries are sealed with an AEAD whose
// key is derived from a device passphrase, so a copied data folder is
// useless without it.
//
// File layout per entry: 16-byte scrypt salt, 24-byte XChaCha20 nonce,
// ciphertext. The salt is generated per write, so the derived key rotates
// with every update.
package securestore

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/shelfmark/client-go/account"
	"github.com/shelfmark/client-go/credentials"
	"github.com/shelfmark/client-go/storage"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

const (
	saltLength = 16

	// Interactive scrypt parameters (RFC 7914 recommendation).
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

var _ storage.Adapter = (*Store)(nil)

// Store is an encrypted file-backed storage.Adapter.
type Store struct {
	folder     string
	passphrase []byte
}

// New creates a Store rooted at folder, sealing entries with a key derived
// from passphrase.
func New(folder, passphrase string) (*Store, error) {
	if folder == "" {
		return nil, errors.New("[securestore.New] folder is required")
	}
	if passphrase == "" {
		return nil, errors.New("[securestore.New] passphrase is required")
	}
	if err := os.MkdirAll(folder, 0o700); err != nil {
		return nil, errors.Wrap(storage.ErrUnavailable, err.Error())
	}
	return &Store{folder: folder, passphrase: []byte(passphrase)}, nil
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
	return filepath.Join(s.folder, key+".enc")
}

func (s *Store) read(ctx context.Context, key string, out any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	sealed, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(storage.ErrUnavailable, err.Error())
	}
	if len(sealed) < saltLength+chacha20poly1305.NonceSizeX {
		return false, errors.Wrap(storage.ErrUnavailable, "sealed entry truncated")
	}
	salt := sealed[:saltLength]
	nonce := sealed[saltLength : saltLength+chacha20poly1305.NonceSizeX]
	ciphertext := sealed[saltLength+chacha20poly1305.NonceSizeX:]

	aead, err := s.aead(salt)
	if err != nil {
		return false, err
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		// Wrong passphrase or tampered file.
		return false, errors.Wrap(storage.ErrUnavailable, "cannot unseal entry")
	}
	if err := json.Unmarshal(plaintext, out); err != nil {
		return false, errors.Wrap(storage.ErrUnavailable, err.Error())
	}
	return true, nil
}

func (s *Store) write(ctx context.Context, key string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	plaintext, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "[Store.write] marshal")
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return errors.Wrap(err, "[Store.write] rand.Read salt")
	}
	aead, err := s.aead(salt)
	if err != nil {
		return err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return errors.Wrap(err, "[Store.write] rand.Read nonce")
	}

	sealed := make([]byte, 0, saltLength+len(nonce)+len(plaintext)+aead.Overhead())
	sealed = append(sealed, salt...)
	sealed = append(sealed, nonce...)
	sealed = aead.Seal(sealed, nonce, plaintext, nil)

	tmp := s.path(key) + ".tmp"
	if err := os.WriteFile(tmp, sealed, 0o600); err != nil {
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

func (s *Store) aead(salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key(s.passphrase, salt, scryptN, scryptR, scryptP, chacha20poly1305.KeySize)
	if err != nil {
		return nil, errors.Wrap(err, "[Store.aead] scrypt.Key")
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, errors.Wrap(err, "[Store.aead] chacha20poly1305.NewX")
	}
	return aead, nil
}
