// Package storage defines the durability boundary for cached session state.
//
// An Adapter persists exactly two logical entries - the serialized
// Credential and the serialized UserProfile - keyed independently so that
// profile caching survives independently of a specific token generation.
// Implementations differ only in the underlying medium (plain files,
// encrypted files, sqlite); they impose no session policy.
package storage

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shelfmark/client-go/account"
	"github.com/shelfmark/client-go/credentials"
)

// ErrUnavailable indicates the underlying store could not be read or
// written (quota exceeded, encryption unavailable, corrupt entry). Callers
// treat it as "nothing stored" on reads and log-and-continue on writes.
var ErrUnavailable = errors.New("storage unavailable")

// Logical entry names shared by file-backed adapters.
const (
	CredentialKey = "credential"
	ProfileKey    = "profile"
)

// Adapter is the capability set for durably persisting session state. All
// operations may suspend on storage I/O and are idempotent - clearing an
// already-empty store is not an error.
type Adapter interface {
	// GetCredential returns the stored credential, or nil when absent.
	GetCredential(ctx context.Context) (*credentials.Credential, error)

	// SetCredential persists the credential. Partial credentials are
	// rejected before touching the store.
	SetCredential(ctx context.Context, cred credentials.Credential) error

	// ClearCredential removes the stored credential.
	ClearCredential(ctx context.Context) error

	// GetProfile returns the cached user profile, or nil when absent.
	GetProfile(ctx context.Context) (*account.UserProfile, error)

	// SetProfile persists the user profile.
	SetProfile(ctx context.Context, profile account.UserProfile) error

	// ClearProfile removes the cached user profile.
	ClearProfile(ctx context.Context) error

	// ClearAll removes both entries.
	ClearAll(ctx context.Context) error
}
