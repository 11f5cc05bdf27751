package filestore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shelfmark/client-go/account"
	"github.com/shelfmark/client-go/credentials"
	"github.com/shelfmark/client-go/storage"
	"github.com/shelfmark/client-go/storage/filestore"
	"github.com/stretchr/testify/require"
)

var (
	testCredential = credentials.Credential{
		IDToken:     "id-token",
		AccessToken: "access-token",
		ExpiresAt:   1_700_000_000_000,
	}
	testProfile = account.UserProfile{
		ID:     7,
		Email:  "jane@example.com",
		Name:   "Jane",
		Role:   account.RoleUser,
		Active: true,
	}
)

func newStore(t *testing.T) *filestore.Store {
	t.Helper()
	store, err := filestore.New(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestNewRequiresFolder(t *testing.T) {
	_, err := filestore.New("")
	require.Error(t, err)
}

func TestCredentialRoundtrip(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	cred, err := store.GetCredential(ctx)
	require.NoError(t, err)
	require.Nil(t, cred, "fresh store holds nothing")

	require.NoError(t, store.SetCredential(ctx, testCredential))

	cred, err = store.GetCredential(ctx)
	require.NoError(t, err)
	require.Equal(t, testCredential, *cred)
}

func TestProfileRoundtrip(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.SetProfile(ctx, testProfile))

	profile, err := store.GetProfile(ctx)
	require.NoError(t, err)
	require.Equal(t, testProfile, *profile)
}

func TestSetCredentialRejectsPartial(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	err := store.SetCredential(ctx, credentials.Credential{IDToken: "only-id"})
	require.ErrorIs(t, err, credentials.IncompleteCredentialErr)

	cred, err := store.GetCredential(ctx)
	require.NoError(t, err)
	require.Nil(t, cred, "nothing was persisted")
}

func TestEntriesAreIndependent(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.SetCredential(ctx, testCredential))
	require.NoError(t, store.SetProfile(ctx, testProfile))
	require.NoError(t, store.ClearCredential(ctx))

	cred, err := store.GetCredential(ctx)
	require.NoError(t, err)
	require.Nil(t, cred)

	profile, err := store.GetProfile(ctx)
	require.NoError(t, err)
	require.NotNil(t, profile, "profile survives credential rotation")
}

func TestClearAllIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.SetCredential(ctx, testCredential))
	require.NoError(t, store.SetProfile(ctx, testProfile))

	require.NoError(t, store.ClearAll(ctx))
	require.NoError(t, store.ClearAll(ctx), "clearing an empty store is not an error")

	cred, err := store.GetCredential(ctx)
	require.NoError(t, err)
	require.Nil(t, cred)

	profile, err := store.GetProfile(ctx)
	require.NoError(t, err)
	require.Nil(t, profile)
}

func TestCorruptEntryIsUnavailable(t *testing.T) {
	ctx := context.Background()
	folder := t.TempDir()
	store, err := filestore.New(folder)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(folder, "credential.json"), []byte("{not json"), 0o600))

	_, err = store.GetCredential(ctx)
	require.ErrorIs(t, err, storage.ErrUnavailable)
}
