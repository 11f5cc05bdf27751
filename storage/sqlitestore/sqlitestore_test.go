package sqlitestore_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shelfmark/client-go/account"
	"github.com/shelfmark/client-go/credentials"
	"github.com/shelfmark/client-go/storage/sqlitestore"
	"github.com/stretchr/testify/require"
)

var testCredential = credentials.Credential{
	IDToken:     "id-token",
	AccessToken: "access-token",
	ExpiresAt:   1_700_000_000_000,
}

func newStore(t *testing.T) *sqlitestore.Store {
	t.Helper()
	store, err := sqlitestore.New(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRoundtrip(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	cred, err := store.GetCredential(ctx)
	require.NoError(t, err)
	require.Nil(t, cred)

	require.NoError(t, store.SetCredential(ctx, testCredential))

	cred, err = store.GetCredential(ctx)
	require.NoError(t, err)
	require.Equal(t, testCredential, *cred)
}

func TestUpsertOverwrites(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.SetCredential(ctx, testCredential))

	rotated := testCredential
	rotated.AccessToken = "rotated-access-token"
	rotated.ExpiresAt += 3_600_000
	require.NoError(t, store.SetCredential(ctx, rotated))

	cred, err := store.GetCredential(ctx)
	require.NoError(t, err)
	require.Equal(t, rotated, *cred)
}

func TestProfileSurvivesCredentialClear(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	profile := account.UserProfile{ID: 7, Email: "jane@example.com", Role: account.RoleUser, Active: true}
	require.NoError(t, store.SetCredential(ctx, testCredential))
	require.NoError(t, store.SetProfile(ctx, profile))
	require.NoError(t, store.ClearCredential(ctx))

	got, err := store.GetProfile(ctx)
	require.NoError(t, err)
	require.Equal(t, profile, *got)
}

func TestClearAllIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.SetCredential(ctx, testCredential))
	require.NoError(t, store.ClearAll(ctx))
	require.NoError(t, store.ClearAll(ctx))

	cred, err := store.GetCredential(ctx)
	require.NoError(t, err)
	require.Nil(t, cred)
}

func TestSetCredentialRejectsPartial(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	err := store.SetCredential(ctx, credentials.Credential{IDToken: "only-id"})
	require.ErrorIs(t, err, credentials.IncompleteCredentialErr)
}
