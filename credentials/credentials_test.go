package credentials_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shelfmark/client-go/credentials"
	"github.com/stretchr/testify/require"
)

var testNow = time.UnixMilli(1_700_000_000_000)

func TestValidateRejectsPartialCredential(t *testing.T) {
	tests := []struct {
		name string
		cred credentials.Credential
		ok   bool
	}{
		{"complete", credentials.Credential{IDToken: "id", AccessToken: "access", ExpiresAt: 1}, true},
		{"missing id token", credentials.Credential{AccessToken: "access", ExpiresAt: 1}, false},
		{"missing access token", credentials.Credential{IDToken: "id", ExpiresAt: 1}, false},
		{"missing expiry", credentials.Credential{IDToken: "id", AccessToken: "access"}, false},
		{"empty", credentials.Credential{}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cred.Validate()
			if tc.ok {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, credentials.IncompleteCredentialErr)
		})
	}
}

func TestExpired(t *testing.T) {
	cred := credentials.Credential{IDToken: "id", AccessToken: "access", ExpiresAt: testNow.UnixMilli()}

	require.True(t, cred.Expired(testNow), "expiry instant itself counts as expired")
	require.True(t, cred.Expired(testNow.Add(time.Second)))
	require.False(t, cred.Expired(testNow.Add(-time.Second)))
}

func TestFromTokenGrant(t *testing.T) {
	cred, err := credentials.FromTokenGrant("opaque-id-token", "opaque-access-token", 3600, testNow)
	require.NoError(t, err)

	require.Equal(t, "opaque-id-token", cred.IDToken)
	require.Equal(t, "opaque-access-token", cred.AccessToken)
	require.Equal(t, testNow.UnixMilli()+3_600_000, cred.ExpiresAt)
}

func TestFromTokenGrantRejectsMissingTokens(t *testing.T) {
	_, err := credentials.FromTokenGrant("", "access", 3600, testNow)
	require.ErrorIs(t, err, credentials.IncompleteCredentialErr)

	_, err = credentials.FromTokenGrant("id", "", 3600, testNow)
	require.ErrorIs(t, err, credentials.IncompleteCredentialErr)
}

func TestFromTokenGrantFloorsAtJWTExpiry(t *testing.T) {
	// The ID token says 10 minutes, the server claims an hour. The token
	// wins.
	jwtExpiry := testNow.Add(10 * time.Minute)
	idToken := signedToken(t, jwtExpiry)

	cred, err := credentials.FromTokenGrant(idToken, "opaque-access-token", 3600, testNow)
	require.NoError(t, err)
	require.Equal(t, jwtExpiry.UnixMilli(), cred.ExpiresAt)
}

func TestFromTokenGrantIgnoresLaterJWTExpiry(t *testing.T) {
	idToken := signedToken(t, testNow.Add(2*time.Hour))

	cred, err := credentials.FromTokenGrant(idToken, "opaque-access-token", 3600, testNow)
	require.NoError(t, err)
	require.Equal(t, testNow.UnixMilli()+3_600_000, cred.ExpiresAt)
}

func signedToken(t *testing.T, expiry time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": expiry.Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}
