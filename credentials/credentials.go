package credentials

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

var (
	IncompleteCredentialErr = errors.New("credential is missing a token or expiry")
)

// Credential is the short-lived token pair cached client-side between logins.
// Both tokens are opaque to this package; ExpiresAt is epoch milliseconds.
// A Credential is either fully populated or not stored at all - adapters
// reject partial credentials via Validate.
type Credential struct {
	IDToken     string `json:"idToken"`     // Asserts identity to first-party services
	AccessToken string `json:"accessToken"` // Authorizes API calls
	ExpiresAt   int64  `json:"expiresAt"`   // Epoch ms after which both tokens are unusable
}

// Validate reports whether the credential is fully populated.
func (c Credential) Validate() error {
	if c.IDToken == "" || c.AccessToken == "" || c.ExpiresAt <= 0 {
		return IncompleteCredentialErr
	}
	return nil
}

// Expired reports whether the credential must not be used for new requests.
func (c Credential) Expired(now time.Time) bool {
	return now.UnixMilli() >= c.ExpiresAt
}

// FromTokenGrant builds a Credential from an identity endpoint token
// response. ExpiresAt is now + expiresIn seconds. When the ID token carries
// a parseable exp claim that is earlier than the advertised expiry, the
// claim wins - the server's expiresIn is advisory, the JWT is not.
func FromTokenGrant(idToken, accessToken string, expiresInSeconds int64, now time.Time) (Credential, error) {
	cred := Credential{
		IDToken:     idToken,
		AccessToken: accessToken,
		ExpiresAt:   now.UnixMilli() + expiresInSeconds*1000,
	}
	if exp, ok := idTokenExpiry(idToken); ok && exp < cred.ExpiresAt {
		cred.ExpiresAt = exp
	}
	if err := cred.Validate(); err != nil {
		return Credential{}, errors.Wrap(err, "[FromTokenGrant] token response incomplete")
	}
	return cred, nil
}

// idTokenExpiry pulls the exp claim out of the ID token without verifying
// the signature. Tokens are treated as opaque everywhere else; a token that
// does not parse as a JWT is simply left alone.
func idTokenExpiry(idToken string) (int64, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return 0, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return 0, false
	}
	return exp.UnixMilli(), true
}
