package identity_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shelfmark/client-go/identity"
	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "jane@example.com"
	testPassword = "password123"
)

func newClient(t *testing.T, handler http.Handler) *identity.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := identity.New(server.URL)
	require.NoError(t, err)
	return client
}

func TestLoginSuccess(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/login", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NotEmpty(t, r.Header.Get("X-Request-ID"))

		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, testEmail, body.Email)
		require.Equal(t, testPassword, body.Password)

		// The refresh credential lives in an HTTP-only cookie, never in
		// the response body.
		http.SetCookie(w, &http.Cookie{Name: "refresh_token", Value: "server-held", HttpOnly: true})
		_ = json.NewEncoder(w).Encode(map[string]any{
			"idToken":     "id-token",
			"accessToken": "access-token",
			"expiresIn":   3600,
			"user": map[string]any{
				"id":     7,
				"email":  testEmail,
				"name":   "Jane",
				"role":   "user",
				"active": true,
			},
		})
	}))

	grant, profile, err := client.Login(t.Context(), testEmail, testPassword)
	require.NoError(t, err)
	require.Equal(t, "id-token", grant.IDToken)
	require.Equal(t, "access-token", grant.AccessToken)
	require.Equal(t, int64(3600), grant.ExpiresIn)
	require.Equal(t, testEmail, profile.Email)
	require.Equal(t, int64(7), profile.ID)
}

func TestLoginRejectedCarriesServerReason(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid email or password"})
	}))

	_, _, err := client.Login(t.Context(), testEmail, "wrong")
	require.ErrorIs(t, err, identity.AuthenticationFailedErr)
	require.Contains(t, err.Error(), "invalid email or password")
}

func TestLoginNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	client, err := identity.New(server.URL)
	require.NoError(t, err)
	server.Close() // Connection refused from here on.

	_, _, err = client.Login(t.Context(), testEmail, testPassword)
	require.ErrorIs(t, err, identity.NetworkUnavailableErr)
}

func TestRegisterConflict(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/register", r.URL.Path)
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "email already registered"})
	}))

	_, err := client.Register(t.Context(), identity.Registration{Email: testEmail, Password: testPassword})
	require.ErrorIs(t, err, identity.AlreadyExistsErr)
	require.NotErrorIs(t, err, identity.AuthenticationFailedErr)
}

func TestRegisterRequiresVerification(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(identity.RegistrationOutcome{
			Success:              true,
			RequiresVerification: true,
			Message:              "check your inbox",
		})
	}))

	outcome, err := client.Register(t.Context(), identity.Registration{
		Email:    testEmail,
		Password: testPassword,
		Name:     "Jane",
		Surname:  "Doe",
	})
	require.NoError(t, err)
	require.True(t, outcome.Success)
	require.True(t, outcome.RequiresVerification)
}

func TestRefreshSendsCookieFromLogin(t *testing.T) {
	var sawRefreshCookie bool
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			http.SetCookie(w, &http.Cookie{Name: "refresh_token", Value: "server-held", HttpOnly: true})
			_ = json.NewEncoder(w).Encode(map[string]any{
				"idToken": "id-1", "accessToken": "access-1", "expiresIn": 3600,
				"user": map[string]any{"id": 7, "email": testEmail},
			})
		case "/auth/refresh":
			cookie, err := r.Cookie("refresh_token")
			sawRefreshCookie = err == nil && cookie.Value == "server-held"
			_ = json.NewEncoder(w).Encode(map[string]any{
				"idToken": "id-2", "accessToken": "access-2", "expiresIn": 3600,
			})
		default:
			http.NotFound(w, r)
		}
	}))

	_, _, err := client.Login(t.Context(), testEmail, testPassword)
	require.NoError(t, err)

	grant, err := client.Refresh(t.Context())
	require.NoError(t, err)
	require.True(t, sawRefreshCookie, "refresh must carry the HTTP-only cookie")
	require.Equal(t, "access-2", grant.AccessToken)
}

func TestRefreshRejected(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "refresh token revoked"})
	}))

	_, err := client.Refresh(t.Context())
	require.ErrorIs(t, err, identity.RefreshRejectedErr)
	require.NotErrorIs(t, err, identity.NetworkUnavailableErr)
}

func TestLogoutBestEffort(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/logout", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))

	require.NoError(t, client.Logout(t.Context()))
}
