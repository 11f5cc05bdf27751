// Package identity is the HTTP client for the remote identity endpoint. It
// only consumes tokens - issuance, verification emails, and the refresh
// cookie all live server-side. The long-lived refresh credential travels as
// an HTTP-only cookie held by the client's cookie jar and is never exposed
// to the rest of the SDK.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/shelfmark/client-go/account"
)

const (
	loginPath    = "/auth/login"
	registerPath = "/auth/register"
	logoutPath   = "/auth/logout"
	refreshPath  = "/auth/refresh"

	defaultTimeout = 15 * time.Second

	// Error bodies are tiny; anything larger is not a reason worth keeping.
	maxErrorBody = 4 << 10
)

// TokenGrant is the token set returned by login and refresh.
type TokenGrant struct {
	IDToken     string `json:"idToken"`
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expiresIn"` // Seconds until the grant expires
}

// Registration is the payload for creating a new account.
type Registration struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Surname  string `json:"surname"`
}

// RegistrationOutcome reports whether registration succeeded and whether
// the user must verify their email before logging in.
type RegistrationOutcome struct {
	Success              bool   `json:"success"`
	RequiresVerification bool   `json:"requiresVerification"`
	Message              string `json:"message"`
}

// Client talks to the identity endpoint. The zero value is not usable; use
// New.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. The caller is
// responsible for providing a cookie jar if refresh should work.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout bounds every identity call.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithLogger sets the logger used for request logging.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// New creates a Client against baseURL. The default HTTP client carries an
// in-memory cookie jar for the HTTP-only refresh cookie.
func New(baseURL string, options ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("[identity.New] baseURL is required")
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "[identity.New] cookiejar.New")
	}
	client := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Jar: jar, Timeout: defaultTimeout},
		log:        zerolog.Nop(),
	}
	for _, opt := range options {
		opt(client)
	}
	return client, nil
}

// Login exchanges email and password for a token grant and the user's
// profile snapshot. Any non-2xx response surfaces as
// AuthenticationFailedErr carrying the server reason.
func (c *Client) Login(ctx context.Context, email, password string) (*TokenGrant, *account.UserProfile, error) {
	body := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{Email: email, Password: password}

	var response struct {
		TokenGrant
		User *account.UserProfile `json:"user"`
	}
	if err := c.post(ctx, loginPath, body, &response, AuthenticationFailedErr); err != nil {
		return nil, nil, errors.Wrap(err, "[Client.Login]")
	}
	if response.User == nil {
		return nil, nil, errors.Wrap(AuthenticationFailedErr, "[Client.Login] response missing user")
	}
	c.log.Debug().Str("email", email).Msg("login succeeded")
	return &response.TokenGrant, response.User, nil
}

// Register forwards registration data. It does not establish a session; a
// duplicate email surfaces as AlreadyExistsErr.
func (c *Client) Register(ctx context.Context, registration Registration) (*RegistrationOutcome, error) {
	var outcome RegistrationOutcome
	if err := c.post(ctx, registerPath, registration, &outcome, AuthenticationFailedErr); err != nil {
		return nil, errors.Wrap(err, "[Client.Register]")
	}
	return &outcome, nil
}

// Logout notifies the endpoint that the session is over so it can drop the
// refresh credential. Best effort - callers log failures and move on.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.post(ctx, logoutPath, struct{}{}, nil, AuthenticationFailedErr); err != nil {
		return errors.Wrap(err, "[Client.Logout]")
	}
	return nil
}

// Refresh exchanges the refresh cookie for a fresh token grant. A non-2xx
// response is RefreshRejectedErr; a transport failure is
// NetworkUnavailableErr.
func (c *Client) Refresh(ctx context.Context) (*TokenGrant, error) {
	var grant TokenGrant
	if err := c.post(ctx, refreshPath, struct{}{}, &grant, RefreshRejectedErr); err != nil {
		return nil, errors.Wrap(err, "[Client.Refresh]")
	}
	return &grant, nil
}

// post sends a JSON POST and decodes the response into out (when non-nil).
// Non-2xx responses are wrapped in rejection with the server-provided
// reason; transport failures are wrapped in NetworkUnavailableErr.
func (c *Client) post(ctx context.Context, path string, body, out any, rejection error) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "marshal request")
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("X-Request-ID", uuid.New().String())

	response, err := c.httpClient.Do(request)
	if err != nil {
		c.log.Debug().Err(err).Str("path", path).Msg("identity request failed")
		return errors.Wrap(NetworkUnavailableErr, err.Error())
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		reason := serverReason(response.Body)
		c.log.Debug().Int("status", response.StatusCode).Str("path", path).Str("reason", reason).Msg("identity request rejected")
		if path == registerPath && response.StatusCode == http.StatusConflict {
			rejection = AlreadyExistsErr
		}
		if reason == "" {
			reason = response.Status
		}
		return errors.Wrap(rejection, reason)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(response.Body).Decode(out); err != nil {
		return errors.Wrap(NetworkUnavailableErr, err.Error())
	}
	return nil
}

// serverReason extracts the {"error": "..."} body the endpoint sends with
// 4xx responses.
func serverReason(body io.Reader) string {
	var payload struct {
		Error string `json:"error"`
	}
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil {
		return ""
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}
	return payload.Error
}
