package identity

import "github.com/pkg/errors"

var (
	// AuthenticationFailedErr covers bad credentials and any non-2xx login
	// or registration response. The server-provided reason is attached as
	// wrap context when available.
	AuthenticationFailedErr = errors.New("authentication failed")

	// AlreadyExistsErr indicates a registration conflict (duplicate email).
	AlreadyExistsErr = errors.New("account already exists")

	// NetworkUnavailableErr indicates a transport-level failure before a
	// server verdict was reached. Safe to retry.
	NetworkUnavailableErr = errors.New("network unavailable")

	// RefreshRejectedErr means the identity endpoint explicitly refused the
	// refresh credential. A hard session end, never retried.
	RefreshRejectedErr = errors.New("refresh rejected")
)
