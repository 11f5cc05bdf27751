package session

import "net/http"

// Transport is an http.RoundTripper that injects the session's access token
// as a bearer Authorization header, refreshing it transparently when
// expired. Requests go out unauthenticated when no usable token exists -
// the backend's 401 is the authoritative verdict, not ours.
type Transport struct {
	Manager *Manager
	Base    http.RoundTripper // Defaults to http.DefaultTransport
}

func (t *Transport) RoundTrip(request *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	token, ok := t.Manager.AccessToken(request.Context())
	if !ok {
		return base.RoundTrip(request)
	}
	// Per RoundTripper contract the original request is not mutated.
	authed := request.Clone(request.Context())
	authed.Header.Set("Authorization", "Bearer "+token)
	return base.RoundTrip(authed)
}
