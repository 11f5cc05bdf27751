package session_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shelfmark/client-go/identity"
	"github.com/shelfmark/client-go/session"
	"github.com/stretchr/testify/require"
)

func TestTransportInjectsBearerToken(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	var gotAuthorization string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuthorization = r.Header.Get("Authorization")
	}))
	defer server.Close()

	client := &http.Client{Transport: &session.Transport{Manager: f.manager}}
	request, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL+"/books", nil)
	require.NoError(t, err)

	response, err := client.Do(request)
	require.NoError(t, err)
	defer response.Body.Close()

	require.Equal(t, "Bearer access-token-1", gotAuthorization)
	require.Empty(t, request.Header.Get("Authorization"), "original request is not mutated")
}

func TestTransportSendsUnauthenticatedWithoutSession(t *testing.T) {
	f := setupTestFixture(t)
	f.identity.RefreshErr = identity.RefreshRejectedErr

	var gotAuthorization string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuthorization = r.Header.Get("Authorization")
	}))
	defer server.Close()

	client := &http.Client{Transport: &session.Transport{Manager: f.manager}}
	response, err := client.Get(server.URL + "/books")
	require.NoError(t, err)
	defer response.Body.Close()

	require.Empty(t, gotAuthorization)
}
