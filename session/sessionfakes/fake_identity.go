package sessionfakes

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/shelfmark/client-go/account"
	"github.com/shelfmark/client-go/identity"
	"github.com/shelfmark/client-go/session"
)

var _ session.IdentityClient = (*FakeIdentityClient)(nil)

// FakeIdentityClient is a scriptable session.IdentityClient for tests.
// Responses are set up front; call counts are recorded for assertions.
type FakeIdentityClient struct {
	lock sync.Mutex

	LoginGrant   *identity.TokenGrant
	LoginProfile *account.UserProfile
	LoginErr     error

	RegisterOutcome *identity.RegistrationOutcome
	RegisterErr     error

	LogoutErr error

	RefreshGrant *identity.TokenGrant
	RefreshErr   error
	// RefreshHook, when set, runs inside Refresh before the scripted
	// response is returned. Used to exercise races.
	RefreshHook func()

	LoginCalls    int
	RegisterCalls int
	LogoutCalls   int
	RefreshCalls  int
}

func NewFakeIdentityClient() *FakeIdentityClient {
	return &FakeIdentityClient{}
}

func (fc *FakeIdentityClient) Login(ctx context.Context, email, password string) (*identity.TokenGrant, *account.UserProfile, error) {
	fc.lock.Lock()
	fc.LoginCalls++
	grant, profile, err := fc.LoginGrant, fc.LoginProfile, fc.LoginErr
	fc.lock.Unlock()
	if err != nil {
		return nil, nil, err
	}
	if grant == nil || profile == nil {
		return nil, nil, errors.Wrap(identity.AuthenticationFailedErr, "fake not scripted")
	}
	grantCopy, profileCopy := *grant, *profile
	return &grantCopy, &profileCopy, nil
}

func (fc *FakeIdentityClient) Register(ctx context.Context, registration identity.Registration) (*identity.RegistrationOutcome, error) {
	fc.lock.Lock()
	fc.RegisterCalls++
	outcome, err := fc.RegisterOutcome, fc.RegisterErr
	fc.lock.Unlock()
	if err != nil {
		return nil, err
	}
	if outcome == nil {
		return nil, errors.Wrap(identity.AuthenticationFailedErr, "fake not scripted")
	}
	outcomeCopy := *outcome
	return &outcomeCopy, nil
}

func (fc *FakeIdentityClient) Logout(ctx context.Context) error {
	fc.lock.Lock()
	fc.LogoutCalls++
	err := fc.LogoutErr
	fc.lock.Unlock()
	return err
}

func (fc *FakeIdentityClient) Refresh(ctx context.Context) (*identity.TokenGrant, error) {
	fc.lock.Lock()
	fc.RefreshCalls++
	grant, err, hook := fc.RefreshGrant, fc.RefreshErr, fc.RefreshHook
	fc.lock.Unlock()
	if hook != nil {
		hook()
	}
	if err != nil {
		return nil, err
	}
	if grant == nil {
		return nil, errors.Wrap(identity.RefreshRejectedErr, "fake not scripted")
	}
	grantCopy := *grant
	return &grantCopy, nil
}
