package storagefakes

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/shelfmark/client-go/account"
	"github.com/shelfmark/client-go/credentials"
	"github.com/shelfmark/client-go/storage"
)

var _ storage.Adapter = (*FakeAdapter)(nil)

// FakeAdapter is an in-memory storage.Adapter for tests. Reads and writes
// can be forced to fail to simulate an unavailable store.
type FakeAdapter struct {
	lock       sync.RWMutex
	credential *credentials.Credential
	profile    *account.UserProfile

	FailReads  bool
	FailWrites bool

	SetCredentialCalls int
	ClearAllCalls      int
}

func NewFakeAdapter() *FakeAdapter {
	return &FakeAdapter{}
}

func (fa *FakeAdapter) GetCredential(ctx context.Context) (*credentials.Credential, error) {
	fa.lock.RLock()
	defer fa.lock.RUnlock()
	if fa.FailReads {
		return nil, errors.Wrap(storage.ErrUnavailable, "fake read failure")
	}
	if fa.credential == nil {
		return nil, nil
	}
	cred := *fa.credential
	return &cred, nil
}

func (fa *FakeAdapter) SetCredential(ctx context.Context, cred credentials.Credential) error {
	if err := cred.Validate(); err != nil {
		return errors.Wrap(err, "[FakeAdapter.SetCredential]")
	}
	fa.lock.Lock()
	defer fa.lock.Unlock()
	fa.SetCredentialCalls++
	if fa.FailWrites {
		return errors.Wrap(storage.ErrUnavailable, "fake write failure")
	}
	fa.credential = &cred
	return nil
}

func (fa *FakeAdapter) ClearCredential(ctx context.Context) error {
	fa.lock.Lock()
	defer fa.lock.Unlock()
	fa.credential = nil
	return nil
}

func (fa *FakeAdapter) GetProfile(ctx context.Context) (*account.UserProfile, error) {
	fa.lock.RLock()
	defer fa.lock.RUnlock()
	if fa.FailReads {
		return nil, errors.Wrap(storage.ErrUnavailable, "fake read failure")
	}
	if fa.profile == nil {
		return nil, nil
	}
	profile := *fa.profile
	return &profile, nil
}

func (fa *FakeAdapter) SetProfile(ctx context.Context, profile account.UserProfile) error {
	fa.lock.Lock()
	defer fa.lock.Unlock()
	if fa.FailWrites {
		return errors.Wrap(storage.ErrUnavailable, "fake write failure")
	}
	fa.profile = &profile
	return nil
}

func (fa *FakeAdapter) ClearProfile(ctx context.Context) error {
	fa.lock.Lock()
	defer fa.lock.Unlock()
	fa.profile = nil
	return nil
}

func (fa *FakeAdapter) ClearAll(ctx context.Context) error {
	fa.lock.Lock()
	defer fa.lock.Unlock()
	fa.ClearAllCalls++
	fa.credential = nil
	fa.profile = nil
	return nil
}
