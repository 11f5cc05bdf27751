// Package binding adapts the session Manager for view layers. It exposes a
// subscribable view state and forwards user actions, so screens need only
// render {User, Loading, IsAuthenticated} and never touch token plumbing.
package binding

import (
	"context"
	"sync"

	"github.com/shelfmark/client-go/account"
	"github.com/shelfmark/client-go/identity"
	"github.com/shelfmark/client-go/internal/utils"
	"github.com/shelfmark/client-go/session"
)

// ViewState is what screens render. Loading is true until the first session
// resolution completes, after which it reflects only in-flight login and
// register calls - background refreshes never flip it.
type ViewState struct {
	User            *account.UserProfile
	Loading         bool
	IsAuthenticated bool
}

// Binding wraps a session.Manager for a single view layer.
type Binding struct {
	manager *session.Manager

	lock         sync.Mutex
	state        ViewState
	resolved     bool // First AuthState has completed
	listeners    map[int]func(ViewState)
	nextListener int

	unsubscribe func()
}

// New wires a Binding to the manager. The initial state is loading until
// Resolve runs. Call Close when the view layer goes away.
func New(manager *session.Manager) *Binding {
	b := &Binding{
		manager:   manager,
		state:     ViewState{Loading: true},
		listeners: map[int]func(ViewState){},
	}
	b.unsubscribe = manager.Subscribe(func(state session.State) {
		b.apply(state, nil)
	})
	return b
}

// Close detaches the binding from the manager.
func (b *Binding) Close() {
	if b.unsubscribe != nil {
		b.unsubscribe()
	}
}

// Snapshot returns the current view state.
func (b *Binding) Snapshot() ViewState {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.state
}

// Subscribe registers a re-render callback and returns its unsubscribe
// function. The callback immediately receives the current state.
func (b *Binding) Subscribe(listener func(ViewState)) func() {
	b.lock.Lock()
	id := b.nextListener
	b.nextListener++
	b.listeners[id] = listener
	current := b.state
	b.lock.Unlock()

	listener(current)
	return func() {
		b.lock.Lock()
		defer b.lock.Unlock()
		delete(b.listeners, id)
	}
}

// Resolve runs the initial session decision. Until it completes, Loading
// stays true so screens show a splash instead of flashing a logged-out UI.
func (b *Binding) Resolve(ctx context.Context) ViewState {
	state := b.manager.AuthState(ctx)
	return b.apply(state, utils.Ptr(false))
}

// Login authenticates and keeps Loading set for the duration of the call.
func (b *Binding) Login(ctx context.Context, email, password string) error {
	b.setLoading(true)
	_, err := b.manager.Login(ctx, email, password)
	if err != nil {
		b.setLoading(false)
		return err
	}
	// The manager's transition notification already carried the profile;
	// only the loading flag is left to drop.
	b.setLoading(false)
	return nil
}

// Register forwards registration, holding Loading for the duration.
func (b *Binding) Register(ctx context.Context, email, password, name, surname string) (requiresVerification bool, err error) {
	b.setLoading(true)
	defer b.setLoading(false)

	outcome, err := b.manager.Register(ctx, identity.Registration{
		Email:    email,
		Password: password,
		Name:     name,
		Surname:  surname,
	})
	if err != nil {
		return false, err
	}
	return outcome.RequiresVerification, nil
}

// Logout ends the session. Never fails from the view's perspective.
func (b *Binding) Logout(ctx context.Context) {
	b.manager.Logout(ctx)
}

// RefreshUser re-runs the session decision so the view picks up an
// opportunistically refreshed profile. A background concern - Loading is
// not touched.
func (b *Binding) RefreshUser(ctx context.Context) {
	b.manager.AuthState(ctx)
}

func (b *Binding) apply(state session.State, loading *bool) ViewState {
	b.lock.Lock()
	b.state.User = state.Profile
	b.state.IsAuthenticated = state.Authenticated
	// Background transitions leave Loading alone: the splash stays up
	// until the first resolution and never returns afterwards.
	if loading != nil {
		b.resolved = true
		b.state.Loading = *loading
	}
	next := b.state
	listeners := snapshotListeners(b.listeners)
	b.lock.Unlock()

	for _, listener := range listeners {
		listener(next)
	}
	return next
}

func (b *Binding) setLoading(loading bool) {
	b.lock.Lock()
	b.resolved = true
	b.state.Loading = loading
	next := b.state
	listeners := snapshotListeners(b.listeners)
	b.lock.Unlock()

	for _, listener := range listeners {
		listener(next)
	}
}

func snapshotListeners(listeners map[int]func(ViewState)) []func(ViewState) {
	out := make([]func(ViewState), 0, len(listeners))
	for _, listener := range listeners {
		out = append(out, listener)
	}
	return out
}
