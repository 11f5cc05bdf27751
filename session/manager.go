// Package session owns the client-side answer to "are we authenticated, and
// as whom". The Manager decides when cached credentials are trusted, when a
// silent refresh is attempted, and when the session is over, persisting
// through a storage.Adapter and authenticating against an identity.Client.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/shelfmark/client-go/account"
	"github.com/shelfmark/client-go/credentials"
	"github.com/shelfmark/client-go/identity"
	"github.com/shelfmark/client-go/storage"
	"golang.org/x/sync/singleflight"
)

const defaultRefreshTimeout = 30 * time.Second

// IdentityClient is the slice of the identity endpoint the Manager needs.
// Implemented by identity.Client; faked in tests.
type IdentityClient interface {
	// Login exchanges credentials for a token grant and profile snapshot
	Login(ctx context.Context, email, password string) (*identity.TokenGrant, *account.UserProfile, error)

	// Register forwards registration data without establishing a session
	Register(ctx context.Context, registration identity.Registration) (*identity.RegistrationOutcome, error)

	// Logout tells the endpoint to drop the refresh credential
	Logout(ctx context.Context) error

	// Refresh exchanges the server-held refresh credential for a new grant
	Refresh(ctx context.Context) (*identity.TokenGrant, error)
}

// State is the derived, never-persisted session view. Profile is nil when
// unauthenticated.
type State struct {
	Profile       *account.UserProfile
	Authenticated bool
}

// Deps holds the Manager's collaborators.
type Deps struct {
	Identity IdentityClient  // Remote identity endpoint
	Storage  storage.Adapter // Durable credential/profile cache
}

// Manager is the session and token lifecycle manager. One instance per
// process, explicitly constructed and passed to consumers - there is no
// ambient singleton. All methods are safe for concurrent use.
type Manager struct {
	deps           Deps
	log            zerolog.Logger
	nowTime        func() time.Time // Injectable for testing
	refreshTimeout time.Duration

	// lock serializes every credential/profile mutation so a logout racing
	// a refresh completion cannot resurrect cleared state.
	lock       sync.Mutex
	generation uint64 // Bumped on every clear; stale refreshes check it

	refreshGroup singleflight.Group

	subscriberLock sync.Mutex
	subscribers    map[int]func(State)
	nextSubscriber int
	lastState      State
	emitted        bool
}

// Option modifies a Manager.
type Option func(*Manager)

// WithNowTime sets the time source (primarily for testing).
func WithNowTime(nowFunc func() time.Time) Option {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

// WithLogger sets the Manager's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(m *Manager) {
		m.log = log
	}
}

// WithRefreshTimeout bounds the silent refresh network call so a
// late-arriving result cannot linger past its usefulness.
func WithRefreshTimeout(timeout time.Duration) Option {
	return func(m *Manager) {
		m.refreshTimeout = timeout
	}
}

// New initializes a Manager with its required dependencies.
func New(deps Deps, options ...Option) (*Manager, error) {
	if deps.Identity == nil {
		return nil, errors.New("[session.New] Identity client is required")
	}
	if deps.Storage == nil {
		return nil, errors.New("[session.New] Storage adapter is required")
	}

	manager := &Manager{
		deps:           deps,
		log:            zerolog.Nop(),
		nowTime:        time.Now,
		refreshTimeout: defaultRefreshTimeout,
		subscribers:    map[int]func(State){},
	}
	for _, opt := range options {
		opt(manager)
	}
	return manager, nil
}

// Subscribe registers a listener invoked on every session state transition
// and returns its unsubscribe function. Listeners run synchronously on the
// mutating goroutine and must not call back into the Manager.
func (m *Manager) Subscribe(listener func(State)) func() {
	m.subscriberLock.Lock()
	defer m.subscriberLock.Unlock()
	id := m.nextSubscriber
	m.nextSubscriber++
	m.subscribers[id] = listener
	return func() {
		m.subscriberLock.Lock()
		defer m.subscriberLock.Unlock()
		delete(m.subscribers, id)
	}
}

// notify emits state to subscribers, deduplicating so only genuine
// transitions are observed.
func (m *Manager) notify(state State) {
	m.subscriberLock.Lock()
	if m.emitted && statesEqual(m.lastState, state) {
		m.subscriberLock.Unlock()
		return
	}
	m.lastState = state
	m.emitted = true
	listeners := make([]func(State), 0, len(m.subscribers))
	for _, listener := range m.subscribers {
		listeners = append(listeners, listener)
	}
	m.subscriberLock.Unlock()
	for _, listener := range listeners {
		listener(state)
	}
}

func statesEqual(a, b State) bool {
	if a.Authenticated != b.Authenticated {
		return false
	}
	if (a.Profile == nil) != (b.Profile == nil) {
		return false
	}
	return a.Profile == nil || *a.Profile == *b.Profile
}

// Login authenticates against the identity endpoint and, on success,
// persists the returned credential and profile. No local state changes on
// failure; the error carries the server-provided reason when available.
func (m *Manager) Login(ctx context.Context, email, password string) (*account.UserProfile, error) {
	grant, profile, err := m.deps.Identity.Login(ctx, email, password)
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.Login]")
	}

	cred, err := credentials.FromTokenGrant(grant.IDToken, grant.AccessToken, grant.ExpiresIn, m.nowTime())
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.Login]")
	}

	m.lock.Lock()
	m.persist(ctx, cred, *profile)
	m.lock.Unlock()

	m.notify(State{Profile: profile, Authenticated: true})
	return profile, nil
}

// Register forwards registration data to the identity endpoint. It does not
// establish a session; the outcome says whether email verification is
// pending.
func (m *Manager) Register(ctx context.Context, registration identity.Registration) (*identity.RegistrationOutcome, error) {
	outcome, err := m.deps.Identity.Register(ctx, registration)
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.Register]")
	}
	return outcome, nil
}

// Logout ends the session. The remote call is best effort; local state is
// cleared unconditionally even when the endpoint is unreachable.
func (m *Manager) Logout(ctx context.Context) {
	if err := m.deps.Identity.Logout(ctx); err != nil {
		m.log.Warn().Err(err).Msg("remote logout failed, clearing local state anyway")
	}

	m.lock.Lock()
	m.clearLocked(ctx)
	m.lock.Unlock()

	m.notify(State{Authenticated: false})
}

// AuthState decides whether the session is currently valid:
//
//  1. Read the credential; if absent or expired, attempt one silent refresh.
//  2. A rejected refresh (or nothing to refresh) ends the session; a
//     transient network failure keeps stored state for a later retry but
//     still reports unauthenticated.
//  3. A credential without a profile is not trusted - both must be jointly
//     present before the session counts as authenticated.
//
// Failures are recovered internally; callers only ever see a State.
func (m *Manager) AuthState(ctx context.Context) State {
	cred := m.readCredential(ctx)

	if cred == nil || cred.Expired(m.nowTime()) {
		refreshed, err := m.refresh(ctx)
		switch {
		case refreshed:
			if cred = m.readCredential(ctx); cred == nil {
				return m.endSession(ctx)
			}
		case cred != nil && errors.Is(err, identity.NetworkUnavailableErr):
			// The endpoint never ruled on the session; keep the stored
			// state so a later AuthState can retry the refresh.
			return State{Authenticated: false}
		default:
			return m.endSession(ctx)
		}
	}

	profile, err := m.deps.Storage.GetProfile(ctx)
	if err != nil {
		m.log.Warn().Err(err).Msg("profile read failed, treating as absent")
	}
	if profile == nil {
		return m.endSession(ctx)
	}
	state := State{Profile: profile, Authenticated: true}
	m.notify(state)
	return state
}

// SilentRefresh exchanges the server-held refresh credential for a new
// token pair. On success the new credential is persisted and true is
// returned. On failure existing state is left untouched - ending the
// session on a rejected refresh is AuthState's call, not this one's.
func (m *Manager) SilentRefresh(ctx context.Context) bool {
	refreshed, _ := m.refresh(ctx)
	return refreshed
}

// refresh runs at most one refresh attempt at a time; concurrent callers
// share the in-flight result.
func (m *Manager) refresh(ctx context.Context) (bool, error) {
	type refreshResult struct {
		refreshed bool
	}

	m.lock.Lock()
	generation := m.generation
	m.lock.Unlock()

	value, err, _ := m.refreshGroup.Do("silent-refresh", func() (any, error) {
		refreshCtx, cancel := context.WithTimeout(ctx, m.refreshTimeout)
		defer cancel()

		grant, err := m.deps.Identity.Refresh(refreshCtx)
		if err != nil {
			m.log.Debug().Err(err).Msg("silent refresh failed")
			return refreshResult{}, err
		}

		cred, err := credentials.FromTokenGrant(grant.IDToken, grant.AccessToken, grant.ExpiresIn, m.nowTime())
		if err != nil {
			return refreshResult{}, errors.Wrap(err, "refresh grant incomplete")
		}

		m.lock.Lock()
		defer m.lock.Unlock()
		if m.generation != generation {
			// A logout (or session end) won the race; do not resurrect
			// the cleared credential.
			m.log.Debug().Msg("discarding refresh result, session cleared mid-flight")
			return refreshResult{}, nil
		}
		if err := m.deps.Storage.SetCredential(ctx, cred); err != nil {
			m.log.Warn().Err(err).Msg("persisting refreshed credential failed")
		}
		return refreshResult{refreshed: true}, nil
	})
	if err != nil {
		return false, err
	}
	return value.(refreshResult).refreshed, nil
}

// IDToken returns the cached identity token, transparently refreshing an
// expired credential first. The second return is false when no usable
// token exists.
func (m *Manager) IDToken(ctx context.Context) (string, bool) {
	cred := m.usableCredential(ctx)
	if cred == nil {
		return "", false
	}
	return cred.IDToken, true
}

// AccessToken returns the cached access token, transparently refreshing an
// expired credential first.
func (m *Manager) AccessToken(ctx context.Context) (string, bool) {
	cred := m.usableCredential(ctx)
	if cred == nil {
		return "", false
	}
	return cred.AccessToken, true
}

func (m *Manager) usableCredential(ctx context.Context) *credentials.Credential {
	cred := m.readCredential(ctx)
	if cred != nil && !cred.Expired(m.nowTime()) {
		return cred
	}
	if refreshed, _ := m.refresh(ctx); !refreshed {
		return nil
	}
	if cred = m.readCredential(ctx); cred == nil || cred.Expired(m.nowTime()) {
		return nil
	}
	return cred
}

// UpdateUser merges edited fields into the cached profile and persists the
// merge. Purely local - the identity endpoint is not contacted. Called with
// no cached profile it is a warn-logged no-op.
func (m *Manager) UpdateUser(ctx context.Context, update account.ProfileUpdate) {
	m.lock.Lock()
	profile, err := m.deps.Storage.GetProfile(ctx)
	if err != nil {
		m.log.Warn().Err(err).Msg("profile read failed, treating as absent")
	}
	if profile == nil {
		m.lock.Unlock()
		m.log.Warn().Msg("UpdateUser called with no cached profile, ignoring")
		return
	}
	merged := update.Apply(*profile)
	if err := m.deps.Storage.SetProfile(ctx, merged); err != nil {
		m.log.Warn().Err(err).Msg("persisting merged profile failed")
	}
	m.lock.Unlock()

	m.notify(State{Profile: &merged, Authenticated: true})
}

// readCredential degrades a storage failure to "nothing stored".
func (m *Manager) readCredential(ctx context.Context) *credentials.Credential {
	cred, err := m.deps.Storage.GetCredential(ctx)
	if err != nil {
		m.log.Warn().Err(err).Msg("credential read failed, treating as absent")
		return nil
	}
	return cred
}

// persist stores a credential and profile pair. Cache write failures are
// logged, never propagated - a failed cache write must not abort a
// successful login. Callers hold m.lock.
func (m *Manager) persist(ctx context.Context, cred credentials.Credential, profile account.UserProfile) {
	if err := m.deps.Storage.SetCredential(ctx, cred); err != nil {
		m.log.Warn().Err(err).Msg("persisting credential failed")
	}
	if err := m.deps.Storage.SetProfile(ctx, profile); err != nil {
		m.log.Warn().Err(err).Msg("persisting profile failed")
	}
}

// endSession clears local state and reports unauthenticated, so an
// unrecoverable session failure looks exactly like an explicit logout.
func (m *Manager) endSession(ctx context.Context) State {
	m.lock.Lock()
	m.clearLocked(ctx)
	m.lock.Unlock()

	m.notify(State{Authenticated: false})
	return State{Authenticated: false}
}

// clearLocked wipes stored state and invalidates in-flight refreshes.
// Callers hold m.lock.
func (m *Manager) clearLocked(ctx context.Context) {
	m.generation++
	if err := m.deps.Storage.ClearAll(ctx); err != nil {
		m.log.Warn().Err(err).Msg("clearing stored session state failed")
	}
}
