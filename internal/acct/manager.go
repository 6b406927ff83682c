package acct

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/orbitlabs/orbit/internal/backend"
	"github.com/orbitlabs/orbit/internal/device"
	"github.com/orbitlabs/orbit/internal/dispatch"
	"github.com/orbitlabs/orbit/internal/secrets"
)

// defaultScopes are requested on every interactive flow.
var defaultScopes = []string{backend.ScopeProfile, backend.ScopeSync}

// Manager is the public surface of the account manager core. It owns the
// account handle, the cached profile, the in-flight auth flow state, and
// the device constellation, and drives all of them through the state
// machine on its serialization gate.
//
// All methods are safe for concurrent use. Methods that touch the handle
// block until the gate has executed them.
type Manager struct {
	cfg       backend.Config
	deviceCfg backend.DeviceConfig
	factory   backend.HandleFactory
	store     secrets.Store

	gate    *dispatch.Lane
	ui      dispatch.Notifier
	ownedUI *dispatch.Lane // non-nil when the manager created its own UI lane

	// Gate-owned fields. handle and latestAuthState are only touched on
	// the gate; state, profile and constellation are additionally read
	// from other goroutines and guarded by mu.
	handle          backend.AccountHandle
	latestAuthState string
	initialized     bool

	mu            sync.Mutex
	state         State
	profile       *backend.Profile
	constellation *device.Constellation

	observer       atomic.Pointer[AccountObserver]
	deviceObserver atomic.Pointer[DeviceEventsObserver]

	persistWG sync.WaitGroup
	closeOnce sync.Once
}

// Option configures a Manager.
type Option func(*Manager)

// WithNotifier supplies the app's UI-facing dispatch context. Without it
// the manager runs its own serial UI lane. Tests pass dispatch.Inline
// for synchronous notification delivery.
func WithNotifier(n dispatch.Notifier) Option {
	return func(m *Manager) {
		m.ui = n
	}
}

// New creates a Manager. The device config is supplied once here and
// drives device-record initialization on every authentication.
func New(cfg backend.Config, deviceCfg backend.DeviceConfig, factory backend.HandleFactory, store secrets.Store, opts ...Option) *Manager {
	m := &Manager{
		cfg:       cfg,
		deviceCfg: deviceCfg,
		factory:   factory,
		store:     store,
		gate:      dispatch.NewLane("gate"),
		state:     StateStart,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.ui == nil {
		m.ownedUI = dispatch.NewLane("ui")
		m.ui = m.ownedUI
	}
	return m
}

// Initialize restores the account from the secret store, or settles into
// the not-authenticated state if none is stored. One-shot; later calls
// are no-ops.
func (m *Manager) Initialize(ctx context.Context) error {
	return m.onGate(ctx, func(ctx context.Context) error {
		if m.initialized {
			return nil
		}
		m.initialized = true
		m.process(ctx, Event{Kind: EventInitialize})
		return nil
	})
}

// State returns the current lifecycle state. Diagnostic; prefer
// HasAccount/AccountNeedsReauth for control flow.
func (m *Manager) State() State {
	return m.currentState()
}

// HasAccount reports whether an account exists, authenticated or in need
// of re-authentication.
func (m *Manager) HasAccount() bool {
	switch m.currentState() {
	case StateAuthenticatedNoProfile, StateAuthenticatedWithProfile, StateAuthenticationProblem:
		return true
	default:
		return false
	}
}

// AccountNeedsReauth reports whether the account is in an authentication
// problem state.
func (m *Manager) AccountNeedsReauth() bool {
	return m.currentState() == StateAuthenticationProblem
}

// AccountProfile returns the cached profile, or nil when the current
// state does not carry one.
func (m *Manager) AccountProfile() *backend.Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.state {
	case StateAuthenticatedWithProfile, StateAuthenticationProblem:
		return m.profile
	default:
		return nil
	}
}

// DeviceConstellation returns the live constellation, or nil when no
// authenticated account exists.
func (m *Manager) DeviceConstellation() *device.Constellation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.constellation
}

// BeginAuthentication starts an interactive OAuth flow and returns the
// URL the embedding UI must present. The URL's state parameter becomes
// the in-flight flow identifier.
func (m *Manager) BeginAuthentication(ctx context.Context) (string, error) {
	return m.beginFlow(ctx, "beginOAuthFlow", func(ctx context.Context) (string, error) {
		return m.handle.BeginOAuthFlow(ctx, defaultScopes)
	})
}

// BeginPairingAuthentication starts a pairing flow from a scanned
// pairing URL.
func (m *Manager) BeginPairingAuthentication(ctx context.Context, pairingURL string) (string, error) {
	return m.beginFlow(ctx, "beginPairingFlow", func(ctx context.Context) (string, error) {
		return m.handle.BeginPairingFlow(ctx, pairingURL, defaultScopes)
	})
}

func (m *Manager) beginFlow(ctx context.Context, op string, begin func(ctx context.Context) (string, error)) (string, error) {
	var flowURL string
	err := m.onGate(ctx, func(ctx context.Context) error {
		if m.handle == nil {
			return ErrNotInitialized
		}
		u, err := begin(ctx)
		if err != nil {
			return backendErr(op, err)
		}
		state, err := stateParam(u)
		if err != nil {
			return backendErr(op, err)
		}
		m.latestAuthState = state
		flowURL = u
		return nil
	})
	return flowURL, err
}

// FinishAuthentication completes the in-flight OAuth flow with the
// redirect's parameters. Fails with ErrNoExistingAuthFlow if no Begin*
// call is in flight, and with ErrWrongAuthFlow if the redirect's state
// does not match.
func (m *Manager) FinishAuthentication(ctx context.Context, data AuthData) error {
	return m.onGate(ctx, func(ctx context.Context) error {
		if m.latestAuthState == "" {
			return ErrNoExistingAuthFlow
		}
		if data.State != m.latestAuthState {
			return ErrWrongAuthFlow
		}
		m.latestAuthState = ""
		m.process(ctx, Event{Kind: EventAuthenticated, Auth: &data})
		return nil
	})
}

// GetAccessToken returns an access token for the given scope. Requires
// an account: callers without one get ErrNotAuthenticated. Once the call
// reaches the handle, the underlying library's error is surfaced verbatim.
func (m *Manager) GetAccessToken(ctx context.Context, scope string) (*backend.AccessTokenInfo, error) {
	var info *backend.AccessTokenInfo
	err := m.onGate(ctx, func(ctx context.Context) error {
		if m.handle == nil {
			return ErrNotInitialized
		}
		if !m.HasAccount() {
			return ErrNotAuthenticated
		}
		var err error
		info, err = m.handle.GetAccessToken(ctx, scope)
		return err
	})
	return info, err
}

// RefreshProfile requests a profile re-fetch. The request is ignored in
// states where the transition table does not permit it.
func (m *Manager) RefreshProfile(ctx context.Context) error {
	return m.onGate(ctx, func(ctx context.Context) error {
		m.process(ctx, Event{Kind: EventFetchProfile})
		return nil
	})
}

// Logout disconnects the account. Always succeeds from the caller's
// viewpoint; internal disconnect failure is logged only.
func (m *Manager) Logout(ctx context.Context) error {
	return m.onGate(ctx, func(ctx context.Context) error {
		m.process(ctx, Event{Kind: EventLogout})
		return nil
	})
}

// InjectAuthenticationError signals an authorization failure detected by
// the embedding application (e.g. a 401 from a sync request). The machine
// attempts silent recovery before declaring an authentication problem.
func (m *Manager) InjectAuthenticationError(ctx context.Context) error {
	return m.onGate(ctx, func(ctx context.Context) error {
		m.process(ctx, Event{Kind: EventAuthenticationError})
		return nil
	})
}

// Register sets the single account observer slot, replacing any previous
// observer.
func (m *Manager) Register(obs AccountObserver) {
	m.observer.Store(&obs)
}

// RegisterForDeviceEvents sets the single device-events observer slot.
func (m *Manager) RegisterForDeviceEvents(obs DeviceEventsObserver) {
	m.deviceObserver.Store(&obs)
}

// Close stops the gate, waits for in-flight persistence writes, and
// stops the manager-owned UI lane. Idempotent.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.gate.Close()
		m.persistWG.Wait()
		if m.ownedUI != nil {
			m.ownedUI.Close()
		}
	})
}

// onGate runs fn on the serialization gate, mapping a closed lane to
// ErrClosed.
func (m *Manager) onGate(ctx context.Context, fn func(ctx context.Context) error) error {
	err := m.gate.Run(ctx, fn)
	if errors.Is(err, dispatch.ErrClosed) {
		return ErrClosed
	}
	return err
}

func (m *Manager) currentState() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func (m *Manager) setProfile(p *backend.Profile) {
	m.mu.Lock()
	m.profile = p
	m.mu.Unlock()
}
