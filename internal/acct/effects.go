package acct

import (
	"context"
	"errors"
	"log/slog"

	"github.com/orbitlabs/orbit/internal/backend"
	"github.com/orbitlabs/orbit/internal/device"
	"github.com/orbitlabs/orbit/internal/secrets"
)

// process drives the state machine on the gate: advance, run side
// effects, re-enter with the follow-up event until quiescent. Follow-up
// events always complete before the next externally-submitted operation
// is dequeued.
func (m *Manager) process(ctx context.Context, ev Event) {
	for {
		from := m.currentState()
		to, ok := next(from, ev.Kind)
		if !ok {
			slog.Debug("ignoring event with no transition",
				"state", from,
				"event", ev.Kind,
			)
			return
		}

		m.setState(to)
		slog.Debug("state transition",
			"from", from,
			"to", to,
			"event", ev.Kind,
		)

		follow := m.act(ctx, to, ev)
		if follow == nil {
			return
		}
		ev = *follow
	}
}

// act executes the side effects of entering a state via an event and
// returns the follow-up event, if any.
func (m *Manager) act(ctx context.Context, entered State, via Event) *Event {
	switch entered {
	case StateStart:
		if via.Kind == EventInitialize {
			return m.actRestore()
		}

	case StateNotAuthenticated:
		switch via.Kind {
		case EventLogout:
			m.actLogout(ctx)
		case EventAccountNotFound:
			m.freshHandle()
		}

	case StateAuthenticatedNoProfile:
		switch via.Kind {
		case EventAuthenticated:
			m.registerPersistence()
			if err := m.handle.CompleteOAuthFlow(ctx, via.Auth.Code, via.Auth.State); err != nil {
				// Log and continue: the handle may still hold a usable
				// session, and the profile fetch below will surface a
				// dead one as failedToFetchProfile.
				slog.Error("complete OAuth flow failed", "error", err)
			}
			m.ensureConstellation()
			m.initDeviceRecord(ctx)
			m.notifyAuthenticated(via.Auth.Type())
			m.postAuthHook(ctx)
			return &Event{Kind: EventFetchProfile}

		case EventAccountRestored:
			m.registerPersistence()
			m.ensureConstellation()
			if c := m.DeviceConstellation(); c != nil {
				if err := c.EnsureCapabilities(ctx, m.deviceCfg.Capabilities); err != nil {
					slog.Warn("ensure device capabilities failed", "error", err)
				}
			}
			m.notifyAuthenticated(AuthType{Kind: AuthKindExistingAccount})
			m.postAuthHook(ctx)
			return &Event{Kind: EventFetchProfile}

		case EventRecoveredFromAuthProblem:
			m.registerPersistence()
			m.ensureConstellation()
			m.initDeviceRecord(ctx)
			m.notifyAuthenticated(AuthType{Kind: AuthKindRecovered})
			m.postAuthHook(ctx)
			return &Event{Kind: EventFetchProfile}

		case EventFetchProfile:
			profile, err := m.handle.GetProfile(ctx)
			if err != nil {
				slog.Warn("profile fetch failed", "error", err)
				return &Event{Kind: EventFailedToFetchProfile}
			}
			m.setProfile(profile)
			return &Event{Kind: EventFetchedProfile}
		}

	case StateAuthenticatedWithProfile:
		if via.Kind == EventFetchedProfile {
			if p := m.AccountProfile(); p != nil {
				m.notifyProfileUpdated(*p)
			}
		}

	case StateAuthenticationProblem:
		if via.Kind == EventAuthenticationError {
			return m.actRecover(ctx)
		}
	}

	return nil
}

// actRestore reads the secret store on cold start. Read or restore
// failures settle into the not-authenticated path rather than aborting.
func (m *Manager) actRestore() *Event {
	blob, err := m.store.Read()
	if errors.Is(err, secrets.ErrNotFound) {
		return &Event{Kind: EventAccountNotFound}
	}
	if err != nil {
		slog.Warn("secret store read failed", "error", err)
		return &Event{Kind: EventAccountNotFound}
	}

	handle, err := m.factory.Restore(m.cfg, blob)
	if err != nil {
		slog.Error("account state restore failed", "error", err)
		return &Event{Kind: EventAccountNotFound}
	}

	m.setHandle(handle)
	slog.Info("account restored from secret store")
	return &Event{Kind: EventAccountRestored}
}

// actLogout tears down the session: best-effort disconnect, clear the
// profile, constellation and secret store, then start over with a fresh
// handle.
func (m *Manager) actLogout(ctx context.Context) {
	if m.handle != nil {
		if err := m.handle.Disconnect(ctx); err != nil {
			slog.Warn("disconnect failed", "error", err)
		}
	}
	m.setProfile(nil)
	if err := m.store.Clear(); err != nil {
		slog.Warn("secret store clear failed", "error", err)
	}
	m.freshHandle()
	slog.Info("logged out")
	m.notifyLoggedOut()
}

// actRecover checks whether an injected authentication error is
// recoverable. If the session is still authorized, a token refresh
// confirms recovery; otherwise the account stays in the problem state
// and the observer is told.
func (m *Manager) actRecover(ctx context.Context) *Event {
	status, err := m.handle.CheckAuthorizationStatus(ctx)
	if err != nil {
		slog.Warn("authorization status check failed", "error", err)
		m.notifyAuthenticationProblems()
		return nil
	}
	if !status.Active {
		slog.Info("session no longer authorized")
		m.notifyAuthenticationProblems()
		return nil
	}

	m.handle.ClearAccessTokenCache()
	if _, err := m.handle.GetAccessToken(ctx, backend.ScopeProfile); err != nil {
		slog.Warn("token refresh after authentication error failed", "error", err)
		m.notifyAuthenticationProblems()
		return nil
	}

	slog.Info("recovered from authentication problem")
	return &Event{Kind: EventRecoveredFromAuthProblem}
}

// postAuthHook runs after any authenticated entry completes: devices
// with the send-tab capability immediately refresh the constellation and
// drain queued commands.
func (m *Manager) postAuthHook(ctx context.Context) {
	if !m.deviceCfg.HasCapability(backend.CapabilitySendTab) {
		return
	}
	c := m.DeviceConstellation()
	if c == nil {
		return
	}
	if err := c.RefreshState(ctx); err != nil {
		slog.Warn("constellation refresh failed", "error", err)
	}
	if err := c.PollForEvents(ctx); err != nil {
		slog.Warn("device command poll failed", "error", err)
	}
}

// setHandle replaces the account handle. Replacing the handle always
// drops the constellation: no constellation operation may reach a handle
// that has been superseded.
func (m *Manager) setHandle(h backend.AccountHandle) {
	m.handle = h
	m.mu.Lock()
	m.constellation = nil
	m.mu.Unlock()
}

// freshHandle replaces the handle with a brand-new unauthenticated one.
func (m *Manager) freshHandle() {
	handle, err := m.factory.New(m.cfg)
	if err != nil {
		slog.Error("creating fresh account handle failed", "error", err)
		m.setHandle(nil)
		return
	}
	m.setHandle(handle)
}

// ensureConstellation creates the constellation for the current handle
// if none exists, and registers the manager as its device-events sink.
// Recovery re-enters the authenticated state without replacing the
// handle, so an existing constellation is kept.
func (m *Manager) ensureConstellation() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.constellation != nil {
		return
	}
	c := device.New(m.handle, m.gate, m.ui)
	c.RegisterDeviceEventsObserver(deviceEventsSink{m: m})
	m.constellation = c
}

func (m *Manager) initDeviceRecord(ctx context.Context) {
	c := m.DeviceConstellation()
	if c == nil {
		return
	}
	if err := c.InitDevice(ctx, m.deviceCfg.Name, m.deviceCfg.Type, m.deviceCfg.Capabilities); err != nil {
		slog.Warn("device record initialization failed", "error", err)
	}
}

func (m *Manager) notifyAuthenticated(t AuthType) {
	slog.Info("authenticated", "auth_type", t.String())
	m.ui.Submit(func() {
		if p := m.observer.Load(); p != nil {
			(*p).OnAuthenticated(t)
		}
	})
}

func (m *Manager) notifyProfileUpdated(profile backend.Profile) {
	m.ui.Submit(func() {
		if p := m.observer.Load(); p != nil {
			(*p).OnProfileUpdated(profile)
		}
	})
}

func (m *Manager) notifyAuthenticationProblems() {
	m.ui.Submit(func() {
		if p := m.observer.Load(); p != nil {
			(*p).OnAuthenticationProblems()
		}
	})
}

func (m *Manager) notifyLoggedOut() {
	m.ui.Submit(func() {
		if p := m.observer.Load(); p != nil {
			(*p).OnLoggedOut()
		}
	})
}
