package acct

import (
	"github.com/orbitlabs/orbit/internal/backend"
	"github.com/orbitlabs/orbit/internal/device"
)

// AccountObserver receives account lifecycle notifications. All methods
// are invoked on the UI lane, never on the gate.
type AccountObserver interface {
	// OnAuthenticated fires when the account reaches an authenticated
	// state, with the classified origin of the authentication.
	OnAuthenticated(authType AuthType)

	// OnProfileUpdated fires when a profile fetch succeeds.
	OnProfileUpdated(profile backend.Profile)

	// OnAuthenticationProblems fires when the account enters an
	// unrecoverable authentication problem.
	OnAuthenticationProblems()

	// OnLoggedOut fires when logout completes.
	OnLoggedOut()
}

// DeviceEventsObserver receives incoming device event batches on the UI
// lane. It is the application-facing sink; the manager itself is the
// constellation's direct observer and forwards to this slot.
type DeviceEventsObserver = device.EventsObserver

// deviceEventsSink forwards constellation events to the registered
// application observer. The constellation already delivers on the UI
// lane, so forwarding is a direct call.
type deviceEventsSink struct {
	m *Manager
}

func (s deviceEventsSink) OnEvents(events []device.Event) {
	if p := s.m.deviceObserver.Load(); p != nil {
		(*p).OnEvents(events)
	}
}
