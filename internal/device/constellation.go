package device

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/text/unicode/norm"

	"github.com/orbitlabs/orbit/internal/backend"
	"github.com/orbitlabs/orbit/internal/dispatch"
)

// Runner executes fn on the manager's serialization gate. Calls made from
// a goroutine already on the gate execute inline. *dispatch.Lane satisfies it.
type Runner interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
}

// Observer is notified when the cached constellation state changes.
type Observer interface {
	OnStateUpdate(state ConstellationState)
}

// EventsObserver receives incoming device events.
type EventsObserver interface {
	OnEvents(events []Event)
}

// ConstellationState is the cached snapshot of the account's devices.
type ConstellationState struct {
	LocalDevice   *backend.Device
	RemoteDevices []backend.Device
}

// Constellation caches the account's devices and routes device events.
// Created by the manager when an authenticated handle exists; destroyed
// and replaced together with the handle.
type Constellation struct {
	handle backend.AccountHandle
	gate   Runner
	ui     dispatch.Notifier

	mu    sync.Mutex
	state *ConstellationState

	observer       atomic.Pointer[Observer]
	eventsObserver atomic.Pointer[EventsObserver]
}

// New binds a constellation to an authenticated handle.
func New(handle backend.AccountHandle, gate Runner, ui dispatch.Notifier) *Constellation {
	return &Constellation{
		handle: handle,
		gate:   gate,
		ui:     ui,
	}
}

// RegisterDeviceObserver sets the single state observer slot.
func (c *Constellation) RegisterDeviceObserver(obs Observer) {
	c.observer.Store(&obs)
}

// RegisterDeviceEventsObserver sets the single events observer slot.
func (c *Constellation) RegisterDeviceEventsObserver(obs EventsObserver) {
	c.eventsObserver.Store(&obs)
}

// State returns the cached snapshot, or nil before the first refresh.
// The returned value is a copy; mutating it does not affect the cache.
func (c *Constellation) State() *ConstellationState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == nil {
		return nil
	}
	snap := ConstellationState{
		RemoteDevices: append([]backend.Device(nil), c.state.RemoteDevices...),
	}
	if c.state.LocalDevice != nil {
		local := *c.state.LocalDevice
		snap.LocalDevice = &local
	}
	return &snap
}

// RefreshState fetches the device list, partitions it into local and
// remote, updates the cache, and notifies the state observer on the UI
// lane. An expired local push subscription is logged; the observer is
// still notified.
func (c *Constellation) RefreshState(ctx context.Context) error {
	return c.gate.Run(ctx, func(ctx context.Context) error {
		devices, err := c.handle.GetDevices(ctx)
		if err != nil {
			return fmt.Errorf("fetch devices: %w", err)
		}

		var local *backend.Device
		remote := make([]backend.Device, 0, len(devices))
		for i := range devices {
			if devices[i].IsCurrentDevice {
				d := devices[i]
				local = &d
			} else {
				remote = append(remote, devices[i])
			}
		}

		if local != nil && local.SubscriptionExpired {
			slog.Warn("local device push subscription expired", "device", local.ID)
		}

		snap := ConstellationState{LocalDevice: local, RemoteDevices: remote}

		c.mu.Lock()
		c.state = &snap
		c.mu.Unlock()

		slog.Debug("constellation refreshed",
			"local", local != nil,
			"remote_count", len(remote),
		)

		c.ui.Submit(func() {
			if p := c.observer.Load(); p != nil {
				(*p).OnStateUpdate(snap)
			}
		})

		return nil
	})
}

// SetLocalDeviceName renames this device's record and refreshes the
// cached state. The name is NFC-normalized so the server-side record is
// byte-stable regardless of how the embedding platform composed it.
func (c *Constellation) SetLocalDeviceName(ctx context.Context, name string) error {
	name = norm.NFC.String(name)
	return c.gate.Run(ctx, func(ctx context.Context) error {
		if err := c.handle.SetDeviceDisplayName(ctx, name); err != nil {
			return fmt.Errorf("set device name: %w", err)
		}
		return c.RefreshState(ctx)
	})
}

// PollForEvents polls queued device commands and routes the resulting
// events to the events observer.
func (c *Constellation) PollForEvents(ctx context.Context) error {
	return c.gate.Run(ctx, func(ctx context.Context) error {
		commands, err := c.handle.PollDeviceCommands(ctx)
		if err != nil {
			return fmt.Errorf("poll device commands: %w", err)
		}
		c.routeEvents(eventsFromAccount(commands))
		return nil
	})
}

// ProcessRawIncomingDeviceEvent hands a raw push payload to the handle
// for decryption and parsing, then routes the resulting events.
func (c *Constellation) ProcessRawIncomingDeviceEvent(ctx context.Context, payload string) error {
	return c.gate.Run(ctx, func(ctx context.Context) error {
		events, err := c.handle.HandlePushMessage(ctx, payload)
		if err != nil {
			return fmt.Errorf("handle push payload: %w", err)
		}
		c.routeEvents(eventsFromAccount(events))
		return nil
	})
}

// SendEventToDevice dispatches an outgoing event to the target device.
func (c *Constellation) SendEventToDevice(ctx context.Context, targetID string, ev OutgoingEvent) error {
	return c.gate.Run(ctx, func(ctx context.Context) error {
		switch ev.Kind {
		case OutgoingSendTab:
			if err := c.handle.SendSingleTab(ctx, targetID, ev.Title, ev.URL); err != nil {
				return fmt.Errorf("send tab: %w", err)
			}
			return nil
		default:
			return fmt.Errorf("unknown outgoing event kind: %d", ev.Kind)
		}
	})
}

// SetDevicePushSubscription registers the push endpoint for this device.
func (c *Constellation) SetDevicePushSubscription(ctx context.Context, sub backend.DevicePushSubscription) error {
	return c.gate.Run(ctx, func(ctx context.Context) error {
		if err := c.handle.SetDevicePushSubscription(ctx, sub); err != nil {
			return fmt.Errorf("set push subscription: %w", err)
		}
		return nil
	})
}

// InitDevice creates or replaces this device's record. Invoked by the
// manager's state machine on authentication; the caller already holds
// the gate, so the call executes inline.
func (c *Constellation) InitDevice(ctx context.Context, name string, typ backend.DeviceType, capabilities []backend.Capability) error {
	return c.gate.Run(ctx, func(ctx context.Context) error {
		return c.handle.InitializeDevice(ctx, norm.NFC.String(name), typ, capabilities)
	})
}

// EnsureCapabilities re-registers capabilities on an existing device
// record. Same gate discipline as InitDevice.
func (c *Constellation) EnsureCapabilities(ctx context.Context, capabilities []backend.Capability) error {
	return c.gate.Run(ctx, func(ctx context.Context) error {
		return c.handle.EnsureCapabilities(ctx, capabilities)
	})
}

// routeEvents delivers events to the events observer on the UI lane.
// Empty batches are not delivered.
func (c *Constellation) routeEvents(events []Event) {
	if len(events) == 0 {
		return
	}
	c.ui.Submit(func() {
		if p := c.eventsObserver.Load(); p != nil {
			(*p).OnEvents(events)
		}
	})
}
