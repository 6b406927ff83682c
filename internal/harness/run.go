package harness

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/orbitlabs/orbit/internal/acct"
	"github.com/orbitlabs/orbit/internal/backend"
	"github.com/orbitlabs/orbit/internal/device"
	"github.com/orbitlabs/orbit/internal/dispatch"
	"github.com/orbitlabs/orbit/internal/secrets"
	"github.com/orbitlabs/orbit/internal/sim"
)

// Result is the outcome of running a scenario.
type Result struct {
	Trace      []TraceEvent
	FinalState string

	// Factory exposes the scripted handles for call-level assertions.
	Factory *sim.Factory

	// Store is the secret store the manager ran against.
	Store *secrets.Memory
}

// recorder captures observer notifications into the trace. With the
// inline notifier, entries land at the exact lifecycle point that
// produced them.
type recorder struct {
	mu    sync.Mutex
	trace []TraceEvent
}

func (r *recorder) add(ev TraceEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trace = append(r.trace, ev)
}

func (r *recorder) snapshot() []TraceEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]TraceEvent(nil), r.trace...)
}

func (r *recorder) OnAuthenticated(authType acct.AuthType) {
	r.add(TraceEvent{Kind: "notification", Name: "onAuthenticated", Detail: authType.String()})
}

func (r *recorder) OnProfileUpdated(profile backend.Profile) {
	r.add(TraceEvent{Kind: "notification", Name: "onProfileUpdated", Detail: profile.Email})
}

func (r *recorder) OnAuthenticationProblems() {
	r.add(TraceEvent{Kind: "notification", Name: "onAuthenticationProblems"})
}

func (r *recorder) OnLoggedOut() {
	r.add(TraceEvent{Kind: "notification", Name: "onLoggedOut"})
}

func (r *recorder) OnEvents(events []device.Event) {
	for _, ev := range events {
		titles := make([]string, 0, len(ev.Entries))
		for _, e := range ev.Entries {
			titles = append(titles, e.Title)
		}
		r.add(TraceEvent{Kind: "deviceEvents", Name: ev.Kind.String(), Detail: strings.Join(titles, ",")})
	}
}

// Run executes a scenario and returns its trace.
func Run(s *Scenario) (*Result, error) {
	ctx := context.Background()

	store := secrets.NewMemory()
	if s.StoredAccount {
		if err := store.Write(sim.AuthenticatedBlob()); err != nil {
			return nil, fmt.Errorf("seed secret store: %w", err)
		}
	}

	factory := sim.NewFactory()
	factory.Configure = func(h *sim.Handle) {
		scriptHandle(h, s)
	}

	rec := &recorder{}

	mgr := acct.New(harnessConfig, deviceConfig(s), factory, store,
		acct.WithNotifier(dispatch.Inline{}),
	)
	defer mgr.Close()

	mgr.Register(rec)
	mgr.RegisterForDeviceEvents(rec)

	for _, step := range s.Steps {
		detail, err := runStep(ctx, mgr, step)
		ev := TraceEvent{
			Kind:   "op",
			Name:   step.Op,
			Detail: detail,
			Result: "ok",
			State:  mgr.State().String(),
		}
		if err != nil {
			ev.Result = err.Error()
		}
		rec.add(ev)
	}

	return &Result{
		Trace:      rec.snapshot(),
		FinalState: mgr.State().String(),
		Factory:    factory,
		Store:      store,
	}, nil
}

// harnessConfig is the fixed relier config scenarios run under.
var harnessConfig = backend.Config{
	ContentURL:  "https://accounts.example.com",
	ClientID:    "orbit-harness",
	RedirectURI: "https://localhost/redirect",
}

func deviceConfig(s *Scenario) backend.DeviceConfig {
	if s.LocalDevice == nil {
		return backend.DeviceConfig{
			Name:         "Orbit Harness Device",
			Type:         backend.DeviceTypeDesktop,
			Capabilities: []backend.Capability{backend.CapabilitySendTab},
		}
	}
	caps := make([]backend.Capability, 0, len(s.LocalDevice.Capabilities))
	for _, c := range s.LocalDevice.Capabilities {
		caps = append(caps, backend.Capability(c))
	}
	return backend.DeviceConfig{
		Name:         s.LocalDevice.Name,
		Type:         backend.DeviceType(s.LocalDevice.Type),
		Capabilities: caps,
	}
}

func scriptHandle(h *sim.Handle, s *Scenario) {
	if s.Profile != nil {
		h.SetProfile(&backend.Profile{
			UID:         s.Profile.UID,
			Email:       s.Profile.Email,
			DisplayName: s.Profile.DisplayName,
		})
	}

	if len(s.Devices) > 0 {
		devices := make([]backend.Device, 0, len(s.Devices))
		for _, d := range s.Devices {
			typ := backend.DeviceType(d.Type)
			if d.Type == "" {
				typ = backend.DeviceTypeDesktop
			}
			devices = append(devices, backend.Device{
				ID:              d.ID,
				DisplayName:     d.Name,
				Type:            typ,
				IsCurrentDevice: d.Current,
				Capabilities:    []backend.Capability{backend.CapabilitySendTab},
			})
		}
		h.SetDevices(devices)
	}

	if len(s.FlowStates) > 0 {
		h.SetFlowStates(s.FlowStates...)
	}

	if s.AuthorizationInactive {
		h.SetAuthorizationStatus(false)
	}

	for _, p := range s.Pushes {
		h.SetPushPayload(p.Payload, []backend.AccountEvent{{
			Kind:    backend.AccountEventTabReceived,
			Entries: tabEntries(p.Tabs),
		}})
	}
}

func tabEntries(tabs []TabSpec) []backend.TabEntry {
	entries := make([]backend.TabEntry, 0, len(tabs))
	for _, t := range tabs {
		entries = append(entries, backend.TabEntry{Title: t.Title, URL: t.URL})
	}
	return entries
}

func runStep(ctx context.Context, mgr *acct.Manager, step Step) (string, error) {
	switch step.Op {
	case OpInitialize:
		return "", mgr.Initialize(ctx)

	case OpBeginAuthentication:
		url, err := mgr.BeginAuthentication(ctx)
		return url, err

	case OpBeginPairing:
		url, err := mgr.BeginPairingAuthentication(ctx, step.PairingURL)
		return url, err

	case OpFinishAuth:
		return "", mgr.FinishAuthentication(ctx, acct.AuthData{
			Code:   step.Code,
			State:  step.State,
			Action: step.Action,
		})

	case OpRefreshProfile:
		return "", mgr.RefreshProfile(ctx)

	case OpInjectAuthError:
		return "", mgr.InjectAuthenticationError(ctx)

	case OpLogout:
		return "", mgr.Logout(ctx)

	case OpSendTab:
		c := mgr.DeviceConstellation()
		if c == nil {
			return "", fmt.Errorf("no device constellation")
		}
		return "", c.SendEventToDevice(ctx, step.Target, device.SendTab(step.Title, step.URL))

	case OpDeliverPush:
		c := mgr.DeviceConstellation()
		if c == nil {
			return "", fmt.Errorf("no device constellation")
		}
		return "", c.ProcessRawIncomingDeviceEvent(ctx, step.Payload)

	case OpPollDevices:
		c := mgr.DeviceConstellation()
		if c == nil {
			return "", fmt.Errorf("no device constellation")
		}
		return "", c.PollForEvents(ctx)

	case OpSetDeviceName:
		c := mgr.DeviceConstellation()
		if c == nil {
			return "", fmt.Errorf("no device constellation")
		}
		return "", c.SetLocalDeviceName(ctx, step.Name)

	case OpRefreshDevices:
		c := mgr.DeviceConstellation()
		if c == nil {
			return "", fmt.Errorf("no device constellation")
		}
		return "", c.RefreshState(ctx)

	default:
		return "", fmt.Errorf("unknown op %q", step.Op)
	}
}
