package sim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/orbitlabs/orbit/internal/backend"
)

// ErrNotAuthenticated is returned by operations that require a session
// the scripted handle does not have.
var ErrNotAuthenticated = errors.New("sim: handle not authenticated")

// SentTab records one SendSingleTab call.
type SentTab struct {
	TargetID string
	Title    string
	URL      string
}

// Handle is a scripted account handle.
//
// Thread-safety: all methods are safe for concurrent use via internal
// mutex, although the manager only ever calls them from its gate.
type Handle struct {
	mu  sync.Mutex
	cfg backend.Config

	authenticated bool
	displayName   string

	profile    *backend.Profile
	profileErr error

	devices    []backend.Device
	devicesErr error

	queuedCommands []backend.AccountEvent
	pushPayloads   map[string][]backend.AccountEvent
	pushErr        error

	tokens     map[string]*backend.AccessTokenInfo
	tokenErr   error
	authStatus backend.AuthorizationStatus
	statusErr  error

	beginErr      error
	completeErr   error
	disconnectErr error

	flowStates []string
	flowIdx    int

	persist backend.PersistCallback

	calls             []string
	sentTabs          []SentTab
	tokenCacheClears  int
	initializedDevice bool
}

// handleState is the serialized form produced by ToJSON.
type handleState struct {
	Authenticated bool   `json:"authenticated"`
	DisplayName   string `json:"display_name,omitempty"`
}

// NewHandle creates a fresh unauthenticated scripted handle.
func NewHandle(cfg backend.Config) *Handle {
	return &Handle{
		cfg:          cfg,
		pushPayloads: make(map[string][]backend.AccountEvent),
		tokens:       make(map[string]*backend.AccessTokenInfo),
		authStatus:   backend.AuthorizationStatus{Active: true},
	}
}

// --- scripting ---

// Authenticate marks the handle authenticated without a flow, as a
// restored handle would be.
func (h *Handle) Authenticate() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.authenticated = true
}

// SetProfile scripts the GetProfile result.
func (h *Handle) SetProfile(p *backend.Profile) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.profile = p
	h.profileErr = nil
}

// SetProfileError makes GetProfile fail until SetProfile is called.
func (h *Handle) SetProfileError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.profileErr = err
}

// SetDevices scripts the GetDevices result.
func (h *Handle) SetDevices(devices []backend.Device) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.devices = devices
	h.devicesErr = nil
}

// SetDevicesError makes GetDevices fail.
func (h *Handle) SetDevicesError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.devicesErr = err
}

// QueueCommand appends a device command for the next poll.
func (h *Handle) QueueCommand(ev backend.AccountEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.queuedCommands = append(h.queuedCommands, ev)
}

// SetPushPayload scripts the decode result for a raw push payload.
func (h *Handle) SetPushPayload(payload string, events []backend.AccountEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pushPayloads[payload] = events
}

// SetAccessToken scripts the token for a scope.
func (h *Handle) SetAccessToken(scope string, info *backend.AccessTokenInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tokens[scope] = info
	h.tokenErr = nil
}

// SetAccessTokenError makes GetAccessToken fail for every scope.
func (h *Handle) SetAccessTokenError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tokenErr = err
}

// SetAuthorizationStatus scripts the CheckAuthorizationStatus result.
func (h *Handle) SetAuthorizationStatus(active bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.authStatus = backend.AuthorizationStatus{Active: active}
	h.statusErr = nil
}

// SetAuthorizationStatusError makes CheckAuthorizationStatus fail.
func (h *Handle) SetAuthorizationStatusError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statusErr = err
}

// SetBeginError makes Begin*Flow fail.
func (h *Handle) SetBeginError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.beginErr = err
}

// SetCompleteOAuthError makes CompleteOAuthFlow fail.
func (h *Handle) SetCompleteOAuthError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.completeErr = err
}

// SetDisconnectError makes Disconnect fail.
func (h *Handle) SetDisconnectError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.disconnectErr = err
}

// SetFlowStates fixes the sequence of state parameters returned by
// Begin*Flow. Without it, states are "state-1", "state-2", ...
func (h *Handle) SetFlowStates(states ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.flowStates = states
	h.flowIdx = 0
}

// --- inspection ---

// Calls returns the recorded method names in call order.
func (h *Handle) Calls() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.calls...)
}

// CallCount returns how many times the named method was called.
func (h *Handle) CallCount(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, c := range h.calls {
		if c == name {
			n++
		}
	}
	return n
}

// SentTabs returns the recorded SendSingleTab calls.
func (h *Handle) SentTabs() []SentTab {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]SentTab(nil), h.sentTabs...)
}

// TokenCacheClears returns how many times the token cache was cleared.
func (h *Handle) TokenCacheClears() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.tokenCacheClears
}

// Authenticated reports the scripted session state.
func (h *Handle) Authenticated() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.authenticated
}

// DeviceInitialized reports whether InitializeDevice has run.
func (h *Handle) DeviceInitialized() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.initializedDevice
}

// DisplayName returns the last name set via SetDeviceDisplayName or
// InitializeDevice.
func (h *Handle) DisplayName() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.displayName
}

func (h *Handle) record(name string) {
	h.calls = append(h.calls, name)
}

// firePersist invokes the persist callback outside the lock, matching a
// real handle notifying after its mutation committed.
func (h *Handle) firePersist() {
	h.mu.Lock()
	cb := h.persist
	h.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// --- backend.AccountHandle ---

// BeginOAuthFlow returns a scripted authorization URL carrying the next
// flow state parameter.
func (h *Handle) BeginOAuthFlow(_ context.Context, scopes []string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record("BeginOAuthFlow")
	return h.beginLocked(scopes)
}

// BeginPairingFlow returns a scripted authorization URL for a pairing flow.
func (h *Handle) BeginPairingFlow(_ context.Context, pairingURL string, scopes []string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record("BeginPairingFlow")
	if pairingURL == "" {
		return "", errors.New("sim: empty pairing URL")
	}
	return h.beginLocked(scopes)
}

func (h *Handle) beginLocked([]string) (string, error) {
	if h.beginErr != nil {
		return "", h.beginErr
	}
	var state string
	if h.flowIdx < len(h.flowStates) {
		state = h.flowStates[h.flowIdx]
	} else {
		state = fmt.Sprintf("state-%d", h.flowIdx+1)
	}
	h.flowIdx++
	base := h.cfg.ContentURL
	if base == "" {
		base = "https://accounts.example.com"
	}
	return fmt.Sprintf("%s/oauth/flow?state=%s", base, state), nil
}

// CompleteOAuthFlow marks the handle authenticated and fires the persist
// callback.
func (h *Handle) CompleteOAuthFlow(_ context.Context, code, state string) error {
	h.mu.Lock()
	h.record("CompleteOAuthFlow")
	if h.completeErr != nil {
		err := h.completeErr
		h.mu.Unlock()
		return err
	}
	if code == "" || state == "" {
		h.mu.Unlock()
		return errors.New("sim: missing code or state")
	}
	h.authenticated = true
	h.mu.Unlock()
	h.firePersist()
	return nil
}

// GetProfile returns the scripted profile.
func (h *Handle) GetProfile(context.Context) (*backend.Profile, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record("GetProfile")
	if !h.authenticated {
		return nil, ErrNotAuthenticated
	}
	if h.profileErr != nil {
		return nil, h.profileErr
	}
	if h.profile == nil {
		return nil, errors.New("sim: no profile scripted")
	}
	p := *h.profile
	return &p, nil
}

// GetDevices returns the scripted device list.
func (h *Handle) GetDevices(context.Context) ([]backend.Device, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record("GetDevices")
	if !h.authenticated {
		return nil, ErrNotAuthenticated
	}
	if h.devicesErr != nil {
		return nil, h.devicesErr
	}
	return append([]backend.Device(nil), h.devices...), nil
}

// InitializeDevice records the device registration and fires persist.
func (h *Handle) InitializeDevice(_ context.Context, name string, _ backend.DeviceType, _ []backend.Capability) error {
	h.mu.Lock()
	h.record("InitializeDevice")
	if !h.authenticated {
		h.mu.Unlock()
		return ErrNotAuthenticated
	}
	h.initializedDevice = true
	h.displayName = name
	h.mu.Unlock()
	h.firePersist()
	return nil
}

// EnsureCapabilities records the capability refresh and fires persist.
func (h *Handle) EnsureCapabilities(_ context.Context, _ []backend.Capability) error {
	h.mu.Lock()
	h.record("EnsureCapabilities")
	if !h.authenticated {
		h.mu.Unlock()
		return ErrNotAuthenticated
	}
	h.mu.Unlock()
	h.firePersist()
	return nil
}

// SetDeviceDisplayName records the rename and fires persist.
func (h *Handle) SetDeviceDisplayName(_ context.Context, name string) error {
	h.mu.Lock()
	h.record("SetDeviceDisplayName")
	if !h.authenticated {
		h.mu.Unlock()
		return ErrNotAuthenticated
	}
	h.displayName = name
	h.mu.Unlock()
	h.firePersist()
	return nil
}

// SetDevicePushSubscription records the subscription and fires persist.
func (h *Handle) SetDevicePushSubscription(_ context.Context, _ backend.DevicePushSubscription) error {
	h.mu.Lock()
	h.record("SetDevicePushSubscription")
	if !h.authenticated {
		h.mu.Unlock()
		return ErrNotAuthenticated
	}
	h.mu.Unlock()
	h.firePersist()
	return nil
}

// PollDeviceCommands drains the queued commands.
func (h *Handle) PollDeviceCommands(context.Context) ([]backend.AccountEvent, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record("PollDeviceCommands")
	if !h.authenticated {
		return nil, ErrNotAuthenticated
	}
	out := h.queuedCommands
	h.queuedCommands = nil
	return out, nil
}

// HandlePushMessage decodes a scripted push payload.
func (h *Handle) HandlePushMessage(_ context.Context, payload string) ([]backend.AccountEvent, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record("HandlePushMessage")
	if h.pushErr != nil {
		return nil, h.pushErr
	}
	events, ok := h.pushPayloads[payload]
	if !ok {
		return nil, fmt.Errorf("sim: unknown push payload %q", payload)
	}
	return events, nil
}

// SendSingleTab records the outgoing tab.
func (h *Handle) SendSingleTab(_ context.Context, targetID, title, url string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record("SendSingleTab")
	if !h.authenticated {
		return ErrNotAuthenticated
	}
	h.sentTabs = append(h.sentTabs, SentTab{TargetID: targetID, Title: title, URL: url})
	return nil
}

// GetAccessToken returns the scripted token for the scope.
func (h *Handle) GetAccessToken(_ context.Context, scope string) (*backend.AccessTokenInfo, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record("GetAccessToken")
	if h.tokenErr != nil {
		return nil, h.tokenErr
	}
	if info, ok := h.tokens[scope]; ok {
		cp := *info
		return &cp, nil
	}
	if !h.authenticated {
		return nil, ErrNotAuthenticated
	}
	return &backend.AccessTokenInfo{Scope: scope, Token: "token-" + scope}, nil
}

// ClearAccessTokenCache counts cache clears.
func (h *Handle) ClearAccessTokenCache() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record("ClearAccessTokenCache")
	h.tokenCacheClears++
}

// CheckAuthorizationStatus returns the scripted status.
func (h *Handle) CheckAuthorizationStatus(context.Context) (*backend.AuthorizationStatus, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record("CheckAuthorizationStatus")
	if h.statusErr != nil {
		return nil, h.statusErr
	}
	st := h.authStatus
	return &st, nil
}

// Disconnect ends the scripted session.
func (h *Handle) Disconnect(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record("Disconnect")
	if h.disconnectErr != nil {
		return h.disconnectErr
	}
	h.authenticated = false
	return nil
}

// ToJSON serializes the handle state. The blob round-trips exactly
// through Factory.Restore.
func (h *Handle) ToJSON() (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record("ToJSON")
	data, err := json.Marshal(handleState{
		Authenticated: h.authenticated,
		DisplayName:   h.displayName,
	})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// RegisterPersistCallback installs the persist hook, replacing any
// previous one.
func (h *Handle) RegisterPersistCallback(cb backend.PersistCallback) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record("RegisterPersistCallback")
	h.persist = cb
}
