package backend

import "context"

// Config identifies the OAuth relier to the account server.
type Config struct {
	ContentURL  string
	ClientID    string
	RedirectURI string
}

// PersistCallback is invoked by the handle after any mutation that changed
// its persisted state. The callback fires on whatever goroutine performed
// the mutation; in this module that is always the manager's gate.
type PersistCallback func()

// AccountHandle is the per-account object provided by the underlying
// account library. All operations are synchronous; any of them may perform
// network I/O. Calls are never concurrent (see package doc).
type AccountHandle interface {
	// BeginOAuthFlow starts an interactive OAuth flow for the given scopes
	// and returns the URL the embedding UI must present. The URL carries a
	// `state` query parameter identifying the flow.
	BeginOAuthFlow(ctx context.Context, scopes []string) (string, error)

	// BeginPairingFlow starts a pairing flow from a scanned pairing URL.
	BeginPairingFlow(ctx context.Context, pairingURL string, scopes []string) (string, error)

	// CompleteOAuthFlow exchanges the redirect's code and state for tokens.
	CompleteOAuthFlow(ctx context.Context, code, state string) error

	// GetProfile fetches the user's profile.
	GetProfile(ctx context.Context) (*Profile, error)

	// GetDevices fetches the full device constellation, local device included.
	GetDevices(ctx context.Context) ([]Device, error)

	// InitializeDevice creates or replaces this device's record.
	InitializeDevice(ctx context.Context, name string, typ DeviceType, capabilities []Capability) error

	// EnsureCapabilities re-registers capabilities on an existing record.
	EnsureCapabilities(ctx context.Context, capabilities []Capability) error

	// SetDeviceDisplayName renames this device's record.
	SetDeviceDisplayName(ctx context.Context, name string) error

	// SetDevicePushSubscription registers the push endpoint for this device.
	SetDevicePushSubscription(ctx context.Context, sub DevicePushSubscription) error

	// PollDeviceCommands fetches queued device commands.
	PollDeviceCommands(ctx context.Context) ([]AccountEvent, error)

	// HandlePushMessage decrypts and decodes a raw push payload.
	HandlePushMessage(ctx context.Context, payload string) ([]AccountEvent, error)

	// SendSingleTab sends a tab to the target device.
	SendSingleTab(ctx context.Context, targetID, title, url string) error

	// GetAccessToken returns a cached or freshly minted token for the scope.
	GetAccessToken(ctx context.Context, scope string) (*AccessTokenInfo, error)

	// ClearAccessTokenCache drops all cached access tokens.
	ClearAccessTokenCache()

	// CheckAuthorizationStatus asks the server whether the session is live.
	CheckAuthorizationStatus(ctx context.Context) (*AuthorizationStatus, error)

	// Disconnect destroys the session server-side.
	Disconnect(ctx context.Context) error

	// ToJSON serializes the handle's internal state to an opaque blob.
	// The blob round-trips exactly through the factory's Restore.
	ToJSON() (string, error)

	// RegisterPersistCallback installs the persist hook. At most one
	// callback is registered at a time; a later call replaces it.
	RegisterPersistCallback(cb PersistCallback)
}

// HandleFactory constructs account handles. New creates a fresh,
// unauthenticated handle; Restore rebuilds one from a blob previously
// produced by ToJSON.
type HandleFactory interface {
	New(cfg Config) (AccountHandle, error)
	Restore(cfg Config, blob string) (AccountHandle, error)
}
