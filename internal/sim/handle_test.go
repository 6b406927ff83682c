package sim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitlabs/orbit/internal/backend"
)

func TestHandle_FlowStateSequence(t *testing.T) {
	ctx := context.Background()
	h := NewHandle(backend.Config{ContentURL: "https://acc.example.com"})

	url1, err := h.BeginOAuthFlow(ctx, []string{backend.ScopeProfile})
	require.NoError(t, err)
	assert.Equal(t, "https://acc.example.com/oauth/flow?state=state-1", url1)

	url2, err := h.BeginOAuthFlow(ctx, []string{backend.ScopeProfile})
	require.NoError(t, err)
	assert.Equal(t, "https://acc.example.com/oauth/flow?state=state-2", url2)
}

func TestHandle_FixedFlowStates(t *testing.T) {
	ctx := context.Background()
	h := NewHandle(backend.Config{})
	h.SetFlowStates("ABC", "DEF")

	url, err := h.BeginOAuthFlow(ctx, nil)
	require.NoError(t, err)
	assert.Contains(t, url, "state=ABC")

	url, err = h.BeginOAuthFlow(ctx, nil)
	require.NoError(t, err)
	assert.Contains(t, url, "state=DEF")
}

func TestHandle_CompleteOAuthAuthenticatesAndPersists(t *testing.T) {
	ctx := context.Background()
	h := NewHandle(backend.Config{})

	persisted := 0
	h.RegisterPersistCallback(func() { persisted++ })

	require.NoError(t, h.CompleteOAuthFlow(ctx, "code", "state"))
	assert.True(t, h.Authenticated())
	assert.Equal(t, 1, persisted)
}

func TestHandle_OperationsRequireAuthentication(t *testing.T) {
	ctx := context.Background()
	h := NewHandle(backend.Config{})

	_, err := h.GetProfile(ctx)
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = h.GetDevices(ctx)
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	err = h.SendSingleTab(ctx, "d1", "T", "U")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestHandle_ToJSONRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := NewFactory()

	hi, err := f.New(backend.Config{})
	require.NoError(t, err)
	h := hi.(*Handle)

	require.NoError(t, h.CompleteOAuthFlow(ctx, "code", "state"))
	require.NoError(t, h.SetDeviceDisplayName(ctx, "My Laptop"))

	blob, err := h.ToJSON()
	require.NoError(t, err)

	ri, err := f.Restore(backend.Config{}, blob)
	require.NoError(t, err)
	restored := ri.(*Handle)

	assert.True(t, restored.Authenticated())
	assert.Equal(t, "My Laptop", restored.DisplayName())

	// The round trip is exact: serializing again yields the same blob.
	blob2, err := restored.ToJSON()
	require.NoError(t, err)
	assert.Equal(t, blob, blob2)
}

func TestFactory_RestoreRejectsMalformedBlob(t *testing.T) {
	f := NewFactory()
	_, err := f.Restore(backend.Config{}, "not json")
	assert.Error(t, err)
}

func TestFactory_ConfigureRunsOnEveryHandle(t *testing.T) {
	f := NewFactory()
	f.Configure = func(h *Handle) {
		h.SetProfile(&backend.Profile{UID: "u", Email: "e@example.com"})
	}

	hi, err := f.New(backend.Config{})
	require.NoError(t, err)
	h := hi.(*Handle)
	h.Authenticate()

	p, err := h.GetProfile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "e@example.com", p.Email)

	ri, err := f.Restore(backend.Config{}, AuthenticatedBlob())
	require.NoError(t, err)
	p, err = ri.(*Handle).GetProfile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "e@example.com", p.Email)

	assert.Equal(t, 2, f.Created())
	assert.Same(t, ri, f.Latest())
}

func TestHandle_PollDrainsQueue(t *testing.T) {
	ctx := context.Background()
	h := NewHandle(backend.Config{})
	h.Authenticate()
	h.QueueCommand(backend.AccountEvent{Kind: backend.AccountEventTabReceived})

	events, err := h.PollDeviceCommands(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 1)

	events, err = h.PollDeviceCommands(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestHandle_CallRecording(t *testing.T) {
	ctx := context.Background()
	h := NewHandle(backend.Config{})
	h.Authenticate()

	_, _ = h.GetProfile(ctx)
	_, _ = h.GetProfile(ctx)
	h.ClearAccessTokenCache()

	assert.Equal(t, 2, h.CallCount("GetProfile"))
	assert.Equal(t, 1, h.TokenCacheClears())
	assert.Equal(t, []string{"GetProfile", "GetProfile", "ClearAccessTokenCache"}, h.Calls())
}
