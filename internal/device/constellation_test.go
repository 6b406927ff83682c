package device

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitlabs/orbit/internal/backend"
	"github.com/orbitlabs/orbit/internal/dispatch"
	"github.com/orbitlabs/orbit/internal/sim"
)

type stateRecorder struct {
	mu     sync.Mutex
	states []ConstellationState
}

func (r *stateRecorder) OnStateUpdate(state ConstellationState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
}

func (r *stateRecorder) all() []ConstellationState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ConstellationState(nil), r.states...)
}

type eventsRecorder struct {
	mu      sync.Mutex
	batches [][]Event
}

func (r *eventsRecorder) OnEvents(events []Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, events)
}

func (r *eventsRecorder) all() [][]Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]Event(nil), r.batches...)
}

func newTestConstellation(t *testing.T) (*Constellation, *sim.Handle) {
	t.Helper()

	h := sim.NewHandle(backend.Config{})
	h.Authenticate()

	gate := dispatch.NewLane("gate")
	t.Cleanup(gate.Close)

	return New(h, gate, dispatch.Inline{}), h
}

func TestConstellation_StateNilBeforeRefresh(t *testing.T) {
	c, _ := newTestConstellation(t)
	assert.Nil(t, c.State())
}

func TestConstellation_RefreshPartitionsDevices(t *testing.T) {
	c, h := newTestConstellation(t)
	h.SetDevices([]backend.Device{
		{ID: "d1", DisplayName: "Laptop", IsCurrentDevice: true},
		{ID: "d2", DisplayName: "Phone", Type: backend.DeviceTypeMobile},
		{ID: "d3", DisplayName: "Tablet", Type: backend.DeviceTypeTablet},
	})

	rec := &stateRecorder{}
	c.RegisterDeviceObserver(rec)

	require.NoError(t, c.RefreshState(context.Background()))

	state := c.State()
	require.NotNil(t, state)
	require.NotNil(t, state.LocalDevice)
	assert.Equal(t, "d1", state.LocalDevice.ID)
	require.Len(t, state.RemoteDevices, 2)
	assert.Equal(t, "d2", state.RemoteDevices[0].ID)
	assert.Equal(t, "d3", state.RemoteDevices[1].ID)

	updates := rec.all()
	require.Len(t, updates, 1)
	assert.Equal(t, "d1", updates[0].LocalDevice.ID)
}

func TestConstellation_RefreshNotifiesOnExpiredSubscription(t *testing.T) {
	c, h := newTestConstellation(t)
	h.SetDevices([]backend.Device{
		{ID: "d1", IsCurrentDevice: true, SubscriptionExpired: true},
	})

	rec := &stateRecorder{}
	c.RegisterDeviceObserver(rec)

	// The expired subscription is logged; the observer still hears about
	// the new state.
	require.NoError(t, c.RefreshState(context.Background()))
	assert.Len(t, rec.all(), 1)
}

func TestConstellation_RefreshErrorPropagates(t *testing.T) {
	c, h := newTestConstellation(t)
	h.SetDevicesError(errors.New("devices unavailable"))

	err := c.RefreshState(context.Background())
	assert.Error(t, err)
	assert.Nil(t, c.State())
}

func TestConstellation_SetLocalDeviceNameNormalizesAndRefreshes(t *testing.T) {
	c, h := newTestConstellation(t)
	h.SetDevices([]backend.Device{{ID: "d1", IsCurrentDevice: true}})

	// "Cafe" + combining acute accent: NFC composes it to "Café".
	require.NoError(t, c.SetLocalDeviceName(context.Background(), "Café"))

	assert.Equal(t, "Café", h.DisplayName())
	assert.NotNil(t, c.State(), "rename should trigger a refresh")
}

func TestConstellation_SendTab(t *testing.T) {
	c, h := newTestConstellation(t)

	err := c.SendEventToDevice(context.Background(), "d2", SendTab("Title", "https://example.com"))
	require.NoError(t, err)

	sent := h.SentTabs()
	require.Len(t, sent, 1)
	assert.Equal(t, sim.SentTab{TargetID: "d2", Title: "Title", URL: "https://example.com"}, sent[0])
}

func TestConstellation_SendUnknownEventKind(t *testing.T) {
	c, _ := newTestConstellation(t)

	err := c.SendEventToDevice(context.Background(), "d2", OutgoingEvent{Kind: 99})
	assert.Error(t, err)
}

func TestConstellation_PollRoutesEvents(t *testing.T) {
	c, h := newTestConstellation(t)
	h.QueueCommand(backend.AccountEvent{
		Kind:    backend.AccountEventTabReceived,
		Entries: []backend.TabEntry{{Title: "T", URL: "U"}},
	})

	rec := &eventsRecorder{}
	c.RegisterDeviceEventsObserver(rec)

	require.NoError(t, c.PollForEvents(context.Background()))

	batches := rec.all()
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 1)
	assert.Equal(t, EventTabReceived, batches[0][0].Kind)
	assert.Equal(t, "T", batches[0][0].Entries[0].Title)

	// The queue drains: a second poll delivers nothing.
	require.NoError(t, c.PollForEvents(context.Background()))
	assert.Len(t, rec.all(), 1)
}

func TestConstellation_ProcessRawIncomingDeviceEvent(t *testing.T) {
	c, h := newTestConstellation(t)
	from := &backend.Device{ID: "d2", DisplayName: "Phone"}
	h.SetPushPayload("payload-1", []backend.AccountEvent{{
		Kind:    backend.AccountEventTabReceived,
		From:    from,
		Entries: []backend.TabEntry{{Title: "Pushed", URL: "https://example.com/p"}},
	}})

	rec := &eventsRecorder{}
	c.RegisterDeviceEventsObserver(rec)

	require.NoError(t, c.ProcessRawIncomingDeviceEvent(context.Background(), "payload-1"))

	batches := rec.all()
	require.Len(t, batches, 1)
	assert.Equal(t, "d2", batches[0][0].From.ID)
}

func TestConstellation_ProcessUnknownPayloadFails(t *testing.T) {
	c, _ := newTestConstellation(t)

	rec := &eventsRecorder{}
	c.RegisterDeviceEventsObserver(rec)

	err := c.ProcessRawIncomingDeviceEvent(context.Background(), "garbage")
	assert.Error(t, err)
	assert.Empty(t, rec.all())
}

func TestConstellation_SetDevicePushSubscription(t *testing.T) {
	c, h := newTestConstellation(t)

	err := c.SetDevicePushSubscription(context.Background(), backend.DevicePushSubscription{
		Endpoint:  "https://push.example.com/ep",
		PublicKey: "pub",
		AuthKey:   "auth",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, h.CallCount("SetDevicePushSubscription"))
}

func TestConstellation_StateSnapshotIsACopy(t *testing.T) {
	c, h := newTestConstellation(t)
	h.SetDevices([]backend.Device{
		{ID: "d1", IsCurrentDevice: true},
		{ID: "d2"},
	})
	require.NoError(t, c.RefreshState(context.Background()))

	snap := c.State()
	snap.RemoteDevices[0].ID = "mutated"

	assert.Equal(t, "d2", c.State().RemoteDevices[0].ID)
}
