package sim

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/orbitlabs/orbit/internal/backend"
)

// Factory creates scripted handles. The manager replaces handles during
// its lifecycle (cold start, logout); Configure lets a test script every
// handle the factory hands out, and Latest returns the one currently
// owned by the manager.
type Factory struct {
	mu      sync.Mutex
	handles []*Handle

	// Configure, if set, runs on every handle the factory creates,
	// before the manager sees it.
	Configure func(h *Handle)

	restoreErr error
}

// NewFactory creates an empty factory.
func NewFactory() *Factory {
	return &Factory{}
}

// SetRestoreError makes Restore fail.
func (f *Factory) SetRestoreError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restoreErr = err
}

// New creates a fresh unauthenticated handle.
func (f *Factory) New(cfg backend.Config) (backend.AccountHandle, error) {
	return f.make(cfg, nil), nil
}

// Restore rebuilds a handle from a blob produced by Handle.ToJSON.
func (f *Factory) Restore(cfg backend.Config, blob string) (backend.AccountHandle, error) {
	f.mu.Lock()
	restoreErr := f.restoreErr
	f.mu.Unlock()
	if restoreErr != nil {
		return nil, restoreErr
	}

	var state handleState
	if err := json.Unmarshal([]byte(blob), &state); err != nil {
		return nil, fmt.Errorf("sim: malformed account blob: %w", err)
	}
	return f.make(cfg, &state), nil
}

// Latest returns the most recently created handle, or nil.
func (f *Factory) Latest() *Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.handles) == 0 {
		return nil
	}
	return f.handles[len(f.handles)-1]
}

// Handles returns every handle the factory has produced, in creation
// order.
func (f *Factory) Handles() []*Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Handle(nil), f.handles...)
}

// Created returns how many handles the factory has produced.
func (f *Factory) Created() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handles)
}

func (f *Factory) make(cfg backend.Config, state *handleState) *Handle {
	h := NewHandle(cfg)
	if state != nil {
		h.authenticated = state.Authenticated
		h.displayName = state.DisplayName
	}

	f.mu.Lock()
	configure := f.Configure
	f.handles = append(f.handles, h)
	f.mu.Unlock()

	if configure != nil {
		configure(h)
	}
	return h
}

// AuthenticatedBlob returns a blob that Restore turns into an
// authenticated handle, for seeding secret stores in tests.
func AuthenticatedBlob() string {
	data, err := json.Marshal(handleState{Authenticated: true})
	if err != nil {
		panic(err) // cannot fail for a fixed struct
	}
	return string(data)
}
