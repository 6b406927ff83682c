package acct

import "log/slog"

// registerPersistence installs the persist hook on the current handle.
// The hook fires on the gate (where every handle mutation runs), so the
// serialization happens inline; the secret-store write is handed to a
// background goroutine. Failures are logged and swallowed - the
// operation that triggered the persist must not fail because persistence
// failed.
//
// The closure captures the handle it was registered on: if the handle is
// superseded while a write is in flight, the write still stores the blob
// serialized from that handle when the callback fired, never a mix of two
// handles. Writes run on separate goroutines, so their completion order
// is not defined.
func (m *Manager) registerPersistence() {
	handle := m.handle
	handle.RegisterPersistCallback(func() {
		blob, err := handle.ToJSON()
		if err != nil {
			slog.Warn("serializing account state failed", "error", err)
			return
		}
		m.persistWG.Add(1)
		go func() {
			defer m.persistWG.Done()
			if err := m.store.Write(blob); err != nil {
				slog.Warn("persisting account state failed", "error", err)
			}
		}()
	})
}
