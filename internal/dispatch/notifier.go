package dispatch

// Notifier delivers observer callbacks off the gate. *Lane satisfies it;
// Inline runs callbacks synchronously for deterministic tests.
type Notifier interface {
	Submit(fn func()) bool
}

// Inline is a Notifier that invokes callbacks on the caller's goroutine.
//
// Production code uses a Lane so notifications never run on the gate;
// tests use Inline so assertions can run immediately after the call that
// triggered the notification.
type Inline struct{}

// Submit runs fn immediately and always reports success.
func (Inline) Submit(fn func()) bool {
	fn()
	return true
}
