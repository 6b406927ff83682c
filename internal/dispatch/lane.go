package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrClosed is returned by Run when the lane has been closed.
var ErrClosed = errors.New("dispatch: lane closed")

// laneKeyType keys the owning lane in a task's context.
type laneKeyType struct{}

var laneKey laneKeyType

// task is one unit of work on a lane. done is non-nil for awaited tasks.
type task struct {
	op   string
	fn   func(ctx context.Context)
	ctx  context.Context
	done chan struct{}
}

// Lane is a single FIFO execution lane backed by one worker goroutine.
//
// Thread-safety model:
//   - Submit() / Run(): safe from any goroutine
//   - tasks execute strictly in submission order, one at a time
//
// Every task is stamped with a correlation token from the lane's token
// generator for structured logging.
type Lane struct {
	name   string
	tokens TokenGenerator

	mu     sync.Mutex
	tasks  []task
	closed bool
	signal chan struct{} // coalesced availability signal (buffered, size 1)

	stopped chan struct{} // closed when the worker has drained and exited
}

// LaneOption configures a Lane.
type LaneOption func(*Lane)

// WithTokenGenerator overrides the correlation-token generator.
// Tests use FixedTokenGenerator for deterministic logs.
func WithTokenGenerator(g TokenGenerator) LaneOption {
	return func(l *Lane) {
		l.tokens = g
	}
}

// NewLane creates a lane and starts its worker goroutine.
func NewLane(name string, opts ...LaneOption) *Lane {
	l := &Lane{
		name:    name,
		tokens:  UUIDv7Generator{},
		tasks:   make([]task, 0, 16),
		signal:  make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	go l.work()
	return l
}

// Submit enqueues fire-and-forget work. Returns false if the lane is closed.
func (l *Lane) Submit(fn func()) bool {
	return l.enqueue(task{
		op:  l.tokens.Generate(),
		fn:  func(context.Context) { fn() },
		ctx: context.Background(),
	})
}

// Run executes fn on the lane and waits for it to finish.
//
// The context passed to fn is the caller's context marked with this lane,
// so nested Run calls on the same lane execute inline. If the caller's
// context expires before the task is reached, Run returns ctx.Err() - but
// the task still executes when its turn comes (tasks are not cancelable
// once enqueued; skipping one would reorder the lane).
func (l *Lane) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if onLane(ctx, l) {
		return fn(ctx)
	}

	var err error
	t := task{
		op: l.tokens.Generate(),
		fn: func(tctx context.Context) {
			err = fn(tctx)
		},
		ctx:  ctx,
		done: make(chan struct{}),
	}
	if !l.enqueue(t) {
		return ErrClosed
	}

	select {
	case <-t.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the lane. Already-enqueued tasks are drained before the
// worker exits; later Submit/Run calls fail. Blocks until the worker has
// exited. Idempotent.
func (l *Lane) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		<-l.stopped
		return
	}
	l.closed = true
	close(l.signal) // wakes the worker
	l.mu.Unlock()

	<-l.stopped
}

func (l *Lane) enqueue(t task) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return false
	}

	l.tasks = append(l.tasks, t)

	// Non-blocking - buffer of 1 coalesces multiple signals
	select {
	case l.signal <- struct{}{}:
	default:
	}

	return true
}

func (l *Lane) dequeue() (task, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.tasks) == 0 {
		return task{}, false
	}

	t := l.tasks[0]

	// Nil out the slot so the backing array doesn't retain the closure.
	l.tasks[0] = task{}
	if len(l.tasks) == 1 {
		l.tasks = l.tasks[:0]
	} else {
		l.tasks = l.tasks[1:]
	}

	return t, true
}

// work is the lane's single worker loop.
func (l *Lane) work() {
	defer close(l.stopped)

	for {
		t, ok := l.dequeue()
		if ok {
			l.execute(t)
			continue
		}

		l.mu.Lock()
		closed := l.closed
		l.mu.Unlock()
		if closed {
			slog.Debug("lane stopping", "lane", l.name)
			return
		}

		<-l.signal
	}
}

func (l *Lane) execute(t task) {
	slog.Debug("lane task", "lane", l.name, "op", t.op)
	t.fn(withLane(t.ctx, l))
	if t.done != nil {
		close(t.done)
	}
}

func withLane(ctx context.Context, l *Lane) context.Context {
	return context.WithValue(ctx, laneKey, l)
}

func onLane(ctx context.Context, l *Lane) bool {
	v, _ := ctx.Value(laneKey).(*Lane)
	return v == l
}
