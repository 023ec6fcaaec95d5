package events

import (
	"context"
	"log/slog"
	"sync"
)

// Listener is invoked once per emission it is registered for. Listeners run
// concurrently with each other and may be invoked while their own
// Subscription is being closed.
type Listener func(ctx context.Context, e Event)

// Emitter is a fan-out event bus. Listeners live in a slot-reuse table: a
// token is the index of its slot and is handed out again after removal, so a
// token is only meaningful while its Subscription is open.
type Emitter struct {
	logger *slog.Logger

	mu    sync.Mutex
	slots []Listener
	free  []int
	count int
}

// NewEmitter creates an empty event bus.
func NewEmitter(logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{logger: logger}
}

// AddListener registers l and returns the Subscription that owns its token.
// It never waits for in-flight emissions.
func (em *Emitter) AddListener(l Listener) *Subscription {
	em.mu.Lock()
	var token int
	if n := len(em.free); n > 0 {
		token = em.free[n-1]
		em.free = em.free[:n-1]
		em.slots[token] = l
	} else {
		token = len(em.slots)
		em.slots = append(em.slots, l)
	}
	em.count++
	em.mu.Unlock()

	return &Subscription{token: token, emitter: em}
}

// remove frees the slot for token. Unknown or already free tokens leave the
// table untouched.
func (em *Emitter) remove(token int) {
	em.mu.Lock()
	defer em.mu.Unlock()

	if token < 0 || token >= len(em.slots) || em.slots[token] == nil {
		return
	}
	em.slots[token] = nil
	em.free = append(em.free, token)
	em.count--
}

// Len returns the number of registered listeners.
func (em *Emitter) Len() int {
	em.mu.Lock()
	defer em.mu.Unlock()
	return em.count
}

// Emit delivers e to every listener registered when the call takes its
// snapshot and returns once all of them have returned. The registry lock is
// released before any listener runs.
func (em *Emitter) Emit(ctx context.Context, e Event) {
	em.mu.Lock()
	snapshot := make([]Listener, 0, em.count)
	for _, l := range em.slots {
		if l != nil {
			snapshot = append(snapshot, l)
		}
	}
	em.mu.Unlock()

	em.logger.Debug("Emitting event", "kind", e.Kind(), "event", e, "listeners", len(snapshot))

	switch len(snapshot) {
	case 0:
		return
	case 1:
		em.invoke(ctx, snapshot[0], e)
		return
	}

	var wg sync.WaitGroup
	for _, l := range snapshot {
		wg.Go(func() {
			em.invoke(ctx, l, e)
		})
	}
	wg.Wait()
}

func (em *Emitter) invoke(ctx context.Context, l Listener, e Event) {
	defer func() {
		if r := recover(); r != nil {
			em.logger.Error("panic in event listener", "kind", e.Kind(), "recover", r)
		}
	}()
	l(ctx, e)
}

// Subscription owns one listener token. Close removes the listener exactly
// once; it is safe to call from inside a listener of the same Emitter.
type Subscription struct {
	token   int
	emitter *Emitter
	once    sync.Once
}

// Token returns the slot index backing this subscription.
func (s *Subscription) Token() int { return s.token }

// Close unregisters the listener. Subsequent calls are no-ops.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.emitter.remove(s.token)
	})
}
