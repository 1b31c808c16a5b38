package engine

import (
	"context"
	"log/slog"
	"sync"

	"skillforge/core"
)

type DispatchMode int

const (
	DispatchSync DispatchMode = iota
	DispatchAsync
)

type subscription struct {
	id int64
	fn func(context.Context, core.Event)
}

// BusOption configures an EventBus.
type BusOption func(*EventBus)

// WithWorkers sets the number of async dispatch goroutines.
func WithWorkers(n int) BusOption {
	return func(e *EventBus) {
		if n > 0 {
			e.asyncWorkers = n
		}
	}
}

// WithQueueSize sets the async queue capacity.
func WithQueueSize(n int) BusOption {
	return func(e *EventBus) {
		if n > 0 {
			e.queueSize = n
		}
	}
}

// WithDropHandler is called for every event dropped because the async
// queue was full or the bus was closed.
func WithDropHandler(fn func(core.Event)) BusOption {
	return func(e *EventBus) { e.onDrop = fn }
}

// EventBus provides thread-safe pub/sub with sync and async dispatch.
// Handlers run outside the subscription lock; a panicking handler is logged
// and does not affect the others.
type EventBus struct {
	mode         DispatchMode
	mu           sync.RWMutex
	subs         map[core.EventType]map[int64]subscription
	nextID       int64
	asyncQueue   chan core.Event
	asyncWorkers int
	queueSize    int
	onDrop       func(core.Event)

	closeMu sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
}

func NewEventBus(mode DispatchMode, opts ...BusOption) *EventBus {
	eb := &EventBus{
		mode:         mode,
		subs:         make(map[core.EventType]map[int64]subscription),
		asyncWorkers: 4,
		queueSize:    2048,
	}
	for _, o := range opts {
		o(eb)
	}
	if mode == DispatchAsync {
		eb.asyncQueue = make(chan core.Event, eb.queueSize)
		eb.startWorkers()
	}
	return eb
}

func (e *EventBus) startWorkers() {
	for i := 0; i < e.asyncWorkers; i++ {
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			for ev := range e.asyncQueue {
				e.dispatchSync(context.Background(), ev)
			}
		}()
	}
}

// Close stops accepting events and waits for queued ones to be dispatched.
func (e *EventBus) Close() {
	e.closeMu.Lock()
	if e.closed {
		e.closeMu.Unlock()
		return
	}
	e.closed = true
	if e.asyncQueue != nil {
		close(e.asyncQueue)
	}
	e.closeMu.Unlock()
	e.wg.Wait()
}

// Subscribe registers a handler for an event type. Returns unsubscribe func.
func (e *EventBus) Subscribe(typ core.EventType, handler func(context.Context, core.Event)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	id := e.nextID
	if e.subs[typ] == nil {
		e.subs[typ] = make(map[int64]subscription)
	}
	e.subs[typ][id] = subscription{id: id, fn: handler}
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if m := e.subs[typ]; m != nil {
			delete(m, id)
		}
	}
}

// SubscribeAll registers handler for every engine event type.
func (e *EventBus) SubscribeAll(handler func(context.Context, core.Event)) func() {
	unsubs := make([]func(), 0, len(core.AllEventTypes))
	for _, typ := range core.AllEventTypes {
		unsubs = append(unsubs, e.Subscribe(typ, handler))
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// Publish sends an event to subscribers.
func (e *EventBus) Publish(ctx context.Context, ev core.Event) {
	if e.mode == DispatchAsync {
		e.closeMu.RLock()
		defer e.closeMu.RUnlock()
		if e.closed {
			e.drop(ev)
			return
		}
		select {
		case e.asyncQueue <- ev:
		default:
			e.drop(ev)
		}
		return
	}
	e.dispatchSync(ctx, ev)
}

func (e *EventBus) drop(ev core.Event) {
	slog.Warn("event dropped", "type", ev.Type, "user_id", ev.UserID)
	if e.onDrop != nil {
		e.onDrop(ev)
	}
}

func (e *EventBus) dispatchSync(ctx context.Context, ev core.Event) {
	e.mu.RLock()
	subs := e.subs[ev.Type]
	handlers := make([]func(context.Context, core.Event), 0, len(subs))
	for _, s := range subs {
		handlers = append(handlers, s.fn)
	}
	e.mu.RUnlock()
	for _, h := range handlers {
		e.invoke(ctx, h, ev)
	}
}

func (e *EventBus) invoke(ctx context.Context, h func(context.Context, core.Event), ev core.Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event handler panicked", "type", ev.Type, "panic", r)
		}
	}()
	h(ctx, ev)
}
