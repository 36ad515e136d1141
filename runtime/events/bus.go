// Package events provides a lightweight pub/sub event bus for session observability.
//
// Listeners receive events on a single delivery goroutine, in publish order.
// Publish never blocks the caller: when the queue is full a telemetry event
// is dropped and counted. Notices and status changes are always queued.
package events

import (
	"sync"
	"sync/atomic"
)

const defaultQueueSize = 1024

// Listener is a function that handles events.
type Listener func(*Event)

// EventBus manages event distribution to listeners.
type EventBus struct {
	mu              sync.RWMutex
	listeners       map[EventType][]Listener
	globalListeners []Listener

	qmu     sync.Mutex
	ready   *sync.Cond
	pending []*Event
	size    int
	closed  bool
	done    chan struct{}
	dropped atomic.Int64
}

// NewEventBus creates a new event bus and starts its delivery goroutine.
func NewEventBus() *EventBus {
	return NewEventBusWithQueue(defaultQueueSize)
}

// NewEventBusWithQueue creates a bus whose pending-event queue holds size
// droppable events.
func NewEventBusWithQueue(size int) *EventBus {
	if size <= 0 {
		size = defaultQueueSize
	}
	eb := &EventBus{
		listeners: make(map[EventType][]Listener),
		size:      size,
		done:      make(chan struct{}),
	}
	eb.ready = sync.NewCond(&eb.qmu)
	go eb.run()
	return eb
}
// Subscribe registers a listener for a specific event type.
func (eb *EventBus) Subscribe(eventType EventType, listener Listener) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.listeners[eventType] = append(eb.listeners[eventType], listener)
}

// SubscribeAll registers a listener for all event types.
func (eb *EventBus) SubscribeAll(listener Listener) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.globalListeners = append(eb.globalListeners, listener)
}

// Publish queues an event for delivery. It is a no-op after Close.
func (eb *EventBus) Publish(event *Event) {
	if eb == nil || event == nil {
		return
	}
	eb.qmu.Lock()
	defer eb.qmu.Unlock()
	if eb.closed {
		return
	}
	if len(eb.pending) >= eb.size && !event.Type.retained() {
		eb.dropped.Add(1)
		return
	}
	eb.pending = append(eb.pending, event)
	eb.ready.Signal()
}

// retained event types are never dropped on overflow.
func (t EventType) retained() bool {
	return t == EventNotice || t == EventStatusChanged
}

// Dropped returns how many events were discarded because the queue was full.
func (eb *EventBus) Dropped() int64 {
	return eb.dropped.Load()
}

// Clear removes all listeners (primarily for tests).
func (eb *EventBus) Clear() {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.listeners = make(map[EventType][]Listener)
	eb.globalListeners = nil
}

// Close stops accepting events, delivers everything already queued and
// waits for the delivery goroutine to exit. It is safe to call more than once.
func (eb *EventBus) Close() {
	eb.qmu.Lock()
	eb.closed = true
	eb.ready.Broadcast()
	eb.qmu.Unlock()
	<-eb.done
}

func (eb *EventBus) run() {
	defer close(eb.done)
	for {
		eb.qmu.Lock()
		for len(eb.pending) == 0 && !eb.closed {
			eb.ready.Wait()
		}
		if len(eb.pending) == 0 {
			eb.qmu.Unlock()
			return
		}
		event := eb.pending[0]
		eb.pending[0] = nil
		eb.pending = eb.pending[1:]
		eb.qmu.Unlock()

		eb.deliver(event)
	}
}

func (eb *EventBus) deliver(event *Event) {
	eb.mu.RLock()
	specific := append([]Listener(nil), eb.listeners[event.Type]...)
	global := append([]Listener(nil), eb.globalListeners...)
	eb.mu.RUnlock()

	for _, listener := range specific {
		safeInvoke(listener, event)
	}
	for _, listener := range global {
		safeInvoke(listener, event)
	}
}

func safeInvoke(listener Listener, event *Event) {
	defer func() { _ = recover() }()
	listener(event)
}
