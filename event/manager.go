// Package event implements the synchronous publish/subscribe dispatcher shared by
// engine subsystems and scripts.
package event

import (
	"sort"

	"go.uber.org/zap"
)

// Event is a named message with an origin tag and a payload. It is immutable once
// dispatched.
type Event struct {
	name    string
	origin  string
	payload Variant
}

// New creates an event.
func New(name, origin string, payload Variant) *Event {
	return &Event{name: name, origin: origin, payload: payload}
}

func (e *Event) Name() string { return e.name }

func (e *Event) Origin() string { return e.origin }

func (e *Event) Payload() Variant { return e.payload }

// SubscriberID identifies whoever registered a handler. A subscriber holds at most
// one handler per event name.
type SubscriberID string

// Handler receives dispatched events.
type Handler func(e *Event)

type subscription struct {
	subscriber SubscriberID
	handler    Handler
}

// Subscription describes one entry of the subscription table.
type Subscription struct {
	Event      string
	Subscriber SubscriberID
}

// Manager fans events out to subscribers synchronously, in subscription order.
// It has no re-entrancy guard: a handler that calls Call recurses immediately.
type Manager struct {
	logger    *zap.Logger
	subs      map[string][]subscription
	deferred  []*Event
	observers []func(e *Event)
	depth     int
	maxDepth  int
}

// NewManager creates an empty event manager.
func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		logger: logger,
		subs:   make(map[string][]subscription),
	}
}

// Subscribe registers handler for name under subscriber. Subscribing again with the
// same subscriber and name replaces the handler and keeps its position.
func (m *Manager) Subscribe(name string, subscriber SubscriberID, handler Handler) {
	current := m.subs[name]
	// Lists are copied on write so a dispatch in progress keeps its snapshot
	next := make([]subscription, len(current), len(current)+1)
	copy(next, current)

	for i := range next {
		if next[i].subscriber == subscriber {
			next[i].handler = handler
			m.subs[name] = next
			return
		}
	}
	m.subs[name] = append(next, subscription{subscriber: subscriber, handler: handler})
}

// Unsubscribe removes subscriber's handler for name.
func (m *Manager) Unsubscribe(subscriber SubscriberID, name string) bool {
	current := m.subs[name]
	for i, sub := range current {
		if sub.subscriber != subscriber {
			continue
		}
		if len(current) == 1 {
			delete(m.subs, name)
			return true
		}
		next := make([]subscription, 0, len(current)-1)
		next = append(next, current[:i]...)
		next = append(next, current[i+1:]...)
		m.subs[name] = next
		return true
	}
	return false
}

// UnsubscribeAll removes every handler registered by subscriber and returns how many were removed.
func (m *Manager) UnsubscribeAll(subscriber SubscriberID) int {
	removed := 0
	for name := range m.subs {
		if m.Unsubscribe(subscriber, name) {
			removed++
		}
	}
	return removed
}

// Call dispatches an event immediately to every current subscriber of name, in
// subscription order, and reports whether any handler ran. Subscriptions changed by a
// handler take effect from the next dispatch.
func (m *Manager) Call(name, origin string, payload Variant) bool {
	return m.dispatch(New(name, origin, payload))
}

// Dispatch sends an already constructed event.
func (m *Manager) Dispatch(e *Event) bool {
	return m.dispatch(e)
}

func (m *Manager) dispatch(e *Event) bool {
	m.depth++
	if m.depth > m.maxDepth {
		m.maxDepth = m.depth
	}
	defer func() { m.depth-- }()

	for _, observe := range m.observers {
		observe(e)
	}

	snapshot := m.subs[e.name]
	if ce := m.logger.Check(zap.DebugLevel, "event"); ce != nil {
		ce.Write(
			zap.String("name", e.name),
			zap.String("origin", e.origin),
			zap.Stringer("payload", e.payload),
			zap.Int("subscribers", len(snapshot)),
			zap.Int("depth", m.depth),
		)
	}

	for _, sub := range snapshot {
		sub.handler(e)
	}
	return len(snapshot) > 0
}

// Defer queues an event for DispatchDeferred.
func (m *Manager) Defer(name, origin string, payload Variant) {
	m.deferred = append(m.deferred, New(name, origin, payload))
}

// DispatchDeferred dispatches the events queued so far, in queue order, and returns
// how many were sent. Events deferred by those handlers wait for the next call.
func (m *Manager) DispatchDeferred() int {
	queue := m.deferred
	m.deferred = nil
	for _, e := range queue {
		m.dispatch(e)
	}
	return len(queue)
}

// Pending returns the number of deferred events waiting for dispatch.
func (m *Manager) Pending() int {
	return len(m.deferred)
}

// Observe registers fn to see every dispatched event before its subscribers do.
func (m *Manager) Observe(fn func(e *Event)) {
	m.observers = append(m.observers, fn)
}

// Depth returns the current dispatch nesting level; 0 outside of any handler.
func (m *Manager) Depth() int { return m.depth }

// MaxDepth returns the deepest nesting observed so far.
func (m *Manager) MaxDepth() int { return m.maxDepth }

// HasSubscribers reports whether anyone listens to name.
func (m *Manager) HasSubscribers(name string) bool {
	return len(m.subs[name]) > 0
}

// Subscriptions returns a snapshot of the table sorted by event name, then subscription order.
func (m *Manager) Subscriptions() []Subscription {
	names := make([]string, 0, len(m.subs))
	for name := range m.subs {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []Subscription
	for _, name := range names {
		for _, sub := range m.subs[name] {
			out = append(out, Subscription{Event: name, Subscriber: sub.subscriber})
		}
	}
	return out
}
