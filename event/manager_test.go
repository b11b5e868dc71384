package event_test

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/plus3/rtx/ecs"
	"github.com/plus3/rtx/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestCallInvokesSubscribersInOrder(t *testing.T) {
	m := event.NewManager(nil)

	var calls []string
	m.Subscribe("E", "h1", func(*event.Event) { calls = append(calls, "H1") })
	m.Subscribe("E", "h2", func(*event.Event) { calls = append(calls, "H2") })
	m.Subscribe("E", "h3", func(*event.Event) { calls = append(calls, "H3") })

	handled := m.Call("E", "test", event.Number(1))

	assert.True(t, handled)
	assert.Equal(t, []string{"H1", "H2", "H3"}, calls)
}

func TestCallDeliversEvent(t *testing.T) {
	m := event.NewManager(nil)

	var got *event.Event
	m.Subscribe("Hit", "sub", func(e *event.Event) { got = e })
	m.Call("Hit", "player", event.Entity(ecs.NewEntityId(3, 1)))

	require.NotNil(t, got)
	assert.Equal(t, "Hit", got.Name())
	assert.Equal(t, "player", got.Origin())
	id, ok := got.Payload().AsEntity()
	require.True(t, ok)
	assert.Equal(t, ecs.NewEntityId(3, 1), id)
}

func TestCallWithoutSubscribers(t *testing.T) {
	m := event.NewManager(nil)
	assert.False(t, m.Call("Nobody", "test", event.Nil()))
}

func TestResubscribeReplacesInPlace(t *testing.T) {
	m := event.NewManager(nil)

	var calls []string
	m.Subscribe("E", "a", func(*event.Event) { calls = append(calls, "a1") })
	m.Subscribe("E", "b", func(*event.Event) { calls = append(calls, "b") })
	m.Subscribe("E", "a", func(*event.Event) { calls = append(calls, "a2") })

	m.Call("E", "test", event.Nil())

	assert.Equal(t, []string{"a2", "b"}, calls)
	assert.Len(t, m.Subscriptions(), 2)
}

func TestUnsubscribe(t *testing.T) {
	m := event.NewManager(nil)

	var calls []string
	m.Subscribe("E", "a", func(*event.Event) { calls = append(calls, "a") })
	m.Subscribe("E", "b", func(*event.Event) { calls = append(calls, "b") })
	m.Subscribe("F", "a", func(*event.Event) { calls = append(calls, "fa") })

	assert.True(t, m.Unsubscribe("a", "E"))
	assert.False(t, m.Unsubscribe("a", "E"))

	m.Call("E", "test", event.Nil())
	m.Call("F", "test", event.Nil())
	assert.Equal(t, []string{"b", "fa"}, calls)

	assert.Equal(t, 1, m.UnsubscribeAll("a"))
	assert.False(t, m.HasSubscribers("F"))
	assert.True(t, m.HasSubscribers("E"))
}

func TestSubscriptionChangesDuringDispatchApplyNextCall(t *testing.T) {
	m := event.NewManager(nil)

	var calls []string
	m.Subscribe("E", "a", func(*event.Event) {
		calls = append(calls, "a")
		m.Unsubscribe("b", "E")
		m.Subscribe("E", "c", func(*event.Event) { calls = append(calls, "c") })
	})
	m.Subscribe("E", "b", func(*event.Event) { calls = append(calls, "b") })

	m.Call("E", "test", event.Nil())
	assert.Equal(t, []string{"a", "b"}, calls)

	calls = nil
	m.Call("E", "test", event.Nil())
	assert.Equal(t, []string{"a", "c"}, calls)
}

// Re-entrant calls recurse immediately; only the handler's own bookkeeping stops them.
func TestReentrantCallRecursesWithoutGuard(t *testing.T) {
	m := event.NewManager(nil)

	const limit = 64
	count := 0
	var depths []int
	m.Subscribe("Ping", "self", func(e *event.Event) {
		count++
		depths = append(depths, m.Depth())
		if count < limit {
			m.Call("Ping", "self", event.Number(float64(count)))
		}
	})

	m.Call("Ping", "test", event.Nil())

	assert.Equal(t, limit, count)
	assert.Equal(t, limit, m.MaxDepth())
	assert.Equal(t, 1, depths[0])
	assert.Equal(t, limit, depths[limit-1])
	assert.Equal(t, 0, m.Depth())
}

func TestDeferredDispatch(t *testing.T) {
	m := event.NewManager(nil)

	var calls []string
	m.Subscribe("Later", "sub", func(e *event.Event) {
		s, _ := e.Payload().AsString()
		calls = append(calls, s)
		m.Defer("Later", "sub", event.String("requeued"))
	})

	m.Defer("Later", "test", event.String("first"))
	m.Defer("Later", "test", event.String("second"))
	assert.Empty(t, calls)
	assert.Equal(t, 2, m.Pending())

	assert.Equal(t, 2, m.DispatchDeferred())
	assert.Equal(t, []string{"first", "second"}, calls)
	assert.Equal(t, 2, m.Pending())
}

func TestObserveSeesEveryEvent(t *testing.T) {
	m := event.NewManager(nil)

	var seen []string
	m.Observe(func(e *event.Event) { seen = append(seen, e.Name()) })
	m.Call("A", "test", event.Nil())
	m.Call("B", "test", event.Nil())

	assert.Equal(t, []string{"A", "B"}, seen)
}

func TestSubscriptionsSnapshot(t *testing.T) {
	m := event.NewManager(nil)
	noop := func(*event.Event) {}
	m.Subscribe("B", "x", noop)
	m.Subscribe("A", "y", noop)
	m.Subscribe("A", "x", noop)

	assert.Equal(t, []event.Subscription{
		{Event: "A", Subscriber: "y"},
		{Event: "A", Subscriber: "x"},
		{Event: "B", Subscriber: "x"},
	}, m.Subscriptions())
}

func TestCallLogsAtDebug(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	m := event.NewManager(zap.New(core))

	m.Call("Boom", "tnt", event.Vector3(mgl32.Vec3{1, 2, 3}))

	entries := logs.FilterMessage("event").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "Boom", fields["name"])
	assert.Equal(t, "tnt", fields["origin"])
	assert.Equal(t, "(1, 2, 3)", fields["payload"])
}
