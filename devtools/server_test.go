package devtools_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorilla/websocket"
	"github.com/plus3/rtx/devtools"
	"github.com/plus3/rtx/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// pump calls Pump on the test goroutine until want events were dispatched.
func pump(t *testing.T, s *devtools.Server, want int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	got := 0
	for got < want {
		require.True(t, time.Now().Before(deadline), "pumped %d of %d events", got, want)
		got += s.Pump()
		time.Sleep(time.Millisecond)
	}
}

func TestStreamsDispatchedEvents(t *testing.T) {
	events := event.NewManager(nil)
	s := devtools.NewServer(events, nil)
	srv := httptest.NewServer(s)
	defer srv.Close()

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return s.Clients() == 1 }, 5*time.Second, time.Millisecond)

	events.Call("Ping", "test", event.Number(3))
	events.Call("Moved", "test", event.Vector3(mgl32.Vec3{1, 2, 3}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg devtools.Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, devtools.Message{Name: "Ping", Origin: "test", Payload: 3.0}, msg)

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "Moved", msg.Name)
	assert.Equal(t, []any{1.0, 2.0, 3.0}, msg.Payload)
}

func TestPumpDispatchesInjectedEvents(t *testing.T) {
	events := event.NewManager(nil)
	s := devtools.NewServer(events, nil)
	srv := httptest.NewServer(s)
	defer srv.Close()

	var got []*event.Event
	events.Subscribe("Spawn", "test", func(e *event.Event) { got = append(got, e) })

	conn := dial(t, srv)
	require.NoError(t, conn.WriteJSON(devtools.Message{Name: "Spawn", Payload: []any{1, 2, 3}}))
	require.NoError(t, conn.WriteJSON(devtools.Message{Payload: "nameless is ignored"}))
	require.NoError(t, conn.WriteJSON(devtools.Message{Name: "Spawn", Payload: "crate"}))

	pump(t, s, 2)
	require.Len(t, got, 2)

	vec, ok := got[0].Payload().AsVector3()
	require.True(t, ok)
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, vec)
	assert.True(t, strings.HasPrefix(got[0].Origin(), "devtools:"))
	assert.Equal(t, got[0].Origin(), got[1].Origin())

	name, _ := got[1].Payload().AsString()
	assert.Equal(t, "crate", name)

	// Injected events are streamed back like any other dispatch.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var echo devtools.Message
	require.NoError(t, conn.ReadJSON(&echo))
	assert.Equal(t, "Spawn", echo.Name)

	assert.Zero(t, s.Pump())
}

func TestClientDisconnect(t *testing.T) {
	events := event.NewManager(nil)
	s := devtools.NewServer(events, nil)
	srv := httptest.NewServer(s)
	defer srv.Close()

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return s.Clients() == 1 }, 5*time.Second, time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")))
	require.Eventually(t, func() bool { return s.Clients() == 0 }, 5*time.Second, time.Millisecond)

	assert.False(t, events.Call("Ping", "test", event.Nil()))
}

func TestListenAndServeStopsWithContext(t *testing.T) {
	s := devtools.NewServer(event.NewManager(nil), nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
