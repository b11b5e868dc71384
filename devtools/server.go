// Package devtools streams dispatched events to websocket clients and lets them
// inject events back into the running engine.
package devtools

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/plus3/rtx/event"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Message is the JSON frame exchanged with clients in both directions.
type Message struct {
	Name    string `json:"name"`
	Origin  string `json:"origin,omitempty"`
	Payload any    `json:"payload"`
}

const (
	sendBuffer    = 256
	inboundBuffer = 256
	writeTimeout  = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		host, _, err := net.SplitHostPort(r.Host)
		return err == nil && (host == "127.0.0.1" || host == "localhost" || host == "::1")
	},
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan Message
}

type injected struct {
	client string
	msg    Message
}

// Server taps an event manager. Websocket traffic runs on its own goroutines; the
// engine side only touches the manager from Pump, called on the frame thread.
type Server struct {
	events *event.Manager
	logger *zap.Logger

	mu      sync.Mutex
	clients map[string]*client
	dropped uint64

	inbound chan injected
}

// NewServer creates a server and starts observing events.
func NewServer(events *event.Manager, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		events:  events,
		logger:  logger,
		clients: make(map[string]*client),
		inbound: make(chan injected, inboundBuffer),
	}
	events.Observe(s.broadcast)
	return s
}

// broadcast queues e for every client. A client whose queue is full misses the event.
func (s *Server) broadcast(e *event.Event) {
	msg := Message{Name: e.Name(), Origin: e.Origin(), Payload: e.Payload().Value()}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.clients {
		select {
		case c.send <- msg:
		default:
			s.dropped++
		}
	}
}

// Pump calls every event injected by clients since the last call and returns how
// many were dispatched. The origin is "devtools:" followed by the client id.
func (s *Server) Pump() int {
	n := 0
	for {
		select {
		case in := <-s.inbound:
			s.events.Call(in.msg.Name, "devtools:"+in.client, event.FromValue(in.msg.Payload))
			n++
		default:
			return n
		}
	}
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// closeClients drops every connection; hijacked connections outlive http.Server.Shutdown.
func (s *Server) closeClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.clients {
		_ = c.conn.Close()
	}
}

// Dropped returns how many outgoing messages were discarded for slow clients.
func (s *Server) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// ServeHTTP upgrades the request and serves one client until it disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &client{id: uuid.NewString(), conn: conn, send: make(chan Message, sendBuffer)}

	s.mu.Lock()
	s.clients[c.id] = c
	s.mu.Unlock()
	s.logger.Info("devtools client connected", zap.String("client", c.id), zap.String("remote", conn.RemoteAddr().String()))

	err = s.serve(r.Context(), c)

	s.mu.Lock()
	delete(s.clients, c.id)
	s.mu.Unlock()
	conn.Close()

	if err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		s.logger.Warn("devtools client failed", zap.String("client", c.id), zap.Error(err))
		return
	}
	s.logger.Info("devtools client disconnected", zap.String("client", c.id))
}

func (s *Server) serve(ctx context.Context, c *client) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			var msg Message
			if err := c.conn.ReadJSON(&msg); err != nil {
				return err
			}
			if msg.Name == "" {
				continue
			}
			select {
			case s.inbound <- injected{client: c.id, msg: msg}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})

	g.Go(func() error {
		for {
			select {
			case msg := <-c.send:
				_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := c.conn.WriteJSON(msg); err != nil {
					_ = c.conn.Close()
					return err
				}
			case <-ctx.Done():
				// Unblocks the reader.
				_ = c.conn.Close()
				return nil
			}
		}
	})

	return g.Wait()
}

// ListenAndServe serves the tap on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/events", s)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("devtools listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		s.closeClients()
		return err
	})
	return g.Wait()
}
