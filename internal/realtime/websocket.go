package realtime

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bkpconnect/backend/internal/hub"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024
)

// Server upgrades HTTP requests to websocket sessions and serves SSE streams.
type Server struct {
	hub        *hub.Hub
	dispatcher *Dispatcher
	upgrader   websocket.Upgrader
}

// NewServer creates a Server. allowedOrigins lists the accepted Origin hosts; "*" or an
// empty list accepts any origin.
func NewServer(h *hub.Hub, dispatcher *Dispatcher, allowedOrigins []string) *Server {
	return &Server{
		hub:        h,
		dispatcher: dispatcher,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
	}
}

func checkOrigin(allowed []string) func(*http.Request) bool {
	allowAll := len(allowed) == 0
	hosts := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		o = strings.TrimSpace(o)
		if o == "*" {
			allowAll = true
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			o = u.Host
		}
		hosts[strings.ToLower(o)] = true
	}
	return func(r *http.Request) bool {
		if allowAll {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return hosts[strings.ToLower(u.Host)]
	}
}

// ServeWS upgrades the request and runs the session of userID until the peer goes away.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	client, err := hub.NewClient(userID, hub.DefaultBuffer)
	if err != nil {
		log.Printf("websocket: failed to create client: %v", err)
		conn.Close()
		return
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	go s.writePump(conn, client)
	s.readPump(ctx, conn, client)
}

// readPump pumps frames from the websocket connection to the dispatcher.
func (s *Server) readPump(ctx context.Context, conn *websocket.Conn, client *hub.Client) {
	defer func() {
		s.hub.Disconnect(client)
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket error: %v", err)
			}
			return
		}
		s.dispatcher.Handle(ctx, client, frame)
	}
}

// writePump pumps events from the hub to the websocket connection.
func (s *Server) writePump(conn *websocket.Conn, client *hub.Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Messages():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
