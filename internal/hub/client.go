package hub

import (
	"sync"

	"bkpconnect/backend/internal/metrics"

	"github.com/aidarkhanov/nanoid/v2"
)

const (
	clientIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	clientIDSize     = 12

	// DefaultBuffer is the outbound queue length of a client.
	DefaultBuffer = 256
)

// Client is one connected transport (a websocket or an SSE stream) of a user.
// The transport drains Messages until it is closed.
type Client struct {
	ID     string
	UserID string

	mu     sync.RWMutex
	send   chan []byte
	rooms  map[string]struct{}
	closed bool
}

// NewClient creates a client for userID with an outbound buffer of the given size.
func NewClient(userID string, buffer int) (*Client, error) {
	id, err := nanoid.GenerateString(clientIDAlphabet, clientIDSize)
	if err != nil {
		return nil, err
	}
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	metrics.IncConnections()
	return &Client{
		ID:     id,
		UserID: userID,
		send:   make(chan []byte, buffer),
		rooms:  make(map[string]struct{}),
	}, nil
}

// Messages is closed after the client is disconnected.
func (c *Client) Messages() <-chan []byte {
	return c.send
}

// Rooms lists the rooms the client is subscribed to.
func (c *Client) Rooms() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, 0, len(c.rooms))
	for room := range c.rooms {
		out = append(out, room)
	}
	return out
}

// InRoom reports whether the client is subscribed to room.
func (c *Client) InRoom(room string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.rooms[room]
	return ok
}

func (c *Client) Closed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

func (c *Client) join(room string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.rooms[room] = struct{}{}
	return true
}

func (c *Client) leave(room string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rooms, room)
}

// deliver queues msg without blocking. Sends hold the read lock so close cannot run
// while a send is in flight.
func (c *Client) deliver(msg []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// close marks the client closed, closes its channel once and returns the rooms it left.
func (c *Client) close() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.send)
	metrics.DecConnections()

	rooms := make([]string, 0, len(c.rooms))
	for room := range c.rooms {
		rooms = append(rooms, room)
	}
	c.rooms = map[string]struct{}{}
	return rooms
}
