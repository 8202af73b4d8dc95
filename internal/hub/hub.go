package hub

import (
	"encoding/json"
	"log"
	"sync"

	"bkpconnect/backend/internal/metrics"

	"github.com/segmentio/fasthash/fnv1a"
)

const shardCount = 32

// Event represents a real-time event sent to clients.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type shard struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

// Hub routes events to the clients subscribed to a room. Rooms are spread over
// shards by the fnv1a hash of their key.
type Hub struct {
	shards [shardCount]*shard
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	h := &Hub{}
	for i := range h.shards {
		h.shards[i] = &shard{rooms: make(map[string]map[*Client]struct{})}
	}
	return h
}

func (h *Hub) shardFor(room string) *shard {
	return h.shards[fnv1a.HashString32(room)%shardCount]
}

// Subscribe adds client to room. Subscribing twice is a no-op. It returns false when
// the client is already disconnected.
func (h *Hub) Subscribe(room string, client *Client) bool {
	if !client.join(room) {
		return false
	}

	s := h.shardFor(room)
	s.mu.Lock()
	if _, ok := s.rooms[room]; !ok {
		s.rooms[room] = make(map[*Client]struct{})
	}
	s.rooms[room][client] = struct{}{}
	s.mu.Unlock()

	// A Disconnect that ran between join and the insert above has already swept the
	// shards, so undo the insert here.
	if client.Closed() {
		h.remove(room, client)
		return false
	}
	return true
}

// Unsubscribe removes client from room.
func (h *Hub) Unsubscribe(room string, client *Client) {
	client.leave(room)
	h.remove(room, client)
}

func (h *Hub) remove(room string, client *Client) {
	s := h.shardFor(room)
	s.mu.Lock()
	defer s.mu.Unlock()

	if clients, ok := s.rooms[room]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(s.rooms, room)
		}
	}
}

// Disconnect closes client's outbound channel and removes it from every room.
func (h *Hub) Disconnect(client *Client) {
	rooms := client.close()
	for _, room := range rooms {
		h.remove(room, client)
	}
}

// Broadcast sends event to every client subscribed to room at this instant and returns
// how many clients accepted it. A client whose buffer is full misses the event.
func (h *Hub) Broadcast(room string, event Event) int {
	messageBytes, err := json.Marshal(event)
	if err != nil {
		log.Printf("hub: failed to encode %s event: %v", event.Type, err)
		return 0
	}

	s := h.shardFor(room)
	s.mu.RLock()
	defer s.mu.RUnlock()

	delivered, dropped := 0, 0
	for client := range s.rooms[room] {
		if client.deliver(messageBytes) {
			delivered++
		} else {
			dropped++
		}
	}
	metrics.AddBroadcastDeliveries(delivered, dropped)
	return delivered
}

// SendTo sends event to a single client, typically an error for the sender.
func (h *Hub) SendTo(client *Client, event Event) bool {
	messageBytes, err := json.Marshal(event)
	if err != nil {
		log.Printf("hub: failed to encode %s event: %v", event.Type, err)
		return false
	}
	return client.deliver(messageBytes)
}

// Subscribers returns the number of clients in room.
func (h *Hub) Subscribers(room string) int {
	s := h.shardFor(room)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms[room])
}
