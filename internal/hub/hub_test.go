package hub

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, user string, buffer int) *Client {
	t.Helper()
	c, err := NewClient(user, buffer)
	require.NoError(t, err)
	return c
}

func drain(c *Client) []Event {
	var out []Event
	for {
		select {
		case msg, ok := <-c.Messages():
			if !ok {
				return out
			}
			var e Event
			if err := json.Unmarshal(msg, &e); err == nil {
				out = append(out, e)
			}
		default:
			return out
		}
	}
}

func TestBroadcastReachesOnlyCurrentSubscribers(t *testing.T) {
	h := NewHub()
	early := newClient(t, "u1", 8)
	late := newClient(t, "u2", 8)

	require.True(t, h.Subscribe("chat:a_b", early))
	assert.Equal(t, 1, h.Broadcast("chat:a_b", Event{Type: "messageReceived", Payload: "first"}))

	require.True(t, h.Subscribe("chat:a_b", late))
	assert.Equal(t, 2, h.Broadcast("chat:a_b", Event{Type: "messageReceived", Payload: "second"}))

	earlyEvents := drain(early)
	lateEvents := drain(late)
	require.Len(t, earlyEvents, 2)
	require.Len(t, lateEvents, 1)
	assert.Equal(t, "second", lateEvents[0].Payload)
}

func TestSubscribeIsIdempotent(t *testing.T) {
	h := NewHub()
	c := newClient(t, "u1", 8)

	h.Subscribe("room", c)
	h.Subscribe("room", c)

	assert.Equal(t, 1, h.Subscribers("room"))
	assert.Equal(t, 1, h.Broadcast("room", Event{Type: "x"}))
	assert.Len(t, drain(c), 1)
}

func TestRoomsAreIsolated(t *testing.T) {
	h := NewHub()
	a := newClient(t, "u1", 8)
	b := newClient(t, "u2", 8)
	h.Subscribe("post:1", a)
	h.Subscribe("post:2", b)

	h.Broadcast("post:1", Event{Type: "commentAdded"})

	assert.Len(t, drain(a), 1)
	assert.Empty(t, drain(b))
}

func TestUnsubscribeAndDisconnect(t *testing.T) {
	h := NewHub()
	c := newClient(t, "u1", 8)
	h.Subscribe("r1", c)
	h.Subscribe("r2", c)

	h.Unsubscribe("r1", c)
	assert.Equal(t, 0, h.Subscribers("r1"))
	assert.False(t, c.InRoom("r1"))

	h.Disconnect(c)
	h.Disconnect(c)
	assert.Equal(t, 0, h.Subscribers("r2"))
	assert.True(t, c.Closed())

	_, open := <-c.Messages()
	assert.False(t, open)

	assert.False(t, h.Subscribe("r3", c))
	assert.Equal(t, 0, h.Subscribers("r3"))
	assert.False(t, h.SendTo(c, Event{Type: "error"}))
}

func TestSlowClientDropsWithoutBlocking(t *testing.T) {
	h := NewHub()
	slow := newClient(t, "slow", 1)
	fast := newClient(t, "fast", 16)
	h.Subscribe("room", slow)
	h.Subscribe("room", fast)

	for i := 0; i < 5; i++ {
		h.Broadcast("room", Event{Type: "tick", Payload: i})
	}

	assert.Len(t, drain(slow), 1)
	assert.Len(t, drain(fast), 5)
}

func TestPerRoomOrderPreserved(t *testing.T) {
	h := NewHub()
	c := newClient(t, "u1", 128)
	h.Subscribe("room", c)

	for i := 0; i < 100; i++ {
		h.Broadcast("room", Event{Type: "tick", Payload: fmt.Sprint(i)})
	}

	events := drain(c)
	require.Len(t, events, 100)
	for i, e := range events {
		assert.Equal(t, fmt.Sprint(i), e.Payload)
	}
}

func TestConcurrentSubscribeBroadcastDisconnect(t *testing.T) {
	h := NewHub()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := NewClient(fmt.Sprint(i), 4)
			if !assert.NoError(t, err) {
				return
			}
			room := fmt.Sprintf("room-%d", i%5)
			h.Subscribe(room, c)
			h.Broadcast(room, Event{Type: "tick"})
			h.Disconnect(c)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 5; i++ {
		assert.Equal(t, 0, h.Subscribers(fmt.Sprintf("room-%d", i)))
	}
}
