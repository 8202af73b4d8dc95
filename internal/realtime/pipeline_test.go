package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bkpconnect/backend/internal/hub"
	"bkpconnect/backend/internal/models"
	"bkpconnect/backend/internal/profile"
	"bkpconnect/backend/internal/roomlog"
	"bkpconnect/backend/internal/store/memstore"
	"bkpconnect/backend/internal/store/storetest"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type received struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type fixture struct {
	store      *memstore.Store
	hub        *hub.Hub
	pipeline   *Pipeline
	dispatcher *Dispatcher
	u1, u2, u3 *models.User
}

func newFixture(t *testing.T) *fixture {
	s := memstore.New()
	dir := profile.NewDirectory(s, nil)
	h := hub.NewHub()
	p := NewPipeline(h, roomlog.NewMessageLog(s, dir, nil), roomlog.NewCommentLog(s, dir, nil))
	return &fixture{
		store:      s,
		hub:        h,
		pipeline:   p,
		dispatcher: NewDispatcher(p),
		u1:         storetest.NewUser(t, s, "u1"),
		u2:         storetest.NewUser(t, s, "u2"),
		u3:         storetest.NewUser(t, s, "u3"),
	}
}

func (f *fixture) client(t *testing.T, u *models.User) *hub.Client {
	t.Helper()
	c, err := hub.NewClient(u.ID, 16)
	require.NoError(t, err)
	t.Cleanup(func() { f.hub.Disconnect(c) })
	return c
}

func next(t *testing.T, c *hub.Client) received {
	t.Helper()
	select {
	case msg := <-c.Messages():
		var r received
		require.NoError(t, json.Unmarshal(msg, &r))
		return r
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
	return received{}
}

func assertNothing(t *testing.T, c *hub.Client) {
	t.Helper()
	select {
	case msg := <-c.Messages():
		t.Fatalf("unexpected event: %s", msg)
	default:
	}
}

func TestTwoClientsSeeTheSameMessage(t *testing.T) {
	f := newFixture(t)
	key := roomlog.RoomKey(f.u1.ID, f.u2.ID)
	c1, c2 := f.client(t, f.u1), f.client(t, f.u2)
	require.NoError(t, f.pipeline.JoinChat(c1, key))
	require.NoError(t, f.pipeline.JoinChat(c2, key))

	_, err := f.pipeline.SendMessage(context.Background(), key, f.u1.ID, roomlog.NewMessage{Text: "hi"})
	require.NoError(t, err)

	for _, c := range []*hub.Client{c1, c2} {
		ev := next(t, c)
		assert.Equal(t, EventMessageReceived, ev.Type)
		var p MessageReceivedPayload
		require.NoError(t, json.Unmarshal(ev.Payload, &p))
		assert.Equal(t, key, p.RoomKey)
		assert.Equal(t, "hi", p.Message.Text)
		assert.Equal(t, f.u1.ID, p.Message.Author.ID)
	}

	history, err := roomlog.NewMessageLog(f.store, profile.NewDirectory(f.store, nil), nil).History(context.Background(), key, nil)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "hi", history[0].Text)
}

func TestFailedAppendIsNotBroadcast(t *testing.T) {
	f := newFixture(t)
	key := roomlog.RoomKey(f.u1.ID, f.u2.ID)
	c1 := f.client(t, f.u1)
	require.NoError(t, f.pipeline.JoinChat(c1, key))

	_, err := f.pipeline.SendMessage(context.Background(), key, f.u1.ID, roomlog.NewMessage{Text: "   "})
	require.Error(t, err)
	assertNothing(t, c1)
}

func TestLateSubscriberMissesEarlierEvents(t *testing.T) {
	f := newFixture(t)
	key := roomlog.RoomKey(f.u1.ID, f.u2.ID)
	_, err := f.pipeline.SendMessage(context.Background(), key, f.u1.ID, roomlog.NewMessage{Text: "early"})
	require.NoError(t, err)

	late := f.client(t, f.u2)
	require.NoError(t, f.pipeline.JoinChat(late, key))
	assertNothing(t, late)
}

func TestJoinChatRejectsOutsiders(t *testing.T) {
	f := newFixture(t)
	key := roomlog.RoomKey(f.u1.ID, f.u2.ID)
	outsider := f.client(t, f.u3)

	f.dispatcher.Handle(context.Background(), outsider, []byte(`{"type":"joinRoom","payload":{"roomKey":"`+key+`"}}`))
	ev := next(t, outsider)
	assert.Equal(t, EventError, ev.Type)
	var p ErrorPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &p))
	assert.Equal(t, EventJoinRoom, p.Event)
	assert.Equal(t, "FORBIDDEN", p.Code)
	assert.Zero(t, f.hub.Subscribers(ChatTopic(key)))
}

func TestDispatcherComments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.CreatePost(ctx, &models.Post{ID: "p1", URL: "u", FileType: "image/png", CreatedBy: f.u1.ID, CreatedAt: time.Now()}))
	watcher, commenter := f.client(t, f.u1), f.client(t, f.u2)

	f.dispatcher.Handle(ctx, watcher, []byte(`{"type":"joinPostRoom","payload":{"postId":"p1"}}`))
	f.dispatcher.Handle(ctx, commenter, []byte(`{"type":"newComment","payload":{"postId":"p1","text":"nice"}}`))

	ev := next(t, watcher)
	assert.Equal(t, EventCommentAdded, ev.Type)
	var p CommentAddedPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &p))
	assert.Equal(t, "nice", p.Comment.Text)
	assert.Equal(t, f.u2.Username, p.Comment.Author.Username)
	assertNothing(t, commenter)

	f.dispatcher.Handle(ctx, commenter, []byte(`{"type":"newComment","payload":{"postId":"p1","userId":"`+f.u1.ID+`","text":"spoof"}}`))
	ev = next(t, commenter)
	assert.Equal(t, EventError, ev.Type)
	assert.Contains(t, string(ev.Payload), "USER_MISMATCH")
	assertNothing(t, watcher)

	comments, err := f.store.Comments(ctx, "p1", nil)
	require.NoError(t, err)
	assert.Len(t, comments, 1)
}

func TestDispatcherBadFrames(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, f.u1)
	ctx := context.Background()

	f.dispatcher.Handle(ctx, c, []byte(`not json`))
	assert.Contains(t, string(next(t, c).Payload), "INVALID_FRAME")

	f.dispatcher.Handle(ctx, c, []byte(`{"type":"joinRoom","payload":{}}`))
	assert.Contains(t, string(next(t, c).Payload), "INVALID_PAYLOAD")

	f.dispatcher.Handle(ctx, c, []byte(`{"type":"dance"}`))
	assert.Contains(t, string(next(t, c).Payload), "UNKNOWN_EVENT")

	f.dispatcher.Handle(ctx, c, []byte(`{"type":"ping"}`))
	assert.Equal(t, EventPong, next(t, c).Type)
}

func TestWebSocketSession(t *testing.T) {
	f := newFixture(t)
	srv := NewServer(f.hub, f.dispatcher, nil)
	users := map[string]string{"one": f.u1.ID, "two": f.u2.ID}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		srv.ServeWS(w, r, users[r.URL.Query().Get("as")])
	}))
	defer ts.Close()

	dial := func(as string) *websocket.Conn {
		conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"?as="+as, nil)
		require.NoError(t, err)
		t.Cleanup(func() { conn.Close() })
		return conn
	}
	read := func(conn *websocket.Conn) received {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var r received
		require.NoError(t, conn.ReadJSON(&r))
		return r
	}

	key := roomlog.RoomKey(f.u1.ID, f.u2.ID)
	one, two := dial("one"), dial("two")
	for _, conn := range []*websocket.Conn{one, two} {
		require.NoError(t, conn.WriteJSON(map[string]any{"type": "joinRoom", "payload": map[string]string{"roomKey": key}}))
		require.NoError(t, conn.WriteJSON(map[string]any{"type": "ping"}))
		assert.Equal(t, EventPong, read(conn).Type)
	}

	require.NoError(t, one.WriteJSON(map[string]any{
		"type":    "sendMessage",
		"payload": map[string]any{"roomKey": key, "message": map[string]string{"text": "hi"}},
	}))
	for _, conn := range []*websocket.Conn{one, two} {
		ev := read(conn)
		require.Equal(t, EventMessageReceived, ev.Type)
		var p MessageReceivedPayload
		require.NoError(t, json.Unmarshal(ev.Payload, &p))
		assert.Equal(t, "hi", p.Message.Text)
		assert.Equal(t, f.u1.ID, p.Message.Author.ID)
	}
}

func TestCheckOrigin(t *testing.T) {
	check := checkOrigin([]string{"https://app.example.com"})
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	req.Header.Set("Origin", "https://app.example.com")
	assert.True(t, check(req))
	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, check(req))
	assert.True(t, checkOrigin(nil)(req))
}
