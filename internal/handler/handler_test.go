package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bkpconnect/backend/internal/account"
	"bkpconnect/backend/internal/blob"
	"bkpconnect/backend/internal/hub"
	"bkpconnect/backend/internal/models"
	"bkpconnect/backend/internal/post"
	"bkpconnect/backend/internal/profile"
	"bkpconnect/backend/internal/realtime"
	"bkpconnect/backend/internal/relationship"
	"bkpconnect/backend/internal/roomlog"
	"bkpconnect/backend/internal/store/memstore"
	"bkpconnect/backend/internal/suggestion"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "handler-test-secret"

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
	hub    *hub.Hub
}

func newTestServer(t *testing.T) *testServer {
	s := memstore.New()
	dir := profile.NewDirectory(s, nil)

	disk, err := blob.NewDiskStore(t.TempDir(), "/uploads")
	require.NoError(t, err)
	gateway := blob.NewGateway(disk, 1024*1024, time.Minute)

	h := hub.NewHub()
	messages := roomlog.NewMessageLog(s, dir, nil)
	comments := roomlog.NewCommentLog(s, dir, nil)
	pipeline := realtime.NewPipeline(h, messages, comments)
	ledger := suggestion.NewLedger(s, s, dir)

	handler := New(Services{
		Accounts:    account.NewService(s, ledger, dir, gateway, nil, testSecret, time.Hour),
		Relations:   relationship.NewService(s, s, dir, nil),
		Suggestions: ledger,
		Posts:       post.NewService(s, s, s, dir, gateway),
		Messages:    messages,
		Comments:    comments,
		Pipeline:    pipeline,
		Realtime:    realtime.NewServer(h, realtime.NewDispatcher(pipeline), nil),
		Uploads:     gateway,
	})

	router := gin.New()
	handler.RegisterRoutes(router, testSecret)
	return &testServer{t: t, router: router, hub: h}
}

func (ts *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	ts.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(ts.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) upload(path, token, filename string, data []byte, fields map[string]string) *httptest.ResponseRecorder {
	ts.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(ts.t, err)
	_, err = fw.Write(data)
	require.NoError(ts.t, err)
	for k, v := range fields {
		require.NoError(ts.t, mw.WriteField(k, v))
	}
	require.NoError(ts.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) signup(username string) account.Session {
	ts.t.Helper()
	w := ts.do(http.MethodPost, "/auth/signup", "", SignupInput{Username: username, Password: "password123"})
	require.Equal(ts.t, http.StatusCreated, w.Code, w.Body.String())
	var s account.Session
	decode(ts.t, w, &s)
	return s
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dst), w.Body.String())
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var e ErrorResponse
	decode(t, w, &e)
	return e.Code
}

func TestSignupLogin(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signup("alice")
	assert.NotEmpty(t, alice.Token)

	w := ts.do(http.MethodPost, "/auth/signup", "", SignupInput{Username: "alice", Password: "password123"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "USERNAME_TAKEN", errorCode(t, w))

	w = ts.do(http.MethodPost, "/auth/signup", "", map[string]string{"username": "al"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_INPUT", errorCode(t, w))

	w = ts.do(http.MethodPost, "/auth/login", "", LoginInput{Username: "alice", Password: "password123"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(http.MethodPost, "/auth/login", "", LoginInput{Username: "alice", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, w))

	assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodGet, "/api/friend", "", nil).Code)

	w = ts.do(http.MethodPost, "/auth/signup", "", SignupInput{Username: "bob", Password: strings.Repeat("x", 73)})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "PASSWORD_TOO_LONG", errorCode(t, w))
}

func TestPaginateHugePage(t *testing.T) {
	ts := newTestServer(t)
	a := ts.signup("anna")
	ts.signup("bert")

	w := ts.do(http.MethodGet, "/api/sentreq?page=9223372036854775807&limit=100", a.Token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var sugg PaginatedResponse[models.Suggestion]
	decode(t, w, &sugg)
	assert.Empty(t, sugg.Data)
	assert.Equal(t, maxPage, sugg.Meta.CurrentPage)
	assert.False(t, sugg.Meta.HasMore)
}

// Signup puts users in each other's suggestions; a request hides them from each other,
// and accepting makes them friends on both sides.
func TestSuggestRequestAcceptScenario(t *testing.T) {
	ts := newTestServer(t)
	a := ts.signup("anna")
	b := ts.signup("bert")

	var sugg PaginatedResponse[models.Suggestion]
	decode(t, ts.do(http.MethodGet, "/api/sentreq", a.Token, nil), &sugg)
	require.Len(t, sugg.Data, 1)
	assert.Equal(t, b.User.ID, sugg.Data[0].ID)

	w := ts.do(http.MethodPost, "/api/incomingreq", a.Token, UserIDInput{UserID: b.User.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var sent SendRequestResponse
	decode(t, w, &sent)
	assert.Equal(t, models.SendStatusSent, sent.Status)

	decode(t, ts.do(http.MethodGet, "/api/sentreq", a.Token, nil), &sugg)
	assert.Empty(t, sugg.Data)
	assert.False(t, sugg.Meta.HasMore)
	decode(t, ts.do(http.MethodGet, "/api/sentreq", b.Token, nil), &sugg)
	assert.Empty(t, sugg.Data)

	var incoming PaginatedResponse[models.Profile]
	decode(t, ts.do(http.MethodGet, "/api/incomingreq", b.Token, nil), &incoming)
	require.Len(t, incoming.Data, 1)
	assert.Equal(t, "anna", incoming.Data[0].Username)

	w = ts.do(http.MethodPost, "/api/friend", b.Token, UserIDInput{UserID: a.User.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	for _, s := range []account.Session{a, b} {
		var friends PaginatedResponse[models.Profile]
		decode(t, ts.do(http.MethodGet, "/api/friend", s.Token, nil), &friends)
		require.Len(t, friends.Data, 1)
		assert.NotEqual(t, s.User.ID, friends.Data[0].ID)
	}
	decode(t, ts.do(http.MethodGet, "/api/incomingreq", b.Token, nil), &incoming)
	assert.Empty(t, incoming.Data)

	var prof PublicUserResponse
	decode(t, ts.do(http.MethodGet, "/api/userprofile?userId="+b.User.ID, a.Token, nil), &prof)
	require.NotNil(t, prof.MeToRelation)
	assert.True(t, prof.MeToRelation.Friend)
	assert.True(t, prof.RelationToMe.Friend)

	decode(t, ts.do(http.MethodGet, "/api/userprofile?userId="+b.User.ID, "", nil), &prof)
	assert.Nil(t, prof.MeToRelation)
}

func TestRelationErrorCodes(t *testing.T) {
	ts := newTestServer(t)
	a := ts.signup("anna")
	b := ts.signup("bert")

	w := ts.do(http.MethodPost, "/api/incomingreq", a.Token, UserIDInput{UserID: a.User.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "SELF_REQUEST", errorCode(t, w))

	w = ts.do(http.MethodPost, "/api/friend", b.Token, UserIDInput{UserID: a.User.ID})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NO_PENDING_REQUEST", errorCode(t, w))

	w = ts.do(http.MethodPost, "/api/incomingreq", a.Token, UserIDInput{UserID: "ghost"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(http.MethodPost, "/api/incomingreq", a.Token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	require.Equal(t, http.StatusOK, ts.do(http.MethodPost, "/api/delsentreq", a.Token, UserIDInput{UserID: b.User.ID}).Code)
	var dismissed []string
	decode(t, ts.do(http.MethodGet, "/api/user/delsentreq", b.Token, nil), &dismissed)
	assert.Equal(t, []string{a.User.ID}, dismissed)

	var rec ReconcileResponse
	decode(t, ts.do(http.MethodPost, "/api/friend/reconcile", a.Token, nil), &rec)
	assert.Zero(t, rec.Repaired)
}

func TestPostsAndLikes(t *testing.T) {
	ts := newTestServer(t)
	a := ts.signup("anna")

	w := ts.upload("/api/posts", a.Token, "pic.png", pngBytes, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var p models.PostView
	decode(t, w, &p)
	assert.Equal(t, "image/png", p.FileType)

	w = ts.upload("/api/posts", a.Token, "run.bin", []byte("\x7fELF\x02\x01\x01\x00"), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "UNSUPPORTED_FILE_TYPE", errorCode(t, w))

	var feed PaginatedResponse[models.PostView]
	decode(t, ts.do(http.MethodGet, "/api/posts?type=image", a.Token, nil), &feed)
	require.Len(t, feed.Data, 1)
	decode(t, ts.do(http.MethodGet, "/api/posts?type=video", a.Token, nil), &feed)
	assert.Empty(t, feed.Data)

	var state post.LikeState
	decode(t, ts.do(http.MethodGet, "/api/check?postId="+p.ID, a.Token, nil), &state)
	assert.Equal(t, post.LikeState{}, state)

	decode(t, ts.do(http.MethodPost, "/api/like", a.Token, PostIDInput{PostID: p.ID}), &state)
	assert.Equal(t, post.LikeState{Liked: true, Likes: 1}, state)

	var liked PaginatedResponse[models.PostView]
	decode(t, ts.do(http.MethodGet, "/api/like", a.Token, nil), &liked)
	assert.Len(t, liked.Data, 1)

	decode(t, ts.do(http.MethodDelete, "/api/like?postId="+p.ID, a.Token, nil), &state)
	assert.Equal(t, post.LikeState{}, state)

	w = ts.do(http.MethodPost, "/api/like", a.Token, PostIDInput{PostID: "missing"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(http.MethodPost, "/api/posts/"+p.ID+"/comments", a.Token, CommentInput{Text: "first"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = ts.do(http.MethodPost, "/api/posts/"+p.ID+"/comments", a.Token, CommentInput{Text: "  "})
	assert.Equal(t, "EMPTY_COMMENT", errorCode(t, w))

	var comments PaginatedResponse[models.CommentView]
	decode(t, ts.do(http.MethodGet, "/api/posts/"+p.ID+"/comments", a.Token, nil), &comments)
	require.Len(t, comments.Data, 1)
	assert.Equal(t, "anna", comments.Data[0].Author.Username)

	var got models.PostView
	decode(t, ts.do(http.MethodGet, "/api/posts/"+p.ID, a.Token, nil), &got)
	assert.Len(t, got.Comments, 1)
}

func TestChat(t *testing.T) {
	ts := newTestServer(t)
	a := ts.signup("anna")
	b := ts.signup("bert")
	c := ts.signup("carl")

	var rk RoomKeyResponse
	decode(t, ts.do(http.MethodGet, "/api/chat/with/"+b.User.ID, a.Token, nil), &rk)
	assert.Equal(t, roomlog.RoomKey(a.User.ID, b.User.ID), rk.RoomKey)

	var chat ChatResponse
	decode(t, ts.do(http.MethodGet, "/api/chat/"+rk.RoomKey, b.Token, nil), &chat)
	assert.Equal(t, rk.RoomKey, chat.Room.Key)
	assert.Empty(t, chat.Messages)

	w := ts.do(http.MethodPost, "/api/chat/"+rk.RoomKey, a.Token, roomlog.NewMessage{Text: "hi"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = ts.upload("/api/chat/"+rk.RoomKey+"/upload", b.Token, "pic.png", pngBytes, map[string]string{"text": "look"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	decode(t, ts.do(http.MethodGet, "/api/chat/"+rk.RoomKey, a.Token, nil), &chat)
	require.Len(t, chat.Messages, 2)
	assert.Equal(t, "hi", chat.Messages[0].Text)
	assert.Equal(t, "anna", chat.Messages[0].Author.Username)
	assert.Equal(t, "image/png", chat.Messages[1].FileType)

	w = ts.do(http.MethodGet, "/api/chat/"+rk.RoomKey, c.Token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(http.MethodPost, "/api/chat/"+rk.RoomKey, a.Token, roomlog.NewMessage{})
	assert.Equal(t, "EMPTY_MESSAGE", errorCode(t, w))

	var up blob.Upload
	w = ts.upload("/api/chat/upload", a.Token, "pic.png", pngBytes, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &up)
	assert.Equal(t, "image/png", up.ContentType)
}

func TestUpdateAvatar(t *testing.T) {
	ts := newTestServer(t)
	a := ts.signup("anna")

	w := ts.upload("/api/user", a.Token, "me.png", pngBytes, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var prof PublicUserResponse
	decode(t, ts.do(http.MethodGet, "/api/userprofile", a.Token, nil), &prof)
	assert.Contains(t, prof.ProfilePic, "/uploads/avatars/")

	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodGet, "/api/userprofile", "", nil).Code)
}
