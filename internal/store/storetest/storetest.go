// Package storetest is a conformance suite that every store.Store backend must pass.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"bkpconnect/backend/internal/models"
	"bkpconnect/backend/internal/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty store. Cleanup is registered on t by the factory.
type Factory func(t *testing.T) store.Store

// Run executes the suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("Relations", func(t *testing.T) { testRelations(t, newStore(t)) })
	t.Run("Likes", func(t *testing.T) { testLikes(t, newStore(t)) })
	t.Run("Posts", func(t *testing.T) { testPosts(t, newStore(t)) })
	t.Run("Rooms", func(t *testing.T) { testRooms(t, newStore(t)) })
	t.Run("Suggestions", func(t *testing.T) { testSuggestions(t, newStore(t)) })
}

// NewUser creates and stores a user with a unique username.
func NewUser(t *testing.T, s store.Store, name string) *models.User {
	t.Helper()
	u := &models.User{
		ID:           uuid.NewString(),
		Username:     fmt.Sprintf("%s-%s", name, uuid.NewString()[:8]),
		PasswordHash: "x",
		ProfilePic:   models.DefaultProfilePic,
		CreatedAt:    time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func testUsers(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := NewUser(t, s, "alice")

	got, err := s.UserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Username, got.Username)

	got, err = s.UserByUsername(ctx, u.Username)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	dup := *u
	dup.ID = uuid.NewString()
	assert.ErrorIs(t, s.CreateUser(ctx, &dup), store.ErrConflict)

	_, err = s.UserByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.SetProfilePic(ctx, u.ID, "http://cdn/a.png"))
	profiles, err := s.Profiles(ctx, []string{u.ID, uuid.NewString()})
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "http://cdn/a.png", profiles[0].ProfilePic)
}

func testRelations(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := NewUser(t, s, "a")
	b := NewUser(t, s, "b")
	c := NewUser(t, s, "c")

	added, err := s.AddIncoming(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, added)
	added, err = s.AddIncoming(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, added, "second add is a no-op")

	_, err = s.AddIncoming(ctx, a.ID, c.ID)
	require.NoError(t, err)

	incoming, err := s.Incoming(ctx, a.ID, store.Page{})
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID, c.ID}, incoming)

	incoming, err = s.Incoming(ctx, a.ID, store.Page{Offset: 1, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{c.ID}, incoming)

	rel, err := s.Relation(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Relation{Incoming: true}, rel)

	_, err = s.AddFriend(ctx, a.ID, b.ID)
	require.NoError(t, err)
	removed, err := s.RemoveIncoming(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = s.RemoveIncoming(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	rel, err = s.Relation(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Relation{Friend: true}, rel)

	friends, err := s.Friends(ctx, a.ID, store.Page{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, friends)

	_, err = s.AddDismissed(ctx, a.ID, c.ID)
	require.NoError(t, err)
	_, err = s.AddDismissed(ctx, a.ID, c.ID)
	require.NoError(t, err)
	dismissed, err := s.Dismissed(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{c.ID}, dismissed)

	_, err = s.AddFriend(ctx, uuid.NewString(), a.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.Relation(ctx, uuid.NewString(), a.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testLikes(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := NewUser(t, s, "liker")
	post := &models.Post{ID: uuid.NewString(), URL: "u", FileType: "image/png", CreatedBy: u.ID, CreatedAt: time.Now().UTC()}
	require.NoError(t, s.CreatePost(ctx, post))

	added, err := s.AddLike(ctx, u.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, added)

	liked, err := s.HasLiked(ctx, u.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, liked)

	n, err := s.LikeCount(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	ids, err := s.LikedPostIDs(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{post.ID}, ids)

	removed, err := s.RemoveLike(ctx, u.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	n, err = s.LikeCount(ctx, post.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testPosts(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := NewUser(t, s, "poster")
	b := NewUser(t, s, "other")

	base := time.Now().UTC().Truncate(time.Millisecond)
	mk := func(author, fileType string, age time.Duration) *models.Post {
		p := &models.Post{ID: uuid.NewString(), URL: "http://cdn/" + fileType, FileType: fileType, CreatedBy: author, CreatedAt: base.Add(-age)}
		require.NoError(t, s.CreatePost(ctx, p))
		return p
	}
	oldest := mk(a.ID, "image/png", 3*time.Minute)
	video := mk(a.ID, "video/mp4", 2*time.Minute)
	newest := mk(b.ID, "image/jpeg", time.Minute)

	posts, err := s.PostsByAuthors(ctx, []string{a.ID, b.ID}, "", store.Page{Limit: 10})
	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Equal(t, []string{newest.ID, video.ID, oldest.ID}, []string{posts[0].ID, posts[1].ID, posts[2].ID})

	posts, err = s.PostsByAuthors(ctx, []string{a.ID, b.ID}, "image", store.Page{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, posts, 2)

	posts, err = s.PostsByAuthors(ctx, []string{a.ID}, "", store.Page{Offset: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, oldest.ID, posts[0].ID)

	posts, err = s.PostsByIDs(ctx, []string{oldest.ID, newest.ID}, store.Page{Limit: 10})
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, newest.ID, posts[0].ID)

	for i := 0; i < 3; i++ {
		c := models.Comment{ID: uuid.NewString(), AuthorID: b.ID, Text: fmt.Sprintf("c%d", i), CreatedAt: base.Add(time.Duration(i) * time.Second)}
		require.NoError(t, s.AppendComment(ctx, oldest.ID, c))
	}
	comments, err := s.Comments(ctx, oldest.ID, nil)
	require.NoError(t, err)
	require.Len(t, comments, 3)
	assert.Equal(t, "c0", comments[0].Text)
	assert.Equal(t, "c2", comments[2].Text)

	comments, err = s.Comments(ctx, oldest.ID, &store.Page{Offset: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "c1", comments[0].Text)

	got, err := s.PostByID(ctx, oldest.ID)
	require.NoError(t, err)
	assert.Len(t, got.Comments, 3)

	err = s.AppendComment(ctx, uuid.NewString(), models.Comment{ID: uuid.NewString(), Text: "x"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testRooms(t *testing.T, s store.Store) {
	ctx := context.Background()
	key := uuid.NewString() + "_" + uuid.NewString()

	_, err := s.RoomByKey(ctx, key)
	assert.ErrorIs(t, err, store.ErrNotFound)

	now := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, s.CreateRoom(ctx, &models.Room{Key: key, CreatedAt: now}))
	assert.ErrorIs(t, s.CreateRoom(ctx, &models.Room{Key: key, CreatedAt: now}), store.ErrConflict)

	for i := 0; i < 5; i++ {
		m := models.Message{ID: uuid.NewString(), AuthorID: "u1", Text: fmt.Sprintf("m%d", i), CreatedAt: now}
		require.NoError(t, s.AppendMessage(ctx, key, m))
	}

	msgs, err := s.Messages(ctx, key, nil)
	require.NoError(t, err)
	require.Len(t, msgs, 5)
	for i, m := range msgs {
		assert.Equal(t, fmt.Sprintf("m%d", i), m.Text)
	}

	msgs, err = s.Messages(ctx, key, &store.Page{Offset: 3, Limit: 10})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "m3", msgs[0].Text)

	room, err := s.RoomByKey(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, room.LastMessage)

	err = s.AppendMessage(ctx, "missing_room", models.Message{ID: uuid.NewString()})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testSuggestions(t *testing.T, s store.Store) {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)

	var ids []string
	for i := 0; i < 4; i++ {
		id := uuid.NewString()
		ids = append(ids, id)
		require.NoError(t, s.RegisterSuggestion(ctx, models.SuggestionEntry{UserID: id, CreatedAt: base.Add(time.Duration(i) * time.Second)}))
	}
	require.NoError(t, s.RegisterSuggestion(ctx, models.SuggestionEntry{UserID: ids[0], CreatedAt: base.Add(time.Hour)}))

	entries, err := s.Suggestions(ctx, store.Page{Limit: 10})
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, ids[3], entries[0].UserID)
	assert.Equal(t, ids[0], entries[3].UserID)

	entries, err = s.Suggestions(ctx, store.Page{Offset: 1, Limit: 2})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, ids[2], entries[0].UserID)
}
