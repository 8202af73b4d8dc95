package post

import (
	"bytes"
	"context"
	"io"
	"testing"

	"bkpconnect/backend/internal/apperr"
	"bkpconnect/backend/internal/blob"
	"bkpconnect/backend/internal/models"
	"bkpconnect/backend/internal/profile"
	"bkpconnect/backend/internal/store"
	"bkpconnect/backend/internal/store/memstore"
	"bkpconnect/backend/internal/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUploader derives the content type from the file name.
type fakeUploader struct{ types map[string]string }

func (f fakeUploader) Upload(_ context.Context, prefix, filename string, _ int64, _ io.ReadSeeker, _ ...string) (*blob.Upload, error) {
	ct, ok := f.types[filename]
	if !ok {
		return nil, apperr.New(apperr.KindValidation, "UNSUPPORTED_FILE_TYPE", "unsupported", nil)
	}
	return &blob.Upload{URL: "http://files.test/" + prefix + "/" + filename, ContentType: ct}, nil
}

func newService(t *testing.T) (*Service, *memstore.Store) {
	s := memstore.New()
	up := fakeUploader{types: map[string]string{"a.png": "image/png", "b.mp4": "video/mp4"}}
	return NewService(s, s, s, profile.NewDirectory(s, nil), up), s
}

func create(t *testing.T, svc *Service, userID, filename string) *models.PostView {
	t.Helper()
	p, err := svc.Create(context.Background(), userID, filename, 3, bytes.NewReader([]byte("abc")))
	require.NoError(t, err)
	return p
}

func TestCreateAndGet(t *testing.T) {
	svc, s := newService(t)
	u := storetest.NewUser(t, s, "poster")

	p := create(t, svc, u.ID, "a.png")
	assert.Equal(t, "image/png", p.FileType)
	assert.Equal(t, u.Username, p.CreatedBy.Username)
	assert.Empty(t, p.Comments)

	got, err := svc.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.URL, got.URL)

	_, err = svc.Get(context.Background(), "missing")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = svc.Create(context.Background(), u.ID, "x.exe", 3, bytes.NewReader([]byte("abc")))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestFeedIncludesFriendsOnly(t *testing.T) {
	svc, s := newService(t)
	ctx := context.Background()
	me := storetest.NewUser(t, s, "me")
	friend := storetest.NewUser(t, s, "friend")
	stranger := storetest.NewUser(t, s, "stranger")
	_, err := s.AddFriend(ctx, me.ID, friend.ID)
	require.NoError(t, err)

	create(t, svc, me.ID, "a.png")
	fp := create(t, svc, friend.ID, "b.mp4")
	create(t, svc, stranger.ID, "a.png")

	feed, err := svc.Feed(ctx, me.ID, "all", store.Page{Limit: 10})
	require.NoError(t, err)
	require.Len(t, feed, 2)
	assert.Equal(t, fp.ID, feed[0].ID, "newest first")

	videos, err := svc.Feed(ctx, me.ID, "video", store.Page{Limit: 10})
	require.NoError(t, err)
	require.Len(t, videos, 1)
	assert.Equal(t, friend.Username, videos[0].CreatedBy.Username)

	mine, err := svc.ByAuthor(ctx, stranger.ID, store.Page{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestLikeRoundTrip(t *testing.T) {
	svc, s := newService(t)
	ctx := context.Background()
	u := storetest.NewUser(t, s, "liker")
	p := create(t, svc, u.ID, "a.png")

	before, err := svc.Check(ctx, u.ID, p.ID)
	require.NoError(t, err)

	state, err := svc.Like(ctx, u.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, LikeState{Liked: true, Likes: 1}, *state)

	state, err = svc.Like(ctx, u.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), state.Likes, "like is idempotent")

	liked, err := svc.Liked(ctx, u.ID, store.Page{Limit: 10})
	require.NoError(t, err)
	require.Len(t, liked, 1)
	assert.Equal(t, int64(1), liked[0].Likes)

	state, err = svc.Unlike(ctx, u.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, *before, *state)

	_, err = svc.Like(ctx, u.ID, "missing")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
