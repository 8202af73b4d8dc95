package roomlog

import (
	"context"
	"testing"
	"time"

	"bkpconnect/backend/internal/apperr"
	"bkpconnect/backend/internal/models"
	"bkpconnect/backend/internal/profile"
	"bkpconnect/backend/internal/store/memstore"
	"bkpconnect/backend/internal/store/storetest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentLog(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	author := storetest.NewUser(t, s, "author")
	commenter := storetest.NewUser(t, s, "commenter")

	post := &models.Post{ID: uuid.NewString(), URL: "http://cdn/p.png", FileType: "image/png", CreatedBy: author.ID, CreatedAt: time.Now()}
	require.NoError(t, s.CreatePost(ctx, post))

	log := NewCommentLog(s, profile.NewDirectory(s, nil), nil)

	first, err := log.Append(ctx, post.ID, commenter.ID, "  nice  ")
	require.NoError(t, err)
	assert.Equal(t, "nice", first.Text)
	assert.Equal(t, commenter.Username, first.Author.Username)

	_, err = log.Append(ctx, post.ID, author.ID, "thanks")
	require.NoError(t, err)

	history, err := log.History(ctx, post.ID, nil)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, first.ID, history[0].ID)
	assert.Equal(t, "thanks", history[1].Text)

	_, err = log.Append(ctx, "missing", commenter.ID, "hello")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = log.Append(ctx, post.ID, commenter.ID, "")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = log.History(ctx, "missing", nil)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
