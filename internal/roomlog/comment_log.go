package roomlog

import (
	"context"
	"errors"
	"time"

	"bkpconnect/backend/internal/apperr"
	"bkpconnect/backend/internal/events"
	"bkpconnect/backend/internal/metrics"
	"bkpconnect/backend/internal/models"
	"bkpconnect/backend/internal/profile"
	"bkpconnect/backend/internal/store"

	"github.com/google/uuid"
)

// CommentLog is the per-post comment log. The post id is the room key.
type CommentLog struct {
	posts    store.Posts
	profiles *profile.Directory
	events   events.Publisher
	now      func() time.Time
}

func NewCommentLog(posts store.Posts, profiles *profile.Directory, pub events.Publisher) *CommentLog {
	if pub == nil {
		pub = events.NewNoopPublisher()
	}
	return &CommentLog{
		posts:    posts,
		profiles: profiles,
		events:   pub,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Append stores a comment on postID. A missing post is a NotFound error.
func (l *CommentLog) Append(ctx context.Context, postID, authorID, text string) (*models.CommentView, error) {
	view, err := l.append(ctx, postID, authorID, text)
	metrics.IncLogAppend("comment", metrics.Status(err))
	return view, err
}

func (l *CommentLog) append(ctx context.Context, postID, authorID, text string) (*models.CommentView, error) {
	text, err := normalizeComment(text)
	if err != nil {
		return nil, err
	}

	c := models.Comment{
		ID:        uuid.NewString(),
		AuthorID:  authorID,
		Text:      text,
		CreatedAt: l.now(),
	}
	if err := ctx.Err(); err != nil {
		return nil, apperr.FromContext(err, "comment was canceled before it was stored")
	}
	if err := l.posts.AppendComment(ctx, postID, c); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("post not found")
		}
		return nil, apperr.Upstream("failed to append comment", err)
	}

	go events.Emit(context.WithoutCancel(ctx), l.events, events.PostCommentAdded, events.CommentAddedEvent{
		PostID:    postID,
		CommentID: c.ID,
		AuthorID:  authorID,
		CreatedAt: c.CreatedAt,
	})

	author, err := l.profiles.One(ctx, authorID)
	if err != nil {
		author = models.Profile{ID: authorID}
	}
	view := CommentViewOf(c, author)
	return &view, nil
}

// History returns the comments of postID in append order. A nil page returns all.
func (l *CommentLog) History(ctx context.Context, postID string, page *store.Page) ([]models.CommentView, error) {
	comments, err := l.posts.Comments(ctx, postID, page)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("post not found")
		}
		return nil, apperr.Upstream("failed to load comments", err)
	}
	return ResolveComments(ctx, l.profiles, comments)
}

// ResolveComments attaches author profiles to comments.
func ResolveComments(ctx context.Context, profiles *profile.Directory, comments []models.Comment) ([]models.CommentView, error) {
	ids := make([]string, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.AuthorID)
	}
	authors, err := profiles.Resolve(ctx, ids)
	if err != nil {
		return nil, apperr.Upstream("failed to resolve authors", err)
	}
	out := make([]models.CommentView, 0, len(comments))
	for _, c := range comments {
		out = append(out, CommentViewOf(c, authors[c.AuthorID]))
	}
	return out, nil
}

// CommentViewOf pairs c with its resolved author.
func CommentViewOf(c models.Comment, author models.Profile) models.CommentView {
	return models.CommentView{ID: c.ID, Author: author, Text: c.Text, CreatedAt: c.CreatedAt}
}
