// Package post implements media posts, the feed and likes.
package post

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"bkpconnect/backend/internal/apperr"
	"bkpconnect/backend/internal/blob"
	"bkpconnect/backend/internal/models"
	"bkpconnect/backend/internal/profile"
	"bkpconnect/backend/internal/roomlog"
	"bkpconnect/backend/internal/store"

	"github.com/google/uuid"
)

// Uploader stores a post's media file.
type Uploader interface {
	Upload(ctx context.Context, prefix, filename string, size int64, file io.ReadSeeker, accept ...string) (*blob.Upload, error)
}

// LikeState is the liked flag of one user and the like count of one post.
type LikeState struct {
	Liked bool  `json:"liked"`
	Likes int64 `json:"likes"`
}

type Service struct {
	posts     store.Posts
	likes     store.Likes
	relations store.Relations
	profiles  *profile.Directory
	uploads   Uploader
	now       func() time.Time
}

func NewService(posts store.Posts, likes store.Likes, relations store.Relations, profiles *profile.Directory, uploads Uploader) *Service {
	return &Service{
		posts:     posts,
		likes:     likes,
		relations: relations,
		profiles:  profiles,
		uploads:   uploads,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create uploads file and records it as a post by userID.
func (s *Service) Create(ctx context.Context, userID, filename string, size int64, file io.ReadSeeker) (*models.PostView, error) {
	up, err := s.uploads.Upload(ctx, "posts", filename, size, file)
	if err != nil {
		return nil, err
	}

	p := &models.Post{
		ID:        uuid.NewString(),
		URL:       up.URL,
		FileType:  up.ContentType,
		CreatedBy: userID,
		Comments:  []models.Comment{},
		CreatedAt: s.now(),
	}
	if err := ctx.Err(); err != nil {
		return nil, apperr.FromContext(err, "post was canceled before it was stored")
	}
	if err := s.posts.CreatePost(ctx, p); err != nil {
		return nil, apperr.Upstream("failed to create post", err)
	}

	views, err := s.views(ctx, []models.Post{*p})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// Get returns one post with its comments resolved.
func (s *Service) Get(ctx context.Context, id string) (*models.PostView, error) {
	p, err := s.postByID(ctx, id)
	if err != nil {
		return nil, err
	}
	views, err := s.views(ctx, []models.Post{*p})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// Feed lists the posts of userID and all of their friends, newest first. typeFilter is a
// content-type substring; "all" or empty matches everything.
func (s *Service) Feed(ctx context.Context, userID, typeFilter string, page store.Page) ([]models.PostView, error) {
	friends, err := s.relations.Friends(ctx, userID, store.Page{})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Upstream("failed to load friends", err)
	}
	authors := append([]string{userID}, friends...)
	return s.byAuthors(ctx, authors, typeFilter, page)
}

// ByAuthor lists the posts of one user, newest first.
func (s *Service) ByAuthor(ctx context.Context, userID string, page store.Page) ([]models.PostView, error) {
	return s.byAuthors(ctx, []string{userID}, "", page)
}

func (s *Service) byAuthors(ctx context.Context, authors []string, typeFilter string, page store.Page) ([]models.PostView, error) {
	typeFilter = strings.TrimSpace(typeFilter)
	if strings.EqualFold(typeFilter, "all") {
		typeFilter = ""
	}
	posts, err := s.posts.PostsByAuthors(ctx, authors, typeFilter, page)
	if err != nil {
		return nil, apperr.Upstream("failed to load posts", err)
	}
	return s.views(ctx, posts)
}

// Like records that userID likes postID. Liking twice is a no-op.
func (s *Service) Like(ctx context.Context, userID, postID string) (*LikeState, error) {
	if _, err := s.postByID(ctx, postID); err != nil {
		return nil, err
	}
	if _, err := s.likes.AddLike(ctx, userID, postID); err != nil {
		return nil, likeError(err)
	}
	return s.Check(ctx, userID, postID)
}

// Unlike removes the like of userID from postID. Unliking twice is a no-op.
func (s *Service) Unlike(ctx context.Context, userID, postID string) (*LikeState, error) {
	if _, err := s.postByID(ctx, postID); err != nil {
		return nil, err
	}
	if _, err := s.likes.RemoveLike(ctx, userID, postID); err != nil {
		return nil, likeError(err)
	}
	return s.Check(ctx, userID, postID)
}

// Check reports whether userID likes postID and the post's like count.
func (s *Service) Check(ctx context.Context, userID, postID string) (*LikeState, error) {
	liked, err := s.likes.HasLiked(ctx, userID, postID)
	if err != nil {
		return nil, likeError(err)
	}
	count, err := s.likes.LikeCount(ctx, postID)
	if err != nil {
		return nil, likeError(err)
	}
	return &LikeState{Liked: liked, Likes: count}, nil
}

// Liked lists the posts userID has liked.
func (s *Service) Liked(ctx context.Context, userID string, page store.Page) ([]models.PostView, error) {
	ids, err := s.likes.LikedPostIDs(ctx, userID)
	if err != nil {
		return nil, likeError(err)
	}
	if len(ids) == 0 {
		return []models.PostView{}, nil
	}
	posts, err := s.posts.PostsByIDs(ctx, ids, page)
	if err != nil {
		return nil, apperr.Upstream("failed to load posts", err)
	}
	return s.views(ctx, posts)
}

func (s *Service) postByID(ctx context.Context, id string) (*models.Post, error) {
	p, err := s.posts.PostByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("post not found")
		}
		return nil, apperr.Upstream("failed to load post", err)
	}
	return p, nil
}

func likeError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("user not found")
	}
	return apperr.Upstream("failed to update likes", err)
}

// views resolves authors and commenters of posts in one directory lookup.
func (s *Service) views(ctx context.Context, posts []models.Post) ([]models.PostView, error) {
	var ids []string
	for _, p := range posts {
		ids = append(ids, p.CreatedBy)
		for _, c := range p.Comments {
			ids = append(ids, c.AuthorID)
		}
	}
	profiles, err := s.profiles.Resolve(ctx, ids)
	if err != nil {
		return nil, apperr.Upstream("failed to resolve authors", err)
	}

	out := make([]models.PostView, 0, len(posts))
	for _, p := range posts {
		likes, err := s.likes.LikeCount(ctx, p.ID)
		if err != nil {
			return nil, apperr.Upstream("failed to count likes", err)
		}
		comments := make([]models.CommentView, 0, len(p.Comments))
		for _, c := range p.Comments {
			comments = append(comments, roomlog.CommentViewOf(c, profiles[c.AuthorID]))
		}
		out = append(out, models.PostView{
			ID:        p.ID,
			URL:       p.URL,
			FileType:  p.FileType,
			CreatedBy: profiles[p.CreatedBy],
			Comments:  comments,
			Likes:     likes,
			CreatedAt: p.CreatedAt,
		})
	}
	return out, nil
}
