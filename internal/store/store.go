// Package store defines the persistence contract shared by the MongoDB, Postgres and
// in-memory backends.
package store

import (
	"context"
	"errors"
	"math"

	"bkpconnect/backend/internal/models"
)

var (
	// ErrNotFound is returned when the addressed document does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrConflict is returned when a unique key is already taken.
	ErrConflict = errors.New("store: conflict")
)

// Page is an offset/limit window. A zero Limit means "no limit".
type Page struct {
	Offset int
	Limit  int
}

// NewPage converts a 1-based page number and a page size into a Page.
// An offset that would overflow saturates at math.MaxInt.
func NewPage(page, limit int) Page {
	if page < 1 {
		page = 1
	}
	if limit < 0 {
		limit = 0
	}
	if limit > 0 && page-1 > math.MaxInt/limit {
		return Page{Offset: math.MaxInt, Limit: limit}
	}
	return Page{Offset: (page - 1) * limit, Limit: limit}
}

// Bounds returns the [lo, hi) slice bounds of p over a sequence of length n.
func (p Page) Bounds(n int) (int, int) {
	lo := p.Offset
	if lo > n {
		lo = n
	}
	if lo < 0 {
		lo = 0
	}
	hi := n
	if p.Limit > 0 && lo+p.Limit < n {
		hi = lo + p.Limit
	}
	return lo, hi
}

type Users interface {
	// CreateUser stores u. A taken username yields ErrConflict.
	CreateUser(ctx context.Context, u *models.User) error
	UserByID(ctx context.Context, id string) (*models.User, error)
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	// Profiles returns the profiles of the ids that exist, in no particular order.
	Profiles(ctx context.Context, ids []string) ([]models.Profile, error)
	SetProfilePic(ctx context.Context, id, url string) error
}

// Relations stores the per-user relationship sets. Every mutation touches exactly one
// user document; mirrored state is the caller's job. Mutations on a missing owner return
// ErrNotFound.
type Relations interface {
	Relation(ctx context.Context, owner, other string) (models.Relation, error)
	AddFriend(ctx context.Context, owner, friend string) (bool, error)
	AddIncoming(ctx context.Context, owner, from string) (bool, error)
	RemoveIncoming(ctx context.Context, owner, from string) (bool, error)
	AddDismissed(ctx context.Context, owner, other string) (bool, error)
	// Friends and Incoming list ids in insertion order.
	Friends(ctx context.Context, owner string, page Page) ([]string, error)
	Incoming(ctx context.Context, owner string, page Page) ([]string, error)
	Dismissed(ctx context.Context, owner string) ([]string, error)
}

type Likes interface {
	AddLike(ctx context.Context, userID, postID string) (bool, error)
	RemoveLike(ctx context.Context, userID, postID string) (bool, error)
	HasLiked(ctx context.Context, userID, postID string) (bool, error)
	LikedPostIDs(ctx context.Context, userID string) ([]string, error)
	LikeCount(ctx context.Context, postID string) (int64, error)
}

type Posts interface {
	CreatePost(ctx context.Context, p *models.Post) error
	PostByID(ctx context.Context, id string) (*models.Post, error)
	// PostsByAuthors lists posts newest first. typeFilter is a case-insensitive substring
	// of the content type; empty matches everything.
	PostsByAuthors(ctx context.Context, authors []string, typeFilter string, page Page) ([]models.Post, error)
	PostsByIDs(ctx context.Context, ids []string, page Page) ([]models.Post, error)
	AppendComment(ctx context.Context, postID string, c models.Comment) error
	// Comments returns the comment log in append order; a nil page returns all of it.
	Comments(ctx context.Context, postID string, page *Page) ([]models.Comment, error)
}

type Rooms interface {
	RoomByKey(ctx context.Context, key string) (*models.Room, error)
	// CreateRoom returns ErrConflict when a room with the same key exists.
	CreateRoom(ctx context.Context, room *models.Room) error
	AppendMessage(ctx context.Context, key string, m models.Message) error
	// Messages returns the log in append order; a nil page returns all of it.
	Messages(ctx context.Context, key string, page *Page) ([]models.Message, error)
}

type Suggestions interface {
	// RegisterSuggestion is idempotent per user.
	RegisterSuggestion(ctx context.Context, e models.SuggestionEntry) error
	// Suggestions lists entries newest first.
	Suggestions(ctx context.Context, page Page) ([]models.SuggestionEntry, error)
}

// Store is the full persistence contract.
type Store interface {
	Users
	Relations
	Likes
	Posts
	Rooms
	Suggestions
	Close(ctx context.Context) error
}
