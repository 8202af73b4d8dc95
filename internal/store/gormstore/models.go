package gormstore

import (
	"time"

	"bkpconnect/backend/internal/models"
)

// kindLiked reuses the relation table for a user's liked posts.
const kindLiked models.RelationKind = "liked"

type userRow struct {
	ID           string `gorm:"primaryKey;size:64"`
	Username     string `gorm:"size:255;uniqueIndex;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	ProfilePic   string `gorm:"size:1024"`
	CreatedAt    time.Time
}

func (userRow) TableName() string { return "users" }

func (r *userRow) user() *models.User {
	return &models.User{
		ID:           r.ID,
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		ProfilePic:   r.ProfilePic,
		CreatedAt:    r.CreatedAt,
	}
}

// userRelationRow is one member of one of a user's relationship sets.
// (OwnerID, OtherID, Kind) is unique; ID keeps insertion order.
type userRelationRow struct {
	ID        uint64              `gorm:"primaryKey;autoIncrement"`
	OwnerID   string              `gorm:"size:64;not null;uniqueIndex:idx_user_relation,priority:1"`
	Kind      models.RelationKind `gorm:"type:varchar(20);not null;uniqueIndex:idx_user_relation,priority:2"`
	OtherID   string              `gorm:"size:64;not null;uniqueIndex:idx_user_relation,priority:3;index"`
	CreatedAt time.Time
}

func (userRelationRow) TableName() string { return "user_relations" }

type postRow struct {
	ID        string    `gorm:"primaryKey;size:64"`
	URL       string    `gorm:"size:1024;not null"`
	FileType  string    `gorm:"size:255;not null"`
	CreatedBy string    `gorm:"size:64;not null;index"`
	CreatedAt time.Time `gorm:"index"`
}

func (postRow) TableName() string { return "posts" }

type commentRow struct {
	Seq       uint64 `gorm:"primaryKey;autoIncrement"`
	CommentID string `gorm:"size:64;uniqueIndex;not null"`
	PostID    string `gorm:"size:64;not null;index"`
	AuthorID  string `gorm:"size:64;not null"`
	Text      string `gorm:"type:text;not null"`
	CreatedAt time.Time
}

func (commentRow) TableName() string { return "post_comments" }

func (r *commentRow) comment() models.Comment {
	return models.Comment{ID: r.CommentID, AuthorID: r.AuthorID, Text: r.Text, CreatedAt: r.CreatedAt}
}

type roomRow struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement"`
	RoomKey     string `gorm:"size:255;uniqueIndex;not null"`
	CreatedAt   time.Time
	LastMessage *time.Time
}

func (roomRow) TableName() string { return "chats" }

type messageRow struct {
	Seq       uint64 `gorm:"primaryKey;autoIncrement"`
	MessageID string `gorm:"size:64;uniqueIndex;not null"`
	RoomKey   string `gorm:"size:255;not null;index"`
	AuthorID  string `gorm:"size:64;not null"`
	Text      string `gorm:"type:text"`
	FileURL   string `gorm:"size:1024"`
	FileType  string `gorm:"size:255"`
	CreatedAt time.Time
}

func (messageRow) TableName() string { return "chat_messages" }

type suggestionRow struct {
	UserID    string    `gorm:"primaryKey;size:64"`
	CreatedAt time.Time `gorm:"index"`
}

func (suggestionRow) TableName() string { return "suggestion_entries" }
