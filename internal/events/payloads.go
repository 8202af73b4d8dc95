package events

import "time"

type UserSignedUpEvent struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

type FriendRequestEvent struct {
	FromUserID string    `json:"from_user_id"`
	ToUserID   string    `json:"to_user_id"`
	At         time.Time `json:"at"`
}

type FriendshipEvent struct {
	UserID   string    `json:"user_id"`
	FriendID string    `json:"friend_id"`
	At       time.Time `json:"at"`
}

type MessageAppendedEvent struct {
	RoomKey   string    `json:"room_key"`
	MessageID string    `json:"message_id"`
	AuthorID  string    `json:"author_id"`
	HasFile   bool      `json:"has_file"`
	CreatedAt time.Time `json:"created_at"`
}

type CommentAddedEvent struct {
	PostID    string    `json:"post_id"`
	CommentID string    `json:"comment_id"`
	AuthorID  string    `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
}
