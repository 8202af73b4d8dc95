package models

import "time"

// Post is a media post. Comments form its append-only comment log.
type Post struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	FileType  string    `json:"fileType"`
	CreatedBy string    `json:"createdBy"`
	Comments  []Comment `json:"comments"`
	CreatedAt time.Time `json:"createdAt"`
}

// Comment is an immutable entry in a post's comment log.
type Comment struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"authorId"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// CommentView is a Comment with its author resolved for display.
type CommentView struct {
	ID        string    `json:"id"`
	Author    Profile   `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// PostView is a Post with author and commenters resolved.
type PostView struct {
	ID        string        `json:"id"`
	URL       string        `json:"url"`
	FileType  string        `json:"fileType"`
	CreatedBy Profile       `json:"createdBy"`
	Comments  []CommentView `json:"comments"`
	Likes     int64         `json:"likes"`
	CreatedAt time.Time     `json:"createdAt"`
}
