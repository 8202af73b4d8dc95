package models

import "time"

// Message is an immutable entry in a chat room log.
type Message struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"authorId"`
	Text      string    `json:"text,omitempty"`
	FileURL   string    `json:"fileUrl,omitempty"`
	FileType  string    `json:"fileType,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// MessageView is a Message with its author resolved for display.
type MessageView struct {
	ID        string    `json:"id"`
	Author    Profile   `json:"author"`
	Text      string    `json:"text,omitempty"`
	FileURL   string    `json:"fileUrl,omitempty"`
	FileType  string    `json:"fileType,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Room is the header of a chat log. Its messages are read through the Rooms store.
type Room struct {
	Key         string     `json:"roomKey"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastMessage *time.Time `json:"lastMessage,omitempty"`
}
