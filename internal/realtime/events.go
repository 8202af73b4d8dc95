// Package realtime connects websocket and SSE transports to the room logs and the hub.
package realtime

import (
	"encoding/json"

	"bkpconnect/backend/internal/apperr"
	"bkpconnect/backend/internal/hub"
	"bkpconnect/backend/internal/models"
	"bkpconnect/backend/internal/roomlog"
)

// Client events.
const (
	EventJoinRoom     = "joinRoom"
	EventLeaveRoom    = "leaveRoom"
	EventSendMessage  = "sendMessage"
	EventJoinPostRoom = "joinPostRoom"
	EventNewComment   = "newComment"
	EventPing         = "ping"
)

// Server events.
const (
	EventMessageReceived = "messageReceived"
	EventCommentAdded    = "commentAdded"
	EventPong            = "pong"
	EventError           = "error"
)

// ChatTopic is the hub room of a chat room key.
func ChatTopic(roomKey string) string { return "chat:" + roomKey }

// PostTopic is the hub room of a post's comment stream.
func PostTopic(postID string) string { return "post:" + postID }

// Inbound is a client frame before its payload is decoded.
type Inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type RoomPayload struct {
	RoomKey string `json:"roomKey" validate:"required"`
}

type SendMessagePayload struct {
	RoomKey string             `json:"roomKey" validate:"required"`
	Message roomlog.NewMessage `json:"message"`
}

type PostRoomPayload struct {
	PostID string `json:"postId" validate:"required"`
}

// NewCommentPayload may carry the author's id; it must match the connection's user.
type NewCommentPayload struct {
	PostID string `json:"postId" validate:"required"`
	UserID string `json:"userId,omitempty"`
	Text   string `json:"text"`
}

type MessageReceivedPayload struct {
	RoomKey string              `json:"roomKey"`
	Message *models.MessageView `json:"message"`
}

type CommentAddedPayload struct {
	PostID  string              `json:"postId"`
	Comment *models.CommentView `json:"comment"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Event   string `json:"event,omitempty"`
}

func errorEvent(event string, err error) hub.Event {
	code, message := apperr.Describe(err)
	if code == "" {
		code = string(apperr.KindOf(err))
	}
	return hub.Event{Type: EventError, Payload: ErrorPayload{Code: code, Message: message, Event: event}}
}
