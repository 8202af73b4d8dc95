package realtime

import (
	"context"

	"bkpconnect/backend/internal/hub"
	"bkpconnect/backend/internal/models"
	"bkpconnect/backend/internal/roomlog"
)

// Pipeline persists an event and then broadcasts it. Both steps run under the room's
// lock, so every subscriber receives a room's events in log order. Nothing is broadcast
// when the append fails.
type Pipeline struct {
	hub      *hub.Hub
	messages *roomlog.MessageLog
	comments *roomlog.CommentLog
	locks    roomlog.Locks
}

func NewPipeline(h *hub.Hub, messages *roomlog.MessageLog, comments *roomlog.CommentLog) *Pipeline {
	return &Pipeline{hub: h, messages: messages, comments: comments}
}

func (p *Pipeline) Hub() *hub.Hub { return p.hub }

// SendMessage appends msg to the chat room and delivers it to the room's subscribers.
func (p *Pipeline) SendMessage(ctx context.Context, roomKey, authorID string, msg roomlog.NewMessage) (*models.MessageView, error) {
	topic := ChatTopic(roomKey)
	unlock := p.locks.Lock(topic)
	defer unlock()

	view, err := p.messages.Append(ctx, roomKey, authorID, msg)
	if err != nil {
		return nil, err
	}
	p.hub.Broadcast(topic, hub.Event{
		Type:    EventMessageReceived,
		Payload: MessageReceivedPayload{RoomKey: roomKey, Message: view},
	})
	return view, nil
}

// AddComment appends a comment to the post and delivers it to the post's subscribers.
func (p *Pipeline) AddComment(ctx context.Context, postID, authorID, text string) (*models.CommentView, error) {
	topic := PostTopic(postID)
	unlock := p.locks.Lock(topic)
	defer unlock()

	view, err := p.comments.Append(ctx, postID, authorID, text)
	if err != nil {
		return nil, err
	}
	p.hub.Broadcast(topic, hub.Event{
		Type:    EventCommentAdded,
		Payload: CommentAddedPayload{PostID: postID, Comment: view},
	})
	return view, nil
}

// JoinChat subscribes client to a chat room it participates in.
func (p *Pipeline) JoinChat(client *hub.Client, roomKey string) error {
	if err := roomlog.Authorize(roomKey, client.UserID); err != nil {
		return err
	}
	p.hub.Subscribe(ChatTopic(roomKey), client)
	return nil
}

// JoinPost subscribes client to a post's comment stream.
func (p *Pipeline) JoinPost(client *hub.Client, postID string) {
	p.hub.Subscribe(PostTopic(postID), client)
}

func (p *Pipeline) LeaveChat(client *hub.Client, roomKey string) {
	p.hub.Unsubscribe(ChatTopic(roomKey), client)
}
