// Package roomlog holds the append-only logs that realtime rooms are backed by: chat
// message logs keyed by a deterministic room key and per-post comment logs.
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

// MessageLog is the chat message log.
type MessageLog struct {
	rooms    store.Rooms
	profiles *profile.Directory
	events   events.Publisher
	now      func() time.Time
}

func NewMessageLog(rooms store.Rooms, profiles *profile.Directory, pub events.Publisher) *MessageLog {
	if pub == nil {
		pub = events.NewNoopPublisher()
	}
	return &MessageLog{
		rooms:    rooms,
		profiles: profiles,
		events:   pub,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Authorize checks that key is a well-formed chat room key that userID belongs to.
func Authorize(key, userID string) error {
	if _, _, ok := Participants(key); !ok {
		return apperr.New(apperr.KindValidation, "INVALID_ROOM_KEY", "invalid room key", nil)
	}
	if !IsParticipant(key, userID) {
		return apperr.Forbidden("not a participant of this room")
	}
	return nil
}

// Open returns the room for key, creating it on first use. A concurrent creator wins
// the unique key; the loser re-reads once.
func (l *MessageLog) Open(ctx context.Context, key string) (*models.Room, error) {
	room, err := l.rooms.RoomByKey(ctx, key)
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Upstream("failed to load room", err)
	}

	room = &models.Room{Key: key, CreatedAt: l.now()}
	err = l.rooms.CreateRoom(ctx, room)
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, store.ErrConflict) {
		return nil, apperr.Upstream("failed to create room", err)
	}

	room, err = l.rooms.RoomByKey(ctx, key)
	if err != nil {
		return nil, apperr.Conflict("room creation raced and could not be re-read", err)
	}
	return room, nil
}

// Append stores a message authored by authorID and returns it with the author resolved.
// Nothing is stored when ctx is already done at the time of the append.
func (l *MessageLog) Append(ctx context.Context, key, authorID string, in NewMessage) (*models.MessageView, error) {
	view, err := l.append(ctx, key, authorID, in)
	metrics.IncLogAppend("chat", metrics.Status(err))
	return view, err
}

func (l *MessageLog) append(ctx context.Context, key, authorID string, in NewMessage) (*models.MessageView, error) {
	if err := Authorize(key, authorID); err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	if _, err := l.Open(ctx, key); err != nil {
		return nil, err
	}

	msg := models.Message{
		ID:        uuid.NewString(),
		AuthorID:  authorID,
		Text:      in.Text,
		FileURL:   in.FileURL,
		FileType:  in.FileType,
		CreatedAt: l.now(),
	}
	if err := ctx.Err(); err != nil {
		return nil, apperr.FromContext(err, "message was canceled before it was stored")
	}
	if err := l.rooms.AppendMessage(ctx, key, msg); err != nil {
		if ce := apperr.FromContext(ctx.Err(), "message append was interrupted"); ce != nil {
			return nil, ce
		}
		return nil, apperr.Upstream("failed to append message", err)
	}

	go events.Emit(context.WithoutCancel(ctx), l.events, events.ChatMessageAppended, events.MessageAppendedEvent{
		RoomKey:   key,
		MessageID: msg.ID,
		AuthorID:  authorID,
		HasFile:   msg.FileURL != "",
		CreatedAt: msg.CreatedAt,
	})

	author, err := l.profiles.One(ctx, authorID)
	if err != nil {
		// The message is stored; fall back to the bare id rather than failing the send.
		author = models.Profile{ID: authorID}
	}
	view := messageView(msg, author)
	return &view, nil
}

// History returns the log of key in append order. A nil page returns everything.
// A room that was never opened has an empty history.
func (l *MessageLog) History(ctx context.Context, key string, page *store.Page) ([]models.MessageView, error) {
	msgs, err := l.rooms.Messages(ctx, key, page)
	if errors.Is(err, store.ErrNotFound) {
		return []models.MessageView{}, nil
	}
	if err != nil {
		return nil, apperr.Upstream("failed to load messages", err)
	}

	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.AuthorID)
	}
	authors, err := l.profiles.Resolve(ctx, ids)
	if err != nil {
		return nil, apperr.Upstream("failed to resolve authors", err)
	}

	out := make([]models.MessageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageView(m, authors[m.AuthorID]))
	}
	return out, nil
}

// Fetch opens the room and returns its history.
func (l *MessageLog) Fetch(ctx context.Context, key string, page *store.Page) (*models.Room, []models.MessageView, error) {
	room, err := l.Open(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	msgs, err := l.History(ctx, key, page)
	if err != nil {
		return nil, nil, err
	}
	return room, msgs, nil
}

func messageView(m models.Message, author models.Profile) models.MessageView {
	return models.MessageView{
		ID:        m.ID,
		Author:    author,
		Text:      m.Text,
		FileURL:   m.FileURL,
		FileType:  m.FileType,
		CreatedAt: m.CreatedAt,
	}
}
