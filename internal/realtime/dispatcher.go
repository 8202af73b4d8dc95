package realtime

import (
	"context"
	"encoding/json"
	"log"

	"bkpconnect/backend/internal/apperr"
	"bkpconnect/backend/internal/hub"

	"github.com/go-playground/validator/v10"
)

// Dispatcher decodes client frames and runs them against the pipeline. Failures go
// back to the sending client only.
type Dispatcher struct {
	pipeline *Pipeline
	validate *validator.Validate
}

func NewDispatcher(p *Pipeline) *Dispatcher {
	return &Dispatcher{pipeline: p, validate: validator.New()}
}

// Handle processes one frame from client.
func (d *Dispatcher) Handle(ctx context.Context, client *hub.Client, frame []byte) {
	var in Inbound
	if err := json.Unmarshal(frame, &in); err != nil {
		d.fail(client, "", apperr.New(apperr.KindValidation, "INVALID_FRAME", "Invalid message format", err))
		return
	}
	if err := d.handle(ctx, client, in); err != nil {
		d.fail(client, in.Type, err)
	}
}

func (d *Dispatcher) handle(ctx context.Context, client *hub.Client, in Inbound) error {
	switch in.Type {
	case EventJoinRoom:
		var p RoomPayload
		if err := d.decode(in, &p); err != nil {
			return err
		}
		return d.pipeline.JoinChat(client, p.RoomKey)

	case EventLeaveRoom:
		var p RoomPayload
		if err := d.decode(in, &p); err != nil {
			return err
		}
		d.pipeline.LeaveChat(client, p.RoomKey)
		return nil

	case EventSendMessage:
		var p SendMessagePayload
		if err := d.decode(in, &p); err != nil {
			return err
		}
		_, err := d.pipeline.SendMessage(ctx, p.RoomKey, client.UserID, p.Message)
		return err

	case EventJoinPostRoom:
		var p PostRoomPayload
		if err := d.decode(in, &p); err != nil {
			return err
		}
		d.pipeline.JoinPost(client, p.PostID)
		return nil

	case EventNewComment:
		var p NewCommentPayload
		if err := d.decode(in, &p); err != nil {
			return err
		}
		if p.UserID != "" && p.UserID != client.UserID {
			return apperr.New(apperr.KindForbidden, "USER_MISMATCH", "cannot comment as another user", nil)
		}
		_, err := d.pipeline.AddComment(ctx, p.PostID, client.UserID, p.Text)
		return err

	case EventPing:
		d.pipeline.Hub().SendTo(client, hub.Event{Type: EventPong})
		return nil
	}
	return apperr.New(apperr.KindValidation, "UNKNOWN_EVENT", "unknown event type: "+in.Type, nil)
}

func (d *Dispatcher) decode(in Inbound, dst any) error {
	if len(in.Payload) == 0 {
		return apperr.New(apperr.KindValidation, "INVALID_PAYLOAD", in.Type+" requires a payload", nil)
	}
	if err := json.Unmarshal(in.Payload, dst); err != nil {
		return apperr.New(apperr.KindValidation, "INVALID_PAYLOAD", "invalid "+in.Type+" payload", err)
	}
	if err := d.validate.Struct(dst); err != nil {
		return apperr.New(apperr.KindValidation, "INVALID_PAYLOAD", err.Error(), err)
	}
	return nil
}

func (d *Dispatcher) fail(client *hub.Client, event string, err error) {
	log.Printf("realtime: %s from user %s (client %s) failed: %v", event, client.UserID, client.ID, err)
	d.pipeline.Hub().SendTo(client, errorEvent(event, err))
}
