package handler

import (
	"net/http"

	"bkpconnect/backend/internal/apperr"
	"bkpconnect/backend/internal/blob"
	"bkpconnect/backend/internal/models"
	"bkpconnect/backend/internal/realtime"
	"bkpconnect/backend/internal/roomlog"

	"github.com/gin-gonic/gin"
)

// region --- DTOs ---

// RoomKeyResponse names the chat room of two users.
type RoomKeyResponse struct {
	RoomKey string `json:"roomKey" example:"a1_b2"`
}

// ChatResponse is a chat room with its full history.
type ChatResponse struct {
	Room     *models.Room         `json:"room"`
	Messages []models.MessageView `json:"messages"`
}

// endregion

// GetRoomWith godoc
// @Summary      Get the room key for a peer
// @Tags         chat
// @Produce      json
// @Security     BearerAuth
// @Param        userId  path      string  true  "Peer user ID"
// @Success      200     {object}  RoomKeyResponse
// @Failure      400     {object}  ErrorResponse
// @Failure      404     {object}  ErrorResponse
// @Router       /api/chat/with/{userId} [get]
func (h *Handler) GetRoomWith(c *gin.Context) {
	me, peer := currentUser(c), c.Param("userId")
	if me == peer {
		respondError(c, apperr.New(apperr.KindValidation, "SELF_REQUEST", "cannot chat with yourself", nil))
		return
	}
	if _, err := h.Accounts.Profile(c.Request.Context(), peer); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, RoomKeyResponse{RoomKey: roomlog.RoomKey(me, peer)})
}

// GetChat godoc
// @Summary      Get a chat room
// @Description  Returns the room, creating it on first use, with its complete message history in send order.
// @Tags         chat
// @Produce      json
// @Security     BearerAuth
// @Param        roomKey  path      string  true  "Room key"
// @Success      200      {object}  ChatResponse
// @Failure      400      {object}  ErrorResponse
// @Failure      403      {object}  ErrorResponse
// @Router       /api/chat/{roomKey} [get]
func (h *Handler) GetChat(c *gin.Context) {
	room, msgs, err := h.Messages.Fetch(c.Request.Context(), c.Param("roomKey"), nil)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ChatResponse{Room: room, Messages: msgs})
}

// SendMessage godoc
// @Summary      Send a chat message
// @Description  Stores the message and pushes a messageReceived event to the room's subscribers.
// @Tags         chat
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        roomKey  path      string              true  "Room key"
// @Param        input    body      roomlog.NewMessage  true  "Message"
// @Success      201      {object}  models.MessageView
// @Failure      400      {object}  ErrorResponse
// @Failure      403      {object}  ErrorResponse
// @Router       /api/chat/{roomKey} [post]
func (h *Handler) SendMessage(c *gin.Context) {
	var input roomlog.NewMessage
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	msg, err := h.Pipeline.SendMessage(c.Request.Context(), c.Param("roomKey"), currentUser(c), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// UploadAndSend godoc
// @Summary      Send a file to a chat room
// @Description  Uploads the file and appends it as a message. Nothing is stored if the request is canceled before the append.
// @Tags         chat
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        roomKey  path      string  true   "Room key"
// @Param        file     formData  file    true   "Attachment"
// @Param        text     formData  string  false  "Caption"
// @Success      201      {object}  models.MessageView
// @Failure      400      {object}  ErrorResponse
// @Failure      403      {object}  ErrorResponse
// @Failure      499      {object}  ErrorResponse "Client went away"
// @Failure      504      {object}  ErrorResponse "Upload timed out"
// @Router       /api/chat/{roomKey}/upload [post]
func (h *Handler) UploadAndSend(c *gin.Context) {
	up, ok := h.upload(c)
	if !ok {
		return
	}

	msg, err := h.Pipeline.SendMessage(c.Request.Context(), c.Param("roomKey"), currentUser(c), roomlog.NewMessage{
		Text:     c.PostForm("text"),
		FileURL:  up.URL,
		FileType: up.ContentType,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// UploadAttachment godoc
// @Summary      Upload a chat attachment
// @Description  Stores the file and returns its URL and content type for a later sendMessage.
// @Tags         chat
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file  formData  file  true  "Attachment"
// @Success      200   {object}  blob.Upload
// @Failure      400   {object}  ErrorResponse
// @Failure      504   {object}  ErrorResponse "Upload timed out"
// @Router       /api/chat/upload [post]
func (h *Handler) UploadAttachment(c *gin.Context) {
	up, ok := h.upload(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, up)
}

func (h *Handler) upload(c *gin.Context) (*blob.Upload, bool) {
	fh, f, err := formFile(c)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	defer f.Close()

	up, err := h.Uploads.Upload(c.Request.Context(), "chat", fh.Filename, fh.Size, f)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return up, true
}

// StreamRoomEvents godoc
// @Summary      Stream a chat room
// @Description  Server-sent events carrying messageReceived envelopes for one room.
// @Tags         realtime
// @Produce      text/event-stream
// @Security     BearerAuth
// @Param        roomKey  path  string  true  "Room key"
// @Success      200
// @Failure      403  {object}  ErrorResponse
// @Router       /api/rooms/{roomKey}/events [get]
func (h *Handler) StreamRoomEvents(c *gin.Context) {
	h.Realtime.StreamSSE(c, currentUser(c), realtime.ChatTopic(c.Param("roomKey")))
}

// ServeWS godoc
// @Summary      Open a websocket
// @Description  Upgrades to a websocket carrying {"type","payload"} envelopes: joinRoom, leaveRoom, sendMessage, joinPostRoom, newComment and ping from the client; messageReceived, commentAdded, pong and error from the server.
// @Tags         realtime
// @Param        token  query  string  true  "JWT"
// @Success      101
// @Failure      401  {object}  ErrorResponse
// @Router       /api/ws [get]
func (h *Handler) ServeWS(c *gin.Context) {
	h.Realtime.ServeWS(c.Writer, c.Request, currentUser(c))
}
