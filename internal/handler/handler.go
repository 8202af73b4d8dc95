package handler

import (
	"log"
	"mime/multipart"
	"net/http"

	"bkpconnect/backend/internal/account"
	"bkpconnect/backend/internal/apperr"
	"bkpconnect/backend/internal/auth"
	"bkpconnect/backend/internal/post"
	"bkpconnect/backend/internal/realtime"
	"bkpconnect/backend/internal/relationship"
	"bkpconnect/backend/internal/roomlog"
	"bkpconnect/backend/internal/suggestion"

	"github.com/gin-gonic/gin"
)

// Services are the domain services behind the REST surface.
type Services struct {
	Accounts    *account.Service
	Relations   *relationship.Service
	Suggestions *suggestion.Ledger
	Posts       *post.Service
	Messages    *roomlog.MessageLog
	Comments    *roomlog.CommentLog
	Pipeline    *realtime.Pipeline
	Realtime    *realtime.Server
	Uploads     post.Uploader
}

type Handler struct {
	Services
}

func New(s Services) *Handler {
	return &Handler{Services: s}
}

// region --- DTOs ---

// ErrorResponse represents a generic error response.
type ErrorResponse struct {
	Error string `json:"error" example:"An error message"`
	Code  string `json:"code" example:"VALIDATION_ERROR"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message" example:"ok"`
}

// UserIDInput addresses another user.
type UserIDInput struct {
	UserID string `json:"userId" binding:"required" example:"6f1c0c5e-3b0b-4a52-9a8b-0b3d6c1f2a11"`
}

// endregion

func respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := apperr.Status(kind)
	code, message := apperr.Describe(err)
	if code == "" {
		code = string(kind)
	}
	if status >= http.StatusInternalServerError {
		log.Printf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: message, Code: code})
}

func respondBindError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_INPUT"})
}

func currentUser(c *gin.Context) string {
	return auth.UserID(c)
}

// formFile opens the multipart "file" field.
func formFile(c *gin.Context) (*multipart.FileHeader, multipart.File, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return nil, nil, apperr.New(apperr.KindValidation, "MISSING_FILE", "a multipart \"file\" field is required", err)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, nil, apperr.Upstream("failed to read upload", err)
	}
	return fh, f, nil
}
