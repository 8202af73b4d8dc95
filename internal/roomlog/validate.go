package roomlog

import (
	"strings"
	"unicode/utf8"

	"bkpconnect/backend/internal/apperr"
)

// MaxTextLength caps message and comment text, in characters.
const MaxTextLength = 4000

// NewMessage is the client-supplied part of a chat message.
type NewMessage struct {
	Text     string `json:"text"`
	FileURL  string `json:"fileUrl"`
	FileType string `json:"fileType"`
}

func (m *NewMessage) normalize() error {
	m.Text = strings.TrimSpace(m.Text)
	m.FileURL = strings.TrimSpace(m.FileURL)
	m.FileType = strings.TrimSpace(m.FileType)

	if m.Text == "" && m.FileURL == "" {
		return apperr.New(apperr.KindValidation, "EMPTY_MESSAGE", "message needs text or an attachment", nil)
	}
	if (m.FileURL == "") != (m.FileType == "") {
		return apperr.New(apperr.KindValidation, "INVALID_ATTACHMENT", "attachment needs both fileUrl and fileType", nil)
	}
	return checkLength(m.Text)
}

func normalizeComment(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperr.New(apperr.KindValidation, "EMPTY_COMMENT", "comment text is required", nil)
	}
	return text, checkLength(text)
}

func checkLength(text string) error {
	if utf8.RuneCountInString(text) > MaxTextLength {
		return apperr.New(apperr.KindValidation, "TEXT_TOO_LONG", "text exceeds 4000 characters", nil)
	}
	return nil
}
