// Package blob validates uploaded files and forwards them to an object store.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path"
	"strings"
	"time"

	"bkpconnect/backend/internal/apperr"
	"bkpconnect/backend/internal/metrics"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const (
	DefaultMaxSize = 50 * 1024 * 1024
	DefaultTimeout = 10 * time.Minute
)

// ObjectStore persists an object and returns its public URL.
type ObjectStore interface {
	Put(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error)
}

// Upload is the result of a successful upload.
type Upload struct {
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
}

// allowedTypes lists the accepted content types besides image/*, video/* and audio/*.
var allowedTypes = map[string]bool{
	"text/plain":         true,
	"text/csv":           true,
	"application/json":   true,
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
}

// Allowed reports whether contentType may be uploaded.
func Allowed(contentType string) bool {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	for _, prefix := range []string{"image/", "video/", "audio/"} {
		if strings.HasPrefix(contentType, prefix) {
			return true
		}
	}
	return allowedTypes[contentType]
}

// Gateway enforces size and type limits and applies the extended upload deadline.
type Gateway struct {
	store   ObjectStore
	maxSize int64
	timeout time.Duration
}

func NewGateway(store ObjectStore, maxSize int64, timeout time.Duration) *Gateway {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Gateway{store: store, maxSize: maxSize, timeout: timeout}
}

func (g *Gateway) MaxSize() int64 { return g.maxSize }

// Upload stores the file in prefix/ and returns its URL and sniffed content type.
// When accept is given, the sniffed type must also start with one of its entries.
// The stored name always carries the extension of the sniffed type.
// It fails with a Timeout error when the extended deadline passes and with Canceled
// when the caller goes away first.
func (g *Gateway) Upload(ctx context.Context, prefix, filename string, size int64, file io.ReadSeeker, accept ...string) (*Upload, error) {
	up, err := g.upload(ctx, prefix, filename, size, file, accept)
	status := metrics.StatusSuccess
	switch apperr.KindOf(err) {
	case apperr.KindTimeout:
		status = "timeout"
	case apperr.KindCanceled:
		status = "canceled"
	case apperr.KindValidation:
		status = "rejected"
	}
	if err != nil && status == metrics.StatusSuccess {
		status = metrics.StatusFailed
	}
	metrics.IncUpload(status)
	return up, err
}

func (g *Gateway) upload(ctx context.Context, prefix, filename string, size int64, file io.ReadSeeker, accept []string) (*Upload, error) {
	if size <= 0 {
		return nil, apperr.New(apperr.KindValidation, "EMPTY_FILE", "file is empty", nil)
	}
	if size > g.maxSize {
		return nil, apperr.New(apperr.KindValidation, "FILE_TOO_LARGE",
			fmt.Sprintf("file exceeds the %d MB limit", g.maxSize/(1024*1024)), nil)
	}

	mtype, err := mimetype.DetectReader(file)
	if err != nil {
		return nil, apperr.Upstream("failed to read upload", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, apperr.Upstream("failed to read upload", err)
	}
	contentType := mtype.String()
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	if !Allowed(contentType) {
		log.Printf("blob: rejected %q sniffed as %s", filename, contentType)
		return nil, apperr.New(apperr.KindValidation, "UNSUPPORTED_FILE_TYPE",
			"Invalid file type. Only images, videos, audio, and documents are allowed.", nil)
	}
	if !accepts(accept, contentType) {
		return nil, apperr.New(apperr.KindValidation, "UNSUPPORTED_FILE_TYPE",
			fmt.Sprintf("file type %s is not accepted here", contentType), nil)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	name := path.Join(prefix, uuid.NewString()+mtype.Extension())
	url, err := g.store.Put(ctx, name, file, size, contentType)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, apperr.New(apperr.KindTimeout, "UPLOAD_TIMEOUT",
				fmt.Sprintf("upload did not finish within %s", g.timeout), err)
		}
		if ce := apperr.FromContext(ctx.Err(), "upload was canceled"); ce != nil {
			return nil, ce
		}
		log.Printf("blob: put %s failed: %v", name, err)
		return nil, apperr.Upstream("failed to store file", err)
	}
	return &Upload{URL: url, ContentType: contentType}, nil
}

func accepts(accept []string, contentType string) bool {
	if len(accept) == 0 {
		return true
	}
	for _, prefix := range accept {
		if strings.HasPrefix(contentType, prefix) {
			return true
		}
	}
	return false
}
