package account

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"bkpconnect/backend/internal/apperr"
	"bkpconnect/backend/internal/blob"
	"bkpconnect/backend/internal/models"
	"bkpconnect/backend/internal/profile"
	"bkpconnect/backend/internal/store"
	"bkpconnect/backend/internal/store/memstore"
	"bkpconnect/backend/internal/suggestion"
	"bkpconnect/backend/pkg/jwt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

// fakeUploader reports contentType as the sniffed type and counts stored objects.
type fakeUploader struct {
	contentType string
	stored      *int
}

func (f fakeUploader) Upload(_ context.Context, prefix, filename string, _ int64, _ io.ReadSeeker, accept ...string) (*blob.Upload, error) {
	if len(accept) > 0 && !strings.HasPrefix(f.contentType, accept[0]) {
		return nil, apperr.New(apperr.KindValidation, "UNSUPPORTED_FILE_TYPE", "unsupported", nil)
	}
	if f.stored != nil {
		*f.stored++
	}
	return &blob.Upload{URL: "/uploads/" + prefix + "/" + filename, ContentType: f.contentType}, nil
}

type failingRegistrar struct{}

func (failingRegistrar) Register(context.Context, string) error { return errors.New("ledger down") }

func newService(t *testing.T, reg Registrar, up fakeUploader) (*Service, *memstore.Store) {
	s := memstore.New()
	dir := profile.NewDirectory(s, nil)
	if reg == nil {
		reg = suggestion.NewLedger(s, s, dir)
	}
	return NewService(s, reg, dir, up, nil, secret, time.Hour), s
}

func TestSignupAndLogin(t *testing.T) {
	svc, s := newService(t, nil, fakeUploader{})
	ctx := context.Background()

	sess, err := svc.Signup(ctx, "  alice ", "password123")
	require.NoError(t, err)
	assert.Equal(t, "alice", sess.User.Username)
	assert.Equal(t, models.DefaultProfilePic, sess.User.ProfilePic)

	sub, err := jwt.ParseToken(secret, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, sub)

	entries, err := s.Suggestions(ctx, store.Page{Limit: 10})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, sess.User.ID, entries[0].UserID)

	_, err = svc.Signup(ctx, "alice", "other")
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	login, err := svc.Login(ctx, "alice", "password123")
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, login.User.ID)

	_, err = svc.Login(ctx, "alice", "wrong")
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
	_, err = svc.Login(ctx, "bob", "password123")
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestSignupSurvivesLedgerFailure(t *testing.T) {
	svc, _ := newService(t, failingRegistrar{}, fakeUploader{})

	sess, err := svc.Signup(context.Background(), "carol", "pw")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
}

func TestUpdateAvatar(t *testing.T) {
	svc, _ := newService(t, nil, fakeUploader{contentType: "image/png"})
	ctx := context.Background()
	sess, err := svc.Signup(ctx, "dave", "pw")
	require.NoError(t, err)

	p, err := svc.UpdateAvatar(ctx, sess.User.ID, "me.png", 3, bytes.NewReader([]byte("png")))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/avatars/me.png", p.ProfilePic)

	stored := 0
	svc.uploads = fakeUploader{contentType: "application/pdf", stored: &stored}
	_, err = svc.UpdateAvatar(ctx, sess.User.ID, "cv.pdf", 3, bytes.NewReader([]byte("pdf")))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Zero(t, stored, "a rejected avatar is never stored")
}

func TestSignupRejectsOverlongPassword(t *testing.T) {
	svc, _ := newService(t, nil, fakeUploader{})

	_, err := svc.Signup(context.Background(), "erin", strings.Repeat("p", maxPasswordBytes+1))
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindValidation, e.Kind)
	assert.Equal(t, "PASSWORD_TOO_LONG", e.Code)

	_, err = svc.Signup(context.Background(), "erin", strings.Repeat("p", maxPasswordBytes))
	assert.NoError(t, err)
}
