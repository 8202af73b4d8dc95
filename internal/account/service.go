// Package account handles signup, login and the user's own profile.
package account

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"bkpconnect/backend/internal/apperr"
	"bkpconnect/backend/internal/events"
	"bkpconnect/backend/internal/models"
	"bkpconnect/backend/internal/post"
	"bkpconnect/backend/internal/profile"
	"bkpconnect/backend/internal/store"
	"bkpconnect/backend/pkg/jwt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// maxPasswordBytes is the longest input bcrypt hashes.
const maxPasswordBytes = 72

// Registrar adds a new user to the suggestion ledger.
type Registrar interface {
	Register(ctx context.Context, userID string) error
}

// Session is returned by signup and login.
type Session struct {
	Token string          `json:"token"`
	User  *models.Profile `json:"user"`
}

type Service struct {
	users       store.Users
	suggestions Registrar
	profiles    *profile.Directory
	uploads     post.Uploader
	events      events.Publisher
	secret      string
	tokenTTL    time.Duration
	now         func() time.Time
}

func NewService(users store.Users, suggestions Registrar, profiles *profile.Directory, uploads post.Uploader, pub events.Publisher, secret string, tokenTTL time.Duration) *Service {
	if pub == nil {
		pub = events.NewNoopPublisher()
	}
	return &Service{
		users:       users,
		suggestions: suggestions,
		profiles:    profiles,
		uploads:     uploads,
		events:      pub,
		secret:      secret,
		tokenTTL:    tokenTTL,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Signup creates a user, registers them in the suggestion ledger and returns a token.
// A failed ledger registration is logged; the account is still created.
func (s *Service) Signup(ctx context.Context, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperr.Validation("username and password are required")
	}
	if len(password) > maxPasswordBytes {
		return nil, apperr.New(apperr.KindValidation, "PASSWORD_TOO_LONG",
			fmt.Sprintf("password must be at most %d bytes", maxPasswordBytes), nil)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Upstream("failed to hash password", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hashedPassword),
		ProfilePic:   models.DefaultProfilePic,
		CreatedAt:    s.now(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, apperr.New(apperr.KindConflict, "USERNAME_TAKEN", "username already exists", err)
		}
		return nil, apperr.Upstream("failed to create user", err)
	}

	if err := s.suggestions.Register(ctx, user.ID); err != nil {
		log.Printf("account: suggestion registration for %s failed: %v", user.ID, err)
	}

	go events.Emit(context.WithoutCancel(ctx), s.events, events.UserSignedUp, events.UserSignedUpEvent{
		UserID:    user.ID,
		Username:  user.Username,
		CreatedAt: user.CreatedAt,
	})

	return s.session(user)
}

// Login checks the password of username and returns a new token.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	user, err := s.users.UserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.New(apperr.KindUnauthorized, "INVALID_CREDENTIALS", "invalid credentials", nil)
		}
		return nil, apperr.Upstream("failed to load user", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.New(apperr.KindUnauthorized, "INVALID_CREDENTIALS", "invalid credentials", nil)
	}
	return s.session(user)
}

func (s *Service) session(user *models.User) (*Session, error) {
	token, err := jwt.GenerateToken(s.secret, user.ID, s.tokenTTL)
	if err != nil {
		return nil, apperr.Upstream("failed to generate token", err)
	}
	p := user.Profile()
	return &Session{Token: token, User: &p}, nil
}

// Profile returns the public profile of userID.
func (s *Service) Profile(ctx context.Context, userID string) (*models.Profile, error) {
	user, err := s.users.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Upstream("failed to load user", err)
	}
	p := user.Profile()
	return &p, nil
}

// UpdateAvatar uploads a new profile picture for userID.
func (s *Service) UpdateAvatar(ctx context.Context, userID, filename string, size int64, file io.ReadSeeker) (*models.Profile, error) {
	up, err := s.uploads.Upload(ctx, "avatars", filename, size, file, "image/")
	if err != nil {
		return nil, err
	}

	if err := s.users.SetProfilePic(ctx, userID, up.URL); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Upstream("failed to update profile picture", err)
	}
	s.profiles.Invalidate(ctx, userID)
	return s.Profile(ctx, userID)
}
