// Package relationship maintains friend edges, pending requests and dismissed
// suggestions. Each user's sets live on that user's own document, so every mirrored
// change is two independent writes; operations are ordered and idempotent so that a
// re-run after a partial failure converges.
package relationship

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

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy bounds the retries of a single store write.
type RetryPolicy struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

var DefaultRetryPolicy = RetryPolicy{
	MaxTries:        3,
	InitialInterval: 50 * time.Millisecond,
	MaxInterval:     500 * time.Millisecond,
}

type Service struct {
	users     store.Users
	relations store.Relations
	profiles  *profile.Directory
	events    events.Publisher
	retry     RetryPolicy
}

func NewService(users store.Users, relations store.Relations, profiles *profile.Directory, pub events.Publisher) *Service {
	if pub == nil {
		pub = events.NewNoopPublisher()
	}
	return &Service{
		users:     users,
		relations: relations,
		profiles:  profiles,
		events:    pub,
		retry:     DefaultRetryPolicy,
	}
}

// WithRetryPolicy replaces the write retry policy.
func (s *Service) WithRetryPolicy(p RetryPolicy) *Service {
	s.retry = p
	return s
}

// write runs op with bounded exponential backoff. A missing document is permanent.
func (s *Service) write(ctx context.Context, what string, op func(context.Context) (bool, error)) (bool, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.retry.InitialInterval
	b.MaxInterval = s.retry.MaxInterval

	changed, err := backoff.Retry(ctx, func() (bool, error) {
		changed, err := op(ctx)
		if errors.Is(err, store.ErrNotFound) {
			return false, backoff.Permanent(err)
		}
		return changed, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(s.retry.MaxTries))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, apperr.NotFound("user not found")
		}
		if ce := apperr.FromContext(ctx.Err(), what+" was interrupted"); ce != nil {
			return false, ce
		}
		return false, apperr.Upstream("failed to "+what, err)
	}
	return changed, nil
}

func (s *Service) requireUser(ctx context.Context, id string) error {
	if _, err := s.users.UserByID(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("user not found")
		}
		return apperr.Upstream("failed to load user", err)
	}
	return nil
}

// pair reads how b appears in a's sets and how a appears in b's sets.
func (s *Service) pair(ctx context.Context, a, b string) (models.Relation, models.Relation, error) {
	ab, err := s.relations.Relation(ctx, a, b)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ab, ab, apperr.NotFound("user not found")
		}
		return ab, ab, apperr.Upstream("failed to load relationship", err)
	}
	ba, err := s.relations.Relation(ctx, b, a)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ab, ba, apperr.NotFound("user not found")
		}
		return ab, ba, apperr.Upstream("failed to load relationship", err)
	}
	return ab, ba, nil
}

func selfError(what string) error {
	return apperr.New(apperr.KindValidation, "SELF_REQUEST", "cannot "+what+" yourself", nil)
}

// SendRequest records a friend request from "from" to "to" and mutually dismisses both
// users from each other's suggestions. Sending never creates a friend edge; when "to"
// already has a request pending with "from", nothing new is recorded.
func (s *Service) SendRequest(ctx context.Context, from, to string) (models.SendStatus, error) {
	status, err := s.sendRequest(ctx, from, to)
	metrics.IncRelationshipOp("send_request", metrics.Status(err))
	return status, err
}

func (s *Service) sendRequest(ctx context.Context, from, to string) (models.SendStatus, error) {
	if from == to {
		return "", selfError("send a friend request to")
	}
	if err := s.requireUser(ctx, to); err != nil {
		return "", err
	}
	fromRel, toRel, err := s.pair(ctx, from, to)
	if err != nil {
		return "", err
	}

	switch {
	case fromRel.Friend || toRel.Friend:
		if _, err := s.completeFriendship(ctx, from, to); err != nil {
			return "", err
		}
		return models.SendStatusAlreadyFriends, nil
	case fromRel.Incoming:
		// "to" already asked; a second request would leave two pending in the pair.
		if err := s.dismissPair(ctx, from, to); err != nil {
			return "", err
		}
		return models.SendStatusIncomingPending, nil
	}

	added, err := s.write(ctx, "record friend request", func(ctx context.Context) (bool, error) {
		return s.relations.AddIncoming(ctx, to, from)
	})
	if err != nil {
		return "", err
	}
	if err := s.dismissPair(ctx, from, to); err != nil {
		return "", err
	}

	if !added {
		return models.SendStatusAlreadyPending, nil
	}
	go events.Emit(context.WithoutCancel(ctx), s.events, events.FriendRequestSent, events.FriendRequestEvent{
		FromUserID: from,
		ToUserID:   to,
		At:         time.Now().UTC(),
	})
	return models.SendStatusSent, nil
}

func (s *Service) dismissPair(ctx context.Context, a, b string) error {
	if _, err := s.write(ctx, "dismiss suggestion", func(ctx context.Context) (bool, error) {
		return s.relations.AddDismissed(ctx, a, b)
	}); err != nil {
		return err
	}
	_, err := s.write(ctx, "dismiss suggestion", func(ctx context.Context) (bool, error) {
		return s.relations.AddDismissed(ctx, b, a)
	})
	return err
}

// completeFriendship writes both edges and clears pending requests in both directions.
// The acceptor's edge is written first and the request is cleared last, so a partial
// run leaves state that AcceptRequest and Reconcile recognise and finish.
func (s *Service) completeFriendship(ctx context.Context, acceptor, requester string) (bool, error) {
	created, err := s.write(ctx, "add friend", func(ctx context.Context) (bool, error) {
		return s.relations.AddFriend(ctx, acceptor, requester)
	})
	if err != nil {
		return false, err
	}
	mirrored, err := s.write(ctx, "add friend", func(ctx context.Context) (bool, error) {
		return s.relations.AddFriend(ctx, requester, acceptor)
	})
	if err != nil {
		return false, err
	}
	if _, err := s.write(ctx, "clear friend request", func(ctx context.Context) (bool, error) {
		return s.relations.RemoveIncoming(ctx, acceptor, requester)
	}); err != nil {
		return false, err
	}
	if _, err := s.write(ctx, "clear friend request", func(ctx context.Context) (bool, error) {
		return s.relations.RemoveIncoming(ctx, requester, acceptor)
	}); err != nil {
		return false, err
	}
	return created || mirrored, nil
}

func (s *Service) emitFriendship(ctx context.Context, a, b string) {
	go events.Emit(context.WithoutCancel(ctx), s.events, events.FriendshipCreated, events.FriendshipEvent{
		UserID:   a,
		FriendID: b,
		At:       time.Now().UTC(),
	})
}

// AcceptRequest makes acceptor and requester friends. It requires a pending request from
// requester, or an edge left behind by an earlier partial accept.
func (s *Service) AcceptRequest(ctx context.Context, acceptor, requester string) error {
	err := s.acceptRequest(ctx, acceptor, requester)
	metrics.IncRelationshipOp("accept_request", metrics.Status(err))
	return err
}

func (s *Service) acceptRequest(ctx context.Context, acceptor, requester string) error {
	if acceptor == requester {
		return selfError("befriend")
	}
	if err := s.requireUser(ctx, requester); err != nil {
		return err
	}
	rel, rev, err := s.pair(ctx, acceptor, requester)
	if err != nil {
		return err
	}
	if !rel.Incoming && !rel.Friend && !rev.Friend {
		return apperr.New(apperr.KindNotFound, "NO_PENDING_REQUEST", "no pending friend request from this user", nil)
	}

	created, err := s.completeFriendship(ctx, acceptor, requester)
	if err != nil {
		return err
	}
	if created {
		s.emitFriendship(ctx, acceptor, requester)
	}
	return nil
}

// DeclineRequest drops a pending request from requester.
func (s *Service) DeclineRequest(ctx context.Context, user, requester string) error {
	removed, err := s.write(ctx, "decline friend request", func(ctx context.Context) (bool, error) {
		return s.relations.RemoveIncoming(ctx, user, requester)
	})
	if err == nil && !removed {
		err = apperr.New(apperr.KindNotFound, "NO_PENDING_REQUEST", "no pending friend request from this user", nil)
	}
	metrics.IncRelationshipOp("decline_request", metrics.Status(err))
	return err
}

// Dismiss hides user and other from each other's suggestions.
func (s *Service) Dismiss(ctx context.Context, user, other string) error {
	if user == other {
		return selfError("dismiss")
	}
	if err := s.requireUser(ctx, other); err != nil {
		return err
	}
	err := s.dismissPair(ctx, user, other)
	metrics.IncRelationshipOp("dismiss", metrics.Status(err))
	return err
}

// ListFriends lists the user's friends in the order they were added.
func (s *Service) ListFriends(ctx context.Context, user string, page store.Page) ([]models.Profile, error) {
	return s.list(ctx, user, page, s.relations.Friends)
}

// ListIncoming lists users with a pending request to user, oldest first.
func (s *Service) ListIncoming(ctx context.Context, user string, page store.Page) ([]models.Profile, error) {
	return s.list(ctx, user, page, s.relations.Incoming)
}

func (s *Service) list(ctx context.Context, user string, page store.Page, fetch func(context.Context, string, store.Page) ([]string, error)) ([]models.Profile, error) {
	ids, err := fetch(ctx, user, page)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Upstream("failed to list relationships", err)
	}
	profiles, err := s.profiles.List(ctx, ids)
	if err != nil {
		return nil, apperr.Upstream("failed to resolve profiles", err)
	}
	return profiles, nil
}

// Dismissed returns the ids hidden from user's suggestions.
func (s *Service) Dismissed(ctx context.Context, user string) ([]string, error) {
	ids, err := s.relations.Dismissed(ctx, user)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Upstream("failed to load dismissed suggestions", err)
	}
	return ids, nil
}

// Reconcile repairs the friend edges recorded on user's document: a missing mirror edge
// is added and requests lingering next to an edge are cleared. It returns the number of
// friendships it had to touch.
func (s *Service) Reconcile(ctx context.Context, user string) (int, error) {
	friends, err := s.relations.Friends(ctx, user, store.Page{})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, apperr.NotFound("user not found")
		}
		return 0, apperr.Upstream("failed to list friends", err)
	}

	repaired := 0
	for _, friend := range friends {
		mine, theirs, err := s.pair(ctx, user, friend)
		if apperr.Is(err, apperr.KindNotFound) {
			continue
		}
		if err != nil {
			return repaired, err
		}
		if theirs.Friend && !mine.Incoming && !theirs.Incoming {
			continue
		}
		if _, err := s.completeFriendship(ctx, user, friend); err != nil {
			return repaired, err
		}
		repaired++
	}
	metrics.IncRelationshipOp("reconcile", metrics.StatusSuccess)
	return repaired, nil
}

// RelationTo reports how target appears in viewer's sets and how viewer appears in
// target's sets.
func (s *Service) RelationTo(ctx context.Context, viewer, target string) (mine, theirs models.Relation, err error) {
	return s.pair(ctx, viewer, target)
}
