package relationship

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bkpconnect/backend/internal/apperr"
	"bkpconnect/backend/internal/models"
	"bkpconnect/backend/internal/profile"
	"bkpconnect/backend/internal/store"
	"bkpconnect/backend/internal/store/memstore"
	"bkpconnect/backend/internal/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastRetry = RetryPolicy{MaxTries: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}

// flakyRelations fails AddFriend for one owner a fixed number of times.
type flakyRelations struct {
	store.Relations
	failOwner string
	failures  int
	calls     int
}

func (f *flakyRelations) AddFriend(ctx context.Context, owner, friend string) (bool, error) {
	if owner == f.failOwner {
		f.calls++
		if f.calls <= f.failures {
			return false, errors.New("write timed out")
		}
	}
	return f.Relations.AddFriend(ctx, owner, friend)
}

func newService(t *testing.T) (*Service, *memstore.Store) {
	s := memstore.New()
	return NewService(s, s, profile.NewDirectory(s, nil), nil).WithRetryPolicy(fastRetry), s
}

func relation(t *testing.T, s store.Relations, owner, other string) models.Relation {
	t.Helper()
	rel, err := s.Relation(context.Background(), owner, other)
	require.NoError(t, err)
	return rel
}

func TestSendRequest(t *testing.T) {
	svc, s := newService(t)
	ctx := context.Background()
	a := storetest.NewUser(t, s, "a")
	b := storetest.NewUser(t, s, "b")

	status, err := svc.SendRequest(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SendStatusSent, status)

	status, err = svc.SendRequest(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SendStatusAlreadyPending, status)

	incoming, err := s.Incoming(ctx, b.ID, store.Page{})
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, incoming, "one pending entry after two sends")

	assert.True(t, relation(t, s, a.ID, b.ID).Dismissed)
	assert.True(t, relation(t, s, b.ID, a.ID).Dismissed)
	assert.False(t, relation(t, s, a.ID, b.ID).Friend)
}

func TestSendRequestErrors(t *testing.T) {
	svc, s := newService(t)
	ctx := context.Background()
	a := storetest.NewUser(t, s, "a")

	_, err := svc.SendRequest(ctx, a.ID, a.ID)
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "SELF_REQUEST", e.Code)
	assert.Equal(t, apperr.KindValidation, e.Kind)

	_, err = svc.SendRequest(ctx, a.ID, "ghost")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestSendRequestWithReversePending(t *testing.T) {
	svc, s := newService(t)
	ctx := context.Background()
	a := storetest.NewUser(t, s, "a")
	b := storetest.NewUser(t, s, "b")

	_, err := svc.SendRequest(ctx, a.ID, b.ID)
	require.NoError(t, err)

	status, err := svc.SendRequest(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SendStatusIncomingPending, status)

	assert.False(t, relation(t, s, a.ID, b.ID).Incoming, "no second pending request")
	assert.True(t, relation(t, s, b.ID, a.ID).Incoming)
}

func TestConcurrentOppositeRequests(t *testing.T) {
	for i := 0; i < 50; i++ {
		svc, s := newService(t)
		ctx := context.Background()
		a := storetest.NewUser(t, s, "a")
		b := storetest.NewUser(t, s, "b")

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for j, pair := range [][2]string{{a.ID, b.ID}, {b.ID, a.ID}} {
			wg.Add(1)
			go func(j int, from, to string) {
				defer wg.Done()
				_, errs[j] = svc.SendRequest(ctx, from, to)
			}(j, pair[0], pair[1])
		}
		wg.Wait()
		require.NoError(t, errs[0])
		require.NoError(t, errs[1])

		if relation(t, s, b.ID, a.ID).Incoming {
			require.NoError(t, svc.AcceptRequest(ctx, b.ID, a.ID))
		} else {
			require.NoError(t, svc.AcceptRequest(ctx, a.ID, b.ID))
		}

		for _, u := range []string{a.ID, b.ID} {
			friends, err := svc.ListFriends(ctx, u, store.Page{Limit: 10})
			require.NoError(t, err)
			assert.Len(t, friends, 1)
			incoming, err := s.Incoming(ctx, u, store.Page{})
			require.NoError(t, err)
			assert.Empty(t, incoming)
		}
	}
}

func TestAcceptRequest(t *testing.T) {
	svc, s := newService(t)
	ctx := context.Background()
	a := storetest.NewUser(t, s, "a")
	b := storetest.NewUser(t, s, "b")

	_, err := svc.SendRequest(ctx, a.ID, b.ID)
	require.NoError(t, err)
	require.NoError(t, svc.AcceptRequest(ctx, b.ID, a.ID))

	assert.Equal(t, models.Relation{Friend: true, Dismissed: true}, relation(t, s, b.ID, a.ID))
	assert.Equal(t, models.Relation{Friend: true, Dismissed: true}, relation(t, s, a.ID, b.ID))

	require.NoError(t, svc.AcceptRequest(ctx, b.ID, a.ID), "accept is idempotent")
	friends, err := svc.ListFriends(ctx, b.ID, store.Page{Limit: 10})
	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.Equal(t, a.Username, friends[0].Username)

	status, err := svc.SendRequest(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SendStatusAlreadyFriends, status)
	assert.False(t, relation(t, s, b.ID, a.ID).Incoming)
}

func TestAcceptWithoutRequest(t *testing.T) {
	svc, s := newService(t)
	a := storetest.NewUser(t, s, "a")
	b := storetest.NewUser(t, s, "b")

	err := svc.AcceptRequest(context.Background(), b.ID, a.ID)
	require.Error(t, err)
	e, _ := apperr.As(err)
	assert.Equal(t, "NO_PENDING_REQUEST", e.Code)
	assert.False(t, relation(t, s, a.ID, b.ID).Friend)
}

func TestAcceptClearsBothPendingDirections(t *testing.T) {
	svc, s := newService(t)
	ctx := context.Background()
	a := storetest.NewUser(t, s, "a")
	b := storetest.NewUser(t, s, "b")

	// Two opposite sends that raced past each other's checks.
	_, err := s.AddIncoming(ctx, b.ID, a.ID)
	require.NoError(t, err)
	_, err = s.AddIncoming(ctx, a.ID, b.ID)
	require.NoError(t, err)

	require.NoError(t, svc.AcceptRequest(ctx, b.ID, a.ID))
	assert.Equal(t, models.Relation{Friend: true}, relation(t, s, a.ID, b.ID))
	assert.Equal(t, models.Relation{Friend: true}, relation(t, s, b.ID, a.ID))
}

func TestAcceptRetriesMirroredWrite(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	a := storetest.NewUser(t, s, "a")
	b := storetest.NewUser(t, s, "b")
	flaky := &flakyRelations{Relations: s, failOwner: a.ID, failures: 2}
	svc := NewService(s, flaky, profile.NewDirectory(s, nil), nil).WithRetryPolicy(fastRetry)

	_, err := svc.SendRequest(ctx, a.ID, b.ID)
	require.NoError(t, err)
	require.NoError(t, svc.AcceptRequest(ctx, b.ID, a.ID))

	assert.Equal(t, 3, flaky.calls)
	assert.True(t, relation(t, s, a.ID, b.ID).Friend)
}

func TestPartialAcceptConvergesOnRerun(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	a := storetest.NewUser(t, s, "a")
	b := storetest.NewUser(t, s, "b")
	flaky := &flakyRelations{Relations: s, failOwner: a.ID, failures: 100}
	svc := NewService(s, flaky, profile.NewDirectory(s, nil), nil).WithRetryPolicy(fastRetry)

	_, err := svc.SendRequest(ctx, a.ID, b.ID)
	require.NoError(t, err)

	err = svc.AcceptRequest(ctx, b.ID, a.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))

	// One-sided edge: b has a, a does not have b yet, the request is still pending.
	assert.True(t, relation(t, s, b.ID, a.ID).Friend)
	assert.False(t, relation(t, s, a.ID, b.ID).Friend)

	flaky.failures = 0
	require.NoError(t, svc.AcceptRequest(ctx, b.ID, a.ID))
	assert.Equal(t, models.Relation{Friend: true, Dismissed: true}, relation(t, s, a.ID, b.ID))
	assert.Equal(t, models.Relation{Friend: true, Dismissed: true}, relation(t, s, b.ID, a.ID))
}

func TestReconcileRepairsOneSidedEdges(t *testing.T) {
	svc, s := newService(t)
	ctx := context.Background()
	a := storetest.NewUser(t, s, "a")
	b := storetest.NewUser(t, s, "b")
	c := storetest.NewUser(t, s, "c")

	_, err := s.AddIncoming(ctx, a.ID, b.ID)
	require.NoError(t, err)
	_, err = s.AddFriend(ctx, a.ID, b.ID)
	require.NoError(t, err)
	_, err = svc.SendRequest(ctx, c.ID, a.ID)
	require.NoError(t, err)
	require.NoError(t, svc.AcceptRequest(ctx, a.ID, c.ID))

	repaired, err := svc.Reconcile(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, repaired)
	assert.Equal(t, models.Relation{Friend: true}, relation(t, s, b.ID, a.ID))
	assert.Equal(t, models.Relation{Friend: true}, relation(t, s, a.ID, b.ID))

	repaired, err = svc.Reconcile(ctx, a.ID)
	require.NoError(t, err)
	assert.Zero(t, repaired)
}

func TestDeclineAndDismiss(t *testing.T) {
	svc, s := newService(t)
	ctx := context.Background()
	a := storetest.NewUser(t, s, "a")
	b := storetest.NewUser(t, s, "b")
	c := storetest.NewUser(t, s, "c")

	_, err := svc.SendRequest(ctx, a.ID, b.ID)
	require.NoError(t, err)
	require.NoError(t, svc.DeclineRequest(ctx, b.ID, a.ID))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(svc.DeclineRequest(ctx, b.ID, a.ID)))

	incoming, err := svc.ListIncoming(ctx, b.ID, store.Page{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, incoming)

	require.NoError(t, svc.Dismiss(ctx, a.ID, c.ID))
	dismissed, err := svc.Dismissed(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, dismissed)
}

func TestRelationTo(t *testing.T) {
	svc, s := newService(t)
	ctx := context.Background()
	a := storetest.NewUser(t, s, "a")
	b := storetest.NewUser(t, s, "b")

	_, err := svc.SendRequest(ctx, a.ID, b.ID)
	require.NoError(t, err)

	mine, theirs, err := svc.RelationTo(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Relation{Incoming: true, Dismissed: true}, mine)
	assert.Equal(t, models.Relation{Dismissed: true}, theirs)
}
