package profile

import (
	"context"
	"errors"
	"testing"

	"bkpconnect/backend/internal/models"
	"bkpconnect/backend/internal/store/memstore"
	"bkpconnect/backend/internal/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCache struct {
	mock.Mock
}

func (m *mockCache) Get(ctx context.Context, ids []string) (map[string]models.Profile, error) {
	args := m.Called(ctx, ids)
	if v := args.Get(0); v != nil {
		return v.(map[string]models.Profile), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCache) Set(ctx context.Context, profiles []models.Profile) error {
	return m.Called(ctx, profiles).Error(0)
}

func (m *mockCache) Invalidate(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func TestListKeepsOrderAndFillsUnknown(t *testing.T) {
	s := memstore.New()
	a := storetest.NewUser(t, s, "a")
	b := storetest.NewUser(t, s, "b")

	dir := NewDirectory(s, nil)
	got, err := dir.List(context.Background(), []string{b.ID, "ghost", a.ID, b.ID})
	require.NoError(t, err)

	require.Len(t, got, 4)
	assert.Equal(t, b.Username, got[0].Username)
	assert.Equal(t, models.Profile{ID: "ghost"}, got[1])
	assert.Equal(t, a.Username, got[2].Username)
	assert.Equal(t, got[0], got[3])
}

func TestResolveUsesCacheFirst(t *testing.T) {
	s := memstore.New()
	a := storetest.NewUser(t, s, "a")
	b := storetest.NewUser(t, s, "b")

	cached := models.Profile{ID: a.ID, Username: "cached-name"}
	c := new(mockCache)
	c.On("Get", mock.Anything, []string{a.ID, b.ID}).Return(map[string]models.Profile{a.ID: cached}, nil)
	c.On("Set", mock.Anything, []models.Profile{b.Profile()}).Return(nil)

	dir := NewDirectory(s, c)
	got, err := dir.Resolve(context.Background(), []string{a.ID, b.ID})
	require.NoError(t, err)

	assert.Equal(t, "cached-name", got[a.ID].Username)
	assert.Equal(t, b.Username, got[b.ID].Username)
	c.AssertExpectations(t)
}

func TestResolveSurvivesCacheOutage(t *testing.T) {
	s := memstore.New()
	a := storetest.NewUser(t, s, "a")

	c := new(mockCache)
	c.On("Get", mock.Anything, mock.Anything).Return(nil, errors.New("redis down"))
	c.On("Set", mock.Anything, mock.Anything).Return(errors.New("redis down"))

	got, err := NewDirectory(s, c).One(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.Username, got.Username)
}
