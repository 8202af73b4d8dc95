package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func (m *mockPublisher) Close() error { return nil }

func TestEmitSwallowsPublishErrors(t *testing.T) {
	pub := new(mockPublisher)
	event := FriendshipEvent{UserID: "a", FriendID: "b"}
	pub.On("Publish", mock.Anything, FriendshipCreated, event).Return(errors.New("broker down"))

	Emit(context.Background(), pub, FriendshipCreated, event)

	pub.AssertExpectations(t)
}

func TestEmitNilPublisher(t *testing.T) {
	Emit(context.Background(), nil, UserSignedUp, UserSignedUpEvent{UserID: "a"})
}
