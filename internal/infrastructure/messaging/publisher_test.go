package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/custody-gateway/internal/domain/entity"
)

// MockRedisClient is a mock implementation of messaging.RedisClient
type MockRedisClient struct {
	mock.Mock
}

func (m *MockRedisClient) Publish(ctx context.Context, channel string, message interface{}) error {
	args := m.Called(ctx, channel, message)
	return args.Error(0)
}

func (m *MockRedisClient) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockRedisClient) Close() error {
	return m.Called().Error(0)
}

func TestRedisPublisher_Publish(t *testing.T) {
	event := entity.MediatorEvent{
		Event:      entity.EventPaymentCreated,
		Network:    "mainnet",
		Identity:   "alice",
		PaymentID:  "p1",
		Amount:     100,
		OccurredAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	t.Run("publishes on channel with deadline", func(t *testing.T) {
		client := new(MockRedisClient)
		client.On("Publish", mock.MatchedBy(func(ctx context.Context) bool {
			_, ok := ctx.Deadline()
			return ok
		}), "gateway:mediator", event).Return(nil).Once()

		NewRedisPublisher(client, "gateway:mediator", zap.NewNop()).Publish(context.Background(), event)
		client.AssertExpectations(t)
	})

	t.Run("survives cancelled request context", func(t *testing.T) {
		client := new(MockRedisClient)
		client.On("Publish", mock.MatchedBy(func(ctx context.Context) bool {
			return ctx.Err() == nil
		}), "gateway:mediator", event).Return(nil).Once()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		NewRedisPublisher(client, "gateway:mediator", zap.NewNop()).Publish(ctx, event)
		client.AssertExpectations(t)
	})

	t.Run("failure is swallowed", func(t *testing.T) {
		client := new(MockRedisClient)
		client.On("Publish", mock.Anything, "gateway:mediator", event).Return(errors.New("broker down")).Once()

		assert.NotPanics(t, func() {
			NewRedisPublisher(client, "gateway:mediator", zap.NewNop()).Publish(context.Background(), event)
		})
		client.AssertExpectations(t)
	})
}
