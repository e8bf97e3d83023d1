// Package messaging announces pending mediator work over Redis pub/sub.
package messaging

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/wekeepgrowing/custody-gateway/internal/domain/entity"
	"github.com/wekeepgrowing/custody-gateway/pkg/messaging"
)

const defaultPublishTimeout = 2 * time.Second

// RedisPublisher publishes mediator events on a single channel. Failures are
// logged and dropped; the mediator also polls the discovery endpoints.
type RedisPublisher struct {
	client  messaging.RedisClient
	channel string
	timeout time.Duration
	logger  *zap.Logger
}

func NewRedisPublisher(client messaging.RedisClient, channel string, logger *zap.Logger) *RedisPublisher {
	return &RedisPublisher{
		client:  client,
		channel: channel,
		timeout: defaultPublishTimeout,
		logger:  logger.Named("publisher"),
	}
}

// Publish sends event without letting a slow broker hold up the request.
func (p *RedisPublisher) Publish(ctx context.Context, event entity.MediatorEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	if err := p.client.Publish(ctx, p.channel, event); err != nil {
		p.logger.Warn("Failed to publish mediator event",
			zap.String("event", event.Event),
			zap.String("channel", p.channel),
			zap.Error(err))
		return
	}
	p.logger.Debug("Published mediator event",
		zap.String("event", event.Event),
		zap.String("payment_id", event.PaymentID))
}
