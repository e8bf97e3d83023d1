package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/wekeepgrowing/custody-gateway/internal/domain/entity"
)

// SecretHasher hashes and verifies account secrets.
type SecretHasher interface {
	Hash(secret string) (string, error)
	Verify(secret, digest string) bool
}

// TokenGenerator issues opaque API tokens.
type TokenGenerator interface {
	Generate() (string, error)
}

// Notifier delivers completion events to account webhooks. Notify must
// return immediately; delivery failures are the notifier's concern.
type Notifier interface {
	Notify(url string, event entity.CompletionEvent)
}

// EventPublisher announces work for the mediator. Publishing is best effort.
type EventPublisher interface {
	Publish(ctx context.Context, event entity.MediatorEvent)
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, entity.MediatorEvent) {}

// Options carries collaborators shared by the usecases. Zero fields fall
// back to production defaults.
type Options struct {
	Network   string
	Publisher EventPublisher
	Now       func() time.Time
	NewID     func() string
}

func (o Options) withDefaults() Options {
	if o.Publisher == nil {
		o.Publisher = noopPublisher{}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewID == nil {
		o.NewID = func() string { return uuid.NewString() }
	}
	return o
}
