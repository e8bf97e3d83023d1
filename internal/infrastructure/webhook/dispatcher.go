// Package webhook delivers payment completion events to account webhooks.
package webhook

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/custody-gateway/internal/config"
	"github.com/wekeepgrowing/custody-gateway/internal/domain/entity"
)

// DeliveryResult summarizes one delivery.
type DeliveryResult struct {
	Attempts  int
	Delivered bool
	// LastStatus is the HTTP status of the last attempt, 0 on transport errors.
	LastStatus int
}

// Dispatcher posts completion events with bounded retries and exponential
// backoff. Deliveries run in the background and never block the caller.
type Dispatcher struct {
	client         *resty.Client
	maxAttempts    int
	attemptTimeout time.Duration
	backoffUnit    time.Duration
	sleep          func(ctx context.Context, d time.Duration) error
	logger         *zap.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
	// base is cancelled by Wait when the drain deadline passes.
	base   context.Context
	cancel context.CancelFunc
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithSleep replaces the backoff wait.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(d *Dispatcher) { d.sleep = sleep }
}

func NewDispatcher(cfg config.WebhookConfig, logger *zap.Logger, opts ...Option) *Dispatcher {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	client := resty.New().
		SetHeader("Content-Type", "application/json").
		SetRetryCount(0).
		SetRedirectPolicy(resty.NoRedirectPolicy())
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}

	base, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		client:         client,
		maxAttempts:    maxAttempts,
		attemptTimeout: cfg.AttemptTimeout,
		backoffUnit:    cfg.BackoffUnit,
		sleep:          sleepContext,
		logger:         logger.Named("webhook"),
		base:           base,
		cancel:         cancel,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Notify schedules delivery of event to url and returns immediately.
// Events arriving after Wait has been called are dropped.
func (d *Dispatcher) Notify(url string, event entity.CompletionEvent) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.logger.Warn("Dispatcher closed, dropping webhook",
			zap.String("payment_id", event.ID),
			zap.String("url", url))
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("Webhook delivery panicked",
					zap.String("payment_id", event.ID),
					zap.Any("panic", r))
			}
		}()
		d.Deliver(d.base, url, event)
	}()
}

// Deliver posts event to url until a 2xx response or maxAttempts is reached.
// Between attempt k and k+1 it waits backoffUnit*2^(k-1); there is no wait
// after the last attempt.
func (d *Dispatcher) Deliver(ctx context.Context, url string, event entity.CompletionEvent) DeliveryResult {
	var result DeliveryResult
	log := d.logger.With(zap.String("payment_id", event.ID), zap.String("url", url))

	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		result.Attempts = attempt
		status, err := d.post(ctx, url, event)
		result.LastStatus = status
		if err == nil {
			result.Delivered = true
			log.Info("Webhook delivered", zap.Int("attempt", attempt), zap.Int("status", status))
			return result
		}

		log.Warn("Webhook attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", d.maxAttempts),
			zap.Error(err))

		if attempt == d.maxAttempts {
			break
		}
		if err := d.sleep(ctx, d.backoff(attempt)); err != nil {
			log.Warn("Webhook delivery interrupted", zap.Error(err))
			return result
		}
	}

	log.Error("Webhook delivery abandoned", zap.Int("attempts", result.Attempts))
	return result
}

func (d *Dispatcher) post(ctx context.Context, url string, event entity.CompletionEvent) (int, error) {
	attemptCtx := ctx
	if d.attemptTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, d.attemptTimeout)
		defer cancel()
	}

	resp, err := d.client.R().
		SetContext(attemptCtx).
		SetBody(event).
		Post(url)
	if err != nil {
		status := 0
		if resp != nil {
			// redirects surface here with the 3xx response attached
			status = resp.StatusCode()
		}
		return status, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return resp.StatusCode(), fmt.Errorf("unexpected status %d", resp.StatusCode())
	}
	return resp.StatusCode(), nil
}

// backoff returns the wait after the given 1-based attempt.
func (d *Dispatcher) backoff(attempt int) time.Duration {
	return d.backoffUnit * time.Duration(1<<(attempt-1))
}

// Wait stops accepting new deliveries and blocks until scheduled ones finish
// or ctx is done. Deliveries still running when ctx ends are cancelled.
func (d *Dispatcher) Wait(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
