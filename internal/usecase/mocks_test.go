package usecase_test

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/wekeepgrowing/custody-gateway/internal/domain/entity"
	"github.com/wekeepgrowing/custody-gateway/internal/usecase"
)

var testNow = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func testOptions() usecase.Options {
	return usecase.Options{
		Network: "mainnet",
		Now:     func() time.Time { return testNow },
	}
}

// plainHasher stands in for bcrypt to keep the tests fast.
type plainHasher struct{}

func (plainHasher) Hash(secret string) (string, error) { return "plain:" + secret, nil }

func (plainHasher) Verify(secret, digest string) bool { return digest == "plain:"+secret }

// sequenceTokens returns the queued tokens in order, then numbered ones.
type sequenceTokens struct {
	mu     sync.Mutex
	queued []string
	n      int
}

func (g *sequenceTokens) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.queued) > 0 {
		tok := g.queued[0]
		g.queued = g.queued[1:]
		return tok, nil
	}
	g.n++
	return "token-" + strings.Repeat("x", g.n), nil
}

// MockAccountRepository is a mock implementation of AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) Create(ctx context.Context, account *entity.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*entity.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Account), args.Error(1)
}

func (m *MockAccountRepository) GetByIdentity(ctx context.Context, network, identity string) (*entity.Account, error) {
	args := m.Called(ctx, network, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Account), args.Error(1)
}

func (m *MockAccountRepository) GetByAPIToken(ctx context.Context, token string) (*entity.Account, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Account), args.Error(1)
}

func (m *MockAccountRepository) AssignCustodyReference(ctx context.Context, id, reference string) error {
	args := m.Called(ctx, id, reference)
	return args.Error(0)
}

func (m *MockAccountRepository) UpdateBalance(ctx context.Context, id string, balance decimal.Decimal) error {
	args := m.Called(ctx, id, balance)
	return args.Error(0)
}

func (m *MockAccountRepository) UpdateWebhookURL(ctx context.Context, id, url string) error {
	args := m.Called(ctx, id, url)
	return args.Error(0)
}

func (m *MockAccountRepository) ListWithoutCustody(ctx context.Context, network string, limit int) ([]*entity.Account, error) {
	args := m.Called(ctx, network, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Account), args.Error(1)
}

// MockNotifier records webhook notifications.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(url string, event entity.CompletionEvent) {
	m.Called(url, event)
}

// MockPublisher records mediator events.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event entity.MediatorEvent) {
	m.Called(ctx, event)
}
