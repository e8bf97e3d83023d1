package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/custody-gateway/internal/adapter/repository/memory"
	"github.com/wekeepgrowing/custody-gateway/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/custody-gateway/internal/domain/errors"
	"github.com/wekeepgrowing/custody-gateway/internal/domain/repository"
	"github.com/wekeepgrowing/custody-gateway/internal/usecase"
	apperrors "github.com/wekeepgrowing/custody-gateway/pkg/errors"
)

const webhookURL = "https://merchant.example/hook"

func newOwner(custody bool) *entity.Account {
	a := &entity.Account{
		ID:           "owner-1",
		Network:      "mainnet",
		Identity:     "alice",
		SecretDigest: "plain:correct-horse",
		APIToken:     "owner-token",
		Balance:      decimal.Zero,
		CreatedAt:    testNow,
		UpdatedAt:    testNow,
	}
	if custody {
		ref := "custody-ref"
		hook := webhookURL
		a.CustodyReference = &ref
		a.WebhookURL = &hook
	}
	return a
}

type paymentFixture struct {
	accounts repository.AccountRepository
	payments repository.PaymentRepository
	notifier *MockNotifier
	uc       *usecase.PaymentUsecase
	owner    *entity.Account
}

func newPaymentFixture(t *testing.T, custody bool) *paymentFixture {
	t.Helper()
	store := memory.NewStore()
	f := &paymentFixture{
		accounts: memory.NewAccountRepository(store),
		payments: memory.NewPaymentRepository(store),
		notifier: new(MockNotifier),
		owner:    newOwner(custody),
	}
	require.NoError(t, f.accounts.Create(context.Background(), f.owner))
	f.uc = usecase.NewPaymentUsecase(f.payments, f.accounts, f.notifier, time.Hour, testOptions(), zap.NewNop())
	return f
}

func statusPtr(s entity.PaymentStatus) *entity.PaymentStatus { return &s }

func strPtr(s string) *string { return &s }

func TestPaymentUsecase_CreatePayment(t *testing.T) {
	ctx := context.Background()

	t.Run("requires custody", func(t *testing.T) {
		f := newPaymentFixture(t, false)
		_, err := f.uc.CreatePayment(ctx, f.owner, 100)
		assert.True(t, apperrors.HasCode(err, domainErrors.CodeNoCustodyAssigned))
	})

	t.Run("rejects non positive amounts", func(t *testing.T) {
		f := newPaymentFixture(t, true)
		for _, amount := range []int64{0, -5} {
			_, err := f.uc.CreatePayment(ctx, f.owner, amount)
			assert.True(t, apperrors.HasCode(err, domainErrors.CodeValidation))
		}
	})

	t.Run("creates pending payment", func(t *testing.T) {
		f := newPaymentFixture(t, true)
		p, err := f.uc.CreatePayment(ctx, f.owner, 2500)
		require.NoError(t, err)
		assert.Equal(t, entity.PaymentStatusPending, p.Status)
		assert.Equal(t, int64(2500), p.Amount)
		assert.Nil(t, p.Address)
		assert.Equal(t, testNow.Add(time.Hour), p.ExpiresAt)
		assert.Len(t, p.ID, 36)

		_, err = f.uc.GetPaymentAddress(ctx, f.owner, p.ID)
		assert.True(t, apperrors.HasCode(err, domainErrors.CodeNotGenerated))
	})

	t.Run("publishes payment created", func(t *testing.T) {
		store := memory.NewStore()
		accounts := memory.NewAccountRepository(store)
		owner := newOwner(true)
		require.NoError(t, accounts.Create(ctx, owner))

		publisher := new(MockPublisher)
		publisher.On("Publish", ctx, mock.MatchedBy(func(ev entity.MediatorEvent) bool {
			return ev.Event == entity.EventPaymentCreated && ev.Amount == 10 && ev.Identity == "alice"
		})).Once()
		opts := testOptions()
		opts.Publisher = publisher

		uc := usecase.NewPaymentUsecase(memory.NewPaymentRepository(store), accounts, new(MockNotifier), 0, opts, zap.NewNop())
		p, err := uc.CreatePayment(ctx, owner, 10)
		require.NoError(t, err)
		assert.Equal(t, testNow.Add(usecase.DefaultPaymentTTL), p.ExpiresAt)
		publisher.AssertExpectations(t)
	})
}

func TestPaymentUsecase_Ownership(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture(t, true)

	p, err := f.uc.CreatePayment(ctx, f.owner, 100)
	require.NoError(t, err)

	stranger := &entity.Account{ID: "stranger", Network: "mainnet", Identity: "mallory"}
	_, err = f.uc.GetPayment(ctx, stranger, p.ID)
	assert.True(t, apperrors.HasCode(err, domainErrors.CodeNotFound))
	_, err = f.uc.GetPaymentAddress(ctx, stranger, p.ID)
	assert.True(t, apperrors.HasCode(err, domainErrors.CodeNotFound))

	_, err = f.uc.GetPayment(ctx, f.owner, "00000000-0000-4000-8000-000000000000")
	assert.True(t, apperrors.HasCode(err, domainErrors.CodeNotFound))

	got, err := f.uc.GetPayment(ctx, f.owner, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	list, err := f.uc.ListPayments(ctx, stranger, entity.PaginationParams{})
	require.NoError(t, err)
	assert.Empty(t, list.Data)
	assert.Equal(t, entity.DefaultPageSize, list.Pagination.Limit)

	list, err = f.uc.ListPayments(ctx, f.owner, entity.PaginationParams{Limit: 1000})
	require.NoError(t, err)
	assert.Len(t, list.Data, 1)
	assert.Equal(t, int64(1), list.Pagination.Total)
	assert.Equal(t, entity.MaxPageSize, list.Pagination.Limit)
}

func TestPaymentUsecase_CreateOnBehalf(t *testing.T) {
	ctx := context.Background()
	const id = "7B0C7F36-2A43-4D4C-9D59-37B2A3D1E8A4"

	t.Run("creates with mediator id and address", func(t *testing.T) {
		f := newPaymentFixture(t, true)
		p, err := f.uc.CreateOnBehalf(ctx, id, "alice", 700, strPtr("addr-1"))
		require.NoError(t, err)
		assert.Equal(t, "7b0c7f36-2a43-4d4c-9d59-37b2a3d1e8a4", p.ID)
		assert.Equal(t, f.owner.ID, p.OwnerID)

		addr, err := f.uc.GetPaymentAddress(ctx, f.owner, id)
		require.NoError(t, err)
		assert.Equal(t, "addr-1", addr)

		_, err = f.uc.CreateOnBehalf(ctx, id, "alice", 700, nil)
		assert.True(t, apperrors.HasCode(err, domainErrors.CodeDuplicatePayment))
	})

	t.Run("input errors", func(t *testing.T) {
		f := newPaymentFixture(t, true)

		_, err := f.uc.CreateOnBehalf(ctx, "not-a-uuid", "alice", 700, nil)
		assert.True(t, apperrors.HasCode(err, domainErrors.CodeValidation))

		_, err = f.uc.CreateOnBehalf(ctx, id, "nobody", 700, nil)
		assert.True(t, apperrors.HasCode(err, domainErrors.CodeNotFound))

		_, err = f.uc.CreateOnBehalf(ctx, id, "alice", 0, nil)
		assert.True(t, apperrors.HasCode(err, domainErrors.CodeValidation))
	})

	t.Run("requires custody", func(t *testing.T) {
		f := newPaymentFixture(t, false)
		_, err := f.uc.CreateOnBehalf(ctx, id, "alice", 700, nil)
		assert.True(t, apperrors.HasCode(err, domainErrors.CodeNoCustodyAssigned))
	})
}

func TestPaymentUsecase_ApplyMediatorUpdate(t *testing.T) {
	ctx := context.Background()
	completion := entity.PaymentPatch{
		Status:          statusPtr(entity.PaymentStatusCompleted),
		SettlementProof: strPtr("tx-1"),
	}

	t.Run("completion notifies once", func(t *testing.T) {
		f := newPaymentFixture(t, true)
		p, err := f.uc.CreatePayment(ctx, f.owner, 100)
		require.NoError(t, err)

		f.notifier.On("Notify", webhookURL, mock.MatchedBy(func(ev entity.CompletionEvent) bool {
			return ev.Event == entity.EventPaymentCompleted && ev.ID == p.ID && ev.SettlementProof == "tx-1" && ev.CompletedAt.Equal(testNow)
		})).Once()

		updated, err := f.uc.ApplyMediatorUpdate(ctx, p.ID, completion)
		require.NoError(t, err)
		assert.Equal(t, entity.PaymentStatusCompleted, updated.Status)

		again, err := f.uc.ApplyMediatorUpdate(ctx, p.ID, completion)
		require.NoError(t, err)
		assert.Equal(t, entity.PaymentStatusCompleted, again.Status)

		f.notifier.AssertExpectations(t)
		f.notifier.AssertNumberOfCalls(t, "Notify", 1)
	})

	t.Run("no webhook configured", func(t *testing.T) {
		f := newPaymentFixture(t, true)
		require.NoError(t, f.accounts.UpdateWebhookURL(ctx, f.owner.ID, ""))
		p, err := f.uc.CreatePayment(ctx, f.owner, 100)
		require.NoError(t, err)

		_, err = f.uc.ApplyMediatorUpdate(ctx, p.ID, completion)
		require.NoError(t, err)
		f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
	})

	t.Run("errors map to codes", func(t *testing.T) {
		f := newPaymentFixture(t, true)
		p, err := f.uc.CreatePayment(ctx, f.owner, 100)
		require.NoError(t, err)

		_, err = f.uc.ApplyMediatorUpdate(ctx, "00000000-0000-4000-8000-000000000000", completion)
		assert.True(t, apperrors.HasCode(err, domainErrors.CodeNotFound))

		_, err = f.uc.ApplyMediatorUpdate(ctx, p.ID, entity.PaymentPatch{Status: statusPtr(entity.PaymentStatusCompleted)})
		assert.True(t, apperrors.HasCode(err, domainErrors.CodeIncompleteCompletion))

		_, err = f.uc.ApplyMediatorUpdate(ctx, p.ID, entity.PaymentPatch{Address: strPtr("addr-1")})
		require.NoError(t, err)
		_, err = f.uc.ApplyMediatorUpdate(ctx, p.ID, entity.PaymentPatch{Address: strPtr("addr-2")})
		assert.True(t, apperrors.HasCode(err, domainErrors.CodeAddressConflict))

		_, err = f.uc.ApplyMediatorUpdate(ctx, p.ID, entity.PaymentPatch{Status: statusPtr(entity.PaymentStatusExpired)})
		require.NoError(t, err)
		_, err = f.uc.ApplyMediatorUpdate(ctx, p.ID, completion)
		assert.True(t, apperrors.HasCode(err, domainErrors.CodeInvalidTransition))
	})

	t.Run("out of order pushes are absorbed", func(t *testing.T) {
		f := newPaymentFixture(t, true)
		p, err := f.uc.CreatePayment(ctx, f.owner, 100)
		require.NoError(t, err)
		f.notifier.On("Notify", webhookURL, mock.Anything).Return()

		_, err = f.uc.ApplyMediatorUpdate(ctx, p.ID, completion)
		require.NoError(t, err)
		before, err := f.payments.GetByID(ctx, p.ID)
		require.NoError(t, err)

		for _, late := range []entity.PaymentStatus{entity.PaymentStatusFailed, entity.PaymentStatusExpired, entity.PaymentStatusPending} {
			got, err := f.uc.ApplyMediatorUpdate(ctx, p.ID, entity.PaymentPatch{Status: statusPtr(late)})
			require.NoError(t, err, string(late))
			assert.Equal(t, entity.PaymentStatusCompleted, got.Status)
			assert.Equal(t, "tx-1", *got.SettlementProof)
		}

		after, err := f.payments.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, before.Version, after.Version)
		f.notifier.AssertNumberOfCalls(t, "Notify", 1)

		expired, err := f.uc.CreatePayment(ctx, f.owner, 200)
		require.NoError(t, err)
		_, err = f.uc.ApplyMediatorUpdate(ctx, expired.ID, entity.PaymentPatch{Status: statusPtr(entity.PaymentStatusExpired)})
		require.NoError(t, err)
		got, err := f.uc.ApplyMediatorUpdate(ctx, expired.ID, entity.PaymentPatch{Status: statusPtr(entity.PaymentStatusPending)})
		require.NoError(t, err)
		assert.Equal(t, entity.PaymentStatusExpired, got.Status)
		f.notifier.AssertNumberOfCalls(t, "Notify", 1)
	})

	t.Run("concurrent completions notify once", func(t *testing.T) {
		f := newPaymentFixture(t, true)
		p, err := f.uc.CreatePayment(ctx, f.owner, 100)
		require.NoError(t, err)
		f.notifier.On("Notify", webhookURL, mock.Anything).Return()

		const callers = 8
		var wg sync.WaitGroup
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = f.uc.ApplyMediatorUpdate(ctx, p.ID, completion)
			}()
		}
		wg.Wait()

		f.notifier.AssertNumberOfCalls(t, "Notify", 1)
		stored, err := f.payments.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.PaymentStatusCompleted, stored.Status)
	})

	t.Run("awaiting address discovery", func(t *testing.T) {
		f := newPaymentFixture(t, true)
		first, err := f.uc.CreatePayment(ctx, f.owner, 100)
		require.NoError(t, err)
		second, err := f.uc.CreatePayment(ctx, f.owner, 200)
		require.NoError(t, err)

		_, err = f.uc.ApplyMediatorUpdate(ctx, first.ID, entity.PaymentPatch{Address: strPtr("addr")})
		require.NoError(t, err)

		waiting, err := f.uc.ListAwaitingAddress(ctx, 0)
		require.NoError(t, err)
		require.Len(t, waiting, 1)
		assert.Equal(t, second.ID, waiting[0].ID)
	})
}
