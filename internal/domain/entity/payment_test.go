package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func statusPtr(s PaymentStatus) *PaymentStatus { return &s }

func pendingPayment() *Payment {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &Payment{
		ID:        "7b0c7f36-2a43-4d4c-9d59-37b2a3d1e8a4",
		OwnerID:   "owner-1",
		Amount:    1000,
		Status:    PaymentStatusPending,
		ExpiresAt: created.Add(24 * time.Hour),
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestCanTransition(t *testing.T) {
	all := []PaymentStatus{PaymentStatusPending, PaymentStatusCompleted, PaymentStatusExpired, PaymentStatusFailed}
	for _, from := range all {
		for _, to := range all {
			want := from == to || (from == PaymentStatusPending && to != PaymentStatusPending)
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
	assert.False(t, PaymentStatus("refunded").Valid())
}

func TestPaymentApply(t *testing.T) {
	now := time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC)

	t.Run("address is set once", func(t *testing.T) {
		p := pendingPayment()

		change, err := p.Apply(PaymentPatch{Address: strPtr("addr-1")}, now)
		require.NoError(t, err)
		assert.True(t, change.Changed)
		assert.Equal(t, "addr-1", *p.Address)

		change, err = p.Apply(PaymentPatch{Address: strPtr("addr-1")}, now)
		require.NoError(t, err)
		assert.False(t, change.Changed)

		_, err = p.Apply(PaymentPatch{Address: strPtr("addr-2")}, now)
		assert.ErrorIs(t, err, ErrAddressConflict)
		assert.Equal(t, "addr-1", *p.Address)
	})

	t.Run("completion requires proof", func(t *testing.T) {
		p := pendingPayment()

		_, err := p.Apply(PaymentPatch{Status: statusPtr(PaymentStatusCompleted)}, now)
		assert.ErrorIs(t, err, ErrIncompleteCompletion)
		assert.Equal(t, PaymentStatusPending, p.Status)
	})

	t.Run("completion sets proof and defaults completedAt", func(t *testing.T) {
		p := pendingPayment()

		change, err := p.Apply(PaymentPatch{
			Status:          statusPtr(PaymentStatusCompleted),
			SettlementProof: strPtr("tx-abc"),
		}, now)
		require.NoError(t, err)
		assert.True(t, change.Completed)
		assert.Equal(t, PaymentStatusCompleted, p.Status)
		assert.Equal(t, "tx-abc", *p.SettlementProof)
		require.NotNil(t, p.CompletedAt)
		assert.True(t, p.CompletedAt.Equal(now))
	})

	t.Run("staged proof satisfies later completion", func(t *testing.T) {
		p := pendingPayment()

		change, err := p.Apply(PaymentPatch{SettlementProof: strPtr("tx-staged")}, now)
		require.NoError(t, err)
		assert.True(t, change.Changed)
		assert.False(t, change.Completed)
		assert.Equal(t, PaymentStatusPending, p.Status)

		change, err = p.Apply(PaymentPatch{Status: statusPtr(PaymentStatusCompleted)}, now)
		require.NoError(t, err)
		assert.True(t, change.Completed)
		assert.Equal(t, "tx-staged", *p.SettlementProof)
	})

	t.Run("repeated completion is a no-op", func(t *testing.T) {
		p := pendingPayment()
		completedAt := now.Add(-time.Minute)
		_, err := p.Apply(PaymentPatch{
			Status:          statusPtr(PaymentStatusCompleted),
			SettlementProof: strPtr("tx-1"),
			CompletedAt:     &completedAt,
		}, now)
		require.NoError(t, err)

		change, err := p.Apply(PaymentPatch{
			Status:          statusPtr(PaymentStatusCompleted),
			SettlementProof: strPtr("tx-1"),
			CompletedAt:     &completedAt,
		}, now.Add(time.Hour))
		require.NoError(t, err)
		assert.False(t, change.Changed)
		assert.False(t, change.Completed)
	})

	t.Run("completed payment cannot change proof", func(t *testing.T) {
		p := pendingPayment()
		_, err := p.Apply(PaymentPatch{Status: statusPtr(PaymentStatusCompleted), SettlementProof: strPtr("tx-1")}, now)
		require.NoError(t, err)

		_, err = p.Apply(PaymentPatch{Status: statusPtr(PaymentStatusCompleted), SettlementProof: strPtr("tx-2")}, now)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.Equal(t, "tx-1", *p.SettlementProof)

		other := now.Add(time.Hour)
		_, err = p.Apply(PaymentPatch{CompletedAt: &other}, now)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("terminal states are absorbing", func(t *testing.T) {
		for _, terminal := range []PaymentStatus{PaymentStatusExpired, PaymentStatusFailed} {
			p := pendingPayment()
			_, err := p.Apply(PaymentPatch{Status: statusPtr(terminal)}, now)
			require.NoError(t, err)
			assert.Equal(t, terminal, p.Status)

			for _, late := range []PaymentStatus{PaymentStatusPending, PaymentStatusCompleted, PaymentStatusExpired, PaymentStatusFailed} {
				change, err := p.Apply(PaymentPatch{Status: statusPtr(late)}, now)
				require.NoError(t, err, "%s -> %s", terminal, late)
				assert.Equal(t, PaymentChange{}, change)
				assert.Equal(t, terminal, p.Status)
			}
			assert.Nil(t, p.SettlementProof)
			assert.Nil(t, p.CompletedAt)
		}
	})

	t.Run("late status after completion keeps the settlement", func(t *testing.T) {
		p := pendingPayment()
		_, err := p.Apply(PaymentPatch{Status: statusPtr(PaymentStatusCompleted), SettlementProof: strPtr("txhash1")}, now)
		require.NoError(t, err)
		completedAt := *p.CompletedAt

		change, err := p.Apply(PaymentPatch{Status: statusPtr(PaymentStatusFailed)}, now.Add(time.Hour))
		require.NoError(t, err)
		assert.False(t, change.Changed)
		assert.False(t, change.Completed)
		assert.Equal(t, PaymentStatusCompleted, p.Status)
		assert.Equal(t, "txhash1", *p.SettlementProof)
		assert.True(t, p.CompletedAt.Equal(completedAt))

		change, err = p.Apply(PaymentPatch{Status: statusPtr(PaymentStatusExpired), SettlementProof: strPtr("txhash1")}, now)
		require.NoError(t, err)
		assert.False(t, change.Changed)

		_, err = p.Apply(PaymentPatch{Status: statusPtr(PaymentStatusFailed), SettlementProof: strPtr("txhash2")}, now)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("late proof on expired payment is rejected", func(t *testing.T) {
		p := pendingPayment()
		_, err := p.Apply(PaymentPatch{Status: statusPtr(PaymentStatusExpired)}, now)
		require.NoError(t, err)

		_, err = p.Apply(PaymentPatch{Status: statusPtr(PaymentStatusCompleted), SettlementProof: strPtr("tx")}, now)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.Equal(t, PaymentStatusExpired, p.Status)
		assert.Nil(t, p.SettlementProof)
	})

	t.Run("expire with proof is rejected", func(t *testing.T) {
		p := pendingPayment()
		_, err := p.Apply(PaymentPatch{Status: statusPtr(PaymentStatusExpired), SettlementProof: strPtr("tx")}, now)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.Equal(t, PaymentStatusPending, p.Status)
	})

	t.Run("first address on terminal payment is rejected", func(t *testing.T) {
		p := pendingPayment()
		_, err := p.Apply(PaymentPatch{Status: statusPtr(PaymentStatusFailed)}, now)
		require.NoError(t, err)

		_, err = p.Apply(PaymentPatch{Address: strPtr("late-addr")}, now)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.Nil(t, p.Address)
	})

	t.Run("unknown status is rejected", func(t *testing.T) {
		p := pendingPayment()
		_, err := p.Apply(PaymentPatch{Status: statusPtr("refunded")}, now)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestNewCompletionEvent(t *testing.T) {
	p := pendingPayment()
	completedAt := time.Date(2024, 5, 2, 8, 30, 0, 0, time.UTC)
	_, err := p.Apply(PaymentPatch{
		Status:          statusPtr(PaymentStatusCompleted),
		SettlementProof: strPtr("tx-hash"),
		CompletedAt:     &completedAt,
	}, completedAt)
	require.NoError(t, err)

	ev := NewCompletionEvent(p)
	assert.Equal(t, EventPaymentCompleted, ev.Event)
	assert.Equal(t, p.ID, ev.ID)
	assert.Equal(t, int64(1000), ev.Amount)
	assert.Equal(t, "tx-hash", ev.SettlementProof)
	assert.True(t, ev.CompletedAt.Equal(completedAt))
}
