package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionFor(t *testing.T) {
	success := TransitionFor(OutcomeSuccess)
	assert.Equal(t, StatusPaid, success.To)
	assert.True(t, success.Allows(StatusUnpaid))
	assert.True(t, success.Allows(StatusFailed))
	assert.False(t, success.Allows(StatusPaid))

	failure := TransitionFor(OutcomeFailure)
	assert.Equal(t, StatusFailed, failure.To)
	assert.True(t, failure.Allows(StatusUnpaid))
	assert.False(t, failure.Allows(StatusFailed))
	assert.False(t, failure.Allows(StatusPaid))
}

func TestReachableStates(t *testing.T) {
	reachable := func(from Status) []Status {
		var out []Status
		for _, outcome := range []Outcome{OutcomeSuccess, OutcomeFailure} {
			tr := TransitionFor(outcome)
			if tr.Allows(from) {
				out = append(out, tr.To)
			}
		}
		return out
	}

	assert.ElementsMatch(t, []Status{StatusPaid, StatusFailed}, reachable(StatusUnpaid))
	assert.ElementsMatch(t, []Status{StatusPaid}, reachable(StatusFailed))
	assert.Empty(t, reachable(StatusPaid))
}

func TestTransitionPaidAt(t *testing.T) {
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.FixedZone("x", 3600))

	paidAt := TransitionFor(OutcomeSuccess).PaidAt(now)
	require.NotNil(t, paidAt)
	assert.Equal(t, time.UTC, paidAt.Location())
	assert.True(t, paidAt.Equal(now))

	assert.Nil(t, TransitionFor(OutcomeFailure).PaidAt(now))
}

func TestIsOverdue(t *testing.T) {
	due := time.Date(2026, 5, 10, 15, 0, 0, 0, time.UTC)
	sameDayLate := time.Date(2026, 5, 10, 23, 59, 0, 0, time.UTC)
	nextDay := time.Date(2026, 5, 11, 0, 0, 1, 0, time.UTC)

	cases := []struct {
		name   string
		status Status
		due    *time.Time
		now    time.Time
		want   bool
	}{
		{name: "unpaid before due day ends", status: StatusUnpaid, due: &due, now: sameDayLate, want: false},
		{name: "unpaid after due day", status: StatusUnpaid, due: &due, now: nextDay, want: true},
		{name: "paid is never overdue", status: StatusPaid, due: &due, now: nextDay, want: false},
		{name: "failed is not overdue", status: StatusFailed, due: &due, now: nextDay, want: false},
		{name: "no due date", status: StatusUnpaid, due: nil, now: nextDay, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsOverdue(tc.status, tc.due, tc.now))
		})
	}
}

func TestOverdueFlipsWithoutMutatingStatus(t *testing.T) {
	today := time.Date(2026, 7, 2, 9, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)
	inv := Invoice{Status: StatusUnpaid, DueDate: &yesterday}

	assert.False(t, inv.IsOverdue(yesterday))
	assert.True(t, inv.IsOverdue(today))
	assert.Equal(t, StatusUnpaid, inv.Status)

	view := NewView(inv, today)
	assert.True(t, view.Overdue)
	assert.Equal(t, StatusUnpaid, view.Status)
}

func TestPaymentMethodValid(t *testing.T) {
	for _, m := range []PaymentMethod{PaymentMethodStripe, PaymentMethodPaypal, PaymentMethodBankTransfer, PaymentMethodZelle, PaymentMethodWire} {
		assert.True(t, m.Valid(), m)
	}
	assert.False(t, PaymentMethod("cash").Valid())
}
