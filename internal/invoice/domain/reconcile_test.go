package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var now = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

func sentInvoice(total int64, due time.Time) *Invoice {
	sentAt := now.Add(-72 * time.Hour)
	return &Invoice{TotalAmount: total, DueDate: due, SentAt: &sentAt}
}

func TestReconcileOverdueWhenUnpaidPastDue(t *testing.T) {
	inv := sentInvoice(500, now.AddDate(0, 0, -1))

	Reconcile(inv, nil, now)

	assert.Equal(t, StatusOverdue, inv.Status)
	assert.Equal(t, int64(0), inv.PaidAmount)
	assert.Nil(t, inv.PaidAt)
}

func TestReconcilePaidIsNeverOverdue(t *testing.T) {
	inv := sentInvoice(500, now.AddDate(0, 0, -1))

	Reconcile(inv, []int64{200, 300}, now)

	assert.Equal(t, StatusPaid, inv.Status)
	assert.Equal(t, int64(500), inv.PaidAmount)
	if assert.NotNil(t, inv.PaidAt) {
		assert.True(t, inv.PaidAt.Equal(now))
	}
}

func TestReconcileRoundTrip(t *testing.T) {
	cases := []struct {
		name   string
		sentAt *time.Time
		want   Status
	}{
		{name: "draft", want: StatusDraft},
		{name: "sent", sentAt: &now, want: StatusSent},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			inv := &Invoice{TotalAmount: 1100, DueDate: now.AddDate(0, 0, 14), SentAt: tc.sentAt}
			Reconcile(inv, nil, now)
			before := inv.Status
			assert.Equal(t, tc.want, before)

			Reconcile(inv, []int64{600, 500}, now)
			assert.Equal(t, StatusPaid, inv.Status)
			assert.Equal(t, inv.TotalAmount, inv.PaidAmount)

			Reconcile(inv, nil, now)
			assert.Equal(t, before, inv.Status)
			assert.Equal(t, int64(0), inv.PaidAmount)
			assert.Nil(t, inv.PaidAt)
		})
	}
}

func TestReconcilePartialAndClamp(t *testing.T) {
	inv := sentInvoice(1000, now.AddDate(0, 0, 7))

	Reconcile(inv, []int64{250}, now)
	assert.Equal(t, StatusPartiallyPaid, inv.Status)
	assert.Equal(t, int64(750), inv.Balance())

	Reconcile(inv, []int64{100, -400}, now)
	assert.Equal(t, int64(0), inv.PaidAmount)
	assert.Equal(t, StatusSent, inv.Status)
}

func TestReconcilePartiallyPaidPastDueIsOverdue(t *testing.T) {
	inv := sentInvoice(1000, now.AddDate(0, 0, -3))

	Reconcile(inv, []int64{400}, now)

	assert.Equal(t, StatusOverdue, inv.Status)
	assert.Equal(t, int64(400), inv.PaidAmount)
}

func TestReconcileKeepsOriginalPaidAt(t *testing.T) {
	inv := sentInvoice(300, now.AddDate(0, 0, 7))
	Reconcile(inv, []int64{300}, now)
	first := *inv.PaidAt

	Reconcile(inv, []int64{300}, now.Add(time.Hour))
	assert.True(t, inv.PaidAt.Equal(first))
}

func TestZeroTotalInvoiceIsPaid(t *testing.T) {
	inv := sentInvoice(0, now.AddDate(0, 0, 7))

	Reconcile(inv, nil, now)

	assert.Equal(t, StatusPaid, inv.Status)
	assert.Equal(t, int64(0), inv.Balance())
	if assert.NotNil(t, inv.PaidAt) {
		assert.True(t, inv.PaidAt.Equal(now))
	}
	assert.False(t, inv.Locked())

	lapsed := &Invoice{DueDate: now.AddDate(0, 0, -1)}
	Reconcile(lapsed, nil, now)
	assert.Equal(t, StatusPaid, lapsed.Status)
}

func TestLockedOnlyOnceMoneyIsRecorded(t *testing.T) {
	inv := sentInvoice(500, now.AddDate(0, 0, 7))
	Reconcile(inv, []int64{500}, now)
	assert.True(t, inv.Locked())

	Reconcile(inv, []int64{200}, now)
	assert.False(t, inv.Locked())
}
