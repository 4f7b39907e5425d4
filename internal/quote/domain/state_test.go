package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)

func float64Ptr(v float64) *float64 { return &v }
func int64Ptr(v int64) *int64       { return &v }

func sentQuote() *Quote {
	sentAt := now.Add(-time.Hour)
	return &Quote{
		Status:      StatusSent,
		TotalAmount: 1000,
		ValidUntil:  now.AddDate(0, 0, 30),
		SentAt:      &sentAt,
	}
}

func TestAcceptRequiresPaidDeposit(t *testing.T) {
	q := sentQuote()
	q.DepositRequired = true
	q.DepositPercentage = float64Ptr(20)

	err := q.Accept(now, "Jo Citizen", "jo@example.com")
	assert.ErrorIs(t, err, ErrDepositRequired)
	assert.Equal(t, StatusSent, q.Status)
	assert.Nil(t, q.AcceptedAt)

	deposit, err := q.ResolveDeposit()
	require.NoError(t, err)
	assert.Equal(t, int64(200), deposit)

	require.NoError(t, q.MarkDepositPaid(now))
	require.NoError(t, q.Accept(now, " Jo Citizen ", "jo@example.com"))
	assert.Equal(t, StatusAccepted, q.Status)
	assert.Equal(t, "Jo Citizen", *q.AcceptedByName)
	assert.Equal(t, "jo@example.com", *q.AcceptedByEmail)
	assert.True(t, q.AcceptedAt.Equal(now))
}

func TestAcceptExpiredQuoteFailsRegardlessOfDeposit(t *testing.T) {
	for _, paid := range []bool{false, true} {
		q := sentQuote()
		q.ValidUntil = now.Add(-time.Minute)
		q.DepositRequired = true
		q.DepositPaid = paid

		assert.ErrorIs(t, q.Accept(now, "Jo", "jo@example.com"), ErrExpired)
		assert.Equal(t, StatusExpired, q.EffectiveStatus(now))
	}

	q := sentQuote()
	q.Status = StatusExpired
	assert.ErrorIs(t, q.Accept(now, "Jo", "jo@example.com"), ErrExpired)
}

func TestAcceptCheckOrder(t *testing.T) {
	accepted := sentQuote()
	accepted.Status = StatusAccepted
	accepted.ValidUntil = now.Add(-time.Hour)
	assert.ErrorIs(t, accepted.Accept(now, "", ""), ErrAlreadyAccepted)

	rejected := sentQuote()
	rejected.Status = StatusRejected
	rejected.DepositRequired = true
	assert.ErrorIs(t, rejected.Accept(now, "", ""), ErrAlreadyRejected)
}

func TestAcceptDraftOnClientsBehalf(t *testing.T) {
	q := &Quote{Status: StatusDraft, TotalAmount: 500, ValidUntil: now.Add(time.Hour)}
	require.NoError(t, q.Accept(now, "Office", "office@example.com"))
	assert.Equal(t, StatusAccepted, q.Status)
}

func TestRejectTwiceFailsSecondTime(t *testing.T) {
	q := sentQuote()

	require.NoError(t, q.Reject(now, ""))
	assert.Equal(t, StatusRejected, q.Status)
	assert.Equal(t, DefaultRejectionReason, *q.RejectionReason)
	assert.True(t, q.RejectedAt.Equal(now))

	assert.ErrorIs(t, q.Reject(now.Add(time.Minute), "changed my mind"), ErrAlreadyRejected)
	assert.Equal(t, DefaultRejectionReason, *q.RejectionReason)
}

func TestRejectCannotOverrideAcceptance(t *testing.T) {
	q := sentQuote()
	require.NoError(t, q.Accept(now, "Jo", "jo@example.com"))

	assert.ErrorIs(t, q.Reject(now, "too expensive"), ErrAlreadyAccepted)
	assert.Equal(t, StatusAccepted, q.Status)
}

func TestRejectLapsedQuoteFails(t *testing.T) {
	lapsed := sentQuote()
	lapsed.ValidUntil = now.Add(-time.Minute)
	assert.ErrorIs(t, lapsed.Reject(now, "too late"), ErrExpired)
	assert.Equal(t, StatusSent, lapsed.Status)
	assert.Nil(t, lapsed.RejectedAt)

	draft := &Quote{Status: StatusDraft, ValidUntil: now.Add(-time.Hour)}
	assert.ErrorIs(t, draft.Reject(now, ""), ErrExpired)

	stored := sentQuote()
	stored.Status = StatusExpired
	assert.ErrorIs(t, stored.Reject(now, ""), ErrExpired)
	assert.Equal(t, StatusExpired, stored.Status)
}

func TestCanTakeDeposit(t *testing.T) {
	withDeposit := func(mutate func(q *Quote)) *Quote {
		q := sentQuote()
		q.DepositRequired = true
		q.DepositPercentage = float64Ptr(20)
		mutate(q)
		return q
	}
	cases := []struct {
		name string
		q    *Quote
		want error
	}{
		{"open", withDeposit(func(*Quote) {}), nil},
		{"accepted", withDeposit(func(q *Quote) { q.Status = StatusAccepted }), ErrAlreadyAccepted},
		{"rejected", withDeposit(func(q *Quote) { q.Status = StatusRejected }), ErrAlreadyRejected},
		{"stored expired", withDeposit(func(q *Quote) { q.Status = StatusExpired }), ErrExpired},
		{"lapsed", withDeposit(func(q *Quote) { q.ValidUntil = now.Add(-time.Second) }), ErrExpired},
		{"not required", withDeposit(func(q *Quote) { q.DepositRequired = false }), ErrInvalidDeposit},
		{"already paid", withDeposit(func(q *Quote) { q.DepositPaid = true }), ErrDepositAlreadyPaid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.q.CanTakeDeposit(now)
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestReopen(t *testing.T) {
	q := sentQuote()
	require.NoError(t, q.Reject(now, "too expensive"))

	validUntil := now.AddDate(0, 0, 30)
	require.NoError(t, q.Reopen(now, validUntil))
	assert.Equal(t, StatusDraft, q.Status)
	assert.Nil(t, q.RejectedAt)
	assert.Nil(t, q.RejectionReason)
	assert.Nil(t, q.SentAt)
	assert.True(t, q.ValidUntil.Equal(validUntil))

	lapsed := sentQuote()
	lapsed.ValidUntil = now.Add(-time.Hour)
	require.NoError(t, lapsed.Reopen(now, validUntil))
	require.NoError(t, lapsed.Accept(now, "Jo", "jo@example.com"))

	assert.ErrorIs(t, lapsed.Reopen(now, validUntil), ErrNotReopenable)
	assert.ErrorIs(t, sentQuote().Reopen(now, validUntil), ErrNotReopenable)
}

func TestResolveDeposit(t *testing.T) {
	cases := []struct {
		name    string
		amount  *int64
		pct     *float64
		total   int64
		want    int64
		wantErr error
	}{
		{name: "fixed wins", amount: int64Ptr(15000), pct: float64Ptr(50), total: 100000, want: 15000},
		{name: "percentage", pct: float64Ptr(12.5), total: 99999, want: 12500},
		{name: "zero fixed", amount: int64Ptr(0), pct: float64Ptr(50), total: 1000, wantErr: ErrInvalidDeposit},
		{name: "negative fixed", amount: int64Ptr(-5), total: 1000, wantErr: ErrInvalidDeposit},
		{name: "zero total", pct: float64Ptr(20), total: 0, wantErr: ErrInvalidDeposit},
		{name: "nothing configured", total: 1000, wantErr: ErrInvalidDeposit},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := &Quote{DepositRequired: true, DepositAmount: tc.amount, DepositPercentage: tc.pct, TotalAmount: tc.total}
			got, err := q.ResolveDeposit()
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestMarkDepositPaid(t *testing.T) {
	q := sentQuote()
	assert.ErrorIs(t, q.MarkDepositPaid(now), ErrInvalidDeposit)

	q.DepositRequired = true
	require.NoError(t, q.MarkDepositPaid(now))
	require.NoError(t, q.MarkDepositPaid(now.Add(time.Hour)))
	assert.True(t, q.DepositPaidAt.Equal(now))
}

func TestSend(t *testing.T) {
	q := &Quote{Status: StatusDraft, ValidUntil: now.Add(time.Hour)}
	require.NoError(t, q.Send(now))
	assert.Equal(t, StatusSent, q.Status)

	require.NoError(t, q.Send(now.Add(time.Minute)))
	assert.True(t, q.SentAt.Equal(now))

	q.ValidUntil = now
	assert.ErrorIs(t, q.Send(now.Add(time.Minute)), ErrExpired)
}
