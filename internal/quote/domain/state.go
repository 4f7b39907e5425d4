package domain

import (
	"strings"
	"time"

	"github.com/smallbiznis/tradieapp/pkg/money"
)

// IsExpired reports whether the quote can no longer be accepted because its
// validity has lapsed.
func (q *Quote) IsExpired(now time.Time) bool {
	switch q.Status {
	case StatusExpired:
		return true
	case StatusDraft, StatusSent:
		return now.After(q.ValidUntil)
	default:
		return false
	}
}

// EffectiveStatus is the status as observed at now.
func (q *Quote) EffectiveStatus(now time.Time) Status {
	if q.IsExpired(now) {
		return StatusExpired
	}
	return q.Status
}

// Accept is the only transition into accepted. The deposit gate is checked
// after the terminal-state and expiry checks.
func (q *Quote) Accept(now time.Time, name, email string) error {
	switch q.Status {
	case StatusAccepted:
		return ErrAlreadyAccepted
	case StatusRejected:
		return ErrAlreadyRejected
	}
	if q.IsExpired(now) {
		return ErrExpired
	}
	if q.DepositRequired && !q.DepositPaid {
		return ErrDepositRequired
	}

	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	acceptedAt := now
	q.Status = StatusAccepted
	q.AcceptedAt = &acceptedAt
	q.AcceptedByName = &name
	q.AcceptedByEmail = &email
	return nil
}

// Reject is refused once the quote has expired; expired is terminal.
func (q *Quote) Reject(now time.Time, reason string) error {
	switch q.Status {
	case StatusAccepted:
		return ErrAlreadyAccepted
	case StatusRejected:
		return ErrAlreadyRejected
	}
	if q.IsExpired(now) {
		return ErrExpired
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultRejectionReason
	}
	rejectedAt := now
	q.Status = StatusRejected
	q.RejectedAt = &rejectedAt
	q.RejectionReason = &reason
	return nil
}

// Reopen returns a rejected or expired quote to draft with a fresh validity window.
func (q *Quote) Reopen(now, validUntil time.Time) error {
	if q.Status != StatusRejected && !q.IsExpired(now) {
		return ErrNotReopenable
	}
	if !validUntil.After(now) {
		return ErrInvalidValidUntil
	}

	q.Status = StatusDraft
	q.ValidUntil = validUntil
	q.SentAt = nil
	q.AcceptedAt = nil
	q.AcceptedByName = nil
	q.AcceptedByEmail = nil
	q.RejectedAt = nil
	q.RejectionReason = nil
	return nil
}

// Send moves a draft to sent. Re-sending a sent quote keeps the original timestamp.
func (q *Quote) Send(now time.Time) error {
	switch q.Status {
	case StatusAccepted:
		return ErrAlreadyAccepted
	case StatusRejected:
		return ErrAlreadyRejected
	}
	if q.IsExpired(now) {
		return ErrExpired
	}
	q.Status = StatusSent
	if q.SentAt == nil {
		sentAt := now
		q.SentAt = &sentAt
	}
	return nil
}

// MarkDepositPaid records the deposit. Marking twice keeps the first timestamp.
func (q *Quote) MarkDepositPaid(now time.Time) error {
	if !q.DepositRequired {
		return ErrInvalidDeposit
	}
	if q.Status == StatusRejected {
		return ErrAlreadyRejected
	}
	if q.DepositPaid {
		return nil
	}
	paidAt := now
	q.DepositPaid = true
	q.DepositPaidAt = &paidAt
	return nil
}

// CanTakeDeposit reports whether a deposit checkout may be started at now.
func (q *Quote) CanTakeDeposit(now time.Time) error {
	switch q.Status {
	case StatusAccepted:
		return ErrAlreadyAccepted
	case StatusRejected:
		return ErrAlreadyRejected
	}
	if q.IsExpired(now) {
		return ErrExpired
	}
	if !q.DepositRequired {
		return ErrInvalidDeposit
	}
	if q.DepositPaid {
		return ErrDepositAlreadyPaid
	}
	return nil
}

// ResolveDeposit resolves the deposit in cents. A fixed amount wins over a percentage.
func (q *Quote) ResolveDeposit() (int64, error) {
	var amount int64
	switch {
	case q.DepositAmount != nil:
		amount = *q.DepositAmount
	case q.DepositPercentage != nil:
		amount = money.Percent(q.TotalAmount, *q.DepositPercentage)
	}
	if amount <= 0 {
		return 0, ErrInvalidDeposit
	}
	return amount, nil
}

// Editable reports whether content changes are allowed.
func (q *Quote) Editable() bool {
	return q.Status == StatusDraft
}
