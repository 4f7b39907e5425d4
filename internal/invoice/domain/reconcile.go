package domain

import "time"

// StatusFor derives the invoice status from its payment position. An invoice
// is paid once paid >= total, so a zero-total invoice is paid from the start.
// A paid invoice is never reported overdue.
func StatusFor(paid, total int64, sentAt *time.Time, dueDate, now time.Time) Status {
	if paid < 0 {
		paid = 0
	}

	var status Status
	switch {
	case paid >= total:
		return StatusPaid
	case paid > 0:
		status = StatusPartiallyPaid
	case sentAt != nil:
		status = StatusSent
	default:
		status = StatusDraft
	}

	if !dueDate.IsZero() && dueDate.Before(now) && paid < total {
		return StatusOverdue
	}
	return status
}

// Reconcile sets PaidAmount, Status and PaidAt from the full set of payment
// amounts recorded against the invoice.
func Reconcile(inv *Invoice, amounts []int64, now time.Time) {
	var paid int64
	for _, amount := range amounts {
		paid += amount
	}
	if paid < 0 {
		paid = 0
	}

	inv.PaidAmount = paid
	inv.Status = StatusFor(paid, inv.TotalAmount, inv.SentAt, inv.DueDate, now)
	switch {
	case inv.Status != StatusPaid:
		inv.PaidAt = nil
	case inv.PaidAt == nil:
		paidAt := now
		inv.PaidAt = &paidAt
	}
}
