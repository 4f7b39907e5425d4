package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/smallbiznis/tradieapp/internal/invoice/domain"
	quotedomain "github.com/smallbiznis/tradieapp/internal/quote/domain"
	"github.com/smallbiznis/tradieapp/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type workItem struct {
	ID    snowflake.ID
	OrgID snowflake.ID
}

// fetchWork returns the next page of candidate rows with id > afterID. Each
// candidate is re-read under a row lock before anything is written.
func (s *Scheduler) fetchWork(ctx context.Context, table, where string, args []any, afterID snowflake.ID) ([]workItem, error) {
	var items []workItem
	query := fmt.Sprintf(
		`SELECT id, org_id
		 FROM %s
		 WHERE (%s) AND id > ?
		 ORDER BY id ASC
		 LIMIT ?`,
		table,
		where,
	)
	args = append(append([]any{}, args...), afterID, s.cfg.BatchSize)
	if err := s.db.WithContext(ctx).Raw(query, args...).Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// sweep pages through every candidate in id order and hands each to fn.
// Rows that fail or stay unchanged are stepped over, so they cannot hold
// back the rows behind them. Per-row errors are joined into the result.
func (s *Scheduler) sweep(ctx context.Context, table, where string, args []any, fn func(item workItem) error) error {
	var (
		afterID snowflake.ID
		rowErr  error
	)
	for {
		items, err := s.fetchWork(ctx, table, where, args, afterID)
		if err != nil {
			if ctx.Err() == nil {
				s.failed(ctx, "scheduler."+table+".fetch.failed", 0, err)
			}
			return errors.Join(rowErr, err)
		}
		for _, item := range items {
			if err := ctx.Err(); err != nil {
				return errors.Join(rowErr, err)
			}
			afterID = item.ID
			rowErr = errors.Join(rowErr, fn(item))
		}
		if len(items) < s.cfg.BatchSize {
			return rowErr
		}
	}
}

// ExpireQuotesJob moves draft and sent quotes past their validity to expired.
func (s *Scheduler) ExpireQuotesJob(ctx context.Context) error {
	ctx, finish := s.beginRun(ctx, jobExpireQuotes)
	defer finish()
	now := s.clock.Now()

	return s.sweep(ctx, "quotes", `status IN (?, ?) AND valid_until < ?`,
		[]any{quotedomain.StatusDraft, quotedomain.StatusSent, now},
		func(item workItem) error {
			expired, err := s.expireQuote(ctx, item, now)
			if err != nil {
				s.failed(ctx, "scheduler.quote.expire.failed", item.OrgID, err, zap.String("quote_id", item.ID.String()))
				return err
			}
			if expired {
				runFromContext(ctx).done()
				s.metrics.RecordQuoteEvent(ctx, "expire", "ok")
			}
			return nil
		})
}

func (s *Scheduler) expireQuote(ctx context.Context, item workItem, now time.Time) (bool, error) {
	var expired bool
	err := db.WithTx(ctx, s.db, item.OrgID, func(tx *gorm.DB) error {
		quote, err := s.quotes.FindForUpdate(ctx, tx, item.OrgID, item.ID)
		if err != nil {
			return err
		}
		if quote == nil || quote.Status == quotedomain.StatusExpired || !quote.IsExpired(now) {
			return nil
		}
		expired = true
		return s.quotes.Update(ctx, tx, item.OrgID, item.ID, map[string]any{
			"status":     quotedomain.StatusExpired,
			"updated_at": now,
		})
	})
	return expired, err
}

// OverdueInvoicesJob reconciles unpaid invoices whose due date has passed.
func (s *Scheduler) OverdueInvoicesJob(ctx context.Context) error {
	ctx, finish := s.beginRun(ctx, jobOverdueInvoices)
	defer finish()
	now := s.clock.Now()

	return s.sweep(ctx, "invoices", `status IN (?, ?, ?) AND due_date < ?`,
		[]any{invoicedomain.StatusDraft, invoicedomain.StatusSent, invoicedomain.StatusPartiallyPaid, now},
		func(item workItem) error {
			status, changed, err := s.reconcileInvoice(ctx, item, now)
			if err != nil {
				s.failed(ctx, "scheduler.invoice.reconcile.failed", item.OrgID, err, zap.String("invoice_id", item.ID.String()))
				return err
			}
			if changed {
				runFromContext(ctx).done()
				s.metrics.RecordInvoiceStatus(ctx, string(status))
			}
			return nil
		})
}

func (s *Scheduler) reconcileInvoice(ctx context.Context, item workItem, now time.Time) (invoicedomain.Status, bool, error) {
	var (
		status  invoicedomain.Status
		changed bool
	)
	err := db.WithTx(ctx, s.db, item.OrgID, func(tx *gorm.DB) error {
		invoice, err := s.invoices.FindForUpdate(ctx, tx, item.OrgID, item.ID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return nil
		}
		amounts, err := s.invoices.PaymentAmounts(ctx, tx, item.OrgID, item.ID)
		if err != nil {
			return err
		}

		previous := invoice.Status
		invoicedomain.Reconcile(invoice, amounts, now)
		status = invoice.Status
		if status == previous {
			return nil
		}
		changed = true
		return s.invoices.Update(ctx, tx, item.OrgID, item.ID, map[string]any{
			"status":      invoice.Status,
			"paid_amount": invoice.PaidAmount,
			"paid_at":     invoice.PaidAt,
			"updated_at":  now,
		})
	})
	return status, changed, err
}
