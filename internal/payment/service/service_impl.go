package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/tradieapp/internal/audit/domain"
	"github.com/smallbiznis/tradieapp/internal/clock"
	invoicedomain "github.com/smallbiznis/tradieapp/internal/invoice/domain"
	obsmetrics "github.com/smallbiznis/tradieapp/internal/observability/metrics"
	"github.com/smallbiznis/tradieapp/internal/orgcontext"
	paymentdomain "github.com/smallbiznis/tradieapp/internal/payment/domain"
	"github.com/smallbiznis/tradieapp/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Repo        paymentdomain.Repository
	InvoiceRepo invoicedomain.Repository
	ObsMetrics  *obsmetrics.Metrics `optional:"true"`
	Audit       auditdomain.Service `optional:"true"`
	Clock       clock.Clock
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	repo        paymentdomain.Repository
	invoiceRepo invoicedomain.Repository
	obsMetrics  *obsmetrics.Metrics
	audit       auditdomain.Service
	clock       clock.Clock
}

func New(p Params) paymentdomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("payment.service"),
		genID:       p.GenID,
		repo:        p.Repo,
		invoiceRepo: p.InvoiceRepo,
		obsMetrics:  p.ObsMetrics,
		audit:       p.Audit,
		clock:       clk,
	}
}

func (s *Service) Record(ctx context.Context, rawInvoiceID string, req paymentdomain.RecordPaymentRequest) (paymentdomain.RecordPaymentResult, error) {
	if req.Amount <= 0 {
		return paymentdomain.RecordPaymentResult{}, paymentdomain.ErrInvalidAmount
	}
	method, ok := paymentdomain.ParseMethod(strings.TrimSpace(req.Method))
	if !ok {
		return paymentdomain.RecordPaymentResult{}, paymentdomain.ErrInvalidMethod
	}

	var payment paymentdomain.Payment
	invoice, err := s.withLedger(ctx, rawInvoiceID, func(tx *gorm.DB, invoice *invoicedomain.Invoice) error {
		now := s.clock.Now()
		paidAt := now
		if req.PaidAt != nil {
			paidAt = req.PaidAt.UTC()
		}
		payment = paymentdomain.Payment{
			ID:         s.genID.Generate(),
			OrgID:      invoice.OrgID,
			InvoiceID:  invoice.ID,
			Amount:     req.Amount,
			Method:     method,
			Reference:  strings.TrimSpace(req.Reference),
			PaidAt:     paidAt,
			RecordedBy: req.RecordedBy,
			CreatedAt:  now,
		}
		return s.repo.Insert(ctx, tx, &payment)
	})
	if err != nil {
		return paymentdomain.RecordPaymentResult{}, err
	}

	s.obsMetrics.RecordPaymentEvent(ctx, "recorded")
	s.recordAudit(ctx, "payment.recorded", invoice, payment.ID, map[string]any{
		"amount":         payment.Amount,
		"method":         string(payment.Method),
		"invoice_status": string(invoice.Status),
	})
	return paymentdomain.RecordPaymentResult{Payment: payment, Invoice: invoice}, nil
}

func (s *Service) List(ctx context.Context, rawInvoiceID string) ([]paymentdomain.Payment, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, paymentdomain.ErrInvalidOrganization
	}
	invoiceID, err := parseID(rawInvoiceID)
	if err != nil {
		return nil, err
	}

	invoice, err := s.invoiceRepo.FindByID(ctx, s.db, orgID, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, paymentdomain.ErrNotFound
	}
	return s.repo.ListByInvoice(ctx, s.db, orgID, invoiceID)
}

func (s *Service) Delete(ctx context.Context, rawInvoiceID, rawPaymentID string) (invoicedomain.Invoice, error) {
	paymentID, err := parseID(rawPaymentID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	invoice, err := s.withLedger(ctx, rawInvoiceID, func(tx *gorm.DB, invoice *invoicedomain.Invoice) error {
		deleted, err := s.repo.Delete(ctx, tx, invoice.OrgID, invoice.ID, paymentID)
		if err != nil {
			return err
		}
		if !deleted {
			return paymentdomain.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	s.obsMetrics.RecordPaymentEvent(ctx, "deleted")
	s.recordAudit(ctx, "payment.deleted", invoice, paymentID, map[string]any{
		"invoice_status": string(invoice.Status),
		"paid_amount":    invoice.PaidAmount,
	})
	return invoice, nil
}

func (s *Service) recordAudit(ctx context.Context, action string, invoice invoicedomain.Invoice, paymentID snowflake.ID, metadata map[string]any) {
	if s.audit == nil {
		return
	}
	metadata["invoice_id"] = invoice.ID.String()
	_ = s.audit.Record(ctx, auditdomain.Entry{
		OrgID:      invoice.OrgID,
		Action:     action,
		TargetType: "payment",
		TargetID:   paymentID,
		Metadata:   metadata,
	})
}

// withLedger locks the invoice row, applies fn, then reconciles the invoice
// from a fresh read of every remaining payment before committing.
func (s *Service) withLedger(ctx context.Context, rawInvoiceID string, fn func(tx *gorm.DB, invoice *invoicedomain.Invoice) error) (invoicedomain.Invoice, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return invoicedomain.Invoice{}, paymentdomain.ErrInvalidOrganization
	}
	invoiceID, err := parseID(rawInvoiceID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	var result invoicedomain.Invoice
	var previous invoicedomain.Status
	err = db.WithTx(ctx, s.db, orgID, func(tx *gorm.DB) error {
		invoice, err := s.invoiceRepo.FindForUpdate(ctx, tx, orgID, invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return paymentdomain.ErrNotFound
		}
		previous = invoice.Status

		if err := fn(tx, invoice); err != nil {
			return err
		}

		payments, err := s.repo.ListByInvoice(ctx, tx, orgID, invoiceID)
		if err != nil {
			return err
		}
		amounts := make([]int64, 0, len(payments))
		for _, p := range payments {
			amounts = append(amounts, p.Amount)
		}

		now := s.clock.Now()
		invoicedomain.Reconcile(invoice, amounts, now)
		invoice.UpdatedAt = now
		if err := s.invoiceRepo.Update(ctx, tx, orgID, invoiceID, map[string]any{
			"paid_amount": invoice.PaidAmount,
			"status":      invoice.Status,
			"paid_at":     invoice.PaidAt,
			"updated_at":  now,
		}); err != nil {
			return err
		}
		result = *invoice
		return nil
	})
	if err != nil {
		if db.IsSerializationFailure(err) {
			s.log.Warn("payment ledger update conflicted",
				zap.String("org_id", orgID.String()),
				zap.String("invoice_id", invoiceID.String()),
			)
			return invoicedomain.Invoice{}, paymentdomain.ErrConcurrentUpdate
		}
		return invoicedomain.Invoice{}, err
	}

	if result.Status != previous {
		s.obsMetrics.RecordInvoiceStatus(ctx, string(result.Status))
	}
	return result, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, paymentdomain.ErrInvalidID
	}
	return id, nil
}
