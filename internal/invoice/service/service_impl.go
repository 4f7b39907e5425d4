package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/tradieapp/internal/audit/domain"
	clientdomain "github.com/smallbiznis/tradieapp/internal/client/domain"
	"github.com/smallbiznis/tradieapp/internal/clock"
	"github.com/smallbiznis/tradieapp/internal/config"
	"github.com/smallbiznis/tradieapp/internal/invoice/domain"
	jobdomain "github.com/smallbiznis/tradieapp/internal/job/domain"
	"github.com/smallbiznis/tradieapp/internal/observability/metrics"
	"github.com/smallbiznis/tradieapp/internal/orgcontext"
	"github.com/smallbiznis/tradieapp/internal/providers/email"
	publictokendomain "github.com/smallbiznis/tradieapp/internal/publictoken/domain"
	"github.com/smallbiznis/tradieapp/pkg/db"
	"github.com/smallbiznis/tradieapp/pkg/db/pagination"
	"github.com/smallbiznis/tradieapp/pkg/money"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       domain.Repository
	ClientRepo clientdomain.Repository
	JobRepo    jobdomain.Repository
	Tokens     publictokendomain.Service
	Config     config.Config
	Financial  *config.FinancialConfigHolder
	Metrics    *metrics.Metrics   `optional:"true"`
	Audit      auditdomain.Service `optional:"true"`
	Mailer     email.Provider      `optional:"true"`
	Clock      clock.Clock
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       domain.Repository
	clientRepo clientdomain.Repository
	jobRepo    jobdomain.Repository
	tokens     publictokendomain.Service
	publicURL  string
	financial  *config.FinancialConfigHolder
	metrics    *metrics.Metrics
	audit      auditdomain.Service
	mailer     email.Provider
	clock      clock.Clock
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("invoice.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		clientRepo: p.ClientRepo,
		jobRepo:    p.JobRepo,
		tokens:     p.Tokens,
		publicURL:  p.Config.PublicBaseURL,
		financial:  p.Financial,
		metrics:    p.Metrics,
		audit:      p.Audit,
		mailer:     p.Mailer,
		clock:      clk,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateInvoiceRequest) (domain.Invoice, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.Invoice{}, domain.ErrInvalidOrganization
	}

	clientID, err := parseRef(req.ClientID, domain.ErrInvalidClient)
	if err != nil {
		return domain.Invoice{}, err
	}
	client, err := s.clientRepo.FindByID(ctx, s.db, orgID, clientID)
	if err != nil {
		return domain.Invoice{}, err
	}
	if client == nil {
		return domain.Invoice{}, domain.ErrInvalidClient
	}

	var jobID *snowflake.ID
	if strings.TrimSpace(req.JobID) != "" {
		id, err := parseRef(req.JobID, domain.ErrInvalidJob)
		if err != nil {
			return domain.Invoice{}, err
		}
		job, err := s.jobRepo.FindByID(ctx, s.db, orgID, id)
		if err != nil {
			return domain.Invoice{}, err
		}
		if job == nil || job.ClientID != clientID {
			return domain.Invoice{}, domain.ErrInvalidJob
		}
		jobID = &id
	}

	draft := domain.Draft{
		OrgID:     orgID,
		ClientID:  clientID,
		JobID:     jobID,
		LineItems: req.LineItems,
		CreatedBy: req.CreatedBy,
	}

	var invoice domain.Invoice
	err = db.WithTx(ctx, s.db, orgID, func(tx *gorm.DB) error {
		created, err := s.create(ctx, tx, draft, req.IssueDate, req.DueDate)
		if err != nil {
			return err
		}
		invoice = created
		return nil
	})
	if err != nil {
		return domain.Invoice{}, err
	}
	return invoice, nil
}

func (s *Service) CreateInTx(ctx context.Context, tx *gorm.DB, draft domain.Draft) (domain.Invoice, error) {
	if draft.OrgID == 0 {
		return domain.Invoice{}, domain.ErrInvalidOrganization
	}
	if draft.ClientID == 0 {
		return domain.Invoice{}, domain.ErrInvalidClient
	}
	return s.create(ctx, tx, draft, nil, nil)
}

func (s *Service) create(ctx context.Context, tx *gorm.DB, draft domain.Draft, issueDate, dueDate *time.Time) (domain.Invoice, error) {
	now := s.clock.Now()
	cfg := s.financial.Get()

	issue := dateOf(now)
	if issueDate != nil {
		issue = dateOf(*issueDate)
	}
	due := issue.AddDate(0, 0, cfg.InvoiceDueDays)
	if dueDate != nil {
		due = dateOf(*dueDate)
	}
	if due.Before(issue) {
		return domain.Invoice{}, domain.ErrInvalidDueDate
	}

	count, err := s.repo.CountByOrg(ctx, tx, draft.OrgID)
	if err != nil {
		return domain.Invoice{}, err
	}

	invoice := domain.Invoice{
		ID:            s.genID.Generate(),
		OrgID:         draft.OrgID,
		ClientID:      draft.ClientID,
		QuoteID:       draft.QuoteID,
		JobID:         draft.JobID,
		InvoiceNumber: fmt.Sprintf("INV-%05d", count+1),
		IssueDate:     issue,
		DueDate:       due,
		CreatedBy:     draft.CreatedBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	items, err := s.buildLineItems(invoice, draft.LineItems, 0, now)
	if err != nil {
		return domain.Invoice{}, err
	}
	applyTotals(&invoice, items)
	domain.Reconcile(&invoice, nil, now)

	if err := s.repo.Insert(ctx, tx, &invoice); err != nil {
		return domain.Invoice{}, err
	}
	if err := s.repo.InsertLineItems(ctx, tx, items); err != nil {
		return domain.Invoice{}, err
	}
	invoice.LineItems = items
	return invoice, nil
}

func (s *Service) List(ctx context.Context, req domain.ListInvoiceRequest) (domain.ListInvoiceResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.ListInvoiceResponse{}, domain.ErrInvalidOrganization
	}

	var filter domain.ListInvoiceFilter
	if raw := strings.TrimSpace(req.Status); raw != "" {
		status, ok := domain.ParseStatus(raw)
		if !ok {
			return domain.ListInvoiceResponse{}, domain.ErrInvalidStatus
		}
		filter.Status = status
	}
	if raw := strings.TrimSpace(req.ClientID); raw != "" {
		id, err := parseRef(raw, domain.ErrInvalidClient)
		if err != nil {
			return domain.ListInvoiceResponse{}, err
		}
		filter.ClientID = id
	}

	page := pagination.Pagination{PageToken: req.PageToken, PageSize: req.PageSize}
	items, err := s.repo.List(ctx, s.db, orgID, filter, page)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidPageToken) {
			return domain.ListInvoiceResponse{}, domain.ErrInvalidPageToken
		}
		return domain.ListInvoiceResponse{}, err
	}

	items, pageInfo, err := pagination.Finalize(items, page, func(i *domain.Invoice) pagination.Cursor {
		return pagination.NewCursor(i.ID.String(), i.CreatedAt)
	})
	if err != nil {
		return domain.ListInvoiceResponse{}, err
	}

	now := s.clock.Now()
	invoices := make([]domain.Invoice, 0, len(items))
	for _, item := range items {
		item.Status = domain.StatusFor(item.PaidAmount, item.TotalAmount, item.SentAt, item.DueDate, now)
		invoices = append(invoices, *item)
	}
	return domain.ListInvoiceResponse{PageInfo: pageInfo, Invoices: invoices}, nil
}

func (s *Service) GetByID(ctx context.Context, rawID string) (domain.Invoice, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.Invoice{}, domain.ErrInvalidOrganization
	}
	id, err := parseRef(rawID, domain.ErrInvalidID)
	if err != nil {
		return domain.Invoice{}, err
	}
	return s.load(ctx, orgID, id)
}

func (s *Service) load(ctx context.Context, orgID, id snowflake.ID) (domain.Invoice, error) {
	invoice, err := s.repo.FindByID(ctx, s.db, orgID, id)
	if err != nil {
		return domain.Invoice{}, err
	}
	if invoice == nil {
		return domain.Invoice{}, domain.ErrNotFound
	}
	items, err := s.repo.ListLineItems(ctx, s.db, orgID, id)
	if err != nil {
		return domain.Invoice{}, err
	}
	invoice.LineItems = items
	// Overdue is time dependent, so reads report the status as of now.
	invoice.Status = domain.StatusFor(invoice.PaidAmount, invoice.TotalAmount, invoice.SentAt, invoice.DueDate, s.clock.Now())
	return *invoice, nil
}

func (s *Service) Update(ctx context.Context, rawID string, req domain.UpdateInvoiceRequest) (domain.Invoice, error) {
	return s.mutate(ctx, rawID, func(tx *gorm.DB, invoice *domain.Invoice, now time.Time) error {
		if req.IssueDate != nil {
			invoice.IssueDate = dateOf(*req.IssueDate)
		}
		if req.DueDate != nil {
			invoice.DueDate = dateOf(*req.DueDate)
		}
		if invoice.DueDate.Before(invoice.IssueDate) {
			return domain.ErrInvalidDueDate
		}
		return nil
	})
}

func (s *Service) AddLineItem(ctx context.Context, rawID string, line domain.LineInput) (domain.Invoice, error) {
	return s.mutate(ctx, rawID, func(tx *gorm.DB, invoice *domain.Invoice, now time.Time) error {
		if invoice.Locked() {
			return domain.ErrNotEditable
		}
		existing, err := s.repo.ListLineItems(ctx, tx, invoice.OrgID, invoice.ID)
		if err != nil {
			return err
		}
		items, err := s.buildLineItems(*invoice, []domain.LineInput{line}, len(existing), now)
		if err != nil {
			return err
		}
		if err := s.repo.InsertLineItems(ctx, tx, items); err != nil {
			return err
		}
		return s.recomputeTotals(ctx, tx, invoice)
	})
}

func (s *Service) DeleteLineItem(ctx context.Context, rawID, rawLineID string) (domain.Invoice, error) {
	lineID, err := parseRef(rawLineID, domain.ErrInvalidID)
	if err != nil {
		return domain.Invoice{}, err
	}
	return s.mutate(ctx, rawID, func(tx *gorm.DB, invoice *domain.Invoice, now time.Time) error {
		if invoice.Locked() {
			return domain.ErrNotEditable
		}
		deleted, err := s.repo.DeleteLineItem(ctx, tx, invoice.OrgID, invoice.ID, lineID)
		if err != nil {
			return err
		}
		if !deleted {
			return domain.ErrNotFound
		}
		return s.recomputeTotals(ctx, tx, invoice)
	})
}

func (s *Service) Send(ctx context.Context, rawID string) (domain.SendResult, error) {
	var raw string
	invoice, err := s.mutate(ctx, rawID, func(tx *gorm.DB, invoice *domain.Invoice, now time.Time) error {
		if invoice.SentAt == nil {
			sentAt := now
			invoice.SentAt = &sentAt
		}
		token, err := s.tokens.Issue(ctx, tx, invoice.OrgID, publictokendomain.DocumentInvoice, invoice.ID)
		if err != nil {
			return err
		}
		raw = token
		return nil
	})
	if err != nil {
		return domain.SendResult{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, auditdomain.Entry{
			OrgID:      invoice.OrgID,
			Action:     "invoice.sent",
			TargetType: "invoice",
			TargetID:   invoice.ID,
			Metadata: map[string]any{
				"invoice_number": invoice.InvoiceNumber,
				"total_amount":   invoice.TotalAmount,
			},
		})
	}
	result := domain.SendResult{
		Invoice:     invoice,
		PublicToken: raw,
		PublicURL:   s.publicURL + "/i/" + raw,
	}
	s.emailClient(ctx, invoice, result.PublicURL)
	return result, nil
}

// emailClient delivers the public link when the client has an address on
// file. Delivery failures are logged and never fail the send.
func (s *Service) emailClient(ctx context.Context, invoice domain.Invoice, link string) {
	if s.mailer == nil {
		return
	}
	client, err := s.clientRepo.FindByID(ctx, s.db, invoice.OrgID, invoice.ClientID)
	if err != nil || client == nil || strings.TrimSpace(client.Email) == "" {
		return
	}

	data := map[string]any{
		"client_name": client.Name,
		"number":      invoice.InvoiceNumber,
		"total":       money.Format(invoice.TotalAmount),
		"balance":     money.Format(invoice.Balance()),
		"due_date":    invoice.DueDate.Format("2 Jan 2006"),
		"link":        link,
	}
	if err := s.mailer.SendTemplate(ctx, []string{strings.TrimSpace(client.Email)}, "invoice_sent", data); err != nil {
		s.log.Warn("failed to email invoice",
			zap.String("invoice_id", invoice.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *Service) GetPublic(ctx context.Context, raw string) (domain.Invoice, error) {
	token, err := s.tokens.Resolve(ctx, publictokendomain.DocumentInvoice, raw)
	if err != nil {
		if errors.Is(err, publictokendomain.ErrNotFound) {
			return domain.Invoice{}, domain.ErrNotFound
		}
		return domain.Invoice{}, err
	}
	return s.load(ctx, token.OrgID, token.DocumentID)
}

// mutate locks the invoice, applies fn, re-runs reconciliation against the
// stored payments and persists the result in one transaction.
func (s *Service) mutate(ctx context.Context, rawID string, fn func(tx *gorm.DB, invoice *domain.Invoice, now time.Time) error) (domain.Invoice, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.Invoice{}, domain.ErrInvalidOrganization
	}
	id, err := parseRef(rawID, domain.ErrInvalidID)
	if err != nil {
		return domain.Invoice{}, err
	}

	var previous domain.Status
	var current domain.Status
	err = db.WithTx(ctx, s.db, orgID, func(tx *gorm.DB) error {
		invoice, err := s.repo.FindForUpdate(ctx, tx, orgID, id)
		if err != nil {
			return err
		}
		if invoice == nil {
			return domain.ErrNotFound
		}
		previous = invoice.Status

		now := s.clock.Now()
		if err := fn(tx, invoice, now); err != nil {
			return err
		}

		amounts, err := s.repo.PaymentAmounts(ctx, tx, orgID, id)
		if err != nil {
			return err
		}
		domain.Reconcile(invoice, amounts, now)
		current = invoice.Status

		return s.repo.Update(ctx, tx, orgID, id, map[string]any{
			"subtotal":     invoice.Subtotal,
			"gst_amount":   invoice.GSTAmount,
			"total_amount": invoice.TotalAmount,
			"paid_amount":  invoice.PaidAmount,
			"status":       invoice.Status,
			"issue_date":   invoice.IssueDate,
			"due_date":     invoice.DueDate,
			"sent_at":      invoice.SentAt,
			"paid_at":      invoice.PaidAt,
			"updated_at":   now,
		})
	})
	if err != nil {
		if db.IsSerializationFailure(err) {
			s.log.Warn("invoice update conflicted", zap.String("invoice_id", id.String()))
		}
		return domain.Invoice{}, err
	}
	if current != previous {
		s.metrics.RecordInvoiceStatus(ctx, string(current))
	}
	return s.load(ctx, orgID, id)
}

// recomputeTotals derives the aggregates from a fresh read of every line.
func (s *Service) recomputeTotals(ctx context.Context, tx *gorm.DB, invoice *domain.Invoice) error {
	items, err := s.repo.ListLineItems(ctx, tx, invoice.OrgID, invoice.ID)
	if err != nil {
		return err
	}
	applyTotals(invoice, items)
	return nil
}

func (s *Service) buildLineItems(invoice domain.Invoice, lines []domain.LineInput, offset int, now time.Time) ([]domain.LineItem, error) {
	defaultRate := s.financial.Get().DefaultGSTRateBps
	items := make([]domain.LineItem, 0, len(lines))
	for i, line := range lines {
		description := strings.TrimSpace(line.Description)
		if description == "" || line.Quantity <= 0 || line.UnitPrice < 0 {
			return nil, domain.ErrInvalidLineItem
		}
		rate := defaultRate
		if line.GSTRateBps != nil {
			rate = *line.GSTRateBps
		}
		if rate < 0 || rate > money.BasisPoints {
			return nil, domain.ErrInvalidLineItem
		}

		priced := money.Price(money.Line{Quantity: line.Quantity, UnitPrice: line.UnitPrice, GSTRateBps: rate})
		items = append(items, domain.LineItem{
			ID:          s.genID.Generate(),
			OrgID:       invoice.OrgID,
			InvoiceID:   invoice.ID,
			Description: description,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			GSTRateBps:  rate,
			Amount:      priced.Amount,
			GSTAmount:   priced.GST,
			Position:    offset + i,
			CreatedAt:   now,
		})
	}
	return items, nil
}

func applyTotals(invoice *domain.Invoice, items []domain.LineItem) {
	priced := make([]money.Priced, 0, len(items))
	for _, item := range items {
		priced = append(priced, money.Priced{Amount: item.Amount, GST: item.GSTAmount})
	}
	totals := money.Sum(priced)
	invoice.Subtotal = totals.Subtotal
	invoice.GSTAmount = totals.GST
	invoice.TotalAmount = totals.Total
}

func dateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func parseRef(value string, invalid error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, invalid
	}
	return id, nil
}
