package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/tradieapp/internal/audit/domain"
	clientdomain "github.com/smallbiznis/tradieapp/internal/client/domain"
	"github.com/smallbiznis/tradieapp/internal/clock"
	"github.com/smallbiznis/tradieapp/internal/config"
	invoicedomain "github.com/smallbiznis/tradieapp/internal/invoice/domain"
	jobdomain "github.com/smallbiznis/tradieapp/internal/job/domain"
	"github.com/smallbiznis/tradieapp/internal/observability/metrics"
	"github.com/smallbiznis/tradieapp/internal/orgcontext"
	"github.com/smallbiznis/tradieapp/internal/providers/email"
	publictokendomain "github.com/smallbiznis/tradieapp/internal/publictoken/domain"
	"github.com/smallbiznis/tradieapp/internal/quote/domain"
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
	Invoices   invoicedomain.Service
	Tokens     publictokendomain.Service
	Config     config.Config
	Financial  *config.FinancialConfigHolder
	Metrics    *metrics.Metrics   `optional:"true"`
	Audit      auditdomain.Service `optional:"true"`
	Mailer     email.Provider      `optional:"true"`
	Clock      clock.Clock
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	repo        domain.Repository
	clientRepo  clientdomain.Repository
	jobRepo     jobdomain.Repository
	invoices    invoicedomain.Service
	tokens      publictokendomain.Service
	publicURL   string
	checkoutURL string
	financial   *config.FinancialConfigHolder
	metrics     *metrics.Metrics
	audit       auditdomain.Service
	mailer      email.Provider
	clock       clock.Clock
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("quote.service"),
		genID:       p.GenID,
		repo:        p.Repo,
		clientRepo:  p.ClientRepo,
		jobRepo:     p.JobRepo,
		invoices:    p.Invoices,
		tokens:      p.Tokens,
		publicURL:   p.Config.PublicBaseURL,
		checkoutURL: p.Config.CheckoutBaseURL,
		financial:   p.Financial,
		metrics:     p.Metrics,
		audit:       p.Audit,
		mailer:      p.Mailer,
		clock:       clk,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateQuoteRequest) (domain.Quote, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.Quote{}, domain.ErrInvalidOrganization
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return domain.Quote{}, domain.ErrInvalidTitle
	}

	clientID, err := parseRef(req.ClientID, domain.ErrInvalidClient)
	if err != nil {
		return domain.Quote{}, err
	}
	client, err := s.clientRepo.FindByID(ctx, s.db, orgID, clientID)
	if err != nil {
		return domain.Quote{}, err
	}
	if client == nil {
		return domain.Quote{}, domain.ErrInvalidClient
	}

	var jobID *snowflake.ID
	if strings.TrimSpace(req.JobID) != "" {
		id, err := parseRef(req.JobID, domain.ErrInvalidJob)
		if err != nil {
			return domain.Quote{}, err
		}
		job, err := s.jobRepo.FindByID(ctx, s.db, orgID, id)
		if err != nil {
			return domain.Quote{}, err
		}
		if job == nil || job.ClientID != clientID {
			return domain.Quote{}, domain.ErrInvalidJob
		}
		jobID = &id
	}

	now := s.clock.Now()
	cfg := s.financial.Get()

	validUntil := now.AddDate(0, 0, cfg.QuoteValidityDays)
	if req.ValidUntil != nil {
		validUntil = req.ValidUntil.UTC()
	}
	if !validUntil.After(now) {
		return domain.Quote{}, domain.ErrInvalidValidUntil
	}

	depositAmount, err := normalizeDepositAmount(req.DepositAmount)
	if err != nil {
		return domain.Quote{}, err
	}
	depositPct, err := normalizeDepositPercentage(req.DepositPercentage)
	if err != nil {
		return domain.Quote{}, err
	}
	if req.DepositRequired && depositAmount == nil && depositPct == nil && cfg.DefaultDepositPercentage > 0 {
		pct := float64(cfg.DefaultDepositPercentage)
		depositPct = &pct
	}

	quote := domain.Quote{
		ID:                s.genID.Generate(),
		OrgID:             orgID,
		ClientID:          clientID,
		JobID:             jobID,
		Title:             title,
		Status:            domain.StatusDraft,
		DepositRequired:   req.DepositRequired,
		DepositAmount:     depositAmount,
		DepositPercentage: depositPct,
		ValidUntil:        validUntil,
		CreatedBy:         req.CreatedBy,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	items, err := s.buildLineItems(quote, req.LineItems, 0, now)
	if err != nil {
		return domain.Quote{}, err
	}
	applyTotals(&quote, items)

	err = db.WithTx(ctx, s.db, orgID, func(tx *gorm.DB) error {
		count, err := s.repo.CountByOrg(ctx, tx, orgID)
		if err != nil {
			return err
		}
		quote.QuoteNumber = fmt.Sprintf("Q-%05d", count+1)
		if err := s.repo.Insert(ctx, tx, &quote); err != nil {
			return err
		}
		return s.repo.InsertLineItems(ctx, tx, items)
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Quote{}, domain.ErrConcurrentUpdate
		}
		return domain.Quote{}, err
	}

	s.metrics.RecordQuoteEvent(ctx, "created", "ok")
	quote.LineItems = items
	return quote, nil
}

func (s *Service) List(ctx context.Context, req domain.ListQuoteRequest) (domain.ListQuoteResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.ListQuoteResponse{}, domain.ErrInvalidOrganization
	}

	var filter domain.ListQuoteFilter
	if raw := strings.TrimSpace(req.Status); raw != "" {
		status, ok := domain.ParseStatus(raw)
		if !ok {
			return domain.ListQuoteResponse{}, domain.ErrInvalidStatus
		}
		filter.Status = status
	}
	if raw := strings.TrimSpace(req.ClientID); raw != "" {
		id, err := parseRef(raw, domain.ErrInvalidClient)
		if err != nil {
			return domain.ListQuoteResponse{}, err
		}
		filter.ClientID = id
	}

	page := pagination.Pagination{PageToken: req.PageToken, PageSize: req.PageSize}
	items, err := s.repo.List(ctx, s.db, orgID, filter, page)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidPageToken) {
			return domain.ListQuoteResponse{}, domain.ErrInvalidPageToken
		}
		return domain.ListQuoteResponse{}, err
	}

	items, pageInfo, err := pagination.Finalize(items, page, func(q *domain.Quote) pagination.Cursor {
		return pagination.NewCursor(q.ID.String(), q.CreatedAt)
	})
	if err != nil {
		return domain.ListQuoteResponse{}, err
	}

	now := s.clock.Now()
	quotes := make([]domain.Quote, 0, len(items))
	for _, item := range items {
		item.Status = item.EffectiveStatus(now)
		quotes = append(quotes, *item)
	}
	return domain.ListQuoteResponse{PageInfo: pageInfo, Quotes: quotes}, nil
}

func (s *Service) GetByID(ctx context.Context, rawID string) (domain.Quote, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.Quote{}, domain.ErrInvalidOrganization
	}
	id, err := parseRef(rawID, domain.ErrInvalidID)
	if err != nil {
		return domain.Quote{}, err
	}
	return s.load(ctx, orgID, id)
}

func (s *Service) load(ctx context.Context, orgID, id snowflake.ID) (domain.Quote, error) {
	quote, err := s.repo.FindByID(ctx, s.db, orgID, id)
	if err != nil {
		return domain.Quote{}, err
	}
	if quote == nil {
		return domain.Quote{}, domain.ErrNotFound
	}
	items, err := s.repo.ListLineItems(ctx, s.db, orgID, id)
	if err != nil {
		return domain.Quote{}, err
	}
	quote.LineItems = items
	quote.Status = quote.EffectiveStatus(s.clock.Now())
	return *quote, nil
}

func (s *Service) Update(ctx context.Context, rawID string, req domain.UpdateQuoteRequest) (domain.Quote, error) {
	return s.edit(ctx, rawID, func(tx *gorm.DB, q *domain.Quote, now time.Time) (map[string]any, error) {
		fields := map[string]any{}
		if req.Title != nil {
			title := strings.TrimSpace(*req.Title)
			if title == "" {
				return nil, domain.ErrInvalidTitle
			}
			fields["title"] = title
		}
		if req.ValidUntil != nil {
			validUntil := req.ValidUntil.UTC()
			if !validUntil.After(now) {
				return nil, domain.ErrInvalidValidUntil
			}
			fields["valid_until"] = validUntil
		}
		if req.DepositRequired != nil {
			fields["deposit_required"] = *req.DepositRequired
			if !*req.DepositRequired {
				fields["deposit_paid"] = false
				fields["deposit_paid_at"] = nil
			}
		}
		if req.DepositAmount != nil {
			amount, err := normalizeDepositAmount(req.DepositAmount)
			if err != nil {
				return nil, err
			}
			fields["deposit_amount"] = amount
		}
		if req.DepositPercentage != nil {
			pct, err := normalizeDepositPercentage(req.DepositPercentage)
			if err != nil {
				return nil, err
			}
			fields["deposit_percentage"] = pct
		}
		return fields, nil
	})
}

func (s *Service) AddLineItem(ctx context.Context, rawID string, line domain.LineInput) (domain.Quote, error) {
	return s.edit(ctx, rawID, func(tx *gorm.DB, q *domain.Quote, now time.Time) (map[string]any, error) {
		existing, err := s.repo.ListLineItems(ctx, tx, q.OrgID, q.ID)
		if err != nil {
			return nil, err
		}
		items, err := s.buildLineItems(*q, []domain.LineInput{line}, len(existing), now)
		if err != nil {
			return nil, err
		}
		if err := s.repo.InsertLineItems(ctx, tx, items); err != nil {
			return nil, err
		}
		return s.recomputeTotals(ctx, tx, q)
	})
}

func (s *Service) DeleteLineItem(ctx context.Context, rawID, rawLineID string) (domain.Quote, error) {
	lineID, err := parseRef(rawLineID, domain.ErrInvalidID)
	if err != nil {
		return domain.Quote{}, err
	}
	return s.edit(ctx, rawID, func(tx *gorm.DB, q *domain.Quote, now time.Time) (map[string]any, error) {
		deleted, err := s.repo.DeleteLineItem(ctx, tx, q.OrgID, q.ID, lineID)
		if err != nil {
			return nil, err
		}
		if !deleted {
			return nil, domain.ErrNotFound
		}
		return s.recomputeTotals(ctx, tx, q)
	})
}

func (s *Service) Send(ctx context.Context, rawID string) (domain.SendResult, error) {
	orgID, id, err := s.scope(ctx, rawID)
	if err != nil {
		return domain.SendResult{}, err
	}

	var raw string
	quote, err := s.transition(ctx, orgID, id, "sent", func(tx *gorm.DB, q *domain.Quote, now time.Time) error {
		if err := q.Send(now); err != nil {
			return err
		}
		token, err := s.tokens.Issue(ctx, tx, orgID, publictokendomain.DocumentQuote, id)
		if err != nil {
			return err
		}
		raw = token
		return nil
	})
	if err != nil {
		return domain.SendResult{}, err
	}
	result := domain.SendResult{
		Quote:       quote,
		PublicToken: raw,
		PublicURL:   s.publicURL + "/q/" + raw,
	}
	s.emailClient(ctx, quote, result.PublicURL)
	return result, nil
}

// emailClient delivers the public link when the client has an address on
// file. Delivery failures are logged and never fail the send.
func (s *Service) emailClient(ctx context.Context, quote domain.Quote, link string) {
	if s.mailer == nil {
		return
	}
	client, err := s.clientRepo.FindByID(ctx, s.db, quote.OrgID, quote.ClientID)
	if err != nil || client == nil || strings.TrimSpace(client.Email) == "" {
		return
	}

	data := map[string]any{
		"client_name": client.Name,
		"number":      quote.QuoteNumber,
		"title":       quote.Title,
		"total":       money.Format(quote.TotalAmount),
		"valid_until": quote.ValidUntil.Format("2 Jan 2006"),
		"link":        link,
	}
	if quote.DepositRequired {
		if amount, err := quote.ResolveDeposit(); err == nil && amount > 0 {
			data["deposit"] = money.Format(amount)
		}
	}
	if err := s.mailer.SendTemplate(ctx, []string{strings.TrimSpace(client.Email)}, "quote_sent", data); err != nil {
		s.log.Warn("failed to email quote",
			zap.String("quote_id", quote.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *Service) Accept(ctx context.Context, rawID string, req domain.AcceptRequest) (domain.Quote, error) {
	orgID, id, err := s.scope(ctx, rawID)
	if err != nil {
		return domain.Quote{}, err
	}
	return s.accept(ctx, orgID, id, req)
}

func (s *Service) Reject(ctx context.Context, rawID, reason string) (domain.Quote, error) {
	orgID, id, err := s.scope(ctx, rawID)
	if err != nil {
		return domain.Quote{}, err
	}
	return s.reject(ctx, orgID, id, reason)
}

func (s *Service) Reopen(ctx context.Context, rawID string) (domain.Quote, error) {
	orgID, id, err := s.scope(ctx, rawID)
	if err != nil {
		return domain.Quote{}, err
	}
	return s.transition(ctx, orgID, id, "reopened", func(tx *gorm.DB, q *domain.Quote, now time.Time) error {
		validUntil := now.AddDate(0, 0, s.financial.Get().QuoteValidityDays)
		if err := q.Reopen(now, validUntil); err != nil {
			return err
		}
		return s.tokens.Revoke(ctx, tx, orgID, publictokendomain.DocumentQuote, id)
	})
}

func (s *Service) MarkDepositPaid(ctx context.Context, rawID string) (domain.Quote, error) {
	orgID, id, err := s.scope(ctx, rawID)
	if err != nil {
		return domain.Quote{}, err
	}
	return s.transition(ctx, orgID, id, "deposit_paid", func(tx *gorm.DB, q *domain.Quote, now time.Time) error {
		return q.MarkDepositPaid(now)
	})
}

func (s *Service) CreateDepositLink(ctx context.Context, rawID string) (domain.DepositLink, error) {
	orgID, id, err := s.scope(ctx, rawID)
	if err != nil {
		return domain.DepositLink{}, err
	}
	quote, err := s.load(ctx, orgID, id)
	if err != nil {
		return domain.DepositLink{}, err
	}
	return s.depositLink(ctx, quote, "")
}

func (s *Service) ConvertToInvoice(ctx context.Context, rawID string, actor snowflake.ID) (invoicedomain.Invoice, error) {
	orgID, id, err := s.scope(ctx, rawID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	var invoice invoicedomain.Invoice
	_, err = s.transition(ctx, orgID, id, "converted", func(tx *gorm.DB, q *domain.Quote, now time.Time) error {
		if q.ConvertedInvoiceID != nil {
			return domain.ErrAlreadyConverted
		}
		if q.Status != domain.StatusAccepted {
			return domain.ErrNotAccepted
		}

		items, err := s.repo.ListLineItems(ctx, tx, orgID, id)
		if err != nil {
			return err
		}
		lines := make([]invoicedomain.LineInput, 0, len(items))
		for _, item := range items {
			rate := item.GSTRateBps
			lines = append(lines, invoicedomain.LineInput{
				Description: item.Description,
				Quantity:    item.Quantity,
				UnitPrice:   item.UnitPrice,
				GSTRateBps:  &rate,
			})
		}

		quoteID := q.ID
		invoice, err = s.invoices.CreateInTx(ctx, tx, invoicedomain.Draft{
			OrgID:     orgID,
			ClientID:  q.ClientID,
			QuoteID:   &quoteID,
			JobID:     q.JobID,
			LineItems: lines,
			CreatedBy: actor,
		})
		if err != nil {
			return err
		}
		q.ConvertedInvoiceID = &invoice.ID
		return nil
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	return invoice, nil
}

func (s *Service) GetPublic(ctx context.Context, raw string) (domain.Quote, error) {
	token, err := s.resolve(ctx, raw)
	if err != nil {
		return domain.Quote{}, err
	}
	return s.load(ctx, token.OrgID, token.DocumentID)
}

func (s *Service) AcceptPublic(ctx context.Context, raw string, req domain.AcceptRequest) (domain.Quote, error) {
	token, err := s.resolve(ctx, raw)
	if err != nil {
		return domain.Quote{}, err
	}
	return s.accept(ctx, token.OrgID, token.DocumentID, req)
}

func (s *Service) RejectPublic(ctx context.Context, raw, reason string) (domain.Quote, error) {
	token, err := s.resolve(ctx, raw)
	if err != nil {
		return domain.Quote{}, err
	}
	return s.reject(ctx, token.OrgID, token.DocumentID, reason)
}

func (s *Service) CreatePublicDepositLink(ctx context.Context, raw string) (domain.DepositLink, error) {
	token, err := s.resolve(ctx, raw)
	if err != nil {
		return domain.DepositLink{}, err
	}
	quote, err := s.load(ctx, token.OrgID, token.DocumentID)
	if err != nil {
		return domain.DepositLink{}, err
	}
	return s.depositLink(ctx, quote, strings.TrimSpace(raw))
}

// accept is shared by the dashboard and public routes so the deposit gate
// in Quote.Accept applies to both.
func (s *Service) accept(ctx context.Context, orgID, id snowflake.ID, req domain.AcceptRequest) (domain.Quote, error) {
	return s.transition(ctx, orgID, id, "accepted", func(tx *gorm.DB, q *domain.Quote, now time.Time) error {
		return q.Accept(now, req.Name, req.Email)
	})
}

func (s *Service) reject(ctx context.Context, orgID, id snowflake.ID, reason string) (domain.Quote, error) {
	return s.transition(ctx, orgID, id, "rejected", func(tx *gorm.DB, q *domain.Quote, now time.Time) error {
		return q.Reject(now, reason)
	})
}

func (s *Service) depositLink(ctx context.Context, quote domain.Quote, token string) (domain.DepositLink, error) {
	var amount int64
	err := quote.CanTakeDeposit(s.clock.Now())
	if err == nil {
		amount, err = quote.ResolveDeposit()
	}
	if err != nil {
		s.metrics.RecordQuoteEvent(ctx, "deposit_link", err.Error())
		return domain.DepositLink{}, err
	}

	query := url.Values{}
	query.Set("amount", strconv.FormatInt(amount, 10))
	query.Set("currency", "AUD")
	query.Set("reference", quote.QuoteNumber)
	query.Set("quote_id", quote.ID.String())
	if token != "" {
		query.Set("return_url", s.publicURL+"/q/"+token)
	}

	s.metrics.RecordQuoteEvent(ctx, "deposit_link", "ok")
	return domain.DepositLink{
		QuoteID: quote.ID,
		Amount:  amount,
		URL:     s.checkoutURL + "/pay?" + query.Encode(),
	}, nil
}

// transition locks the quote, applies fn and persists its state columns. A
// quote found to be past its validity is stored as expired even when fn fails.
func (s *Service) transition(ctx context.Context, orgID, id snowflake.ID, event string, fn func(tx *gorm.DB, q *domain.Quote, now time.Time) error) (domain.Quote, error) {
	var outcome error
	err := db.WithTx(ctx, s.db, orgID, func(tx *gorm.DB) error {
		quote, err := s.repo.FindForUpdate(ctx, tx, orgID, id)
		if err != nil {
			return err
		}
		if quote == nil {
			return domain.ErrNotFound
		}

		now := s.clock.Now()
		if err := fn(tx, quote, now); err != nil {
			if !errors.Is(err, domain.ErrExpired) || quote.Status == domain.StatusExpired {
				return err
			}
			outcome = err
			quote.Status = domain.StatusExpired
		}
		return s.repo.Update(ctx, tx, orgID, id, stateColumns(quote, now))
	})
	if err == nil {
		err = outcome
	}
	if err != nil {
		if db.IsSerializationFailure(err) {
			err = domain.ErrConcurrentUpdate
		}
		s.metrics.RecordQuoteEvent(ctx, event, resultOf(err))
		if resultOf(err) == "error" {
			s.log.Error("quote transition failed",
				zap.String("event", event),
				zap.String("org_id", orgID.String()),
				zap.String("quote_id", id.String()),
				zap.Error(err),
			)
		}
		return domain.Quote{}, err
	}

	s.metrics.RecordQuoteEvent(ctx, event, "ok")
	quote, err := s.load(ctx, orgID, id)
	if err != nil {
		return domain.Quote{}, err
	}
	s.recordAudit(ctx, quote, event)
	return quote, nil
}

func (s *Service) recordAudit(ctx context.Context, quote domain.Quote, event string) {
	if s.audit == nil {
		return
	}
	metadata := map[string]any{
		"quote_number": quote.QuoteNumber,
		"status":       string(quote.Status),
		"total_amount": quote.TotalAmount,
	}
	switch event {
	case "accepted":
		if quote.AcceptedByName != nil {
			metadata["accepted_by_name"] = *quote.AcceptedByName
		}
		if quote.AcceptedByEmail != nil {
			metadata["accepted_by_email"] = *quote.AcceptedByEmail
		}
	case "rejected":
		if quote.RejectionReason != nil {
			metadata["rejection_reason"] = *quote.RejectionReason
		}
	case "converted":
		if quote.ConvertedInvoiceID != nil {
			metadata["invoice_id"] = quote.ConvertedInvoiceID.String()
		}
	}
	_ = s.audit.Record(ctx, auditdomain.Entry{
		OrgID:      quote.OrgID,
		Action:     "quote." + event,
		TargetType: "quote",
		TargetID:   quote.ID,
		Metadata:   metadata,
	})
}

// edit applies a content change to a draft quote inside a locked transaction.
func (s *Service) edit(ctx context.Context, rawID string, fn func(tx *gorm.DB, q *domain.Quote, now time.Time) (map[string]any, error)) (domain.Quote, error) {
	orgID, id, err := s.scope(ctx, rawID)
	if err != nil {
		return domain.Quote{}, err
	}

	err = db.WithTx(ctx, s.db, orgID, func(tx *gorm.DB) error {
		quote, err := s.repo.FindForUpdate(ctx, tx, orgID, id)
		if err != nil {
			return err
		}
		if quote == nil {
			return domain.ErrNotFound
		}
		if !quote.Editable() {
			return domain.ErrNotEditable
		}

		now := s.clock.Now()
		fields, err := fn(tx, quote, now)
		if err != nil {
			return err
		}
		if len(fields) == 0 {
			return nil
		}
		fields["updated_at"] = now
		return s.repo.Update(ctx, tx, orgID, id, fields)
	})
	if err != nil {
		if db.IsSerializationFailure(err) {
			return domain.Quote{}, domain.ErrConcurrentUpdate
		}
		return domain.Quote{}, err
	}
	return s.load(ctx, orgID, id)
}

// recomputeTotals derives the aggregates from a fresh read of every line.
func (s *Service) recomputeTotals(ctx context.Context, tx *gorm.DB, q *domain.Quote) (map[string]any, error) {
	items, err := s.repo.ListLineItems(ctx, tx, q.OrgID, q.ID)
	if err != nil {
		return nil, err
	}
	applyTotals(q, items)
	return map[string]any{
		"subtotal":     q.Subtotal,
		"gst_amount":   q.GSTAmount,
		"total_amount": q.TotalAmount,
	}, nil
}

func (s *Service) buildLineItems(q domain.Quote, lines []domain.LineInput, offset int, now time.Time) ([]domain.LineItem, error) {
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
			OrgID:       q.OrgID,
			QuoteID:     q.ID,
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

func (s *Service) scope(ctx context.Context, rawID string) (snowflake.ID, snowflake.ID, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return 0, 0, domain.ErrInvalidOrganization
	}
	id, err := parseRef(rawID, domain.ErrInvalidID)
	if err != nil {
		return 0, 0, err
	}
	return orgID, id, nil
}

func (s *Service) resolve(ctx context.Context, raw string) (*publictokendomain.PublicToken, error) {
	token, err := s.tokens.Resolve(ctx, publictokendomain.DocumentQuote, raw)
	if err != nil {
		if errors.Is(err, publictokendomain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return token, nil
}

func stateColumns(q *domain.Quote, now time.Time) map[string]any {
	return map[string]any{
		"status":               q.Status,
		"valid_until":          q.ValidUntil,
		"sent_at":              q.SentAt,
		"accepted_at":          q.AcceptedAt,
		"accepted_by_name":     q.AcceptedByName,
		"accepted_by_email":    q.AcceptedByEmail,
		"rejected_at":          q.RejectedAt,
		"rejection_reason":     q.RejectionReason,
		"deposit_paid":         q.DepositPaid,
		"deposit_paid_at":      q.DepositPaidAt,
		"converted_invoice_id": q.ConvertedInvoiceID,
		"updated_at":           now,
	}
}

func applyTotals(q *domain.Quote, items []domain.LineItem) {
	priced := make([]money.Priced, 0, len(items))
	for _, item := range items {
		priced = append(priced, money.Priced{Amount: item.Amount, GST: item.GSTAmount})
	}
	totals := money.Sum(priced)
	q.Subtotal = totals.Subtotal
	q.GSTAmount = totals.GST
	q.TotalAmount = totals.Total
}

func normalizeDepositAmount(v *int64) (*int64, error) {
	if v == nil || *v == 0 {
		return nil, nil
	}
	if *v < 0 {
		return nil, domain.ErrInvalidDeposit
	}
	amount := *v
	return &amount, nil
}

func normalizeDepositPercentage(v *float64) (*float64, error) {
	if v == nil || *v == 0 {
		return nil, nil
	}
	if *v < 0 || *v > 100 {
		return nil, domain.ErrInvalidDeposit
	}
	pct := *v
	return &pct, nil
}

func resultOf(err error) string {
	for _, known := range []error{
		domain.ErrAlreadyAccepted,
		domain.ErrAlreadyRejected,
		domain.ErrExpired,
		domain.ErrDepositRequired,
		domain.ErrInvalidDeposit,
		domain.ErrNotReopenable,
		domain.ErrAlreadyConverted,
		domain.ErrNotAccepted,
		domain.ErrConcurrentUpdate,
		domain.ErrNotFound,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return "error"
}

func parseRef(value string, invalid error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, invalid
	}
	return id, nil
}
