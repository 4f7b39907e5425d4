package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	clientdomain "github.com/smallbiznis/tradieapp/internal/client/domain"
	clientrepository "github.com/smallbiznis/tradieapp/internal/client/repository"
	"github.com/smallbiznis/tradieapp/internal/clock"
	"github.com/smallbiznis/tradieapp/internal/config"
	"github.com/smallbiznis/tradieapp/internal/invoice/domain"
	"github.com/smallbiznis/tradieapp/internal/invoice/repository"
	jobdomain "github.com/smallbiznis/tradieapp/internal/job/domain"
	jobrepository "github.com/smallbiznis/tradieapp/internal/job/repository"
	"github.com/smallbiznis/tradieapp/internal/orgcontext"
	paymentdomain "github.com/smallbiznis/tradieapp/internal/payment/domain"
	publictokendomain "github.com/smallbiznis/tradieapp/internal/publictoken/domain"
	publictokenrepository "github.com/smallbiznis/tradieapp/internal/publictoken/repository"
	publictokenservice "github.com/smallbiznis/tradieapp/internal/publictoken/service"
	"github.com/smallbiznis/tradieapp/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testOrg     = snowflake.ID(100)
	otherOrg    = snowflake.ID(200)
	testClient  = snowflake.ID(300)
	otherClient = snowflake.ID(301)
	testUser    = snowflake.ID(400)
)

var start = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

type sentMail struct {
	to       []string
	template string
	data     map[string]any
}

type recordingMailer struct {
	sent []sentMail
}

func (m *recordingMailer) Send(context.Context, []string, string, string) error { return nil }

func (m *recordingMailer) SendTemplate(_ context.Context, to []string, templateName string, data map[string]any) error {
	m.sent = append(m.sent, sentMail{to: to, template: templateName, data: data})
	return nil
}

type fixture struct {
	svc    domain.Service
	mailer *recordingMailer
	clock  *clock.FakeClock
	ctx    context.Context
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&domain.Invoice{},
		&domain.LineItem{},
		&paymentdomain.Payment{},
		&clientdomain.Client{},
		&jobdomain.Job{},
		&publictokendomain.PublicToken{},
	))
	require.NoError(t, conn.Create(&clientdomain.Client{ID: testClient, OrgID: testOrg, Name: "Acme", Email: "accounts@acme.test", CreatedAt: start, UpdatedAt: start}).Error)
	require.NoError(t, conn.Create(&clientdomain.Client{ID: otherClient, OrgID: otherOrg, Name: "Elsewhere", CreatedAt: start, UpdatedAt: start}).Error)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(start)

	tokens := publictokenservice.New(publictokenservice.Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  publictokenrepository.Provide(),
		Clock: clk,
	})

	mailer := &recordingMailer{}
	svc := New(Params{
		DB:         conn,
		Log:        zap.NewNop(),
		GenID:      node,
		Repo:       repository.Provide(),
		ClientRepo: clientrepository.Provide(),
		JobRepo:    jobrepository.Provide(),
		Tokens:     tokens,
		Config:     config.Config{PublicBaseURL: "https://app.tradieapp.test"},
		Financial:  config.NewStaticFinancialConfig(config.DefaultFinancialConfig()),
		Mailer:     mailer,
		Clock:      clk,
	})

	return fixture{svc: svc, mailer: mailer, clock: clk, ctx: orgcontext.WithOrgID(context.Background(), testOrg)}
}

func int64Ptr(v int64) *int64 { return &v }

func TestCreateInvoiceComputesTotals(t *testing.T) {
	f := newFixture(t)

	inv, err := f.svc.Create(f.ctx, domain.CreateInvoiceRequest{
		ClientID: testClient.String(),
		LineItems: []domain.LineInput{
			{Description: "Labour", Quantity: 2, UnitPrice: 5000},
			{Description: "Permit fee", Quantity: 1, UnitPrice: 2550, GSTRateBps: int64Ptr(0)},
		},
		CreatedBy: testUser,
	})
	if err != nil {
		t.Fatalf("create invoice: %v", err)
	}

	assert.Equal(t, "INV-00001", inv.InvoiceNumber)
	assert.Equal(t, domain.StatusDraft, inv.Status)
	assert.Equal(t, int64(12550), inv.Subtotal)
	assert.Equal(t, int64(1000), inv.GSTAmount)
	assert.Equal(t, int64(13550), inv.TotalAmount)
	assert.Equal(t, time.Date(2025, 3, 28, 0, 0, 0, 0, time.UTC), inv.DueDate)
	assert.Len(t, inv.LineItems, 2)

	loaded, err := f.svc.GetByID(f.ctx, inv.ID.String())
	require.NoError(t, err)
	assert.Equal(t, inv.TotalAmount, loaded.TotalAmount)
	assert.Len(t, loaded.LineItems, 2)
}

func TestCreateInvoiceRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(f.ctx, domain.CreateInvoiceRequest{ClientID: otherClient.String()})
	assert.ErrorIs(t, err, domain.ErrInvalidClient)

	_, err = f.svc.Create(f.ctx, domain.CreateInvoiceRequest{
		ClientID:  testClient.String(),
		LineItems: []domain.LineInput{{Description: "", Quantity: 1, UnitPrice: 100}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidLineItem)

	past := start.AddDate(0, 0, -10)
	_, err = f.svc.Create(f.ctx, domain.CreateInvoiceRequest{ClientID: testClient.String(), DueDate: &past})
	assert.ErrorIs(t, err, domain.ErrInvalidDueDate)
}

func TestInvoiceIsInvisibleToOtherOrganizations(t *testing.T) {
	f := newFixture(t)

	inv, err := f.svc.Create(f.ctx, domain.CreateInvoiceRequest{ClientID: testClient.String()})
	require.NoError(t, err)

	other := orgcontext.WithOrgID(context.Background(), otherOrg)
	_, err = f.svc.GetByID(other, inv.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteLineItemRecomputesFromRemainingLines(t *testing.T) {
	f := newFixture(t)

	inv, err := f.svc.Create(f.ctx, domain.CreateInvoiceRequest{
		ClientID: testClient.String(),
		LineItems: []domain.LineInput{
			{Description: "Tiles", Quantity: 10, UnitPrice: 1200},
			{Description: "Grout", Quantity: 1, UnitPrice: 800},
		},
	})
	require.NoError(t, err)
	require.Equal(t, int64(12000+1200+800+80), inv.TotalAmount)

	inv, err = f.svc.DeleteLineItem(f.ctx, inv.ID.String(), inv.LineItems[0].ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(800), inv.Subtotal)
	assert.Equal(t, int64(80), inv.GSTAmount)
	assert.Equal(t, int64(880), inv.TotalAmount)
	assert.Len(t, inv.LineItems, 1)

	_, err = f.svc.DeleteLineItem(f.ctx, inv.ID.String(), inv.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	inv, err = f.svc.AddLineItem(f.ctx, inv.ID.String(), domain.LineInput{Description: "Sealant", Quantity: 0.5, UnitPrice: 3001})
	require.NoError(t, err)
	assert.Equal(t, int64(800+1501), inv.Subtotal)
	assert.Len(t, inv.LineItems, 2)
}

func TestEmptyInvoiceStaysEditable(t *testing.T) {
	f := newFixture(t)

	inv, err := f.svc.Create(f.ctx, domain.CreateInvoiceRequest{ClientID: testClient.String()})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, inv.Status)
	assert.Equal(t, int64(0), inv.TotalAmount)

	inv, err = f.svc.AddLineItem(f.ctx, inv.ID.String(), domain.LineInput{Description: "Call-out fee", Quantity: 1, UnitPrice: 9000})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, inv.Status)
	assert.Equal(t, int64(9900), inv.TotalAmount)
	assert.Nil(t, inv.PaidAt)
}

func TestSendIssuesPublicToken(t *testing.T) {
	f := newFixture(t)

	inv, err := f.svc.Create(f.ctx, domain.CreateInvoiceRequest{
		ClientID:  testClient.String(),
		LineItems: []domain.LineInput{{Description: "Callout", Quantity: 1, UnitPrice: 9900}},
	})
	require.NoError(t, err)

	first, err := f.svc.Send(f.ctx, inv.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSent, first.Invoice.Status)
	assert.NotNil(t, first.Invoice.SentAt)
	assert.Equal(t, "https://app.tradieapp.test/i/"+first.PublicToken, first.PublicURL)

	public, err := f.svc.GetPublic(context.Background(), first.PublicToken)
	require.NoError(t, err)
	assert.Equal(t, inv.ID, public.ID)

	second, err := f.svc.Send(f.ctx, inv.ID.String())
	require.NoError(t, err)
	assert.True(t, first.Invoice.SentAt.Equal(*second.Invoice.SentAt))

	_, err = f.svc.GetPublic(context.Background(), first.PublicToken)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.svc.GetPublic(context.Background(), inv.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSendEmailsClient(t *testing.T) {
	f := newFixture(t)

	inv, err := f.svc.Create(f.ctx, domain.CreateInvoiceRequest{
		ClientID:  testClient.String(),
		LineItems: []domain.LineInput{{Description: "Callout", Quantity: 1, UnitPrice: 10000, GSTRateBps: int64Ptr(0)}},
	})
	require.NoError(t, err)

	sent, err := f.svc.Send(f.ctx, inv.ID.String())
	require.NoError(t, err)

	require.Len(t, f.mailer.sent, 1)
	mail := f.mailer.sent[0]
	assert.Equal(t, []string{"accounts@acme.test"}, mail.to)
	assert.Equal(t, "invoice_sent", mail.template)
	assert.Equal(t, sent.PublicURL, mail.data["link"])
	assert.Equal(t, "$100.00", mail.data["total"])
	assert.Equal(t, inv.InvoiceNumber, mail.data["number"])
}

func TestOverdueIsReportedOnRead(t *testing.T) {
	f := newFixture(t)

	inv, err := f.svc.Create(f.ctx, domain.CreateInvoiceRequest{
		ClientID:  testClient.String(),
		LineItems: []domain.LineInput{{Description: "Repair", Quantity: 1, UnitPrice: 500}},
	})
	require.NoError(t, err)
	_, err = f.svc.Send(f.ctx, inv.ID.String())
	require.NoError(t, err)

	f.clock.Advance(30 * 24 * time.Hour)

	loaded, err := f.svc.GetByID(f.ctx, inv.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOverdue, loaded.Status)

	list, err := f.svc.List(f.ctx, domain.ListInvoiceRequest{})
	require.NoError(t, err)
	require.Len(t, list.Invoices, 1)
	assert.Equal(t, domain.StatusOverdue, list.Invoices[0].Status)
}
