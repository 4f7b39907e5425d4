package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/smallbiznis/tradieapp/internal/invoice/domain"
	"github.com/smallbiznis/tradieapp/pkg/db/pagination"
)

type LineInput struct {
	Description string
	Quantity    float64
	UnitPrice   int64
	GSTRateBps  *int64
}

type CreateQuoteRequest struct {
	ClientID          string
	JobID             string
	Title             string
	ValidUntil        *time.Time
	DepositRequired   bool
	DepositAmount     *int64
	DepositPercentage *float64
	LineItems         []LineInput
	CreatedBy         snowflake.ID
}

// UpdateQuoteRequest is a sparse patch for draft quotes. A zero deposit
// amount or percentage clears that setting.
type UpdateQuoteRequest struct {
	Title             *string
	ValidUntil        *time.Time
	DepositRequired   *bool
	DepositAmount     *int64
	DepositPercentage *float64
}

type ListQuoteRequest struct {
	PageToken string
	PageSize  int
	Status    string
	ClientID  string
}

type ListQuoteResponse struct {
	pagination.PageInfo
	Quotes []Quote `json:"quotes"`
}

type AcceptRequest struct {
	Name  string
	Email string
}

type SendResult struct {
	Quote       Quote  `json:"quote"`
	PublicToken string `json:"public_token"`
	PublicURL   string `json:"public_url"`
}

type DepositLink struct {
	QuoteID snowflake.ID `json:"quote_id"`
	Amount  int64        `json:"amount"`
	URL     string       `json:"url"`
}

type Service interface {
	Create(context.Context, CreateQuoteRequest) (Quote, error)
	List(context.Context, ListQuoteRequest) (ListQuoteResponse, error)
	GetByID(ctx context.Context, id string) (Quote, error)
	Update(ctx context.Context, id string, req UpdateQuoteRequest) (Quote, error)
	AddLineItem(ctx context.Context, id string, line LineInput) (Quote, error)
	DeleteLineItem(ctx context.Context, id, lineID string) (Quote, error)

	Send(ctx context.Context, id string) (SendResult, error)
	Accept(ctx context.Context, id string, req AcceptRequest) (Quote, error)
	Reject(ctx context.Context, id, reason string) (Quote, error)
	Reopen(ctx context.Context, id string) (Quote, error)
	MarkDepositPaid(ctx context.Context, id string) (Quote, error)
	CreateDepositLink(ctx context.Context, id string) (DepositLink, error)
	ConvertToInvoice(ctx context.Context, id string, actor snowflake.ID) (invoicedomain.Invoice, error)

	GetPublic(ctx context.Context, token string) (Quote, error)
	AcceptPublic(ctx context.Context, token string, req AcceptRequest) (Quote, error)
	RejectPublic(ctx context.Context, token, reason string) (Quote, error)
	CreatePublicDepositLink(ctx context.Context, token string) (DepositLink, error)
}
