package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tradieapp/pkg/db/pagination"
	"gorm.io/gorm"
)

type LineInput struct {
	Description string
	Quantity    float64
	UnitPrice   int64
	// GSTRateBps falls back to the organization default when nil.
	GSTRateBps *int64
}

type CreateInvoiceRequest struct {
	ClientID  string
	JobID     string
	IssueDate *time.Time
	DueDate   *time.Time
	LineItems []LineInput
	CreatedBy snowflake.ID
}

// Draft is the input for creating an invoice inside a caller's transaction.
type Draft struct {
	OrgID     snowflake.ID
	ClientID  snowflake.ID
	QuoteID   *snowflake.ID
	JobID     *snowflake.ID
	LineItems []LineInput
	CreatedBy snowflake.ID
}

type UpdateInvoiceRequest struct {
	IssueDate *time.Time
	DueDate   *time.Time
}

type ListInvoiceRequest struct {
	PageToken string
	PageSize  int
	Status    string
	ClientID  string
}

type ListInvoiceResponse struct {
	pagination.PageInfo
	Invoices []Invoice `json:"invoices"`
}

type SendResult struct {
	Invoice     Invoice `json:"invoice"`
	PublicToken string  `json:"public_token"`
	PublicURL   string  `json:"public_url"`
}

type Service interface {
	Create(context.Context, CreateInvoiceRequest) (Invoice, error)
	CreateInTx(ctx context.Context, tx *gorm.DB, draft Draft) (Invoice, error)
	List(context.Context, ListInvoiceRequest) (ListInvoiceResponse, error)
	GetByID(ctx context.Context, id string) (Invoice, error)
	Update(ctx context.Context, id string, req UpdateInvoiceRequest) (Invoice, error)
	AddLineItem(ctx context.Context, id string, line LineInput) (Invoice, error)
	DeleteLineItem(ctx context.Context, id, lineID string) (Invoice, error)
	Send(ctx context.Context, id string) (SendResult, error)
	GetPublic(ctx context.Context, token string) (Invoice, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidClient       = errors.New("invalid_client")
	ErrInvalidJob          = errors.New("invalid_job")
	ErrInvalidLineItem     = errors.New("invalid_line_item")
	ErrInvalidDueDate      = errors.New("invalid_due_date")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrInvalidPageToken    = errors.New("invalid_page_token")
	ErrNotFound            = errors.New("not_found")
	ErrNotEditable         = errors.New("not_editable")
)
