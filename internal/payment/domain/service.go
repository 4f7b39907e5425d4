package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/smallbiznis/tradieapp/internal/invoice/domain"
)

type RecordPaymentRequest struct {
	Amount     int64
	Method     string
	Reference  string
	PaidAt     *time.Time
	RecordedBy snowflake.ID
}

type RecordPaymentResult struct {
	Payment Payment               `json:"payment"`
	Invoice invoicedomain.Invoice `json:"invoice"`
}

// Service mutates the payment ledger. Every mutation reconciles the invoice
// in the same transaction.
type Service interface {
	Record(ctx context.Context, invoiceID string, req RecordPaymentRequest) (RecordPaymentResult, error)
	List(ctx context.Context, invoiceID string) ([]Payment, error)
	Delete(ctx context.Context, invoiceID, paymentID string) (invoicedomain.Invoice, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInvalidMethod       = errors.New("invalid_method")
	ErrNotFound            = errors.New("not_found")
	ErrConcurrentUpdate    = errors.New("concurrent_update")
)
