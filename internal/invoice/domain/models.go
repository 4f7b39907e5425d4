// Package domain contains persistence models and payment reconciliation for invoicing.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Status represents invoice lifecycle states.
type Status string

const (
	StatusDraft         Status = "draft"
	StatusSent          Status = "sent"
	StatusPartiallyPaid Status = "partially_paid"
	StatusPaid          Status = "paid"
	StatusOverdue       Status = "overdue"
)

func ParseStatus(value string) (Status, bool) {
	switch Status(value) {
	case StatusDraft, StatusSent, StatusPartiallyPaid, StatusPaid, StatusOverdue:
		return Status(value), true
	default:
		return "", false
	}
}

// Invoice represents a bill issued to a client. Status and PaidAmount are
// written only through Reconcile.
type Invoice struct {
	ID            snowflake.ID  `gorm:"primaryKey" json:"id"`
	OrgID         snowflake.ID  `gorm:"not null;index;uniqueIndex:ux_invoices_org_number,priority:1" json:"org_id"`
	ClientID      snowflake.ID  `gorm:"not null;index" json:"client_id"`
	QuoteID       *snowflake.ID `gorm:"index" json:"quote_id,omitempty"`
	JobID         *snowflake.ID `gorm:"index" json:"job_id,omitempty"`
	InvoiceNumber string        `gorm:"type:text;not null;uniqueIndex:ux_invoices_org_number,priority:2" json:"invoice_number"`
	Status        Status        `gorm:"type:text;not null;default:'draft'" json:"status"`
	Subtotal      int64         `gorm:"not null;default:0" json:"subtotal"`
	GSTAmount     int64         `gorm:"column:gst_amount;not null;default:0" json:"gst_amount"`
	TotalAmount   int64         `gorm:"not null;default:0" json:"total_amount"`
	PaidAmount    int64         `gorm:"not null;default:0" json:"paid_amount"`
	IssueDate     time.Time     `gorm:"not null" json:"issue_date"`
	DueDate       time.Time     `gorm:"not null" json:"due_date"`
	SentAt        *time.Time    `json:"sent_at,omitempty"`
	PaidAt        *time.Time    `json:"paid_at,omitempty"`
	CreatedBy     snowflake.ID  `gorm:"not null" json:"created_by"`
	CreatedAt     time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	LineItems []LineItem `gorm:"-" json:"line_items,omitempty"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// Balance is the amount still owed.
func (i Invoice) Balance() int64 {
	if i.PaidAmount >= i.TotalAmount {
		return 0
	}
	return i.TotalAmount - i.PaidAmount
}

// Locked reports whether line items may no longer change. A zero-total
// invoice reads as paid but stays editable until money is recorded.
func (i Invoice) Locked() bool {
	return i.Status == StatusPaid && i.PaidAmount > 0
}

// LineItem represents a priced line on an invoice.
type LineItem struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID       snowflake.ID `gorm:"not null;index" json:"org_id"`
	InvoiceID   snowflake.ID `gorm:"not null;index" json:"invoice_id"`
	Description string       `gorm:"type:text;not null" json:"description"`
	Quantity    float64      `gorm:"not null" json:"quantity"`
	UnitPrice   int64        `gorm:"not null" json:"unit_price"`
	GSTRateBps  int64        `gorm:"column:gst_rate_bps;not null" json:"gst_rate_bps"`
	Amount      int64        `gorm:"not null" json:"amount"`
	GSTAmount   int64        `gorm:"column:gst_amount;not null" json:"gst_amount"`
	Position    int          `gorm:"not null;default:0" json:"position"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (LineItem) TableName() string { return "invoice_line_items" }
