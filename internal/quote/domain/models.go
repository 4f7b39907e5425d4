package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusDraft    Status = "draft"
	StatusSent     Status = "sent"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
	StatusExpired  Status = "expired"
)

func ParseStatus(value string) (Status, bool) {
	switch Status(value) {
	case StatusDraft, StatusSent, StatusAccepted, StatusRejected, StatusExpired:
		return Status(value), true
	default:
		return "", false
	}
}

// DefaultRejectionReason is recorded when a client rejects without a reason.
const DefaultRejectionReason = "No reason provided"

type Quote struct {
	ID                 snowflake.ID  `gorm:"primaryKey" json:"id"`
	OrgID              snowflake.ID  `gorm:"not null;index;uniqueIndex:ux_quotes_org_number,priority:1" json:"org_id"`
	ClientID           snowflake.ID  `gorm:"not null;index" json:"client_id"`
	JobID              *snowflake.ID `gorm:"index" json:"job_id,omitempty"`
	QuoteNumber        string        `gorm:"type:text;not null;uniqueIndex:ux_quotes_org_number,priority:2" json:"quote_number"`
	Title              string        `gorm:"type:text;not null" json:"title"`
	Status             Status        `gorm:"type:text;not null;default:'draft'" json:"status"`
	Subtotal           int64         `gorm:"not null;default:0" json:"subtotal"`
	GSTAmount          int64         `gorm:"column:gst_amount;not null;default:0" json:"gst_amount"`
	TotalAmount        int64         `gorm:"not null;default:0" json:"total_amount"`
	DepositRequired    bool          `gorm:"not null;default:false" json:"deposit_required"`
	DepositAmount      *int64        `json:"deposit_amount,omitempty"`
	DepositPercentage  *float64      `json:"deposit_percentage,omitempty"`
	DepositPaid        bool          `gorm:"not null;default:false" json:"deposit_paid"`
	DepositPaidAt      *time.Time    `json:"deposit_paid_at,omitempty"`
	ValidUntil         time.Time     `gorm:"not null" json:"valid_until"`
	SentAt             *time.Time    `json:"sent_at,omitempty"`
	AcceptedAt         *time.Time    `json:"accepted_at,omitempty"`
	AcceptedByName     *string       `gorm:"type:text" json:"accepted_by_name,omitempty"`
	AcceptedByEmail    *string       `gorm:"type:text" json:"accepted_by_email,omitempty"`
	RejectedAt         *time.Time    `json:"rejected_at,omitempty"`
	RejectionReason    *string       `gorm:"type:text" json:"rejection_reason,omitempty"`
	ConvertedInvoiceID *snowflake.ID `json:"converted_invoice_id,omitempty"`
	CreatedBy          snowflake.ID  `gorm:"not null" json:"created_by"`
	CreatedAt          time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	LineItems []LineItem `gorm:"-" json:"line_items,omitempty"`
}

// TableName sets the database table name.
func (Quote) TableName() string { return "quotes" }

type LineItem struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID       snowflake.ID `gorm:"not null;index" json:"org_id"`
	QuoteID     snowflake.ID `gorm:"not null;index" json:"quote_id"`
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
func (LineItem) TableName() string { return "quote_line_items" }
