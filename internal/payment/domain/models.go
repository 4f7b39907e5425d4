package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Method string

const (
	MethodCash         Method = "cash"
	MethodBankTransfer Method = "bank_transfer"
	MethodCard         Method = "card"
	MethodCheque       Method = "cheque"
	MethodOther        Method = "other"
)

func ParseMethod(value string) (Method, bool) {
	switch Method(value) {
	case MethodCash, MethodBankTransfer, MethodCard, MethodCheque, MethodOther:
		return Method(value), true
	default:
		return "", false
	}
}

// Payment is a single ledger entry against an invoice.
type Payment struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID      snowflake.ID `gorm:"not null;index" json:"org_id"`
	InvoiceID  snowflake.ID `gorm:"not null;index" json:"invoice_id"`
	Amount     int64        `gorm:"not null" json:"amount"`
	Method     Method       `gorm:"type:text;not null" json:"method"`
	Reference  string       `gorm:"type:text" json:"reference,omitempty"`
	PaidAt     time.Time    `gorm:"not null" json:"paid_at"`
	RecordedBy snowflake.ID `gorm:"not null" json:"recorded_by"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Payment) TableName() string { return "payments" }
