package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tradieapp/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListInvoiceFilter struct {
	Status   Status
	ClientID snowflake.ID
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Invoice, error)
	// FindForUpdate locks the invoice row for the rest of the transaction.
	FindForUpdate(ctx context.Context, tx *gorm.DB, orgID, id snowflake.ID) (*Invoice, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListInvoiceFilter, page pagination.Pagination) ([]*Invoice, error)
	Update(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, fields map[string]any) error
	CountByOrg(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (int64, error)

	InsertLineItems(ctx context.Context, db *gorm.DB, items []LineItem) error
	ListLineItems(ctx context.Context, db *gorm.DB, orgID, invoiceID snowflake.ID) ([]LineItem, error)
	DeleteLineItem(ctx context.Context, db *gorm.DB, orgID, invoiceID, lineID snowflake.ID) (bool, error)

	// PaymentAmounts reads every payment currently recorded against the invoice.
	PaymentAmounts(ctx context.Context, db *gorm.DB, orgID, invoiceID snowflake.ID) ([]int64, error)
}
