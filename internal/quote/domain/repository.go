package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tradieapp/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListQuoteFilter struct {
	Status   Status
	ClientID snowflake.ID
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, quote *Quote) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Quote, error)
	// FindForUpdate locks the quote row for the rest of the transaction.
	FindForUpdate(ctx context.Context, tx *gorm.DB, orgID, id snowflake.ID) (*Quote, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListQuoteFilter, page pagination.Pagination) ([]*Quote, error)
	Update(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, fields map[string]any) error
	CountByOrg(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (int64, error)

	InsertLineItems(ctx context.Context, db *gorm.DB, items []LineItem) error
	ListLineItems(ctx context.Context, db *gorm.DB, orgID, quoteID snowflake.ID) ([]LineItem, error)
	DeleteLineItem(ctx context.Context, db *gorm.DB, orgID, quoteID, lineID snowflake.ID) (bool, error)
}
