package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type DocumentType string

const (
	DocumentQuote   DocumentType = "quote"
	DocumentInvoice DocumentType = "invoice"
)

// PublicToken grants unauthenticated access to a single document. Only the
// SHA-256 digest of the raw token is persisted.
type PublicToken struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	OrgID        snowflake.ID `gorm:"not null;index"`
	DocumentType DocumentType `gorm:"type:text;not null;index:ix_public_tokens_document,priority:1"`
	DocumentID   snowflake.ID `gorm:"not null;index:ix_public_tokens_document,priority:2"`
	TokenHash    string       `gorm:"type:text;not null;uniqueIndex"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	RevokedAt    *time.Time
}

// TableName sets the database table name.
func (PublicToken) TableName() string { return "public_tokens" }

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, token *PublicToken) error
	RevokeForDocument(ctx context.Context, db *gorm.DB, orgID snowflake.ID, docType DocumentType, docID snowflake.ID, revokedAt time.Time) error
	FindActiveByHash(ctx context.Context, db *gorm.DB, hash string) (*PublicToken, error)
}

type Service interface {
	// Issue revokes any active token for the document and returns a fresh raw token.
	Issue(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, docType DocumentType, docID snowflake.ID) (string, error)
	Revoke(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, docType DocumentType, docID snowflake.ID) error
	// Resolve maps a raw token to its document. Unknown, revoked or
	// mismatched tokens yield ErrNotFound.
	Resolve(ctx context.Context, docType DocumentType, raw string) (*PublicToken, error)
}

var ErrNotFound = errors.New("not_found")
