package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tradieapp/internal/publictoken/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, token *domain.PublicToken) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO public_tokens (id, org_id, document_type, document_id, token_hash, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		token.ID,
		token.OrgID,
		token.DocumentType,
		token.DocumentID,
		token.TokenHash,
		token.CreatedAt,
	).Error
}

func (r *repo) RevokeForDocument(ctx context.Context, db *gorm.DB, orgID snowflake.ID, docType domain.DocumentType, docID snowflake.ID, revokedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE public_tokens SET revoked_at = ?
		 WHERE org_id = ? AND document_type = ? AND document_id = ? AND revoked_at IS NULL`,
		revokedAt,
		orgID,
		docType,
		docID,
	).Error
}

func (r *repo) FindActiveByHash(ctx context.Context, db *gorm.DB, hash string) (*domain.PublicToken, error) {
	var tokens []domain.PublicToken
	err := db.WithContext(ctx).
		Where("token_hash = ? AND revoked_at IS NULL", hash).
		Limit(1).
		Find(&tokens).Error
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, nil
	}
	return &tokens[0], nil
}
