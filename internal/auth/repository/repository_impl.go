package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tradieapp/internal/auth/domain"
	"gorm.io/gorm"
)

// repo stores users and sessions. Neither table is org scoped, so queries
// here never run under the row level security tenant.
type repo struct {
	db *gorm.DB
}

func New(db *gorm.DB) (domain.Repository, domain.SessionRepository) {
	r := &repo{db: db}
	return r, r
}

// first loads one row of T matching query, mapping a miss to notFound.
func first[T any](ctx context.Context, db *gorm.DB, notFound error, query string, args ...any) (*T, error) {
	var row T
	err := db.WithContext(ctx).Where(query, args...).First(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, notFound
	case err != nil:
		return nil, err
	}
	return &row, nil
}

// updateByID applies updates to the row with id, mapping zero affected rows
// to notFound.
func updateByID(ctx context.Context, db *gorm.DB, model any, id snowflake.ID, notFound error, updates map[string]any) error {
	tx := db.WithContext(ctx).Model(model).Where("id = ?", id).Updates(updates)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return notFound
	}
	return nil
}

func (r *repo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.User{}).Count(&count).Error
	return count, err
}

func (r *repo) Create(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *repo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return first[domain.User](ctx, r.db, domain.ErrUserNotFound, "email = ?", email)
}

func (r *repo) FindByExternalID(ctx context.Context, externalID string) (*domain.User, error) {
	return first[domain.User](ctx, r.db, domain.ErrUserNotFound, "external_id = ?", externalID)
}

func (r *repo) FindByID(ctx context.Context, id snowflake.ID) (*domain.User, error) {
	if id == 0 {
		return nil, domain.ErrUserNotFound
	}
	return first[domain.User](ctx, r.db, domain.ErrUserNotFound, "id = ?", id)
}

func (r *repo) UpdatePasswordHash(ctx context.Context, id snowflake.ID, hash string, updatedAt time.Time) error {
	return updateByID(ctx, r.db, &domain.User{}, id, domain.ErrUserNotFound, map[string]any{
		"password_hash": hash,
		"updated_at":    updatedAt,
	})
}

func (r *repo) CreateSession(ctx context.Context, session *domain.Session) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *repo) GetSessionByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	return first[domain.Session](ctx, r.db, domain.ErrSessionNotFound, "session_token_hash = ?", tokenHash)
}

func (r *repo) UpdateLastSeen(ctx context.Context, sessionID snowflake.ID, lastSeen time.Time) error {
	return updateByID(ctx, r.db, &domain.Session{}, sessionID, domain.ErrSessionNotFound, map[string]any{
		"last_seen_at": lastSeen,
	})
}

func (r *repo) RevokeSession(ctx context.Context, sessionID snowflake.ID, revokedAt time.Time) error {
	return updateByID(ctx, r.db, &domain.Session{}, sessionID, domain.ErrSessionNotFound, map[string]any{
		"revoked_at": revokedAt,
	})
}
