package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tradieapp/internal/payment/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	return db.WithContext(ctx).Create(payment).Error
}

func (r *repo) ListByInvoice(ctx context.Context, db *gorm.DB, orgID, invoiceID snowflake.ID) ([]domain.Payment, error) {
	var payments []domain.Payment
	err := db.WithContext(ctx).
		Where("org_id = ? AND invoice_id = ?", orgID, invoiceID).
		Order("paid_at asc, id asc").
		Find(&payments).Error
	return payments, err
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, orgID, invoiceID, id snowflake.ID) (bool, error) {
	res := db.WithContext(ctx).
		Where("org_id = ? AND invoice_id = ? AND id = ?", orgID, invoiceID, id).
		Delete(&domain.Payment{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
