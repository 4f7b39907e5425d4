package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tradieapp/internal/invoice/domain"
	"github.com/smallbiznis/tradieapp/pkg/db"
	"github.com/smallbiznis/tradieapp/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, invoice *domain.Invoice) error {
	return conn.WithContext(ctx).Create(invoice).Error
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, orgID, id snowflake.ID) (*domain.Invoice, error) {
	return r.find(conn.WithContext(ctx), orgID, id)
}

func (r *repo) FindForUpdate(ctx context.Context, tx *gorm.DB, orgID, id snowflake.ID) (*domain.Invoice, error) {
	return r.find(db.ForUpdate(tx.WithContext(ctx)), orgID, id)
}

func (r *repo) find(stmt *gorm.DB, orgID, id snowflake.ID) (*domain.Invoice, error) {
	var invoices []domain.Invoice
	err := stmt.
		Where("org_id = ? AND id = ?", orgID, id).
		Limit(1).
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	if len(invoices) == 0 {
		return nil, nil
	}
	return &invoices[0], nil
}

func (r *repo) List(ctx context.Context, conn *gorm.DB, orgID snowflake.ID, filter domain.ListInvoiceFilter, page pagination.Pagination) ([]*domain.Invoice, error) {
	var invoices []*domain.Invoice
	stmt := conn.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("org_id = ?", orgID)
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.ClientID != 0 {
		stmt = stmt.Where("client_id = ?", filter.ClientID)
	}
	stmt, err := pagination.Apply(stmt, page)
	if err != nil {
		return nil, err
	}
	if err := stmt.Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) Update(ctx context.Context, conn *gorm.DB, orgID, id snowflake.ID, fields map[string]any) error {
	return conn.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("org_id = ? AND id = ?", orgID, id).
		Updates(fields).Error
}

func (r *repo) CountByOrg(ctx context.Context, conn *gorm.DB, orgID snowflake.ID) (int64, error) {
	var count int64
	err := conn.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("org_id = ?", orgID).
		Count(&count).Error
	return count, err
}

func (r *repo) InsertLineItems(ctx context.Context, conn *gorm.DB, items []domain.LineItem) error {
	if len(items) == 0 {
		return nil
	}
	return conn.WithContext(ctx).Create(&items).Error
}

func (r *repo) ListLineItems(ctx context.Context, conn *gorm.DB, orgID, invoiceID snowflake.ID) ([]domain.LineItem, error) {
	var items []domain.LineItem
	err := conn.WithContext(ctx).
		Where("org_id = ? AND invoice_id = ?", orgID, invoiceID).
		Order("position asc, id asc").
		Find(&items).Error
	return items, err
}

func (r *repo) DeleteLineItem(ctx context.Context, conn *gorm.DB, orgID, invoiceID, lineID snowflake.ID) (bool, error) {
	res := conn.WithContext(ctx).
		Where("org_id = ? AND invoice_id = ? AND id = ?", orgID, invoiceID, lineID).
		Delete(&domain.LineItem{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) PaymentAmounts(ctx context.Context, conn *gorm.DB, orgID, invoiceID snowflake.ID) ([]int64, error) {
	var amounts []int64
	err := conn.WithContext(ctx).
		Table("payments").
		Where("org_id = ? AND invoice_id = ?", orgID, invoiceID).
		Pluck("amount", &amounts).Error
	return amounts, err
}
