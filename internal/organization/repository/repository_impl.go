package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tradieapp/internal/organization/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx}
}

func (r *repository) CreateOrganization(ctx context.Context, org domain.Organization) error {
	return r.db.WithContext(ctx).Create(&org).Error
}

func (r *repository) GetOrganization(ctx context.Context, id snowflake.ID) (*domain.Organization, error) {
	if id == 0 {
		return nil, nil
	}
	var orgs []domain.Organization
	if err := r.db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&orgs).Error; err != nil {
		return nil, err
	}
	if len(orgs) == 0 {
		return nil, nil
	}
	return &orgs[0], nil
}

func (r *repository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM organizations WHERE slug = ?`,
		slug,
	).Scan(&count).Error
	return count > 0, err
}

func (r *repository) ListOrganizationsByUser(ctx context.Context, userID snowflake.ID) ([]domain.OrganizationListItem, error) {
	var items []domain.OrganizationListItem
	err := r.db.WithContext(ctx).Raw(
		`SELECT o.id, o.name, o.slug, m.role, o.created_at
		 FROM organizations o
		 JOIN organization_members m ON m.org_id = o.id
		 WHERE m.user_id = ? AND m.status = ?
		 ORDER BY o.created_at ASC`,
		userID,
		domain.MemberStatusActive,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}

	return items, nil
}

func (r *repository) AddMember(ctx context.Context, member domain.OrganizationMember) error {
	return r.db.WithContext(ctx).Create(&member).Error
}

func (r *repository) GetMember(ctx context.Context, orgID, userID snowflake.ID) (*domain.OrganizationMember, error) {
	if orgID == 0 || userID == 0 {
		return nil, nil
	}
	return r.findMember(ctx, "org_id = ? AND user_id = ?", orgID, userID)
}

func (r *repository) GetMemberByID(ctx context.Context, orgID, memberID snowflake.ID) (*domain.OrganizationMember, error) {
	if orgID == 0 || memberID == 0 {
		return nil, nil
	}
	return r.findMember(ctx, "org_id = ? AND id = ?", orgID, memberID)
}

func (r *repository) findMember(ctx context.Context, query string, args ...any) (*domain.OrganizationMember, error) {
	var members []domain.OrganizationMember
	if err := r.db.WithContext(ctx).Where(query, args...).Limit(1).Find(&members).Error; err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, nil
	}
	return &members[0], nil
}

func (r *repository) ListMembers(ctx context.Context, orgID snowflake.ID) ([]domain.MemberListItem, error) {
	var items []domain.MemberListItem
	err := r.db.WithContext(ctx).Raw(
		`SELECT m.*, u.email, u.display_name
		 FROM organization_members m
		 JOIN users u ON u.id = m.user_id
		 WHERE m.org_id = ?
		 ORDER BY m.created_at ASC, m.id ASC`,
		orgID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) UpdateMember(ctx context.Context, member domain.OrganizationMember) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE organization_members
		 SET role = ?, status = ?,
		     can_create_jobs = ?, can_edit_all_jobs = ?, can_create_invoices = ?,
		     can_view_financials = ?, can_approve_expenses = ?, can_approve_timesheets = ?,
		     updated_at = ?
		 WHERE org_id = ? AND id = ?`,
		member.Role,
		member.Status,
		member.CanCreateJobs,
		member.CanEditAllJobs,
		member.CanCreateInvoices,
		member.CanViewFinancials,
		member.CanApproveExpenses,
		member.CanApproveTimesheets,
		member.UpdatedAt,
		member.OrgID,
		member.ID,
	).Error
}

func (r *repository) CountActiveOwners(ctx context.Context, orgID snowflake.ID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM organization_members WHERE org_id = ? AND role = ? AND status = ?`,
		orgID,
		domain.RoleOwner,
		domain.MemberStatusActive,
	).Scan(&count).Error
	return count, err
}
