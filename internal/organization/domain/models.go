// Package domain contains persistence models for the org service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Organization represents a tenant.
type Organization struct {
	ID            snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name          string            `gorm:"type:text;not null" json:"name"`
	Slug          string            `gorm:"type:text;not null;uniqueIndex:ux_organizations_slug" json:"slug"`
	ABN           string            `gorm:"column:abn;type:text" json:"abn"`
	GSTRegistered bool              `gorm:"column:gst_registered;not null;default:true" json:"gst_registered"`
	Metadata      datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
	CreatedAt     time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Organization) TableName() string { return "organizations" }

// Capabilities are per-membership permission flags consulted for
// non-admin roles.
type Capabilities struct {
	CanCreateJobs        bool `gorm:"column:can_create_jobs;not null;default:false" json:"can_create_jobs"`
	CanEditAllJobs       bool `gorm:"column:can_edit_all_jobs;not null;default:false" json:"can_edit_all_jobs"`
	CanCreateInvoices    bool `gorm:"column:can_create_invoices;not null;default:false" json:"can_create_invoices"`
	CanViewFinancials    bool `gorm:"column:can_view_financials;not null;default:false" json:"can_view_financials"`
	CanApproveExpenses   bool `gorm:"column:can_approve_expenses;not null;default:false" json:"can_approve_expenses"`
	CanApproveTimesheets bool `gorm:"column:can_approve_timesheets;not null;default:false" json:"can_approve_timesheets"`
}

// AllCapabilities returns a flag set with every capability granted.
func AllCapabilities() Capabilities {
	return Capabilities{
		CanCreateJobs:        true,
		CanEditAllJobs:       true,
		CanCreateInvoices:    true,
		CanViewFinancials:    true,
		CanApproveExpenses:   true,
		CanApproveTimesheets: true,
	}
}

// Has reports whether the named capability flag is set.
func (c Capabilities) Has(capability Capability) bool {
	switch capability {
	case CapCreateJobs:
		return c.CanCreateJobs
	case CapEditAllJobs:
		return c.CanEditAllJobs
	case CapCreateInvoices:
		return c.CanCreateInvoices
	case CapViewFinancials:
		return c.CanViewFinancials
	case CapApproveExpenses:
		return c.CanApproveExpenses
	case CapApproveTimesheets:
		return c.CanApproveTimesheets
	default:
		return false
	}
}

// OrganizationMember represents membership of a user in an organization.
type OrganizationMember struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID        snowflake.ID `gorm:"not null;index;uniqueIndex:ux_org_user,priority:1" json:"org_id"`
	UserID       snowflake.ID `gorm:"not null;index;uniqueIndex:ux_org_user,priority:2" json:"user_id"`
	Role         Role         `gorm:"type:text;not null" json:"role"`
	Status       MemberStatus `gorm:"type:text;not null;default:'active'" json:"status"`
	Capabilities `gorm:"embedded"`
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (OrganizationMember) TableName() string { return "organization_members" }

func (m OrganizationMember) IsActive() bool { return m.Status == MemberStatusActive }

// IsAdmin reports whether the role bypasses capability flags.
func (m OrganizationMember) IsAdmin() bool {
	return m.Role == RoleOwner || m.Role == RoleAdmin
}

// Normalize forces owners to carry every capability flag.
func (m *OrganizationMember) Normalize() {
	if m.Role == RoleOwner {
		m.Capabilities = AllCapabilities()
	}
	if m.Status == "" {
		m.Status = MemberStatusActive
	}
}
