package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type OrganizationListItem struct {
	ID        snowflake.ID
	Name      string
	Slug      string
	Role      string
	CreatedAt time.Time
}

type MemberListItem struct {
	OrganizationMember
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrganization(ctx context.Context, org Organization) error
	GetOrganization(ctx context.Context, id snowflake.ID) (*Organization, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	ListOrganizationsByUser(ctx context.Context, userID snowflake.ID) ([]OrganizationListItem, error)
	AddMember(ctx context.Context, member OrganizationMember) error
	GetMember(ctx context.Context, orgID, userID snowflake.ID) (*OrganizationMember, error)
	GetMemberByID(ctx context.Context, orgID, memberID snowflake.ID) (*OrganizationMember, error)
	ListMembers(ctx context.Context, orgID snowflake.ID) ([]MemberListItem, error)
	UpdateMember(ctx context.Context, member OrganizationMember) error
	CountActiveOwners(ctx context.Context, orgID snowflake.ID) (int64, error)
}
