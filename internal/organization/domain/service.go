package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Create(ctx context.Context, userID snowflake.ID, req CreateOrganizationRequest) (*OrganizationResponse, error)
	GetByID(ctx context.Context, id snowflake.ID) (*OrganizationResponse, error)
	ListOrganizationsByUser(ctx context.Context, userID snowflake.ID) ([]OrganizationListResponseItem, error)
	GetMembership(ctx context.Context, orgID, userID snowflake.ID) (*OrganizationMember, error)
	ListMembers(ctx context.Context, orgID snowflake.ID) ([]MemberListItem, error)
	AddMember(ctx context.Context, orgID snowflake.ID, req AddMemberRequest) (*OrganizationMember, error)
	UpdateMember(ctx context.Context, orgID, memberID snowflake.ID, req UpdateMemberRequest) (*OrganizationMember, error)
}

type CreateOrganizationRequest struct {
	Name          string
	ABN           string
	GSTRegistered *bool
}

type AddMemberRequest struct {
	Email        string
	Role         string
	Capabilities Capabilities
}

// UpdateMemberRequest is a sparse patch; nil fields are left unchanged.
type UpdateMemberRequest struct {
	Role                 *string
	Status               *string
	CanCreateJobs        *bool
	CanEditAllJobs       *bool
	CanCreateInvoices    *bool
	CanViewFinancials    *bool
	CanApproveExpenses   *bool
	CanApproveTimesheets *bool
}

type OrganizationResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Slug          string    `json:"slug"`
	ABN           string    `json:"abn"`
	GSTRegistered bool      `json:"gst_registered"`
	CreatedAt     time.Time `json:"created_at"`
}

type OrganizationListResponseItem struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

var (
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidUser         = errors.New("invalid_user")
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidEmail        = errors.New("invalid_email")
	ErrInvalidRole         = errors.New("invalid_role")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrNotFound            = errors.New("not_found")
	ErrMemberNotFound      = errors.New("member_not_found")
	ErrMemberExists        = errors.New("member_exists")
	ErrLastOwner           = errors.New("last_owner")
)
