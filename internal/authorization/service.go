package authorization

import (
	"context"

	"github.com/bwmarrin/snowflake"
	orgdomain "github.com/smallbiznis/tradieapp/internal/organization/domain"
)

// Service decides whether a user may perform an action inside an organization.
type Service interface {
	// Authorize returns ErrNotFound when the user has no active membership in
	// the organization and ErrForbidden when the membership lacks the capability.
	Authorize(ctx context.Context, userID, orgID snowflake.ID, action string) error
	// Membership returns the active membership or ErrNotFound.
	Membership(ctx context.Context, userID, orgID snowflake.ID) (*orgdomain.OrganizationMember, error)
}
