// Package orgcontext carries the organization a request acts on. The
// server sets it after checking membership; services read it instead of
// taking an org id argument, so a handler cannot address another tenant.
package orgcontext

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type key struct{}

func WithOrgID(ctx context.Context, orgID snowflake.ID) context.Context {
	return context.WithValue(ctx, key{}, orgID)
}

// OrgIDFromContext returns the active org. A zero id counts as unset.
func OrgIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	if ctx == nil {
		return 0, false
	}
	id, _ := ctx.Value(key{}).(snowflake.ID)
	return id, id != 0
}
