package server

import (
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/tradieapp/internal/audit/domain"
	authdomain "github.com/smallbiznis/tradieapp/internal/auth/domain"
	obscontext "github.com/smallbiznis/tradieapp/internal/observability/context"
	"github.com/smallbiznis/tradieapp/internal/orgcontext"
	"github.com/smallbiznis/tradieapp/internal/ratelimit"
)

const (
	contextIdentityKey = "identity"
	contextOrgIDKey    = "org_id"
)

// AuthRequired resolves the caller through the session cookie or bearer token.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := s.authenticator.Authenticate(c.Request)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(contextIdentityKey, identity)
		ctx := obscontext.WithActor(c.Request.Context(), "user", identity.UserID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// OrgScope binds the :org_id path parameter to the request context.
func (s *Server) OrgScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, err := snowflake.ParseString(strings.TrimSpace(c.Param("org_id")))
		if err != nil || orgID == 0 {
			AbortWithError(c, ErrNotFound)
			return
		}

		c.Set(contextOrgIDKey, orgID)
		ctx := orgcontext.WithOrgID(c.Request.Context(), orgID)
		ctx = obscontext.WithOrgID(ctx, orgID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// ClientInfo captures the caller's address and user agent for audit entries.
func (s *Server) ClientInfo() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := auditdomain.WithClientInfo(c.Request.Context(), c.ClientIP(), c.Request.UserAgent())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// PublicActor marks token-authorized requests as acting on the client's behalf.
func (s *Server) PublicActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := obscontext.WithActor(c.Request.Context(), "client", "")
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (s *Server) RateLimitPublic() gin.HandlerFunc {
	return s.rateLimit(func(c *gin.Context) *ratelimit.Result {
		return s.limiter.AllowPublic(c.Request.Context(), c.ClientIP())
	})
}

func (s *Server) RateLimitLogin() gin.HandlerFunc {
	return s.rateLimit(func(c *gin.Context) *ratelimit.Result {
		return s.limiter.AllowLogin(c.Request.Context(), c.ClientIP())
	})
}

func (s *Server) rateLimit(check func(c *gin.Context) *ratelimit.Result) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil {
			c.Next()
			return
		}

		res := check(c)
		if res != nil && !res.Allowed {
			seconds := int(res.RetryAfter.Seconds())
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}

func identityFromContext(c *gin.Context) (authdomain.Identity, bool) {
	value, ok := c.Get(contextIdentityKey)
	if !ok {
		return authdomain.Identity{}, false
	}
	identity, ok := value.(authdomain.Identity)
	if !ok || identity.UserID == 0 {
		return authdomain.Identity{}, false
	}
	return identity, true
}

func orgIDFromContext(c *gin.Context) (snowflake.ID, bool) {
	value, ok := c.Get(contextOrgIDKey)
	if !ok {
		return 0, false
	}
	orgID, ok := value.(snowflake.ID)
	return orgID, ok && orgID != 0
}
