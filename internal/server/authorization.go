package server

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/tradieapp/internal/authorization"
)

// authorize checks the caller's membership capability for action in the
// organization bound by OrgScope.
func (s *Server) authorize(action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.authorizeAction(c, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func (s *Server) authorizeAction(c *gin.Context, action string) error {
	identity, ok := identityFromContext(c)
	if !ok {
		return ErrUnauthorized
	}
	orgID, ok := orgIDFromContext(c)
	if !ok {
		return ErrNotFound
	}
	if s.authzSvc == nil {
		return ErrForbidden
	}
	return s.authzSvc.Authorize(c.Request.Context(), identity.UserID, orgID, strings.TrimSpace(action))
}

// authorizeJobEdit allows members with can_edit_all_jobs, and otherwise the
// job's assignee.
func (s *Server) authorizeJobEdit() gin.HandlerFunc {
	return func(c *gin.Context) {
		err := s.authorizeAction(c, authorization.ActionJobEditAll)
		if err == nil {
			c.Next()
			return
		}
		if !errors.Is(err, authorization.ErrForbidden) {
			AbortWithError(c, err)
			return
		}

		identity, _ := identityFromContext(c)
		job, jobErr := s.jobSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
		if jobErr != nil {
			AbortWithError(c, jobErr)
			return
		}
		if !job.IsAssignedTo(identity.UserID) {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}
