package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	organizationdomain "github.com/smallbiznis/tradieapp/internal/organization/domain"
)

type createOrganizationRequest struct {
	Name          string `json:"name"`
	ABN           string `json:"abn"`
	GSTRegistered *bool  `json:"gst_registered"`
}

type addMemberRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	organizationdomain.Capabilities
}

type updateMemberRequest struct {
	Role                 *string `json:"role"`
	Status               *string `json:"status"`
	CanCreateJobs        *bool   `json:"can_create_jobs"`
	CanEditAllJobs       *bool   `json:"can_edit_all_jobs"`
	CanCreateInvoices    *bool   `json:"can_create_invoices"`
	CanViewFinancials    *bool   `json:"can_view_financials"`
	CanApproveExpenses   *bool   `json:"can_approve_expenses"`
	CanApproveTimesheets *bool   `json:"can_approve_timesheets"`
}

func (s *Server) CreateOrganization(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.organizationSvc.Create(c.Request.Context(), identity.UserID, organizationdomain.CreateOrganizationRequest{
		Name:          strings.TrimSpace(req.Name),
		ABN:           strings.TrimSpace(req.ABN),
		GSTRegistered: req.GSTRegistered,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListUserOrgs(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	items, err := s.organizationSvc.ListOrganizationsByUser(c.Request.Context(), identity.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) GetOrganization(c *gin.Context) {
	orgID, _ := orgIDFromContext(c)
	resp, err := s.organizationSvc.GetByID(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListMembers(c *gin.Context) {
	orgID, _ := orgIDFromContext(c)
	items, err := s.organizationSvc.ListMembers(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) AddMember(c *gin.Context) {
	orgID, _ := orgIDFromContext(c)

	var req addMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	member, err := s.organizationSvc.AddMember(c.Request.Context(), orgID, organizationdomain.AddMemberRequest{
		Email:        strings.TrimSpace(req.Email),
		Role:         strings.TrimSpace(req.Role),
		Capabilities: req.Capabilities,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": member})
}

func (s *Server) UpdateMember(c *gin.Context) {
	orgID, _ := orgIDFromContext(c)
	memberID, err := snowflake.ParseString(strings.TrimSpace(c.Param("member_id")))
	if err != nil || memberID == 0 {
		AbortWithError(c, ErrNotFound)
		return
	}

	var req updateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	member, err := s.organizationSvc.UpdateMember(c.Request.Context(), orgID, memberID, organizationdomain.UpdateMemberRequest{
		Role:                 req.Role,
		Status:               req.Status,
		CanCreateJobs:        req.CanCreateJobs,
		CanEditAllJobs:       req.CanEditAllJobs,
		CanCreateInvoices:    req.CanCreateInvoices,
		CanViewFinancials:    req.CanViewFinancials,
		CanApproveExpenses:   req.CanApproveExpenses,
		CanApproveTimesheets: req.CanApproveTimesheets,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": member})
}
