package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	jobdomain "github.com/smallbiznis/tradieapp/internal/job/domain"
	"github.com/smallbiznis/tradieapp/pkg/db/pagination"
)

type createJobRequest struct {
	ClientID    string     `json:"client_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	AssignedTo  string     `json:"assigned_to"`
	ScheduledAt *time.Time `json:"scheduled_at"`
}

type updateJobRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Status      *string    `json:"status"`
	AssignedTo  *string    `json:"assigned_to"`
	ScheduledAt *time.Time `json:"scheduled_at"`
}

func (s *Server) CreateJob(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.jobSvc.Create(c.Request.Context(), jobdomain.CreateJobRequest{
		ClientID:    strings.TrimSpace(req.ClientID),
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		AssignedTo:  strings.TrimSpace(req.AssignedTo),
		ScheduledAt: req.ScheduledAt,
		CreatedBy:   identity.UserID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListJobs(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Status     string `form:"status"`
		AssignedTo string `form:"assigned_to"`
		ClientID   string `form:"client_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.jobSvc.List(c.Request.Context(), jobdomain.ListJobRequest{
		PageToken:  query.PageToken,
		PageSize:   query.PageSize,
		Status:     strings.TrimSpace(query.Status),
		AssignedTo: strings.TrimSpace(query.AssignedTo),
		ClientID:   strings.TrimSpace(query.ClientID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetJobByID(c *gin.Context) {
	resp, err := s.jobSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateJob(c *gin.Context) {
	var req updateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.jobSvc.Update(c.Request.Context(), strings.TrimSpace(c.Param("id")), jobdomain.UpdateJobRequest{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		AssignedTo:  req.AssignedTo,
		ScheduledAt: req.ScheduledAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
