package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/smallbiznis/tradieapp/internal/invoice/domain"
	"github.com/smallbiznis/tradieapp/pkg/db/pagination"
)

type createInvoiceRequest struct {
	ClientID  string            `json:"client_id"`
	JobID     string            `json:"job_id"`
	IssueDate string            `json:"issue_date"`
	DueDate   string            `json:"due_date"`
	LineItems []lineItemRequest `json:"line_items"`
}

type updateInvoiceRequest struct {
	IssueDate string `json:"issue_date"`
	DueDate   string `json:"due_date"`
}

func toInvoiceLines(items []lineItemRequest) []invoicedomain.LineInput {
	lines := make([]invoicedomain.LineInput, 0, len(items))
	for _, item := range items {
		lines = append(lines, invoicedomain.LineInput{
			Description: strings.TrimSpace(item.Description),
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			GSTRateBps:  item.GSTRateBps,
		})
	}
	return lines
}

func parseInvoiceDates(c *gin.Context, issue, due string) (*time.Time, *time.Time, bool) {
	issueDate, err := parseOptionalTime(issue, false)
	if err != nil {
		AbortWithError(c, newValidationError("issue_date", "invalid_issue_date", "invalid issue_date"))
		return nil, nil, false
	}
	dueDate, err := parseOptionalTime(due, false)
	if err != nil {
		AbortWithError(c, newValidationError("due_date", "invalid_due_date", "invalid due_date"))
		return nil, nil, false
	}
	return issueDate, dueDate, true
}

func (s *Server) CreateInvoice(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	issueDate, dueDate, ok := parseInvoiceDates(c, req.IssueDate, req.DueDate)
	if !ok {
		return
	}

	resp, err := s.invoiceSvc.Create(c.Request.Context(), invoicedomain.CreateInvoiceRequest{
		ClientID:  strings.TrimSpace(req.ClientID),
		JobID:     strings.TrimSpace(req.JobID),
		IssueDate: issueDate,
		DueDate:   dueDate,
		LineItems: toInvoiceLines(req.LineItems),
		CreatedBy: identity.UserID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListInvoices(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Status   string `form:"status"`
		ClientID string `form:"client_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoiceSvc.List(c.Request.Context(), invoicedomain.ListInvoiceRequest{
		PageToken: query.PageToken,
		PageSize:  query.PageSize,
		Status:    strings.TrimSpace(query.Status),
		ClientID:  strings.TrimSpace(query.ClientID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	resp, err := s.invoiceSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateInvoice(c *gin.Context) {
	var req updateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	issueDate, dueDate, ok := parseInvoiceDates(c, req.IssueDate, req.DueDate)
	if !ok {
		return
	}

	resp, err := s.invoiceSvc.Update(c.Request.Context(), strings.TrimSpace(c.Param("id")), invoicedomain.UpdateInvoiceRequest{
		IssueDate: issueDate,
		DueDate:   dueDate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AddInvoiceLineItem(c *gin.Context) {
	var req lineItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoiceSvc.AddLineItem(c.Request.Context(), strings.TrimSpace(c.Param("id")), toInvoiceLines([]lineItemRequest{req})[0])
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteInvoiceLineItem(c *gin.Context) {
	resp, err := s.invoiceSvc.DeleteLineItem(c.Request.Context(), strings.TrimSpace(c.Param("id")), strings.TrimSpace(c.Param("line_id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SendInvoice(c *gin.Context) {
	resp, err := s.invoiceSvc.Send(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
