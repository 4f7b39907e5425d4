package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	quotedomain "github.com/smallbiznis/tradieapp/internal/quote/domain"
	"github.com/smallbiznis/tradieapp/pkg/db/pagination"
)

type lineItemRequest struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   int64   `json:"unit_price"`
	GSTRateBps  *int64  `json:"gst_rate_bps"`
}

type createQuoteRequest struct {
	ClientID          string            `json:"client_id"`
	JobID             string            `json:"job_id"`
	Title             string            `json:"title"`
	ValidUntil        *time.Time        `json:"valid_until"`
	DepositRequired   bool              `json:"deposit_required"`
	DepositAmount     *int64            `json:"deposit_amount"`
	DepositPercentage *float64          `json:"deposit_percentage"`
	LineItems         []lineItemRequest `json:"line_items"`
}

type updateQuoteRequest struct {
	Title             *string    `json:"title"`
	ValidUntil        *time.Time `json:"valid_until"`
	DepositRequired   *bool      `json:"deposit_required"`
	DepositAmount     *int64     `json:"deposit_amount"`
	DepositPercentage *float64   `json:"deposit_percentage"`
}

type acceptQuoteRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type rejectQuoteRequest struct {
	Reason string `json:"reason"`
}

func toQuoteLines(items []lineItemRequest) []quotedomain.LineInput {
	lines := make([]quotedomain.LineInput, 0, len(items))
	for _, item := range items {
		lines = append(lines, quotedomain.LineInput{
			Description: strings.TrimSpace(item.Description),
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			GSTRateBps:  item.GSTRateBps,
		})
	}
	return lines
}

// bindOptionalJSON accepts an empty body and decodes anything else into dst.
func bindOptionalJSON(c *gin.Context, dst any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		AbortWithError(c, invalidRequestError())
		return false
	}
	return true
}

func (s *Server) CreateQuote(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.quoteSvc.Create(c.Request.Context(), quotedomain.CreateQuoteRequest{
		ClientID:          strings.TrimSpace(req.ClientID),
		JobID:             strings.TrimSpace(req.JobID),
		Title:             strings.TrimSpace(req.Title),
		ValidUntil:        req.ValidUntil,
		DepositRequired:   req.DepositRequired,
		DepositAmount:     req.DepositAmount,
		DepositPercentage: req.DepositPercentage,
		LineItems:         toQuoteLines(req.LineItems),
		CreatedBy:         identity.UserID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListQuotes(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Status   string `form:"status"`
		ClientID string `form:"client_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.quoteSvc.List(c.Request.Context(), quotedomain.ListQuoteRequest{
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

func (s *Server) GetQuoteByID(c *gin.Context) {
	resp, err := s.quoteSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateQuote(c *gin.Context) {
	var req updateQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.quoteSvc.Update(c.Request.Context(), strings.TrimSpace(c.Param("id")), quotedomain.UpdateQuoteRequest{
		Title:             req.Title,
		ValidUntil:        req.ValidUntil,
		DepositRequired:   req.DepositRequired,
		DepositAmount:     req.DepositAmount,
		DepositPercentage: req.DepositPercentage,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AddQuoteLineItem(c *gin.Context) {
	var req lineItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.quoteSvc.AddLineItem(c.Request.Context(), strings.TrimSpace(c.Param("id")), toQuoteLines([]lineItemRequest{req})[0])
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteQuoteLineItem(c *gin.Context) {
	resp, err := s.quoteSvc.DeleteLineItem(c.Request.Context(), strings.TrimSpace(c.Param("id")), strings.TrimSpace(c.Param("line_id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SendQuote(c *gin.Context) {
	resp, err := s.quoteSvc.Send(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// AcceptQuote records acceptance on the client's behalf. The deposit gate
// applies exactly as on the public route.
func (s *Server) AcceptQuote(c *gin.Context) {
	var req acceptQuoteRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	if identity, ok := identityFromContext(c); ok && strings.TrimSpace(req.Email) == "" {
		req.Email = identity.Email
	}

	resp, err := s.quoteSvc.Accept(c.Request.Context(), strings.TrimSpace(c.Param("id")), quotedomain.AcceptRequest{
		Name:  strings.TrimSpace(req.Name),
		Email: strings.TrimSpace(req.Email),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RejectQuote(c *gin.Context) {
	var req rejectQuoteRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	resp, err := s.quoteSvc.Reject(c.Request.Context(), strings.TrimSpace(c.Param("id")), strings.TrimSpace(req.Reason))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ReopenQuote(c *gin.Context) {
	resp, err := s.quoteSvc.Reopen(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) MarkQuoteDepositPaid(c *gin.Context) {
	resp, err := s.quoteSvc.MarkDepositPaid(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateQuoteDepositLink(c *gin.Context) {
	resp, err := s.quoteSvc.CreateDepositLink(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ConvertQuoteToInvoice(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	resp, err := s.quoteSvc.ConvertToInvoice(c.Request.Context(), strings.TrimSpace(c.Param("id")), identity.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}
