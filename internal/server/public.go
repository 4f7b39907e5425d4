package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/smallbiznis/tradieapp/internal/invoice/domain"
	quotedomain "github.com/smallbiznis/tradieapp/internal/quote/domain"
)

// Public views omit internal identifiers. A document is only reachable
// through its opaque token.

type publicLineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   int64   `json:"unit_price"`
	GSTRateBps  int64   `json:"gst_rate_bps"`
	Amount      int64   `json:"amount"`
	GSTAmount   int64   `json:"gst_amount"`
}

type publicQuote struct {
	QuoteNumber     string           `json:"quote_number"`
	Title           string           `json:"title"`
	Status          string           `json:"status"`
	Subtotal        int64            `json:"subtotal"`
	GSTAmount       int64            `json:"gst_amount"`
	TotalAmount     int64            `json:"total_amount"`
	DepositRequired bool             `json:"deposit_required"`
	DepositAmount   *int64           `json:"deposit_amount,omitempty"`
	DepositPaid     bool             `json:"deposit_paid"`
	ValidUntil      time.Time        `json:"valid_until"`
	AcceptedAt      *time.Time       `json:"accepted_at,omitempty"`
	RejectedAt      *time.Time       `json:"rejected_at,omitempty"`
	LineItems       []publicLineItem `json:"line_items"`
}

type publicInvoice struct {
	InvoiceNumber string           `json:"invoice_number"`
	Status        string           `json:"status"`
	Subtotal      int64            `json:"subtotal"`
	GSTAmount     int64            `json:"gst_amount"`
	TotalAmount   int64            `json:"total_amount"`
	PaidAmount    int64            `json:"paid_amount"`
	Balance       int64            `json:"balance"`
	IssueDate     time.Time        `json:"issue_date"`
	DueDate       time.Time        `json:"due_date"`
	PaidAt        *time.Time       `json:"paid_at,omitempty"`
	LineItems     []publicLineItem `json:"line_items"`
}

type publicDepositLink struct {
	Amount int64  `json:"amount"`
	URL    string `json:"url"`
}

func toPublicQuote(q quotedomain.Quote) publicQuote {
	view := publicQuote{
		QuoteNumber:     q.QuoteNumber,
		Title:           q.Title,
		Status:          string(q.Status),
		Subtotal:        q.Subtotal,
		GSTAmount:       q.GSTAmount,
		TotalAmount:     q.TotalAmount,
		DepositRequired: q.DepositRequired,
		DepositPaid:     q.DepositPaid,
		ValidUntil:      q.ValidUntil,
		AcceptedAt:      q.AcceptedAt,
		RejectedAt:      q.RejectedAt,
		LineItems:       make([]publicLineItem, 0, len(q.LineItems)),
	}
	if q.DepositRequired {
		if amount, err := q.ResolveDeposit(); err == nil {
			view.DepositAmount = &amount
		}
	}
	for _, line := range q.LineItems {
		view.LineItems = append(view.LineItems, publicLineItem{
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			GSTRateBps:  line.GSTRateBps,
			Amount:      line.Amount,
			GSTAmount:   line.GSTAmount,
		})
	}
	return view
}

func toPublicInvoice(inv invoicedomain.Invoice) publicInvoice {
	view := publicInvoice{
		InvoiceNumber: inv.InvoiceNumber,
		Status:        string(inv.Status),
		Subtotal:      inv.Subtotal,
		GSTAmount:     inv.GSTAmount,
		TotalAmount:   inv.TotalAmount,
		PaidAmount:    inv.PaidAmount,
		Balance:       inv.Balance(),
		IssueDate:     inv.IssueDate,
		DueDate:       inv.DueDate,
		PaidAt:        inv.PaidAt,
		LineItems:     make([]publicLineItem, 0, len(inv.LineItems)),
	}
	for _, line := range inv.LineItems {
		view.LineItems = append(view.LineItems, publicLineItem{
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			GSTRateBps:  line.GSTRateBps,
			Amount:      line.Amount,
			GSTAmount:   line.GSTAmount,
		})
	}
	return view
}

func publicToken(c *gin.Context) string {
	return strings.TrimSpace(c.Param("token"))
}

func (s *Server) GetPublicQuote(c *gin.Context) {
	q, err := s.quoteSvc.GetPublic(c.Request.Context(), publicToken(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": toPublicQuote(q)})
}

func (s *Server) AcceptPublicQuote(c *gin.Context) {
	var req acceptQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(req.Email)
	if name == "" {
		AbortWithError(c, newValidationError("name", "required", "name is required"))
		return
	}
	if email == "" {
		AbortWithError(c, newValidationError("email", "required", "email is required"))
		return
	}

	q, err := s.quoteSvc.AcceptPublic(c.Request.Context(), publicToken(c), quotedomain.AcceptRequest{
		Name:  name,
		Email: email,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": toPublicQuote(q)})
}

func (s *Server) RejectPublicQuote(c *gin.Context) {
	var req rejectQuoteRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	q, err := s.quoteSvc.RejectPublic(c.Request.Context(), publicToken(c), strings.TrimSpace(req.Reason))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": toPublicQuote(q)})
}

func (s *Server) CreatePublicDepositLink(c *gin.Context) {
	link, err := s.quoteSvc.CreatePublicDepositLink(c.Request.Context(), publicToken(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": publicDepositLink{Amount: link.Amount, URL: link.URL}})
}

func (s *Server) GetPublicInvoice(c *gin.Context) {
	inv, err := s.invoiceSvc.GetPublic(c.Request.Context(), publicToken(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": toPublicInvoice(inv)})
}
