package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/smallbiznis/tradieapp/internal/payment/domain"
)

type recordPaymentRequest struct {
	Amount    int64  `json:"amount"`
	Method    string `json:"method"`
	Reference string `json:"reference"`
	PaidAt    string `json:"paid_at"`
}

func (s *Server) RecordPayment(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req recordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	paidAt, err := parseOptionalTime(req.PaidAt, false)
	if err != nil {
		AbortWithError(c, newValidationError("paid_at", "invalid_paid_at", "invalid paid_at"))
		return
	}

	resp, err := s.paymentSvc.Record(c.Request.Context(), strings.TrimSpace(c.Param("id")), paymentdomain.RecordPaymentRequest{
		Amount:     req.Amount,
		Method:     strings.TrimSpace(req.Method),
		Reference:  strings.TrimSpace(req.Reference),
		PaidAt:     paidAt,
		RecordedBy: identity.UserID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListPayments(c *gin.Context) {
	items, err := s.paymentSvc.List(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) DeletePayment(c *gin.Context) {
	inv, err := s.paymentSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id")), strings.TrimSpace(c.Param("payment_id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"invoice": inv}})
}
