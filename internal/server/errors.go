package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/tradieapp/internal/audit/domain"
	authdomain "github.com/smallbiznis/tradieapp/internal/auth/domain"
	"github.com/smallbiznis/tradieapp/internal/auth/token"
	"github.com/smallbiznis/tradieapp/internal/authorization"
	clientdomain "github.com/smallbiznis/tradieapp/internal/client/domain"
	invoicedomain "github.com/smallbiznis/tradieapp/internal/invoice/domain"
	jobdomain "github.com/smallbiznis/tradieapp/internal/job/domain"
	obslogger "github.com/smallbiznis/tradieapp/internal/observability/logger"
	organizationdomain "github.com/smallbiznis/tradieapp/internal/organization/domain"
	paymentdomain "github.com/smallbiznis/tradieapp/internal/payment/domain"
	quotedomain "github.com/smallbiznis/tradieapp/internal/quote/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Code    string            `json:"code,omitempty"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrRateLimited    = errors.New("rate_limited")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		if status >= http.StatusInternalServerError {
			obslogger.FromContext(c.Request.Context()).Error("request failed",
				zap.String("route", c.FullPath()),
				zap.Error(lastErr.Err),
			)
		}
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: "invalid value",
				},
			},
		}
	}

	if code, ok := conflictCode(err); ok {
		return http.StatusBadRequest, errorPayload{
			Type:    "conflict",
			Code:    code,
			Message: conflictMessage(code),
		}
	}

	switch {
	case isUnauthorizedError(err):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthenticated",
			Message: "unauthenticated",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog feeds error_type and error_code into the request log.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Code
	if code == "" && len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isUnauthorizedError(err error) bool {
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrUnauthenticated),
		errors.Is(err, authorization.ErrInvalidActor),
		errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrInvalidSession),
		errors.Is(err, authdomain.ErrSessionNotFound),
		errors.Is(err, authdomain.ErrSessionExpired),
		errors.Is(err, authdomain.ErrSessionRevoked),
		errors.Is(err, token.ErrInvalidToken),
		errors.Is(err, token.ErrExpiredToken),
		errors.Is(err, token.ErrWrongPurpose):
		return true
	default:
		return false
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, authorization.ErrInvalidAction):
		return true
	case isOrganizationValidationError(err),
		isClientValidationError(err),
		isJobValidationError(err),
		isQuoteValidationError(err),
		isInvoiceValidationError(err),
		isPaymentValidationError(err),
		isAuditValidationError(err):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, authorization.ErrNotFound),
		errors.Is(err, authdomain.ErrUserNotFound),
		errors.Is(err, organizationdomain.ErrNotFound),
		errors.Is(err, organizationdomain.ErrMemberNotFound),
		errors.Is(err, clientdomain.ErrNotFound),
		errors.Is(err, jobdomain.ErrNotFound),
		errors.Is(err, quotedomain.ErrNotFound),
		errors.Is(err, invoicedomain.ErrNotFound),
		errors.Is(err, paymentdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

var conflictCodes = []struct {
	err  error
	code string
}{
	{quotedomain.ErrAlreadyAccepted, "already_accepted"},
	{quotedomain.ErrAlreadyRejected, "already_rejected"},
	{quotedomain.ErrExpired, "expired"},
	{quotedomain.ErrDepositRequired, "deposit_required"},
	{quotedomain.ErrInvalidDeposit, "invalid_deposit"},
	{quotedomain.ErrDepositAlreadyPaid, "deposit_already_paid"},
	{quotedomain.ErrNotReopenable, "not_reopenable"},
	{quotedomain.ErrNotEditable, "not_editable"},
	{quotedomain.ErrAlreadyConverted, "already_converted"},
	{quotedomain.ErrNotAccepted, "not_accepted"},
	{quotedomain.ErrConcurrentUpdate, "concurrent_update"},
	{invoicedomain.ErrNotEditable, "not_editable"},
	{paymentdomain.ErrConcurrentUpdate, "concurrent_update"},
	{organizationdomain.ErrLastOwner, "last_owner"},
	{organizationdomain.ErrMemberExists, "member_exists"},
	{authdomain.ErrUserExists, "user_exists"},
}

func conflictCode(err error) (string, bool) {
	for _, entry := range conflictCodes {
		if errors.Is(err, entry.err) {
			return entry.code, true
		}
	}
	return "", false
}

func conflictMessage(code string) string {
	switch code {
	case "already_accepted":
		return "quote has already been accepted"
	case "already_rejected":
		return "quote has already been rejected"
	case "expired":
		return "quote has expired"
	case "deposit_required":
		return "deposit must be paid before accepting"
	case "invalid_deposit":
		return "deposit is not configured"
	case "deposit_already_paid":
		return "deposit has already been paid"
	case "not_reopenable":
		return "only rejected or expired quotes can be reopened"
	case "not_editable":
		return "document can no longer be edited"
	case "already_converted":
		return "quote has already been converted"
	case "not_accepted":
		return "quote must be accepted first"
	case "last_owner":
		return "organization must keep an active owner"
	case "concurrent_update":
		return "document was modified concurrently, retry"
	default:
		return strings.ReplaceAll(code, "_", " ")
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func isOrganizationValidationError(err error) bool {
	switch err {
	case organizationdomain.ErrInvalidName,
		organizationdomain.ErrInvalidUser,
		organizationdomain.ErrInvalidOrganization,
		organizationdomain.ErrInvalidEmail,
		organizationdomain.ErrInvalidRole,
		organizationdomain.ErrInvalidStatus:
		return true
	default:
		return false
	}
}

func isClientValidationError(err error) bool {
	switch err {
	case clientdomain.ErrInvalidOrganization,
		clientdomain.ErrInvalidName,
		clientdomain.ErrInvalidEmail,
		clientdomain.ErrInvalidID,
		clientdomain.ErrInvalidPageToken:
		return true
	default:
		return false
	}
}

func isJobValidationError(err error) bool {
	switch err {
	case jobdomain.ErrInvalidOrganization,
		jobdomain.ErrInvalidTitle,
		jobdomain.ErrInvalidClient,
		jobdomain.ErrInvalidAssignee,
		jobdomain.ErrInvalidStatus,
		jobdomain.ErrInvalidID,
		jobdomain.ErrInvalidPageToken:
		return true
	default:
		return false
	}
}

func isQuoteValidationError(err error) bool {
	switch err {
	case quotedomain.ErrInvalidOrganization,
		quotedomain.ErrInvalidID,
		quotedomain.ErrInvalidTitle,
		quotedomain.ErrInvalidClient,
		quotedomain.ErrInvalidJob,
		quotedomain.ErrInvalidLineItem,
		quotedomain.ErrInvalidValidUntil,
		quotedomain.ErrInvalidStatus,
		quotedomain.ErrInvalidPageToken:
		return true
	default:
		return false
	}
}

func isInvoiceValidationError(err error) bool {
	switch err {
	case invoicedomain.ErrInvalidOrganization,
		invoicedomain.ErrInvalidID,
		invoicedomain.ErrInvalidClient,
		invoicedomain.ErrInvalidJob,
		invoicedomain.ErrInvalidLineItem,
		invoicedomain.ErrInvalidDueDate,
		invoicedomain.ErrInvalidStatus,
		invoicedomain.ErrInvalidPageToken:
		return true
	default:
		return false
	}
}

func isPaymentValidationError(err error) bool {
	switch err {
	case paymentdomain.ErrInvalidOrganization,
		paymentdomain.ErrInvalidID,
		paymentdomain.ErrInvalidAmount,
		paymentdomain.ErrInvalidMethod:
		return true
	default:
		return false
	}
}

func isAuditValidationError(err error) bool {
	switch err {
	case auditdomain.ErrInvalidOrganization,
		auditdomain.ErrInvalidPageToken,
		auditdomain.ErrInvalidTimeRange,
		auditdomain.ErrInvalidAction:
		return true
	default:
		return false
	}
}
