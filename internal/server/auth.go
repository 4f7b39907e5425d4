package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/tradieapp/internal/auth/domain"
	"github.com/smallbiznis/tradieapp/internal/auth/token"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type exchangeRequest struct {
	Token string `json:"token"`
}

type userResponse struct {
	ID          string `json:"id"`
	ExternalID  string `json:"external_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

type tokenResponse struct {
	Token     string        `json:"token"`
	TokenType string        `json:"token_type"`
	ExpiresAt time.Time     `json:"expires_at"`
	User      *userResponse `json:"user,omitempty"`
}

func toUserResponse(user *authdomain.User) *userResponse {
	if user == nil {
		return nil
	}
	return &userResponse{
		ID:          user.ID.String(),
		ExternalID:  user.ExternalID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
	}
}

func bindLogin(c *gin.Context) (LoginRequest, bool) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return req, false
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" {
		AbortWithError(c, newValidationError("email", "required", "email is required"))
		return req, false
	}
	if req.Password == "" {
		AbortWithError(c, newValidationError("password", "required", "password is required"))
		return req, false
	}
	return req, true
}

// Login authenticates a dashboard user and sets the session cookie.
func (s *Server) Login(c *gin.Context) {
	req, ok := bindLogin(c)
	if !ok {
		return
	}

	result, err := s.authsvc.Login(c.Request.Context(), authdomain.LoginRequest{
		Email:     req.Email,
		Password:  req.Password,
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.sessions.Set(c, result.RawToken, result.ExpiresAt)
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"user":       toUserResponse(result.User),
		"expires_at": result.ExpiresAt,
	}})
}

func (s *Server) Logout(c *gin.Context) {
	raw, ok := s.sessions.ReadToken(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	if err := s.authsvc.Logout(c.Request.Context(), raw); err != nil {
		AbortWithError(c, err)
		return
	}

	s.sessions.Clear(c)
	c.Status(http.StatusNoContent)
}

func (s *Server) Me(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	user, err := s.authsvc.GetUser(c.Request.Context(), identity.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	orgs, err := s.organizationSvc.ListOrganizationsByUser(c.Request.Context(), identity.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"user":          toUserResponse(user),
		"auth_method":   identity.Method,
		"organizations": orgs,
	}})
}

// MobileLogin exchanges a password for a bearer access token.
func (s *Server) MobileLogin(c *gin.Context) {
	req, ok := bindLogin(c)
	if !ok {
		return
	}

	user, err := s.authsvc.VerifyPassword(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	issued, err := s.tokens.IssueAccess(token.Subject{
		UserID:     user.ID,
		ExternalID: user.ExternalID,
		Email:      user.Email,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": tokenResponse{
		Token:     issued.Token,
		TokenType: "Bearer",
		ExpiresAt: issued.ExpiresAt,
		User:      toUserResponse(user),
	}})
}

// MobilePairing issues a short-lived verification token for an already
// signed-in user, usually rendered as a QR code on the dashboard.
func (s *Server) MobilePairing(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	issued, err := s.tokens.IssueVerification(token.Subject{
		UserID:     identity.UserID,
		ExternalID: identity.ExternalID,
		Email:      identity.Email,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": tokenResponse{
		Token:     issued.Token,
		TokenType: "Verification",
		ExpiresAt: issued.ExpiresAt,
	}})
}

func (s *Server) MobileExchange(c *gin.Context) {
	var req exchangeRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Token) == "" {
		AbortWithError(c, invalidRequestError())
		return
	}

	subject, err := s.tokens.Verify(req.Token, token.PurposeVerification)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	user, err := s.authsvc.GetUser(c.Request.Context(), subject.UserID)
	if err != nil {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	issued, err := s.tokens.IssueAccess(token.Subject{
		UserID:     user.ID,
		ExternalID: user.ExternalID,
		Email:      user.Email,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": tokenResponse{
		Token:     issued.Token,
		TokenType: "Bearer",
		ExpiresAt: issued.ExpiresAt,
		User:      toUserResponse(user),
	}})
}
