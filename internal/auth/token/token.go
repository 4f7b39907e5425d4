// Package token issues and verifies the signed bearer credentials used by
// non-browser clients.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/tradieapp/internal/clock"
)

type Purpose string

const (
	PurposeAccess       Purpose = "access"
	PurposeVerification Purpose = "verification"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrWrongPurpose = errors.New("token purpose mismatch")
)

// Claims carries the identity triple plus the purpose of the token.
type Claims struct {
	UserID  string  `json:"uid"`
	Email   string  `json:"email"`
	Purpose Purpose `json:"purpose"`
	jwt.RegisteredClaims
}

// Subject identifies the principal a token is issued for.
type Subject struct {
	UserID     snowflake.ID
	ExternalID string
	Email      string
}

// Issued is a signed token with its expiry.
type Issued struct {
	Token     string
	ExpiresAt time.Time
}

type Service struct {
	cfg   Config
	key   []byte
	clock clock.Clock
}

func New(cfg Config, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{cfg: cfg, key: []byte(cfg.Secret), clock: clk}
}

func (s *Service) IssueAccess(sub Subject) (Issued, error) {
	return s.issue(sub, PurposeAccess, s.cfg.AccessTTL)
}

func (s *Service) IssueVerification(sub Subject) (Issued, error) {
	return s.issue(sub, PurposeVerification, s.cfg.VerificationTTL)
}

func (s *Service) issue(sub Subject, purpose Purpose, ttl time.Duration) (Issued, error) {
	if sub.UserID == 0 || strings.TrimSpace(sub.ExternalID) == "" {
		return Issued{}, ErrInvalidToken
	}

	now := s.clock.Now()
	expiresAt := now.Add(ttl)
	claims := Claims{
		UserID:  sub.UserID.String(),
		Email:   sub.Email,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   sub.ExternalID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return Issued{}, fmt.Errorf("sign token: %w", err)
	}
	return Issued{Token: signed, ExpiresAt: expiresAt}, nil
}

// Verify checks signature, issuer, expiry and purpose, and returns the subject.
func (s *Service) Verify(raw string, purpose Purpose) (Subject, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Subject{}, ErrInvalidToken
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Subject{}, ErrExpiredToken
		}
		return Subject{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Purpose != purpose {
		return Subject{}, ErrWrongPurpose
	}

	userID, err := snowflake.ParseString(claims.UserID)
	if err != nil || userID == 0 || claims.Subject == "" {
		return Subject{}, ErrInvalidToken
	}

	return Subject{
		UserID:     userID,
		ExternalID: claims.Subject,
		Email:      claims.Email,
	}, nil
}
