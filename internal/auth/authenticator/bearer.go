package authenticator

import (
	"net/http"
	"strings"

	"github.com/smallbiznis/tradieapp/internal/auth/domain"
	"github.com/smallbiznis/tradieapp/internal/auth/token"
	"go.uber.org/zap"
)

// BearerStrategy resolves an access token from the Authorization header.
type BearerStrategy struct {
	log    *zap.Logger
	tokens *token.Service
}

func NewBearerStrategy(log *zap.Logger, tokens *token.Service) *BearerStrategy {
	return &BearerStrategy{log: log, tokens: tokens}
}

func (s *BearerStrategy) Name() string { return "bearer" }

func (s *BearerStrategy) Authenticate(r *http.Request) (domain.Identity, bool) {
	raw, ok := BearerToken(r)
	if !ok {
		return domain.Identity{}, false
	}

	sub, err := s.tokens.Verify(raw, token.PurposeAccess)
	if err != nil {
		s.log.Debug("bearer token rejected", zap.Error(err))
		return domain.Identity{}, false
	}

	return domain.Identity{
		UserID:     sub.UserID,
		ExternalID: sub.ExternalID,
		Email:      sub.Email,
		Method:     s.Name(),
	}, true
}

// BearerToken extracts the credential from "Authorization: Bearer <token>".
// Any other scheme yields no credential.
func BearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	scheme, value, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}
