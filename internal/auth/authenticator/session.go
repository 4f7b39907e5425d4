package authenticator

import (
	"net/http"
	"strings"

	"github.com/smallbiznis/tradieapp/internal/auth/domain"
	"go.uber.org/zap"
)

// SessionStrategy resolves the interactive session cookie.
type SessionStrategy struct {
	log        *zap.Logger
	cookieName string
	auth       domain.Service
}

func NewSessionStrategy(log *zap.Logger, cookieName string, auth domain.Service) *SessionStrategy {
	return &SessionStrategy{log: log, cookieName: cookieName, auth: auth}
}

func (s *SessionStrategy) Name() string { return "session" }

func (s *SessionStrategy) Authenticate(r *http.Request) (domain.Identity, bool) {
	cookie, err := r.Cookie(s.cookieName)
	if err != nil || strings.TrimSpace(cookie.Value) == "" {
		return domain.Identity{}, false
	}

	ctx := r.Context()
	session, err := s.auth.Authenticate(ctx, cookie.Value)
	if err != nil {
		s.log.Debug("session not resolved", zap.Error(err))
		return domain.Identity{}, false
	}

	user, err := s.auth.GetUser(ctx, session.UserID)
	if err != nil {
		s.log.Debug("session user not resolved", zap.Error(err))
		return domain.Identity{}, false
	}

	return domain.Identity{
		UserID:     user.ID,
		ExternalID: user.ExternalID,
		Email:      user.Email,
		Method:     s.Name(),
	}, true
}
