package authenticator

import (
	"github.com/smallbiznis/tradieapp/internal/auth/domain"
	"github.com/smallbiznis/tradieapp/internal/auth/session"
	"github.com/smallbiznis/tradieapp/internal/auth/token"
	"github.com/smallbiznis/tradieapp/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("auth.authenticator",
	fx.Provide(provide),
)

// provide orders the channels: session cookie first, then bearer token.
func provide(log *zap.Logger, m *metrics.Metrics, sessions *session.Manager, auth domain.Service, tokens *token.Service) *Authenticator {
	named := log.Named("auth.authenticator")
	return New(log, m,
		NewSessionStrategy(named, sessions.CookieName(), auth),
		NewBearerStrategy(named, tokens),
	)
}
