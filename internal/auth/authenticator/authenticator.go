// Package authenticator resolves the caller of a request from either the
// browser session cookie or a bearer token. Strategies are evaluated in a
// fixed order and the first one that resolves wins.
package authenticator

import (
	"net/http"

	"github.com/smallbiznis/tradieapp/internal/auth/domain"
	"github.com/smallbiznis/tradieapp/internal/observability/metrics"
	"go.uber.org/zap"
)

// Strategy resolves an identity from one credential channel. A strategy
// reports ok=false for any missing or invalid credential and never fails the request.
type Strategy interface {
	Name() string
	Authenticate(r *http.Request) (domain.Identity, bool)
}

type Authenticator struct {
	log        *zap.Logger
	metrics    *metrics.Metrics
	strategies []Strategy
}

func New(log *zap.Logger, m *metrics.Metrics, strategies ...Strategy) *Authenticator {
	return &Authenticator{
		log:        log.Named("auth.authenticator"),
		metrics:    m,
		strategies: strategies,
	}
}

// Authenticate returns the identity of the first strategy that resolves, or
// ErrUnauthenticated when none does.
func (a *Authenticator) Authenticate(r *http.Request) (domain.Identity, error) {
	for _, strategy := range a.strategies {
		identity, ok := a.try(strategy, r)
		if ok {
			a.metrics.RecordAuthAttempt(r.Context(), strategy.Name(), "resolved")
			return identity, nil
		}
	}
	a.metrics.RecordAuthAttempt(r.Context(), "none", "unauthenticated")
	return domain.Identity{}, domain.ErrUnauthenticated
}

func (a *Authenticator) try(strategy Strategy, r *http.Request) (identity domain.Identity, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			a.log.Error("auth strategy panicked",
				zap.String("strategy", strategy.Name()),
				zap.Any("panic", rec),
			)
			identity, ok = domain.Identity{}, false
		}
	}()

	identity, ok = strategy.Authenticate(r)
	if ok && identity.Method == "" {
		identity.Method = strategy.Name()
	}
	return identity, ok
}
