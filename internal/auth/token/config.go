package token

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/smallbiznis/tradieapp/internal/config"
)

const devSecret = "tradieapp-dev-secret-change-me"

// Config controls bearer token signing and lifetimes.
type Config struct {
	Secret          string        `env:"AUTH_TOKEN_SECRET"`
	Issuer          string        `env:"AUTH_TOKEN_ISSUER"           envDefault:"tradieapp"`
	AccessTTL       time.Duration `env:"AUTH_TOKEN_ACCESS_TTL"       envDefault:"720h"`
	VerificationTTL time.Duration `env:"AUTH_TOKEN_VERIFICATION_TTL" envDefault:"10m"`
}

// LoadConfig reads token configuration from the environment.
// Production deployments must provide AUTH_TOKEN_SECRET.
func LoadConfig(app config.Config) (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, err
	}
	if cfg.Secret == "" {
		if app.IsProduction() {
			return Config{}, errors.New("AUTH_TOKEN_SECRET is required in production")
		}
		cfg.Secret = devSecret
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 30 * 24 * time.Hour
	}
	if cfg.VerificationTTL <= 0 {
		cfg.VerificationTTL = 10 * time.Minute
	}
	return cfg, nil
}
