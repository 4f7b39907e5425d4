package observability

import (
	"strings"

	"github.com/smallbiznis/tradieapp/internal/config"
)

const defaultServiceName = "tradieapp"

// Config is the slice of application settings the logger, tracer and meter
// providers are built from.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	Telemetry config.TelemetryConfig
}

func LoadConfig(cfg config.Config) Config {
	name := strings.TrimSpace(cfg.AppName)
	if name == "" {
		name = defaultServiceName
	}
	return Config{
		ServiceName: name,
		Environment: strings.TrimSpace(cfg.Environment),
		Version:     strings.TrimSpace(cfg.AppVersion),
		LogLevel:    cfg.Log.Level,
		LogFormat:   cfg.Log.Format,
		Telemetry:   cfg.Telemetry,
	}
}

// Debug turns on verbose request logging and stack traces. Local and test
// environments always run in debug.
func (c Config) Debug() bool {
	if strings.EqualFold(strings.TrimSpace(c.LogLevel), "debug") {
		return true
	}
	switch strings.ToLower(c.Environment) {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}
