// Package session owns the dashboard session cookie. The cookie carries the
// raw session token; only its hash is stored server side.
package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/tradieapp/internal/clock"
	"github.com/smallbiznis/tradieapp/internal/config"
)

const CookieName = "_sid"

// Manager reads and writes the session cookie for gin handlers.
type Manager struct {
	name   string
	secure bool
	clock  clock.Clock
}

func NewManager(cfg config.Config, clk clock.Clock) *Manager {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Manager{
		name:   CookieName,
		secure: cfg.AuthCookieSecure || cfg.IsProduction(),
		clock:  clk,
	}
}

func (m *Manager) CookieName() string { return m.name }

// ReadToken returns the raw session token, if the request carries one.
func (m *Manager) ReadToken(c *gin.Context) (string, bool) {
	raw, err := c.Cookie(m.name)
	if err != nil {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}

// Set writes the cookie so the browser drops it when the session expires.
func (m *Manager) Set(c *gin.Context, token string, expiresAt time.Time) {
	m.write(c, token, m.maxAge(expiresAt))
}

func (m *Manager) Clear(c *gin.Context) {
	m.write(c, "", -1)
}

func (m *Manager) maxAge(expiresAt time.Time) int {
	seconds := int(expiresAt.Sub(m.clock.Now()) / time.Second)
	if seconds <= 0 {
		// zero would leave a browser-session cookie behind
		return -1
	}
	return seconds
}

func (m *Manager) write(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.name, value, maxAge, "/", "", m.secure, true)
}
