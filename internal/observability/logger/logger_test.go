package logger

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/tradieapp/internal/observability/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func observeGlobals(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	t.Cleanup(restore)
	return logs
}

func TestWithContextAddsRequestFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	ctx := obscontext.WithRequestID(context.Background(), "req-1")
	ctx = obscontext.WithOrgID(ctx, "42")
	ctx = obscontext.WithActor(ctx, "client", "")
	WithContext(ctx, zap.New(core)).Info("quote viewed")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "42", fields["org_id"])
	assert.Equal(t, "client", fields["actor_type"])
	assert.Equal(t, "", fields["trace_id"])
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(nil, Config{Level: "chatty"})
	assert.Error(t, err)
}

func TestSQLVerb(t *testing.T) {
	cases := map[string]string{
		"SELECT * FROM quotes":                              "SELECT",
		"  insert into payments (id) values (1)":            "INSERT",
		"WITH due AS (SELECT id FROM invoices) UPDATE x":    "SELECT",
		"UPDATE invoices SET status = 'overdue' WHERE id=1": "UPDATE",
		"":                                                  "UNKNOWN",
		"PRAGMA foreign_keys = ON":                          "UNKNOWN",
	}
	for sql, want := range cases {
		assert.Equal(t, want, sqlVerb(sql), sql)
	}
}

func TestGormLoggerTraceLevels(t *testing.T) {
	l := NewGormLogger(DefaultGormLoggerConfig())

	_, ok := l.traceLevel(time.Millisecond, nil)
	assert.False(t, ok, "fast queries are not logged at warn")

	level, ok := l.traceLevel(time.Second, nil)
	assert.True(t, ok)
	assert.Equal(t, zapcore.WarnLevel, level)

	_, ok = l.traceLevel(time.Millisecond, gormlogger.ErrRecordNotFound)
	assert.False(t, ok, "record not found is ignored by default")

	level, ok = l.traceLevel(time.Millisecond, errors.New("deadlock"))
	assert.True(t, ok)
	assert.Equal(t, zapcore.ErrorLevel, level)

	_, ok = l.LogMode(gormlogger.Silent).(*GormLogger).traceLevel(time.Second, errors.New("deadlock"))
	assert.False(t, ok)
}

func TestGormLoggerTraceDropsParams(t *testing.T) {
	logs := observeGlobals(t)
	l := NewGormLogger(GormLoggerConfig{Level: gormlogger.Info})

	sql, params := l.ParamsFilter(context.Background(), "SELECT * FROM clients WHERE email = ?", "a@b.test")
	assert.Nil(t, params)

	l.Trace(context.Background(), time.Now(), func() (string, int64) { return sql, 1 }, nil)
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "gorm.query", entry.Message)
	assert.Equal(t, "SELECT", entry.ContextMap()["operation"])
	assert.NotContains(t, entry.ContextMap()["sql"], "a@b.test")
}

func TestGinMiddlewareEchoesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logs := observeGlobals(t)

	r := gin.New()
	r.Use(GinMiddleware(MiddlewareConfig{}))
	r.GET("/public/quotes/:token", func(c *gin.Context) {
		assert.Equal(t, "req-9", obscontext.RequestIDFromContext(c.Request.Context()))
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/public/quotes/abc", nil)
	req.Header.Set("X-Request-Id", "req-9")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-9", w.Header().Get("X-Request-Id"))
	assert.NotEmpty(t, w.Header().Get("X-Correlation-Id"))
	require.Equal(t, 1, logs.FilterMessage("http_request").Len())
	assert.Equal(t, "/public/quotes/:token", logs.All()[0].ContextMap()["route"])
}

func TestRequestLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, requestLevel("/health", http.StatusOK, ""))
	assert.Equal(t, zapcore.DebugLevel, requestLevel("/public/invoices/:token", http.StatusNotFound, "not_found"))
	assert.Equal(t, zapcore.InfoLevel, requestLevel("/api/orgs/:org_id/quotes", http.StatusNotFound, "not_found"))
	assert.Equal(t, zapcore.ErrorLevel, requestLevel("/api/orgs/:org_id/quotes", http.StatusInternalServerError, "internal"))
}
