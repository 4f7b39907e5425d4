package email

import (
	"context"
	"strings"
	"testing"

	"github.com/smallbiznis/tradieapp/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRenderQuoteSent(t *testing.T) {
	subject, body, err := Render("quote_sent", map[string]any{
		"client_name": "Jo",
		"number":      "Q-00001",
		"title":       "Deck <rebuild>",
		"total":       "$1,100.00",
		"valid_until": "7 May 2025",
		"deposit":     "$220.00",
		"link":        "https://app.tradieapp.test/q/abc",
	})
	require.NoError(t, err)
	assert.Equal(t, "Your quote Q-00001", subject)
	assert.Contains(t, body, `href="https://app.tradieapp.test/q/abc"`)
	assert.Contains(t, body, "Deck &lt;rebuild&gt;")
	assert.Contains(t, body, "$220.00")
}

func TestRenderSubjectOverride(t *testing.T) {
	subject, body, err := Render("invoice_sent", map[string]any{"subject": "Reminder", "number": "INV-00002"})
	require.NoError(t, err)
	assert.Equal(t, "Reminder", subject)
	assert.Contains(t, body, "INV-00002")

	_, _, err = Render("missing", nil)
	assert.Error(t, err)
}

func TestBuildMessageHeaders(t *testing.T) {
	msg := string(buildMessage("TradieApp <no-reply@tradieapp.test>", []string{"jo@example.com"}, "Your quote", "<p>hi</p>"))
	assert.True(t, strings.HasPrefix(msg, "From: TradieApp <no-reply@tradieapp.test>\r\n"))
	assert.Contains(t, msg, "To: jo@example.com\r\n")
	assert.Contains(t, msg, "Content-Type: text/html")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\n<p>hi</p>"))
	assert.Equal(t, "no-reply@tradieapp.test", envelopeAddress("TradieApp <no-reply@tradieapp.test>"))
	assert.Equal(t, "ops@tradieapp.test", envelopeAddress(" ops@tradieapp.test "))
}

func TestSendRequiresRecipients(t *testing.T) {
	p := NewSMTP(Config{Host: "localhost", Port: 2525})
	assert.ErrorIs(t, p.Send(context.Background(), nil, "s", "b"), ErrNoRecipients)
}

func TestNewFromConfigWithoutHostIsNoOp(t *testing.T) {
	provider := NewFromConfig(config.Config{}, zap.NewNop())
	_, ok := provider.(*NoOpProvider)
	assert.True(t, ok)
	assert.NoError(t, provider.SendTemplate(context.Background(), []string{"jo@example.com"}, "quote_sent", nil))
}
