package authenticator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tradieapp/internal/auth/domain"
	"github.com/smallbiznis/tradieapp/internal/auth/token"
	"github.com/smallbiznis/tradieapp/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockAuthService struct {
	mock.Mock
	domain.Service
}

func (m *mockAuthService) Authenticate(ctx context.Context, rawToken string) (*domain.Session, error) {
	args := m.Called(ctx, rawToken)
	if s, ok := args.Get(0).(*domain.Session); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAuthService) GetUser(ctx context.Context, id snowflake.ID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if u, ok := args.Get(0).(*domain.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

type panickingStrategy struct{}

func (panickingStrategy) Name() string { return "panics" }
func (panickingStrategy) Authenticate(*http.Request) (domain.Identity, bool) {
	panic("boom")
}

func newTokenService(clk clock.Clock) *token.Service {
	return token.New(token.Config{
		Secret:          "test-secret",
		Issuer:          "tradieapp",
		AccessTTL:       30 * 24 * time.Hour,
		VerificationTTL: 10 * time.Minute,
	}, clk)
}

var subject = token.Subject{UserID: snowflake.ID(7), ExternalID: "ext-7", Email: "sam@example.com"}

func TestExpiredBearerWithoutSessionIsUnauthenticated(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC))
	tokens := newTokenService(clk)
	issued, err := tokens.IssueAccess(subject)
	require.NoError(t, err)

	clk.Advance(31 * 24 * time.Hour)

	svc := &mockAuthService{}
	a := New(zap.NewNop(), nil,
		NewSessionStrategy(zap.NewNop(), "_sid", svc),
		NewBearerStrategy(zap.NewNop(), tokens),
	)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+issued.Token)

	_, err = a.Authenticate(req)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	svc.AssertNotCalled(t, "Authenticate", mock.Anything, mock.Anything)
}

func TestSessionResolvesBeforeBearer(t *testing.T) {
	tokens := newTokenService(clock.SystemClock{})
	issued, err := tokens.IssueAccess(subject)
	require.NoError(t, err)

	svc := &mockAuthService{}
	svc.On("Authenticate", mock.Anything, "cookie-token").Return(&domain.Session{UserID: 99}, nil)
	svc.On("GetUser", mock.Anything, snowflake.ID(99)).Return(&domain.User{ID: 99, ExternalID: "ext-99", Email: "owner@example.com"}, nil)

	a := New(zap.NewNop(), nil,
		NewSessionStrategy(zap.NewNop(), "_sid", svc),
		NewBearerStrategy(zap.NewNop(), tokens),
	)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: "_sid", Value: "cookie-token"})
	req.Header.Set("Authorization", "Bearer "+issued.Token)

	identity, err := a.Authenticate(req)
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(99), identity.UserID)
	assert.Equal(t, "session", identity.Method)
}

func TestInvalidSessionFallsBackToBearer(t *testing.T) {
	tokens := newTokenService(clock.SystemClock{})
	issued, err := tokens.IssueAccess(subject)
	require.NoError(t, err)

	svc := &mockAuthService{}
	svc.On("Authenticate", mock.Anything, "stale").Return(nil, domain.ErrSessionExpired)

	a := New(zap.NewNop(), nil,
		NewSessionStrategy(zap.NewNop(), "_sid", svc),
		NewBearerStrategy(zap.NewNop(), tokens),
	)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: "_sid", Value: "stale"})
	req.Header.Set("Authorization", "Bearer "+issued.Token)

	identity, err := a.Authenticate(req)
	require.NoError(t, err)
	assert.Equal(t, subject.UserID, identity.UserID)
	assert.Equal(t, "ext-7", identity.ExternalID)
	assert.Equal(t, "bearer", identity.Method)
}

func TestVerificationTokenIsNotAccepted(t *testing.T) {
	tokens := newTokenService(clock.SystemClock{})
	issued, err := tokens.IssueVerification(subject)
	require.NoError(t, err)

	a := New(zap.NewNop(), nil, NewBearerStrategy(zap.NewNop(), tokens))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+issued.Token)

	_, err = a.Authenticate(req)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestPanickingStrategyDoesNotStopEvaluation(t *testing.T) {
	tokens := newTokenService(clock.SystemClock{})
	issued, err := tokens.IssueAccess(subject)
	require.NoError(t, err)

	a := New(zap.NewNop(), nil, panickingStrategy{}, NewBearerStrategy(zap.NewNop(), tokens))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+issued.Token)

	identity, err := a.Authenticate(req)
	require.NoError(t, err)
	assert.Equal(t, "bearer", identity.Method)
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		want   string
		ok     bool
	}{
		{"", "", false},
		{"Basic abc", "", false},
		{"Bearer", "", false},
		{"Bearer   ", "", false},
		{"Bearer abc.def", "abc.def", true},
		{"bearer abc", "abc", true},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		got, ok := BearerToken(req)
		assert.Equal(t, tc.ok, ok, tc.header)
		assert.Equal(t, tc.want, got, tc.header)
	}
}
