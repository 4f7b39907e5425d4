package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/tradieapp/internal/audit/domain"
	"github.com/smallbiznis/tradieapp/internal/auth/authenticator"
	authdomain "github.com/smallbiznis/tradieapp/internal/auth/domain"
	"github.com/smallbiznis/tradieapp/internal/authorization"
	"github.com/smallbiznis/tradieapp/internal/clock"
	"github.com/smallbiznis/tradieapp/internal/config"
	obscontext "github.com/smallbiznis/tradieapp/internal/observability/context"
	jobdomain "github.com/smallbiznis/tradieapp/internal/job/domain"
	organizationdomain "github.com/smallbiznis/tradieapp/internal/organization/domain"
	quotedomain "github.com/smallbiznis/tradieapp/internal/quote/domain"
	"github.com/smallbiznis/tradieapp/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testOrgID    = snowflake.ID(1001)
	ownerID      = snowflake.ID(11)
	employeeID   = snowflake.ID(12)
	strangerID   = snowflake.ID(13)
	assignedJob  = snowflake.ID(501)
	otherJob     = snowflake.ID(502)
	testUserHdr  = "X-Test-User"
	depositToken = "deposit-token"
)

// headerStrategy resolves the user id carried in a test header.
type headerStrategy struct{}

func (headerStrategy) Name() string { return "test" }

func (headerStrategy) Authenticate(r *http.Request) (authdomain.Identity, bool) {
	raw := r.Header.Get(testUserHdr)
	if raw == "" {
		return authdomain.Identity{}, false
	}
	id, err := snowflake.ParseString(raw)
	if err != nil {
		return authdomain.Identity{}, false
	}
	return authdomain.Identity{UserID: id, Email: "user@example.com"}, true
}

// fakeAuthz grants owners everything, grants employees membership-only
// actions, and treats everyone else as a non-member.
type fakeAuthz struct{}

func (fakeAuthz) Authorize(_ context.Context, userID, orgID snowflake.ID, action string) error {
	if orgID != testOrgID {
		return authorization.ErrNotFound
	}
	switch userID {
	case ownerID:
		return nil
	case employeeID:
		switch action {
		case authorization.ActionOrgView, authorization.ActionJobView, authorization.ActionClientView:
			return nil
		}
		return authorization.ErrForbidden
	default:
		return authorization.ErrNotFound
	}
}

func (fakeAuthz) Membership(context.Context, snowflake.ID, snowflake.ID) (*organizationdomain.OrganizationMember, error) {
	return nil, authorization.ErrNotFound
}

type mockJobService struct {
	mock.Mock
	jobdomain.Service
}

func (m *mockJobService) GetByID(ctx context.Context, id string) (jobdomain.Job, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(jobdomain.Job), args.Error(1)
}

func (m *mockJobService) Update(ctx context.Context, id string, req jobdomain.UpdateJobRequest) (jobdomain.Job, error) {
	args := m.Called(ctx, id, req)
	return args.Get(0).(jobdomain.Job), args.Error(1)
}

type mockQuoteService struct {
	mock.Mock
	quotedomain.Service
}

func (m *mockQuoteService) AcceptPublic(ctx context.Context, token string, req quotedomain.AcceptRequest) (quotedomain.Quote, error) {
	args := m.Called(ctx, token, req)
	return args.Get(0).(quotedomain.Quote), args.Error(1)
}

func (m *mockQuoteService) GetPublic(ctx context.Context, token string) (quotedomain.Quote, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(quotedomain.Quote), args.Error(1)
}

type mockAuditService struct {
	mock.Mock
	auditdomain.Service
}

func (m *mockAuditService) List(ctx context.Context, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(auditdomain.ListAuditLogResponse), args.Error(1)
}

type testServer struct {
	engine *gin.Engine
	jobs   *mockJobService
	quotes *mockQuoteService
	audit  *mockAuditService
}

func newTestServer(t *testing.T, limiter *ratelimit.Limiter) testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	jobs := &mockJobService{}
	quotes := &mockQuoteService{}
	audit := &mockAuditService{}
	NewServer(ServerParams{
		Gin:           engine,
		Cfg:           config.Config{Environment: "test"},
		Log:           zap.NewNop(),
		Authenticator: authenticator.New(zap.NewNop(), nil, headerStrategy{}),
		AuthzSvc:      fakeAuthz{},
		JobSvc:        jobs,
		QuoteSvc:      quotes,
		AuditSvc:      audit,
		Limiter:       limiter,
	})

	return testServer{engine: engine, jobs: jobs, quotes: quotes, audit: audit}
}

func (ts testServer) do(method, path string, user snowflake.ID, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != 0 {
		req.Header.Set(testUserHdr, user.String())
	}
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return resp.Error
}

func jobPath(id snowflake.ID) string {
	return "/api/orgs/" + testOrgID.String() + "/jobs/" + id.String()
}

func TestMissingCredentialsIsUnauthenticated(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(http.MethodGet, "/api/orgs/"+testOrgID.String()+"/jobs", 0, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthenticated", decodeError(t, rec).Type)
}

func TestNonMemberSeesNotFound(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(http.MethodGet, "/api/orgs/"+testOrgID.String()+"/quotes", strangerID, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodGet, "/api/orgs/not-a-number/quotes", ownerID, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMissingCapabilityIsForbidden(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(http.MethodGet, "/api/orgs/"+testOrgID.String()+"/invoices", employeeID, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", decodeError(t, rec).Type)
}

func TestAssigneeMayEditOwnJob(t *testing.T) {
	ts := newTestServer(t, nil)
	assignee := employeeID
	title := "Replace hot water unit"

	ts.jobs.On("GetByID", mock.Anything, assignedJob.String()).
		Return(jobdomain.Job{ID: assignedJob, OrgID: testOrgID, AssignedTo: &assignee}, nil)
	ts.jobs.On("GetByID", mock.Anything, otherJob.String()).
		Return(jobdomain.Job{ID: otherJob, OrgID: testOrgID}, nil)
	ts.jobs.On("Update", mock.Anything, assignedJob.String(), mock.Anything).
		Return(jobdomain.Job{ID: assignedJob, Title: title, AssignedTo: &assignee}, nil)

	rec := ts.do(http.MethodPatch, jobPath(assignedJob), employeeID, map[string]any{"title": title})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(http.MethodPatch, jobPath(otherJob), employeeID, map[string]any{"title": title})
	require.Equal(t, http.StatusForbidden, rec.Code)
	ts.jobs.AssertNumberOfCalls(t, "Update", 1)
}

func TestPublicAcceptReportsDepositRequired(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.quotes.On("AcceptPublic", mock.Anything, depositToken, quotedomain.AcceptRequest{Name: "Jo", Email: "jo@example.com"}).
		Return(quotedomain.Quote{}, quotedomain.ErrDepositRequired)

	rec := ts.do(http.MethodPost, "/public/quotes/"+depositToken+"/accept", 0, map[string]any{"name": " Jo ", "email": "jo@example.com"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	assert.Equal(t, "conflict", payload.Type)
	assert.Equal(t, "deposit_required", payload.Code)
}

func TestPublicRoutesActAsClient(t *testing.T) {
	ts := newTestServer(t, nil)
	asClient := mock.MatchedBy(func(ctx context.Context) bool {
		actorType, _ := obscontext.ActorFromContext(ctx)
		ip, _ := auditdomain.ClientInfoFromContext(ctx)
		return actorType == "client" && ip != ""
	})
	ts.quotes.On("AcceptPublic", asClient, "tok", quotedomain.AcceptRequest{Name: "Jo", Email: "jo@example.com"}).
		Return(quotedomain.Quote{QuoteNumber: "Q-00002", Status: quotedomain.StatusAccepted}, nil)

	rec := ts.do(http.MethodPost, "/public/quotes/tok/accept", 0, map[string]any{"name": "Jo", "email": "jo@example.com"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ts.quotes.AssertExpectations(t)
}

func TestAuditLogsAreAdminOnly(t *testing.T) {
	ts := newTestServer(t, nil)
	path := "/api/orgs/" + testOrgID.String() + "/audit-logs"
	ts.audit.On("List", mock.Anything, mock.MatchedBy(func(req auditdomain.ListAuditLogRequest) bool {
		return req.Action == "quote.accepted" && req.StartAt != nil && req.EndAt != nil && req.EndAt.Hour() == 23
	})).Return(auditdomain.ListAuditLogResponse{AuditLogs: []auditdomain.AuditLog{{ID: 1, OrgID: testOrgID, Action: "quote.accepted"}}}, nil)

	rec := ts.do(http.MethodGet, path+"?action=quote.accepted&start_at=2025-01-01&end_at=2025-01-31", ownerID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(http.MethodGet, path, employeeID, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodGet, path+"?start_at=yesterday", ownerID, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	ts.audit.AssertNumberOfCalls(t, "List", 1)
}

func TestPublicAcceptRequiresAcceptorDetails(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(http.MethodPost, "/public/quotes/"+depositToken+"/accept", 0, map[string]any{"email": "jo@example.com"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	assert.Equal(t, "validation_error", payload.Type)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "name", payload.Errors[0].Field)
	ts.quotes.AssertNotCalled(t, "AcceptPublic", mock.Anything, mock.Anything, mock.Anything)
}

func TestPublicQuoteHidesInternalIDs(t *testing.T) {
	ts := newTestServer(t, nil)
	pct := 25.0
	ts.quotes.On("GetPublic", mock.Anything, "tok").Return(quotedomain.Quote{
		ID:                99,
		OrgID:             testOrgID,
		QuoteNumber:       "Q-00001",
		Status:            quotedomain.StatusSent,
		TotalAmount:       2000,
		DepositRequired:   true,
		DepositPercentage: &pct,
	}, nil)

	rec := ts.do(http.MethodGet, "/public/quotes/tok", 0, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotContains(t, body.Data, "id")
	assert.NotContains(t, body.Data, "org_id")
	assert.Equal(t, "Q-00001", body.Data["quote_number"])
	assert.EqualValues(t, 500, body.Data["deposit_amount"])
}

func TestPublicRoutesAreRateLimited(t *testing.T) {
	limiter := ratelimit.NewLimiter(ratelimit.Params{
		Config: config.Config{RateLimit: config.RateLimitConfig{PublicRate: 0.5, PublicBurst: 1}},
		Log:    zap.NewNop(),
		Clock:  clock.NewFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
	})
	ts := newTestServer(t, limiter)
	ts.quotes.On("GetPublic", mock.Anything, "tok").Return(quotedomain.Quote{}, quotedomain.ErrNotFound)

	rec := ts.do(http.MethodGet, "/public/quotes/tok", 0, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodGet, "/public/quotes/tok", 0, nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
}

func TestMapError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		typ    string
		code   string
	}{
		{"already accepted", quotedomain.ErrAlreadyAccepted, http.StatusBadRequest, "conflict", "already_accepted"},
		{"expired", quotedomain.ErrExpired, http.StatusBadRequest, "conflict", "expired"},
		{"last owner", organizationdomain.ErrLastOwner, http.StatusBadRequest, "conflict", "last_owner"},
		{"unknown action", authorization.ErrInvalidAction, http.StatusBadRequest, "validation_error", ""},
		{"session expired", authdomain.ErrSessionExpired, http.StatusUnauthorized, "unauthenticated", ""},
		{"missing actor", authorization.ErrInvalidActor, http.StatusUnauthorized, "unauthenticated", ""},
		{"deposit already paid", quotedomain.ErrDepositAlreadyPaid, http.StatusBadRequest, "conflict", "deposit_already_paid"},
		{"not found", jobdomain.ErrNotFound, http.StatusNotFound, "not_found", ""},
		{"inverted range", auditdomain.ErrInvalidTimeRange, http.StatusBadRequest, "validation_error", ""},
		{"storage", errors.New("connection reset"), http.StatusInternalServerError, "internal_error", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, payload := mapError(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.typ, payload.Type)
			assert.Equal(t, tc.code, payload.Code)
		})
	}

	_, payload := mapError(quotedomain.ErrInvalidTitle)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "title", payload.Errors[0].Field)
}
