package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/tradieapp/internal/audit/domain"
	"github.com/smallbiznis/tradieapp/internal/audit/repository"
	"github.com/smallbiznis/tradieapp/internal/clock"
	obscontext "github.com/smallbiznis/tradieapp/internal/observability/context"
	"github.com/smallbiznis/tradieapp/internal/orgcontext"
	"github.com/smallbiznis/tradieapp/pkg/db"
	"github.com/smallbiznis/tradieapp/pkg/telemetry/correlation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testOrg  = snowflake.ID(501)
	otherOrg = snowflake.ID(502)
)

func newTestService(t *testing.T) (auditdomain.Service, *clock.FakeClock) {
	t.Helper()

	conn, err := db.NewTest()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&auditdomain.AuditLog{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	node, err := snowflake.NewNode(5)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	clk := clock.NewFakeClock(time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC))

	svc := NewService(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
		Clock: clk,
	})
	return svc, clk
}

func TestRecordCapturesActorAndClientInfo(t *testing.T) {
	svc, _ := newTestService(t)

	ctx := obscontext.WithActor(context.Background(), "client", "")
	ctx = auditdomain.WithClientInfo(ctx, "203.0.113.9", "Mobile Safari")
	ctx = correlation.ContextWithCorrelationID(ctx, "01HZXCORRELATION")
	err := svc.Record(ctx, auditdomain.Entry{
		OrgID:      testOrg,
		Action:     "quote.accepted",
		TargetType: "quote",
		TargetID:   snowflake.ID(77),
		Metadata:   map[string]any{"accepted_by_email": "jo@example.com"},
	})
	require.NoError(t, err)

	resp, err := svc.List(orgcontext.WithOrgID(context.Background(), testOrg), auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)

	log := resp.AuditLogs[0]
	assert.Equal(t, "client", log.ActorType)
	assert.Nil(t, log.ActorID)
	require.NotNil(t, log.TargetID)
	assert.Equal(t, "77", *log.TargetID)
	require.NotNil(t, log.IPAddress)
	assert.Equal(t, "203.0.113.9", *log.IPAddress)
	assert.Equal(t, "jo@example.com", log.Metadata["accepted_by_email"])
	assert.Equal(t, "01HZXCORRELATION", log.Metadata["correlation_id"])
}

func TestRecordDefaultsToSystemActorAndContextOrg(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := orgcontext.WithOrgID(context.Background(), testOrg)

	require.NoError(t, svc.Record(ctx, auditdomain.Entry{Action: "invoice.sent", TargetType: "invoice", TargetID: 9}))

	resp, err := svc.List(ctx, auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)
	assert.Equal(t, string(auditdomain.ActorTypeSystem), resp.AuditLogs[0].ActorType)
}

func TestRecordRejectsMissingActionOrOrg(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.Record(context.Background(), auditdomain.Entry{OrgID: testOrg})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidAction)

	err = svc.Record(context.Background(), auditdomain.Entry{Action: "quote.sent"})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidOrganization)
}

func TestListIsScopedAndPaginated(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		clk.Advance(time.Minute)
		require.NoError(t, svc.Record(ctx, auditdomain.Entry{OrgID: testOrg, Action: "payment.recorded", TargetType: "invoice", TargetID: 1}))
	}
	require.NoError(t, svc.Record(ctx, auditdomain.Entry{OrgID: otherOrg, Action: "payment.recorded", TargetType: "invoice", TargetID: 2}))

	scoped := orgcontext.WithOrgID(ctx, testOrg)
	first, err := svc.List(scoped, auditdomain.ListAuditLogRequest{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, first.AuditLogs, 2)
	assert.True(t, first.HasMore)
	assert.True(t, first.AuditLogs[0].CreatedAt.After(first.AuditLogs[1].CreatedAt))

	second, err := svc.List(scoped, auditdomain.ListAuditLogRequest{PageSize: 2, PageToken: first.NextPageToken})
	require.NoError(t, err)
	require.Len(t, second.AuditLogs, 1)
	assert.False(t, second.HasMore)

	_, err = svc.List(scoped, auditdomain.ListAuditLogRequest{PageToken: "%%%"})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidPageToken)
}

func TestListRejectsInvertedTimeRange(t *testing.T) {
	svc, _ := newTestService(t)
	start := time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)

	_, err := svc.List(orgcontext.WithOrgID(context.Background(), testOrg), auditdomain.ListAuditLogRequest{StartAt: &start, EndAt: &end})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidTimeRange)
}
