package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tradieapp/internal/clock"
	"github.com/smallbiznis/tradieapp/internal/publictoken/domain"
	"github.com/smallbiznis/tradieapp/internal/publictoken/repository"
	"github.com/smallbiznis/tradieapp/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) domain.Service {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.PublicToken{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return New(Params{DB: conn, Log: zap.NewNop(), GenID: node, Repo: repository.Provide(), Clock: clock.SystemClock{}})
}

func TestIssueAndResolve(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	raw, err := svc.Issue(ctx, nil, 1, domain.DocumentQuote, 42)
	require.NoError(t, err)
	assert.Len(t, raw, 43)

	token, err := svc.Resolve(ctx, domain.DocumentQuote, raw)
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(42), token.DocumentID)
	assert.Equal(t, snowflake.ID(1), token.OrgID)

	_, err = svc.Resolve(ctx, domain.DocumentInvoice, raw)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Resolve(ctx, domain.DocumentQuote, "42")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIssueRotatesPreviousToken(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.Issue(ctx, nil, 1, domain.DocumentInvoice, 7)
	require.NoError(t, err)
	second, err := svc.Issue(ctx, nil, 1, domain.DocumentInvoice, 7)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	_, err = svc.Resolve(ctx, domain.DocumentInvoice, first)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Resolve(ctx, domain.DocumentInvoice, second)
	assert.NoError(t, err)
}

func TestRevoke(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	raw, err := svc.Issue(ctx, nil, 1, domain.DocumentQuote, 9)
	require.NoError(t, err)
	require.NoError(t, svc.Revoke(ctx, nil, 1, domain.DocumentQuote, 9))

	_, err = svc.Resolve(ctx, domain.DocumentQuote, raw)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
