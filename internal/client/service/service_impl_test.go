package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tradieapp/internal/client/domain"
	"github.com/smallbiznis/tradieapp/internal/client/repository"
	"github.com/smallbiznis/tradieapp/internal/clock"
	"github.com/smallbiznis/tradieapp/internal/orgcontext"
	"github.com/smallbiznis/tradieapp/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (domain.Service, *clock.FakeClock) {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Client{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	return New(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
		Clock: clk,
	}), clk
}

func TestCreateRequiresOrganization(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Create(context.Background(), domain.CreateClientRequest{Name: "Jo"})
	assert.ErrorIs(t, err, domain.ErrInvalidOrganization)
}

func TestCreateValidatesInput(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := orgcontext.WithOrgID(context.Background(), 10)

	_, err := svc.Create(ctx, domain.CreateClientRequest{Name: " "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Create(ctx, domain.CreateClientRequest{Name: "Jo", Email: "not-an-email"})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)
}

func TestClientsAreTenantScoped(t *testing.T) {
	svc, _ := newTestService(t)
	orgA := orgcontext.WithOrgID(context.Background(), 10)
	orgB := orgcontext.WithOrgID(context.Background(), 20)

	created, err := svc.Create(orgA, domain.CreateClientRequest{Name: "Mrs Smith", Email: "Smith@Example.com"})
	require.NoError(t, err)
	assert.Equal(t, "smith@example.com", created.Email)

	got, err := svc.GetByID(orgA, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Mrs Smith", got.Name)

	_, err = svc.GetByID(orgB, created.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.GetByID(orgA, "abc")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestUpdateAppliesOnlyPresentFields(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := orgcontext.WithOrgID(context.Background(), 10)

	created, err := svc.Create(ctx, domain.CreateClientRequest{Name: "Bob", Phone: "0400 000 000", Address: "1 Main St"})
	require.NoError(t, err)

	clk.Advance(time.Hour)
	phone := "0411 111 111"
	updated, err := svc.Update(ctx, created.ID.String(), domain.UpdateClientRequest{Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "Bob", updated.Name)
	assert.Equal(t, "0411 111 111", updated.Phone)
	assert.Equal(t, "1 Main St", updated.Address)

	blank := ""
	_, err = svc.Update(ctx, created.ID.String(), domain.UpdateClientRequest{Name: &blank})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Update(orgcontext.WithOrgID(context.Background(), 20), created.ID.String(), domain.UpdateClientRequest{Phone: &phone})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListPaginates(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := orgcontext.WithOrgID(context.Background(), 10)

	for _, name := range []string{"Alpha", "Bravo", "Charlie"} {
		_, err := svc.Create(ctx, domain.CreateClientRequest{Name: name})
		require.NoError(t, err)
		clk.Advance(time.Minute)
	}

	first, err := svc.List(ctx, domain.ListClientRequest{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, first.Clients, 2)
	assert.True(t, first.HasMore)
	assert.Equal(t, "Charlie", first.Clients[0].Name)

	second, err := svc.List(ctx, domain.ListClientRequest{PageSize: 2, PageToken: first.NextPageToken})
	require.NoError(t, err)
	require.Len(t, second.Clients, 1)
	assert.False(t, second.HasMore)
	assert.Equal(t, "Alpha", second.Clients[0].Name)

	_, err = svc.List(ctx, domain.ListClientRequest{PageToken: "!!"})
	assert.ErrorIs(t, err, domain.ErrInvalidPageToken)
}
