package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	clientdomain "github.com/smallbiznis/tradieapp/internal/client/domain"
	clientrepository "github.com/smallbiznis/tradieapp/internal/client/repository"
	"github.com/smallbiznis/tradieapp/internal/clock"
	"github.com/smallbiznis/tradieapp/internal/job/domain"
	"github.com/smallbiznis/tradieapp/internal/job/repository"
	orgdomain "github.com/smallbiznis/tradieapp/internal/organization/domain"
	orgrepository "github.com/smallbiznis/tradieapp/internal/organization/repository"
	"github.com/smallbiznis/tradieapp/internal/orgcontext"
	"github.com/smallbiznis/tradieapp/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	testOrg      = snowflake.ID(100)
	otherOrg     = snowflake.ID(200)
	testClient   = snowflake.ID(300)
	assigneeUser = snowflake.ID(400)
	outsiderUser = snowflake.ID(500)
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Job{}, &clientdomain.Client{}, &orgdomain.OrganizationMember{}))

	now := time.Now().UTC()
	require.NoError(t, conn.Create(&clientdomain.Client{ID: testClient, OrgID: testOrg, Name: "Acme", CreatedAt: now, UpdatedAt: now}).Error)
	require.NoError(t, conn.Create(&orgdomain.OrganizationMember{
		ID: 1, OrgID: testOrg, UserID: assigneeUser,
		Role: orgdomain.RoleEmployee, Status: orgdomain.MemberStatusActive,
		CreatedAt: now, UpdatedAt: now,
	}).Error)
	require.NoError(t, conn.Create(&orgdomain.OrganizationMember{
		ID: 2, OrgID: otherOrg, UserID: outsiderUser,
		Role: orgdomain.RoleOwner, Status: orgdomain.MemberStatusActive,
		CreatedAt: now, UpdatedAt: now,
	}).Error)
	return conn
}

func newTestService(t *testing.T) domain.Service {
	t.Helper()
	conn := setupTestDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return New(Params{
		DB:         conn,
		Log:        zap.NewNop(),
		GenID:      node,
		Repo:       repository.Provide(),
		ClientRepo: clientrepository.Provide(),
		Members:    orgrepository.NewRepository(conn),
		Clock:      clock.SystemClock{},
	})
}

func TestCreateJob(t *testing.T) {
	svc := newTestService(t)
	ctx := orgcontext.WithOrgID(context.Background(), testOrg)

	job, err := svc.Create(ctx, domain.CreateJobRequest{
		ClientID:   testClient.String(),
		Title:      "Replace hot water system",
		AssignedTo: assigneeUser.String(),
		CreatedBy:  snowflake.ID(1),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusScheduled, job.Status)
	assert.True(t, job.IsAssignedTo(assigneeUser))
	assert.False(t, job.IsAssignedTo(outsiderUser))
}

func TestCreateJobRejectsForeignReferences(t *testing.T) {
	svc := newTestService(t)
	ctx := orgcontext.WithOrgID(context.Background(), testOrg)

	_, err := svc.Create(ctx, domain.CreateJobRequest{ClientID: "999", Title: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidClient)

	_, err = svc.Create(ctx, domain.CreateJobRequest{ClientID: testClient.String(), Title: "x", AssignedTo: outsiderUser.String()})
	assert.ErrorIs(t, err, domain.ErrInvalidAssignee)

	_, err = svc.Create(orgcontext.WithOrgID(context.Background(), otherOrg), domain.CreateJobRequest{ClientID: testClient.String(), Title: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidClient)
}

func TestUpdateJobPatch(t *testing.T) {
	svc := newTestService(t)
	ctx := orgcontext.WithOrgID(context.Background(), testOrg)

	job, err := svc.Create(ctx, domain.CreateJobRequest{ClientID: testClient.String(), Title: "Fix leak", AssignedTo: assigneeUser.String()})
	require.NoError(t, err)

	status := "in_progress"
	updated, err := svc.Update(ctx, job.ID.String(), domain.UpdateJobRequest{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, updated.Status)
	assert.Equal(t, "Fix leak", updated.Title)

	unassign := ""
	updated, err = svc.Update(ctx, job.ID.String(), domain.UpdateJobRequest{AssignedTo: &unassign})
	require.NoError(t, err)
	assert.Nil(t, updated.AssignedTo)

	bogus := "paused"
	_, err = svc.Update(ctx, job.ID.String(), domain.UpdateJobRequest{Status: &bogus})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	_, err = svc.Update(orgcontext.WithOrgID(context.Background(), otherOrg), job.ID.String(), domain.UpdateJobRequest{Status: &status})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListJobsFiltersByStatus(t *testing.T) {
	svc := newTestService(t)
	ctx := orgcontext.WithOrgID(context.Background(), testOrg)

	first, err := svc.Create(ctx, domain.CreateJobRequest{ClientID: testClient.String(), Title: "One"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, domain.CreateJobRequest{ClientID: testClient.String(), Title: "Two"})
	require.NoError(t, err)

	done := "completed"
	_, err = svc.Update(ctx, first.ID.String(), domain.UpdateJobRequest{Status: &done})
	require.NoError(t, err)

	resp, err := svc.List(ctx, domain.ListJobRequest{Status: "completed"})
	require.NoError(t, err)
	require.Len(t, resp.Jobs, 1)
	assert.Equal(t, first.ID, resp.Jobs[0].ID)

	_, err = svc.List(ctx, domain.ListJobRequest{Status: "nope"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}
