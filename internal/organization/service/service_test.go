package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/tradieapp/internal/auth/domain"
	authrepository "github.com/smallbiznis/tradieapp/internal/auth/repository"
	authservice "github.com/smallbiznis/tradieapp/internal/auth/service"
	"github.com/smallbiznis/tradieapp/internal/clock"
	"github.com/smallbiznis/tradieapp/internal/organization/domain"
	"github.com/smallbiznis/tradieapp/internal/organization/repository"
	"github.com/smallbiznis/tradieapp/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	svc   domain.Service
	users authdomain.Service
}

func setup(t *testing.T) fixture {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&authdomain.User{},
		&authdomain.Session{},
		&domain.Organization{},
		&domain.OrganizationMember{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	userRepo, sessionRepo := authrepository.New(conn)
	users := authservice.New(authservice.Params{
		Log:         zap.NewNop(),
		Repo:        userRepo,
		SessionRepo: sessionRepo,
		GenID:       node,
		Clock:       clock.SystemClock{},
	})

	svc := NewService(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		Repo:  repository.NewRepository(conn),
		Users: users,
		GenID: node,
		Clock: clock.SystemClock{},
	})
	return fixture{svc: svc, users: users}
}

func (f fixture) user(t *testing.T, email string) *authdomain.User {
	t.Helper()
	u, err := f.users.CreateUser(context.Background(), authdomain.CreateUserRequest{Email: email, Password: "password-123"})
	require.NoError(t, err)
	return u
}

func TestCreateMakesCreatorOwnerWithAllFlags(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	owner := f.user(t, "owner@example.com")

	org, err := f.svc.Create(ctx, owner.ID, domain.CreateOrganizationRequest{Name: "Sparky Electrical"})
	require.NoError(t, err)
	assert.Equal(t, "sparky-electrical", org.Slug)
	assert.True(t, org.GSTRegistered)

	orgID, err := snowflake.ParseString(org.ID)
	require.NoError(t, err)

	member, err := f.svc.GetMembership(ctx, orgID, owner.ID)
	require.NoError(t, err)
	require.NotNil(t, member)
	assert.Equal(t, domain.RoleOwner, member.Role)
	assert.Equal(t, domain.AllCapabilities(), member.Capabilities)

	second, err := f.svc.Create(ctx, owner.ID, domain.CreateOrganizationRequest{Name: "Sparky Electrical"})
	require.NoError(t, err)
	assert.Equal(t, "sparky-electrical-2", second.Slug)

	orgs, err := f.svc.ListOrganizationsByUser(ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, orgs, 2)
}

func TestCreateRejectsBlankName(t *testing.T) {
	f := setup(t)
	_, err := f.svc.Create(context.Background(), snowflake.ID(1), domain.CreateOrganizationRequest{Name: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)
}

func TestAddMemberByEmail(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	owner := f.user(t, "boss@example.com")
	worker := f.user(t, "apprentice@example.com")

	org, err := f.svc.Create(ctx, owner.ID, domain.CreateOrganizationRequest{Name: "Pipes Co"})
	require.NoError(t, err)
	orgID := parseID(t, org.ID)

	member, err := f.svc.AddMember(ctx, orgID, domain.AddMemberRequest{
		Email:        "apprentice@example.com",
		Role:         "employee",
		Capabilities: domain.Capabilities{CanCreateJobs: true},
	})
	require.NoError(t, err)
	assert.Equal(t, worker.ID, member.UserID)
	assert.True(t, member.CanCreateJobs)
	assert.False(t, member.CanViewFinancials)

	_, err = f.svc.AddMember(ctx, orgID, domain.AddMemberRequest{Email: "apprentice@example.com", Role: "employee"})
	assert.ErrorIs(t, err, domain.ErrMemberExists)

	_, err = f.svc.AddMember(ctx, orgID, domain.AddMemberRequest{Email: "nobody@example.com", Role: "employee"})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)

	_, err = f.svc.AddMember(ctx, orgID, domain.AddMemberRequest{Email: "apprentice@example.com", Role: "superuser"})
	assert.ErrorIs(t, err, domain.ErrInvalidRole)

	members, err := f.svc.ListMembers(ctx, orgID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "boss@example.com", members[0].Email)
}

func TestLastOwnerCannotBeDemotedOrSuspended(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	owner := f.user(t, "solo@example.com")

	org, err := f.svc.Create(ctx, owner.ID, domain.CreateOrganizationRequest{Name: "Solo Trader"})
	require.NoError(t, err)
	orgID := parseID(t, org.ID)

	membership, err := f.svc.GetMembership(ctx, orgID, owner.ID)
	require.NoError(t, err)

	employee := "employee"
	_, err = f.svc.UpdateMember(ctx, orgID, membership.ID, domain.UpdateMemberRequest{Role: &employee})
	assert.ErrorIs(t, err, domain.ErrLastOwner)

	suspended := "suspended"
	_, err = f.svc.UpdateMember(ctx, orgID, membership.ID, domain.UpdateMemberRequest{Status: &suspended})
	assert.ErrorIs(t, err, domain.ErrLastOwner)
}

func TestUpdateMemberPatchesFlagsAndPromotesToOwner(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	owner := f.user(t, "first@example.com")
	f.user(t, "second@example.com")

	org, err := f.svc.Create(ctx, owner.ID, domain.CreateOrganizationRequest{Name: "Two Owners"})
	require.NoError(t, err)
	orgID := parseID(t, org.ID)

	member, err := f.svc.AddMember(ctx, orgID, domain.AddMemberRequest{Email: "second@example.com", Role: "subcontractor"})
	require.NoError(t, err)

	yes := true
	patched, err := f.svc.UpdateMember(ctx, orgID, member.ID, domain.UpdateMemberRequest{CanViewFinancials: &yes})
	require.NoError(t, err)
	assert.True(t, patched.CanViewFinancials)
	assert.False(t, patched.CanCreateInvoices)

	ownerRole := "owner"
	promoted, err := f.svc.UpdateMember(ctx, orgID, member.ID, domain.UpdateMemberRequest{Role: &ownerRole})
	require.NoError(t, err)
	assert.Equal(t, domain.AllCapabilities(), promoted.Capabilities)

	firstMembership, err := f.svc.GetMembership(ctx, orgID, owner.ID)
	require.NoError(t, err)
	admin := "admin"
	demoted, err := f.svc.UpdateMember(ctx, orgID, firstMembership.ID, domain.UpdateMemberRequest{Role: &admin})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, demoted.Role)
}

func parseID(t *testing.T, raw string) snowflake.ID {
	t.Helper()
	id, err := snowflake.ParseString(raw)
	require.NoError(t, err)
	return id
}
