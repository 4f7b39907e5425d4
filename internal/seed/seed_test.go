package seed

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/tradieapp/internal/auth/domain"
	"github.com/smallbiznis/tradieapp/internal/auth/password"
	clientdomain "github.com/smallbiznis/tradieapp/internal/client/domain"
	organizationdomain "github.com/smallbiznis/tradieapp/internal/organization/domain"
	"github.com/smallbiznis/tradieapp/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEnsureDemoIsIdempotent(t *testing.T) {
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&authdomain.User{},
		&organizationdomain.Organization{},
		&organizationdomain.OrganizationMember{},
		&clientdomain.Client{},
	))
	node, err := snowflake.NewNode(7)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		if err := EnsureDemo(context.Background(), conn, node, zap.NewNop()); err != nil {
			t.Fatalf("seed run %d: %v", i+1, err)
		}
	}

	var users []authdomain.User
	require.NoError(t, conn.Find(&users).Error)
	require.Len(t, users, 1)
	require.NotNil(t, users[0].PasswordHash)
	assert.True(t, password.Verify(DemoOwnerPassword, *users[0].PasswordHash))

	var members []organizationdomain.OrganizationMember
	require.NoError(t, conn.Find(&members).Error)
	require.Len(t, members, 1)
	assert.Equal(t, organizationdomain.RoleOwner, members[0].Role)
	assert.Equal(t, organizationdomain.AllCapabilities(), members[0].Capabilities)

	var clients int64
	require.NoError(t, conn.Model(&clientdomain.Client{}).Count(&clients).Error)
	assert.Equal(t, int64(1), clients)
}
