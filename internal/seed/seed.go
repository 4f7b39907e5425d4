package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	authdomain "github.com/smallbiznis/tradieapp/internal/auth/domain"
	"github.com/smallbiznis/tradieapp/internal/auth/password"
	clientdomain "github.com/smallbiznis/tradieapp/internal/client/domain"
	organizationdomain "github.com/smallbiznis/tradieapp/internal/organization/domain"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DemoOrgName       = "Demo Plumbing & Gas"
	DemoOrgSlug       = "demo-plumbing-gas"
	DemoOwnerEmail    = "owner@demo.tradieapp.local"
	DemoOwnerPassword = "tradieapp-demo"
	demoOwnerDisplay  = "Demo Owner"
	demoClientName    = "Sample Client"
)

// EnsureDemo seeds a demo owner, organization and client. It is idempotent.
func EnsureDemo(ctx context.Context, db *gorm.DB, node *snowflake.Node, log *zap.Logger) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	if node == nil {
		return errors.New("seed id generator is required")
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		org, err := ensureOrg(ctx, tx, node)
		if err != nil {
			return err
		}
		user, err := ensureOwner(ctx, tx, node)
		if err != nil {
			return err
		}
		if err := ensureMembership(ctx, tx, node, org.ID, user.ID); err != nil {
			return err
		}
		if err := ensureClient(ctx, tx, node, org.ID); err != nil {
			return err
		}

		if log != nil {
			log.Info("demo data ready",
				zap.String("org_id", org.ID.String()),
				zap.String("owner_email", user.Email),
			)
		}
		return nil
	})
}

func ensureOrg(ctx context.Context, tx *gorm.DB, node *snowflake.Node) (organizationdomain.Organization, error) {
	var org organizationdomain.Organization
	err := tx.WithContext(ctx).Where("slug = ?", DemoOrgSlug).First(&org).Error
	if err == nil {
		return org, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return org, err
	}

	now := time.Now().UTC()
	org = organizationdomain.Organization{
		ID:            node.Generate(),
		Name:          DemoOrgName,
		Slug:          DemoOrgSlug,
		GSTRegistered: true,
		Metadata:      datatypes.JSONMap{"demo": true},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := tx.WithContext(ctx).Create(&org).Error; err != nil {
		return org, err
	}
	return org, nil
}

func ensureOwner(ctx context.Context, tx *gorm.DB, node *snowflake.Node) (authdomain.User, error) {
	var user authdomain.User
	email := strings.ToLower(DemoOwnerEmail)
	err := tx.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return user, err
	}

	hashed, err := password.Hash(DemoOwnerPassword)
	if err != nil {
		return user, err
	}
	now := time.Now().UTC()
	user = authdomain.User{
		ID:           node.Generate(),
		ExternalID:   uuid.NewString(),
		Email:        email,
		DisplayName:  demoOwnerDisplay,
		PasswordHash: &hashed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := tx.WithContext(ctx).Create(&user).Error; err != nil {
		return user, err
	}
	return user, nil
}

func ensureMembership(ctx context.Context, tx *gorm.DB, node *snowflake.Node, orgID, userID snowflake.ID) error {
	var member organizationdomain.OrganizationMember
	err := tx.WithContext(ctx).
		Where("org_id = ? AND user_id = ?", orgID, userID).
		First(&member).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	now := time.Now().UTC()
	member = organizationdomain.OrganizationMember{
		ID:        node.Generate(),
		OrgID:     orgID,
		UserID:    userID,
		Role:      organizationdomain.RoleOwner,
		CreatedAt: now,
		UpdatedAt: now,
	}
	member.Normalize()
	return tx.WithContext(ctx).Create(&member).Error
}

func ensureClient(ctx context.Context, tx *gorm.DB, node *snowflake.Node, orgID snowflake.ID) error {
	var count int64
	if err := tx.WithContext(ctx).
		Model(&clientdomain.Client{}).
		Where("org_id = ?", orgID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	now := time.Now().UTC()
	client := clientdomain.Client{
		ID:        node.Generate(),
		OrgID:     orgID,
		Name:      demoClientName,
		Email:     "client@example.com",
		Phone:     "0400 000 000",
		Address:   "1 Example St, Sydney NSW 2000",
		CreatedAt: now,
		UpdatedAt: now,
	}
	return tx.WithContext(ctx).Create(&client).Error
}
