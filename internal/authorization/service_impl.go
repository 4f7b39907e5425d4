package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	orgdomain "github.com/smallbiznis/tradieapp/internal/organization/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	Members  orgdomain.Repository
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	members  orgdomain.Repository
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		members:  p.Members,
	}
}

func (s *ServiceImpl) Membership(ctx context.Context, userID, orgID snowflake.ID) (*orgdomain.OrganizationMember, error) {
	if userID == 0 {
		return nil, ErrInvalidActor
	}
	if orgID == 0 {
		return nil, ErrNotFound
	}
	member, err := s.members.GetMember(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}
	if member == nil || !member.IsActive() {
		return nil, ErrNotFound
	}
	return member, nil
}

func (s *ServiceImpl) Authorize(ctx context.Context, userID, orgID snowflake.ID, action string) error {
	action = strings.TrimSpace(action)
	rule, ok := actionRules[action]
	if !ok {
		return ErrInvalidAction
	}

	member, err := s.Membership(ctx, userID, orgID)
	if err != nil {
		if err == ErrNotFound {
			s.log.Debug("authorization denied: no active membership",
				zap.String("user_id", userID.String()),
				zap.String("org_id", orgID.String()),
				zap.String("action", action),
			)
		}
		return err
	}

	subject := fmt.Sprintf("user:%s", userID.String())
	domain := fmt.Sprintf("org:%s", orgID.String())
	roleName := fmt.Sprintf("role:%s", member.Role)
	if err := s.ensureGrouping(subject, roleName, domain); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, domain, objectOf(action), action)
	if err != nil {
		return err
	}
	if allowed {
		return nil
	}

	if rule.adminOnly {
		return s.deny(userID, orgID, action)
	}
	if rule.capability == "" || member.Has(rule.capability) {
		return nil
	}
	return s.deny(userID, orgID, action)
}

func (s *ServiceImpl) deny(userID, orgID snowflake.ID, action string) error {
	s.log.Info("authorization denied",
		zap.String("user_id", userID.String()),
		zap.String("org_id", orgID.String()),
		zap.String("action", action),
	)
	return ErrForbidden
}

// ensureGrouping keeps exactly one role link for subject in domain.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string, domain string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject, "", domain)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			if _, err := s.enforcer.RemoveGroupingPolicy(params...); err != nil {
				return err
			}
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName, domain)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName, domain)
	return err
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		{"role:owner", "*", "*"},
		{"role:admin", "*", "*"},
	}

	for _, policy := range policies {
		has, err := enforcer.HasPolicy(policy)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
