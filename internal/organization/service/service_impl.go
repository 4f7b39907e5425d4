package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	auditdomain "github.com/smallbiznis/tradieapp/internal/audit/domain"
	authdomain "github.com/smallbiznis/tradieapp/internal/auth/domain"
	"github.com/smallbiznis/tradieapp/internal/clock"
	"github.com/smallbiznis/tradieapp/internal/organization/domain"
	"github.com/smallbiznis/tradieapp/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const maxSlugAttempts = 20

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Repo  domain.Repository
	Users authdomain.Service
	GenID *snowflake.Node
	Clock clock.Clock
	Audit auditdomain.Service `optional:"true"`
}

type service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  domain.Repository
	users authdomain.Service
	genID *snowflake.Node
	clock clock.Clock
	audit auditdomain.Service
}

func NewService(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &service{
		db:    p.DB,
		log:   p.Log.Named("organization.service"),
		repo:  p.Repo,
		users: p.Users,
		genID: p.GenID,
		clock: clk,
		audit: p.Audit,
	}
}

func (s *service) Create(ctx context.Context, userID snowflake.ID, req domain.CreateOrganizationRequest) (*domain.OrganizationResponse, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidUser
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	orgSlug, err := s.uniqueSlug(ctx, name)
	if err != nil {
		return nil, err
	}

	gstRegistered := true
	if req.GSTRegistered != nil {
		gstRegistered = *req.GSTRegistered
	}

	now := s.clock.Now()
	orgID := s.genID.Generate()
	org := domain.Organization{
		ID:            orgID,
		Name:          name,
		Slug:          orgSlug,
		ABN:           strings.TrimSpace(req.ABN),
		GSTRegistered: gstRegistered,
		Metadata:      datatypes.JSONMap{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	owner := domain.OrganizationMember{
		ID:        s.genID.Generate(),
		OrgID:     orgID,
		UserID:    userID,
		Role:      domain.RoleOwner,
		Status:    domain.MemberStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	owner.Normalize()

	err = db.WithTx(ctx, s.db, orgID, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateOrganization(ctx, org); err != nil {
			return err
		}
		return repo.AddMember(ctx, owner)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("organization created",
		zap.String("org_id", orgID.String()),
		zap.String("owner_user_id", userID.String()),
	)
	return toResponse(org), nil
}

func (s *service) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "org"
	}
	candidate := base
	for i := 2; i <= maxSlugAttempts+1; i++ {
		exists, err := s.repo.SlugExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return fmt.Sprintf("%s-%s", base, s.genID.Generate().String()), nil
}

func (s *service) ListOrganizationsByUser(ctx context.Context, userID snowflake.ID) ([]domain.OrganizationListResponseItem, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidUser
	}

	items, err := s.repo.ListOrganizationsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.OrganizationListResponseItem, 0, len(items))
	for _, item := range items {
		resp = append(resp, domain.OrganizationListResponseItem{
			ID:        item.ID.String(),
			Name:      item.Name,
			Slug:      item.Slug,
			Role:      item.Role,
			CreatedAt: item.CreatedAt,
		})
	}

	return resp, nil
}

func (s *service) GetByID(ctx context.Context, id snowflake.ID) (*domain.OrganizationResponse, error) {
	if id == 0 {
		return nil, domain.ErrInvalidOrganization
	}
	org, err := s.repo.GetOrganization(ctx, id)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, domain.ErrNotFound
	}
	return toResponse(*org), nil
}

// GetMembership returns the membership row or nil when the user has none.
func (s *service) GetMembership(ctx context.Context, orgID, userID snowflake.ID) (*domain.OrganizationMember, error) {
	return s.repo.GetMember(ctx, orgID, userID)
}

func (s *service) ListMembers(ctx context.Context, orgID snowflake.ID) ([]domain.MemberListItem, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}
	items, err := s.repo.ListMembers(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.MemberListItem{}
	}
	return items, nil
}

func (s *service) AddMember(ctx context.Context, orgID snowflake.ID, req domain.AddMemberRequest) (*domain.OrganizationMember, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}
	if strings.TrimSpace(req.Email) == "" {
		return nil, domain.ErrInvalidEmail
	}
	role, ok := domain.ParseRole(req.Role)
	if !ok {
		return nil, domain.ErrInvalidRole
	}

	user, err := s.users.FindUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, authdomain.ErrUserNotFound) {
			return nil, domain.ErrInvalidEmail
		}
		return nil, err
	}

	existing, err := s.repo.GetMember(ctx, orgID, user.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrMemberExists
	}

	now := s.clock.Now()
	member := domain.OrganizationMember{
		ID:           s.genID.Generate(),
		OrgID:        orgID,
		UserID:       user.ID,
		Role:         role,
		Status:       domain.MemberStatusActive,
		Capabilities: req.Capabilities,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	member.Normalize()

	if err := s.repo.AddMember(ctx, member); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrMemberExists
		}
		return nil, err
	}
	s.recordMemberAudit(ctx, "member.added", member)
	return &member, nil
}

// UpdateMember applies a sparse patch. The last active owner of an
// organization can be neither demoted nor suspended.
func (s *service) UpdateMember(ctx context.Context, orgID, memberID snowflake.ID, req domain.UpdateMemberRequest) (*domain.OrganizationMember, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	var updated domain.OrganizationMember
	err := db.WithTx(ctx, s.db, orgID, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(db.ForUpdate(tx))
		member, err := repo.GetMemberByID(ctx, orgID, memberID)
		if err != nil {
			return err
		}
		if member == nil {
			return domain.ErrMemberNotFound
		}

		wasActiveOwner := member.Role == domain.RoleOwner && member.IsActive()
		if err := applyMemberPatch(member, req); err != nil {
			return err
		}
		member.Normalize()

		if wasActiveOwner && (member.Role != domain.RoleOwner || !member.IsActive()) {
			owners, err := repo.CountActiveOwners(ctx, orgID)
			if err != nil {
				return err
			}
			if owners <= 1 {
				return domain.ErrLastOwner
			}
		}

		member.UpdatedAt = s.clock.Now()
		if err := s.repo.WithTx(tx).UpdateMember(ctx, *member); err != nil {
			return err
		}
		updated = *member
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordMemberAudit(ctx, "member.updated", updated)
	return &updated, nil
}

func (s *service) recordMemberAudit(ctx context.Context, action string, member domain.OrganizationMember) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, auditdomain.Entry{
		OrgID:      member.OrgID,
		Action:     action,
		TargetType: "member",
		TargetID:   member.ID,
		Metadata: map[string]any{
			"user_id": member.UserID.String(),
			"role":    string(member.Role),
			"status":  string(member.Status),
		},
	})
}

func applyMemberPatch(member *domain.OrganizationMember, req domain.UpdateMemberRequest) error {
	if req.Role != nil {
		role, ok := domain.ParseRole(*req.Role)
		if !ok {
			return domain.ErrInvalidRole
		}
		member.Role = role
	}
	if req.Status != nil {
		status, ok := domain.ParseMemberStatus(*req.Status)
		if !ok {
			return domain.ErrInvalidStatus
		}
		member.Status = status
	}
	setFlag(&member.CanCreateJobs, req.CanCreateJobs)
	setFlag(&member.CanEditAllJobs, req.CanEditAllJobs)
	setFlag(&member.CanCreateInvoices, req.CanCreateInvoices)
	setFlag(&member.CanViewFinancials, req.CanViewFinancials)
	setFlag(&member.CanApproveExpenses, req.CanApproveExpenses)
	setFlag(&member.CanApproveTimesheets, req.CanApproveTimesheets)
	return nil
}

func setFlag(dst *bool, value *bool) {
	if value != nil {
		*dst = *value
	}
}

func toResponse(org domain.Organization) *domain.OrganizationResponse {
	return &domain.OrganizationResponse{
		ID:            org.ID.String(),
		Name:          org.Name,
		Slug:          org.Slug,
		ABN:           org.ABN,
		GSTRegistered: org.GSTRegistered,
		CreatedAt:     org.CreatedAt,
	}
}
