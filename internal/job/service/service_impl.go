package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	clientdomain "github.com/smallbiznis/tradieapp/internal/client/domain"
	"github.com/smallbiznis/tradieapp/internal/clock"
	"github.com/smallbiznis/tradieapp/internal/job/domain"
	orgdomain "github.com/smallbiznis/tradieapp/internal/organization/domain"
	"github.com/smallbiznis/tradieapp/internal/orgcontext"
	"github.com/smallbiznis/tradieapp/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       domain.Repository
	ClientRepo clientdomain.Repository
	Members    orgdomain.Repository
	Clock      clock.Clock
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       domain.Repository
	clientRepo clientdomain.Repository
	members    orgdomain.Repository
	clock      clock.Clock
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("job.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		clientRepo: p.ClientRepo,
		members:    p.Members,
		clock:      clk,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateJobRequest) (domain.Job, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.Job{}, domain.ErrInvalidOrganization
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return domain.Job{}, domain.ErrInvalidTitle
	}

	clientID, err := s.resolveClient(ctx, orgID, req.ClientID)
	if err != nil {
		return domain.Job{}, err
	}

	assignee, err := s.resolveAssignee(ctx, orgID, req.AssignedTo)
	if err != nil {
		return domain.Job{}, err
	}

	now := s.clock.Now()
	job := domain.Job{
		ID:          s.genID.Generate(),
		OrgID:       orgID,
		ClientID:    clientID,
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Status:      domain.StatusScheduled,
		AssignedTo:  assignee,
		ScheduledAt: req.ScheduledAt,
		CreatedBy:   req.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, s.db, &job); err != nil {
		return domain.Job{}, err
	}
	return job, nil
}

func (s *Service) List(ctx context.Context, req domain.ListJobRequest) (domain.ListJobResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.ListJobResponse{}, domain.ErrInvalidOrganization
	}

	var filter domain.ListJobFilter
	if raw := strings.TrimSpace(req.Status); raw != "" {
		status, ok := domain.ParseStatus(raw)
		if !ok {
			return domain.ListJobResponse{}, domain.ErrInvalidStatus
		}
		filter.Status = status
	}
	if raw := strings.TrimSpace(req.AssignedTo); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			return domain.ListJobResponse{}, domain.ErrInvalidAssignee
		}
		filter.AssignedTo = id
	}
	if raw := strings.TrimSpace(req.ClientID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			return domain.ListJobResponse{}, domain.ErrInvalidClient
		}
		filter.ClientID = id
	}

	page := pagination.Pagination{PageToken: req.PageToken, PageSize: req.PageSize}
	items, err := s.repo.List(ctx, s.db, orgID, filter, page)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidPageToken) {
			return domain.ListJobResponse{}, domain.ErrInvalidPageToken
		}
		return domain.ListJobResponse{}, err
	}

	items, pageInfo, err := pagination.Finalize(items, page, func(j *domain.Job) pagination.Cursor {
		return pagination.NewCursor(j.ID.String(), j.CreatedAt)
	})
	if err != nil {
		return domain.ListJobResponse{}, err
	}

	jobs := make([]domain.Job, 0, len(items))
	for _, item := range items {
		jobs = append(jobs, *item)
	}
	return domain.ListJobResponse{PageInfo: pageInfo, Jobs: jobs}, nil
}

func (s *Service) GetByID(ctx context.Context, rawID string) (domain.Job, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.Job{}, domain.ErrInvalidOrganization
	}
	id, err := parseID(rawID)
	if err != nil {
		return domain.Job{}, err
	}

	job, err := s.repo.FindByID(ctx, s.db, orgID, id)
	if err != nil {
		return domain.Job{}, err
	}
	if job == nil {
		return domain.Job{}, domain.ErrNotFound
	}
	return *job, nil
}

// Update applies a sparse patch. Callers check the edit-all rule before calling.
func (s *Service) Update(ctx context.Context, rawID string, req domain.UpdateJobRequest) (domain.Job, error) {
	existing, err := s.GetByID(ctx, rawID)
	if err != nil {
		return domain.Job{}, err
	}

	fields := map[string]any{}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return domain.Job{}, domain.ErrInvalidTitle
		}
		fields["title"] = title
	}
	if req.Description != nil {
		fields["description"] = strings.TrimSpace(*req.Description)
	}
	if req.Status != nil {
		status, ok := domain.ParseStatus(*req.Status)
		if !ok {
			return domain.Job{}, domain.ErrInvalidStatus
		}
		fields["status"] = status
	}
	if req.AssignedTo != nil {
		assignee, err := s.resolveAssignee(ctx, existing.OrgID, *req.AssignedTo)
		if err != nil {
			return domain.Job{}, err
		}
		fields["assigned_to"] = assignee
	}
	if req.ScheduledAt != nil {
		fields["scheduled_at"] = req.ScheduledAt.UTC()
	}
	if len(fields) == 0 {
		return existing, nil
	}

	fields["updated_at"] = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, existing.OrgID, existing.ID, fields); err != nil {
		return domain.Job{}, err
	}
	return s.GetByID(ctx, rawID)
}

func (s *Service) resolveClient(ctx context.Context, orgID snowflake.ID, raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidClient
	}
	client, err := s.clientRepo.FindByID(ctx, s.db, orgID, id)
	if err != nil {
		return 0, err
	}
	if client == nil {
		return 0, domain.ErrInvalidClient
	}
	return id, nil
}

// resolveAssignee returns nil for an empty value. Assignees must be active members.
func (s *Service) resolveAssignee(ctx context.Context, orgID snowflake.ID, raw string) (*snowflake.ID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	userID, err := snowflake.ParseString(raw)
	if err != nil || userID == 0 {
		return nil, domain.ErrInvalidAssignee
	}
	member, err := s.members.GetMember(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}
	if member == nil || !member.IsActive() {
		return nil, domain.ErrInvalidAssignee
	}
	return &userID, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
