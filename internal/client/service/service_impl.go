package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tradieapp/internal/client/domain"
	"github.com/smallbiznis/tradieapp/internal/clock"
	"github.com/smallbiznis/tradieapp/internal/orgcontext"
	"github.com/smallbiznis/tradieapp/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
	clock clock.Clock
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("client.service"),
		genID: p.GenID,
		repo:  p.Repo,
		clock: clk,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateClientRequest) (domain.Client, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.Client{}, domain.ErrInvalidOrganization
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Client{}, domain.ErrInvalidName
	}

	email, err := normalizeEmail(req.Email)
	if err != nil {
		return domain.Client{}, err
	}

	now := s.clock.Now()
	client := domain.Client{
		ID:        s.genID.Generate(),
		OrgID:     orgID,
		Name:      name,
		Email:     email,
		Phone:     strings.TrimSpace(req.Phone),
		Address:   strings.TrimSpace(req.Address),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, s.db, &client); err != nil {
		return domain.Client{}, err
	}

	return client, nil
}

func (s *Service) List(ctx context.Context, req domain.ListClientRequest) (domain.ListClientResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.ListClientResponse{}, domain.ErrInvalidOrganization
	}

	filter := domain.ListClientFilter{
		Name:  strings.ToLower(strings.TrimSpace(req.Name)),
		Email: strings.ToLower(strings.TrimSpace(req.Email)),
	}
	page := pagination.Pagination{PageToken: req.PageToken, PageSize: req.PageSize}

	items, err := s.repo.List(ctx, s.db, orgID, filter, page)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidPageToken) {
			return domain.ListClientResponse{}, domain.ErrInvalidPageToken
		}
		return domain.ListClientResponse{}, err
	}

	items, pageInfo, err := pagination.Finalize(items, page, func(c *domain.Client) pagination.Cursor {
		return pagination.NewCursor(c.ID.String(), c.CreatedAt)
	})
	if err != nil {
		return domain.ListClientResponse{}, err
	}

	clients := make([]domain.Client, 0, len(items))
	for _, item := range items {
		clients = append(clients, *item)
	}

	return domain.ListClientResponse{PageInfo: pageInfo, Clients: clients}, nil
}

func (s *Service) GetByID(ctx context.Context, rawID string) (domain.Client, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.Client{}, domain.ErrInvalidOrganization
	}

	id, err := parseID(rawID)
	if err != nil {
		return domain.Client{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, orgID, id)
	if err != nil {
		return domain.Client{}, err
	}
	if item == nil {
		return domain.Client{}, domain.ErrNotFound
	}

	return *item, nil
}

func (s *Service) Update(ctx context.Context, rawID string, req domain.UpdateClientRequest) (domain.Client, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.Client{}, domain.ErrInvalidOrganization
	}

	id, err := parseID(rawID)
	if err != nil {
		return domain.Client{}, err
	}

	fields := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Client{}, domain.ErrInvalidName
		}
		fields["name"] = name
	}
	if req.Email != nil {
		email, err := normalizeEmail(*req.Email)
		if err != nil {
			return domain.Client{}, err
		}
		fields["email"] = email
	}
	if req.Phone != nil {
		fields["phone"] = strings.TrimSpace(*req.Phone)
	}
	if req.Address != nil {
		fields["address"] = strings.TrimSpace(*req.Address)
	}

	existing, err := s.repo.FindByID(ctx, s.db, orgID, id)
	if err != nil {
		return domain.Client{}, err
	}
	if existing == nil {
		return domain.Client{}, domain.ErrNotFound
	}
	if len(fields) == 0 {
		return *existing, nil
	}

	fields["updated_at"] = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, orgID, id, fields); err != nil {
		return domain.Client{}, err
	}

	return s.GetByID(ctx, rawID)
}

// normalizeEmail accepts an empty address; clients without email are common.
func normalizeEmail(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil {
		return "", domain.ErrInvalidEmail
	}
	return strings.ToLower(addr.Address), nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
