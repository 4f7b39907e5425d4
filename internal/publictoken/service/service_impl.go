package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tradieapp/internal/clock"
	"github.com/smallbiznis/tradieapp/internal/publictoken/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const tokenBytes = 32

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
		log:   p.Log.Named("publictoken.service"),
		genID: p.GenID,
		repo:  p.Repo,
		clock: clk,
	}
}

func (s *Service) Issue(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, docType domain.DocumentType, docID snowflake.ID) (string, error) {
	if tx == nil {
		tx = s.db
	}

	raw, err := newToken()
	if err != nil {
		return "", err
	}

	now := s.clock.Now()
	if err := s.repo.RevokeForDocument(ctx, tx, orgID, docType, docID, now); err != nil {
		return "", err
	}

	token := domain.PublicToken{
		ID:           s.genID.Generate(),
		OrgID:        orgID,
		DocumentType: docType,
		DocumentID:   docID,
		TokenHash:    hashToken(raw),
		CreatedAt:    now,
	}
	if err := s.repo.Insert(ctx, tx, &token); err != nil {
		return "", err
	}
	return raw, nil
}

func (s *Service) Revoke(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, docType domain.DocumentType, docID snowflake.ID) error {
	if tx == nil {
		tx = s.db
	}
	return s.repo.RevokeForDocument(ctx, tx, orgID, docType, docID, s.clock.Now())
}

func (s *Service) Resolve(ctx context.Context, docType domain.DocumentType, raw string) (*domain.PublicToken, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, domain.ErrNotFound
	}
	token, err := s.repo.FindActiveByHash(ctx, s.db, hashToken(raw))
	if err != nil {
		return nil, err
	}
	if token == nil || token.DocumentType != docType {
		return nil, domain.ErrNotFound
	}
	return token, nil
}

func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
