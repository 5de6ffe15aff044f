package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/covena/internal/audit/domain"
	"github.com/smallbiznis/covena/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Recorder {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		clock: p.Clock,
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Record(ctx context.Context, req domain.RecordRequest) {
	metadata := req.Metadata
	if metadata == nil {
		metadata = datatypes.JSONMap{}
	}
	actor := req.Actor
	if actor == "" {
		actor = "system"
	}

	entry := domain.AuditEntry{
		ID:         s.genID.Generate(),
		CompanyID:  req.CompanyID,
		Actor:      actor,
		Action:     req.Action,
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		Metadata:   metadata,
		CreatedAt:  s.clock.Now(),
	}

	if err := s.repo.Insert(ctx, s.db, &entry); err != nil {
		s.log.Warn("audit record dropped",
			zap.String("action", req.Action),
			zap.String("entity_id", req.EntityID),
			zap.Error(err),
		)
	}
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.AuditEntry, error) {
	return s.repo.List(ctx, s.db, req)
}
