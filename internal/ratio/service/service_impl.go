package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/covena/internal/clock"
	"github.com/smallbiznis/covena/internal/ratio/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
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

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("ratio.service"),
		clock: p.Clock,
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Ingest(ctx context.Context, req domain.IngestSnapshotRequest) (domain.RatioSnapshot, error) {
	companyID, err := s.parseID(req.CompanyID)
	if err != nil {
		return domain.RatioSnapshot{}, err
	}
	if req.AsOfDate.IsZero() {
		return domain.RatioSnapshot{}, domain.ErrInvalidAsOf
	}

	snapshot := req.Snapshot
	snapshot.ID = s.genID.Generate()
	snapshot.CompanyID = companyID
	snapshot.AsOfDate = req.AsOfDate.UTC()
	snapshot.CreatedAt = s.clock.Now()

	if err := s.repo.Insert(ctx, s.db, &snapshot); err != nil {
		return domain.RatioSnapshot{}, err
	}

	s.log.Info("ratio snapshot ingested",
		zap.String("company_id", companyID.String()),
		zap.Time("as_of_date", snapshot.AsOfDate),
	)

	return snapshot, nil
}

func (s *Service) Latest(ctx context.Context, req domain.LatestSnapshotRequest) (domain.RatioSnapshot, error) {
	companyID, err := s.parseID(req.CompanyID)
	if err != nil {
		return domain.RatioSnapshot{}, err
	}

	item, err := s.repo.FindLatest(ctx, s.db, companyID)
	if err != nil {
		return domain.RatioSnapshot{}, err
	}
	if item == nil {
		return domain.RatioSnapshot{}, domain.ErrNotFound
	}

	return *item, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidCompany
	}
	return id, nil
}
