package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/covena/internal/clock"
	"github.com/smallbiznis/covena/internal/company/domain"
	"github.com/smallbiznis/covena/pkg/db/pagination"
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

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("company.service"),
		clock: p.Clock,
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateCompanyRequest) (domain.Company, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Company{}, domain.ErrInvalidName
	}

	email := strings.TrimSpace(req.ContactEmail)
	if email != "" && !strings.Contains(email, "@") {
		return domain.Company{}, domain.ErrInvalidEmail
	}

	now := s.clock.Now()
	company := domain.Company{
		ID:           s.genID.Generate(),
		Name:         name,
		Sector:       strings.TrimSpace(req.Sector),
		ContactEmail: email,
		Metadata:     datatypes.JSONMap{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Insert(ctx, s.db, &company); err != nil {
		return domain.Company{}, err
	}

	return company, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetCompanyRequest) (domain.Company, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Company{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Company{}, err
	}
	if item == nil {
		return domain.Company{}, domain.ErrNotFound
	}

	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListCompanyRequest) (domain.ListCompanyResponse, error) {
	filter := domain.ListCompanyFilter{
		Name:   strings.TrimSpace(req.Name),
		Sector: strings.TrimSpace(req.Sector),
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListCompanyResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(company *domain.Company) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        company.ID.String(),
			CreatedAt: company.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	companies := make([]domain.Company, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		companies = append(companies, *item)
	}

	resp := domain.ListCompanyResponse{Companies: companies}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}

	return resp, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
