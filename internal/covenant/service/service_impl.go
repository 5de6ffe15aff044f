package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/covena/internal/clock"
	"github.com/smallbiznis/covena/internal/covenant/domain"
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
		log:   p.Log.Named("covenant.service"),
		clock: p.Clock,
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateCovenantConfigRequest) (domain.CovenantConfig, error) {
	companyID, err := snowflake.ParseString(strings.TrimSpace(req.CompanyID))
	if err != nil || companyID == 0 {
		return domain.CovenantConfig{}, domain.ErrInvalidCompany
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	now := s.clock.Now()
	config := domain.CovenantConfig{
		ID:             s.genID.Generate(),
		CompanyID:      companyID,
		Name:           strings.TrimSpace(req.Name),
		CovenantType:   req.CovenantType,
		IsActive:       isActive,
		ThresholdValue: req.ThresholdValue,
		MinimumValue:   req.MinimumValue,
		MaximumValue:   req.MaximumValue,
		Requirements:   trimClauses(req.Requirements),
		Restrictions:   trimClauses(req.Restrictions),
		BasketLimit:    req.BasketLimit,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if result := domain.ValidateConfig(config); !result.IsValid {
		s.log.Warn("rejected covenant config",
			zap.String("company_id", companyID.String()),
			zap.Strings("problems", result.Errors),
		)
		return domain.CovenantConfig{}, domain.ErrInvalidConfig
	}

	if err := s.repo.Insert(ctx, s.db, &config); err != nil {
		return domain.CovenantConfig{}, err
	}

	return config, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateCovenantConfigRequest) (domain.CovenantConfig, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.CovenantConfig{}, err
	}

	existing, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.CovenantConfig{}, err
	}
	if existing == nil {
		return domain.CovenantConfig{}, domain.ErrNotFound
	}

	config := *existing
	if req.Name != nil {
		config.Name = strings.TrimSpace(*req.Name)
	}
	if req.IsActive != nil {
		config.IsActive = *req.IsActive
	}
	if req.ThresholdValue != nil {
		config.ThresholdValue = req.ThresholdValue
	}
	if req.MinimumValue != nil {
		config.MinimumValue = req.MinimumValue
	}
	if req.MaximumValue != nil {
		config.MaximumValue = req.MaximumValue
	}
	if req.Requirements != nil {
		config.Requirements = trimClauses(*req.Requirements)
	}
	if req.Restrictions != nil {
		config.Restrictions = trimClauses(*req.Restrictions)
	}
	if req.BasketLimit != nil {
		config.BasketLimit = req.BasketLimit
	}
	config.UpdatedAt = s.clock.Now()

	if result := domain.ValidateConfig(config); !result.IsValid {
		return domain.CovenantConfig{}, domain.ErrInvalidConfig
	}

	if err := s.repo.Update(ctx, s.db, &config); err != nil {
		return domain.CovenantConfig{}, err
	}

	return config, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetCovenantConfigRequest) (domain.CovenantConfig, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.CovenantConfig{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.CovenantConfig{}, err
	}
	if item == nil {
		return domain.CovenantConfig{}, domain.ErrNotFound
	}

	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListCovenantConfigRequest) (domain.ListCovenantConfigResponse, error) {
	filter := domain.ListCovenantConfigFilter{ActiveOnly: req.ActiveOnly}
	if strings.TrimSpace(req.CompanyID) != "" {
		companyID, err := snowflake.ParseString(strings.TrimSpace(req.CompanyID))
		if err != nil || companyID == 0 {
			return domain.ListCovenantConfigResponse{}, domain.ErrInvalidCompany
		}
		filter.CompanyID = companyID
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
		return domain.ListCovenantConfigResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(config *domain.CovenantConfig) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        config.ID.String(),
			CreatedAt: config.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	configs := make([]domain.CovenantConfig, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		configs = append(configs, *item)
	}

	resp := domain.ListCovenantConfigResponse{Configs: configs}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}

	return resp, nil
}

func (s *Service) Validate(ctx context.Context, config domain.CovenantConfig) domain.ValidationResult {
	return domain.ValidateConfig(config)
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

// trimClauses normalizes qualitative clauses; blank entries are dropped.
func trimClauses(clauses []string) datatypes.JSONSlice[string] {
	out := make(datatypes.JSONSlice[string], 0, len(clauses))
	for _, clause := range clauses {
		clause = strings.TrimSpace(clause)
		if clause != "" {
			out = append(out, clause)
		}
	}
	return out
}
