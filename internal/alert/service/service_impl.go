package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/covena/internal/alert/domain"
	"github.com/smallbiznis/covena/internal/clock"
	"github.com/smallbiznis/covena/internal/config"
	"github.com/smallbiznis/covena/internal/observability/metrics"
	resultdomain "github.com/smallbiznis/covena/internal/testresult/domain"
	"github.com/smallbiznis/covena/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	GenID      *snowflake.Node
	Metrics    *metrics.Metrics `optional:"true"`
	Policy     *config.PolicyHolder
	Repo       domain.Repository
	ConfigRepo domain.ConfigRepository
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	clock      clock.Clock
	genID      *snowflake.Node
	metrics    *metrics.Metrics
	policy     *config.PolicyHolder
	repo       domain.Repository
	configRepo domain.ConfigRepository
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("alert.service"),
		clock:      p.Clock,
		genID:      p.GenID,
		metrics:    p.Metrics,
		policy:     p.Policy,
		repo:       p.Repo,
		configRepo: p.ConfigRepo,
	}
}

func (s *Service) Generate(ctx context.Context, req domain.GenerateRequest) []domain.CovenantAlert {
	configs := make(map[snowflake.ID]domain.CovenantAlertConfig, len(req.AlertConfigs))
	for _, cfg := range req.AlertConfigs {
		configs[cfg.CovenantConfigID] = cfg
	}

	var alerts []domain.CovenantAlert
	now := s.clock.Now()

	for _, result := range req.Results {
		cfg, ok := configs[result.CovenantConfigID]
		if !ok || !cfg.IsActive {
			continue
		}

		if result.IsBreached && cfg.AlertOnBreach {
			alerts = append(alerts, s.breachAlert(result, now))
		}

		if cfg.AlertOnApproaching {
			if alert, ok := s.approachingAlert(result, cfg, now); ok {
				alerts = append(alerts, alert)
			}
		}

		if cfg.AlertOnTrending {
			history := req.Historical[result.CovenantConfigID]
			trend, hasTrend := req.Trends[result.CovenantConfigID]
			if hasTrend && len(history) >= cfg.TrendPeriod && trend.IsNegative && trend.Magnitude >= cfg.TrendThreshold {
				alerts = append(alerts, s.trendingAlert(result, trend.Magnitude, now))
			}
		}
	}

	return alerts
}

func (s *Service) breachAlert(result resultdomain.CovenantTestResult, now time.Time) domain.CovenantAlert {
	severity := domain.SeverityMedium
	if result.BreachSeverity != nil {
		severity = domain.Severity(*result.BreachSeverity)
	}

	message := "Covenant test breached its threshold."
	if result.BreachAmount != nil {
		message = fmt.Sprintf("Covenant breached by %s.", humanAmount(*result.BreachAmount))
	}

	return domain.CovenantAlert{
		ID:               ulid.Make().String(),
		CovenantConfigID: result.CovenantConfigID,
		CompanyID:        result.CompanyID,
		AlertType:        domain.TypeBreach,
		Severity:         severity,
		Title:            "Covenant breach",
		Message:          message,
		ActualValue:      result.ActualValue,
		ThresholdValue:   result.ThresholdValue,
		BreachAmount:     result.BreachAmount,
		IsActive:         true,
		CreatedAt:        now,
	}
}

func (s *Service) approachingAlert(result resultdomain.CovenantTestResult, cfg domain.CovenantAlertConfig, now time.Time) (domain.CovenantAlert, bool) {
	if result.ActualValue == nil || result.ThresholdValue == nil {
		return domain.CovenantAlert{}, false
	}

	prox := Proximity(result)
	if prox < 100-cfg.ApproachingThreshold {
		return domain.CovenantAlert{}, false
	}

	return domain.CovenantAlert{
		ID:               ulid.Make().String(),
		CovenantConfigID: result.CovenantConfigID,
		CompanyID:        result.CompanyID,
		AlertType:        domain.TypeApproachingLimit,
		Severity:         domain.SeverityMedium,
		Title:            "Covenant approaching limit",
		Message:          fmt.Sprintf("Covenant is at %.1f%% of its threshold.", prox),
		ActualValue:      result.ActualValue,
		ThresholdValue:   result.ThresholdValue,
		IsActive:         true,
		CreatedAt:        now,
	}, true
}

func (s *Service) trendingAlert(result resultdomain.CovenantTestResult, magnitude float64, now time.Time) domain.CovenantAlert {
	return domain.CovenantAlert{
		ID:               ulid.Make().String(),
		CovenantConfigID: result.CovenantConfigID,
		CompanyID:        result.CompanyID,
		AlertType:        domain.TypeTrendingNegative,
		Severity:         domain.SeverityLow,
		Title:            "Covenant trending negative",
		Message:          fmt.Sprintf("Covenant is moving toward its threshold at %.3f per period.", magnitude),
		ActualValue:      result.ActualValue,
		ThresholdValue:   result.ThresholdValue,
		IsActive:         true,
		CreatedAt:        now,
	}
}

func (s *Service) PersistNew(ctx context.Context, alerts []domain.CovenantAlert) ([]domain.CovenantAlert, error) {
	inserted, err := s.repo.InsertNew(ctx, s.db, alerts)
	if err != nil {
		return nil, err
	}
	for _, alert := range inserted {
		if s.metrics != nil {
			s.metrics.RecordAlert(ctx, string(alert.AlertType), string(alert.Severity))
		}
		s.log.Info("alert raised",
			zap.String("alert_id", alert.ID),
			zap.String("alert_type", string(alert.AlertType)),
			zap.String("severity", string(alert.Severity)),
			zap.String("company_id", alert.CompanyID.String()),
		)
	}
	return inserted, nil
}

func (s *Service) RestoreCompliance(ctx context.Context, result resultdomain.CovenantTestResult) (*domain.CovenantAlert, error) {
	now := s.clock.Now()
	resolved, err := s.repo.ResolveActiveByType(ctx, s.db, result.CovenantConfigID, []domain.AlertType{
		domain.TypeBreach,
		domain.TypeApproachingLimit,
		domain.TypeTrendingNegative,
	}, now)
	if err != nil {
		return nil, err
	}
	if resolved == 0 {
		return nil, nil
	}

	alert := domain.CovenantAlert{
		ID:               ulid.Make().String(),
		CovenantConfigID: result.CovenantConfigID,
		CompanyID:        result.CompanyID,
		AlertType:        domain.TypeComplianceRestored,
		Severity:         domain.SeverityLow,
		Title:            "Covenant back in compliance",
		Message:          "Covenant tests compliant again; prior alerts have been resolved.",
		ActualValue:      result.ActualValue,
		ThresholdValue:   result.ThresholdValue,
		IsActive:         true,
		CreatedAt:        now,
	}

	stored, err := s.PersistNew(ctx, []domain.CovenantAlert{alert})
	if err != nil {
		return nil, err
	}
	if len(stored) == 0 {
		return nil, nil
	}
	return &stored[0], nil
}

func (s *Service) List(ctx context.Context, req domain.ListAlertRequest) (domain.ListAlertResponse, error) {
	filter := domain.ListAlertFilter{ActiveOnly: req.ActiveOnly}
	if strings.TrimSpace(req.CompanyID) != "" {
		companyID, err := snowflake.ParseString(strings.TrimSpace(req.CompanyID))
		if err != nil || companyID == 0 {
			return domain.ListAlertResponse{}, domain.ErrInvalidCompany
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
		return domain.ListAlertResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(alert *domain.CovenantAlert) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        alert.ID,
			CreatedAt: alert.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	alerts := make([]domain.CovenantAlert, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		alerts = append(alerts, *item)
	}

	resp := domain.ListAlertResponse{Alerts: alerts}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}

	return resp, nil
}

func (s *Service) Acknowledge(ctx context.Context, req domain.AcknowledgeRequest) (domain.CovenantAlert, error) {
	alertID := strings.TrimSpace(req.AlertID)
	if alertID == "" {
		return domain.CovenantAlert{}, domain.ErrInvalidID
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return domain.CovenantAlert{}, domain.ErrInvalidUser
	}

	alert, err := s.repo.FindByID(ctx, s.db, alertID)
	if err != nil {
		return domain.CovenantAlert{}, err
	}
	if alert == nil {
		return domain.CovenantAlert{}, domain.ErrAlertNotFound
	}

	now := s.clock.Now()
	if err := s.repo.MarkAcknowledged(ctx, s.db, alertID, userID, now); err != nil {
		return domain.CovenantAlert{}, err
	}

	alert.AcknowledgedBy = userID
	alert.AcknowledgedAt = &now
	return *alert, nil
}

func (s *Service) Resolve(ctx context.Context, req domain.ResolveRequest) (domain.CovenantAlert, error) {
	alertID := strings.TrimSpace(req.AlertID)
	if alertID == "" {
		return domain.CovenantAlert{}, domain.ErrInvalidID
	}

	alert, err := s.repo.FindByID(ctx, s.db, alertID)
	if err != nil {
		return domain.CovenantAlert{}, err
	}
	if alert == nil {
		return domain.CovenantAlert{}, domain.ErrAlertNotFound
	}
	if alert.ResolvedAt != nil {
		return *alert, nil
	}

	now := s.clock.Now()
	if err := s.repo.MarkResolved(ctx, s.db, alertID, now); err != nil {
		return domain.CovenantAlert{}, err
	}

	alert.ResolvedAt = &now
	alert.IsActive = false
	return *alert, nil
}

func (s *Service) Stats(ctx context.Context, req domain.StatsRequest) (domain.AlertStats, error) {
	companyID, err := snowflake.ParseString(strings.TrimSpace(req.CompanyID))
	if err != nil || companyID == 0 {
		return domain.AlertStats{}, domain.ErrInvalidCompany
	}

	alerts, err := s.repo.ListByCompany(ctx, s.db, companyID)
	if err != nil {
		return domain.AlertStats{}, err
	}

	return domain.Stats(alerts), nil
}

func (s *Service) UpsertConfig(ctx context.Context, req domain.UpsertAlertConfigRequest) (domain.CovenantAlertConfig, error) {
	covenantConfigID, err := snowflake.ParseString(strings.TrimSpace(req.CovenantConfigID))
	if err != nil || covenantConfigID == 0 {
		return domain.CovenantAlertConfig{}, domain.ErrInvalidID
	}
	companyID, err := snowflake.ParseString(strings.TrimSpace(req.CompanyID))
	if err != nil || companyID == 0 {
		return domain.CovenantAlertConfig{}, domain.ErrInvalidCompany
	}

	policy := s.policy.Get()
	now := s.clock.Now()

	existing, err := s.configRepo.FindByCovenantConfig(ctx, s.db, covenantConfigID)
	if err != nil {
		return domain.CovenantAlertConfig{}, err
	}

	var cfg domain.CovenantAlertConfig
	if existing != nil {
		cfg = *existing
	} else {
		cfg = domain.CovenantAlertConfig{
			ID:                   s.genID.Generate(),
			CovenantConfigID:     covenantConfigID,
			CompanyID:            companyID,
			IsActive:             true,
			AlertOnBreach:        true,
			ApproachingThreshold: policy.DefaultApproachingThreshold,
			TrendPeriod:          policy.DefaultTrendPeriod,
			TrendThreshold:       policy.DefaultTrendThreshold,
			EmailEnabled:         true,
			InAppEnabled:         true,
			NotifyUsers:          datatypes.NewJSONSlice([]string{}),
			CreatedAt:            now,
		}
	}

	if req.IsActive != nil {
		cfg.IsActive = *req.IsActive
	}
	if req.AlertOnBreach != nil {
		cfg.AlertOnBreach = *req.AlertOnBreach
	}
	if req.AlertOnApproaching != nil {
		cfg.AlertOnApproaching = *req.AlertOnApproaching
	}
	if req.AlertOnTrending != nil {
		cfg.AlertOnTrending = *req.AlertOnTrending
	}
	if req.ApproachingThreshold != nil {
		cfg.ApproachingThreshold = *req.ApproachingThreshold
	}
	if req.TrendPeriod != nil {
		cfg.TrendPeriod = *req.TrendPeriod
	}
	if req.TrendThreshold != nil {
		cfg.TrendThreshold = *req.TrendThreshold
	}
	if req.NotifyUsers != nil {
		cfg.NotifyUsers = datatypes.NewJSONSlice(req.NotifyUsers)
	}
	if req.EmailEnabled != nil {
		cfg.EmailEnabled = *req.EmailEnabled
	}
	if req.InAppEnabled != nil {
		cfg.InAppEnabled = *req.InAppEnabled
	}
	cfg.UpdatedAt = now

	if err := s.configRepo.Upsert(ctx, s.db, &cfg); err != nil {
		return domain.CovenantAlertConfig{}, err
	}

	return cfg, nil
}

func (s *Service) ConfigFor(ctx context.Context, covenantConfigID string) (domain.CovenantAlertConfig, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(covenantConfigID))
	if err != nil || id == 0 {
		return domain.CovenantAlertConfig{}, domain.ErrInvalidID
	}

	cfg, err := s.configRepo.FindByCovenantConfig(ctx, s.db, id)
	if err != nil {
		return domain.CovenantAlertConfig{}, err
	}
	if cfg == nil {
		return domain.CovenantAlertConfig{}, domain.ErrConfigNotFound
	}

	return *cfg, nil
}

func (s *Service) ListConfigsByCompany(ctx context.Context, companyID snowflake.ID) ([]domain.CovenantAlertConfig, error) {
	return s.configRepo.ListByCompany(ctx, s.db, companyID)
}
