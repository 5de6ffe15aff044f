package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	alertdomain "github.com/smallbiznis/covena/internal/alert/domain"
	auditdomain "github.com/smallbiznis/covena/internal/audit/domain"
	"github.com/smallbiznis/covena/internal/clock"
	companydomain "github.com/smallbiznis/covena/internal/company/domain"
	"github.com/smallbiznis/covena/internal/config"
	covenantdomain "github.com/smallbiznis/covena/internal/covenant/domain"
	enginedomain "github.com/smallbiznis/covena/internal/engine/domain"
	notificationdomain "github.com/smallbiznis/covena/internal/notification/domain"
	"github.com/smallbiznis/covena/internal/observability/metrics"
	ratiodomain "github.com/smallbiznis/covena/internal/ratio/domain"
	resultdomain "github.com/smallbiznis/covena/internal/testresult/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	runLockKey = "covena:scheduler:run"
	runLockTTL = 10 * time.Minute

	jobTimeout = 5 * time.Minute
)

type Config struct {
	RunInterval time.Duration
}

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	Metrics *metrics.Metrics `optional:"true"`
	Policy  *config.PolicyHolder
	Locker  *Locker

	CompanyRepo  companydomain.Repository
	CovenantRepo covenantdomain.Repository
	RatioRepo    ratiodomain.Repository
	ResultRepo   resultdomain.Repository

	EngineSvc       enginedomain.Service
	AlertSvc        alertdomain.Service
	NotificationSvc notificationdomain.Service
	AuditSvc        auditdomain.Recorder

	Config Config `optional:"true"`
}

type Scheduler struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	metrics *metrics.Metrics
	policy  *config.PolicyHolder
	locker  *Locker
	cfg     Config

	companyRepo  companydomain.Repository
	covenantRepo covenantdomain.Repository
	ratioRepo    ratiodomain.Repository
	resultRepo   resultdomain.Repository

	engineSvc       enginedomain.Service
	alertSvc        alertdomain.Service
	notificationSvc notificationdomain.Service
	auditSvc        auditdomain.Recorder
}

func New(p Params) *Scheduler {
	cfg := p.Config
	if cfg.RunInterval <= 0 {
		cfg.RunInterval = time.Hour
	}
	return &Scheduler{
		db:              p.DB,
		log:             p.Log.Named("scheduler"),
		clock:           p.Clock,
		metrics:         p.Metrics,
		policy:          p.Policy,
		locker:          p.Locker,
		cfg:             cfg,
		companyRepo:     p.CompanyRepo,
		covenantRepo:    p.CovenantRepo,
		ratioRepo:       p.RatioRepo,
		resultRepo:      p.ResultRepo,
		engineSvc:       p.EngineSvc,
		alertSvc:        p.AlertSvc,
		notificationSvc: p.NotificationSvc,
		auditSvc:        p.AuditSvc,
	}
}

// RunOnce claims the run lock and executes one compliance pass plus one
// dispatch pass. Per-company failures are joined, never fatal to the
// rest of the batch.
func (s *Scheduler) RunOnce(parent context.Context) error {
	token, ok, err := s.locker.TryLock(parent, runLockKey, runLockTTL)
	if err != nil {
		return fmt.Errorf("run lock: %w", err)
	}
	if !ok {
		s.log.Debug("another instance holds the run lock")
		return nil
	}
	defer func() {
		if err := s.locker.Release(parent, runLockKey, token); err != nil {
			s.log.Warn("run lock release failed", zap.Error(err))
		}
	}()

	var runErr error
	runErr = errors.Join(runErr, s.runJob(parent, "compliance_evaluation", s.ComplianceJob))
	runErr = errors.Join(runErr, s.runJob(parent, "notification_dispatch", s.DispatchJob))
	return runErr
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) error) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, jobTimeout)
	defer cancel()

	err := fn(ctx)
	if s.metrics != nil {
		s.metrics.ObserveRunDuration(parent, name, time.Since(start))
	}

	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.log.Warn("job timed out", zap.String("job", name), zap.Error(err))
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

// ComplianceJob evaluates every company's active covenants against its
// latest ratio snapshot, persists the results, and raises alerts.
// Companies are independent, so batches run on a bounded worker pool.
func (s *Scheduler) ComplianceJob(ctx context.Context) error {
	companyIDs, err := s.companyRepo.ListIDs(ctx, s.db)
	if err != nil {
		return err
	}
	if len(companyIDs) == 0 {
		return nil
	}

	policy := s.policy.Get()
	workers := policy.Evaluation.WorkerCount
	if workers < 1 {
		workers = 1
	}

	var (
		mu     sync.Mutex
		jobErr error
	)
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	// Recorded outside the mutex and joined only after wg.Wait, so the
	// main loop never touches jobErr while workers still hold mu.
	var cancelErr error

	for _, companyID := range companyIDs {
		if ctx.Err() != nil {
			cancelErr = ctx.Err()
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(id snowflake.ID) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := s.evaluateCompany(ctx, id); err != nil {
				mu.Lock()
				jobErr = errors.Join(jobErr, fmt.Errorf("company %s: %w", id, err))
				mu.Unlock()
			}
		}(companyID)
	}
	wg.Wait()

	return errors.Join(jobErr, cancelErr)
}

// DispatchJob delivers pending notification intents.
func (s *Scheduler) DispatchJob(ctx context.Context) error {
	sent, err := s.notificationSvc.DispatchPending(ctx)
	if sent > 0 {
		s.log.Info("notifications dispatched", zap.Int("sent", sent))
	}
	return err
}

// EvaluateCompany runs one on-demand compliance pass for a single
// company, outside the scheduled cadence.
func (s *Scheduler) EvaluateCompany(ctx context.Context, companyID snowflake.ID) error {
	return s.evaluateCompany(ctx, companyID)
}

func (s *Scheduler) evaluateCompany(ctx context.Context, companyID snowflake.ID) error {
	configs, err := s.covenantRepo.ListActiveByCompany(ctx, s.db, companyID)
	if err != nil {
		return err
	}
	if len(configs) == 0 {
		return nil
	}

	snapshot, err := s.ratioRepo.FindLatest(ctx, s.db, companyID)
	if err != nil {
		return err
	}
	if snapshot == nil {
		s.log.Debug("no ratio snapshot yet", zap.String("company_id", companyID.String()))
		return nil
	}

	configIDs := make([]snowflake.ID, 0, len(configs))
	for _, cc := range configs {
		configIDs = append(configIDs, cc.ID)
	}

	priorLatest, err := s.resultRepo.LatestPerConfig(ctx, s.db, configIDs)
	if err != nil {
		return err
	}

	alertConfigs, err := s.alertSvc.ListConfigsByCompany(ctx, companyID)
	if err != nil {
		return err
	}
	activeAlertConfigs := make([]alertdomain.CovenantAlertConfig, 0, len(alertConfigs))
	alertConfigByID := make(map[snowflake.ID]alertdomain.CovenantAlertConfig, len(alertConfigs))
	for _, cfg := range alertConfigs {
		if !cfg.IsActive {
			continue
		}
		activeAlertConfigs = append(activeAlertConfigs, cfg)
		alertConfigByID[cfg.CovenantConfigID] = cfg
	}

	// Trend context uses history from before this run.
	historical := make(map[snowflake.ID][]resultdomain.CovenantTestResult)
	for _, cfg := range activeAlertConfigs {
		if !cfg.AlertOnTrending || cfg.TrendPeriod < 2 {
			continue
		}
		history, err := s.resultRepo.ListRecent(ctx, s.db, cfg.CovenantConfigID, cfg.TrendPeriod)
		if err != nil {
			return err
		}
		historical[cfg.CovenantConfigID] = history
	}

	testDate := s.clock.Now()
	results := s.engineSvc.EvaluateAll(ctx, configs, *snapshot, testDate)
	if len(results) == 0 {
		return nil
	}

	if err := s.resultRepo.BatchInsert(ctx, s.db, results); err != nil {
		return err
	}

	configByID := make(map[snowflake.ID]covenantdomain.CovenantConfig, len(configs))
	for _, cc := range configs {
		configByID[cc.ID] = cc
	}

	trends := make(map[snowflake.ID]enginedomain.TrendAnalysis)
	for _, result := range results {
		history, ok := historical[result.CovenantConfigID]
		if !ok {
			continue
		}
		cfg := alertConfigByID[result.CovenantConfigID]
		trends[result.CovenantConfigID] = s.engineSvc.AnalyzeTrend(
			configByID[result.CovenantConfigID], result, history, cfg.TrendPeriod,
		)
	}

	alerts := s.alertSvc.Generate(ctx, alertdomain.GenerateRequest{
		Results:      results,
		AlertConfigs: activeAlertConfigs,
		Historical:   historical,
		Trends:       trends,
	})

	stored, err := s.alertSvc.PersistNew(ctx, alerts)
	if err != nil {
		return err
	}

	// A covenant that breached last period and is compliant now closes
	// its open alerts and announces the recovery.
	for _, result := range results {
		if result.Status != resultdomain.StatusCompliant {
			continue
		}
		prior, ok := priorLatest[result.CovenantConfigID]
		if !ok || prior.Status != resultdomain.StatusBreached {
			continue
		}
		restored, err := s.alertSvc.RestoreCompliance(ctx, result)
		if err != nil {
			return err
		}
		if restored != nil {
			stored = append(stored, *restored)
		}
	}

	// One consolidated intent batch per alert policy.
	byConfig := make(map[snowflake.ID][]alertdomain.CovenantAlert)
	for _, alert := range stored {
		byConfig[alert.CovenantConfigID] = append(byConfig[alert.CovenantConfigID], alert)
	}
	for configID, configAlerts := range byConfig {
		cfg, ok := alertConfigByID[configID]
		if !ok {
			continue
		}
		if _, err := s.notificationSvc.Enqueue(ctx, configAlerts, cfg); err != nil {
			return err
		}
	}

	s.auditSvc.Record(ctx, auditdomain.RecordRequest{
		CompanyID:  companyID,
		Action:     "compliance.evaluate",
		EntityType: "company",
		EntityID:   companyID.String(),
		Metadata: datatypes.JSONMap{
			"covenants": len(configs),
			"results":   len(results),
			"alerts":    len(stored),
			"test_date": testDate.Format(time.RFC3339),
		},
	})

	return nil
}
