package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	alertdomain "github.com/smallbiznis/covena/internal/alert/domain"
	alertrepository "github.com/smallbiznis/covena/internal/alert/repository"
	alertservice "github.com/smallbiznis/covena/internal/alert/service"
	auditdomain "github.com/smallbiznis/covena/internal/audit/domain"
	auditrepository "github.com/smallbiznis/covena/internal/audit/repository"
	auditservice "github.com/smallbiznis/covena/internal/audit/service"
	"github.com/smallbiznis/covena/internal/clock"
	companydomain "github.com/smallbiznis/covena/internal/company/domain"
	companyrepository "github.com/smallbiznis/covena/internal/company/repository"
	"github.com/smallbiznis/covena/internal/config"
	covenantdomain "github.com/smallbiznis/covena/internal/covenant/domain"
	covenantrepository "github.com/smallbiznis/covena/internal/covenant/repository"
	engineservice "github.com/smallbiznis/covena/internal/engine/service"
	notificationdomain "github.com/smallbiznis/covena/internal/notification/domain"
	"github.com/smallbiznis/covena/internal/notification/providers/email"
	notificationrepository "github.com/smallbiznis/covena/internal/notification/repository"
	notificationservice "github.com/smallbiznis/covena/internal/notification/service"
	ratiodomain "github.com/smallbiznis/covena/internal/ratio/domain"
	ratiorepository "github.com/smallbiznis/covena/internal/ratio/repository"
	resultdomain "github.com/smallbiznis/covena/internal/testresult/domain"
	resultrepository "github.com/smallbiznis/covena/internal/testresult/repository"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type fixture struct {
	scheduler *Scheduler
	db        *gorm.DB
	clock     *clock.FakeClock
	params    Params
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	assert.NoError(t, err)
	err = db.AutoMigrate(
		&companydomain.Company{},
		&covenantdomain.CovenantConfig{},
		&ratiodomain.RatioSnapshot{},
		&resultdomain.CovenantTestResult{},
		&alertdomain.CovenantAlert{},
		&alertdomain.CovenantAlertConfig{},
		&notificationdomain.NotificationIntent{},
		&notificationdomain.InAppMessage{},
		&auditdomain.AuditEntry{},
	)
	assert.NoError(t, err)

	node, err := snowflake.NewNode(1)
	assert.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC))
	log := zap.NewNop()
	policy := config.NewStaticPolicyHolder(config.DefaultPolicyConfig())

	auditSvc := auditservice.New(auditservice.Params{
		DB: db, Log: log, Clock: fake, GenID: node,
		Repo: auditrepository.Provide(),
	})
	engineSvc := engineservice.New(engineservice.Params{
		Log: log, Clock: fake, GenID: node,
	})
	alertSvc := alertservice.New(alertservice.Params{
		DB: db, Log: log, Clock: fake, GenID: node, Policy: policy,
		Repo:       alertrepository.Provide(),
		ConfigRepo: alertrepository.ProvideConfigRepository(),
	})
	notificationSvc := notificationservice.New(notificationservice.Params{
		DB: db, Log: log, Clock: fake, Policy: policy,
		Repo:  notificationrepository.Provide(),
		Email: &email.NoOpProvider{},
		Audit: auditSvc,
	})

	p := Params{
		DB:              db,
		Log:             log,
		Clock:           fake,
		Policy:          policy,
		Locker:          NewLocker(nil),
		CompanyRepo:     companyrepository.Provide(),
		CovenantRepo:    covenantrepository.Provide(),
		RatioRepo:       ratiorepository.Provide(),
		ResultRepo:      resultrepository.Provide(),
		EngineSvc:       engineSvc,
		AlertSvc:        alertSvc,
		NotificationSvc: notificationSvc,
		AuditSvc:        auditSvc,
		Config:          Config{RunInterval: time.Minute},
	}

	return &fixture{scheduler: New(p), db: db, clock: fake, params: p}
}

func ptr(v float64) *float64 { return &v }

func (f *fixture) seedCompany(t *testing.T, id snowflake.ID) {
	t.Helper()
	err := f.db.Create(&companydomain.Company{
		ID: id, Name: "Acme Manufacturing", Metadata: datatypes.JSONMap{},
	}).Error
	assert.NoError(t, err)
}

func (f *fixture) seedCovenant(t *testing.T, id, companyID snowflake.ID, minimum float64) {
	t.Helper()
	err := f.db.Create(&covenantdomain.CovenantConfig{
		ID:           id,
		CompanyID:    companyID,
		Name:         "Minimum DSCR",
		CovenantType: covenantdomain.TypeDebtServiceCoverage,
		IsActive:     true,
		MinimumValue: ptr(minimum),
	}).Error
	assert.NoError(t, err)
}

func (f *fixture) seedSnapshot(t *testing.T, id, companyID snowflake.ID, dscr float64) {
	t.Helper()
	err := f.db.Create(&ratiodomain.RatioSnapshot{
		ID:                       id,
		CompanyID:                companyID,
		AsOfDate:                 f.clock.Now(),
		DebtServiceCoverageRatio: ptr(dscr),
	}).Error
	assert.NoError(t, err)
}

func (f *fixture) seedAlertConfig(t *testing.T, id, configID, companyID snowflake.ID) {
	t.Helper()
	err := f.db.Create(&alertdomain.CovenantAlertConfig{
		ID:                   id,
		CovenantConfigID:     configID,
		CompanyID:            companyID,
		IsActive:             true,
		AlertOnBreach:        true,
		ApproachingThreshold: 10,
		TrendPeriod:          4,
		TrendThreshold:       0.05,
		EmailEnabled:         true,
		InAppEnabled:         true,
		NotifyUsers:          datatypes.NewJSONSlice([]string{"analyst-1"}),
	}).Error
	assert.NoError(t, err)
}

func TestRunOnce_BreachProducesAlertAndDeliversNotifications(t *testing.T) {
	f := newFixture(t)
	f.seedCompany(t, 10)
	f.seedCovenant(t, 20, 10, 1.25)
	f.seedSnapshot(t, 30, 10, 0.9)
	f.seedAlertConfig(t, 40, 20, 10)

	err := f.scheduler.RunOnce(context.Background())
	assert.NoError(t, err)

	var results []resultdomain.CovenantTestResult
	assert.NoError(t, f.db.Find(&results).Error)
	assert.Len(t, results, 1)
	assert.Equal(t, resultdomain.StatusBreached, results[0].Status)
	assert.True(t, results[0].IsBreached)

	var alerts []alertdomain.CovenantAlert
	assert.NoError(t, f.db.Find(&alerts).Error)
	assert.Len(t, alerts, 1)
	assert.Equal(t, alertdomain.TypeBreach, alerts[0].AlertType)
	assert.True(t, alerts[0].IsActive)

	// The dispatch job runs in the same pass, so the email and in-app
	// intents for analyst-1 are already delivered.
	var intents []notificationdomain.NotificationIntent
	assert.NoError(t, f.db.Find(&intents).Error)
	assert.Len(t, intents, 2)
	for _, intent := range intents {
		assert.Equal(t, notificationdomain.IntentSent, intent.Status)
	}

	var inApp []notificationdomain.InAppMessage
	assert.NoError(t, f.db.Find(&inApp).Error)
	assert.Len(t, inApp, 1)
	assert.Equal(t, "analyst-1", inApp[0].UserID)

	var audits []auditdomain.AuditEntry
	assert.NoError(t, f.db.Where("action = ?", "compliance.evaluate").Find(&audits).Error)
	assert.Len(t, audits, 1)
}

func TestRunOnce_SecondPassDoesNotDuplicateActiveAlert(t *testing.T) {
	f := newFixture(t)
	f.seedCompany(t, 10)
	f.seedCovenant(t, 20, 10, 1.25)
	f.seedSnapshot(t, 30, 10, 0.9)
	f.seedAlertConfig(t, 40, 20, 10)

	assert.NoError(t, f.scheduler.RunOnce(context.Background()))
	f.clock.Advance(24 * time.Hour)
	assert.NoError(t, f.scheduler.RunOnce(context.Background()))

	var results []resultdomain.CovenantTestResult
	assert.NoError(t, f.db.Find(&results).Error)
	assert.Len(t, results, 2)

	var alerts []alertdomain.CovenantAlert
	assert.NoError(t, f.db.Where("alert_type = ?", alertdomain.TypeBreach).Find(&alerts).Error)
	assert.Len(t, alerts, 1)
}

func TestRunOnce_RecoveryResolvesBreachAndRaisesRestored(t *testing.T) {
	f := newFixture(t)
	f.seedCompany(t, 10)
	f.seedCovenant(t, 20, 10, 1.25)
	f.seedSnapshot(t, 30, 10, 0.9)
	f.seedAlertConfig(t, 40, 20, 10)

	assert.NoError(t, f.scheduler.RunOnce(context.Background()))

	// A healthier snapshot arrives and the covenant comes back onside.
	f.clock.Advance(30 * 24 * time.Hour)
	f.seedSnapshot(t, 31, 10, 1.6)
	assert.NoError(t, f.scheduler.RunOnce(context.Background()))

	var breach alertdomain.CovenantAlert
	assert.NoError(t, f.db.Where("alert_type = ?", alertdomain.TypeBreach).First(&breach).Error)
	assert.False(t, breach.IsActive)
	assert.NotNil(t, breach.ResolvedAt)

	var restored []alertdomain.CovenantAlert
	assert.NoError(t, f.db.Where("alert_type = ?", alertdomain.TypeComplianceRestored).Find(&restored).Error)
	assert.Len(t, restored, 1)
	assert.Equal(t, alertdomain.SeverityLow, restored[0].Severity)
}

func TestRunOnce_SkipsCompanyWithoutSnapshot(t *testing.T) {
	f := newFixture(t)
	f.seedCompany(t, 10)
	f.seedCovenant(t, 20, 10, 1.25)

	assert.NoError(t, f.scheduler.RunOnce(context.Background()))

	var count int64
	assert.NoError(t, f.db.Model(&resultdomain.CovenantTestResult{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRunOnce_HeldLockSkipsTheRun(t *testing.T) {
	f := newFixture(t)
	f.seedCompany(t, 10)
	f.seedCovenant(t, 20, 10, 1.25)
	f.seedSnapshot(t, 30, 10, 0.9)
	f.seedAlertConfig(t, 40, 20, 10)

	ctx := context.Background()
	_, ok, err := f.scheduler.locker.TryLock(ctx, runLockKey, time.Minute)
	assert.NoError(t, err)
	assert.True(t, ok)

	assert.NoError(t, f.scheduler.RunOnce(ctx))

	var count int64
	assert.NoError(t, f.db.Model(&resultdomain.CovenantTestResult{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestComplianceJob_CoversEveryCompanyWithASnapshot(t *testing.T) {
	f := newFixture(t)
	f.seedCompany(t, 10)
	f.seedCovenant(t, 20, 10, 1.25)
	f.seedSnapshot(t, 30, 10, 1.6)

	f.seedCompany(t, 11)
	f.seedCovenant(t, 21, 11, 1.25)
	f.seedSnapshot(t, 31, 11, 0.9)
	f.seedAlertConfig(t, 41, 21, 11)

	assert.NoError(t, f.scheduler.ComplianceJob(context.Background()))

	var count int64
	assert.NoError(t, f.db.Model(&resultdomain.CovenantTestResult{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

// cancellingRatioRepo cancels the run context from inside the first
// snapshot lookup, mimicking a job timeout firing mid-batch.
type cancellingRatioRepo struct {
	ratiodomain.Repository
	cancel context.CancelFunc
	once   sync.Once
}

func (r *cancellingRatioRepo) FindLatest(ctx context.Context, db *gorm.DB, companyID snowflake.ID) (*ratiodomain.RatioSnapshot, error) {
	r.once.Do(r.cancel)
	return r.Repository.FindLatest(ctx, db, companyID)
}

func TestComplianceJob_CancellationMidBatchSurfacesContextError(t *testing.T) {
	f := newFixture(t)
	for i := snowflake.ID(10); i < 13; i++ {
		f.seedCompany(t, i)
		f.seedCovenant(t, i+10, i, 1.25)
		f.seedSnapshot(t, i+20, i, 1.6)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pol := config.DefaultPolicyConfig()
	pol.Evaluation.WorkerCount = 1

	p := f.params
	p.Policy = config.NewStaticPolicyHolder(pol)
	p.RatioRepo = &cancellingRatioRepo{Repository: p.RatioRepo, cancel: cancel}
	s := New(p)

	err := s.ComplianceJob(ctx)
	assert.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
