package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	alertdomain "github.com/smallbiznis/covena/internal/alert/domain"
	"github.com/smallbiznis/covena/internal/alert/repository"
	"github.com/smallbiznis/covena/internal/clock"
	"github.com/smallbiznis/covena/internal/config"
	enginedomain "github.com/smallbiznis/covena/internal/engine/domain"
	resultdomain "github.com/smallbiznis/covena/internal/testresult/domain"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *clock.FakeClock, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	assert.NoError(t, err)
	err = db.AutoMigrate(&alertdomain.CovenantAlert{}, &alertdomain.CovenantAlertConfig{})
	assert.NoError(t, err)

	node, err := snowflake.NewNode(1)
	assert.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC))

	svc := New(Params{
		DB:         db,
		Log:        zap.NewNop(),
		Clock:      fake,
		GenID:      node,
		Policy:     config.NewStaticPolicyHolder(config.DefaultPolicyConfig()),
		Repo:       repository.Provide(),
		ConfigRepo: repository.ProvideConfigRepository(),
	}).(*Service)

	return svc, fake, db
}

func f64(v float64) *float64 { return &v }

func sev(s resultdomain.BreachSeverity) *resultdomain.BreachSeverity { return &s }

func breachedResult(configID, companyID snowflake.ID) resultdomain.CovenantTestResult {
	return resultdomain.CovenantTestResult{
		ID:               configID + 1000,
		CovenantConfigID: configID,
		CompanyID:        companyID,
		Status:           resultdomain.StatusBreached,
		IsBreached:       true,
		ActualValue:      f64(2.0),
		ThresholdValue:   f64(3.0),
		BreachAmount:     f64(1.0),
		BreachSeverity:   sev(resultdomain.SeverityCritical),
		CalculationDetails: datatypes.JSONMap{
			"directionality": "MINIMUM",
		},
	}
}

func activeAlertConfig(configID, companyID snowflake.ID) alertdomain.CovenantAlertConfig {
	return alertdomain.CovenantAlertConfig{
		ID:                   configID + 2000,
		CovenantConfigID:     configID,
		CompanyID:            companyID,
		IsActive:             true,
		AlertOnBreach:        true,
		ApproachingThreshold: 10,
		TrendPeriod:          4,
		TrendThreshold:       0.05,
		EmailEnabled:         true,
		InAppEnabled:         true,
		NotifyUsers:          datatypes.NewJSONSlice([]string{"user-1"}),
	}
}

func TestGenerate_BreachAlertWithHumanScaledAmount(t *testing.T) {
	svc, _, _ := newTestService(t)

	result := breachedResult(1, 9)
	result.BreachAmount = f64(1_200_000)
	cfg := activeAlertConfig(1, 9)

	alerts := svc.Generate(context.Background(), alertdomain.GenerateRequest{
		Results:      []resultdomain.CovenantTestResult{result},
		AlertConfigs: []alertdomain.CovenantAlertConfig{cfg},
	})

	assert.Len(t, alerts, 1)
	assert.Equal(t, alertdomain.TypeBreach, alerts[0].AlertType)
	assert.Equal(t, alertdomain.SeverityCritical, alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "$1.2M")
	assert.True(t, alerts[0].IsActive)
	assert.NotEmpty(t, alerts[0].ID)
}

func TestGenerate_SeverityFallsBackToMedium(t *testing.T) {
	svc, _, _ := newTestService(t)

	result := breachedResult(1, 9)
	result.BreachSeverity = nil

	alerts := svc.Generate(context.Background(), alertdomain.GenerateRequest{
		Results:      []resultdomain.CovenantTestResult{result},
		AlertConfigs: []alertdomain.CovenantAlertConfig{activeAlertConfig(1, 9)},
	})

	assert.Len(t, alerts, 1)
	assert.Equal(t, alertdomain.SeverityMedium, alerts[0].Severity)
}

func TestGenerate_SkipsMissingOrInactiveConfig(t *testing.T) {
	svc, _, _ := newTestService(t)

	inactive := activeAlertConfig(1, 9)
	inactive.IsActive = false

	alerts := svc.Generate(context.Background(), alertdomain.GenerateRequest{
		Results:      []resultdomain.CovenantTestResult{breachedResult(1, 9), breachedResult(2, 9)},
		AlertConfigs: []alertdomain.CovenantAlertConfig{inactive},
	})

	assert.Empty(t, alerts)
}

func TestGenerate_ApproachingLimit(t *testing.T) {
	svc, _, _ := newTestService(t)

	// Compliant but within 8% of a minimum threshold once tolerance has
	// pushed the status to WARNING.
	result := resultdomain.CovenantTestResult{
		CovenantConfigID: 1,
		CompanyID:        9,
		Status:           resultdomain.StatusWarning,
		ActualValue:      f64(2.76),
		ThresholdValue:   f64(3.0),
		CalculationDetails: datatypes.JSONMap{
			"directionality": "MINIMUM",
		},
	}
	cfg := activeAlertConfig(1, 9)
	cfg.AlertOnBreach = false
	cfg.AlertOnApproaching = true

	alerts := svc.Generate(context.Background(), alertdomain.GenerateRequest{
		Results:      []resultdomain.CovenantTestResult{result},
		AlertConfigs: []alertdomain.CovenantAlertConfig{cfg},
	})

	assert.Len(t, alerts, 1)
	assert.Equal(t, alertdomain.TypeApproachingLimit, alerts[0].AlertType)
	assert.Equal(t, alertdomain.SeverityMedium, alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "92.0%")
}

func TestGenerate_ApproachingSkippedBelowWindow(t *testing.T) {
	svc, _, _ := newTestService(t)

	result := resultdomain.CovenantTestResult{
		CovenantConfigID: 1,
		CompanyID:        9,
		Status:           resultdomain.StatusBreached,
		ActualValue:      f64(1.5),
		ThresholdValue:   f64(3.0),
		CalculationDetails: datatypes.JSONMap{
			"directionality": "MINIMUM",
		},
	}
	cfg := activeAlertConfig(1, 9)
	cfg.AlertOnBreach = false
	cfg.AlertOnApproaching = true

	alerts := svc.Generate(context.Background(), alertdomain.GenerateRequest{
		Results:      []resultdomain.CovenantTestResult{result},
		AlertConfigs: []alertdomain.CovenantAlertConfig{cfg},
	})

	assert.Empty(t, alerts, "50 percent proximity is nowhere near the limit window")
}

func TestGenerate_TrendingNegative(t *testing.T) {
	svc, _, _ := newTestService(t)

	result := breachedResult(1, 9)
	result.IsBreached = false
	result.Status = resultdomain.StatusCompliant
	cfg := activeAlertConfig(1, 9)
	cfg.AlertOnBreach = false
	cfg.AlertOnTrending = true

	history := make([]resultdomain.CovenantTestResult, 4)

	alerts := svc.Generate(context.Background(), alertdomain.GenerateRequest{
		Results:      []resultdomain.CovenantTestResult{result},
		AlertConfigs: []alertdomain.CovenantAlertConfig{cfg},
		Historical: map[snowflake.ID][]resultdomain.CovenantTestResult{
			1: history,
		},
		Trends: map[snowflake.ID]enginedomain.TrendAnalysis{
			1: {Direction: enginedomain.TrendDecreasing, Magnitude: 0.2, IsNegative: true},
		},
	})

	assert.Len(t, alerts, 1)
	assert.Equal(t, alertdomain.TypeTrendingNegative, alerts[0].AlertType)
	assert.Equal(t, alertdomain.SeverityLow, alerts[0].Severity)
}

func TestGenerate_TrendingRequiresEnoughHistory(t *testing.T) {
	svc, _, _ := newTestService(t)

	result := breachedResult(1, 9)
	result.IsBreached = false
	cfg := activeAlertConfig(1, 9)
	cfg.AlertOnBreach = false
	cfg.AlertOnTrending = true

	alerts := svc.Generate(context.Background(), alertdomain.GenerateRequest{
		Results:      []resultdomain.CovenantTestResult{result},
		AlertConfigs: []alertdomain.CovenantAlertConfig{cfg},
		Historical: map[snowflake.ID][]resultdomain.CovenantTestResult{
			1: make([]resultdomain.CovenantTestResult, 2),
		},
		Trends: map[snowflake.ID]enginedomain.TrendAnalysis{
			1: {Direction: enginedomain.TrendDecreasing, Magnitude: 0.2, IsNegative: true},
		},
	})

	assert.Empty(t, alerts)
}

func TestPersistNew_DeduplicatesActiveAlerts(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	first := svc.Generate(ctx, alertdomain.GenerateRequest{
		Results:      []resultdomain.CovenantTestResult{breachedResult(1, 9)},
		AlertConfigs: []alertdomain.CovenantAlertConfig{activeAlertConfig(1, 9)},
	})
	stored, err := svc.PersistNew(ctx, first)
	assert.NoError(t, err)
	assert.Len(t, stored, 1)

	// Same covenant breaching again while the first alert is active.
	second := svc.Generate(ctx, alertdomain.GenerateRequest{
		Results:      []resultdomain.CovenantTestResult{breachedResult(1, 9)},
		AlertConfigs: []alertdomain.CovenantAlertConfig{activeAlertConfig(1, 9)},
	})
	stored, err = svc.PersistNew(ctx, second)
	assert.NoError(t, err)
	assert.Empty(t, stored)

	// Resolving the active alert lets the next breach raise a new one.
	_, err = svc.Resolve(ctx, alertdomain.ResolveRequest{AlertID: first[0].ID})
	assert.NoError(t, err)

	third := svc.Generate(ctx, alertdomain.GenerateRequest{
		Results:      []resultdomain.CovenantTestResult{breachedResult(1, 9)},
		AlertConfigs: []alertdomain.CovenantAlertConfig{activeAlertConfig(1, 9)},
	})
	stored, err = svc.PersistNew(ctx, third)
	assert.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestAcknowledgeAndResolve_StoreBacked(t *testing.T) {
	svc, fake, _ := newTestService(t)
	ctx := context.Background()

	alerts := svc.Generate(ctx, alertdomain.GenerateRequest{
		Results:      []resultdomain.CovenantTestResult{breachedResult(1, 9)},
		AlertConfigs: []alertdomain.CovenantAlertConfig{activeAlertConfig(1, 9)},
	})
	_, err := svc.PersistNew(ctx, alerts)
	assert.NoError(t, err)
	alertID := alerts[0].ID

	acked, err := svc.Acknowledge(ctx, alertdomain.AcknowledgeRequest{AlertID: alertID, UserID: "user-1"})
	assert.NoError(t, err)
	assert.Equal(t, "user-1", acked.AcknowledgedBy)
	assert.True(t, acked.IsActive)

	resolved, err := svc.Resolve(ctx, alertdomain.ResolveRequest{AlertID: alertID})
	assert.NoError(t, err)
	assert.False(t, resolved.IsActive)
	firstResolvedAt := *resolved.ResolvedAt

	// Resolve is idempotent: the original timestamp survives.
	fake.Advance(time.Hour)
	resolved, err = svc.Resolve(ctx, alertdomain.ResolveRequest{AlertID: alertID})
	assert.NoError(t, err)
	assert.Equal(t, firstResolvedAt, *resolved.ResolvedAt)

	_, err = svc.Acknowledge(ctx, alertdomain.AcknowledgeRequest{AlertID: "01UNKNOWN", UserID: "user-1"})
	assert.ErrorIs(t, err, alertdomain.ErrAlertNotFound)
}

func TestStats_StoreBacked(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	results := []resultdomain.CovenantTestResult{breachedResult(1, 9), breachedResult(2, 9)}
	configs := []alertdomain.CovenantAlertConfig{activeAlertConfig(1, 9), activeAlertConfig(2, 9)}
	alerts := svc.Generate(ctx, alertdomain.GenerateRequest{Results: results, AlertConfigs: configs})
	_, err := svc.PersistNew(ctx, alerts)
	assert.NoError(t, err)

	_, err = svc.Resolve(ctx, alertdomain.ResolveRequest{AlertID: alerts[0].ID})
	assert.NoError(t, err)

	stats, err := svc.Stats(ctx, alertdomain.StatsRequest{CompanyID: "9"})
	assert.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Active)
	assert.Equal(t, 1, stats.Resolved)
	assert.Equal(t, 2, stats.ByType[alertdomain.TypeBreach])
}

func TestUpsertConfig_PolicyDefaults(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	enabled := true
	cfg, err := svc.UpsertConfig(ctx, alertdomain.UpsertAlertConfigRequest{
		CovenantConfigID:   "42",
		CompanyID:          "9",
		AlertOnApproaching: &enabled,
		NotifyUsers:        []string{"user-1", "user-2"},
	})
	assert.NoError(t, err)
	assert.Equal(t, 10.0, cfg.ApproachingThreshold)
	assert.Equal(t, 4, cfg.TrendPeriod)
	assert.Equal(t, 0.05, cfg.TrendThreshold)
	assert.True(t, cfg.AlertOnBreach)

	// Updating tunes one knob without losing the rest.
	threshold := 15.0
	updated, err := svc.UpsertConfig(ctx, alertdomain.UpsertAlertConfigRequest{
		CovenantConfigID:     "42",
		CompanyID:            "9",
		ApproachingThreshold: &threshold,
	})
	assert.NoError(t, err)
	assert.Equal(t, cfg.ID, updated.ID)
	assert.Equal(t, 15.0, updated.ApproachingThreshold)
	assert.True(t, updated.AlertOnApproaching)
	assert.Equal(t, []string{"user-1", "user-2"}, []string(updated.NotifyUsers))

	fetched, err := svc.ConfigFor(ctx, "42")
	assert.NoError(t, err)
	assert.Equal(t, 15.0, fetched.ApproachingThreshold)
}

func TestHumanAmount(t *testing.T) {
	assert.Equal(t, "$1.2M", humanAmount(1_200_000))
	assert.Equal(t, "$3.4K", humanAmount(3_400))
	assert.Equal(t, "$12.34", humanAmount(12.34))
	assert.Equal(t, "-$2.5K", humanAmount(-2_500))
}

func TestProximity_Clamped(t *testing.T) {
	result := resultdomain.CovenantTestResult{
		ActualValue:    f64(4.5),
		ThresholdValue: f64(4.0),
		CalculationDetails: datatypes.JSONMap{
			"directionality": "MAXIMUM",
		},
	}
	assert.InDelta(t, 88.9, Proximity(result), 0.1)

	result.ActualValue = f64(3.0)
	assert.Equal(t, 100.0, Proximity(result))

	result.CalculationDetails = datatypes.JSONMap{}
	assert.Equal(t, 0.0, Proximity(result))
}
