package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/covena/internal/clock"
	covenantdomain "github.com/smallbiznis/covena/internal/covenant/domain"
	enginedomain "github.com/smallbiznis/covena/internal/engine/domain"
	ratiodomain "github.com/smallbiznis/covena/internal/ratio/domain"
	resultdomain "github.com/smallbiznis/covena/internal/testresult/domain"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

func newTestEngine(t *testing.T) (*Service, *clock.FakeClock) {
	t.Helper()
	node, err := snowflake.NewNode(1)
	assert.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC))
	svc := New(Params{
		Log:   zap.NewNop(),
		Clock: fake,
		GenID: node,
	}).(*Service)
	return svc, fake
}

func f64(v float64) *float64 { return &v }

func TestEvaluate_InterestCoverageWarningBand(t *testing.T) {
	svc, fake := newTestEngine(t)
	config := covenantdomain.CovenantConfig{
		ID:           1,
		CompanyID:    2,
		Name:         "Min interest coverage 3.0x",
		CovenantType: covenantdomain.TypeInterestCoverage,
		IsActive:     true,
		MinimumValue: f64(3.0),
	}

	// 2.6 misses the threshold but sits inside the 15% coverage band.
	snapshot := ratiodomain.RatioSnapshot{InterestCoverageRatio: f64(2.6)}
	result := svc.Evaluate(context.Background(), config, snapshot, fake.Now())

	assert.Equal(t, resultdomain.StatusWarning, result.Status)
	assert.False(t, result.IsBreached)
	assert.InDelta(t, 0.4, *result.BreachAmount, 1e-9)
	assert.Equal(t, resultdomain.SeverityMedium, *result.BreachSeverity)
	assert.Nil(t, result.CompliancePercentage)

	// 2.0 is a third below the threshold: breached, critical.
	snapshot = ratiodomain.RatioSnapshot{InterestCoverageRatio: f64(2.0)}
	result = svc.Evaluate(context.Background(), config, snapshot, fake.Now())

	assert.Equal(t, resultdomain.StatusBreached, result.Status)
	assert.True(t, result.IsBreached)
	assert.Equal(t, resultdomain.SeverityCritical, *result.BreachSeverity)
}

func TestEvaluate_LeverageBoundaryIsInclusive(t *testing.T) {
	svc, fake := newTestEngine(t)
	config := covenantdomain.CovenantConfig{
		ID:           1,
		CompanyID:    2,
		Name:         "Max leverage 4.0x",
		CovenantType: covenantdomain.TypeLeverageRatio,
		IsActive:     true,
		MaximumValue: f64(4.0),
	}
	snapshot := ratiodomain.RatioSnapshot{LeverageRatio: f64(4.0)}

	result := svc.Evaluate(context.Background(), config, snapshot, fake.Now())

	assert.Equal(t, resultdomain.StatusCompliant, result.Status)
	assert.Equal(t, 100.0, *result.CompliancePercentage)
	assert.False(t, result.IsBreached)
	assert.Nil(t, result.BreachAmount)
}

func TestEvaluate_MissingMetricIsSilentSkip(t *testing.T) {
	svc, fake := newTestEngine(t)
	config := covenantdomain.CovenantConfig{
		ID:           1,
		CompanyID:    2,
		Name:         "Min DSCR 1.25x",
		CovenantType: covenantdomain.TypeDebtServiceCoverage,
		IsActive:     true,
		MinimumValue: f64(1.25),
	}

	result := svc.Evaluate(context.Background(), config, ratiodomain.RatioSnapshot{}, fake.Now())

	assert.Equal(t, resultdomain.StatusNotApplicable, result.Status)
	assert.NotEmpty(t, result.Notes)
	assert.Nil(t, result.ActualValue)
	assert.False(t, result.IsBreached)
}

func TestEvaluate_MissingThreshold(t *testing.T) {
	svc, fake := newTestEngine(t)
	config := covenantdomain.CovenantConfig{
		ID:           1,
		CompanyID:    2,
		Name:         "Min current ratio",
		CovenantType: covenantdomain.TypeCurrentRatio,
		IsActive:     true,
	}
	snapshot := ratiodomain.RatioSnapshot{CurrentRatio: f64(1.8)}

	result := svc.Evaluate(context.Background(), config, snapshot, fake.Now())

	assert.Equal(t, resultdomain.StatusNotApplicable, result.Status)
	assert.Equal(t, "no threshold configured", result.Notes)
}

func TestEvaluate_QualitativeIsManualVerification(t *testing.T) {
	svc, fake := newTestEngine(t)
	config := covenantdomain.CovenantConfig{
		ID:           1,
		CompanyID:    2,
		Name:         "Annual audited financials",
		CovenantType: covenantdomain.TypeReporting,
		IsActive:     true,
		Requirements: datatypes.JSONSlice[string]{"Deliver audited statements within 120 days"},
	}

	result := svc.Evaluate(context.Background(), config, ratiodomain.RatioSnapshot{}, fake.Now())

	assert.Equal(t, resultdomain.StatusCompliant, result.Status)
	assert.Equal(t, "manual verification required", result.Notes)
	assert.Equal(t, []string{"Deliver audited statements within 120 days"}, result.CalculationDetails["requirements"])
	assert.Nil(t, result.ActualValue)
}

func TestEvaluate_ZeroThresholdNonCompliantIsCritical(t *testing.T) {
	svc, fake := newTestEngine(t)
	config := covenantdomain.CovenantConfig{
		ID:           1,
		CompanyID:    2,
		Name:         "Min net income 0",
		CovenantType: covenantdomain.TypeMinimumNetIncome,
		IsActive:     true,
		MinimumValue: f64(0),
	}
	snapshot := ratiodomain.RatioSnapshot{NetIncome: f64(-250_000)}

	result := svc.Evaluate(context.Background(), config, snapshot, fake.Now())

	assert.Equal(t, resultdomain.StatusBreached, result.Status)
	assert.Equal(t, resultdomain.SeverityCritical, *result.BreachSeverity)
	assert.Equal(t, 250_000.0, *result.BreachAmount)
}

func TestSeverityBands_BoundariesBelongToHigherBand(t *testing.T) {
	tests := []struct {
		deviation float64
		want      resultdomain.BreachSeverity
	}{
		{0.04, resultdomain.SeverityLow},
		{0.05, resultdomain.SeverityMedium},
		{0.14, resultdomain.SeverityMedium},
		{0.15, resultdomain.SeverityHigh},
		{0.29, resultdomain.SeverityHigh},
		{0.30, resultdomain.SeverityCritical},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, severityFor(tc.deviation), "deviation %v", tc.deviation)
	}
}

func TestEvaluate_ExactToleranceBoundaryIsBreached(t *testing.T) {
	svc, fake := newTestEngine(t)
	config := covenantdomain.CovenantConfig{
		ID:           1,
		CompanyID:    2,
		Name:         "Min current ratio",
		CovenantType: covenantdomain.TypeCurrentRatio,
		IsActive:     true,
		MinimumValue: f64(100),
	}
	// 5/100 lands exactly on the 0.05 liquidity band and the LOW/MEDIUM
	// severity cutoff; both boundaries belong to the stricter side.
	snapshot := ratiodomain.RatioSnapshot{CurrentRatio: f64(95)}

	result := svc.Evaluate(context.Background(), config, snapshot, fake.Now())

	assert.Equal(t, resultdomain.StatusBreached, result.Status)
	assert.True(t, result.IsBreached)
	assert.Equal(t, resultdomain.SeverityMedium, *result.BreachSeverity)
}

func TestEvaluateAll_SkipsInactiveAndStampsPeriod(t *testing.T) {
	svc, fake := newTestEngine(t)
	configs := []covenantdomain.CovenantConfig{
		{
			ID: 1, CompanyID: 2, Name: "Max leverage",
			CovenantType: covenantdomain.TypeLeverageRatio,
			IsActive:     true, MaximumValue: f64(4.0),
		},
		{
			ID: 3, CompanyID: 2, Name: "Dormant covenant",
			CovenantType: covenantdomain.TypeCurrentRatio,
			IsActive:     false, MinimumValue: f64(1.2),
		},
	}
	snapshot := ratiodomain.RatioSnapshot{
		LeverageRatio: f64(3.1),
		CurrentRatio:  f64(1.5),
	}

	results := svc.EvaluateAll(context.Background(), configs, snapshot, fake.Now())

	assert.Len(t, results, 1)
	assert.Equal(t, snowflake.ID(1), results[0].CovenantConfigID)
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), results[0].PeriodStart)
	assert.Equal(t, fake.Now(), results[0].PeriodEnd)
	assert.Equal(t, "2026-08", results[0].TestPeriod)
}

func trendHistory(values ...float64) []resultdomain.CovenantTestResult {
	// Most recent first, matching ListRecent ordering.
	results := make([]resultdomain.CovenantTestResult, len(values))
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i, v := range values {
		value := v
		results[i] = resultdomain.CovenantTestResult{
			ActualValue: &value,
			TestDate:    base.AddDate(0, -i, 0),
		}
	}
	return results
}

func TestAnalyzeTrend_InsufficientHistoryIsStable(t *testing.T) {
	svc, _ := newTestEngine(t)
	config := covenantdomain.CovenantConfig{CovenantType: covenantdomain.TypeInterestCoverage}

	trend := svc.AnalyzeTrend(config, resultdomain.CovenantTestResult{}, trendHistory(2.5, 2.6), 4)

	assert.Equal(t, enginedomain.TrendStable, trend.Direction)
	assert.Zero(t, trend.Magnitude)
	assert.False(t, trend.IsNegative)
}

func TestAnalyzeTrend_DecliningCoverageIsNegative(t *testing.T) {
	svc, _ := newTestEngine(t)
	config := covenantdomain.CovenantConfig{CovenantType: covenantdomain.TypeInterestCoverage}

	// Chronologically 3.2 → 3.0 → 2.8 → 2.6, i.e. slope -0.2 per period.
	trend := svc.AnalyzeTrend(config, resultdomain.CovenantTestResult{}, trendHistory(2.6, 2.8, 3.0, 3.2), 4)

	assert.Equal(t, enginedomain.TrendDecreasing, trend.Direction)
	assert.InDelta(t, 0.2, trend.Magnitude, 1e-9)
	assert.True(t, trend.IsNegative)
}

func TestAnalyzeTrend_RisingLeverageIsNegative(t *testing.T) {
	svc, _ := newTestEngine(t)
	config := covenantdomain.CovenantConfig{CovenantType: covenantdomain.TypeLeverageRatio}

	trend := svc.AnalyzeTrend(config, resultdomain.CovenantTestResult{}, trendHistory(3.9, 3.6, 3.3, 3.0), 4)

	assert.Equal(t, enginedomain.TrendIncreasing, trend.Direction)
	assert.True(t, trend.IsNegative)
}

func TestAnalyzeTrend_FlatSlopeIsStable(t *testing.T) {
	svc, _ := newTestEngine(t)
	config := covenantdomain.CovenantConfig{CovenantType: covenantdomain.TypeCurrentRatio}

	trend := svc.AnalyzeTrend(config, resultdomain.CovenantTestResult{}, trendHistory(1.500, 1.501, 1.499, 1.500), 4)

	assert.Equal(t, enginedomain.TrendStable, trend.Direction)
	assert.False(t, trend.IsNegative)
}

func TestAnalyzeTrend_NilActualsDropped(t *testing.T) {
	svc, _ := newTestEngine(t)
	config := covenantdomain.CovenantConfig{CovenantType: covenantdomain.TypeInterestCoverage}

	history := trendHistory(2.6, 2.8, 3.0, 3.2)
	history[1].ActualValue = nil
	history[2].ActualValue = nil
	history[3].ActualValue = nil

	trend := svc.AnalyzeTrend(config, resultdomain.CovenantTestResult{}, history, 4)

	assert.Equal(t, enginedomain.TrendStable, trend.Direction)
}

func TestComplianceScore(t *testing.T) {
	svc, _ := newTestEngine(t)

	results := []resultdomain.CovenantTestResult{
		{Status: resultdomain.StatusCompliant},
		{Status: resultdomain.StatusCompliant},
		{Status: resultdomain.StatusWarning},
		{Status: resultdomain.StatusBreached},
		{Status: resultdomain.StatusNotApplicable},
	}

	// (2 + 0.5) / 4 = 62.5 → 63; NOT_APPLICABLE stays out of the total.
	assert.Equal(t, 63, svc.ComplianceScore(results))
	assert.Equal(t, 100, svc.ComplianceScore(nil))
	assert.Equal(t, 100, svc.ComplianceScore([]resultdomain.CovenantTestResult{
		{Status: resultdomain.StatusNotApplicable},
	}))
}
