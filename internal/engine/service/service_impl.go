package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/covena/internal/clock"
	covenantdomain "github.com/smallbiznis/covena/internal/covenant/domain"
	"github.com/smallbiznis/covena/internal/engine/domain"
	"github.com/smallbiznis/covena/internal/observability/metrics"
	ratiodomain "github.com/smallbiznis/covena/internal/ratio/domain"
	resultdomain "github.com/smallbiznis/covena/internal/testresult/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// stableSlopeEpsilon is the slope magnitude below which a fitted trend
// is reported as stable.
const stableSlopeEpsilon = 0.01

type Params struct {
	fx.In

	Log     *zap.Logger
	Clock   clock.Clock
	GenID   *snowflake.Node
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	log     *zap.Logger
	clock   clock.Clock
	genID   *snowflake.Node
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		log:     p.Log.Named("engine.service"),
		clock:   p.Clock,
		genID:   p.GenID,
		metrics: p.Metrics,
	}
}

func (s *Service) Evaluate(ctx context.Context, config covenantdomain.CovenantConfig, snapshot ratiodomain.RatioSnapshot, testDate time.Time) resultdomain.CovenantTestResult {
	result := s.newResult(config, testDate)

	spec, ok := covenantdomain.SpecFor(config.CovenantType)
	if !ok {
		result.Status = resultdomain.StatusNotApplicable
		result.Notes = fmt.Sprintf("unknown covenant type %q", config.CovenantType)
		s.record(ctx, result.Status)
		return result
	}

	if !spec.Quantitative() {
		result.Status = resultdomain.StatusCompliant
		result.Notes = "manual verification required"
		if len(config.Requirements) > 0 {
			result.CalculationDetails["requirements"] = []string(config.Requirements)
		}
		if len(config.Restrictions) > 0 {
			result.CalculationDetails["restrictions"] = []string(config.Restrictions)
		}
		s.record(ctx, result.Status)
		return result
	}

	actual := spec.Metric(snapshot)
	if actual == nil {
		result.Status = resultdomain.StatusNotApplicable
		result.Notes = "ratio snapshot is missing the required metric"
		result.CalculationDetails["missing_metric"] = string(config.CovenantType)
		s.record(ctx, result.Status)
		return result
	}

	threshold := covenantdomain.Threshold(config)
	if threshold == nil {
		result.Status = resultdomain.StatusNotApplicable
		result.Notes = "no threshold configured"
		s.record(ctx, result.Status)
		return result
	}

	result.ActualValue = actual
	result.ThresholdValue = threshold
	result.CalculationDetails["actual_value"] = *actual
	result.CalculationDetails["threshold_value"] = *threshold
	result.CalculationDetails["directionality"] = string(spec.Directionality)
	result.CalculationDetails["tolerance_band"] = spec.ToleranceBand

	if complies(spec.Directionality, *actual, *threshold) {
		result.Status = resultdomain.StatusCompliant
		pct := compliancePercentage(spec.Directionality, *actual, *threshold)
		result.CompliancePercentage = &pct
		s.record(ctx, result.Status)
		return result
	}

	breachAmount := math.Abs(*actual - *threshold)
	result.BreachAmount = &breachAmount

	deviation := math.Inf(1)
	if *threshold != 0 {
		deviation = breachAmount / math.Abs(*threshold)
		result.CalculationDetails["relative_deviation"] = deviation
	}

	severity := severityFor(deviation)
	result.BreachSeverity = &severity

	if deviation < spec.ToleranceBand {
		result.Status = resultdomain.StatusWarning
		result.Notes = "inside tolerance band, monitor closely"
	} else {
		result.Status = resultdomain.StatusBreached
		result.IsBreached = true
	}

	s.record(ctx, result.Status)
	return result
}

func (s *Service) EvaluateAll(ctx context.Context, configs []covenantdomain.CovenantConfig, snapshot ratiodomain.RatioSnapshot, testDate time.Time) []resultdomain.CovenantTestResult {
	results := make([]resultdomain.CovenantTestResult, 0, len(configs))
	for _, config := range configs {
		if !config.IsActive {
			continue
		}
		results = append(results, s.Evaluate(ctx, config, snapshot, testDate))
	}
	return results
}

func (s *Service) AnalyzeTrend(config covenantdomain.CovenantConfig, current resultdomain.CovenantTestResult, historical []resultdomain.CovenantTestResult, periodCount int) domain.TrendAnalysis {
	stable := domain.TrendAnalysis{Direction: domain.TrendStable}
	if periodCount < 2 || len(historical) < periodCount {
		return stable
	}

	// Historical arrives most recent first; fit over the window in
	// chronological order.
	window := historical[:periodCount]
	values := make([]float64, 0, len(window))
	for i := len(window) - 1; i >= 0; i-- {
		if window[i].ActualValue == nil {
			continue
		}
		values = append(values, *window[i].ActualValue)
	}
	if len(values) < 2 {
		return stable
	}

	slope := olsSlope(values)
	if math.Abs(slope) < stableSlopeEpsilon {
		return stable
	}

	direction := domain.TrendIncreasing
	if slope < 0 {
		direction = domain.TrendDecreasing
	}

	spec, ok := covenantdomain.SpecFor(config.CovenantType)
	isNegative := false
	if ok {
		switch spec.Directionality {
		case covenantdomain.DirectionMinimum:
			isNegative = slope < 0
		case covenantdomain.DirectionMaximum:
			isNegative = slope > 0
		}
	}

	return domain.TrendAnalysis{
		Direction:  direction,
		Magnitude:  math.Abs(slope),
		IsNegative: isNegative,
	}
}

func (s *Service) ComplianceScore(results []resultdomain.CovenantTestResult) int {
	var compliant, warning, total int
	for _, result := range results {
		switch result.Status {
		case resultdomain.StatusCompliant:
			compliant++
			total++
		case resultdomain.StatusWarning:
			warning++
			total++
		case resultdomain.StatusBreached:
			total++
		}
	}
	if total == 0 {
		return 100
	}
	score := (float64(compliant) + 0.5*float64(warning)) / float64(total) * 100
	return int(math.Round(score))
}

func (s *Service) newResult(config covenantdomain.CovenantConfig, testDate time.Time) resultdomain.CovenantTestResult {
	testDate = testDate.UTC()
	periodStart := time.Date(testDate.Year(), testDate.Month(), 1, 0, 0, 0, 0, time.UTC)
	return resultdomain.CovenantTestResult{
		ID:                 s.genID.Generate(),
		CovenantConfigID:   config.ID,
		CompanyID:          config.CompanyID,
		TestDate:           testDate,
		PeriodStart:        periodStart,
		PeriodEnd:          testDate,
		TestPeriod:         testDate.Format("2006-01"),
		CalculationDetails: datatypes.JSONMap{},
		CreatedAt:          s.clock.Now(),
	}
}

func (s *Service) record(ctx context.Context, status resultdomain.Status) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordEvaluation(ctx, string(status))
}

func complies(direction covenantdomain.Directionality, actual, threshold float64) bool {
	switch direction {
	case covenantdomain.DirectionMinimum:
		return actual >= threshold
	case covenantdomain.DirectionMaximum:
		return actual <= threshold
	default:
		return true
	}
}

// compliancePercentage expresses headroom relative to the threshold; a
// zero divisor reports full compliance by convention.
func compliancePercentage(direction covenantdomain.Directionality, actual, threshold float64) float64 {
	switch direction {
	case covenantdomain.DirectionMinimum:
		if threshold == 0 {
			return 100
		}
		return actual / threshold * 100
	case covenantdomain.DirectionMaximum:
		if actual == 0 {
			return 100
		}
		return threshold / actual * 100
	default:
		return 100
	}
}

// severityFor maps relative deviation to a severity band; boundary
// values belong to the higher band.
func severityFor(deviation float64) resultdomain.BreachSeverity {
	switch {
	case deviation < 0.05:
		return resultdomain.SeverityLow
	case deviation < 0.15:
		return resultdomain.SeverityMedium
	case deviation < 0.30:
		return resultdomain.SeverityHigh
	default:
		return resultdomain.SeverityCritical
	}
}

// olsSlope fits y = a + b*x over x = 0..n-1 and returns b.
func olsSlope(values []float64) float64 {
	n := float64(len(values))
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}
