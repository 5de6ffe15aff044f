package domain

import (
	"context"
	"time"

	covenantdomain "github.com/smallbiznis/covena/internal/covenant/domain"
	ratiodomain "github.com/smallbiznis/covena/internal/ratio/domain"
	resultdomain "github.com/smallbiznis/covena/internal/testresult/domain"
)

// Service is the covenant calculation engine. Every operation is a pure
// function over its inputs; persistence and history lookups belong to
// the callers.
type Service interface {
	Evaluate(ctx context.Context, config covenantdomain.CovenantConfig, snapshot ratiodomain.RatioSnapshot, testDate time.Time) resultdomain.CovenantTestResult
	EvaluateAll(ctx context.Context, configs []covenantdomain.CovenantConfig, snapshot ratiodomain.RatioSnapshot, testDate time.Time) []resultdomain.CovenantTestResult
	AnalyzeTrend(config covenantdomain.CovenantConfig, current resultdomain.CovenantTestResult, historical []resultdomain.CovenantTestResult, periodCount int) TrendAnalysis
	ComplianceScore(results []resultdomain.CovenantTestResult) int
}
