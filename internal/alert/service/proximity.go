package service

import (
	"fmt"
	"math"

	covenantdomain "github.com/smallbiznis/covena/internal/covenant/domain"
	resultdomain "github.com/smallbiznis/covena/internal/testresult/domain"
)

// Proximity measures how close a result sits to its threshold, as a
// percentage clamped to [0, 100]. The compliant side pegs at 100. The
// directionality tag is read from the result's calculation details,
// where the engine records it for every quantitative evaluation.
func Proximity(result resultdomain.CovenantTestResult) float64 {
	if result.ActualValue == nil || result.ThresholdValue == nil {
		return 0
	}
	actual := *result.ActualValue
	threshold := *result.ThresholdValue

	var prox float64
	switch directionalityOf(result) {
	case covenantdomain.DirectionMinimum:
		if actual >= threshold {
			prox = 100
		} else if threshold != 0 {
			prox = actual / threshold * 100
		}
	case covenantdomain.DirectionMaximum:
		if actual <= threshold {
			prox = 100
		} else if actual != 0 {
			prox = threshold / actual * 100
		}
	default:
		return 0
	}

	return math.Min(100, math.Max(0, prox))
}

func directionalityOf(result resultdomain.CovenantTestResult) covenantdomain.Directionality {
	raw, ok := result.CalculationDetails["directionality"]
	if !ok {
		return ""
	}
	value, ok := raw.(string)
	if !ok {
		return ""
	}
	return covenantdomain.Directionality(value)
}

// humanAmount renders a dollar amount at a scale a loan officer reads
// at a glance: $1.2M, $3.4K, or $12.34.
func humanAmount(amount float64) string {
	abs := math.Abs(amount)
	sign := ""
	if amount < 0 {
		sign = "-"
	}
	switch {
	case abs >= 1_000_000:
		return fmt.Sprintf("%s$%.1fM", sign, abs/1_000_000)
	case abs >= 1_000:
		return fmt.Sprintf("%s$%.1fK", sign, abs/1_000)
	default:
		return fmt.Sprintf("%s$%.2f", sign, abs)
	}
}
