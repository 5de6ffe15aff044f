package domain

import ratiodomain "github.com/smallbiznis/covena/internal/ratio/domain"

// Directionality says which side of the threshold is compliant.
type Directionality string

const (
	DirectionMinimum     Directionality = "MINIMUM"
	DirectionMaximum     Directionality = "MAXIMUM"
	DirectionQualitative Directionality = "QUALITATIVE"
)

// TypeSpec is the per-type behavior of the engine: directionality, the
// warning tolerance band around the threshold, and the snapshot metric
// the covenant tests.
type TypeSpec struct {
	Directionality Directionality
	ToleranceBand  float64
	Basket         bool
	Metric         func(ratiodomain.RatioSnapshot) *float64
}

// Quantitative reports whether the type compares a numeric threshold.
func (s TypeSpec) Quantitative() bool {
	return s.Directionality != DirectionQualitative
}

// Tolerance bands per covenant family. Values are fractions of the
// threshold; a failing value inside the band reports WARNING instead of
// BREACHED.
const (
	toleranceLeverage  = 0.10
	toleranceCoverage  = 0.15
	toleranceLiquidity = 0.05
	toleranceDefault   = 0.10
)

var typeSpecs = map[CovenantType]TypeSpec{
	TypeLeverageRatio: {
		Directionality: DirectionMaximum,
		ToleranceBand:  toleranceLeverage,
		Metric:         func(s ratiodomain.RatioSnapshot) *float64 { return s.LeverageRatio },
	},
	TypeDebtToEquity: {
		Directionality: DirectionMaximum,
		ToleranceBand:  toleranceLeverage,
		Metric:         func(s ratiodomain.RatioSnapshot) *float64 { return s.DebtToEquityRatio },
	},
	TypeDebtServiceCoverage: {
		Directionality: DirectionMinimum,
		ToleranceBand:  toleranceCoverage,
		Metric:         func(s ratiodomain.RatioSnapshot) *float64 { return s.DebtServiceCoverageRatio },
	},
	TypeInterestCoverage: {
		Directionality: DirectionMinimum,
		ToleranceBand:  toleranceCoverage,
		Metric:         func(s ratiodomain.RatioSnapshot) *float64 { return s.InterestCoverageRatio },
	},
	TypeFixedChargeCoverage: {
		Directionality: DirectionMinimum,
		ToleranceBand:  toleranceCoverage,
		Metric:         func(s ratiodomain.RatioSnapshot) *float64 { return s.FixedChargeCoverageRatio },
	},
	TypeCurrentRatio: {
		Directionality: DirectionMinimum,
		ToleranceBand:  toleranceLiquidity,
		Metric:         func(s ratiodomain.RatioSnapshot) *float64 { return s.CurrentRatio },
	},
	TypeQuickRatio: {
		Directionality: DirectionMinimum,
		ToleranceBand:  toleranceLiquidity,
		Metric:         func(s ratiodomain.RatioSnapshot) *float64 { return s.QuickRatio },
	},
	TypeWorkingCapital: {
		Directionality: DirectionMinimum,
		ToleranceBand:  toleranceDefault,
		Metric:         func(s ratiodomain.RatioSnapshot) *float64 { return s.WorkingCapital },
	},
	TypeTangibleNetWorth: {
		Directionality: DirectionMinimum,
		ToleranceBand:  toleranceLeverage,
		Metric:         func(s ratiodomain.RatioSnapshot) *float64 { return s.TangibleNetWorth },
	},
	TypeMinimumEBITDA: {
		Directionality: DirectionMinimum,
		ToleranceBand:  toleranceDefault,
		Metric:         func(s ratiodomain.RatioSnapshot) *float64 { return s.EBITDA },
	},
	TypeMinimumGrossMargin: {
		Directionality: DirectionMinimum,
		ToleranceBand:  toleranceDefault,
		Metric:         func(s ratiodomain.RatioSnapshot) *float64 { return s.GrossMarginPct },
	},
	TypeMinimumNetIncome: {
		Directionality: DirectionMinimum,
		ToleranceBand:  toleranceDefault,
		Metric:         func(s ratiodomain.RatioSnapshot) *float64 { return s.NetIncome },
	},
	TypeCapexLimit: {
		Directionality: DirectionMaximum,
		ToleranceBand:  toleranceDefault,
		Metric:         func(s ratiodomain.RatioSnapshot) *float64 { return s.CapitalExpenditures },
	},
	TypeRestrictedPaymentsBasket: {
		Directionality: DirectionMaximum,
		ToleranceBand:  toleranceDefault,
		Basket:         true,
		Metric:         func(s ratiodomain.RatioSnapshot) *float64 { return s.RestrictedPayments },
	},
	TypeAffirmative: {Directionality: DirectionQualitative},
	TypeNegative:    {Directionality: DirectionQualitative},
	TypeReporting:   {Directionality: DirectionQualitative},
}

// SpecFor returns the behavior table entry for a covenant type.
func SpecFor(t CovenantType) (TypeSpec, bool) {
	spec, ok := typeSpecs[t]
	return spec, ok
}

// KnownTypes returns all registered covenant types.
func KnownTypes() []CovenantType {
	types := make([]CovenantType, 0, len(typeSpecs))
	for t := range typeSpecs {
		types = append(types, t)
	}
	return types
}
