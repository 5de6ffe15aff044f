package domain

// TrendDirection summarizes the slope of recent actual values.
type TrendDirection string

const (
	TrendStable     TrendDirection = "STABLE"
	TrendIncreasing TrendDirection = "INCREASING"
	TrendDecreasing TrendDirection = "DECREASING"
)

// TrendAnalysis is the outcome of fitting recent history for one
// covenant. IsNegative is directional: a falling coverage ratio and a
// rising leverage ratio are both negative trends.
type TrendAnalysis struct {
	Direction TrendDirection `json:"direction"`
	Magnitude float64        `json:"magnitude"`
	IsNegative bool          `json:"is_negative"`
}
