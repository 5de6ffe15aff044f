package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Status is the compliance outcome of one covenant test.
type Status string

const (
	StatusCompliant     Status = "COMPLIANT"
	StatusWarning       Status = "WARNING"
	StatusBreached      Status = "BREACHED"
	StatusNotApplicable Status = "NOT_APPLICABLE"
)

// BreachSeverity grades how far a failing value sits from its threshold.
type BreachSeverity string

const (
	SeverityLow      BreachSeverity = "LOW"
	SeverityMedium   BreachSeverity = "MEDIUM"
	SeverityHigh     BreachSeverity = "HIGH"
	SeverityCritical BreachSeverity = "CRITICAL"
)

// CovenantTestResult is the outcome of evaluating one covenant config
// against one ratio snapshot. Written once per (config, period), never
// mutated; the next period's evaluation supersedes it.
type CovenantTestResult struct {
	ID               snowflake.ID `gorm:"primaryKey" json:"id"`
	CovenantConfigID snowflake.ID `gorm:"not null;index:idx_test_results_config_date" json:"covenant_config_id"`
	CompanyID        snowflake.ID `gorm:"not null;index" json:"company_id"`

	TestDate    time.Time `gorm:"not null;index:idx_test_results_config_date" json:"test_date"`
	PeriodStart time.Time `gorm:"not null" json:"period_start"`
	PeriodEnd   time.Time `gorm:"not null" json:"period_end"`
	TestPeriod  string    `gorm:"column:test_period" json:"test_period,omitempty"`

	Status               Status   `gorm:"not null" json:"status"`
	ActualValue          *float64 `gorm:"column:actual_value" json:"actual_value,omitempty"`
	ThresholdValue       *float64 `gorm:"column:threshold_value" json:"threshold_value,omitempty"`
	CompliancePercentage *float64 `gorm:"column:compliance_percentage" json:"compliance_percentage,omitempty"`

	IsBreached     bool            `gorm:"not null" json:"is_breached"`
	BreachAmount   *float64        `gorm:"column:breach_amount" json:"breach_amount,omitempty"`
	BreachSeverity *BreachSeverity `gorm:"column:breach_severity" json:"breach_severity,omitempty"`

	CalculationDetails datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"calculation_details,omitempty"`
	Notes              string            `gorm:"column:notes" json:"notes,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (CovenantTestResult) TableName() string { return "covenant_test_results" }
