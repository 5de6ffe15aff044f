package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// AlertType classifies why an alert was raised.
type AlertType string

const (
	TypeBreach             AlertType = "BREACH"
	TypeApproachingLimit   AlertType = "APPROACHING_LIMIT"
	TypeTrendingNegative   AlertType = "TRENDING_NEGATIVE"
	TypeComplianceRestored AlertType = "COMPLIANCE_RESTORED"
)

// Severity mirrors the breach severity scale.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// CovenantAlert is a notification derived from one or more test
// results. Created ACTIVE; acknowledging keeps it active, resolving is
// terminal.
type CovenantAlert struct {
	ID               string       `gorm:"primaryKey" json:"id"`
	CovenantConfigID snowflake.ID `gorm:"not null;index:idx_alerts_config_type" json:"covenant_config_id"`
	CompanyID        snowflake.ID `gorm:"not null;index" json:"company_id"`

	AlertType AlertType `gorm:"not null;index:idx_alerts_config_type" json:"alert_type"`
	Severity  Severity  `gorm:"not null" json:"severity"`
	Title     string    `gorm:"not null" json:"title"`
	Message   string    `gorm:"not null" json:"message"`

	ActualValue    *float64 `gorm:"column:actual_value" json:"actual_value,omitempty"`
	ThresholdValue *float64 `gorm:"column:threshold_value" json:"threshold_value,omitempty"`
	BreachAmount   *float64 `gorm:"column:breach_amount" json:"breach_amount,omitempty"`

	IsActive       bool       `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt      time.Time  `gorm:"not null" json:"created_at"`
	AcknowledgedBy string     `gorm:"column:acknowledged_by" json:"acknowledged_by,omitempty"`
	AcknowledgedAt *time.Time `gorm:"column:acknowledged_at" json:"acknowledged_at,omitempty"`
	ResolvedAt     *time.Time `gorm:"column:resolved_at" json:"resolved_at,omitempty"`
}

func (CovenantAlert) TableName() string { return "covenant_alerts" }

// CovenantAlertConfig is the per-covenant alerting policy.
type CovenantAlertConfig struct {
	ID               snowflake.ID `gorm:"primaryKey" json:"id"`
	CovenantConfigID snowflake.ID `gorm:"not null;uniqueIndex" json:"covenant_config_id"`
	CompanyID        snowflake.ID `gorm:"not null;index" json:"company_id"`
	IsActive         bool         `gorm:"not null;default:true" json:"is_active"`

	AlertOnBreach        bool    `gorm:"not null;default:true" json:"alert_on_breach"`
	AlertOnApproaching   bool    `gorm:"not null" json:"alert_on_approaching"`
	AlertOnTrending      bool    `gorm:"not null" json:"alert_on_trending"`
	ApproachingThreshold float64 `gorm:"not null" json:"approaching_threshold"`
	TrendPeriod          int     `gorm:"not null" json:"trend_period"`
	TrendThreshold       float64 `gorm:"not null" json:"trend_threshold"`

	EmailEnabled bool                        `gorm:"not null;default:true" json:"email_enabled"`
	InAppEnabled bool                        `gorm:"not null;default:true" json:"in_app_enabled"`
	NotifyUsers  datatypes.JSONSlice[string] `gorm:"not null" json:"notify_users"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (CovenantAlertConfig) TableName() string { return "covenant_alert_configs" }

// AlertStats aggregates an alert collection. Resolved always excludes
// the active and acknowledged partitions.
type AlertStats struct {
	Total        int              `json:"total"`
	Active       int              `json:"active"`
	Acknowledged int              `json:"acknowledged"`
	Resolved     int              `json:"resolved"`
	BySeverity   map[Severity]int `json:"by_severity"`
	ByType       map[AlertType]int `json:"by_type"`
}
