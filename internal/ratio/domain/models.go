package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// RatioSnapshot is a flat record of computed financial metrics for one
// company as of one reporting date. Metric fields are pointers so a
// metric the provider could not compute stays distinguishable from a
// literal zero.
type RatioSnapshot struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	CompanyID snowflake.ID `gorm:"not null;index:idx_ratio_snapshots_company_asof" json:"company_id"`
	AsOfDate  time.Time    `gorm:"not null;index:idx_ratio_snapshots_company_asof" json:"as_of_date"`

	LeverageRatio            *float64 `gorm:"column:leverage_ratio" json:"leverage_ratio,omitempty"`
	DebtToEquityRatio        *float64 `gorm:"column:debt_to_equity_ratio" json:"debt_to_equity_ratio,omitempty"`
	DebtServiceCoverageRatio *float64 `gorm:"column:debt_service_coverage_ratio" json:"debt_service_coverage_ratio,omitempty"`
	InterestCoverageRatio    *float64 `gorm:"column:interest_coverage_ratio" json:"interest_coverage_ratio,omitempty"`
	FixedChargeCoverageRatio *float64 `gorm:"column:fixed_charge_coverage_ratio" json:"fixed_charge_coverage_ratio,omitempty"`
	CurrentRatio             *float64 `gorm:"column:current_ratio" json:"current_ratio,omitempty"`
	QuickRatio               *float64 `gorm:"column:quick_ratio" json:"quick_ratio,omitempty"`
	WorkingCapital           *float64 `gorm:"column:working_capital" json:"working_capital,omitempty"`
	TangibleNetWorth         *float64 `gorm:"column:tangible_net_worth" json:"tangible_net_worth,omitempty"`
	EBITDA                   *float64 `gorm:"column:ebitda" json:"ebitda,omitempty"`
	GrossMarginPct           *float64 `gorm:"column:gross_margin_pct" json:"gross_margin_pct,omitempty"`
	NetIncome                *float64 `gorm:"column:net_income" json:"net_income,omitempty"`
	CapitalExpenditures      *float64 `gorm:"column:capital_expenditures" json:"capital_expenditures,omitempty"`
	RestrictedPayments       *float64 `gorm:"column:restricted_payments" json:"restricted_payments,omitempty"`

	// Raw figures kept for audit alongside the derived ratios.
	TotalDebt   *float64 `gorm:"column:total_debt" json:"total_debt,omitempty"`
	TotalEquity *float64 `gorm:"column:total_equity" json:"total_equity,omitempty"`
	TotalAssets *float64 `gorm:"column:total_assets" json:"total_assets,omitempty"`
	Revenue     *float64 `gorm:"column:revenue" json:"revenue,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (RatioSnapshot) TableName() string { return "ratio_snapshots" }
