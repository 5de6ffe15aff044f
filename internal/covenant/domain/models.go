package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// CovenantType identifies the covenant family. Each type carries an
// explicit spec entry (directionality, tolerance, metric selector) in
// types.go; behavior never depends on how an id happens to be spelled.
type CovenantType string

const (
	TypeLeverageRatio       CovenantType = "LEVERAGE_RATIO"
	TypeDebtToEquity        CovenantType = "DEBT_TO_EQUITY"
	TypeDebtServiceCoverage CovenantType = "DEBT_SERVICE_COVERAGE"
	TypeInterestCoverage    CovenantType = "INTEREST_COVERAGE"
	TypeFixedChargeCoverage CovenantType = "FIXED_CHARGE_COVERAGE"
	TypeCurrentRatio        CovenantType = "CURRENT_RATIO"
	TypeQuickRatio          CovenantType = "QUICK_RATIO"
	TypeWorkingCapital      CovenantType = "WORKING_CAPITAL"
	TypeTangibleNetWorth    CovenantType = "TANGIBLE_NET_WORTH"
	TypeMinimumEBITDA       CovenantType = "MINIMUM_EBITDA"
	TypeMinimumGrossMargin  CovenantType = "MINIMUM_GROSS_MARGIN"
	TypeMinimumNetIncome    CovenantType = "MINIMUM_NET_INCOME"
	TypeCapexLimit          CovenantType = "CAPEX_LIMIT"

	TypeRestrictedPaymentsBasket CovenantType = "RESTRICTED_PAYMENTS_BASKET"

	TypeAffirmative CovenantType = "AFFIRMATIVE"
	TypeNegative    CovenantType = "NEGATIVE"
	TypeReporting   CovenantType = "REPORTING"
)

// CovenantConfig is one covenant instance attached to a company.
type CovenantConfig struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	CompanyID    snowflake.ID `gorm:"not null;index" json:"company_id"`
	Name         string       `gorm:"not null" json:"name"`
	CovenantType CovenantType `gorm:"not null" json:"covenant_type"`
	IsActive     bool         `gorm:"not null;default:true" json:"is_active"`

	ThresholdValue *float64 `gorm:"column:threshold_value" json:"threshold_value,omitempty"`
	MinimumValue   *float64 `gorm:"column:minimum_value" json:"minimum_value,omitempty"`
	MaximumValue   *float64 `gorm:"column:maximum_value" json:"maximum_value,omitempty"`

	// Qualitative covenants only.
	Requirements datatypes.JSONSlice[string] `gorm:"column:requirements" json:"requirements,omitempty"`
	Restrictions datatypes.JSONSlice[string] `gorm:"column:restrictions" json:"restrictions,omitempty"`

	// Basket covenants only.
	BasketLimit *float64 `gorm:"column:basket_limit" json:"basket_limit,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (CovenantConfig) TableName() string { return "covenant_configs" }
