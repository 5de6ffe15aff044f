package domain

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
)

func f64(v float64) *float64 { return &v }

func TestValidateConfig_QuantitativeRequiresThreshold(t *testing.T) {
	config := CovenantConfig{
		ID:           1,
		CompanyID:    snowflake.ID(2),
		Name:         "Max Leverage 4.0x",
		CovenantType: TypeLeverageRatio,
	}

	result := ValidateConfig(config)
	assert.False(t, result.IsValid)
	assert.Contains(t, result.Errors, "quantitative covenant requires a threshold")

	config.MaximumValue = f64(4.0)
	result = ValidateConfig(config)
	assert.True(t, result.IsValid)
	assert.Empty(t, result.Errors)
}

func TestValidateConfig_ThresholdValueFallback(t *testing.T) {
	config := CovenantConfig{
		ID:             1,
		CompanyID:      snowflake.ID(2),
		Name:           "Min DSCR",
		CovenantType:   TypeDebtServiceCoverage,
		ThresholdValue: f64(1.25),
	}

	result := ValidateConfig(config)
	assert.True(t, result.IsValid)
	assert.Equal(t, 1.25, *Threshold(config))
}

func TestValidateConfig_BasketRequiresPositiveLimit(t *testing.T) {
	config := CovenantConfig{
		ID:           1,
		CompanyID:    snowflake.ID(2),
		Name:         "Restricted payments basket",
		CovenantType: TypeRestrictedPaymentsBasket,
		BasketLimit:  f64(0),
	}

	result := ValidateConfig(config)
	assert.False(t, result.IsValid)
	assert.Contains(t, result.Errors, "basket covenant requires basket_limit > 0")

	config.BasketLimit = f64(500_000)
	result = ValidateConfig(config)
	assert.True(t, result.IsValid)
	assert.Equal(t, 500_000.0, *Threshold(config))
}

func TestValidateConfig_UnknownTypeAndMissingFields(t *testing.T) {
	config := CovenantConfig{CovenantType: CovenantType("SOMETHING_ELSE")}

	result := ValidateConfig(config)
	assert.False(t, result.IsValid)
	assert.Len(t, result.Errors, 3)
}

func TestValidateConfig_QualitativeNeedsNoThreshold(t *testing.T) {
	config := CovenantConfig{
		ID:           1,
		CompanyID:    snowflake.ID(2),
		Name:         "Annual audited financials",
		CovenantType: TypeReporting,
		Requirements: datatypes.JSONSlice[string]{"Deliver audited statements within 120 days of fiscal year end"},
	}

	result := ValidateConfig(config)
	assert.True(t, result.IsValid)
	assert.Nil(t, Threshold(config))
}

func TestThreshold_DirectionalBoundWinsOverFallback(t *testing.T) {
	config := CovenantConfig{
		CovenantType:   TypeCurrentRatio,
		ThresholdValue: f64(1.0),
		MinimumValue:   f64(1.2),
	}
	assert.Equal(t, 1.2, *Threshold(config))

	config = CovenantConfig{
		CovenantType:   TypeLeverageRatio,
		ThresholdValue: f64(5.0),
		MaximumValue:   f64(4.0),
	}
	assert.Equal(t, 4.0, *Threshold(config))
}

func TestSpecFor_EveryKnownTypeHasMetricOrIsQualitative(t *testing.T) {
	for _, covType := range KnownTypes() {
		spec, ok := SpecFor(covType)
		assert.True(t, ok)
		if spec.Quantitative() {
			assert.NotNil(t, spec.Metric, "type %s needs a metric selector", covType)
		} else {
			assert.Nil(t, spec.Metric)
		}
	}
}
