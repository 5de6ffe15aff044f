package domain

import (
	"fmt"
	"strings"
)

// ValidateConfig checks a covenant configuration against its type spec.
// It is a pure check; services call it before accepting a config, so
// evaluation never has to skip silently over a broken one.
func ValidateConfig(config CovenantConfig) ValidationResult {
	var problems []string

	if config.CompanyID == 0 {
		problems = append(problems, "company is required")
	}
	if strings.TrimSpace(config.Name) == "" {
		problems = append(problems, "name is required")
	}

	spec, ok := SpecFor(config.CovenantType)
	if !ok {
		problems = append(problems, fmt.Sprintf("unknown covenant type %q", config.CovenantType))
		return ValidationResult{IsValid: false, Errors: problems}
	}

	if spec.Basket {
		if config.BasketLimit == nil || *config.BasketLimit <= 0 {
			problems = append(problems, "basket covenant requires basket_limit > 0")
		}
	} else if spec.Quantitative() {
		if Threshold(config) == nil {
			problems = append(problems, "quantitative covenant requires a threshold")
		}
	}

	return ValidationResult{IsValid: len(problems) == 0, Errors: problems}
}

// Threshold selects the effective threshold for a quantitative config:
// basket limit for basket covenants, otherwise the directional bound
// with threshold_value as fallback. Returns nil for qualitative types
// or when nothing is configured.
func Threshold(config CovenantConfig) *float64 {
	spec, ok := SpecFor(config.CovenantType)
	if !ok || !spec.Quantitative() {
		return nil
	}
	if spec.Basket && config.BasketLimit != nil {
		return config.BasketLimit
	}
	switch spec.Directionality {
	case DirectionMinimum:
		if config.MinimumValue != nil {
			return config.MinimumValue
		}
	case DirectionMaximum:
		if config.MaximumValue != nil {
			return config.MaximumValue
		}
	}
	return config.ThresholdValue
}
