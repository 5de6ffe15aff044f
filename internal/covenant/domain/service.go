package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/covena/pkg/db/pagination"
)

type CreateCovenantConfigRequest struct {
	CompanyID      string
	Name           string
	CovenantType   CovenantType
	IsActive       *bool
	ThresholdValue *float64
	MinimumValue   *float64
	MaximumValue   *float64
	Requirements   []string
	Restrictions   []string
	BasketLimit    *float64
}

type UpdateCovenantConfigRequest struct {
	ID             string
	Name           *string
	IsActive       *bool
	ThresholdValue *float64
	MinimumValue   *float64
	MaximumValue   *float64
	Requirements   *[]string
	Restrictions   *[]string
	BasketLimit    *float64
}

type GetCovenantConfigRequest struct {
	ID string
}

type ListCovenantConfigRequest struct {
	CompanyID  string
	PageToken  string
	PageSize   int32
	ActiveOnly bool
}

type ListCovenantConfigResponse struct {
	pagination.PageInfo
	Configs []CovenantConfig `json:"configs"`
}

// ValidationResult is the outcome of checking a config before it is
// accepted for evaluation.
type ValidationResult struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors,omitempty"`
}

type Service interface {
	Create(context.Context, CreateCovenantConfigRequest) (CovenantConfig, error)
	Update(context.Context, UpdateCovenantConfigRequest) (CovenantConfig, error)
	GetByID(context.Context, GetCovenantConfigRequest) (CovenantConfig, error)
	List(context.Context, ListCovenantConfigRequest) (ListCovenantConfigResponse, error)
	Validate(context.Context, CovenantConfig) ValidationResult
}

var (
	ErrInvalidCompany  = errors.New("invalid_company")
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidID       = errors.New("invalid_id")
	ErrInvalidConfig   = errors.New("invalid_covenant_config")
	ErrUnknownType     = errors.New("unknown_covenant_type")
	ErrNotFound        = errors.New("covenant_not_found")
	ErrConfigImmutable = errors.New("covenant_type_immutable")
)
