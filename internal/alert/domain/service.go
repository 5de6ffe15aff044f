package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	enginedomain "github.com/smallbiznis/covena/internal/engine/domain"
	resultdomain "github.com/smallbiznis/covena/internal/testresult/domain"
	"github.com/smallbiznis/covena/pkg/db/pagination"
)

// GenerateRequest carries one evaluation run's worth of results plus
// the alerting policies and trend context the generator needs.
type GenerateRequest struct {
	Results      []resultdomain.CovenantTestResult
	AlertConfigs []CovenantAlertConfig
	// Historical results per covenant config, most recent first.
	Historical map[snowflake.ID][]resultdomain.CovenantTestResult
	// Trends computed by the engine for configs with enough history.
	Trends map[snowflake.ID]enginedomain.TrendAnalysis
}

type ListAlertRequest struct {
	CompanyID  string
	PageToken  string
	PageSize   int32
	ActiveOnly bool
}

type ListAlertResponse struct {
	pagination.PageInfo
	Alerts []CovenantAlert `json:"alerts"`
}

type AcknowledgeRequest struct {
	AlertID string
	UserID  string
}

type ResolveRequest struct {
	AlertID string
}

type StatsRequest struct {
	CompanyID string
}

type UpsertAlertConfigRequest struct {
	CovenantConfigID     string
	CompanyID            string
	IsActive             *bool
	AlertOnBreach        *bool
	AlertOnApproaching   *bool
	AlertOnTrending      *bool
	ApproachingThreshold *float64
	TrendPeriod          *int
	TrendThreshold       *float64
	EmailEnabled         *bool
	InAppEnabled         *bool
	NotifyUsers          []string
}

type Service interface {
	// Generate is pure: it emits fresh alerts without consulting or
	// writing the store.
	Generate(ctx context.Context, req GenerateRequest) []CovenantAlert
	// PersistNew writes alerts, skipping any whose (config, type) pair
	// already has an active alert. Returns the alerts actually stored.
	PersistNew(ctx context.Context, alerts []CovenantAlert) ([]CovenantAlert, error)
	// RestoreCompliance resolves the active breach-side alerts for a
	// covenant that tests compliant again and raises a
	// COMPLIANCE_RESTORED alert when any were resolved.
	RestoreCompliance(ctx context.Context, result resultdomain.CovenantTestResult) (*CovenantAlert, error)

	List(context.Context, ListAlertRequest) (ListAlertResponse, error)
	Acknowledge(context.Context, AcknowledgeRequest) (CovenantAlert, error)
	Resolve(context.Context, ResolveRequest) (CovenantAlert, error)
	Stats(context.Context, StatsRequest) (AlertStats, error)

	UpsertConfig(context.Context, UpsertAlertConfigRequest) (CovenantAlertConfig, error)
	ConfigFor(ctx context.Context, covenantConfigID string) (CovenantAlertConfig, error)
	ListConfigsByCompany(ctx context.Context, companyID snowflake.ID) ([]CovenantAlertConfig, error)
}

var (
	ErrInvalidCompany = errors.New("invalid_company")
	ErrInvalidID      = errors.New("invalid_id")
	ErrInvalidUser    = errors.New("invalid_user")
	ErrAlertNotFound  = errors.New("alert_not_found")
	ErrConfigNotFound = errors.New("alert_config_not_found")
)
