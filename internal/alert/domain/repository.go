package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/covena/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListAlertFilter struct {
	CompanyID  snowflake.ID
	ActiveOnly bool
}

type Repository interface {
	// InsertNew persists alerts that do not already have an active
	// alert for the same (covenant config, alert type) pair; the rest
	// are dropped. Returns the alerts actually inserted.
	InsertNew(ctx context.Context, db *gorm.DB, alerts []CovenantAlert) ([]CovenantAlert, error)
	FindByID(ctx context.Context, db *gorm.DB, id string) (*CovenantAlert, error)
	List(ctx context.Context, db *gorm.DB, filter ListAlertFilter, page pagination.Pagination) ([]*CovenantAlert, error)
	ListByCompany(ctx context.Context, db *gorm.DB, companyID snowflake.ID) ([]CovenantAlert, error)
	MarkAcknowledged(ctx context.Context, db *gorm.DB, id, userID string, at time.Time) error
	MarkResolved(ctx context.Context, db *gorm.DB, id string, at time.Time) error
	// ResolveActiveByType resolves every active alert of the given
	// types for one covenant config. Used when compliance is restored.
	ResolveActiveByType(ctx context.Context, db *gorm.DB, configID snowflake.ID, types []AlertType, at time.Time) (int64, error)
	HasActiveOfType(ctx context.Context, db *gorm.DB, configID snowflake.ID, alertType AlertType) (bool, error)
}

type ConfigRepository interface {
	Upsert(ctx context.Context, db *gorm.DB, config *CovenantAlertConfig) error
	FindByCovenantConfig(ctx context.Context, db *gorm.DB, covenantConfigID snowflake.ID) (*CovenantAlertConfig, error)
	ListByCompany(ctx context.Context, db *gorm.DB, companyID snowflake.ID) ([]CovenantAlertConfig, error)
	ListActive(ctx context.Context, db *gorm.DB, covenantConfigIDs []snowflake.ID) ([]CovenantAlertConfig, error)
}
