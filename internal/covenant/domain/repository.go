package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/covena/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListCovenantConfigFilter struct {
	CompanyID  snowflake.ID
	ActiveOnly bool
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, config *CovenantConfig) error
	Update(ctx context.Context, db *gorm.DB, config *CovenantConfig) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*CovenantConfig, error)
	List(ctx context.Context, db *gorm.DB, filter ListCovenantConfigFilter, page pagination.Pagination) ([]*CovenantConfig, error)
	ListActiveByCompany(ctx context.Context, db *gorm.DB, companyID snowflake.ID) ([]CovenantConfig, error)
}
