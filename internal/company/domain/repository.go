package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/covena/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, company *Company) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Company, error)
	List(ctx context.Context, db *gorm.DB, filter ListCompanyFilter, page pagination.Pagination) ([]*Company, error)
	ListIDs(ctx context.Context, db *gorm.DB) ([]snowflake.ID, error)
}
