package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, snapshot *RatioSnapshot) error
	FindLatest(ctx context.Context, db *gorm.DB, companyID snowflake.ID) (*RatioSnapshot, error)
}
