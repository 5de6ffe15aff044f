package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("test_result_not_found")

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, result *CovenantTestResult) error
	BatchInsert(ctx context.Context, db *gorm.DB, results []CovenantTestResult) error
	// ListRecent returns up to n results for one config, most recent
	// test date first. Trend analysis consumes this ordering directly.
	ListRecent(ctx context.Context, db *gorm.DB, configID snowflake.ID, n int) ([]CovenantTestResult, error)
	ListByCompany(ctx context.Context, db *gorm.DB, companyID snowflake.ID, since time.Time) ([]CovenantTestResult, error)
	// LatestPerConfig returns the most recent result for each of the
	// given configs.
	LatestPerConfig(ctx context.Context, db *gorm.DB, configIDs []snowflake.ID) (map[snowflake.ID]CovenantTestResult, error)
}
