package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type RecordRequest struct {
	CompanyID  snowflake.ID
	Actor      string
	Action     string
	EntityType string
	EntityID   string
	Metadata   datatypes.JSONMap
}

type ListRequest struct {
	CompanyID snowflake.ID
	Action    string
	Limit     int
}

// Recorder appends to the audit trail. Recording failures are logged
// and swallowed; an audit miss never aborts the action it describes.
type Recorder interface {
	Record(ctx context.Context, req RecordRequest)
	List(ctx context.Context, req ListRequest) ([]AuditEntry, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditEntry) error
	List(ctx context.Context, db *gorm.DB, filter ListRequest) ([]AuditEntry, error)
}
