package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// AuditEntry records one noteworthy action: an evaluation run, an alert
// being raised, a notification delivery outcome.
type AuditEntry struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	CompanyID  snowflake.ID      `gorm:"index" json:"company_id,omitempty"`
	Actor      string            `gorm:"not null" json:"actor"`
	Action     string            `gorm:"not null;index" json:"action"`
	EntityType string            `gorm:"not null" json:"entity_type"`
	EntityID   string            `gorm:"not null" json:"entity_id"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt  time.Time         `gorm:"not null;index" json:"created_at"`
}

func (AuditEntry) TableName() string { return "audit_entries" }
