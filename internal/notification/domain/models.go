package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Channel is a delivery mechanism for a notification intent.
type Channel string

const (
	ChannelEmail Channel = "EMAIL"
	ChannelInApp Channel = "IN_APP"
)

// IntentStatus is the outbox state of a notification intent.
type IntentStatus string

const (
	IntentPending IntentStatus = "PENDING"
	IntentSent    IntentStatus = "SENT"
	IntentFailed  IntentStatus = "FAILED"
)

// NotificationIntent is an outbox row: one consolidated message for
// one recipient on one channel, written in the same transaction scope
// as the alerts it covers and delivered asynchronously. A failed send
// marks the row for retry; it never rolls back alerts or results.
type NotificationIntent struct {
	ID        string       `gorm:"primaryKey" json:"id"`
	CompanyID snowflake.ID `gorm:"not null;index" json:"company_id"`
	Recipient string       `gorm:"not null" json:"recipient"`
	Channel   Channel      `gorm:"not null" json:"channel"`

	Subject  string                      `gorm:"not null" json:"subject"`
	Body     string                      `gorm:"not null" json:"body"`
	AlertIDs datatypes.JSONSlice[string] `gorm:"not null" json:"alert_ids"`

	Status    IntentStatus `gorm:"not null;default:'PENDING';index" json:"status"`
	Attempts  int          `gorm:"not null;default:0" json:"attempts"`
	LastError string       `gorm:"column:last_error" json:"last_error,omitempty"`

	CreatedAt time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null" json:"updated_at"`
	SentAt    *time.Time `gorm:"column:sent_at" json:"sent_at,omitempty"`
}

func (NotificationIntent) TableName() string { return "notification_intents" }

// InAppMessage is a delivered in-app notification.
type InAppMessage struct {
	ID        string       `gorm:"primaryKey" json:"id"`
	UserID    string       `gorm:"not null;index" json:"user_id"`
	CompanyID snowflake.ID `gorm:"not null" json:"company_id"`
	Title     string       `gorm:"not null" json:"title"`
	Body      string       `gorm:"not null" json:"body"`
	ReadAt    *time.Time   `gorm:"column:read_at" json:"read_at,omitempty"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

func (InAppMessage) TableName() string { return "in_app_messages" }
