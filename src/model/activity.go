package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ActivityStatusPending   = "pending"
	ActivityStatusRunning   = "running"
	ActivityStatusCompleted = "completed"
	ActivityStatusFailed    = "failed"
)

// ActivityRecord is one line of the audit trail. The store keeps only the
// most recent entries per user; older rows are evicted oldest-first.
type ActivityRecord struct {
	ID          string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID      string          `gorm:"type:varchar(60);index" json:"user_id"`
	Category    string          `gorm:"type:varchar(30);not null" json:"category"`
	Action      string          `gorm:"type:varchar(30);not null" json:"action"`
	Description string          `gorm:"size:1024" json:"description"`
	Amount      decimal.Decimal `gorm:"type:double precision" json:"amount"`
	Symbol      string          `gorm:"type:varchar(50)" json:"symbol"`
	Status      string          `gorm:"type:varchar(20)" json:"status"`
	Meta        map[string]any  `gorm:"serializer:json" json:"meta,omitempty"`
	CreatedAt   time.Time       `gorm:"index" json:"created_at"`
}

func (ActivityRecord) TableName() string {
	return "activity_records"
}
