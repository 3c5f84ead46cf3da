package model

import "time"

const (
	NotificationTradePlaced         = "trade_placed"
	NotificationTradeWon            = "trade_won"
	NotificationTradeLost           = "trade_lost"
	NotificationInsufficientBalance = "insufficient_balance"
	NotificationStakeInitiated      = "stake_initiated"
	NotificationStakeCompleted      = "stake_completed"
	NotificationAdminOverride       = "admin_override"
)

// Notification is a user-visible event produced by the engine. Rows are kept
// so clients can poll missed events; live delivery goes through the websocket
// hub.
type Notification struct {
	ID         string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID     string         `gorm:"type:varchar(60);index" json:"user_id"`
	Kind       string         `gorm:"type:varchar(30);not null;index" json:"kind"`
	Title      string         `gorm:"size:200;not null" json:"title"`
	Message    string         `gorm:"size:1024;not null" json:"message"`
	PositionID string         `gorm:"type:varchar(36);index" json:"position_id,omitempty"`
	Payload    map[string]any `gorm:"serializer:json" json:"payload,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}
