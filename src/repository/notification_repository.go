package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradeengine/src/database"
	"tradeengine/src/model"
)

// NotificationRepository persists emitted notifications so clients can poll
// for events they missed while disconnected.
type NotificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new repository instance using the main
// read/write database.
func NewNotificationRepository() *NotificationRepository {
	return &NotificationRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *NotificationRepository) WithDB(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create stores one notification.
func (r *NotificationRepository) Create(ctx context.Context, notification *model.Notification) error {
	if err := r.db.WithContext(ctx).Create(notification).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "NotificationRepository",
			"op":   "Create",
			"kind": notification.Kind,
		}).WithError(err).Error("Failed to create notification")
		return err
	}
	return nil
}

// FindLatest returns the newest notifications for a user.
func (r *NotificationRepository) FindLatest(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = 20
	}

	var notifications []model.Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&notifications).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "NotificationRepository",
			"op":      "FindLatest",
			"user_id": userID,
		}).WithError(err).Error("Failed to fetch notifications")
		return nil, err
	}

	return notifications, nil
}
