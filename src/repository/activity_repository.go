package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradeengine/src/database"
	"tradeengine/src/model"
)

// DefaultActivityCap is how many activity records are kept per user. The
// oldest entries are evicted first when the cap is exceeded.
const DefaultActivityCap = 20

// ActivityRepository handles the capped per-user activity feed.
type ActivityRepository struct {
	db  *gorm.DB
	cap int
}

// NewActivityRepository creates a new repository instance using the main
// read/write database.
func NewActivityRepository() *ActivityRepository {
	return &ActivityRepository{db: database.MainDB, cap: DefaultActivityCap}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *ActivityRepository) WithDB(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db, cap: r.cap}
}

// WithCap overrides the per-user retention cap.
func (r *ActivityRepository) WithCap(cap int) *ActivityRepository {
	if cap <= 0 {
		cap = DefaultActivityCap
	}
	return &ActivityRepository{db: r.db, cap: cap}
}

// Create appends an activity record and evicts the oldest rows beyond the
// per-user cap inside the same transaction.
func (r *ActivityRepository) Create(ctx context.Context, record *model.ActivityRecord) error {
	logger.WithFields(map[string]interface{}{
		"repo":     "ActivityRepository",
		"op":       "Create",
		"category": record.Category,
		"action":   record.Action,
	}).Debug("Appending activity record")

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(record).Error; err != nil {
			logger.WithError(err).Error("Failed to create activity record")
			return err
		}

		// FIFO eviction: keep only the newest `cap` rows for this user.
		err := tx.Exec(
			`DELETE FROM activity_records
			 WHERE user_id = ?
			   AND id NOT IN (
			     SELECT id FROM (
			       SELECT id FROM activity_records
			       WHERE user_id = ?
			       ORDER BY created_at DESC, id DESC
			       LIMIT ?
			     ) keep
			   )`,
			record.UserID, record.UserID, r.cap,
		).Error
		if err != nil {
			logger.WithError(err).Error("Failed to evict old activity records")
			return err
		}

		return nil
	})
}

// FindLatest returns the newest activity records for a user.
func (r *ActivityRepository) FindLatest(ctx context.Context, userID string, limit int) ([]model.ActivityRecord, error) {
	if limit <= 0 || limit > r.cap {
		limit = r.cap
	}

	var records []model.ActivityRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "ActivityRepository",
			"op":      "FindLatest",
			"user_id": userID,
		}).WithError(err).Error("Failed to fetch activity records")
		return nil, err
	}

	return records, nil
}

// FindByID fetches one activity record. Returns (nil, nil) if not found.
func (r *ActivityRepository) FindByID(ctx context.Context, id string) (*model.ActivityRecord, error) {
	var record model.ActivityRecord

	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &record, nil
}
