package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradeengine/src/database"
	"tradeengine/src/model"
)

// PositionRepository handles read/write operations for positions. Every
// status transition goes through a compare-and-set UPDATE keyed on the
// current status, so a position can leave the open state exactly once even
// when the scheduler and an admin call race.
type PositionRepository struct {
	db *gorm.DB
}

// NewPositionRepository creates a new repository instance using the main
// read/write database.
func NewPositionRepository() *PositionRepository {
	return &PositionRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *PositionRepository) WithDB(db *gorm.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

// Create inserts a new position.
func (r *PositionRepository) Create(ctx context.Context, position *model.Position) error {
	logger.WithFields(map[string]interface{}{
		"repo":       "PositionRepository",
		"op":         "Create",
		"symbol":     position.Symbol,
		"instrument": position.InstrumentType,
		"status":     position.Status,
	}).Debug("Creating new position")

	if err := r.db.WithContext(ctx).Create(position).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "PositionRepository",
			"op":   "Create",
		}).WithError(err).Error("Failed to create position")
		return err
	}

	return nil
}

// FindByID fetches a single position by ID.
// Returns (nil, nil) if the position is not found.
func (r *PositionRepository) FindByID(ctx context.Context, id string) (*model.Position, error) {
	var position model.Position

	err := r.db.WithContext(ctx).Where("id = ?", id).First(&position).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.WithFields(map[string]interface{}{
			"repo": "PositionRepository",
			"op":   "FindByID",
			"id":   id,
		}).WithError(err).Error("Failed to fetch position by ID")
		return nil, err
	}

	return &position, nil
}

// FindNonTerminal returns every position the scheduler still has to look at:
// pending orders, open positions and positions stuck mid-settlement.
func (r *PositionRepository) FindNonTerminal(ctx context.Context) ([]model.Position, error) {
	var positions []model.Position

	err := r.db.WithContext(ctx).
		Where("status IN ?", []string{
			model.PositionStatusPendingOrder,
			model.PositionStatusOpen,
			model.PositionStatusSettling,
		}).
		Order("opened_at ASC").
		Find(&positions).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "PositionRepository",
			"op":   "FindNonTerminal",
		}).WithError(err).Error("Failed to fetch non-terminal positions")
		return nil, err
	}

	return positions, nil
}

// FindOpen returns all positions with status open.
func (r *PositionRepository) FindOpen(ctx context.Context) ([]model.Position, error) {
	var positions []model.Position

	err := r.db.WithContext(ctx).
		Where("status = ?", model.PositionStatusOpen).
		Order("opened_at ASC").
		Find(&positions).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "PositionRepository",
			"op":   "FindOpen",
		}).WithError(err).Error("Failed to fetch open positions")
		return nil, err
	}

	return positions, nil
}

// PositionSearchOptions filters the history listing.
type PositionSearchOptions struct {
	InstrumentType string
	Status         string
	Symbol         string
	Limit          int
	Offset         int
}

// Search returns positions matching the given filters, newest first.
func (r *PositionRepository) Search(ctx context.Context, options PositionSearchOptions) ([]model.Position, error) {
	query := r.db.WithContext(ctx).Model(&model.Position{})

	if options.InstrumentType != "" {
		query = query.Where("instrument_type = ?", options.InstrumentType)
	}
	if options.Status != "" {
		query = query.Where("status = ?", options.Status)
	}
	if options.Symbol != "" {
		query = query.Where("symbol = ?", options.Symbol)
	}

	query = query.Order("created_at DESC, id DESC")
	if options.Limit > 0 {
		query = query.Limit(options.Limit)
	}
	if options.Offset > 0 {
		query = query.Offset(options.Offset)
	}

	var positions []model.Position
	if err := query.Find(&positions).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "PositionRepository",
			"op":   "Search",
		}).WithError(err).Error("Failed to search positions")
		return nil, err
	}

	return positions, nil
}

// MarkOpen promotes a triggered pending order to an open position. The
// reservation happens at trigger time, so entry price, reserved funds and the
// expiry window are all written here. Returns false if the order was no
// longer pending.
func (r *PositionRepository) MarkOpen(
	ctx context.Context,
	id string,
	entryPrice decimal.Decimal,
	reservedFunds decimal.Decimal,
	profitPct decimal.Decimal,
	openedAt time.Time,
	expiresAt *time.Time,
) (bool, error) {

	result := r.db.WithContext(ctx).
		Model(&model.Position{}).
		Where("id = ? AND status = ?", id, model.PositionStatusPendingOrder).
		Updates(map[string]interface{}{
			"status":         model.PositionStatusOpen,
			"entry_price":    entryPrice,
			"reserved_funds": reservedFunds,
			"profit_pct":     profitPct,
			"opened_at":      openedAt,
			"expires_at":     expiresAt,
		})
	if result.Error != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "PositionRepository",
			"op":   "MarkOpen",
			"id":   id,
		}).WithError(result.Error).Error("Failed to open pending order")
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

// Claim moves an open position into the settling state so no other
// evaluation can consume it. Returns false if the position was not open.
func (r *PositionRepository) Claim(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Position{}).
		Where("id = ? AND status = ?", id, model.PositionStatusOpen).
		Update("status", model.PositionStatusSettling)
	if result.Error != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "PositionRepository",
			"op":   "Claim",
			"id":   id,
		}).WithError(result.Error).Error("Failed to claim position for settlement")
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

// Release puts a claimed position back into the open state, e.g. when the
// price needed to settle it could not be obtained this tick.
func (r *PositionRepository) Release(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Position{}).
		Where("id = ? AND status = ?", id, model.PositionStatusSettling).
		Update("status", model.PositionStatusOpen)
	if result.Error != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "PositionRepository",
			"op":   "Release",
			"id":   id,
		}).WithError(result.Error).Error("Failed to release claimed position")
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

// TerminalUpdate carries the fields written when a position settles.
type TerminalUpdate struct {
	Status     string
	ExitPrice  decimal.NullDecimal
	Payout     decimal.NullDecimal
	ExitReason string
	SettledAt  time.Time
}

// MarkTerminal commits the final state of a claimed position. The update is a
// single compare-and-set keyed on the settling status; a position that is
// already terminal is never touched. Returns false when the CAS lost.
func (r *PositionRepository) MarkTerminal(ctx context.Context, id string, update TerminalUpdate) (bool, error) {
	logger.WithFields(map[string]interface{}{
		"repo":   "PositionRepository",
		"op":     "MarkTerminal",
		"id":     id,
		"status": update.Status,
		"reason": update.ExitReason,
	}).Debug("Marking position terminal")

	result := r.db.WithContext(ctx).
		Model(&model.Position{}).
		Where("id = ? AND status = ?", id, model.PositionStatusSettling).
		Updates(map[string]interface{}{
			"status":      update.Status,
			"exit_price":  update.ExitPrice,
			"payout":      update.Payout,
			"exit_reason": update.ExitReason,
			"settled_at":  update.SettledAt,
		})
	if result.Error != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "PositionRepository",
			"op":   "MarkTerminal",
			"id":   id,
		}).WithError(result.Error).Error("Failed to mark position terminal")
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

// Cancel terminates an untriggered pending order. No funds were reserved for
// it, so this is a pure status flip. Returns false if the order already
// opened or settled.
func (r *PositionRepository) Cancel(ctx context.Context, id string, cancelledAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Position{}).
		Where("id = ? AND status = ?", id, model.PositionStatusPendingOrder).
		Updates(map[string]interface{}{
			"status":      model.PositionStatusCancelled,
			"exit_reason": model.ExitReasonCancelled,
			"settled_at":  cancelledAt,
		})
	if result.Error != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "PositionRepository",
			"op":   "Cancel",
			"id":   id,
		}).WithError(result.Error).Error("Failed to cancel pending order")
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

// PruneTerminalBefore deletes terminal positions settled before the cutoff.
// Open and pending positions are never pruned.
func (r *PositionRepository) PruneTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status IN ? AND settled_at < ?", []string{
			model.PositionStatusWon,
			model.PositionStatusLost,
			model.PositionStatusCancelled,
			model.PositionStatusAdminOverridden,
		}, cutoff).
		Delete(&model.Position{})
	if result.Error != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "PositionRepository",
			"op":   "PruneTerminalBefore",
		}).WithError(result.Error).Error("Failed to prune settled positions")
		return 0, result.Error
	}

	if result.RowsAffected > 0 {
		logger.WithFields(map[string]interface{}{
			"repo":        "PositionRepository",
			"op":          "PruneTerminalBefore",
			"rows_pruned": result.RowsAffected,
		}).Info("Settled positions pruned")
	}

	return result.RowsAffected, nil
}

// Statistics aggregates win/loss counts and net profit over settled
// positions. The aggregation runs in Go on decimals to avoid driver float
// rounding.
type Statistics struct {
	Wins      int             `json:"wins"`
	Losses    int             `json:"losses"`
	NetProfit decimal.Decimal `json:"net_profit"`
}

// AggregateStatistics computes statistics, optionally filtered by instrument
// type. Cancelled positions never held funds to completion and are excluded.
func (r *PositionRepository) AggregateStatistics(ctx context.Context, instrumentType string) (Statistics, error) {
	query := r.db.WithContext(ctx).
		Where("status IN ?", []string{
			model.PositionStatusWon,
			model.PositionStatusLost,
			model.PositionStatusAdminOverridden,
		})
	if instrumentType != "" {
		query = query.Where("instrument_type = ?", instrumentType)
	}

	var positions []model.Position
	if err := query.Find(&positions).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "PositionRepository",
			"op":   "AggregateStatistics",
		}).WithError(err).Error("Failed to load settled positions")
		return Statistics{}, err
	}

	stats := Statistics{NetProfit: decimal.Zero}
	for i := range positions {
		position := positions[i]

		payout := decimal.Zero
		if position.Payout.Valid {
			payout = position.Payout.Decimal
		}
		stats.NetProfit = stats.NetProfit.Add(payout.Sub(position.ReservedFunds))

		switch position.Status {
		case model.PositionStatusWon:
			stats.Wins++
		case model.PositionStatusLost:
			stats.Losses++
		default:
			// Admin overrides carry no won/lost status; the payout decides.
			if payout.GreaterThan(decimal.Zero) {
				stats.Wins++
			} else {
				stats.Losses++
			}
		}
	}

	return stats, nil
}
