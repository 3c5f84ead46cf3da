package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tradeengine/src/database"
	"tradeengine/src/model"
)

// QuoteRepository stores the last reference price per symbol. Settlement
// after a restart uses these rows when the live source has not answered yet.
type QuoteRepository struct {
	db *gorm.DB
}

// NewQuoteRepository creates a new repository instance using the main
// read/write database.
func NewQuoteRepository() *QuoteRepository {
	return &QuoteRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *QuoteRepository) WithDB(db *gorm.DB) *QuoteRepository {
	return &QuoteRepository{db: db}
}

// Upsert writes the latest price for a symbol, replacing any previous row.
func (r *QuoteRepository) Upsert(ctx context.Context, symbol string, price decimal.Decimal, at time.Time) error {
	quote := model.Quote{Symbol: symbol, Price: price, UpdatedAt: at}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}},
		DoUpdates: clause.AssignmentColumns([]string{"price", "updated_at"}),
	}).Create(&quote).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "QuoteRepository",
			"op":     "Upsert",
			"symbol": symbol,
		}).WithError(err).Error("Failed to upsert quote")
		return err
	}

	return nil
}

// FindBySymbol fetches the stored quote for a symbol.
// Returns (nil, nil) if no price was ever stored.
func (r *QuoteRepository) FindBySymbol(ctx context.Context, symbol string) (*model.Quote, error) {
	var quote model.Quote

	err := r.db.WithContext(ctx).Where("symbol = ?", symbol).First(&quote).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.WithFields(map[string]interface{}{
			"repo":   "QuoteRepository",
			"op":     "FindBySymbol",
			"symbol": symbol,
		}).WithError(err).Error("Failed to fetch quote")
		return nil, err
	}

	return &quote, nil
}
