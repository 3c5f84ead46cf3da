package ledger

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradeengine/src/database"
	"tradeengine/src/model"
)

// Ledger is the single shared mutable resource of the engine: one available
// balance per settlement asset. Reserve debits atomically and reports whether
// the funds were there; Credit adds settlement payouts back.
type Ledger interface {
	Available(ctx context.Context, asset string) (decimal.Decimal, error)
	Reserve(ctx context.Context, asset string, amount decimal.Decimal) (bool, error)
	Credit(ctx context.Context, asset string, amount decimal.Decimal) error
}

// WalletLedger implements Ledger on top of the wallets table. Every mutation
// serializes through one mutex and runs inside a transaction, so a
// reservation is never observed half-applied.
type WalletLedger struct {
	db *gorm.DB
	mu sync.Mutex
}

// NewWalletLedger creates a ledger over the main database.
func NewWalletLedger() *WalletLedger {
	return &WalletLedger{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (l *WalletLedger) WithDB(db *gorm.DB) *WalletLedger {
	return &WalletLedger{db: db}
}

// Seed creates the wallet row with an opening balance if it does not exist
// yet. Existing balances are left untouched.
func (l *WalletLedger) Seed(ctx context.Context, asset string, opening decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	wallet := model.Wallet{Asset: asset, Available: opening, UpdatedAt: time.Now()}

	err := l.db.WithContext(ctx).
		Where("asset = ?", asset).
		FirstOrCreate(&wallet).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"component": "WalletLedger",
			"op":        "Seed",
			"asset":     asset,
		}).WithError(err).Error("Failed to seed wallet")
		return err
	}

	return nil
}

// Available returns the current available balance for the asset. A missing
// wallet reads as zero.
func (l *WalletLedger) Available(ctx context.Context, asset string) (decimal.Decimal, error) {
	var wallet model.Wallet

	err := l.db.WithContext(ctx).Where("asset = ?", asset).First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}

	return wallet.Available, nil
}

// Reserve debits the amount if, and only if, the available balance covers it.
// The read and the write happen under the ledger mutex inside one
// transaction, so two concurrent reservations cannot both succeed on the same
// funds.
func (l *WalletLedger) Reserve(ctx context.Context, asset string, amount decimal.Decimal) (bool, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return false, errors.New("reserve amount must be positive")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	reserved := false
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var wallet model.Wallet
		if err := tx.Where("asset = ?", asset).First(&wallet).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil // no wallet, nothing to reserve from
			}
			return err
		}

		if wallet.Available.LessThan(amount) {
			return nil
		}

		if err := tx.Model(&model.Wallet{}).
			Where("asset = ?", asset).
			Updates(map[string]interface{}{
				"available":  wallet.Available.Sub(amount),
				"updated_at": time.Now(),
			}).Error; err != nil {
			return err
		}

		reserved = true
		return nil
	})
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"component": "WalletLedger",
			"op":        "Reserve",
			"asset":     asset,
			"amount":    amount.String(),
		}).WithError(err).Error("Failed to reserve funds")
		return false, err
	}

	return reserved, nil
}

// Credit adds a settlement payout back to the wallet.
func (l *WalletLedger) Credit(ctx context.Context, asset string, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var wallet model.Wallet
		if err := tx.Where("asset = ?", asset).First(&wallet).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				wallet = model.Wallet{Asset: asset, Available: decimal.Zero}
				if err := tx.Create(&wallet).Error; err != nil {
					return err
				}
			} else {
				return err
			}
		}

		return tx.Model(&model.Wallet{}).
			Where("asset = ?", asset).
			Updates(map[string]interface{}{
				"available":  wallet.Available.Add(amount),
				"updated_at": time.Now(),
			}).Error
	})
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"component": "WalletLedger",
			"op":        "Credit",
			"asset":     asset,
			"amount":    amount.String(),
		}).WithError(err).Error("Failed to credit funds")
		return err
	}

	return nil
}
