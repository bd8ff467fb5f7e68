// internal/db/transactions.go
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/uracles/mini-wallet-application/internal/apperr"
)

type TransactionRepo struct {
	db *gorm.DB
}

func NewTransactionRepo(db *gorm.DB) *TransactionRepo {
	return &TransactionRepo{db: db}
}

// CreateTransaction inserts tx. When a row with the same hash already exists
// the existing row is returned instead of an error; broadcast retries and
// history syncs hit this path.
func (r *TransactionRepo) CreateTransaction(ctx context.Context, tx *Transaction) (*Transaction, error) {
	if err := r.db.WithContext(ctx).Create(tx).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return r.findByHash(ctx, tx.TxHash)
		}
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return tx, nil
}

func (r *TransactionRepo) findByHash(ctx context.Context, hash string) (*Transaction, error) {
	var tx Transaction
	if err := r.db.WithContext(ctx).Where("tx_hash = ?", hash).First(&tx).Error; err != nil {
		return nil, fmt.Errorf("failed to find transaction by hash: %w", err)
	}
	return &tx, nil
}

// FindByHashAndOwner resolves a transaction through its wallet so callers
// can only see transactions on wallets they own.
func (r *TransactionRepo) FindByHashAndOwner(ctx context.Context, hash string, userID int64) (*Transaction, error) {
	var tx Transaction
	err := r.db.WithContext(ctx).
		Joins("JOIN wallets ON wallets.id = transactions.wallet_id").
		Where("transactions.tx_hash = ? AND wallets.user_id = ?", hash, userID).
		First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.CodeNotFound, "transaction not found")
		}
		return nil, fmt.Errorf("failed to find transaction: %w", err)
	}
	return &tx, nil
}

func (r *TransactionRepo) ListByWallet(ctx context.Context, walletID int64, limit, offset int) ([]Transaction, error) {
	var txs []Transaction
	err := r.db.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, nil
}

func (r *TransactionRepo) CountByWallet(ctx context.Context, walletID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&Transaction{}).
		Where("wallet_id = ?", walletID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

// MarkFinal moves a pending transaction to its terminal status and records
// the chain facts. Rows already confirmed or failed are left untouched, so
// status never moves backward.
func (r *TransactionRepo) MarkFinal(ctx context.Context, hash, status string, gasUsed *string, blockNumber *int64, chainTime *time.Time) error {
	if status != TxStatusConfirmed && status != TxStatusFailed {
		return apperr.Newf(apperr.CodeValidation, "invalid terminal status %q", status)
	}

	updates := map[string]interface{}{"status": status}
	if gasUsed != nil {
		updates["gas_used"] = *gasUsed
	}
	if blockNumber != nil {
		updates["block_number"] = *blockNumber
	}
	if chainTime != nil {
		updates["chain_time"] = *chainTime
	}

	err := r.db.WithContext(ctx).
		Model(&Transaction{}).
		Where("tx_hash = ? AND status = ?", hash, TxStatusPending).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to update transaction status: %w", err)
	}
	return nil
}
