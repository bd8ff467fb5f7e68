// internal/db/wallets.go
package db

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/uracles/mini-wallet-application/internal/apperr"
)

type WalletRepo struct {
	db *gorm.DB
}

func NewWalletRepo(db *gorm.DB) *WalletRepo {
	return &WalletRepo{db: db}
}

func (r *WalletRepo) CreateWallet(ctx context.Context, wallet *Wallet) error {
	if err := r.db.WithContext(ctx).Create(wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.Newf(apperr.CodeConflict, "wallet address %s already exists", wallet.Address)
		}
		return fmt.Errorf("failed to create wallet: %w", err)
	}
	return nil
}

// FindByIDAndOwner loads a wallet only when it belongs to userID. A wallet
// owned by someone else is indistinguishable from a missing one.
func (r *WalletRepo) FindByIDAndOwner(ctx context.Context, id, userID int64) (*Wallet, error) {
	var wallet Wallet
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.CodeNotFound, "wallet not found")
		}
		return nil, fmt.Errorf("failed to find wallet: %w", err)
	}
	return &wallet, nil
}

func (r *WalletRepo) FindByAddress(ctx context.Context, address string) (*Wallet, error) {
	var wallet Wallet
	err := r.db.WithContext(ctx).Where("address = ?", address).First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.CodeNotFound, "wallet not found")
		}
		return nil, fmt.Errorf("failed to find wallet by address: %w", err)
	}
	return &wallet, nil
}

func (r *WalletRepo) ListByOwner(ctx context.Context, userID int64) ([]Wallet, error) {
	var wallets []Wallet
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&wallets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	return wallets, nil
}

func (r *WalletRepo) ListByOwnerAndNetwork(ctx context.Context, userID int64, network string) ([]Wallet, error) {
	var wallets []Wallet
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND network = ?", userID, network).
		Order("created_at DESC").
		Find(&wallets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets by network: %w", err)
	}
	return wallets, nil
}

func (r *WalletRepo) CountByOwner(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&Wallet{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count wallets: %w", err)
	}
	return count, nil
}
