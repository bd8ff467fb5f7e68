// internal/db/models.go
package db

import (
	"time"
)

type User struct {
	ID           int64  `gorm:"primaryKey"`
	Username     string `gorm:"size:64;uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Wallets      []Wallet `gorm:"constraint:OnDelete:CASCADE"`
}

type Wallet struct {
	ID     int64 `gorm:"primaryKey"`
	UserID int64 `gorm:"index;not null"`
	// Address is the 0x-prefixed hex account address, unique system-wide.
	Address string `gorm:"size:42;uniqueIndex;not null"`
	// EncryptedKey holds the keybox token (salt, nonce, ciphertext and tag),
	// opaque to everything but the keybox.
	EncryptedKey string `gorm:"not null"`
	Network      string `gorm:"size:32;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Transactions []Transaction `gorm:"constraint:OnDelete:CASCADE"`
}

const (
	TxStatusPending   = "pending"
	TxStatusConfirmed = "confirmed"
	TxStatusFailed    = "failed"
)

// Transaction mirrors one on-chain transaction touching a custodied wallet.
// Monetary fields are decimal strings, never floats.
type Transaction struct {
	ID          int64  `gorm:"primaryKey"`
	WalletID    int64  `gorm:"index;not null"`
	TxHash      string `gorm:"size:66;uniqueIndex;not null"`
	FromAddress string `gorm:"size:42;index;not null"`
	ToAddress   string `gorm:"size:42;index;not null"`
	Amount      string `gorm:"not null"`
	GasPrice    *string
	GasUsed     *string
	Status      string `gorm:"size:16;not null;default:pending"`
	BlockNumber *int64
	ChainTime   *time.Time
	CreatedAt   time.Time
}
