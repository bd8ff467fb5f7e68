// internal/wallet/store.go
package wallet

import (
	"context"
	"time"

	"github.com/uracles/mini-wallet-application/internal/db"
	"github.com/uracles/mini-wallet-application/pkg/ethutils"
)

// WalletStore and TransactionStore are the persistence slices the
// orchestrator depends on. The gorm repositories satisfy them; tests
// substitute in-memory fakes.
type WalletStore interface {
	CreateWallet(ctx context.Context, wallet *db.Wallet) error
	FindByIDAndOwner(ctx context.Context, id, userID int64) (*db.Wallet, error)
	ListByOwner(ctx context.Context, userID int64) ([]db.Wallet, error)
	CountByOwner(ctx context.Context, userID int64) (int64, error)
}

type TransactionStore interface {
	CreateTransaction(ctx context.Context, tx *db.Transaction) (*db.Transaction, error)
	FindByHashAndOwner(ctx context.Context, hash string, userID int64) (*db.Transaction, error)
	ListByWallet(ctx context.Context, walletID int64, limit, offset int) ([]db.Transaction, error)
	CountByWallet(ctx context.Context, walletID int64) (int64, error)
	MarkFinal(ctx context.Context, hash, status string, gasUsed *string, blockNumber *int64, chainTime *time.Time) error
}

// ChainGateway abstracts the node provider and explorer behind the
// canonical types, so the orchestrator never sees raw chain objects.
type ChainGateway interface {
	CreateWallet(ctx context.Context) (*ethutils.NewWallet, error)
	GetBalance(ctx context.Context, address string) (*ethutils.Balance, error)
	SendTransaction(ctx context.Context, privateKey, toAddress, amountEther string) (*ethutils.Sent, error)
	GetTransaction(ctx context.Context, hash string) (*ethutils.Detail, error)
	WaitForConfirmation(ctx context.Context, hash string, confirmations uint64) error
	GetTransactionHistory(ctx context.Context, address string, limit int) ([]ethutils.Summary, error)
}

var (
	_ WalletStore      = (*db.WalletRepo)(nil)
	_ TransactionStore = (*db.TransactionRepo)(nil)
)
