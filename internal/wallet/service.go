// internal/wallet/service.go

// Package wallet ties persistence, the keybox and the chain gateway
// together: wallet custody, balance lookups, fund transfers and history
// synchronization.
package wallet

import (
	"context"

	"go.uber.org/zap"

	"github.com/uracles/mini-wallet-application/internal/db"
	"github.com/uracles/mini-wallet-application/internal/logging"
	"github.com/uracles/mini-wallet-application/pkg/ethutils"
)

const (
	// One confirmation is enough to settle a transfer's final status.
	reconcileConfirmations = 1

	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

type Service struct {
	wallets WalletStore
	txs     TransactionStore
	chain   ChainGateway
	keybox  *Keybox
	network string
}

func NewService(wallets WalletStore, txs TransactionStore, chain ChainGateway, keybox *Keybox, network string) *Service {
	return &Service{
		wallets: wallets,
		txs:     txs,
		chain:   chain,
		keybox:  keybox,
		network: network,
	}
}

// CreateWallet generates a key pair, encrypts the private key and persists
// the wallet. The mnemonic is returned exactly once and is never stored.
func (s *Service) CreateWallet(ctx context.Context, userID int64, network string) (*db.Wallet, string, error) {
	if network == "" {
		network = s.network
	}

	generated, err := s.chain.CreateWallet(ctx)
	if err != nil {
		return nil, "", err
	}

	encrypted, err := s.keybox.Encrypt(generated.PrivateKey)
	if err != nil {
		return nil, "", err
	}

	wallet := &db.Wallet{
		UserID:       userID,
		Address:      generated.Address,
		EncryptedKey: encrypted,
		Network:      network,
	}
	if err := s.wallets.CreateWallet(ctx, wallet); err != nil {
		return nil, "", err
	}

	logging.Info("wallet created",
		zap.Int64("userId", userID),
		zap.Int64("walletId", wallet.ID),
		zap.String("address", wallet.Address),
		zap.String("network", network))
	return wallet, generated.Mnemonic, nil
}

func (s *Service) GetWallet(ctx context.Context, userID, walletID int64) (*db.Wallet, error) {
	return s.wallets.FindByIDAndOwner(ctx, walletID, userID)
}

func (s *Service) ListWallets(ctx context.Context, userID int64) ([]db.Wallet, error) {
	return s.wallets.ListByOwner(ctx, userID)
}

func (s *Service) GetBalance(ctx context.Context, userID, walletID int64) (*ethutils.Balance, error) {
	wallet, err := s.wallets.FindByIDAndOwner(ctx, walletID, userID)
	if err != nil {
		return nil, err
	}
	return s.chain.GetBalance(ctx, wallet.Address)
}

// SendFunds decrypts the wallet key, broadcasts the transfer and records a
// pending transaction row. Reconciliation of the final status happens in a
// detached background task; the caller gets the pending row immediately.
func (s *Service) SendFunds(ctx context.Context, userID, walletID int64, toAddress, amount string) (*db.Transaction, error) {
	wallet, err := s.wallets.FindByIDAndOwner(ctx, walletID, userID)
	if err != nil {
		return nil, err
	}

	privateKey, err := s.keybox.Decrypt(wallet.EncryptedKey)
	if err != nil {
		return nil, err
	}

	sent, err := s.chain.SendTransaction(ctx, privateKey, toAddress, amount)
	if err != nil {
		return nil, err
	}

	gasPrice := sent.MaxFeePerGas
	row := &db.Transaction{
		WalletID:    wallet.ID,
		TxHash:      sent.Hash,
		FromAddress: sent.From,
		ToAddress:   sent.To,
		Amount:      sent.Amount,
		GasPrice:    &gasPrice,
		Status:      db.TxStatusPending,
	}

	saved, err := s.txs.CreateTransaction(ctx, row)
	if err != nil {
		return nil, err
	}

	go s.reconcile(sent.Hash)

	return saved, nil
}

// reconcile waits for one confirmation and writes the terminal status back
// to the row. Best effort only: failures are logged and the row stays
// pending. A process restart mid-wait leaves the transaction pending
// forever.
func (s *Service) reconcile(hash string) {
	ctx := context.Background()
	logger := logging.With(zap.String("hash", hash))

	if err := s.chain.WaitForConfirmation(ctx, hash, reconcileConfirmations); err != nil {
		logger.Warn("reconciliation wait failed", zap.Error(err))
		return
	}

	detail, err := s.chain.GetTransaction(ctx, hash)
	if err != nil {
		logger.Warn("reconciliation lookup failed", zap.Error(err))
		return
	}
	if detail == nil || detail.Status == db.TxStatusPending {
		logger.Warn("transaction still unsettled after confirmation wait")
		return
	}

	if err := s.txs.MarkFinal(ctx, hash, detail.Status, detail.GasUsed, detail.BlockNumber, detail.ChainTime); err != nil {
		logger.Error("failed to record final transaction status", zap.Error(err))
		return
	}

	logger.Info("transaction reconciled", zap.String("status", detail.Status))
}

// HistoryPage is one page of a wallet's transaction history. Limit and
// Offset are the values actually applied after clamping.
type HistoryPage struct {
	Items  []db.Transaction
	Total  int64
	Limit  int
	Offset int
}

// GetTransactionHistory opportunistically pulls fresh history from the
// chain gateway into persistence, then always serves the page from
// persistence. When the pull fails the local page may lag the chain.
func (s *Service) GetTransactionHistory(ctx context.Context, userID, walletID int64, limit, offset int) (*HistoryPage, error) {
	wallet, err := s.wallets.FindByIDAndOwner(ctx, walletID, userID)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}

	s.syncHistory(ctx, wallet)

	txs, err := s.txs.ListByWallet(ctx, wallet.ID, limit, offset)
	if err != nil {
		return nil, err
	}
	total, err := s.txs.CountByWallet(ctx, wallet.ID)
	if err != nil {
		return nil, err
	}
	return &HistoryPage{Items: txs, Total: total, Limit: limit, Offset: offset}, nil
}

func (s *Service) syncHistory(ctx context.Context, wallet *db.Wallet) {
	summaries, err := s.chain.GetTransactionHistory(ctx, wallet.Address, maxHistoryLimit)
	if err != nil {
		logging.Warn("history pull failed", zap.Int64("walletId", wallet.ID), zap.Error(err))
		return
	}

	for _, summary := range summaries {
		row := &db.Transaction{
			WalletID:    wallet.ID,
			TxHash:      summary.Hash,
			FromAddress: summary.From,
			ToAddress:   summary.To,
			Amount:      summary.Amount,
			GasPrice:    summary.GasPrice,
			GasUsed:     summary.GasUsed,
			Status:      summary.Status,
			BlockNumber: summary.BlockNumber,
			ChainTime:   summary.ChainTime,
		}
		// Duplicate hashes resolve to the existing rows, everything else is
		// logged and skipped so one bad entry cannot sink the page.
		saved, err := s.txs.CreateTransaction(ctx, row)
		if err != nil {
			logging.Warn("history upsert failed",
				zap.Int64("walletId", wallet.ID),
				zap.String("hash", summary.Hash),
				zap.Error(err))
			continue
		}

		// A row still pending here lost its reconciliation goroutine to a
		// restart; the chain-reported terminal status settles it now.
		if saved.Status != db.TxStatusPending || summary.Status == db.TxStatusPending {
			continue
		}
		if err := s.txs.MarkFinal(ctx, summary.Hash, summary.Status, summary.GasUsed, summary.BlockNumber, summary.ChainTime); err != nil {
			logging.Warn("history settle failed",
				zap.Int64("walletId", wallet.ID),
				zap.String("hash", summary.Hash),
				zap.Error(err))
		}
	}
}

// GetTransaction resolves a transaction by hash, scoped through wallet
// ownership. Persistence only, the chain is not consulted.
func (s *Service) GetTransaction(ctx context.Context, userID int64, hash string) (*db.Transaction, error) {
	return s.txs.FindByHashAndOwner(ctx, hash, userID)
}

// Compile-time check that the real gateway satisfies the interface.
var _ ChainGateway = (*ethutils.Client)(nil)
