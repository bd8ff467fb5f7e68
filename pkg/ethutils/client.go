// pkg/ethutils/client.go

// Package ethutils is the gateway to the Ethereum network. It adapts the
// node provider and the block-explorer API into the canonical field types
// used by the rest of the application (addresses as 0x hex strings, all
// amounts as decimal strings) and persists nothing.
package ethutils

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/tyler-smith/go-bip39"
	"go.uber.org/zap"

	"github.com/uracles/mini-wallet-application/internal/apperr"
	"github.com/uracles/mini-wallet-application/internal/logging"
)

const (
	mnemonicEntropyBits = 128 // 12 words

	queryAttempts = 3
	queryDelay    = time.Second

	confirmationTimeout = 5 * time.Minute
	receiptPollInterval = 5 * time.Second
)

type Config struct {
	Network        string
	ChainID        int64
	RPCURL         string
	ExplorerAPIURL string
	ExplorerAPIKey string
}

type Client struct {
	eth      *ethclient.Client
	chainID  *big.Int
	network  string
	explorer *explorerClient
}

// NewWallet is the result of key generation. PrivateKey and Mnemonic exist
// only in memory; callers decide what survives.
type NewWallet struct {
	Address    string
	PrivateKey string
	Mnemonic   string
}

type Balance struct {
	Wei   string
	Ether string
}

// Sent describes a broadcast transaction. The hash is returned before any
// confirmation is observed.
type Sent struct {
	Hash         string
	From         string
	To           string
	Amount       string
	GasLimit     uint64
	MaxFeePerGas string
}

type Detail struct {
	Hash        string
	From        string
	To          string
	Amount      string
	Status      string
	GasUsed     *string
	BlockNumber *int64
	ChainTime   *time.Time
}

// Summary is one history entry as reported by the explorer or the degraded
// block scan.
type Summary struct {
	Hash        string
	From        string
	To          string
	Amount      string
	Status      string
	GasPrice    *string
	GasUsed     *string
	BlockNumber *int64
	ChainTime   *time.Time
}

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusFailed    = "failed"
)

func Dial(ctx context.Context, cfg Config) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeChainQuery, "failed to connect to node provider", err)
	}

	c := &Client{
		eth:     eth,
		chainID: big.NewInt(cfg.ChainID),
		network: cfg.Network,
	}
	if cfg.ExplorerAPIURL != "" {
		c.explorer = newExplorerClient(cfg.ExplorerAPIURL, cfg.ExplorerAPIKey)
	}

	logging.Info("chain gateway ready",
		zap.String("network", cfg.Network),
		zap.Int64("chainId", cfg.ChainID),
		zap.Bool("explorerConfigured", c.explorer != nil))
	return c, nil
}

func (c *Client) Close() {
	c.eth.Close()
}

// NewMnemonic generates a fresh 12-word bip39 mnemonic.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(mnemonicEntropyBits)
	if err != nil {
		return "", apperr.Wrap(apperr.CodeInternal, "failed to generate entropy", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", apperr.Wrap(apperr.CodeInternal, "failed to generate mnemonic", err)
	}
	return mnemonic, nil
}

// KeyFromMnemonic deterministically derives the account key from a
// mnemonic, so the same phrase always recovers the same address.
func KeyFromMnemonic(mnemonic string) (*NewWallet, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, apperr.New(apperr.CodeValidation, "invalid mnemonic")
	}

	seed := bip39.NewSeed(mnemonic, "")
	key, err := crypto.ToECDSA(seed[:32])
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "seed outside curve order", err)
	}

	return &NewWallet{
		Address:    crypto.PubkeyToAddress(key.PublicKey).Hex(),
		PrivateKey: hex.EncodeToString(crypto.FromECDSA(key)),
		Mnemonic:   mnemonic,
	}, nil
}

// CreateWallet generates a mnemonic and its key pair. The rare seed that
// falls outside the curve order is discarded and regenerated.
func (c *Client) CreateWallet(ctx context.Context) (*NewWallet, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, apperr.Wrap(apperr.CodeInternal, "wallet generation cancelled", ctx.Err())
		default:
		}

		mnemonic, err := NewMnemonic()
		if err != nil {
			return nil, err
		}

		w, err := KeyFromMnemonic(mnemonic)
		if err != nil {
			logging.Warn("regenerating wallet key", zap.Error(err))
			continue
		}

		logging.Info("wallet generated", zap.String("address", w.Address))
		return w, nil
	}
}

func (c *Client) GetBalance(ctx context.Context, address string) (*Balance, error) {
	if err := ValidateAddress(address); err != nil {
		return nil, err
	}

	var wei *big.Int
	err := retry.Do(
		func() error {
			var err error
			wei, err = c.eth.BalanceAt(ctx, common.HexToAddress(address), nil)
			return err
		},
		retry.Attempts(queryAttempts),
		retry.Delay(queryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			logging.Warn("balance query retry", zap.Uint("attempt", n), zap.Error(err))
		}),
	)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeChainQuery, "failed to get balance", err)
	}

	return &Balance{Wei: wei.String(), Ether: WeiToEther(wei)}, nil
}

// SendTransaction validates, funds-checks, prices, signs and broadcasts a
// transfer, returning as soon as the node accepts it. Confirmation is the
// caller's problem (see WaitForTransaction).
func (c *Client) SendTransaction(ctx context.Context, privateKey, toAddress, amountEther string) (*Sent, error) {
	if err := ValidateAddress(toAddress); err != nil {
		return nil, err
	}

	wei, err := EtherToWei(amountEther)
	if err != nil {
		return nil, err
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKey, "0x"))
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeDecryption, "invalid private key material", err)
	}
	from := crypto.PubkeyToAddress(key.PublicKey)
	to := common.HexToAddress(toAddress)

	balance, err := c.eth.BalanceAt(ctx, from, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeChainQuery, "failed to check sender balance", err)
	}
	if balance.Cmp(wei) < 0 {
		return nil, apperr.Newf(apperr.CodeInsufficientFunds,
			"balance %s wei is less than requested %s wei", balance.String(), wei.String())
	}

	nonce, err := c.eth.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeChainQuery, "failed to get nonce", err)
	}

	tipCap, err := c.eth.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeChainQuery, "failed to suggest gas tip", err)
	}
	head, err := c.eth.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeChainQuery, "failed to get chain head", err)
	}
	// feeCap = tip + 2*baseFee keeps the transaction marketable across a
	// couple of full blocks.
	feeCap := new(big.Int).Add(tipCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))

	gasLimit, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &to, Value: wei})
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeChainQuery, "failed to estimate gas", err)
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   c.chainID,
		Nonce:     nonce,
		GasTipCap: tipCap,
		GasFeeCap: feeCap,
		Gas:       gasLimit,
		To:        &to,
		Value:     wei,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), key)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to sign transaction", err)
	}

	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return nil, apperr.Wrap(apperr.CodeChainQuery, "failed to broadcast transaction", err)
	}

	logging.Info("transaction broadcast",
		zap.String("hash", signed.Hash().Hex()),
		zap.String("from", from.Hex()),
		zap.String("to", toAddress),
		zap.String("amountEther", amountEther))

	return &Sent{
		Hash:         signed.Hash().Hex(),
		From:         from.Hex(),
		To:           to.Hex(),
		Amount:       amountEther,
		GasLimit:     gasLimit,
		MaxFeePerGas: feeCap.String(),
	}, nil
}

// GetTransaction looks up a transaction and its receipt. A hash the network
// has never seen yields (nil, nil).
func (c *Client) GetTransaction(ctx context.Context, hash string) (*Detail, error) {
	txHash := common.HexToHash(hash)

	tx, isPending, err := c.eth.TransactionByHash(ctx, txHash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, nil
		}
		return nil, apperr.Wrap(apperr.CodeChainQuery, "failed to look up transaction", err)
	}

	detail := &Detail{
		Hash:   tx.Hash().Hex(),
		Amount: WeiToEther(tx.Value()),
		Status: StatusPending,
	}
	if sender, err := types.Sender(types.LatestSignerForChainID(c.chainID), tx); err == nil {
		detail.From = sender.Hex()
	}
	if tx.To() != nil {
		detail.To = tx.To().Hex()
	}

	if isPending {
		return detail, nil
	}

	receipt, err := c.eth.TransactionReceipt(ctx, txHash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return detail, nil
		}
		return nil, apperr.Wrap(apperr.CodeChainQuery, "failed to get receipt", err)
	}

	if receipt.Status == types.ReceiptStatusSuccessful {
		detail.Status = StatusConfirmed
	} else {
		detail.Status = StatusFailed
	}
	gasUsed := new(big.Int).SetUint64(receipt.GasUsed).String()
	detail.GasUsed = &gasUsed
	blockNumber := receipt.BlockNumber.Int64()
	detail.BlockNumber = &blockNumber

	if header, err := c.eth.HeaderByNumber(ctx, receipt.BlockNumber); err == nil {
		t := time.Unix(int64(header.Time), 0).UTC()
		detail.ChainTime = &t
	}

	return detail, nil
}

// WaitForConfirmation blocks until the transaction has the requested number
// of confirmations, discarding the receipt. Callers that need the chain
// facts follow up with GetTransaction.
func (c *Client) WaitForConfirmation(ctx context.Context, hash string, confirmations uint64) error {
	_, err := c.WaitForTransaction(ctx, hash, confirmations)
	return err
}

// WaitForTransaction blocks until the transaction has the requested number
// of confirmations, or fails when the internal timeout elapses first.
func (c *Client) WaitForTransaction(ctx context.Context, hash string, confirmations uint64) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, confirmationTimeout)
	defer cancel()

	txHash := common.HexToHash(hash)
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.eth.TransactionReceipt(ctx, txHash)
		if err == nil {
			head, err := c.eth.BlockNumber(ctx)
			if err == nil && head+1 >= receipt.BlockNumber.Uint64()+confirmations {
				return receipt, nil
			}
		} else if !errors.Is(err, ethereum.NotFound) {
			logging.Warn("receipt poll failed", zap.String("hash", hash), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil, apperr.Wrap(apperr.CodeChainQuery, "timed out waiting for confirmation", ctx.Err())
		case <-ticker.C:
		}
	}
}
