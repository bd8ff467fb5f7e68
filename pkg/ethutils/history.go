// pkg/ethutils/history.go
package ethutils

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/uracles/mini-wallet-application/internal/logging"
)

// scanWindow bounds the degraded history path: how many recent blocks are
// scanned when the explorer API is unavailable.
const scanWindow = 64

type explorerClient struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

func newExplorerClient(baseURL, apiKey string) *explorerClient {
	return &explorerClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: 15 * time.Second},
	}
}

type explorerResponse struct {
	Status  string       `json:"status"`
	Message string       `json:"message"`
	Result  []explorerTx `json:"result"`
}

type explorerTx struct {
	Hash            string `json:"hash"`
	From            string `json:"from"`
	To              string `json:"to"`
	Value           string `json:"value"`
	GasPrice        string `json:"gasPrice"`
	GasUsed         string `json:"gasUsed"`
	BlockNumber     string `json:"blockNumber"`
	TimeStamp       string `json:"timeStamp"`
	IsError         string `json:"isError"`
	TxReceiptStatus string `json:"txreceipt_status"`
}

func (e *explorerClient) recentTransactions(ctx context.Context, address string, limit int) ([]Summary, error) {
	q := url.Values{}
	q.Set("module", "account")
	q.Set("action", "txlist")
	q.Set("address", address)
	q.Set("page", "1")
	q.Set("offset", strconv.Itoa(limit))
	q.Set("sort", "desc")
	if e.apiKey != "" {
		q.Set("apikey", e.apiKey)
	}

	var parsed explorerResponse
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"?"+q.Encode(), nil)
			if err != nil {
				return err
			}
			resp, err := e.httpc.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("explorer returned status %d", resp.StatusCode)
			}
			return json.NewDecoder(resp.Body).Decode(&parsed)
		},
		retry.Attempts(queryAttempts),
		retry.Delay(queryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
	)
	if err != nil {
		return nil, err
	}

	// Status "0" with "No transactions found" is an empty result, not an
	// error.
	if parsed.Status != "1" && !strings.Contains(parsed.Message, "No transactions") {
		return nil, fmt.Errorf("explorer error: %s", parsed.Message)
	}

	summaries := make([]Summary, 0, len(parsed.Result))
	for _, tx := range parsed.Result {
		summaries = append(summaries, tx.toSummary())
	}
	return summaries, nil
}

func (t explorerTx) toSummary() Summary {
	s := Summary{
		Hash:   t.Hash,
		From:   t.From,
		To:     t.To,
		Status: StatusPending,
	}

	if wei, ok := new(big.Int).SetString(t.Value, 10); ok {
		s.Amount = WeiToEther(wei)
	}
	if t.GasPrice != "" {
		gasPrice := t.GasPrice
		s.GasPrice = &gasPrice
	}
	if t.GasUsed != "" {
		gasUsed := t.GasUsed
		s.GasUsed = &gasUsed
	}
	if n, err := strconv.ParseInt(t.BlockNumber, 10, 64); err == nil {
		s.BlockNumber = &n
	}
	if ts, err := strconv.ParseInt(t.TimeStamp, 10, 64); err == nil {
		ct := time.Unix(ts, 0).UTC()
		s.ChainTime = &ct
	}

	switch {
	case t.IsError == "1":
		s.Status = StatusFailed
	case t.TxReceiptStatus == "1":
		s.Status = StatusConfirmed
	}
	return s
}

// GetTransactionHistory returns the most recent transactions touching
// address, newest first. The explorer API is the primary source; when it is
// unconfigured or failing, a bounded scan of recent blocks stands in. Both
// paths are best-effort: the result may be partial or empty, but this never
// returns an error to the caller.
func (c *Client) GetTransactionHistory(ctx context.Context, address string, limit int) ([]Summary, error) {
	if err := ValidateAddress(address); err != nil {
		return nil, nil
	}
	if limit <= 0 {
		return nil, nil
	}

	if c.explorer != nil {
		summaries, err := c.explorer.recentTransactions(ctx, address, limit)
		if err == nil {
			return summaries, nil
		}
		logging.Warn("explorer history failed, falling back to block scan",
			zap.String("address", address), zap.Error(err))
	}

	return c.scanRecentBlocks(ctx, address, limit), nil
}

// scanRecentBlocks walks the last scanWindow blocks looking for
// transactions from or to address. Anything older than the window is
// missed; that is the accepted cost of the degraded path.
func (c *Client) scanRecentBlocks(ctx context.Context, address string, limit int) []Summary {
	head, err := c.eth.BlockNumber(ctx)
	if err != nil {
		logging.Warn("block scan aborted: no chain head", zap.Error(err))
		return nil
	}

	target := strings.ToLower(address)
	signer := types.LatestSignerForChainID(c.chainID)
	summaries := make([]Summary, 0, limit)

	for n := head; n > 0 && head-n < scanWindow && len(summaries) < limit; n-- {
		block, err := c.eth.BlockByNumber(ctx, new(big.Int).SetUint64(n))
		if err != nil {
			logging.Warn("block scan skipped block", zap.Uint64("block", n), zap.Error(err))
			continue
		}

		blockNumber := int64(n)
		chainTime := time.Unix(int64(block.Time()), 0).UTC()

		for _, tx := range block.Transactions() {
			var from string
			if sender, err := types.Sender(signer, tx); err == nil {
				from = sender.Hex()
			}
			var to string
			if tx.To() != nil {
				to = tx.To().Hex()
			}

			if !strings.EqualFold(from, target) && !strings.EqualFold(to, target) {
				continue
			}

			gasPrice := tx.GasFeeCap().String()
			summaries = append(summaries, Summary{
				Hash:        tx.Hash().Hex(),
				From:        from,
				To:          to,
				Amount:      WeiToEther(tx.Value()),
				Status:      StatusConfirmed,
				GasPrice:    &gasPrice,
				BlockNumber: &blockNumber,
				ChainTime:   &chainTime,
			})
			if len(summaries) == limit {
				break
			}
		}
	}

	return summaries
}
