// pkg/ethutils/history_test.go
package ethutils

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExplorerTxToSummary(t *testing.T) {
	cases := []struct {
		name string
		tx   explorerTx
		want Summary
	}{
		{
			name: "confirmed transfer",
			tx: explorerTx{
				Hash:            "0xaaa",
				From:            "0x9aB3c5964129C8EbBc6F1E7B94D4dC2E1a3f6C21",
				To:              "0x1111111111111111111111111111111111111111",
				Value:           "500000000000000000",
				GasPrice:        "2000000000",
				GasUsed:         "21000",
				BlockNumber:     "123456",
				TimeStamp:       "1700000100",
				IsError:         "0",
				TxReceiptStatus: "1",
			},
			want: Summary{
				Hash:   "0xaaa",
				From:   "0x9aB3c5964129C8EbBc6F1E7B94D4dC2E1a3f6C21",
				To:     "0x1111111111111111111111111111111111111111",
				Amount: "0.5",
				Status: StatusConfirmed,
			},
		},
		{
			name: "reverted transfer",
			tx:   explorerTx{Hash: "0xbbb", Value: "1000000000000000000", IsError: "1", TxReceiptStatus: "1"},
			want: Summary{Hash: "0xbbb", Amount: "1.0", Status: StatusFailed},
		},
		{
			name: "no receipt yet",
			tx:   explorerTx{Hash: "0xccc", Value: "0"},
			want: Summary{Hash: "0xccc", Amount: "0.0", Status: StatusPending},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.tx.toSummary()
			assert.Equal(t, tc.want.Hash, got.Hash)
			assert.Equal(t, tc.want.From, got.From)
			assert.Equal(t, tc.want.To, got.To)
			assert.Equal(t, tc.want.Amount, got.Amount)
			assert.Equal(t, tc.want.Status, got.Status)
		})
	}
}

func TestExplorerTxToSummaryLossyFields(t *testing.T) {
	got := explorerTx{
		Hash:        "0xddd",
		Value:       "not-a-number",
		GasPrice:    "",
		GasUsed:     "",
		BlockNumber: "not-a-block",
		TimeStamp:   "",
	}.toSummary()

	// Unparseable fields degrade to their zero values, never an error.
	assert.Empty(t, got.Amount)
	assert.Nil(t, got.GasPrice)
	assert.Nil(t, got.GasUsed)
	assert.Nil(t, got.BlockNumber)
	assert.Nil(t, got.ChainTime)
	assert.Equal(t, StatusPending, got.Status)

	got = explorerTx{
		Hash:        "0xeee",
		Value:       "1",
		GasPrice:    "2000000000",
		GasUsed:     "21000",
		BlockNumber: "99",
		TimeStamp:   "1700000100",
	}.toSummary()

	require.NotNil(t, got.GasPrice)
	assert.Equal(t, "2000000000", *got.GasPrice)
	require.NotNil(t, got.GasUsed)
	assert.Equal(t, "21000", *got.GasUsed)
	require.NotNil(t, got.BlockNumber)
	assert.EqualValues(t, 99, *got.BlockNumber)
	require.NotNil(t, got.ChainTime)
	assert.EqualValues(t, 1700000100, got.ChainTime.Unix())
}

func TestGetTransactionHistoryFromExplorer(t *testing.T) {
	address := "0x9aB3c5964129C8EbBc6F1E7B94D4dC2E1a3f6C21"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "account", q.Get("module"))
		assert.Equal(t, "txlist", q.Get("action"))
		assert.Equal(t, address, q.Get("address"))
		assert.Equal(t, "desc", q.Get("sort"))
		assert.Equal(t, "test-key", q.Get("apikey"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": "1",
			"message": "OK",
			"result": [
				{"hash": "0xnew", "from": "` + address + `", "to": "0x1111111111111111111111111111111111111111",
				 "value": "1000000000000000000", "blockNumber": "101", "timeStamp": "1700000200",
				 "isError": "0", "txreceipt_status": "1"},
				{"hash": "0xold", "from": "0x1111111111111111111111111111111111111111", "to": "` + address + `",
				 "value": "500000000000000000", "blockNumber": "100", "timeStamp": "1700000100",
				 "isError": "0", "txreceipt_status": "1"}
			]
		}`))
	}))
	defer srv.Close()

	c := &Client{explorer: newExplorerClient(srv.URL, "test-key")}

	summaries, err := c.GetTransactionHistory(context.Background(), address, 10)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	// Explorer order (newest first) is preserved.
	assert.Equal(t, "0xnew", summaries[0].Hash)
	assert.Equal(t, "1.0", summaries[0].Amount)
	assert.Equal(t, StatusConfirmed, summaries[0].Status)
	assert.Equal(t, "0xold", summaries[1].Hash)
	assert.Equal(t, "0.5", summaries[1].Amount)
}

func TestGetTransactionHistoryEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status": "0", "message": "No transactions found", "result": []}`))
	}))
	defer srv.Close()

	c := &Client{explorer: newExplorerClient(srv.URL, "")}

	// A wallet with no history is an empty page, not an error.
	summaries, err := c.GetTransactionHistory(context.Background(), "0x9aB3c5964129C8EbBc6F1E7B94D4dC2E1a3f6C21", 10)
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestRecentTransactionsExplorerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status": "0", "message": "NOTOK", "result": []}`))
	}))
	defer srv.Close()

	e := newExplorerClient(srv.URL, "")

	_, err := e.recentTransactions(context.Background(), "0x9aB3c5964129C8EbBc6F1E7B94D4dC2E1a3f6C21", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOTOK")
}

func TestGetTransactionHistoryToleratesBadInput(t *testing.T) {
	c := &Client{}

	summaries, err := c.GetTransactionHistory(context.Background(), "not-an-address", 10)
	require.NoError(t, err)
	assert.Empty(t, summaries)

	summaries, err = c.GetTransactionHistory(context.Background(), "0x9aB3c5964129C8EbBc6F1E7B94D4dC2E1a3f6C21", 0)
	require.NoError(t, err)
	assert.Empty(t, summaries)
}
