// internal/db/db_test.go
package db

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/uracles/mini-wallet-application/internal/apperr"
)

// openTestDB connects to the database named by TEST_DATABASE_URL. The suite
// is skipped when the variable is unset so unit runs stay hermetic.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	_ = godotenv.Load("../../.env")
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL is not set, skipping database integration tests")
	}

	gdb, err := Connect(url)
	require.NoError(t, err)
	require.NoError(t, Migrate(url, "../../migrations"))
	t.Cleanup(func() { _ = Close(gdb) })

	return gdb
}

func TestRepositoriesRoundTrip(t *testing.T) {
	gdb := openTestDB(t)
	ctx := context.Background()

	users := NewUserRepo(gdb)
	wallets := NewWalletRepo(gdb)
	txs := NewTransactionRepo(gdb)

	suffix := time.Now().UnixNano()
	username := fmt.Sprintf("it_user_%d", suffix)

	user, err := users.CreateUser(ctx, username, "bcrypt-hash-placeholder")
	require.NoError(t, err)
	t.Cleanup(func() { gdb.Delete(user) })

	_, err = users.CreateUser(ctx, username, "bcrypt-hash-placeholder")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeConflict, apperr.CodeOf(err))

	wallet := &Wallet{
		UserID:       user.ID,
		Address:      fmt.Sprintf("0x%040x", suffix),
		EncryptedKey: "encrypted-key",
		Network:      "sepolia",
	}
	require.NoError(t, wallets.CreateWallet(ctx, wallet))

	found, err := wallets.FindByIDAndOwner(ctx, wallet.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, wallet.Address, found.Address)

	_, err = wallets.FindByIDAndOwner(ctx, wallet.ID, user.ID+1)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))

	hash := fmt.Sprintf("0x%064x", suffix)
	created, err := txs.CreateTransaction(ctx, &Transaction{
		WalletID:    wallet.ID,
		TxHash:      hash,
		FromAddress: wallet.Address,
		ToAddress:   "0x0000000000000000000000000000000000000001",
		Amount:      "1000000000000000000",
		Status:      TxStatusPending,
	})
	require.NoError(t, err)

	// Re-inserting the same hash must hand back the existing row.
	again, err := txs.CreateTransaction(ctx, &Transaction{
		WalletID:    wallet.ID,
		TxHash:      hash,
		FromAddress: wallet.Address,
		ToAddress:   "0x0000000000000000000000000000000000000001",
		Amount:      "1000000000000000000",
		Status:      TxStatusPending,
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)

	gasUsed := "21000"
	blockNumber := int64(123456)
	chainTime := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, txs.MarkFinal(ctx, hash, TxStatusConfirmed, &gasUsed, &blockNumber, &chainTime))

	// A settled row never transitions again.
	require.NoError(t, txs.MarkFinal(ctx, hash, TxStatusFailed, nil, nil, nil))

	settled, err := txs.FindByHashAndOwner(ctx, hash, user.ID)
	require.NoError(t, err)
	assert.Equal(t, TxStatusConfirmed, settled.Status)
	require.NotNil(t, settled.GasUsed)
	assert.Equal(t, gasUsed, *settled.GasUsed)
	require.NotNil(t, settled.BlockNumber)
	assert.Equal(t, blockNumber, *settled.BlockNumber)

	_, err = txs.FindByHashAndOwner(ctx, hash, user.ID+1)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

func TestListByWalletOrdersNewestFirst(t *testing.T) {
	gdb := openTestDB(t)
	ctx := context.Background()

	users := NewUserRepo(gdb)
	wallets := NewWalletRepo(gdb)
	txs := NewTransactionRepo(gdb)

	suffix := time.Now().UnixNano()
	user, err := users.CreateUser(ctx, fmt.Sprintf("it_pager_%d", suffix), "bcrypt-hash-placeholder")
	require.NoError(t, err)
	t.Cleanup(func() { gdb.Delete(user) })

	wallet := &Wallet{
		UserID:       user.ID,
		Address:      fmt.Sprintf("0x%040x", suffix+1),
		EncryptedKey: "encrypted-key",
		Network:      "sepolia",
	}
	require.NoError(t, wallets.CreateWallet(ctx, wallet))

	for i := 0; i < 5; i++ {
		_, err := txs.CreateTransaction(ctx, &Transaction{
			WalletID:    wallet.ID,
			TxHash:      fmt.Sprintf("0x%064x", suffix+int64(i)+1),
			FromAddress: wallet.Address,
			ToAddress:   "0x0000000000000000000000000000000000000002",
			Amount:      "1",
			Status:      TxStatusPending,
		})
		require.NoError(t, err)
	}

	total, err := txs.CountByWallet(ctx, wallet.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)

	page1, err := txs.ListByWallet(ctx, wallet.ID, 3, 0)
	require.NoError(t, err)
	page2, err := txs.ListByWallet(ctx, wallet.ID, 3, 3)
	require.NoError(t, err)

	require.Len(t, page1, 3)
	require.Len(t, page2, 2)
	assert.Greater(t, page1[0].ID, page1[1].ID)
	assert.Greater(t, page1[2].ID, page2[0].ID)
}
