package wallet

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjoart/go-invest-ledger/internal/testutil"
)

func TestCreateTransaction_CompletedReferenceIsUnique(t *testing.T) {
	db := testutil.NewTestDB(t, &Wallet{}, &Transaction{})
	repo := NewRepository(db)
	ctx := context.Background()

	w := &Wallet{UserID: uuid.New(), Balance: dec(0), Currency: "PKR"}
	require.NoError(t, repo.CreateWallet(ctx, w))

	record := func(status TransactionStatus) *Transaction {
		return &Transaction{
			WalletID: w.ID,
			UserID:   w.UserID,
			Type:     TransactionDeposit,
			Amount:   dec(500),
			Status:   status,
			Details:  Details{DetailTID: "SAME"},
		}
	}

	first := record(TransactionCompleted)
	require.NoError(t, repo.CreateTransaction(ctx, first))
	if assert.NotNil(t, first.Reference) {
		assert.Equal(t, "SAME", *first.Reference)
	}

	err := repo.CreateTransaction(ctx, record(TransactionCompleted))
	assert.ErrorIs(t, err, ErrDuplicateReference)

	assert.NoError(t, repo.CreateTransaction(ctx, record(TransactionPending)))
	assert.NoError(t, repo.CreateTransaction(ctx, record(TransactionFailed)))

	exists, err := repo.CompletedReferenceExists(ctx, "SAME", "")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.CompletedReferenceExists(ctx, "SAME", first.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSaveTransaction_CompletingDuplicateReference(t *testing.T) {
	db := testutil.NewTestDB(t, &Wallet{}, &Transaction{})
	repo := NewRepository(db)
	ctx := context.Background()

	w := &Wallet{UserID: uuid.New(), Balance: dec(0), Currency: "PKR"}
	require.NoError(t, repo.CreateWallet(ctx, w))

	done := &Transaction{WalletID: w.ID, UserID: w.UserID, Type: TransactionDeposit,
		Amount: dec(300), Status: TransactionCompleted, Details: Details{DetailTID: "DUP"}}
	require.NoError(t, repo.CreateTransaction(ctx, done))

	waiting := &Transaction{WalletID: w.ID, UserID: w.UserID, Type: TransactionDeposit,
		Amount: dec(300), Status: TransactionPending, Details: Details{DetailTID: "DUP"}}
	require.NoError(t, repo.CreateTransaction(ctx, waiting))

	waiting.Status = TransactionCompleted
	assert.ErrorIs(t, repo.SaveTransaction(ctx, waiting), ErrDuplicateReference)

	stored, err := repo.GetTransaction(ctx, waiting.ID)
	require.NoError(t, err)
	assert.Equal(t, TransactionPending, stored.Status)
}
