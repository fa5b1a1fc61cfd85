package entity

import (
	"errors"
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(wallet, token string) TransferItem {
	return TransferItem{OriginWalletAddress: wallet, TokenIdentifier: token, AmountBaseUnits: uint256.NewInt(1)}
}

func TestBatchTransferResultAccounting(t *testing.T) {
	r := NewBatchTransferResult("run", "507454")
	r.AddSkipped("w0", "t0", "Source wallet not on curve for token")
	r.AddOutcome(Batch{Index: 0, Items: []TransferItem{item("w1", "t1"), item("w2", "t2")}},
		BatchOutcome{BatchIndex: 0, Signature: "sig1"})
	r.AddOutcome(Batch{Index: 1, Items: []TransferItem{item("w3", "t3")}},
		BatchOutcome{BatchIndex: 1, Err: errors.New("boom")})
	r.Finalize()

	assert.Equal(t, 4, r.TotalTransfers)
	assert.Equal(t, 2, r.SuccessfulTransfers)
	assert.Equal(t, 2, r.FailedTransfers)
	assert.Equal(t, r.TotalTransfers, r.SuccessfulTransfers+r.FailedTransfers)
	assert.True(t, r.Success)
	assert.False(t, r.NoItems)
	assert.Equal(t, []string{"sig1"}, r.TransactionSignatures)
	assert.Equal(t, []string{"w0/t0: Source wallet not on curve for token", "boom"}, r.Errors)

	require.Len(t, r.Results, 4)
	assert.Equal(t, "sig1", r.Results[1].TxHash)
	assert.Equal(t, "sig1", r.Results[2].TxHash)
	assert.Equal(t, "boom", r.Results[3].Error)
}

func TestBatchTransferResultEmpty(t *testing.T) {
	r := NewBatchTransferResult("run", "1")
	r.Finalize()
	assert.True(t, r.NoItems)
	assert.False(t, r.Success)
	assert.NotNil(t, r.TransactionSignatures)
	assert.NotNil(t, r.Errors)
	assert.NotNil(t, r.Results)
}

func TestBatchOutcomeSucceeded(t *testing.T) {
	assert.True(t, BatchOutcome{Signature: "s"}.Succeeded())
	assert.False(t, BatchOutcome{Signature: "s", Err: errors.New("x")}.Succeeded())
	assert.False(t, BatchOutcome{}.Succeeded())
}

func TestMinAmount(t *testing.T) {
	assert.Equal(t, "3", MinAmount(big.NewInt(3), big.NewInt(5)).String())
	assert.Equal(t, "3", MinAmount(big.NewInt(5), big.NewInt(3)).String())
	assert.Equal(t, "0", MinAmount(nil, big.NewInt(3)).String())

	a := big.NewInt(1)
	m := MinAmount(a, big.NewInt(2))
	m.SetInt64(100)
	assert.Equal(t, int64(1), a.Int64())
}

func TestJournalEntryStatusUpdates(t *testing.T) {
	e := JournalEntry{
		ChainID:    "728126428",
		Signature:  "txid",
		ExecutedBy: "TOperator",
		Items:      []JournalItem{{WalletAddress: "Tw1", TokenAddress: "Tt1"}},
	}
	ups := e.StatusUpdates()
	require.Len(t, ups, 1)
	assert.Equal(t, ExecutionStatusUpdate{
		WalletAddress: "Tw1",
		TokenAddress:  "Tt1",
		ChainID:       "728126428",
		Status:        StatusExecuted,
		TxHash:        "txid",
		ExecutedBy:    "TOperator",
	}, ups[0])
}

func TestNetworkDefinitionDecimals(t *testing.T) {
	assert.Equal(t, 18, NetworkDefinition{DefaultDecimals: 18}.Decimals())
	assert.Equal(t, DefaultTokenDecimals, NetworkDefinition{}.Decimals())
}

func TestRunStateString(t *testing.T) {
	assert.Equal(t, "checking_delegations", RunCheckingDelegations.String())
	assert.Equal(t, "unknown", RunState(99).String())
}
