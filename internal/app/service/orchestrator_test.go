package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"batch_transfer/internal/app/port"
	"batch_transfer/internal/domain/entity"
	"batch_transfer/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testReceiver = "RECEIVER"

func noSleep(context.Context, time.Duration) error { return nil }

func newTestOrchestrator(b *fakeBackend, w *fakeWriter, j port.SignatureJournal, m port.TransferMetrics, cfg OrchestratorConfig) *DelegationBatchTransferOrchestrator {
	rec := NewStatusReconciler(w, j, logger.NewNop(), m)
	o := NewDelegationBatchTransferOrchestrator(
		b,
		fakeSignerProvider{signer: fakeSigner{id: "DELEGATE"}},
		rec,
		NewRateLimitedExecutor(0, 1, 4),
		logger.NewNop(),
		m,
		cfg,
	)
	o.sleep = noSleep
	o.executor.sleep = noSleep
	o.newRunID = func() string { return "run-1" }
	return o
}

func testConfig() OrchestratorConfig {
	return OrchestratorConfig{
		RetryPolicy:         RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond},
		DelayBetweenBatches: time.Millisecond,
	}
}

func assertAccounting(t *testing.T, r *entity.BatchTransferResult) {
	t.Helper()
	assert.Equal(t, len(r.Results), r.TotalTransfers)
	assert.Equal(t, r.TotalTransfers, r.SuccessfulTransfers+r.FailedTransfers)
	ok := 0
	for _, it := range r.Results {
		if it.Success {
			ok++
		}
	}
	assert.Equal(t, ok, r.SuccessfulTransfers)
}

func TestExecute_SplitsThirtyItemsIntoTwoBatches(t *testing.T) {
	b := newFakeBackend()
	ws := wallets(30)
	for _, w := range ws {
		b.delegate(w, "MINT", 5_000_000, 3_000_000)
	}
	o := newTestOrchestrator(b, &fakeWriter{}, nil, nil, testConfig())

	res, err := o.Execute(context.Background(), entity.ExecutionRequest{
		Candidates:      candidates(ws, "MINT"),
		ReceiverAddress: testReceiver,
	})
	require.NoError(t, err)

	require.Len(t, b.submits, 2)
	assert.Len(t, b.submits[0], 25)
	assert.Len(t, b.submits[1], 5)
	assert.Equal(t, "W00", b.submits[0][0].OriginWalletAddress)
	assert.Equal(t, "W25", b.submits[1][0].OriginWalletAddress)

	first := b.submits[0][0]
	assert.Equal(t, "ata(W00,MINT)", first.SourceAccount)
	assert.Equal(t, "ata(RECEIVER,MINT)", first.DestinationAccount)
	assert.Equal(t, uint64(3_000_000), first.AmountBaseUnits.Uint64())

	assert.Equal(t, 30, res.TotalTransfers)
	assert.Equal(t, 30, res.SuccessfulTransfers)
	assert.Equal(t, []string{"sig-1", "sig-2"}, res.TransactionSignatures)
	assert.True(t, res.Success)
	assertAccounting(t, res)
	assert.Equal(t, entity.RunCompleted, o.State())
}

func TestExecute_IncompatiblePairIsReportedNotBatched(t *testing.T) {
	b := newFakeBackend()
	b.delegate("W00", "MINT", 10, 10)
	b.delegate("W01", "MINT", 10, 10)
	b.notCompatible["W01"] = true
	w := &fakeWriter{}
	o := newTestOrchestrator(b, w, nil, nil, testConfig())

	res, err := o.Execute(context.Background(), entity.ExecutionRequest{
		Candidates:      candidates([]string{"W00", "W01"}, "MINT"),
		ReceiverAddress: testReceiver,
	})
	require.NoError(t, err)

	require.Len(t, b.submits, 1)
	require.Len(t, b.submits[0], 1)
	assert.Equal(t, "W00", b.submits[0][0].OriginWalletAddress)

	var skipped *entity.TransferResultItem
	for i := range res.Results {
		if res.Results[i].WalletAddress == "W01" {
			skipped = &res.Results[i]
		}
	}
	require.NotNil(t, skipped)
	assert.False(t, skipped.Success)
	assert.Contains(t, skipped.Error, "not on curve")
	assert.Contains(t, skipped.Error, entity.ErrAccountDerivation.Error())
	assert.Equal(t, 2, res.TotalTransfers)
	assert.Equal(t, 1, res.FailedTransfers)
	assertAccounting(t, res)

	for _, u := range w.all() {
		if u.WalletAddress == "W01" {
			assert.Equal(t, entity.StatusPending, u.Status)
		}
	}
}

func TestExecute_RetriesTransientFailures(t *testing.T) {
	b := newFakeBackend()
	b.delegate("W00", "MINT", 10, 10)
	b.submit = func(attempt int, _ []entity.TransferItem) (string, error) {
		if attempt < 3 {
			return "", errors.New("blockhash not found")
		}
		return "sig-ok", nil
	}
	m := newCountingMetrics()
	o := newTestOrchestrator(b, &fakeWriter{}, nil, m, testConfig())

	res, err := o.Execute(context.Background(), entity.ExecutionRequest{
		Candidates:      candidates([]string{"W00"}, "MINT"),
		ReceiverAddress: testReceiver,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, b.submitCount())
	assert.True(t, res.Success)
	assert.Empty(t, res.Errors)
	assert.Equal(t, []string{"sig-ok"}, res.TransactionSignatures)
	require.Len(t, res.Results, 1)
	assert.True(t, res.Results[0].Success)
	assert.Equal(t, 2, m.retries)
	assert.Equal(t, 3, m.submitted)
	assert.Equal(t, 1, m.items)
}

func TestExecute_ExhaustedBatchDoesNotAbortLaterBatches(t *testing.T) {
	b := newFakeBackend()
	ws := wallets(4)
	for _, w := range ws {
		b.delegate(w, "MINT", 10, 10)
	}
	b.submit = func(attempt int, items []entity.TransferItem) (string, error) {
		if items[0].OriginWalletAddress == "W00" {
			return "", errors.New("node unavailable")
		}
		return fmt.Sprintf("sig-%d", attempt), nil
	}
	cfg := testConfig()
	cfg.MaxItemsPerBatch = 2
	w := &fakeWriter{}
	o := newTestOrchestrator(b, w, nil, nil, cfg)

	res, err := o.Execute(context.Background(), entity.ExecutionRequest{
		Candidates:      candidates(ws, "MINT"),
		ReceiverAddress: testReceiver,
	})
	require.NoError(t, err)

	assert.Equal(t, 4, b.submitCount())
	require.Len(t, res.Results, 4)
	assert.False(t, res.Results[0].Success)
	assert.False(t, res.Results[1].Success)
	assert.Equal(t, res.Results[0].Error, res.Results[1].Error)
	assert.Equal(t, "node unavailable", res.Results[0].Error)
	assert.True(t, res.Results[2].Success)
	assert.True(t, res.Results[3].Success)
	assert.Equal(t, []string{"sig-4"}, res.TransactionSignatures)
	assert.True(t, res.Success)
	assertAccounting(t, res)

	statuses := map[string]entity.ExecutionStatus{}
	for _, u := range w.all() {
		statuses[u.WalletAddress] = u.Status
	}
	assert.Equal(t, map[string]entity.ExecutionStatus{
		"W00": entity.StatusPending,
		"W01": entity.StatusPending,
		"W02": entity.StatusExecuted,
		"W03": entity.StatusExecuted,
	}, statuses)
}

func TestExecute_NoTransferableItems(t *testing.T) {
	tests := []struct {
		name         string
		setup        func(b *fakeBackend)
		rows         []entity.CandidatePair
		wantExcluded map[string]string
	}{
		{
			name: "no candidates",
		},
		{
			name: "every pair excluded",
			setup: func(b *fakeBackend) {
				b.delegate("W01", "MINT", 0, 10)
				b.delegations[pairKey("W02", "MINT")] = &entity.DelegationInfo{IsDelegated: true, DelegatedAmount: nil}
				b.balances[pairKey("W02", "MINT")] = &entity.BalanceInfo{Balance: nil}
				b.delegationErr[pairKey("W03", "MINT")] = errors.New("rpc down")
			},
			rows: candidates([]string{"W00", "W01", "W02", "W03"}, "MINT"),
			wantExcluded: map[string]string{
				"W00": ReasonNotDelegated,
				"W01": ReasonZeroAmount,
				"W02": ReasonBalanceUnavailable,
				"W03": ReasonNotDelegated,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newFakeBackend()
			if tt.setup != nil {
				tt.setup(b)
			}
			w := &fakeWriter{}
			o := newTestOrchestrator(b, w, nil, nil, testConfig())

			res, err := o.Execute(context.Background(), entity.ExecutionRequest{Candidates: tt.rows, ReceiverAddress: testReceiver})
			require.NoError(t, err)

			assert.Equal(t, 0, res.TotalTransfers)
			assert.Equal(t, 0, res.SuccessfulTransfers)
			assert.Equal(t, 0, res.FailedTransfers)
			assert.Empty(t, res.Results)
			assert.NotNil(t, res.Results)
			assert.True(t, res.NoItems)
			assert.False(t, res.Success)
			assert.Nil(t, res.Reconciliation)
			assert.Empty(t, w.calls)
			assert.Zero(t, b.submitCount())
			assert.Equal(t, entity.RunCompleted, o.State())

			got := map[string]string{}
			for _, ex := range res.Excluded {
				got[ex.WalletAddress] = ex.Reason
			}
			if tt.wantExcluded == nil {
				assert.Empty(t, got)
			} else {
				assert.Equal(t, tt.wantExcluded, got)
			}
		})
	}
}

func TestExecute_NonRetryableErrors(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		deterministic bool
		wantAttempts  int
	}{
		{name: "signer rejection", err: fmt.Errorf("sign: %w", entity.ErrSignerRejected), wantAttempts: 1},
		{name: "insufficient funds", err: fmt.Errorf("simulate: %w", entity.ErrInsufficientFunds), wantAttempts: 1},
		{name: "insufficient allowance", err: entity.ErrInsufficientAllowance, wantAttempts: 1},
		{name: "insufficient funds with deterministic retry", err: entity.ErrInsufficientFunds, deterministic: true, wantAttempts: 3},
		{name: "signer rejection with deterministic retry", err: entity.ErrSignerRejected, deterministic: true, wantAttempts: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newFakeBackend()
			b.delegate("W00", "MINT", 10, 10)
			b.submit = func(int, []entity.TransferItem) (string, error) { return "", tt.err }
			cfg := testConfig()
			cfg.RetryPolicy.RetryDeterministic = tt.deterministic
			o := newTestOrchestrator(b, &fakeWriter{}, nil, nil, cfg)

			res, err := o.Execute(context.Background(), entity.ExecutionRequest{
				Candidates:      candidates([]string{"W00"}, "MINT"),
				ReceiverAddress: testReceiver,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantAttempts, b.submitCount())
			assert.False(t, res.Success)
			require.Len(t, res.Results, 1)
			assert.Equal(t, tt.err.Error(), res.Results[0].Error)
		})
	}
}

func TestExecute_CancellationFailsRemainingBatchesAndStillWritesStatus(t *testing.T) {
	b := newFakeBackend()
	ws := wallets(4)
	for _, w := range ws {
		b.delegate(w, "MINT", 10, 10)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.submit = func(attempt int, _ []entity.TransferItem) (string, error) {
		cancel()
		return fmt.Sprintf("sig-%d", attempt), nil
	}
	cfg := testConfig()
	cfg.MaxItemsPerBatch = 2
	w := &fakeWriter{}
	j := &memJournal{}
	o := newTestOrchestrator(b, w, j, nil, cfg)

	res, err := o.Execute(ctx, entity.ExecutionRequest{Candidates: candidates(ws, "MINT"), ReceiverAddress: testReceiver})
	require.NoError(t, err)

	assert.Equal(t, 1, b.submitCount())
	require.Len(t, res.Results, 4)
	assert.True(t, res.Results[0].Success)
	assert.True(t, res.Results[1].Success)
	assert.Equal(t, entity.ErrRunCancelled.Error(), res.Results[2].Error)
	assert.Equal(t, entity.ErrRunCancelled.Error(), res.Results[3].Error)
	assertAccounting(t, res)

	require.Len(t, w.calls, 1)
	assert.NoError(t, w.ctxErrs[0])
	assert.Len(t, w.calls[0], 4)
	require.NotNil(t, res.Reconciliation)
	assert.Equal(t, 4, res.Reconciliation.SuccessfulUpdates)
	assert.True(t, j.reconciled("sig-1"))
}

func TestExecute_RejectsInvalidReceiver(t *testing.T) {
	b := newFakeBackend()
	b.invalid["BAD"] = true
	o := newTestOrchestrator(b, &fakeWriter{}, nil, nil, testConfig())

	res, err := o.Execute(context.Background(), entity.ExecutionRequest{
		Candidates:      candidates([]string{"W00"}, "MINT"),
		ReceiverAddress: "BAD",
	})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, entity.ErrInvalidAddress)
	assert.Equal(t, entity.RunFailed, o.State())
	assert.Empty(t, b.checked)
}

func TestExecute_SignerUnavailable(t *testing.T) {
	tests := []struct {
		name     string
		provider fakeSignerProvider
		wantErr  error
	}{
		{name: "nil signer", provider: fakeSignerProvider{}, wantErr: entity.ErrSignerUnavailable},
		{name: "rejected", provider: fakeSignerProvider{err: entity.ErrSignerRejected}, wantErr: entity.ErrSignerRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newFakeBackend()
			o := newTestOrchestrator(b, &fakeWriter{}, nil, nil, testConfig())
			o.signers = tt.provider

			res, err := o.Execute(context.Background(), entity.ExecutionRequest{ReceiverAddress: testReceiver})
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, entity.RunFailed, o.State())
		})
	}
}

func TestExecute_DelegateComesFromNetwork(t *testing.T) {
	tests := []struct {
		name     string
		kind     entity.ChainKind
		spender  string
		contract string
		want     string
	}{
		{name: "solana defaults to signer", kind: entity.ChainKindSolana, want: "DELEGATE"},
		{name: "evm defaults to signer", kind: entity.ChainKindEVM, contract: "PERMIT2", want: "DELEGATE"},
		{name: "tron defaults to batch contract", kind: entity.ChainKindTron, contract: "BATCHCONTRACT", want: "BATCHCONTRACT"},
		{name: "configured spender wins", kind: entity.ChainKindTron, spender: "SPENDER", contract: "BATCHCONTRACT", want: "SPENDER"},
		{name: "configured solana delegate", kind: entity.ChainKindSolana, spender: "SPENDER", want: "SPENDER"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newFakeBackend()
			b.def.Kind = tt.kind
			b.def.SpenderAddress = tt.spender
			b.def.ContractAddress = tt.contract
			b.delegate("W00", "MINT", 10, 10)
			o := newTestOrchestrator(b, &fakeWriter{}, nil, nil, testConfig())

			_, err := o.Execute(context.Background(), entity.ExecutionRequest{Candidates: candidates([]string{"W00"}, "MINT"), ReceiverAddress: testReceiver})
			require.NoError(t, err)
			assert.Equal(t, []string{pairKey("W00", "MINT") + "@" + tt.want}, b.checked)
		})
	}
}

func TestExecute_CancelledDuringDelegationCheckIsNotEmpty(t *testing.T) {
	b := newFakeBackend()
	ws := wallets(3)
	b.delegate(ws[1], "MINT", 10, 10)
	b.delegate(ws[2], "MINT", 10, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.onCheck = func(string) { cancel() }
	w := &fakeWriter{}
	o := newTestOrchestrator(b, w, nil, nil, testConfig())
	// One lookup per second, so the second pair waits on the limiter when the run is cancelled.
	o.limiter = NewRateLimitedExecutor(1, 1, 1)

	res, err := o.Execute(ctx, entity.ExecutionRequest{Candidates: candidates(ws, "MINT"), ReceiverAddress: testReceiver})
	require.NoError(t, err)

	assert.Len(t, b.checked, 1)
	require.Len(t, res.Excluded, 1)
	assert.Equal(t, ReasonNotDelegated, res.Excluded[0].Reason)
	assert.False(t, res.NoItems)
	assert.False(t, res.Success)
	assert.Equal(t, 2, res.FailedTransfers)
	for _, it := range res.Results {
		assert.Equal(t, entity.ErrRunCancelled.Error(), it.Error)
	}
	assertAccounting(t, res)
	assert.Empty(t, b.submits)
	assert.Empty(t, w.calls)
}

func TestExecute_TronPairsApprovedToContractAreTransferred(t *testing.T) {
	b := newFakeBackend()
	b.def = entity.NetworkDefinition{
		ChainID:          entity.TronChainID,
		Kind:             entity.ChainKindTron,
		Identifier:       "tron",
		DefaultDecimals:  6,
		MaxItemsPerBatch: 20,
		ContractAddress:  "BATCHCONTRACT",
	}
	b.delegate("W00", "USDT", 5, 5)
	b.delegate("W01", "USDT", 7, 7)
	w := &fakeWriter{}
	o := newTestOrchestrator(b, w, nil, nil, testConfig())

	res, err := o.Execute(context.Background(), entity.ExecutionRequest{Candidates: candidates([]string{"W00", "W01"}, "USDT"), ReceiverAddress: testReceiver})
	require.NoError(t, err)
	assert.Empty(t, res.Excluded)
	assert.Equal(t, 2, res.SuccessfulTransfers)
	assert.ElementsMatch(t, []string{
		pairKey("W00", "USDT") + "@BATCHCONTRACT",
		pairKey("W01", "USDT") + "@BATCHCONTRACT",
	}, b.checked)
	require.Len(t, b.submits, 1)
	assertAccounting(t, res)
}

func TestExecute_DeduplicatesCandidates(t *testing.T) {
	b := newFakeBackend()
	b.delegate("W00", "MINT", 10, 10)
	o := newTestOrchestrator(b, &fakeWriter{}, nil, nil, testConfig())

	res, err := o.Execute(context.Background(), entity.ExecutionRequest{
		Candidates: []entity.CandidatePair{
			{WalletAddress: "W00", TokenAddresses: []string{"MINT", " MINT "}},
			{WalletAddress: " W00", TokenAddresses: []string{"MINT"}},
		},
		ReceiverAddress: testReceiver,
	})
	require.NoError(t, err)
	assert.Len(t, b.checked, 1)
	assert.Equal(t, 1, res.TotalTransfers)
}

func TestExecute_AmountIsMinOfBalanceAndDelegation(t *testing.T) {
	b := newFakeBackend()
	b.delegate("W00", "MINT", 2_500_000, 9_000_000)
	b.balances[pairKey("W00", "MINT")].Decimals = 0
	o := newTestOrchestrator(b, &fakeWriter{}, nil, nil, testConfig())

	_, err := o.Execute(context.Background(), entity.ExecutionRequest{Candidates: candidates([]string{"W00"}, "MINT"), ReceiverAddress: testReceiver})
	require.NoError(t, err)
	require.Len(t, b.submits, 1)
	assert.Equal(t, uint64(2_500_000), b.submits[0][0].AmountBaseUnits.Uint64())
}

func TestExecute_ReportsProgress(t *testing.T) {
	b := newFakeBackend()
	b.delegate("W00", "MINT", 10, 10)
	o := newTestOrchestrator(b, &fakeWriter{}, nil, nil, testConfig())

	var mu sync.Mutex
	var phases []string
	_, err := o.Execute(context.Background(), entity.ExecutionRequest{
		Candidates:      candidates([]string{"W00"}, "MINT"),
		ReceiverAddress: testReceiver,
		OnProgress: func(phase string, current, total int) {
			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, entity.ProgressTotal, total)
			assert.LessOrEqual(t, current, total)
			phases = append(phases, phase)
		},
	})
	require.NoError(t, err)

	require.NotEmpty(t, phases)
	assert.Equal(t, entity.PhaseConnecting, phases[0])
	assert.Equal(t, entity.PhaseCompleted, phases[len(phases)-1])
	assert.Contains(t, phases, "Checking delegations... (1/1)")
	assert.Contains(t, phases, "Executing batch 1/1 (1/1)")
	assert.Contains(t, phases, entity.PhaseUpdating)
}

func TestExecute_WritesStatusAndJournal(t *testing.T) {
	b := newFakeBackend()
	b.delegate("W00", "MINT", 10, 10)
	b.delegate("W01", "MINT", 10, 10)
	b.delegate("W02", "MINT", 10, 10)
	cfg := testConfig()
	cfg.MaxItemsPerBatch = 1
	w := &fakeWriter{missing: map[string]bool{"W01": true}}
	j := &memJournal{}
	m := newCountingMetrics()
	o := newTestOrchestrator(b, w, j, m, cfg)

	res, err := o.Execute(context.Background(), entity.ExecutionRequest{
		Candidates:      candidates([]string{"W00", "W01", "W02"}, "MINT"),
		ReceiverAddress: testReceiver,
	})
	require.NoError(t, err)

	require.Len(t, j.entries, 3)
	assert.Equal(t, "run-1", j.entries[0].RunID)
	assert.Equal(t, "DELEGATE", j.entries[0].ExecutedBy)
	assert.Equal(t, []entity.JournalItem{{WalletAddress: "W00", TokenAddress: "MINT"}}, j.entries[0].Items)

	assert.True(t, j.reconciled("sig-1"))
	assert.False(t, j.reconciled("sig-2"))
	assert.True(t, j.reconciled("sig-3"))

	require.NotNil(t, res.Reconciliation)
	assert.Equal(t, 2, res.Reconciliation.SuccessfulUpdates)
	assert.Equal(t, 1, res.Reconciliation.FailedUpdates)
	assert.Equal(t, 2, m.statusOK)
	assert.Equal(t, 1, m.statusBad)

	for _, u := range w.all() {
		assert.Equal(t, entity.StatusExecuted, u.Status)
		assert.Equal(t, "DELEGATE", u.ExecutedBy)
		assert.True(t, strings.HasPrefix(u.TxHash, "sig-"))
		assert.Equal(t, entity.SolanaChainID, u.ChainID)
	}
}
