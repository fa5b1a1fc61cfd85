package entity

import (
	"github.com/holiman/uint256"
)

// TransferRequest is a logical transfer handed to the engine after delegation checks.
type TransferRequest struct {
	WalletAddress string `json:"walletAddress"`
	TokenAddress  string `json:"tokenAddress"`
	// Amount is a human readable decimal string, e.g. "12.5".
	Amount   string `json:"amount"`
	Decimals *int   `json:"decimals,omitempty"`
}

// TransferItem is a TransferRequest resolved against chain account rules.
type TransferItem struct {
	SourceAccount       string       `json:"sourceAccount"`
	DestinationAccount  string       `json:"destinationAccount"`
	TokenIdentifier     string       `json:"tokenIdentifier"`
	AmountBaseUnits     *uint256.Int `json:"amountBaseUnits"`
	OriginWalletAddress string       `json:"originWalletAddress"`
}

// Batch is an ordered group of items submitted as one transaction.
type Batch struct {
	Index int            `json:"index"`
	Items []TransferItem `json:"items"`
}

// BatchOutcome is the result of executing one batch. A batch succeeds or fails as a whole.
type BatchOutcome struct {
	BatchIndex     int
	Signature      string
	SucceededItems []TransferItem
	Attempts       int
	Err            error
}

// Succeeded reports whether the batch was confirmed.
func (o BatchOutcome) Succeeded() bool {
	return o.Err == nil && o.Signature != ""
}

// TransferResultItem is the per-pair entry of a BatchTransferResult.
type TransferResultItem struct {
	WalletAddress string `json:"walletAddress"`
	TokenAddress  string `json:"tokenAddress"`
	Success       bool   `json:"success"`
	TxHash        string `json:"txHash,omitempty"`
	Error         string `json:"error,omitempty"`
}

// ReconciliationSummary reports how many status updates were persisted.
type ReconciliationSummary struct {
	SuccessfulUpdates int    `json:"successfulUpdates"`
	FailedUpdates     int    `json:"failedUpdates"`
	Error             string `json:"error,omitempty"`
}

// ExcludedPair is a candidate dropped by the delegation check. It is not part of the totals.
type ExcludedPair struct {
	WalletAddress string `json:"walletAddress"`
	TokenAddress  string `json:"tokenAddress"`
	Reason        string `json:"reason"`
}

// BatchTransferResult is the outcome of one orchestration run.
type BatchTransferResult struct {
	RunID                 string                 `json:"runId"`
	ChainID               string                 `json:"chainId"`
	Success               bool                   `json:"success"`
	NoItems               bool                   `json:"noItems"`
	TotalTransfers        int                    `json:"totalTransfers"`
	SuccessfulTransfers   int                    `json:"successfulTransfers"`
	FailedTransfers       int                    `json:"failedTransfers"`
	TransactionSignatures []string               `json:"transactionSignatures"`
	Errors                []string               `json:"errors"`
	Results               []TransferResultItem   `json:"results"`
	Excluded              []ExcludedPair         `json:"excluded,omitempty"`
	Reconciliation        *ReconciliationSummary `json:"reconciliation,omitempty"`
}

// NewBatchTransferResult returns an empty result with non-nil slices.
func NewBatchTransferResult(runID, chainID string) *BatchTransferResult {
	return &BatchTransferResult{
		RunID:                 runID,
		ChainID:               chainID,
		TransactionSignatures: []string{},
		Errors:                []string{},
		Results:               []TransferResultItem{},
	}
}

// AddSkipped records a pair that never reached a batch.
func (r *BatchTransferResult) AddSkipped(walletAddress, tokenAddress, reason string) {
	r.Results = append(r.Results, TransferResultItem{
		WalletAddress: walletAddress,
		TokenAddress:  tokenAddress,
		Success:       false,
		Error:         reason,
	})
	r.Errors = append(r.Errors, walletAddress+"/"+tokenAddress+": "+reason)
}

// AddOutcome records every item of a batch with the outcome of the batch.
func (r *BatchTransferResult) AddOutcome(batch Batch, outcome BatchOutcome) {
	if outcome.Succeeded() {
		r.TransactionSignatures = append(r.TransactionSignatures, outcome.Signature)
		for _, it := range batch.Items {
			r.Results = append(r.Results, TransferResultItem{
				WalletAddress: it.OriginWalletAddress,
				TokenAddress:  it.TokenIdentifier,
				Success:       true,
				TxHash:        outcome.Signature,
			})
		}
		return
	}

	msg := "unknown error"
	if outcome.Err != nil {
		msg = outcome.Err.Error()
	}
	r.Errors = append(r.Errors, msg)
	for _, it := range batch.Items {
		r.Results = append(r.Results, TransferResultItem{
			WalletAddress: it.OriginWalletAddress,
			TokenAddress:  it.TokenIdentifier,
			Success:       false,
			Error:         msg,
		})
	}
}

// Finalize derives the counters from Results.
func (r *BatchTransferResult) Finalize() {
	r.TotalTransfers = len(r.Results)
	r.SuccessfulTransfers = 0
	for _, it := range r.Results {
		if it.Success {
			r.SuccessfulTransfers++
		}
	}
	r.FailedTransfers = r.TotalTransfers - r.SuccessfulTransfers
	r.Success = r.SuccessfulTransfers > 0
	r.NoItems = r.TotalTransfers == 0
}
