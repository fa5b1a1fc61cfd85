package entity

import "time"

// JournalItem is one wallet/token pair covered by a journaled transaction.
type JournalItem struct {
	WalletAddress string `json:"walletAddress"`
	TokenAddress  string `json:"tokenAddress"`
}

// JournalEntry is a confirmed transaction recorded before its status is persisted.
type JournalEntry struct {
	RunID      string        `json:"runId"`
	ChainID    string        `json:"chainId"`
	Signature  string        `json:"signature"`
	ExecutedBy string        `json:"executedBy,omitempty"`
	Items      []JournalItem `json:"items"`
	RecordedAt time.Time     `json:"recordedAt"`
	Reconciled bool          `json:"reconciled"`
}

// StatusUpdates returns the executed updates implied by the entry.
func (e JournalEntry) StatusUpdates() []ExecutionStatusUpdate {
	out := make([]ExecutionStatusUpdate, 0, len(e.Items))
	for _, it := range e.Items {
		out = append(out, ExecutionStatusUpdate{
			WalletAddress: it.WalletAddress,
			TokenAddress:  it.TokenAddress,
			ChainID:       e.ChainID,
			Status:        StatusExecuted,
			TxHash:        e.Signature,
			ExecutedBy:    e.ExecutedBy,
		})
	}
	return out
}
