package entity

import (
	"fmt"
	"time"
)

// ExecutionStatus is the lifecycle state of a wallet/token pair.
type ExecutionStatus string

const (
	StatusNew      ExecutionStatus = "new"
	StatusPending  ExecutionStatus = "pending"
	StatusExecuted ExecutionStatus = "executed"
)

// Valid reports whether s is a known status.
func (s ExecutionStatus) Valid() bool {
	switch s {
	case StatusNew, StatusPending, StatusExecuted:
		return true
	}
	return false
}

// ParseExecutionStatus validates a raw status string.
func ParseExecutionStatus(raw string) (ExecutionStatus, error) {
	s := ExecutionStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return s, nil
}

// ExecutionStatusUpdate is the only artifact written back to persistent storage.
type ExecutionStatusUpdate struct {
	WalletAddress string          `json:"walletAddress" binding:"required"`
	TokenAddress  string          `json:"tokenAddress" binding:"required"`
	ChainID       string          `json:"chainId" binding:"required"`
	Status        ExecutionStatus `json:"status" binding:"required"`
	TxHash        string          `json:"txHash,omitempty"`
	ExecutedBy    string          `json:"executedBy,omitempty"`
}

// Validate checks the required fields of the update.
func (u ExecutionStatusUpdate) Validate() error {
	if u.WalletAddress == "" || u.TokenAddress == "" || u.ChainID == "" {
		return fmt.Errorf("%w: walletAddress, tokenAddress and chainId are required", ErrInvalidStatus)
	}
	if !u.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, u.Status)
	}
	return nil
}

// TokenExecutionState is the persisted execution record of one token of a wallet.
type TokenExecutionState struct {
	Status       ExecutionStatus `json:"status"`
	UpdatedAt    time.Time       `json:"updatedAt"`
	TokenAddress string          `json:"tokenAddress,omitempty"`
	TxHash       string          `json:"txHash,omitempty"`
	ExecutedBy   string          `json:"executedBy,omitempty"`
}

// ExecutionStateMap maps a lowercase token address to its execution record.
type ExecutionStateMap map[string]TokenExecutionState

// Get returns the record for tokenAddress regardless of its case.
func (m ExecutionStateMap) Get(tokenAddress string) (TokenExecutionState, bool) {
	st, ok := m[NormalizeTokenKey(tokenAddress)]
	return st, ok
}

// Apply writes the update into the map and returns the stored record.
func (m ExecutionStateMap) Apply(u ExecutionStatusUpdate, now time.Time) TokenExecutionState {
	st := TokenExecutionState{
		Status:       u.Status,
		UpdatedAt:    now.UTC(),
		TokenAddress: u.TokenAddress,
		TxHash:       u.TxHash,
		ExecutedBy:   u.ExecutedBy,
	}
	m[NormalizeTokenKey(u.TokenAddress)] = st
	return st
}

// ResetPending moves one pending token back to new. It returns false when the token is not pending.
func (m ExecutionStateMap) ResetPending(tokenAddress string, now time.Time) bool {
	key := NormalizeTokenKey(tokenAddress)
	st, ok := m[key]
	if !ok || st.Status != StatusPending {
		return false
	}
	st.Status = StatusNew
	st.UpdatedAt = now.UTC()
	m[key] = st
	return true
}

// ResetAllPending moves every pending token back to new and returns how many changed.
func (m ExecutionStateMap) ResetAllPending(now time.Time) int {
	n := 0
	for key, st := range m {
		if st.Status != StatusPending {
			continue
		}
		st.Status = StatusNew
		st.UpdatedAt = now.UTC()
		m[key] = st
		n++
	}
	return n
}

// PendingTokens returns the original token addresses whose status is exactly pending.
func (m ExecutionStateMap) PendingTokens() []string {
	var out []string
	for key, st := range m {
		if st.Status != StatusPending {
			continue
		}
		addr := st.TokenAddress
		if addr == "" {
			addr = key
		}
		out = append(out, addr)
	}
	return out
}

// StatusUpdateResult is the per-update outcome of ApplyStatusUpdates.
type StatusUpdateResult struct {
	WalletAddress string          `json:"walletAddress"`
	TokenAddress  string          `json:"tokenAddress"`
	Status        ExecutionStatus `json:"status"`
	Success       bool            `json:"success"`
	Error         string          `json:"error,omitempty"`
}

// ApplyStatusResult aggregates the outcome of a batch of status updates.
type ApplyStatusResult struct {
	TotalUpdates      int                  `json:"totalUpdates"`
	SuccessfulUpdates int                  `json:"successfulUpdates"`
	FailedUpdates     int                  `json:"failedUpdates"`
	Results           []StatusUpdateResult `json:"results"`
}

// Add appends one per-update outcome and keeps the counters in sync.
func (r *ApplyStatusResult) Add(u ExecutionStatusUpdate, err error) {
	res := StatusUpdateResult{
		WalletAddress: u.WalletAddress,
		TokenAddress:  u.TokenAddress,
		Status:        u.Status,
		Success:       err == nil,
	}
	r.TotalUpdates++
	if err != nil {
		res.Error = err.Error()
		r.FailedUpdates++
	} else {
		r.SuccessfulUpdates++
	}
	r.Results = append(r.Results, res)
}

// CandidatePair is a wallet together with the tokens selected for execution.
type CandidatePair struct {
	WalletAddress  string   `json:"walletAddress" binding:"required"`
	TokenAddresses []string `json:"tokenAddresses" binding:"required"`
}

// WalletResetCount reports how many tokens of one wallet were reset.
type WalletResetCount struct {
	WalletAddress string `json:"walletAddress"`
	ResetCount    int    `json:"resetCount"`
}

// ResetSummary is returned by a chain-wide reset of pending tokens.
type ResetSummary struct {
	TotalReset     int                `json:"totalReset"`
	UpdatedWallets []WalletResetCount `json:"updatedWallets"`
}
