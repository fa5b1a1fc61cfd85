package entity

import (
	"math/big"
	"strings"
	"time"
)

// BalanceInfo is the token balance of a wallet, expressed in base units.
type BalanceInfo struct {
	Balance  *big.Int `json:"balance"`
	Decimals int      `json:"decimals"`
}

// DelegationInfo describes the delegation a wallet granted for one token.
type DelegationInfo struct {
	IsDelegated     bool       `json:"isDelegated"`
	DelegatedAmount *big.Int   `json:"delegatedAmount"`
	Delegate        string     `json:"delegate,omitempty"`
	Expiration      *time.Time `json:"expiration,omitempty"`
}

// TokenBalanceState is the persisted per-token balance/approval snapshot of a wallet.
type TokenBalanceState struct {
	Balance            string     `json:"balance"`
	Symbol             string     `json:"symbol,omitempty"`
	Decimals           int        `json:"decimals"`
	IsApproved         bool       `json:"isApproved"`
	ApprovalAmount     string     `json:"approvalAmount,omitempty"`
	ApprovalExpiration *time.Time `json:"approvalExpiration,omitempty"`
}

// BalanceStateMap maps a case-normalized token address to its balance snapshot.
type BalanceStateMap map[string]TokenBalanceState

// Get returns the snapshot for tokenAddress regardless of its case.
func (m BalanceStateMap) Get(tokenAddress string) (TokenBalanceState, bool) {
	st, ok := m[NormalizeTokenKey(tokenAddress)]
	return st, ok
}

// Set stores the snapshot for tokenAddress under its normalized key.
func (m BalanceStateMap) Set(tokenAddress string, st TokenBalanceState) {
	m[NormalizeTokenKey(tokenAddress)] = st
}

// NormalizeTokenKey returns the key used for per-token maps.
func NormalizeTokenKey(tokenAddress string) string {
	return strings.ToLower(strings.TrimSpace(tokenAddress))
}

// MinAmount returns the smaller of a and b. Nil values count as zero.
func MinAmount(a, b *big.Int) *big.Int {
	if a == nil || b == nil {
		return new(big.Int)
	}
	if a.Cmp(b) <= 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}
