package statusstore

import (
	"context"
	"sort"
	"strings"

	"batch_transfer/internal/app/port"
	"batch_transfer/internal/domain/entity"

	"github.com/patrickmn/go-cache"
)

// NewMemoryStore creates a process-local status store. Rows never expire.
func NewMemoryStore(l port.Logger) *Store {
	return newStore(&memoryRepository{rows: cache.New(cache.NoExpiration, 0)}, l)
}

type memoryRepository struct {
	rows *cache.Cache
}

func memoryKey(address, chainID string) string {
	return chainID + "|" + address
}

func (r *memoryRepository) find(_ context.Context, address, chainID string) (*WalletAddress, error) {
	v, ok := r.rows.Get(memoryKey(address, chainID))
	if !ok {
		return nil, entity.ErrWalletNotFound
	}
	w := cloneWallet(v.(WalletAddress))
	return &w, nil
}

func (r *memoryRepository) listByChain(_ context.Context, chainID string) ([]WalletAddress, error) {
	prefix := chainID + "|"
	var out []WalletAddress
	for key, item := range r.rows.Items() {
		if strings.HasPrefix(key, prefix) {
			out = append(out, cloneWallet(item.Object.(WalletAddress)))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out, nil
}

func (r *memoryRepository) saveExecutionStatus(_ context.Context, w *WalletAddress) error {
	key := memoryKey(w.Address, w.ChainID)
	v, ok := r.rows.Get(key)
	if !ok {
		return entity.ErrWalletNotFound
	}
	stored := v.(WalletAddress)
	stored.ExecutionStatus = cloneWallet(*w).ExecutionStatus
	r.rows.Set(key, stored, cache.NoExpiration)
	return nil
}

func (r *memoryRepository) create(_ context.Context, w *WalletAddress) error {
	return r.rows.Add(memoryKey(w.Address, w.ChainID), cloneWallet(*w), cache.NoExpiration)
}

// cloneWallet copies the state maps so callers never alias cached rows.
func cloneWallet(w WalletAddress) WalletAddress {
	exec := make(entity.ExecutionStateMap, len(w.ExecutionStatus))
	for k, v := range w.ExecutionStatus {
		exec[k] = v
	}
	balances := make(entity.BalanceStateMap, len(w.TokenBalances))
	for k, v := range w.TokenBalances {
		balances[k] = v
	}
	w.ExecutionStatus = exec
	w.TokenBalances = balances
	return w
}
