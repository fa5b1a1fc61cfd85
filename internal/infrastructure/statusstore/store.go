package statusstore

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"batch_transfer/internal/app/port"
	"batch_transfer/internal/domain/entity"
)

// walletRepository is the persistence primitive the Store is written against.
type walletRepository interface {
	// find returns entity.ErrWalletNotFound when the row does not exist.
	find(ctx context.Context, address, chainID string) (*WalletAddress, error)
	listByChain(ctx context.Context, chainID string) ([]WalletAddress, error)
	saveExecutionStatus(ctx context.Context, w *WalletAddress) error
	create(ctx context.Context, w *WalletAddress) error
}

// Store implements port.StatusStore over a wallet repository.
type Store struct {
	repo   walletRepository
	logger port.Logger
	now    func() time.Time

	// mu serialises read-modify-write cycles on execution maps within this process.
	mu sync.Mutex
}

func newStore(repo walletRepository, l port.Logger) *Store {
	return &Store{repo: repo, logger: l, now: time.Now}
}

// RegisterWallet creates an empty wallet row unless it already exists.
func (s *Store) RegisterWallet(ctx context.Context, address, chainID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.repo.find(ctx, address, chainID); err == nil {
		return nil
	} else if !errors.Is(err, entity.ErrWalletNotFound) {
		return err
	}
	return s.repo.create(ctx, &WalletAddress{
		Address:         address,
		ChainID:         chainID,
		TokenBalances:   entity.BalanceStateMap{},
		ExecutionStatus: entity.ExecutionStateMap{},
	})
}

// ApplyStatusUpdates writes every update independently. A missing wallet fails only its own update.
func (s *Store) ApplyStatusUpdates(ctx context.Context, updates []entity.ExecutionStatusUpdate) (entity.ApplyStatusResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := entity.ApplyStatusResult{Results: make([]entity.StatusUpdateResult, 0, len(updates))}
	for _, u := range updates {
		res.Add(u, s.applyOne(ctx, u))
	}
	return res, nil
}

func (s *Store) applyOne(ctx context.Context, u entity.ExecutionStatusUpdate) error {
	if err := u.Validate(); err != nil {
		return err
	}
	w, err := s.repo.find(ctx, u.WalletAddress, u.ChainID)
	if err != nil {
		return err
	}
	if w.ExecutionStatus == nil {
		w.ExecutionStatus = entity.ExecutionStateMap{}
	}
	w.ExecutionStatus.Apply(u, s.now())
	return s.repo.saveExecutionStatus(ctx, w)
}

// ListPendingCandidates returns the pairs whose status is exactly pending, ordered by wallet.
func (s *Store) ListPendingCandidates(ctx context.Context, chainID string) ([]entity.CandidatePair, error) {
	wallets, err := s.repo.listByChain(ctx, chainID)
	if err != nil {
		return nil, err
	}
	var out []entity.CandidatePair
	for _, w := range wallets {
		tokens := w.ExecutionStatus.PendingTokens()
		if len(tokens) == 0 {
			continue
		}
		sort.Strings(tokens)
		out = append(out, entity.CandidatePair{WalletAddress: w.Address, TokenAddresses: tokens})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WalletAddress < out[j].WalletAddress })
	return out, nil
}

// ResetTokenStatus moves one pending token back to new.
func (s *Store) ResetTokenStatus(ctx context.Context, walletAddress, tokenAddress, chainID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.repo.find(ctx, walletAddress, chainID)
	if err != nil {
		return err
	}
	if !w.ExecutionStatus.ResetPending(tokenAddress, s.now()) {
		return entity.ErrTokenNotPending
	}
	return s.repo.saveExecutionStatus(ctx, w)
}

// ResetAllPending moves every pending token of the chain back to new.
func (s *Store) ResetAllPending(ctx context.Context, chainID string) (entity.ResetSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wallets, err := s.repo.listByChain(ctx, chainID)
	if err != nil {
		return entity.ResetSummary{}, err
	}
	if len(wallets) == 0 {
		return entity.ResetSummary{}, entity.ErrNoWallets
	}

	summary := entity.ResetSummary{UpdatedWallets: []entity.WalletResetCount{}}
	now := s.now()
	for i := range wallets {
		w := &wallets[i]
		n := w.ExecutionStatus.ResetAllPending(now)
		if n == 0 {
			continue
		}
		if err := s.repo.saveExecutionStatus(ctx, w); err != nil {
			s.logger.Error("Failed to reset pending tokens", "wallet", w.Address, "chain_id", chainID, "error", err)
			continue
		}
		summary.TotalReset += n
		summary.UpdatedWallets = append(summary.UpdatedWallets, entity.WalletResetCount{WalletAddress: w.Address, ResetCount: n})
	}
	return summary, nil
}
