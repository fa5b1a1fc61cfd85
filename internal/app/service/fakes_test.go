package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"batch_transfer/internal/app/port"
	"batch_transfer/internal/domain/entity"
)

// fakeBackend is an in-memory chain backend. Accounts are derived as "ata(owner,token)".
type fakeBackend struct {
	def entity.NetworkDefinition

	invalid       map[string]bool
	notCompatible map[string]bool
	deriveErr     error

	delegations   map[string]*entity.DelegationInfo
	delegationErr map[string]error
	balances      map[string]*entity.BalanceInfo

	// submit is called for every SubmitAndConfirm attempt, 1-based.
	submit func(attempt int, items []entity.TransferItem) (string, error)
	// onCheck runs after every delegation lookup is recorded.
	onCheck func(key string)

	mu       sync.Mutex
	attempts int
	submits  [][]entity.TransferItem
	checked  []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		def: entity.NetworkDefinition{
			ChainID:          entity.SolanaChainID,
			Kind:             entity.ChainKindSolana,
			Identifier:       "solana",
			DefaultDecimals:  6,
			MaxItemsPerBatch: 25,
		},
		invalid:       map[string]bool{},
		notCompatible: map[string]bool{},
		delegations:   map[string]*entity.DelegationInfo{},
		delegationErr: map[string]error{},
		balances:      map[string]*entity.BalanceInfo{},
	}
}

// delegate sets up a pair with the given balance and delegated amount.
func (f *fakeBackend) delegate(wallet, token string, balance, delegated int64) {
	f.delegations[pairKey(wallet, token)] = &entity.DelegationInfo{IsDelegated: delegated > 0, DelegatedAmount: big.NewInt(delegated)}
	f.balances[pairKey(wallet, token)] = &entity.BalanceInfo{Balance: big.NewInt(balance), Decimals: 6}
}

func (f *fakeBackend) Definition() entity.NetworkDefinition { return f.def }

func (f *fakeBackend) DefaultDelegate(signerIdentity string) string { return f.def.Delegate(signerIdentity) }

func (f *fakeBackend) ValidateAddress(address string) error {
	if address == "" || f.invalid[address] {
		return fmt.Errorf("%w: %q", entity.ErrInvalidAddress, address)
	}
	return nil
}

func (f *fakeBackend) CanDeriveAccount(owner, _ string) bool { return !f.notCompatible[owner] }

func (f *fakeBackend) DeriveAccount(_ context.Context, owner, token string) (string, error) {
	if f.deriveErr != nil {
		return "", f.deriveErr
	}
	return "ata(" + owner + "," + token + ")", nil
}

type fakeInstruction struct{ item entity.TransferItem }

func (i fakeInstruction) Item() entity.TransferItem { return i.item }

func (f *fakeBackend) BuildTransferInstruction(item entity.TransferItem, _ string) (port.Instruction, error) {
	return fakeInstruction{item: item}, nil
}

func (f *fakeBackend) SubmitAndConfirm(_ context.Context, instructions []port.Instruction, signer port.Signer) (string, error) {
	if signer == nil {
		return "", entity.ErrSignerUnavailable
	}
	items := make([]entity.TransferItem, 0, len(instructions))
	for _, ix := range instructions {
		items = append(items, ix.Item())
	}

	f.mu.Lock()
	f.attempts++
	attempt := f.attempts
	f.submits = append(f.submits, items)
	f.mu.Unlock()

	if f.submit != nil {
		return f.submit(attempt, items)
	}
	return fmt.Sprintf("sig-%d", attempt), nil
}

func (f *fakeBackend) CheckDelegation(_ context.Context, wallet, token, delegate string) (*entity.DelegationInfo, error) {
	key := pairKey(wallet, token)
	f.mu.Lock()
	f.checked = append(f.checked, key+"@"+delegate)
	f.mu.Unlock()
	if f.onCheck != nil {
		f.onCheck(key)
	}
	if err := f.delegationErr[key]; err != nil {
		return nil, err
	}
	return f.delegations[key], nil
}

func (f *fakeBackend) GetBalance(_ context.Context, wallet, token string) (*entity.BalanceInfo, error) {
	b, ok := f.balances[pairKey(wallet, token)]
	if !ok {
		return nil, errors.New("balance not found")
	}
	return b, nil
}

func (f *fakeBackend) submitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.submits)
}

type fakeSigner struct{ id string }

func (s fakeSigner) PublicIdentity() string { return s.id }

type fakeSignerProvider struct {
	signer port.Signer
	err    error
}

func (p fakeSignerProvider) Connect(context.Context) (port.Signer, error) { return p.signer, p.err }

// fakeWriter records every status update it receives.
type fakeWriter struct {
	mu      sync.Mutex
	err     error
	missing map[string]bool // wallets reported as not found
	calls   [][]entity.ExecutionStatusUpdate
	ctxErrs []error
}

func (w *fakeWriter) ApplyStatusUpdates(ctx context.Context, updates []entity.ExecutionStatusUpdate) (entity.ApplyStatusResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = append(w.calls, updates)
	w.ctxErrs = append(w.ctxErrs, ctx.Err())
	if w.err != nil {
		return entity.ApplyStatusResult{}, w.err
	}
	var res entity.ApplyStatusResult
	for _, u := range updates {
		if w.missing[u.WalletAddress] {
			res.Add(u, entity.ErrWalletNotFound)
			continue
		}
		res.Add(u, nil)
	}
	return res, nil
}

func (w *fakeWriter) all() []entity.ExecutionStatusUpdate {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []entity.ExecutionStatusUpdate
	for _, c := range w.calls {
		out = append(out, c...)
	}
	return out
}

// memJournal is an in-memory port.SignatureJournal.
type memJournal struct {
	mu      sync.Mutex
	entries []entity.JournalEntry
	err     error
}

func (j *memJournal) Record(_ context.Context, e entity.JournalEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return j.err
	}
	j.entries = append(j.entries, e)
	return nil
}

func (j *memJournal) MarkReconciled(_ context.Context, sigs []string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	set := make(map[string]bool, len(sigs))
	for _, s := range sigs {
		set[s] = true
	}
	for i := range j.entries {
		if set[j.entries[i].Signature] {
			j.entries[i].Reconciled = true
		}
	}
	return nil
}

func (j *memJournal) Unreconciled(context.Context) ([]entity.JournalEntry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []entity.JournalEntry
	for _, e := range j.entries {
		if !e.Reconciled {
			out = append(out, e)
		}
	}
	return out, nil
}

func (j *memJournal) reconciled(sig string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, e := range j.entries {
		if e.Signature == sig {
			return e.Reconciled
		}
	}
	return false
}

// countingMetrics counts calls per method.
type countingMetrics struct {
	mu        sync.Mutex
	submitted int
	failed    map[string]int
	items     int
	retries   int
	statusOK  int
	statusBad int
}

func newCountingMetrics() *countingMetrics { return &countingMetrics{failed: map[string]int{}} }

func (m *countingMetrics) BatchSubmitted(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitted++
}

func (m *countingMetrics) BatchFailed(_, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed[reason]++
}

func (m *countingMetrics) ItemsTransferred(_ string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items += n
}

func (m *countingMetrics) RetryAttempt(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retries++
}

func (m *countingMetrics) StatusUpdates(_ string, ok, bad int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusOK += ok
	m.statusBad += bad
}

func wallets(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("W%02d", i)
	}
	return out
}

func candidates(walletList []string, tokens ...string) []entity.CandidatePair {
	out := make([]entity.CandidatePair, 0, len(walletList))
	for _, w := range walletList {
		out = append(out, entity.CandidatePair{WalletAddress: w, TokenAddresses: tokens})
	}
	return out
}
