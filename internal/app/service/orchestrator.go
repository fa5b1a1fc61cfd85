package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"batch_transfer/internal/app/port"
	"batch_transfer/internal/domain/entity"
	"batch_transfer/internal/pkg/utils"

	"github.com/google/uuid"
)

// Reasons attached to pairs dropped by the delegation check.
const (
	ReasonNotDelegated       = "not delegated"
	ReasonBalanceUnavailable = "balance unavailable"
	ReasonZeroAmount         = "zero transferable amount"
)

// OrchestratorConfig tunes one orchestrator instance.
type OrchestratorConfig struct {
	RetryPolicy         RetryPolicy
	DelayBetweenBatches time.Duration
	// MaxItemsPerBatch overrides the network definition when positive.
	MaxItemsPerBatch int
}

// DefaultOrchestratorConfig is the Solana reference policy.
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		RetryPolicy:         DefaultRetryPolicy(),
		DelayBetweenBatches: 1200 * time.Millisecond,
	}
}

// DelegationBatchTransferOrchestrator drives one chain through
// connect -> check delegations -> execute batches -> update status.
type DelegationBatchTransferOrchestrator struct {
	backend    port.ChainBackend
	signers    port.SignerProvider
	reconciler *StatusReconciler
	limiter    *RateLimitedExecutor
	builder    *TransferItemBuilder
	executor   *BatchExecutor
	logger     port.Logger
	cfg        OrchestratorConfig

	sleep    func(ctx context.Context, d time.Duration) error
	newRunID func() string

	mu    sync.Mutex
	state entity.RunState
}

// NewDelegationBatchTransferOrchestrator wires the engine for one chain backend.
// The limiter is owned by this instance and only throttles delegation lookups.
func NewDelegationBatchTransferOrchestrator(
	backend port.ChainBackend,
	signers port.SignerProvider,
	reconciler *StatusReconciler,
	limiter *RateLimitedExecutor,
	l port.Logger,
	m port.TransferMetrics,
	cfg OrchestratorConfig,
) *DelegationBatchTransferOrchestrator {
	if limiter == nil {
		limiter = NewRateLimitedExecutor(0, 1, 1)
	}
	compat := NewAddressCompatibilityChecker(backend)
	return &DelegationBatchTransferOrchestrator{
		backend:    backend,
		signers:    signers,
		reconciler: reconciler,
		limiter:    limiter,
		builder:    NewTransferItemBuilder(backend, compat, l),
		executor:   NewBatchExecutor(backend, cfg.RetryPolicy, l, m),
		logger:     l,
		cfg:        cfg,
		sleep:      sleepContext,
		newRunID:   uuid.NewString,
		state:      entity.RunIdle,
	}
}

// ChainID implements port.BatchTransferService.
func (o *DelegationBatchTransferOrchestrator) ChainID() string {
	return o.backend.Definition().ChainID
}

// State returns the state of the current or last run.
func (o *DelegationBatchTransferOrchestrator) State() entity.RunState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *DelegationBatchTransferOrchestrator) setState(s entity.RunState) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

type walletTokenPair struct {
	wallet string
	token  string
}

type delegationCheck struct {
	pair     walletTokenPair
	checked  bool
	valid    *big.Int
	decimals int
	reason   string
}

// Execute implements port.BatchTransferService.
func (o *DelegationBatchTransferOrchestrator) Execute(ctx context.Context, req entity.ExecutionRequest) (*entity.BatchTransferResult, error) {
	def := o.backend.Definition()
	runID := o.newRunID()
	progress := req.OnProgress
	if progress == nil {
		progress = func(string, int, int) {}
	}
	log := &runLogger{Logger: o.logger, attrs: []any{"run_id", runID, "chain", def.Identifier}}

	o.setState(entity.RunConnectingWallet)
	progress(entity.PhaseConnecting, 0, entity.ProgressTotal)

	receiver := strings.TrimSpace(req.ReceiverAddress)
	if err := o.backend.ValidateAddress(receiver); err != nil {
		o.setState(entity.RunFailed)
		log.Error("Receiver address rejected", "receiver", receiver, "error", err)
		return nil, fmt.Errorf("invalid receiver address %q: %w", receiver, err)
	}

	signer, err := o.signers.Connect(ctx)
	if err == nil && signer == nil {
		err = entity.ErrSignerUnavailable
	}
	if err != nil {
		o.setState(entity.RunFailed)
		log.Error("Failed to connect signer", "error", err)
		return nil, fmt.Errorf("connect signer: %w", err)
	}
	executedBy := signer.PublicIdentity()
	log.Info("Signer connected", "signer", executedBy)

	progress(entity.PhasePreparing, 1, entity.ProgressTotal)
	pairs := flattenCandidates(req.Candidates)

	o.setState(entity.RunCheckingDelegations)
	progress(entity.PhaseDelegations, 2, entity.ProgressTotal)
	delegate := o.backend.DefaultDelegate(executedBy)
	log.Info("Checking delegations", "delegate", delegate, "pairs", len(pairs))
	checks := o.checkDelegations(ctx, pairs, delegate, func(done, total int) {
		progress(fmt.Sprintf("%s (%d/%d)", entity.PhaseDelegations, done, total), 2, entity.ProgressTotal)
	})

	result := entity.NewBatchTransferResult(runID, def.ChainID)
	var requests []entity.TransferRequest
	for _, c := range checks {
		if !c.checked {
			// Cut off by cancellation, so it counts as a failed transfer rather than an exclusion.
			result.AddSkipped(c.pair.wallet, c.pair.token, entity.ErrRunCancelled.Error())
			continue
		}
		if c.reason != "" {
			result.Excluded = append(result.Excluded, entity.ExcludedPair{
				WalletAddress: c.pair.wallet, TokenAddress: c.pair.token, Reason: c.reason,
			})
			continue
		}
		decimals := c.decimals
		requests = append(requests, entity.TransferRequest{
			WalletAddress: c.pair.wallet,
			TokenAddress:  c.pair.token,
			Amount:        utils.FormatBaseUnits(c.valid, decimals),
			Decimals:      &decimals,
		})
	}
	log.Info("Delegation check completed", "pairs", len(pairs), "transferable", len(requests),
		"excluded", len(result.Excluded), "cancelled", len(result.Results))

	o.setState(entity.RunExecutingTransfers)
	progress(entity.PhaseExecuting, 3, entity.ProgressTotal)

	if len(requests) == 0 {
		result.Finalize()
		if result.NoItems {
			log.Info("No delegated tokens to transfer")
		}
		o.setState(entity.RunCompleted)
		progress(entity.PhaseCompleted, entity.ProgressTotal, entity.ProgressTotal)
		return result, nil
	}

	o.executeTransfers(ctx, log, requests, receiver, signer, result, progress)
	result.Finalize()

	o.setState(entity.RunUpdatingStatus)
	progress(entity.PhaseUpdating, 4, entity.ProgressTotal)
	summary := o.reconciler.Reconcile(context.WithoutCancel(ctx), result, def.ChainID, executedBy)
	result.Reconciliation = &summary

	o.setState(entity.RunCompleted)
	progress(entity.PhaseCompleted, entity.ProgressTotal, entity.ProgressTotal)
	log.Info("Batch transfer completed",
		"success", result.Success, "total", result.TotalTransfers,
		"successful", result.SuccessfulTransfers, "failed", result.FailedTransfers,
		"signatures", len(result.TransactionSignatures),
		"status_updates_ok", summary.SuccessfulUpdates, "status_updates_failed", summary.FailedUpdates)
	return result, nil
}

func (o *DelegationBatchTransferOrchestrator) executeTransfers(
	ctx context.Context,
	log port.Logger,
	requests []entity.TransferRequest,
	receiver string,
	signer port.Signer,
	result *entity.BatchTransferResult,
	progress entity.ProgressFunc,
) {
	def := o.backend.Definition()
	items := make([]entity.TransferItem, 0, len(requests))
	for _, req := range requests {
		item, err := o.builder.Build(ctx, req, receiver)
		if err != nil {
			log.Warn("Skipping transfer", "wallet", req.WalletAddress, "token", req.TokenAddress, "reason", err)
			result.AddSkipped(req.WalletAddress, req.TokenAddress, err.Error())
			continue
		}
		items = append(items, item)
	}

	maxPerBatch := def.MaxItemsPerBatch
	if o.cfg.MaxItemsPerBatch > 0 {
		maxPerBatch = o.cfg.MaxItemsPerBatch
	}
	batches := SplitIntoBatches(items, maxPerBatch)
	log.Info("Prepared batches", "items", len(items), "batches", len(batches), "max_items_per_batch", maxPerBatch)

	done := 0
	for i, batch := range batches {
		if ctx.Err() != nil {
			log.Warn("Run cancelled, marking remaining batches as failed", "remaining_batches", len(batches)-i)
			for _, rest := range batches[i:] {
				result.AddOutcome(rest, entity.BatchOutcome{BatchIndex: rest.Index, Err: entity.ErrRunCancelled})
			}
			return
		}

		outcome := o.executor.Execute(ctx, batch, len(batches), signer)
		result.AddOutcome(batch, outcome)
		if outcome.Succeeded() {
			o.reconciler.RecordConfirmed(context.WithoutCancel(ctx), result.RunID, def.ChainID, signer.PublicIdentity(), batch, outcome.Signature)
		}

		done += len(batch.Items)
		progress(fmt.Sprintf("Executing batch %d/%d (%d/%d)", i+1, len(batches), done, len(items)), 3, entity.ProgressTotal)

		if i < len(batches)-1 && o.cfg.DelayBetweenBatches > 0 {
			if err := o.sleep(ctx, o.cfg.DelayBetweenBatches); err != nil && !errors.Is(err, context.Canceled) {
				log.Warn("Inter-batch delay interrupted", "error", err)
			}
		}
	}
}

// checkDelegations computes the transferable amount of every pair, keeping input order.
func (o *DelegationBatchTransferOrchestrator) checkDelegations(
	ctx context.Context,
	pairs []walletTokenPair,
	delegate string,
	onProgress func(done, total int),
) []delegationCheck {
	checks := make([]delegationCheck, len(pairs))
	for i, p := range pairs {
		checks[i] = delegationCheck{pair: p}
	}

	var mu sync.Mutex
	done := 0
	err := o.limiter.ForEach(ctx, len(pairs), func(ctx context.Context, i int) {
		c := o.checkPair(ctx, pairs[i], delegate)
		mu.Lock()
		checks[i] = c
		done++
		onProgress(done, len(pairs))
		mu.Unlock()
	})
	if err != nil {
		o.logger.Warn("Delegation check interrupted", "error", err)
	}
	return checks
}

func (o *DelegationBatchTransferOrchestrator) checkPair(ctx context.Context, p walletTokenPair, delegate string) delegationCheck {
	c := delegationCheck{pair: p, checked: true}

	info, err := o.backend.CheckDelegation(ctx, p.wallet, p.token, delegate)
	if err != nil {
		o.logger.Warn("Delegation lookup failed", "wallet", p.wallet, "token", p.token, "error", err)
	}
	if err != nil || info == nil || !info.IsDelegated {
		c.reason = ReasonNotDelegated
		return c
	}

	bal, err := o.backend.GetBalance(ctx, p.wallet, p.token)
	if err != nil {
		o.logger.Warn("Balance lookup failed", "wallet", p.wallet, "token", p.token, "error", err)
	}
	if err != nil || bal == nil || bal.Balance == nil {
		c.reason = ReasonBalanceUnavailable
		return c
	}

	c.decimals = bal.Decimals
	if c.decimals <= 0 {
		c.decimals = o.backend.Definition().Decimals()
	}
	c.valid = entity.MinAmount(bal.Balance, info.DelegatedAmount)
	if c.valid.Sign() <= 0 {
		c.reason = ReasonZeroAmount
	}
	return c
}

// flattenCandidates expands candidate rows into wallet/token pairs, dropping exact duplicates.
func flattenCandidates(rows []entity.CandidatePair) []walletTokenPair {
	seen := make(map[string]struct{})
	var pairs []walletTokenPair
	for _, row := range rows {
		wallet := strings.TrimSpace(row.WalletAddress)
		for _, token := range row.TokenAddresses {
			token = strings.TrimSpace(token)
			key := pairKey(wallet, token)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			pairs = append(pairs, walletTokenPair{wallet: wallet, token: token})
		}
	}
	return pairs
}

// runLogger prefixes every record with run attributes.
type runLogger struct {
	port.Logger
	attrs []any
}

func (l *runLogger) with(args []any) []any {
	return append(append(make([]any, 0, len(l.attrs)+len(args)), l.attrs...), args...)
}

func (l *runLogger) Info(msg string, args ...any)  { l.Logger.Info(msg, l.with(args)...) }
func (l *runLogger) Debug(msg string, args ...any) { l.Logger.Debug(msg, l.with(args)...) }
func (l *runLogger) Warn(msg string, args ...any)  { l.Logger.Warn(msg, l.with(args)...) }
func (l *runLogger) Error(msg string, args ...any) { l.Logger.Error(msg, l.with(args)...) }
