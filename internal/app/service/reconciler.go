package service

import (
	"context"
	"strings"
	"time"

	"batch_transfer/internal/app/port"
	"batch_transfer/internal/domain/entity"
)

// StatusReconciler writes run outcomes back to the status store.
// Successful pairs become executed, failed pairs become pending. Nothing is rolled back.
type StatusReconciler struct {
	writer  port.StatusWriter
	journal port.SignatureJournal
	logger  port.Logger
	metrics port.TransferMetrics
	now     func() time.Time
}

// NewStatusReconciler creates a reconciler. journal may be nil.
func NewStatusReconciler(writer port.StatusWriter, journal port.SignatureJournal, l port.Logger, m port.TransferMetrics) *StatusReconciler {
	if m == nil {
		m = NopMetrics{}
	}
	return &StatusReconciler{
		writer:  writer,
		journal: journal,
		logger:  l,
		metrics: m,
		now:     time.Now,
	}
}

// BuildUpdates maps every result item to one status update.
func (r *StatusReconciler) BuildUpdates(result *entity.BatchTransferResult, chainID, executedBy string) []entity.ExecutionStatusUpdate {
	updates := make([]entity.ExecutionStatusUpdate, 0, len(result.Results))
	for _, it := range result.Results {
		u := entity.ExecutionStatusUpdate{
			WalletAddress: it.WalletAddress,
			TokenAddress:  it.TokenAddress,
			ChainID:       chainID,
			Status:        entity.StatusPending,
		}
		if it.Success {
			u.Status = entity.StatusExecuted
			u.TxHash = it.TxHash
			u.ExecutedBy = executedBy
		}
		updates = append(updates, u)
	}
	return updates
}

// RecordConfirmed journals a confirmed batch before its status is persisted.
func (r *StatusReconciler) RecordConfirmed(ctx context.Context, runID, chainID, executedBy string, batch entity.Batch, signature string) {
	if r.journal == nil {
		return
	}
	entry := entity.JournalEntry{
		RunID:      runID,
		ChainID:    chainID,
		Signature:  signature,
		ExecutedBy: executedBy,
		RecordedAt: r.now().UTC(),
		Items:      make([]entity.JournalItem, 0, len(batch.Items)),
	}
	for _, it := range batch.Items {
		entry.Items = append(entry.Items, entity.JournalItem{
			WalletAddress: it.OriginWalletAddress,
			TokenAddress:  it.TokenIdentifier,
		})
	}
	if err := r.journal.Record(ctx, entry); err != nil {
		r.logger.Error("Failed to journal confirmed signature", "signature", signature, "error", err)
	}
}

// Reconcile persists the outcome of a run. Persistence failures are logged and counted.
func (r *StatusReconciler) Reconcile(ctx context.Context, result *entity.BatchTransferResult, chainID, executedBy string) entity.ReconciliationSummary {
	updates := r.BuildUpdates(result, chainID, executedBy)
	if len(updates) == 0 {
		return entity.ReconciliationSummary{}
	}

	res, err := r.writer.ApplyStatusUpdates(ctx, updates)
	if err != nil {
		r.logger.Error("Failed to update execution status", "chain_id", chainID, "updates", len(updates), "error", err)
		r.metrics.StatusUpdates(chainID, 0, len(updates))
		return entity.ReconciliationSummary{FailedUpdates: len(updates), Error: err.Error()}
	}

	summary := entity.ReconciliationSummary{
		SuccessfulUpdates: res.SuccessfulUpdates,
		FailedUpdates:     res.FailedUpdates,
	}
	r.metrics.StatusUpdates(chainID, res.SuccessfulUpdates, res.FailedUpdates)
	for _, fr := range res.Results {
		if !fr.Success {
			r.logger.Warn("Status update failed", "wallet", fr.WalletAddress, "token", fr.TokenAddress, "status", fr.Status, "error", fr.Error)
		}
	}
	r.logger.Info("Execution status updated", "chain_id", chainID, "successful", res.SuccessfulUpdates, "failed", res.FailedUpdates)

	r.markReconciled(ctx, result, res)
	return summary
}

// markReconciled marks every signature whose executed updates all landed.
func (r *StatusReconciler) markReconciled(ctx context.Context, result *entity.BatchTransferResult, res entity.ApplyStatusResult) {
	if r.journal == nil || len(result.TransactionSignatures) == 0 {
		return
	}

	failed := make(map[string]bool)
	for _, fr := range res.Results {
		if !fr.Success {
			failed[pairKey(fr.WalletAddress, fr.TokenAddress)] = true
		}
	}
	landed := make(map[string]bool, len(result.TransactionSignatures))
	for _, sig := range result.TransactionSignatures {
		landed[sig] = true
	}
	for _, it := range result.Results {
		if it.Success && failed[pairKey(it.WalletAddress, it.TokenAddress)] {
			landed[it.TxHash] = false
		}
	}

	var sigs []string
	for _, sig := range result.TransactionSignatures {
		if landed[sig] {
			sigs = append(sigs, sig)
		}
	}
	if len(sigs) == 0 {
		return
	}
	if err := r.journal.MarkReconciled(ctx, sigs); err != nil {
		r.logger.Error("Failed to mark journal entries reconciled", "signatures", len(sigs), "error", err)
	}
}

func pairKey(wallet, token string) string {
	return strings.ToLower(strings.TrimSpace(wallet)) + "|" + entity.NormalizeTokenKey(token)
}
