package service

import (
	"context"
	"fmt"
	"time"

	"batch_transfer/internal/app/port"
	"batch_transfer/internal/domain/entity"
)

// BatchExecutor signs, submits and confirms one batch at a time with bounded retries.
type BatchExecutor struct {
	adapter port.ChainAdapter
	policy  RetryPolicy
	logger  port.Logger
	metrics port.TransferMetrics
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewBatchExecutor creates an executor using the adapter for the actual submission.
func NewBatchExecutor(adapter port.ChainAdapter, policy RetryPolicy, l port.Logger, m port.TransferMetrics) *BatchExecutor {
	if m == nil {
		m = NopMetrics{}
	}
	return &BatchExecutor{
		adapter: adapter,
		policy:  policy,
		logger:  l,
		metrics: m,
		sleep:   sleepContext,
	}
}

// Execute runs the batch. The outcome applies to every item of the batch.
func (e *BatchExecutor) Execute(ctx context.Context, batch entity.Batch, totalBatches int, signer port.Signer) entity.BatchOutcome {
	chain := e.adapter.Definition().Identifier
	outcome := entity.BatchOutcome{BatchIndex: batch.Index}

	instructions := make([]port.Instruction, 0, len(batch.Items))
	for _, item := range batch.Items {
		ix, err := e.adapter.BuildTransferInstruction(item, signer.PublicIdentity())
		if err != nil {
			outcome.Err = fmt.Errorf("build instruction for %s/%s: %w", item.OriginWalletAddress, item.TokenIdentifier, err)
			e.metrics.BatchFailed(chain, "build")
			return outcome
		}
		instructions = append(instructions, ix)
	}

	maxAttempts := e.policy.attempts()
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		outcome.Attempts = attempt
		e.logger.Info("Executing batch",
			"chain", chain, "batch", batch.Index+1, "total_batches", totalBatches,
			"items", len(batch.Items), "attempt", attempt, "max_attempts", maxAttempts)
		e.metrics.BatchSubmitted(chain)

		sig, err := e.adapter.SubmitAndConfirm(ctx, instructions, signer)
		if err == nil {
			outcome.Signature = sig
			outcome.SucceededItems = batch.Items
			e.metrics.ItemsTransferred(chain, len(batch.Items))
			e.logger.Info("Batch confirmed", "chain", chain, "batch", batch.Index+1, "signature", sig, "attempt", attempt)
			return outcome
		}
		lastErr = err

		decision := Classify(err)
		if !decision.Retryable(e.policy) {
			e.logger.Error("Batch failed, not retrying",
				"chain", chain, "batch", batch.Index+1, "attempt", attempt, "class", decision.Class, "reason", decision.Reason, "error", err)
			break
		}
		if attempt == maxAttempts {
			e.logger.Error("Batch failed, retries exhausted", "chain", chain, "batch", batch.Index+1, "attempts", attempt, "error", err)
			break
		}

		wait := e.policy.Backoff(attempt)
		e.logger.Warn("Batch attempt failed, retrying",
			"chain", chain, "batch", batch.Index+1, "attempt", attempt, "retry_in", wait.String(), "error", err)
		e.metrics.RetryAttempt(chain)
		if err := e.sleep(ctx, wait); err != nil {
			lastErr = fmt.Errorf("%w: %v", entity.ErrRunCancelled, lastErr)
			break
		}
	}

	outcome.Err = lastErr
	e.metrics.BatchFailed(chain, Classify(lastErr).Reason)
	return outcome
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NopMetrics discards all metrics.
type NopMetrics struct{}

func (NopMetrics) BatchSubmitted(string)          {}
func (NopMetrics) BatchFailed(string, string)     {}
func (NopMetrics) ItemsTransferred(string, int)   {}
func (NopMetrics) RetryAttempt(string)            {}
func (NopMetrics) StatusUpdates(string, int, int) {}
