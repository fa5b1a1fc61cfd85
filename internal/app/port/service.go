package port

import (
	"context"

	"batch_transfer/internal/domain/entity"
)

// BatchTransferService runs the delegated batch transfer workflow for one chain.
type BatchTransferService interface {
	// Execute returns an error only when the run could not start (no signer, invalid receiver).
	// Per-item problems are reported inside the result.
	Execute(ctx context.Context, req entity.ExecutionRequest) (*entity.BatchTransferResult, error)

	// ChainID returns the chain the service executes on.
	ChainID() string
}

// TransferMetrics records engine activity.
type TransferMetrics interface {
	BatchSubmitted(chain string)
	BatchFailed(chain, reason string)
	ItemsTransferred(chain string, n int)
	RetryAttempt(chain string)
	StatusUpdates(chain string, successful, failed int)
}
