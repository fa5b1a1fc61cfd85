package port

import (
	"context"

	"batch_transfer/internal/domain/entity"
)

// StatusWriter persists execution status updates.
type StatusWriter interface {
	// ApplyStatusUpdates applies every update independently and reports per-update outcomes.
	// A non-nil error means the store could not be reached at all.
	ApplyStatusUpdates(ctx context.Context, updates []entity.ExecutionStatusUpdate) (entity.ApplyStatusResult, error)
}

// StatusStore is the CRUD collaborator holding per-wallet execution state.
type StatusStore interface {
	StatusWriter

	// ListPendingCandidates returns the pairs whose status is exactly pending.
	ListPendingCandidates(ctx context.Context, chainID string) ([]entity.CandidatePair, error)

	// ResetTokenStatus moves one pending token back to new.
	ResetTokenStatus(ctx context.Context, walletAddress, tokenAddress, chainID string) error

	// ResetAllPending moves every pending token of a chain back to new.
	ResetAllPending(ctx context.Context, chainID string) (entity.ResetSummary, error)
}

// SignatureJournal is a durable log of confirmed transaction signatures.
type SignatureJournal interface {
	Record(ctx context.Context, entry entity.JournalEntry) error
	MarkReconciled(ctx context.Context, signatures []string) error
	Unreconciled(ctx context.Context) ([]entity.JournalEntry, error)
}

// CandidateProvider supplies the wallet/token pairs of one run.
type CandidateProvider interface {
	GetCandidates(ctx context.Context) ([]entity.CandidatePair, error)
}
