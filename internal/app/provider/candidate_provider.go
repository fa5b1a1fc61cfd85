package provider

import (
	"context"

	"batch_transfer/internal/app/port"
	"batch_transfer/internal/domain/entity"
	"batch_transfer/internal/infrastructure/candidateloader"
)

type fileCandidateProvider struct {
	filePath string
	logger   port.Logger
}

// NewFileCandidateProvider reads candidates from a JSON or text file on every call.
func NewFileCandidateProvider(filePath string, logger port.Logger) port.CandidateProvider {
	return &fileCandidateProvider{filePath: filePath, logger: logger}
}

// GetCandidates loads candidate pairs from the configured file.
func (p *fileCandidateProvider) GetCandidates(ctx context.Context) ([]entity.CandidatePair, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.logger.Debug("Loading candidates from file", "path", p.filePath)
	pairs, err := candidateloader.LoadCandidates(p.filePath, p.logger.Info)
	if err != nil {
		p.logger.Error("Failed to load candidates", "path", p.filePath, "error", err)
		return nil, err
	}
	return pairs, nil
}

type storeCandidateProvider struct {
	store   port.StatusStore
	chainID string
	logger  port.Logger
}

// NewStoreCandidateProvider returns the pending pairs of chainID from the status store.
func NewStoreCandidateProvider(store port.StatusStore, chainID string, logger port.Logger) port.CandidateProvider {
	return &storeCandidateProvider{store: store, chainID: chainID, logger: logger}
}

// GetCandidates lists the pending candidates of the chain.
func (p *storeCandidateProvider) GetCandidates(ctx context.Context) ([]entity.CandidatePair, error) {
	pairs, err := p.store.ListPendingCandidates(ctx, p.chainID)
	if err != nil {
		p.logger.Error("Failed to list pending candidates", "chainId", p.chainID, "error", err)
		return nil, err
	}
	p.logger.Info("Pending candidates loaded", "count", len(pairs), "chainId", p.chainID)
	return pairs, nil
}
