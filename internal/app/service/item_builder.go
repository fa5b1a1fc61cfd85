package service

import (
	"context"
	"fmt"
	"strings"

	"batch_transfer/internal/app/port"
	"batch_transfer/internal/domain/entity"
	"batch_transfer/internal/pkg/utils"
)

// TransferItemBuilder resolves TransferRequests into chain-native TransferItems.
type TransferItemBuilder struct {
	adapter port.ChainAdapter
	compat  *AddressCompatibilityChecker
	logger  port.Logger
}

// NewTransferItemBuilder creates a builder for the adapter's chain.
func NewTransferItemBuilder(adapter port.ChainAdapter, compat *AddressCompatibilityChecker, l port.Logger) *TransferItemBuilder {
	return &TransferItemBuilder{adapter: adapter, compat: compat, logger: l}
}

// Build turns one request into an item. A non-nil error is a skip reason, never a partial item.
func (b *TransferItemBuilder) Build(ctx context.Context, req entity.TransferRequest, receiver string) (entity.TransferItem, error) {
	wallet := strings.TrimSpace(req.WalletAddress)
	token := strings.TrimSpace(req.TokenAddress)
	receiver = strings.TrimSpace(receiver)

	for _, check := range []struct{ role, addr string }{
		{"wallet", wallet},
		{"token", token},
		{"receiver", receiver},
	} {
		if err := b.adapter.ValidateAddress(check.addr); err != nil {
			return entity.TransferItem{}, fmt.Errorf("invalid %s address %q: %w", check.role, check.addr, err)
		}
	}

	if err := b.compat.CheckPair(wallet, receiver, token); err != nil {
		return entity.TransferItem{}, err
	}

	source, err := b.adapter.DeriveAccount(ctx, wallet, token)
	if err != nil {
		b.logger.Warn("Failed to derive source account", "wallet", wallet, "token", token, "error", err)
		return entity.TransferItem{}, fmt.Errorf("derive source account: %w", err)
	}
	destination, err := b.adapter.DeriveAccount(ctx, receiver, token)
	if err != nil {
		b.logger.Warn("Failed to derive destination account", "receiver", receiver, "token", token, "error", err)
		return entity.TransferItem{}, fmt.Errorf("derive destination account: %w", err)
	}

	decimals := b.adapter.Definition().Decimals()
	if req.Decimals != nil {
		decimals = *req.Decimals
	}
	amount, err := utils.ToBaseUnits(req.Amount, decimals)
	if err != nil {
		return entity.TransferItem{}, fmt.Errorf("%w: %v", entity.ErrInvalidAmount, err)
	}

	return entity.TransferItem{
		SourceAccount:       source,
		DestinationAccount:  destination,
		TokenIdentifier:     token,
		AmountBaseUnits:     amount,
		OriginWalletAddress: wallet,
	}, nil
}
