package service

import (
	"fmt"

	"batch_transfer/internal/app/port"
	"batch_transfer/internal/domain/entity"
)

// Skip reasons reported when a token account cannot be derived.
const (
	ReasonSourceNotCompatible   = "Source wallet not on curve for token"
	ReasonReceiverNotCompatible = "Receiver wallet not on curve for token"
)

// AddressCompatibilityChecker decides whether a transfer is constructible before it is queued.
type AddressCompatibilityChecker struct {
	adapter port.ChainAdapter
}

// NewAddressCompatibilityChecker creates a checker backed by the chain adapter.
func NewAddressCompatibilityChecker(adapter port.ChainAdapter) *AddressCompatibilityChecker {
	return &AddressCompatibilityChecker{adapter: adapter}
}

// Compatible reports whether a token account can be derived for owner under token.
func (c *AddressCompatibilityChecker) Compatible(owner, token string) bool {
	return c.adapter.CanDeriveAccount(owner, token)
}

// CheckPair verifies both sides of a transfer independently.
// The returned error wraps entity.ErrAccountDerivation and names the failing side.
func (c *AddressCompatibilityChecker) CheckPair(wallet, receiver, token string) error {
	if !c.Compatible(wallet, token) {
		return fmt.Errorf("%s: %w", ReasonSourceNotCompatible, entity.ErrAccountDerivation)
	}
	if !c.Compatible(receiver, token) {
		return fmt.Errorf("%s: %w", ReasonReceiverNotCompatible, entity.ErrAccountDerivation)
	}
	return nil
}
