package port

import (
	"context"

	"batch_transfer/internal/domain/entity"
)

// Instruction is a chain-native transfer operation built for one TransferItem.
// It is only meaningful to the adapter that built it.
type Instruction interface {
	Item() entity.TransferItem
}

// ChainAdapter is the small per-chain surface the generic engine is written against.
type ChainAdapter interface {
	// Definition returns the network this adapter talks to.
	Definition() entity.NetworkDefinition

	// DefaultDelegate returns the account whose delegation a run checks when signerIdentity signs it.
	DefaultDelegate(signerIdentity string) string

	// ValidateAddress checks that address is well-formed for the chain.
	ValidateAddress(address string) error

	// CanDeriveAccount reports whether a token account can be derived for owner under token.
	// The answer is deterministic and must not touch the network.
	CanDeriveAccount(owner, token string) bool

	// DeriveAccount resolves the chain account holding token for owner.
	DeriveAccount(ctx context.Context, owner, token string) (string, error)

	// BuildTransferInstruction builds the native instruction moving item on behalf of authority.
	BuildTransferInstruction(item entity.TransferItem, authority string) (Instruction, error)

	// SubmitAndConfirm packs instructions into one transaction in order, attaches a fresh
	// freshness token, signs it with signer and waits for confirmation. It performs exactly
	// one attempt and returns the transaction signature.
	SubmitAndConfirm(ctx context.Context, instructions []Instruction, signer Signer) (string, error)
}

// DelegationChecker queries live delegation/allowance state.
type DelegationChecker interface {
	// CheckDelegation returns nil when nothing is known about the pair.
	CheckDelegation(ctx context.Context, wallet, token, delegate string) (*entity.DelegationInfo, error)
}

// BalanceQuery queries live token balances.
type BalanceQuery interface {
	GetBalance(ctx context.Context, wallet, token string) (*entity.BalanceInfo, error)
}

// ChainBackend bundles everything the engine needs from one chain.
type ChainBackend interface {
	ChainAdapter
	DelegationChecker
	BalanceQuery
}

// ChainBackendProvider hands out chain backends by network identifier.
type ChainBackendProvider interface {
	GetBackend(ctx context.Context, identifier string) (ChainBackend, error)
}
