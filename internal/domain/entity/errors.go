package entity

import "errors"

// Validation and derivation failures. These are deterministic and never retried.
var (
	ErrInvalidAddress    = errors.New("invalid address")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrAccountDerivation = errors.New("account derivation failed")
	ErrInvalidStatus     = errors.New("invalid execution status")
)

// Execution failures reported by chain adapters and signers.
var (
	ErrSignerUnavailable     = errors.New("signer unavailable")
	ErrSignerRejected        = errors.New("signer rejected the transaction")
	ErrUnsupportedSigner     = errors.New("signer does not support this chain")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrInsufficientAllowance = errors.New("insufficient allowance or delegation")
	ErrTransactionFailed     = errors.New("transaction failed on chain")
	ErrConfirmationTimeout   = errors.New("transaction confirmation timeout")
	ErrRunCancelled          = errors.New("run cancelled")
)

// Persistence failures.
var (
	ErrWalletNotFound  = errors.New("Wallet not found")
	ErrTokenNotPending = errors.New("Token not found or not in pending status")
	ErrNoWallets       = errors.New("No wallets found for this chain ID")
)
