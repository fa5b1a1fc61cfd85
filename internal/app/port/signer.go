package port

import "context"

// Signer is the capability of signing transactions for a fee-payer identity.
// Chain adapters require additional chain-specific methods and reject other signers.
type Signer interface {
	// PublicIdentity is the chain-native address of the fee payer.
	PublicIdentity() string
}

// SignerProvider acquires a signer for one run.
type SignerProvider interface {
	Connect(ctx context.Context) (Signer, error)
}
