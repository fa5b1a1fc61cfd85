package signer

import (
	"context"
	"fmt"

	"batch_transfer/internal/domain/entity"

	"github.com/gagliardetto/solana-go"
)

// SolanaSigner is the fee payer and delegate of SPL transfers.
type SolanaSigner struct {
	key solana.PrivateKey
}

// NewSolanaSigner builds a signer from a base58 private key.
func NewSolanaSigner(base58Key string) (*SolanaSigner, error) {
	key, err := solana.PrivateKeyFromBase58(base58Key)
	if err != nil {
		return nil, fmt.Errorf("%w: parse solana key: %v", entity.ErrSignerUnavailable, err)
	}
	return &SolanaSigner{key: key}, nil
}

// LoadSolanaKeygenFile reads a solana-keygen JSON key file.
func LoadSolanaKeygenFile(path string) (*SolanaSigner, error) {
	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read keygen file: %v", entity.ErrSignerUnavailable, err)
	}
	return &SolanaSigner{key: key}, nil
}

func (s *SolanaSigner) PublicIdentity() string { return s.key.PublicKey().String() }

func (s *SolanaSigner) PublicKey() solana.PublicKey { return s.key.PublicKey() }

// SignSolanaTx signs every signature slot that belongs to this key.
func (s *SolanaSigner) SignSolanaTx(ctx context.Context, tx *solana.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	own := s.key.PublicKey()
	_, err := tx.Sign(func(pk solana.PublicKey) *solana.PrivateKey {
		if pk.Equals(own) {
			return &s.key
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("sign solana tx: %w", err)
	}
	return nil
}
