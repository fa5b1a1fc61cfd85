package signer

import (
	"context"
	"crypto/ecdsa"
	"crypto/sha256"
	"fmt"
	"strings"

	"batch_transfer/internal/domain/entity"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/fbsobreira/gotron-sdk/pkg/address"
	"github.com/fbsobreira/gotron-sdk/pkg/proto/core"
	"google.golang.org/protobuf/proto"
)

// TronSigner signs Tron transactions with a local secp256k1 key.
type TronSigner struct {
	key     *ecdsa.PrivateKey
	address string
}

// NewTronSigner builds a signer from a hex encoded private key.
func NewTronSigner(hexKey string) (*TronSigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: parse tron key: %v", entity.ErrSignerUnavailable, err)
	}
	return &TronSigner{key: key, address: address.PubkeyToAddress(key.PublicKey).String()}, nil
}

func (s *TronSigner) PublicIdentity() string { return s.address }

// SignTronTx appends the signature of sha256(raw_data) to tx.
func (s *TronSigner) SignTronTx(ctx context.Context, tx *core.Transaction) (*core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if tx == nil || tx.GetRawData() == nil {
		return nil, fmt.Errorf("sign tron tx: empty transaction")
	}
	raw, err := proto.Marshal(tx.GetRawData())
	if err != nil {
		return nil, fmt.Errorf("sign tron tx: marshal raw data: %w", err)
	}
	h := sha256.Sum256(raw)
	sig, err := crypto.Sign(h[:], s.key)
	if err != nil {
		return nil, fmt.Errorf("sign tron tx: %w", err)
	}
	tx.Signature = append(tx.Signature, sig)
	return tx, nil
}
