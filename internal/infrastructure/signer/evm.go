package signer

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"os"
	"strings"

	"batch_transfer/internal/domain/entity"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// EVMSigner signs EIP-155 and EIP-1559 transactions with a local key.
type EVMSigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewEVMSigner builds a signer from a hex encoded private key.
func NewEVMSigner(hexKey string) (*EVMSigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: parse evm key: %v", entity.ErrSignerUnavailable, err)
	}
	return &EVMSigner{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

// LoadEVMKeystore decrypts a geth keystore file.
func LoadEVMKeystore(path, passphrase string) (*EVMSigner, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read keystore: %v", entity.ErrSignerUnavailable, err)
	}
	k, err := keystore.DecryptKey(data, passphrase)
	if err != nil {
		return nil, fmt.Errorf("%w: decrypt keystore: %v", entity.ErrSignerUnavailable, err)
	}
	return &EVMSigner{key: k.PrivateKey, address: k.Address}, nil
}

func (s *EVMSigner) PublicIdentity() string { return s.address.Hex() }

func (s *EVMSigner) Address() common.Address { return s.address }

// SignTx signs tx for chainID with the latest signer the chain supports.
func (s *EVMSigner) SignTx(ctx context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), s.key)
	if err != nil {
		return nil, fmt.Errorf("sign evm tx: %w", err)
	}
	return signed, nil
}
