package signer

import (
	"context"
	"fmt"
	"os"
	"strings"

	"batch_transfer/internal/app/port"
	"batch_transfer/internal/domain/entity"
)

// StaticProvider hands out one preloaded signer.
type StaticProvider struct {
	signer port.Signer
}

// NewStaticProvider wraps s. A nil signer makes every Connect fail.
func NewStaticProvider(s port.Signer) *StaticProvider {
	return &StaticProvider{signer: s}
}

// Connect implements port.SignerProvider.
func (p *StaticProvider) Connect(ctx context.Context) (port.Signer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p == nil || p.signer == nil {
		return nil, entity.ErrSignerUnavailable
	}
	return p.signer, nil
}

// PassphraseFunc returns the passphrase for an encrypted key file.
type PassphraseFunc func() (string, error)

// LoadFromFile loads the signer for a chain kind from keyFile.
// EVM accepts a geth keystore (JSON) or a raw hex key, Tron a raw hex key,
// Solana a solana-keygen file.
func LoadFromFile(kind entity.ChainKind, keyFile string, passphrase PassphraseFunc) (port.Signer, error) {
	if keyFile == "" {
		return nil, fmt.Errorf("%w: no key file configured", entity.ErrSignerUnavailable)
	}
	switch kind {
	case entity.ChainKindSolana:
		return LoadSolanaKeygenFile(keyFile)
	case entity.ChainKindTron:
		raw, err := readKey(keyFile)
		if err != nil {
			return nil, err
		}
		return NewTronSigner(raw)
	case entity.ChainKindEVM:
		raw, err := readKey(keyFile)
		if err != nil {
			return nil, err
		}
		if !strings.HasPrefix(raw, "{") {
			return NewEVMSigner(raw)
		}
		pass := ""
		if passphrase != nil {
			if pass, err = passphrase(); err != nil {
				return nil, fmt.Errorf("%w: read passphrase: %v", entity.ErrSignerUnavailable, err)
			}
		}
		return LoadEVMKeystore(keyFile, pass)
	}
	return nil, fmt.Errorf("%w: unsupported chain kind %q", entity.ErrSignerUnavailable, kind)
}

func readKey(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: read key file: %v", entity.ErrSignerUnavailable, err)
	}
	return strings.TrimSpace(string(data)), nil
}
