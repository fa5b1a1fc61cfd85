package spl

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"batch_transfer/internal/domain/entity"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
)

// CheckDelegation decodes the wallet's associated token account and compares its delegate.
func (a *Adapter) CheckDelegation(ctx context.Context, wallet, mint, delegate string) (*entity.DelegationInfo, error) {
	delegateKey, err := parseKey(delegate)
	if err != nil {
		return nil, err
	}
	ata, err := a.associatedAccount(wallet, mint)
	if err != nil {
		return nil, err
	}

	out, err := a.client.GetAccountInfo(ctx, ata)
	if errors.Is(err, rpc.ErrNotFound) {
		return &entity.DelegationInfo{DelegatedAmount: new(big.Int)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get token account %s: %w", ata, err)
	}
	if out == nil || out.Value == nil || out.Value.Data == nil {
		return &entity.DelegationInfo{DelegatedAmount: new(big.Int)}, nil
	}

	var acc token.Account
	if err := bin.NewBinDecoder(out.Value.Data.GetBinary()).Decode(&acc); err != nil {
		return nil, fmt.Errorf("decode token account %s: %w", ata, err)
	}

	info := &entity.DelegationInfo{DelegatedAmount: new(big.Int)}
	if acc.Delegate == nil {
		return info, nil
	}
	info.Delegate = acc.Delegate.String()
	if acc.Delegate.Equals(delegateKey) {
		info.DelegatedAmount.SetUint64(acc.DelegatedAmount)
		info.IsDelegated = acc.DelegatedAmount > 0
	}
	return info, nil
}

// GetBalance reads the balance of the wallet's associated token account.
// A missing account has a zero balance.
func (a *Adapter) GetBalance(ctx context.Context, wallet, mint string) (*entity.BalanceInfo, error) {
	ata, err := a.associatedAccount(wallet, mint)
	if err != nil {
		return nil, err
	}
	out, err := a.client.GetTokenAccountBalance(ctx, ata, rpc.CommitmentConfirmed)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) || strings.Contains(strings.ToLower(err.Error()), "could not find account") {
			return &entity.BalanceInfo{Balance: new(big.Int), Decimals: a.def.Decimals()}, nil
		}
		return nil, fmt.Errorf("get token balance %s: %w", ata, err)
	}
	if out == nil || out.Value == nil {
		return &entity.BalanceInfo{Balance: new(big.Int), Decimals: a.def.Decimals()}, nil
	}

	balance, ok := new(big.Int).SetString(out.Value.Amount, 10)
	if !ok {
		return nil, fmt.Errorf("invalid token amount %q for %s", out.Value.Amount, ata)
	}
	return &entity.BalanceInfo{Balance: balance, Decimals: int(out.Value.Decimals)}, nil
}
