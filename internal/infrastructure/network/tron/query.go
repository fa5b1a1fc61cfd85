package tron

import (
	"context"
	"fmt"
	"math/big"

	"batch_transfer/internal/domain/entity"

	"github.com/fbsobreira/gotron-sdk/pkg/common"
)

// CheckDelegation reads the TRC-20 allowance the wallet granted to delegate.
// An empty delegate means the batch contract.
func (a *Adapter) CheckDelegation(_ context.Context, wallet, token, delegate string) (*entity.DelegationInfo, error) {
	if delegate == "" {
		delegate = a.contract
	}
	owner, err := decodeAddress(wallet)
	if err != nil {
		return nil, err
	}
	spender, err := decodeAddress(delegate)
	if err != nil {
		return nil, err
	}
	if err := a.ValidateAddress(token); err != nil {
		return nil, err
	}

	data, err := parsedTRC20ABI.Pack("allowance", toABIAddress(owner), toABIAddress(spender))
	if err != nil {
		return nil, fmt.Errorf("pack allowance: %w", err)
	}
	result, err := a.client.TRC20Call("", token, common.BytesToHexString(data), true, 0)
	if err != nil {
		return nil, fmt.Errorf("TRC20 allowance call: %w", err)
	}
	if len(result.GetConstantResult()) == 0 {
		return nil, fmt.Errorf("TRC20 allowance call: empty constant result for %s", token)
	}
	amount, err := a.client.ParseTRC20NumericProperty(common.BytesToHexString(result.GetConstantResult()[0]))
	if err != nil {
		return nil, fmt.Errorf("parse allowance of %s: %w", token, err)
	}
	if amount == nil {
		amount = new(big.Int)
	}
	return &entity.DelegationInfo{
		IsDelegated:     amount.Sign() > 0,
		DelegatedAmount: amount,
		Delegate:        delegate,
	}, nil
}

// GetBalance reads the TRC-20 balance and decimals of wallet.
func (a *Adapter) GetBalance(_ context.Context, wallet, token string) (*entity.BalanceInfo, error) {
	if err := a.ValidateAddress(wallet); err != nil {
		return nil, err
	}
	if err := a.ValidateAddress(token); err != nil {
		return nil, err
	}
	balance, err := a.client.TRC20ContractBalance(wallet, token)
	if err != nil {
		return nil, fmt.Errorf("TRC20 balance of %s for %s: %w", token, wallet, err)
	}
	info := &entity.BalanceInfo{Balance: balance, Decimals: a.def.Decimals()}
	if d, err := a.client.TRC20GetDecimals(token); err == nil && d != nil && d.IsInt64() {
		info.Decimals = int(d.Int64())
	}
	return info, nil
}
