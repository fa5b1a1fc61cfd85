package evm

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"batch_transfer/internal/domain/entity"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// CheckDelegation reads the Permit2 allowance of delegate and caps it by the ERC-20
// allowance the owner granted to Permit2 itself.
func (a *Adapter) CheckDelegation(ctx context.Context, wallet, token, delegate string) (*entity.DelegationInfo, error) {
	for _, addr := range []string{wallet, token, delegate} {
		if err := a.ValidateAddress(addr); err != nil {
			return nil, err
		}
	}
	owner, tokenAddr, spender := common.HexToAddress(wallet), common.HexToAddress(token), common.HexToAddress(delegate)

	callCtx, cancel := context.WithTimeout(ctx, a.opts.RPCCallTimeout)
	defer cancel()

	data, err := parsedPermit2ABI.Pack("allowance", owner, tokenAddr, spender)
	if err != nil {
		return nil, fmt.Errorf("pack allowance: %w", err)
	}
	raw, err := a.backend.CallContract(callCtx, ethereum.CallMsg{To: &a.permit2, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("permit2 allowance call: %w", err)
	}
	out, err := parsedPermit2ABI.Unpack("allowance", raw)
	if err != nil || len(out) != 3 {
		return nil, fmt.Errorf("unpack permit2 allowance: %v", err)
	}
	amount, _ := out[0].(*big.Int)
	expiration, _ := out[1].(*big.Int)
	if amount == nil {
		amount = new(big.Int)
	}

	info := &entity.DelegationInfo{Delegate: spender.Hex(), DelegatedAmount: amount}
	if expiration != nil {
		exp := time.Unix(expiration.Int64(), 0).UTC()
		info.Expiration = &exp
	}
	if amount.Sign() <= 0 || info.Expiration == nil || !info.Expiration.After(a.now()) {
		return info, nil
	}

	data, err = parsedERC20ABI.Pack("allowance", owner, a.permit2)
	if err != nil {
		return nil, fmt.Errorf("pack erc20 allowance: %w", err)
	}
	raw, err = a.backend.CallContract(callCtx, ethereum.CallMsg{To: &tokenAddr, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("erc20 allowance call: %w", err)
	}
	out, err = parsedERC20ABI.Unpack("allowance", raw)
	if err != nil || len(out) != 1 {
		return nil, fmt.Errorf("unpack erc20 allowance: %v", err)
	}
	tokenAllowance, _ := out[0].(*big.Int)

	info.DelegatedAmount = entity.MinAmount(amount, tokenAllowance)
	info.IsDelegated = info.DelegatedAmount.Sign() > 0
	return info, nil
}

// GetBalance fetches balanceOf and decimals in one JSON-RPC batch request.
func (a *Adapter) GetBalance(ctx context.Context, wallet, token string) (*entity.BalanceInfo, error) {
	if err := a.ValidateAddress(wallet); err != nil {
		return nil, err
	}
	if err := a.ValidateAddress(token); err != nil {
		return nil, err
	}
	tokenAddr := common.HexToAddress(token)

	balanceData, err := parsedERC20ABI.Pack("balanceOf", common.HexToAddress(wallet))
	if err != nil {
		return nil, fmt.Errorf("pack balanceOf: %w", err)
	}
	decimalsData, err := parsedERC20ABI.Pack("decimals")
	if err != nil {
		return nil, fmt.Errorf("pack decimals: %w", err)
	}

	batchElems := []rpc.BatchElem{
		{
			Method: "eth_call",
			Args:   []interface{}{map[string]interface{}{"to": tokenAddr, "data": hexutil.Bytes(balanceData)}, "latest"},
			Result: new(hexutil.Bytes),
		},
		{
			Method: "eth_call",
			Args:   []interface{}{map[string]interface{}{"to": tokenAddr, "data": hexutil.Bytes(decimalsData)}, "latest"},
			Result: new(hexutil.Bytes),
		},
	}

	rpcCallCtx, cancel := context.WithTimeout(ctx, a.opts.RPCCallTimeout)
	defer cancel()

	if err := a.batch.BatchCallContext(rpcCallCtx, batchElems); err != nil {
		return nil, fmt.Errorf("RPC batch call failed: %w", err)
	}
	if batchElems[0].Error != nil {
		return nil, fmt.Errorf("failed to fetch balance of %s for %s: %w", token, wallet, batchElems[0].Error)
	}

	info := &entity.BalanceInfo{Balance: new(big.Int), Decimals: a.def.Decimals()}
	if result, ok := batchElems[0].Result.(*hexutil.Bytes); ok && result != nil && len(*result) > 0 {
		unpacked, err := parsedERC20ABI.Unpack("balanceOf", *result)
		if err != nil || len(unpacked) == 0 {
			return nil, fmt.Errorf("failed to unpack balanceOf result for %s: %v. Raw: %s", token, err, hexutil.Encode(*result))
		}
		if balance, ok := unpacked[0].(*big.Int); ok {
			info.Balance = balance
		}
	}

	if batchElems[1].Error == nil {
		if result, ok := batchElems[1].Result.(*hexutil.Bytes); ok && result != nil && len(*result) > 0 {
			if unpacked, err := parsedERC20ABI.Unpack("decimals", *result); err == nil && len(unpacked) == 1 {
				if d, ok := unpacked[0].(uint8); ok {
					info.Decimals = int(d)
				}
			}
		}
	}
	return info, nil
}
