package evm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"batch_transfer/internal/app/port"
	"batch_transfer/internal/domain/entity"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// gasBufferPercent is added on top of the node's gas estimate.
const gasBufferPercent = 20

// SubmitAndConfirm sends one Permit2 transferFrom carrying every instruction and waits for its receipt.
func (a *Adapter) SubmitAndConfirm(ctx context.Context, instructions []port.Instruction, s port.Signer) (string, error) {
	signer, ok := s.(TxSigner)
	if !ok {
		return "", fmt.Errorf("%w: %T", entity.ErrUnsupportedSigner, s)
	}
	if len(instructions) == 0 {
		return "", fmt.Errorf("%w: empty batch", entity.ErrInvalidAmount)
	}

	details := make([]AllowanceTransferDetails, 0, len(instructions))
	for _, ix := range instructions {
		ti, ok := ix.(transferInstruction)
		if !ok {
			return "", fmt.Errorf("foreign instruction %T", ix)
		}
		details = append(details, ti.details)
	}
	data, err := PackTransferFrom(details)
	if err != nil {
		return "", fmt.Errorf("pack transferFrom: %w", err)
	}

	from := signer.Address()
	prev := a.unconfirmed(from)
	tx, err := a.buildTx(ctx, from, data, prev)
	if err != nil {
		return "", err
	}
	signed, err := signer.SignTx(ctx, tx, a.chainID)
	if err != nil {
		return "", mapError(err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, a.opts.RPCCallTimeout)
	err = a.backend.SendTransaction(sendCtx, signed)
	cancel()
	if err != nil {
		if prev != nil && nonceConsumed(err) {
			// The nonce was taken by an earlier attempt, look for its receipt.
			return a.settle(ctx, from, prev.attempts, data, err)
		}
		return "", mapError(fmt.Errorf("send transaction: %w", err))
	}

	watch := []sentTx{{hash: signed.Hash(), data: data}}
	if prev != nil {
		watch = append(watch, prev.attempts...)
	}
	receipt, landed, err := a.waitMined(ctx, watch)
	if errors.Is(err, entity.ErrConfirmationTimeout) {
		a.remember(from, unconfirmedTx{nonce: signed.Nonce(), tip: signed.GasTipCap(), feeCap: signed.GasFeeCap(), attempts: watch})
		return "", err
	}
	if err != nil {
		return "", err
	}
	a.forget(from)
	return finish(receipt, landed, data)
}

// buildTx prepares the transaction. With prev set it reuses the unconfirmed nonce and bumps
// the fees so the node accepts it as a replacement.
func (a *Adapter) buildTx(ctx context.Context, from common.Address, data []byte, prev *unconfirmedTx) (*types.Transaction, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.opts.RPCCallTimeout)
	defer cancel()

	var nonce uint64
	if prev != nil {
		nonce = prev.nonce
	} else {
		n, err := a.backend.PendingNonceAt(callCtx, from)
		if err != nil {
			return nil, fmt.Errorf("get nonce: %w", err)
		}
		nonce = n
	}

	gas, err := a.backend.EstimateGas(callCtx, ethereum.CallMsg{From: from, To: &a.permit2, Data: data})
	if err != nil {
		return nil, mapError(fmt.Errorf("estimate gas: %w", err))
	}
	gas += gas * gasBufferPercent / 100

	head, err := a.backend.HeaderByNumber(callCtx, nil)
	if err != nil {
		return nil, fmt.Errorf("get latest header: %w", err)
	}

	// Pre-London networks fall back to a legacy transaction.
	if head.BaseFee == nil {
		gasPrice, err := a.backend.SuggestGasPrice(callCtx)
		if err != nil {
			return nil, fmt.Errorf("suggest gas price: %w", err)
		}
		if prev != nil {
			gasPrice = maxBig(gasPrice, bumpFee(prev.feeCap))
		}
		return types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			GasPrice: gasPrice,
			Gas:      gas,
			To:       &a.permit2,
			Value:    new(big.Int),
			Data:     data,
		}), nil
	}

	tip, err := a.backend.SuggestGasTipCap(callCtx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas tip: %w", err)
	}
	if prev != nil {
		tip = maxBig(tip, bumpFee(prev.tip))
	}
	feeCap := new(big.Int).Add(new(big.Int).Mul(head.BaseFee, big.NewInt(2)), tip)
	if prev != nil {
		feeCap = maxBig(feeCap, bumpFee(prev.feeCap))
	}

	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   a.chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &a.permit2,
		Value:     new(big.Int),
		Data:      data,
	}), nil
}

// waitMined polls the receipts of every attempt sharing one nonce until one of them is
// mined or ConfirmTimeout elapses.
func (a *Adapter) waitMined(ctx context.Context, attempts []sentTx) (*types.Receipt, sentTx, error) {
	ctx, cancel := context.WithTimeout(ctx, a.opts.ConfirmTimeout)
	defer cancel()

	ticker := time.NewTicker(a.opts.PollInterval)
	defer ticker.Stop()

	for {
		for _, at := range attempts {
			receipt, err := a.backend.TransactionReceipt(ctx, at.hash)
			if err == nil && receipt != nil {
				return receipt, at, nil
			}
			if err != nil && !errors.Is(err, ethereum.NotFound) && ctx.Err() == nil {
				return nil, sentTx{}, fmt.Errorf("get receipt %s: %w", at.hash.Hex(), err)
			}
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, sentTx{}, fmt.Errorf("%w: %s", entity.ErrConfirmationTimeout, attempts[0].hash.Hex())
			}
			return nil, sentTx{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

// settle resolves a send rejected because an earlier attempt already used the nonce.
func (a *Adapter) settle(ctx context.Context, from common.Address, attempts []sentTx, data []byte, sendErr error) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.opts.RPCCallTimeout)
	defer cancel()
	for _, at := range attempts {
		receipt, err := a.backend.TransactionReceipt(callCtx, at.hash)
		if err == nil && receipt != nil {
			a.forget(from)
			return finish(receipt, at, data)
		}
	}
	// Still pending somewhere, keep the attempts for the next retry.
	return "", fmt.Errorf("%w: send transaction: %v", entity.ErrConfirmationTimeout, sendErr)
}

func finish(receipt *types.Receipt, landed sentTx, data []byte) (string, error) {
	if !bytes.Equal(landed.data, data) {
		return "", fmt.Errorf("%w: nonce used by earlier transaction %s", entity.ErrTransactionFailed, landed.hash.Hex())
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return "", fmt.Errorf("%w: %s reverted in block %v", entity.ErrTransactionFailed, landed.hash.Hex(), receipt.BlockNumber)
	}
	return landed.hash.Hex(), nil
}

func nonceConsumed(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "nonce too low") || strings.Contains(msg, "already known")
}
