package spl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"batch_transfer/internal/app/port"
	"batch_transfer/internal/domain/entity"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// SubmitAndConfirm packs the instructions into one transaction with a fresh blockhash,
// signs it and waits until it is confirmed.
func (a *Adapter) SubmitAndConfirm(ctx context.Context, instructions []port.Instruction, s port.Signer) (string, error) {
	signer, ok := s.(TxSigner)
	if !ok {
		return "", fmt.Errorf("%w: %T", entity.ErrUnsupportedSigner, s)
	}
	if len(instructions) == 0 {
		return "", fmt.Errorf("%w: empty batch", entity.ErrInvalidAmount)
	}

	ixs := make([]solana.Instruction, 0, len(instructions))
	for _, ix := range instructions {
		ti, ok := ix.(transferInstruction)
		if !ok {
			return "", fmt.Errorf("foreign instruction %T", ix)
		}
		ixs = append(ixs, ti.ix)
	}

	latest, err := a.client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return "", fmt.Errorf("get latest blockhash: %w", err)
	}
	tx, err := solana.NewTransaction(ixs, latest.Value.Blockhash, solana.TransactionPayer(signer.PublicKey()))
	if err != nil {
		return "", fmt.Errorf("create transaction: %w", err)
	}
	if err := signer.SignSolanaTx(ctx, tx); err != nil {
		return "", mapError(err)
	}

	sig, err := a.client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return "", mapError(fmt.Errorf("send transaction: %w", err))
	}

	if err := a.waitConfirmed(ctx, sig); err != nil {
		return "", err
	}
	return sig.String(), nil
}

func (a *Adapter) waitConfirmed(ctx context.Context, sig solana.Signature) error {
	ctx, cancel := context.WithTimeout(ctx, a.opts.ConfirmTimeout)
	defer cancel()

	ticker := time.NewTicker(a.opts.PollInterval)
	defer ticker.Stop()

	for {
		out, err := a.client.GetSignatureStatuses(ctx, true, sig)
		if err == nil && out != nil && len(out.Value) > 0 && out.Value[0] != nil {
			st := out.Value[0]
			if st.Err != nil {
				return mapError(fmt.Errorf("%w: %s: %v", entity.ErrTransactionFailed, sig, st.Err))
			}
			if st.ConfirmationStatus == rpc.ConfirmationStatusConfirmed || st.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w: %s", entity.ErrConfirmationTimeout, sig)
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
