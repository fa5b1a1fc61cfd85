package tron

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"batch_transfer/internal/app/port"
	"batch_transfer/internal/domain/entity"

	"github.com/fbsobreira/gotron-sdk/pkg/proto/api"
	"github.com/fbsobreira/gotron-sdk/pkg/proto/core"
	"google.golang.org/protobuf/proto"
)

// SubmitAndConfirm triggers one batchTransferTokens call and polls its transaction info.
func (a *Adapter) SubmitAndConfirm(ctx context.Context, instructions []port.Instruction, s port.Signer) (string, error) {
	signer, ok := s.(TxSigner)
	if !ok {
		return "", fmt.Errorf("%w: %T", entity.ErrUnsupportedSigner, s)
	}
	data, err := PackBatchTransfer(instructions)
	if err != nil {
		return "", err
	}

	ext, err := a.client.TRC20Call(signer.PublicIdentity(), a.contract, "0x"+hex.EncodeToString(data), false, a.opts.FeeLimit)
	if err != nil {
		return "", mapError(fmt.Errorf("trigger batchTransferTokens: %w", err))
	}
	if ext == nil || ext.GetTransaction() == nil {
		return "", fmt.Errorf("trigger batchTransferTokens: empty transaction")
	}

	signed, err := signer.SignTronTx(ctx, ext.GetTransaction())
	if err != nil {
		return "", mapError(err)
	}
	txID, err := TransactionID(signed)
	if err != nil {
		return "", err
	}

	ret, err := a.client.Broadcast(signed)
	if err != nil {
		return "", mapError(fmt.Errorf("broadcast %s: %w", txID, err))
	}
	if ret != nil && !ret.GetResult() && ret.GetCode() != api.Return_SUCCESS {
		return "", mapError(fmt.Errorf("broadcast %s: %s: %s", txID, ret.GetCode(), string(ret.GetMessage())))
	}

	if err := a.waitConfirmed(ctx, txID); err != nil {
		return "", err
	}
	return txID, nil
}

func (a *Adapter) waitConfirmed(ctx context.Context, txID string) error {
	for attempt := 1; attempt <= a.opts.ConfirmAttempts; attempt++ {
		if err := a.sleep(ctx, a.opts.PollInterval); err != nil {
			return err
		}
		info, err := a.client.GetTransactionInfoByID(txID)
		if err != nil || info == nil || len(info.GetId()) == 0 {
			continue
		}
		if info.GetReceipt().GetResult() == core.Transaction_Result_SUCCESS {
			return nil
		}
		return mapError(fmt.Errorf("%w: %s: %s %s", entity.ErrTransactionFailed, txID,
			info.GetReceipt().GetResult(), string(info.GetResMessage())))
	}
	return fmt.Errorf("%w: %s after %d attempts", entity.ErrConfirmationTimeout, txID, a.opts.ConfirmAttempts)
}

// TransactionID is the hex sha256 of the transaction raw data.
func TransactionID(tx *core.Transaction) (string, error) {
	raw, err := proto.Marshal(tx.GetRawData())
	if err != nil {
		return "", fmt.Errorf("marshal raw data: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
