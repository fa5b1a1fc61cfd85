package evm

import (
	"errors"
	"fmt"
	"strings"

	"batch_transfer/internal/domain/entity"

	"github.com/ethereum/go-ethereum/rpc"
)

// userRejectedCode is the EIP-1193 "user rejected request" code.
const userRejectedCode = 4001

// mapError attaches domain sentinels to node and wallet errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == userRejectedCode {
		return fmt.Errorf("%w: %v", entity.ErrSignerRejected, err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "user rejected"), strings.Contains(msg, "user denied"):
		return fmt.Errorf("%w: %v", entity.ErrSignerRejected, err)
	case strings.Contains(msg, "insufficient funds"):
		return fmt.Errorf("%w: %v", entity.ErrInsufficientFunds, err)
	case strings.Contains(msg, "execution reverted") &&
		(strings.Contains(msg, "allowance") || strings.Contains(msg, "expired")):
		return fmt.Errorf("%w: %v", entity.ErrInsufficientAllowance, err)
	case strings.Contains(msg, "transfer_from_failed"), strings.Contains(msg, "exceeds balance"):
		return fmt.Errorf("%w: %v", entity.ErrInsufficientFunds, err)
	}
	return err
}
