package spl

import (
	"fmt"
	"regexp"
	"strings"

	"batch_transfer/internal/domain/entity"
)

var (
	insufficientFundsCode = regexp.MustCompile(`custom program error: 0x1\b`)
	ownerMismatchCode     = regexp.MustCompile(`custom program error: 0x4\b`)
)

// mapError attaches domain sentinels to RPC and wallet errors.
// SPL token error 0x1 is InsufficientFunds, 0x4 is OwnerMismatch.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "user rejected"), strings.Contains(msg, "rejected the request"):
		return fmt.Errorf("%w: %v", entity.ErrSignerRejected, err)
	case strings.Contains(msg, "insufficient funds"), insufficientFundsCode.MatchString(msg):
		return fmt.Errorf("%w: %v", entity.ErrInsufficientFunds, err)
	case strings.Contains(msg, "owner does not match"), ownerMismatchCode.MatchString(msg):
		return fmt.Errorf("%w: %v", entity.ErrInsufficientAllowance, err)
	}
	return err
}
