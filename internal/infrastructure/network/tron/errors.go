package tron

import (
	"fmt"
	"strings"

	"batch_transfer/internal/domain/entity"
)

// mapError attaches domain sentinels to node errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rejected"), strings.Contains(msg, "cancelled by user"):
		return fmt.Errorf("%w: %v", entity.ErrSignerRejected, err)
	case strings.Contains(msg, "allowance"):
		return fmt.Errorf("%w: %v", entity.ErrInsufficientAllowance, err)
	case strings.Contains(msg, "balance is not sufficient"),
		strings.Contains(msg, "out_of_energy"),
		strings.Contains(msg, "insufficient"):
		return fmt.Errorf("%w: %v", entity.ErrInsufficientFunds, err)
	}
	return err
}
