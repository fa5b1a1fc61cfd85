package statusstore

import (
	"time"

	"batch_transfer/internal/domain/entity"
)

// WalletAddress is the persisted wallet row. Per-token state is kept in JSON columns.
type WalletAddress struct {
	ID              uint                     `gorm:"primaryKey" json:"id"`
	Address         string                   `gorm:"size:128;not null;uniqueIndex:idx_wallet_chain" json:"address"`
	ChainID         string                   `gorm:"size:32;not null;uniqueIndex:idx_wallet_chain" json:"chainId"`
	TokenBalances   entity.BalanceStateMap   `gorm:"serializer:json" json:"tokenBalances"`
	ExecutionStatus entity.ExecutionStateMap `gorm:"serializer:json" json:"executionStatus"`
	CreatedAt       time.Time                `json:"createdAt"`
	UpdatedAt       time.Time                `json:"updatedAt"`
}

// TableName keeps the table name of the dashboard schema.
func (WalletAddress) TableName() string {
	return "wallet_addresses"
}
