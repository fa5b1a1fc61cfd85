package statusstore

import (
	"context"
	"errors"
	"fmt"

	"batch_transfer/internal/app/port"
	"batch_transfer/internal/domain/entity"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// OpenPostgres opens the wallet database and migrates the wallet table.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(&WalletAddress{}); err != nil {
		return nil, fmt.Errorf("migrate wallet_addresses: %w", err)
	}
	return db, nil
}

// NewGormStore creates a status store backed by a gorm database.
func NewGormStore(db *gorm.DB, l port.Logger) *Store {
	return newStore(&gormRepository{db: db}, l)
}

type gormRepository struct {
	db *gorm.DB
}

func (r *gormRepository) find(ctx context.Context, address, chainID string) (*WalletAddress, error) {
	var w WalletAddress
	err := r.db.WithContext(ctx).Where("address = ? AND chain_id = ?", address, chainID).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, entity.ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find wallet %s: %w", address, err)
	}
	return &w, nil
}

func (r *gormRepository) listByChain(ctx context.Context, chainID string) ([]WalletAddress, error) {
	var wallets []WalletAddress
	if err := r.db.WithContext(ctx).Where("chain_id = ?", chainID).Order("address").Find(&wallets).Error; err != nil {
		return nil, fmt.Errorf("list wallets of chain %s: %w", chainID, err)
	}
	return wallets, nil
}

func (r *gormRepository) saveExecutionStatus(ctx context.Context, w *WalletAddress) error {
	err := r.db.WithContext(ctx).Model(w).Select("ExecutionStatus").Updates(w).Error
	if err != nil {
		return fmt.Errorf("save execution status of %s: %w", w.Address, err)
	}
	return nil
}

func (r *gormRepository) create(ctx context.Context, w *WalletAddress) error {
	if err := r.db.WithContext(ctx).Create(w).Error; err != nil {
		return fmt.Errorf("create wallet %s: %w", w.Address, err)
	}
	return nil
}
