package service

import (
	"batch_transfer/internal/domain/entity"
	"batch_transfer/internal/pkg/utils"
)

// SplitIntoBatches groups items into ordered batches of at most maxItemsPerBatch items.
// Every item appears in exactly one batch and the input order is kept.
func SplitIntoBatches(items []entity.TransferItem, maxItemsPerBatch int) []entity.Batch {
	chunks := utils.Chunk(items, maxItemsPerBatch)
	batches := make([]entity.Batch, 0, len(chunks))
	for i, chunk := range chunks {
		batches = append(batches, entity.Batch{Index: i, Items: chunk})
	}
	return batches
}
