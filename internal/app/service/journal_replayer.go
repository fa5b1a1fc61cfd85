package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"batch_transfer/internal/app/port"

	"github.com/robfig/cron/v3"
)

// JournalReplayer re-applies executed status for journaled signatures that were never reconciled.
type JournalReplayer struct {
	journal port.SignatureJournal
	writer  port.StatusWriter
	logger  port.Logger
	timeout time.Duration

	mu sync.Mutex
}

// NewJournalReplayer creates a replayer. timeout bounds one scheduled replay.
func NewJournalReplayer(journal port.SignatureJournal, writer port.StatusWriter, l port.Logger, timeout time.Duration) *JournalReplayer {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &JournalReplayer{journal: journal, writer: writer, logger: l, timeout: timeout}
}

// ReplayOnce replays every unreconciled entry and returns how many became reconciled.
func (j *JournalReplayer) ReplayOnce(ctx context.Context) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	entries, err := j.journal.Unreconciled(ctx)
	if err != nil {
		return 0, fmt.Errorf("read journal: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	var sigs []string
	for _, entry := range entries {
		res, err := j.writer.ApplyStatusUpdates(ctx, entry.StatusUpdates())
		if err != nil {
			j.logger.Error("Journal replay failed", "signature", entry.Signature, "error", err)
			continue
		}
		if res.FailedUpdates > 0 {
			j.logger.Warn("Journal replay incomplete", "signature", entry.Signature, "failed", res.FailedUpdates)
			continue
		}
		sigs = append(sigs, entry.Signature)
	}
	if len(sigs) == 0 {
		return 0, nil
	}
	if err := j.journal.MarkReconciled(ctx, sigs); err != nil {
		return 0, fmt.Errorf("mark reconciled: %w", err)
	}
	j.logger.Info("Journal replayed", "entries", len(entries), "reconciled", len(sigs))
	return len(sigs), nil
}

// Schedule starts a cron running ReplayOnce on spec. The caller stops the returned cron.
func (j *JournalReplayer) Schedule(spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
		defer cancel()
		if _, err := j.ReplayOnce(ctx); err != nil {
			j.logger.Error("Scheduled journal replay failed", "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid replay schedule %q: %w", spec, err)
	}
	c.Start()
	return c, nil
}
