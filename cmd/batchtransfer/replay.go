package main

import (
	"errors"
	"time"

	"batch_transfer/internal/app/bootstrap"
	"batch_transfer/internal/app/service"

	"github.com/spf13/cobra"
)

func newReplayJournalCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "replay-journal",
		Short: "Re-apply executed status for journaled signatures that were never reconciled",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sigJournal, err := bootstrap.OpenJournal(a.cfg)
			if err != nil {
				return err
			}
			if sigJournal == nil {
				return errors.New("journal.path is not configured")
			}
			store, err := bootstrap.OpenStore(a.cfg, a.log, a.zap)
			if err != nil {
				return err
			}
			n, err := service.NewJournalReplayer(sigJournal, store, a.log, time.Minute).ReplayOnce(cmd.Context())
			if err != nil {
				return err
			}
			a.log.Info("Journal replay finished", "reconciled", n)
			return nil
		},
	}
}
