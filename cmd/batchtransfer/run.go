package main

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"batch_transfer/internal/app/bootstrap"
	"batch_transfer/internal/app/port"
	"batch_transfer/internal/app/provider"
	"batch_transfer/internal/domain/entity"
	"batch_transfer/internal/infrastructure/configloader"
	"batch_transfer/internal/infrastructure/metrics"
	networkclient "batch_transfer/internal/infrastructure/network/client"
	networkdefinition "batch_transfer/internal/infrastructure/network/definition"
	"batch_transfer/internal/infrastructure/signer"

	"github.com/spf13/cobra"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		chain          string
		receiver       string
		candidatesFile string
		fromStore      bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Check delegations, execute batches and write statuses back",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (candidatesFile == "") == !fromStore {
				return errors.New("exactly one of --candidates or --from-store is required")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			defs := networkdefinition.NewNetworkDefinitionProvider(a.log, a.cfg.Networks)
			def, err := bootstrap.ResolveChainID(defs, chain)
			if err != nil {
				return err
			}
			nc, ok := a.cfg.Network(def.Identifier)
			if !ok {
				nc = configloader.NetworkNodeConfig{Identifier: def.Identifier}
			}

			store, err := bootstrap.OpenStore(a.cfg, a.log, a.zap)
			if err != nil {
				return err
			}
			sigJournal, err := bootstrap.OpenJournal(a.cfg)
			if err != nil {
				return err
			}

			var candidates port.CandidateProvider
			if fromStore {
				candidates = provider.NewStoreCandidateProvider(store, def.ChainID, a.log)
			} else {
				candidates = provider.NewFileCandidateProvider(candidatesFile, a.log)
			}
			rows, err := candidates.GetCandidates(ctx)
			if err != nil {
				return err
			}

			backends := networkclient.NewBackendProvider(a.cfg, defs, a.log)
			runCfg := *a.cfg
			runCfg.Networks = []configloader.NetworkNodeConfig{nc}
			engine := bootstrap.BuildEngine(ctx, &runCfg, defs, backends, store, sigJournal,
				metrics.NewMetrics(nil), a.log, signer.TerminalPassphrase("Keystore passphrase: "))
			orchestrator, ok := engine.Orchestrators[def.Identifier]
			if !ok {
				return fmt.Errorf("network %s is not available", def.Identifier)
			}

			result, err := orchestrator.Execute(ctx, entity.ExecutionRequest{
				Candidates:      rows,
				ReceiverAddress: receiver,
				OnProgress: func(phase string, current, total int) {
					a.log.Info(phase, "step", current, "of", total)
				},
			})
			if err != nil {
				return err
			}
			return a.printJSON(result)
		},
	}
	cmd.Flags().StringVar(&chain, "chain", "", "network identifier or chain id")
	cmd.Flags().StringVar(&receiver, "receiver", "", "receiver wallet address")
	cmd.Flags().StringVar(&candidatesFile, "candidates", "", "candidate file (.json or text)")
	cmd.Flags().BoolVar(&fromStore, "from-store", false, "use the pending candidates from the status store")
	_ = cmd.MarkFlagRequired("chain")
	_ = cmd.MarkFlagRequired("receiver")
	return cmd
}

func newPendingCmd(a *app) *cobra.Command {
	var chain string
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List the pending candidates of a chain",
		RunE: func(cmd *cobra.Command, _ []string) error {
			defs := networkdefinition.NewNetworkDefinitionProvider(a.log, a.cfg.Networks)
			def, err := bootstrap.ResolveChainID(defs, chain)
			if err != nil {
				return err
			}
			store, err := bootstrap.OpenStore(a.cfg, a.log, a.zap)
			if err != nil {
				return err
			}
			rows, err := store.ListPendingCandidates(cmd.Context(), def.ChainID)
			if err != nil {
				return err
			}
			return a.printJSON(rows)
		},
	}
	cmd.Flags().StringVar(&chain, "chain", "", "network identifier or chain id")
	_ = cmd.MarkFlagRequired("chain")
	return cmd
}
