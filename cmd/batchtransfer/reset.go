package main

import (
	"batch_transfer/internal/app/bootstrap"
	networkdefinition "batch_transfer/internal/infrastructure/network/definition"

	"github.com/spf13/cobra"
)

func newResetPendingCmd(a *app) *cobra.Command {
	var chain, wallet, token string
	cmd := &cobra.Command{
		Use:   "reset-pending",
		Short: "Move pending tokens back to new",
		Long: `Without --wallet every pending token of the chain is reset.
With --wallet and --token only that token is reset.`,
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

			ctx := cmd.Context()
			if wallet != "" {
				if err := store.ResetTokenStatus(ctx, wallet, token, def.ChainID); err != nil {
					return err
				}
				a.log.Info("Token status reset", "wallet", wallet, "token", token, "chainId", def.ChainID)
				return nil
			}

			summary, err := store.ResetAllPending(ctx, def.ChainID)
			if err != nil {
				return err
			}
			a.log.Info("Pending tokens reset", "chainId", def.ChainID, "total", summary.TotalReset)
			return a.printJSON(summary)
		},
	}
	cmd.Flags().StringVar(&chain, "chain-id", "", "network identifier or chain id")
	cmd.Flags().StringVar(&wallet, "wallet", "", "reset a single wallet token")
	cmd.Flags().StringVar(&token, "token", "", "token address, required with --wallet")
	cmd.MarkFlagsRequiredTogether("wallet", "token")
	_ = cmd.MarkFlagRequired("chain-id")
	return cmd
}
