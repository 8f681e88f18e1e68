package main

import (
	"github.com/spf13/cobra"
)

func newWalletCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Wallet session commands",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "connect",
		Short: "Unlock the configured wallet and show the connected account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer app.Stop()

			if _, err := app.session.Connect(cmd.Context()); err != nil {
				return err
			}
			renderWallet(cmd.OutOrStdout(), app.session.Snapshot(), app.config.Chain.ChainID)
			return nil
		},
	})

	return cmd
}
