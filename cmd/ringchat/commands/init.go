package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Generate a wallet key and store it sealed under the passphrase",
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				return fmt.Errorf("passphrase required (-p)")
			}
			addr, err := wire.Identity.GenerateWallet(passphrase)
			if err != nil {
				return err
			}
			fmt.Printf("Wallet created.\nAddress: %s\n", addr)
			return nil
		},
	}
}
