package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func addressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "address",
		Short: "Print the wallet address",
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, ok, err := wire.Identity.WalletAddress()
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no wallet; run init first")
			}
			fmt.Println(addr)
			return nil
		},
	}
}
