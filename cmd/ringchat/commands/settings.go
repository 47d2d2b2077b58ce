package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the persisted connection settings",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Print the effective relay and node URLs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := wire.EffectiveSettings()
			if err != nil {
				return err
			}
			fmt.Printf("relay_url: %s\nnode_url: %s\n", s.RelayURL, s.NodeURL)
			return nil
		},
	}, &cobra.Command{
		Use:       "set <relay_url|node_url> <value>",
		Short:     "Persist one setting",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"relay_url", "node_url"},
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := wire.EffectiveSettings()
			if err != nil {
				return err
			}
			switch args[0] {
			case "relay_url":
				s.RelayURL = args[1]
			case "node_url":
				s.NodeURL = args[1]
			default:
				return fmt.Errorf("unknown setting %q", args[0])
			}
			if err := wire.Settings.SaveSettings(s); err != nil {
				return err
			}
			fmt.Println("saved")
			return nil
		},
	})
	return cmd
}
