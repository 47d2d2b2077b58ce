package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ringchat/internal/app"
	"ringchat/internal/logging"
)

var (
	home       string
	passphrase string
	verbose    bool

	relayURL string
	nodeURL  string

	wire     *app.Wire
	closeLog func() error
)

func Execute() error {
	root := &cobra.Command{
		Use:          "ringchat",
		Short:        "Peer-to-peer chat over a relay network",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if home == "" {
				dir, err := app.DefaultHome()
				if err != nil {
					return err
				}
				home = dir
			}
			cfg, err := app.LoadConfig(home)
			if err != nil {
				return err
			}

			lc := logging.Config{
				Level:      cfg.Log.Level,
				File:       cfg.Log.File,
				MaxSizeMB:  cfg.Log.MaxSizeMB,
				MaxBackups: cfg.Log.MaxBackups,
				// the chat UI owns the terminal
				Console: verbose && cmd.Name() != "run",
			}
			if verbose {
				lc.Level = "debug"
			}
			log, closer, err := logging.New(lc)
			if err != nil {
				return err
			}
			closeLog = closer

			wire, err = app.NewWire(cfg, log)
			if err != nil {
				return err
			}
			return applySettingFlags()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if wire != nil {
				err = wire.Close()
			}
			if closeLog != nil {
				_ = closeLog()
			}
			return err
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "config dir (default ~/.ringchat)")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase protecting the wallet key")
	root.PersistentFlags().StringVar(&relayURL, "relay", "", "relay URL, persisted when set")
	root.PersistentFlags().StringVar(&nodeURL, "node", "", "node URLs separated by ';', persisted when set")
	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "debug logging, echoed to stderr outside the chat UI")

	root.AddCommand(initCmd(), addressCmd(), settingsCmd(), runCmd())
	return root.Execute()
}

// applySettingFlags persists --relay and --node over the stored settings.
func applySettingFlags() error {
	if relayURL == "" && nodeURL == "" {
		return nil
	}
	s, err := wire.EffectiveSettings()
	if err != nil {
		return err
	}
	if relayURL != "" {
		s.RelayURL = relayURL
	}
	if nodeURL != "" {
		s.NodeURL = nodeURL
	}
	wire.Log.Debug("settings from flags", zap.String("relay_url", s.RelayURL), zap.String("node_url", s.NodeURL))
	return wire.Settings.SaveSettings(s)
}
