package app

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"ringchat/internal/domain"
	"ringchat/internal/metrics"
	"ringchat/internal/services/identity"
	"ringchat/internal/services/names"
	"ringchat/internal/services/network"
	"ringchat/internal/services/presence"
	"ringchat/internal/services/session"
	"ringchat/internal/store"
)

// Wire bundles all stores, services, and clients for the CLI.
type Wire struct {
	Config   Config
	Log      *zap.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Recorder

	Wallets  *store.WalletFileStore
	Settings *store.SettingsBoltStore
	Identity *identity.Service

	Coordinator *session.Coordinator
	Presence    *presence.Tracker // nil without a room URL
	Names       *names.Resolver   // nil without a names URL
}

// NewWire constructs the dependency graph from cfg.
func NewWire(cfg Config, log *zap.Logger) (*Wire, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	rec := metrics.NewRecorder(reg)

	settings, err := store.OpenSettingsStore(cfg.Home)
	if err != nil {
		return nil, err
	}
	wallets := store.NewWalletFileStore(cfg.Home)

	factory := network.Factory(
		network.WithLogger(log.Named("network")),
		network.WithHTTPClient(http.DefaultClient),
	)
	coord := session.New(factory, session.Config{
		ReconcileInterval: cfg.ReconcileInterval,
		StableTimeout:     cfg.StableTimeout,
	}, session.WithLogger(log.Named("session")), session.WithMetrics(rec))

	w := &Wire{
		Config:      cfg,
		Log:         log,
		Registry:    reg,
		Metrics:     rec,
		Wallets:     wallets,
		Settings:    settings,
		Identity:    identity.New(wallets),
		Coordinator: coord,
	}
	if cfg.RoomURL != "" {
		w.Presence = presence.New(cfg.RoomURL,
			presence.WithLogger(log.Named("presence")),
			presence.WithMetrics(rec),
		)
	}
	if cfg.NamesURL != "" {
		w.Names = names.NewResolver(names.NewHTTPService(cfg.NamesURL),
			names.WithLogger(log.Named("names")),
			names.WithMetrics(rec),
		)
		w.Names.OnUpdate(coord.SetExternalName)
		if w.Presence != nil {
			w.Names.OnUpdate(w.Presence.SetExternalName)
		}
	}
	return w, nil
}

// EffectiveSettings reads the stored settings, fills gaps from the config and
// writes the result back so later runs see the same values.
func (w *Wire) EffectiveSettings() (domain.Settings, error) {
	s, err := w.Settings.LoadSettings()
	if err != nil {
		return domain.Settings{}, err
	}
	if s.RelayURL == "" {
		s.RelayURL = w.Config.RelayURL
	}
	if s.NodeURL == "" {
		s.NodeURL = w.Config.NodeURL
	}
	if err := w.Settings.SaveSettings(s); err != nil {
		return domain.Settings{}, err
	}
	return s, nil
}

// Start unlocks the wallet and brings the coordinator up with the effective
// settings. A client failure is logged and reflected in the client status; it
// does not fail Start.
func (w *Wire) Start(ctx context.Context, passphrase string) (domain.Address, error) {
	wallet, err := w.Identity.UnlockWallet(passphrase)
	if err != nil {
		return "", err
	}
	settings, err := w.EffectiveSettings()
	if err != nil {
		return "", err
	}
	if w.Presence != nil {
		w.Presence.SetSelf(wallet.Address(), "")
	}
	if err := w.Coordinator.UpdateSettings(ctx, settings); err != nil {
		w.Log.Warn("client start failed", zap.Error(err))
	}
	if err := w.Coordinator.SetIdentity(ctx, wallet.Address(), identity.NewSigner(wallet)); err != nil {
		w.Log.Warn("client start failed", zap.Error(err))
	}
	return wallet.Address(), nil
}

// UpdateSettings persists s and rebuilds the client with it.
func (w *Wire) UpdateSettings(ctx context.Context, s domain.Settings) error {
	if err := w.Settings.SaveSettings(s); err != nil {
		return err
	}
	return w.Coordinator.UpdateSettings(ctx, s)
}

// Close shuts down the coordinator and closes the stores.
func (w *Wire) Close() error {
	var errs []error
	if err := w.Coordinator.Close(); err != nil {
		errs = append(errs, err)
	}
	if w.Names != nil {
		w.Names.Wait()
	}
	if err := w.Settings.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
