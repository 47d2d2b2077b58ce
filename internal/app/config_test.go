package app_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ringchat/internal/app"
	"ringchat/internal/domain"
)

func TestLoadConfig_FileThenEnv(t *testing.T) {
	home := t.TempDir()
	t.Chdir(t.TempDir()) // no .env
	require.NoError(t, os.WriteFile(filepath.Join(home, "config.yaml"), []byte(`
relay_url: relay.from.file
node_url: http://a;http://b
reconcile_interval: 2s
log:
  level: debug
`), 0o600))
	t.Setenv("RINGCHAT_RELAY_URL", "relay.from.env")
	t.Setenv("RINGCHAT_STABLE_TIMEOUT", "3s")

	cfg, err := app.LoadConfig(home)
	require.NoError(t, err)
	require.Equal(t, "relay.from.env", cfg.RelayURL)
	require.Equal(t, "http://a;http://b", cfg.NodeURL)
	require.Equal(t, 2*time.Second, cfg.ReconcileInterval)
	require.Equal(t, 3*time.Second, cfg.StableTimeout)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, filepath.Join(home, "logs", "ringchat.log"), cfg.Log.File)
}

func TestLoadConfig_DotEnvAndBadDuration(t *testing.T) {
	home := t.TempDir()
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("RINGCHAT_ROOM_URL=ws://room.test/room\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("RINGCHAT_ROOM_URL") })

	cfg, err := app.LoadConfig(home)
	require.NoError(t, err)
	require.Equal(t, "ws://room.test/room", cfg.RoomURL)

	t.Setenv("RINGCHAT_RECONCILE_INTERVAL", "soon")
	_, err = app.LoadConfig(home)
	require.Error(t, err)
}

func TestWire_EffectiveSettingsWrittenBack(t *testing.T) {
	cfg := app.DefaultConfig(t.TempDir())
	cfg.RelayURL = "relay.default"
	cfg.NodeURL = "http://node.default"

	w, err := app.NewWire(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, w.Settings.SaveSettings(domain.Settings{RelayURL: "relay.stored"}))

	got, err := w.EffectiveSettings()
	require.NoError(t, err)
	require.Equal(t, domain.Settings{RelayURL: "relay.stored", NodeURL: "http://node.default"}, got)

	stored, err := w.Settings.LoadSettings()
	require.NoError(t, err)
	require.Equal(t, got, stored)
	require.NoError(t, w.Close())
}

func TestWire_StartWithoutWallet(t *testing.T) {
	w, err := app.NewWire(app.DefaultConfig(t.TempDir()), nil)
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Start(context.Background(), "whatever")
	require.Error(t, err)
	require.Equal(t, domain.ClientDisconnected, w.Coordinator.Snapshot().ClientStatus)
}
