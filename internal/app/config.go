package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "RINGCHAT_"

// Config holds runtime wiring options for building the app.
//
// RelayURL and NodeURL are defaults used only when the settings store has no
// value. An empty RoomURL disables presence, an empty NamesURL disables external
// names and an empty MetricsAddr disables the metrics endpoint.
type Config struct {
	Home              string        `yaml:"home"`
	RelayURL          string        `yaml:"relay_url"`
	NodeURL           string        `yaml:"node_url"`
	RoomURL           string        `yaml:"room_url"`
	NamesURL          string        `yaml:"names_url"`
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
	StableTimeout     time.Duration `yaml:"stable_timeout"`
	Log               LogConfig     `yaml:"log"`
	MetricsAddr       string        `yaml:"metrics_addr"`
}

// LogConfig configures the rotating log file.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// DefaultConfig returns the built-in defaults rooted at home.
func DefaultConfig(home string) Config {
	return Config{
		Home:              home,
		ReconcileInterval: 5 * time.Second,
		StableTimeout:     10 * time.Second,
		Log: LogConfig{
			Level:      "info",
			File:       filepath.Join(home, "logs", "ringchat.log"),
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// DefaultHome returns ~/.ringchat.
func DefaultHome() (string, error) {
	dir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ".ringchat"), nil
}

// LoadConfig builds the config for home: defaults, then {home}/config.yaml if
// present, then a .env file in the working directory, then RINGCHAT_* variables.
func LoadConfig(home string) (Config, error) {
	cfg := DefaultConfig(home)

	path := filepath.Join(home, "config.yaml")
	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return Config{}, err
	default:
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if cfg.Home == "" {
		cfg.Home = home
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"HOME":         &c.Home,
		"RELAY_URL":    &c.RelayURL,
		"NODE_URL":     &c.NodeURL,
		"ROOM_URL":     &c.RoomURL,
		"NAMES_URL":    &c.NamesURL,
		"LOG_LEVEL":    &c.Log.Level,
		"LOG_FILE":     &c.Log.File,
		"METRICS_ADDR": &c.MetricsAddr,
	}
	for key, dst := range str {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	durations := map[string]*time.Duration{
		"RECONCILE_INTERVAL": &c.ReconcileInterval,
		"STABLE_TIMEOUT":     &c.StableTimeout,
	}
	for key, dst := range durations {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = d
	}
	ints := map[string]*int{
		"LOG_MAX_SIZE_MB": &c.Log.MaxSizeMB,
		"LOG_MAX_BACKUPS": &c.Log.MaxBackups,
	}
	for key, dst := range ints {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = n
	}
	return nil
}
