package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"ringchat/internal/domain"
)

const settingsFilename = "settings.db"

var (
	settingsBucket = []byte("settings")

	keyRelayURL = []byte("relay_url")
	keyNodeURL  = []byte("node_url")
)

// SettingsBoltStore persists connection settings in a bbolt database.
type SettingsBoltStore struct {
	db *bolt.DB
}

// OpenSettingsStore opens or creates the settings database under dir.
func OpenSettingsStore(dir string) (*SettingsBoltStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("settings store: mkdir: %w", err)
	}
	db, err := bolt.Open(filepath.Join(dir, settingsFilename), 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("settings store: open: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(settingsBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("settings store: init bucket: %w", err)
	}
	return &SettingsBoltStore{db: db}, nil
}

// LoadSettings returns the stored settings; missing keys come back empty.
func (s *SettingsBoltStore) LoadSettings() (domain.Settings, error) {
	var out domain.Settings
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(settingsBucket)
		if b == nil {
			return errors.New("settings store: bucket missing")
		}
		out.RelayURL = string(b.Get(keyRelayURL))
		out.NodeURL = string(b.Get(keyNodeURL))
		return nil
	})
	return out, err
}

// SaveSettings writes both settings in one transaction.
func (s *SettingsBoltStore) SaveSettings(settings domain.Settings) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(settingsBucket)
		if b == nil {
			return errors.New("settings store: bucket missing")
		}
		if err := b.Put(keyRelayURL, []byte(settings.RelayURL)); err != nil {
			return err
		}
		return b.Put(keyNodeURL, []byte(settings.NodeURL))
	})
}

// Close releases the database file lock.
func (s *SettingsBoltStore) Close() error { return s.db.Close() }

// Compile-time assertion that SettingsBoltStore implements domain.SettingsStore.
var _ domain.SettingsStore = (*SettingsBoltStore)(nil)
