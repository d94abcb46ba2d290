// Package store persists rocketboy settings, collections and saved requests
// as files.
//
// Directory layout follows the XDG Base Directory Specification:
//   - Config: ~/.config/rocketboy/settings.yaml
//   - Data:   ~/.local/share/rocketboy/{collections,requests}/
package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"

	"github.com/rocketboy/rocketboy/pkg/request"
)

// AppName names the per-user directories.
const AppName = "rocketboy"

// Common errors
var (
	ErrNotFound    = errors.New("not found")
	ErrInvalidName = errors.New("invalid name")
)

// Settings are the user preferences shown on the settings page.
type Settings struct {
	RequestsSaveLocation    string `json:"requestsSaveLocation" yaml:"requestsSaveLocation"`
	CollectionsSaveLocation string `json:"collectionsSaveLocation" yaml:"collectionsSaveLocation"`
	ShowDefaultHeaders      bool   `json:"showDefaultHeaders" yaml:"showDefaultHeaders"`
	ShowLoadTestDialog      bool   `json:"showLoadTestDialog" yaml:"showLoadTestDialog"`
	DefaultVirtualUsers     int    `json:"defaultVirtualUsers" yaml:"defaultVirtualUsers"`
	DefaultLoadTestDuration string `json:"defaultLoadTestDuration" yaml:"defaultLoadTestDuration"`
}

// DefaultSettings returns settings rooted at dataDir. An empty dataDir uses
// DefaultDataDir.
func DefaultSettings(dataDir string) Settings {
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}
	return Settings{
		RequestsSaveLocation:    filepath.Join(dataDir, "requests"),
		CollectionsSaveLocation: filepath.Join(dataDir, "collections"),
		DefaultVirtualUsers:     request.DefaultVirtualUsers,
		DefaultLoadTestDuration: request.DefaultLoadTestDuration,
	}
}

// LoadTestDefaults returns the load-test parameters new requests start with.
func (s Settings) LoadTestDefaults() request.LoadTestParameters {
	lt := request.DefaultLoadTest()
	if s.DefaultVirtualUsers > 0 {
		lt.VirtualUsers = s.DefaultVirtualUsers
	}
	if s.DefaultLoadTestDuration != "" {
		lt.Duration = s.DefaultLoadTestDuration
	}
	return lt
}

// Store reads and writes settings and collections.
type Store interface {
	LoadSettings(ctx context.Context) (Settings, error)
	SaveSettings(ctx context.Context, s Settings) error
	LoadCollections(ctx context.Context) ([]*request.Collection, error)
	SaveCollection(ctx context.Context, c *request.Collection) error
	SaveRequest(ctx context.Context, spec *request.Spec) (string, error)
}

// DefaultDataDir returns the default data directory following XDG spec.
func DefaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "."+AppName, "data")
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", AppName)
	case "windows":
		if appData := os.Getenv("LOCALAPPDATA"); appData != "" {
			return filepath.Join(appData, AppName)
		}
		return filepath.Join(home, "AppData", "Local", AppName)
	}
	return filepath.Join(home, ".local", "share", AppName)
}

// DefaultConfigDir returns the default config directory following XDG spec.
func DefaultConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "."+AppName, "config")
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Preferences", AppName)
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, AppName)
		}
		return filepath.Join(home, "AppData", "Roaming", AppName)
	}
	return filepath.Join(home, ".config", AppName)
}
