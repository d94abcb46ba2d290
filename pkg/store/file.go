package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/rocketboy/rocketboy/pkg/logging"
	"github.com/rocketboy/rocketboy/pkg/request"
)

// SettingsFile is the settings file name inside the config directory.
const SettingsFile = "settings.yaml"

// FileStore keeps settings in ConfigDir and collections and saved requests
// in the locations named by the settings.
type FileStore struct {
	configDir string
	dataDir   string
	logger    *slog.Logger

	mu sync.Mutex
}

var _ Store = (*FileStore)(nil)

// FileOption configures a FileStore.
type FileOption func(*FileStore)

// WithLogger sets the operational logger.
func WithLogger(logger *slog.Logger) FileOption {
	return func(s *FileStore) {
		s.logger = logging.Component(logger, "store")
	}
}

// NewFileStore creates a FileStore. Empty directories use the XDG defaults.
func NewFileStore(configDir, dataDir string, opts ...FileOption) *FileStore {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}
	s := &FileStore{configDir: configDir, dataDir: dataDir, logger: logging.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadSettings reads the settings file. A missing file yields defaults;
// fields absent from the file keep their defaults.
func (s *FileStore) LoadSettings(_ context.Context) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadSettingsLocked()
}

func (s *FileStore) loadSettingsLocked() (Settings, error) {
	settings := DefaultSettings(s.dataDir)
	data, err := os.ReadFile(filepath.Join(s.configDir, SettingsFile))
	if errors.Is(err, fs.ErrNotExist) {
		return settings, nil
	}
	if err != nil {
		return settings, fmt.Errorf("read settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return DefaultSettings(s.dataDir), fmt.Errorf("parse settings: %w", err)
	}
	return settings, nil
}

// SaveSettings writes the settings file.
func (s *FileStore) SaveSettings(_ context.Context, settings Settings) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeAtomic(filepath.Join(s.configDir, SettingsFile), data)
}

// LoadCollections reads every collection file, sorted by name. Files that
// cannot be parsed are skipped with a warning.
func (s *FileStore) LoadCollections(_ context.Context) ([]*request.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.loadSettingsLocked()
	if err != nil {
		return nil, err
	}
	dir := settings.CollectionsSaveLocation
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []*request.Collection{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read collections: %w", err)
	}

	result := make([]*request.Collection, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !isCollectionFile(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		c, err := readCollection(path)
		if err != nil {
			s.logger.Warn("skipping malformed collection", "path", path, "error", err)
			continue
		}
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// SaveCollection writes c to <collections>/<sanitized name>.yaml.
func (s *FileStore) SaveCollection(_ context.Context, c *request.Collection) error {
	if c == nil {
		return ErrInvalidName
	}
	name := SanitizeFileName(c.Name)
	if name == "" {
		return ErrInvalidName
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	settings, err := s.loadSettingsLocked()
	if err != nil {
		return err
	}
	return writeAtomic(filepath.Join(settings.CollectionsSaveLocation, name+".yaml"), data)
}

// SaveRequest writes spec to <requests>/<sanitized name>.yaml and returns
// the path.
func (s *FileStore) SaveRequest(_ context.Context, spec *request.Spec) (string, error) {
	if spec == nil {
		return "", ErrInvalidName
	}
	name := SanitizeFileName(spec.Name)
	if name == "" {
		return "", ErrInvalidName
	}
	data, err := yaml.Marshal(spec)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	settings, err := s.loadSettingsLocked()
	if err != nil {
		return "", err
	}
	path := filepath.Join(settings.RequestsSaveLocation, name+".yaml")
	return path, writeAtomic(path, data)
}

// SanitizeFileName replaces characters that are invalid in file names on
// common platforms with "_".
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	var b strings.Builder
	for _, r := range name {
		if r < 0x20 || strings.ContainsRune(`<>:"/\|?*`, r) {
			b.WriteByte('_')
			continue
		}
		b.WriteRune(r)
	}
	out := strings.Trim(b.String(), ". ")
	if out == "" || strings.Trim(out, "_") == "" {
		return ""
	}
	return out
}

func isCollectionFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

func readCollection(path string) (*request.Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c request.Collection
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &c)
	} else {
		err = yaml.Unmarshal(data, &c)
	}
	if err != nil {
		return nil, err
	}
	if c.Name == "" {
		c.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return &c, nil
}

// writeAtomic writes to a temp file and renames it over path.
func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
