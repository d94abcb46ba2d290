package cliconfig

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"gopkg.in/yaml.v3"
)

// GlobalConfigDir is the directory for global config.
const GlobalConfigDir = "rocketboy"

// LocalConfigFileNames are the names to search for local config (in order).
var LocalConfigFileNames = []string{".rocketboyrc.yaml", ".rocketboyrc.yml"}

// GlobalConfigFileNames are the names to search for global config (in order).
var GlobalConfigFileNames = []string{"config.yaml", "config.yml"}

// FindLocalConfig searches for .rocketboyrc.yaml or .rocketboyrc.yml in the
// current directory. It returns "" when neither exists.
func FindLocalConfig() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return firstExisting(cwd, LocalConfigFileNames), nil
}

// GlobalConfigPath returns the directory holding the global config:
// $XDG_CONFIG_HOME/rocketboy, falling back to os.UserConfigDir.
func GlobalConfigPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, GlobalConfigDir), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, GlobalConfigDir), nil
}

// FindGlobalConfig returns the path to the global config file, or "" when
// there is none.
func FindGlobalConfig() (string, error) {
	dir, err := GlobalConfigPath()
	if err != nil {
		//nolint:nilerr // no config dir means no global config
		return "", nil
	}
	return firstExisting(dir, GlobalConfigFileNames), nil
}

func firstExisting(dir string, names []string) string {
	for _, name := range names {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigError represents a configuration file error with location info.
type ConfigError struct {
	Path    string
	Line    int
	Message string
}

func (e *ConfigError) Error() string {
	if e.Line > 0 {
		return e.Path + " (line " + strconv.Itoa(e.Line) + "): " + e.Message
	}
	return e.Path + ": " + e.Message
}

var yamlLine = regexp.MustCompile(`line (\d+)`)

// LoadConfigFile loads a Config from a YAML file. SetFields records the
// top-level keys present in the file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		ce := &ConfigError{Path: path, Message: err.Error()}
		if m := yamlLine.FindStringSubmatch(err.Error()); m != nil {
			ce.Line, _ = strconv.Atoi(m[1])
		}
		return nil, ce
	}

	var keys map[string]any
	if err := yaml.Unmarshal(data, &keys); err != nil {
		return nil, &ConfigError{Path: path, Message: err.Error()}
	}
	cfg.SetFields = make(map[string]bool, len(keys))
	for k := range keys {
		cfg.SetFields[k] = true
	}
	cfg.Sources = make(map[string]string)
	return &cfg, nil
}

// LoadAll loads configuration from all sources and merges them.
// Precedence: env > explicit file (or local config) > global config >
// defaults. Flags are applied afterwards by the caller.
//
// An explicit path (flag or ROCKETBOY_CONFIG) replaces the local file and
// must exist; discovered files that fail to parse are reported too.
func LoadAll(explicitPath string) (*Config, error) {
	cfg := NewDefault()

	globalPath, err := FindGlobalConfig()
	if err != nil {
		return nil, err
	}
	if globalPath != "" {
		globalCfg, err := LoadConfigFile(globalPath)
		if err != nil {
			return nil, err
		}
		MergeConfig(cfg, globalCfg, SourceGlobal)
	}

	if explicitPath == "" {
		explicitPath = os.Getenv(EnvConfig)
	}
	if explicitPath != "" {
		fileCfg, err := LoadConfigFile(explicitPath)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, &ConfigError{Path: explicitPath, Message: "config file not found"}
			}
			return nil, err
		}
		MergeConfig(cfg, fileCfg, SourceFile)
	} else {
		localPath, err := FindLocalConfig()
		if err != nil {
			return nil, err
		}
		if localPath != "" {
			localCfg, err := LoadConfigFile(localPath)
			if err != nil {
				return nil, err
			}
			MergeConfig(cfg, localCfg, SourceLocal)
		}
	}

	if err := LoadEnvConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
