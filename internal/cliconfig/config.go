package cliconfig

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rocketboy/rocketboy/pkg/logging"
	"github.com/rocketboy/rocketboy/pkg/tracing"
)

// Defaults.
const (
	DefaultListenAddr     = "127.0.0.1:4300"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
	DefaultZapBaseURL     = "http://localhost:8080"
	DefaultLoadTestBinary = "k6"
	DefaultMaxHistory     = 500
	DefaultScanMaxPolls   = 0
	DefaultSendTimeout    = 100 * time.Second
	DefaultTraceRatio     = 1.0
)

// Limits enforced by Validate.
const (
	MaxHistoryLimit   = 100000
	MaxScanPollsLimit = 1000000
)

// ConfigSource identifies where a config value originated.
const (
	SourceDefault = "default"
	SourceEnv     = "env"
	SourceGlobal  = "global"
	SourceLocal   = "local"
	SourceFile    = "file"
	SourceFlag    = "flag"
)

// Config is the complete configuration of the rocketboy CLI and server.
type Config struct {
	// Server
	ListenAddr string `yaml:"listenAddr" json:"listenAddr"`
	DataDir    string `yaml:"dataDir" json:"dataDir"`

	// Logging
	LogLevel  string `yaml:"logLevel" json:"logLevel"`
	LogFormat string `yaml:"logFormat" json:"logFormat"`
	LogFile   string `yaml:"logFile,omitempty" json:"logFile,omitempty"`

	// ZapBaseURL seeds the ZapBaseUrl key when the key store has none.
	ZapBaseURL string `yaml:"zapBaseUrl" json:"zapBaseUrl"`

	LoadTestBinary string        `yaml:"loadTestBinary" json:"loadTestBinary"`
	MaxHistory     int           `yaml:"maxHistory" json:"maxHistory"`
	ScanMaxPolls   int           `yaml:"scanMaxPolls" json:"scanMaxPolls"`
	SendTimeout    time.Duration `yaml:"sendTimeout" json:"sendTimeout"`

	// ServerURL is the API the client commands talk to. Empty means
	// http://<listenAddr>.
	ServerURL string `yaml:"serverUrl,omitempty" json:"serverUrl,omitempty"`

	// Tracing is off while TracingEndpoint is empty.
	TracingEndpoint  string  `yaml:"tracingEndpoint,omitempty" json:"tracingEndpoint,omitempty"`
	TracingInsecure  bool    `yaml:"tracingInsecure" json:"tracingInsecure"`
	TraceRatio       float64 `yaml:"traceRatio" json:"traceRatio"`
	TracePropagation bool    `yaml:"tracePropagation" json:"tracePropagation"`

	// Output
	Verbose bool `yaml:"verbose" json:"verbose"`
	JSON    bool `yaml:"json" json:"json"`

	// Sources tracks where each value came from, keyed by YAML name.
	Sources map[string]string `yaml:"-" json:"-"`

	// SetFields records which keys were present in a loaded file, so an
	// explicit false or zero can override an earlier layer.
	SetFields map[string]bool `yaml:"-" json:"-"`
}

// DefaultDataDir returns $XDG_DATA_HOME/rocketboy, or
// ~/.local/share/rocketboy when XDG_DATA_HOME is unset.
func DefaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, GlobalConfigDir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".rocketboy")
	}
	return filepath.Join(home, ".local", "share", GlobalConfigDir)
}

// NewDefault creates a Config holding the defaults.
func NewDefault() *Config {
	cfg := &Config{
		ListenAddr:     DefaultListenAddr,
		DataDir:        DefaultDataDir(),
		LogLevel:       DefaultLogLevel,
		LogFormat:      DefaultLogFormat,
		ZapBaseURL:     DefaultZapBaseURL,
		LoadTestBinary: DefaultLoadTestBinary,
		MaxHistory:     DefaultMaxHistory,
		ScanMaxPolls:   DefaultScanMaxPolls,
		SendTimeout:    DefaultSendTimeout,
		TraceRatio:     DefaultTraceRatio,
		Sources:        make(map[string]string),
	}
	for _, key := range []string{
		"listenAddr", "dataDir", "logLevel", "logFormat", "zapBaseUrl",
		"loadTestBinary", "maxHistory", "scanMaxPolls", "sendTimeout",
		"traceRatio",
	} {
		cfg.Sources[key] = SourceDefault
	}
	return cfg
}

// Validate reports the first invalid value.
func (c *Config) Validate() error {
	if c.ListenAddr != "" {
		if _, _, err := net.SplitHostPort(c.ListenAddr); err != nil {
			return fmt.Errorf("listenAddr %q is invalid: %w", c.ListenAddr, err)
		}
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logLevel %q is not one of debug, info, warn, error", c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("logFormat %q is not one of text, json", c.LogFormat)
	}
	if c.MaxHistory < 0 || c.MaxHistory > MaxHistoryLimit {
		return fmt.Errorf("maxHistory %d is out of range (0-%d)", c.MaxHistory, MaxHistoryLimit)
	}
	if c.ScanMaxPolls < 0 || c.ScanMaxPolls > MaxScanPollsLimit {
		return fmt.Errorf("scanMaxPolls %d is out of range (0-%d)", c.ScanMaxPolls, MaxScanPollsLimit)
	}
	if c.SendTimeout < 0 {
		return errors.New("sendTimeout must not be negative")
	}
	if c.TraceRatio < 0 || c.TraceRatio > 1 {
		return fmt.Errorf("traceRatio %g is out of range (0-1)", c.TraceRatio)
	}
	return nil
}

// Logging returns the logging configuration described by c.
func (c *Config) Logging() logging.Config {
	lc := logging.DefaultConfig()
	lc.Level = logging.ParseLevel(c.LogLevel)
	lc.Format = logging.ParseFormat(c.LogFormat)
	lc.File = c.LogFile
	if c.Verbose {
		lc.Level = logging.LevelDebug
	}
	return lc
}

// Tracing returns the tracing configuration described by c.
func (c *Config) Tracing(version string) tracing.Config {
	return tracing.Config{
		Endpoint:       c.TracingEndpoint,
		Insecure:       c.TracingInsecure,
		ServiceVersion: version,
		SampleRatio:    c.TraceRatio,
	}
}

// APIURL returns the base URL of the rocketboy API.
func (c *Config) APIURL() string {
	if c.ServerURL != "" {
		return strings.TrimRight(c.ServerURL, "/")
	}
	addr := c.ListenAddr
	if addr == "" {
		addr = DefaultListenAddr
	}
	return "http://" + addr
}

// KeystorePath is the SQLite key store inside the data directory.
func (c *Config) KeystorePath() string {
	return filepath.Join(c.DataDir, "keys.db")
}
