package cliconfig

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rocketboy/rocketboy/pkg/logging"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{name: "valid defaults", config: *NewDefault()},
		{name: "zero value", config: Config{}},
		{name: "bad listen addr", config: Config{ListenAddr: "localhost"}, wantErr: `listenAddr "localhost" is invalid`},
		{name: "bad log level", config: Config{LogLevel: "loud"}, wantErr: `logLevel "loud"`},
		{name: "bad log format", config: Config{LogFormat: "xml"}, wantErr: `logFormat "xml"`},
		{name: "history negative", config: Config{MaxHistory: -1}, wantErr: "maxHistory -1 is out of range"},
		{name: "history too high", config: Config{MaxHistory: 200000}, wantErr: "maxHistory 200000 is out of range"},
		{name: "polls negative", config: Config{ScanMaxPolls: -3}, wantErr: "scanMaxPolls -3 is out of range"},
		{name: "timeout negative", config: Config{SendTimeout: -time.Second}, wantErr: "sendTimeout"},
		{name: "trace ratio too high", config: Config{TraceRatio: 1.5}, wantErr: "traceRatio 1.5 is out of range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestNewDefault(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg-data")
	cfg := NewDefault()

	if cfg.ListenAddr != DefaultListenAddr {
		t.Errorf("listenAddr = %q", cfg.ListenAddr)
	}
	if cfg.DataDir != filepath.Join("/tmp/xdg-data", "rocketboy") {
		t.Errorf("dataDir = %q", cfg.DataDir)
	}
	if cfg.MaxHistory != 500 || cfg.ScanMaxPolls != 0 || cfg.LoadTestBinary != "k6" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Sources["zapBaseUrl"] != SourceDefault {
		t.Errorf("zapBaseUrl source = %q", cfg.Sources["zapBaseUrl"])
	}
	if cfg.APIURL() != "http://127.0.0.1:4300" {
		t.Errorf("APIURL = %q", cfg.APIURL())
	}
	if cfg.KeystorePath() != filepath.Join("/tmp/xdg-data", "rocketboy", "keys.db") {
		t.Errorf("KeystorePath = %q", cfg.KeystorePath())
	}
}

func TestConfig_Logging(t *testing.T) {
	cfg := &Config{LogLevel: "WARN", LogFormat: "json", LogFile: "/tmp/rb.log"}
	lc := cfg.Logging()
	if lc.Level != logging.LevelWarn || lc.Format != logging.FormatJSON || lc.File != "/tmp/rb.log" {
		t.Errorf("unexpected logging config: %+v", lc)
	}

	cfg.Verbose = true
	if cfg.Logging().Level != logging.LevelDebug {
		t.Error("verbose should force debug level")
	}
}

func TestMergeConfig(t *testing.T) {
	t.Run("merges non-zero values", func(t *testing.T) {
		target := NewDefault()
		source := &Config{
			ListenAddr: "0.0.0.0:9000",
			MaxHistory: 20,
		}

		MergeConfig(target, source, SourceLocal)

		if target.ListenAddr != "0.0.0.0:9000" || target.MaxHistory != 20 {
			t.Errorf("values not merged: %+v", target)
		}
		if target.Sources["listenAddr"] != SourceLocal {
			t.Errorf("expected source 'local', got %q", target.Sources["listenAddr"])
		}
		if target.Sources["logLevel"] != SourceDefault {
			t.Errorf("untouched key changed source: %q", target.Sources["logLevel"])
		}
	})

	t.Run("explicit zero applies with SetFields", func(t *testing.T) {
		target := NewDefault()
		target.ScanMaxPolls = 50
		target.Verbose = true

		MergeConfig(target, &Config{SetFields: map[string]bool{"scanMaxPolls": true, "verbose": true}}, SourceGlobal)

		if target.ScanMaxPolls != 0 {
			t.Errorf("expected scanMaxPolls 0, got %d", target.ScanMaxPolls)
		}
		if target.Verbose {
			t.Error("expected verbose to be false after merge")
		}
	})

	t.Run("zero does not apply without SetFields", func(t *testing.T) {
		target := NewDefault()
		target.Verbose = true

		MergeConfig(target, &Config{}, SourceLocal)

		if !target.Verbose || target.MaxHistory != DefaultMaxHistory {
			t.Errorf("zero values overwrote target: %+v", target)
		}
	})

	t.Run("nil source is no-op", func(t *testing.T) {
		target := NewDefault()
		MergeConfig(target, nil, SourceLocal)
		if target.ListenAddr != DefaultListenAddr {
			t.Errorf("expected listenAddr unchanged, got %q", target.ListenAddr)
		}
	})
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("records set fields", func(t *testing.T) {
		path := filepath.Join(dir, "ok.yaml")
		writeFile(t, path, "listenAddr: 127.0.0.1:5000\nverbose: false\nsendTimeout: 15s\n")

		cfg, err := LoadConfigFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if cfg.ListenAddr != "127.0.0.1:5000" || cfg.SendTimeout != 15*time.Second {
			t.Errorf("unexpected config: %+v", cfg)
		}
		if !cfg.SetFields["verbose"] || cfg.SetFields["json"] {
			t.Errorf("unexpected SetFields: %v", cfg.SetFields)
		}
	})

	t.Run("reports line of syntax error", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		writeFile(t, path, "listenAddr: x\nmaxHistory: [\n")

		_, err := LoadConfigFile(path)
		var ce *ConfigError
		if !errors.As(err, &ce) {
			t.Fatalf("expected ConfigError, got %v", err)
		}
		if ce.Path != path || ce.Line == 0 {
			t.Errorf("unexpected error: %+v", ce)
		}
		if !strings.Contains(ce.Error(), "(line ") {
			t.Errorf("message lacks line: %q", ce.Error())
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfigFile(filepath.Join(dir, "missing.yaml"))
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected not-exist error, got %v", err)
		}
	})
}

func TestLoadAll_Precedence(t *testing.T) {
	home := t.TempDir()
	work := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	t.Setenv("XDG_DATA_HOME", filepath.Join(home, "data"))
	t.Setenv(EnvConfig, "")
	t.Chdir(work)

	writeFile(t, filepath.Join(home, "rocketboy", "config.yaml"),
		"listenAddr: 127.0.0.1:6000\nlogLevel: debug\nmaxHistory: 10\n")
	writeFile(t, filepath.Join(work, ".rocketboyrc.yaml"),
		"logLevel: warn\n")
	t.Setenv(EnvMaxHistory, "99")

	cfg, err := LoadAll("")
	if err != nil {
		t.Fatal(err)
	}

	checks := []struct {
		key, got, want, source string
	}{
		{"listenAddr", cfg.ListenAddr, "127.0.0.1:6000", SourceGlobal},
		{"logLevel", cfg.LogLevel, "warn", SourceLocal},
		{"loadTestBinary", cfg.LoadTestBinary, "k6", SourceDefault},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %q, want %q", c.key, c.got, c.want)
		}
		if cfg.Sources[c.key] != c.source {
			t.Errorf("%s source = %q, want %q", c.key, cfg.Sources[c.key], c.source)
		}
	}
	if cfg.MaxHistory != 99 || cfg.Sources["maxHistory"] != SourceEnv {
		t.Errorf("maxHistory = %d from %q", cfg.MaxHistory, cfg.Sources["maxHistory"])
	}
}

func TestLoadAll_ExplicitPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())

	path := filepath.Join(t.TempDir(), "custom.yaml")
	writeFile(t, path, "zapBaseUrl: http://zap:8090\n")

	cfg, err := LoadAll(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ZapBaseURL != "http://zap:8090" || cfg.Sources["zapBaseUrl"] != SourceFile {
		t.Errorf("zapBaseUrl = %q from %q", cfg.ZapBaseURL, cfg.Sources["zapBaseUrl"])
	}

	_, err = LoadAll(filepath.Join(t.TempDir(), "nope.yaml"))
	var ce *ConfigError
	if !errors.As(err, &ce) || !strings.Contains(ce.Message, "not found") {
		t.Errorf("expected not found ConfigError, got %v", err)
	}
}

func TestLoadEnvConfig(t *testing.T) {
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvSendTimeout, "5s")
	t.Setenv(EnvVerbose, "1")
	t.Setenv(EnvServerURL, "http://remote:4300/")

	cfg := NewDefault()
	if err := LoadEnvConfig(cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.LogFormat != "json" || cfg.SendTimeout != 5*time.Second || !cfg.Verbose {
		t.Errorf("env not applied: %+v", cfg)
	}
	if cfg.APIURL() != "http://remote:4300" {
		t.Errorf("APIURL = %q", cfg.APIURL())
	}

	t.Setenv(EnvScanMaxPolls, "many")
	err := LoadEnvConfig(NewDefault())
	if err == nil || !strings.Contains(err.Error(), EnvScanMaxPolls) {
		t.Errorf("expected error naming %s, got %v", EnvScanMaxPolls, err)
	}
}

func TestLoadEnvConfig_Tracing(t *testing.T) {
	t.Setenv(EnvTracingEndpoint, "localhost:4317")
	t.Setenv(EnvTracingInsecure, "true")
	t.Setenv(EnvTraceRatio, "0.25")
	t.Setenv(EnvTracePropagation, "yes")

	cfg := NewDefault()
	if err := LoadEnvConfig(cfg); err != nil {
		t.Fatal(err)
	}
	tc := cfg.Tracing("1.2.3")
	if tc.Endpoint != "localhost:4317" || !tc.Insecure || tc.SampleRatio != 0.25 || tc.ServiceVersion != "1.2.3" {
		t.Errorf("unexpected tracing config: %+v", tc)
	}
	if !cfg.TracePropagation || cfg.Sources["tracePropagation"] != SourceEnv {
		t.Errorf("tracePropagation not applied from env: %+v", cfg)
	}

	t.Setenv(EnvTraceRatio, "half")
	err := LoadEnvConfig(NewDefault())
	if err == nil || !strings.Contains(err.Error(), EnvTraceRatio) {
		t.Errorf("expected error naming %s, got %v", EnvTraceRatio, err)
	}
}

func TestMergeConfig_TracingFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := "tracingEndpoint: collector:4317\ntraceRatio: 0\ntracePropagation: true\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	file, err := LoadConfigFile(path)
	if err != nil {
		t.Fatal(err)
	}

	cfg := NewDefault()
	MergeConfig(cfg, file, SourceFile)
	if cfg.TracingEndpoint != "collector:4317" || !cfg.TracePropagation {
		t.Errorf("tracing keys not merged: %+v", cfg)
	}
	if cfg.TraceRatio != 0 || cfg.Sources["traceRatio"] != SourceFile {
		t.Errorf("explicit zero traceRatio not merged: %v (%s)", cfg.TraceRatio, cfg.Sources["traceRatio"])
	}
}
