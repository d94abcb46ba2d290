package cliconfig

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Environment variable names
const (
	EnvConfig         = "ROCKETBOY_CONFIG"
	EnvListenAddr     = "ROCKETBOY_LISTEN_ADDR"
	EnvDataDir        = "ROCKETBOY_DATA_DIR"
	EnvLogLevel       = "ROCKETBOY_LOG_LEVEL"
	EnvLogFormat      = "ROCKETBOY_LOG_FORMAT"
	EnvLogFile        = "ROCKETBOY_LOG_FILE"
	EnvZapBaseURL     = "ROCKETBOY_ZAP_BASE_URL"
	EnvLoadTestBinary = "ROCKETBOY_LOADTEST_BINARY"
	EnvMaxHistory     = "ROCKETBOY_MAX_HISTORY"
	EnvScanMaxPolls   = "ROCKETBOY_SCAN_MAX_POLLS"
	EnvSendTimeout    = "ROCKETBOY_SEND_TIMEOUT"
	EnvServerURL      = "ROCKETBOY_SERVER"
	EnvVerbose        = "ROCKETBOY_VERBOSE"

	EnvTracingEndpoint  = "ROCKETBOY_TRACING_ENDPOINT"
	EnvTracingInsecure  = "ROCKETBOY_TRACING_INSECURE"
	EnvTraceRatio       = "ROCKETBOY_TRACE_RATIO"
	EnvTracePropagation = "ROCKETBOY_TRACE_PROPAGATION"
)

// LoadEnvConfig applies the ROCKETBOY_* variables that are set. A number
// or duration that does not parse is an error naming the variable.
func LoadEnvConfig(cfg *Config) error {
	if cfg.Sources == nil {
		cfg.Sources = make(map[string]string)
	}

	strs := []struct {
		env, key string
		dst      *string
	}{
		{EnvListenAddr, "listenAddr", &cfg.ListenAddr},
		{EnvDataDir, "dataDir", &cfg.DataDir},
		{EnvLogLevel, "logLevel", &cfg.LogLevel},
		{EnvLogFormat, "logFormat", &cfg.LogFormat},
		{EnvLogFile, "logFile", &cfg.LogFile},
		{EnvZapBaseURL, "zapBaseUrl", &cfg.ZapBaseURL},
		{EnvLoadTestBinary, "loadTestBinary", &cfg.LoadTestBinary},
		{EnvServerURL, "serverUrl", &cfg.ServerURL},
		{EnvTracingEndpoint, "tracingEndpoint", &cfg.TracingEndpoint},
	}
	for _, s := range strs {
		if v := os.Getenv(s.env); v != "" {
			*s.dst = v
			cfg.Sources[s.key] = SourceEnv
		}
	}

	ints := []struct {
		env, key string
		dst      *int
	}{
		{EnvMaxHistory, "maxHistory", &cfg.MaxHistory},
		{EnvScanMaxPolls, "scanMaxPolls", &cfg.ScanMaxPolls},
	}
	for _, i := range ints {
		v := os.Getenv(i.env)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %q is not a number", i.env, v)
		}
		*i.dst = n
		cfg.Sources[i.key] = SourceEnv
	}

	if v := os.Getenv(EnvSendTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %q is not a duration", EnvSendTimeout, v)
		}
		cfg.SendTimeout = d
		cfg.Sources["sendTimeout"] = SourceEnv
	}

	if v := os.Getenv(EnvTraceRatio); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %q is not a number", EnvTraceRatio, v)
		}
		cfg.TraceRatio = f
		cfg.Sources["traceRatio"] = SourceEnv
	}

	bools := []struct {
		env, key string
		dst      *bool
	}{
		{EnvVerbose, "verbose", &cfg.Verbose},
		{EnvTracingInsecure, "tracingInsecure", &cfg.TracingInsecure},
		{EnvTracePropagation, "tracePropagation", &cfg.TracePropagation},
	}
	for _, b := range bools {
		if v := os.Getenv(b.env); v != "" {
			*b.dst = envBool(v)
			cfg.Sources[b.key] = SourceEnv
		}
	}
	return nil
}

func envBool(v string) bool {
	return v == "true" || v == "1" || v == "yes"
}
