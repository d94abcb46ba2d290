package cliconfig

// MergeConfig merges source config into target, updating sources tracking.
// Non-zero values are applied; zero values are applied too when the key is
// in source.SetFields.
func MergeConfig(target, source *Config, sourceType string) {
	if source == nil {
		return
	}
	if target.Sources == nil {
		target.Sources = make(map[string]string)
	}

	mergeString(target, "listenAddr", &target.ListenAddr, source.ListenAddr, sourceType)
	mergeString(target, "dataDir", &target.DataDir, source.DataDir, sourceType)
	mergeString(target, "logLevel", &target.LogLevel, source.LogLevel, sourceType)
	mergeString(target, "logFormat", &target.LogFormat, source.LogFormat, sourceType)
	mergeString(target, "logFile", &target.LogFile, source.LogFile, sourceType)
	mergeString(target, "zapBaseUrl", &target.ZapBaseURL, source.ZapBaseURL, sourceType)
	mergeString(target, "loadTestBinary", &target.LoadTestBinary, source.LoadTestBinary, sourceType)
	mergeString(target, "serverUrl", &target.ServerURL, source.ServerURL, sourceType)
	mergeString(target, "tracingEndpoint", &target.TracingEndpoint, source.TracingEndpoint, sourceType)

	if source.MaxHistory != 0 || isSet(source, "maxHistory") {
		target.MaxHistory = source.MaxHistory
		target.Sources["maxHistory"] = sourceType
	}
	if source.ScanMaxPolls != 0 || isSet(source, "scanMaxPolls") {
		target.ScanMaxPolls = source.ScanMaxPolls
		target.Sources["scanMaxPolls"] = sourceType
	}
	if source.TraceRatio != 0 || isSet(source, "traceRatio") {
		target.TraceRatio = source.TraceRatio
		target.Sources["traceRatio"] = sourceType
	}
	if source.SendTimeout != 0 {
		target.SendTimeout = source.SendTimeout
		target.Sources["sendTimeout"] = sourceType
	}

	// For booleans, `if source.X` cannot detect an explicit false, so
	// SetFields decides. Without SetFields only true is merged.
	if boolIsSet(source, "verbose", source.Verbose) {
		target.Verbose = source.Verbose
		target.Sources["verbose"] = sourceType
	}
	if boolIsSet(source, "json", source.JSON) {
		target.JSON = source.JSON
		target.Sources["json"] = sourceType
	}
	if boolIsSet(source, "tracingInsecure", source.TracingInsecure) {
		target.TracingInsecure = source.TracingInsecure
		target.Sources["tracingInsecure"] = sourceType
	}
	if boolIsSet(source, "tracePropagation", source.TracePropagation) {
		target.TracePropagation = source.TracePropagation
		target.Sources["tracePropagation"] = sourceType
	}
}

// mergeString copies a non-empty value. An explicitly empty value never
// clears a default.
func mergeString(target *Config, key string, dst *string, v, sourceType string) {
	if v == "" {
		return
	}
	*dst = v
	target.Sources[key] = sourceType
}

func isSet(cfg *Config, key string) bool {
	return cfg.SetFields != nil && cfg.SetFields[key]
}

func boolIsSet(cfg *Config, key string, v bool) bool {
	if cfg.SetFields != nil {
		return cfg.SetFields[key]
	}
	return v
}
