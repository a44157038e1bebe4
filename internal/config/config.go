// Package config loads process-wide defaults: timeouts, reconnect backoff,
// and log destination. A single struct is loaded from disk with every
// field clamped and defaulted afterward, and read as YAML. Nothing else in
// this module reads the loaded values; sockets start from
// core.DefaultSocketOptions.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Defaults and clamp bounds. A value outside [min, max] in the file on
// disk is replaced with its default rather than rejected.
const (
	DefaultSendTimeout       = 0 // no deadline
	DefaultRecvTimeout       = 0
	DefaultRecvMaxSizeBytes  = 1024 * 1024
	minRecvMaxSizeBytes      = 1024
	maxRecvMaxSizeBytes      = 256 * 1024 * 1024
	DefaultReconnectInterval = 100 * time.Millisecond
	minReconnectInterval     = time.Millisecond
	maxReconnectInterval     = time.Minute
	DefaultSurveyDeadline    = time.Second
	minSurveyDeadline        = time.Millisecond
	maxSurveyDeadline        = time.Hour

	DefaultLogDir = "/var/log/sp"
)

// Socket holds the subset of SocketOptions a deployment wants to override
// from their library defaults.
type Socket struct {
	SendTimeoutMillis int64 `yaml:"send_timeout_millis"`
	RecvTimeoutMillis int64 `yaml:"recv_timeout_millis"`
	RecvMaxSizeBytes  int64 `yaml:"recv_max_size_bytes"`
	ReconnectMillis   int64 `yaml:"reconnect_interval_millis"`
	SurveyDeadlineMs  int64 `yaml:"survey_deadline_millis"`
	TCPNoDelay        *bool `yaml:"tcp_no_delay,omitempty"`
}

// Log holds the seelog destination overrides.
type Log struct {
	Dir   string `yaml:"dir"`
	Level string `yaml:"level"`
}

// T is the top-level config document, loaded once per process.
type T struct {
	Socket Socket `yaml:"socket"`
	Log    Log    `yaml:"log"`
}

var loaded *T

// Load reads and validates the YAML document at path. A missing file is
// not an error: it returns Default().
func Load(path string) (T, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return T{}, err
	}
	var cfg T
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return T{}, err
	}
	clamp(&cfg)
	loaded = &cfg
	return cfg, nil
}

// Default returns the library's built-in defaults without touching disk.
func Default() T {
	cfg := T{Log: Log{Dir: DefaultLogDir, Level: "info"}}
	clamp(&cfg)
	return cfg
}

// Loaded returns the most recently successful Load, or Default if Load
// was never called.
func Loaded() T {
	if loaded == nil {
		return Default()
	}
	return *loaded
}

func clamp(cfg *T) {
	cfg.Socket.RecvMaxSizeBytes = numericValue(cfg.Socket.RecvMaxSizeBytes, minRecvMaxSizeBytes, maxRecvMaxSizeBytes, DefaultRecvMaxSizeBytes)
	cfg.Socket.ReconnectMillis = numericValue(cfg.Socket.ReconnectMillis, minReconnectInterval.Milliseconds(), maxReconnectInterval.Milliseconds(), DefaultReconnectInterval.Milliseconds())
	cfg.Socket.SurveyDeadlineMs = numericValue(cfg.Socket.SurveyDeadlineMs, minSurveyDeadline.Milliseconds(), maxSurveyDeadline.Milliseconds(), DefaultSurveyDeadline.Milliseconds())
	if cfg.Socket.SendTimeoutMillis < 0 {
		cfg.Socket.SendTimeoutMillis = DefaultSendTimeout
	}
	if cfg.Socket.RecvTimeoutMillis < 0 {
		cfg.Socket.RecvTimeoutMillis = DefaultRecvTimeout
	}
	if cfg.Log.Dir == "" {
		cfg.Log.Dir = DefaultLogDir
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// numericValue returns the default if configValue is below min or above
// max, mirroring appconfig_parser.go's getNumericValue.
func numericValue(configValue, minValue, maxValue, defaultValue int64) int64 {
	if configValue < minValue || configValue > maxValue {
		return defaultValue
	}
	return configValue
}

// ReconnectInterval returns the configured reconnect interval as a
// time.Duration, for wiring into core.SocketOptions.
func (s Socket) ReconnectInterval() time.Duration {
	return time.Duration(s.ReconnectMillis) * time.Millisecond
}

// SurveyDeadline returns the configured survey collection window.
func (s Socket) SurveyDeadline() time.Duration {
	return time.Duration(s.SurveyDeadlineMs) * time.Millisecond
}
