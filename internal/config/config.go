// Package config provides environment configuration helpers for
// mediasync commands. Flags always win; these supply the defaults.
package config

import "os"

// Default command configuration.
const (
	DefaultMonitorAddr = ":8090"
	DefaultAudioPlayer = "ffplay"
	DefaultLogLevel    = "info"
)

// LogLevel returns the log level from MEDIASYNC_LOG_LEVEL, or the
// default.
func LogLevel() string {
	if lvl := os.Getenv("MEDIASYNC_LOG_LEVEL"); lvl != "" {
		return lvl
	}
	return DefaultLogLevel
}

// AudioPlayer returns the external audio player binary from
// MEDIASYNC_AUDIO_PLAYER, or the default.
func AudioPlayer() string {
	if bin := os.Getenv("MEDIASYNC_AUDIO_PLAYER"); bin != "" {
		return bin
	}
	return DefaultAudioPlayer
}

// MonitorAddr returns the web monitor listen address from
// MEDIASYNC_MONITOR_ADDR. Empty means the monitor stays off unless a
// flag enables it.
func MonitorAddr() string {
	return os.Getenv("MEDIASYNC_MONITOR_ADDR")
}

// ModelDir returns the detector model directory from
// MEDIASYNC_MODEL_DIR, empty when unset.
func ModelDir() string {
	return os.Getenv("MEDIASYNC_MODEL_DIR")
}
