package constants

import "time"

// Centralized default values for timeouts, intervals, and related settings.
// These provide sane defaults; environment/config may override where supported.

const (
	// Database
	DBReadTimeoutDefault  = 5 * time.Second
	DBWriteTimeoutDefault = 5 * time.Second

	// Device/server position acquisition (single shot, no retry)
	LocationTimeoutDefault = 10 * time.Second

	// OCR extraction / OpenAI
	ScannerRequestTimeoutDefault = 30 * time.Second
	ScannerOpenFor               = 45 * time.Second
	ScannerMaxConsecFailures     = 5

	// Health
	HealthTimeoutDefault = 5 * time.Second

	// Config watcher
	ConfigWatcherIntervalDefault = 5 * time.Second

	// App shutdown
	GracefulShutdownTimeoutDefault = 10 * time.Second

	// Attempt log SQL operations
	EventsSQLTimeoutDefault = 5 * time.Second

	// HTTP server
	HTTPReadHeaderTimeout = 5 * time.Second
	HTTPReadTimeout       = 15 * time.Second
	HTTPWriteTimeout      = 30 * time.Second
	HTTPIdleTimeout       = 60 * time.Second
)
