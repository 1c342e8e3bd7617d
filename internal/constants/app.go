package constants

import (
	"time"
)

// Application identity
const (
	// AppName is used for the config directory and the binary name.
	AppName = "auditportal"

	// DefaultAPIBaseURL is used when neither flags, environment nor the
	// config file name a backend.
	DefaultAPIBaseURL = "http://localhost:3000"

	// DefaultCollationLanguage orders category names.
	DefaultCollationLanguage = "mn"
)

// Environment variables
const (
	EnvAPIURL = "AUDITPORTAL_API_URL"
	EnvToken  = "AUDITPORTAL_TOKEN"

	// EnvLegacyAPIURL is the variable the web client was built with.
	EnvLegacyAPIURL = "VITE_API_URL"
)

// Retry configuration
const (
	// DownloadMaxRetries - attempts for template/report/file downloads
	DownloadMaxRetries = 5

	// RetryInitialDelay - initial delay before first retry (200ms)
	RetryInitialDelay = 200 * time.Millisecond

	// RetryMaxDelay - maximum delay between retries (15s)
	RetryMaxDelay = 15 * time.Second

	// APIMaxRetries - default retries for API calls. Catalog feeds are
	// never retried; they degrade to empty instead.
	APIMaxRetries = 0
)

// Chat polling
const (
	// ChatPollInterval - how often an open conversation is refreshed
	ChatPollInterval = 5 * time.Second

	// MinChatPollInterval - lower bound accepted from config
	MinChatPollInterval = 1 * time.Second
)

// Event bus
const (
	// EventBusDefaultBuffer - buffer size per subscriber channel
	EventBusDefaultBuffer = 256
)

// HTTP client
const (
	// HTTPIdleConnTimeout - how long to keep idle connections open (90 seconds)
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPTLSHandshakeTimeout - timeout for TLS handshake (60 seconds)
	HTTPTLSHandshakeTimeout = 60 * time.Second

	// HTTPExpectContinueTimeout - timeout for 100-continue response (1 second)
	HTTPExpectContinueTimeout = 1 * time.Second

	// HTTPDialTimeout - timeout for establishing connection (30 seconds)
	HTTPDialTimeout = 30 * time.Second

	// HTTPDialKeepAlive - keep-alive period for dialer (30 seconds)
	HTTPDialKeepAlive = 30 * time.Second

	// DefaultRequestTimeout - overall timeout for a single API request
	DefaultRequestTimeout = 60 * time.Second

	// ProxyWarmupTimeout - timeout for the optional proxy warmup request
	ProxyWarmupTimeout = 15 * time.Second
)

// Progress rendering
const (
	// ProgressRefreshRate - how often multi-bar progress redraws
	ProgressRefreshRate = 300 * time.Millisecond

	// ProgressBarWidth - width of the multi-bar container
	ProgressBarWidth = 100
)

// Uploads
const (
	// DefaultMaxConcurrentUploads - files uploaded in parallel by one command
	DefaultMaxConcurrentUploads = 3
)
