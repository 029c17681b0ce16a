package config

import (
	"time"

	"github.com/vulnwatch/webscan/internal/logger"
)

// Crawl and request defaults.
const (
	DefaultMaxDepth       = 3
	DefaultMaxPages       = 100
	DefaultThreads        = 4
	DefaultScanDelay      = 1.0 // seconds between page fetches
	DefaultMaxRetries     = 3
	DefaultRequestTimeout = 30 // seconds
	DefaultUserAgent      = "webscan/1.0 (+https://github.com/vulnwatch/webscan)"

	DefaultLengthDelta   = 100 // body size delta (bytes) treated as SQLi evidence
	DefaultTimeThreshold = 2.0 // seconds of latency treated as time-based SQLi
	DefaultPayloadDelay  = 0.5 // seconds between injection requests
)

// CrawlerConfig controls the breadth-first crawl: depth, page budget,
// parallelism and pacing.
type CrawlerConfig struct {
	MaxDepth  int     `json:"max_depth" yaml:"max_depth" validate:"min=0"`
	MaxPages  int     `json:"max_pages" yaml:"max_pages" validate:"min=1"`
	Threads   int     `json:"threads" yaml:"threads" validate:"min=1"`
	ScanDelay float64 `json:"scan_delay" yaml:"scan_delay" validate:"min=0"`
}

// NewDefaultCrawlerConfig creates a CrawlerConfig with default values.
func NewDefaultCrawlerConfig() CrawlerConfig {
	return CrawlerConfig{
		MaxDepth:  DefaultMaxDepth,
		MaxPages:  DefaultMaxPages,
		Threads:   DefaultThreads,
		ScanDelay: DefaultScanDelay,
	}
}

// ScanDelayDuration returns the inter-request delay as a time.Duration.
func (c CrawlerConfig) ScanDelayDuration() time.Duration {
	return time.Duration(c.ScanDelay * float64(time.Second))
}

// HTTPConfig controls the shared HTTP client used by the crawler, the
// analyzers and the injection scanners.
type HTTPConfig struct {
	RequestTimeout  int               `json:"request_timeout" yaml:"request_timeout" validate:"min=1"`
	MaxRetries      int               `json:"max_retries" yaml:"max_retries" validate:"min=0"`
	VerifySSL       bool              `json:"verify_ssl" yaml:"verify_ssl"`
	FollowRedirects bool              `json:"follow_redirects" yaml:"follow_redirects"`
	UserAgent       string            `json:"user_agent" yaml:"user_agent"`
	CustomHeaders   map[string]string `json:"custom_headers,omitempty" yaml:"custom_headers,omitempty"`
	UseProxy        bool              `json:"use_proxy" yaml:"use_proxy"`
	ProxyURL        string            `json:"proxy_url,omitempty" yaml:"proxy_url,omitempty" validate:"omitempty,url"`
	RateLimit       float64           `json:"rate_limit" yaml:"rate_limit" validate:"min=0"`
}

// NewDefaultHTTPConfig creates an HTTPConfig with default values.
// RateLimit zero means unlimited.
func NewDefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		RequestTimeout:  DefaultRequestTimeout,
		MaxRetries:      DefaultMaxRetries,
		VerifySSL:       true,
		FollowRedirects: true,
		UserAgent:       DefaultUserAgent,
	}
}

// RequestTimeoutDuration returns the per-request timeout as a time.Duration.
func (c HTTPConfig) RequestTimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// ChecksConfig toggles individual vulnerability categories. Everything is
// on by default; disabling a category skips its analyzer without unlinking
// it. ActiveProbes gates the checks that send state-changing traffic
// (form submissions, brute-force probes, request bursts).
type ChecksConfig struct {
	ScanForms             bool `json:"scan_forms" yaml:"scan_forms"`
	ScanLinks             bool `json:"scan_links" yaml:"scan_links"`
	ScanHeaders           bool `json:"scan_headers" yaml:"scan_headers"`
	ScanCookies           bool `json:"scan_cookies" yaml:"scan_cookies"`
	ScanXSS               bool `json:"scan_xss" yaml:"scan_xss"`
	ScanSQLi              bool `json:"scan_sqli" yaml:"scan_sqli"`
	ScanBrokenAccess      bool `json:"scan_broken_access" yaml:"scan_broken_access"`
	ScanCryptoFailures    bool `json:"scan_crypto_failures" yaml:"scan_crypto_failures"`
	ScanInsecureDesign    bool `json:"scan_insecure_design" yaml:"scan_insecure_design"`
	ScanMisconfigurations bool `json:"scan_security_misconfigurations" yaml:"scan_security_misconfigurations"`
	ScanComponents        bool `json:"scan_vulnerable_components" yaml:"scan_vulnerable_components"`
	ScanAuthFailures      bool `json:"scan_auth_failures" yaml:"scan_auth_failures"`
	ScanIntegrity         bool `json:"scan_integrity_failures" yaml:"scan_integrity_failures"`
	ScanLoggingMonitoring bool `json:"scan_logging_monitoring" yaml:"scan_logging_monitoring"`
	ScanSSRF              bool `json:"scan_ssrf" yaml:"scan_ssrf"`

	ActiveProbes bool `json:"active_probes" yaml:"active_probes"`

	// StrictAccessControl limits broken-access findings to responses that
	// carry admin-style content without a login form. The permissive
	// default flags any reachable restricted path, which is noisy but
	// catches misconfigured soft-404 setups.
	StrictAccessControl bool `json:"strict_access_control" yaml:"strict_access_control"`
}

// NewDefaultChecksConfig enables every category and active probes.
func NewDefaultChecksConfig() ChecksConfig {
	return ChecksConfig{
		ScanForms:             true,
		ScanLinks:             true,
		ScanHeaders:           true,
		ScanCookies:           true,
		ScanXSS:               true,
		ScanSQLi:              true,
		ScanBrokenAccess:      true,
		ScanCryptoFailures:    true,
		ScanInsecureDesign:    true,
		ScanMisconfigurations: true,
		ScanComponents:        true,
		ScanAuthFailures:      true,
		ScanIntegrity:         true,
		ScanLoggingMonitoring: true,
		ScanSSRF:              true,
		ActiveProbes:          true,
	}
}

// DetectionConfig holds injection detection thresholds and payload file
// locations. Empty payload paths fall back to the built-in payload sets.
type DetectionConfig struct {
	LengthDelta     int     `json:"length_delta" yaml:"length_delta" validate:"min=1"`
	TimeThreshold   float64 `json:"time_threshold" yaml:"time_threshold" validate:"gt=0"`
	PayloadDelay    float64 `json:"payload_delay" yaml:"payload_delay" validate:"min=0"`
	SQLiPayloadFile string  `json:"sqli_payload_file,omitempty" yaml:"sqli_payload_file,omitempty"`
	XSSPayloadFile  string  `json:"xss_payload_file,omitempty" yaml:"xss_payload_file,omitempty"`
	ComponentsFile  string  `json:"components_file,omitempty" yaml:"components_file,omitempty"`
}

// NewDefaultDetectionConfig creates a DetectionConfig with default values.
func NewDefaultDetectionConfig() DetectionConfig {
	return DetectionConfig{
		LengthDelta:   DefaultLengthDelta,
		TimeThreshold: DefaultTimeThreshold,
		PayloadDelay:  DefaultPayloadDelay,
	}
}

// TimeThresholdDuration returns the time-based detection threshold.
func (c DetectionConfig) TimeThresholdDuration() time.Duration {
	return time.Duration(c.TimeThreshold * float64(time.Second))
}

// PayloadDelayDuration returns the delay between injection requests.
func (c DetectionConfig) PayloadDelayDuration() time.Duration {
	return time.Duration(c.PayloadDelay * float64(time.Second))
}

// StorageConfig selects the result sink. Sink "local" writes JSON files to
// OutputDir; "sqlite" stores result documents in SQLitePath with OutputDir
// kept as the fallback location.
type StorageConfig struct {
	OutputDir  string `json:"output_dir" yaml:"output_dir" validate:"required"`
	Sink       string `json:"sink" yaml:"sink" validate:"omitempty,oneof=local sqlite"`
	SQLitePath string `json:"sqlite_path,omitempty" yaml:"sqlite_path,omitempty"`
}

// NewDefaultStorageConfig creates a StorageConfig with default values.
func NewDefaultStorageConfig() StorageConfig {
	return StorageConfig{
		OutputDir: "scan_results",
		Sink:      "local",
	}
}

// GlobalConfig contains all configuration sections for the scanner.
type GlobalConfig struct {
	CrawlerConfig   CrawlerConfig   `json:"crawler_config,omitempty" yaml:"crawler_config,omitempty"`
	HTTPConfig      HTTPConfig      `json:"http_config,omitempty" yaml:"http_config,omitempty"`
	ChecksConfig    ChecksConfig    `json:"checks_config,omitempty" yaml:"checks_config,omitempty"`
	DetectionConfig DetectionConfig `json:"detection_config,omitempty" yaml:"detection_config,omitempty"`
	StorageConfig   StorageConfig   `json:"storage_config,omitempty" yaml:"storage_config,omitempty"`
	LogConfig       logger.Config   `json:"log_config,omitempty" yaml:"log_config,omitempty"`
}

// NewDefaultGlobalConfig creates a GlobalConfig with default values for
// every section.
func NewDefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		CrawlerConfig:   NewDefaultCrawlerConfig(),
		HTTPConfig:      NewDefaultHTTPConfig(),
		ChecksConfig:    NewDefaultChecksConfig(),
		DetectionConfig: NewDefaultDetectionConfig(),
		StorageConfig:   NewDefaultStorageConfig(),
		LogConfig:       logger.NewDefaultConfig(),
	}
}
