package models

import "time"

// Severity levels used across findings.
const (
	SeverityCritical = "Critical"
	SeverityHigh     = "High"
	SeverityMedium   = "Medium"
	SeverityLow      = "Low"
)

// Finding types. Missing-header findings use the "missing_" prefix followed
// by the lowercased, underscored header name (e.g. missing_content_security_policy).
const (
	FindingSQLInjection          = "sql_injection"
	FindingReflectedXSS          = "reflected_xss"
	FindingBrokenAccess          = "broken_access_control"
	FindingNoHTTPS               = "crypto_failure_no_https"
	FindingInsecureCookies       = "crypto_failure_insecure_cookies"
	FindingOutdatedTLS           = "crypto_failure_outdated_tls"
	FindingMissingCSRF           = "insecure_design_csrf"
	FindingNoRateLimiting        = "insecure_design_no_rate_limiting"
	FindingDirectoryListing      = "security_misconfiguration_directory_listing"
	FindingVerboseErrors         = "security_misconfiguration_verbose_errors"
	FindingDefaultConfigs        = "security_misconfiguration_default_configs"
	FindingVulnerableComponent   = "vulnerable_component"
	FindingNoCaptcha             = "auth_failure_no_captcha"
	FindingNo2FA                 = "auth_failure_no_2fa"
	FindingWeakPasswordPolicy    = "auth_failure_weak_password_policy"
	FindingNoBruteForceGuard     = "auth_failure_no_brute_force_protection"
	FindingDefaultLoginPage      = "auth_failure_default_login_page"
	FindingMissingSRI            = "integrity_failure_missing_sri"
	FindingInsecureScript        = "integrity_failure_insecure_script"
	FindingInsecurePackageSource = "integrity_failure_insecure_package_source"
	FindingInsecureDeserialize   = "integrity_failure_insecure_deserialization"
	FindingNoAccountLockout      = "logging_monitoring_no_account_lockout"
	FindingNoLoginMonitoring     = "logging_monitoring_no_login_failure_monitoring"
	FindingNoAuditTrail          = "logging_monitoring_no_audit_trail"
	FindingInsufficientAdminLog  = "logging_monitoring_insufficient_admin_logging"
	FindingNoCentralizedLogging  = "logging_monitoring_no_centralized_logging"
	FindingNoActivityMonitoring  = "logging_monitoring_no_suspicious_activity_monitoring"
	FindingSSRFURLParameter      = "ssrf_url_parameter"
	FindingSSRFFormInput         = "ssrf_form_input"
	FindingSSRFAPIEndpoint       = "ssrf_api_endpoint"
)

// MissingHeaderFinding builds the finding type for an absent security
// response header, e.g. "Content-Security-Policy" -> "missing_content_security_policy".
func MissingHeaderFinding(headerSlug string) string {
	return "missing_" + headerSlug
}

// Finding is one detected vulnerability. The envelope fields are always
// present; everything type-specific lives in Details. Findings are
// append-only and never mutated after creation.
type Finding struct {
	Type      string         `json:"type"`
	URL       string         `json:"url"`
	File      string         `json:"file,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Details   FindingDetails `json:"details"`
}

// FindingDetails carries the per-type payload of a finding. The common
// fields (Severity, Description, Recommendation) are set for every type;
// the rest are optional and documented per finding type:
//
//	missing_*              Header
//	sql_injection          Parameter or InputField, Method, Payload, DetectionMethod, ResponseTime
//	reflected_xss          Parameter or InputField, Method, Payload, ReflectionContexts
//	vulnerable_component   Library, Version, KnownCVEs, ScriptURL
//	crypto_failure_*       TLSVersion, CookieIssues
//	integrity_failure_*    ScriptURL
//	broken_access_control  Endpoint, StatusCode
//	auth_failure_*         Endpoint, MissingControls
//	ssrf_*                 Parameter or InputField or Endpoint, Payload, Indicator, StatusCode
type FindingDetails struct {
	Severity       string  `json:"severity"`
	Description    string  `json:"description"`
	Recommendation string  `json:"recommendation,omitempty"`
	Consequences   string  `json:"consequences,omitempty"`
	Confidence     float64 `json:"confidence,omitempty"`

	Header             string   `json:"header,omitempty"`
	Parameter          string   `json:"parameter,omitempty"`
	InputField         string   `json:"input_field,omitempty"`
	Method             string   `json:"method,omitempty"`
	Payload            string   `json:"payload,omitempty"`
	DetectionMethod    string   `json:"detection_method,omitempty"`
	ResponseTime       float64  `json:"response_time,omitempty"`
	ReflectionContexts []string `json:"reflection_contexts,omitempty"`
	Library            string   `json:"library,omitempty"`
	Version            string   `json:"version,omitempty"`
	KnownCVEs          []string `json:"known_cves,omitempty"`
	ScriptURL          string   `json:"script_url,omitempty"`
	TLSVersion         string   `json:"tls_version,omitempty"`
	CookieIssues       []string `json:"cookie_issues,omitempty"`
	Endpoint           string   `json:"endpoint,omitempty"`
	StatusCode         int      `json:"status_code,omitempty"`
	Indicator          string   `json:"indicator,omitempty"`
	MissingControls    []string `json:"missing_controls,omitempty"`
}
