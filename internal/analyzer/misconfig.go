package analyzer

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/vulnwatch/webscan/internal/models"
)

var directoryListingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`<title>index of`),
	regexp.MustCompile(`<h1>directory listing`),
	regexp.MustCompile(`<h1>index of`),
	regexp.MustCompile(`parent directory</a>`),
	regexp.MustCompile(`directory listing for`),
	regexp.MustCompile(`<pre>name\s+last modified\s+size\s+description`),
	regexp.MustCompile(`<pre>directory listing of`),
}

var verboseErrorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`exception|stack trace|syntax error|fatal error`),
	regexp.MustCompile(`(sql|odbc|ole db|jdbc) error`),
	regexp.MustCompile(`(php|python|ruby|perl|java|\.net) error`),
	regexp.MustCompile(`line \d+ of file`),
	regexp.MustCompile(`call stack`),
	regexp.MustCompile(`uncaught exception`),
	regexp.MustCompile(`debug info`),
	regexp.MustCompile(`thrown in`),
	regexp.MustCompile(`undefined index:`),
	regexp.MustCompile(`undefined variable:`),
	regexp.MustCompile(`error occurred in`),
	regexp.MustCompile(`<b>warning</b>:`),
	regexp.MustCompile(`<b>notice</b>:`),
	regexp.MustCompile(`<b>error</b>:`),
}

// defaultConfigURLIndicators are path fragments of well-known config,
// status and VCS artifacts that should never be reachable.
var defaultConfigURLIndicators = []string{
	"phpinfo.php",
	"config.php",
	"config.inc.php",
	"setup.php",
	"default.config",
	"conf.default",
	"wp-config.php",
	"server-status",
	"server-info",
	".env",
	".git",
	".svn",
	".htpasswd",
	".htaccess",
	"config.xml",
	"web.config",
	"settings.py",
	"settings.ini",
}

var defaultConfigContentIndicators = []string{
	"installation complete",
	"setup successful",
	"default password",
	"default username",
	"default admin",
	"password is",
	"username is",
	"configuration file",
	"config file",
}

// MisconfigAnalyzer detects directory listings, verbose error pages and
// exposed default configuration artifacts.
type MisconfigAnalyzer struct{}

// NewMisconfigAnalyzer creates a MisconfigAnalyzer.
func NewMisconfigAnalyzer() *MisconfigAnalyzer {
	return &MisconfigAnalyzer{}
}

// Name implements Analyzer.
func (a *MisconfigAnalyzer) Name() string { return "misconfig" }

// Check implements Analyzer.
func (a *MisconfigAnalyzer) Check(_ context.Context, page *Page) []models.Finding {
	var findings []models.Finding
	now := time.Now()
	body := page.BodyLower()

	if page.Response.StatusCode == http.StatusOK && matchesAny(directoryListingPatterns, body) {
		findings = append(findings, models.Finding{
			Type:      models.FindingDirectoryListing,
			URL:       page.URL,
			Timestamp: now,
			Details: models.FindingDetails{
				Severity:       models.SeverityMedium,
				Description:    "Directory listing is enabled",
				Recommendation: "Disable directory listing in your web server configuration",
				Consequences:   "Attackers can view the contents of directories, potentially exposing sensitive files",
			},
		})
	}

	if page.Response.StatusCode >= http.StatusBadRequest && matchesAny(verboseErrorPatterns, body) {
		findings = append(findings, models.Finding{
			Type:      models.FindingVerboseErrors,
			URL:       page.URL,
			Timestamp: now,
			Details: models.FindingDetails{
				Severity:       models.SeverityMedium,
				Description:    "Verbose error messages or stack traces detected",
				Recommendation: "Configure your application to display generic error messages in production",
				Consequences:   "Detailed error messages can reveal sensitive information about your application structure, dependencies, and potential vulnerabilities",
			},
		})
	}

	if hasDefaultConfigs(page.URL, body) {
		findings = append(findings, models.Finding{
			Type:      models.FindingDefaultConfigs,
			URL:       page.URL,
			Timestamp: now,
			Details: models.FindingDetails{
				Severity:       models.SeverityHigh,
				Description:    "Default configuration files or credentials detected",
				Recommendation: "Remove default configuration files and change default credentials",
				Consequences:   "Default configurations often contain vulnerabilities or credentials that are widely known to attackers",
			},
		})
	}

	return findings
}

func matchesAny(patterns []*regexp.Regexp, content string) bool {
	for _, pattern := range patterns {
		if pattern.MatchString(content) {
			return true
		}
	}
	return false
}

func hasDefaultConfigs(pageURL, bodyLower string) bool {
	urlLower := strings.ToLower(pageURL)
	for _, indicator := range defaultConfigURLIndicators {
		if strings.Contains(urlLower, indicator) {
			return true
		}
	}
	for _, indicator := range defaultConfigContentIndicators {
		if strings.Contains(bodyLower, indicator) {
			return true
		}
	}
	return false
}
