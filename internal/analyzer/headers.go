package analyzer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vulnwatch/webscan/internal/models"
)

// trackedHeader describes one security response header the scanner expects
// to see on every page.
type trackedHeader struct {
	name           string
	description    string
	recommendation string
	severity       string
	consequences   string
}

var trackedHeaders = []trackedHeader{
	{
		name:           "Content-Security-Policy",
		description:    "Helps prevent XSS and data injection attacks",
		recommendation: "Implement a strict Content-Security-Policy",
		severity:       models.SeverityHigh,
		consequences:   "Without CSP, the site is more vulnerable to cross-site scripting (XSS) attacks",
	},
	{
		name:           "X-Frame-Options",
		description:    "Prevents clickjacking attacks",
		recommendation: "Set X-Frame-Options to DENY or SAMEORIGIN",
		severity:       models.SeverityMedium,
		consequences:   "Without X-Frame-Options, the site could be embedded in an iframe and used for clickjacking attacks",
	},
	{
		name:           "X-Content-Type-Options",
		description:    "Prevents MIME-sniffing attacks",
		recommendation: "Set X-Content-Type-Options to nosniff",
		severity:       models.SeverityMedium,
		consequences:   "Without X-Content-Type-Options, browsers may interpret files as a different MIME type, leading to security vulnerabilities",
	},
	{
		name:           "Strict-Transport-Security",
		description:    "Enforces HTTPS connections",
		recommendation: "Set Strict-Transport-Security with a long max-age",
		severity:       models.SeverityHigh,
		consequences:   "Without HSTS, users might access the site over insecure HTTP connections, exposing data to interception",
	},
	{
		name:           "Referrer-Policy",
		description:    "Controls what information is sent in the Referer header",
		recommendation: "Set Referrer-Policy to no-referrer or same-origin",
		severity:       models.SeverityLow,
		consequences:   "Without Referrer-Policy, sensitive information might be leaked in the Referer header",
	},
	{
		name:           "Permissions-Policy",
		description:    "Controls which browser features can be used",
		recommendation: "Configure Permissions-Policy to restrict unnecessary features",
		severity:       models.SeverityMedium,
		consequences:   "Without Permissions-Policy, sensitive device features might be accessible to untrusted code",
	},
}

// HeadersAnalyzer flags responses missing any of the tracked security
// headers, one finding per absent header.
type HeadersAnalyzer struct{}

// NewHeadersAnalyzer creates a HeadersAnalyzer.
func NewHeadersAnalyzer() *HeadersAnalyzer {
	return &HeadersAnalyzer{}
}

// Name implements Analyzer.
func (a *HeadersAnalyzer) Name() string { return "headers" }

// Check implements Analyzer. Header lookup is case-insensitive.
func (a *HeadersAnalyzer) Check(_ context.Context, page *Page) []models.Finding {
	var findings []models.Finding
	now := time.Now()

	for _, header := range trackedHeaders {
		if page.Response.Header.Get(header.name) != "" {
			continue
		}

		findings = append(findings, models.Finding{
			Type:      models.MissingHeaderFinding(headerSlug(header.name)),
			URL:       page.URL,
			Timestamp: now,
			Details: models.FindingDetails{
				Severity:       header.severity,
				Description:    fmt.Sprintf("Missing %s header: %s", header.name, header.description),
				Recommendation: header.recommendation,
				Consequences:   header.consequences,
				Header:         header.name,
			},
		})
	}

	return findings
}

func headerSlug(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), "-", "_")
}
