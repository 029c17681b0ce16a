package analyzer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vulnwatch/webscan/internal/httpclient"
	"github.com/vulnwatch/webscan/internal/models"
)

// CryptoAnalyzer detects cryptographic failures: plain-HTTP pages, cookies
// without security attributes, and outdated negotiated TLS versions.
type CryptoAnalyzer struct {
	client       *httpclient.Client
	auditCookies bool
	logger       zerolog.Logger
}

// NewCryptoAnalyzer creates a CryptoAnalyzer. The cookie audit follows the
// scan_cookies toggle independently of the category toggle.
func NewCryptoAnalyzer(client *httpclient.Client, auditCookies bool, log zerolog.Logger) *CryptoAnalyzer {
	return &CryptoAnalyzer{
		client:       client,
		auditCookies: auditCookies,
		logger:       log.With().Str("component", "CryptoAnalyzer").Logger(),
	}
}

// Name implements Analyzer.
func (a *CryptoAnalyzer) Name() string { return "crypto" }

// Check implements Analyzer.
func (a *CryptoAnalyzer) Check(ctx context.Context, page *Page) []models.Finding {
	var findings []models.Finding
	now := time.Now()

	isHTTPS := strings.HasPrefix(page.URL, "https://")

	if !isHTTPS {
		findings = append(findings, models.Finding{
			Type:      models.FindingNoHTTPS,
			URL:       page.URL,
			Timestamp: now,
			Details: models.FindingDetails{
				Severity:       models.SeverityHigh,
				Description:    "Site is not using HTTPS encryption",
				Recommendation: "Implement HTTPS for all web traffic",
				Consequences:   "Data transmitted in plaintext can be intercepted, read, or modified by attackers",
			},
		})
	}

	if a.auditCookies {
		if issues := auditCookies(page.Response); len(issues) > 0 {
			findings = append(findings, models.Finding{
				Type:      models.FindingInsecureCookies,
				URL:       page.URL,
				Timestamp: now,
				Details: models.FindingDetails{
					Severity:       models.SeverityMedium,
					Description:    "Cookies with missing security attributes",
					Recommendation: "Set Secure, HttpOnly, and SameSite attributes on cookies",
					Consequences:   "Cookies may be stolen via XSS attacks or transmitted over unencrypted connections",
					CookieIssues:   issues,
				},
			})
		}
	}

	if isHTTPS && page.Base != nil {
		if finding := a.checkTLSVersion(ctx, page); finding != nil {
			findings = append(findings, *finding)
		}
	}

	return findings
}

func auditCookies(resp *httpclient.Response) []string {
	var issues []string

	for _, cookie := range resp.Cookies {
		var cookieIssues []string

		if !cookie.Secure {
			cookieIssues = append(cookieIssues, "Missing Secure flag")
		}
		if !cookie.HttpOnly {
			cookieIssues = append(cookieIssues, "Missing HttpOnly flag")
		}
		switch cookie.SameSite {
		case http.SameSiteNoneMode:
			cookieIssues = append(cookieIssues, "Weak SameSite policy")
		case 0: // attribute absent
			cookieIssues = append(cookieIssues, "Missing SameSite attribute")
		}

		for _, issue := range cookieIssues {
			issues = append(issues, fmt.Sprintf("%s: %s", cookie.Name, issue))
		}
	}

	return issues
}

func (a *CryptoAnalyzer) checkTLSVersion(ctx context.Context, page *Page) *models.Finding {
	host := page.Base.Host
	if page.Base.Port() == "" {
		host += ":443"
	}

	state, err := a.client.TLSState(ctx, host)
	if err != nil {
		// TLS inspection is best effort.
		a.logger.Debug().Str("host", host).Err(err).Msg("Could not check TLS version")
		return nil
	}

	if state.Version >= tls.VersionTLS12 {
		return nil
	}

	version := tls.VersionName(state.Version)
	return &models.Finding{
		Type:      models.FindingOutdatedTLS,
		URL:       page.URL,
		Timestamp: time.Now(),
		Details: models.FindingDetails{
			Severity:       models.SeverityMedium,
			Description:    fmt.Sprintf("Outdated TLS version: %s", version),
			Recommendation: "Upgrade to TLS 1.2 or later",
			Consequences:   "Known vulnerabilities in older TLS versions could lead to man-in-the-middle attacks or information disclosure",
			TLSVersion:     version,
		},
	}
}
