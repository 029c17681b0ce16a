package analyzer

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/vulnwatch/webscan/internal/extractor"
	"github.com/vulnwatch/webscan/internal/models"
)

// insecurePackageSourcePatterns match plain-HTTP package registry and CDN
// URLs anywhere in the page source.
var insecurePackageSourcePatterns = []*regexp.Regexp{
	regexp.MustCompile(`http://registry\.npmjs\.org`),
	regexp.MustCompile(`http://rubygems\.org`),
	regexp.MustCompile(`http://pypi\.org`),
	regexp.MustCompile(`http://repo\d+\.maven\.org`),
	regexp.MustCompile(`http://plugins\.jquery\.com`),
	regexp.MustCompile(`http://bower\.herokuapp\.com`),
	regexp.MustCompile(`http://unpkg\.com`),
	regexp.MustCompile(`http://cdn\.jsdelivr\.net`),
	regexp.MustCompile(`http://cdnjs\.cloudflare\.com`),
}

// deserializationPatterns are call sites that hint at unsafe
// deserialization. Heuristic, so false positives are expected.
var deserializationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\.deserialize\(`),
	regexp.MustCompile(`(?i)ObjectInputStream`),
	regexp.MustCompile(`(?i)readObject\(`),
	regexp.MustCompile(`(?i)yaml\.load\(`),
	regexp.MustCompile(`(?i)pickle\.loads`),
	regexp.MustCompile(`(?i)Marshal\.load`),
	regexp.MustCompile(`(?i)unserialize\(`),
	regexp.MustCompile(`(?i)fromJSON\(`),
	regexp.MustCompile(`(?i)JSON\.parse\(`),
	regexp.MustCompile(`(?i)eval\(`),
	regexp.MustCompile(`(?i)fromCharCode\(`),
}

// IntegrityAnalyzer detects software and data integrity failures: external
// scripts without SRI, scripts over plain HTTP, insecure package sources
// and deserialization heuristics.
type IntegrityAnalyzer struct{}

// NewIntegrityAnalyzer creates an IntegrityAnalyzer.
func NewIntegrityAnalyzer() *IntegrityAnalyzer {
	return &IntegrityAnalyzer{}
}

// Name implements Analyzer.
func (a *IntegrityAnalyzer) Name() string { return "integrity" }

// Check implements Analyzer.
func (a *IntegrityAnalyzer) Check(_ context.Context, page *Page) []models.Finding {
	var findings []models.Finding
	now := time.Now()

	scripts := extractor.ExtractScripts(page.Doc, page.Base)

	for _, script := range scripts {
		if script.External && script.Integrity == "" {
			findings = append(findings, models.Finding{
				Type:      models.FindingMissingSRI,
				URL:       page.URL,
				Timestamp: now,
				Details: models.FindingDetails{
					Severity:       models.SeverityMedium,
					Description:    "External script without Subresource Integrity (SRI) protection",
					Recommendation: "Add integrity attribute to the script tag with a valid hash",
					Consequences:   "Without SRI, attackers who compromise the CDN or external resource could inject malicious code into your application",
					ScriptURL:      script.URL,
				},
			})
		}

		if strings.HasPrefix(script.URL, "http://") {
			findings = append(findings, models.Finding{
				Type:      models.FindingInsecureScript,
				URL:       page.URL,
				Timestamp: now,
				Details: models.FindingDetails{
					Severity:       models.SeverityHigh,
					Description:    "Script loaded over insecure HTTP",
					Recommendation: "Load all scripts over HTTPS",
					Consequences:   "Scripts loaded over HTTP are vulnerable to man-in-the-middle attacks",
					ScriptURL:      script.URL,
				},
			})
		}
	}

	body := page.Response.BodyString()

	for _, pattern := range insecurePackageSourcePatterns {
		for _, match := range pattern.FindAllString(body, -1) {
			findings = append(findings, models.Finding{
				Type:      models.FindingInsecurePackageSource,
				URL:       page.URL,
				Timestamp: now,
				Details: models.FindingDetails{
					Severity:       models.SeverityMedium,
					Description:    "Insecure package source or registry",
					Recommendation: "Use secure and verified package sources",
					Consequences:   "Insecure package sources could distribute compromised dependencies",
					ScriptURL:      match,
				},
			})
		}
	}

	for _, pattern := range deserializationPatterns {
		if pattern.MatchString(body) {
			findings = append(findings, models.Finding{
				Type:      models.FindingInsecureDeserialize,
				URL:       page.URL,
				Timestamp: now,
				Details: models.FindingDetails{
					Severity:       models.SeverityHigh,
					Description:    "Potential insecure deserialization vulnerability",
					Recommendation: "Use secure deserialization methods or alternatives like JSON",
					Consequences:   "Insecure deserialization can lead to remote code execution",
					Indicator:      pattern.String(),
				},
			})
			break
		}
	}

	return findings
}
