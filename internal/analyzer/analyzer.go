// Package analyzer implements the per-response vulnerability checks. Each
// analyzer inspects one fetched page (and, for the active ones, sends a
// bounded number of follow-up probes) and emits findings. The registry
// assembles the enabled set from config so categories can be toggled
// without changing call sites.
package analyzer

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/vulnwatch/webscan/internal/config"
	"github.com/vulnwatch/webscan/internal/extractor"
	"github.com/vulnwatch/webscan/internal/httpclient"
	"github.com/vulnwatch/webscan/internal/models"
)

// Page is one fetched page handed to the analyzers. Doc is nil for
// non-HTML or unparseable bodies; analyzers must tolerate that.
type Page struct {
	URL      string
	Base     *url.URL
	Response *httpclient.Response
	Doc      *goquery.Document
	Forms    []models.Form

	bodyLower string
}

// NewPage builds a Page from a fetched response, parsing the body and
// extracting forms when the response is HTML. Parse failures degrade to a
// Page without a document rather than erroring.
func NewPage(rawURL string, resp *httpclient.Response) *Page {
	page := &Page{
		URL:       rawURL,
		Response:  resp,
		bodyLower: strings.ToLower(resp.BodyString()),
	}

	if base, err := url.Parse(rawURL); err == nil {
		page.Base = base
	}

	if resp.IsHTML() {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.BodyString()))
		if err == nil {
			page.Doc = doc
			page.Forms = extractor.ExtractForms(doc, rawURL, page.Base)
		}
	}

	return page
}

// BodyLower returns the response body lowercased, computed once per page.
func (p *Page) BodyLower() string {
	return p.bodyLower
}

// Analyzer is one vulnerability category check.
type Analyzer interface {
	Name() string
	Check(ctx context.Context, page *Page) []models.Finding
}

// Registry holds the enabled per-page analyzers plus the host-scoped
// sweeps that run once per scan.
type Registry struct {
	analyzers []Analyzer
	access    *AccessControlAnalyzer
	auth      *AuthFailuresAnalyzer
	logger    zerolog.Logger
}

// NewRegistry assembles analyzers according to the checks config. Every
// category stays linked; disabled ones are simply not registered. Probing
// checks are additionally gated on ActiveProbes.
func NewRegistry(cfg *config.GlobalConfig, client *httpclient.Client, log zerolog.Logger) *Registry {
	checks := cfg.ChecksConfig
	r := &Registry{
		logger: log.With().Str("component", "AnalyzerRegistry").Logger(),
	}

	if checks.ScanHeaders {
		r.analyzers = append(r.analyzers, NewHeadersAnalyzer())
	}
	if checks.ScanCryptoFailures {
		r.analyzers = append(r.analyzers, NewCryptoAnalyzer(client, checks.ScanCookies, log))
	}
	if checks.ScanMisconfigurations {
		r.analyzers = append(r.analyzers, NewMisconfigAnalyzer())
	}
	if checks.ScanComponents {
		r.analyzers = append(r.analyzers, NewComponentsAnalyzer(cfg.DetectionConfig.ComponentsFile, log))
	}
	if checks.ScanInsecureDesign {
		r.analyzers = append(r.analyzers, NewInsecureDesignAnalyzer(client, checks.ActiveProbes, log))
	}
	if checks.ScanAuthFailures {
		r.auth = NewAuthFailuresAnalyzer(client, checks.ActiveProbes, log)
		r.analyzers = append(r.analyzers, r.auth)
	}
	if checks.ScanIntegrity {
		r.analyzers = append(r.analyzers, NewIntegrityAnalyzer())
	}
	if checks.ScanLoggingMonitoring {
		r.analyzers = append(r.analyzers, NewLoggingMonitoringAnalyzer(client, checks.ActiveProbes, log))
	}
	if checks.ScanSSRF && checks.ActiveProbes {
		r.analyzers = append(r.analyzers, NewSSRFAnalyzer(client, log))
	}
	if checks.ScanBrokenAccess {
		r.access = NewAccessControlAnalyzer(client, checks.StrictAccessControl, log)
	}

	return r
}

// Run executes every registered per-page analyzer against the page and
// returns the combined findings.
func (r *Registry) Run(ctx context.Context, page *Page) []models.Finding {
	var findings []models.Finding

	for _, a := range r.analyzers {
		select {
		case <-ctx.Done():
			return findings
		default:
		}

		found := a.Check(ctx, page)
		if len(found) > 0 {
			r.logger.Debug().
				Str("analyzer", a.Name()).
				Str("url", page.URL).
				Int("findings", len(found)).
				Msg("Analyzer reported findings")
		}
		findings = append(findings, found...)
	}

	return findings
}

// Sweep runs the host-scoped checks (restricted endpoint access, default
// admin login pages) against the scan target's base URL. Called once per
// scan before the crawl.
func (r *Registry) Sweep(ctx context.Context, baseURL string) []models.Finding {
	var findings []models.Finding

	if r.access != nil {
		findings = append(findings, r.access.Sweep(ctx, baseURL)...)
	}
	if r.auth != nil {
		findings = append(findings, r.auth.SweepAdminPaths(ctx, baseURL)...)
	}

	return findings
}
