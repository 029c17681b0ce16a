// Package crawler drives the breadth-first crawl of a target site. It
// wraps a colly collector with the scanner's frontier policy: normalized
// URLs visited at most once, a hard page budget, and registrable-domain
// scoping. Every fetched page is pushed through the analyzers and the
// injection scanners before its links are enqueued. In-scope script
// sources are fetched as well and statically mined for further endpoints.
package crawler

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/rs/zerolog"

	"github.com/vulnwatch/webscan/internal/analyzer"
	"github.com/vulnwatch/webscan/internal/config"
	"github.com/vulnwatch/webscan/internal/extractor"
	"github.com/vulnwatch/webscan/internal/httpclient"
	"github.com/vulnwatch/webscan/internal/injection"
	"github.com/vulnwatch/webscan/internal/models"
	"github.com/vulnwatch/webscan/internal/stats"
	"github.com/vulnwatch/webscan/internal/urlhandler"
)

const startTimeKey = "webscan_request_start"

// Result collects everything one crawl produced.
type Result struct {
	SeedURL        string
	VisitedURLs    []string
	Links          []models.Link
	Forms          []models.Form
	Findings       []models.Finding
	SkippedNonHTML int
}

// Crawler is single-use: one instance runs one crawl. The collector keeps
// its own visited set, so reuse would silently skip URLs.
type Crawler struct {
	collector *colly.Collector
	cfg       config.CrawlerConfig
	httpCfg   config.HTTPConfig
	checks    config.ChecksConfig
	registry  *analyzer.Registry
	injector  *injection.Scanner
	stats     *stats.Aggregator
	logger    zerolog.Logger

	ctx  context.Context
	seed string

	onProgress func(visited int)

	mu      sync.Mutex
	visited map[string]struct{}
	result  *Result
}

// New builds a Crawler from config with the analyzer registry and injection
// scanner it feeds each page to.
func New(cfg *config.GlobalConfig, registry *analyzer.Registry, injector *injection.Scanner, agg *stats.Aggregator, log zerolog.Logger) (*Crawler, error) {
	cr := &Crawler{
		cfg:      cfg.CrawlerConfig,
		httpCfg:  cfg.HTTPConfig,
		checks:   cfg.ChecksConfig,
		registry: registry,
		injector: injector,
		stats:    agg,
		logger:   log.With().Str("component", "Crawler").Logger(),
		visited:  make(map[string]struct{}),
	}

	collector, err := cr.buildCollector()
	if err != nil {
		return nil, err
	}
	cr.collector = collector

	collector.OnRequest(cr.handleRequest)
	collector.OnResponse(cr.handleResponse)
	collector.OnError(cr.handleError)

	return cr, nil
}

// SetProgressFunc registers a callback invoked with the running visited
// count after each fetched page.
func (c *Crawler) SetProgressFunc(fn func(visited int)) {
	c.onProgress = fn
}

// buildCollector configures the colly collector: async workers, depth cap,
// timeout, TLS and proxy policy, and the retrying transport.
func (c *Crawler) buildCollector() (*colly.Collector, error) {
	// colly counts the seed request as depth 1, so the configured link
	// depth shifts by one and max_depth=0 visits only the seed.
	// ParseHTTPErrorResponse keeps 4xx/5xx bodies flowing to OnResponse;
	// the misconfiguration analyzer inspects error pages for stack traces.
	collector := colly.NewCollector(
		colly.Async(true),
		colly.UserAgent(c.httpCfg.UserAgent),
		colly.MaxDepth(c.cfg.MaxDepth+1),
		colly.IgnoreRobotsTxt(),
		colly.ParseHTTPErrorResponse(),
	)
	collector.SetRequestTimeout(c.httpCfg.RequestTimeoutDuration())

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	if !c.httpCfg.VerifySSL {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	if c.httpCfg.UseProxy && c.httpCfg.ProxyURL != "" {
		proxyURL, err := url.Parse(c.httpCfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL '%s': %w", c.httpCfg.ProxyURL, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	// Retries back off from the configured scan delay.
	var rt http.RoundTripper = transport
	if c.httpCfg.MaxRetries > 0 {
		rt = httpclient.NewRetryTransport(transport, c.httpCfg.MaxRetries, c.cfg.ScanDelayDuration(), c.logger)
	}
	collector.WithTransport(rt)

	if !c.httpCfg.FollowRedirects {
		collector.SetRedirectHandler(func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		})
	}

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: c.cfg.Threads,
		Delay:       c.cfg.ScanDelayDuration(),
	}); err != nil {
		return nil, fmt.Errorf("failed to configure collector limits: %w", err)
	}

	return collector, nil
}

// Crawl runs the crawl from the seed URL and blocks until the frontier is
// exhausted or the context is cancelled.
func (c *Crawler) Crawl(ctx context.Context, seedURL string) (*Result, error) {
	normalized, err := urlhandler.NormalizeURL(seedURL)
	if err != nil {
		return nil, fmt.Errorf("invalid seed URL: %w", err)
	}

	c.ctx = ctx
	c.seed = normalized
	c.result = &Result{SeedURL: normalized}
	c.visited[normalized] = struct{}{}

	c.logger.Info().
		Str("seed", normalized).
		Int("max_depth", c.cfg.MaxDepth).
		Int("max_pages", c.cfg.MaxPages).
		Int("threads", c.cfg.Threads).
		Msg("Starting crawl")

	if err := c.collector.Visit(normalized); err != nil {
		return nil, fmt.Errorf("failed to visit seed URL '%s': %w", normalized, err)
	}
	c.collector.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger.Info().
		Int("visited", len(c.result.VisitedURLs)).
		Int("links", len(c.result.Links)).
		Int("forms", len(c.result.Forms)).
		Int("findings", len(c.result.Findings)).
		Int("skipped_non_html", c.result.SkippedNonHTML).
		Msg("Crawl finished")

	return c.result, nil
}

func (c *Crawler) handleRequest(r *colly.Request) {
	if c.ctx != nil && c.ctx.Err() != nil {
		r.Abort()
		return
	}
	for name, value := range c.httpCfg.CustomHeaders {
		r.Headers.Set(name, value)
	}
	r.Ctx.Put(startTimeKey, time.Now())
}

func (c *Crawler) handleResponse(r *colly.Response) {
	pageURL := r.Request.URL.String()

	var elapsed time.Duration
	if v := r.Ctx.GetAny(startTimeKey); v != nil {
		if start, ok := v.(time.Time); ok {
			elapsed = time.Since(start)
		}
	}

	c.stats.AddURL(pageURL)
	c.stats.AddResponse(r.StatusCode, elapsed)

	c.mu.Lock()
	c.result.VisitedURLs = append(c.result.VisitedURLs, pageURL)
	visitedCount := len(c.result.VisitedURLs)
	c.mu.Unlock()
	if c.onProgress != nil {
		c.onProgress(visitedCount)
	}

	header := http.Header{}
	if r.Headers != nil {
		header = *r.Headers
	}
	resp := &httpclient.Response{
		StatusCode: r.StatusCode,
		Header:     header,
		Body:       r.Body,
		Cookies:    (&http.Response{Header: header}).Cookies(),
		FinalURL:   pageURL,
		Elapsed:    elapsed,
	}

	if !resp.IsHTML() {
		// JavaScript is not analyzed as a page but still mined for
		// endpoints; everything else is skipped.
		if resp.IsJavaScript() {
			c.mineScript(r.Request, pageURL, r.Body)
			return
		}
		c.mu.Lock()
		c.result.SkippedNonHTML++
		c.mu.Unlock()
		c.logger.Debug().Str("url", pageURL).Msg("Skipping non-HTML response")
		return
	}

	page := analyzer.NewPage(pageURL, resp)

	forms := page.Forms
	if !c.checks.ScanForms {
		forms = nil
	}

	findings := c.registry.Run(c.ctx, page)
	findings = append(findings, c.injector.ScanPage(c.ctx, pageURL, forms)...)

	now := time.Now()
	var links []string
	var edges []models.Link
	if c.checks.ScanLinks {
		links = extractor.ExtractLinks(page.Doc, page.Base)
		edges = make([]models.Link, 0, len(links))
		for _, target := range links {
			edges = append(edges, models.Link{SourceURL: pageURL, TargetURL: target, Timestamp: now})
		}
	}

	c.mu.Lock()
	c.result.Findings = append(c.result.Findings, findings...)
	c.result.Forms = append(c.result.Forms, forms...)
	c.result.Links = append(c.result.Links, edges...)
	c.mu.Unlock()

	for _, f := range findings {
		c.stats.AddVulnerability(f.Type)
	}

	for _, target := range links {
		if !urlhandler.SameRegistrableDomain(c.seed, target) {
			continue
		}
		c.enqueue(r.Request, target)
	}

	if c.checks.ScanLinks {
		for _, script := range extractor.ExtractScripts(page.Doc, page.Base) {
			normalized, err := urlhandler.NormalizeURL(script.URL)
			if err != nil || !urlhandler.SameRegistrableDomain(c.seed, normalized) {
				continue
			}
			c.enqueue(r.Request, normalized)
		}
		c.mineScript(r.Request, pageURL, extractor.InlineScriptSource(page.Doc))
	}
}

// mineScript statically extracts endpoints from JavaScript source and
// feeds the in-scope ones back into the frontier.
func (c *Crawler) mineScript(req *colly.Request, sourceURL string, body []byte) {
	if !c.checks.ScanLinks || len(body) == 0 {
		return
	}

	base, err := url.Parse(sourceURL)
	if err != nil {
		return
	}

	endpoints := extractor.ExtractScriptEndpoints(body, base)
	for _, endpoint := range endpoints {
		if !urlhandler.SameRegistrableDomain(c.seed, endpoint) {
			continue
		}
		c.enqueue(req, endpoint)
	}

	if len(endpoints) > 0 {
		c.logger.Debug().
			Str("source", sourceURL).
			Int("endpoints", len(endpoints)).
			Msg("Mined endpoints from JavaScript")
	}
}

// enqueue reserves a frontier slot for the link and hands it to colly at
// the next depth. The visited set and the page budget are checked under
// one lock so a URL is fetched at most once.
func (c *Crawler) enqueue(req *colly.Request, link string) {
	c.mu.Lock()
	if _, ok := c.visited[link]; ok {
		c.mu.Unlock()
		return
	}
	if len(c.visited) >= c.cfg.MaxPages {
		c.mu.Unlock()
		return
	}
	c.visited[link] = struct{}{}
	c.mu.Unlock()

	if err := req.Visit(link); err != nil {
		if errors.Is(err, colly.ErrAlreadyVisited) || errors.Is(err, colly.ErrMaxDepth) {
			return
		}
		c.logger.Debug().Err(err).Str("url", link).Msg("Could not enqueue URL")
	}
}

func (c *Crawler) handleError(r *colly.Response, err error) {
	c.stats.AddError(classifyError(r.StatusCode, err))

	if c.ctx != nil && c.ctx.Err() != nil {
		c.logger.Debug().Str("url", r.Request.URL.String()).Err(err).Msg("Request failed after cancellation")
		return
	}

	c.logger.Warn().
		Str("url", r.Request.URL.String()).
		Int("status", r.StatusCode).
		Err(err).
		Msg("Request failed")
}

func classifyError(statusCode int, err error) string {
	var netErr net.Error
	switch {
	case errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	case statusCode >= 500:
		return "server_error"
	case statusCode >= 400:
		return "client_error"
	default:
		return "connection_error"
	}
}
