// Package httpclient provides the shared HTTP client used by the analyzers
// and injection scanners. It layers retries, optional rate limiting, proxy
// support and custom headers over a plain net/http client and returns fully
// buffered responses with timing information.
package httpclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/vulnwatch/webscan/internal/config"
)

// maxBodySize caps buffered response bodies at 10 MB so a hostile endpoint
// cannot exhaust memory.
const maxBodySize = 10 * 1024 * 1024

// Response is a fully read HTTP response. Elapsed measures the full
// request/response round trip and feeds time-based injection detection.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Cookies    []*http.Cookie
	FinalURL   string
	Elapsed    time.Duration
}

// BodyString returns the response body as a string.
func (r *Response) BodyString() string {
	return string(r.Body)
}

// IsHTML reports whether the response declares an HTML content type.
// Responses without a Content-Type header are treated as HTML so plain
// misconfigured servers still get analyzed.
func (r *Response) IsHTML() bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return true
	}
	return strings.Contains(strings.ToLower(ct), "text/html") ||
		strings.Contains(strings.ToLower(ct), "application/xhtml")
}

// IsJavaScript reports whether the response carries JavaScript, by content
// type or by a .js path on the final URL.
func (r *Response) IsJavaScript() bool {
	ct := strings.ToLower(r.Header.Get("Content-Type"))
	if strings.Contains(ct, "javascript") || strings.Contains(ct, "ecmascript") {
		return true
	}
	parsed, err := url.Parse(r.FinalURL)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(parsed.Path), ".js")
}

// Client wraps http.Client with the scanner's request policy.
type Client struct {
	client     *http.Client
	noRedirect *http.Client
	cfg        config.HTTPConfig
	limiter    *rate.Limiter
	logger     zerolog.Logger
}

// NewClient builds a Client from config. The same client instance is shared
// by the crawler-adjacent probes, so the cookie jar carries session state
// across requests. retryDelay seeds the retry backoff; pass the configured
// scan delay, or zero for the transport default.
func NewClient(cfg config.HTTPConfig, retryDelay time.Duration, log zerolog.Logger) (*Client, error) {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	if !cfg.VerifySSL {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	if cfg.UseProxy && cfg.ProxyURL != "" {
		proxyURL, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL '%s': %w", cfg.ProxyURL, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	componentLogger := log.With().Str("component", "HTTPClient").Logger()
	retrying := NewRetryTransport(transport, cfg.MaxRetries, retryDelay, log)

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	timeout := cfg.RequestTimeoutDuration()

	client := &http.Client{
		Transport: retrying,
		Timeout:   timeout,
		Jar:       jar,
	}
	if !cfg.FollowRedirects {
		client.CheckRedirect = noRedirectPolicy
	}

	noRedirect := &http.Client{
		Transport:     retrying,
		Timeout:       timeout,
		Jar:           jar,
		CheckRedirect: noRedirectPolicy,
	}

	c := &Client{
		client:     client,
		noRedirect: noRedirect,
		cfg:        cfg,
		logger:     componentLogger,
	}

	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	return c, nil
}

func noRedirectPolicy(req *http.Request, via []*http.Request) error {
	return http.ErrUseLastResponse
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, rawURL string) (*Response, error) {
	return c.do(ctx, c.client, http.MethodGet, rawURL, "", "")
}

// GetNoRedirect performs a GET request without following redirects,
// regardless of the configured redirect policy.
func (c *Client) GetNoRedirect(ctx context.Context, rawURL string) (*Response, error) {
	return c.do(ctx, c.noRedirect, http.MethodGet, rawURL, "", "")
}

// PostForm performs an application/x-www-form-urlencoded POST request.
func (c *Client) PostForm(ctx context.Context, rawURL string, values url.Values) (*Response, error) {
	return c.do(ctx, c.client, http.MethodPost, rawURL, values.Encode(), "application/x-www-form-urlencoded")
}

// PostFormNoRedirect is PostForm without following redirects.
func (c *Client) PostFormNoRedirect(ctx context.Context, rawURL string, values url.Values) (*Response, error) {
	return c.do(ctx, c.noRedirect, http.MethodPost, rawURL, values.Encode(), "application/x-www-form-urlencoded")
}

// PostJSONNoRedirect performs an application/json POST request without
// following redirects.
func (c *Client) PostJSONNoRedirect(ctx context.Context, rawURL, body string) (*Response, error) {
	return c.do(ctx, c.noRedirect, http.MethodPost, rawURL, body, "application/json")
}

func (c *Client) do(ctx context.Context, hc *http.Client, method, rawURL, body, contentType string) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}
	}

	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request for '%s': %w", method, rawURL, err)
	}

	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for name, value := range c.cfg.CustomHeaders {
		req.Header.Set(name, value)
	}

	start := time.Now()
	resp, err := hc.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("%s %s failed: %w", method, rawURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body from '%s': %w", rawURL, err)
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	c.logger.Debug().
		Str("method", method).
		Str("url", rawURL).
		Int("status", resp.StatusCode).
		Dur("elapsed", elapsed).
		Msg("Request completed")

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
		Cookies:    resp.Cookies(),
		FinalURL:   finalURL,
		Elapsed:    elapsed,
	}, nil
}

// TLSState performs a bare TLS handshake against host:port and returns the
// negotiated connection state. Used by the crypto analyzer to report the
// protocol version independent of any HTTP exchange.
func (c *Client) TLSState(ctx context.Context, host string) (*tls.ConnectionState, error) {
	dialer := &tls.Dialer{
		Config: &tls.Config{
			InsecureSkipVerify: !c.cfg.VerifySSL,
			MinVersion:         tls.VersionTLS10,
		},
	}

	conn, err := dialer.DialContext(ctx, "tcp", host)
	if err != nil {
		return nil, fmt.Errorf("TLS handshake with '%s' failed: %w", host, err)
	}
	defer conn.Close()

	state := conn.(*tls.Conn).ConnectionState()
	return &state, nil
}
