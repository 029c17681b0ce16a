package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vulnwatch/webscan/internal/httpclient"
	"github.com/vulnwatch/webscan/internal/models"
	"github.com/vulnwatch/webscan/internal/urlhandler"
)

// internalTargets are hosts a server-side fetch should never be able to
// reach on behalf of an external client.
var internalTargets = []string{
	"127.0.0.1",
	"0.0.0.0",
	"10.0.0.1",
	"172.16.0.1",
	"192.168.0.1",
	"169.254.169.254",
	"localhost",
	"metadata.google.internal",
	"metadata",
	"instance-data",
	"::1",
}

// ssrfPayloadTemplates cover plain fetches, service ports and alternate
// schemes. %s is the internal target.
var ssrfPayloadTemplates = []string{
	"http://%s/",
	"https://%s/",
	"http://%s:22/",
	"http://%s:3306/",
	"http://%s:5432/",
	"http://%s:6379/",
	"http://%s:8080/",
	"http://%s:8443/",
	"file:///etc/passwd",
	"dict://%s:11211/",
	"ftp://%s/",
}

// ssrfParameterNames are parameter names that commonly accept URLs.
var ssrfParameterNames = []string{
	"url", "uri", "link", "src", "source", "redirect", "redirect_to",
	"return", "return_to", "callback", "endpoint", "dest", "destination",
	"load", "open", "fetch", "share", "preview", "view", "goto", "go",
	"next", "api", "resource", "file", "data", "path", "image", "img",
	"download", "upload", "proxy", "feed", "host", "hostname", "server",
	"target", "address", "domain",
}

var ssrfAPIEndpoints = []string{
	"/fetch", "/proxy", "/import", "/export", "/load", "/url",
	"/preview", "/download", "/upload", "/webhook", "/callback",
}

var ssrfIndicators = []*regexp.Regexp{
	// Cloud metadata services.
	regexp.MustCompile(`ami-id|instance-id|instance-type`),
	regexp.MustCompile(`availability-zone|region`),
	regexp.MustCompile(`security-credentials`),
	regexp.MustCompile(`project-id|numeric-project-id`),
	regexp.MustCompile(`instance/service-accounts`),
	regexp.MustCompile(`compute.internal|metadata.azure.com`),
	regexp.MustCompile(`metadata/instance`),
	// Internal services answering with HTML.
	regexp.MustCompile(`<html>|<!doctype|<body>`),
	regexp.MustCompile(`<title>.*dashboard|admin|console`),
	regexp.MustCompile(`<h1>.*dashboard|admin|console`),
	// Databases and caches.
	regexp.MustCompile(`mysql|postgresql|oracle|mongodb|redis`),
	regexp.MustCompile(`database error|db error|connection error`),
	// /etc/passwd entries via file://.
	regexp.MustCompile(`root:|nobody:|daemon:|bin:|sys:`),
	regexp.MustCompile(`home/[^/]+:|usr/[^/]+:`),
	// Server-side fetch errors leaking through.
	regexp.MustCompile(`internal server error.*url|request to.*failed`),
	regexp.MustCompile(`could not connect to|connection refused`),
	regexp.MustCompile(`no route to host|host unreachable`),
	regexp.MustCompile(`ssh-.*key-exchange|protocol mismatch`),
	regexp.MustCompile(`mysql handshake|sql server`),
	regexp.MustCompile(`memcached|redis`),
}

// SSRFAnalyzer probes URL-accepting parameters, form inputs and API-style
// endpoints with internal targets and scores the responses for signs the
// server fetched them.
type SSRFAnalyzer struct {
	client     *httpclient.Client
	probeDelay time.Duration
	logger     zerolog.Logger
}

// NewSSRFAnalyzer creates an SSRFAnalyzer.
func NewSSRFAnalyzer(client *httpclient.Client, log zerolog.Logger) *SSRFAnalyzer {
	return &SSRFAnalyzer{
		client:     client,
		probeDelay: 500 * time.Millisecond,
		logger:     log.With().Str("component", "SSRFAnalyzer").Logger(),
	}
}

// Name implements Analyzer.
func (a *SSRFAnalyzer) Name() string { return "ssrf" }

// Check implements Analyzer.
func (a *SSRFAnalyzer) Check(ctx context.Context, page *Page) []models.Finding {
	var findings []models.Finding

	findings = append(findings, a.checkURLParameters(ctx, page)...)
	findings = append(findings, a.checkForms(ctx, page)...)
	findings = append(findings, a.checkAPIEndpoints(ctx, page)...)

	return findings
}

// checkURLParameters rewrites URL-carrying query parameters to internal
// targets. Probes stop at the first confirmed finding per parameter.
func (a *SSRFAnalyzer) checkURLParameters(ctx context.Context, page *Page) []models.Finding {
	if page.Base == nil {
		return nil
	}

	var findings []models.Finding
	query := page.Base.Query()

	for param, paramValues := range query {
		if len(paramValues) == 0 || !isURLParameterName(param) {
			continue
		}
		original := paramValues[0]
		if !looksLikeURL(original) {
			continue
		}

	paramProbe:
		for _, target := range internalTargets[:3] {
			for _, template := range ssrfPayloadTemplates[:3] {
				payload := renderPayload(template, target)

				modified := *page.Base
				modifiedQuery := page.Base.Query()
				modifiedQuery.Set(param, payload)
				modified.RawQuery = modifiedQuery.Encode()

				resp, err := a.client.GetNoRedirect(ctx, modified.String())
				if err != nil {
					a.logger.Debug().Str("parameter", param).Err(err).Msg("SSRF parameter probe failed")
					continue
				}

				if indicator, ok := isSSRFSuccessful(resp); ok {
					findings = append(findings, models.Finding{
						Type:      models.FindingSSRFURLParameter,
						URL:       page.URL,
						Timestamp: time.Now(),
						Details: models.FindingDetails{
							Severity:       models.SeverityHigh,
							Description:    fmt.Sprintf("SSRF vulnerability detected in URL parameter '%s'", param),
							Recommendation: "Implement URL validation and whitelist of allowed domains/IPs",
							Consequences:   "SSRF vulnerabilities can allow attackers to make requests to internal services, access sensitive data, or use the server as a proxy for attacks on other systems.",
							Parameter:      param,
							Payload:        payload,
							Indicator:      indicator,
							StatusCode:     resp.StatusCode,
						},
					})
					break paramProbe
				}

				if err := sleepCtx(ctx, a.probeDelay); err != nil {
					return findings
				}
			}
		}
	}

	return findings
}

// checkForms probes URL-accepting form inputs with internal targets.
func (a *SSRFAnalyzer) checkForms(ctx context.Context, page *Page) []models.Finding {
	var findings []models.Finding

	for _, form := range page.Forms {
		action := form.Action
		if action == "" {
			action = page.URL
		}

		for _, input := range form.Inputs {
			switch input.Type {
			case "submit", "button", "image", "hidden":
				continue
			}
			if input.Name == "" || !isURLParameterName(input.Name) {
				continue
			}

		inputProbe:
			for _, target := range internalTargets[:2] {
				for _, template := range ssrfPayloadTemplates[:2] {
					payload := renderPayload(template, target)
					values := ssrfFormValues(form, input.Name, payload)

					var resp *httpclient.Response
					var err error
					if form.Method == "post" {
						resp, err = a.client.PostFormNoRedirect(ctx, action, values)
					} else {
						resp, err = a.client.GetNoRedirect(ctx, appendQuery(action, values))
					}
					if err != nil {
						a.logger.Debug().Str("input", input.Name).Err(err).Msg("SSRF form probe failed")
						continue
					}

					if indicator, ok := isSSRFSuccessful(resp); ok {
						findings = append(findings, models.Finding{
							Type:      models.FindingSSRFFormInput,
							URL:       page.URL,
							Timestamp: time.Now(),
							Details: models.FindingDetails{
								Severity:       models.SeverityHigh,
								Description:    fmt.Sprintf("SSRF vulnerability detected in form input '%s'", input.Name),
								Recommendation: "Implement URL validation and whitelist of allowed domains/IPs",
								Consequences:   "SSRF vulnerabilities can allow attackers to make requests to internal services, access sensitive data, or use the server as a proxy for attacks on other systems.",
								InputField:     input.Name,
								Endpoint:       action,
								Method:         form.Method,
								Payload:        payload,
								Indicator:      indicator,
								StatusCode:     resp.StatusCode,
							},
						})
						break inputProbe
					}

					if err := sleepCtx(ctx, a.probeDelay); err != nil {
						return findings
					}
				}
			}
		}
	}

	return findings
}

// checkAPIEndpoints probes common fetch-style sub-paths on API-looking
// URLs, both as a url query parameter and as a JSON body.
func (a *SSRFAnalyzer) checkAPIEndpoints(ctx context.Context, page *Page) []models.Finding {
	if page.Base == nil || !looksLikeAPI(page.Base.Path) {
		return nil
	}

	baseURL, err := urlhandler.BaseURL(page.URL)
	if err != nil {
		return nil
	}

	var findings []models.Finding

	for _, endpoint := range ssrfAPIEndpoints {
		endpointURL := baseURL + endpoint

	endpointProbe:
		for _, target := range internalTargets[:2] {
			payload := fmt.Sprintf("http://%s/", target)

			resp, err := a.client.GetNoRedirect(ctx, endpointURL+"?url="+url.QueryEscape(payload))
			if err == nil {
				if indicator, ok := isSSRFSuccessful(resp); ok {
					findings = append(findings, a.apiFinding(page.URL, endpoint, payload, http.MethodGet, indicator, resp.StatusCode))
					break endpointProbe
				}
			}

			body, _ := json.Marshal(map[string]string{"url": payload})
			resp, err = a.client.PostJSONNoRedirect(ctx, endpointURL, string(body))
			if err == nil {
				if indicator, ok := isSSRFSuccessful(resp); ok {
					findings = append(findings, a.apiFinding(page.URL, endpoint, payload, http.MethodPost, indicator, resp.StatusCode))
					break endpointProbe
				}
			}

			if err := sleepCtx(ctx, a.probeDelay); err != nil {
				return findings
			}
		}
	}

	return findings
}

func (a *SSRFAnalyzer) apiFinding(pageURL, endpoint, payload, method, indicator string, statusCode int) models.Finding {
	return models.Finding{
		Type:      models.FindingSSRFAPIEndpoint,
		URL:       pageURL,
		Timestamp: time.Now(),
		Details: models.FindingDetails{
			Severity:       models.SeverityHigh,
			Description:    fmt.Sprintf("SSRF vulnerability detected in API endpoint '%s'", endpoint),
			Recommendation: "Implement URL validation and whitelist of allowed domains/IPs",
			Consequences:   "SSRF vulnerabilities can allow attackers to make requests to internal services, access sensitive data, or use the server as a proxy for attacks on other systems.",
			Endpoint:       endpoint,
			Method:         method,
			Payload:        payload,
			Indicator:      indicator,
			StatusCode:     statusCode,
		},
	}
}

// isSSRFSuccessful scores a probe response: a 2xx status whose body matches
// an internal-service signature. Returns the matched signature.
func isSSRFSuccessful(resp *httpclient.Response) (string, bool) {
	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted:
	default:
		return "", false
	}

	body := strings.ToLower(resp.BodyString())
	for _, pattern := range ssrfIndicators {
		if pattern.MatchString(body) {
			return pattern.String(), true
		}
	}

	return "", false
}

func isURLParameterName(name string) bool {
	lower := strings.ToLower(name)
	for _, candidate := range ssrfParameterNames {
		if strings.Contains(lower, candidate) {
			return true
		}
	}
	return false
}

func looksLikeURL(value string) bool {
	return strings.HasPrefix(value, "http://") ||
		strings.HasPrefix(value, "https://") ||
		strings.HasPrefix(value, "//")
}

func looksLikeAPI(path string) bool {
	lower := strings.ToLower(path)
	for _, marker := range []string{"/api", "/v1", "/v2", "/rest", "/graphql"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func renderPayload(template, target string) string {
	return strings.ReplaceAll(template, "%s", target)
}

func ssrfFormValues(form models.Form, targetInput, payload string) url.Values {
	values := url.Values{}
	for _, input := range form.Inputs {
		if input.Name == "" {
			continue
		}
		if input.Name == targetInput {
			values.Set(input.Name, payload)
			continue
		}
		switch input.Type {
		case "submit", "button", "image":
		default:
			values.Set(input.Name, "test")
		}
	}
	return values
}
