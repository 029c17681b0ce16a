package analyzer

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vulnwatch/webscan/internal/httpclient"
	"github.com/vulnwatch/webscan/internal/models"
)

var csrfInputNames = []string{
	"csrf", "csrf_token", "csrfmiddlewaretoken", "_csrf", "xsrf",
	"token", "_token", "authenticity_token", "csrf-token",
	"__requestverificationtoken",
}

var csrfHeaderNames = []string{"x-csrf-token", "x-xsrf-token"}

var rateLimitIndicators = []string{
	"rate limit", "too many requests", "try again later",
	"slow down", "too many attempts", "temporary block",
}

// rateLimitProbeAttempts is how many times the probe resubmits a form
// before concluding rate limiting is absent.
const rateLimitProbeAttempts = 3

// InsecureDesignAnalyzer checks forms for CSRF protection and, when active
// probes are enabled, for rate limiting on POST submissions.
type InsecureDesignAnalyzer struct {
	client       *httpclient.Client
	activeProbes bool
	probeDelay   time.Duration
	logger       zerolog.Logger
}

// NewInsecureDesignAnalyzer creates an InsecureDesignAnalyzer.
func NewInsecureDesignAnalyzer(client *httpclient.Client, activeProbes bool, log zerolog.Logger) *InsecureDesignAnalyzer {
	return &InsecureDesignAnalyzer{
		client:       client,
		activeProbes: activeProbes,
		probeDelay:   time.Second,
		logger:       log.With().Str("component", "InsecureDesignAnalyzer").Logger(),
	}
}

// Name implements Analyzer.
func (a *InsecureDesignAnalyzer) Name() string { return "insecuredesign" }

// Check implements Analyzer.
func (a *InsecureDesignAnalyzer) Check(ctx context.Context, page *Page) []models.Finding {
	var findings []models.Finding
	now := time.Now()

	for _, form := range page.Forms {
		if form.Action == "" {
			continue
		}

		if !hasCSRFProtection(form, page.BodyLower()) {
			findings = append(findings, models.Finding{
				Type:      models.FindingMissingCSRF,
				URL:       page.URL,
				Timestamp: now,
				Details: models.FindingDetails{
					Severity:       models.SeverityMedium,
					Description:    "Form missing CSRF protection",
					Recommendation: "Implement CSRF tokens for all state-changing forms",
					Consequences:   "Without CSRF protection, attackers can trick users into submitting unauthorized requests",
					Endpoint:       form.Action,
					Method:         form.Method,
				},
			})
		}

		if a.activeProbes && !a.hasRateLimiting(ctx, form) {
			findings = append(findings, models.Finding{
				Type:      models.FindingNoRateLimiting,
				URL:       page.URL,
				Timestamp: now,
				Details: models.FindingDetails{
					Severity:       models.SeverityMedium,
					Description:    "Form missing rate limiting protection",
					Recommendation: "Implement rate limiting for all forms to prevent abuse",
					Consequences:   "Without rate limiting, attackers can flood your application with requests, leading to DoS conditions or automated attacks",
					Endpoint:       form.Action,
					Method:         form.Method,
				},
			})
		}
	}

	return findings
}

// hasCSRFProtection looks for a token input in the form, a csrf meta tag,
// or a csrf header name anywhere in the page source.
func hasCSRFProtection(form models.Form, bodyLower string) bool {
	for _, input := range form.Inputs {
		name := strings.ToLower(input.Name)
		for _, csrfName := range csrfInputNames {
			if strings.Contains(name, csrfName) {
				return true
			}
		}
	}

	if strings.Contains(bodyLower, `name="csrf`) || strings.Contains(bodyLower, "csrf-token") {
		return true
	}

	for _, header := range csrfHeaderNames {
		if strings.Contains(bodyLower, header) {
			return true
		}
	}

	return false
}

// hasRateLimiting submits a POST form a few times and reports whether the
// endpoint pushed back. GET forms, file-upload forms and probe failures
// all count as protected so the check never produces findings it could
// not verify.
func (a *InsecureDesignAnalyzer) hasRateLimiting(ctx context.Context, form models.Form) bool {
	if form.Method != "post" {
		return true
	}
	for _, input := range form.Inputs {
		if input.Type == "file" {
			return true
		}
	}

	values := probeFormValues(form)
	if len(values) == 0 {
		return true
	}

	successful := 0

	for attempt := 0; attempt < rateLimitProbeAttempts; attempt++ {
		a.logger.Debug().Str("action", form.Action).Int("attempt", attempt+1).
			Msg("Testing rate limiting")

		resp, err := a.client.PostForm(ctx, form.Action, values)
		if err != nil {
			return true
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			return true
		}
		if containsAny(strings.ToLower(resp.BodyString()), rateLimitIndicators) {
			return true
		}
		if resp.StatusCode < http.StatusBadRequest {
			successful++
		}

		if err := sleepCtx(ctx, a.probeDelay); err != nil {
			return true
		}
	}

	return successful < rateLimitProbeAttempts
}

// probeFormValues fills a form with plausible values per input type.
func probeFormValues(form models.Form) url.Values {
	values := url.Values{}
	nonce := time.Now().Unix()

	for _, input := range form.Inputs {
		if input.Name == "" {
			continue
		}
		switch input.Type {
		case "submit", "button", "image", "reset":
			continue
		case "email":
			values.Set(input.Name, fmt.Sprintf("test%d@example.com", nonce))
		case "password":
			values.Set(input.Name, "TestPassword123!")
		case "number":
			values.Set(input.Name, "123")
		case "checkbox", "radio":
			if input.Value != "" {
				values.Set(input.Name, input.Value)
			} else {
				values.Set(input.Name, "on")
			}
		default:
			values.Set(input.Name, fmt.Sprintf("Test value %d", nonce))
		}
	}

	return values
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
