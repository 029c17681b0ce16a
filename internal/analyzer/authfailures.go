package analyzer

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/vulnwatch/webscan/internal/httpclient"
	"github.com/vulnwatch/webscan/internal/models"
	"github.com/vulnwatch/webscan/internal/urlhandler"
)

// adminLoginPaths are well-known admin login locations probed during the
// host sweep.
var adminLoginPaths = []string{
	"/admin",
	"/admin/login",
	"/administrator",
	"/administrator/login",
	"/login",
	"/wp-admin",
	"/wp-login",
	"/wp-login.php",
	"/admin.php",
	"/adminlogin",
	"/admin/login.php",
	"/admin/login.html",
	"/admin/index.php",
	"/panel",
	"/cpanel",
	"/dashboard",
	"/moderator",
	"/webadmin",
	"/adminarea",
	"/bb-admin",
	"/adminLogin",
	"/admin_area",
	"/panel-administracion",
	"/instadmin",
	"/memberadmin",
	"/administratorlogin",
	"/adm",
	"/account/login",
	"/admin/account",
	"/admin_login",
	"/siteadmin",
	"/siteadmin/login",
	"/admin/admin",
	"/moderator/admin",
	"/user/admin",
	"/adminpanel",
	"/super-admin",
}

var captchaIndicators = []string{
	"captcha", "recaptcha", "g-recaptcha", "h-captcha", "cf-turnstile",
}

var twoFactorIndicators = []string{
	"two-factor", "two factor", "2fa", "second factor",
	"authentication app", "authenticator app", "google authenticator", "authy",
	"verification code", "security code",
	"one-time password", "one time password", "otp",
	"two-step", "two step", "multi-factor", "multi factor", "mfa",
}

var strongPolicyIndicators = []string{
	"password must contain", "password requirements",
	"password should include", "password must include",
	"password must be at least", "minimum of",
	"at least one uppercase", "at least one lowercase",
	"at least one number", "at least one special",
	"password strength", "strong password",
}

var bruteForceProtectionIndicators = []string{
	"too many attempts", "too many login attempts",
	"account locked", "account has been locked",
	"try again later", "temporary lockout",
	"captcha", "recaptcha",
	"too many failed", "rate limit",
	"wait before trying", "wait for", "locked for",
	"security measure",
}

var loginPageIndicators = []string{
	"login", "sign in", "username", "password", "admin", "administrator",
	"log in", "signin", "auth", "authentication", "credentials",
}

// AuthFailuresAnalyzer inspects login forms for missing protections and
// sweeps well-known admin login paths.
type AuthFailuresAnalyzer struct {
	client       *httpclient.Client
	activeProbes bool
	probeDelay   time.Duration
	logger       zerolog.Logger
}

// NewAuthFailuresAnalyzer creates an AuthFailuresAnalyzer.
func NewAuthFailuresAnalyzer(client *httpclient.Client, activeProbes bool, log zerolog.Logger) *AuthFailuresAnalyzer {
	return &AuthFailuresAnalyzer{
		client:       client,
		activeProbes: activeProbes,
		probeDelay:   time.Second,
		logger:       log.With().Str("component", "AuthFailuresAnalyzer").Logger(),
	}
}

// Name implements Analyzer.
func (a *AuthFailuresAnalyzer) Name() string { return "authfailures" }

// Check implements Analyzer. Only forms with a password input are treated
// as login forms.
func (a *AuthFailuresAnalyzer) Check(ctx context.Context, page *Page) []models.Finding {
	var findings []models.Finding
	now := time.Now()
	body := page.BodyLower()

	for _, form := range page.Forms {
		if !isLoginForm(form) {
			continue
		}

		if !hasCaptcha(form) {
			findings = append(findings, models.Finding{
				Type:      models.FindingNoCaptcha,
				URL:       page.URL,
				Timestamp: now,
				Details: models.FindingDetails{
					Severity:       models.SeverityMedium,
					Description:    "Login form without CAPTCHA protection",
					Recommendation: "Implement CAPTCHA or other anti-automation measures to prevent brute force attacks",
					Consequences:   "Without CAPTCHA, attackers can automate brute force attacks against user accounts",
				},
			})
		}

		if !containsAny(body, twoFactorIndicators) {
			findings = append(findings, models.Finding{
				Type:      models.FindingNo2FA,
				URL:       page.URL,
				Timestamp: now,
				Details: models.FindingDetails{
					Severity:       models.SeverityMedium,
					Description:    "No indication of two-factor authentication",
					Recommendation: "Implement two-factor authentication for sensitive accounts",
					Consequences:   "Without 2FA, compromised credentials can immediately lead to account takeover",
				},
			})
		}

		if !containsAny(body, strongPolicyIndicators) {
			findings = append(findings, models.Finding{
				Type:      models.FindingWeakPasswordPolicy,
				URL:       page.URL,
				Timestamp: now,
				Details: models.FindingDetails{
					Severity:       models.SeverityMedium,
					Description:    "Weak or non-existent password policy",
					Recommendation: "Implement a strong password policy requiring a minimum length and complexity",
					Consequences:   "Weak passwords are more susceptible to brute force and dictionary attacks",
				},
			})
		}

		if a.activeProbes && !a.hasBruteForceProtection(ctx, form, page.URL) {
			findings = append(findings, models.Finding{
				Type:      models.FindingNoBruteForceGuard,
				URL:       page.URL,
				Timestamp: now,
				Details: models.FindingDetails{
					Severity:       models.SeverityHigh,
					Description:    "No brute force protection detected",
					Recommendation: "Implement account lockout or rate limiting after multiple failed login attempts",
					Consequences:   "Without brute force protection, attackers can attempt unlimited password guesses",
				},
			})
		}
	}

	return findings
}

func isLoginForm(form models.Form) bool {
	for _, input := range form.Inputs {
		if input.Type == "password" {
			return true
		}
	}
	return false
}

func hasCaptcha(form models.Form) bool {
	for _, input := range form.Inputs {
		if containsAny(strings.ToLower(input.Name), captchaIndicators) {
			return true
		}
	}
	return false
}

// hasBruteForceProtection sends a few login attempts with random
// credentials and looks for lockout responses. Forms without identifiable
// username and password fields, and probe failures, count as protected.
func (a *AuthFailuresAnalyzer) hasBruteForceProtection(ctx context.Context, form models.Form, pageURL string) bool {
	var usernameField, passwordField string
	for _, input := range form.Inputs {
		switch input.Type {
		case "text", "email":
			usernameField = input.Name
		case "password":
			passwordField = input.Name
		}
	}
	if usernameField == "" || passwordField == "" {
		return true
	}

	actionURL := form.Action
	if actionURL == "" {
		actionURL = pageURL
	}

	randomUser := randomToken(8) + "@example.com"
	randomPass := randomToken(10)

	for attempt := 0; attempt < 3; attempt++ {
		values := url.Values{}
		for _, input := range form.Inputs {
			if input.Name == "" {
				continue
			}
			switch {
			case input.Name == usernameField:
				values.Set(input.Name, randomUser)
			case input.Name == passwordField:
				values.Set(input.Name, fmt.Sprintf("%s%d", randomPass, attempt))
			case input.Type != "submit" && input.Type != "button" && input.Type != "image" &&
				input.Type != "reset" && input.Type != "file":
				values.Set(input.Name, input.Value)
			}
		}

		a.logger.Debug().Str("action", actionURL).Int("attempt", attempt+1).
			Msg("Sending test login attempt")

		var resp *httpclient.Response
		var err error
		if form.Method == "post" {
			resp, err = a.client.PostForm(ctx, actionURL, values)
		} else {
			resp, err = a.client.Get(ctx, appendQuery(actionURL, values))
		}
		if err != nil {
			return true
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			return true
		}
		if containsAny(strings.ToLower(resp.BodyString()), bruteForceProtectionIndicators) {
			return true
		}

		if err := sleepCtx(ctx, a.probeDelay); err != nil {
			return true
		}
	}

	return false
}

// SweepAdminPaths probes well-known admin login locations under the
// target's base URL and reports reachable login pages.
func (a *AuthFailuresAnalyzer) SweepAdminPaths(ctx context.Context, targetURL string) []models.Finding {
	baseURL, err := urlhandler.BaseURL(targetURL)
	if err != nil {
		a.logger.Warn().Str("url", targetURL).Err(err).Msg("Cannot derive base URL for admin path sweep")
		return nil
	}

	var findings []models.Finding

	for _, path := range adminLoginPaths {
		select {
		case <-ctx.Done():
			return findings
		default:
		}

		adminURL := baseURL + path

		resp, err := a.client.Get(ctx, adminURL)
		if err != nil {
			a.logger.Debug().Str("url", adminURL).Err(err).Msg("Admin path probe failed")
			continue
		}
		if resp.StatusCode != http.StatusOK {
			continue
		}

		content := strings.ToLower(resp.BodyString())
		if !containsAny(content, loginPageIndicators) {
			continue
		}
		if !hasLoginFormMarkup(resp.BodyString()) {
			continue
		}

		findings = append(findings, models.Finding{
			Type:      models.FindingDefaultLoginPage,
			URL:       adminURL,
			Timestamp: time.Now(),
			Details: models.FindingDetails{
				Severity:       models.SeverityMedium,
				Description:    fmt.Sprintf("Default admin login page found at %s", path),
				Recommendation: "Change the default admin login URL to a custom path",
				Consequences:   "Default login pages are prime targets for brute force and credential stuffing attacks",
				Endpoint:       path,
			},
		})

		a.logger.Info().Str("url", adminURL).Msg("Found default admin login page")
	}

	return findings
}

func hasLoginFormMarkup(body string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return false
	}
	return doc.Find("form").Length() > 0 && doc.Find("input[type='password']").Length() > 0
}

const tokenAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func randomToken(n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		sb.WriteByte(tokenAlphabet[rand.Intn(len(tokenAlphabet))])
	}
	return sb.String()
}

func appendQuery(rawURL string, values url.Values) string {
	if strings.Contains(rawURL, "?") {
		return rawURL + "&" + values.Encode()
	}
	return rawURL + "?" + values.Encode()
}
