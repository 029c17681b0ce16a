package analyzer

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vulnwatch/webscan/internal/httpclient"
	"github.com/vulnwatch/webscan/internal/models"
	"github.com/vulnwatch/webscan/internal/urlhandler"
)

var loginPagePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?s)<form[^>]*>.*?(?:<input[^>]*password[^>]*>).*?</form>`),
	regexp.MustCompile(`login|signin|log in|sign in`),
	regexp.MustCompile(`username|user name|email|e-mail`),
	regexp.MustCompile(`password|passcode|pin`),
}

var accountLockoutPatterns = []*regexp.Regexp{
	regexp.MustCompile(`account.*lock|lock.*account`),
	regexp.MustCompile(`too many attempts|maximum attempts`),
	regexp.MustCompile(`temporarily disabled|temporarily blocked`),
	regexp.MustCompile(`try again later|wait \d+ minute`),
}

var loginMonitoringPatterns = []*regexp.Regexp{
	regexp.MustCompile(`unusual activity|suspicious activity`),
	regexp.MustCompile(`security alert|security notification`),
	regexp.MustCompile(`multiple failed attempts|repeated failed`),
}

var auditTrailPatterns = []*regexp.Regexp{
	regexp.MustCompile(`audit log|audit trail`),
	regexp.MustCompile(`user activity|activity log`),
	regexp.MustCompile(`last login|previous login`),
	regexp.MustCompile(`session history|login history`),
}

var adminURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/admin`),
	regexp.MustCompile(`/administrator`),
	regexp.MustCompile(`/manage`),
	regexp.MustCompile(`/dashboard`),
	regexp.MustCompile(`/control`),
	regexp.MustCompile(`/panel`),
	regexp.MustCompile(`/console`),
}

var adminContentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`admin dashboard|admin panel`),
	regexp.MustCompile(`control panel|management console`),
	regexp.MustCompile(`administrative tools|admin tools`),
	regexp.MustCompile(`manage users|user management`),
	regexp.MustCompile(`site administration|website admin`),
}

var properLoggingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`activity log|action log`),
	regexp.MustCompile(`audit trail|audit log`),
	regexp.MustCompile(`logging enabled|logs enabled`),
	regexp.MustCompile(`event tracking|event logging`),
}

var activityMonitoringPatterns = []*regexp.Regexp{
	regexp.MustCompile(`unusual activity|suspicious activity`),
	regexp.MustCompile(`security alert|security warning`),
	regexp.MustCompile(`abnormal behavior|anomalous behavior`),
	regexp.MustCompile(`activity monitoring|behavior monitoring`),
}

var centralizedLoggingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`log aggregation|log collection`),
	regexp.MustCompile(`centralized logging|unified logging`),
	regexp.MustCompile(`log management|log system`),
}

var correlationHeaders = []string{"X-Request-Id", "X-Correlation-Id", "X-Transaction-Id"}

var sensitiveEndpoints = []string{
	"/admin", "/config", "/settings", "/users", "/api/users", "/api/config",
}

// LoggingMonitoringAnalyzer looks for evidence of security logging and
// monitoring: account lockout on failed logins, audit trails, admin action
// logging, anomaly detection responses, and correlation headers.
type LoggingMonitoringAnalyzer struct {
	client       *httpclient.Client
	activeProbes bool
	probeDelay   time.Duration
	logger       zerolog.Logger
}

// NewLoggingMonitoringAnalyzer creates a LoggingMonitoringAnalyzer.
func NewLoggingMonitoringAnalyzer(client *httpclient.Client, activeProbes bool, log zerolog.Logger) *LoggingMonitoringAnalyzer {
	return &LoggingMonitoringAnalyzer{
		client:       client,
		activeProbes: activeProbes,
		probeDelay:   500 * time.Millisecond,
		logger:       log.With().Str("component", "LoggingMonitoringAnalyzer").Logger(),
	}
}

// Name implements Analyzer.
func (a *LoggingMonitoringAnalyzer) Name() string { return "loggingmonitoring" }

// Check implements Analyzer.
func (a *LoggingMonitoringAnalyzer) Check(ctx context.Context, page *Page) []models.Finding {
	var findings []models.Finding
	now := time.Now()
	body := page.BodyLower()

	if a.activeProbes && matchesAny(loginPagePatterns, body) {
		findings = append(findings, a.probeLoginMonitoring(ctx, page)...)
	}

	if !matchesAny(auditTrailPatterns, body) {
		findings = append(findings, models.Finding{
			Type:      models.FindingNoAuditTrail,
			URL:       page.URL,
			Timestamp: now,
			Details: models.FindingDetails{
				Severity:       models.SeverityHigh,
				Description:    "No evidence of audit logging found",
				Recommendation: "Implement audit logging for all authentication and authorization events",
				Consequences:   "Without proper audit trails, security incidents may go undetected and uninvestigated",
			},
		})
	}

	if isAdminPage(page.URL, body) && !matchesAny(properLoggingPatterns, body) {
		findings = append(findings, models.Finding{
			Type:      models.FindingInsufficientAdminLog,
			URL:       page.URL,
			Timestamp: now,
			Details: models.FindingDetails{
				Severity:       models.SeverityHigh,
				Description:    "Admin interface with insufficient logging detected",
				Recommendation: "Implement detailed logging for all admin actions",
				Consequences:   "Admin actions could be performed without proper audit trails, making it difficult to detect and investigate malicious activities",
			},
		})
	}

	if a.activeProbes && a.lacksActivityMonitoring(ctx, page.URL) {
		findings = append(findings, models.Finding{
			Type:      models.FindingNoActivityMonitoring,
			URL:       page.URL,
			Timestamp: now,
			Details: models.FindingDetails{
				Severity:       models.SeverityMedium,
				Description:    "No monitoring for suspicious activity detected",
				Recommendation: "Implement monitoring and alerting for suspicious activity patterns such as multiple failed logins",
				Consequences:   "Without monitoring for suspicious patterns, attacks such as brute force or account enumeration can go undetected",
			},
		})
	}

	if !hasCentralizedLogging(page) {
		findings = append(findings, models.Finding{
			Type:      models.FindingNoCentralizedLogging,
			URL:       page.URL,
			Timestamp: now,
			Details: models.FindingDetails{
				Severity:       models.SeverityMedium,
				Description:    "No evidence of centralized logging found",
				Recommendation: "Implement centralized logging for all application components",
				Consequences:   "Without centralized logging, security events across different components may be difficult to correlate and analyze",
			},
		})
	}

	return findings
}

// probeLoginMonitoring simulates a burst of failed logins against the
// page's first password form and reports missing lockout and missing
// failure monitoring separately.
func (a *LoggingMonitoringAnalyzer) probeLoginMonitoring(ctx context.Context, page *Page) []models.Finding {
	var action string
	for _, form := range page.Forms {
		if isLoginForm(form) {
			action = form.Action
			break
		}
	}
	if action == "" {
		return nil
	}

	testUser := fmt.Sprintf("test_user_%d", rand.Intn(9000)+1000)
	testPass := fmt.Sprintf("test_pass_%d", rand.Intn(9000)+1000)

	values := url.Values{}
	values.Set("username", testUser)
	values.Set("email", testUser+"@example.com")
	values.Set("user", testUser)
	values.Set("login", testUser)
	values.Set("password", testPass)
	values.Set("pass", testPass)
	values.Set("pwd", testPass)

	hasLockout := false
	hasMonitoring := false

	for i := 0; i < 5; i++ {
		resp, err := a.client.PostForm(ctx, action, values)
		if err != nil {
			a.logger.Debug().Str("action", action).Err(err).Msg("Login monitoring probe failed")
			break
		}

		body := strings.ToLower(resp.BodyString())
		if matchesAny(accountLockoutPatterns, body) {
			hasLockout = true
		}
		if matchesAny(loginMonitoringPatterns, body) {
			hasMonitoring = true
		}

		if hasLockout {
			break
		}
		if err := sleepCtx(ctx, a.probeDelay); err != nil {
			break
		}
	}

	var findings []models.Finding
	now := time.Now()

	if !hasLockout {
		findings = append(findings, models.Finding{
			Type:      models.FindingNoAccountLockout,
			URL:       page.URL,
			Timestamp: now,
			Details: models.FindingDetails{
				Severity:       models.SeverityHigh,
				Description:    "No account lockout after multiple failed login attempts",
				Recommendation: "Implement account lockout policies after a certain number of failed login attempts",
				Consequences:   "Without account lockout, attackers can perform unlimited brute force attacks on user accounts",
			},
		})
	}

	if !hasMonitoring {
		findings = append(findings, models.Finding{
			Type:      models.FindingNoLoginMonitoring,
			URL:       page.URL,
			Timestamp: now,
			Details: models.FindingDetails{
				Severity:       models.SeverityMedium,
				Description:    "No evidence of monitoring for failed login attempts",
				Recommendation: "Implement monitoring and alerting for repeated failed login attempts",
				Consequences:   "Without monitoring for failed logins, brute force attacks may go undetected",
			},
		})
	}

	return findings
}

// lacksActivityMonitoring issues a rapid request burst plus sensitive
// endpoint hits, then checks whether the application started flagging the
// behavior. Unreachable targets count as unmonitored.
func (a *LoggingMonitoringAnalyzer) lacksActivityMonitoring(ctx context.Context, pageURL string) bool {
	for i := 0; i < 10; i++ {
		if _, err := a.client.Get(ctx, pageURL); err != nil {
			return true
		}
		if err := sleepCtx(ctx, 100*time.Millisecond); err != nil {
			return true
		}
	}

	baseURL, err := urlhandler.BaseURL(pageURL)
	if err == nil {
		for _, endpoint := range sensitiveEndpoints {
			_, _ = a.client.Get(ctx, baseURL+endpoint)
		}
	}

	resp, err := a.client.Get(ctx, pageURL)
	if err != nil {
		return true
	}

	return !matchesAny(activityMonitoringPatterns, strings.ToLower(resp.BodyString()))
}

func isAdminPage(pageURL, bodyLower string) bool {
	urlLower := strings.ToLower(pageURL)
	for _, pattern := range adminURLPatterns {
		if pattern.MatchString(urlLower) {
			return true
		}
	}
	return matchesAny(adminContentPatterns, bodyLower)
}

func hasCentralizedLogging(page *Page) bool {
	for _, header := range correlationHeaders {
		if page.Response.Header.Get(header) != "" {
			return true
		}
	}
	return matchesAny(centralizedLoggingPatterns, page.BodyLower())
}
