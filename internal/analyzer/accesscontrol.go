package analyzer

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vulnwatch/webscan/internal/httpclient"
	"github.com/vulnwatch/webscan/internal/models"
	"github.com/vulnwatch/webscan/internal/urlhandler"
)

// restrictedEndpoints are paths that should require authentication.
var restrictedEndpoints = []string{
	"/admin",
	"/dashboard",
	"/config",
	"/settings",
	"/hidden",
	"/administrator",
	"/admin-panel",
	"/backend",
	"/cp",
	"/management",
	"/moderator",
	"/webadmin",
	"/control",
	"/superuser",
	"/supervisor",
	"/wp-admin",
	"/adminpanel",
	"/admin-dashboard",
	"/manager",
	"/panel",
	"/admin.php",
	"/admin/index.php",
	"/login.php?admin=true",
}

var adminContentIndicators = []string{
	"admin", "dashboard", "manage", "control panel",
	"settings", "configuration", "config", "setup",
	"administrator", "superuser", "moderator",
}

// AccessControlAnalyzer probes restricted endpoints without credentials.
// In strict mode only responses that show admin-style content without a
// login form are flagged; the permissive default flags every reachable
// restricted path.
type AccessControlAnalyzer struct {
	client *httpclient.Client
	strict bool
	logger zerolog.Logger
}

// NewAccessControlAnalyzer creates an AccessControlAnalyzer.
func NewAccessControlAnalyzer(client *httpclient.Client, strict bool, log zerolog.Logger) *AccessControlAnalyzer {
	return &AccessControlAnalyzer{
		client: client,
		strict: strict,
		logger: log.With().Str("component", "AccessControlAnalyzer").Logger(),
	}
}

// Sweep requests every restricted endpoint under the target's base URL and
// reports the reachable ones. Request failures are logged and skipped.
func (a *AccessControlAnalyzer) Sweep(ctx context.Context, targetURL string) []models.Finding {
	baseURL, err := urlhandler.BaseURL(targetURL)
	if err != nil {
		a.logger.Warn().Str("url", targetURL).Err(err).Msg("Cannot derive base URL for access control sweep")
		return nil
	}

	a.logger.Info().Str("base_url", baseURL).Msg("Checking broken access control")

	var findings []models.Finding

	for _, endpoint := range restrictedEndpoints {
		select {
		case <-ctx.Done():
			return findings
		default:
		}

		endpointURL := baseURL + endpoint

		resp, err := a.client.Get(ctx, endpointURL)
		if err != nil {
			a.logger.Debug().Str("url", endpointURL).Err(err).Msg("Access control probe failed")
			continue
		}

		if resp.StatusCode != http.StatusOK {
			continue
		}

		content := strings.ToLower(resp.BodyString())
		hasAdminContent := containsAny(content, adminContentIndicators)
		hasLoginForm := strings.Contains(content, "login") &&
			(strings.Contains(content, "password") || strings.Contains(content, "username"))
		accessGranted := hasAdminContent && !hasLoginForm

		if a.strict && !accessGranted {
			continue
		}

		findings = append(findings, models.Finding{
			Type:      models.FindingBrokenAccess,
			URL:       endpointURL,
			Timestamp: time.Now(),
			Details: models.FindingDetails{
				Severity:       models.SeverityHigh,
				Description:    fmt.Sprintf("Unrestricted access to %s endpoint", endpoint),
				Recommendation: "Implement proper authentication and authorization checks for restricted areas",
				Consequences:   "Unauthorized access to admin or restricted functionality, potentially leading to data breach or system compromise",
				Endpoint:       endpoint,
				StatusCode:     resp.StatusCode,
			},
		})

		a.logger.Info().Str("url", endpointURL).Bool("access_granted", accessGranted).
			Msg("Found broken access control vulnerability")
	}

	return findings
}

func containsAny(content string, indicators []string) bool {
	for _, indicator := range indicators {
		if strings.Contains(content, indicator) {
			return true
		}
	}
	return false
}
