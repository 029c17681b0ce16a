package analyzer

import (
	"context"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulnwatch/webscan/internal/httpclient"
	"github.com/vulnwatch/webscan/internal/models"
)

func TestCryptoNoHTTPS(t *testing.T) {
	a := NewCryptoAnalyzer(nil, true, zerolog.Nop())
	page := newTestPage(t, "http://example.com/", http.StatusOK, nil, "<html></html>")

	findings := a.Check(context.Background(), page)
	assert.True(t, hasFinding(findings, models.FindingNoHTTPS))
}

func TestCryptoCookieAudit(t *testing.T) {
	header := http.Header{}
	header.Set("Content-Type", "text/html")

	page := NewPage("http://example.com/", &httpclient.Response{
		StatusCode: http.StatusOK,
		Header:     header,
		Body:       []byte("<html></html>"),
		Cookies: []*http.Cookie{
			{Name: "session", Value: "abc"},
			{Name: "strict", Value: "ok", Secure: true, HttpOnly: true, SameSite: http.SameSiteLaxMode},
			{Name: "lax", Value: "x", Secure: true, HttpOnly: true, SameSite: http.SameSiteNoneMode},
		},
	})

	a := NewCryptoAnalyzer(nil, true, zerolog.Nop())
	findings := a.Check(context.Background(), page)

	var cookieFinding *models.Finding
	for i := range findings {
		if findings[i].Type == models.FindingInsecureCookies {
			cookieFinding = &findings[i]
		}
	}
	require.NotNil(t, cookieFinding)

	issues := cookieFinding.Details.CookieIssues
	assert.Contains(t, issues, "session: Missing Secure flag")
	assert.Contains(t, issues, "session: Missing HttpOnly flag")
	assert.Contains(t, issues, "session: Missing SameSite attribute")
	assert.Contains(t, issues, "lax: Weak SameSite policy")
	for _, issue := range issues {
		assert.NotContains(t, issue, "strict:")
	}
}

func TestCryptoCookieAuditDisabled(t *testing.T) {
	header := http.Header{}
	header.Set("Content-Type", "text/html")

	page := NewPage("http://example.com/", &httpclient.Response{
		StatusCode: http.StatusOK,
		Header:     header,
		Body:       []byte("<html></html>"),
		Cookies:    []*http.Cookie{{Name: "session", Value: "abc"}},
	})

	a := NewCryptoAnalyzer(nil, false, zerolog.Nop())
	findings := a.Check(context.Background(), page)
	assert.False(t, hasFinding(findings, models.FindingInsecureCookies))
}
