package injection

import (
	"context"
	"html"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulnwatch/webscan/internal/config"
	"github.com/vulnwatch/webscan/internal/models"
)

func xssChecks() config.ChecksConfig {
	return config.ChecksConfig{ScanXSS: true}
}

func TestXSSReflectedQueryParam(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><div>" + r.URL.Query().Get("q") + "</div></html>"))
	}))
	defer server.Close()

	s := newTestScanner(t, xssChecks())
	findings := s.ScanPage(context.Background(), server.URL+"/search?q=shoes", nil)

	xss := findingsOfType(findings, models.FindingReflectedXSS)
	require.Len(t, xss, 1)
	assert.Equal(t, "exact", xss[0].Details.DetectionMethod)
	assert.Equal(t, "q", xss[0].Details.Parameter)
	assert.Equal(t, "get", xss[0].Details.Method)
	assert.Contains(t, xss[0].Details.ReflectionContexts, "html")
}

// sanitize escapes markup and strips the javascript scheme, the way a
// typical output encoder plus URL sanitizer would.
func sanitize(value string) string {
	return html.EscapeString(strings.ReplaceAll(value, "javascript:", ""))
}

func TestXSSEscapedReflectionNotFlagged(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><div>" + sanitize(r.URL.Query().Get("q")) + "</div></html>"))
	}))
	defer server.Close()

	s := newTestScanner(t, xssChecks())
	findings := s.ScanPage(context.Background(), server.URL+"/search?q=shoes", nil)
	assert.Empty(t, findingsOfType(findings, models.FindingReflectedXSS))
}

func TestXSSTextareaReflectionNotFlagged(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><textarea>" + r.URL.Query().Get("q") + "</textarea></html>"))
	}))
	defer server.Close()

	s := newTestScanner(t, xssChecks())
	findings := s.ScanPage(context.Background(), server.URL+"/search?q=shoes", nil)
	assert.Empty(t, findingsOfType(findings, models.FindingReflectedXSS))
}

func TestXSSMarkerFallbackFlagsScriptContext(t *testing.T) {
	// Reflects only payloads the canned list does not contain, simulating a
	// blocklist filter. The unique marker payload slips through.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		if strings.HasPrefix(q, "<script>alert('xss") {
			_, _ = w.Write([]byte("<html><div>" + q + "</div></html>"))
			return
		}
		_, _ = w.Write([]byte("<html><div>" + sanitize(q) + "</div></html>"))
	}))
	defer server.Close()

	s := newTestScanner(t, xssChecks())
	findings := s.ScanPage(context.Background(), server.URL+"/search?q=shoes", nil)

	xss := findingsOfType(findings, models.FindingReflectedXSS)
	require.Len(t, xss, 1)
	assert.Equal(t, "marker", xss[0].Details.DetectionMethod)
	assert.Contains(t, xss[0].Details.ReflectionContexts, "script")
	assert.Equal(t, models.SeverityCritical, xss[0].Details.Severity)
}

func TestXSSFormField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		_, _ = w.Write([]byte("<html><p>Comment saved: " + r.PostFormValue("comment") + "</p></html>"))
	}))
	defer server.Close()

	form := models.Form{
		URL:    server.URL + "/comments",
		Action: server.URL + "/comments",
		Method: "post",
		Inputs: []models.FormInput{
			{Name: "comment", Type: "textarea"},
			{Name: "submit", Type: "submit", Value: "Post"},
		},
	}

	s := newTestScanner(t, xssChecks())
	findings := s.ScanPage(context.Background(), server.URL+"/comments", []models.Form{form})

	xss := findingsOfType(findings, models.FindingReflectedXSS)
	require.Len(t, xss, 1)
	assert.Equal(t, "comment", xss[0].Details.InputField)
	assert.Equal(t, "post", xss[0].Details.Method)
}
