package injection

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulnwatch/webscan/internal/config"
	"github.com/vulnwatch/webscan/internal/httpclient"
	"github.com/vulnwatch/webscan/internal/models"
	"github.com/vulnwatch/webscan/internal/payloads"
)

func newTestScanner(t *testing.T, checks config.ChecksConfig) *Scanner {
	t.Helper()

	httpCfg := config.NewDefaultHTTPConfig()
	httpCfg.RequestTimeout = 5
	httpCfg.MaxRetries = 0

	client, err := httpclient.NewClient(httpCfg, 0, zerolog.Nop())
	require.NoError(t, err)

	detection := config.NewDefaultDetectionConfig()
	detection.PayloadDelay = 0

	store := payloads.NewStore("", "", zerolog.Nop())
	return NewScanner(client, store, detection, checks, zerolog.Nop())
}

func sqliChecks() config.ChecksConfig {
	return config.ChecksConfig{ScanSQLi: true}
}

func findingsOfType(findings []models.Finding, findingType string) []models.Finding {
	var out []models.Finding
	for _, f := range findings {
		if f.Type == findingType {
			out = append(out, f)
		}
	}
	return out
}

func TestSQLiErrorBasedQueryParam(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Query().Get("q"), "'") {
			_, _ = w.Write([]byte("You have an error in your SQL syntax near ''1'='1'"))
			return
		}
		_, _ = w.Write([]byte("search results"))
	}))
	defer server.Close()

	s := newTestScanner(t, sqliChecks())
	findings := s.ScanPage(context.Background(), server.URL+"/search?q=shoes", nil)

	sqli := findingsOfType(findings, models.FindingSQLInjection)
	require.Len(t, sqli, 1)
	assert.Equal(t, "Error based", sqli[0].Details.DetectionMethod)
	assert.Equal(t, "q", sqli[0].Details.Parameter)
	assert.Equal(t, "get", sqli[0].Details.Method)
	assert.Equal(t, models.SeverityHigh, sqli[0].Details.Severity)
	assert.NotEmpty(t, sqli[0].Details.Payload)
}

func TestSQLiResultBasedQueryParam(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Query().Get("id"), "OR") {
			_, _ = w.Write([]byte("Welcome back, admin"))
			return
		}
		_, _ = w.Write([]byte("no such record"))
	}))
	defer server.Close()

	s := newTestScanner(t, sqliChecks())
	findings := s.ScanPage(context.Background(), server.URL+"/item?id=7", nil)

	sqli := findingsOfType(findings, models.FindingSQLInjection)
	require.Len(t, sqli, 1)
	assert.Equal(t, "Result based", sqli[0].Details.DetectionMethod)
}

func TestSQLiLengthBasedQueryParam(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Query().Get("id"), "'") {
			_, _ = w.Write([]byte(strings.Repeat("A", 400)))
			return
		}
		_, _ = w.Write([]byte("short"))
	}))
	defer server.Close()

	s := newTestScanner(t, sqliChecks())
	findings := s.ScanPage(context.Background(), server.URL+"/item?id=7", nil)

	sqli := findingsOfType(findings, models.FindingSQLInjection)
	require.Len(t, sqli, 1)
	assert.Equal(t, "Length based", sqli[0].Details.DetectionMethod)
}

func TestSQLiFormFieldKeepsBaselineValues(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		// Hidden inputs keep their baseline value on every submission.
		assert.Equal(t, "tok", r.PostFormValue("csrf"))

		if strings.Contains(r.PostFormValue("username"), "'") {
			_, _ = w.Write([]byte("You have an error in your SQL syntax"))
			return
		}
		_, _ = w.Write([]byte("login failed"))
	}))
	defer server.Close()

	form := models.Form{
		URL:    server.URL + "/login",
		Action: server.URL + "/login",
		Method: "post",
		Inputs: []models.FormInput{
			{Name: "username", Type: "text"},
			{Name: "password", Type: "password"},
			{Name: "csrf", Type: "hidden", Value: "tok"},
		},
	}

	s := newTestScanner(t, sqliChecks())
	findings := s.ScanPage(context.Background(), server.URL+"/login", []models.Form{form})

	sqli := findingsOfType(findings, models.FindingSQLInjection)
	require.Len(t, sqli, 1)
	assert.Equal(t, "username", sqli[0].Details.InputField)
	assert.Equal(t, "post", sqli[0].Details.Method)
}

func TestSQLiCleanEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("nothing to see"))
	}))
	defer server.Close()

	s := newTestScanner(t, sqliChecks())
	findings := s.ScanPage(context.Background(), server.URL+"/item?id=7", nil)
	assert.Empty(t, findingsOfType(findings, models.FindingSQLInjection))
}

func TestInjectionSkipsURLsWithoutQuery(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))
	defer server.Close()

	s := newTestScanner(t, sqliChecks())
	findings := s.ScanPage(context.Background(), server.URL+"/about", nil)

	assert.Empty(t, findings)
	assert.Zero(t, requests.Load())
}

func TestInjectionDisabledIsNoOp(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))
	defer server.Close()

	s := newTestScanner(t, config.ChecksConfig{})
	findings := s.ScanPage(context.Background(), server.URL+"/item?id=7", nil)

	assert.Empty(t, findings)
	assert.Zero(t, requests.Load())
}
