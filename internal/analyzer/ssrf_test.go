package analyzer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulnwatch/webscan/internal/models"
)

func newSSRFAnalyzer(t *testing.T) *SSRFAnalyzer {
	t.Helper()
	a := NewSSRFAnalyzer(newProbeClient(t), zerolog.Nop())
	a.probeDelay = time.Millisecond
	return a
}

// ssrfVulnerableServer pretends to fetch whatever the url parameter points
// at and echoes cloud metadata content for internal targets.
func ssrfVulnerableServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		target := r.URL.Query().Get("url")
		if target == "" {
			_ = r.ParseForm()
			target = r.PostFormValue("url")
		}
		if strings.Contains(target, "169.254.169.254") || strings.Contains(target, "127.0.0.1") {
			_, _ = w.Write([]byte("ami-id: ami-12345\ninstance-id: i-67890"))
			return
		}
		_, _ = w.Write([]byte("fetched remote resource"))
	}))
}

func TestSSRFURLParameter(t *testing.T) {
	server := ssrfVulnerableServer()
	defer server.Close()

	page := newTestPage(t, server.URL+"/render?url=https://example.org/banner.png",
		http.StatusOK, nil, "<html></html>")

	a := newSSRFAnalyzer(t)
	findings := a.checkURLParameters(context.Background(), page)

	require.Len(t, findings, 1)
	assert.Equal(t, models.FindingSSRFURLParameter, findings[0].Type)
	assert.Equal(t, "url", findings[0].Details.Parameter)
	assert.NotEmpty(t, findings[0].Details.Payload)
	assert.NotEmpty(t, findings[0].Details.Indicator)
}

func TestSSRFIgnoresNonURLValues(t *testing.T) {
	server := ssrfVulnerableServer()
	defer server.Close()

	// The parameter name qualifies but the value is not a URL.
	page := newTestPage(t, server.URL+"/render?url=banner.png",
		http.StatusOK, nil, "<html></html>")

	a := newSSRFAnalyzer(t)
	assert.Empty(t, a.checkURLParameters(context.Background(), page))
}

func TestSSRFFormInput(t *testing.T) {
	server := ssrfVulnerableServer()
	defer server.Close()

	page := newTestPage(t, server.URL+"/import", http.StatusOK, nil,
		`<html><form action="`+server.URL+`/import" method="post">
			<input type="text" name="url"><input type="submit" value="Import">
		</form></html>`)

	a := newSSRFAnalyzer(t)
	findings := a.checkForms(context.Background(), page)

	require.Len(t, findings, 1)
	assert.Equal(t, models.FindingSSRFFormInput, findings[0].Type)
	assert.Equal(t, "url", findings[0].Details.InputField)
	assert.Equal(t, "post", findings[0].Details.Method)
}

func TestSSRFAPIEndpoint(t *testing.T) {
	server := ssrfVulnerableServer()
	defer server.Close()

	page := newTestPage(t, server.URL+"/api/v1/items", http.StatusOK, nil, "<html></html>")

	a := newSSRFAnalyzer(t)
	findings := a.checkAPIEndpoints(context.Background(), page)

	require.NotEmpty(t, findings)
	assert.Equal(t, models.FindingSSRFAPIEndpoint, findings[0].Type)
}

func TestSSRFSkipsNonAPIPages(t *testing.T) {
	a := newSSRFAnalyzer(t)
	page := newTestPage(t, "https://example.com/about", http.StatusOK, nil, "<html></html>")
	assert.Empty(t, a.checkAPIEndpoints(context.Background(), page))
}
