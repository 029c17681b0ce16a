package analyzer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/vulnwatch/webscan/internal/models"
)

func newDesignAnalyzer(t *testing.T, activeProbes bool) *InsecureDesignAnalyzer {
	t.Helper()
	a := NewInsecureDesignAnalyzer(newProbeClient(t), activeProbes, zerolog.Nop())
	a.probeDelay = time.Millisecond
	return a
}

func TestCSRFTokenDetection(t *testing.T) {
	tests := []struct {
		name    string
		html    string
		missing bool
	}{
		{
			"token input present",
			`<form action="/submit" method="post"><input type="hidden" name="csrf_token" value="x"><input name="q"></form>`,
			false,
		},
		{
			"meta tag present",
			`<meta name="csrf-token" content="x"><form action="/submit" method="post"><input name="q"></form>`,
			false,
		},
		{
			"no protection",
			`<form action="/submit" method="post"><input name="q"></form>`,
			true,
		},
	}

	a := newDesignAnalyzer(t, false)

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			page := newTestPage(t, "https://example.com/", http.StatusOK, nil, "<html>"+tc.html+"</html>")
			findings := a.Check(context.Background(), page)
			assert.Equal(t, tc.missing, hasFinding(findings, models.FindingMissingCSRF))
		})
	}
}

func TestRateLimitProbeFlagsUnlimitedForm(t *testing.T) {
	var posts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			posts.Add(1)
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	page := newTestPage(t, server.URL+"/", http.StatusOK, nil,
		`<html><form action="`+server.URL+`/register" method="post">
			<input type="email" name="email"><input type="password" name="password">
			<input type="hidden" name="csrf_token" value="x">
		</form></html>`)

	a := newDesignAnalyzer(t, true)
	findings := a.Check(context.Background(), page)

	assert.True(t, hasFinding(findings, models.FindingNoRateLimiting))
	assert.Equal(t, int32(3), posts.Load())
}

func TestRateLimitProbeRespects429(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	page := newTestPage(t, server.URL+"/", http.StatusOK, nil,
		`<html><form action="`+server.URL+`/register" method="post">
			<input name="q"><input type="hidden" name="csrf_token" value="x">
		</form></html>`)

	a := newDesignAnalyzer(t, true)
	findings := a.Check(context.Background(), page)
	assert.False(t, hasFinding(findings, models.FindingNoRateLimiting))
}

func TestRateLimitProbeSkipsGetForms(t *testing.T) {
	page := newTestPage(t, "https://example.com/", http.StatusOK, nil,
		`<html><form action="/search" method="get">
			<input name="q"><input type="hidden" name="csrf_token" value="x">
		</form></html>`)

	a := newDesignAnalyzer(t, true)
	findings := a.Check(context.Background(), page)
	assert.False(t, hasFinding(findings, models.FindingNoRateLimiting))
}

func TestProbesDisabledSkipsRateLimitCheck(t *testing.T) {
	page := newTestPage(t, "https://example.com/", http.StatusOK, nil,
		`<html><form action="/submit" method="post"><input name="q"></form></html>`)

	a := newDesignAnalyzer(t, false)
	findings := a.Check(context.Background(), page)
	assert.False(t, hasFinding(findings, models.FindingNoRateLimiting))
	assert.True(t, hasFinding(findings, models.FindingMissingCSRF))
}
