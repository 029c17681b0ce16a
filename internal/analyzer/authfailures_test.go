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
	"github.com/stretchr/testify/require"

	"github.com/vulnwatch/webscan/internal/models"
)

func newAuthAnalyzer(t *testing.T, activeProbes bool) *AuthFailuresAnalyzer {
	t.Helper()
	a := NewAuthFailuresAnalyzer(newProbeClient(t), activeProbes, zerolog.Nop())
	a.probeDelay = time.Millisecond
	return a
}

func TestAuthLoginFormWithoutProtections(t *testing.T) {
	page := newTestPage(t, "https://example.com/login", http.StatusOK, nil,
		`<html><form action="/login" method="post">
			<input type="text" name="username"><input type="password" name="password">
		</form></html>`)

	a := newAuthAnalyzer(t, false)
	findings := a.Check(context.Background(), page)

	assert.True(t, hasFinding(findings, models.FindingNoCaptcha))
	assert.True(t, hasFinding(findings, models.FindingNo2FA))
	assert.True(t, hasFinding(findings, models.FindingWeakPasswordPolicy))
	// Probes disabled, so the brute force check did not run.
	assert.False(t, hasFinding(findings, models.FindingNoBruteForceGuard))
}

func TestAuthProtectedLoginForm(t *testing.T) {
	page := newTestPage(t, "https://example.com/login", http.StatusOK, nil,
		`<html>
		<p>Protected by two-factor authentication. Password must be at least 12 characters.</p>
		<form action="/login" method="post">
			<input type="text" name="username"><input type="password" name="password">
			<input type="hidden" name="g-recaptcha-response">
		</form></html>`)

	a := newAuthAnalyzer(t, false)
	findings := a.Check(context.Background(), page)

	assert.False(t, hasFinding(findings, models.FindingNoCaptcha))
	assert.False(t, hasFinding(findings, models.FindingNo2FA))
	assert.False(t, hasFinding(findings, models.FindingWeakPasswordPolicy))
}

func TestAuthPagesWithoutLoginFormsAreIgnored(t *testing.T) {
	page := newTestPage(t, "https://example.com/", http.StatusOK, nil,
		`<html><form action="/search"><input name="q"></form></html>`)

	a := newAuthAnalyzer(t, true)
	assert.Empty(t, a.Check(context.Background(), page))
}

func TestBruteForceProbe(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		_, _ = w.Write([]byte("invalid credentials"))
	}))
	defer server.Close()

	page := newTestPage(t, server.URL+"/login", http.StatusOK, nil,
		`<html><form action="`+server.URL+`/login" method="post">
			<input type="text" name="user"><input type="password" name="pass">
		</form></html>`)

	a := newAuthAnalyzer(t, true)
	findings := a.Check(context.Background(), page)

	assert.True(t, hasFinding(findings, models.FindingNoBruteForceGuard))
	assert.Equal(t, int32(3), attempts.Load())
}

func TestBruteForceProbeDetectsLockout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Too many attempts, account locked"))
	}))
	defer server.Close()

	page := newTestPage(t, server.URL+"/login", http.StatusOK, nil,
		`<html><form action="`+server.URL+`/login" method="post">
			<input type="text" name="user"><input type="password" name="pass">
		</form></html>`)

	a := newAuthAnalyzer(t, true)
	findings := a.Check(context.Background(), page)
	assert.False(t, hasFinding(findings, models.FindingNoBruteForceGuard))
}

func TestSweepAdminPaths(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/wp-login.php", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>Log In<form method="post"><input name="log"><input type="password" name="pwd"></form></html>`))
	})
	mux.HandleFunc("/dashboard", func(w http.ResponseWriter, r *http.Request) {
		// Reachable but no login form markup.
		_, _ = w.Write([]byte("<html>Status dashboard</html>"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	a := newAuthAnalyzer(t, false)
	findings := a.SweepAdminPaths(context.Background(), server.URL)

	require.Len(t, findings, 1)
	assert.Equal(t, models.FindingDefaultLoginPage, findings[0].Type)
	assert.Equal(t, "/wp-login.php", findings[0].Details.Endpoint)
}
