package analyzer

import (
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vulnwatch/webscan/internal/config"
	"github.com/vulnwatch/webscan/internal/httpclient"
	"github.com/vulnwatch/webscan/internal/models"
)

func newTestPage(t *testing.T, rawURL string, statusCode int, header http.Header, body string) *Page {
	t.Helper()
	if header == nil {
		header = http.Header{}
	}
	if header.Get("Content-Type") == "" {
		header.Set("Content-Type", "text/html")
	}
	return NewPage(rawURL, &httpclient.Response{
		StatusCode: statusCode,
		Header:     header,
		Body:       []byte(body),
		FinalURL:   rawURL,
	})
}

func newProbeClient(t *testing.T) *httpclient.Client {
	t.Helper()
	cfg := config.NewDefaultHTTPConfig()
	cfg.RequestTimeout = 5
	cfg.MaxRetries = 0
	client, err := httpclient.NewClient(cfg, 0, zerolog.Nop())
	require.NoError(t, err)
	return client
}

func findingTypes(findings []models.Finding) []string {
	types := make([]string, 0, len(findings))
	for _, f := range findings {
		types = append(types, f.Type)
	}
	return types
}

func hasFinding(findings []models.Finding, findingType string) bool {
	for _, f := range findings {
		if f.Type == findingType {
			return true
		}
	}
	return false
}

func TestRegistryHonorsToggles(t *testing.T) {
	cfg := config.NewDefaultGlobalConfig()
	cfg.ChecksConfig = config.ChecksConfig{ScanHeaders: true}

	registry := NewRegistry(cfg, newProbeClient(t), zerolog.Nop())
	require.Len(t, registry.analyzers, 1)
	require.Equal(t, "headers", registry.analyzers[0].Name())
	require.Nil(t, registry.access)
	require.Nil(t, registry.auth)
}

func TestNewPageTolerance(t *testing.T) {
	header := http.Header{}
	header.Set("Content-Type", "application/octet-stream")

	page := NewPage("https://example.com/bin", &httpclient.Response{
		StatusCode: http.StatusOK,
		Header:     header,
		Body:       []byte{0x00, 0x01, 0x02},
	})

	require.Nil(t, page.Doc)
	require.Empty(t, page.Forms)
}
