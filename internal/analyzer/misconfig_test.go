package analyzer

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vulnwatch/webscan/internal/models"
)

func TestMisconfigDirectoryListing(t *testing.T) {
	page := newTestPage(t, "https://example.com/files/", http.StatusOK, nil,
		"<html><head><title>Index of /files</title></head><body><a href=\"..\">Parent Directory</a></body></html>")

	findings := NewMisconfigAnalyzer().Check(context.Background(), page)
	assert.True(t, hasFinding(findings, models.FindingDirectoryListing))
}

func TestMisconfigVerboseErrorsRequireErrorStatus(t *testing.T) {
	body := "<html><b>Warning</b>: Undefined variable: foo in /var/www/app.php</html>"

	errorPage := newTestPage(t, "https://example.com/broken", http.StatusInternalServerError, nil, body)
	findings := NewMisconfigAnalyzer().Check(context.Background(), errorPage)
	assert.True(t, hasFinding(findings, models.FindingVerboseErrors))

	// The same body on a 200 page is not an error leak.
	okPage := newTestPage(t, "https://example.com/docs", http.StatusOK, nil, body)
	findings = NewMisconfigAnalyzer().Check(context.Background(), okPage)
	assert.False(t, hasFinding(findings, models.FindingVerboseErrors))
}

func TestMisconfigDefaultConfigs(t *testing.T) {
	urlHit := newTestPage(t, "https://example.com/wp-config.php", http.StatusOK, nil, "<html></html>")
	findings := NewMisconfigAnalyzer().Check(context.Background(), urlHit)
	assert.True(t, hasFinding(findings, models.FindingDefaultConfigs))

	contentHit := newTestPage(t, "https://example.com/setup", http.StatusOK, nil,
		"<html>Installation complete. The default password is admin.</html>")
	findings = NewMisconfigAnalyzer().Check(context.Background(), contentHit)
	assert.True(t, hasFinding(findings, models.FindingDefaultConfigs))

	clean := newTestPage(t, "https://example.com/", http.StatusOK, nil, "<html>Welcome</html>")
	findings = NewMisconfigAnalyzer().Check(context.Background(), clean)
	assert.False(t, hasFinding(findings, models.FindingDefaultConfigs))
}
