package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The serialized bundle is read by external consumers, so the scan_info
// key names are a contract, not an implementation detail.
func TestResultBundleScanInfoKeys(t *testing.T) {
	bundle := ResultBundle{
		Summary: Summary{
			ScanInfo: ScanInfo{
				ScanID:               "scan-1",
				TargetURL:            "https://example.com",
				DurationSeconds:      1.5,
				URLsVisited:          4,
				LinksFound:           9,
				FormsFound:           2,
				TotalVulnerabilities: 3,
			},
		},
	}

	encoded, err := json.Marshal(bundle)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(encoded, &decoded))

	summary, ok := decoded["summary"].(map[string]any)
	require.True(t, ok, "summary section missing")
	scanInfo, ok := summary["scan_info"].(map[string]any)
	require.True(t, ok, "scan_info section missing")

	assert.Equal(t, 1.5, scanInfo["duration"])
	assert.Equal(t, float64(4), scanInfo["total_urls_scanned"])
	assert.Equal(t, float64(9), scanInfo["total_links_scanned"])
	assert.Equal(t, float64(2), scanInfo["total_forms_scanned"])
	assert.Equal(t, float64(3), scanInfo["total_vulnerabilities"])

	for _, stale := range []string{"duration_seconds", "urls_visited", "links_found", "forms_found"} {
		assert.NotContains(t, scanInfo, stale)
	}
	assert.NotContains(t, summary, "vulnerabilities_total")
}
