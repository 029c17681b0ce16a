package models

import "time"

// ScanStatus values for the coordinator lifecycle.
const (
	ScanStatusCreated   = "created"
	ScanStatusRunning   = "running"
	ScanStatusCompleted = "completed"
	ScanStatusFailed    = "failed"
)

// ScanInfo describes one scan run. The json keys are the persisted
// contract; consumers read scan_info.duration and the total_* counters.
type ScanInfo struct {
	ScanID               string    `json:"scan_id"`
	TargetURL            string    `json:"target_url"`
	Status               string    `json:"status"`
	StartTime            time.Time `json:"start_time"`
	EndTime              time.Time `json:"end_time"`
	DurationSeconds      float64   `json:"duration"`
	URLsVisited          int       `json:"total_urls_scanned"`
	LinksFound           int       `json:"total_links_scanned"`
	FormsFound           int       `json:"total_forms_scanned"`
	TotalVulnerabilities int       `json:"total_vulnerabilities"`
	Error                string    `json:"error,omitempty"`
}

// PerformanceMetrics aggregates response timing and status codes across the
// scan. Times are in seconds. ResponseCodes maps status code to count.
type PerformanceMetrics struct {
	TotalRequests   int            `json:"total_requests"`
	MinResponseTime float64        `json:"min_response_time"`
	AvgResponseTime float64        `json:"avg_response_time"`
	MaxResponseTime float64        `json:"max_response_time"`
	ResponseCodes   map[int]int    `json:"response_codes"`
	BytesReceived   int64          `json:"bytes_received"`
	RequestsPerHost map[string]int `json:"requests_per_host,omitempty"`
}

// Summary is the roll-up section of a result bundle.
type Summary struct {
	ScanInfo              ScanInfo           `json:"scan_info"`
	VulnerabilitiesByType map[string]int     `json:"vulnerabilities_by_type"`
	ErrorsByType          map[string]int     `json:"errors_by_type"`
	Performance           PerformanceMetrics `json:"performance_metrics"`
}

// ResultBundle is the complete JSON-serializable output of one scan. This
// shape is the persistence contract for every sink.
type ResultBundle struct {
	Summary     Summary   `json:"summary"`
	Findings    []Finding `json:"vulnerabilities"`
	Links       []Link    `json:"scanned_links"`
	Forms       []Form    `json:"scanned_forms"`
	ScannedURLs []string  `json:"scanned_urls"`
}
