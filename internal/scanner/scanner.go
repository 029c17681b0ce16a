// Package scanner coordinates a full scan: seed validation, the
// host-scoped analyzer sweeps, the crawl that drives per-page analysis and
// injection testing, stats finalization, and result persistence.
package scanner

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vulnwatch/webscan/internal/analyzer"
	"github.com/vulnwatch/webscan/internal/config"
	"github.com/vulnwatch/webscan/internal/crawler"
	"github.com/vulnwatch/webscan/internal/datastore"
	"github.com/vulnwatch/webscan/internal/httpclient"
	"github.com/vulnwatch/webscan/internal/injection"
	"github.com/vulnwatch/webscan/internal/models"
	"github.com/vulnwatch/webscan/internal/payloads"
	"github.com/vulnwatch/webscan/internal/stats"
	"github.com/vulnwatch/webscan/internal/urlhandler"
)

// Scanner runs scans one at a time and keeps the results of the most
// recent run.
type Scanner struct {
	cfg      *config.GlobalConfig
	sink     datastore.ResultSink
	fallback *datastore.LocalSink
	logger   zerolog.Logger

	mu      sync.Mutex
	scanID  string
	status  string
	results *models.ResultBundle
}

// New creates a Scanner with the sink selected by the storage config.
// A sqlite sink that fails to open degrades to the local sink with a
// warning rather than failing construction.
func New(cfg *config.GlobalConfig, log zerolog.Logger) (*Scanner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("scanner requires a configuration")
	}

	logger := log.With().Str("component", "Scanner").Logger()
	local := datastore.NewLocalSink(cfg.StorageConfig.OutputDir, cfg, log)

	var sink datastore.ResultSink = local
	if cfg.StorageConfig.Sink == "sqlite" && cfg.StorageConfig.SQLitePath != "" {
		sqlite, err := datastore.NewSQLiteSink(cfg.StorageConfig.SQLitePath, log)
		if err != nil {
			logger.Warn().Err(err).Msg("SQLite sink unavailable, using local sink")
		} else {
			sink = sqlite
		}
	}

	return &Scanner{
		cfg:      cfg,
		sink:     sink,
		fallback: local,
		logger:   logger,
		status:   models.ScanStatusCreated,
	}, nil
}

// StartScan runs one scan against targetURL and returns the scan ID. An
// empty scanID gets a generated UUID. The scan fails only when the seed is
// unusable; page-level failures end up in errors_by_type.
func (s *Scanner) StartScan(ctx context.Context, targetURL, scanID string) (string, error) {
	if scanID == "" {
		scanID = uuid.New().String()
	}

	normalized, err := urlhandler.NormalizeURL(targetURL)
	if err != nil {
		s.setStatus(scanID, models.ScanStatusFailed)
		return scanID, fmt.Errorf("invalid target URL '%s': %w", targetURL, err)
	}

	s.setStatus(scanID, models.ScanStatusRunning)
	s.logger.Info().Str("scan_id", scanID).Str("target", normalized).Msg("Scan started")
	s.pushProgress(ctx, scanID, 0, "scan started")

	// A fresh client per scan resets the session cookie jar.
	client, err := httpclient.NewClient(s.cfg.HTTPConfig, s.cfg.CrawlerConfig.ScanDelayDuration(), s.logger)
	if err != nil {
		s.setStatus(scanID, models.ScanStatusFailed)
		return scanID, fmt.Errorf("failed to build HTTP client: %w", err)
	}

	agg := stats.NewAggregator(s.logger)
	registry := analyzer.NewRegistry(s.cfg, client, s.logger)
	store := payloads.NewStore(s.cfg.DetectionConfig.SQLiPayloadFile, s.cfg.DetectionConfig.XSSPayloadFile, s.logger)
	injector := injection.NewScanner(client, store, s.cfg.DetectionConfig, s.cfg.ChecksConfig, s.logger)

	cr, err := crawler.New(s.cfg, registry, injector, agg, s.logger)
	if err != nil {
		agg.Close()
		s.setStatus(scanID, models.ScanStatusFailed)
		return scanID, fmt.Errorf("failed to build crawler: %w", err)
	}

	maxPages := s.cfg.CrawlerConfig.MaxPages
	cr.SetProgressFunc(func(visited int) {
		percent := float64(visited) / float64(maxPages) * 100
		if percent > 100 {
			percent = 100
		}
		s.pushProgress(ctx, scanID, percent, fmt.Sprintf("crawled %d pages", visited))
	})

	// Host-scoped checks run once, before the crawl.
	sweepFindings := registry.Sweep(ctx, normalized)
	for _, f := range sweepFindings {
		agg.AddVulnerability(f.Type)
	}

	result, err := cr.Crawl(ctx, normalized)
	if err != nil {
		agg.Close()
		s.setStatus(scanID, models.ScanStatusFailed)
		s.pushProgress(ctx, scanID, 100, "scan failed")
		return scanID, fmt.Errorf("crawl failed: %w", err)
	}

	snap := agg.Close()
	bundle := buildBundle(scanID, normalized, sweepFindings, result, snap)

	s.mu.Lock()
	s.scanID = scanID
	s.status = models.ScanStatusCompleted
	s.results = bundle
	s.mu.Unlock()

	s.persist(ctx, scanID, bundle)
	s.pushProgress(ctx, scanID, 100, "scan completed")

	s.logger.Info().
		Str("scan_id", scanID).
		Int("urls_visited", len(bundle.ScannedURLs)).
		Int("findings", len(bundle.Findings)).
		Float64("duration_secs", bundle.Summary.ScanInfo.DurationSeconds).
		Msg("Scan completed")

	return scanID, nil
}

// GetResults returns the bundle of the most recent completed scan, or nil.
func (s *Scanner) GetResults() *models.ResultBundle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results
}

// Status returns the lifecycle state of the current or last scan.
func (s *Scanner) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Scanner) setStatus(scanID, status string) {
	s.mu.Lock()
	s.scanID = scanID
	s.status = status
	s.mu.Unlock()
}

// persist writes through the configured sink, falling back to the local
// sink when the primary fails. Persistence failures are logged, never
// fatal.
func (s *Scanner) persist(ctx context.Context, scanID string, bundle *models.ResultBundle) {
	res := s.sink.SaveResults(ctx, scanID, bundle)
	if res.OK {
		return
	}

	s.logger.Warn().Err(res.Err).Str("location", res.Location).Msg("Primary sink failed, falling back to local sink")
	if s.sink == datastore.ResultSink(s.fallback) {
		// Primary already is the local sink, nothing left to try.
		return
	}

	if fb := s.fallback.SaveResults(ctx, scanID, bundle); !fb.OK {
		s.logger.Error().Err(fb.Err).Msg("Fallback sink failed, results not persisted")
	}
}

func (s *Scanner) pushProgress(ctx context.Context, scanID string, percent float64, message string) {
	if res := s.sink.UpdateProgress(ctx, scanID, percent, message); !res.OK {
		s.logger.Debug().Err(res.Err).Msg("Progress update failed")
	}
}

func buildBundle(scanID, targetURL string, sweepFindings []models.Finding, result *crawler.Result, snap stats.Snapshot) *models.ResultBundle {
	findings := make([]models.Finding, 0, len(sweepFindings)+len(result.Findings))
	findings = append(findings, sweepFindings...)
	findings = append(findings, result.Findings...)

	for i := range findings {
		if findings[i].File == "" {
			findings[i].File = urlhandler.FileFromURL(findings[i].URL)
		}
	}

	return &models.ResultBundle{
		Summary: models.Summary{
			ScanInfo: models.ScanInfo{
				ScanID:               scanID,
				TargetURL:            targetURL,
				Status:               models.ScanStatusCompleted,
				StartTime:            snap.StartTime,
				EndTime:              snap.EndTime,
				DurationSeconds:      snap.Duration(),
				URLsVisited:          len(result.VisitedURLs),
				FormsFound:           len(result.Forms),
				LinksFound:           len(result.Links),
				TotalVulnerabilities: len(findings),
			},
			VulnerabilitiesByType: snap.VulnerabilitiesByType,
			ErrorsByType:          snap.ErrorsByType,
			Performance: models.PerformanceMetrics{
				TotalRequests:   snap.TotalRequests,
				MinResponseTime: snap.MinResponseTime,
				AvgResponseTime: snap.AvgResponseTime,
				MaxResponseTime: snap.MaxResponseTime,
				ResponseCodes:   snap.ResponseCodes,
			},
		},
		Findings:    findings,
		Links:       result.Links,
		Forms:       result.Forms,
		ScannedURLs: result.VisitedURLs,
	}
}
