package datastore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vulnwatch/webscan/internal/models"
)

// LocalSink writes scan output as JSON files under
// <output_dir>/<scan_id>/. It is also the fallback target when the
// configured primary sink fails.
type LocalSink struct {
	outputDir  string
	scanConfig any
	logger     zerolog.Logger
}

// NewLocalSink creates a LocalSink rooted at outputDir. scanConfig is
// dumped verbatim into scan_config.json alongside the results; pass nil to
// skip that file.
func NewLocalSink(outputDir string, scanConfig any, log zerolog.Logger) *LocalSink {
	return &LocalSink{
		outputDir:  outputDir,
		scanConfig: scanConfig,
		logger:     log.With().Str("component", "LocalSink").Logger(),
	}
}

// SaveResults writes the bundle into the per-scan directory, one file per
// section plus the combined detailed_results.json.
func (s *LocalSink) SaveResults(ctx context.Context, scanID string, bundle *models.ResultBundle) SinkResult {
	dir := filepath.Join(s.outputDir, scanID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return failure(dir, fmt.Errorf("failed to create output directory '%s': %w", dir, err))
	}

	files := []struct {
		name string
		data any
	}{
		{"vulnerabilities.json", bundle.Findings},
		{"scanned_links.json", bundle.Links},
		{"scanned_forms.json", bundle.Forms},
		{"scan_summary.json", bundle.Summary},
		{"detailed_results.json", bundle},
	}
	if s.scanConfig != nil {
		files = append(files, struct {
			name string
			data any
		}{"scan_config.json", s.scanConfig})
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return failure(dir, err)
		}
		if err := writeJSONFile(filepath.Join(dir, f.name), f.data); err != nil {
			return failure(dir, err)
		}
	}

	urlsPath := filepath.Join(dir, "scanned_urls.txt")
	urls := strings.Join(bundle.ScannedURLs, "\n")
	if len(bundle.ScannedURLs) > 0 {
		urls += "\n"
	}
	if err := os.WriteFile(urlsPath, []byte(urls), 0644); err != nil {
		return failure(dir, fmt.Errorf("failed to write '%s': %w", urlsPath, err))
	}

	s.logger.Info().Str("dir", dir).Int("findings", len(bundle.Findings)).Msg("Results written")
	return success(dir)
}

// UpdateProgress writes the latest progress snapshot to progress.json.
func (s *LocalSink) UpdateProgress(_ context.Context, scanID string, percent float64, message string) SinkResult {
	dir := filepath.Join(s.outputDir, scanID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return failure(dir, fmt.Errorf("failed to create output directory '%s': %w", dir, err))
	}

	progress := map[string]any{
		"scan_id":    scanID,
		"percent":    percent,
		"message":    message,
		"updated_at": time.Now().Format(time.RFC3339),
	}
	path := filepath.Join(dir, "progress.json")
	if err := writeJSONFile(path, progress); err != nil {
		return failure(path, err)
	}
	return success(path)
}

func writeJSONFile(path string, data any) error {
	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data for '%s': %w", path, err)
	}
	if err := os.WriteFile(path, encoded, 0644); err != nil {
		return fmt.Errorf("failed to write '%s': %w", path, err)
	}
	return nil
}
