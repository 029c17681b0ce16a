package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/vulnwatch/webscan/internal/config"
	"github.com/vulnwatch/webscan/internal/logger"
	"github.com/vulnwatch/webscan/internal/models"
	"github.com/vulnwatch/webscan/internal/scanner"
)

func main() {
	// Flags
	targetURL := flag.String("url", "", "Target URL to scan. May also be given as the first positional argument.")
	targetURLAlias := flag.String("u", "", "Alias for -url")

	scanID := flag.String("scan-id", "", "Identifier for this scan. A UUID is generated when empty.")

	configFile := flag.String("config", "", "Path to the YAML/JSON configuration file. If not set, searches default locations.")
	configFileAlias := flag.String("c", "", "Alias for -config")

	outputDir := flag.String("output", "", "Output directory for scan results (overrides config file if set)")
	outputDirAlias := flag.String("o", "", "Alias for -output")

	maxDepth := flag.Int("depth", -1, "Maximum crawl depth, 0 scans only the seed URL (overrides config file if set)")
	maxPages := flag.Int("pages", 0, "Maximum number of pages to crawl (overrides config file if set)")
	threads := flag.Int("threads", 0, "Number of concurrent crawler workers (overrides config file if set)")

	verbose := flag.Bool("verbose", false, "Enable debug logging")
	verboseAlias := flag.Bool("v", false, "Alias for -verbose")
	flag.Parse()

	// Consolidate alias flags
	if *targetURL == "" && *targetURLAlias != "" {
		*targetURL = *targetURLAlias
	}
	if *configFile == "" && *configFileAlias != "" {
		*configFile = *configFileAlias
	}
	if *outputDir == "" && *outputDirAlias != "" {
		*outputDir = *outputDirAlias
	}
	if !*verbose && *verboseAlias {
		*verbose = true
	}

	if *targetURL == "" && flag.NArg() > 0 {
		*targetURL = flag.Arg(0)
	}
	if *targetURL == "" {
		fmt.Fprintln(os.Stderr, "usage: webscan [flags] <url>")
		flag.PrintDefaults()
		os.Exit(2)
	}

	gCfg, err := config.LoadGlobalConfig(*configFile, logger.Bootstrap())
	if err != nil {
		log.Fatalf("[FATAL] Could not load config using path '%s': %v", *configFile, err)
	}

	// Command line overrides take precedence over the config file.
	if *outputDir != "" {
		gCfg.StorageConfig.OutputDir = *outputDir
	}
	if *maxDepth >= 0 {
		gCfg.CrawlerConfig.MaxDepth = *maxDepth
	}
	if *maxPages > 0 {
		gCfg.CrawlerConfig.MaxPages = *maxPages
	}
	if *threads > 0 {
		gCfg.CrawlerConfig.Threads = *threads
	}
	if *verbose {
		gCfg.LogConfig.LogLevel = "debug"
	}

	if err := config.ValidateConfig(gCfg); err != nil {
		log.Fatalf("[FATAL] Configuration validation failed: %v", err)
	}

	zLogger, err := logger.NewBuilder().WithConfig(gCfg.LogConfig).WithScanID(*scanID).Build()
	if err != nil {
		log.Fatalf("[FATAL] Could not initialize logger: %v", err)
	}

	s, err := scanner.New(gCfg, zLogger)
	if err != nil {
		zLogger.Fatal().Err(err).Msg("Failed to initialize scanner")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	id, err := s.StartScan(ctx, *targetURL, *scanID)
	if err != nil {
		zLogger.Error().Err(err).Str("scan_id", id).Msg("Scan failed")
		os.Exit(1)
	}

	printSummary(id, s.GetResults())
}

func printSummary(scanID string, bundle *models.ResultBundle) {
	if bundle == nil {
		fmt.Printf("Scan %s completed with no results\n", scanID)
		return
	}

	info := bundle.Summary.ScanInfo
	fmt.Printf("Scan %s completed in %.1fs: %d URLs visited, %d forms found, %d vulnerabilities\n",
		scanID, info.DurationSeconds, info.URLsVisited, info.FormsFound, info.TotalVulnerabilities)

	for _, f := range bundle.Findings {
		location := f.URL
		if f.Details.Parameter != "" {
			location = fmt.Sprintf("%s (parameter %s)", f.URL, f.Details.Parameter)
		} else if f.Details.InputField != "" {
			location = fmt.Sprintf("%s (field %s)", f.URL, f.Details.InputField)
		}
		fmt.Printf("  [%s] %s: %s\n", f.Details.Severity, f.Type, location)
	}
}
