package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// GetConfigPath determines the configuration file path.
// Priority:
// 1. explicit path (command-line flag)
// 2. SCANNER_CONFIG_PATH environment variable
// 3. config.yaml / config.json in the current working directory
// 4. config.yaml / config.json in the executable's directory
func GetConfigPath(providedPath string) string {
	if providedPath != "" {
		if _, err := os.Stat(providedPath); err == nil {
			return providedPath
		}
	}

	if envPath := os.Getenv("SCANNER_CONFIG_PATH"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	var locations []string
	if cwd, err := os.Getwd(); err == nil {
		locations = append(locations, cwd)
	}
	if exePath, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exePath)
		if len(locations) == 0 || locations[0] != exeDir {
			locations = append(locations, exeDir)
		}
	}

	for _, loc := range locations {
		for _, file := range []string{"config.yaml", "config.json"} {
			path := filepath.Join(loc, file)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// LoadGlobalConfig loads configuration from a file (YAML or JSON, chosen by
// extension) layered over defaults, then applies SCANNER_* environment
// overrides. A missing file is not an error; the defaults are used.
func LoadGlobalConfig(providedPath string, log zerolog.Logger) (*GlobalConfig, error) {
	cfg := NewDefaultGlobalConfig()

	filePath := GetConfigPath(providedPath)
	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file '%s': %w", filePath, err)
		}

		if err := parseConfigContent(data, filePath, cfg); err != nil {
			return nil, err
		}
		log.Info().Str("path", filePath).Msg("Loaded configuration file")
	}

	applyEnvOverrides(cfg, log)

	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseConfigContent(data []byte, filePath string, cfg *GlobalConfig) error {
	ext := strings.ToLower(filepath.Ext(filePath))
	if ext == ".yaml" || ext == ".yml" {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to unmarshal YAML from '%s': %w", filePath, err)
		}
		return nil
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to unmarshal JSON from '%s': %w", filePath, err)
	}
	return nil
}

// applyEnvOverrides maps SCANNER_* environment variables onto config
// fields. Unparseable values keep the configured default and log a warning
// rather than aborting the run.
func applyEnvOverrides(cfg *GlobalConfig, log zerolog.Logger) {
	overrideInt(&cfg.CrawlerConfig.MaxDepth, "SCANNER_MAX_DEPTH", log)
	overrideInt(&cfg.CrawlerConfig.MaxPages, "SCANNER_MAX_PAGES", log)
	overrideInt(&cfg.CrawlerConfig.Threads, "SCANNER_THREADS", log)
	overrideFloat(&cfg.CrawlerConfig.ScanDelay, "SCANNER_SCAN_DELAY", log)

	overrideInt(&cfg.HTTPConfig.RequestTimeout, "SCANNER_REQUEST_TIMEOUT", log)
	overrideInt(&cfg.HTTPConfig.MaxRetries, "SCANNER_MAX_RETRIES", log)
	overrideBool(&cfg.HTTPConfig.VerifySSL, "SCANNER_VERIFY_SSL", log)
	overrideBool(&cfg.HTTPConfig.FollowRedirects, "SCANNER_FOLLOW_REDIRECTS", log)
	overrideString(&cfg.HTTPConfig.UserAgent, "SCANNER_USER_AGENT")
	overrideString(&cfg.HTTPConfig.ProxyURL, "SCANNER_PROXY_URL")
	overrideBool(&cfg.HTTPConfig.UseProxy, "SCANNER_USE_PROXY", log)
	overrideFloat(&cfg.HTTPConfig.RateLimit, "SCANNER_RATE_LIMIT", log)

	overrideBool(&cfg.ChecksConfig.ActiveProbes, "SCANNER_ACTIVE_PROBES", log)
	overrideBool(&cfg.ChecksConfig.StrictAccessControl, "SCANNER_STRICT_ACCESS_CONTROL", log)

	overrideString(&cfg.StorageConfig.OutputDir, "SCANNER_OUTPUT_DIR")
	overrideString(&cfg.StorageConfig.Sink, "SCANNER_SINK")
	overrideString(&cfg.StorageConfig.SQLitePath, "SCANNER_SQLITE_PATH")

	overrideString(&cfg.LogConfig.LogLevel, "SCANNER_LOG_LEVEL")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && value != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string, log zerolog.Logger) {
	value, ok := os.LookupEnv(envKey)
	if !ok || value == "" {
		return
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		log.Warn().Str("env", envKey).Str("value", value).Msg("Ignoring unparseable integer override")
		return
	}
	*target = parsed
}

func overrideFloat(target *float64, envKey string, log zerolog.Logger) {
	value, ok := os.LookupEnv(envKey)
	if !ok || value == "" {
		return
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Warn().Str("env", envKey).Str("value", value).Msg("Ignoring unparseable float override")
		return
	}
	*target = parsed
}

func overrideBool(target *bool, envKey string, log zerolog.Logger) {
	value, ok := os.LookupEnv(envKey)
	if !ok || value == "" {
		return
	}
	parsed, err := strconv.ParseBool(strings.ToLower(value))
	if err != nil {
		log.Warn().Str("env", envKey).Str("value", value).Msg("Ignoring unparseable boolean override")
		return
	}
	*target = parsed
}
