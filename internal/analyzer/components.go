package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vulnwatch/webscan/internal/extractor"
	"github.com/vulnwatch/webscan/internal/models"
)

// vulnerableLibrary is one entry in the known-vulnerable component table.
type vulnerableLibrary struct {
	Versions       []string `json:"versions"`
	CVE            string   `json:"cve"`
	Description    string   `json:"description"`
	Severity       string   `json:"severity"`
	Recommendation string   `json:"recommendation"`
	Consequences   string   `json:"consequences"`
}

func builtinVulnerableLibraries() map[string]vulnerableLibrary {
	return map[string]vulnerableLibrary{
		"jquery": {
			Versions:       []string{"1.0", "1.1", "1.2", "1.3", "1.4", "1.5", "1.6", "1.7", "1.8", "1.9", "1.10", "1.11", "1.12", "2.0", "2.1", "2.2", "3.0", "3.1", "3.2", "3.3", "3.4"},
			CVE:            "Multiple CVEs",
			Description:    "Multiple vulnerabilities in jQuery may allow XSS, prototype pollution, or other security issues",
			Severity:       models.SeverityMedium,
			Recommendation: "Update to the latest version of jQuery",
			Consequences:   "Outdated jQuery versions may contain security vulnerabilities that could be exploited by attackers",
		},
		"bootstrap": {
			Versions:       []string{"2.0", "2.1", "2.2", "2.3", "3.0", "3.1", "3.2", "3.3", "4.0", "4.1", "4.2", "4.3", "4.4"},
			CVE:            "Multiple CVEs",
			Description:    "Multiple vulnerabilities in Bootstrap may allow XSS or other security issues",
			Severity:       models.SeverityMedium,
			Recommendation: "Update to the latest version of Bootstrap",
			Consequences:   "Outdated Bootstrap versions may contain security vulnerabilities that could be exploited by attackers",
		},
		"angular": {
			Versions:       []string{"1.0", "1.1", "1.2", "1.3", "1.4", "1.5", "1.6", "1.7", "2.0", "2.1", "2.2", "2.3", "2.4", "4.0", "4.1", "4.2", "4.3", "5.0", "5.1", "5.2", "6.0", "6.1", "7.0", "7.1", "7.2", "8.0", "8.1", "8.2", "9.0"},
			CVE:            "Multiple CVEs",
			Description:    "Multiple vulnerabilities in AngularJS may allow XSS, prototype pollution, or other security issues",
			Severity:       models.SeverityHigh,
			Recommendation: "Update to the latest version of Angular",
			Consequences:   "Outdated Angular versions may contain security vulnerabilities that could be exploited by attackers",
		},
		"react": {
			Versions:       []string{"0.3", "0.4", "0.5", "0.6", "0.7", "0.8", "0.9", "0.10", "0.11", "0.12", "0.13", "0.14", "15.0", "15.1", "15.2", "15.3", "15.4", "15.5", "15.6", "16.0", "16.1", "16.2", "16.3", "16.4", "16.5", "16.6", "16.7", "16.8", "16.9"},
			CVE:            "Multiple CVEs",
			Description:    "Multiple vulnerabilities in React may allow XSS or other security issues",
			Severity:       models.SeverityMedium,
			Recommendation: "Update to the latest version of React",
			Consequences:   "Outdated React versions may contain security vulnerabilities that could be exploited by attackers",
		},
		"vue": {
			Versions:       []string{"1.0", "2.0", "2.1", "2.2", "2.3", "2.4", "2.5", "2.6"},
			CVE:            "Multiple CVEs",
			Description:    "Multiple vulnerabilities in Vue may allow XSS or other security issues",
			Severity:       models.SeverityMedium,
			Recommendation: "Update to the latest version of Vue",
			Consequences:   "Outdated Vue versions may contain security vulnerabilities that could be exploited by attackers",
		},
		"lodash": {
			Versions:       []string{"0.1", "0.2", "0.3", "0.4", "0.5", "0.6", "0.7", "0.8", "0.9", "1.0", "1.1", "1.2", "1.3", "2.0", "2.1", "2.2", "2.3", "2.4", "3.0", "3.1", "3.2", "3.3", "3.4", "3.5", "3.6", "3.7", "3.8", "3.9", "3.10", "4.0", "4.1", "4.2", "4.3", "4.4", "4.5", "4.6", "4.7", "4.8", "4.9", "4.10", "4.11", "4.12", "4.13", "4.14", "4.15", "4.16", "4.17.15"},
			CVE:            "CVE-2019-10744",
			Description:    "Prototype pollution vulnerability in Lodash",
			Severity:       models.SeverityHigh,
			Recommendation: "Update to the latest version of Lodash",
			Consequences:   "Attackers could potentially modify Object prototype, leading to application crashes or remote code execution",
		},
		"moment": {
			Versions:       []string{"1.0", "1.1", "1.2", "1.3", "1.4", "1.5", "1.6", "1.7", "2.0", "2.1", "2.2", "2.3", "2.4", "2.5", "2.6", "2.7", "2.8", "2.9", "2.10", "2.11", "2.12", "2.13", "2.14", "2.15", "2.16", "2.17", "2.18", "2.19"},
			CVE:            "CVE-2017-18214",
			Description:    "Regular expression denial of service (ReDoS) vulnerability in Moment.js",
			Severity:       models.SeverityMedium,
			Recommendation: "Update to the latest version of Moment.js",
			Consequences:   "Attackers could cause denial of service by providing specially crafted input to the parser",
		},
	}
}

// libraryPattern extracts a version from a resource URL. Patterns without a
// library name capture bare ?v=/&version= query versions; the library is
// then inferred from the URL.
type libraryPattern struct {
	re      *regexp.Regexp
	library string
}

var libraryPatterns = []libraryPattern{
	{regexp.MustCompile(`(?i)jquery[.-](\d+\.\d+(?:\.\d+)?)`), "jquery"},
	{regexp.MustCompile(`(?i)bootstrap[.-]?(\d+\.\d+(?:\.\d+)?)`), "bootstrap"},
	{regexp.MustCompile(`(?i)angular[.-]?(\d+\.\d+(?:\.\d+)?)`), "angular"},
	{regexp.MustCompile(`(?i)react[.-]?(\d+\.\d+(?:\.\d+)?)`), "react"},
	{regexp.MustCompile(`(?i)vue[.-]?(\d+\.\d+(?:\.\d+)?)`), "vue"},
	{regexp.MustCompile(`(?i)lodash[.-]?(\d+\.\d+(?:\.\d+)?)`), "lodash"},
	{regexp.MustCompile(`(?i)moment[.-]?(\d+\.\d+(?:\.\d+)?)`), "moment"},
	{regexp.MustCompile(`(?i)[?&]v=(\d+\.\d+(?:\.\d+)?)`), ""},
	{regexp.MustCompile(`(?i)[?&]version=(\d+\.\d+(?:\.\d+)?)`), ""},
}

// ComponentsAnalyzer identifies known-vulnerable front-end library versions
// referenced from script and stylesheet URLs.
type ComponentsAnalyzer struct {
	libraries map[string]vulnerableLibrary
	logger    zerolog.Logger
}

// NewComponentsAnalyzer creates a ComponentsAnalyzer. An optional JSON file
// extends the built-in table; entries for known libraries append versions,
// new libraries are added as-is. A broken file logs a warning and the
// built-in table is used alone.
func NewComponentsAnalyzer(extraFile string, log zerolog.Logger) *ComponentsAnalyzer {
	a := &ComponentsAnalyzer{
		libraries: builtinVulnerableLibraries(),
		logger:    log.With().Str("component", "ComponentsAnalyzer").Logger(),
	}

	if extraFile != "" {
		if err := a.mergeFromFile(extraFile); err != nil {
			a.logger.Warn().Str("file", extraFile).Err(err).
				Msg("Could not load component database, using built-in table")
		}
	}

	return a
}

func (a *ComponentsAnalyzer) mergeFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read component database: %w", err)
	}

	var extra map[string]vulnerableLibrary
	if err := json.Unmarshal(data, &extra); err != nil {
		return fmt.Errorf("failed to parse component database: %w", err)
	}

	for name, lib := range extra {
		key := strings.ToLower(name)
		if existing, ok := a.libraries[key]; ok {
			existing.Versions = append(existing.Versions, lib.Versions...)
			a.libraries[key] = existing
		} else {
			a.libraries[key] = lib
		}
	}

	return nil
}

// Name implements Analyzer.
func (a *ComponentsAnalyzer) Name() string { return "components" }

// Check implements Analyzer.
func (a *ComponentsAnalyzer) Check(_ context.Context, page *Page) []models.Finding {
	if page.Doc == nil {
		return nil
	}

	var resources []string
	for _, script := range extractor.ExtractScripts(page.Doc, page.Base) {
		resources = append(resources, script.URL)
	}
	resources = append(resources, extractor.ExtractStylesheets(page.Doc, page.Base)...)

	var findings []models.Finding
	now := time.Now()

	for _, resourceURL := range resources {
		library, version := a.identifyLibrary(resourceURL)
		if library == "" || version == "" {
			continue
		}

		info, vulnerable := a.isVulnerable(library, version)
		if !vulnerable {
			continue
		}

		findings = append(findings, models.Finding{
			Type:      models.FindingVulnerableComponent,
			URL:       page.URL,
			Timestamp: now,
			Details: models.FindingDetails{
				Severity:       info.Severity,
				Description:    info.Description,
				Recommendation: info.Recommendation,
				Consequences:   info.Consequences,
				Library:        library,
				Version:        version,
				KnownCVEs:      []string{info.CVE},
				ScriptURL:      resourceURL,
			},
		})
	}

	return findings
}

// identifyLibrary extracts the library name and version from a resource
// URL. A version found in a bare query parameter is attributed to whichever
// known library name appears in the URL.
func (a *ComponentsAnalyzer) identifyLibrary(resourceURL string) (string, string) {
	var library, version string

	for _, pattern := range libraryPatterns {
		match := pattern.re.FindStringSubmatch(resourceURL)
		if match == nil {
			continue
		}
		library = pattern.library
		version = match[1]
		break
	}

	if version != "" && library == "" {
		urlLower := strings.ToLower(resourceURL)
		for name := range a.libraries {
			if strings.Contains(urlLower, name) {
				library = name
				break
			}
		}
	}

	return library, version
}

// isVulnerable reports whether the version is known vulnerable: either an
// exact entry in the table, or numerically at or below the newest listed
// vulnerable version. Versions that cannot be parsed are flagged
// conservatively.
func (a *ComponentsAnalyzer) isVulnerable(library, version string) (vulnerableLibrary, bool) {
	info, ok := a.libraries[strings.ToLower(library)]
	if !ok {
		return vulnerableLibrary{}, false
	}

	for _, listed := range info.Versions {
		if version == listed {
			return info, true
		}
	}

	parsed, err := parseVersion(version)
	if err != nil {
		return info, true
	}

	var newest []int
	for _, listed := range info.Versions {
		candidate, err := parseVersion(listed)
		if err != nil {
			continue
		}
		if newest == nil || compareVersions(candidate, newest) > 0 {
			newest = candidate
		}
	}

	if newest != nil && compareVersions(parsed, newest) <= 0 {
		return info, true
	}

	return vulnerableLibrary{}, false
}

func parseVersion(version string) ([]int, error) {
	parts := strings.Split(version, ".")
	parsed := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid version component '%s': %w", part, err)
		}
		parsed = append(parsed, n)
	}
	return parsed, nil
}

func compareVersions(a, b []int) int {
	size := len(a)
	if len(b) > size {
		size = len(b)
	}
	for i := 0; i < size; i++ {
		va, vb := 0, 0
		if i < len(a) {
			va = a[i]
		}
		if i < len(b) {
			vb = b[i]
		}
		if va != vb {
			if va < vb {
				return -1
			}
			return 1
		}
	}
	return 0
}
