package injection

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/vulnwatch/webscan/internal/httpclient"
	"github.com/vulnwatch/webscan/internal/models"
	"github.com/vulnwatch/webscan/internal/payloads"
)

const (
	sqliDescription    = "SQL injection vulnerability detected"
	sqliRecommendation = "Use parameterized queries and input validation"
	sqliConsequences   = "Without proper input validation, attackers could inject malicious SQL commands that might access, modify, or delete data in your database. This could lead to unauthorized access, data theft, data loss, or complete system compromise."
)

// sqlErrorPatterns are database error signatures that leak through verbose
// error pages, covering MySQL, PostgreSQL, Oracle, SQLite and SQL Server.
var sqlErrorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)SQL syntax`),
	regexp.MustCompile(`(?i)mysql_fetch`),
	regexp.MustCompile(`(?i)mysql_num_rows`),
	regexp.MustCompile(`(?i)mysql_result`),
	regexp.MustCompile(`(?i)mysql_query`),
	regexp.MustCompile(`(?i)mysql error`),
	regexp.MustCompile(`(?i)Warning: mysql_`),
	regexp.MustCompile(`ORA-\d`),
	regexp.MustCompile(`(?i)SQLite/JDBCDriver`),
	regexp.MustCompile(`(?i)SQLite\.Exception`),
	regexp.MustCompile(`(?i)System\.Data\.SQLite\.SQLiteException`),
	regexp.MustCompile(`(?i)PostgreSQL.*ERROR`),
	regexp.MustCompile(`(?i)Warning.*pg_`),
	regexp.MustCompile(`(?i)valid PostgreSQL result`),
	regexp.MustCompile(`(?i)Npgsql\.`),
	regexp.MustCompile(`(?i)Microsoft SQL Server`),
	regexp.MustCompile(`(?i)ODBC SQL Server Driver`),
	regexp.MustCompile(`(?i)SQLServer JDBC Driver`),
	regexp.MustCompile(`(?i)SQLServerException`),
	regexp.MustCompile(`(?i)System\.Data\.SqlClient\.SqlException`),
	regexp.MustCompile(`(?i)Microsoft OLE DB Provider for SQL Server`),
	regexp.MustCompile(`(?i)Unclosed quotation mark after the character string`),
	regexp.MustCompile(`(?i)Error Occurred While Processing Request`),
	regexp.MustCompile(`(?i)Server Error in '/' Application`),
}

func hasSQLError(body string) bool {
	for _, pattern := range sqlErrorPatterns {
		if pattern.MatchString(body) {
			return true
		}
	}
	return false
}

// classifySQLi applies the detectors in priority order and returns the
// detection method of the first one that fires.
func (s *Scanner) classifySQLi(resp *httpclient.Response, payload payloads.SQLiPayload, baselineLen int) (string, bool) {
	body := resp.BodyString()

	switch {
	case hasSQLError(body):
		return "Error based", true
	case payload.ExpectedResult != "" && strings.Contains(body, payload.ExpectedResult):
		return "Result based", true
	case absInt(len(resp.Body)-baselineLen) > s.cfg.LengthDelta:
		return "Length based", true
	case resp.Elapsed > s.cfg.TimeThresholdDuration():
		return "Time based", true
	}
	return "", false
}

func (s *Scanner) testSQLiQueryParam(ctx context.Context, pageURL, param string, baselineLen int) *models.Finding {
	for _, payload := range s.store.SQLi() {
		testURL, err := rewriteQuery(pageURL, param, payload.Payload)
		if err != nil {
			return nil
		}

		resp, err := s.client.Get(ctx, testURL)
		if err != nil {
			s.logger.Debug().Err(err).Str("parameter", param).Str("payload", payload.Name).Msg("SQLi parameter probe failed")
			s.pause(ctx)
			continue
		}

		if method, ok := s.classifySQLi(resp, payload, baselineLen); ok {
			finding := s.sqliFinding(pageURL, payload, method, resp)
			finding.Details.Parameter = param
			finding.Details.Method = "get"
			return &finding
		}
		s.pause(ctx)
	}
	return nil
}

func (s *Scanner) testSQLiFormField(ctx context.Context, form *models.Form, field string, baselineLen int) *models.Finding {
	for _, payload := range s.store.SQLi() {
		resp, err := s.submitForm(ctx, form, injectedValues(form, field, payload.Payload))
		if err != nil {
			s.logger.Debug().Err(err).Str("field", field).Str("payload", payload.Name).Msg("SQLi form probe failed")
			s.pause(ctx)
			continue
		}

		if method, ok := s.classifySQLi(resp, payload, baselineLen); ok {
			finding := s.sqliFinding(form.URL, payload, method, resp)
			finding.Details.InputField = field
			finding.Details.Method = form.Method
			return &finding
		}
		s.pause(ctx)
	}
	return nil
}

func (s *Scanner) sqliFinding(pageURL string, payload payloads.SQLiPayload, method string, resp *httpclient.Response) models.Finding {
	return models.Finding{
		Type:      models.FindingSQLInjection,
		URL:       pageURL,
		Timestamp: time.Now(),
		Details: models.FindingDetails{
			Severity:        models.SeverityHigh,
			Description:     sqliDescription,
			Recommendation:  sqliRecommendation,
			Consequences:    sqliConsequences,
			Payload:         payload.Payload,
			DetectionMethod: method,
			ResponseTime:    resp.Elapsed.Seconds(),
		},
	}
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
